package memory_test

import (
	"testing"

	"github.com/Raniani-lab/enterpriise-sub000/packages/store"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store/memory"
)

func TestMemoryStore_Contract(t *testing.T) {
	store.RunContract(t, memory.NewStore())
}
