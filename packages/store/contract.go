package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
)

// RunContract checks that a WorkbookStore implementation behaves as the
// interface documents
func RunContract(t *testing.T, s WorkbookStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		data := model.NewWorkbookData()
		data.Sheets[0].Cells["A1"] = model.CellData{Content: "=SUM(B1:B3)", Format: 1}
		data.Sheets[0].Merges = []string{"C1:D2"}
		data.Formats[1] = "0.00"
		require.NoError(t, s.Save(ctx, "book", data))

		loaded, err := s.Load(ctx, "book")
		require.NoError(t, err)
		assert.Equal(t, data, loaded)

		// the stored copy is not shared with the caller
		loaded.Sheets[0].Cells["A2"] = model.CellData{Content: "x"}
		again, err := s.Load(ctx, "book")
		require.NoError(t, err)
		assert.NotContains(t, again.Sheets[0].Cells, "A2")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "doomed", model.NewWorkbookData()))
		require.NoError(t, s.Delete(ctx, "doomed"))
		_, err := s.Load(ctx, "doomed")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, s.Delete(ctx, "doomed"))
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "b-list", model.NewWorkbookData()))
		require.NoError(t, s.Save(ctx, "a-list", model.NewWorkbookData()))
		t.Cleanup(func() {
			_ = s.Delete(ctx, "a-list")
			_ = s.Delete(ctx, "b-list")
		})

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "a-list")
		assert.Contains(t, ids, "b-list")
		assert.IsIncreasing(t, ids)
	})
}
