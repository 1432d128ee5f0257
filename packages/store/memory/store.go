package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
	"github.com/Raniani-lab/enterpriise-sub000/packages/store"
)

// Store implements store.WorkbookStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]byte
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save keeps the encoded document so that later changes by the caller do
// not leak into the store.
func (s *Store) Save(ctx context.Context, id string, data *model.WorkbookData) error {
	raw, err := model.MarshalWorkbook(data)
	if err != nil {
		return fmt.Errorf("failed to marshal workbook: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = raw
	return nil
}

// Load decodes a fresh copy of the stored document.
func (s *Store) Load(ctx context.Context, id string) (*model.WorkbookData, error) {
	s.mu.RLock()
	raw, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return model.Migrate(raw)
}

// Delete removes the workbook.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
