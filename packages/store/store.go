// Package store persists workbooks under an id
package store

import (
	"context"
	"errors"

	"github.com/Raniani-lab/enterpriise-sub000/packages/model"
)

// ErrNotFound is returned by Load when no workbook is stored under an id
var ErrNotFound = errors.New("workbook not found")

// WorkbookStore persists workbook documents
type WorkbookStore interface {
	// Save persists the workbook under id, replacing any previous one.
	Save(ctx context.Context, id string, data *model.WorkbookData) error

	// Load returns the workbook stored under id, migrated to the current
	// version. returns ErrNotFound if there is none.
	Load(ctx context.Context, id string) (*model.WorkbookData, error)

	// Delete removes the workbook. deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the stored ids in ascending order
	List(ctx context.Context) ([]string, error)
}
