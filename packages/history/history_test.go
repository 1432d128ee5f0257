package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCreatesContainersFromNextSegment(t *testing.T) {
	root := Object{}
	h := New()
	h.Begin()
	require.NoError(t, h.Record(root, Path{"sheets", "s1", "rows", 2, "height"}, 23))
	h.Seal()

	sheets, ok := root["sheets"].(Object)
	require.True(t, ok)
	s1, ok := sheets["s1"].(Object)
	require.True(t, ok)
	rows, ok := s1["rows"].(*Array)
	require.True(t, ok)
	assert.Equal(t, 3, rows.Len())
	assert.Equal(t, 23, Get(root, "sheets", "s1", "rows", 2, "height"))
	assert.Nil(t, Get(root, "sheets", "s1", "rows", 0))
}

func TestUndoRedo(t *testing.T) {
	root := Object{"a": 1}
	h := New()

	h.Begin()
	require.NoError(t, h.Record(root, Path{"a"}, 2))
	require.NoError(t, h.Record(root, Path{"b", "c"}, "x"))
	h.Seal()

	h.Begin()
	require.NoError(t, h.Record(root, Path{"a"}, 3))
	h.Seal()

	assert.Equal(t, 3, root["a"])
	require.NoError(t, h.Undo())
	assert.Equal(t, 2, root["a"])
	require.NoError(t, h.Undo())
	assert.Equal(t, 1, root["a"])
	_, exists := root["b"]
	assert.False(t, exists)
	assert.ErrorIs(t, h.Undo(), ErrNothingToUndo)

	require.NoError(t, h.Redo())
	assert.Equal(t, "x", Get(root, "b", "c"))
	require.NoError(t, h.Redo())
	assert.Equal(t, 3, root["a"])
	assert.ErrorIs(t, h.Redo(), ErrNothingToRedo)
}

func TestUndoRemovesCreatedContainers(t *testing.T) {
	root := Object{"keep": Object{}}
	h := New()
	h.Begin()
	require.NoError(t, h.Record(root, Path{"a", "b", 0}, 1))
	require.NoError(t, h.Record(root, Path{"keep", "x", "y"}, 2))
	h.Seal()

	require.NoError(t, h.Undo())
	assert.Equal(t, Object{"keep": Object{}}, root)

	require.NoError(t, h.Redo())
	assert.Equal(t, 1, Get(root, "a", "b", 0))
	assert.Equal(t, 2, Get(root, "keep", "x", "y"))

	require.NoError(t, h.Undo())
	assert.Equal(t, Object{"keep": Object{}}, root)
}

func TestUndoReplaysInReverseOrder(t *testing.T) {
	root := Object{}
	h := New()
	h.Begin()
	require.NoError(t, h.Record(root, Path{"v"}, 1))
	require.NoError(t, h.Record(root, Path{"v"}, 2))
	require.NoError(t, h.Record(root, Path{"v"}, 3))
	h.Seal()

	require.NoError(t, h.Undo())
	_, exists := root["v"]
	assert.False(t, exists)
}

func TestEmptyStepIsNotPushed(t *testing.T) {
	h := New()
	h.Begin()
	h.Seal()
	assert.False(t, h.CanUndo())
}

func TestNewStepClearsRedo(t *testing.T) {
	root := Object{}
	h := New()
	h.Begin()
	require.NoError(t, h.Record(root, Path{"v"}, 1))
	h.Seal()
	require.NoError(t, h.Undo())
	assert.True(t, h.CanRedo())

	h.Begin()
	require.NoError(t, h.Record(root, Path{"w"}, 1))
	h.Seal()
	assert.False(t, h.CanRedo())
}

func TestMaxStepsEvictsOldest(t *testing.T) {
	root := Object{}
	h := New(WithMaxSteps(3))
	for i := 1; i <= 5; i++ {
		h.Begin()
		require.NoError(t, h.Record(root, Path{"v"}, i))
		h.Seal()
	}
	assert.Equal(t, 3, h.UndoDepth())
	for h.CanUndo() {
		require.NoError(t, h.Undo())
	}
	assert.Equal(t, 2, root["v"])
}

func TestRecordRejectsMismatchedSegment(t *testing.T) {
	root := Object{"list": NewArray(1, 2)}
	h := New()
	err := h.Record(root, Path{"list", "x"}, 1)
	assert.ErrorIs(t, err, ErrInvalidPath)
}
