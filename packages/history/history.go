package history

import (
	"errors"
	"log/slog"
)

// DefaultMaxSteps is the number of undo steps kept before the oldest one is
// evicted
const DefaultMaxSteps = 99

var (
	// ErrInvalidPath is returned when a path segment does not match the kind
	// of container it addresses
	ErrInvalidPath = errors.New("invalid history path")

	// ErrNothingToUndo is returned by Undo on an empty undo stack
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned by Redo on an empty redo stack
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Change is one field-level mutation of a state tree
type Change struct {
	Root   any
	Path   Path
	Before any
	After  any
}

// Step is the ordered list of changes caused by one command
type Step struct {
	Changes []Change
}

// History records path-addressed changes into steps and replays them
// backwards (undo) or forwards (redo). it knows nothing about the shape of
// the data it mutates.
type History struct {
	undoStack []*Step
	redoStack []*Step
	current   *Step
	maxSteps  int
	logger    *slog.Logger
}

// Option configures a History
type Option func(*History)

// WithMaxSteps bounds the undo stack
func WithMaxSteps(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.maxSteps = n
		}
	}
}

// WithLogger sets the logger used for replay diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(h *History) {
		h.logger = logger
	}
}

// New creates an empty history
func New(opts ...Option) *History {
	h := &History{
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Begin opens a new step. records issued before the next Seal accumulate in
// it. calling Begin while a step is open keeps the open step.
func (h *History) Begin() {
	if h.current == nil {
		h.current = &Step{}
	}
}

// Seal closes the open step. it is pushed on the undo stack only if it holds
// at least one change, in which case the redo stack is cleared.
func (h *History) Seal() {
	step := h.current
	h.current = nil
	if step == nil || len(step.Changes) == 0 {
		return
	}
	h.undoStack = append(h.undoStack, step)
	if len(h.undoStack) > h.maxSteps {
		h.undoStack = h.undoStack[len(h.undoStack)-h.maxSteps:]
	}
	h.redoStack = nil
}

// Discard drops the open step without pushing it
func (h *History) Discard() {
	h.current = nil
}

// Record writes value at path under root immediately and captures the change
// in the open step. containers created along the path are captured too, so
// that undo removes them. without an open step the change is applied but not
// undoable.
func (h *History) Record(root any, path Path, value any) error {
	p := append(Path(nil), path...)
	before, created, err := set(root, p, value)
	if h.current != nil {
		for _, cp := range created {
			h.current.Changes = append(h.current.Changes, Change{Root: root, Path: cp, After: Get(root, cp...)})
		}
	}
	if err != nil {
		return err
	}
	if h.current != nil {
		h.current.Changes = append(h.current.Changes, Change{Root: root, Path: p, Before: before, After: value})
	}
	return nil
}

// Undo pops the latest step and writes every "before" value, last change
// first
func (h *History) Undo() error {
	if len(h.undoStack) == 0 {
		return ErrNothingToUndo
	}
	step := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	for i := len(step.Changes) - 1; i >= 0; i-- {
		c := step.Changes[i]
		if _, _, err := set(c.Root, c.Path, c.Before); err != nil {
			h.logger.Error("undo replay failed", "path", c.Path, "error", err)
		}
	}
	h.redoStack = append(h.redoStack, step)
	return nil
}

// Redo pops the latest undone step and writes every "after" value in order
func (h *History) Redo() error {
	if len(h.redoStack) == 0 {
		return ErrNothingToRedo
	}
	step := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	for _, c := range step.Changes {
		if _, _, err := set(c.Root, c.Path, c.After); err != nil {
			h.logger.Error("redo replay failed", "path", c.Path, "error", err)
		}
	}
	h.undoStack = append(h.undoStack, step)
	return nil
}

// CanUndo reports whether a step is available to undo
func (h *History) CanUndo() bool {
	return len(h.undoStack) > 0
}

// CanRedo reports whether a step is available to redo
func (h *History) CanRedo() bool {
	return len(h.redoStack) > 0
}

// UndoDepth returns the number of steps on the undo stack
func (h *History) UndoDepth() int {
	return len(h.undoStack)
}

// Clear drops every step
func (h *History) Clear() {
	h.undoStack = nil
	h.redoStack = nil
	h.current = nil
}
