package history

import (
	"fmt"
)

// Object is a keyed container of a state tree
type Object map[string]any

// Array is an indexed container of a state tree. it is always handled by
// pointer so that writes through a path are visible to every holder.
type Array struct {
	Items []any
}

// NewArray creates an array holding the given items
func NewArray(items ...any) *Array {
	return &Array{Items: items}
}

// Len returns the number of slots in the array
func (a *Array) Len() int {
	return len(a.Items)
}

// Get returns the item at i, or nil when i is out of bounds
func (a *Array) Get(i int) any {
	if i < 0 || i >= len(a.Items) {
		return nil
	}
	return a.Items[i]
}

// Set writes the item at i, growing the array as needed
func (a *Array) Set(i int, v any) {
	for len(a.Items) <= i {
		a.Items = append(a.Items, nil)
	}
	a.Items[i] = v
}

// Path addresses a field in a state tree. every segment is either a string
// (object key) or an int (array index).
type Path []any

// Get walks path from root and returns the value found there. missing
// containers yield nil.
func Get(root any, path ...any) any {
	current := root
	for _, key := range path {
		if current == nil {
			return nil
		}
		current = read(current, key)
	}
	return current
}

func read(container any, key any) any {
	switch c := container.(type) {
	case Object:
		k, ok := key.(string)
		if !ok {
			return nil
		}
		return c[k]
	case *Array:
		i, ok := key.(int)
		if !ok {
			return nil
		}
		return c.Get(i)
	default:
		return nil
	}
}

func write(container any, key any, value any) error {
	switch c := container.(type) {
	case Object:
		k, ok := key.(string)
		if !ok {
			return fmt.Errorf("%w: object key must be a string, got %T", ErrInvalidPath, key)
		}
		if value == nil {
			delete(c, k)
			return nil
		}
		c[k] = value
		return nil
	case *Array:
		i, ok := key.(int)
		if !ok || i < 0 {
			return fmt.Errorf("%w: array index must be a non-negative int, got %v", ErrInvalidPath, key)
		}
		c.Set(i, value)
		return nil
	default:
		return fmt.Errorf("%w: %T is not a container", ErrInvalidPath, container)
	}
}

// containerFor creates the container kind expected by the next segment
func containerFor(next any) any {
	if _, ok := next.(int); ok {
		return &Array{}
	}
	return Object{}
}

// set walks path from root, creating missing intermediate containers on
// demand, writes value at the last segment and returns the previous value
// along with the paths of the containers it created, outermost first
func set(root any, path Path, value any) (any, []Path, error) {
	if len(path) == 0 {
		return nil, nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	var created []Path
	current := root
	for i, key := range path[:len(path)-1] {
		child := read(current, key)
		if child == nil {
			child = containerFor(path[i+1])
			if err := write(current, key, child); err != nil {
				return nil, created, err
			}
			created = append(created, append(Path(nil), path[:i+1]...))
		}
		current = child
	}
	last := path[len(path)-1]
	before := read(current, last)
	if err := write(current, last, value); err != nil {
		return nil, created, err
	}
	return before, created, nil
}
