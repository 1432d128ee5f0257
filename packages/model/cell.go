package model

import (
	"strings"

	"github.com/Raniani-lab/enterpriise-sub000/packages/formula"
	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

// CellKind tags what a cell holds
type CellKind string

const (
	CellEmpty          CellKind = "empty" // style or format only
	CellText           CellKind = "text"
	CellNumber         CellKind = "number"
	CellBoolean        CellKind = "boolean"
	CellFormula        CellKind = "formula"
	CellInvalidFormula CellKind = "invalid"
)

// Formula is the compiled part of a formula cell. Dependencies and the
// |n| markers of the compiled unit are matched by position.
type Formula struct {
	Text         string
	Dependencies []Range
	Unit         *formula.CompiledUnit
}

// Cell is an immutable cell. every change, including the shift of its
// dependencies, stores a new Cell in the state tree so that history can
// restore the previous pointer.
type Cell struct {
	ID      string
	Kind    CellKind
	Content string
	Value   functions.Value
	Style   uint32
	Format  uint32
	Formula *Formula
	Error   *formula.FormulaError
}

// IsFormula reports whether the cell content starts with "="
func (c *Cell) IsFormula() bool {
	return c.Kind == CellFormula || c.Kind == CellInvalidFormula
}

// withDependencies returns a copy of a formula cell with new dependencies.
// the compiled unit is shared: its markers did not move.
func (c *Cell) withDependencies(deps []Range) *Cell {
	next := *c
	f := *c.Formula
	f.Dependencies = deps
	next.Formula = &f
	return &next
}

// literalCell classifies non formula content
func literalCell(id, content string, style, format uint32) *Cell {
	c := &Cell{ID: id, Content: content, Style: style, Format: format}
	switch {
	case content == "":
		c.Kind = CellEmpty
	case strings.EqualFold(content, "TRUE"):
		c.Kind, c.Value = CellBoolean, true
	case strings.EqualFold(content, "FALSE"):
		c.Kind, c.Value = CellBoolean, false
	default:
		if n, ok := functions.ParseNumber(content); ok {
			c.Kind, c.Value = CellNumber, n
		} else {
			c.Kind, c.Value = CellText, content
		}
	}
	return c
}
