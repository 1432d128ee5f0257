package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Raniani-lab/enterpriise-sub000/packages/formula"
	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
	"github.com/Raniani-lab/enterpriise-sub000/packages/history"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

const (
	DefaultSheetID   = "sheet1"
	DefaultSheetName = "Sheet1"
	DefaultCols      = 26
	DefaultRows      = 100
)

// SheetInfo describes a sheet
type SheetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// SheetPlugin owns sheets and their cells. a sheet lives in the state tree
// at sheets/<id> as {name, cols, rows, cells: {xc: *Cell}}.
type SheetPlugin struct {
	BasePlugin
	nextCellID int
}

func (p *SheetPlugin) Name() string { return "sheet" }

func (p *SheetPlugin) sheet(id string) history.Object {
	s, _ := history.Get(p.model.state, "sheets", id).(history.Object)
	return s
}

func (p *SheetPlugin) order() []string {
	order, _ := p.model.state["order"].([]string)
	return order
}

func (p *SheetPlugin) size(id string) (cols, rows int) {
	s := p.sheet(id)
	if s == nil {
		return 0, 0
	}
	return s["cols"].(int), s["rows"].(int)
}

func (p *SheetPlugin) sheetName(id string) (string, bool) {
	s := p.sheet(id)
	if s == nil {
		return "", false
	}
	return s["name"].(string), true
}

// sheetIDByName resolves a sheet name, case-insensitively
func (p *SheetPlugin) sheetIDByName(name string) (string, bool) {
	for _, id := range p.order() {
		if n, _ := p.sheetName(id); strings.EqualFold(n, name) {
			return id, true
		}
	}
	return "", false
}

func (p *SheetPlugin) cells(id string) history.Object {
	cells, _ := history.Get(p.model.state, "sheets", id, "cells").(history.Object)
	return cells
}

func (p *SheetPlugin) cell(id string, col, row int) *Cell {
	c, _ := history.Get(p.model.state, "sheets", id, "cells", zone.ToXC(col, row)).(*Cell)
	return c
}

// eachCell visits the cells of a sheet in row then column order
func (p *SheetPlugin) eachCell(id string, visit func(col, row int, c *Cell)) {
	type entry struct {
		col, row int
		cell     *Cell
	}
	var entries []entry
	for xc, v := range p.cells(id) {
		col, row, err := zone.ToCartesian(xc)
		if err != nil {
			continue
		}
		entries = append(entries, entry{col, row, v.(*Cell)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].row != entries[j].row {
			return entries[i].row < entries[j].row
		}
		return entries[i].col < entries[j].col
	})
	for _, e := range entries {
		visit(e.col, e.row, e.cell)
	}
}

func (p *SheetPlugin) isNameTaken(name, except string) bool {
	id, ok := p.sheetIDByName(name)
	return ok && id != except
}

func (p *SheetPlugin) AllowDispatch(cmd Command) CancelledReason {
	switch c := cmd.(type) {
	case CreateSheet:
		switch {
		case c.SheetID == "" || p.sheet(c.SheetID) != nil:
			return ReasonInvalidSheetID
		case strings.TrimSpace(c.Name) == "":
			return ReasonMissingSheetName
		case p.isNameTaken(c.Name, ""):
			return ReasonDuplicatedSheetName
		case c.Cols < 0 || c.Rows < 0:
			return ReasonInvalidCommand
		}
	case DeleteSheet:
		if p.sheet(c.SheetID) == nil {
			return ReasonInvalidSheetID
		}
		if len(p.order()) <= 1 {
			return ReasonNotEnoughSheets
		}
	case RenameSheet:
		switch {
		case p.sheet(c.SheetID) == nil:
			return ReasonInvalidSheetID
		case strings.TrimSpace(c.Name) == "":
			return ReasonMissingSheetName
		case p.isNameTaken(c.Name, c.SheetID):
			return ReasonDuplicatedSheetName
		}
	case UpdateCell:
		return p.checkPosition(c.SheetID, c.Col, c.Row)
	case ClearCell:
		return p.checkPosition(c.SheetID, c.Col, c.Row)
	case AddColumns:
		return p.checkInsertion(c.SheetID, c.Column, c.Quantity, c.Position, dimCol)
	case AddRows:
		return p.checkInsertion(c.SheetID, c.Row, c.Quantity, c.Position, dimRow)
	case RemoveColumns:
		return p.checkRemoval(c.SheetID, c.Columns, dimCol)
	case RemoveRows:
		return p.checkRemoval(c.SheetID, c.Rows, dimRow)
	}
	return ReasonNone
}

func (p *SheetPlugin) checkPosition(sheetID string, col, row int) CancelledReason {
	if p.sheet(sheetID) == nil {
		return ReasonInvalidSheetID
	}
	cols, rows := p.size(sheetID)
	if col < 0 || row < 0 || col >= cols || row >= rows {
		return ReasonTargetOutOfSheet
	}
	return ReasonNone
}

func (p *SheetPlugin) checkInsertion(sheetID string, base, quantity int, position string, dim dimension) CancelledReason {
	if p.sheet(sheetID) == nil {
		return ReasonInvalidSheetID
	}
	if quantity <= 0 || (position != Before && position != After) {
		return ReasonInvalidCommand
	}
	cols, rows := p.size(sheetID)
	limit := cols
	if dim == dimRow {
		limit = rows
	}
	if base < 0 || base >= limit {
		return ReasonTargetOutOfSheet
	}
	return ReasonNone
}

func (p *SheetPlugin) checkRemoval(sheetID string, indexes []int, dim dimension) CancelledReason {
	if p.sheet(sheetID) == nil {
		return ReasonInvalidSheetID
	}
	if len(indexes) == 0 {
		return ReasonInvalidCommand
	}
	cols, rows := p.size(sheetID)
	limit, notEnough := cols, ReasonNotEnoughColumns
	if dim == dimRow {
		limit, notEnough = rows, ReasonNotEnoughRows
	}
	for _, i := range indexes {
		if i < 0 || i >= limit {
			return ReasonTargetOutOfSheet
		}
	}
	if len(uniqueSorted(indexes)) >= limit {
		return notEnough
	}
	return ReasonNone
}

func (p *SheetPlugin) Handle(cmd Command) {
	switch c := cmd.(type) {
	case CreateSheet:
		p.createSheet(c)
		p.adaptFormulas(func(r Range) (Range, bool) {
			return r.resolveSheet(p.sheetIDByName)
		})
	case DeleteSheet:
		p.record(nil, "sheets", c.SheetID)
		var order []string
		for _, id := range p.order() {
			if id != c.SheetID {
				order = append(order, id)
			}
		}
		p.record(order, "order")
	case RenameSheet:
		p.record(strings.TrimSpace(c.Name), "sheets", c.SheetID, "name")
		p.adaptFormulas(func(r Range) (Range, bool) {
			return r.resolveSheet(p.sheetIDByName)
		})
	case UpdateCell:
		p.updateCell(c)
	case ClearCell:
		if p.cell(c.SheetID, c.Col, c.Row) != nil {
			p.record(nil, "sheets", c.SheetID, "cells", zone.ToXC(c.Col, c.Row))
		}
	case AddColumns:
		p.insert(c.SheetID, dimCol, insertionIndex(c.Column, c.Position), c.Quantity)
	case AddRows:
		p.insert(c.SheetID, dimRow, insertionIndex(c.Row, c.Position), c.Quantity)
	case RemoveColumns:
		p.remove(c.SheetID, dimCol, uniqueSorted(c.Columns))
	case RemoveRows:
		p.remove(c.SheetID, dimRow, uniqueSorted(c.Rows))
	}
}

func (p *SheetPlugin) createSheet(c CreateSheet) {
	cols, rows := c.Cols, c.Rows
	if cols == 0 {
		cols = DefaultCols
	}
	if rows == 0 {
		rows = DefaultRows
	}
	p.record(history.Object{
		"name":  strings.TrimSpace(c.Name),
		"cols":  cols,
		"rows":  rows,
		"cells": history.Object{},
	}, "sheets", c.SheetID)

	order := append([]string(nil), p.order()...)
	position := min(max(c.Position, 0), len(order))
	order = append(order[:position], append([]string{c.SheetID}, order[position:]...)...)
	p.record(order, "order")
}

func (p *SheetPlugin) updateCell(c UpdateCell) {
	old := p.cell(c.SheetID, c.Col, c.Row)
	var content string
	var style, format uint32
	if old != nil {
		content, style, format = old.Content, old.Style, old.Format
		if old.IsFormula() {
			content = p.formulaText(c.SheetID, old)
		}
	}
	if c.Content != nil {
		content = *c.Content
	}
	if c.Style != nil {
		style = p.model.styles.Intern(*c.Style)
	}
	if c.Format != nil {
		format = p.model.formats.Intern(*c.Format)
	}

	xc := zone.ToXC(c.Col, c.Row)
	if content == "" && style == 0 && format == 0 {
		if old != nil {
			p.record(nil, "sheets", c.SheetID, "cells", xc)
		}
		return
	}
	id := ""
	if old != nil && c.Content == nil {
		id = old.ID
	}
	p.record(p.buildCell(c.SheetID, id, content, style, format), "sheets", c.SheetID, "cells", xc)
}

func (p *SheetPlugin) newCellID() string {
	p.nextCellID++
	return fmt.Sprintf("c%d", p.nextCellID)
}

// buildCell classifies content and compiles formulas. compile errors are
// kept on the cell.
func (p *SheetPlugin) buildCell(sheetID, id, content string, style, format uint32) *Cell {
	if id == "" {
		id = p.newCellID()
	}
	if !strings.HasPrefix(content, "=") {
		return literalCell(id, content, style, format)
	}
	c := &Cell{ID: id, Kind: CellFormula, Content: content, Style: style, Format: format}
	normalized, err := formula.NormalizeWith(content, p.model.compiler.Functions())
	if err != nil {
		c.Kind, c.Error = CellInvalidFormula, asFormulaError(err)
		return c
	}
	deps := make([]Range, len(normalized.Dependencies))
	for i, text := range normalized.Dependencies {
		deps[i] = ParseRange(text, sheetID, p.sheetIDByName)
	}
	c.Formula = &Formula{Text: normalized.Text, Dependencies: deps}
	unit, err := p.model.compiler.Compile(normalized)
	if err != nil {
		c.Kind, c.Error = CellInvalidFormula, asFormulaError(err)
		return c
	}
	c.Formula.Unit = unit
	return c
}

func asFormulaError(err error) *formula.FormulaError {
	var fe *formula.FormulaError
	if errors.As(err, &fe) {
		return fe
	}
	ee := functions.AsEvaluationError(err)
	return &formula.FormulaError{Code: ee.Code, Message: ee.Error()}
}

// formulaText rebuilds the text of a formula cell from its current
// dependencies
func (p *SheetPlugin) formulaText(sheetID string, c *Cell) string {
	if c.Formula == nil {
		return c.Content
	}
	texts := make([]string, len(c.Formula.Dependencies))
	for i, r := range c.Formula.Dependencies {
		texts[i] = r.Text(sheetID, p.sheetName)
	}
	return formula.Denormalize(c.Formula.Text, texts)
}

// moveCells rewrites the cells of a sheet through move. cells mapped to
// ok=false are deleted.
func (p *SheetPlugin) moveCells(sheetID string, move func(col, row int) (int, int, bool)) {
	type target struct {
		xc   string
		cell *Cell
	}
	var moved []target
	p.eachCell(sheetID, func(col, row int, c *Cell) {
		newCol, newRow, ok := move(col, row)
		if ok && newCol == col && newRow == row {
			return
		}
		p.record(nil, "sheets", sheetID, "cells", zone.ToXC(col, row))
		if ok {
			moved = append(moved, target{zone.ToXC(newCol, newRow), c})
		}
	})
	for _, t := range moved {
		p.record(t.cell, "sheets", sheetID, "cells", t.xc)
	}
}

func (p *SheetPlugin) insert(sheetID string, dim dimension, index, quantity int) {
	p.moveCells(sheetID, func(col, row int) (int, int, bool) {
		if dim == dimCol && col >= index {
			return col + quantity, row, true
		}
		if dim == dimRow && row >= index {
			return col, row + quantity, true
		}
		return col, row, true
	})
	p.resize(sheetID, dim, quantity)
	p.adaptFormulas(func(r Range) (Range, bool) {
		return r.adaptInserted(sheetID, dim, index, quantity)
	})
}

func (p *SheetPlugin) remove(sheetID string, dim dimension, removed []int) {
	shift := func(i int) (int, bool) {
		before := 0
		for _, r := range removed {
			if r == i {
				return 0, false
			}
			if r < i {
				before++
			}
		}
		return i - before, true
	}
	p.moveCells(sheetID, func(col, row int) (int, int, bool) {
		if dim == dimCol {
			newCol, ok := shift(col)
			return newCol, row, ok
		}
		newRow, ok := shift(row)
		return col, newRow, ok
	})
	p.resize(sheetID, dim, -len(removed))
	p.adaptFormulas(func(r Range) (Range, bool) {
		return r.adaptRemoved(sheetID, dim, removed)
	})
}

func (p *SheetPlugin) resize(sheetID string, dim dimension, delta int) {
	cols, rows := p.size(sheetID)
	if dim == dimCol {
		p.record(cols+delta, "sheets", sheetID, "cols")
		return
	}
	p.record(rows+delta, "sheets", sheetID, "rows")
}

// adaptFormulas maps the dependencies of every formula of every sheet. the
// normalized text is untouched: only ranges move.
func (p *SheetPlugin) adaptFormulas(adapt func(Range) (Range, bool)) {
	for _, id := range p.order() {
		p.eachCell(id, func(col, row int, c *Cell) {
			if c.Formula == nil {
				return
			}
			var deps []Range
			for i, r := range c.Formula.Dependencies {
				next, changed := adapt(r)
				if !changed {
					continue
				}
				if deps == nil {
					deps = append([]Range(nil), c.Formula.Dependencies...)
				}
				deps[i] = next
			}
			if deps != nil {
				p.record(c.withDependencies(deps), "sheets", id, "cells", zone.ToXC(col, row))
			}
		})
	}
}

func (p *SheetPlugin) Import(data *WorkbookData) error {
	for id, s := range data.Styles {
		p.model.styles.Set(id, s)
	}
	for id, f := range data.Formats {
		p.model.formats.Set(id, f)
	}
	if len(data.Sheets) == 0 {
		return appErrorf(InvalidArgument, "a workbook needs at least one sheet")
	}
	sheets := p.model.state["sheets"].(history.Object)
	var order []string
	for _, s := range data.Sheets {
		if s.ID == "" || sheets[s.ID] != nil {
			return appErrorf(InvalidArgument, "invalid or duplicated sheet id %q", s.ID)
		}
		cols, rows := s.Cols, s.Rows
		if cols <= 0 {
			cols = DefaultCols
		}
		if rows <= 0 {
			rows = DefaultRows
		}
		sheets[s.ID] = history.Object{"name": s.Name, "cols": cols, "rows": rows, "cells": history.Object{}}
		order = append(order, s.ID)
	}
	p.model.state["order"] = order

	// cells are built once every sheet exists so that cross sheet
	// references resolve
	for _, s := range data.Sheets {
		cells := p.cells(s.ID)
		for xc, cd := range s.Cells {
			col, row, err := zone.ToCartesian(xc)
			if err != nil {
				return appErrorf(InvalidArgument, "invalid cell %q in sheet %q", xc, s.Name)
			}
			if cd.Content == "" && cd.Style == 0 && cd.Format == 0 {
				continue
			}
			cells[zone.ToXC(col, row)] = p.buildCell(s.ID, "", cd.Content, cd.Style, cd.Format)
		}
	}
	return nil
}

func (p *SheetPlugin) Export(data *WorkbookData) {
	for _, id := range p.order() {
		name, _ := p.sheetName(id)
		cols, rows := p.size(id)
		sd := SheetData{ID: id, Name: name, Cols: cols, Rows: rows, Cells: map[string]CellData{}, Merges: []string{}}
		p.eachCell(id, func(col, row int, c *Cell) {
			content := c.Content
			if c.IsFormula() {
				content = p.formulaText(id, c)
			}
			sd.Cells[zone.ToXC(col, row)] = CellData{Content: content, Style: c.Style, Format: c.Format}
			if c.Style != 0 {
				data.Styles[c.Style], _ = p.model.styles.Get(c.Style)
			}
			if c.Format != 0 {
				data.Formats[c.Format], _ = p.model.formats.Get(c.Format)
			}
		})
		data.Sheets = append(data.Sheets, sd)
	}
}

func uniqueSorted(indexes []int) []int {
	seen := make(map[int]struct{}, len(indexes))
	var result []int
	for _, i := range indexes {
		if _, ok := seen[i]; !ok {
			seen[i] = struct{}{}
			result = append(result, i)
		}
	}
	sort.Ints(result)
	return result
}
