package model

import (
	"errors"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// Sheets lists the sheets in display order
func (m *Model) Sheets() []SheetInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []SheetInfo
	for _, id := range m.sheets.order() {
		name, _ := m.sheets.sheetName(id)
		cols, rows := m.sheets.size(id)
		result = append(result, SheetInfo{ID: id, Name: name, Cols: cols, Rows: rows})
	}
	return result
}

// SheetIDByName resolves a sheet name, case-insensitively
func (m *Model) SheetIDByName(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sheets.sheetIDByName(name)
}

func (m *Model) checkSheet(sheetID string) error {
	if m.sheets.sheet(sheetID) == nil {
		return appErrorf(NotFound, "sheet %q not found", sheetID)
	}
	return nil
}

// CellContent returns the content of a cell as typed. formulas are
// rebuilt from their current references.
func (m *Model) CellContent(sheetID string, col, row int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.sheets.cell(sheetID, col, row)
	if c == nil {
		return ""
	}
	if c.IsFormula() {
		return m.sheets.formulaText(sheetID, c)
	}
	return c.Content
}

// CellValue returns the computed value of a cell: nil, float64, string,
// bool, *functions.EvaluationError or Loading
func (m *Model) CellValue(sheetID string, col, row int) functions.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluation.compute(CellAddress{sheetID, col, row})
}

// CellText returns the value of a cell as displayed, with its format
func (m *Model) CellText(sheetID string, col, row int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr := CellAddress{sheetID, col, row}
	return formatValue(m.evaluation.compute(addr), m.evaluation.format(addr, map[CellAddress]bool{}))
}

// CellStyle returns the style string of a cell
func (m *Model) CellStyle(sheetID string, col, row int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.sheets.cell(sheetID, col, row)
	if c == nil {
		return ""
	}
	s, _ := m.styles.Get(c.Style)
	return s
}

// RangeValues returns the computed values of a range, row-major
func (m *Model) RangeValues(sheetID, xc string) (functions.Matrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, err := m.readZone(sheetID, xc)
	if err != nil {
		return nil, err
	}
	result := make(functions.Matrix, 0, z.Bottom-z.Top+1)
	for row := z.Top; row <= z.Bottom; row++ {
		values := make([]functions.Value, 0, z.Right-z.Left+1)
		for col := z.Left; col <= z.Right; col++ {
			values = append(values, m.evaluation.compute(CellAddress{sheetID, col, row}))
		}
		result = append(result, values)
	}
	return result, nil
}

// RangeFormattedValues returns the displayed text of a range, row-major
func (m *Model) RangeFormattedValues(sheetID, xc string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	z, err := m.readZone(sheetID, xc)
	if err != nil {
		return nil, err
	}
	result := make([][]string, 0, z.Bottom-z.Top+1)
	for row := z.Top; row <= z.Bottom; row++ {
		texts := make([]string, 0, z.Right-z.Left+1)
		for col := z.Left; col <= z.Right; col++ {
			addr := CellAddress{sheetID, col, row}
			texts = append(texts, formatValue(m.evaluation.compute(addr), m.evaluation.format(addr, map[CellAddress]bool{})))
		}
		result = append(result, texts)
	}
	return result, nil
}

func (m *Model) readZone(sheetID, xc string) (zone.Zone, error) {
	if err := m.checkSheet(sheetID); err != nil {
		return zone.Zone{}, err
	}
	z, err := zone.ToZone(xc)
	if err != nil {
		return zone.Zone{}, appErrorf(InvalidArgument, "invalid range %q", xc)
	}
	cols, rows := m.sheets.size(sheetID)
	if z.Right >= cols || z.Bottom >= rows {
		return zone.Zone{}, appErrorf(InvalidArgument, "range %q is out of sheet", xc)
	}
	return z, nil
}

// EvaluateFormula computes a formula as if it was typed in the top-left
// cell of a sheet, without storing it. async functions are not launched:
// they yield Loading unless a cell already settled the same call.
func (m *Model) EvaluateFormula(sheetID, text string) (functions.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkSheet(sheetID); err != nil {
		return nil, err
	}
	c := m.sheets.buildCell(sheetID, "evaluate", text, 0, 0)
	switch c.Kind {
	case CellInvalidFormula:
		return functions.NewError(c.Error.Code, c.Error.Message), nil
	case CellFormula:
	default:
		return c.Value, nil
	}
	m.evaluation.done = make(map[CellAddress]bool)
	rt := &scratchRuntime{cellRuntime{plugin: m.evaluation, addr: CellAddress{SheetID: sheetID}, cell: c}}
	v, err := c.Formula.Unit.Execute(rt)
	switch {
	case errors.Is(err, functions.ErrNotReady):
		return Loading, nil
	case err != nil:
		return functions.AsEvaluationError(err), nil
	}
	switch v.(type) {
	case functions.Matrix:
		return functions.NewError(functions.ErrorCodeValue, "The formula result is a range, it needs to be a single value"), nil
	case nil:
		return 0.0, nil
	}
	return v, nil
}

type scratchRuntime struct {
	cellRuntime
}

func (rt *scratchRuntime) CallAsync(int, *functions.Description, []any) (functions.Value, error) {
	return nil, functions.ErrNotReady
}

// IsIdle reports whether no async evaluation is in flight
func (m *Model) IsIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluation.isIdle()
}

// Merges returns the merged zones of a sheet, top to bottom
func (m *Model) Merges(sheetID string) []zone.Zone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.merges.merges(sheetID)
}

// Formulas returns how many compiled units are cached
func (m *Model) Formulas() int {
	return m.compiler.Len()
}
