package model

import (
	"math"
	"testing"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// ModelTestCase drives a model through commands and checks cells of the
// default sheet, chaining like a script
type ModelTestCase struct {
	t     *testing.T
	name  string
	model *Model
}

func NewModelTestCase(t *testing.T, name string, opts ...Option) *ModelTestCase {
	t.Helper()
	opts = append([]Option{WithSchedulerInterval(0)}, opts...)
	m := New(opts...)
	t.Cleanup(m.Close)
	return &ModelTestCase{t: t, name: name, model: m}
}

func (tc *ModelTestCase) position(xc string) (int, int) {
	tc.t.Helper()
	col, row, err := zone.ToCartesian(xc)
	if err != nil {
		tc.t.Fatalf("%s: invalid address %s: %v", tc.name, xc, err)
	}
	return col, row
}

func (tc *ModelTestCase) Set(xc, content string) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	return tc.Dispatch(UpdateCell{SheetID: DefaultSheetID, Col: col, Row: row, Content: &content})
}

func (tc *ModelTestCase) SetFormat(xc, format string) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	return tc.Dispatch(UpdateCell{SheetID: DefaultSheetID, Col: col, Row: row, Format: &format})
}

func (tc *ModelTestCase) Clear(xc string) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	return tc.Dispatch(ClearCell{SheetID: DefaultSheetID, Col: col, Row: row})
}

func (tc *ModelTestCase) Dispatch(cmd Command) *ModelTestCase {
	tc.t.Helper()
	if result := tc.model.Dispatch(cmd); !result.IsSuccess() {
		tc.t.Errorf("%s: %s cancelled: %s", tc.name, cmd.Type(), result.Reason)
	}
	return tc
}

func (tc *ModelTestCase) ExpectCancelled(cmd Command, reason CancelledReason) *ModelTestCase {
	tc.t.Helper()
	result := tc.model.Dispatch(cmd)
	if result.Status != StatusCancelled || result.Reason != reason {
		tc.t.Errorf("%s: %s = %+v, want cancelled with %s", tc.name, cmd.Type(), result, reason)
	}
	return tc
}

func (tc *ModelTestCase) AssertCellEq(xc string, expected functions.Value) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	actual := tc.model.CellValue(DefaultSheetID, col, row)
	switch exp := expected.(type) {
	case float64:
		if act, ok := actual.(float64); !ok || math.Abs(act-exp) > 1e-10 {
			tc.t.Errorf("%s: Cell %s = %v (%T), want %v", tc.name, xc, actual, actual, expected)
		}
	case int:
		if act, ok := actual.(float64); !ok || math.Abs(act-float64(exp)) > 1e-10 {
			tc.t.Errorf("%s: Cell %s = %v (%T), want %v", tc.name, xc, actual, actual, expected)
		}
	default:
		if actual != expected {
			tc.t.Errorf("%s: Cell %s = %v, want %v", tc.name, xc, actual, expected)
		}
	}
	return tc
}

func (tc *ModelTestCase) AssertCellErr(xc string, code functions.ErrorCode) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	actual := tc.model.CellValue(DefaultSheetID, col, row)
	evalErr, ok := actual.(*functions.EvaluationError)
	if !ok {
		tc.t.Errorf("%s: Cell %s = %v, want error %s", tc.name, xc, actual, functions.ErrorMapper[code])
		return tc
	}
	if evalErr.Code != code {
		tc.t.Errorf("%s: Cell %s has error %s (%s), want %s", tc.name, xc, evalErr.Display(), evalErr.Message, functions.ErrorMapper[code])
	}
	return tc
}

func (tc *ModelTestCase) AssertCellText(xc, expected string) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	if actual := tc.model.CellText(DefaultSheetID, col, row); actual != expected {
		tc.t.Errorf("%s: Cell %s displays %q, want %q", tc.name, xc, actual, expected)
	}
	return tc
}

func (tc *ModelTestCase) AssertContent(xc, expected string) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	if actual := tc.model.CellContent(DefaultSheetID, col, row); actual != expected {
		tc.t.Errorf("%s: Cell %s content %q, want %q", tc.name, xc, actual, expected)
	}
	return tc
}

func (tc *ModelTestCase) AssertCellEmpty(xc string) *ModelTestCase {
	tc.t.Helper()
	col, row := tc.position(xc)
	if actual := tc.model.CellContent(DefaultSheetID, col, row); actual != "" {
		tc.t.Errorf("%s: Cell %s content %q, want empty", tc.name, xc, actual)
	}
	return tc
}

func (tc *ModelTestCase) Model() *Model {
	return tc.model
}

func (tc *ModelTestCase) End() {
}

func ptr(s string) *string {
	return &s
}
