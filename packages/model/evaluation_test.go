package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
)

func TestEvaluation(t *testing.T) {
	t.Run("Literals", func(t *testing.T) {
		NewModelTestCase(t, "Number").
			Set("A1", "42").
			AssertCellEq("A1", 42).
			End()

		NewModelTestCase(t, "Text").
			Set("A1", "hello").
			AssertCellEq("A1", "hello").
			End()

		NewModelTestCase(t, "Boolean").
			Set("A1", "true").
			AssertCellEq("A1", true).
			End()

		NewModelTestCase(t, "Empty cell").
			AssertCellEq("A1", nil).
			End()
	})

	t.Run("Formulas", func(t *testing.T) {
		NewModelTestCase(t, "Basic arithmetic").
			Set("A1", "=1+2").
			AssertCellEq("A1", 3).
			End()

		NewModelTestCase(t, "Concatenation of references").
			Set("A1", "a").
			Set("A2", "b").
			Set("A3", "=A1&A2").
			AssertCellEq("A3", "ab").
			End()

		NewModelTestCase(t, "Untaken lazy branch").
			Set("A1", "=IF(FALSE(), 1/0, 99)").
			AssertCellEq("A1", 99).
			End()

		NewModelTestCase(t, "Error caught lazily").
			Set("A1", "=IFERROR(1/0, 5)").
			AssertCellEq("A1", 5).
			End()

		NewModelTestCase(t, "Reference to an empty cell").
			Set("A1", "=B1").
			AssertCellEq("A1", 0).
			End()

		NewModelTestCase(t, "Range result").
			Set("A1", "=B1:B2").
			AssertCellErr("A1", functions.ErrorCodeValue).
			End()

		NewModelTestCase(t, "Cross sheet reference").
			Dispatch(CreateSheet{SheetID: "s2", Name: "Data", Position: 1}).
			Dispatch(UpdateCell{SheetID: "s2", Col: 0, Row: 0, Content: ptr("7")}).
			Set("A1", "=Data!A1*2").
			AssertCellEq("A1", 14).
			End()

		NewModelTestCase(t, "Reference to a sheet created later").
			Set("A1", "=Other!A1+1").
			AssertCellErr("A1", functions.ErrorCodeRef).
			Dispatch(CreateSheet{SheetID: "s2", Name: "Other", Position: 1}).
			Dispatch(UpdateCell{SheetID: "s2", Col: 0, Row: 0, Content: ptr("1")}).
			AssertCellEq("A1", 2).
			AssertContent("A1", "=Other!A1+1").
			Dispatch(Undo{}).
			Dispatch(Undo{}).
			AssertCellErr("A1", functions.ErrorCodeRef).
			End()

		NewModelTestCase(t, "Reference to a sheet renamed later").
			Dispatch(CreateSheet{SheetID: "s2", Name: "Draft", Position: 1}).
			Dispatch(UpdateCell{SheetID: "s2", Col: 0, Row: 0, Content: ptr("4")}).
			Set("A1", "=Final!A1*2").
			AssertCellErr("A1", functions.ErrorCodeRef).
			Dispatch(RenameSheet{SheetID: "s2", Name: "Final"}).
			AssertCellEq("A1", 8).
			Dispatch(RenameSheet{SheetID: "s2", Name: "Done"}).
			AssertCellEq("A1", 8).
			AssertContent("A1", "=Done!A1*2").
			End()
	})

	t.Run("Recalculation", func(t *testing.T) {
		NewModelTestCase(t, "Dependent updates").
			Set("A1", "1").
			Set("A2", "=A1+1").
			Set("A3", "=A2+1").
			AssertCellEq("A3", 3).
			Set("A1", "10").
			AssertCellEq("A2", 11).
			AssertCellEq("A3", 12).
			End()

		NewModelTestCase(t, "Sum with a deleted cell").
			Set("A1", "1").
			Set("A2", "2").
			Set("A3", "3").
			Set("A4", "=SUM(A1:A3)").
			AssertCellEq("A4", 6).
			Clear("A2").
			AssertCellEq("A4", 4).
			End()

		NewModelTestCase(t, "Range observer chain").
			Set("A1", "1").
			Set("B1", "=SUM(A1:A3)").
			Set("C1", "=B1*10").
			Set("A3", "4").
			AssertCellEq("C1", 50).
			End()
	})

	t.Run("Errors", func(t *testing.T) {
		NewModelTestCase(t, "Division by zero").
			Set("A1", "=1/0").
			AssertCellErr("A1", functions.ErrorCodeDiv0).
			AssertCellText("A1", "#DIV/0!").
			End()

		NewModelTestCase(t, "Error propagates to readers").
			Set("A1", "=1/0").
			Set("A2", "=A1+1").
			AssertCellErr("A2", functions.ErrorCodeDiv0).
			End()

		NewModelTestCase(t, "Unknown function").
			Set("A1", "=FOO(1)").
			AssertCellErr("A1", functions.ErrorCodeName).
			End()

		NewModelTestCase(t, "Invalid formula").
			Set("A1", "=1+").
			AssertCellErr("A1", functions.ErrorCodeOther).
			AssertContent("A1", "=1+").
			End()

		NewModelTestCase(t, "Wrong arity").
			Set("A1", "=ABS()").
			AssertCellErr("A1", functions.ErrorCodeOther).
			End()
	})

	t.Run("Cycles", func(t *testing.T) {
		NewModelTestCase(t, "Self reference").
			Set("A1", "=A1+1").
			AssertCellErr("A1", functions.ErrorCodeCircular).
			End()

		NewModelTestCase(t, "Indirect cycle").
			Set("A1", "=B1").
			Set("B1", "=C1").
			Set("C1", "=A1").
			AssertCellErr("A1", functions.ErrorCodeCircular).
			AssertCellErr("B1", functions.ErrorCodeCircular).
			AssertCellErr("C1", functions.ErrorCodeCircular).
			AssertCellText("A1", "#CYCLE").
			End()

		NewModelTestCase(t, "Cycle through a range").
			Set("A1", "=SUM(A1:A3)").
			AssertCellErr("A1", functions.ErrorCodeCircular).
			End()

		NewModelTestCase(t, "Breaking a cycle").
			Set("A1", "=B1").
			Set("B1", "=A1").
			Set("B1", "5").
			AssertCellEq("A1", 5).
			End()
	})

	t.Run("Formats", func(t *testing.T) {
		NewModelTestCase(t, "Own format").
			Set("A1", "0.5").
			SetFormat("A1", "0%").
			AssertCellText("A1", "50%").
			End()

		NewModelTestCase(t, "Inherited format").
			Set("A1", "0.25").
			SetFormat("A1", "0.00%").
			Set("A2", "=A1*2").
			AssertCellText("A2", "50.00%").
			End()

		NewModelTestCase(t, "Percent literal").
			Set("A1", "=10%").
			AssertCellText("A1", "10%").
			End()

		NewModelTestCase(t, "Plain number").
			Set("A1", "=0.1+0.2").
			AssertCellText("A1", "0.3").
			End()

		NewModelTestCase(t, "Thousands").
			Set("A1", "1234567.891").
			SetFormat("A1", "#,##0.00").
			AssertCellText("A1", "1,234,567.89").
			End()
	})
}

func TestMetaFunctions(t *testing.T) {
	NewModelTestCase(t, "Row of the current cell").
		Set("C5", "=ROW()").
		AssertCellEq("C5", 5).
		Set("C6", "=COLUMN()").
		AssertCellEq("C6", 3).
		Set("C7", "=ROW(B10)").
		AssertCellEq("C7", 10).
		End()
}

func TestAsyncEvaluation(t *testing.T) {
	tc := NewModelTestCase(t, "Async").
		Set("A1", "=WAIT(5)").
		Set("A2", "=A1+1")
	m := tc.Model()

	assert.Equal(t, Loading, m.CellValue(DefaultSheetID, 0, 0))
	assert.Equal(t, Loading, m.CellValue(DefaultSheetID, 0, 1))
	assert.Equal(t, "Loading...", m.CellText(DefaultSheetID, 0, 0))
	assert.False(t, m.IsIdle())

	require.Eventually(t, func() bool {
		m.Tick()
		return m.IsIdle()
	}, 2*time.Second, 5*time.Millisecond)

	tc.AssertCellEq("A1", 5).
		AssertCellEq("A2", 6).
		End()

	// a settled call is memoized: unrelated edits do not relaunch it
	tc.Set("B1", "x")
	assert.True(t, m.IsIdle())
	tc.AssertCellEq("A1", 5).End()

	// new content means a new call
	tc.Set("A1", "=WAIT(5, 8)")
	assert.False(t, m.IsIdle())
	require.Eventually(t, func() bool {
		m.Tick()
		return m.IsIdle()
	}, 2*time.Second, 5*time.Millisecond)
	tc.AssertCellEq("A1", 8).
		AssertCellEq("A2", 9).
		End()
}

func TestAsyncResultsOfRemovedCellsAreDropped(t *testing.T) {
	tc := NewModelTestCase(t, "AsyncRemoved").
		Set("A1", "=WAIT(5)").
		Set("A2", "=WAIT(6)")
	m := tc.Model()
	require.Eventually(t, func() bool {
		m.Tick()
		return m.IsIdle()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, m.evaluation.computed, 2)

	tc.Dispatch(RemoveRows{SheetID: DefaultSheetID, Rows: []int{0}})
	assert.Len(t, m.evaluation.computed, 1)
	assert.True(t, m.IsIdle())
	tc.AssertCellEq("A1", 6).End()

	// a call still in flight is forgotten but keeps counting until it settles
	tc.Set("A3", "=WAIT(7)")
	assert.Len(t, m.evaluation.pending, 1)
	tc.Dispatch(RemoveRows{SheetID: DefaultSheetID, Rows: []int{2}})
	assert.Empty(t, m.evaluation.pending)
	require.Eventually(t, func() bool {
		m.Tick()
		return m.IsIdle()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, m.evaluation.computed, 1)
}

func TestAsyncScheduler(t *testing.T) {
	m := New(WithSchedulerInterval(time.Millisecond))
	t.Cleanup(m.Close)

	m.Dispatch(UpdateCell{SheetID: DefaultSheetID, Col: 0, Row: 0, Content: ptr("=WAIT(5, 3)")})
	assert.False(t, m.IsIdle())

	require.Eventually(t, m.IsIdle, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 3.0, m.CellValue(DefaultSheetID, 0, 0))
	require.Eventually(t, func() bool { return !m.scheduler.Running() }, time.Second, 5*time.Millisecond)
}

func TestEvaluateFormula(t *testing.T) {
	tc := NewModelTestCase(t, "Evaluate").
		Set("A1", "2").
		Set("A2", "3")
	m := tc.Model()

	v, err := m.EvaluateFormula(DefaultSheetID, "=SUM(A1:A2)*2")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	v, err = m.EvaluateFormula(DefaultSheetID, "=1/0")
	require.NoError(t, err)
	require.IsType(t, &functions.EvaluationError{}, v)
	assert.Equal(t, functions.ErrorCodeDiv0, v.(*functions.EvaluationError).Code)

	v, err = m.EvaluateFormula(DefaultSheetID, "=WAIT(1)")
	require.NoError(t, err)
	assert.Equal(t, Loading, v)
	assert.True(t, m.IsIdle(), "evaluating a formula does not launch async calls")

	_, err = m.EvaluateFormula("missing", "=1")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, NotFound, appErr.Code)

	tc.AssertCellEmpty("A3").End()
}

func TestRangeValues(t *testing.T) {
	tc := NewModelTestCase(t, "Ranges").
		Set("A1", "1").
		Set("B1", "x").
		Set("A2", "=A1*3").
		SetFormat("A2", "0.0")
	m := tc.Model()

	values, err := m.RangeValues(DefaultSheetID, "A1:B2")
	require.NoError(t, err)
	assert.Equal(t, functions.Matrix{{1.0, "x"}, {3.0, nil}}, values)

	texts, err := m.RangeFormattedValues(DefaultSheetID, "A1:B2")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "x"}, {"3.0", ""}}, texts)

	_, err = m.RangeValues(DefaultSheetID, "A1:ZZ1")
	assert.Error(t, err)
}

func TestCompiledUnitsAreShared(t *testing.T) {
	m := NewModelTestCase(t, "Cache").
		Set("A1", "=B1+1").
		Set("A2", "=B2+1").
		Set("A3", "=B3*2").
		Model()
	assert.Equal(t, 2, m.Formulas())
}
