package model

import (
	"fmt"
	"testing"
)

func set(m *Model, col, row int, content string) {
	m.Dispatch(UpdateCell{SheetID: DefaultSheetID, Col: col, Row: row, Content: &content})
}

func BenchmarkLargeCellPopulation(b *testing.B) {
	for i := 0; i < b.N; i++ {
		m := New(WithSchedulerInterval(0))
		for row := 0; row < DefaultRows; row++ {
			for col := 0; col < DefaultCols; col++ {
				set(m, col, row, fmt.Sprint((row+1)*(col+1)))
			}
		}
		m.Close()
	}
}

func BenchmarkFormulaDependencyChain(b *testing.B) {
	m := New(WithSchedulerInterval(0))
	defer m.Close()
	set(m, 0, 0, "1")
	for row := 1; row < DefaultRows; row++ {
		set(m, 0, row, fmt.Sprintf("=A%d+1", row))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set(m, 0, 0, fmt.Sprint(i))
	}
}

func BenchmarkWideDependencyFanOut(b *testing.B) {
	m := New(WithSchedulerInterval(0))
	defer m.Close()
	set(m, 0, 0, "100")
	for row := 1; row < DefaultRows; row++ {
		for col := 1; col < 6; col++ {
			set(m, col, row, "=$A$1*2")
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set(m, 0, 0, fmt.Sprint(i))
	}
}

func BenchmarkLargeRangeSUM(b *testing.B) {
	data := NewWorkbookData()
	data.Sheets[0].Rows = 1000
	for row := 1; row <= 1000; row++ {
		data.Sheets[0].Cells[fmt.Sprintf("A%d", row)] = CellData{Content: fmt.Sprint(row)}
	}
	data.Sheets[0].Cells["B1"] = CellData{Content: "=SUM(A1:A1000)"}
	m, err := Load(data, WithSchedulerInterval(0))
	if err != nil {
		b.Fatal(err)
	}
	defer m.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set(m, 0, 0, fmt.Sprint(i))
	}
}

func BenchmarkUndoRedo(b *testing.B) {
	m := New(WithSchedulerInterval(0))
	defer m.Close()
	for row := 0; row < 50; row++ {
		set(m, 0, row, fmt.Sprintf("=ROW()*%d", row))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Dispatch(Undo{})
		m.Dispatch(Redo{})
	}
}

func BenchmarkTokenizeAndCompile(b *testing.B) {
	m := New(WithSchedulerInterval(0))
	defer m.Close()
	for i := 0; i < b.N; i++ {
		if _, err := m.EvaluateFormula(DefaultSheetID, "=IF(SUM(A1:C3)>10, AVERAGE(A1:A5)*2, MAX(1, 2, 3))"); err != nil {
			b.Fatal(err)
		}
	}
}
