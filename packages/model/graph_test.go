package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

func addr(xc string) CellAddress {
	col, row, _ := zone.ToCartesian(xc)
	return CellAddress{SheetID: "s", Col: col, Row: row}
}

func rng(xc string) RangeAddress {
	z, _ := zone.ToZone(xc)
	return RangeAddress{SheetID: "s", Zone: z}
}

func TestDependencyGraph(t *testing.T) {
	t.Run("Affected cells are transitive", func(t *testing.T) {
		dg := NewDependencyGraph()
		dg.SetFormula(addr("B1"), []CellAddress{addr("A1")}, nil, false)
		dg.SetFormula(addr("C1"), []CellAddress{addr("B1")}, nil, false)
		dg.SetFormula(addr("D1"), nil, []RangeAddress{rng("C1:C5")}, false)
		dg.SetFormula(addr("E1"), []CellAddress{addr("D1")}, nil, false)

		assert.Equal(t, []CellAddress{addr("B1"), addr("C1"), addr("D1"), addr("E1")}, dg.GetAffectedCells(addr("A1")))
		assert.Equal(t, []CellAddress{addr("D1"), addr("E1")}, dg.GetAffectedCells(addr("C3")))
		assert.Empty(t, dg.GetAffectedCells(addr("Z9")))
	})

	t.Run("Cycles terminate", func(t *testing.T) {
		dg := NewDependencyGraph()
		dg.SetFormula(addr("A1"), []CellAddress{addr("B1")}, nil, false)
		dg.SetFormula(addr("B1"), []CellAddress{addr("A1")}, nil, false)
		assert.Equal(t, []CellAddress{addr("B1")}, dg.GetAffectedCells(addr("A1")))
	})

	t.Run("Replacing a formula drops old edges", func(t *testing.T) {
		dg := NewDependencyGraph()
		dg.SetFormula(addr("B1"), []CellAddress{addr("A1")}, []RangeAddress{rng("C1:C2")}, false)
		assert.Equal(t, 2, dg.NodeCount())
		assert.Equal(t, 1, dg.RangeObserverCount())

		dg.SetFormula(addr("B1"), []CellAddress{addr("A2")}, nil, false)
		assert.Equal(t, []CellAddress{addr("A2")}, dg.GetDirectPrecedents(addr("B1")))
		assert.Empty(t, dg.GetAffectedCells(addr("A1")))
		assert.Equal(t, 0, dg.RangeObserverCount())
		_, exists := dg.Node(addr("A1"))
		assert.False(t, exists, "a node nothing reads is cleaned up")
	})

	t.Run("Removing a formula keeps nodes still read", func(t *testing.T) {
		dg := NewDependencyGraph()
		dg.SetFormula(addr("B1"), []CellAddress{addr("A1")}, nil, false)
		dg.SetFormula(addr("C1"), []CellAddress{addr("B1")}, nil, false)

		dg.RemoveFormula(addr("B1"))
		node, exists := dg.Node(addr("B1"))
		assert.True(t, exists)
		assert.False(t, node.HasFormula)
		assert.Equal(t, []CellAddress{addr("C1")}, dg.GetAffectedCells(addr("B1")))
		assert.Empty(t, dg.GetAffectedCells(addr("A1")))
	})

	t.Run("Dirty and volatile", func(t *testing.T) {
		dg := NewDependencyGraph()
		dg.SetFormula(addr("A1"), nil, nil, true)
		dg.SetFormula(addr("A2"), nil, nil, false)
		assert.True(t, dg.IsVolatile(addr("A1")))
		assert.False(t, dg.IsVolatile(addr("A2")))

		dg.MarkDirty(addr("B1"))
		dg.MarkAllVolatileDirty()
		assert.True(t, dg.IsDirty(addr("A1")))
		assert.Equal(t, []CellAddress{addr("A1"), addr("B1")}, dg.TakeDirty())
		assert.Empty(t, dg.TakeDirty())

		dg.RemoveFormula(addr("A1"))
		assert.False(t, dg.IsVolatile(addr("A1")))
	})
}
