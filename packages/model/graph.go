package model

import (
	"sort"

	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// CellAddress locates a cell of a sheet
type CellAddress struct {
	SheetID string
	Col     int
	Row     int
}

func (a CellAddress) String() string {
	return a.SheetID + "!" + zone.ToXC(a.Col, a.Row)
}

// RangeAddress locates a multi-cell range of a sheet
type RangeAddress struct {
	SheetID string
	Zone    zone.Zone
}

// DependencyNode represents a formula cell, or a cell read by one, in the
// dependency graph
type DependencyNode struct {
	Address CellAddress

	// cell-to-cell dependencies
	CellPrecedents map[CellAddress]*DependencyNode // cells this cell depends on
	CellDependents map[CellAddress]*DependencyNode // cells that depend on this cell

	// ranges this cell depends on
	RangePrecedents map[RangeAddress]struct{}

	// set for formula cells, a node without it is only kept alive by edges
	HasFormula bool
}

// DependencyGraph tracks which formula cells have to be recomputed when a
// cell changes
type DependencyGraph struct {
	nodes          map[CellAddress]*DependencyNode           // all nodes in the graph
	rangeObservers map[RangeAddress]map[CellAddress]struct{} // range -> cells that depend on it
	dirtySet       map[CellAddress]struct{}                  // cells needing recalculation
	volatileCells  map[CellAddress]struct{}                  // cells with volatile functions (always recalculate)
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	dg := &DependencyGraph{}
	dg.Clear()
	return dg
}

// Clear removes all nodes and dependencies from the graph
func (dg *DependencyGraph) Clear() {
	dg.nodes = make(map[CellAddress]*DependencyNode)
	dg.rangeObservers = make(map[RangeAddress]map[CellAddress]struct{})
	dg.dirtySet = make(map[CellAddress]struct{})
	dg.volatileCells = make(map[CellAddress]struct{})
}

func (dg *DependencyGraph) getOrCreateNode(addr CellAddress) *DependencyNode {
	if node, exists := dg.nodes[addr]; exists {
		return node
	}
	node := &DependencyNode{
		Address:         addr,
		CellPrecedents:  make(map[CellAddress]*DependencyNode),
		CellDependents:  make(map[CellAddress]*DependencyNode),
		RangePrecedents: make(map[RangeAddress]struct{}),
	}
	dg.nodes[addr] = node
	return node
}

// Node retrieves a node if it exists
func (dg *DependencyGraph) Node(addr CellAddress) (*DependencyNode, bool) {
	node, exists := dg.nodes[addr]
	return node, exists
}

// SetFormula registers addr as a formula cell reading the given cells and
// ranges, replacing what it read before
func (dg *DependencyGraph) SetFormula(addr CellAddress, cells []CellAddress, ranges []RangeAddress, volatile bool) {
	dg.ClearDependencies(addr)
	node := dg.getOrCreateNode(addr)
	node.HasFormula = true
	for _, to := range cells {
		toNode := dg.getOrCreateNode(to)
		node.CellPrecedents[to] = toNode
		toNode.CellDependents[addr] = node
	}
	for _, r := range ranges {
		node.RangePrecedents[r] = struct{}{}
		if dg.rangeObservers[r] == nil {
			dg.rangeObservers[r] = make(map[CellAddress]struct{})
		}
		dg.rangeObservers[r][addr] = struct{}{}
	}
	if volatile {
		dg.volatileCells[addr] = struct{}{}
	}
}

// RemoveFormula drops the formula of addr. the node survives while other
// formulas still read it.
func (dg *DependencyGraph) RemoveFormula(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	dg.ClearDependencies(addr)
	node.HasFormula = false
	delete(dg.volatileCells, addr)
	dg.cleanupNodeIfEmpty(addr)
}

// ClearDependencies clears all dependencies for a cell
func (dg *DependencyGraph) ClearDependencies(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	for precedentAddr, precedentNode := range node.CellPrecedents {
		delete(precedentNode.CellDependents, addr)
		delete(node.CellPrecedents, precedentAddr)
		dg.cleanupNodeIfEmpty(precedentAddr)
	}
	for rangeAddr := range node.RangePrecedents {
		if observers, exists := dg.rangeObservers[rangeAddr]; exists {
			delete(observers, addr)
			if len(observers) == 0 {
				delete(dg.rangeObservers, rangeAddr)
			}
		}
		delete(node.RangePrecedents, rangeAddr)
	}
	delete(dg.volatileCells, addr)
}

// cleanupNodeIfEmpty removes a node if it has no dependencies or formula
func (dg *DependencyGraph) cleanupNodeIfEmpty(addr CellAddress) {
	node, exists := dg.nodes[addr]
	if !exists {
		return
	}
	if node.HasFormula ||
		len(node.CellPrecedents) > 0 ||
		len(node.CellDependents) > 0 ||
		len(node.RangePrecedents) > 0 {
		return
	}
	delete(dg.nodes, addr)
	delete(dg.dirtySet, addr)
}

// MarkDirty marks a cell as needing recalculation
func (dg *DependencyGraph) MarkDirty(addr CellAddress) {
	dg.dirtySet[addr] = struct{}{}
}

// ClearDirty clears the dirty flag for a cell
func (dg *DependencyGraph) ClearDirty(addr CellAddress) {
	delete(dg.dirtySet, addr)
}

// IsDirty reports whether a cell waits for recalculation
func (dg *DependencyGraph) IsDirty(addr CellAddress) bool {
	_, dirty := dg.dirtySet[addr]
	return dirty
}

// TakeDirty returns the dirty cells in evaluation order (sheet, row,
// column) and clears the dirty set
func (dg *DependencyGraph) TakeDirty() []CellAddress {
	result := make([]CellAddress, 0, len(dg.dirtySet))
	for addr := range dg.dirtySet {
		result = append(result, addr)
	}
	sortAddresses(result)
	dg.dirtySet = make(map[CellAddress]struct{})
	return result
}

// IsInRange checks if a cell is within a range
func (dg *DependencyGraph) IsInRange(cell CellAddress, r RangeAddress) bool {
	return cell.SheetID == r.SheetID && r.Zone.IsInside(cell.Col, cell.Row)
}

// GetAffectedCells returns all formula cells that need recalculation when
// a cell changes: direct and transitive dependents, through cell edges and
// through observed ranges alike
func (dg *DependencyGraph) GetAffectedCells(addr CellAddress) []CellAddress {
	affected := make(map[CellAddress]struct{})
	queue := []CellAddress{addr}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visit := func(next CellAddress) {
			if _, seen := affected[next]; seen {
				return
			}
			affected[next] = struct{}{}
			queue = append(queue, next)
		}
		if node, exists := dg.nodes[current]; exists {
			for dependentAddr := range node.CellDependents {
				visit(dependentAddr)
			}
		}
		for rangeAddr, observers := range dg.rangeObservers {
			if !dg.IsInRange(current, rangeAddr) {
				continue
			}
			for observerAddr := range observers {
				visit(observerAddr)
			}
		}
	}
	delete(affected, addr)

	result := make([]CellAddress, 0, len(affected))
	for affectedAddr := range affected {
		result = append(result, affectedAddr)
	}
	sortAddresses(result)
	return result
}

// GetDirectPrecedents returns cells this cell directly depends on
func (dg *DependencyGraph) GetDirectPrecedents(addr CellAddress) []CellAddress {
	node, exists := dg.nodes[addr]
	if !exists {
		return nil
	}
	result := make([]CellAddress, 0, len(node.CellPrecedents))
	for precedentAddr := range node.CellPrecedents {
		result = append(result, precedentAddr)
	}
	sortAddresses(result)
	return result
}

// IsVolatile checks if a cell contains volatile functions
func (dg *DependencyGraph) IsVolatile(addr CellAddress) bool {
	_, isVolatile := dg.volatileCells[addr]
	return isVolatile
}

// MarkAllVolatileDirty marks all volatile cells as dirty for recalculation
func (dg *DependencyGraph) MarkAllVolatileDirty() {
	for addr := range dg.volatileCells {
		dg.MarkDirty(addr)
	}
}

// NodeCount returns the number of nodes in the graph
func (dg *DependencyGraph) NodeCount() int {
	return len(dg.nodes)
}

// RangeObserverCount returns the number of observed ranges
func (dg *DependencyGraph) RangeObserverCount() int {
	return len(dg.rangeObservers)
}

func sortAddresses(addrs []CellAddress) {
	sort.Slice(addrs, func(i, j int) bool {
		a, b := addrs[i], addrs[j]
		if a.SheetID != b.SheetID {
			return a.SheetID < b.SheetID
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
}
