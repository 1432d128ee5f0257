package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/Raniani-lab/enterpriise-sub000/packages/functions"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// Loading is the value of a cell waiting on an async result
var Loading = loading{}

type loading struct{}

func (loading) String() string { return "Loading..." }

// asyncKey identifies one async call of one cell with one set of arguments
type asyncKey struct {
	CellID string
	CallID int
	Args   string
}

type asyncResult struct {
	value functions.Value
	err   error
}

type settlement struct {
	key    asyncKey
	result asyncResult
}

// EvaluationPlugin computes formula cells. results live outside of the state
// tree: they are derived and never undone, only recomputed.
type EvaluationPlugin struct {
	BasePlugin
	graph  *DependencyGraph
	values map[CellAddress]functions.Value

	// done is true once a cell was computed in the current pass, false
	// while it is being computed
	done map[CellAddress]bool

	invalidateAll bool
	changed       map[CellAddress]struct{}

	pending  map[asyncKey]struct{}
	computed map[asyncKey]asyncResult
	waiting  map[CellAddress]struct{}

	outstanding     int
	lastOutstanding int
	settlements     chan settlement
}

func newEvaluationPlugin(m *Model) *EvaluationPlugin {
	return &EvaluationPlugin{
		BasePlugin:  BasePlugin{model: m},
		graph:       NewDependencyGraph(),
		values:      make(map[CellAddress]functions.Value),
		done:        make(map[CellAddress]bool),
		changed:     make(map[CellAddress]struct{}),
		pending:     make(map[asyncKey]struct{}),
		computed:    make(map[asyncKey]asyncResult),
		waiting:     make(map[CellAddress]struct{}),
		settlements: make(chan settlement, 64),
	}
}

func (p *EvaluationPlugin) Name() string         { return "evaluation" }
func (p *EvaluationPlugin) Layers() []Layer      { return nil }
func (p *EvaluationPlugin) Modes() []Mode        { return []Mode{ModeNormal, ModeHeadless} }
func (p *EvaluationPlugin) sheets() *SheetPlugin { return p.model.sheets }

func (p *EvaluationPlugin) BeforeHandle(cmd Command) {
	var addr CellAddress
	switch c := cmd.(type) {
	case UpdateCell:
		if c.Content == nil {
			return
		}
		addr = CellAddress{c.SheetID, c.Col, c.Row}
	case ClearCell:
		addr = CellAddress{c.SheetID, c.Col, c.Row}
	default:
		return
	}
	if old := p.sheets().cell(addr.SheetID, addr.Col, addr.Row); old != nil && old.IsFormula() {
		p.forgetAsync(old.ID)
	}
}

func (p *EvaluationPlugin) Handle(cmd Command) {
	switch c := cmd.(type) {
	case UpdateCell:
		p.changed[CellAddress{c.SheetID, c.Col, c.Row}] = struct{}{}
	case ClearCell:
		p.changed[CellAddress{c.SheetID, c.Col, c.Row}] = struct{}{}
	case Start, CreateSheet, DeleteSheet, RenameSheet,
		AddColumns, AddRows, RemoveColumns, RemoveRows, Undo, Redo:
		p.invalidateAll = true
	}
}

// forgetAsync drops the results of a cell's async calls. calls still in
// flight keep counting as outstanding until they settle.
func (p *EvaluationPlugin) forgetAsync(cellID string) {
	for key := range p.computed {
		if key.CellID == cellID {
			delete(p.computed, key)
		}
	}
	for key := range p.pending {
		if key.CellID == cellID {
			delete(p.pending, key)
		}
	}
}

func (p *EvaluationPlugin) Finalize() {
	start := time.Now()
	if p.invalidateAll {
		p.rebuild()
	} else {
		for addr := range p.changed {
			p.cellChanged(addr)
		}
	}
	p.invalidateAll = false
	p.changed = make(map[CellAddress]struct{})
	p.graph.MarkAllVolatileDirty()
	p.evaluateDirty()
	p.model.metrics.observeEvaluation(time.Since(start), p.outstanding)
}

// rebuild recreates the graph from every formula of the workbook and marks
// them all dirty
func (p *EvaluationPlugin) rebuild() {
	p.graph.Clear()
	p.values = make(map[CellAddress]functions.Value)
	p.waiting = make(map[CellAddress]struct{})
	live := make(map[string]struct{})
	for _, id := range p.sheets().order() {
		p.sheets().eachCell(id, func(col, row int, c *Cell) {
			addr := CellAddress{id, col, row}
			p.register(addr, c)
			if c.Kind == CellFormula {
				live[c.ID] = struct{}{}
				p.graph.MarkDirty(addr)
			}
		})
	}
	p.pruneAsync(live)
}

// pruneAsync drops the async results of cells that are gone from the
// workbook, such as cells of removed rows or deleted sheets
func (p *EvaluationPlugin) pruneAsync(live map[string]struct{}) {
	for key := range p.computed {
		if _, ok := live[key.CellID]; !ok {
			delete(p.computed, key)
		}
	}
	for key := range p.pending {
		if _, ok := live[key.CellID]; !ok {
			delete(p.pending, key)
		}
	}
}

func (p *EvaluationPlugin) cellChanged(addr CellAddress) {
	p.graph.RemoveFormula(addr)
	if c := p.sheets().cell(addr.SheetID, addr.Col, addr.Row); c != nil {
		p.register(addr, c)
	}
	p.graph.MarkDirty(addr)
}

// register adds the edges of a formula cell to the graph
func (p *EvaluationPlugin) register(addr CellAddress, c *Cell) {
	if c.Kind != CellFormula {
		return
	}
	var cells []CellAddress
	var ranges []RangeAddress
	for _, r := range c.Formula.Dependencies {
		if !r.IsValid() {
			continue
		}
		if r.IsSingleCell() {
			cells = append(cells, CellAddress{r.SheetID, r.Zone.Left, r.Zone.Top})
			continue
		}
		ranges = append(ranges, RangeAddress{r.SheetID, r.Zone})
	}
	p.graph.SetFormula(addr, cells, ranges, c.Formula.Unit.Volatile)
}

// evaluateDirty computes the dirty cells and every cell depending on them
func (p *EvaluationPlugin) evaluateDirty() {
	p.done = make(map[CellAddress]bool)
	set := make(map[CellAddress]struct{})
	for _, addr := range p.graph.TakeDirty() {
		set[addr] = struct{}{}
		for _, affected := range p.graph.GetAffectedCells(addr) {
			set[affected] = struct{}{}
		}
	}
	dirty := make([]CellAddress, 0, len(set))
	for addr := range set {
		dirty = append(dirty, addr)
		delete(p.values, addr)
		delete(p.waiting, addr)
	}
	sortAddresses(dirty)
	for _, addr := range dirty {
		p.compute(addr)
	}
}

// compute returns the value of a cell, computing formulas whose value is
// not known yet. errors are returned as *functions.EvaluationError values.
func (p *EvaluationPlugin) compute(addr CellAddress) functions.Value {
	c := p.sheets().cell(addr.SheetID, addr.Col, addr.Row)
	if c == nil {
		return nil
	}
	switch c.Kind {
	case CellInvalidFormula:
		return functions.NewError(c.Error.Code, c.Error.Message)
	case CellFormula:
	default:
		return c.Value
	}
	if done, seen := p.done[addr]; seen && !done {
		return functions.NewError(functions.ErrorCodeCircular, "Circular reference")
	}
	if v, ok := p.values[addr]; ok {
		return v
	}

	p.done[addr] = false
	v := p.execute(addr, c)
	p.done[addr] = true
	p.values[addr] = v
	return v
}

func (p *EvaluationPlugin) execute(addr CellAddress, c *Cell) functions.Value {
	rt := &cellRuntime{plugin: p, addr: addr, cell: c}
	v, err := c.Formula.Unit.Execute(rt)
	if errors.Is(err, functions.ErrNotReady) {
		p.waiting[addr] = struct{}{}
		return Loading
	}
	if err != nil {
		return functions.AsEvaluationError(err)
	}
	switch val := v.(type) {
	case functions.Matrix:
		return functions.NewError(functions.ErrorCodeValue, "The formula result is a range, it needs to be a single value")
	case nil:
		return 0.0
	case loading:
		p.waiting[addr] = struct{}{}
		return val
	}
	return v
}

// value reads a computed cell. errors are copied so that every reader owns
// its instance.
func (p *EvaluationPlugin) value(addr CellAddress) (functions.Value, error) {
	v := p.compute(addr)
	switch val := v.(type) {
	case *functions.EvaluationError:
		return nil, &functions.EvaluationError{Code: val.Code, Message: val.Message}
	case loading:
		return nil, functions.ErrNotReady
	}
	return v, nil
}

// callAsync returns the memoized result of an async call or launches it
func (p *EvaluationPlugin) callAsync(cellID string, callID int, d *functions.Description, args []any) (functions.Value, error) {
	key := asyncKey{CellID: cellID, CallID: callID, Args: fmt.Sprintf("%v", args)}
	if r, ok := p.computed[key]; ok {
		return r.value, r.err
	}
	if _, ok := p.pending[key]; ok {
		return nil, functions.ErrNotReady
	}
	p.pending[key] = struct{}{}
	p.outstanding++
	ctx, compute, out := p.model.ctx, d.ComputeAsync, p.settlements
	go func() {
		v, err := compute(ctx, args...)
		select {
		case out <- settlement{key: key, result: asyncResult{value: v, err: err}}:
		case <-ctx.Done():
		}
	}()
	return nil, functions.ErrNotReady
}

// Tick collects settled async calls. when the outstanding counter moved,
// the waiting cells are evaluated again.
func (p *EvaluationPlugin) Tick() {
	settled := 0
drain:
	for {
		select {
		case s := <-p.settlements:
			p.outstanding--
			settled++
			if _, ok := p.pending[s.key]; !ok {
				continue
			}
			delete(p.pending, s.key)
			p.computed[s.key] = s.result
		default:
			break drain
		}
	}
	// a launch and its settlement between two ticks leave the counter
	// where it was
	if settled == 0 && p.outstanding == p.lastOutstanding {
		return
	}
	p.lastOutstanding = p.outstanding
	p.retryWaiting()
	p.model.metrics.observePending(p.outstanding)
}

func (p *EvaluationPlugin) retryWaiting() {
	if len(p.waiting) == 0 {
		return
	}
	waiting := make([]CellAddress, 0, len(p.waiting))
	for addr := range p.waiting {
		waiting = append(waiting, addr)
		delete(p.values, addr)
	}
	sortAddresses(waiting)
	p.waiting = make(map[CellAddress]struct{})
	p.done = make(map[CellAddress]bool)
	for _, addr := range waiting {
		p.compute(addr)
	}
}

// isIdle reports whether no async call is in flight and no cell waits
func (p *EvaluationPlugin) isIdle() bool {
	return p.outstanding == 0 && len(p.waiting) == 0
}

// format returns the display format of a cell: its own, or the first
// format found among the sources of its formula
func (p *EvaluationPlugin) format(addr CellAddress, seen map[CellAddress]bool) string {
	c := p.sheets().cell(addr.SheetID, addr.Col, addr.Row)
	if c == nil {
		return ""
	}
	if c.Format != 0 {
		f, _ := p.model.formats.Get(c.Format)
		return f
	}
	if c.Kind != CellFormula || seen[addr] {
		return ""
	}
	seen[addr] = true
	for _, source := range c.Formula.Unit.FormatSources {
		if !source.IsDependency() {
			return source.Format
		}
		if source.Dep >= len(c.Formula.Dependencies) {
			continue
		}
		r := c.Formula.Dependencies[source.Dep]
		if !r.IsValid() {
			continue
		}
		if f := p.format(CellAddress{r.SheetID, r.Zone.Left, r.Zone.Top}, seen); f != "" {
			return f
		}
	}
	return ""
}

// cellRuntime resolves the references of the formula being computed
type cellRuntime struct {
	plugin *EvaluationPlugin
	addr   CellAddress
	cell   *Cell
}

func (rt *cellRuntime) dependency(index int) (Range, error) {
	deps := rt.cell.Formula.Dependencies
	if index < 0 || index >= len(deps) || !deps[index].IsValid() {
		return Range{}, functions.NewError(functions.ErrorCodeRef, "Invalid reference")
	}
	r := deps[index]
	if rt.plugin.sheets().sheet(r.SheetID) == nil {
		return Range{}, functions.NewError(functions.ErrorCodeRef, "Invalid sheet")
	}
	return r, nil
}

func (rt *cellRuntime) CurrentPosition() (int, int) {
	return rt.addr.Col, rt.addr.Row
}

func (rt *cellRuntime) ReferencePosition(ref string) (int, int, error) {
	r := ParseRange(ref, rt.addr.SheetID, rt.plugin.sheets().sheetIDByName)
	if !r.IsValid() {
		return 0, 0, functions.NewError(functions.ErrorCodeRef, "Invalid reference")
	}
	return r.Zone.Left, r.Zone.Top, nil
}

func (rt *cellRuntime) Reference(index int) (functions.Value, error) {
	r, err := rt.dependency(index)
	if err != nil {
		return nil, err
	}
	return rt.plugin.value(CellAddress{r.SheetID, r.Zone.Left, r.Zone.Top})
}

func (rt *cellRuntime) IsRange(index int) bool {
	r, err := rt.dependency(index)
	return err == nil && !r.IsSingleCell()
}

// Range reads a range clipped to the size of its sheet, row-major. error
// values stay in the matrix for the function to handle.
func (rt *cellRuntime) Range(index int) (functions.Matrix, error) {
	r, err := rt.dependency(index)
	if err != nil {
		return nil, err
	}
	cols, rows := rt.plugin.sheets().size(r.SheetID)
	z, ok := zone.Overlap(r.Zone, zone.Zone{Top: 0, Left: 0, Bottom: rows - 1, Right: cols - 1})
	if !ok {
		return functions.Matrix{}, nil
	}
	matrix := make(functions.Matrix, 0, z.Bottom-z.Top+1)
	for row := z.Top; row <= z.Bottom; row++ {
		values := make([]functions.Value, 0, z.Right-z.Left+1)
		for col := z.Left; col <= z.Right; col++ {
			v, err := rt.plugin.value(CellAddress{r.SheetID, col, row})
			if errors.Is(err, functions.ErrNotReady) {
				return nil, err
			}
			if err != nil {
				v = functions.AsEvaluationError(err)
			}
			values = append(values, v)
		}
		matrix = append(matrix, values)
	}
	return matrix, nil
}

func (rt *cellRuntime) RefText(index int) string {
	deps := rt.cell.Formula.Dependencies
	if index < 0 || index >= len(deps) {
		return functions.ErrorMapper[functions.ErrorCodeRef]
	}
	return deps[index].Text(rt.addr.SheetID, rt.plugin.sheets().sheetName)
}

func (rt *cellRuntime) CallAsync(callID int, d *functions.Description, args []any) (functions.Value, error) {
	return rt.plugin.callAsync(rt.cell.ID, callID, d, args)
}
