package model

import (
	"sort"

	"github.com/Raniani-lab/enterpriise-sub000/packages/history"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// MergeConfirmation is the question asked before a destructive interactive
// merge
const MergeConfirmation = "Merging these cells will only preserve the top-leftmost value. Merge anyway?"

// MergePlugin owns merged zones, stored at merges/<sheet id>/<top-left xc>
type MergePlugin struct {
	BasePlugin
}

func (p *MergePlugin) Name() string { return "merge" }

func (p *MergePlugin) merges(sheetID string) []zone.Zone {
	byXC, _ := history.Get(p.model.state, "merges", sheetID).(history.Object)
	result := make([]zone.Zone, 0, len(byXC))
	for _, z := range byXC {
		result = append(result, z.(zone.Zone))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Top != result[j].Top {
			return result[i].Top < result[j].Top
		}
		return result[i].Left < result[j].Left
	})
	return result
}

func (p *MergePlugin) overlapping(sheetID string, target zone.Zone) []zone.Zone {
	var result []zone.Zone
	for _, z := range p.merges(sheetID) {
		if _, ok := zone.Overlap(z, target); ok {
			result = append(result, z)
		}
	}
	return result
}

// isDestructive reports whether merging target would hide a non empty cell
func (p *MergePlugin) isDestructive(sheetID string, target zone.Zone) bool {
	for _, pos := range target.Positions() {
		if pos.Col == target.Left && pos.Row == target.Top {
			continue
		}
		if c := p.model.sheets.cell(sheetID, pos.Col, pos.Row); c != nil && c.Content != "" {
			return true
		}
	}
	return false
}

func (p *MergePlugin) targetZone(sheetID, target string) (zone.Zone, CancelledReason) {
	if p.model.sheets.sheet(sheetID) == nil {
		return zone.Zone{}, ReasonInvalidSheetID
	}
	z, err := zone.ToZone(target)
	if err != nil {
		return zone.Zone{}, ReasonInvalidCommand
	}
	cols, rows := p.model.sheets.size(sheetID)
	if z.Right >= cols || z.Bottom >= rows {
		return zone.Zone{}, ReasonTargetOutOfSheet
	}
	return z, ReasonNone
}

func (p *MergePlugin) AllowDispatch(cmd Command) CancelledReason {
	switch c := cmd.(type) {
	case AddMerge:
		z, reason := p.targetZone(c.SheetID, c.Target)
		if reason != ReasonNone {
			return reason
		}
		if z.Size() < 2 {
			return ReasonInvalidCommand
		}
		if c.Force {
			return ReasonNone
		}
		if len(p.overlapping(c.SheetID, z)) > 0 {
			return ReasonWillRemoveExistingMerge
		}
		if !c.Interactive && p.isDestructive(c.SheetID, z) {
			return ReasonMergeIsDestructive
		}
	case RemoveMerge:
		z, reason := p.targetZone(c.SheetID, c.Target)
		if reason != ReasonNone {
			return reason
		}
		if existing, ok := history.Get(p.model.state, "merges", c.SheetID, zone.ToXC(z.Left, z.Top)).(zone.Zone); !ok || existing != z {
			return ReasonInvalidCommand
		}
	}
	return ReasonNone
}

func (p *MergePlugin) Handle(cmd Command) {
	switch c := cmd.(type) {
	case AddMerge:
		z, _ := zone.ToZone(c.Target)
		p.addMerge(c, z)
	case RemoveMerge:
		z, _ := zone.ToZone(c.Target)
		p.record(nil, "merges", c.SheetID, zone.ToXC(z.Left, z.Top))
	case DeleteSheet:
		if history.Get(p.model.state, "merges", c.SheetID) != nil {
			p.record(nil, "merges", c.SheetID)
		}
	case AddColumns:
		index := insertionIndex(c.Column, c.Position)
		p.adapt(c.SheetID, func(r Range) (Range, bool) { return r.adaptInserted(c.SheetID, dimCol, index, c.Quantity) })
	case AddRows:
		index := insertionIndex(c.Row, c.Position)
		p.adapt(c.SheetID, func(r Range) (Range, bool) { return r.adaptInserted(c.SheetID, dimRow, index, c.Quantity) })
	case RemoveColumns:
		removed := uniqueSorted(c.Columns)
		p.adapt(c.SheetID, func(r Range) (Range, bool) { return r.adaptRemoved(c.SheetID, dimCol, removed) })
	case RemoveRows:
		removed := uniqueSorted(c.Rows)
		p.adapt(c.SheetID, func(r Range) (Range, bool) { return r.adaptRemoved(c.SheetID, dimRow, removed) })
	}
}

func (p *MergePlugin) addMerge(c AddMerge, z zone.Zone) {
	if !c.Force && p.isDestructive(c.SheetID, z) {
		if !p.model.askConfirmation(MergeConfirmation) {
			return
		}
	}
	for _, existing := range p.overlapping(c.SheetID, z) {
		p.record(nil, "merges", c.SheetID, zone.ToXC(existing.Left, existing.Top))
	}
	for _, pos := range z.Positions() {
		if pos.Col == z.Left && pos.Row == z.Top {
			continue
		}
		if p.model.sheets.cell(c.SheetID, pos.Col, pos.Row) != nil {
			p.dispatch(ClearCell{SheetID: c.SheetID, Col: pos.Col, Row: pos.Row})
		}
	}
	p.record(z, "merges", c.SheetID, zone.ToXC(z.Left, z.Top))
}

// adapt moves merges through a structural change. merges reduced to a
// single cell, or deleted entirely, are dropped.
func (p *MergePlugin) adapt(sheetID string, adapt func(Range) (Range, bool)) {
	var moved []zone.Zone
	for _, z := range p.merges(sheetID) {
		next, changed := adapt(Range{SheetID: sheetID, Zone: z})
		if !changed {
			continue
		}
		p.record(nil, "merges", sheetID, zone.ToXC(z.Left, z.Top))
		if next.IsValid() && next.Zone.Size() > 1 {
			moved = append(moved, next.Zone)
		}
	}
	for _, z := range moved {
		p.record(z, "merges", sheetID, zone.ToXC(z.Left, z.Top))
	}
}

func (p *MergePlugin) Import(data *WorkbookData) error {
	all := p.model.state["merges"].(history.Object)
	for _, s := range data.Sheets {
		if len(s.Merges) == 0 {
			continue
		}
		byXC := history.Object{}
		for _, text := range s.Merges {
			z, err := zone.ToZone(text)
			if err != nil {
				return appErrorf(InvalidArgument, "invalid merge %q in sheet %q", text, s.Name)
			}
			byXC[zone.ToXC(z.Left, z.Top)] = z
		}
		all[s.ID] = byXC
	}
	return nil
}

func (p *MergePlugin) Export(data *WorkbookData) {
	for i := range data.Sheets {
		for _, z := range p.merges(data.Sheets[i].ID) {
			data.Sheets[i].Merges = append(data.Sheets[i].Merges, zone.ZoneToXC(z))
		}
	}
}
