package model

import (
	"github.com/Raniani-lab/enterpriise-sub000/packages/formula"
	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

type clippedCell struct {
	dCol, dRow int
	cell       *Cell
	style      string
	format     string
}

// ClipboardPlugin keeps the last copied zone. its state is transient: COPY
// leaves no history step, PASTE writes cells through UPDATE_CELL
// subcommands.
type ClipboardPlugin struct {
	BasePlugin
	sheetID string
	zone    zone.Zone
	cells   []clippedCell
	filled  bool
}

func (p *ClipboardPlugin) Name() string    { return "clipboard" }
func (p *ClipboardPlugin) Layers() []Layer { return []Layer{LayerClipboard} }
func (p *ClipboardPlugin) Modes() []Mode   { return []Mode{ModeNormal} }

func (p *ClipboardPlugin) targetZone(sheetID, target string) (zone.Zone, CancelledReason) {
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

func (p *ClipboardPlugin) AllowDispatch(cmd Command) CancelledReason {
	switch c := cmd.(type) {
	case Copy:
		_, reason := p.targetZone(c.SheetID, c.Target)
		return reason
	case Paste:
		if !p.filled {
			return ReasonEmptyClipboard
		}
		z, reason := p.targetZone(c.SheetID, c.Target)
		if reason != ReasonNone {
			return reason
		}
		cols, rows := p.model.sheets.size(c.SheetID)
		height, width := p.zone.Bottom-p.zone.Top, p.zone.Right-p.zone.Left
		if z.Left+width >= cols || z.Top+height >= rows {
			return ReasonTargetOutOfSheet
		}
	}
	return ReasonNone
}

func (p *ClipboardPlugin) Handle(cmd Command) {
	switch c := cmd.(type) {
	case Copy:
		z, _ := zone.ToZone(c.Target)
		p.copy(c.SheetID, z)
	case Paste:
		z, _ := zone.ToZone(c.Target)
		p.paste(c.SheetID, z.Left, z.Top)
	case DeleteSheet:
		if c.SheetID == p.sheetID {
			p.clear()
		}
	}
}

func (p *ClipboardPlugin) clear() {
	p.sheetID, p.zone, p.cells, p.filled = "", zone.Zone{}, nil, false
}

func (p *ClipboardPlugin) copy(sheetID string, z zone.Zone) {
	p.sheetID, p.zone, p.cells, p.filled = sheetID, z, nil, true
	for _, pos := range z.Positions() {
		c := p.model.sheets.cell(sheetID, pos.Col, pos.Row)
		if c == nil {
			continue
		}
		style, _ := p.model.styles.Get(c.Style)
		format, _ := p.model.formats.Get(c.Format)
		p.cells = append(p.cells, clippedCell{
			dCol:   pos.Col - z.Left,
			dRow:   pos.Row - z.Top,
			cell:   c,
			style:  style,
			format: format,
		})
	}
}

func (p *ClipboardPlugin) paste(sheetID string, col, row int) {
	target := zone.Zone{
		Top:    row,
		Left:   col,
		Bottom: row + p.zone.Bottom - p.zone.Top,
		Right:  col + p.zone.Right - p.zone.Left,
	}
	written := make(map[zone.Position]bool, len(p.cells))
	for _, clipped := range p.cells {
		pos := zone.Position{Col: col + clipped.dCol, Row: row + clipped.dRow}
		content := p.pastedContent(clipped.cell, sheetID, col-p.zone.Left, row-p.zone.Top)
		style, format := clipped.style, clipped.format
		p.dispatch(UpdateCell{
			SheetID: sheetID,
			Col:     pos.Col,
			Row:     pos.Row,
			Content: &content,
			Style:   &style,
			Format:  &format,
		})
		written[pos] = true
	}
	for _, pos := range target.Positions() {
		if !written[pos] && p.model.sheets.cell(sheetID, pos.Col, pos.Row) != nil {
			p.dispatch(ClearCell{SheetID: sheetID, Col: pos.Col, Row: pos.Row})
		}
	}
}

// pastedContent shifts the relative references of a formula by the paste
// offset. references pushed out of the sheet become #REF!.
func (p *ClipboardPlugin) pastedContent(c *Cell, sheetID string, dCol, dRow int) string {
	if c.Formula == nil {
		return c.Content
	}
	texts := make([]string, len(c.Formula.Dependencies))
	for i, r := range c.Formula.Dependencies {
		if !r.Qualified {
			r.SheetID = sheetID
		}
		texts[i] = r.shifted(dCol, dRow).Text(sheetID, p.model.sheets.sheetName)
	}
	return formula.Denormalize(c.Formula.Text, texts)
}

// shifted moves the non fixed parts of a range
func (r Range) shifted(dCol, dRow int) Range {
	if !r.IsValid() {
		return r
	}
	if !r.Parts[0].ColFixed {
		r.Zone.Left += dCol
	}
	if !r.Parts[0].RowFixed {
		r.Zone.Top += dRow
	}
	if !r.Parts[1].ColFixed {
		r.Zone.Right += dCol
	}
	if !r.Parts[1].RowFixed {
		r.Zone.Bottom += dRow
	}
	if r.Zone.Left < 0 || r.Zone.Top < 0 {
		r.Invalid = true
	}
	r.Zone = zone.Normalize(r.Zone)
	return r
}
