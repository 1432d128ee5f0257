package model

import (
	"regexp"
	"strings"

	"github.com/Raniani-lab/enterpriise-sub000/packages/zone"
)

// RangePart holds the absolute markers of one corner of a range
type RangePart struct {
	ColFixed bool
	RowFixed bool
}

// Range is a zone qualified by a sheet and per-corner absolute markers. it
// is immutable: adapting a range to a structural change returns a new one.
type Range struct {
	SheetID string
	Zone    zone.Zone
	Parts   [2]RangePart
	// Qualified is set when the text carried an explicit sheet prefix
	Qualified bool
	// InvalidSheetName keeps the prefix of a reference to an unknown sheet
	InvalidSheetName string
	// Invalid is set once every row or column of the range was deleted
	Invalid bool
}

type dimension int

const (
	dimCol dimension = iota
	dimRow
)

// ParseRange reads "A1", "$A$1:B2" or "'My sheet'!A1:B2". resolve maps a
// sheet name to its id. references that cannot be read are Invalid.
func ParseRange(text, sheetID string, resolve func(name string) (string, bool)) Range {
	r := Range{SheetID: sheetID}
	if i := strings.LastIndex(text, "!"); i >= 0 {
		name := unquoteSheetName(text[:i])
		text = text[i+1:]
		r.Qualified = true
		if id, ok := resolve(name); ok {
			r.SheetID = id
		} else {
			r.InvalidSheetName = name
		}
	}
	parts := strings.Split(text, ":")
	for i, part := range parts {
		if i > 1 {
			break
		}
		r.Parts[i] = parsePart(part)
	}
	if len(parts) == 1 {
		r.Parts[1] = r.Parts[0]
	}
	z, err := zone.ToZone(text)
	if err != nil {
		r.Invalid = true
		return r
	}
	r.Zone = z
	return r
}

var partRegexp = regexp.MustCompile(`^(\$?)[A-Za-z]+(\$?)[0-9]+$`)

func parsePart(part string) RangePart {
	m := partRegexp.FindStringSubmatch(part)
	if m == nil {
		return RangePart{}
	}
	return RangePart{ColFixed: m[1] != "", RowFixed: m[2] != ""}
}

func unquoteSheetName(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		return name[1 : len(name)-1]
	}
	return name
}

var plainSheetName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// QuoteSheetName quotes a sheet name for use as a reference prefix when it
// contains anything but letters, digits and underscores
func QuoteSheetName(name string) string {
	if plainSheetName.MatchString(name) {
		return name
	}
	return "'" + name + "'"
}

// IsValid reports whether the range points to existing cells of a known
// sheet
func (r Range) IsValid() bool {
	return !r.Invalid && r.InvalidSheetName == ""
}

// IsSingleCell reports whether the range covers exactly one cell
func (r Range) IsSingleCell() bool {
	return r.Zone.Top == r.Zone.Bottom && r.Zone.Left == r.Zone.Right
}

// Text renders the range as seen from a formula of ownerSheetID
func (r Range) Text(ownerSheetID string, sheetName func(id string) (string, bool)) string {
	if r.Invalid {
		return "#REF!"
	}
	prefix := ""
	switch {
	case r.InvalidSheetName != "":
		prefix = QuoteSheetName(r.InvalidSheetName) + "!"
	case r.Qualified || r.SheetID != ownerSheetID:
		name, ok := sheetName(r.SheetID)
		if !ok {
			return "#REF!"
		}
		prefix = QuoteSheetName(name) + "!"
	}
	start := partText(r.Zone.Left, r.Zone.Top, r.Parts[0])
	if r.IsSingleCell() && r.Parts[0] == r.Parts[1] {
		return prefix + start
	}
	return prefix + start + ":" + partText(r.Zone.Right, r.Zone.Bottom, r.Parts[1])
}

func partText(col, row int, part RangePart) string {
	xc := zone.ToXC(col, row)
	letters := zone.NumberToLetters(col)
	var sb strings.Builder
	if part.ColFixed {
		sb.WriteByte('$')
	}
	sb.WriteString(letters)
	if part.RowFixed {
		sb.WriteByte('$')
	}
	sb.WriteString(xc[len(letters):])
	return sb.String()
}

// adaptRemoved shifts and shrinks the range after rows or columns of
// sheetID were deleted. removed must be sorted ascending.
func (r Range) adaptRemoved(sheetID string, dim dimension, removed []int) (Range, bool) {
	if r.SheetID != sheetID || !r.IsValid() {
		return r, false
	}
	start, end := r.bounds(dim)
	newStart, newEnd, ok := shiftOnRemove(start, end, removed)
	if !ok {
		r.Invalid = true
		return r, true
	}
	if newStart == start && newEnd == end {
		return r, false
	}
	r.setBounds(dim, newStart, newEnd)
	return r, true
}

// resolveSheet binds a reference to an unknown sheet once a sheet of that
// name exists
func (r Range) resolveSheet(resolve func(name string) (string, bool)) (Range, bool) {
	if r.InvalidSheetName == "" {
		return r, false
	}
	id, ok := resolve(r.InvalidSheetName)
	if !ok {
		return r, false
	}
	r.SheetID = id
	r.InvalidSheetName = ""
	return r, true
}

// adaptInserted shifts and grows the range after quantity rows or columns
// were inserted at index
func (r Range) adaptInserted(sheetID string, dim dimension, index, quantity int) (Range, bool) {
	if r.SheetID != sheetID || !r.IsValid() {
		return r, false
	}
	start, end := r.bounds(dim)
	newStart, newEnd := shiftOnInsert(start, end, index, quantity)
	if newStart == start && newEnd == end {
		return r, false
	}
	r.setBounds(dim, newStart, newEnd)
	return r, true
}

func (r Range) bounds(dim dimension) (int, int) {
	if dim == dimCol {
		return r.Zone.Left, r.Zone.Right
	}
	return r.Zone.Top, r.Zone.Bottom
}

func (r *Range) setBounds(dim dimension, start, end int) {
	if dim == dimCol {
		r.Zone.Left, r.Zone.Right = start, end
		return
	}
	r.Zone.Top, r.Zone.Bottom = start, end
}

// shiftOnRemove maps an inclusive interval through the deletion of sorted
// indexes. ok is false when the whole interval was deleted.
func shiftOnRemove(start, end int, removed []int) (int, int, bool) {
	before, inside := 0, 0
	for _, i := range removed {
		switch {
		case i < start:
			before++
		case i <= end:
			inside++
		}
	}
	if inside == end-start+1 {
		return 0, 0, false
	}
	return start - before, end - before - inside, true
}

// shiftOnInsert maps an inclusive interval through the insertion of quantity
// indexes at index. inserting inside the interval grows it.
func shiftOnInsert(start, end, index, quantity int) (int, int) {
	if start >= index {
		start += quantity
	}
	if end >= index {
		end += quantity
	}
	return start, end
}

// insertionIndex converts a base index and a before/after position to the
// index of the first inserted row or column
func insertionIndex(base int, position string) int {
	if strings.EqualFold(position, After) {
		return base + 1
	}
	return base
}
