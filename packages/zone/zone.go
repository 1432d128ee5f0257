package zone

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidReference is returned when a string is not a valid A1-style
// cell or range reference
var ErrInvalidReference = errors.New("invalid reference")

// Zone is an inclusive rectangle of 0-indexed cell coordinates. top <= bottom
// and left <= right always hold, except for zones built with the keep
// boundaries variants which preserve the order of a reversed selection.
type Zone struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Position is a single 0-indexed cell coordinate
type Position struct {
	Col int
	Row int
}

var cellReference = regexp.MustCompile(`^\$?([A-Za-z]+)\$?([0-9]+)$`)

// NumberToLetters converts a 0-indexed column number to its base-26
// letter form. there is no "zero" letter: 0 -> A, 25 -> Z, 26 -> AA.
func NumberToLetters(n int) string {
	if n < 0 {
		return ""
	}
	var b []byte
	for n >= 0 {
		b = append([]byte{byte('A' + n%26)}, b...)
		n = n/26 - 1
	}
	return string(b)
}

// LettersToNumber converts column letters (case-insensitive) to a 0-indexed
// column number. returns -1 for an empty or non-letter input.
func LettersToNumber(letters string) int {
	if letters == "" {
		return -1
	}
	result := 0
	for _, ch := range strings.ToUpper(letters) {
		if ch < 'A' || ch > 'Z' {
			return -1
		}
		result = result*26 + int(ch-'A') + 1
	}
	return result - 1
}

// ToXC converts 0-indexed coordinates to A1 notation
func ToXC(col, row int) string {
	return NumberToLetters(col) + strconv.Itoa(row+1)
}

// ToCartesian converts an A1-style reference (absolute markers allowed) to
// 0-indexed column and row
func ToCartesian(xc string) (col int, row int, err error) {
	m := cellReference.FindStringSubmatch(strings.TrimSpace(xc))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReference, xc)
	}
	rowNum, err := strconv.Atoi(m[2])
	if err != nil || rowNum < 1 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReference, xc)
	}
	return LettersToNumber(m[1]), rowNum - 1, nil
}

// IsCellReference reports whether xc is a single A1-style reference
func IsCellReference(xc string) bool {
	return cellReference.MatchString(xc)
}

// ToZone converts "A1" or "A1:C3" to a normalized zone. a reversed
// selection such as "C3:A1" is normalized to A1:C3.
func ToZone(xc string) (Zone, error) {
	z, err := ToZoneKeepBoundaries(xc)
	if err != nil {
		return Zone{}, err
	}
	return Normalize(z), nil
}

// ToZoneKeepBoundaries converts a reference to a zone preserving the literal
// order of its two corners
func ToZoneKeepBoundaries(xc string) (Zone, error) {
	if i := strings.LastIndex(xc, "!"); i >= 0 {
		xc = xc[i+1:]
	}
	parts := strings.Split(xc, ":")
	if len(parts) > 2 {
		return Zone{}, fmt.Errorf("%w: %q", ErrInvalidReference, xc)
	}
	left, top, err := ToCartesian(parts[0])
	if err != nil {
		return Zone{}, err
	}
	right, bottom := left, top
	if len(parts) == 2 {
		right, bottom, err = ToCartesian(parts[1])
		if err != nil {
			return Zone{}, err
		}
	}
	return Zone{Top: top, Left: left, Bottom: bottom, Right: right}, nil
}

// ZoneToXC renders a zone in A1 notation, collapsing single-cell zones to
// one reference
func ZoneToXC(z Zone) string {
	start := ToXC(z.Left, z.Top)
	if z.Top == z.Bottom && z.Left == z.Right {
		return start
	}
	return start + ":" + ToXC(z.Right, z.Bottom)
}

// Normalize returns z with top <= bottom and left <= right
func Normalize(z Zone) Zone {
	return Zone{
		Top:    min(z.Top, z.Bottom),
		Left:   min(z.Left, z.Right),
		Bottom: max(z.Top, z.Bottom),
		Right:  max(z.Left, z.Right),
	}
}

// Union returns the smallest zone containing all given zones
func Union(zones ...Zone) Zone {
	if len(zones) == 0 {
		return Zone{}
	}
	u := Normalize(zones[0])
	for _, z := range zones[1:] {
		z = Normalize(z)
		u.Top = min(u.Top, z.Top)
		u.Left = min(u.Left, z.Left)
		u.Bottom = max(u.Bottom, z.Bottom)
		u.Right = max(u.Right, z.Right)
	}
	return u
}

// Overlap returns the intersection of two zones. ok is false when they
// do not intersect.
func Overlap(a, b Zone) (Zone, bool) {
	a, b = Normalize(a), Normalize(b)
	o := Zone{
		Top:    max(a.Top, b.Top),
		Left:   max(a.Left, b.Left),
		Bottom: min(a.Bottom, b.Bottom),
		Right:  min(a.Right, b.Right),
	}
	if o.Top > o.Bottom || o.Left > o.Right {
		return Zone{}, false
	}
	return o, true
}

// IsEqual compares two zones after normalization
func IsEqual(a, b Zone) bool {
	return Normalize(a) == Normalize(b)
}

// IsInside reports whether the position (col, row) lies within z
func (z Zone) IsInside(col, row int) bool {
	n := Normalize(z)
	return col >= n.Left && col <= n.Right && row >= n.Top && row <= n.Bottom
}

// Contains reports whether inner lies entirely within z
func (z Zone) Contains(inner Zone) bool {
	n, i := Normalize(z), Normalize(inner)
	return i.Top >= n.Top && i.Bottom <= n.Bottom && i.Left >= n.Left && i.Right <= n.Right
}

// Size returns the number of cells covered by z
func (z Zone) Size() int {
	n := Normalize(z)
	return (n.Bottom - n.Top + 1) * (n.Right - n.Left + 1)
}

// Positions lists the cells of z row by row
func (z Zone) Positions() []Position {
	n := Normalize(z)
	result := make([]Position, 0, z.Size())
	for row := n.Top; row <= n.Bottom; row++ {
		for col := n.Left; col <= n.Right; col++ {
			result = append(result, Position{Col: col, Row: row})
		}
	}
	return result
}

func (z Zone) String() string {
	return ZoneToXC(z)
}
