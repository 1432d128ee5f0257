package model

import "sort"

// InternTable interns style and format strings so that cells only carry a
// small id. ids start at 1, 0 means "none". entries are never removed: an
// undone command may bring back a cell pointing at any id handed out before.
type InternTable struct {
	strings    map[string]uint32
	reverseMap map[uint32]string
	nextID     uint32
}

// NewInternTable creates an empty table
func NewInternTable() *InternTable {
	return &InternTable{
		strings:    make(map[string]uint32),
		reverseMap: make(map[uint32]string),
		nextID:     1, // start at 1, reserve 0 for nil/empty
	}
}

// Intern returns the id of s, adding it to the table if needed. the empty
// string is always 0.
func (st *InternTable) Intern(s string) uint32 {
	if s == "" {
		return 0
	}
	if id, exists := st.strings[s]; exists {
		return id
	}
	id := st.nextID
	st.strings[s] = id
	st.reverseMap[id] = s
	st.nextID++
	return id
}

// Set registers s under a given id, as read from a workbook
func (st *InternTable) Set(id uint32, s string) {
	if id == 0 || s == "" {
		return
	}
	st.strings[s] = id
	st.reverseMap[id] = s
	if id >= st.nextID {
		st.nextID = id + 1
	}
}

// Get retrieves a string by its id
func (st *InternTable) Get(id uint32) (string, bool) {
	s, exists := st.reverseMap[id]
	return s, exists
}

// Count returns the number of unique strings in the table
func (st *InternTable) Count() int {
	return len(st.strings)
}

// IDs returns every id, sorted
func (st *InternTable) IDs() []uint32 {
	ids := make([]uint32, 0, len(st.reverseMap))
	for id := range st.reverseMap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clear removes all strings from the table
func (st *InternTable) Clear() {
	st.strings = make(map[string]uint32)
	st.reverseMap = make(map[uint32]string)
	st.nextID = 1
}
