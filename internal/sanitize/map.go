package sanitize

import "encoding/json"

// Reason tags recorded for each substitution.
const (
	ReasonStation    = "station notation format"
	ReasonIdentifier = "alphanumeric identifier"
	ReasonNumber     = "long numeric sequence"
)

// Entry records one original literal and what replaced it.
type Entry struct {
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	Reason      string `json:"reason"`
}

// Map is an ordered record of substitutions keyed by original literal. Only
// the first occurrence of a literal creates an entry.
type Map struct {
	entries []Entry
	index   map[string]int
}

// NewMap returns an empty substitution map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Len returns the number of distinct originals recorded.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Entries returns the substitutions in first-seen order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// Lookup returns the entry recorded for original.
func (m *Map) Lookup(original string) (Entry, bool) {
	if m == nil {
		return Entry{}, false
	}
	idx, ok := m.index[original]
	if !ok {
		return Entry{}, false
	}
	return m.entries[idx], true
}

// Merge appends entries from other whose originals are not yet recorded.
func (m *Map) Merge(other *Map) {
	for _, entry := range other.Entries() {
		m.add(entry)
	}
}

// MarshalJSON encodes the map as an ordered list of entries.
func (m *Map) MarshalJSON() ([]byte, error) {
	entries := m.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

func (m *Map) add(entry Entry) Entry {
	if existing, ok := m.Lookup(entry.Original); ok {
		return existing
	}
	m.index[entry.Original] = len(m.entries)
	m.entries = append(m.entries, entry)
	return entry
}
