package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SeatSet is the in-memory form of a show's seat ledger: the ids of the
// seats currently held or sold. It is the only representation the booking
// logic works with; persisted shapes are normalized by ParseSeatSet.
type SeatSet map[string]struct{}

// NewSeatSet builds a set from ids in their canonical form, ignoring blanks.
func NewSeatSet(ids ...string) SeatSet {
	s := make(SeatSet, len(ids))
	for _, id := range ids {
		if id = seatKey(id); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// seatKey is the canonical form of a seat id: trimmed and upper-cased.
func seatKey(id string) string { return strings.ToUpper(strings.TrimSpace(id)) }

func (s SeatSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s SeatSet) Len() int { return len(s) }

func (s SeatSet) Clone() SeatSet {
	out := make(SeatSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// With returns a copy of s that also contains ids.
func (s SeatSet) With(ids ...string) SeatSet {
	out := s.Clone()
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// Without returns a copy of s with ids removed.
func (s SeatSet) Without(ids ...string) SeatSet {
	out := s.Clone()
	for _, id := range ids {
		delete(out, id)
	}
	return out
}

// Taken returns the requested ids that are already in the set, in request order.
func (s SeatSet) Taken(ids []string) []string {
	var taken []string
	for _, id := range ids {
		if s.Has(id) {
			taken = append(taken, id)
		}
	}
	return taken
}

// IDs returns the seat ids in seat-map order (row letters, then number).
func (s SeatSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	SortSeatIDs(out)
	return out
}

// MarshalJSON writes the canonical ledger shape: {"A1":true,"A2":true}.
func (s SeatSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, len(s))
	for id := range s {
		m[id] = true
	}
	return json.Marshal(m)
}

func (s *SeatSet) UnmarshalJSON(b []byte) error {
	parsed, err := ParseSeatSet(b)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeatSet normalizes every ledger shape that has been persisted:
//
//	{"A1": true, "A2": false}  key/value object, falsy entries are free seats
//	["A1", "A2"]               legacy list of occupied ids
//	null or empty              no seats taken
//
// Keys are canonicalized with the same rules as requested seat ids.
func ParseSeatSet(raw []byte) (SeatSet, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return SeatSet{}, nil
	}
	switch raw[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("seat ledger object: %w", err)
		}
		s := make(SeatSet, len(m))
		for id, v := range m {
			if id = seatKey(id); id != "" && occupied(v) {
				s[id] = struct{}{}
			}
		}
		return s, nil
	case '[':
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, fmt.Errorf("seat ledger list: %w", err)
		}
		return NewSeatSet(ids...), nil
	}
	return nil, fmt.Errorf("seat ledger: unsupported shape %q", raw[0])
}

// occupied treats a ledger value as taken unless it is false, null, zero
// or the empty string.
func occupied(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}

// NormalizeSeatIDs trims, upper-cases and de-duplicates requested seat ids,
// keeping the first occurrence order.
func NormalizeSeatIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = seatKey(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// SortSeatIDs orders ids like a seat map: "A2" before "A10" before "B1".
func SortSeatIDs(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ri, ni := splitSeatID(ids[i])
		rj, nj := splitSeatID(ids[j])
		if ri != rj {
			return ri < rj
		}
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
}

func splitSeatID(id string) (string, int) {
	i := len(id)
	for i > 0 && id[i-1] >= '0' && id[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(id[i:])
	if err != nil {
		return id, -1
	}
	return id[:i], n
}
