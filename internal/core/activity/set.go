package activity

import "sort"

// Set holds activities unique by Fingerprint in insertion order
// the first activity seen for a fingerprint wins
type Set struct {
	items []Activity
	seen  map[Fingerprint]struct{}
}

// NewSet returns an empty Set
func NewSet() *Set {
	return &Set{seen: map[Fingerprint]struct{}{}}
}

// Add inserts a unless an equal fingerprint is present, reporting whether it was added
func (s *Set) Add(a Activity) bool {
	fp := a.Fingerprint()
	if _, ok := s.seen[fp]; ok {
		return false
	}
	s.seen[fp] = struct{}{}
	s.items = append(s.items, a)
	return true
}

// Contains reports whether an activity with a's fingerprint is present
func (s *Set) Contains(a Activity) bool {
	_, ok := s.seen[a.Fingerprint()]
	return ok
}

// Len returns the number of unique activities
func (s *Set) Len() int { return len(s.items) }

// Items returns a copy in insertion order
func (s *Set) Items() []Activity {
	out := make([]Activity, len(s.items))
	copy(out, s.items)
	return out
}

// Sorted returns a copy ordered by OccurredAt ascending, ties in insertion order
func (s *Set) Sorted() []Activity {
	out := s.Items()
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

// Earliest returns the activity with the smallest OccurredAt
func (s *Set) Earliest() (Activity, bool) {
	if len(s.items) == 0 {
		return Activity{}, false
	}
	best := s.items[0]
	for _, a := range s.items[1:] {
		if a.OccurredAt.Before(best.OccurredAt) {
			best = a
		}
	}
	return best, true
}

// Merge adds every activity of o, returning how many were new
func (s *Set) Merge(o *Set) int {
	if o == nil {
		return 0
	}
	n := 0
	for _, a := range o.items {
		if s.Add(a) {
			n++
		}
	}
	return n
}
