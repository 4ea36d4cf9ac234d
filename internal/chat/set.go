package chat

import "slices"

// idSet is a set of user ids that remembers insertion order, so rosters,
// reactions and read receipts always serialize the same way.
type idSet struct {
	order []string
	index map[string]struct{}
}

func newIDSet(ids ...string) *idSet {
	s := &idSet{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add reports whether id was newly inserted.
func (s *idSet) Add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Remove reports whether id was present.
func (s *idSet) Remove(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return true
}

func (s *idSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *idSet) Len() int { return len(s.order) }

// IDs returns a copy; callers may keep it after the set changes.
func (s *idSet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
