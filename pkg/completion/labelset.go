package completion

// labelSet remembers which suggestion labels were already emitted.
type labelSet struct {
	seen map[string]struct{}
}

// newLabelSet starts a set that already holds every non-empty label in excluded.
func newLabelSet(excluded ...string) *labelSet {
	s := &labelSet{seen: make(map[string]struct{}, 16)}
	for _, label := range excluded {
		if label != "" {
			s.seen[label] = struct{}{}
		}
	}
	return s
}

// add inserts label and reports whether it was new.
func (s *labelSet) add(label string) bool {
	if _, ok := s.seen[label]; ok {
		return false
	}
	s.seen[label] = struct{}{}
	return true
}
