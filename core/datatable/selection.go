package datatable

// Selection enables row selection on a Table.
type Selection[K comparable, T any] struct {
	// InitialKeys seeds the selection when the Table is created.
	InitialKeys []K
	// OnChange is called after every selection change with the selected keys
	// and the matching records of the current data (in data order).
	OnChange func(keys []K, records []T)
}

// keySet is an insertion-ordered set of keys.
type keySet[K comparable] struct {
	keys  []K
	index map[K]int
}

func newKeySet[K comparable](keys []K) *keySet[K] {
	s := &keySet[K]{index: make(map[K]int, len(keys))}
	for _, k := range keys {
		s.add(k)
	}
	return s
}

func (s *keySet[K]) has(k K) bool {
	_, ok := s.index[k]
	return ok
}

func (s *keySet[K]) add(k K) {
	if s.has(k) {
		return
	}
	s.index[k] = len(s.keys)
	s.keys = append(s.keys, k)
}

func (s *keySet[K]) remove(k K) {
	i, ok := s.index[k]
	if !ok {
		return
	}
	delete(s.index, k)
	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	for j := i; j < len(s.keys); j++ {
		s.index[s.keys[j]] = j
	}
}

func (s *keySet[K]) len() int { return len(s.keys) }

func (s *keySet[K]) slice() []K {
	out := make([]K, len(s.keys))
	copy(out, s.keys)
	return out
}
