package promo

import "bookshop/internal/model"

// mapSet implements Set using a map for O(1) lookups. A code added twice keeps
// its first position and its latest definition.
type mapSet struct {
	codes map[string]int
	defs  []model.PromoCode
}

// NewMapSet creates a new map-based promo set.
func NewMapSet(capacity int) Set {
	return newMapSet(capacity)
}

func newMapSet(capacity int) *mapSet {
	return &mapSet{
		codes: make(map[string]int, capacity),
		defs:  make([]model.PromoCode, 0, capacity),
	}
}

// Get returns the definition for a code.
func (s *mapSet) Get(code string) (model.PromoCode, bool) {
	i, ok := s.codes[model.NormalizePromoCode(code)]
	if !ok {
		return model.PromoCode{}, false
	}
	return s.defs[i], true
}

// Size returns the number of codes in the set.
func (s *mapSet) Size() int {
	return len(s.defs)
}

// Codes returns the definitions in insertion order.
func (s *mapSet) Codes() []model.PromoCode {
	return s.defs
}

// Add stores a definition, replacing any earlier one with the same code.
func (s *mapSet) Add(p model.PromoCode) {
	p.Code = model.NormalizePromoCode(p.Code)
	if i, ok := s.codes[p.Code]; ok {
		s.defs[i] = p
		return
	}
	s.codes[p.Code] = len(s.defs)
	s.defs = append(s.defs, p)
}

// Merge adds every definition of other, later sets winning.
func (s *mapSet) Merge(other Set) {
	for _, p := range other.Codes() {
		s.Add(p)
	}
}
