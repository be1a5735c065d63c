package memloc

import (
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Set is a persistent set of memory locations.
// The zero value is the empty set.
type Set struct {
	mp *immutable.Map[MemoryLocation, struct{}]
}

// NewSet creates a set containing the given locations.
func NewSet(ls ...MemoryLocation) Set {
	s := Set{}
	for _, l := range ls {
		s = s.Add(l)
	}
	return s
}

func (s Set) Add(l MemoryLocation) Set {
	if s.mp == nil {
		s.mp = immutable.NewMap[MemoryLocation, struct{}](Hasher)
	} else if _, found := s.mp.Get(l); found {
		return s
	}
	return Set{s.mp.Set(l, struct{}{})}
}

func (s Set) Contains(l MemoryLocation) bool {
	if s.mp == nil {
		return false
	}
	_, found := s.mp.Get(l)
	return found
}

func (s Set) Size() int {
	if s.mp == nil {
		return 0
	}
	return s.mp.Len()
}

func (s Set) Empty() bool {
	return s.Size() == 0
}

func (s Set) ForEach(do func(MemoryLocation)) {
	if s.mp == nil {
		return
	}
	for iter := s.mp.Iterator(); !iter.Done(); {
		l, _, _ := iter.Next()
		do(l)
	}
}

// Union adds all the elements of o to s. The larger set is used as the base.
func (s Set) Union(o Set) Set {
	if s.Size() < o.Size() {
		s, o = o, s
	}
	o.ForEach(func(l MemoryLocation) {
		s = s.Add(l)
	})
	return s
}

// Leq checks whether s ⊆ o.
func (s Set) Leq(o Set) bool {
	if s.Size() > o.Size() {
		return false
	}
	leq := true
	s.ForEach(func(l MemoryLocation) {
		leq = leq && o.Contains(l)
	})
	return leq
}

func (s Set) Equal(o Set) bool {
	return s.Size() == o.Size() && s.Leq(o)
}

// Sorted returns the elements ordered by MemoryLocation.Compare.
func (s Set) Sorted() []MemoryLocation {
	res := make([]MemoryLocation, 0, s.Size())
	s.ForEach(func(l MemoryLocation) {
		res = append(res, l)
	})
	sort.Slice(res, func(i, j int) bool {
		return res[i].Compare(res[j]) < 0
	})
	return res
}

func (s Set) String() string {
	strs := []string{}
	for _, l := range s.Sorted() {
		strs = append(strs, l.String())
	}
	return "{" + strings.Join(strs, ", ") + "}"
}
