package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/utils"
	i "github.com/cs-au-dk/cegar/utils/indenter"

	"github.com/benbjohnson/immutable"
)

// State is an explicit-value abstract state: a partial assignment of
// concrete integer values to memory locations. Locations without a binding
// may hold any value.
type State struct {
	mp *immutable.Map[memloc.MemoryLocation, int64]
}

// Empty is the state without any knowledge (⊤).
func Empty() State {
	return State{immutable.NewMap[memloc.MemoryLocation, int64](memloc.Hasher)}
}

// Of creates a state from the given bindings.
func Of(bindings map[memloc.MemoryLocation]int64) State {
	mp := immutable.NewMapBuilder[memloc.MemoryLocation, int64](memloc.Hasher)
	for l, v := range bindings {
		mp.Set(l, v)
	}
	return State{mp.Map()}
}

func (s State) Get(l memloc.MemoryLocation) (int64, bool) {
	return s.mp.Get(l)
}

func (s State) Contains(l memloc.MemoryLocation) bool {
	_, found := s.mp.Get(l)
	return found
}

func (s State) Assign(l memloc.MemoryLocation, v int64) State {
	if old, found := s.mp.Get(l); found && old == v {
		return s
	}
	return State{s.mp.Set(l, v)}
}

// Forget removes any knowledge about the given location.
func (s State) Forget(l memloc.MemoryLocation) State {
	if !s.Contains(l) {
		return s
	}
	return State{s.mp.Delete(l)}
}

// Restrict keeps only the bindings of locations for which keep returns true.
func (s State) Restrict(keep func(memloc.MemoryLocation) bool) State {
	res := s
	s.ForEach(func(l memloc.MemoryLocation, _ int64) {
		if !keep(l) {
			res = res.Forget(l)
		}
	})
	return res
}

// DropFrame removes all bindings on the stack frame of the given function.
func (s State) DropFrame(fun string) State {
	return s.Restrict(func(l memloc.MemoryLocation) bool {
		return !l.IsOnFunctionStack(fun)
	})
}

func (s State) Size() int {
	return s.mp.Len()
}

func (s State) ForEach(do func(memloc.MemoryLocation, int64)) {
	for iter := s.mp.Iterator(); !iter.Done(); {
		l, v, _ := iter.Next()
		do(l, v)
	}
}

// Locations returns the set of locations with a known value.
func (s State) Locations() memloc.Set {
	res := memloc.NewSet()
	s.ForEach(func(l memloc.MemoryLocation, _ int64) {
		res = res.Add(l)
	})
	return res
}

// Sorted returns the bound locations ordered by MemoryLocation.Compare.
func (s State) Sorted() []memloc.MemoryLocation {
	return s.Locations().Sorted()
}

// LessOrEqual computes s ⊑ o: every binding of o is also a binding of s.
func (s State) LessOrEqual(o State) bool {
	if o.Size() > s.Size() {
		return false
	}

	leq := true
	o.ForEach(func(l memloc.MemoryLocation, v int64) {
		if !leq {
			return
		}
		mine, found := s.Get(l)
		leq = found && mine == v
	})
	return leq
}

func (s State) Equal(o State) bool {
	return s.Size() == o.Size() && s.LessOrEqual(o)
}

func (s State) Hash() uint32 {
	hashes := []uint32{}
	s.ForEach(func(l memloc.MemoryLocation, v int64) {
		hashes = append(hashes, utils.HashCombine(l.Hash(), utils.HashInt(v)))
	})
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i] < hashes[j]
	})
	return utils.HashCombine(hashes...)
}

func (s State) String() string {
	strs := []string{}
	for _, l := range s.Sorted() {
		v, _ := s.Get(l)
		strs = append(strs, fmt.Sprintf("%s = %d", l, v))
	}
	if len(strs) == 0 {
		return "[]"
	}
	return i.Indenter().Start("[").NestStringsSep(",", strs...).End("]")
}

// Compact is a single-line rendering of the state.
func (s State) Compact() string {
	strs := []string{}
	for _, l := range s.Sorted() {
		v, _ := s.Get(l)
		strs = append(strs, fmt.Sprintf("%s=%d", l.Identifier(), v))
	}
	return "[" + strings.Join(strs, ", ") + "]"
}
