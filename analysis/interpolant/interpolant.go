// Package interpolant implements value interpolants: partial assignments of
// memory locations that over-approximate the states reachable along a path
// prefix while still ruling out the rest of the path.
package interpolant

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/value"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/benbjohnson/immutable"
	"github.com/fatih/color"
)

var colorize = struct {
	Sentinel func(...interface{}) string
}{
	Sentinel: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiMagenta, color.Bold).SprintFunc())(is...)
	},
}

// Interpolant is either TRUE (no constraints), FALSE (unsatisfiable), or a
// finite mapping from memory locations to values. FALSE is represented by
// the absence of an assignment, which is also the zero value.
type Interpolant struct {
	assignment *immutable.Map[memloc.MemoryLocation, int64]
}

var (
	trueInterpolant = Interpolant{immutable.NewMap[memloc.MemoryLocation, int64](memloc.Hasher)}
	// False is the interpolant of an infeasible position.
	False = Interpolant{}
)

// True is the interpolant without any constraints.
func True() Interpolant {
	return trueInterpolant
}

// FromState creates an interpolant from the bindings of a value state.
func FromState(s value.State) Interpolant {
	itp := True()
	s.ForEach(func(l memloc.MemoryLocation, v int64) {
		itp.assignment = itp.assignment.Set(l, v)
	})
	return itp
}

// ToState reconstructs the value state described by the interpolant.
// The state of FALSE is undefined and results in a panic.
func (itp Interpolant) ToState() value.State {
	if itp.IsFalse() {
		panic("the FALSE interpolant has no state")
	}
	bindings := make(map[memloc.MemoryLocation]int64, itp.Size())
	itp.ForEach(func(l memloc.MemoryLocation, v int64) {
		bindings[l] = v
	})
	return value.Of(bindings)
}

// IsTrue checks whether the interpolant is the empty assignment.
func (itp Interpolant) IsTrue() bool {
	return itp.assignment != nil && itp.assignment.Len() == 0
}

// IsFalse checks whether the interpolant has no assignment.
func (itp Interpolant) IsFalse() bool {
	return itp.assignment == nil
}

// IsTrivial holds for TRUE and FALSE.
func (itp Interpolant) IsTrivial() bool {
	return itp.IsTrue() || itp.IsFalse()
}

// Size is the number of constrained memory locations. FALSE has size 0.
func (itp Interpolant) Size() int {
	if itp.IsFalse() {
		return 0
	}
	return itp.assignment.Len()
}

func (itp Interpolant) Get(l memloc.MemoryLocation) (int64, bool) {
	if itp.IsFalse() {
		return 0, false
	}
	return itp.assignment.Get(l)
}

func (itp Interpolant) ForEach(do func(memloc.MemoryLocation, int64)) {
	if itp.IsFalse() {
		return
	}
	for iter := itp.assignment.Iterator(); !iter.Done(); {
		l, v, _ := iter.Next()
		do(l, v)
	}
}

// MemoryLocations returns the constrained memory locations.
func (itp Interpolant) MemoryLocations() memloc.Set {
	res := memloc.NewSet()
	itp.ForEach(func(l memloc.MemoryLocation, _ int64) {
		res = res.Add(l)
	})
	return res
}

// ClearScope removes all constraints on the stack frame of the given
// function. Sentinels are returned unchanged.
func (itp Interpolant) ClearScope(function string) Interpolant {
	if itp.IsTrivial() {
		return itp
	}
	res := itp
	itp.ForEach(func(l memloc.MemoryLocation, _ int64) {
		if l.IsOnFunctionStack(function) {
			res.assignment = res.assignment.Delete(l)
		}
	})
	return res
}

// Equal compares interpolants structurally.
func (itp Interpolant) Equal(o Interpolant) bool {
	if itp.IsFalse() || o.IsFalse() {
		return itp.IsFalse() == o.IsFalse()
	}
	if itp.Size() != o.Size() {
		return false
	}
	eq := true
	itp.ForEach(func(l memloc.MemoryLocation, v int64) {
		w, found := o.Get(l)
		eq = eq && found && v == w
	})
	return eq
}

func (itp Interpolant) String() string {
	switch {
	case itp.IsFalse():
		return colorize.Sentinel("FALSE")
	case itp.IsTrue():
		return colorize.Sentinel("TRUE")
	}

	strs := []string{}
	for _, l := range itp.MemoryLocations().Sorted() {
		v, _ := itp.Get(l)
		strs = append(strs, fmt.Sprintf("%s = %d", l, v))
	}
	return "[" + strings.Join(strs, ", ") + "]"
}
