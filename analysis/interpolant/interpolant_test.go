package interpolant

import (
	"testing"

	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/value"
)

var (
	x = memloc.Local("main", "x")
	a = memloc.Local("f", "a")
	g = memloc.Global("g")
)

func TestSentinels(t *testing.T) {
	tests := []struct {
		name          string
		itp           Interpolant
		isTrue, isFls bool
	}{
		{"true", True(), true, false},
		{"false", False, false, true},
		{"zero value", Interpolant{}, false, true},
		{"empty state", FromState(value.Empty()), true, false},
		{"assignment", FromState(value.Empty().Assign(x, 1)), false, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.itp.IsTrue() && test.itp.IsFalse() {
				t.Fatal("Interpolant is both TRUE and FALSE")
			}
			if test.itp.IsTrue() != test.isTrue || test.itp.IsFalse() != test.isFls {
				t.Errorf("%s: IsTrue = %v, IsFalse = %v", test.itp, test.itp.IsTrue(), test.itp.IsFalse())
			}
		})
	}
}

func TestClearScope(t *testing.T) {
	itp := FromState(value.Of(map[memloc.MemoryLocation]int64{x: 1, a: 2, g: 3}))
	cleared := itp.ClearScope("f")

	if cleared.Size() != 2 || cleared.MemoryLocations().Contains(a) {
		t.Error("ClearScope kept callee locations:", cleared)
	}
	if itp.Size() != 3 {
		t.Error("ClearScope mutated its receiver:", itp)
	}
	if !False.ClearScope("f").IsFalse() || !True().ClearScope("f").IsTrue() {
		t.Error("ClearScope changed a sentinel")
	}
}

func TestRoundTrip(t *testing.T) {
	s := value.Of(map[memloc.MemoryLocation]int64{x: 1, g: 3})
	if !FromState(s).ToState().Equal(s) {
		t.Error("ToState(FromState(s)) != s")
	}
}
