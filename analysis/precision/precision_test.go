package precision

import (
	"testing"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
)

func sampleCFA(t *testing.T) (*cfa.CFA, []*cfa.Node) {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2 := main.Node(), main.Node()
	main.Declare(main.Entry(), n1, "x", cfa.Int(0))
	main.Declare(n1, n2, "y", cfa.Int(1))
	main.Return(n2, nil)
	c, err := b.Build("main")
	if err != nil {
		t.Fatal(err)
	}
	return c, []*cfa.Node{main.Entry(), n1, n2}
}

var (
	x = memloc.Local("main", "x")
	y = memloc.Local("main", "y")
)

func TestMonotonicGrowth(t *testing.T) {
	_, nodes := sampleCFA(t)
	n1, n2 := nodes[1], nodes[2]

	p0 := NewVariablePrecision(LocationScope)
	inc1 := Increment{}
	inc1.Add(n1, x)
	p1 := p0.WithIncrement(inc1)

	inc2 := Increment{}
	inc2.Add(n1, y)
	inc2.Add(n2, y)
	p2 := p1.WithIncrement(inc2)

	if !p1.Includes(p0) || !p2.Includes(p1) || !p2.Includes(p0) {
		t.Error("Precision shrank after refinement")
	}
	if p1.Includes(p2) {
		t.Error("Smaller precision includes larger precision")
	}
	if p0.Size() != 0 || p1.Size() != 1 || p2.Size() != 3 {
		t.Errorf("Unexpected sizes: %d, %d, %d", p0.Size(), p1.Size(), p2.Size())
	}
	if !p2.IsTracking(n1, x) || !p2.IsTracking(n1, y) || p2.IsTracking(n2, x) {
		t.Error("Unexpected tracked locations:", p2)
	}

	// Refining with an already included increment does not change anything.
	if !p2.WithIncrement(inc1).Equal(p2) {
		t.Error("Re-applying an increment changed the precision")
	}
}

func TestFunctionScope(t *testing.T) {
	_, nodes := sampleCFA(t)
	inc := Increment{}
	inc.Add(nodes[1], x)

	p := NewVariablePrecision(FunctionScope).WithIncrement(inc)
	for _, n := range nodes {
		if !p.IsTracking(n, x) {
			t.Errorf("x should be tracked at %s", n)
		}
	}
}

func TestJoin(t *testing.T) {
	_, nodes := sampleCFA(t)
	i1, i2 := Increment{}, Increment{}
	i1.Add(nodes[1], x)
	i2.Add(nodes[1], y)

	p0 := NewVariablePrecision(LocationScope)
	joined := p0.WithIncrement(i1).Join(p0.WithIncrement(i2))
	if !joined.TrackedAt(nodes[1]).Equal(memloc.NewSet(x, y)) {
		t.Error("Join lost tracked locations:", joined)
	}
}

func TestCompositeReplace(t *testing.T) {
	_, nodes := sampleCFA(t)
	inc := Increment{}
	inc.Add(nodes[1], x)

	c := NewComposite(LocationPrecision{}, NewVariablePrecision(LocationScope))
	refined := c.Replace(c.Value().WithIncrement(inc))

	if _, ok := refined.Get(LocationKind); !ok {
		t.Error("Replacing the value precision dropped the location precision")
	}
	if refined.Value().Size() != 1 {
		t.Error("Value precision was not replaced:", refined)
	}
	if c.Value().Size() != 0 {
		t.Error("Replace mutated the original composite")
	}
}

func TestParseScope(t *testing.T) {
	for name, expected := range map[string]Scope{
		"":         LocationScope,
		"location": LocationScope,
		"function": FunctionScope,
	} {
		if s, err := ParseScope(name); err != nil || s != expected {
			t.Errorf("ParseScope(%q) = %v, %v", name, s, err)
		}
	}
	if _, err := ParseScope("global"); err == nil {
		t.Error("Expected an error for an unknown scope")
	}
}
