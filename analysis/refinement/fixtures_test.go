package refinement

import (
	"context"
	"go/token"
	"testing"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/precision"
	"github.com/cs-au-dk/cegar/analysis/reach"
	"github.com/cs-au-dk/cegar/analysis/value"
)

var (
	x = memloc.Local("main", "x")
	y = memloc.Local("main", "y")
	z = memloc.Local("main", "z")
)

// program is a CFA together with the edges of its interesting path.
type program struct {
	cfa   *cfa.CFA
	edges []*cfa.Edge
}

func build(t *testing.T, b *cfa.Builder) *cfa.CFA {
	t.Helper()
	c, err := b.Build("main")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// x := 0; if x == 1 { error }
func knownValueProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2, err := main.Node(), main.Node(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "x", cfa.Int(0))
	e1, _ := main.Branch(n1, cfa.Eq(main.Var("x"), cfa.Int(1)), err, n2)
	main.Return(n2, nil)
	return program{build(t, b), []*cfa.Edge{e0, e1}}
}

// x := 1; if x == 1 { error }
func reachableErrorProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2, err := main.Node(), main.Node(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "x", cfa.Int(1))
	e1, _ := main.Branch(n1, cfa.Eq(main.Var("x"), cfa.Int(1)), err, n2)
	main.Return(n2, nil)
	return program{build(t, b), []*cfa.Edge{e0, e1}}
}

// x := 0; x = 1; if x == 0 { error }
func reassignedProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2, n3, err := main.Node(), main.Node(), main.Node(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "x", cfa.Int(0))
	e1 := main.Assign(n1, n2, "x", cfa.Int(1))
	e2, _ := main.Branch(n2, cfa.Eq(main.Var("x"), cfa.Int(0)), err, n3)
	main.Return(n3, nil)
	return program{build(t, b), []*cfa.Edge{e0, e1, e2}}
}

// x := 0; if x == 1 { error }; if x == 2 { error }
func twoTargetsProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2 := main.Node(), main.Node()
	err1, err2 := main.ErrorNode(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "x", cfa.Int(0))
	main.Assume(n1, err1, cfa.Eq(main.Var("x"), cfa.Int(1)), true)
	main.Assume(n1, err2, cfa.Eq(main.Var("x"), cfa.Int(2)), true)
	main.Assume(n1, n2, cfa.Bin(token.LAND,
		cfa.Not(cfa.Eq(main.Var("x"), cfa.Int(1))),
		cfa.Not(cfa.Eq(main.Var("x"), cfa.Int(2)))), true)
	main.Return(n2, nil)
	return program{build(t, b), []*cfa.Edge{e0}}
}

// y := 5; x := 0; if x == 1 { error }
func irrelevantPrefixProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2, n3, err := main.Node(), main.Node(), main.Node(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "y", cfa.Int(5))
	e1 := main.Declare(n1, n2, "x", cfa.Int(0))
	e2, _ := main.Branch(n2, cfa.Eq(main.Var("x"), cfa.Int(1)), err, n3)
	main.Return(n3, nil)
	return program{build(t, b), []*cfa.Edge{e0, e1, e2}}
}

// var x; if x == 0 { if x == 1 { error } }
func assumedValueProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2, n3, err := main.Node(), main.Node(), main.Node(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "x", cfa.Nondet{})
	e1, _ := main.Branch(n1, cfa.Eq(main.Var("x"), cfa.Int(0)), n2, n3)
	e2, _ := main.Branch(n2, cfa.Eq(main.Var("x"), cfa.Int(1)), err, n3)
	main.Return(n3, nil)
	return program{build(t, b), []*cfa.Edge{e0, e1, e2}}
}

// a := 1; r := f(a); if r == 2 { error }, where f(p) returns p
func callProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	f := b.Function("f", "p")
	ret := f.Return(f.Entry(), f.Var("p"))

	main := b.Function("main")
	n1, n2, n3, err := main.Node(), main.Node(), main.Node(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "a", cfa.Int(1))
	main.Local("r")
	call, back := main.Call(n1, n2, f.Function(), []cfa.Expr{main.Var("a")}, "r")
	e4, _ := main.Branch(n2, cfa.Eq(main.Var("r"), cfa.Int(2)), err, n3)
	main.Return(n3, nil)
	return program{build(t, b), []*cfa.Edge{e0, call, ret, back, e4}}
}

func emptyPrecision() precision.Composite {
	return precision.NewComposite(precision.NewVariablePrecision(precision.LocationScope))
}

// explore runs the reachability analysis with an empty precision until
// the first target is found.
func explore(t *testing.T, c *cfa.CFA) *arg.ReachedSet {
	t.Helper()
	reached := arg.New(c, emptyPrecision())
	status, err := reach.New(reach.Options{}).Run(context.Background(), reached)
	if err != nil {
		t.Fatal(err)
	}
	if status != reach.TargetFound {
		t.Fatal("Expected to find a target state")
	}
	return reached
}

// chain adds states along the given edges below parent, without
// consulting the transfer relation.
func chain(reached *arg.ReachedSet, parent *arg.State, edges ...*cfa.Edge) *arg.State {
	s := parent
	for _, e := range edges {
		s = reached.Add(s, e, nil, value.Empty())
	}
	return s
}

// pathAlong builds an ARG consisting of a single path along the edges.
func pathAlong(t *testing.T, p program) (*arg.ReachedSet, arg.Path) {
	t.Helper()
	reached := arg.New(p.cfa, emptyPrecision())
	path, err := reached.PathTo(chain(reached, reached.Root(), p.edges...))
	if err != nil {
		t.Fatal(err)
	}
	return reached, path
}

func singleTarget(t *testing.T, reached *arg.ReachedSet) arg.Path {
	t.Helper()
	targets := reached.Targets()
	if len(targets) != 1 {
		t.Fatalf("Expected a single target, found %d", len(targets))
	}
	path, err := reached.PathTo(targets[0])
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func newRefiner(t *testing.T, cfg Config, vc *VariableClassification) *ValueRefiner {
	t.Helper()
	r, err := New(cfg, vc, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
