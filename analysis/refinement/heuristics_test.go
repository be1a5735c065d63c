package refinement

import (
	"go/token"
	"strings"
	"testing"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/precision"

	"github.com/sebdah/goldie/v2"
)

// ladder creates a chain of locations, each with an edge to its own error
// location. The returned edges lead along the chain and into the errors.
func ladder(t *testing.T, length int) (*cfa.CFA, []*cfa.Edge, []*cfa.Edge) {
	b := cfa.NewBuilder()
	main := b.Function("main")

	var along, errs []*cfa.Edge
	n := main.Entry()
	for i := 0; i < length; i++ {
		errs = append(errs, main.Blank(n, main.ErrorNode()))
		next := main.Node()
		along = append(along, main.Blank(n, next))
		n = next
	}
	main.Return(n, nil)
	return build(t, b), along, errs
}

func TestOrderPaths(t *testing.T) {
	c, along, errs := ladder(t, 5)
	reached := arg.New(c, emptyPrecision())

	var paths []arg.Path
	s := reached.Root()
	for i := 0; i < len(errs); i++ {
		p, err := reached.PathTo(chain(reached, s, errs[i]))
		if err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
		s = chain(reached, s, along[i])
	}
	// Present the paths longest first.
	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}

	lengths := func(ps []arg.Path) (res []int) {
		for _, p := range ps {
			res = append(res, p.Len())
		}
		return
	}

	for _, test := range []struct {
		order PathOrder
		exp   []int
	}{
		{SizeAscending, []int{1, 2, 3, 4, 5}},
		{Zigzag, []int{1, 5, 2, 4, 3}},
	} {
		t.Run(test.order.String(), func(t *testing.T) {
			got := lengths(OrderPaths(paths, test.order))
			if len(got) != len(test.exp) {
				t.Fatalf("Expected %v, got %v", test.exp, got)
			}
			for i := range got {
				if got[i] != test.exp[i] {
					t.Fatalf("Expected %v, got %v", test.exp, got)
				}
			}
		})
	}

	if paths[0].Len() != 5 {
		t.Error("OrderPaths modified its input")
	}
}

func TestOrderPathsTieBreak(t *testing.T) {
	c, _, errs := ladder(t, 1)
	reached := arg.New(c, emptyPrecision())
	t1 := chain(reached, reached.Root(), errs[0])
	t2 := chain(reached, reached.Root(), errs[0])

	p1, _ := reached.PathTo(t1)
	p2, _ := reached.PathTo(t2)
	sorted := OrderPaths([]arg.Path{p2, p1}, SizeAscending)
	if sorted[0].Target() != t1 || sorted[1].Target() != t2 {
		t.Error("Paths of equal length should be ordered by target")
	}
}

func TestCommonRoot(t *testing.T) {
	c, along, errs := ladder(t, 3)
	reached := arg.New(c, emptyPrecision())

	root := reached.Root()
	s1 := chain(reached, root, along[0])
	s2 := chain(reached, s1, along[1])
	t1 := chain(reached, s1, errs[1])
	t2 := chain(reached, s2, errs[2])

	for _, test := range []struct {
		name  string
		roots []*arg.State
		exp   *arg.State
	}{
		{"single", []*arg.State{t2}, t2},
		{"duplicates", []*arg.State{t1, t1}, t1},
		{"siblings", []*arg.State{t1, s2}, s1},
		{"ancestor", []*arg.State{s1, t2}, s1},
		{"cousins", []*arg.State{t1, t2}, s1},
		{"ARG root with single child", []*arg.State{root, t2}, s1},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := CommonRoot(reached, test.roots); got != test.exp {
				t.Errorf("Expected %v, got %v", test.exp, got)
			}
		})
	}

	// With more than one child the ARG root itself is the common root.
	t0 := chain(reached, root, errs[0])
	if got := CommonRoot(reached, []*arg.State{t0, t2}); got != root {
		t.Errorf("Expected %v, got %v", root, got)
	}
}

func TestRootSelector(t *testing.T) {
	p := assumedValueProgram(t)
	_, path := pathAlong(t, p)
	inc := precision.Increment{}
	inc.Add(path.States[2].Node(), x)

	for _, test := range []struct {
		name     string
		selector RootSelector
		repeated bool
		eager    bool
		exp      int
	}{
		{"non-lazy", RootSelector{}, false, false, 1},
		{"lazy", RootSelector{Lazy: true}, false, false, 2},
		{"lazy eager", RootSelector{Lazy: true}, false, true, 1},
		{"lazy repeated", RootSelector{Lazy: true}, true, false, 1},
		{"avoid assumes", RootSelector{Lazy: true, AvoidAssumes: true}, false, false, 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := test.selector.Select(path, 1, inc, test.repeated, test.eager); got != path.States[test.exp] {
				t.Errorf("Expected %v, got %v", path.States[test.exp], got)
			}
		})
	}

	// Without an assignment of a tracked variable the offset is kept.
	other := precision.Increment{}
	other.Add(path.States[2].Node(), y)
	rs := RootSelector{Lazy: true, AvoidAssumes: true}
	if got := rs.Select(path, 1, other, false, false); got != path.States[2] {
		t.Errorf("Expected %v, got %v", path.States[2], got)
	}
}

// x := 0; y := x + 1; z := 3; if y == 2 { error }
func classificationProgram(t *testing.T) program {
	b := cfa.NewBuilder()
	main := b.Function("main")
	n1, n2, n3, n4, err := main.Node(), main.Node(), main.Node(), main.Node(), main.ErrorNode()
	e0 := main.Declare(main.Entry(), n1, "x", cfa.Int(0))
	e1 := main.Declare(n1, n2, "y", cfa.Bin(token.ADD, main.Var("x"), cfa.Int(1)))
	e2 := main.Declare(n2, n3, "z", cfa.Int(3))
	e3, _ := main.Branch(n3, cfa.Eq(main.Var("y"), cfa.Int(2)), err, n4)
	main.Return(n4, nil)
	return program{build(t, b), []*cfa.Edge{e0, e1, e2, e3}}
}

func TestVariableClassification(t *testing.T) {
	p := classificationProgram(t)
	vc := NewVariableClassification(p.cfa)

	if !vc.SameClass(x, y) {
		t.Error("x and y should share a class")
	}
	if vc.SameClass(x, z) || vc.SameClass(y, z) {
		t.Error("z should be in a class of its own")
	}

	relevant := vc.Relevant(p.edges, 3)
	if !relevant.Equal(memloc.NewSet(x, y)) {
		t.Errorf("Expected relevant locations {x, y}, got %v", relevant)
	}

	found := false
	for _, part := range vc.Partitions() {
		if part.Contains(z) {
			found = true
			if part.Size() != 1 {
				t.Errorf("Expected {z}, got %v", part)
			}
		}
	}
	if !found {
		t.Error("z is missing from the partitions")
	}
}

func TestDependenceGraph(t *testing.T) {
	p := classificationProgram(t)
	g := BuildDependenceGraph(p.edges, 3)

	exp := []int{0, 1, 3}
	got := g.Slice()
	if len(got) != len(exp) {
		t.Fatalf("Expected slice %v, got %v", exp, got)
	}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("Expected slice %v, got %v", exp, got)
		}
	}
	if g.InSlice(2) {
		t.Error("The declaration of z should not be in the slice")
	}

	// The assumption depends on y, which depends on x.
	if deps := g.Graph().Edges(3); len(deps) != 1 || deps[0] != 1 {
		t.Errorf("Expected edge 3 to depend on edge 1, got %v", deps)
	}
	if deps := g.Graph().Edges(1); len(deps) != 1 || deps[0] != 0 {
		t.Errorf("Expected edge 1 to depend on edge 0, got %v", deps)
	}

	if dg := g.ToDot(); len(dg.Nodes) != 3 || len(dg.Edges) != 2 {
		t.Errorf("Expected 3 nodes and 2 edges, got %d and %d", len(dg.Nodes), len(dg.Edges))
	}
}

func TestDependenceGraphAssumptions(t *testing.T) {
	// The first assumption constrains x, which the final one reads.
	p := assumedValueProgram(t)
	g := BuildDependenceGraph(p.edges, 2)
	for i := range p.edges {
		if !g.InSlice(i) {
			t.Errorf("Edge %d should be in the slice", i)
		}
	}
}

func TestStatisticsReport(t *testing.T) {
	stats := &Statistics{
		Refinements:             4,
		TargetsFound:            7,
		PathsFound:              8,
		PathsInterpolated:       6,
		SkippedIncremental:      1,
		SkippedRelevance:        1,
		RepeatedCounterexamples: 2,
		StalledRefinements:      1,
		EagerRestarts:           1,
		FeasibilityChecks:       31,
		InterpolationQueries:    12,
		SlicedEdges:             3,
		MaxIncrement:            5,
		RemovedStates:           42,
	}

	sb := &strings.Builder{}
	stats.Print(sb)

	g := goldie.New(t)
	g.Assert(t, "statistics", []byte(sb.String()))
}
