package refinement

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/utils/dot"
	"github.com/cs-au-dk/cegar/utils/graph"

	uf "github.com/spakin/disjoint"
	"golang.org/x/tools/container/intsets"
)

// VariableClassification partitions the memory locations of a CFA into
// classes of locations that may flow into each other. Two locations are in
// the same class if some edge mentions both of them.
type VariableClassification struct {
	elements map[memloc.MemoryLocation]*uf.Element
}

func NewVariableClassification(c *cfa.CFA) *VariableClassification {
	vc := &VariableClassification{
		elements: make(map[memloc.MemoryLocation]*uf.Element),
	}
	for _, g := range c.Globals() {
		vc.element(g)
	}
	for _, e := range c.Edges() {
		vc.classify(e)
	}
	return vc
}

func (vc *VariableClassification) element(l memloc.MemoryLocation) *uf.Element {
	if el, ok := vc.elements[l]; ok {
		return el
	}
	el := uf.NewElement()
	el.Data = l
	vc.elements[l] = el
	return el
}

func (vc *VariableClassification) classify(e *cfa.Edge) {
	switch e.Kind {
	case cfa.MultiEdge:
		for _, inner := range e.Edges {
			vc.classify(inner)
		}
		return
	case cfa.FunctionCallEdge:
		// Every parameter only joins the class of its own argument.
		for i, p := range e.Callee.Params {
			pe := vc.element(p)
			cfa.Vars(e.Args[i]).ForEach(func(l memloc.MemoryLocation) {
				uf.Union(pe, vc.element(l))
			})
		}
		return
	}

	var first *uf.Element
	e.AssignedVariables().Union(e.UsedVariables()).ForEach(func(l memloc.MemoryLocation) {
		el := vc.element(l)
		if first == nil {
			first = el
		} else {
			uf.Union(first, el)
		}
	})
}

// SameClass checks whether two memory locations belong to the same class.
// Locations unknown to the classification are only related to themselves.
func (vc *VariableClassification) SameClass(a, b memloc.MemoryLocation) bool {
	if a.Equal(b) {
		return true
	}
	ea, oka := vc.elements[a]
	eb, okb := vc.elements[b]
	return oka && okb && ea.Find() == eb.Find()
}

// Partitions lists all classes, ordered by their smallest member.
func (vc *VariableClassification) Partitions() []memloc.Set {
	classes := map[*uf.Element]memloc.Set{}
	for l, el := range vc.elements {
		rep := el.Find()
		set, ok := classes[rep]
		if !ok {
			set = memloc.NewSet()
		}
		classes[rep] = set.Add(l)
	}

	res := make([]memloc.Set, 0, len(classes))
	for _, set := range classes {
		res = append(res, set)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Sorted()[0].Compare(res[j].Sorted()[0]) < 0
	})
	return res
}

// Relevant collects the memory locations sharing a class with a location
// read by the failing edge of a path.
func (vc *VariableClassification) Relevant(edges []*cfa.Edge, failing int) memloc.Set {
	res := memloc.NewSet()
	if failing < 0 || failing >= len(edges) {
		return res
	}

	reps := map[*uf.Element]bool{}
	edges[failing].UsedVariables().ForEach(func(l memloc.MemoryLocation) {
		res = res.Add(l)
		if el, ok := vc.elements[l]; ok {
			reps[el.Find()] = true
		}
	})
	for l, el := range vc.elements {
		if reps[el.Find()] {
			res = res.Add(l)
		}
	}
	return res
}

// DependenceGraph is the backward slice of a path prefix with respect to
// the memory locations read by one of its edges. Nodes are edge indices,
// and every node points to the earlier edges it depends on.
type DependenceGraph struct {
	edges []*cfa.Edge
	from  int
	slice intsets.Sparse
	deps  map[int][]int
}

// BuildDependenceGraph slices edges[:from+1] backwards, starting from the
// locations read by edges[from]. An edge is in the slice if it writes a
// location that is still needed, or if it is an assumption reading one.
func BuildDependenceGraph(edges []*cfa.Edge, from int) *DependenceGraph {
	g := &DependenceGraph{
		edges: edges,
		from:  from,
		deps:  make(map[int][]int),
	}
	if from < 0 || from >= len(edges) {
		return g
	}

	// Maps every needed location to the edge that needs it.
	needed := map[memloc.MemoryLocation]int{}
	need := func(i int, ls memloc.Set) {
		ls.ForEach(func(l memloc.MemoryLocation) {
			if _, ok := needed[l]; !ok {
				needed[l] = i
			}
		})
	}

	g.slice.Insert(from)
	need(from, g.edges[from].UsedVariables())

	for i := from - 1; i >= 0; i-- {
		e := g.edges[i]

		consumers := map[int]bool{}
		e.AssignedVariables().ForEach(func(l memloc.MemoryLocation) {
			if j, ok := needed[l]; ok {
				consumers[j] = true
				delete(needed, l)
			}
		})

		if len(consumers) == 0 && e.IsAssume() {
			e.UsedVariables().ForEach(func(l memloc.MemoryLocation) {
				if j, ok := needed[l]; ok {
					consumers[j] = true
				}
			})
		}

		if len(consumers) == 0 {
			continue
		}

		g.slice.Insert(i)
		for j := range consumers {
			g.deps[j] = append(g.deps[j], i)
		}
		need(i, e.UsedVariables())
	}

	for j := range g.deps {
		sort.Ints(g.deps[j])
	}
	return g
}

// InSlice checks whether the edge at index i is part of the slice.
func (g *DependenceGraph) InSlice(i int) bool {
	return g.slice.Has(i)
}

// Slice lists the indices of the edges in the slice in ascending order.
func (g *DependenceGraph) Slice() []int {
	return g.slice.AppendTo(nil)
}

func (g *DependenceGraph) Size() int {
	return g.slice.Len()
}

func (g *DependenceGraph) Graph() graph.Graph[int] {
	return graph.OfHashable(func(i int) []int {
		return g.deps[i]
	})
}

func (g *DependenceGraph) ToDot() *dot.DotGraph {
	dg := g.Graph().ToDotGraph(g.Slice(), &graph.VisualizationConfig[int]{
		NodeAttrs: func(i int) (string, dot.DotAttrs) {
			attrs := dot.DotAttrs{
				"label": fmt.Sprintf("%d: %s", i, g.edges[i].Label()),
			}
			if i == g.from {
				attrs["fillcolor"] = "tomato"
			}
			return fmt.Sprintf("E%d", i), attrs
		},
	})
	dg.Title = "Dependences"
	return dg
}
