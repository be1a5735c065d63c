package refinement

import (
	"context"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/interpolant"
	"github.com/cs-au-dk/cegar/analysis/value"
)

// Interpolants holds one interpolant per edge of an error path. The
// interpolant at index i holds after the i-th edge.
type Interpolants []interpolant.Interpolant

// Offset is the index of the first interpolant that is neither TRUE nor
// FALSE. The second result is false if FALSE is reached first, or if no
// such interpolant exists.
func (itps Interpolants) Offset() (int, bool) {
	for i, itp := range itps {
		switch {
		case itp.IsFalse():
			return -1, false
		case !itp.IsTrue():
			return i, true
		}
	}
	return -1, false
}

// FirstFalse is the index of the first FALSE interpolant, or -1.
func (itps Interpolants) FirstFalse() int {
	for i, itp := range itps {
		if itp.IsFalse() {
			return i
		}
	}
	return -1
}

func (itps Interpolants) String() string {
	strs := make([]string, len(itps))
	for i, itp := range itps {
		strs[i] = itp.String()
	}
	return strings.Join(strs, "\n")
}

// PathInterpolator computes the interpolants of a whole error path.
type PathInterpolator struct {
	edge    *EdgeInterpolator
	checker *FeasibilityChecker
	slicing bool
	stats   *Statistics
}

func NewPathInterpolator(checker *FeasibilityChecker, slicing bool, stats *Statistics) *PathInterpolator {
	if stats == nil {
		stats = &Statistics{}
	}
	return &PathInterpolator{
		edge:    NewEdgeInterpolator(checker, stats),
		checker: checker,
		slicing: slicing,
		stats:   stats,
	}
}

// Interpolate computes the interpolants of an infeasible error path,
// starting from TRUE. Once an interpolant is FALSE all following
// interpolants are FALSE.
func (pi *PathInterpolator) Interpolate(ctx context.Context, path arg.Path) (Interpolants, error) {
	pi.stats.InterpolationTime.Start()
	defer pi.stats.InterpolationTime.Stop()

	edges := path.Edges
	if pi.slicing {
		var err error
		if edges, err = pi.slice(ctx, edges); err != nil {
			return nil, err
		}
	}

	itps := make(Interpolants, len(edges))
	itp := interpolant.True()
	for i := range edges {
		if itp.IsFalse() {
			itps[i] = interpolant.False
			continue
		}

		var err error
		if itp, err = pi.edge.Interpolate(ctx, edges, i, itp); err != nil {
			return nil, err
		}
		itps[i] = itp
	}
	return itps, nil
}

// slice replaces the edges the failing assumption of the path does not
// depend on by blank edges.
func (pi *PathInterpolator) slice(ctx context.Context, edges []*cfa.Edge) ([]*cfa.Edge, error) {
	res, err := pi.checker.Check(ctx, edges, value.Empty(), nil)
	if err != nil || res.Feasible {
		return edges, err
	}

	g := BuildDependenceGraph(edges, res.FailingEdge)
	sliced := make([]*cfa.Edge, len(edges))
	for i, e := range edges {
		if g.InSlice(i) || i > res.FailingEdge ||
			e.Kind == cfa.FunctionCallEdge || e.Kind == cfa.FunctionReturnEdge {
			sliced[i] = e
		} else {
			sliced[i] = &cfa.Edge{Kind: cfa.BlankEdge, Pred: e.Pred, Succ: e.Succ}
			pi.stats.SlicedEdges++
		}
	}
	return sliced, nil
}
