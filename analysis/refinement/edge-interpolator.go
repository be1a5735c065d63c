package refinement

import (
	"context"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/interpolant"
	"github.com/cs-au-dk/cegar/analysis/value"

	"github.com/pkg/errors"
)

// EdgeInterpolator derives the interpolant after a single edge of an
// infeasible path.
type EdgeInterpolator struct {
	checker *FeasibilityChecker
	stats   *Statistics
}

func NewEdgeInterpolator(checker *FeasibilityChecker, stats *Statistics) *EdgeInterpolator {
	if stats == nil {
		stats = &Statistics{}
	}
	return &EdgeInterpolator{checker, stats}
}

// Interpolate computes the interpolant holding after edges[i], given the
// interpolant input holding before it.
//
// The strongest postcondition of input along the edge is weakened by
// forgetting memory locations, in order, as long as the remaining edges stay
// infeasible. The result is TRUE if the remaining edges are feasible from
// the postcondition or infeasible on their own, and FALSE if the edge
// cannot be taken.
func (ei *EdgeInterpolator) Interpolate(
	ctx context.Context,
	edges []*cfa.Edge,
	i int,
	input interpolant.Interpolant,
) (interpolant.Interpolant, error) {
	if input.IsFalse() {
		return interpolant.False, nil
	}

	e := edges[i]
	succ, ok, err := value.Post(input.ToState(), e)
	if err != nil {
		return interpolant.False, errors.Wrapf(err, "interpolating at %s", e)
	}
	if !ok {
		return interpolant.False, nil
	}
	if succ.Size() == 0 {
		return interpolant.True(), nil
	}

	suffix := edges[i+1:]
	if res, err := ei.checker.Check(ctx, suffix, succ, nil); err != nil {
		return interpolant.False, err
	} else if res.Feasible {
		return interpolant.True(), nil
	}
	if res, err := ei.checker.Check(ctx, suffix, value.Empty(), nil); err != nil {
		return interpolant.False, err
	} else if !res.Feasible {
		return interpolant.True(), nil
	}

	for _, l := range succ.Sorted() {
		if err := interrupted(ctx, "interpolation"); err != nil {
			return interpolant.False, err
		}

		ei.stats.InterpolationQueries++
		weaker := succ.Forget(l)
		res, err := ei.checker.Check(ctx, suffix, weaker, nil)
		if err != nil {
			return interpolant.False, err
		}
		if !res.Feasible {
			succ = weaker
		}
	}

	itp := interpolant.FromState(succ)
	if e.Kind == cfa.FunctionReturnEdge {
		itp = itp.ClearScope(e.Callee.Name)
	}
	return itp, nil
}
