package refinement

import (
	"context"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/precision"
	"github.com/cs-au-dk/cegar/analysis/value"

	"github.com/pkg/errors"
)

// Feasibility is the outcome of replaying a sequence of edges.
type Feasibility struct {
	Feasible bool
	// State is the last abstract state reached while replaying the edges.
	State value.State
	// FailingEdge is the index of the first edge that cannot be taken, or -1
	// if every edge can be taken.
	FailingEdge int
}

// FeasibilityChecker replays error paths with the explicit-value transfer.
type FeasibilityChecker struct {
	stats *Statistics
}

func NewFeasibilityChecker(stats *Statistics) *FeasibilityChecker {
	if stats == nil {
		stats = &Statistics{}
	}
	return &FeasibilityChecker{stats}
}

// Check replays the edges starting from init. If prec is non-nil every
// intermediate state is restricted to the memory locations tracked at its
// location, otherwise all values are tracked.
func (c *FeasibilityChecker) Check(
	ctx context.Context,
	edges []*cfa.Edge,
	init value.State,
	prec *precision.VariablePrecision,
) (Feasibility, error) {
	if err := interrupted(ctx, "feasibility check"); err != nil {
		return Feasibility{}, err
	}

	c.stats.FeasibilityChecks++
	c.stats.FeasibilityTime.Start()
	defer c.stats.FeasibilityTime.Stop()

	s := init
	for i, e := range edges {
		next, ok, err := value.Post(s, e)
		if err != nil {
			return Feasibility{}, errors.Wrapf(err, "replaying %s", e)
		}
		if !ok {
			return Feasibility{false, s, i}, nil
		}
		if prec != nil {
			next = next.Restrict(func(l memloc.MemoryLocation) bool {
				return prec.IsTracking(e.Succ, l)
			})
		}
		s = next
	}
	return Feasibility{true, s, -1}, nil
}

// IsFeasible checks whether the error path can be executed from the
// initial state of the program.
func (c *FeasibilityChecker) IsFeasible(
	ctx context.Context,
	path arg.Path,
	prec *precision.VariablePrecision,
) (bool, value.State, error) {
	res, err := c.Check(ctx, path.Edges, value.Empty(), prec)
	return res.Feasible, res.State, err
}
