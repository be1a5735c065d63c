// Package refinement implements the refinement step of counterexample-guided
// abstraction refinement for the explicit-value analysis.
//
// Given a reached set containing target states, the refiner extracts the
// error paths leading to them and checks whether any of them is feasible.
// Infeasible paths are interpolated, the interpolants are turned into a
// precision increment, and the ARG is pruned below a refinement root so that
// exploration resumes with the refined precision.
package refinement

import (
	"context"
	"fmt"
	"sort"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/precision"
	"github.com/cs-au-dk/cegar/analysis/value"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Outcome describes the result of a refinement.
type Outcome int

const (
	// Refined means the precision was strengthened and the ARG pruned.
	Refined Outcome = iota
	// Counterexample means a feasible error path was found. The reached set
	// is unchanged.
	Counterexample
	// NoProgress means no precision increment could be derived. The reached
	// set is unchanged.
	NoProgress
)

func (o Outcome) String() string {
	switch o {
	case Refined:
		return "refined"
	case Counterexample:
		return "counterexample"
	case NoProgress:
		return "no progress"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result of a refinement.
type Result struct {
	Outcome Outcome
	// Counterexample is the feasible error path, if one was found.
	Counterexample *arg.Path
	// Root is the state below which the ARG was pruned.
	Root *arg.State
	// Increment is the union of the increments of every refined path.
	Increment precision.Increment
	// Precision is the precision installed at the refinement root.
	Precision precision.VariablePrecision
}

// Progress checks whether the refinement changed the reached set.
func (r Result) Progress() bool {
	return r.Outcome == Refined
}

// Refiner strengthens the precision of a reached set containing target
// states, or reports a feasible counterexample.
type Refiner interface {
	Refine(ctx context.Context, reached *arg.ReachedSet) (Result, error)
}

// FeasibilityOracle replays edge sequences, optionally under a precision.
type FeasibilityOracle interface {
	Check(ctx context.Context, edges []*cfa.Edge, init value.State, prec *precision.VariablePrecision) (Feasibility, error)
	IsFeasible(ctx context.Context, path arg.Path, prec *precision.VariablePrecision) (bool, value.State, error)
}

// PathInterpolation computes the interpolants of an infeasible error path.
type PathInterpolation interface {
	Interpolate(ctx context.Context, path arg.Path) (Interpolants, error)
}

// ValueRefiner is the interpolation-based refiner of the explicit-value
// analysis. It keeps track of the counterexamples of earlier refinements to
// detect repeated paths and stalled progress.
type ValueRefiner struct {
	cfg            Config
	checker        FeasibilityOracle
	interpolator   PathInterpolation
	selector       RootSelector
	classification *VariableClassification
	export         exporter
	stats          *Statistics

	*history
}

// history is the progress of earlier refinement rounds. Refiners of the same
// verification run may share it.
type history struct {
	round int
	// Signatures of all error paths refined in earlier rounds.
	seen map[uint32]bool
	// Progress of the previous round, for stall detection.
	hasLast    bool
	lastSig    uint32
	lastSize   int
	forceEager bool
}

var _ Refiner = (*ValueRefiner)(nil)

// New creates a refiner. The variable classification is only used by the
// relevance heuristic and may be nil otherwise. The statistics may be shared
// between refiners, and are allocated if nil.
func New(cfg Config, vc *VariableClassification, stats *Statistics) (*ValueRefiner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid refinement configuration")
	}
	if cfg.Relevance && vc == nil {
		return nil, errors.New("relevance heuristic requires a variable classification")
	}
	if stats == nil {
		stats = &Statistics{}
	}

	checker := NewFeasibilityChecker(stats)
	return &ValueRefiner{
		cfg:            cfg,
		checker:        checker,
		interpolator:   NewPathInterpolator(checker, cfg.Slicing, stats),
		selector:       RootSelector{Lazy: cfg.Lazy, AvoidAssumes: cfg.AvoidAssumes},
		classification: vc,
		export:         exporter{cfg.Export},
		stats:          stats,
		history:        &history{seen: make(map[uint32]bool)},
	}, nil
}

// ShareHistory makes the refiner continue from the rounds of o. Paths refined
// by either refiner then count as repeated for both, and a stall observed by
// one forces a non-lazy root in the other.
func (r *ValueRefiner) ShareHistory(o *ValueRefiner) {
	r.history = o.history
}

func (r *ValueRefiner) Stats() *Statistics {
	return r.stats
}

// Refine performs one refinement round over every target state of the
// reached set. Paths are considered in the configured order. The first
// feasible path is reported as a counterexample. The remaining paths are
// interpolated, unless a heuristic shows that the precision gathered in the
// round already rules them out.
//
// The reached set is only modified if the outcome is Refined. Errors,
// including cancellation of the context, leave it unchanged.
func (r *ValueRefiner) Refine(ctx context.Context, reached *arg.ReachedSet) (Result, error) {
	r.stats.TotalTime.Start()
	defer r.stats.TotalTime.Stop()

	targets := reached.Targets()
	if len(targets) == 0 {
		return Result{}, ErrNoTargets
	}
	r.stats.TargetsFound += len(targets)

	paths := make([]arg.Path, 0, len(targets))
	for _, t := range targets {
		p, err := reached.PathTo(t)
		if err != nil {
			return Result{}, err
		}
		paths = append(paths, p)
	}
	r.stats.PathsFound += len(paths)
	paths = OrderPaths(paths, r.cfg.Order())

	r.round++
	eager := r.forceEager || !r.cfg.Lazy

	var (
		roundInc = precision.Increment{}
		roots    []*arg.State
		sigs     []uint32
	)

	for idx, path := range paths {
		if err := interrupted(ctx, "refinement"); err != nil {
			return Result{}, err
		}
		if r.cfg.MaxPaths > 0 && len(roots) >= r.cfg.MaxPaths {
			break
		}

		full, err := r.checker.Check(ctx, path.Edges, value.Empty(), nil)
		if err != nil {
			return Result{}, err
		}
		if full.Feasible {
			log.WithField("target", path.Target().String()).Debug("Found feasible error path")
			cex := path
			return Result{Outcome: Counterexample, Counterexample: &cex}, nil
		}

		if len(roots) > 0 {
			skip, err := r.skip(ctx, path, full.FailingEdge, roundInc)
			if err != nil {
				return Result{}, err
			}
			if skip {
				continue
			}
		}

		itps, err := r.interpolator.Interpolate(ctx, path)
		if err != nil {
			return Result{}, err
		}
		r.stats.PathsInterpolated++
		r.export.interpolants(r.round, idx, path, itps)
		if r.cfg.Slicing && r.export.enabled() {
			name := fmt.Sprintf("round-%03d-path-%02d-deps.dot", r.round, idx)
			r.export.graph(name, BuildDependenceGraph(path.Edges, full.FailingEdge).ToDot())
		}

		inc, offset, err := BuildIncrement(path, itps, r.cfg.HardThreshold)
		if err != nil {
			return Result{}, err
		}

		sig := path.Signature()
		repeated := r.seen[sig]
		if repeated {
			r.stats.RepeatedCounterexamples++
		}
		sigs = append(sigs, sig)

		roots = append(roots, r.selector.Select(path, offset, inc, repeated, eager))
		roundInc.AddAll(inc)

		log.WithFields(log.Fields{
			"target":    path.Target().String(),
			"offset":    offset,
			"increment": inc.Size(),
			"repeated":  repeated,
		}).Debug("Interpolated error path")
	}

	if roundInc.IsEmpty() {
		log.Debug("Refinement made no progress")
		return Result{Outcome: NoProgress}, nil
	}

	root := CommonRoot(reached, roots)
	prec := reached.SubtreePrecision(root).WithIncrement(roundInc)

	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	roundSig := utils.HashCombine(sigs...)

	if r.export.enabled() {
		r.export.graph(fmt.Sprintf("round-%03d-arg.dot", r.round), reached.ToDot())
	}

	before := reached.Size()
	isRoot := root == reached.Root()
	if err := r.apply(reached, root, prec, roundSig, sigs); err != nil {
		return Result{}, err
	}

	r.stats.Refinements++
	if size := roundInc.Size(); size > r.stats.MaxIncrement {
		r.stats.MaxIncrement = size
	}
	removed := before - reached.Size()
	if isRoot {
		removed++
	}
	r.stats.RemovedStates += removed

	log.WithFields(log.Fields{
		"root":      root.String(),
		"increment": roundInc.Size(),
		"precision": prec.Size(),
		"removed":   removed,
	}).Debug("Refined precision")

	return Result{
		Outcome:   Refined,
		Root:      root,
		Increment: roundInc,
		Precision: prec,
	}, nil
}

// apply prunes the ARG below root and installs prec. The progress of the
// round, including a forced eager restart, is only recorded once the reached
// set was changed. Two consecutive
// rounds over the same paths without growth of the precision stall, and
// force a non-lazy root in the next round.
func (r *ValueRefiner) apply(reached *arg.ReachedSet, root *arg.State, prec precision.VariablePrecision, roundSig uint32, sigs []uint32) error {
	stalled := r.hasLast && roundSig == r.lastSig && prec.Size() == r.lastSize

	if err := reached.RemoveSubtree(root, prec); err != nil {
		return err
	}

	if r.forceEager {
		r.stats.EagerRestarts++
	}
	r.forceEager = stalled
	if stalled {
		r.stats.StalledRefinements++
	}
	r.hasLast, r.lastSig, r.lastSize = true, roundSig, prec.Size()
	for _, sig := range sigs {
		r.seen[sig] = true
	}
	return nil
}

// skip decides whether the precision gathered in the current round already
// suffices to rule out the path.
func (r *ValueRefiner) skip(ctx context.Context, path arg.Path, failing int, roundInc precision.Increment) (bool, error) {
	targetPrec := path.Target().Precision().Value()

	if r.cfg.Incremental {
		prec := targetPrec.WithIncrement(roundInc)
		feasible, _, err := r.checker.IsFeasible(ctx, path, &prec)
		if err != nil {
			return false, err
		}
		if !feasible {
			r.stats.SkippedIncremental++
			return true, nil
		}
	}

	if r.cfg.Relevance && !roundInc.IsEmpty() {
		relevant := r.classification.Relevant(path.Edges, failing)
		if relevant.Empty() {
			return false, nil
		}

		covered := targetPrec.Variables().Union(roundInc.Variables())
		uncovered := 0
		relevant.ForEach(func(l memloc.MemoryLocation) {
			if !covered.Contains(l) {
				uncovered++
			}
		})
		if float64(uncovered)/float64(relevant.Size()) < r.cfg.RelevanceCutoff {
			r.stats.SkippedRelevance++
			return true, nil
		}
	}
	return false, nil
}
