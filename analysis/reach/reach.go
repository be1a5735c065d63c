// Package reach computes the reachable abstract states of a program with the
// explicit-value analysis, until the fixed point or the first target state.
package reach

import (
	"context"
	"io"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/stats"
	"github.com/cs-au-dk/cegar/analysis/value"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrRecursion is reported for recursive calls, which are not supported.
	ErrRecursion = errors.New("recursive call")
	// ErrStateLimit is reported when the reached set grows beyond the
	// configured bound.
	ErrStateLimit = errors.New("state limit exceeded")
)

// Status describes why the reachability analysis stopped.
type Status int

const (
	// Complete means the waitlist is exhausted without reaching a target.
	Complete Status = iota
	// TargetFound means a target state was added to the reached set.
	TargetFound
)

func (s Status) String() string {
	if s == TargetFound {
		return "target found"
	}
	return "complete"
}

// Options bound the exploration.
type Options struct {
	// MaxStates bounds the size of the reached set. Zero means unbounded.
	MaxStates int
}

// Statistics collects counters over all runs of the analysis.
type Statistics struct {
	Runs        int
	Expanded    int
	Covered     int
	MaxReached  int
	Transfer    utils.Timer
	Exploration utils.Timer
}

func (*Statistics) Name() string {
	return "Reachability analysis"
}

func (s *Statistics) Print(w io.Writer) {
	stats.Line(w, "Runs", s.Runs)
	stats.Line(w, "Expanded states", s.Expanded)
	stats.Line(w, "Covered states", s.Covered)
	stats.Line(w, "Largest reached set", s.MaxReached)
	stats.Line(w, "Time for exploration", &s.Exploration)
	stats.Line(w, "Time for transfer", &s.Transfer)
}

// Analysis runs the fixed-point loop over a reached set.
type Analysis struct {
	Options
	Stats Statistics
}

func New(opts Options) *Analysis {
	return &Analysis{Options: opts}
}

// Successors computes the abstract successors of a state along each
// leaving edge of its location. Each successor is restricted to the
// memory locations tracked at its location.
func Successors(s *arg.State) (succs []Successor, err error) {
	for _, e := range s.Node().Leaving() {
		stack := s.CallStack()
		switch e.Kind {
		case cfa.FunctionCallEdge:
			if e.Callee.Name == s.Node().Function() || stack.Contains(e.Callee.Name) {
				return nil, errors.Wrapf(ErrRecursion, "%s", e)
			}
			stack = stack.Push(e.Callee.Name, e.ReturnSite)
		case cfa.FunctionReturnEdge:
			if stack.ReturnSite() != e.ReturnSite {
				continue
			}
			stack = stack.Pop()
		}

		val, ok, err := value.Post(s.Value(), e)
		if err != nil {
			return nil, errors.Wrapf(err, "computing successor of %s along %s", s, e)
		}
		if !ok {
			continue
		}

		prec := s.Precision().Value()
		val = val.Restrict(func(l memloc.MemoryLocation) bool {
			return prec.IsTracking(e.Succ, l)
		})
		succs = append(succs, Successor{e, stack, val})
	}
	return
}

// Successor is an abstract successor that is not yet part of the ARG.
type Successor struct {
	Edge  *cfa.Edge
	Stack *arg.CallStack
	Value value.State
}

// Run expands states from the waitlist until it is exhausted or a target
// state is found. The context is checked before every expansion.
func (a *Analysis) Run(ctx context.Context, reached *arg.ReachedSet) (Status, error) {
	a.Stats.Runs++
	a.Stats.Exploration.Start()
	defer a.Stats.Exploration.Stop()

	for reached.HasWaitingState() {
		if err := ctx.Err(); err != nil {
			return Complete, errors.Wrap(err, "reachability analysis interrupted")
		}
		if a.MaxStates > 0 && reached.Size() > a.MaxStates {
			return Complete, errors.Wrapf(ErrStateLimit, "%d states", reached.Size())
		}

		s := reached.PopFromWaitlist()
		a.Stats.Expanded++

		a.Stats.Transfer.Start()
		succs, err := Successors(s)
		a.Stats.Transfer.Stop()
		if err != nil {
			return Complete, err
		}

		found := false
		for _, succ := range succs {
			// Target states are never covered.
			if !succ.Edge.Succ.IsError() {
				if by, covered := reached.FindCovering(succ.Edge.Succ, succ.Stack, succ.Value); covered {
					reached.AddCovered(s, succ.Edge, succ.Stack, succ.Value, by)
					a.Stats.Covered++
					continue
				}
			}

			next := reached.Add(s, succ.Edge, succ.Stack, succ.Value)
			if next.IsTarget() {
				log.WithFields(log.Fields{
					"state":   next.String(),
					"waiting": reached.WaitlistSize(),
				}).Debug("Reached target state")
				found = true
			}
		}

		if reached.Size() > a.Stats.MaxReached {
			a.Stats.MaxReached = reached.Size()
		}
		if found {
			return TargetFound, nil
		}
	}

	return Complete, nil
}
