// Package cegar drives counterexample-guided abstraction refinement of the
// explicit-value analysis: exploration and refinement alternate until the
// program is proven safe, a feasible counterexample is found, or refinement
// gives up.
package cegar

import (
	"context"
	"fmt"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/precision"
	"github.com/cs-au-dk/cegar/analysis/reach"
	"github.com/cs-au-dk/cegar/analysis/refinement"
	"github.com/cs-au-dk/cegar/analysis/stats"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Verdict int

const (
	Unknown Verdict = iota
	Safe
	Unsafe
)

var colorize = struct {
	Safe    func(...interface{}) string
	Unsafe  func(...interface{}) string
	Unknown func(...interface{}) string
}{
	Safe: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiGreen, color.Bold).SprintFunc())(is...)
	},
	Unsafe: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed, color.Bold).SprintFunc())(is...)
	},
	Unknown: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow, color.Bold).SprintFunc())(is...)
	},
}

// Name is the uncolored name of the verdict.
func (v Verdict) Name() string {
	switch v {
	case Safe:
		return "safe"
	case Unsafe:
		return "unsafe"
	}
	return "unknown"
}

func (v Verdict) String() string {
	name := strings.ToUpper(v.Name())
	switch v {
	case Safe:
		return colorize.Safe(name)
	case Unsafe:
		return colorize.Unsafe(name)
	}
	return colorize.Unknown(name)
}

// Result of a verification run.
type Result struct {
	Verdict Verdict
	// Counterexample is the feasible error path of an unsafe program.
	Counterexample *arg.Path
	// Reason explains an unknown verdict.
	Reason string
	// Reached is the final reached set.
	Reached     *arg.ReachedSet
	Refinements int
	Stats       *stats.Collector
}

func (r Result) String() string {
	switch r.Verdict {
	case Unsafe:
		return fmt.Sprintf("%s\nCounterexample:\n%s", r.Verdict, r.Counterexample)
	case Unknown:
		return fmt.Sprintf("%s (%s)", r.Verdict, r.Reason)
	}
	return r.Verdict.String()
}

// NewRefiner creates the refiner for a configuration. With a hard threshold
// a refiner without threshold is used as a fallback when the first one
// cannot make progress. Both refiners share the history of earlier rounds.
func NewRefiner(c *cfa.CFA, cfg refinement.Config, st *refinement.Statistics) (refinement.Refiner, error) {
	var vc *refinement.VariableClassification
	if cfg.Relevance {
		vc = refinement.NewVariableClassification(c)
	}

	primary, err := refinement.New(cfg, vc, st)
	if err != nil {
		return nil, err
	}
	if cfg.HardThreshold == 0 {
		return primary, nil
	}

	fallbackCfg := cfg
	fallbackCfg.HardThreshold = 0
	fallback, err := refinement.New(fallbackCfg, vc, st)
	if err != nil {
		return nil, err
	}
	fallback.ShareHistory(primary)
	return refinement.NewDelegating(primary, fallback), nil
}

// Run verifies that no error location of the CFA is reachable.
//
// Exceeding the state bound yields an unknown verdict. Other errors from
// either phase abort the run, including cancellation of the context. The
// partial result is still returned.
func Run(ctx context.Context, c *cfa.CFA, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	prec := precision.NewComposite(
		precision.LocationPrecision{},
		precision.NewVariablePrecision(cfg.Refinement.Scope()),
	)
	reached := arg.New(c, prec)
	analysis := reach.New(reach.Options{MaxStates: cfg.MaxStates})

	refStats := &refinement.Statistics{}
	refiner, err := NewRefiner(c, cfg.Refinement, refStats)
	if err != nil {
		return Result{}, err
	}

	collector := &stats.Collector{}
	collector.Register(&analysis.Stats, refStats)

	res := Result{Reached: reached, Stats: collector}
	for {
		status, err := analysis.Run(ctx, reached)
		if errors.Cause(err) == reach.ErrStateLimit {
			res.Verdict = Unknown
			res.Reason = err.Error()
			return res, nil
		}
		if err != nil {
			return res, err
		}

		targets := len(reached.Targets())
		log.WithFields(log.Fields{
			"round":   res.Refinements,
			"status":  status.String(),
			"states":  reached.Size(),
			"targets": targets,
		}).Debug("Exploration finished")

		if status == reach.Complete && targets == 0 {
			res.Verdict = Safe
			return res, nil
		}

		if cfg.MaxRefinements > 0 && res.Refinements >= cfg.MaxRefinements {
			res.Verdict = Unknown
			res.Reason = fmt.Sprintf("refinement bound of %d reached", cfg.MaxRefinements)
			return res, nil
		}

		ref, err := refiner.Refine(ctx, reached)
		if err != nil {
			return res, err
		}

		switch ref.Outcome {
		case refinement.Counterexample:
			res.Verdict = Unsafe
			res.Counterexample = ref.Counterexample
			return res, nil
		case refinement.NoProgress:
			res.Verdict = Unknown
			res.Reason = "refinement made no progress"
			return res, nil
		}

		res.Refinements++
		log.WithFields(log.Fields{
			"round":     res.Refinements,
			"root":      ref.Root.String(),
			"increment": ref.Increment.Size(),
			"precision": ref.Precision.Size(),
		}).Info("Refined precision")
		utils.Opts().OnVerbose(func() {
			fmt.Println(ref.Increment)
		})
	}
}
