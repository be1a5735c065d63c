package main

import (
	"context"
	"time"

	"github.com/cs-au-dk/cegar/analysis/cegar"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/frontend"
	"github.com/cs-au-dk/cegar/pkgutil"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/ssa"
)

// pipeline is a wrapper around the verification pipeline.
type pipeline struct {
	prog *ssa.Program
	cfa  *cfa.CFA

	frontendStats *frontend.Statistics
}

// load parses and type checks the packages matching the path, and
// translates the target function into a control-flow automaton.
func load(path string) (pipeline, error) {
	defer utils.TimeTrack(time.Now(), "Loading and translation")

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, path)
	if err != nil {
		return pipeline{}, errors.Wrap(err, "loading packages")
	}

	log.Println("Building control-flow automaton...")
	st := &frontend.Statistics{}
	c, prog, err := frontend.FromPackages(pkgs, opts.Function(), st)
	if err != nil {
		return pipeline{}, err
	}
	log.WithFields(log.Fields{
		"functions": st.Functions,
		"edges":     st.Edges,
		"errors":    st.Errors,
	}).Info("Control-flow automaton done")

	return pipeline{prog: prog, cfa: c, frontendStats: st}, nil
}

// config reads the configuration file, if any, and applies the refinement
// flags given explicitly on the command line on top of it.
func config() (cegar.Config, error) {
	cfg := cegar.DefaultConfig()
	if path := opts.ConfigPath(); path != "" {
		var err error
		if cfg, err = cegar.LoadConfig(path); err != nil {
			return cfg, err
		}
	}

	if opts.IsSet("max-refinements") {
		cfg.MaxRefinements = opts.MaxRefinements()
	}
	if opts.IsSet("path-order") {
		cfg.Refinement.PathOrder = opts.PathOrder()
	}
	if opts.IsSet("eager") {
		cfg.Refinement.Lazy = !opts.Eager()
	}
	if opts.IsSet("export") {
		cfg.Refinement.Export = opts.ExportDir()
	}
	return cfg, cfg.Validate()
}

// verify runs refinement on the automaton until a verdict is reached or the
// timeout expires.
func (p pipeline) verify(cfg cegar.Config) (cegar.Result, error) {
	ctx := context.Background()
	if t := opts.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	log.WithFields(log.Fields{
		"lazy":      cfg.Refinement.Lazy,
		"pathOrder": cfg.Refinement.PathOrder,
		"scope":     cfg.Refinement.PrecisionScope,
	}).Info("Starting verification")

	res, err := cegar.Run(ctx, p.cfa, cfg)
	if res.Stats != nil {
		res.Stats.Register(p.frontendStats)
	}
	if err != nil {
		return res, err
	}

	utils.VerbosePrint("Final reached set has %d states\n", res.Reached.Size())
	return res, nil
}
