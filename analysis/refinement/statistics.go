package refinement

import (
	"io"

	"github.com/cs-au-dk/cegar/analysis/stats"
	"github.com/cs-au-dk/cegar/utils"
)

// Statistics collects counters over all refinements of a verification run.
type Statistics struct {
	Refinements             int
	TargetsFound            int
	PathsFound              int
	PathsInterpolated       int
	SkippedIncremental      int
	SkippedRelevance        int
	RepeatedCounterexamples int
	StalledRefinements      int
	EagerRestarts           int
	FeasibilityChecks       int
	InterpolationQueries    int
	SlicedEdges             int
	// Largest precision increment of a single round.
	MaxIncrement int
	// Number of states removed from the ARG over all refinements.
	RemovedStates int

	TotalTime         utils.Timer
	InterpolationTime utils.Timer
	FeasibilityTime   utils.Timer
}

func (*Statistics) Name() string {
	return "Value analysis refinement"
}

func (s *Statistics) Print(w io.Writer) {
	stats.Line(w, "Refinements", s.Refinements)
	stats.Line(w, "Targets found", s.TargetsFound)
	stats.Line(w, "Error paths found", s.PathsFound)
	stats.Line(w, "Error paths interpolated", s.PathsInterpolated)
	stats.Line(w, "Skipped (incremental)", s.SkippedIncremental)
	stats.Line(w, "Skipped (relevance)", s.SkippedRelevance)
	stats.Line(w, "Repeated counterexamples", s.RepeatedCounterexamples)
	stats.Line(w, "Stalled refinements", s.StalledRefinements)
	stats.Line(w, "Eager restarts", s.EagerRestarts)
	stats.Line(w, "Feasibility checks", s.FeasibilityChecks)
	stats.Line(w, "Interpolation queries", s.InterpolationQueries)
	stats.Line(w, "Sliced edges", s.SlicedEdges)
	stats.Line(w, "Largest increment", s.MaxIncrement)
	stats.Line(w, "Removed states", s.RemovedStates)
	stats.Line(w, "Interpolated paths ratio", utils.Percent(s.PathsInterpolated, s.PathsFound))
	stats.Line(w, "Time for refinement", &s.TotalTime)
	stats.Line(w, "Time for interpolation", &s.InterpolationTime)
	stats.Line(w, "Time for feasibility checks", &s.FeasibilityTime)
}
