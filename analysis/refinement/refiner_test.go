package refinement

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/reach"

	"github.com/pkg/errors"
)

func TestRefineKnownValue(t *testing.T) {
	p := knownValueProgram(t)
	reached := explore(t, p.cfa)
	path := singleTarget(t, reached)
	n1 := path.States[1].Node()

	r := newRefiner(t, DefaultConfig(), nil)
	res, err := r.Refine(context.Background(), reached)
	if err != nil {
		t.Fatal(err)
	}

	if res.Outcome != Refined || !res.Progress() {
		t.Fatalf("Expected refinement, got %v", res.Outcome)
	}
	if res.Root != path.States[1] {
		t.Errorf("Expected refinement root %v, got %v", path.States[1], res.Root)
	}
	if res.Increment.Size() != 1 || !res.Increment[n1].Contains(x) {
		t.Errorf("Expected increment {%v: x}, got %v", n1, res.Increment)
	}
	if !res.Precision.IsTracking(n1, x) {
		t.Error("Refined precision does not track x at", n1)
	}

	for _, s := range path.States[1:] {
		if reached.Contains(s) || !s.IsRemoved() {
			t.Errorf("%v should have been removed", s)
		}
	}
	if !reached.Contains(path.States[0]) {
		t.Fatal("The ARG root should survive")
	}
	if !reached.Root().Precision().Value().IsTracking(n1, x) {
		t.Error("The new precision was not installed at the parent of the root")
	}

	// Exploration with the refined precision proves the program safe.
	status, err := reach.New(reach.Options{}).Run(context.Background(), reached)
	if err != nil {
		t.Fatal(err)
	}
	if status != reach.Complete || len(reached.Targets()) != 0 {
		t.Error("Expected the program to be safe after refinement")
	}
}

func TestRefineCounterexample(t *testing.T) {
	p := reachableErrorProgram(t)
	reached := explore(t, p.cfa)
	before := reached.Snapshot()

	res, err := newRefiner(t, DefaultConfig(), nil).Refine(context.Background(), reached)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Counterexample || res.Counterexample == nil {
		t.Fatalf("Expected a counterexample, got %v", res.Outcome)
	}
	if !res.Counterexample.Target().IsTarget() {
		t.Error("Counterexample does not end in a target state")
	}
	if res.Progress() {
		t.Error("A counterexample is not progress")
	}
	if after := reached.Snapshot(); after != before {
		t.Errorf("Reached set changed:\n%s\nvs.\n%s", before, after)
	}
}

func TestRefineNoProgress(t *testing.T) {
	p := reassignedProgram(t)
	reached := explore(t, p.cfa)
	before := reached.Snapshot()

	cfg := DefaultConfig()
	cfg.HardThreshold = 1
	res, err := newRefiner(t, cfg, nil).Refine(context.Background(), reached)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != NoProgress {
		t.Fatalf("Expected no progress, got %v", res.Outcome)
	}
	if after := reached.Snapshot(); after != before {
		t.Errorf("Reached set changed:\n%s\nvs.\n%s", before, after)
	}
}

func TestRefineCancelled(t *testing.T) {
	p := knownValueProgram(t)
	reached := explore(t, p.cfa)
	before := reached.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRefiner(t, DefaultConfig(), nil).Refine(ctx, reached)
	if !IsCancellation(err) {
		t.Fatalf("Expected cancellation, got %v", err)
	}
	if after := reached.Snapshot(); after != before {
		t.Errorf("Reached set changed:\n%s\nvs.\n%s", before, after)
	}
}

func TestRefineWithoutTargets(t *testing.T) {
	p := knownValueProgram(t)
	reached := arg.New(p.cfa, emptyPrecision())

	_, err := newRefiner(t, DefaultConfig(), nil).Refine(context.Background(), reached)
	if errors.Cause(err) != ErrNoTargets {
		t.Errorf("Expected %v, got %v", ErrNoTargets, err)
	}
}

func TestRefineEager(t *testing.T) {
	p := assumedValueProgram(t)

	for _, test := range []struct {
		name  string
		lazy  bool
		avoid bool
		root  int
	}{
		{"eager", false, false, 1},
		{"lazy", true, false, 2},
		{"lazy avoiding assumes", true, true, 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			reached := explore(t, p.cfa)
			path := singleTarget(t, reached)

			cfg := DefaultConfig()
			cfg.Lazy, cfg.AvoidAssumes = test.lazy, test.avoid
			res, err := newRefiner(t, cfg, nil).Refine(context.Background(), reached)
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != Refined {
				t.Fatalf("Expected refinement, got %v", res.Outcome)
			}
			if res.Root != path.States[test.root] {
				t.Errorf("Expected refinement root %v, got %v", path.States[test.root], res.Root)
			}
		})
	}
}

func TestRefineIncremental(t *testing.T) {
	for _, test := range []struct {
		name         string
		incremental  bool
		interpolated int
		skipped      int
	}{
		{"all paths", false, 2, 0},
		{"incremental", true, 1, 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := twoTargetsProgram(t)
			reached := explore(t, p.cfa)
			if n := len(reached.Targets()); n != 2 {
				t.Fatalf("Expected two targets, found %d", n)
			}

			cfg := DefaultConfig()
			cfg.Incremental = test.incremental
			r := newRefiner(t, cfg, nil)
			res, err := r.Refine(context.Background(), reached)
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != Refined {
				t.Fatalf("Expected refinement, got %v", res.Outcome)
			}

			stats := r.Stats()
			if stats.PathsFound != 2 ||
				stats.PathsInterpolated != test.interpolated ||
				stats.SkippedIncremental != test.skipped {
				t.Errorf("Unexpected statistics: found %d, interpolated %d, skipped %d",
					stats.PathsFound, stats.PathsInterpolated, stats.SkippedIncremental)
			}
			if res.Increment.Size() != 1 {
				t.Errorf("Expected a single tracked location, got %v", res.Increment)
			}
		})
	}
}

func TestRefineMaxPaths(t *testing.T) {
	p := twoTargetsProgram(t)
	reached := explore(t, p.cfa)

	cfg := DefaultConfig()
	cfg.MaxPaths = 1
	r := newRefiner(t, cfg, nil)
	if _, err := r.Refine(context.Background(), reached); err != nil {
		t.Fatal(err)
	}
	if n := r.Stats().PathsInterpolated; n != 1 {
		t.Errorf("Expected a single interpolated path, got %d", n)
	}
}

func TestRefineRelevance(t *testing.T) {
	p := twoTargetsProgram(t)
	reached := explore(t, p.cfa)

	cfg := DefaultConfig()
	cfg.Relevance = true
	r := newRefiner(t, cfg, NewVariableClassification(p.cfa))
	if _, err := r.Refine(context.Background(), reached); err != nil {
		t.Fatal(err)
	}

	// Every relevant location of the second path is covered by the
	// increment of the first.
	if stats := r.Stats(); stats.PathsInterpolated != 1 || stats.SkippedRelevance != 1 {
		t.Errorf("Expected the second path to be skipped, interpolated %d, skipped %d",
			stats.PathsInterpolated, stats.SkippedRelevance)
	}
}

func TestRelevanceRequiresClassification(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Relevance = true
	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("Expected an error without variable classification")
	}
}

func TestRepeatedCounterexample(t *testing.T) {
	// Refining and re-exploring without growing the precision finds the
	// same counterexample again. Exploring a fresh ARG simulates that.
	// Once the same paths stall, the root moves from the lazy choice
	// after x := 0 to the first state of the path.
	p := irrelevantPrefixProgram(t)
	r := newRefiner(t, DefaultConfig(), nil)

	for round, test := range []struct {
		root, repeated, stalled, restarts int
	}{
		{2, 0, 0, 0},
		{2, 1, 1, 0},
		{1, 2, 2, 1},
		{1, 3, 3, 2},
	} {
		reached := explore(t, p.cfa)
		path := singleTarget(t, reached)

		res, err := r.Refine(context.Background(), reached)
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != Refined {
			t.Fatalf("Round %d: expected refinement, got %v", round, res.Outcome)
		}
		if res.Root != path.States[test.root] {
			t.Errorf("Round %d: expected refinement root %v, got %v",
				round, path.States[test.root], res.Root)
		}

		stats := r.Stats()
		if stats.RepeatedCounterexamples != test.repeated ||
			stats.StalledRefinements != test.stalled ||
			stats.EagerRestarts != test.restarts {
			t.Errorf("Round %d: unexpected statistics: %d repeated, %d stalled, %d eager restarts",
				round, stats.RepeatedCounterexamples, stats.StalledRefinements, stats.EagerRestarts)
		}
	}

	if n := r.Stats().Refinements; n != 4 {
		t.Errorf("Expected 4 refinements, got %d", n)
	}
}

func TestFailedRemovalKeepsHistory(t *testing.T) {
	p := knownValueProgram(t)
	reached := explore(t, p.cfa)
	r := newRefiner(t, DefaultConfig(), nil)

	prec := reached.SubtreePrecision(reached.Root())
	r.hasLast, r.lastSig, r.lastSize = true, 42, prec.Size()
	r.forceEager = true

	foreign := explore(t, p.cfa).Root()
	err := r.apply(reached, foreign, prec, 42, []uint32{42})
	if errors.Cause(err) != arg.ErrForeignState {
		t.Fatalf("Expected %v, got %v", arg.ErrForeignState, err)
	}

	if !r.forceEager || r.seen[42] {
		t.Error("History changed by a failed removal")
	}
	stats := r.Stats()
	if stats.StalledRefinements != 0 || stats.EagerRestarts != 0 {
		t.Errorf("Unexpected statistics: %d stalled, %d eager restarts",
			stats.StalledRefinements, stats.EagerRestarts)
	}

	// The same round commits once the removal succeeds.
	if err := r.apply(reached, reached.Root(), prec, 42, []uint32{42}); err != nil {
		t.Fatal(err)
	}
	if !r.forceEager || !r.seen[42] {
		t.Error("Stalled round was not recorded")
	}
	if stats.StalledRefinements != 1 || stats.EagerRestarts != 1 {
		t.Errorf("Unexpected statistics: %d stalled, %d eager restarts",
			stats.StalledRefinements, stats.EagerRestarts)
	}
}

func TestSharedHistory(t *testing.T) {
	p := knownValueProgram(t)
	first := newRefiner(t, DefaultConfig(), nil)
	second := newRefiner(t, DefaultConfig(), nil)
	second.ShareHistory(first)

	for _, r := range []*ValueRefiner{first, second} {
		if _, err := r.Refine(context.Background(), explore(t, p.cfa)); err != nil {
			t.Fatal(err)
		}
	}

	// The path refined by the first refiner is repeated for the second,
	// and the round of the second stalls.
	stats := second.Stats()
	if stats.RepeatedCounterexamples != 1 || stats.StalledRefinements != 1 {
		t.Errorf("Expected a repeated and stalled round, got %d repeated, %d stalled",
			stats.RepeatedCounterexamples, stats.StalledRefinements)
	}
	if !first.forceEager {
		t.Error("Stall observed by the second refiner is not seen by the first")
	}
	if first.round != 2 {
		t.Errorf("Expected 2 shared rounds, got %d", first.round)
	}
}

type fixedRefiner struct {
	outcome Outcome
	calls   *int
}

func (f fixedRefiner) Refine(context.Context, *arg.ReachedSet) (Result, error) {
	*f.calls++
	return Result{Outcome: f.outcome}, nil
}

func TestDelegating(t *testing.T) {
	for _, test := range []struct {
		name     string
		outcomes []Outcome
		exp      Outcome
		calls    []int
	}{
		{"first succeeds", []Outcome{Refined, Refined}, Refined, []int{1, 0}},
		{"fallback", []Outcome{NoProgress, Refined}, Refined, []int{1, 1}},
		{"counterexample", []Outcome{Counterexample, Refined}, Counterexample, []int{1, 0}},
		{"none succeed", []Outcome{NoProgress, NoProgress}, NoProgress, []int{1, 1}},
	} {
		t.Run(test.name, func(t *testing.T) {
			calls := make([]int, len(test.outcomes))
			delegates := []Refiner{}
			for i, o := range test.outcomes {
				delegates = append(delegates, fixedRefiner{o, &calls[i]})
			}

			res, err := NewDelegating(delegates...).Refine(context.Background(), nil)
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != test.exp {
				t.Errorf("Expected %v, got %v", test.exp, res.Outcome)
			}
			for i, c := range calls {
				if c != test.calls[i] {
					t.Errorf("Delegate %d called %d times, expected %d", i, c, test.calls[i])
				}
			}
		})
	}
}

func TestDelegatingFallbackRefines(t *testing.T) {
	p := reassignedProgram(t)
	reached := explore(t, p.cfa)

	strict := DefaultConfig()
	strict.HardThreshold = 1
	stats := &Statistics{}
	first, err := New(strict, nil, stats)
	if err != nil {
		t.Fatal(err)
	}
	second, err := New(DefaultConfig(), nil, stats)
	if err != nil {
		t.Fatal(err)
	}

	res, err := NewDelegating(first, second).Refine(context.Background(), reached)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != Refined {
		t.Fatalf("Expected the fallback to refine, got %v", res.Outcome)
	}
	if stats.Refinements != 1 || stats.PathsInterpolated != 2 {
		t.Errorf("Unexpected shared statistics: %d refinements, %d interpolated paths",
			stats.Refinements, stats.PathsInterpolated)
	}
}

func TestExport(t *testing.T) {
	p := knownValueProgram(t)
	reached := explore(t, p.cfa)

	cfg := DefaultConfig()
	cfg.Slicing = true
	cfg.Export = t.TempDir()
	if _, err := newRefiner(t, cfg, nil).Refine(context.Background(), reached); err != nil {
		t.Fatal(err)
	}

	for _, pattern := range []string{
		"round-001-path-*.itp",
		"round-001-path-*-deps.dot",
		"round-001-arg.dot",
	} {
		matches, err := filepath.Glob(filepath.Join(cfg.Export, pattern))
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 {
			t.Errorf("Expected one file matching %s, got %v", pattern, matches)
		}
	}
}
