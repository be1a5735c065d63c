package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/cs-au-dk/cegar/analysis/cegar"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/fatih/color"
	"golang.org/x/tools/go/ssa"
)

var colorize = struct {
	Header func(...interface{}) string
	Pos    func(...interface{}) string
}{
	Header: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.Bold).SprintFunc())(is...)
	},
	Pos: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgCyan).SprintFunc())(is...)
	},
}

// report prints the verdict of a run, followed by the counterexample of an
// unsafe program and the statistics of every phase.
func report(w io.Writer, prog *ssa.Program, res cegar.Result) {
	header := func(s string) {
		fmt.Fprintln(w, colorize.Header(s))
	}

	header("================ Results =====================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Verdict:", res.Verdict)
	if res.Verdict == cegar.Unknown && res.Reason != "" {
		fmt.Fprintln(w, "Reason:", res.Reason)
	}
	fmt.Fprintln(w, "Refinements:", res.Refinements)
	fmt.Fprintln(w)

	if res.Verdict == cegar.Unsafe && res.Counterexample != nil {
		header("Counterexample:")
		for _, e := range res.Counterexample.Edges {
			printEdge(w, prog, e)
		}
		fmt.Fprintln(w)
	}

	if res.Stats != nil {
		header("Statistics:")
		res.Stats.Print(w)
	}
}

func printEdge(w io.Writer, prog *ssa.Program, e *cfa.Edge) {
	if e.Kind == cfa.BlankEdge && !e.Succ.IsError() {
		return
	}

	pos := "-"
	if prog != nil && e.Pos.IsValid() {
		p := prog.Fset.Position(e.Pos)
		pos = fmt.Sprintf("%s:%d", filepath.Base(p.Filename), p.Line)
	}
	fmt.Fprintf(w, "  %s %s\n", colorize.Pos(fmt.Sprintf("%-20s", pos)), e.Label())
}
