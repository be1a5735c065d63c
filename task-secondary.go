package main

import (
	"bytes"
	"os"

	"github.com/cs-au-dk/cegar/analysis/cegar"
	"github.com/cs-au-dk/cegar/utils/dot"

	log "github.com/sirupsen/logrus"
)

// secondaryTasks runs the tasks that inspect the automaton or the reached
// set instead of reporting a verdict.
func secondaryTasks(pl pipeline, cfg cegar.Config) {
	switch {
	// cfa-to-dot : visualizes the control-flow automaton.
	case task.IsCfaToDot():
		log.Println("Preparing to visualize CFA:")
		render(pl.cfa.ToDot())

	// arg-to-dot : verifies the target and visualizes the final ARG.
	case task.IsArgToDot():
		res, err := pl.verify(cfg)
		if err != nil {
			log.Warnf("Verification failed: %v", err)
		}
		if res.Reached == nil {
			log.Fatalln("No reached set to visualize")
		}
		log.Printf("Preparing to visualize ARG (%s):", res.Verdict.Name())
		render(res.Reached.ToDot())

	// print-cfa : prints every edge of the control-flow automaton.
	case task.IsPrintCfa():
		pl.cfa.Print(os.Stdout)
	}
}

// render shows the graph with xdot when visualization is enabled, and
// otherwise exports it in the configured output format.
func render(G *dot.DotGraph) {
	if opts.Visualize() {
		G.ShowDot()
		return
	}

	var buf bytes.Buffer
	if err := G.WriteDot(&buf); err != nil {
		log.Fatal(err)
	}

	out, err := dot.DotToImage("", opts.OutputFormat(), buf.Bytes())
	if err != nil {
		log.Fatal(err)
	}

	log.Println("Exported graph to", out)
}
