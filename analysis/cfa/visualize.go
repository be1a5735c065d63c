package cfa

import (
	"fmt"
	"io"

	"github.com/cs-au-dk/cegar/utils"
	"github.com/cs-au-dk/cegar/utils/dot"
)

var opts = utils.Opts()

// ToDot creates a Dot Graph of the CFA, with one cluster per function.
func (c *CFA) ToDot() *dot.DotGraph {
	G := &dot.DotGraph{
		Title: "CFA",
		Options: map[string]string{
			"minlen":  fmt.Sprint(opts.Minlen()),
			"nodesep": fmt.Sprint(opts.Nodesep()),
			"rankdir": "TB",
		},
	}

	clusters := map[string]*dot.DotCluster{}
	for _, f := range c.Functions() {
		cl := dot.NewDotCluster(f.Name)
		cl.Attrs["label"] = f.Name
		clusters[f.Name] = cl
		G.Clusters = append(G.Clusters, cl)
	}

	nodeToDotNode := map[*Node]*dot.DotNode{}
	for _, n := range c.nodes {
		dn := &dot.DotNode{
			ID:    fmt.Sprintf("N%d", n.id),
			Attrs: dot.DotAttrs{},
		}
		switch n.kind {
		case ErrorNode:
			dn.Attrs["fillcolor"] = "tomato"
		case FunctionEntryNode, FunctionExitNode:
			dn.Attrs["shape"] = "box"
		}
		if n == c.entry {
			dn.Attrs["penwidth"] = "2.0"
		}
		nodeToDotNode[n] = dn

		if cl, ok := clusters[n.function]; ok {
			cl.Nodes = append(cl.Nodes, dn)
		} else {
			G.Nodes = append(G.Nodes, dn)
		}
	}

	for _, n := range c.nodes {
		for _, e := range n.leaving {
			attrs := dot.DotAttrs{"label": e.Label()}
			if e.Kind == FunctionCallEdge || e.Kind == FunctionReturnEdge {
				attrs["style"] = "bold"
			}
			G.Edges = append(G.Edges, &dot.DotEdge{
				From:  nodeToDotNode[e.Pred],
				To:    nodeToDotNode[e.Succ],
				Attrs: attrs,
			})
		}
	}

	return G
}

// Print writes every edge of the CFA grouped by function.
func (c *CFA) Print(w io.Writer) {
	for _, f := range c.Functions() {
		fmt.Fprintf(w, "func %s", f.Name)
		if len(f.Params) > 0 {
			fmt.Fprintf(w, "%v", f.Params)
		}
		fmt.Fprintln(w, ":")
		for _, n := range c.nodes {
			if n.function != f.Name {
				continue
			}
			for _, e := range n.leaving {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}
}
