package arg

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/utils"
)

// Path is a path of the ARG from the root to a target state. Edges[i] leads
// from States[i] to States[i+1].
type Path struct {
	States []*State
	Edges  []*cfa.Edge
}

// Len is the number of edges on the path.
func (p Path) Len() int {
	return len(p.Edges)
}

func (p Path) First() *State {
	return p.States[0]
}

// Target is the last state of the path.
func (p Path) Target() *State {
	return p.States[len(p.States)-1]
}

// Signature identifies the sequence of CFA edges taken by the path, so that
// the same counterexample can be recognized across refinements.
func (p Path) Signature() uint32 {
	hashes := make([]uint32, 0, 3*len(p.Edges))
	for _, e := range p.Edges {
		hashes = append(hashes, e.Pred.Hash(), e.Succ.Hash(), utils.HashInt(int(e.Kind)))
	}
	return utils.HashCombine(hashes...)
}

// SameEdges checks whether both paths take the same sequence of CFA edges.
func (p Path) SameEdges(o Path) bool {
	if len(p.Edges) != len(o.Edges) {
		return false
	}
	for i, e := range p.Edges {
		if e != o.Edges[i] {
			return false
		}
	}
	return true
}

func (p Path) String() string {
	var sb strings.Builder
	for i, e := range p.Edges {
		fmt.Fprintf(&sb, "%s -{%s}->\n", p.States[i], e.Label())
	}
	sb.WriteString(p.Target().String())
	return sb.String()
}
