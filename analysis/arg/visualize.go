package arg

import (
	"fmt"

	"github.com/cs-au-dk/cegar/utils/dot"
	"github.com/cs-au-dk/cegar/utils/graph"
)

// ToDot creates a Dot Graph of the ARG, clustering states by function.
func (r *ReachedSet) ToDot() *dot.DotGraph {
	dg := r.Graph().ToDotGraph(r.States(), &graph.VisualizationConfig[*State]{
		NodeAttrs: func(s *State) (string, dot.DotAttrs) {
			attrs := dot.DotAttrs{"label": s.Label()}
			switch {
			case s.IsTarget():
				attrs["fillcolor"] = "tomato"
			case s.IsCovered():
				attrs["fillcolor"] = "lightgrey"
				attrs["style"] = "dashed,filled"
			case r.waitlist.Contains(s):
				attrs["fillcolor"] = "lightyellow"
			}
			return fmt.Sprintf("S%d", s.id), attrs
		},
		ClusterKey: func(s *State) any {
			return s.node.Function()
		},
		ClusterAttrs: func(key any) (string, dot.DotAttrs) {
			return fmt.Sprint(key), dot.DotAttrs{"label": fmt.Sprint(key)}
		},
	})
	dg.Title = "ARG"
	return dg
}
