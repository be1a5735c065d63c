package refinement

import (
	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/precision"
)

// RootSelector chooses the ARG state below which a refined path is
// re-explored.
type RootSelector struct {
	Lazy         bool
	AvoidAssumes bool
}

// Select picks the refinement root of a single path. Eager selection, and
// every selection of a non-lazy selector, restarts at the successor of the
// ARG root. Lazy selection restarts at the state after the interpolation
// offset, unless the path is a repeated counterexample or the offset edge is
// an avoided assume edge. In those cases the state after the first edge
// assigning a variable of the increment is used, if there is one.
func (rs RootSelector) Select(
	path arg.Path,
	offset int,
	inc precision.Increment,
	repeated bool,
	eager bool,
) *arg.State {
	if eager || !rs.Lazy {
		return path.States[1]
	}

	if repeated || (rs.AvoidAssumes && path.Edges[offset].IsAssume()) {
		vars := inc.Variables()
		for j := 0; j <= offset; j++ {
			if path.Edges[j].Assigns(vars) {
				return path.States[j+1]
			}
		}
	}
	return path.States[offset+1]
}

// CommonRoot reconciles the refinement roots of all paths of a round into a
// single root: their lowest common ancestor in the ARG. If that is the ARG
// root itself, its only successor is used instead when there is exactly one.
func CommonRoot(reached *arg.ReachedSet, roots []*arg.State) *arg.State {
	unique := []*arg.State{}
	seen := map[*arg.State]bool{}
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			unique = append(unique, r)
		}
	}
	if len(unique) == 1 {
		return unique[0]
	}

	root := reached.Root()
	lca := reached.Graph().DominatorTree(root)(unique...)
	if lca == root {
		if children := root.Children(); len(children) == 1 {
			return children[0]
		}
	}
	return lca
}
