package refinement

import (
	"sort"

	"github.com/cs-au-dk/cegar/analysis/arg"
)

// OrderPaths sorts error paths for refinement. Paths of equal length are
// ordered by the ID of their target state.
func OrderPaths(paths []arg.Path, order PathOrder) []arg.Path {
	sorted := append([]arg.Path(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if li, lj := sorted[i].Len(), sorted[j].Len(); li != lj {
			return li < lj
		}
		return sorted[i].Target().ID() < sorted[j].Target().ID()
	})

	if order != Zigzag {
		return sorted
	}

	res := make([]arg.Path, 0, len(sorted))
	for lo, hi := 0, len(sorted)-1; lo <= hi; lo, hi = lo+1, hi-1 {
		res = append(res, sorted[lo])
		if lo != hi {
			res = append(res, sorted[hi])
		}
	}
	return res
}
