package refinement

import (
	"github.com/cs-au-dk/cegar/analysis/arg"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/analysis/precision"

	"github.com/pkg/errors"
)

// AssignmentCounts counts how often each memory location is written along
// the path.
func AssignmentCounts(path arg.Path) map[memloc.MemoryLocation]int {
	counts := map[memloc.MemoryLocation]int{}
	for _, e := range path.Edges {
		e.AssignedVariables().ForEach(func(l memloc.MemoryLocation) {
			counts[l]++
		})
	}
	return counts
}

// BuildIncrement converts the interpolants of a path into a precision
// increment. Every memory location of a non-trivial interpolant becomes
// tracked at the location after its edge, unless it is assigned more than
// hardThreshold times along the path. A zero threshold admits every
// location.
//
// The returned offset is the index of the first non-trivial interpolant.
// It is determined even if the increment is empty.
func BuildIncrement(path arg.Path, itps Interpolants, hardThreshold int) (precision.Increment, int, error) {
	offset, ok := itps.Offset()
	if !ok {
		return nil, -1, errors.Wrapf(ErrInterpolationFailed,
			"no interpolant carries information for path to %s", path.Target())
	}

	var counts map[memloc.MemoryLocation]int
	if hardThreshold > 0 {
		counts = AssignmentCounts(path)
	}

	inc := precision.Increment{}
	for i := offset; i < len(itps) && !itps[i].IsFalse(); i++ {
		node := path.States[i+1].Node()
		itps[i].ForEach(func(l memloc.MemoryLocation, _ int64) {
			if hardThreshold > 0 && counts[l] > hardThreshold {
				return
			}
			inc.Add(node, l)
		})
	}
	return inc, offset, nil
}
