package refinement

import (
	"github.com/cs-au-dk/cegar/analysis/precision"

	"github.com/pkg/errors"
)

// PathOrder determines the order in which the error paths of a round are
// refined.
type PathOrder int

const (
	// SizeAscending refines the shortest paths first.
	SizeAscending PathOrder = iota
	// Zigzag alternates between the shortest and the longest remaining path.
	Zigzag
)

func ParsePathOrder(s string) (PathOrder, error) {
	switch s {
	case "", "size-ascending":
		return SizeAscending, nil
	case "zigzag":
		return Zigzag, nil
	}
	return SizeAscending, errors.Errorf("unknown path order %q", s)
}

func (o PathOrder) String() string {
	if o == Zigzag {
		return "zigzag"
	}
	return "size-ascending"
}

// Config holds the options of the refiner. It is decoded from the
// `refinement` section of the configuration file.
type Config struct {
	// Lazy restarts exploration at the first state with new information
	// instead of at the successor of the ARG root.
	Lazy bool `yaml:"lazy"`
	// AvoidAssumes moves a lazy refinement root that would follow an assume
	// edge back to the state after the assignment of a newly tracked variable.
	AvoidAssumes bool `yaml:"avoidAssumes"`
	// PathOrder is either "size-ascending" or "zigzag".
	PathOrder string `yaml:"pathOrder"`
	// HardThreshold excludes variables assigned more often than this along a
	// path from the increment. Zero disables the threshold.
	HardThreshold int `yaml:"hardThreshold"`
	// Incremental skips paths that are already infeasible under the
	// precision refined so far in the round.
	Incremental bool `yaml:"incremental"`
	// Relevance skips paths whose relevant variables are mostly covered by
	// the precision refined so far in the round.
	Relevance bool `yaml:"relevance"`
	// RelevanceCutoff is the fraction of uncovered relevant variables below
	// which a path is skipped.
	RelevanceCutoff float64 `yaml:"relevanceCutoff"`
	// Slicing interpolates only the edges the final failing assumption
	// depends on.
	Slicing bool `yaml:"slicing"`
	// MaxPaths bounds the number of paths interpolated per round. Zero
	// interpolates every path.
	MaxPaths int `yaml:"maxPaths"`
	// PrecisionScope is either "location" or "function".
	PrecisionScope string `yaml:"precisionScope"`
	// Export is a directory for debug dumps. Dumps are disabled when empty.
	Export string `yaml:"export"`
}

// DefaultConfig is the lazy, size-ascending configuration.
func DefaultConfig() Config {
	return Config{
		Lazy:            true,
		PathOrder:       SizeAscending.String(),
		RelevanceCutoff: 0.1,
		PrecisionScope:  precision.LocationScope.String(),
	}
}

// Validate checks the configuration for inconsistent values.
func (c Config) Validate() error {
	if _, err := ParsePathOrder(c.PathOrder); err != nil {
		return err
	}
	if _, err := precision.ParseScope(c.PrecisionScope); err != nil {
		return err
	}
	if c.HardThreshold < 0 {
		return errors.Errorf("negative hard threshold %d", c.HardThreshold)
	}
	if c.MaxPaths < 0 {
		return errors.Errorf("negative path bound %d", c.MaxPaths)
	}
	if c.RelevanceCutoff < 0 || c.RelevanceCutoff > 1 {
		return errors.Errorf("relevance cutoff %v is not a fraction", c.RelevanceCutoff)
	}
	return nil
}

func (c Config) Order() PathOrder {
	o, _ := ParsePathOrder(c.PathOrder)
	return o
}

func (c Config) Scope() precision.Scope {
	s, _ := precision.ParseScope(c.PrecisionScope)
	return s
}
