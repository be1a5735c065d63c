package cegar

import (
	"io/ioutil"

	"github.com/cs-au-dk/cegar/analysis/refinement"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config configures a verification run. It is decoded from a YAML file of
// the following shape:
//
//	maxRefinements: 50
//	maxStates: 100000
//	refinement:
//	  lazy: true
//	  pathOrder: zigzag
//	  hardThreshold: 3
type Config struct {
	// MaxRefinements bounds the number of refinements. Zero means unbounded.
	MaxRefinements int `yaml:"maxRefinements"`
	// MaxStates bounds the size of the reached set. Zero means unbounded.
	MaxStates  int               `yaml:"maxStates"`
	Refinement refinement.Config `yaml:"refinement"`
}

func DefaultConfig() Config {
	return Config{
		MaxRefinements: 100,
		Refinement:     refinement.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if c.MaxRefinements < 0 {
		return errors.Errorf("negative refinement bound %d", c.MaxRefinements)
	}
	if c.MaxStates < 0 {
		return errors.Errorf("negative state bound %d", c.MaxStates)
	}
	return c.Refinement.Validate()
}

// ParseConfig decodes a YAML configuration. Missing keys keep their
// default values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "decoding configuration")
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads the configuration file at the given path.
func LoadConfig(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return DefaultConfig(), errors.Wrapf(err, "reading configuration %s", path)
	}
	cfg, err := ParseConfig(data)
	return cfg, errors.Wrapf(err, "in %s", path)
}
