package config

import (
	"os"

	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTheta1 = 1.0
	DefaultTheta2 = 0.5
)

type Config struct {
	Params    physics.Params  `yaml:"params"`
	InitState InitStateConfig `yaml:"init_state"`
	Duration  float64         `yaml:"duration"`
	Samples   int             `yaml:"samples"`
	RelTol    float64         `yaml:"rtol"`
	AbsTol    float64         `yaml:"atol"`
	MaxSteps  int             `yaml:"max_steps,omitempty"`
}

type InitStateConfig struct {
	Theta1 float64 `yaml:"theta1"`
	Theta2 float64 `yaml:"theta2"`
}

func DefaultConfig() *Config {
	return &Config{
		Params: physics.DefaultParams(),
		InitState: InitStateConfig{
			Theta1: DefaultTheta1,
			Theta2: DefaultTheta2,
		},
		Duration: sim.DefaultDuration,
		Samples:  sim.DefaultSamples,
		RelTol:   sim.DefaultTolerance,
		AbsTol:   sim.DefaultTolerance,
	}
}

// Load reads a YAML file on top of the defaults, so a file only needs the
// keys it changes.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver is Load with a caller-chosen base, e.g. a preset. base is not
// modified.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Angles() physics.Angles {
	return physics.Angles{Theta1: c.InitState.Theta1, Theta2: c.InitState.Theta2}
}

func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Duration: c.Duration,
		Samples:  c.Samples,
		RelTol:   c.RelTol,
		AbsTol:   c.AbsTol,
		MaxSteps: c.MaxSteps,
	}
}

// Validate applies the simulator's own checks.
func (c *Config) Validate() error {
	if err := c.Params.Validate(); err != nil {
		return err
	}
	if err := c.Angles().Validate(); err != nil {
		return err
	}
	return c.SimConfig().Validate()
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
