package config

import (
	"math"
	"sort"

	"github.com/san-kum/dpsim/internal/physics"
)

var unit = physics.Params{M1: 1, M2: 1, L1: 1, L2: 1}

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"gentle": {
		Params: unit, Duration: 30, Samples: 3000, RelTol: 1e-9, AbsTol: 1e-9,
		InitState: InitStateConfig{Theta1: 0.3, Theta2: 0.3},
	},
	"small_angle": {
		Params: unit, Duration: 10, Samples: 1000, RelTol: 1e-9, AbsTol: 1e-9,
		InitState: InitStateConfig{Theta1: 0.01, Theta2: 0.01},
	},
	"horizontal": {
		Params: unit, Duration: 10, Samples: 1000, RelTol: 1e-9, AbsTol: 1e-9,
		InitState: InitStateConfig{Theta1: math.Pi / 2, Theta2: math.Pi / 2},
	},
	"chaos": {
		Params: unit, Duration: 60, Samples: 6000, RelTol: 1e-9, AbsTol: 1e-9,
		InitState: InitStateConfig{Theta1: 3.0, Theta2: 3.0},
	},
	"heavy_lower": {
		Params: physics.Params{M1: 0.5, M2: 5, L1: 1, L2: 1}, Duration: 20, Samples: 4000, RelTol: 1e-9, AbsTol: 1e-9,
		InitState: InitStateConfig{Theta1: 1.5, Theta2: -1},
	},
	"long_lower": {
		Params: physics.Params{M1: 1, M2: 1, L1: 0.5, L2: 3}, Duration: 30, Samples: 4000, RelTol: 1e-9, AbsTol: 1e-9,
		InitState: InitStateConfig{Theta1: 2, Theta2: 0},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
