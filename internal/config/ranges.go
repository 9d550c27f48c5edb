package config

import (
	"fmt"
	"math"
)

type Range struct {
	Min, Max float64
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

func (r Range) String() string { return fmt.Sprintf("[%g, %g]", r.Min, r.Max) }

// Ranges are the input affordances of the interactive front end. Values
// outside them are still simulated.
var Ranges = struct {
	Mass, Length, Angle, Duration Range
}{
	Mass:     Range{0.5, 5},
	Length:   Range{0.5, 3},
	Angle:    Range{-math.Pi, math.Pi},
	Duration: Range{5, 60},
}

type Violation struct {
	Field string
	Value float64
	Range Range
}

func (v Violation) String() string {
	return fmt.Sprintf("%s = %g outside %v", v.Field, v.Value, v.Range)
}

// OutOfRange lists every field that falls outside Ranges.
func (c *Config) OutOfRange() []Violation {
	checks := []struct {
		field string
		value float64
		r     Range
	}{
		{"m1", c.Params.M1, Ranges.Mass},
		{"m2", c.Params.M2, Ranges.Mass},
		{"l1", c.Params.L1, Ranges.Length},
		{"l2", c.Params.L2, Ranges.Length},
		{"theta1", c.InitState.Theta1, Ranges.Angle},
		{"theta2", c.InitState.Theta2, Ranges.Angle},
		{"duration", c.Duration, Ranges.Duration},
	}

	var out []Violation
	for _, ch := range checks {
		if !ch.r.Contains(ch.value) {
			out = append(out, Violation{Field: ch.field, Value: ch.value, Range: ch.r})
		}
	}
	return out
}
