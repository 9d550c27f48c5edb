package sim

import (
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/integrators"
	"github.com/san-kum/dpsim/internal/physics"
)

const (
	DefaultDuration  = 20.0
	DefaultSamples   = 4000
	DefaultTolerance = 1e-9
)

type Config struct {
	Duration float64
	Samples  int
	RelTol   float64
	AbsTol   float64
	// MaxSteps caps accepted solver steps; zero keeps the integrator default.
	MaxSteps int
}

func DefaultConfig() Config {
	return Config{
		Duration: DefaultDuration,
		Samples:  DefaultSamples,
		RelTol:   DefaultTolerance,
		AbsTol:   DefaultTolerance,
	}
}

func (c Config) Validate() error {
	if math.IsNaN(c.Duration) || math.IsInf(c.Duration, 0) {
		return dynamo.InvalidParam("duration", c.Duration, "must be finite")
	}
	if c.Duration <= 0 {
		return dynamo.InvalidParam("duration", c.Duration, "must be positive")
	}
	if c.Samples < 2 {
		return dynamo.InvalidParam("samples", float64(c.Samples), "need at least 2 samples")
	}
	if !(c.RelTol > 0) {
		return dynamo.InvalidParam("rtol", c.RelTol, "must be positive")
	}
	if !(c.AbsTol > 0) {
		return dynamo.InvalidParam("atol", c.AbsTol, "must be positive")
	}
	if c.MaxSteps < 0 {
		return dynamo.InvalidParam("max_steps", float64(c.MaxSteps), "must not be negative")
	}
	return nil
}

// Trajectory is the sampled result of one run. All series share the
// length of T and are index-aligned. A Trajectory is never modified after
// the simulator returns it.
type Trajectory struct {
	T      []float64 `json:"t"`
	Theta1 []float64 `json:"theta1"`
	Omega1 []float64 `json:"omega1"`
	Theta2 []float64 `json:"theta2"`
	Omega2 []float64 `json:"omega2"`
	X1     []float64 `json:"x1"`
	Y1     []float64 `json:"y1"`
	X2     []float64 `json:"x2"`
	Y2     []float64 `json:"y2"`
	Energy []float64 `json:"energy"`

	Initial dynamo.State      `json:"initial_state"`
	Params  physics.Params    `json:"params"`
	Stats   integrators.Stats `json:"stats"`
}

// NewTrajectory allocates every series with length n.
func NewTrajectory(params physics.Params, initial dynamo.State, n int) *Trajectory {
	return &Trajectory{
		T:       make([]float64, n),
		Theta1:  make([]float64, n),
		Omega1:  make([]float64, n),
		Theta2:  make([]float64, n),
		Omega2:  make([]float64, n),
		X1:      make([]float64, n),
		Y1:      make([]float64, n),
		X2:      make([]float64, n),
		Y2:      make([]float64, n),
		Energy:  make([]float64, n),
		Initial: initial.Clone(),
		Params:  params,
	}
}

func (tr *Trajectory) Len() int { return len(tr.T) }

func (tr *Trajectory) Duration() float64 {
	if len(tr.T) == 0 {
		return 0
	}
	return tr.T[len(tr.T)-1]
}

// State returns the state vector at sample i.
func (tr *Trajectory) State(i int) dynamo.State {
	return dynamo.State{tr.Theta1[i], tr.Omega1[i], tr.Theta2[i], tr.Omega2[i]}
}

// Columns lists the series in storage order together with their names.
func (tr *Trajectory) Columns() ([]string, [][]float64) {
	return []string{"t", "theta1", "omega1", "theta2", "omega2", "x1", "y1", "x2", "y2", "energy"},
		[][]float64{tr.T, tr.Theta1, tr.Omega1, tr.Theta2, tr.Omega2, tr.X1, tr.Y1, tr.X2, tr.Y2, tr.Energy}
}
