package metrics

import (
	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/sim"
)

// Metric accumulates a scalar over a sequence of states.
type Metric interface {
	Name() string
	Observe(x dynamo.State, t float64)
	Value() float64
	Reset()
}

// Replay feeds every sample of traj to each metric in order.
func Replay(traj *sim.Trajectory, ms ...Metric) {
	for i, t := range traj.T {
		x := traj.State(i)
		for _, m := range ms {
			m.Observe(x, t)
		}
	}
}
