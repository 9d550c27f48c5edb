package analysis

import (
	"context"
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/metrics"
	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
	"gonum.org/v1/gonum/floats"
)

// SweepPoint is the outcome of one starting angle in a flip sweep.
type SweepPoint struct {
	Theta1   float64 `json:"theta1"`
	Theta2   float64 `json:"theta2"`
	FlipTime float64 `json:"flip_time"` // +Inf when the lower arm never flips
}

func (p SweepPoint) Flipped() bool { return !math.IsInf(p.FlipTime, 1) }

// FlipSweep starts the pendulum at steps evenly spaced θ1 values in
// [lo, hi] with the given θ2 and records when the lower arm first flips
// over within cfg.Duration. Runs execute concurrently.
func FlipSweep(ctx context.Context, s *sim.Simulator, params physics.Params, lo, hi, theta2 float64, steps int, cfg sim.Config) ([]SweepPoint, error) {
	if steps < 2 {
		return nil, dynamo.InvalidParam("steps", float64(steps), "need at least 2 steps")
	}
	if !(hi > lo) {
		return nil, dynamo.InvalidParam("hi", hi, "must exceed lo")
	}

	theta1s := make([]float64, steps)
	floats.Span(theta1s, lo, hi)

	members := make([]physics.Angles, steps)
	for i, th := range theta1s {
		members[i] = physics.Angles{Theta1: th, Theta2: theta2}
	}

	trajs, err := sim.NewEnsemble(s, params, cfg).Run(ctx, members)
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, steps)
	for i, traj := range trajs {
		flip := metrics.NewFlipTime(2)
		metrics.Replay(traj, flip)
		points[i] = SweepPoint{Theta1: theta1s[i], Theta2: theta2, FlipTime: flip.Value()}
	}
	return points, nil
}
