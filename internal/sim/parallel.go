package sim

import (
	"context"
	"runtime"

	"github.com/san-kum/dpsim/internal/physics"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs the same pendulum from several initial conditions
// concurrently. Every member gets its own trajectory; nothing is shared
// between runs except the read-only configuration.
type Ensemble struct {
	base    *Simulator
	params  physics.Params
	cfg     Config
	workers int
}

func NewEnsemble(s *Simulator, params physics.Params, cfg Config) *Ensemble {
	return &Ensemble{base: s, params: params, cfg: cfg, workers: runtime.GOMAXPROCS(0)}
}

// Run returns one trajectory per initial condition, in input order. The
// first failure cancels the remaining members and is returned.
func (e *Ensemble) Run(ctx context.Context, members []physics.Angles) ([]*Trajectory, error) {
	results := make([]*Trajectory, len(members))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, angles := range members {
		i, angles := i, angles
		g.Go(func() error {
			traj, err := e.base.Run(ctx, e.params, angles, e.cfg)
			if err != nil {
				return err
			}
			results[i] = traj
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
