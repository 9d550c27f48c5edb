package sim

import (
	"context"
	"time"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/integrators"
	"github.com/san-kum/dpsim/internal/physics"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Simulator integrates the double pendulum and post-processes the result.
// It keeps no per-run state and may be shared between goroutines.
type Simulator struct {
	logger *zap.Logger
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(opts ...Option) *Simulator {
	s := &Simulator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Integrate runs one simulation with the default tolerances. Both arms
// start at rest.
func Integrate(ctx context.Context, params physics.Params, angles physics.Angles, duration float64, samples int) (*Trajectory, error) {
	cfg := DefaultConfig()
	cfg.Duration = duration
	cfg.Samples = samples
	return New().Run(ctx, params, angles, cfg)
}

func (s *Simulator) Run(ctx context.Context, params physics.Params, angles physics.Angles, cfg Config) (*Trajectory, error) {
	if err := s.validate(params, angles, cfg); err != nil {
		return nil, err
	}

	dyn := physics.NewDoublePendulum(params)
	x0 := physics.InitialState(angles)

	tEval := make([]float64, cfg.Samples)
	floats.Span(tEval, 0, cfg.Duration)
	tEval[len(tEval)-1] = cfg.Duration

	integ := integrators.NewRK45(cfg.RelTol, cfg.AbsTol)
	if cfg.MaxSteps > 0 {
		integ.MaxSteps = cfg.MaxSteps
	}

	log := s.logger.With(
		zap.Float64("m1", params.M1), zap.Float64("m2", params.M2),
		zap.Float64("l1", params.L1), zap.Float64("l2", params.L2),
		zap.Float64("theta1", angles.Theta1), zap.Float64("theta2", angles.Theta2),
	)
	log.Debug("integration started",
		zap.Float64("duration", cfg.Duration),
		zap.Int("samples", cfg.Samples),
		zap.Float64("rtol", cfg.RelTol),
		zap.Float64("atol", cfg.AbsTol),
	)

	start := time.Now()
	sol, err := integ.Solve(ctx, dyn, x0, tEval)
	if err != nil {
		log.Debug("integration aborted", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	traj := buildTrajectory(dyn, x0, sol)

	log.Debug("integration finished",
		zap.Int("steps", sol.Stats.Steps),
		zap.Int("rejected", sol.Stats.Rejected),
		zap.Int("evaluations", sol.Stats.Evaluations),
		zap.Duration("elapsed", time.Since(start)),
	)

	return traj, nil
}

func (s *Simulator) validate(params physics.Params, angles physics.Angles, cfg Config) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := angles.Validate(); err != nil {
		return err
	}
	return cfg.Validate()
}

func buildTrajectory(dyn *physics.DoublePendulum, x0 dynamo.State, sol *integrators.Solution) *Trajectory {
	traj := NewTrajectory(dyn.Params(), x0, len(sol.Times))
	copy(traj.T, sol.Times)
	traj.Stats = sol.Stats

	for i, x := range sol.States {
		traj.Theta1[i], traj.Omega1[i] = x[0], x[1]
		traj.Theta2[i], traj.Omega2[i] = x[2], x[3]
		traj.X1[i], traj.Y1[i], traj.X2[i], traj.Y2[i] = dyn.Positions(x)
		traj.Energy[i] = dyn.Energy(x)
	}

	return traj
}
