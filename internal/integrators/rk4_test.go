package integrators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/physics"
)

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestRK4Solve_LandsOnGrid(t *testing.T) {
	tEval := []float64{0, 0.25, 0.7, 1}
	sol, err := NewRK4().Solve(context.Background(), &decay{}, dynamo.State{1}, tEval, 0.1)
	if err != nil {
		t.Fatal(err)
	}

	for i, tt := range tEval {
		if got, want := sol.States[i][0], math.Exp(-tt); math.Abs(got-want) > 1e-5 {
			t.Errorf("x(%g) = %.9f, want %.9f", tt, got, want)
		}
	}
	if sol.Stats.Evaluations != 4*sol.Stats.Steps {
		t.Errorf("expected four evaluations per step, got %+v", sol.Stats)
	}
}

func TestRK4Solve_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewRK4().Solve(ctx, &decay{}, dynamo.State{1}, []float64{0, 1}, 0); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("zero dt: got %v", err)
	}
	if _, err := NewRK4().Solve(ctx, &decay{}, dynamo.State{1}, []float64{0, 1, 1}, 0.1); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("repeated time: got %v", err)
	}
	if _, err := NewRK4().Solve(ctx, &poisoned{}, dynamo.State{1}, []float64{0, 1}, 0.1); !errors.Is(err, dynamo.ErrNonFinite) {
		t.Errorf("poisoned system: got %v", err)
	}
}

// The adaptive and fixed-step solvers share no code beyond the system, so
// agreement on a chaotic trajectory over a short span checks both.
func TestRK45AgreesWithRK4(t *testing.T) {
	dp := physics.NewDoublePendulum(physics.Params{M1: 1, M2: 1, L1: 1, L2: 1})
	x0 := physics.InitialState(physics.Angles{Theta1: 2, Theta2: -1})
	tEval := grid(0, 2, 0.1)

	adaptive, err := NewRK45(1e-10, 1e-10).Solve(context.Background(), dp, x0, tEval)
	if err != nil {
		t.Fatal(err)
	}
	fixed, err := NewRK4().Solve(context.Background(), dp, x0, tEval, 1e-3)
	if err != nil {
		t.Fatal(err)
	}

	for i := range tEval {
		if d := adaptive.States[i].Sub(fixed.States[i]).Norm(); d > 1e-6 {
			t.Errorf("t=%.1f: solvers differ by %.3e", tEval[i], d)
		}
	}
}
