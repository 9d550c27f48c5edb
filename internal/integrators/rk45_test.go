package integrators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dpsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

type decay struct{}

func (d *decay) StateDim() int { return 1 }

func (d *decay) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-x[0]}
}

// wall moves at unit speed and returns NaN once it passes 0.5.
type wall struct{}

func (w *wall) StateDim() int { return 1 }

func (w *wall) Derive(x dynamo.State, t float64) dynamo.State {
	if x[0] > 0.5 {
		return dynamo.State{math.NaN()}
	}
	return dynamo.State{1}
}

type poisoned struct{}

func (p *poisoned) StateDim() int { return 1 }

func (p *poisoned) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{math.Inf(1)}
}

func grid(start, stop, step float64) []float64 {
	var ts []float64
	for i := 0; ; i++ {
		t := start + float64(i)*step
		if t > stop {
			break
		}
		ts = append(ts, t)
	}
	return ts
}

func TestRK45_SolveHarmonicOscillator(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	tEval := grid(0, 10, 0.125)

	sol, err := integ.Solve(context.Background(), &harmonicOscillator{}, dynamo.State{1, 0}, tEval)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if len(sol.States) != len(tEval) {
		t.Fatalf("expected %d states, got %d", len(tEval), len(sol.States))
	}

	for i, ti := range tEval {
		x := sol.States[i]
		if math.Abs(x[0]-math.Cos(ti)) > 1e-6 || math.Abs(x[1]+math.Sin(ti)) > 1e-6 {
			t.Fatalf("t=%.3f: got [%.9f, %.9f], want [%.9f, %.9f]", ti, x[0], x[1], math.Cos(ti), -math.Sin(ti))
		}
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	sol, err := integ.Solve(context.Background(), dyn, x0, grid(0, 100, 1))
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	initialEnergy := dyn.Energy(x0)
	for i, x := range sol.States {
		drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
		if drift > 1e-6 {
			t.Fatalf("energy drift too high at sample %d: %e", i, drift)
		}
	}
}

func TestRK45_Decay(t *testing.T) {
	integ := NewRK45(1e-10, 1e-12)
	sol, err := integ.Solve(context.Background(), &decay{}, dynamo.State{2}, []float64{0, 0.3, 1, 2.5, 5})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	for i, ti := range sol.Times {
		want := 2 * math.Exp(-ti)
		if math.Abs(sol.States[i][0]-want) > 1e-8 {
			t.Errorf("t=%.2f: got %.12f, want %.12f", ti, sol.States[i][0], want)
		}
	}
}

func TestRK45_EndpointsAreExact(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	x0 := dynamo.State{0.3, -0.2}

	sol, err := integ.Solve(context.Background(), &harmonicOscillator{}, x0, []float64{0, 3})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if sol.States[0][0] != x0[0] || sol.States[0][1] != x0[1] {
		t.Errorf("first sample must equal the initial state, got %v", sol.States[0])
	}
	if &sol.States[0][0] == &x0[0] {
		t.Error("first sample aliases the caller's state")
	}
	if sol.Stats.Steps < 2 {
		t.Errorf("expected several internal steps, got %d", sol.Stats.Steps)
	}
}

func TestRK45_GridIndependence(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	x0 := dynamo.State{1, 0.5}

	coarse, err := integ.Solve(context.Background(), &harmonicOscillator{}, x0, grid(0, 8, 1))
	if err != nil {
		t.Fatalf("coarse solve failed: %v", err)
	}
	fine, err := integ.Solve(context.Background(), &harmonicOscillator{}, x0, grid(0, 8, 0.25))
	if err != nil {
		t.Fatalf("fine solve failed: %v", err)
	}

	if coarse.Stats != fine.Stats {
		t.Errorf("step sequence depends on the output grid: %+v vs %+v", coarse.Stats, fine.Stats)
	}
	for i := range coarse.Times {
		a, b := coarse.States[i], fine.States[4*i]
		if a[0] != b[0] || a[1] != b[1] {
			t.Errorf("t=%v: coarse %v differs from fine %v", coarse.Times[i], a, b)
		}
	}
}

func TestRK45_StatsAccounting(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	sol, err := integ.Solve(context.Background(), &harmonicOscillator{}, dynamo.State{1, 0}, []float64{0, 5})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	// one derivative at t0, one probe for the initial step, six per attempt
	want := 2 + 6*(sol.Stats.Steps+sol.Stats.Rejected)
	if sol.Stats.Evaluations != want {
		t.Errorf("expected %d evaluations, got %d (%+v)", want, sol.Stats.Evaluations, sol.Stats)
	}
}

func TestRK45_NonFiniteFailsFast(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)

	sol, err := integ.Solve(context.Background(), &wall{}, dynamo.State{0}, []float64{0, 1})
	if sol != nil {
		t.Error("expected no partial solution")
	}
	if !errors.Is(err, dynamo.ErrIntegration) || !errors.Is(err, dynamo.ErrStepTooSmall) {
		t.Fatalf("expected step-too-small integration failure, got %v", err)
	}

	var ie *dynamo.IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntegrationError, got %T", err)
	}
	if ie.Time > 0.5 || ie.Time < 0.49 {
		t.Errorf("expected failure just before t=0.5, got t=%g", ie.Time)
	}
}

func TestRK45_NonFiniteInitialDerivative(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)

	_, err := integ.Solve(context.Background(), &poisoned{}, dynamo.State{0}, []float64{0, 1})
	if !errors.Is(err, dynamo.ErrIntegration) || !errors.Is(err, dynamo.ErrNonFinite) {
		t.Fatalf("expected non-finite integration failure, got %v", err)
	}
}

func TestRK45_MaxSteps(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	integ.MaxSteps = 3

	_, err := integ.Solve(context.Background(), &harmonicOscillator{}, dynamo.State{1, 0}, []float64{0, 50})
	if !errors.Is(err, dynamo.ErrMaxSteps) {
		t.Fatalf("expected ErrMaxSteps, got %v", err)
	}
}

func TestRK45_Canceled(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := integ.Solve(ctx, &harmonicOscillator{}, dynamo.State{1, 0}, []float64{0, 1})
	if !errors.Is(err, dynamo.ErrCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestRK45_InvalidInput(t *testing.T) {
	integ := NewRK45(1e-9, 1e-9)
	dyn := &harmonicOscillator{}

	tests := []struct {
		name  string
		integ *RK45
		x0    dynamo.State
		tEval []float64
	}{
		{"wrong dimension", integ, dynamo.State{1}, []float64{0, 1}},
		{"no output times", integ, dynamo.State{1, 0}, nil},
		{"decreasing times", integ, dynamo.State{1, 0}, []float64{0, 2, 1}},
		{"repeated times", integ, dynamo.State{1, 0}, []float64{0, 1, 1}},
		{"zero rtol", NewRK45(0, 1e-9), dynamo.State{1, 0}, []float64{0, 1}},
		{"negative atol", NewRK45(1e-9, -1), dynamo.State{1, 0}, []float64{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.integ.Solve(context.Background(), dyn, tt.x0, tt.tEval)
			if !errors.Is(err, dynamo.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integ := NewRK45(1e-8, 1e-8)
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, ok := integ.StepAdaptive(dyn, x0, 0, 1.0)
	if ok {
		t.Error("a unit step should not meet a 1e-8 tolerance")
	}
	if x[0] != x0[0] || x[1] != x0[1] {
		t.Error("rejected step must return the input state")
	}
	if newDt >= 1.0 || newDt <= 0 {
		t.Errorf("rejected step should shrink dt, got %f", newDt)
	}

	x, newDt, ok = integ.StepAdaptive(dyn, x0, 0, 1e-3)
	if !ok {
		t.Fatal("a tiny step should be accepted")
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 1e-3 {
		t.Errorf("accepted step with small error should grow dt, got %f", newDt)
	}
}
