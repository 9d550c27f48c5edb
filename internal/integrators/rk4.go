package integrators

import (
	"context"
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
)

// RK4 is the classical fixed-step fourth-order Runge-Kutta method. It has
// no error control and is used as an independent reference for RK45.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// Step advances x by dt and returns a new state.
func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, sys.Derive(x, t))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	copy(r.k2, sys.Derive(r.scratch, t+dt*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	copy(r.k3, sys.Derive(r.scratch, t+dt*0.5))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	copy(r.k4, sys.Derive(r.scratch, t+dt))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}
	return result
}

// Solve takes fixed steps of at most dt and lands exactly on every time in
// tEval, which must start at 0 and be strictly increasing.
func (r *RK4) Solve(ctx context.Context, sys dynamo.System, x0 dynamo.State, tEval []float64, dt float64) (*Solution, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, dynamo.InvalidParam("dt", dt, "must be positive and finite")
	}
	if len(tEval) == 0 || tEval[0] != 0 {
		return nil, dynamo.InvalidParam("t_eval", float64(len(tEval)), "must be non-empty and start at 0")
	}

	sol := &Solution{
		Times:  append([]float64(nil), tEval...),
		States: make([]dynamo.State, len(tEval)),
	}
	sol.States[0] = x0.Clone()

	x, t := x0.Clone(), 0.0
	for i := 1; i < len(tEval); i++ {
		if err := ctx.Err(); err != nil {
			return nil, dynamo.Canceled(err)
		}
		target := tEval[i]
		if !(target > tEval[i-1]) {
			return nil, dynamo.InvalidParam("t_eval", target, "must be strictly increasing")
		}
		for t < target {
			h := math.Min(dt, target-t)
			x = r.Step(sys, x, t, h)
			sol.Stats.Steps++
			sol.Stats.Evaluations += 4
			t += h
			if !x.IsValid() {
				return nil, &dynamo.IntegrationError{Step: sol.Stats.Steps, Time: t, State: x, Cause: dynamo.ErrNonFinite}
			}
		}
		t = target
		sol.States[i] = x.Clone()
	}
	return sol, nil
}
