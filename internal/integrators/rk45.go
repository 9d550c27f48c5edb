package integrators

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Continuous extension of order 4. Row s holds the polynomial coefficients
// (in powers θ, θ², θ³, θ⁴ of the step fraction) multiplying stage k_s.
// At θ = 1 each row sums to the fifth-order weight of its stage.
var dense = [7][4]float64{
	{1, -8048581381.0 / 2820520608.0, 8663915743.0 / 2820520608.0, -12715105075.0 / 11282082432.0},
	{0, 0, 0, 0},
	{0, 131558114200.0 / 32700410799.0, -68118460800.0 / 10900136933.0, 87487479700.0 / 32700410799.0},
	{0, -1754552775.0 / 470086768.0, 14199869525.0 / 1410260304.0, -10690763975.0 / 1880347072.0},
	{0, 127303824393.0 / 49829197408.0, -318862633887.0 / 49829197408.0, 701980252875.0 / 199316789632.0},
	{0, -282668133.0 / 205662961.0, 2019193451.0 / 616988883.0, -1453857185.0 / 822651844.0},
	{0, 40617522.0 / 29380423.0, -110615467.0 / 29380423.0, 69997945.0 / 29380423.0},
}

const (
	DefaultRelTol   = 1e-6
	DefaultAbsTol   = 1e-6
	DefaultMaxSteps = 5_000_000
)

// RK45 is an adaptive Dormand-Prince 5(4) integrator with local
// extrapolation, FSAL and a fourth-order continuous extension. It holds
// configuration only, so one value can serve concurrent solves.
type RK45 struct {
	RelTol   float64
	AbsTol   float64
	MaxSteps int

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45(rtol, atol float64) *RK45 {
	return &RK45{
		RelTol:   rtol,
		AbsTol:   atol,
		MaxSteps: DefaultMaxSteps,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Stats counts the work done by one solve.
type Stats struct {
	Steps       int `json:"steps"`
	Rejected    int `json:"rejected"`
	Evaluations int `json:"evaluations"`
}

// Solution holds the states sampled at the requested times.
type Solution struct {
	Times  []float64
	States []dynamo.State
	Stats  Stats
}

// stages holds the seven slope evaluations of one Dormand-Prince step.
type stages [7]dynamo.State

// Solve integrates dyn from tEval[0] to the last element of tEval and
// returns the solution at every element of tEval, which must be strictly
// increasing. Output times are served from the continuous extension of the
// step that covers them, so the internal step sequence does not depend on
// the sampling grid.
//
// Trial steps that produce NaN or Inf are rejected like inaccurate ones.
// When the step size collapses below ten ulps of t the solve fails with an
// *dynamo.IntegrationError; no partial solution is returned.
func (r *RK45) Solve(ctx context.Context, dyn dynamo.System, x0 dynamo.State, tEval []float64) (*Solution, error) {
	if err := r.validate(dyn, x0, tEval); err != nil {
		return nil, err
	}

	sol := &Solution{
		Times:  append([]float64(nil), tEval...),
		States: make([]dynamo.State, len(tEval)),
	}

	t0, tEnd := tEval[0], tEval[len(tEval)-1]
	x := x0.Clone()
	fx := dyn.Derive(x, t0)
	sol.Stats.Evaluations++

	if !x.IsValid() || !fx.IsValid() {
		return nil, &dynamo.IntegrationError{Step: 0, Time: t0, State: x, Cause: dynamo.ErrNonFinite}
	}

	next := 0
	for next < len(tEval) && tEval[next] <= t0 {
		sol.States[next] = x.Clone()
		next++
	}
	if next == len(tEval) {
		return sol, nil
	}

	h := r.initialStep(dyn, t0, x, fx, tEnd-t0, &sol.Stats)
	t := t0

	for t < tEnd {
		select {
		case <-ctx.Done():
			return nil, dynamo.Canceled(ctx.Err())
		default:
		}

		if sol.Stats.Steps >= r.MaxSteps {
			return nil, &dynamo.IntegrationError{Step: sol.Stats.Steps, Time: t, State: x, Cause: dynamo.ErrMaxSteps}
		}

		hMin := 10 * (math.Nextafter(t, math.Inf(1)) - t)
		if h < hMin {
			h = hMin
		}

		var (
			tNew, hNext float64
			xNew, fNew  dynamo.State
			k           stages
			rejected    bool
		)
		for {
			if h < hMin {
				return nil, &dynamo.IntegrationError{Step: sol.Stats.Steps, Time: t, State: x, Cause: dynamo.ErrStepTooSmall}
			}

			tNew = t + h
			if tNew > tEnd {
				tNew = tEnd
			}
			h = tNew - t

			var errNorm float64
			xNew, fNew, k, errNorm = r.attempt(dyn, x, fx, t, h)
			sol.Stats.Evaluations += 6

			if errNorm < 1 {
				factor := r.maxScale
				if errNorm > 0 {
					factor = math.Min(r.maxScale, r.safety*math.Pow(errNorm, -0.2))
				}
				if rejected {
					factor = math.Min(1, factor)
				}
				hNext = h * factor
				break
			}

			factor := r.minScale
			if !math.IsNaN(errNorm) {
				factor = math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.2))
			}
			h *= factor
			rejected = true
			sol.Stats.Rejected++
		}

		for next < len(tEval) && tEval[next] <= tNew {
			if tEval[next] == tNew {
				sol.States[next] = xNew.Clone()
			} else {
				sol.States[next] = interpolate(x, &k, h, (tEval[next]-t)/h)
			}
			next++
		}

		t, x, fx, h = tNew, xNew, fNew, hNext
		sol.Stats.Steps++
	}

	return sol, nil
}

func (r *RK45) validate(dyn dynamo.System, x0 dynamo.State, tEval []float64) error {
	if len(x0) != dyn.StateDim() {
		return fmt.Errorf("rk45: state has %d components, system expects %d: %w",
			len(x0), dyn.StateDim(), dynamo.ErrInvalidParameter)
	}
	if len(tEval) == 0 {
		return dynamo.InvalidParam("samples", 0, "need at least one output time")
	}
	for i := 1; i < len(tEval); i++ {
		if !(tEval[i] > tEval[i-1]) {
			return dynamo.InvalidParam("t_eval", tEval[i], "output times must be strictly increasing")
		}
	}
	if !(r.RelTol > 0) {
		return dynamo.InvalidParam("rtol", r.RelTol, "must be positive")
	}
	if !(r.AbsTol > 0) {
		return dynamo.InvalidParam("atol", r.AbsTol, "must be positive")
	}
	return nil
}

// StepAdaptive takes one trial step of size dt and reports the fifth-order
// result, the suggested next step and whether the error estimate met the
// tolerance. Rejected steps return the unchanged input state.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, float64, bool) {
	fx := dyn.Derive(x, t)
	xNew, _, _, errNorm := r.attempt(dyn, x, fx, t, dt)

	if errNorm < 1 {
		if errNorm == 0 {
			return xNew, dt * r.maxScale, true
		}
		return xNew, dt * math.Min(r.maxScale, r.safety*math.Pow(errNorm, -0.2)), true
	}
	if math.IsNaN(errNorm) {
		return x, dt * r.minScale, false
	}
	return x, dt * math.Max(r.minScale, r.safety*math.Pow(errNorm, -0.2)), false
}

// attempt evaluates one Dormand-Prince step and returns the new state, its
// derivative, all stages and the RMS error norm scaled by the tolerances.
// The norm is NaN when any stage or the result is not finite.
func (r *RK45) attempt(dyn dynamo.System, x, k1 dynamo.State, t, dt float64) (dynamo.State, dynamo.State, stages, float64) {
	n := len(x)

	x2 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x2[i] = x[i] + dt*b21*k1[i]
	}
	k2 := dyn.Derive(x2, t+a2*dt)

	x3 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x3[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3 := dyn.Derive(x3, t+a3*dt)

	x4 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x4[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4 := dyn.Derive(x4, t+a4*dt)

	x5 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x5[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5 := dyn.Derive(x5, t+a5*dt)

	x6 := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		x6[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6 := dyn.Derive(x6, t+dt)

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7 := dyn.Derive(xNew, t+dt)
	k := stages{k1, k2, k3, k4, k5, k6, k7}

	if !xNew.IsValid() || !k7.IsValid() {
		return xNew, k7, k, math.NaN()
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := r.AbsTol + r.RelTol*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := errEst / scale
		sum += e * e
	}

	return xNew, k7, k, math.Sqrt(sum / float64(n))
}

// initialStep picks the first trial step from the magnitudes of the state,
// its derivative and a finite-difference estimate of the second derivative
// (Hairer, Nørsett & Wanner, Solving ODEs I, II.4).
func (r *RK45) initialStep(dyn dynamo.System, t0 float64, x0, f0 dynamo.State, span float64, stats *Stats) float64 {
	n := len(x0)
	scale := make([]float64, n)
	for i := range x0 {
		scale[i] = r.AbsTol + math.Abs(x0[i])*r.RelTol
	}

	rms := func(v func(i int) float64) float64 {
		sum := 0.0
		for i := 0; i < n; i++ {
			e := v(i) / scale[i]
			sum += e * e
		}
		return math.Sqrt(sum / float64(n))
	}

	d0 := rms(func(i int) float64 { return x0[i] })
	d1 := rms(func(i int) float64 { return f0[i] })

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, span)

	x1 := make(dynamo.State, n)
	for i := range x0 {
		x1[i] = x0[i] + h0*f0[i]
	}
	f1 := dyn.Derive(x1, t0+h0)
	stats.Evaluations++

	d2 := rms(func(i int) float64 { return f1[i] - f0[i] }) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/5.0)
	}

	h := math.Min(100*h0, h1)
	if math.IsNaN(h) {
		h = h0
	}
	return math.Min(h, span)
}

// interpolate evaluates the continuous extension of the step that started
// at x with size h, at fraction theta of the step.
func interpolate(x dynamo.State, k *stages, h, theta float64) dynamo.State {
	powers := [4]float64{theta, theta * theta, theta * theta * theta, theta * theta * theta * theta}

	out := make(dynamo.State, len(x))
	for i := range x {
		acc := 0.0
		for s := 0; s < 7; s++ {
			coeff := 0.0
			for j := 0; j < 4; j++ {
				coeff += dense[s][j] * powers[j]
			}
			acc += k[s][i] * coeff
		}
		out[i] = x[i] + h*acc
	}
	return out
}
