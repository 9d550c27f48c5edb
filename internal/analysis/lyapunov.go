package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
	"gonum.org/v1/gonum/stat"
)

// Saturation is the separation above which nearby trajectories are no
// longer treated as infinitesimally close.
const Saturation = 1.0

var ErrTooFewPoints = errors.New("analysis: too few points for a fit")

// Separation returns the state-space distance between two trajectories
// sampled on the same grid.
func Separation(a, b *sim.Trajectory) ([]float64, error) {
	if a.Len() != b.Len() {
		return nil, fmt.Errorf("analysis: trajectories have %d and %d samples", a.Len(), b.Len())
	}
	sep := make([]float64, a.Len())
	for i := range sep {
		sep[i] = a.State(i).Sub(b.State(i)).Norm()
	}
	return sep, nil
}

// LyapunovFit is a least-squares line through ln(separation) over time.
type LyapunovFit struct {
	Lambda    float64 `json:"lambda"`
	Intercept float64 `json:"intercept"`
	R2        float64 `json:"r2"`
	Points    int     `json:"points"`
}

// FitLyapunov estimates the largest Lyapunov exponent from the slope of
// ln(sep) against t, using only samples with 0 < sep <= Saturation.
func FitLyapunov(t, sep []float64) (LyapunovFit, error) {
	var xs, ys []float64
	for i := range t {
		if i < len(sep) && sep[i] > 0 && sep[i] <= Saturation {
			xs = append(xs, t[i])
			ys = append(ys, math.Log(sep[i]))
		}
	}
	if len(xs) < 2 {
		return LyapunovFit{}, ErrTooFewPoints
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return LyapunovFit{
		Lambda:    beta,
		Intercept: alpha,
		R2:        stat.RSquared(xs, ys, nil, alpha, beta),
		Points:    len(xs),
	}, nil
}

type SensitivityResult struct {
	Epsilon    float64         `json:"epsilon"`
	Base       *sim.Trajectory `json:"-"`
	Perturbed  *sim.Trajectory `json:"-"`
	Separation []float64       `json:"separation"`
	Final      float64         `json:"final_separation"`
	Max        float64         `json:"max_separation"`
	Fit        LyapunovFit     `json:"fit"`
	Angles     physics.Angles  `json:"angles"`
	Params     physics.Params  `json:"params"`
}

// Sensitivity integrates angles and a copy with θ1 shifted by eps
// concurrently and measures how fast they separate.
func Sensitivity(ctx context.Context, s *sim.Simulator, params physics.Params, angles physics.Angles, eps float64, cfg sim.Config) (*SensitivityResult, error) {
	if math.IsNaN(eps) || math.IsInf(eps, 0) || eps == 0 {
		return nil, dynamo.InvalidParam("eps", eps, "must be finite and non-zero")
	}

	perturbed := angles
	perturbed.Theta1 += eps

	trajs, err := sim.NewEnsemble(s, params, cfg).Run(ctx, []physics.Angles{angles, perturbed})
	if err != nil {
		return nil, err
	}

	sep, err := Separation(trajs[0], trajs[1])
	if err != nil {
		return nil, err
	}

	res := &SensitivityResult{
		Epsilon:    eps,
		Base:       trajs[0],
		Perturbed:  trajs[1],
		Separation: sep,
		Final:      sep[len(sep)-1],
		Angles:     angles,
		Params:     params,
	}
	for _, d := range sep {
		res.Max = math.Max(res.Max, d)
	}

	fit, err := FitLyapunov(trajs[0].T, sep)
	if err != nil {
		return nil, err
	}
	res.Fit = fit
	return res, nil
}
