// Package analysis characterizes simulated double pendulum runs.
//
//   - [NewPhasePortrait]: (θ, ω) trace of one arm, with an ASCII renderer
//   - [NewPoincareSection]: arm-2 phase points sampled as arm 1 swings through the vertical
//   - [PowerSpectrum], [DominantFrequency]: spectral content via go-dsp
//   - [Sensitivity]: separation of two nearby runs and a Lyapunov estimate
//   - [FlipSweep]: time until the lower arm first flips, across starting angles
//
// # Chaos Detection
//
// A clearly positive Lyapunov estimate indicates chaotic motion:
//
//	res, err := analysis.Sensitivity(ctx, sim.New(), params, angles, 1e-8, cfg)
//	if err == nil && res.Fit.Lambda > 0 {
//	    // nearby starts diverge exponentially
//	}
package analysis
