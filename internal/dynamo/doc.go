// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types shared by the
// physics models, the integrator and the simulator:
//
//   - [State]: vector representing system state
//   - [System]: interface for autonomous ODE systems (dX/dt = f(X))
//   - [Hamiltonian]: systems that expose a conserved energy
//   - error taxonomy: [ErrInvalidParameter], [ErrIntegration], [ErrCanceled]
//
// # Example
//
//	dyn := physics.NewDoublePendulum(params)
//	traj, err := sim.Integrate(ctx, params, angles, 20, sim.DefaultSamples)
//	if errors.Is(err, dynamo.ErrIntegration) {
//	    // solver could not finish the requested span
//	}
//
// # Thread Safety
//
// States returned by systems and integrators are freshly allocated and
// never mutated afterwards, so they may be shared freely between goroutines.
package dynamo
