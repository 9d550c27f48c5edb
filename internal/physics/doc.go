// Package physics provides the double pendulum model for simulation.
//
// [DoublePendulum] implements [dynamo.System] with the Lagrangian equations
// of motion of two point masses on massless rigid rods, and
// [dynamo.Hamiltonian] for total mechanical energy. State layout is
// (theta1, omega1, theta2, omega2); angles are measured from the downward
// vertical, counter-clockwise positive.
//
// # Energy Conservation
//
// The system is conservative, so energy drift measures integrator error:
//
//	dp := physics.NewDoublePendulum(params)
//	drift := (dp.Energy(x) - dp.Energy(x0)) / dp.EnergyScale()
package physics
