// Package integrators provides the adaptive ODE solver used by the
// simulator.
//
// [RK45] is the Dormand-Prince 5(4) embedded pair: each step is accepted
// when the RMS of the local error estimate, scaled component-wise by
// atol + rtol*|x|, stays below one. Accepted steps carry a fourth-order
// continuous extension that [RK45.Solve] samples at arbitrary output
// times, so callers get a fixed output grid independent of the adaptive
// step sequence.
package integrators
