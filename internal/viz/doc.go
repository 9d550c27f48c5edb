// Package viz provides the terminal result browser for double pendulum runs.
//
// The browser is a Bubble Tea program with three sections:
//
//   - About: what the simulation shows and why it is chaotic
//   - Model: equations, initial state, parameters and solver settings
//   - Results: numerical summary, charts and a replay of the motion
//
// # Key Bindings
//
//	Tab/→  - Next section (1/2/3 jump directly)
//	Space  - Play/pause the replay
//	[ ]    - Step the replay backward/forward
//	C      - Cycle the chart (θ1, θ2, energy)
//	T      - Cycle color themes
//	Q      - Quit
package viz
