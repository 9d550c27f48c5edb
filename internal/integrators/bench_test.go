package integrators

import (
	"context"
	"testing"

	"github.com/san-kum/dpsim/internal/dynamo"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int { return 2 }
func (b *benchDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func BenchmarkRK45Step(b *testing.B) {
	integrator := NewRK45(1e-9, 1e-9)
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x, _, _ = integrator.StepAdaptive(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK45Solve(b *testing.B) {
	integrator := NewRK45(1e-9, 1e-9)
	dyn := &benchDynamics{}
	tEval := make([]float64, 4000)
	for i := range tEval {
		tEval[i] = float64(i) * 0.005
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := integrator.Solve(context.Background(), dyn, dynamo.State{1.0, 0.0}, tEval); err != nil {
			b.Fatal(err)
		}
	}
}
