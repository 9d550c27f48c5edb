package metrics

import (
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
)

// FlipTime records the first time an arm swings over the top, i.e. its
// angle leaves [-π, π]. Value is +Inf while the arm has not flipped.
type FlipTime struct {
	name  string
	index int
	at    float64
}

// NewFlipTime watches arm 1 or 2.
func NewFlipTime(arm int) *FlipTime {
	f := &FlipTime{index: 0, name: "flip_time_1"}
	if arm == 2 {
		f.index, f.name = 2, "flip_time_2"
	}
	f.Reset()
	return f
}

func (f *FlipTime) Name() string { return f.name }

func (f *FlipTime) Observe(x dynamo.State, t float64) {
	if !math.IsInf(f.at, 1) || len(x) <= f.index {
		return
	}
	if math.Abs(x[f.index]) > math.Pi {
		f.at = t
	}
}

func (f *FlipTime) Value() float64 { return f.at }

func (f *FlipTime) Flipped() bool { return !math.IsInf(f.at, 1) }

func (f *FlipTime) Reset() { f.at = math.Inf(1) }
