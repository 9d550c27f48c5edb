package metrics

import (
	"github.com/san-kum/dpsim/internal/sim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary is the numerical summary shown after a run.
type Summary struct {
	MaxTheta1    float64 `json:"max_theta1"`
	MaxTheta2    float64 `json:"max_theta2"`
	MeanEnergy   float64 `json:"mean_energy"`
	EnergyStdDev float64 `json:"energy_std_dev"`
}

// Summarize reports the largest angles reached and the population mean and
// standard deviation of the energy series.
func Summarize(traj *sim.Trajectory) Summary {
	if traj.Len() == 0 {
		return Summary{}
	}
	var s Summary
	s.MaxTheta1 = floats.Max(traj.Theta1)
	s.MaxTheta2 = floats.Max(traj.Theta2)
	s.MeanEnergy, s.EnergyStdDev = stat.PopMeanStdDev(traj.Energy, nil)
	return s
}
