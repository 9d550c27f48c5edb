package metrics

import (
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/sim"
	"gonum.org/v1/gonum/stat"
)

type energyScaler interface {
	EnergyScale() float64
}

// Energy is the running mean of total mechanical energy.
type Energy struct {
	name    string
	sys     dynamo.Hamiltonian
	samples int
	total   float64
}

func NewEnergy(sys dynamo.Hamiltonian) *Energy {
	return &Energy{name: "energy", sys: sys}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, t float64) {
	e.total += e.sys.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift tracks max |E(t) - E(0)| relative to the system's energy
// scale. Systems without a scale fall back to |E(0)|; when that is zero the
// drift is absolute.
type EnergyDrift struct {
	name     string
	sys      dynamo.Hamiltonian
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift(sys dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{name: "energy_drift", sys: sys}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x dynamo.State, t float64) {
	energy := e.sys.Energy(x)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++
	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initial))
}

func (e *EnergyDrift) scale() float64 {
	if s, ok := e.sys.(energyScaler); ok && s.EnergyScale() > 0 {
		return s.EnergyScale()
	}
	if e.initial != 0 {
		return math.Abs(e.initial)
	}
	return 1
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift / e.scale()
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// EnergyReport describes how well a run conserved energy.
type EnergyReport struct {
	Initial     float64 `json:"initial"`
	Final       float64 `json:"final"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	MaxDrift    float64 `json:"max_drift"`
	Scale       float64 `json:"scale"`
	RelStdDev   float64 `json:"rel_std_dev"`
	RelMaxDrift float64 `json:"rel_max_drift"`
}

// Conserved reports whether the relative spread stays under tol.
func (r EnergyReport) Conserved(tol float64) bool {
	return r.RelStdDev < tol && r.RelMaxDrift < tol
}

// ReportEnergy builds the energy report of traj. The scale comes from
// sys when it provides one.
func ReportEnergy(traj *sim.Trajectory, sys dynamo.Hamiltonian) EnergyReport {
	if traj.Len() == 0 {
		return EnergyReport{}
	}

	drift := NewEnergyDrift(sys)
	Replay(traj, drift)

	r := EnergyReport{
		Initial:  traj.Energy[0],
		Final:    traj.Energy[traj.Len()-1],
		MaxDrift: drift.maxDrift,
		Scale:    drift.scale(),
	}
	r.Mean, r.StdDev = stat.PopMeanStdDev(traj.Energy, nil)
	r.RelStdDev = r.StdDev / r.Scale
	r.RelMaxDrift = drift.Value()
	return r
}
