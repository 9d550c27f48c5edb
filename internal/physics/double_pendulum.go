package physics

import (
	"math"

	"github.com/san-kum/dpsim/internal/dynamo"
)

// Gravity is the gravitational acceleration in m/s².
const Gravity = 9.81

const (
	DefaultMass   = 1.0
	DefaultLength = 1.0
)

// Params holds masses (kg) and rod lengths (m) of the two arms.
type Params struct {
	M1 float64 `json:"m1" yaml:"m1"`
	M2 float64 `json:"m2" yaml:"m2"`
	L1 float64 `json:"l1" yaml:"l1"`
	L2 float64 `json:"l2" yaml:"l2"`
}

func DefaultParams() Params {
	return Params{M1: DefaultMass, M2: DefaultMass, L1: DefaultLength, L2: DefaultLength}
}

// Validate reports the first mass or length that is not strictly positive
// and finite.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"m1", p.M1}, {"m2", p.M2}, {"l1", p.L1}, {"l2", p.L2},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return dynamo.InvalidParam(f.name, f.value, "must be finite")
		}
		if f.value <= 0 {
			return dynamo.InvalidParam(f.name, f.value, "must be positive")
		}
	}
	return nil
}

// Angles are the initial displacements in radians. Callers are expected to
// keep them within [-π, π]; values outside that range are integrated as
// given.
type Angles struct {
	Theta1 float64 `json:"theta1" yaml:"theta1"`
	Theta2 float64 `json:"theta2" yaml:"theta2"`
}

func (a Angles) Validate() error {
	if math.IsNaN(a.Theta1) || math.IsInf(a.Theta1, 0) {
		return dynamo.InvalidParam("theta1", a.Theta1, "must be finite")
	}
	if math.IsNaN(a.Theta2) || math.IsInf(a.Theta2, 0) {
		return dynamo.InvalidParam("theta2", a.Theta2, "must be finite")
	}
	return nil
}

// InitialState releases both arms from rest at the given angles.
func InitialState(a Angles) dynamo.State {
	return dynamo.State{a.Theta1, 0, a.Theta2, 0}
}

// DoublePendulum is a planar double pendulum with point masses.
// State: [theta1, omega1, theta2, omega2]
//
// The denominator den1 = (m1+m2)*L1 - m2*L1*cos²(θ2-θ1) is not guarded.
// It equals L1*(m1 + m2*sin²(θ2-θ1)), so it only approaches zero when m1 is
// negligible against m2 and the arms are aligned; NaN or Inf produced there
// propagate to the caller.
type DoublePendulum struct {
	p Params
}

func NewDoublePendulum(p Params) *DoublePendulum {
	return &DoublePendulum{p: p}
}

func (d *DoublePendulum) Params() Params { return d.p }

func (d *DoublePendulum) StateDim() int { return 4 }

func (d *DoublePendulum) Derive(x dynamo.State, _ float64) dynamo.State {
	theta1, omega1, theta2, omega2 := x[0], x[1], x[2], x[3]
	m1, m2, l1, l2 := d.p.M1, d.p.M2, d.p.L1, d.p.L2
	g := Gravity

	delta := theta2 - theta1
	sinD, cosD := math.Sin(delta), math.Cos(delta)

	den1 := (m1+m2)*l1 - m2*l1*cosD*cosD
	den2 := (l2 / l1) * den1

	alpha1 := (m2*l1*omega1*omega1*sinD*cosD +
		m2*g*math.Sin(theta2)*cosD +
		m2*l2*omega2*omega2*sinD -
		(m1+m2)*g*math.Sin(theta1)) / den1

	alpha2 := (-m2*l2*omega2*omega2*sinD*cosD +
		(m1+m2)*g*math.Sin(theta1)*cosD -
		(m1+m2)*l1*omega1*omega1*sinD -
		(m1+m2)*g*math.Sin(theta2)) / den2

	return dynamo.State{omega1, alpha1, omega2, alpha2}
}

// Positions returns the Cartesian coordinates of both bobs with the pivot
// at the origin and y pointing up.
func (d *DoublePendulum) Positions(x dynamo.State) (x1, y1, x2, y2 float64) {
	theta1, theta2 := x[0], x[2]
	x1 = d.p.L1 * math.Sin(theta1)
	y1 = -d.p.L1 * math.Cos(theta1)
	x2 = x1 + d.p.L2*math.Sin(theta2)
	y2 = y1 - d.p.L2*math.Cos(theta2)
	return
}

func (d *DoublePendulum) Energy(x dynamo.State) float64 {
	theta1, omega1, theta2, omega2 := x[0], x[1], x[2], x[3]
	m1, m2, l1, l2, g := d.p.M1, d.p.M2, d.p.L1, d.p.L2, Gravity

	v1sq := l1 * l1 * omega1 * omega1
	v2sq := v1sq + l2*l2*omega2*omega2 +
		2*l1*l2*omega1*omega2*math.Cos(theta1-theta2)

	ke := 0.5*m1*v1sq + 0.5*m2*v2sq
	pe := -(m1+m2)*g*l1*math.Cos(theta1) - m2*g*l2*math.Cos(theta2)

	return ke + pe
}

// EnergyScale is the potential energy gap between hanging straight down and
// standing straight up, halved. It gives drift a meaningful denominator
// when the total energy itself is near zero.
func (d *DoublePendulum) EnergyScale() float64 {
	return (d.p.M1+d.p.M2)*Gravity*d.p.L1 + d.p.M2*Gravity*d.p.L2
}
