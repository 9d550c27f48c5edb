package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/dpsim/internal/sim"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	Arm    int
	Points []Point
}

// NewPhasePortrait collects the (θ, ω) pairs of arm 1 or 2.
func NewPhasePortrait(traj *sim.Trajectory, arm int) (*PhasePortrait2D, error) {
	theta, omega, err := armSeries(traj, arm)
	if err != nil {
		return nil, err
	}

	portrait := &PhasePortrait2D{Arm: arm, Points: make([]Point, len(theta))}
	for i := range theta {
		portrait.Points[i] = Point{X: theta[i], Y: omega[i]}
	}
	return portrait, nil
}

func armSeries(traj *sim.Trajectory, arm int) (theta, omega []float64, err error) {
	switch arm {
	case 1:
		return traj.Theta1, traj.Omega1, nil
	case 2:
		return traj.Theta2, traj.Omega2, nil
	}
	return nil, nil, fmt.Errorf("arm must be 1 or 2, got %d", arm)
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}
	return plotPoints(portrait.Points, width, height)
}

func plotPoints(points []Point, width, height int) string {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y

	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	// 10% padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// PoincareSection holds (θ2, ω2) whenever θ1 crosses zero with ω1 > 0.
type PoincareSection struct {
	Points []Point
}

// NewPoincareSection scans the sampled trajectory for upward zero
// crossings of θ1 and linearly interpolates the lower arm's phase point
// at each crossing.
func NewPoincareSection(traj *sim.Trajectory) *PoincareSection {
	section := &PoincareSection{}

	for i := 1; i < traj.Len(); i++ {
		prev, curr := traj.Theta1[i-1], traj.Theta1[i]
		if !(prev < 0 && curr >= 0) {
			continue
		}
		frac := -prev / (curr - prev)
		section.Points = append(section.Points, Point{
			X: lerp(traj.Theta2[i-1], traj.Theta2[i], frac),
			Y: lerp(traj.Omega2[i-1], traj.Omega2[i], frac),
		})
	}

	return section
}

func lerp(a, b, frac float64) float64 { return a + (b-a)*frac }

// PoincareSectionToASCII converts section data to ASCII plot
func PoincareSectionToASCII(section *PoincareSection, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}
	return plotPoints(section.Points, width, height)
}
