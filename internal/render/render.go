// Package render draws trajectory figures to PNG with gonum/plot.
package render

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/san-kum/dpsim/internal/sim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

type Renderer struct {
	Width, Height vg.Length
	DPI           int
}

func New() *Renderer {
	return &Renderer{Width: 8 * vg.Inch, Height: 6 * vg.Inch, DPI: 150}
}

type series struct {
	name   string
	xs, ys []float64
}

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot, labelFmt string) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(10)

	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.X.Padding = vg.Points(8)
	p.Y.Padding = vg.Points(8)

	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
	p.X.Tick.Marker = limitedTicker(8, labelFmt)
	p.Y.Tick.Marker = limitedTicker(8, labelFmt)

	p.Add(plotter.NewGrid())
}

func newPlot(title, xlabel, ylabel, labelFmt string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	stylePlot(p, labelFmt)
	return p
}

func addLines(p *plot.Plot, lines ...series) error {
	for i, s := range lines {
		if len(s.xs) != len(s.ys) || len(s.xs) == 0 {
			return fmt.Errorf("render: %q has %d x and %d y values", s.name, len(s.xs), len(s.ys))
		}
		pts := make(plotter.XYs, len(s.xs))
		for j := range s.xs {
			pts[j].X, pts[j].Y = s.xs[j], s.ys[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		if len(lines) > 1 {
			p.Legend.Add(s.name, line)
		}
	}
	p.Legend.Top = true
	return nil
}

func (r *Renderer) save(p *plot.Plot, w, h vg.Length, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}

	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(r.DPI))
	p.Draw(draw.New(c))

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// Trajectory plots the path of the second bob with equal axis scaling.
func (r *Renderer) Trajectory(traj *sim.Trajectory, filename string) error {
	p := newPlot("Trajectory of End Mass", "x (m)", "y (m)", "%.2f")
	if err := addLines(p, series{"m2", traj.X2, traj.Y2}); err != nil {
		return err
	}
	if traj.Len() > 0 {
		equalAspect(p, traj.X2, traj.Y2)
	}
	side := min(r.Width, r.Height)
	return r.save(p, side, side, filename)
}

func equalAspect(p *plot.Plot, xs, ys []float64) {
	cx := (floats.Max(xs) + floats.Min(xs)) / 2
	cy := (floats.Max(ys) + floats.Min(ys)) / 2
	half := math.Max(floats.Max(xs)-floats.Min(xs), floats.Max(ys)-floats.Min(ys))/2*1.05 + 1e-9
	p.X.Min, p.X.Max = cx-half, cx+half
	p.Y.Min, p.Y.Max = cy-half, cy+half
}

func (r *Renderer) Angles(traj *sim.Trajectory, filename string) error {
	p := newPlot("Angular Position vs Time", "time (s)", "angle (rad)", "%.1f")
	if err := addLines(p,
		series{"θ1", traj.T, traj.Theta1},
		series{"θ2", traj.T, traj.Theta2},
	); err != nil {
		return err
	}
	return r.save(p, r.Width, r.Height, filename)
}

// PhaseSpace plots ω against θ for arm 1 or 2.
func (r *Renderer) PhaseSpace(traj *sim.Trajectory, arm int, filename string) error {
	theta, omega := traj.Theta1, traj.Omega1
	switch arm {
	case 1:
	case 2:
		theta, omega = traj.Theta2, traj.Omega2
	default:
		return fmt.Errorf("render: arm must be 1 or 2, got %d", arm)
	}

	p := newPlot(fmt.Sprintf("Phase Space (Arm %d)", arm), fmt.Sprintf("θ%d (rad)", arm), fmt.Sprintf("ω%d (rad/s)", arm), "%.1f")
	if err := addLines(p, series{fmt.Sprintf("arm %d", arm), theta, omega}); err != nil {
		return err
	}
	return r.save(p, r.Width, r.Height, filename)
}

func (r *Renderer) Energy(traj *sim.Trajectory, filename string) error {
	p := newPlot("Total Energy vs Time", "time (s)", "energy (J)", "%.4g")
	if err := addLines(p, series{"E", traj.T, traj.Energy}); err != nil {
		return err
	}
	return r.save(p, r.Width, r.Height, filename)
}

// SaveAll writes every figure into dir and returns the file paths.
func (r *Renderer) SaveAll(traj *sim.Trajectory, dir string) ([]string, error) {
	figures := []struct {
		name string
		draw func(string) error
	}{
		{"trajectory.png", func(f string) error { return r.Trajectory(traj, f) }},
		{"angles.png", func(f string) error { return r.Angles(traj, f) }},
		{"phase_arm1.png", func(f string) error { return r.PhaseSpace(traj, 1, f) }},
		{"phase_arm2.png", func(f string) error { return r.PhaseSpace(traj, 2, f) }},
		{"energy.png", func(f string) error { return r.Energy(traj, f) }},
	}

	paths := make([]string, 0, len(figures))
	for _, fig := range figures {
		path := filepath.Join(dir, fig.name)
		if err := fig.draw(path); err != nil {
			return paths, fmt.Errorf("%s: %w", fig.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
