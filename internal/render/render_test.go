package render

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
	"gonum.org/v1/plot/vg"
)

func smallRenderer() *Renderer {
	return &Renderer{Width: 3 * vg.Inch, Height: 2 * vg.Inch, DPI: 40}
}

func TestSaveAll(t *testing.T) {
	traj, err := sim.Integrate(context.Background(), physics.DefaultParams(), physics.Angles{Theta1: 1, Theta2: 2}, 2, 100)
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "figures")
	paths, err := smallRenderer().SaveAll(traj, dir)
	if err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	if len(paths) != 5 {
		t.Fatalf("got %d figures, want 5", len(paths))
	}

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		cfg, err := png.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Errorf("%s is not a PNG: %v", path, err)
			continue
		}
		if cfg.Width == 0 || cfg.Height == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestTrajectory_Square(t *testing.T) {
	traj, err := sim.Integrate(context.Background(), physics.DefaultParams(), physics.Angles{Theta1: 0.5}, 1, 20)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "path.png")
	if err := smallRenderer().Trajectory(traj, path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != cfg.Height {
		t.Errorf("trajectory figure is %dx%d, want square", cfg.Width, cfg.Height)
	}
}

func TestPhaseSpace_BadArm(t *testing.T) {
	traj := sim.NewTrajectory(physics.DefaultParams(), nil, 2)
	if err := smallRenderer().PhaseSpace(traj, 0, filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("expected error for arm 0")
	}
}

func TestEnergy_EmptyTrajectory(t *testing.T) {
	if err := smallRenderer().Energy(&sim.Trajectory{}, filepath.Join(t.TempDir(), "e.png")); err == nil {
		t.Error("expected error for empty trajectory")
	}
}
