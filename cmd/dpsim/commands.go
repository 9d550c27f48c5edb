package main

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dpsim/internal/analysis"
	"github.com/san-kum/dpsim/internal/config"
	"github.com/san-kum/dpsim/internal/metrics"
	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/render"
	"github.com/san-kum/dpsim/internal/sim"
	"github.com/san-kum/dpsim/internal/storage"
	"github.com/san-kum/dpsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Width(22)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
)

func printRow(w io.Writer, label, format string, a ...any) {
	fmt.Fprintln(w, labelStyle.Render(label)+valueStyle.Render(fmt.Sprintf(format, a...)))
}

// resolveConfig applies defaults, then the preset, then the config file,
// then any flag given explicitly on the command line.
func (o *options) resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if o.preset != "" {
		p := config.GetPreset(o.preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", o.preset, config.ListPresets())
		}
		cfg = p
	}

	if o.configFile != "" {
		loaded, err := config.LoadOver(o.configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	floatFlags := []struct {
		name string
		src  float64
		dst  *float64
	}{
		{"m1", o.m1, &cfg.Params.M1},
		{"m2", o.m2, &cfg.Params.M2},
		{"l1", o.l1, &cfg.Params.L1},
		{"l2", o.l2, &cfg.Params.L2},
		{"theta1", o.theta1, &cfg.InitState.Theta1},
		{"theta2", o.theta2, &cfg.InitState.Theta2},
		{"time", o.duration, &cfg.Duration},
		{"rtol", o.rtol, &cfg.RelTol},
		{"atol", o.atol, &cfg.AbsTol},
	}
	for _, f := range floatFlags {
		if flags.Changed(f.name) {
			*f.dst = f.src
		}
	}
	if flags.Changed("samples") {
		cfg.Samples = o.samples
	}

	for _, v := range cfg.OutOfRange() {
		o.log.Warn("value outside the usual input range, simulating as given",
			zap.String("field", v.Field), zap.Float64("value", v.Value), zap.Stringer("range", v.Range))
	}
	return cfg, nil
}

func (o *options) simulator() *sim.Simulator {
	return sim.New(sim.WithLogger(o.log))
}

func (o *options) runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := o.resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(o.dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "running double pendulum simulation...")
	start := time.Now()

	traj, err := o.simulator().Run(cmd.Context(), cfg.Params, cfg.Angles(), cfg.SimConfig())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	meta := storage.NewMetadata(traj, cfg.SimConfig())
	runID, err := st.Save(meta, traj)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", elapsed)
	fmt.Fprintf(out, "run id: %s\n\n", runID)

	p := cfg.Params
	fmt.Fprintln(out, headerStyle.Render("parameters"))
	printRow(out, "m1, m2 (kg)", "%g, %g", p.M1, p.M2)
	printRow(out, "L1, L2 (m)", "%g, %g", p.L1, p.L2)
	printRow(out, "θ1, θ2 (rad)", "%g, %g", cfg.InitState.Theta1, cfg.InitState.Theta2)
	printRow(out, "duration (s)", "%g", cfg.Duration)
	printRow(out, "samples", "%d", cfg.Samples)

	fmt.Fprintln(out, "\n"+headerStyle.Render("solver"))
	printRow(out, "steps", "%d", traj.Stats.Steps)
	printRow(out, "rejected", "%d", traj.Stats.Rejected)
	printRow(out, "evaluations", "%d", traj.Stats.Evaluations)

	fmt.Fprintln(out)
	printSummary(out, meta.Summary)
	return nil
}

func printSummary(out io.Writer, s metrics.Summary) {
	fmt.Fprintln(out, headerStyle.Render("numerical summary"))
	printRow(out, "max θ1 (rad)", "%.4f", s.MaxTheta1)
	printRow(out, "max θ2 (rad)", "%.4f", s.MaxTheta2)
	printRow(out, "mean energy (J)", "%.6f", s.MeanEnergy)
	printRow(out, "energy std dev (J)", "%.3e", s.EnergyStdDev)
}

// load resolves an optional run id argument, defaulting to the latest run.
func (o *options) load(args []string) (*storage.RunMetadata, *sim.Trajectory, error) {
	st := storage.New(o.dataDir)
	runID := ""
	if len(args) > 0 {
		runID = args[0]
	} else {
		latest, err := st.Latest()
		if err != nil {
			return nil, nil, err
		}
		runID = latest.ID
	}
	return st.LoadTrajectory(runID)
}

func (o *options) listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(o.dataDir).List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tM1\tM2\tL1\tL2\tTHETA1\tTHETA2\tDURATION\tSAMPLES\tSTEPS")

	for _, run := range runs {
		theta1, theta2 := math.NaN(), math.NaN()
		if len(run.Initial) == 4 {
			theta1, theta2 = run.Initial[0], run.Initial[2]
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%g\t%.3f\t%.3f\t%.2fs\t%d\t%d\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Params.M1, run.Params.M2, run.Params.L1, run.Params.L2,
			theta1, theta2,
			run.Duration,
			run.Samples,
			run.Stats.Steps,
		)
	}
	return w.Flush()
}

func (o *options) showRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := o.load(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n\n", meta.ID)
	fmt.Fprintln(out, headerStyle.Render("equations of motion"))
	fmt.Fprintln(out, "  δ = θ2 - θ1")
	fmt.Fprintln(out, "  D1 = (m1+m2)L1 - m2 L1 cos²δ,  D2 = (L2/L1) D1")
	fmt.Fprintln(out, "  θ1'' = [m2 L1 ω1² sinδ cosδ + m2 g sinθ2 cosδ + m2 L2 ω2² sinδ - (m1+m2) g sinθ1] / D1")
	fmt.Fprintln(out, "  θ2'' = [-m2 L2 ω2² sinδ cosδ + (m1+m2)(g sinθ1 cosδ - L1 ω1² sinδ - g sinθ2)] / D2")
	fmt.Fprintln(out, "  E = ½m1(L1ω1)² + ½m2[(L1ω1)² + (L2ω2)² + 2L1L2ω1ω2 cos(θ1-θ2)] - (m1+m2)gL1 cosθ1 - m2 g L2 cosθ2")

	x0 := traj.Initial
	fmt.Fprintln(out, "\n"+headerStyle.Render("initial state"))
	printRow(out, "[θ1, ω1, θ2, ω2]", "[%.4f, %.4f, %.4f, %.4f]", x0[0], x0[1], x0[2], x0[3])

	fmt.Fprintln(out, "\n"+headerStyle.Render("parameters"))
	printRow(out, "m1, m2 (kg)", "%g, %g", meta.Params.M1, meta.Params.M2)
	printRow(out, "L1, L2 (m)", "%g, %g", meta.Params.L1, meta.Params.L2)
	printRow(out, "g (m/s²)", "%g", meta.Gravity)

	fmt.Fprintln(out, "\n"+headerStyle.Render("solver"))
	printRow(out, "method", "%s", meta.Method)
	printRow(out, "rtol, atol", "%g, %g", meta.RelTol, meta.AbsTol)
	printRow(out, "duration, samples", "%gs, %d", meta.Duration, meta.Samples)
	return nil
}

func (o *options) plotRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := o.load(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "samples: %d\n\n", traj.Len())

	series := []struct {
		caption string
		data    []float64
	}{
		{"theta1 (rad)", traj.Theta1},
		{"theta2 (rad)", traj.Theta2},
		{"total energy (J)", traj.Energy},
	}
	for _, s := range series {
		graph := asciigraph.Plot(s.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}
	return nil
}

func (o *options) phasePlot(cmd *cobra.Command, args []string) error {
	_, traj, err := o.load(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.poincare {
		section := analysis.NewPoincareSection(traj)
		fmt.Fprintf(out, "poincaré section: (θ2, ω2) as θ1 rises through 0, %d crossings\n\n", len(section.Points))
		fmt.Fprint(out, analysis.PoincareSectionToASCII(section, 80, 24))
		return nil
	}

	portrait, err := analysis.NewPhasePortrait(traj, o.arm)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "phase space: θ%d (x) vs ω%d (y)\n\n", o.arm, o.arm)
	fmt.Fprint(out, analysis.PhasePortraitToASCII(portrait, 80, 24))
	return nil
}

func (o *options) renderRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := o.load(args)
	if err != nil {
		return err
	}

	dir := o.outDir
	if dir == "" {
		dir = filepath.Join(o.dataDir, meta.ID, "figures")
	}

	r := render.New()
	r.DPI = o.dpi
	if r.DPI <= 0 {
		r.DPI = 150
	}

	paths, err := r.SaveAll(traj, dir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func (o *options) analyzeRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := o.load(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n\n", meta.ID)
	printSummary(out, metrics.Summarize(traj))

	report := metrics.ReportEnergy(traj, physics.NewDoublePendulum(traj.Params))
	fmt.Fprintln(out, "\n"+headerStyle.Render("energy conservation"))
	printRow(out, "initial (J)", "%.9f", report.Initial)
	printRow(out, "final (J)", "%.9f", report.Final)
	printRow(out, "max |E - E0| (J)", "%.3e", report.MaxDrift)
	printRow(out, "energy scale (J)", "%g", report.Scale)
	printRow(out, "relative std dev", "%.3e", report.RelStdDev)
	printRow(out, "relative max drift", "%.3e", report.RelMaxDrift)
	if !report.Conserved(1e-6) {
		o.log.Warn("energy drift above 1e-6 of the energy scale", zap.Float64("rel_max_drift", report.RelMaxDrift))
	}

	fmt.Fprintln(out, "\n"+headerStyle.Render("frequency analysis"))
	dt := traj.T[1] - traj.T[0]
	printRow(out, "dominant θ1 (Hz)", "%.4f", analysis.DominantFrequency(traj.Theta1, dt))
	printRow(out, "dominant θ2 (Hz)", "%.4f", analysis.DominantFrequency(traj.Theta2, dt))

	fmt.Fprintln(out, "\n"+headerStyle.Render("flips"))
	for _, arm := range []int{1, 2} {
		flip := metrics.NewFlipTime(arm)
		metrics.Replay(traj, flip)
		if flip.Flipped() {
			printRow(out, fmt.Sprintf("arm %d", arm), "first flip at %.3fs", flip.Value())
		} else {
			printRow(out, fmt.Sprintf("arm %d", arm), "never flips")
		}
	}

	ps := analysis.PowerSpectrum(traj.Theta1)
	if n := min(len(ps), 80); n > 1 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, asciigraph.Plot(ps[:n],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (θ1)"),
		))
	}
	return nil
}

func (o *options) sensitivity(cmd *cobra.Command, args []string) error {
	cfg, err := o.resolveConfig(cmd)
	if err != nil {
		return err
	}

	res, err := analysis.Sensitivity(cmd.Context(), o.simulator(), cfg.Params, cfg.Angles(), o.eps, cfg.SimConfig())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("sensitivity to initial conditions"))
	printRow(out, "perturbation (rad)", "%g", res.Epsilon)
	printRow(out, "final separation", "%.3e", res.Final)
	printRow(out, "max separation", "%.3e", res.Max)
	printRow(out, "lyapunov estimate", "%.4f 1/s", res.Fit.Lambda)
	printRow(out, "fit r²", "%.4f (%d points)", res.Fit.R2, res.Fit.Points)

	logSep := make([]float64, len(res.Separation))
	for i, d := range res.Separation {
		logSep[i] = math.Log10(math.Max(d, 1e-300))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, asciigraph.Plot(logSep,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("log10 separation vs time"),
	))
	return nil
}

func (o *options) sweep(cmd *cobra.Command, args []string) error {
	cfg, err := o.resolveConfig(cmd)
	if err != nil {
		return err
	}

	points, err := analysis.FlipSweep(cmd.Context(), o.simulator(), cfg.Params, o.lo, o.hi, cfg.InitState.Theta2, o.steps, cfg.SimConfig())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THETA1\tTHETA2\tFLIP")
	for _, p := range points {
		flip := "never"
		if p.Flipped() {
			flip = fmt.Sprintf("%.3fs", p.FlipTime)
		}
		fmt.Fprintf(w, "%.4f\t%.4f\t%s\n", p.Theta1, p.Theta2, flip)
	}
	return w.Flush()
}

func (o *options) viewRun(cmd *cobra.Command, args []string) error {
	meta, traj, err := o.load(args)
	if err != nil {
		return err
	}

	browser := viz.NewBrowser(viz.Result{
		Trajectory: traj,
		Method:     meta.Method,
		RelTol:     meta.RelTol,
		AbsTol:     meta.AbsTol,
	})
	_, err = tea.NewProgram(browser, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}

func (o *options) exportCSV(cmd *cobra.Command, args []string) error {
	_, traj, err := o.load(args)
	if err != nil {
		return err
	}
	return storage.WriteCSV(cmd.OutOrStdout(), traj)
}

func (o *options) exportJSON(cmd *cobra.Command, args []string) error {
	meta, traj, err := o.load(args)
	if err != nil {
		return err
	}
	return storage.ExportJSON(cmd.OutOrStdout(), *meta, traj)
}

func (o *options) listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tM1\tM2\tL1\tL2\tTHETA1\tTHETA2\tDURATION")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%.4f\t%.4f\t%gs\n", name,
			p.Params.M1, p.Params.M2, p.Params.L1, p.Params.L2,
			p.InitState.Theta1, p.InitState.Theta2, p.Duration)
	}
	return w.Flush()
}
