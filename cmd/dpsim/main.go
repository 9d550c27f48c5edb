package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/san-kum/dpsim/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	dataDir string
	verbose bool
	log     *zap.Logger

	// run parameters
	m1, m2, l1, l2 float64
	theta1, theta2 float64
	duration       float64
	samples        int
	rtol, atol     float64
	configFile     string
	preset         string

	// per-command
	arm      int
	poincare bool
	outDir   string
	dpi      int
	eps      float64
	lo, hi   float64
	steps    int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := &options{}
	rootCmd := newRootCmd(opts)
	err := rootCmd.ExecuteContext(ctx)
	if opts.log != nil {
		_ = opts.log.Sync()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dpsim",
		Short:         "double pendulum simulation lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(opts.verbose)
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data", ".dpsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation and store the result",
		Args:  cobra.NoArgs,
		RunE:  opts.logged(opts.runSimulation),
	}
	addModelFlags(runCmd, opts)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  opts.logged(opts.listRuns),
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "model, equations and parameters of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.showRun),
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot angles and energy",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.plotRun),
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.phasePlot),
	}
	phaseCmd.Flags().IntVar(&opts.arm, "arm", 1, "arm to plot (1 or 2)")
	phaseCmd.Flags().BoolVar(&opts.poincare, "poincare", false, "plot the Poincaré section of arm 2 instead")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "write PNG figures",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.renderRun),
	}
	renderCmd.Flags().StringVar(&opts.outDir, "out", "", "output directory (default: the run directory)")
	renderCmd.Flags().IntVar(&opts.dpi, "dpi", 150, "image resolution")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "numerical summary, energy check and frequency analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.analyzeRun),
	}

	sensitivityCmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "compare a run with a slightly perturbed copy",
		Args:  cobra.NoArgs,
		RunE:  opts.logged(opts.sensitivity),
	}
	addModelFlags(sensitivityCmd, opts)
	sensitivityCmd.Flags().Float64Var(&opts.eps, "eps", 1e-8, "perturbation of theta1 (rad)")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "time until the lower arm flips, across starting angles",
		Args:  cobra.NoArgs,
		RunE:  opts.logged(opts.sweep),
	}
	addModelFlags(sweepCmd, opts)
	sweepCmd.Flags().Float64Var(&opts.lo, "lo", -3, "lowest theta1")
	sweepCmd.Flags().Float64Var(&opts.hi, "hi", 3, "highest theta1")
	sweepCmd.Flags().IntVar(&opts.steps, "steps", 13, "number of starting angles")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a run interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.viewRun),
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.exportCSV),
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  opts.logged(opts.exportJSON),
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  opts.logged(opts.listPresets),
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, phaseCmd, renderCmd, analyzeCmd,
		sensitivityCmd, sweepCmd, viewCmd, exportCSVCmd, exportJSONCmd, presetsCmd)
	return rootCmd
}

func addModelFlags(cmd *cobra.Command, opts *options) {
	def := config.DefaultConfig()
	cmd.Flags().Float64Var(&opts.m1, "m1", def.Params.M1, "upper mass (kg)")
	cmd.Flags().Float64Var(&opts.m2, "m2", def.Params.M2, "lower mass (kg)")
	cmd.Flags().Float64Var(&opts.l1, "l1", def.Params.L1, "upper rod length (m)")
	cmd.Flags().Float64Var(&opts.l2, "l2", def.Params.L2, "lower rod length (m)")
	cmd.Flags().Float64Var(&opts.theta1, "theta1", def.InitState.Theta1, "initial upper angle (rad)")
	cmd.Flags().Float64Var(&opts.theta2, "theta2", def.InitState.Theta2, "initial lower angle (rad)")
	cmd.Flags().Float64Var(&opts.duration, "time", def.Duration, "duration (s)")
	cmd.Flags().IntVar(&opts.samples, "samples", def.Samples, "number of output samples")
	cmd.Flags().Float64Var(&opts.rtol, "rtol", def.RelTol, "relative tolerance")
	cmd.Flags().Float64Var(&opts.atol, "atol", def.AbsTol, "absolute tolerance")
	cmd.Flags().StringVar(&opts.configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "use preset configuration")
}

// logged reports a failing command once through the logger.
func (o *options) logged(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if err != nil {
			o.log.Error("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		}
		return err
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
