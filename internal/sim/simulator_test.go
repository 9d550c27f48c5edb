package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/dpsim/internal/dynamo"
	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
)

var unit = physics.Params{M1: 1, M2: 1, L1: 1, L2: 1}

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

var _ = Describe("Integrate", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("output shape", func() {
		It("returns aligned series on the requested grid", func() {
			traj, err := sim.Integrate(ctx, unit, physics.Angles{Theta1: 1, Theta2: -0.5}, 10, 1000)
			Expect(err).NotTo(HaveOccurred())

			names, cols := traj.Columns()
			for i, col := range cols {
				Expect(col).To(HaveLen(1000), "series %s", names[i])
			}
			Expect(traj.Len()).To(Equal(1000))
			Expect(traj.T[0]).To(Equal(0.0))
			Expect(traj.T[999]).To(Equal(10.0))
			Expect(traj.Duration()).To(Equal(10.0))
			for i := 1; i < traj.Len(); i++ {
				Expect(traj.T[i]).To(BeNumerically(">", traj.T[i-1]))
			}
		})

		It("records the initial state and parameters", func() {
			p := physics.Params{M1: 2, M2: 0.5, L1: 1.5, L2: 0.75}
			traj, err := sim.Integrate(ctx, p, physics.Angles{Theta1: 0.4, Theta2: -2}, 5, 50)
			Expect(err).NotTo(HaveOccurred())

			Expect(traj.Initial).To(Equal(dynamo.State{0.4, 0, -2, 0}))
			Expect(traj.Params).To(Equal(p))
			Expect(traj.State(0)).To(Equal(traj.Initial))
			Expect(traj.Stats.Steps).To(BeNumerically(">", 0))
		})

		It("derives positions from the angle series", func() {
			p := physics.Params{M1: 1, M2: 2, L1: 1.2, L2: 0.8}
			traj, err := sim.Integrate(ctx, p, physics.Angles{Theta1: 2, Theta2: 1}, 5, 200)
			Expect(err).NotTo(HaveOccurred())

			for _, i := range []int{0, 57, 133, 199} {
				Expect(math.Hypot(traj.X1[i], traj.Y1[i])).To(BeNumerically("~", p.L1, 1e-12))
				Expect(math.Hypot(traj.X2[i]-traj.X1[i], traj.Y2[i]-traj.Y1[i])).To(BeNumerically("~", p.L2, 1e-12))
				Expect(traj.X2[i]).To(BeNumerically("~", traj.X1[i]+p.L2*math.Sin(traj.Theta2[i]), 1e-12))
			}
		})
	})

	It("is deterministic", func() {
		angles := physics.Angles{Theta1: 2.5, Theta2: -1}
		a, err := sim.Integrate(ctx, unit, angles, 15, 1500)
		Expect(err).NotTo(HaveOccurred())
		b, err := sim.Integrate(ctx, unit, angles, 15, 1500)
		Expect(err).NotTo(HaveOccurred())

		Expect(a).To(Equal(b))
	})

	It("conserves mechanical energy for well-posed inputs", func() {
		traj, err := sim.Integrate(ctx, unit, physics.Angles{Theta1: math.Pi / 2, Theta2: math.Pi / 2}, 10, 1000)
		Expect(err).NotTo(HaveOccurred())

		// Released horizontally the total energy is zero, so the spread
		// is measured against the system's energy scale.
		_, std := stat.PopMeanStdDev(traj.Energy, nil)
		scale := physics.NewDoublePendulum(unit).EnergyScale()
		Expect(std / scale).To(BeNumerically("<", 1e-6))
		Expect(traj.Energy[0]).To(BeNumerically("~", 0, 1e-12))
	})

	It("stays near-linear for small angles", func() {
		traj, err := sim.Integrate(ctx, unit, physics.Angles{Theta1: 0.01, Theta2: 0.01}, 10, 1000)
		Expect(err).NotTo(HaveOccurred())

		Expect(maxAbs(traj.Theta1)).To(BeNumerically("<", 0.03))
		Expect(maxAbs(traj.Theta2)).To(BeNumerically("<", 0.03))

		mean, std := stat.PopMeanStdDev(traj.Energy, nil)
		Expect(std / math.Abs(mean)).To(BeNumerically("<", 1e-8))
	})

	It("distinguishes the upper link from the lower link", func() {
		a, err := sim.Integrate(ctx,
			physics.Params{M1: 1, M2: 2, L1: 1, L2: 1.5},
			physics.Angles{Theta1: 1, Theta2: 0.5}, 5, 100)
		Expect(err).NotTo(HaveOccurred())

		swapped, err := sim.Integrate(ctx,
			physics.Params{M1: 2, M2: 1, L1: 1.5, L2: 1},
			physics.Angles{Theta1: 0.5, Theta2: 1}, 5, 100)
		Expect(err).NotTo(HaveOccurred())

		gap := 0.0
		for i := range a.T {
			gap = math.Max(gap, math.Abs(a.Theta1[i]-swapped.Theta2[i]))
		}
		Expect(gap).To(BeNumerically(">", 0.1))
	})

	Context("boundaries", func() {
		It("returns exactly the initial and final states for two samples", func() {
			angles := physics.Angles{Theta1: math.Pi / 2, Theta2: math.Pi / 2}
			two, err := sim.Integrate(ctx, unit, angles, 2, 2)
			Expect(err).NotTo(HaveOccurred())
			five, err := sim.Integrate(ctx, unit, angles, 2, 5)
			Expect(err).NotTo(HaveOccurred())

			Expect(two.T).To(Equal([]float64{0, 2}))
			Expect(two.State(0)).To(Equal(physics.InitialState(angles)))
			Expect(two.State(1)).To(Equal(five.State(4)))
		})

		It("barely moves over a microsecond", func() {
			traj, err := sim.Integrate(ctx, unit, physics.Angles{Theta1: 0.5, Theta2: 0.1}, 1e-6, 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(traj.Theta1[1]).To(BeNumerically("~", 0.5, 1e-9))
			Expect(traj.Theta2[1]).To(BeNumerically("~", 0.1, 1e-9))
			Expect(math.Abs(traj.Omega1[1])).To(BeNumerically("<", 1e-4))
		})

		It("integrates angles outside [-π, π] as given", func() {
			traj, err := sim.Integrate(ctx, unit, physics.Angles{Theta1: 4, Theta2: -4}, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(traj.Theta1[0]).To(Equal(4.0))
		})
	})

	DescribeTable("rejects invalid input before integrating",
		func(p physics.Params, angles physics.Angles, mutate func(*sim.Config)) {
			cfg := sim.DefaultConfig()
			cfg.Duration = 5
			mutate(&cfg)

			traj, err := sim.New().Run(ctx, p, angles, cfg)
			Expect(traj).To(BeNil())
			Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
		},
		Entry("zero duration", unit, physics.Angles{}, func(c *sim.Config) { c.Duration = 0 }),
		Entry("negative duration", unit, physics.Angles{}, func(c *sim.Config) { c.Duration = -3 }),
		Entry("NaN duration", unit, physics.Angles{}, func(c *sim.Config) { c.Duration = math.NaN() }),
		Entry("one sample", unit, physics.Angles{}, func(c *sim.Config) { c.Samples = 1 }),
		Entry("zero samples", unit, physics.Angles{}, func(c *sim.Config) { c.Samples = 0 }),
		Entry("zero rtol", unit, physics.Angles{}, func(c *sim.Config) { c.RelTol = 0 }),
		Entry("negative max steps", unit, physics.Angles{}, func(c *sim.Config) { c.MaxSteps = -1 }),
		Entry("zero m1", physics.Params{M1: 0, M2: 1, L1: 1, L2: 1}, physics.Angles{}, func(*sim.Config) {}),
		Entry("negative m2", physics.Params{M1: 1, M2: -1, L1: 1, L2: 1}, physics.Angles{}, func(*sim.Config) {}),
		Entry("zero l1", physics.Params{M1: 1, M2: 1, L1: 0, L2: 1}, physics.Angles{}, func(*sim.Config) {}),
		Entry("negative l2", physics.Params{M1: 1, M2: 1, L1: 1, L2: -0.5}, physics.Angles{}, func(*sim.Config) {}),
		Entry("NaN angle", unit, physics.Angles{Theta1: math.NaN()}, func(*sim.Config) {}),
	)

	Context("failures", func() {
		It("reports an exhausted step budget as an integration failure", func() {
			cfg := sim.DefaultConfig()
			cfg.Duration = 10
			cfg.MaxSteps = 2

			traj, err := sim.New().Run(ctx, unit, physics.Angles{Theta1: 1, Theta2: 1}, cfg)
			Expect(traj).To(BeNil())
			Expect(err).To(MatchError(dynamo.ErrIntegration))
			Expect(err).To(MatchError(dynamo.ErrMaxSteps))
		})

		It("stops when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := sim.Integrate(canceled, unit, physics.Angles{Theta1: 1}, 10, 100)
			Expect(err).To(MatchError(dynamo.ErrCanceled))
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	It("logs solver statistics at debug level", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		s := sim.New(sim.WithLogger(zap.New(core)))

		cfg := sim.DefaultConfig()
		cfg.Duration = 2
		cfg.Samples = 10
		traj, err := s.Run(ctx, unit, physics.Angles{Theta1: 1}, cfg)
		Expect(err).NotTo(HaveOccurred())

		finished := logs.FilterMessage("integration finished").All()
		Expect(finished).To(HaveLen(1))
		Expect(finished[0].ContextMap()).To(HaveKeyWithValue("steps", int64(traj.Stats.Steps)))
	})
})

var _ = Describe("Ensemble", func() {
	It("matches independent runs member by member", func() {
		cfg := sim.DefaultConfig()
		cfg.Duration = 5
		cfg.Samples = 250

		members := []physics.Angles{
			{Theta1: 1, Theta2: 1},
			{Theta1: 1 + 1e-6, Theta2: 1},
			{Theta1: -2, Theta2: 0.3},
		}

		s := sim.New()
		trajs, err := sim.NewEnsemble(s, unit, cfg).Run(context.Background(), members)
		Expect(err).NotTo(HaveOccurred())
		Expect(trajs).To(HaveLen(len(members)))

		for i, angles := range members {
			solo, err := s.Run(context.Background(), unit, angles, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(trajs[i]).To(Equal(solo))
		}
	})

	It("fails when any member fails", func() {
		cfg := sim.DefaultConfig()
		cfg.Duration = 1
		cfg.Samples = 10

		_, err := sim.NewEnsemble(sim.New(), unit, cfg).Run(context.Background(), []physics.Angles{
			{Theta1: 1},
			{Theta1: math.Inf(1)},
		})
		Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
	})
})
