package sim_test

import (
	"context"
	"errors"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendubalance/internal/control"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/sim"
)

// countingController returns the number of calls so far as its torque.
type countingController struct {
	calls  int
	states []dynamo.State
}

func (c *countingController) Compute(ctx context.Context, x dynamo.State) (dynamo.Decision, error) {
	c.calls++
	c.states = append(c.states, x)
	return dynamo.Decision{Torque: float64(c.calls), Cost: float64(10 * c.calls)}, nil
}

type fixedController struct {
	torque float64
	err    error
}

func (c fixedController) Compute(ctx context.Context, x dynamo.State) (dynamo.Decision, error) {
	return dynamo.Decision{Torque: c.torque}, c.err
}

// blockingController waits for its deadline.
type blockingController struct{}

func (blockingController) Compute(ctx context.Context, x dynamo.State) (dynamo.Decision, error) {
	<-ctx.Done()
	return dynamo.Decision{}, ctx.Err()
}

type frameCounter struct {
	frames []sim.Frame
}

func (f *frameCounter) Name() string         { return "frames" }
func (f *frameCounter) Observe(fr sim.Frame) { f.frames = append(f.frames, fr) }
func (f *frameCounter) Value() float64       { return float64(len(f.frames)) }
func (f *frameCounter) Reset()               { f.frames = nil }

var _ = Describe("Loop", func() {
	var (
		model *physics.Model
		cfg   sim.Config
	)

	BeforeEach(func() {
		model = physics.NewModel(physics.DefaultParams())
		cfg = sim.Config{Dt: 0.01, ControlInterval: 0.01, Duration: 0.5}
	})

	Describe("cadence", func() {
		It("decides on every tick when the interval equals dt", func() {
			ctrl := &countingController{}
			res, err := sim.NewLoop(model, ctrl).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(51))
			Expect(res.ControlTicks).To(Equal(51))
			Expect(ctrl.calls).To(Equal(51))
			Expect(res.States).To(HaveLen(52))
			Expect(res.Torques).To(HaveLen(51))
		})

		It("decides on the very first tick instead of holding zero torque for one interval", func() {
			cfg.ControlInterval = 0.2
			counter := &frameCounter{}
			loop := sim.NewLoop(model, &countingController{})
			loop.AddMetric(counter)

			_, err := loop.Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(counter.frames[0].ControlTick).To(BeTrue())
			Expect(counter.frames[0].Decision.Torque).To(Equal(1.0))
		})

		It("holds the torque between control ticks", func() {
			cfg.ControlInterval = 0.05
			ctrl := &countingController{}
			res, err := sim.NewLoop(model, ctrl).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.ControlTicks).To(Equal(11))
			for i, u := range res.Torques {
				Expect(u).To(Equal(float64(i/5+1)), "step %d", i)
			}
		})

		It("reports the cost only on control ticks", func() {
			cfg.ControlInterval = 0.05
			counter := &frameCounter{}
			loop := sim.NewLoop(model, &countingController{})
			loop.AddMetric(counter)

			res, err := loop.Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			for i, c := range res.Costs {
				if i%5 == 0 {
					Expect(c).To(Equal(10*res.Torques[i]), "step %d", i)
					Expect(counter.frames[i].ControlTick).To(BeTrue())
				} else {
					Expect(c).To(BeZero(), "step %d", i)
					Expect(counter.frames[i].Decision.Cost).To(BeZero())
					Expect(counter.frames[i].Decision.Torque).To(Equal(res.Torques[i]))
				}
			}
		})

		It("reports the state before and after each tick", func() {
			counter := &frameCounter{}
			loop := sim.NewLoop(model, fixedController{torque: 5})
			loop.AddMetric(counter)

			res, err := loop.Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			for i, f := range counter.frames {
				Expect(f.Prev).To(Equal(res.States[i]))
				Expect(f.State).To(Equal(res.States[i+1]))
			}
		})

		It("hands the controller the state at the start of the tick", func() {
			ctrl := &countingController{}
			res, err := sim.NewLoop(model, ctrl).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			for i, x := range ctrl.states {
				Expect(x).To(Equal(res.States[i]))
			}
		})

		It("advances time by dt per step", func() {
			res, err := sim.NewLoop(model, control.NewNone()).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Times[0]).To(Equal(0.0))
			Expect(res.SimTime()).To(BeNumerically("~", 0.51, 1e-12))
		})
	})

	Describe("saturation", func() {
		It("records the saturated torque next to the requested one", func() {
			res, err := sim.NewLoop(model, fixedController{torque: 50}).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Torques[0]).To(Equal(50.0))
			Expect(res.Applied[0]).To(Equal(10.0))
		})
	})

	Describe("termination", func() {
		It("stops when the presenter stops running", func() {
			presenter := sim.NewFuncPresenter(func(f sim.Frame) bool { return f.Step < 10 })
			loop := sim.NewLoop(model, control.NewNone())
			loop.SetPresenter(presenter)

			res, err := loop.Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(10))
		})

		It("returns the partial result when cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			loop := sim.NewLoop(model, control.NewNone())
			loop.SetPresenter(sim.NewFuncPresenter(func(f sim.Frame) bool {
				if f.Step == 3 {
					cancel()
				}
				return true
			}))

			res, err := loop.Run(ctx, cfg)

			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Steps).To(Equal(3))
		})

		It("reports divergence as an unstable simulation", func() {
			res, err := sim.NewLoop(model, fixedController{torque: math.NaN()}).Run(context.Background(), cfg)

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(err).To(MatchError(dynamo.ErrUnstable))
			Expect(simErr.Step).To(Equal(1))
			Expect(res.Steps).To(Equal(0))
		})

		It("wraps controller failures", func() {
			boom := errors.New("boom")
			_, err := sim.NewLoop(model, fixedController{err: boom}).Run(context.Background(), cfg)

			Expect(err).To(MatchError(boom))
			Expect(err.Error()).To(ContainSubstring("controller"))
		})
	})

	Describe("control budget", func() {
		It("holds the previous torque when the controller overruns", func() {
			cfg.Duration = 0.03
			cfg.ControlBudget = time.Millisecond

			res, err := sim.NewLoop(model, blockingController{}).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.ControlTicks).To(Equal(0))
			Expect(res.Overruns).To(Equal(res.Steps))
			Expect(res.Torques).To(HaveEach(0.0))
		})
	})

	Describe("config", func() {
		DescribeTable("rejects invalid values",
			func(mutate func(*sim.Config)) {
				mutate(&cfg)
				_, err := sim.NewLoop(model, control.NewNone()).Run(context.Background(), cfg)
				Expect(err).To(MatchError(dynamo.ErrParameterBounds))
			},
			Entry("zero dt", func(c *sim.Config) { c.Dt = 0 }),
			Entry("interval below dt", func(c *sim.Config) { c.ControlInterval = 0.001 }),
			Entry("zero duration", func(c *sim.Config) { c.Duration = 0 }),
			Entry("NaN duration", func(c *sim.Config) { c.Duration = math.NaN() }),
			Entry("negative budget", func(c *sim.Config) { c.ControlBudget = -time.Second }),
		)

		It("accepts the defaults", func() {
			Expect(sim.DefaultConfig().Validate()).To(Succeed())
		})

		DescribeTable("runs open-ended durations until the presenter stops",
			func(duration float64) {
				cfg.Duration = duration
				Expect(cfg.Validate()).To(Succeed())
				loop := sim.NewLoop(model, control.NewNone())
				loop.SetPresenter(sim.NewFuncPresenter(func(f sim.Frame) bool { return f.Step < 300 }))

				res, err := loop.Run(context.Background(), cfg)

				Expect(err).NotTo(HaveOccurred())
				Expect(res.Steps).To(Equal(300))
				Expect(res.States).To(HaveLen(301))
			},
			Entry("infinite", math.Inf(1)),
			Entry("larger than any slice", 1e13),
		)

		It("stops an infinite run on cancellation", func() {
			cfg.Duration = math.Inf(1)
			ctx, cancel := context.WithCancel(context.Background())
			loop := sim.NewLoop(model, control.NewNone())
			loop.SetPresenter(sim.NewFuncPresenter(func(f sim.Frame) bool {
				if f.Step == 50 {
					cancel()
				}
				return true
			}))

			res, err := loop.Run(ctx, cfg)

			Expect(err).To(MatchError(context.Canceled))
			Expect(res.Steps).To(Equal(50))
		})
	})

	Describe("scenarios", func() {
		It("keeps a passive pendulum hanging at rest", func() {
			cfg.Duration = 9.995
			res, err := sim.NewLoop(model, control.NewNone()).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(res.Steps).To(Equal(1000))
			final := res.Final()
			Expect(final.Theta1).To(BeNumerically("~", math.Pi, 1e-9))
			Expect(final.Theta2).To(BeNumerically("~", math.Pi, 1e-9))
			Expect(final.Theta1Dot).To(BeNumerically("~", 0, 1e-9))
			Expect(final.Theta2Dot).To(BeNumerically("~", 0, 1e-9))
		})

		It("keeps the MPC torque inside the actuator range", func() {
			mpcCfg := control.DefaultMPCConfig()
			mpcCfg.Horizon = 5
			mpc := control.NewMPC(mpcCfg, model.Params(), model.ActuatorLimit())
			model.SetState(dynamo.State{Theta1: math.Pi - 0.2, Theta2: math.Pi})
			cfg.Duration = 0.05

			res, err := sim.NewLoop(model, mpc).Run(context.Background(), cfg)

			Expect(err).NotTo(HaveOccurred())
			for _, u := range res.Applied {
				Expect(math.Abs(u)).To(BeNumerically("<=", 10))
			}
		})
	})

	Describe("presenters", func() {
		It("stops a multi presenter when any member stops", func() {
			m := sim.Multi{sim.Headless{}, sim.NewFuncPresenter(func(sim.Frame) bool { return false })}
			Expect(m.Running()).To(BeTrue())
			m.Present(sim.Frame{})
			Expect(m.Running()).To(BeFalse())
		})
	})
})

var _ = Describe("Ensemble", func() {
	It("runs independent loops and keeps results in order", func() {
		e := sim.NewEnsemble(4, func(idx int) (*sim.Loop, sim.Config, error) {
			model := physics.NewModel(physics.DefaultParams())
			model.SetState(dynamo.State{Theta1: math.Pi - 0.1*float64(idx), Theta2: math.Pi})
			return sim.NewLoop(model, control.NewNone()), sim.Config{Dt: 0.01, ControlInterval: 0.01, Duration: 0.1}, nil
		})

		results, err := e.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		for i, r := range results {
			Expect(r.States[0].Theta1).To(BeNumerically("~", math.Pi-0.1*float64(i), 1e-12))
		}
	})

	It("reports build failures", func() {
		e := sim.NewEnsemble(2, func(idx int) (*sim.Loop, sim.Config, error) {
			return nil, sim.Config{}, dynamo.ErrParameterBounds
		})

		_, err := e.Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("keeps the error of every run", func() {
		e := sim.NewEnsemble(3, func(idx int) (*sim.Loop, sim.Config, error) {
			if idx == 1 {
				return nil, sim.Config{}, dynamo.ErrParameterBounds
			}
			model := physics.NewModel(physics.DefaultParams())
			return sim.NewLoop(model, control.NewNone()), sim.Config{Dt: 0.01, ControlInterval: 0.01, Duration: 0.05}, nil
		})

		results, errs := e.RunAll(context.Background())

		Expect(errs).To(HaveLen(3))
		Expect(errs[0]).NotTo(HaveOccurred())
		Expect(errs[1]).To(MatchError(dynamo.ErrParameterBounds))
		Expect(errs[2]).NotTo(HaveOccurred())
		Expect(results[1]).To(BeNil())
		Expect(results[2].Steps).To(Equal(6))
	})
})
