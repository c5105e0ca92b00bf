package sim

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/jjsim/internal/circuit"
	"github.com/san-kum/jjsim/internal/device"
)

func build(els []circuit.Element, mode device.Mode, h float64) *circuit.Assembly {
	asm, err := circuit.New(els, circuit.NodeMap(els), circuit.Options{Mode: mode, Step: h})
	Expect(err).NotTo(HaveOccurred())
	return asm
}

func isource(label, n string, amps float64) circuit.Element {
	return circuit.Element{Kind: device.KindCurrentSource, Label: label, Nodes: []string{"0", n}, Samples: device.Waveform{amps}}
}

func res(label, p, n string, ohms float64) circuit.Element {
	return circuit.Element{Kind: device.KindResistor, Label: label, Nodes: []string{p, n}, Value: ohms}
}

func request(s string) circuit.Request {
	r, err := circuit.ParseRequest(s)
	Expect(err).NotTo(HaveOccurred())
	return r
}

func run(asm *circuit.Assembly, stop float64, reqs ...string) (*Result, error) {
	cfg := Config{Stop: stop}
	for _, r := range reqs {
		cfg.Requests = append(cfg.Requests, request(r))
	}
	return New(asm, nil).Run(context.Background(), cfg)
}

func last(v []float64) float64 { return v[len(v)-1] }

var _ = Describe("Simulator", func() {
	const h = 1e-12

	DescribeTable("resistor driven by a current source",
		func(mode device.Mode) {
			asm := build([]circuit.Element{isource("I1", "a", 1e-3), res("R1", "a", "0", 50)}, mode, h)
			result, err := run(asm, 100*h, "V(a)", "I(R1)")
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Steps).To(Equal(100))
			Expect(result.Times).To(HaveLen(100))
			Expect(result.Times[0]).To(Equal(0.0))
			v, ok := result.Trace("V(a)")
			Expect(ok).To(BeTrue())
			for _, x := range v {
				Expect(x).To(BeNumerically("~", 0.05, 1e-9))
			}
			i, _ := result.Trace("I(R1)")
			Expect(last(i)).To(BeNumerically("~", 1e-3, 1e-12))
			Expect(result.Refactors).To(BeZero())
		},
		Entry("voltage mode", device.Voltage),
		Entry("phase mode", device.Phase),
	)

	It("agrees between voltage and phase mode on an RC circuit", func() {
		els := []circuit.Element{
			isource("I1", "a", 1e-3),
			res("R1", "a", "0", 50),
			{Kind: device.KindCapacitor, Label: "C1", Nodes: []string{"a", "0"}, Value: 1e-12},
		}
		vr, err := run(build(els, device.Voltage, h), 500*h, "V(a)")
		Expect(err).NotTo(HaveOccurred())
		pr, err := run(build(els, device.Phase, h), 500*h, "V(a)")
		Expect(err).NotTo(HaveOccurred())

		vv, _ := vr.Trace("V(a)")
		pv, _ := pr.Trace("V(a)")
		for k := range vv {
			Expect(pv[k]).To(BeNumerically("~", vv[k], 1e-6))
		}

		tau := 50 * 1e-12
		t := vr.Times[len(vr.Times)-1]
		Expect(last(vv)).To(BeNumerically("~", 0.05*(1-math.Exp(-t/tau)), 1e-4))
	})

	It("reports a floating node as singular", func() {
		els := []circuit.Element{
			isource("I1", "a", 1e-3),
			{Kind: device.KindCapacitor, Label: "C1", Nodes: []string{"a", "b"}, Value: 1e-12},
		}
		_, err := run(build(els, device.Voltage, h), 10*h)
		Expect(err).To(MatchError(ErrSingular))
		var re *RunError
		Expect(err).To(BeAssignableToTypeOf(re))
	})

	Describe("a shunted junction", func() {
		const jh = 0.25e-12
		circuitAt := func(bias float64) []circuit.Element {
			return []circuit.Element{
				isource("I1", "a", bias),
				res("RS", "a", "0", 2),
				{Kind: device.KindJunction, Label: "B1", Nodes: []string{"a", "0"}},
			}
		}

		DescribeTable("stays superconducting below the critical current",
			func(mode device.Mode) {
				result, err := run(build(circuitAt(0.5e-3), mode, jh), 400e-12, "P(B1)", "V(B1)")
				Expect(err).NotTo(HaveOccurred())
				phi, _ := result.Trace("P(B1)")
				Expect(last(phi)).To(BeNumerically("~", math.Asin(0.5), 0.05))
				v, _ := result.Trace("V(B1)")
				Expect(math.Abs(last(v))).To(BeNumerically("<", 1e-4))
				is, ok := result.Trace("Is(B1)")
				Expect(ok).To(BeTrue())
				Expect(last(is)).To(BeNumerically("~", 0.5e-3, 0.05e-3))
			},
			Entry("voltage mode", device.Voltage),
			Entry("phase mode", device.Phase),
		)

		It("records the super-current computed after each step", func() {
			asm := build(circuitAt(0.5e-3), device.Voltage, jh)
			result, err := run(asm, 5*jh)
			Expect(err).NotTo(HaveOccurred())
			is, ok := result.Trace("Is(B1)")
			Expect(ok).To(BeTrue())
			Expect(is).To(HaveLen(5))

			j := asm.Device(asm.Junctions()[0]).(*device.Junction)
			Expect(last(is)).To(Equal(j.Injection(5)))
			Expect(last(is)).To(BeNumerically(">", is[len(is)-2]))
		})

		It("switches to the voltage state above it", func() {
			result, err := run(build(circuitAt(2e-3), device.Voltage, jh), 200e-12, "P(B1)", "V(B1)")
			Expect(err).NotTo(HaveOccurred())
			phi, _ := result.Trace("P(B1)")
			Expect(last(phi)).To(BeNumerically(">", 4*math.Pi))
			Expect(result.Refactors).To(BeNumerically(">", 0))
		})

		It("fails when the predicted voltage exceeds the guess limit", func() {
			els := circuitAt(2e-3)
			asm, err := circuit.New(els, circuit.NodeMap(els), circuit.Options{Step: jh, GuessLimit: 1e-6})
			Expect(err).NotTo(HaveOccurred())
			_, err = New(asm, nil).Run(context.Background(), Config{Stop: 200e-12})
			Expect(err).To(MatchError(ErrGuessTooLarge))
			re, ok := err.(*RunError)
			Expect(ok).To(BeTrue())
			Expect(re.Label).To(Equal("B1"))
		})

		It("gives identical results serially and in parallel", func() {
			serial, err := run(build(circuitAt(2e-3), device.Voltage, jh), 100e-12)
			Expect(err).NotTo(HaveOccurred())

			asm := build(circuitAt(2e-3), device.Voltage, jh)
			parallel, err := New(asm, nil).Run(context.Background(), Config{Stop: 100e-12, Parallel: 4})
			Expect(err).NotTo(HaveOccurred())
			Expect(parallel.Traces).To(Equal(serial.Traces))
			Expect(parallel.SuperCurrents).To(Equal(serial.SuperCurrents))
		})
	})

	It("delays a wave through a transmission line", func() {
		const k = 10
		els := []circuit.Element{
			{Kind: device.KindVoltageSource, Label: "V1", Nodes: []string{"a", "0"}, Samples: device.Waveform{1}},
			{Kind: device.KindTxLine, Label: "T1", Nodes: []string{"a", "0", "b", "0"}, Value: 50, Delay: k * h},
			res("RL", "b", "0", 50),
		}
		result, err := run(build(els, device.Voltage, h), 3*k*h, "V(b)")
		Expect(err).NotTo(HaveOccurred())
		v, _ := result.Trace("V(b)")
		for i := 0; i < k; i++ {
			Expect(v[i]).To(BeNumerically("~", 0, 1e-15))
		}
		for i := k; i < len(v); i++ {
			Expect(v[i]).To(BeNumerically("~", 1, 1e-9))
		}
	})

	It("warns about unknown output requests", func() {
		asm := build([]circuit.Element{isource("I1", "a", 1e-3), res("R1", "a", "0", 50)}, device.Voltage, h)
		result, err := run(asm, 10*h, "V(a)", "V(zz)")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Traces).To(HaveLen(1))
		Expect(result.Warnings).To(HaveLen(1))
		Expect(result.Warnings[0].Request).To(Equal("V(zz)"))
	})

	It("rejects an empty interval", func() {
		asm := build([]circuit.Element{isource("I1", "a", 1e-3), res("R1", "a", "0", 50)}, device.Voltage, h)
		_, err := New(asm, nil).Run(context.Background(), Config{Start: 1e-9, Stop: 1e-9})
		Expect(err).To(MatchError(ErrInvalidConfig))
	})

	It("returns the partial result when cancelled", func() {
		asm := build([]circuit.Element{isource("I1", "a", 1e-3), res("R1", "a", "0", 50)}, device.Voltage, h)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		result, err := New(asm, nil).Run(ctx, Config{Stop: 100 * h})
		Expect(err).To(MatchError(context.Canceled))
		Expect(result).NotTo(BeNil())
		Expect(result.Steps).To(BeZero())
	})

	It("never blocks on a full progress sink", func() {
		asm := build([]circuit.Element{isource("I1", "a", 1e-3), res("R1", "a", "0", 50)}, device.Voltage, h)
		sink := NewProgressSink(1)
		s := New(asm, nil)
		s.AddObserver(sink)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			_, err := s.Run(context.Background(), Config{Stop: 1000 * h, ProgressEvery: 1})
			Expect(err).NotTo(HaveOccurred())
			sink.Close()
		}()
		Eventually(done).Should(BeClosed())
		Expect(sink.Dropped()).To(BeNumerically(">", 0))

		p, ok := <-sink.C()
		Expect(ok).To(BeTrue())
		Expect(p.Total).To(Equal(1000))
	})

	It("feeds metrics and observers", func() {
		asm := build([]circuit.Element{isource("I1", "a", 1e-3), res("R1", "a", "0", 50)}, device.Voltage, h)
		m := &countMetric{}
		var reports []Progress
		s := New(asm, nil)
		s.AddMetric(m)
		s.AddObserver(ObserverFunc(func(p Progress) { reports = append(reports, p) }))

		result, err := s.Run(context.Background(), Config{Stop: 50 * h, ProgressEvery: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Metrics).To(HaveKeyWithValue("count", 50.0))
		Expect(reports).To(HaveLen(5))
		Expect(reports[4].Step).To(Equal(50))
	})

	It("runs an ensemble over seeds", func() {
		els := []circuit.Element{isource("I1", "a", 1e-3), res("R1", "a", "0", 50)}
		els[1].Temperature = 4.2
		builder := func(seed uint64) (*circuit.Assembly, error) {
			return circuit.New(els, circuit.NodeMap(els), circuit.Options{
				Step:  h,
				Noise: &circuit.NoiseOptions{Bandwidth: 1e12, Seed: seed},
			})
		}
		results, err := NewEnsemble(builder, 3, 1).WithWorkers(2).Run(context.Background(), Config{
			Stop:     20 * h,
			Requests: []circuit.Request{request("V(a)")},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		a, _ := results[0].Trace("V(a)")
		b, _ := results[1].Trace("V(a)")
		Expect(a).NotTo(Equal(b))
	})
})

type countMetric struct{ n int }

func (c *countMetric) Name() string   { return "count" }
func (c *countMetric) Observe(Sample) { c.n++ }
func (c *countMetric) Value() float64 { return float64(c.n) }
func (c *countMetric) Reset()         { c.n = 0 }

var _ = Describe("convert", func() {
	It("inverts integration by differentiation", func() {
		h := 1e-12
		v := []float64{1e-3, 2e-3, 0, -1e-3, 5e-4}
		orig := append([]float64(nil), v...)
		convert(v, circuit.Integrate, h)
		convert(v, circuit.Differentiate, h)
		for k := range v {
			Expect(v[k]).To(BeNumerically("~", orig[k], 1e-15))
		}
	})

	It("splits ranges", func() {
		Expect(chunks(10, 3)).To(Equal([][2]int{{0, 4}, {4, 8}, {8, 10}}))
		Expect(chunks(2, 5)).To(Equal([][2]int{{0, 1}, {1, 2}}))
		Expect(chunks(0, 4)).To(BeEmpty())
	})
})
