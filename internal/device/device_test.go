package device

import (
	"errors"
	"math"
	"testing"
)

const h = 1e-12

func entryMap(entries []Entry) map[[2]int]float64 {
	m := make(map[[2]int]float64)
	for _, e := range entries {
		m[[2]int{e.Row, e.Col}] += e.Value
	}
	return m
}

func TestStampSymmetry(t *testing.T) {
	build := map[string]func(p, n int) (Device, float64){
		"resistor": func(p, n int) (Device, float64) {
			d, _ := NewResistor("R1", p, n, 50, Voltage, h)
			return d, -50
		},
		"capacitor": func(p, n int) (Device, float64) {
			d, _ := NewCapacitor("C1", p, n, 1e-12, Voltage, h)
			return d, -(2 * h / 3) / 1e-12
		},
		"inductor": func(p, n int) (Device, float64) {
			d, _ := NewInductor("L1", p, n, 2e-12, Voltage, h)
			return d, -(3 * 2e-12) / (2 * h)
		},
	}

	for name, fn := range build {
		t.Run(name, func(t *testing.T) {
			d, coef := fn(0, 1)
			d.Bind(2)
			m := entryMap(d.Stamp())
			if len(m) != 5 {
				t.Fatalf("expected 5 positions, got %d", len(m))
			}
			want := map[[2]int]float64{
				{0, 2}: 1, {1, 2}: -1, {2, 0}: 1, {2, 1}: -1, {2, 2}: coef,
			}
			for pos, v := range want {
				if math.Abs(m[pos]-v) > 1e-12*math.Abs(v) {
					t.Errorf("A%v = %g, want %g", pos, m[pos], v)
				}
			}
		})
	}
}

func TestPhaseModeCoefficients(t *testing.T) {
	r, _ := NewResistor("R1", 0, Ground, 2, Phase, h)
	c, _ := NewCapacitor("C1", 0, Ground, 3e-12, Phase, h)
	l, _ := NewInductor("L1", 0, Ground, 4e-12, Phase, h)
	tx, _ := NewTxLine("T1", 0, Ground, 1, Ground, 10, 5*h, Phase, h)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"resistor", r.coefficient(), -(2 * h / 3) * 2 / Sigma},
		{"capacitor", c.coefficient(), -(4 * h * h / (9 * 3e-12)) / Sigma},
		{"inductor", l.coefficient(), -4e-12 / Sigma},
		{"tline", tx.coefficient(), -(2 * h / 3) * 10 / Sigma},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-9*math.Abs(tt.want) {
			t.Errorf("%s: coefficient %g, want %g", tt.name, tt.got, tt.want)
		}
	}
}

func TestGroundedTerminalReduction(t *testing.T) {
	full, _ := NewResistor("R1", 0, 1, 10, Voltage, h)
	full.Bind(3)
	low, _ := NewResistor("R2", 0, Ground, 10, Voltage, h)
	low.Bind(3)
	high, _ := NewResistor("R3", Ground, 0, 10, Voltage, h)
	high.Bind(3)

	fm := entryMap(full.Stamp())
	lm := entryMap(low.Stamp())
	for pos, v := range lm {
		if pos[0] == 1 || pos[1] == 1 {
			t.Fatalf("grounded terminal stamped at %v", pos)
		}
		if fm[pos] != v {
			t.Errorf("A%v = %g, want %g", pos, v, fm[pos])
		}
	}
	if len(lm) != 3 {
		t.Errorf("expected 3 positions, got %d", len(lm))
	}

	hm := entryMap(high.Stamp())
	if hm[[2]int{3, 3}] != lm[[2]int{3, 3}] {
		t.Error("value-dependent coefficient differs under terminal swap")
	}
	if hm[[2]int{0, 3}] != -lm[[2]int{0, 3}] || hm[[2]int{3, 0}] != -lm[[2]int{3, 0}] {
		t.Error("terminal swap should only flip the incidence signs")
	}
}

func TestUpdateTimestep(t *testing.T) {
	c, _ := NewCapacitor("C1", 0, Ground, 1e-12, Voltage, h)
	c.Bind(1)
	before := c.Stamp()[len(c.Stamp())-1].Value
	c.UpdateTimestep(0.5)
	after := c.Stamp()[len(c.Stamp())-1].Value
	if math.Abs(after-before/2) > 1e-15*math.Abs(before) {
		t.Errorf("halving h: %g -> %g", before, after)
	}
	c.UpdateTimestep(2)
	if got := c.Stamp()[len(c.Stamp())-1].Value; math.Abs(got-before) > 1e-15*math.Abs(before) {
		t.Errorf("restoring h: got %g, want %g", got, before)
	}

	l, _ := NewInductor("L1", 0, Ground, 1e-12, Voltage, h)
	l.Bind(1)
	lb := l.Stamp()[len(l.Stamp())-1].Value
	l.UpdateTimestep(0.5)
	if got := l.Stamp()[len(l.Stamp())-1].Value; math.Abs(got-2*lb) > 1e-12*math.Abs(lb) {
		t.Errorf("inductor halving h: %g -> %g", lb, got)
	}
}

func TestSanity(t *testing.T) {
	if _, err := NewResistor("R1", 0, Ground, 0, Voltage, h); !errors.Is(err, ErrSanity) {
		t.Errorf("zero resistance: expected ErrSanity, got %v", err)
	}
	if _, err := NewCapacitor("C1", 0, Ground, math.Inf(1), Voltage, h); !errors.Is(err, ErrSanity) {
		t.Errorf("infinite capacitance: expected ErrSanity, got %v", err)
	}
	if _, err := NewInductor("L1", 0, Ground, math.NaN(), Voltage, h); !errors.Is(err, ErrSanity) {
		t.Errorf("NaN inductance: expected ErrSanity, got %v", err)
	}
	if _, err := NewTxLine("T1", 0, Ground, 1, Ground, 50, 0.2*h, Voltage, h); !errors.Is(err, ErrSanity) {
		t.Errorf("sub-step delay: expected ErrSanity, got %v", err)
	}
	m := DefaultModel()
	m.T = m.TC
	if _, err := NewJunction("B1", 0, Ground, m, 1, Voltage, h); !errors.Is(err, ErrSanity) {
		t.Errorf("T = TC: expected ErrSanity, got %v", err)
	}
}

func TestMutualCoupling(t *testing.T) {
	l1, _ := NewInductor("L1", 0, Ground, 4e-12, Voltage, h)
	l2, _ := NewInductor("L2", 1, Ground, 9e-12, Voltage, h)
	k, err := NewMutual("K1", l1, l2, 0.5, Voltage, h)
	if err != nil {
		t.Fatal(err)
	}
	l1.Bind(2)
	l2.Bind(3)
	if math.Abs(k.M-3e-12) > 1e-20 {
		t.Errorf("M = %g, want 3e-12", k.M)
	}
	m := entryMap(k.Stamp())
	want := -(3 * k.M) / (2 * h)
	if m[[2]int{2, 3}] != want || m[[2]int{3, 2}] != want {
		t.Errorf("cross terms %v, want %g", m, want)
	}

	if _, err := NewMutual("K2", l1, l2, 1.5, Voltage, h); !errors.Is(err, ErrSanity) {
		t.Errorf("|K| > 1: expected ErrSanity, got %v", err)
	}
}

func TestJunctionRegionMonotonic(t *testing.T) {
	j, err := NewJunction("B1", 0, Ground, DefaultModel(), 1, Voltage, h)
	if err != nil {
		t.Fatal(err)
	}
	prev := Subgap
	for v := 0.0; v < 10e-3; v += 1e-6 {
		r := j.Classify(v)
		if r < prev {
			t.Fatalf("region went back from %s to %s at %g V", prev, r, v)
		}
		if j.Classify(-v) != r {
			t.Fatalf("classification not symmetric at %g V", v)
		}
		prev = r
	}
	if prev != Normal {
		t.Errorf("expected normal region at 10 mV, got %s", prev)
	}
	if j.Classify(2.8e-3) != Transition {
		t.Error("gap voltage should be in the transition region")
	}
}

func TestJunctionQuasiparticleOffsets(t *testing.T) {
	m := DefaultModel()
	j, _ := NewJunction("B1", 0, Ground, m, 1, Voltage, h)
	current := func(r Region, v float64) float64 {
		g, iT := j.conductance(r, v)
		return g*v + iT
	}
	for _, v := range []float64{j.lowerB, -j.lowerB} {
		a, b := current(Subgap, v), current(Transition, v)
		if math.Abs(a-b) > 1e-12 {
			t.Errorf("discontinuity at %g: %g vs %g", v, a, b)
		}
	}

	want := m.IC/m.ICFact + m.VG/m.R0 - j.lowerB/m.RN
	for _, v := range []float64{1e-3, -1e-3} {
		g, iT := j.conductance(Normal, v)
		if g != 1/m.RN {
			t.Errorf("normal conductance = %g, want %g", g, 1/m.RN)
		}
		if math.Abs(iT-math.Copysign(want, v)) > 1e-15 {
			t.Errorf("normal offset at %g = %g, want %g", v, iT, math.Copysign(want, v))
		}
	}
}

func TestJunctionUpdateRefactorFlag(t *testing.T) {
	j, _ := NewJunction("B1", 0, Ground, DefaultModel(), 1, Voltage, h)
	j.Bind(1)
	x := []float64{0, 0, 0}

	changed, err := j.Update(0, x)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("zero bias should keep the subgap stamp")
	}

	x[0] = 5e-3
	changed, err = j.Update(1, x)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || j.Region() != Normal {
		t.Errorf("expected change to normal, got changed=%v region=%s", changed, j.Region())
	}
	if got := j.Stamp()[j.dyn].Value; got != -j.effective(1/j.Model.RN) {
		t.Errorf("dynamic entry %g not rewritten", got)
	}

	x[0] = 2
	if _, err := j.Update(2, x); !errors.Is(err, ErrGuessTooLarge) {
		t.Errorf("expected ErrGuessTooLarge, got %v", err)
	}
}

func TestSuperCurrentReducesToSine(t *testing.T) {
	m := DefaultModel()
	for _, phi := range []float64{0, 0.3, math.Pi / 2, 2, -1} {
		got := m.SuperCurrent(phi)
		want := m.IC * math.Sin(phi)
		if math.Abs(got-want) > 1e-9*m.IC {
			t.Errorf("Is(%g) = %g, want %g", phi, got, want)
		}
	}
}

func TestTxLineCausality(t *testing.T) {
	tx, err := NewTxLine("T1", 0, Ground, 1, Ground, 10, 3*h, Voltage, h)
	if err != nil {
		t.Fatal(err)
	}
	if tx.K != 3 {
		t.Fatalf("K = %d, want 3", tx.K)
	}
	tx.Bind(2)

	// x = [V1, V2, I1, I2]; step i commits V1 = i+1, V2 = 10(i+1), I1 = 0.1(i+1), I2 = (i+1).
	sample := func(i int) []float64 {
		f := float64(i + 1)
		return []float64{f, 10 * f, 0.1 * f, f}
	}
	out := make([]float64, 2)
	for i := 0; i < 8; i++ {
		tx.RHS(i, out)
		if i < tx.K {
			if out[0] != 0 || out[1] != 0 {
				t.Fatalf("step %d: reflected terms %v before delay elapsed", i, out)
			}
		} else {
			past := sample(i - tx.K)
			want1 := past[1] + 10*past[3]
			want2 := past[0] + 10*past[2]
			if math.Abs(out[0]-want1) > 1e-12 || math.Abs(out[1]-want2) > 1e-12 {
				t.Fatalf("step %d: got %v, want [%g %g]", i, out, want1, want2)
			}
		}
		tx.StepBack(sample(i))
	}
}

func TestWaveformHold(t *testing.T) {
	w := Waveform{1, 2, 3}
	if w.At(5) != 3 || w.At(0) != 1 || w.At(-1) != 0 {
		t.Error("waveform should hold its last sample")
	}
	if Waveform(nil).At(2) != 0 {
		t.Error("empty waveform should be zero")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("phase"); err != nil || m != Phase {
		t.Errorf("ParseMode(phase) = %v, %v", m, err)
	}
	if _, err := ParseMode("current"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
