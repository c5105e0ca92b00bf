package circuit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/san-kum/jjsim/internal/device"
)

// Quantity is what an output request measures.
type Quantity int

const (
	QuantityVoltage Quantity = iota
	QuantityPhase
	QuantityCurrent
)

var quantityPrefix = map[Quantity]string{
	QuantityVoltage: "V",
	QuantityPhase:   "P",
	QuantityCurrent: "I",
}

// Request names one output series, e.g. V(n1), P(B1) or I(R2).
type Request struct {
	Quantity Quantity
	Name     string
}

func (r Request) String() string {
	return fmt.Sprintf("%s(%s)", quantityPrefix[r.Quantity], r.Name)
}

var requestPattern = regexp.MustCompile(`^\s*([VvPpIi])\s*\(\s*([^()\s]+)\s*\)\s*$`)

// ParseRequest parses the V(x), P(x), I(x) notation.
func ParseRequest(s string) (Request, error) {
	m := requestPattern.FindStringSubmatch(s)
	if m == nil {
		return Request{}, fmt.Errorf("invalid output request %q", s)
	}
	var q Quantity
	switch strings.ToUpper(m[1]) {
	case "V":
		q = QuantityVoltage
	case "P":
		q = QuantityPhase
	default:
		q = QuantityCurrent
	}
	return Request{Quantity: q, Name: m[2]}, nil
}

// Conversion is applied across the time series after extraction.
type Conversion int

const (
	Native Conversion = iota
	// Differentiate turns a phase series into voltage by BDF2.
	Differentiate
	// Integrate turns a voltage series into phase by BDF2.
	Integrate
)

// Trace maps a request onto the unknown vector: the sample at a step is
// Scale·(x[Pos] − x[Neg]) plus the injection of device Injector, followed
// by Convert over time.
type Trace struct {
	Name     string
	Pos, Neg int
	Scale    float64
	Injector int
	Convert  Conversion
}

// Value evaluates the trace before conversion.
func (t Trace) Value(x []float64, a *Assembly, step int) float64 {
	var v float64
	if t.Pos != device.Ground {
		v += x[t.Pos]
	}
	if t.Neg != device.Ground {
		v -= x[t.Neg]
	}
	v *= t.Scale
	if t.Injector >= 0 {
		v += a.devices[t.Injector].(device.Injector).Injection(step)
	}
	return v
}

func (a *Assembly) convert(q Quantity) Conversion {
	switch {
	case a.mode == device.Voltage && q == QuantityPhase:
		return Integrate
	case a.mode == device.Phase && q == QuantityVoltage:
		return Differentiate
	}
	return Native
}

// Relevant resolves output requests. Requests naming nothing known become
// warnings and are skipped.
func (a *Assembly) Relevant(reqs []Request) ([]Trace, []Warning) {
	var traces []Trace
	var warns []Warning
	for _, r := range reqs {
		t, err := a.resolveRequest(r)
		if err != nil {
			warns = append(warns, Warning{Request: r.String(), Message: err.Error()})
			a.log.Warn("ignoring output request", "request", r.String(), "reason", err.Error())
			continue
		}
		traces = append(traces, t)
	}
	return traces, warns
}

func (a *Assembly) resolveRequest(r Request) (Trace, error) {
	t := Trace{Name: r.String(), Pos: device.Ground, Neg: device.Ground, Scale: 1, Injector: -1}

	if r.Quantity != QuantityCurrent {
		if IsGround(r.Name) {
			return t, fmt.Errorf("ground has no %s", strings.ToLower(quantityName(r.Quantity)))
		}
		if n, ok := a.nodes[r.Name]; ok {
			t.Pos = n
			t.Convert = a.convert(r.Quantity)
			return t, nil
		}
	}

	h, ok := a.Lookup(r.Name)
	if !ok {
		return t, fmt.Errorf("no node or device named %q", r.Name)
	}
	d := a.devices[h]

	if r.Quantity == QuantityCurrent {
		return a.currentTrace(t, h, d)
	}

	if j, ok := d.(*device.Junction); ok {
		native := (a.mode == device.Voltage && r.Quantity == QuantityPhase) ||
			(a.mode == device.Phase && r.Quantity == QuantityVoltage)
		if native {
			t.Pos = j.First()
			return t, nil
		}
		t.Pos, t.Neg = j.Terminals()
		return t, nil
	}

	switch v := d.(type) {
	case interface{ Ports() [4]int }:
		p := v.Ports()
		t.Pos, t.Neg = p[0], p[1]
	case interface{ Terminals() (int, int) }:
		t.Pos, t.Neg = v.Terminals()
	default:
		return t, fmt.Errorf("%s %s has no terminals", d.Kind(), r.Name)
	}
	t.Convert = a.convert(r.Quantity)
	return t, nil
}

func (a *Assembly) currentTrace(t Trace, h int, d device.Device) (Trace, error) {
	switch v := d.(type) {
	case *device.Junction:
		t.Pos = v.First() + 1
		t.Injector = h
	case *device.CCCS:
		t.Pos = v.First()
		t.Scale = v.G
	case *device.CCVS:
		t.Pos = v.First() + 1
	case *device.Mutual:
		return t, fmt.Errorf("mutual coupling %s carries no current", d.Label())
	default:
		if d.Branches() > 0 {
			t.Pos = d.(brancher).First()
		} else if _, ok := d.(device.Injector); ok {
			t.Injector = h
		} else {
			return t, fmt.Errorf("%s %s has no current", d.Kind(), d.Label())
		}
	}
	return t, nil
}

func quantityName(q Quantity) string {
	switch q {
	case QuantityPhase:
		return "Phase"
	case QuantityCurrent:
		return "Current"
	}
	return "Voltage"
}

// DefaultTraces reports every node in the native quantity and the current
// of every device.
func (a *Assembly) DefaultTraces() []Trace {
	q := QuantityVoltage
	if a.mode == device.Phase {
		q = QuantityPhase
	}
	reqs := make([]Request, 0, len(a.nodeNames)+len(a.devices))
	for _, name := range a.nodeNames {
		reqs = append(reqs, Request{Quantity: q, Name: name})
	}
	for _, d := range a.devices {
		if d.Kind() == device.KindMutual {
			continue
		}
		reqs = append(reqs, Request{Quantity: QuantityCurrent, Name: d.Label()})
	}
	traces, _ := a.Relevant(reqs)
	return traces
}

// RelevantIndices lists, in first-use order, the unknowns the traces read.
func RelevantIndices(traces []Trace) []int {
	seen := make(map[int]bool)
	var out []int
	for _, t := range traces {
		for _, i := range []int{t.Pos, t.Neg} {
			if i != device.Ground && !seen[i] {
				seen[i] = true
				out = append(out, i)
			}
		}
	}
	return out
}
