package circuit

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/san-kum/jjsim/internal/device"
	"github.com/san-kum/jjsim/internal/sparse"
)

// NoiseOptions enables Johnson noise on resistors. A resistor without its
// own temperature uses Temperature.
type NoiseOptions struct {
	Temperature float64
	Bandwidth   float64
	Seed        uint64
}

// Options configures assembly.
type Options struct {
	Mode   device.Mode
	Step   float64
	Models map[string]device.Model

	// GuessLimit overrides the junction voltage prediction bound when positive.
	GuessLimit float64
	Noise      *NoiseOptions
	Logger     *slog.Logger
}

// RowDescriptor says what computes the RHS of one row. Node rows have
// Device == -1.
type RowDescriptor struct {
	Kind   device.RowKind
	Device int
	Local  int
}

// Connection is a current injector incident on a node. The RHS of the
// node row accumulates Sign·Injection.
type Connection struct {
	Device int
	Sign   float64
}

// Assembly owns the device arena and the system structure. Labels are a
// lookup-only side index; stamping works on dense handles.
type Assembly struct {
	mode device.Mode
	step float64

	nodeNames []string
	nodes     map[string]int
	devices   []device.Device
	labels    map[string]int
	size      int

	rows        []RowDescriptor
	connections [][]Connection
	injectors   []int
	nonlinear   []int

	matrix  *sparse.CSR
	slots   []int
	offsets []int

	log *slog.Logger
}

// New builds the device arena and the static sparsity pattern.
func New(elements []Element, nodes map[string]int, opts Options) (*Assembly, error) {
	if opts.Step <= 0 || math.IsNaN(opts.Step) || math.IsInf(opts.Step, 0) {
		return nil, &ConstructionError{Err: fmt.Errorf("timestep %g: %w", opts.Step, ErrSanity)}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	a := &Assembly{
		mode:      opts.Mode,
		step:      opts.Step,
		nodes:     nodes,
		nodeNames: make([]string, len(nodes)),
		labels:    make(map[string]int),
		log:       log,
	}
	for name, idx := range nodes {
		if idx < 0 || idx >= len(nodes) || a.nodeNames[idx] != "" {
			return nil, &ConstructionError{Err: fmt.Errorf("node %q has index %d: %w", name, idx, ErrMissingNode)}
		}
		a.nodeNames[idx] = name
	}

	inductors := make(map[string]*device.Inductor)
	var mutuals []Element
	for _, el := range elements {
		if _, dup := a.labels[el.Label]; dup || el.Label == "" {
			return nil, &ConstructionError{Label: el.Label, Kind: el.Kind.String(), Err: ErrDuplicateLabel}
		}
		if el.Kind == device.KindMutual {
			a.labels[el.Label] = -1
			mutuals = append(mutuals, el)
			continue
		}
		d, err := a.build(el, opts)
		if err != nil {
			return nil, &ConstructionError{Label: el.Label, Kind: el.Kind.String(), Err: err}
		}
		a.add(d)
		if l, ok := d.(*device.Inductor); ok {
			inductors[el.Label] = l
		}
		if opts.Noise != nil && el.Kind == device.KindResistor {
			if err := a.addNoise(el, d.(*device.Resistor), opts.Noise); err != nil {
				return nil, &ConstructionError{Label: el.Label, Kind: el.Kind.String(), Err: err}
			}
		}
	}

	for _, el := range mutuals {
		l1, ok1 := inductors[el.Couples[0]]
		l2, ok2 := inductors[el.Couples[1]]
		if !ok1 || !ok2 || l1 == l2 {
			return nil, &ConstructionError{Label: el.Label, Kind: el.Kind.String(),
				Err: fmt.Errorf("coupling %s-%s: %w", el.Couples[0], el.Couples[1], ErrUnknownReference)}
		}
		k, err := device.NewMutual(el.Label, l1, l2, el.Value, opts.Mode, opts.Step)
		if err != nil {
			return nil, &ConstructionError{Label: el.Label, Kind: el.Kind.String(), Err: wrapSanity(err)}
		}
		a.add(k)
	}

	a.bind()
	if a.size == 0 {
		return nil, &ConstructionError{Err: ErrEmptyCircuit}
	}
	if err := a.compile(); err != nil {
		return nil, err
	}

	a.log.Debug("assembled circuit",
		"mode", a.mode.String(),
		"nodes", len(a.nodeNames),
		"devices", len(a.devices),
		"unknowns", a.size,
		"nnz", a.matrix.NNZ())
	return a, nil
}

func (a *Assembly) add(d device.Device) {
	a.labels[d.Label()] = len(a.devices)
	a.devices = append(a.devices, d)
}

func wrapSanity(err error) error {
	return fmt.Errorf("%w: %w", ErrSanity, err)
}

func (a *Assembly) resolve(el Element) ([]int, error) {
	want := terminalCount(el.Kind)
	if len(el.Nodes) != want {
		return nil, fmt.Errorf("expected %d nodes, got %d: %w", want, len(el.Nodes), ErrMissingNode)
	}
	idx := make([]int, want)
	for i, name := range el.Nodes {
		if IsGround(name) {
			idx[i] = device.Ground
			continue
		}
		n, ok := a.nodes[name]
		if !ok || name == "" {
			return nil, fmt.Errorf("node %q: %w", name, ErrMissingNode)
		}
		idx[i] = n
	}
	for i := 0; i+1 < want; i += 2 {
		if idx[i] == device.Ground && idx[i+1] == device.Ground {
			return nil, ErrGroundedDevice
		}
	}
	return idx, nil
}

func (a *Assembly) build(el Element, opts Options) (device.Device, error) {
	t, err := a.resolve(el)
	if err != nil {
		return nil, err
	}
	mode, h := opts.Mode, opts.Step

	var d device.Device
	switch el.Kind {
	case device.KindResistor:
		d, err = device.NewResistor(el.Label, t[0], t[1], el.Value, mode, h)
	case device.KindCapacitor:
		d, err = device.NewCapacitor(el.Label, t[0], t[1], el.Value, mode, h)
	case device.KindInductor:
		d, err = device.NewInductor(el.Label, t[0], t[1], el.Value, mode, h)
	case device.KindVoltageSource:
		d = device.NewVoltageSource(el.Label, t[0], t[1], el.Samples, mode, h)
	case device.KindCurrentSource:
		d = device.NewCurrentSource(el.Label, t[0], t[1], el.Samples, mode, h)
	case device.KindPhaseSource:
		d = device.NewPhaseSource(el.Label, t[0], t[1], el.Samples, mode, h)
	case device.KindCCCS:
		d, err = device.NewCCCS(el.Label, t[0], t[1], t[2], t[3], el.Value, mode, h)
	case device.KindCCVS:
		d, err = device.NewCCVS(el.Label, t[0], t[1], t[2], t[3], el.Value, mode, h)
	case device.KindVCCS:
		d, err = device.NewVCCS(el.Label, t[0], t[1], t[2], t[3], el.Value, mode, h)
	case device.KindVCVS:
		d, err = device.NewVCVS(el.Label, t[0], t[1], t[2], t[3], el.Value, mode, h)
	case device.KindTxLine:
		d, err = device.NewTxLine(el.Label, t[0], t[1], t[2], t[3], el.Value, el.Delay, mode, h)
	case device.KindJunction:
		model, ok := device.DefaultModel(), true
		if el.Model != "" {
			model, ok = opts.Models[el.Model]
		}
		if !ok {
			return nil, fmt.Errorf("model %q: %w", el.Model, ErrUnknownModel)
		}
		area := el.Area
		if el.IC > 0 {
			area = el.IC / model.IC
		}
		var j *device.Junction
		j, err = device.NewJunction(el.Label, t[0], t[1], model, area, mode, h)
		if err == nil && opts.GuessLimit > 0 {
			j.GuessLimit = opts.GuessLimit
		}
		d = j
	default:
		return nil, fmt.Errorf("kind %s: %w", el.Kind, ErrUnknownReference)
	}
	if err != nil {
		return nil, wrapSanity(err)
	}
	return d, nil
}

func (a *Assembly) addNoise(el Element, r *device.Resistor, opts *NoiseOptions) error {
	temp := el.Temperature
	if temp == 0 {
		temp = opts.Temperature
	}
	if temp <= 0 {
		return nil
	}
	p, n := r.Terminals()
	label := el.Label + ".noise"
	if _, dup := a.labels[label]; dup {
		return ErrDuplicateLabel
	}
	seed := opts.Seed + uint64(len(a.devices))
	nz, err := device.NewNoise(label, p, n, el.Value, temp, opts.Bandwidth, seed, a.mode, a.step)
	if err != nil {
		return wrapSanity(err)
	}
	a.add(nz)
	return nil
}

// bind assigns branch unknowns after the node unknowns, in device order.
func (a *Assembly) bind() {
	next := len(a.nodeNames)
	for _, d := range a.devices {
		d.Bind(next)
		next += d.Branches()
	}
	a.size = next
}

func (a *Assembly) compile() error {
	nNodes := len(a.nodeNames)

	a.rows = make([]RowDescriptor, a.size)
	for i := 0; i < nNodes; i++ {
		a.rows[i] = RowDescriptor{Kind: device.RowNode, Device: -1, Local: i}
	}
	a.connections = make([][]Connection, nNodes)

	var coords []sparse.Coord
	a.offsets = make([]int, len(a.devices)+1)
	for h, d := range a.devices {
		if inj, ok := d.(device.Injector); ok {
			p, n := inj.Terminals()
			if p != device.Ground {
				a.connections[p] = append(a.connections[p], Connection{Device: h, Sign: -1})
			}
			if n != device.Ground {
				a.connections[n] = append(a.connections[n], Connection{Device: h, Sign: 1})
			}
			a.injectors = append(a.injectors, h)
		}
		if _, ok := d.(device.Nonlinear); ok {
			a.nonlinear = append(a.nonlinear, h)
		}

		if b := d.Branches(); b > 0 {
			first := d.(brancher).First()
			for k, kind := range d.Rows() {
				a.rows[first+k] = RowDescriptor{Kind: kind, Device: h, Local: k}
			}
		}

		for _, e := range d.Stamp() {
			if !finite(e.Value) {
				return &ConstructionError{Label: d.Label(), Kind: d.Kind().String(),
					Err: fmt.Errorf("entry (%d,%d) = %g: %w", e.Row, e.Col, e.Value, ErrSanity)}
			}
			coords = append(coords, sparse.Coord{Row: e.Row, Col: e.Col})
		}
		a.offsets[h+1] = len(coords)
	}

	m, slots, err := sparse.Compile(a.size, coords)
	if err != nil {
		return &ConstructionError{Err: err}
	}
	a.matrix, a.slots = m, slots
	a.CreateCSR()
	return nil
}

type brancher interface{ First() int }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// CreateCSR re-aggregates the currently stamped values into the system
// matrix. The pattern is fixed at assembly; only values change.
func (a *Assembly) CreateCSR() *sparse.CSR {
	vals := a.matrix.Values
	for i := range vals {
		vals[i] = 0
	}
	for h, d := range a.devices {
		off := a.offsets[h]
		for k, e := range d.Stamp() {
			vals[a.slots[off+k]] += e.Value
		}
	}
	return a.matrix
}

// Matrix returns the system matrix as last aggregated.
func (a *Assembly) Matrix() *sparse.CSR { return a.matrix }

// UpdateTimestep rescales every device's step-dependent coefficients.
// Callers rebuild the CSR and refactor afterwards.
func (a *Assembly) UpdateTimestep(factor float64) {
	for _, d := range a.devices {
		d.UpdateTimestep(factor)
	}
	a.step *= factor
}

func (a *Assembly) Mode() device.Mode               { return a.mode }
func (a *Assembly) Step() float64                   { return a.step }
func (a *Assembly) Size() int                       { return a.size }
func (a *Assembly) NodeCount() int                  { return len(a.nodeNames) }
func (a *Assembly) Rows() []RowDescriptor           { return a.rows }
func (a *Assembly) Devices() []device.Device        { return a.devices }
func (a *Assembly) Connections() [][]Connection     { return a.connections }
func (a *Assembly) Injectors() []int                { return a.injectors }
func (a *Assembly) Nonlinear() []int                { return a.nonlinear }
func (a *Assembly) NodeName(i int) string           { return a.nodeNames[i] }
func (a *Assembly) Device(handle int) device.Device { return a.devices[handle] }

// Lookup returns the handle of a labelled device.
func (a *Assembly) Lookup(label string) (int, bool) {
	h, ok := a.labels[label]
	if !ok || h < 0 {
		return 0, false
	}
	return h, true
}

// Junctions returns the handles of all junctions in device order.
func (a *Assembly) Junctions() []int {
	var out []int
	for h, d := range a.devices {
		if d.Kind() == device.KindJunction {
			out = append(out, h)
		}
	}
	return out
}

// Labels returns all device labels sorted.
func (a *Assembly) Labels() []string {
	out := make([]string, 0, len(a.devices))
	for _, d := range a.devices {
		out = append(out, d.Label())
	}
	sort.Strings(out)
	return out
}
