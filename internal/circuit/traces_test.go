package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/jjsim/internal/device"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		in   string
		want Request
		ok   bool
	}{
		{"V(n1)", Request{QuantityVoltage, "n1"}, true},
		{" p( B1 ) ", Request{QuantityPhase, "B1"}, true},
		{"I(R2)", Request{QuantityCurrent, "R2"}, true},
		{"X(R2)", Request{}, false},
		{"V()", Request{}, false},
	}
	for _, tt := range tests {
		got, err := ParseRequest(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, mustParse(t, got.String()))
	}
}

func mustParse(t *testing.T, s string) Request {
	t.Helper()
	r, err := ParseRequest(s)
	require.NoError(t, err)
	return r
}

func jjCircuit() []Element {
	return []Element{
		{Kind: device.KindCurrentSource, Label: "I1", Nodes: []string{"0", "a"}},
		resistor("R1", "a", "b", 2),
		{Kind: device.KindJunction, Label: "B1", Nodes: []string{"b", "0"}},
		{Kind: device.KindCCCS, Label: "F1", Nodes: []string{"c", "0", "b", "0"}, Value: 3},
		resistor("R2", "c", "0", 1),
	}
}

func TestRelevantVoltageMode(t *testing.T) {
	a := assemble(t, jjCircuit(), device.Voltage)
	reqs := []Request{
		{QuantityVoltage, "a"},
		{QuantityPhase, "a"},
		{QuantityPhase, "B1"},
		{QuantityVoltage, "B1"},
		{QuantityCurrent, "R1"},
		{QuantityCurrent, "B1"},
		{QuantityCurrent, "I1"},
		{QuantityCurrent, "F1"},
		{QuantityVoltage, "missing"},
		{QuantityVoltage, "0"},
	}
	traces, warns := a.Relevant(reqs)
	require.Len(t, traces, 8)
	assert.Len(t, warns, 2)
	assert.Equal(t, "V(missing)", warns[0].Request)

	nodeA := 0
	assert.Equal(t, nodeA, traces[0].Pos)
	assert.Equal(t, Native, traces[0].Convert)
	assert.Equal(t, Integrate, traces[1].Convert)

	h, _ := a.Lookup("B1")
	j := a.Device(h).(*device.Junction)
	assert.Equal(t, j.First(), traces[2].Pos)
	assert.Equal(t, Native, traces[2].Convert)
	p, n := j.Terminals()
	assert.Equal(t, [2]int{p, n}, [2]int{traces[3].Pos, traces[3].Neg})

	assert.Equal(t, h, traces[5].Injector)
	assert.Equal(t, j.First()+1, traces[5].Pos)

	assert.Equal(t, device.Ground, traces[6].Pos)
	assert.NotEqual(t, -1, traces[6].Injector)

	assert.Equal(t, 3.0, traces[7].Scale)
}

func TestRelevantPhaseMode(t *testing.T) {
	a := assemble(t, jjCircuit(), device.Phase)
	traces, warns := a.Relevant([]Request{
		{QuantityVoltage, "a"},
		{QuantityPhase, "a"},
		{QuantityVoltage, "B1"},
	})
	require.Empty(t, warns)
	assert.Equal(t, Differentiate, traces[0].Convert)
	assert.Equal(t, Native, traces[1].Convert)

	h, _ := a.Lookup("B1")
	assert.Equal(t, a.Device(h).(*device.Junction).First(), traces[2].Pos)
}

func TestTraceValue(t *testing.T) {
	a := assemble(t, jjCircuit(), device.Voltage)
	traces, _ := a.Relevant([]Request{{QuantityVoltage, "R1"}, {QuantityCurrent, "F1"}})

	x := make([]float64, a.Size())
	x[0], x[1] = 3, 1
	assert.Equal(t, 2.0, traces[0].Value(x, a, 0))

	h, _ := a.Lookup("F1")
	x[a.Device(h).(*device.CCCS).First()] = 0.5
	assert.Equal(t, 1.5, traces[1].Value(x, a, 0))
}

func TestDefaultTracesAndIndices(t *testing.T) {
	a := assemble(t, jjCircuit(), device.Voltage)
	traces := a.DefaultTraces()
	assert.Len(t, traces, a.NodeCount()+len(a.Devices()))

	idx := RelevantIndices(traces)
	seen := map[int]bool{}
	for _, i := range idx {
		assert.False(t, seen[i])
		assert.NotEqual(t, device.Ground, i)
		seen[i] = true
	}
	assert.Equal(t, []int{0, 1, 2}, idx[:3])
}
