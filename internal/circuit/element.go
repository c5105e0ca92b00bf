package circuit

import (
	"strings"

	"github.com/san-kum/jjsim/internal/device"
)

// Element is one entry of the normalized device list.
type Element struct {
	Kind  device.Kind
	Label string
	Nodes []string

	// Value is the primary parameter: resistance, capacitance, inductance,
	// coupling factor, gain or characteristic impedance.
	Value float64

	// Delay is the transmission-line delay.
	Delay float64

	// Junction parameters.
	Model string
	Area  float64
	IC    float64

	// Temperature enables Johnson noise on a resistor.
	Temperature float64

	// Couples names the two inductors of a mutual coupling.
	Couples [2]string

	// Samples is the per-step waveform of an independent source.
	Samples device.Waveform
}

// terminalCount returns the number of node names a kind takes.
func terminalCount(k device.Kind) int {
	switch k {
	case device.KindMutual:
		return 0
	case device.KindCCCS, device.KindCCVS, device.KindVCCS, device.KindVCVS, device.KindTxLine:
		return 4
	default:
		return 2
	}
}

// IsGround reports whether a node name denotes the reference node.
func IsGround(name string) bool {
	switch strings.ToLower(name) {
	case "0", "gnd":
		return true
	}
	return false
}

// NodeMap numbers the non-ground nodes of a device list in order of first
// appearance.
func NodeMap(elements []Element) map[string]int {
	nodes := make(map[string]int)
	for _, el := range elements {
		for _, name := range el.Nodes {
			if name == "" || IsGround(name) {
				continue
			}
			if _, ok := nodes[name]; !ok {
				nodes[name] = len(nodes)
			}
		}
	}
	return nodes
}
