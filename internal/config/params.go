package config

import (
	"fmt"
	"slices"

	"github.com/san-kum/jjsim/internal/device"
)

// Clone returns a deep copy of the deck.
func (c *Config) Clone() *Config {
	out := *c
	if c.Simulation.Noise != nil {
		nz := *c.Simulation.Noise
		out.Simulation.Noise = &nz
	}
	out.Models = slices.Clone(c.Models)
	out.Outputs = slices.Clone(c.Outputs)
	out.Elements = make([]ElementConfig, len(c.Elements))
	for i, el := range c.Elements {
		el.Nodes = slices.Clone(el.Nodes)
		el.Couples = slices.Clone(el.Couples)
		if el.Source != nil {
			src := *el.Source
			src.Points = slices.Clone(src.Points)
			el.Source = &src
		}
		out.Elements[i] = el
	}
	return &out
}

func (c *Config) element(label string) (*ElementConfig, error) {
	for i := range c.Elements {
		if c.Elements[i].Label == label {
			return &c.Elements[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no element %q", ErrInvalid, label)
}

// SetParam sets an element's primary value: the DC level of a source,
// the area of a junction, or the value of anything else. Sources become
// DC sources.
func (c *Config) SetParam(label string, v float64) error {
	el, err := c.element(label)
	if err != nil {
		return err
	}
	kind, err := device.ParseKind(el.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case device.KindVoltageSource, device.KindCurrentSource, device.KindPhaseSource:
		el.Source = DC(v)
	case device.KindJunction:
		el.Area = v
	default:
		el.Value = v
	}
	return nil
}

// Param reads back what SetParam writes. Non-DC sources report their
// value at the start time.
func (c *Config) Param(label string) (float64, error) {
	el, err := c.element(label)
	if err != nil {
		return 0, err
	}
	kind, err := device.ParseKind(el.Kind)
	if err != nil {
		return 0, err
	}
	switch kind {
	case device.KindVoltageSource, device.KindCurrentSource, device.KindPhaseSource:
		if el.Source == nil {
			return 0, nil
		}
		return el.Source.At(c.Simulation.Start), nil
	case device.KindJunction:
		return el.Area, nil
	}
	return el.Value, nil
}
