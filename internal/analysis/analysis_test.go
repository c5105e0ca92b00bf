package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/jjsim/internal/config"
	"github.com/san-kum/jjsim/internal/device"
)

func sine(n int, h, f, amp, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + amp*math.Sin(2*math.Pi*f*float64(i)*h)
	}
	return out
}

func TestSpectrumPeak(t *testing.T) {
	const h = 1e-12
	data := sine(1000, h, 50e9, 3e-4, 1e-3)

	freqs, amps, err := Spectrum(data, h)
	require.NoError(t, err)
	require.Len(t, freqs, 501)
	assert.InDelta(t, 50e9, freqs[50], 1)
	assert.InDelta(t, 3e-4, amps[50], 1e-9)
	assert.InDelta(t, 0, amps[0], 1e-15)

	f, err := DominantFrequency(data, h)
	require.NoError(t, err)
	assert.InDelta(t, 50e9, f, 1e6)
}

func TestDominantFrequencyOffBin(t *testing.T) {
	const h = 1e-12
	f, err := DominantFrequency(sine(1000, h, 50.4e9, 1, 0), h)
	require.NoError(t, err)
	assert.InDelta(t, 50.4e9, f, 0.3e9)

	_, _, err = Spectrum([]float64{1, 2}, h)
	assert.ErrorIs(t, err, ErrShortTrace)
}

func TestJosephsonRelation(t *testing.T) {
	assert.InEpsilon(t, 483.5979e9, JosephsonFrequency(1e-3), 1e-5)
	assert.InEpsilon(t, 1e-3, VoltageFromFrequency(JosephsonFrequency(-1e-3)), 1e-12)
	assert.Equal(t, device.PhiZero, VoltageFromFrequency(1))
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, Linspace(0, 1, 3))
	assert.Equal(t, []float64{2}, Linspace(2, 5, 1))
}

func TestIVCurveSwitches(t *testing.T) {
	deck := config.GetPreset("jj-bias")
	deck.Simulation.Stop = 150e-12

	points, err := IVCurve(context.Background(), deck, IVOptions{
		Source:   "I1",
		Junction: "B1",
		Biases:   []float64{0.5e-3, 2e-3},
		Workers:  2,
	})
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Zero(t, points[0].Slips)
	assert.Less(t, math.Abs(points[0].Voltage), 1e-5)
	assert.Positive(t, points[1].Slips)
	assert.Greater(t, points[1].Voltage, points[0].Voltage)

	ic, ok := SwitchingBias(points, 0)
	assert.True(t, ok)
	assert.Equal(t, 2e-3, ic)

	// the deck itself is untouched
	src := deck.Elements[0].Source
	assert.Equal(t, "pwl", src.Type)

	_, err = IVCurve(context.Background(), deck, IVOptions{Source: "nope", Junction: "B1", Biases: []float64{1e-3}})
	assert.ErrorIs(t, err, config.ErrInvalid)
	_, err = IVCurve(context.Background(), deck, IVOptions{Source: "I1"})
	assert.Error(t, err)
}
