package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/jjsim/internal/device"
)

var ErrShortTrace = errors.New("analysis: trace too short")

// Spectrum returns the one-sided amplitude spectrum of a uniformly
// sampled trace with step h. The mean is removed first.
func Spectrum(data []float64, h float64) (freqs, amps []float64, err error) {
	n := len(data)
	if n < 4 {
		return nil, nil, ErrShortTrace
	}
	mean := stat.Mean(data, nil)
	seq := make([]float64, n)
	for i, v := range data {
		seq[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, seq)

	freqs = make([]float64, len(coeff))
	amps = make([]float64, len(coeff))
	for i, c := range coeff {
		freqs[i] = fft.Freq(i) / h
		a := cmplx.Abs(c) / float64(n)
		if i > 0 && !(n%2 == 0 && i == n/2) {
			a *= 2
		}
		amps[i] = a
	}
	return freqs, amps, nil
}

// DominantFrequency returns the frequency of the largest non-DC line,
// refined by parabolic interpolation over its neighbours.
func DominantFrequency(data []float64, h float64) (float64, error) {
	freqs, amps, err := Spectrum(data, h)
	if err != nil {
		return 0, err
	}
	k := 1
	for i := 2; i < len(amps); i++ {
		if amps[i] > amps[k] {
			k = i
		}
	}
	if amps[k] == 0 {
		return 0, nil
	}
	df := freqs[1] - freqs[0]
	if k > 1 && k < len(amps)-1 {
		a, b, c := amps[k-1], amps[k], amps[k+1]
		if den := a - 2*b + c; den != 0 {
			return freqs[k] + 0.5*(a-c)/den*df, nil
		}
	}
	return freqs[k], nil
}

// JosephsonFrequency is the AC Josephson frequency at mean voltage v.
func JosephsonFrequency(v float64) float64 { return math.Abs(v) / device.PhiZero }

func VoltageFromFrequency(f float64) float64 { return f * device.PhiZero }
