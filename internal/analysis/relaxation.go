package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/storage"
)

// RingingShare is the fraction of non-constant spectral power a single bin
// must hold for a series to count as ringing.
const RingingShare = 0.25

var (
	ErrTooShort  = errors.New("analysis: series too short")
	ErrNoSeries  = errors.New("analysis: no such series")
	ErrNotSpaced = errors.New("analysis: samples are not evenly spaced")
)

// Report summarises how one metric series settled.
type Report struct {
	Name string
	// DecayRate is the slope of ln(value) per step. Negative when settling.
	DecayRate float64
	// HalfLife is the number of steps for the value to halve, +Inf when the
	// series is not decaying.
	HalfLife float64
	// Period is the dominant oscillation period in steps, 0 without one.
	Period float64
	// Share is the fraction of spectral power in the dominant bin.
	Share   float64
	Ringing bool
}

// DecayRate fits ln(value) = a + rate*step over the positive samples.
//
// The estimate is the settling counterpart of a Lyapunov exponent: a
// negative rate means perturbations die out at that rate per step.
func DecayRate(steps []int, values []float64) (float64, error) {
	if len(steps) != len(values) {
		return 0, fmt.Errorf("analysis: %d steps but %d values", len(steps), len(values))
	}
	xs := make([]float64, 0, len(values))
	ys := make([]float64, 0, len(values))
	for i, v := range values {
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		xs = append(xs, float64(steps[i]))
		ys = append(ys, math.Log(v))
	}
	if len(xs) < 2 {
		return 0, ErrTooShort
	}
	_, rate := stat.LinearRegression(xs, ys, nil, false)
	return rate, nil
}

// HalfLife converts a decay rate into steps per halving.
func HalfLife(rate float64) float64 {
	if rate >= 0 {
		return math.Inf(1)
	}
	return math.Ln2 / -rate
}

// Spectrum returns the power of each non-negative frequency bin of the
// mean-removed series. Bin i holds i cycles per len(values) samples.
func Spectrum(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	mean := stat.Mean(values, nil)
	centred := make([]float64, len(values))
	for i, v := range values {
		centred[i] = v - mean
	}

	fft := fourier.NewFFT(len(centred))
	coeffs := fft.Coefficients(nil, centred)
	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		a := cmplx.Abs(c)
		power[i] = a * a
	}
	return power
}

// DominantPeriod returns the period in steps of the strongest oscillation in
// an evenly sampled series, and the share of power it carries.
func DominantPeriod(steps []int, values []float64) (float64, float64, error) {
	if len(values) < 4 || len(steps) != len(values) {
		return 0, 0, ErrTooShort
	}
	dt := steps[1] - steps[0]
	if dt <= 0 {
		return 0, 0, ErrNotSpaced
	}
	for i := 2; i < len(steps); i++ {
		if steps[i]-steps[i-1] != dt {
			return 0, 0, fmt.Errorf("%w: gap %d at sample %d", ErrNotSpaced, steps[i]-steps[i-1], i)
		}
	}

	power := Spectrum(values)
	var total, peak float64
	bin := 0
	for i := 1; i < len(power); i++ {
		total += power[i]
		if power[i] > peak {
			peak, bin = power[i], i
		}
	}
	if bin == 0 || total == 0 {
		return 0, 0, nil
	}
	samples := float64(len(values)) / float64(bin)
	return samples * float64(dt), peak / total, nil
}

// Analyze reports on one named series of a recorded run. A trailing sample
// off the sampling grid is ignored.
func Analyze(series storage.Series, name string) (Report, error) {
	values, ok := series.Values[name]
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrNoSeries, name)
	}
	steps := series.Steps
	if n := len(steps); n > 2 && steps[n-1]-steps[n-2] != steps[1]-steps[0] {
		steps, values = steps[:n-1], values[:n-1]
	}

	rep := Report{Name: name}
	rate, err := DecayRate(steps, values)
	if err != nil {
		return rep, err
	}
	rep.DecayRate = rate
	rep.HalfLife = HalfLife(rate)

	period, share, err := DominantPeriod(steps, values)
	if err != nil && !errors.Is(err, ErrTooShort) {
		return rep, err
	}
	rep.Period, rep.Share = period, share
	rep.Ringing = period > 0 && share >= RingingShare
	return rep, nil
}

// Point is a position in the drawing plane.
type Point struct {
	X, Y float64
}

// Trajectory returns the drawing-plane positions of one atom across frames.
// Frames that do not contain the atom are skipped.
func Trajectory(frames []storage.Frame, atom molecule.AtomID) []Point {
	out := make([]Point, 0, len(frames))
	for _, f := range frames {
		for _, a := range f.Atoms {
			if a.ID == atom {
				out = append(out, Point{X: a.X, Y: a.Y})
				break
			}
		}
	}
	return out
}
