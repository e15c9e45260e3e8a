package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/molsim/internal/molecule"
)

// Summary describes a recorded series.
type Summary struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Last   float64
}

// Recorder drives a set of metrics and samples their values every few steps.
type Recorder struct {
	metrics []Metric
	every   int
	steps   []int
	series  map[string][]float64
}

// NewRecorder samples after every `every` steps; values below 1 sample every step.
func NewRecorder(every int, ms ...Metric) *Recorder {
	if every < 1 {
		every = 1
	}
	r := &Recorder{
		metrics: ms,
		every:   every,
		series:  make(map[string][]float64, len(ms)),
	}
	return r
}

// Observe feeds one finished step to every metric. It reports whether the
// step was sampled.
func (r *Recorder) Observe(step int, sol *molecule.Solution, stats molecule.StepStats) bool {
	for _, m := range r.metrics {
		m.Observe(sol, stats)
	}
	if step%r.every != 0 {
		return false
	}
	r.steps = append(r.steps, step)
	for _, m := range r.metrics {
		r.series[m.Name()] = append(r.series[m.Name()], m.Value())
	}
	return true
}

func (r *Recorder) Reset() {
	for _, m := range r.metrics {
		m.Reset()
	}
	r.steps = r.steps[:0]
	r.series = make(map[string][]float64, len(r.metrics))
}

// Names returns the metric names in registration order.
func (r *Recorder) Names() []string {
	names := make([]string, len(r.metrics))
	for i, m := range r.metrics {
		names[i] = m.Name()
	}
	return names
}

func (r *Recorder) Steps() []int { return r.steps }

// Series returns the sampled values of one metric.
func (r *Recorder) Series(name string) []float64 { return r.series[name] }

// Values returns the current value of every metric.
func (r *Recorder) Values() map[string]float64 {
	out := make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Summarize computes min, max, mean and standard deviation of a series.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(values, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
		Last:   values[len(values)-1],
	}
}
