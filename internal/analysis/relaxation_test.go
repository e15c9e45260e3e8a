package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/storage"
)

func evenSteps(n, every int) []int {
	steps := make([]int, n)
	for i := range steps {
		steps[i] = i * every
	}
	return steps
}

func TestDecayRate(t *testing.T) {
	steps := evenSteps(50, 10)
	values := make([]float64, len(steps))
	for i, s := range steps {
		values[i] = 3 * math.Exp(-0.01*float64(s))
	}

	rate, err := DecayRate(steps, values)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rate+0.01) > 1e-9 {
		t.Errorf("expected rate -0.01, got %g", rate)
	}
	if hl := HalfLife(rate); math.Abs(hl-math.Ln2/0.01) > 1e-6 {
		t.Errorf("unexpected half-life %g", hl)
	}
	if !math.IsInf(HalfLife(0.1), 1) {
		t.Error("growing series should have infinite half-life")
	}

	if _, err := DecayRate([]int{0, 1}, []float64{0, -1}); !errors.Is(err, ErrTooShort) {
		t.Errorf("expected ErrTooShort without positive samples, got %v", err)
	}
}

func TestDominantPeriod(t *testing.T) {
	steps := evenSteps(64, 10)
	values := make([]float64, len(steps))
	for i := range values {
		values[i] = 5 + math.Sin(2*math.Pi*float64(i)/8)
	}

	period, share, err := DominantPeriod(steps, values)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(period-80) > 1e-9 {
		t.Errorf("expected period 80 steps, got %g", period)
	}
	if share < 0.99 {
		t.Errorf("pure sine should hold all power in one bin, got share %g", share)
	}

	flat := make([]float64, 16)
	if period, _, err := DominantPeriod(evenSteps(16, 1), flat); err != nil || period != 0 {
		t.Errorf("flat series should have no period, got %g, %v", period, err)
	}

	uneven := []int{0, 1, 2, 4, 5}
	if _, _, err := DominantPeriod(uneven, make([]float64, 5)); !errors.Is(err, ErrNotSpaced) {
		t.Errorf("expected ErrNotSpaced, got %v", err)
	}
}

func TestAnalyze(t *testing.T) {
	steps := append(evenSteps(64, 10), 635)
	ringing := make([]float64, len(steps))
	for i, s := range steps {
		ringing[i] = math.Exp(-0.002*float64(s)) * (1.5 + math.Cos(2*math.Pi*float64(s)/40))
	}
	series := storage.Series{Steps: steps, Values: map[string][]float64{"kinetic_energy": ringing}}

	rep, err := Analyze(series, "kinetic_energy")
	if err != nil {
		t.Fatal(err)
	}
	if rep.DecayRate >= 0 {
		t.Errorf("expected a settling series, got rate %g", rep.DecayRate)
	}
	if !rep.Ringing || math.Abs(rep.Period-40) > 1e-9 {
		t.Errorf("expected ringing with period 40, got %+v", rep)
	}

	if _, err := Analyze(series, "max_force"); !errors.Is(err, ErrNoSeries) {
		t.Errorf("expected ErrNoSeries, got %v", err)
	}
}

func TestTrajectory(t *testing.T) {
	frames := []storage.Frame{
		{Step: 0, Atoms: []storage.AtomState{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 1, Y: 1}}},
		{Step: 10, Atoms: []storage.AtomState{{ID: 1, X: 0.5, Y: 0.25}}},
		{Step: 20, Atoms: []storage.AtomState{{ID: 2, X: 2, Y: 2}}},
	}

	path := Trajectory(frames, molecule.AtomID(2))
	if len(path) != 2 {
		t.Fatalf("expected 2 points, got %d", len(path))
	}
	if path[1] != (Point{X: 2, Y: 2}) {
		t.Errorf("unexpected last point %+v", path[1])
	}
}
