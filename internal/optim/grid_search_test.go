package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/molsim/internal/config"
	"github.com/san-kum/molsim/internal/elements"
	"github.com/san-kum/molsim/internal/experiment"
	"github.com/san-kum/molsim/internal/sim"
)

func builder(t *testing.T, base *config.Config) BuildFunc {
	t.Helper()
	table, err := elements.Default()
	if err != nil {
		t.Fatal(err)
	}
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg, err := experiment.WithParams(base, params)
		if err != nil {
			return nil, err
		}
		return experiment.New(cfg, table, nil), nil
	}
}

func TestNewGridSearchValidates(t *testing.T) {
	if _, err := NewGridSearch([]string{"accel"}, nil); err == nil {
		t.Error("expected mismatch error")
	}
	if _, err := NewGridSearch([]string{"accel"}, [][]float64{{}}); err == nil {
		t.Error("expected empty range error")
	}
	g, err := NewGridSearch([]string{"accel", "damping"}, [][]float64{{1, 2, 3}, {0, 0.1}})
	if err != nil {
		t.Fatal(err)
	}
	if g.Size() != 6 {
		t.Errorf("expected 6 points, got %d", g.Size())
	}
}

func TestSearchRejectsUnstableSettings(t *testing.T) {
	base := config.DefaultConfig()
	base.Preset = "water"
	base.Steps = 3000
	base.SampleEvery = 10
	base.Tolerance = 1e-6

	// 0.05 overshoots the hydrogen velocity every step and blows up.
	g, err := NewGridSearch([]string{"damping"}, [][]float64{{0.05, 0.002}})
	if err != nil {
		t.Fatal(err)
	}

	best, score, err := g.Search(context.Background(), builder(t, base), StepsMetric)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if best["damping"] != 0.002 {
		t.Errorf("expected the stable damping to win, got %v (score %g)", best, score)
	}
	if math.IsInf(score, 1) {
		t.Error("expected a finite score")
	}
}

func TestSearchSkipsInvalidPoints(t *testing.T) {
	base := config.DefaultConfig()
	base.Steps = 20
	base.SampleEvery = 5

	g, _ := NewGridSearch([]string{"length_scale"}, [][]float64{{-1, 450}})
	best, _, err := g.Search(context.Background(), builder(t, base), "bond_strain")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if best["length_scale"] != 450 {
		t.Errorf("expected the valid point, got %v", best)
	}

	g, _ = NewGridSearch([]string{"length_scale"}, [][]float64{{-1}})
	if _, _, err := g.Search(context.Background(), builder(t, base), "bond_strain"); !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.Search(ctx, builder(t, base), "bond_strain"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestScore(t *testing.T) {
	r := &sim.Result{StepsTaken: 12, Metrics: map[string]float64{"max_force": 0.5}}
	if Score(r, StepsMetric) != 12 {
		t.Error("expected step count")
	}
	if Score(r, "max_force") != 0.5 {
		t.Error("expected metric value")
	}
	if !math.IsInf(Score(r, "missing"), 1) {
		t.Error("missing metric should score +Inf")
	}
	r.Errors = []error{errors.New("nan")}
	if !math.IsInf(Score(r, StepsMetric), 1) {
		t.Error("failed run should score +Inf")
	}
}
