package export

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SeriesToChart draws one or more metric series against step and saves the
// chart to path. The image format follows the file extension (png, svg, pdf).
func SeriesToChart(path, title string, steps []int, values map[string][]float64, width, height int) error {
	if len(steps) < 2 {
		return fmt.Errorf("export: need at least two samples, got %d", len(steps))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "step"
	p.Add(plotter.NewGrid())

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		vals := values[name]
		n := min(len(vals), len(steps))
		pts := make(plotter.XYs, n)
		for j := 0; j < n; j++ {
			pts[j].X = float64(steps[j])
			pts[j].Y = vals[j]
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("export: series %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(strings.ReplaceAll(name, "_", " "), line)
	}
	if len(names) == 1 {
		p.Y.Label.Text = strings.ReplaceAll(names[0], "_", " ")
	}

	return p.Save(vg.Points(float64(width)), vg.Points(float64(height)), path)
}
