// Package export writes solutions, metric series and canvases as SVG, and
// metric series as raster charts.
package export

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
	"github.com/san-kum/molsim/internal/viz"
)

const (
	background   = "#0a0a0a"
	defaultColor = "#909090"
	bondColor    = "#cccccc"
	anchorColor  = "#ff4444"
)

type Point struct {
	X, Y float64
}

// bounds returns the padded extent of points. Empty ranges become 1 so a
// single point still maps into the image.
func bounds(points []Point) (minX, minY, rangeX, rangeY float64) {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX = maxX - minX
	rangeY = maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	return minX, minY, maxX - minX, maxY - minY
}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))
}

// SolutionToSVG draws the solution projected onto the XY plane. Bonds are
// drawn with one stroke per order and atoms are painted back to front by
// depth. Anchored atoms get a red outline.
func SolutionToSVG(sol *molecule.Solution, width, height int) string {
	atoms := sol.Atoms()

	var sb strings.Builder
	header(&sb, width, height)
	if len(atoms) == 0 {
		sb.WriteString("</svg>")
		return sb.String()
	}

	points := make([]Point, len(atoms))
	for i, a := range atoms {
		points[i] = Point{a.Position().X, a.Position().Y}
	}
	minX, minY, rangeX, rangeY := bounds(points)
	scale := float64(width) / rangeX
	if s := float64(height) / rangeY; s < scale {
		scale = s
	}
	offX := (float64(width) - rangeX*scale) / 2
	offY := (float64(height) - rangeY*scale) / 2
	screen := func(p r3.Vec) (float64, float64) {
		return offX + (p.X-minX)*scale, float64(height) - offY - (p.Y-minY)*scale
	}

	sb.WriteString(fmt.Sprintf(`<g stroke="%s" stroke-width="2" stroke-linecap="round">
`, bondColor))
	for _, b := range sol.Bonds() {
		a1, ok1 := sol.Atom(b.Atom1())
		a2, ok2 := sol.Atom(b.Atom2())
		if !ok1 || !ok2 {
			continue
		}
		x1, y1 := screen(a1.Position())
		x2, y2 := screen(a2.Position())
		writeBond(&sb, x1, y1, x2, y2, int(b.Order()))
	}
	sb.WriteString("</g>\n")

	sort.SliceStable(atoms, func(i, j int) bool { return atoms[i].Position().Z < atoms[j].Position().Z })
	for _, a := range atoms {
		x, y := screen(a.Position())
		r := a.Radius() * scale * 0.3
		if r < 4 {
			r = 4
		}
		fill := a.Color
		if fill == "" {
			fill = defaultColor
		}
		stroke := ""
		if a.Anchored() {
			stroke = fmt.Sprintf(` stroke="%s" stroke-width="2"`, anchorColor)
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"%s><title>%s%d</title></circle>
`, x, y, r, fill, stroke, a.Symbol, a.ID()))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// writeBond draws n parallel strokes between two screen points.
func writeBond(sb *strings.Builder, x1, y1, x2, y2 float64, n int) {
	if n < 1 {
		n = 1
	}
	d := r3.Vec{X: x2 - x1, Y: y2 - y1}
	length := r3.Norm(d)
	var perp r3.Vec
	if length > 0 {
		perp = r3.Scale(1/length, r3.Vec{X: -d.Y, Y: d.X})
	}
	const spacing = 4.0
	for i := 0; i < n; i++ {
		off := (float64(i) - float64(n-1)/2) * spacing
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, x1+perp.X*off, y1+perp.Y*off, x2+perp.X*off, y2+perp.Y*off))
	}
}

// SeriesToSVG plots a metric series against its sample steps.
func SeriesToSVG(steps []int, values []float64, width, height int, strokeColor string) string {
	n := len(steps)
	if len(values) < n {
		n = len(values)
	}
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		points[i] = Point{float64(steps[i]), values[i]}
	}
	return TrajectoryToSVG(points, width, height, strokeColor)
}

// TrajectoryToSVG creates an SVG polyline from points
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, minY, rangeX, rangeY := bounds(points)

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// CanvasToSVG converts a braille canvas to SVG, one dot per lit sub-pixel.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4
	dotRadius := scale * 0.4

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<g fill="#00ff00">
`, width, height, width, height, background))

	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, cx, cy, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
