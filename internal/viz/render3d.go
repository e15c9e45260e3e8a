package viz

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/molsim/internal/molecule"
)

// Camera projects solution coordinates onto a canvas. It orbits Center and
// frames a sphere of radius Extent.
type Camera struct {
	Center           r3.Vec
	Extent           float64
	Distance         float64
	Near             float64
	RotX, RotY, RotZ float64
	Zoom             float64
}

func NewCamera() *Camera {
	return &Camera{Extent: 1, Distance: 6, Near: 0.1, Zoom: 1.0}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Fit centres the camera on the atoms' centroid and sizes Extent to the
// farthest atom. An empty solution leaves the camera unchanged.
func (c *Camera) Fit(sol *molecule.Solution) {
	atoms := sol.Atoms()
	if len(atoms) == 0 {
		return
	}
	var sum r3.Vec
	for _, a := range atoms {
		sum = r3.Add(sum, a.Position())
	}
	c.Center = r3.Scale(1/float64(len(atoms)), sum)

	extent := 0.0
	for _, a := range atoms {
		extent = math.Max(extent, r3.Norm(r3.Sub(a.Position(), c.Center)))
	}
	if extent < 1e-3 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		extent = 1
	}
	c.Extent = extent
}

// RotatePoint rotates a point around the camera's axes.
func (c *Camera) RotatePoint(p r3.Vec) r3.Vec {
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	return p
}

// PixelScale is the number of sub-pixels per solution unit at the centre
// plane.
func (c *Camera) PixelScale(sw, sh int) float64 {
	minDim := math.Min(float64(sw), float64(sh))
	return minDim / (2.4 * c.Extent) * c.Zoom
}

// Project converts solution coordinates to canvas sub-pixels.
// Returns x, y, depth, and visibility.
func (c *Camera) Project(p r3.Vec, sw, sh int) (int, int, float64, bool) {
	rot := c.RotatePoint(r3.Sub(p, c.Center))
	dist := c.Distance * c.Extent
	if rot.Z >= dist-c.Near*c.Extent {
		return 0, 0, 0, false
	}
	scale := dist / (dist - rot.Z) * c.PixelScale(sw, sh)
	sx := int(math.Round(rot.X*scale)) + sw/2
	sy := int(math.Round(-rot.Y*scale)) + sh/2
	return sx, sy, rot.Z, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

type projectedAtom struct {
	x, y, r  int
	depth    float64
	anchored bool
	selected bool
}

// RenderSolution draws bonds as one line per order and atoms as circles sized
// by radius, painted back to front. Anchored atoms are filled and the
// selected atom gets an extra ring.
func RenderSolution(c *Canvas, sol *molecule.Solution, cam *Camera, selected molecule.AtomID) {
	if c == nil || sol == nil || cam == nil {
		return
	}
	sw, sh := c.SubSize()
	px := cam.PixelScale(sw, sh)

	for _, b := range sol.Bonds() {
		a1, ok1 := sol.Atom(b.Atom1())
		a2, ok2 := sol.Atom(b.Atom2())
		if !ok1 || !ok2 {
			continue
		}
		x1, y1, _, v1 := cam.Project(a1.Position(), sw, sh)
		x2, y2, _, v2 := cam.Project(a2.Position(), sw, sh)
		if !v1 && !v2 {
			continue
		}
		drawBond(c, x1, y1, x2, y2, int(b.Order()))
	}

	atoms := make([]projectedAtom, 0, sol.NumAtoms())
	for _, a := range sol.Atoms() {
		x, y, d, ok := cam.Project(a.Position(), sw, sh)
		if !ok {
			continue
		}
		r := int(a.Radius() * px * 0.25)
		if r < 1 {
			r = 1
		}
		atoms = append(atoms, projectedAtom{x, y, r, d, a.Anchored(), a.ID() == selected})
	}
	sort.Slice(atoms, func(i, j int) bool { return atoms[i].depth < atoms[j].depth })
	for _, a := range atoms {
		if a.anchored {
			c.FillCircle(a.x, a.y, a.r)
		} else {
			c.DrawCircle(a.x, a.y, a.r)
		}
		if a.selected {
			c.DrawCircle(a.x, a.y, a.r+2)
		}
	}
}

func drawBond(c *Canvas, x1, y1, x2, y2, order int) {
	if order <= 1 {
		c.DrawLine(x1, y1, x2, y2)
		return
	}
	dx, dy := float64(x2-x1), float64(y2-y1)
	l := math.Hypot(dx, dy)
	if l == 0 {
		c.Set(x1, y1)
		return
	}
	nx, ny := -dy/l, dx/l
	for i := 0; i < order; i++ {
		off := (float64(i) - float64(order-1)/2) * 2
		ox, oy := int(math.Round(nx*off)), int(math.Round(ny*off))
		c.DrawLine(x1+ox, y1+oy, x2+ox, y2+oy)
	}
}
