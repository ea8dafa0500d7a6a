package shape

import (
	"math"
	"sort"

	"github.com/taigrr/blobview/pkg/math3d"
)

// DefaultCurveSegments is the number of line steps per flattened curve.
const DefaultCurveSegments = 12

// Polygon is a closed ring of points. The closing point is implicit.
type Polygon []math3d.Vec2

// Area is the signed shoelace area: positive for counter-clockwise rings
// in a y-up frame.
func (p Polygon) Area() float64 {
	var a float64
	n := len(p)
	for i := range n {
		j := (i + 1) % n
		a += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return a / 2
}

// Reversed returns the ring in the opposite direction.
func (p Polygon) Reversed() Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// Contains reports whether pt lies inside the ring (even-odd rule).
func (p Polygon) Contains(pt math3d.Vec2) bool {
	inside := false
	n := len(p)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// Bounds returns the ring's bounding box in the XY plane.
func (p Polygon) Bounds() math3d.Box3 {
	b := math3d.EmptyBox3()
	for _, v := range p {
		b = b.ExpandByPoint(math3d.V3(v.X, v.Y, 0))
	}
	return b
}

// Shape is a filled outline with optional holes. Outer winds
// counter-clockwise and holes clockwise.
type Shape struct {
	Outer Polygon
	Holes []Polygon
}

// Polygons flattens every subpath into a ring, dropping rings with fewer
// than three distinct points.
func (p Path) Polygons(curveSegments int) []Polygon {
	if curveSegments <= 0 {
		curveSegments = DefaultCurveSegments
	}
	var out []Polygon
	for _, sp := range p.Subpaths {
		if len(sp.Segments) == 0 {
			continue
		}
		pts := []math3d.Vec2{sp.Segments[0].From}
		for _, seg := range sp.Segments {
			pts = seg.flatten(pts, curveSegments)
		}
		ring := dedupe(pts)
		if len(ring) >= 3 && math.Abs(ring.Area()) > 1e-9 {
			out = append(out, ring)
		}
	}
	return out
}

// dedupe drops consecutive repeats and the explicit closing point.
func dedupe(pts []math3d.Vec2) Polygon {
	const eps = 1e-9
	out := make(Polygon, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].ApproxEqual(p, eps) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[0].ApproxEqual(out[len(out)-1], eps) {
		out = out[:len(out)-1]
	}
	return out
}

// Shapes flattens the path and groups its rings into shapes. A ring nested
// inside an odd number of other rings is a hole of its tightest enclosing
// ring.
func (p Path) Shapes(curveSegments int) []Shape {
	rings := p.Polygons(curveSegments)
	sort.SliceStable(rings, func(i, j int) bool {
		return math.Abs(rings[i].Area()) > math.Abs(rings[j].Area())
	})

	parent := make([]int, len(rings))
	depth := make([]int, len(rings))
	for i, r := range rings {
		parent[i] = -1
		// larger rings come first, so the last container found is the tightest
		for j := range i {
			if rings[j].Contains(r[0]) {
				depth[i]++
				parent[i] = j
			}
		}
	}

	var shapes []Shape
	index := make(map[int]int)
	for i, r := range rings {
		if depth[i]%2 == 0 {
			if r.Area() < 0 {
				r = r.Reversed()
			}
			index[i] = len(shapes)
			shapes = append(shapes, Shape{Outer: r})
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 1 {
			if r.Area() > 0 {
				r = r.Reversed()
			}
			s, ok := index[parent[i]]
			if !ok {
				continue
			}
			shapes[s].Holes = append(shapes[s].Holes, r)
		}
	}
	return shapes
}
