package shape

import (
	"math"
	"sort"

	"github.com/taigrr/blobview/pkg/math3d"
)

const triEps = 1e-12

// Triangulate splits a shape into triangles by ear clipping. Holes are
// first bridged into the outer ring so the result is a single ring. The
// returned triangles index into verts and wind counter-clockwise.
func Triangulate(s Shape) (verts []math3d.Vec2, tris [][3]int) {
	outer := s.Outer
	if outer.Area() < 0 {
		outer = outer.Reversed()
	}
	verts = append(verts, outer...)
	ring := make([]int, len(outer))
	for i := range ring {
		ring[i] = i
	}

	holes := make([]Polygon, 0, len(s.Holes))
	for _, h := range s.Holes {
		if len(h) < 3 {
			continue
		}
		if h.Area() > 0 {
			h = h.Reversed()
		}
		holes = append(holes, h)
	}
	sort.SliceStable(holes, func(i, j int) bool {
		return maxX(holes[i]) > maxX(holes[j])
	})
	for hi, h := range holes {
		ring = bridgeHole(verts, ring, h, holes[hi+1:])
		verts = append(verts, h...)
	}

	return verts, earClip(verts, ring)
}

func maxX(p Polygon) float64 {
	m := math.Inf(-1)
	for _, v := range p {
		m = math.Max(m, v.X)
	}
	return m
}

// bridgeHole splices hole h into ring through its rightmost vertex. The
// hole's vertices will be appended to verts by the caller, starting at
// len(verts).
func bridgeHole(verts []math3d.Vec2, ring []int, h Polygon, rest []Polygon) []int {
	base := len(verts)
	m := 0
	for i, v := range h {
		if v.X > h[m].X {
			m = i
		}
	}
	hm := h[m]

	// nearest ring vertex whose bridge crosses nothing
	order := make([]int, len(ring))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return verts[ring[order[a]]].Distance(hm) < verts[ring[order[b]]].Distance(hm)
	})
	k := order[0]
	for _, cand := range order {
		p := verts[ring[cand]]
		if !crossesRing(hm, p, verts, ring) && !crossesPolygon(hm, p, h) && !crossesAny(hm, p, rest) {
			k = cand
			break
		}
	}

	out := make([]int, 0, len(ring)+len(h)+2)
	out = append(out, ring[:k+1]...)
	for i := range len(h) + 1 {
		out = append(out, base+(m+i)%len(h))
	}
	out = append(out, ring[k])
	out = append(out, ring[k+1:]...)
	return out
}

func crossesRing(a, b math3d.Vec2, verts []math3d.Vec2, ring []int) bool {
	n := len(ring)
	for i := range n {
		if segmentsCross(a, b, verts[ring[i]], verts[ring[(i+1)%n]]) {
			return true
		}
	}
	return false
}

func crossesPolygon(a, b math3d.Vec2, p Polygon) bool {
	n := len(p)
	for i := range n {
		if segmentsCross(a, b, p[i], p[(i+1)%n]) {
			return true
		}
	}
	return false
}

func crossesAny(a, b math3d.Vec2, ps []Polygon) bool {
	for _, p := range ps {
		if crossesPolygon(a, b, p) {
			return true
		}
	}
	return false
}

func orient(a, b, c math3d.Vec2) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}

// segmentsCross reports a proper crossing. Touching at endpoints does not
// count.
func segmentsCross(a, b, c, d math3d.Vec2) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	return ((d1 > triEps && d2 < -triEps) || (d1 < -triEps && d2 > triEps)) &&
		((d3 > triEps && d4 < -triEps) || (d3 < -triEps && d4 > triEps))
}

func pointInTriangle(p, a, b, c math3d.Vec2) bool {
	return orient(a, b, p) > triEps && orient(b, c, p) > triEps && orient(c, a, p) > triEps
}

// earClip triangulates a counter-clockwise ring of vertex indices. Indices
// may repeat where holes were bridged.
func earClip(verts []math3d.Vec2, ring []int) [][3]int {
	ring = append([]int(nil), ring...)
	tris := make([][3]int, 0, max(len(ring)-2, 0))

	isEar := func(i int) bool {
		n := len(ring)
		ia, ib, ic := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]
		a, b, c := verts[ia], verts[ib], verts[ic]
		if orient(a, b, c) <= triEps {
			return false
		}
		for j, idx := range ring {
			if j == i || j == (i+n-1)%n || j == (i+1)%n {
				continue
			}
			p := verts[idx]
			if p.ApproxEqual(a, 1e-12) || p.ApproxEqual(b, 1e-12) || p.ApproxEqual(c, 1e-12) {
				continue
			}
			if pointInTriangle(p, a, b, c) {
				return false
			}
		}
		return true
	}
	clip := func(i int, emit bool) {
		n := len(ring)
		if emit {
			tris = append(tris, [3]int{ring[(i+n-1)%n], ring[i], ring[(i+1)%n]})
		}
		ring = append(ring[:i], ring[i+1:]...)
	}

	for len(ring) > 3 {
		clipped := false
		for i := range ring {
			if isEar(i) {
				clip(i, true)
				clipped = true
				break
			}
		}
		if clipped {
			continue
		}
		// No clean ear: the ring is degenerate or self-intersecting. Drop
		// the flattest vertex, or clip the most convex one.
		n := len(ring)
		best, bestArea := 0, math.Inf(-1)
		flat := -1
		for i := range ring {
			o := orient(verts[ring[(i+n-1)%n]], verts[ring[i]], verts[ring[(i+1)%n]])
			if math.Abs(o) <= triEps {
				flat = i
				break
			}
			if o > bestArea {
				best, bestArea = i, o
			}
		}
		if flat >= 0 {
			clip(flat, false)
		} else {
			clip(best, bestArea > 0)
		}
	}
	if len(ring) == 3 && orient(verts[ring[0]], verts[ring[1]], verts[ring[2]]) > triEps {
		tris = append(tris, [3]int{ring[0], ring[1], ring[2]})
	}
	return tris
}
