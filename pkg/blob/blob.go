// Package blob generates random blob silhouettes as SVG path data.
//
// A blob is a ring of points at evenly spaced angles around a centre, each
// at a pseudo-random radius, joined by quadratic curves through the
// midpoints of neighbouring points. The same settings and seed always give
// the same path.
package blob

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// ErrInvalidParameter is matched by every settings validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParamError reports which setting was rejected.
type ParamError struct {
	Field string
	Value float64
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s = %v", ErrInvalidParameter, e.Field, e.Value)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

// MinEdges is the fewest points that enclose an area.
const MinEdges = 3

// Settings control the blob outline.
type Settings struct {
	Size   float64 // width and height of the bounding square
	Growth float64 // minimum radius in tenths of the outer radius
	Edges  int     // number of points around the ring
	Seed   *int64  // nil draws a fresh seed
}

// DefaultSettings returns the settings the viewer starts with.
func DefaultSettings() Settings {
	return Settings{Size: 100, Growth: 8, Edges: 20, Seed: Seed(44060)}
}

// Seed returns a pointer to v for use in Settings.
func Seed(v int64) *int64 { return &v }

// Validate checks the numeric ranges. Fewer than MinEdges points give a
// degenerate outline with nothing to extrude.
func (s Settings) Validate() error {
	switch {
	case s.Edges < MinEdges:
		return &ParamError{Field: "edges", Value: float64(s.Edges)}
	case !(s.Size > 0) || math.IsInf(s.Size, 0):
		return &ParamError{Field: "size", Value: s.Size}
	case !(s.Growth >= 0) || math.IsInf(s.Growth, 0):
		return &ParamError{Field: "growth", Value: s.Growth}
	}
	return nil
}

// Point is a rounded outline point.
type Point struct {
	X, Y float64
}

// Result is a generated outline.
type Result struct {
	Path   string  // SVG path data
	Seed   int64   // seed actually used
	Points []Point // ring points before curve fitting
	Size   float64
}

// seedCaps bound randomly drawn seeds; one is picked at random first so
// short and long seeds are equally likely.
var seedCaps = [...]int64{99, 999, 9999, 99999, 999999}

// RandomSeed draws a seed from the process-wide random source.
func RandomSeed() int64 {
	limit := seedCaps[rand.IntN(len(seedCaps))]
	return max(1, rand.Int64N(limit))
}

// Generate builds the outline for s.
func Generate(s Settings) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	seed := RandomSeed()
	if s.Seed != nil {
		seed = *s.Seed
	}
	pts := points(s, seed)
	return Result{Path: path(pts), Seed: seed, Points: pts, Size: s.Size}, nil
}

func points(s Settings, seed int64) []Point {
	outer := s.Size / 2
	inner := s.Growth * (outer / 10)
	center := s.Size / 2
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))

	pts := make([]Point, 0, s.Edges)
	step := 360 / float64(s.Edges)
	for i := range s.Edges {
		r := radius(rng.Float64(), inner, outer)
		rad := float64(i) * step * math.Pi / 180
		pts = append(pts, Point{
			X: roundHalfUp(center + r*math.Cos(rad)),
			Y: roundHalfUp(center + r*math.Sin(rad)),
		})
	}
	return pts
}

// radius maps v in [0,1) onto [lo,hi]. When growth pushes lo past hi the
// result is folded back by lo.
func radius(v, lo, hi float64) float64 {
	r := lo + v*(hi-lo)
	if r > hi {
		r -= lo
	} else if r < lo {
		r += lo
	}
	return r
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func mid(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func path(pts []Point) string {
	n := len(pts)
	var sb strings.Builder
	m := mid(pts[0], pts[1%n])
	sb.WriteString("M")
	writePair(&sb, m)
	for i := range n {
		p1 := pts[(i+1)%n]
		p2 := pts[(i+2)%n]
		sb.WriteString("Q")
		writePair(&sb, p1)
		sb.WriteByte(',')
		writePair(&sb, mid(p1, p2))
	}
	sb.WriteString("Z")
	return sb.String()
}

func writePair(sb *strings.Builder, p Point) {
	sb.WriteString(formatNumber(p.X))
	sb.WriteByte(',')
	sb.WriteString(formatNumber(p.Y))
}

// formatNumber prints v in its shortest form: 50, 12.5, -3.
func formatNumber(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SVG wraps the path in a standalone document with a square view box.
func (r Result) SVG() string {
	size := formatNumber(r.Size)
	return `<svg viewBox="0 0 ` + size + ` ` + size +
		`" xmlns="http://www.w3.org/2000/svg" width="100%" id="blobSvg"><path d="` +
		r.Path + `" fill="#00FF00"/></svg>`
}
