package shape

import (
	"fmt"

	"github.com/tdewolff/parse/v2/strconv"

	"github.com/taigrr/blobview/pkg/math3d"
)

// SegmentKind is the curve type of a path segment.
type SegmentKind uint8

const (
	SegLine SegmentKind = iota
	SegQuad
	SegCubic
)

// Segment is one piece of a subpath. C1 is used by quadratic and cubic
// curves, C2 only by cubics.
type Segment struct {
	Kind   SegmentKind
	From   math3d.Vec2
	C1, C2 math3d.Vec2
	To     math3d.Vec2
}

// Subpath is a connected run of segments started by a moveto.
type Subpath struct {
	Segments []Segment
	Closed   bool
}

// Path is a parsed <path> element.
type Path struct {
	ID       string
	Fill     string
	Subpaths []Subpath
}

// pathLexer walks SVG path data.
type pathLexer struct {
	b   []byte
	pos int
}

func (l *pathLexer) skipSeparators() {
	for l.pos < len(l.b) {
		switch l.b[l.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			l.pos++
		default:
			return
		}
	}
}

// command returns the next command letter, if one is next.
func (l *pathLexer) command() (byte, bool) {
	l.skipSeparators()
	if l.pos >= len(l.b) {
		return 0, false
	}
	c := l.b[l.pos]
	if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		if c == 'e' || c == 'E' {
			return 0, false
		}
		l.pos++
		return c, true
	}
	return 0, false
}

// hasNumber reports whether a number follows.
func (l *pathLexer) hasNumber() bool {
	l.skipSeparators()
	if l.pos >= len(l.b) {
		return false
	}
	c := l.b[l.pos]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func (l *pathLexer) number() (float64, error) {
	l.skipSeparators()
	f, n := strconv.ParseFloat(l.b[l.pos:])
	if n == 0 {
		return 0, fmt.Errorf("expected number at offset %d", l.pos)
	}
	l.pos += n
	return f, nil
}

func (l *pathLexer) point() (math3d.Vec2, error) {
	x, err := l.number()
	if err != nil {
		return math3d.Vec2{}, err
	}
	y, err := l.number()
	if err != nil {
		return math3d.Vec2{}, err
	}
	return math3d.V2(x, y), nil
}

// ParsePathData parses the d attribute of an SVG path. Supported commands
// are M L H V Q T C S Z in absolute and relative form.
func ParsePathData(d string) ([]Subpath, error) {
	l := &pathLexer{b: []byte(d)}

	var (
		subs     []Subpath
		sub      *Subpath
		cur      math3d.Vec2
		start    math3d.Vec2
		lastCtrl math3d.Vec2
		lastCmd  byte
		cmd      byte
		moved    bool
	)
	addSeg := func(s Segment) {
		if sub == nil {
			subs = append(subs, Subpath{})
			sub = &subs[len(subs)-1]
			start = s.From
		}
		sub.Segments = append(sub.Segments, s)
		cur = s.To
	}

	for {
		if c, ok := l.command(); ok {
			cmd = c
		} else if !l.hasNumber() {
			l.skipSeparators()
			if l.pos < len(l.b) {
				return nil, fmt.Errorf("unexpected %q at offset %d", l.b[l.pos], l.pos)
			}
			break
		} else if cmd == 0 {
			return nil, fmt.Errorf("path data must start with a command")
		}

		if !moved && cmd != 'M' && cmd != 'm' {
			return nil, fmt.Errorf("path data must start with a moveto, got %q", cmd)
		}
		moved = true

		rel := cmd >= 'a'
		origin := math3d.Vec2{}
		if rel {
			origin = cur
		}

		switch cmd {
		case 'M', 'm':
			p, err := l.point()
			if err != nil {
				return nil, err
			}
			cur = origin.Add(p)
			start = cur
			sub = nil
			// further pairs are implicit linetos
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L', 'l':
			p, err := l.point()
			if err != nil {
				return nil, err
			}
			addSeg(Segment{Kind: SegLine, From: cur, To: origin.Add(p)})
		case 'H', 'h':
			x, err := l.number()
			if err != nil {
				return nil, err
			}
			to := math3d.V2(origin.X+x, cur.Y)
			addSeg(Segment{Kind: SegLine, From: cur, To: to})
		case 'V', 'v':
			y, err := l.number()
			if err != nil {
				return nil, err
			}
			to := math3d.V2(cur.X, origin.Y+y)
			addSeg(Segment{Kind: SegLine, From: cur, To: to})
		case 'Q', 'q':
			c1, err := l.point()
			if err != nil {
				return nil, err
			}
			to, err := l.point()
			if err != nil {
				return nil, err
			}
			c1 = origin.Add(c1)
			addSeg(Segment{Kind: SegQuad, From: cur, C1: c1, To: origin.Add(to)})
			lastCtrl = c1
		case 'T', 't':
			to, err := l.point()
			if err != nil {
				return nil, err
			}
			c1 := cur
			if lastCmd == 'Q' || lastCmd == 'T' {
				c1 = cur.Scale(2).Sub(lastCtrl)
			}
			addSeg(Segment{Kind: SegQuad, From: cur, C1: c1, To: origin.Add(to)})
			lastCtrl = c1
		case 'C', 'c':
			c1, err := l.point()
			if err != nil {
				return nil, err
			}
			c2, err := l.point()
			if err != nil {
				return nil, err
			}
			to, err := l.point()
			if err != nil {
				return nil, err
			}
			c2 = origin.Add(c2)
			addSeg(Segment{Kind: SegCubic, From: cur, C1: origin.Add(c1), C2: c2, To: origin.Add(to)})
			lastCtrl = c2
		case 'S', 's':
			c2, err := l.point()
			if err != nil {
				return nil, err
			}
			to, err := l.point()
			if err != nil {
				return nil, err
			}
			c1 := cur
			if lastCmd == 'C' || lastCmd == 'S' {
				c1 = cur.Scale(2).Sub(lastCtrl)
			}
			c2 = origin.Add(c2)
			addSeg(Segment{Kind: SegCubic, From: cur, C1: c1, C2: c2, To: origin.Add(to)})
			lastCtrl = c2
		case 'Z', 'z':
			if sub != nil {
				if !cur.ApproxEqual(start, 1e-9) {
					addSeg(Segment{Kind: SegLine, From: cur, To: start})
				}
				sub.Closed = true
			}
			cur = start
			sub = nil
		default:
			return nil, fmt.Errorf("unsupported path command %q", cmd)
		}
		lastCmd = upper(cmd)
	}
	return subs, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// flatten appends the points of seg after its start, using n steps per
// curve.
func (s Segment) flatten(dst []math3d.Vec2, n int) []math3d.Vec2 {
	switch s.Kind {
	case SegQuad:
		for i := 1; i <= n; i++ {
			t := float64(i) / float64(n)
			mt := 1 - t
			dst = append(dst, s.From.Scale(mt*mt).Add(s.C1.Scale(2*mt*t)).Add(s.To.Scale(t*t)))
		}
	case SegCubic:
		for i := 1; i <= n; i++ {
			t := float64(i) / float64(n)
			mt := 1 - t
			p := s.From.Scale(mt * mt * mt).
				Add(s.C1.Scale(3 * mt * mt * t)).
				Add(s.C2.Scale(3 * mt * t * t)).
				Add(s.To.Scale(t * t * t))
			dst = append(dst, p)
		}
	default:
		dst = append(dst, s.To)
	}
	return dst
}
