// Package shape turns SVG path outlines into extruded meshes.
//
// The pipeline mirrors what a browser 3D engine does with vector art:
// parse the document, flatten each path into polygons, sort those into
// filled shapes with holes, then extrude every shape into a closed solid.
package shape

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// ErrNoPaths is returned when a document holds no <path> elements.
var ErrNoPaths = errors.New("svg: no path elements")

// ParseSVG reads every <path d="..."> in an SVG document.
func ParseSVG(r io.Reader) ([]Path, error) {
	l := xml.NewLexer(parse.NewInput(r))

	var (
		paths  []Path
		inPath bool
		cur    Path
		d      string
	)
	flush := func() error {
		if !inPath {
			return nil
		}
		inPath = false
		if strings.TrimSpace(d) == "" {
			return nil
		}
		subs, err := ParsePathData(d)
		if err != nil {
			return fmt.Errorf("svg path %d: %w", len(paths), err)
		}
		cur.Subpaths = subs
		paths = append(paths, cur)
		return nil
	}

	for {
		tt, _ := l.Next()
		switch tt {
		case xml.ErrorToken:
			if err := l.Err(); err != io.EOF {
				return nil, fmt.Errorf("svg: %w", err)
			}
			if err := flush(); err != nil {
				return nil, err
			}
			if len(paths) == 0 {
				return nil, ErrNoPaths
			}
			return paths, nil
		case xml.StartTagToken:
			if err := flush(); err != nil {
				return nil, err
			}
			if localName(l.Text()) == "path" {
				inPath = true
				cur = Path{}
				d = ""
			}
		case xml.AttributeToken:
			if !inPath {
				continue
			}
			val := string(unquote(l.AttrVal()))
			switch string(l.Text()) {
			case "d":
				d = val
			case "fill":
				cur.Fill = val
			case "id":
				cur.ID = val
			}
		case xml.StartTagCloseToken, xml.StartTagCloseVoidToken:
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
}

// localName strips an XML namespace prefix.
func localName(b []byte) string {
	if i := bytes.IndexByte(b, ':'); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}

func unquote(b []byte) []byte {
	if len(b) >= 2 && (b[0] == '"' || b[0] == '\'') && b[len(b)-1] == b[0] {
		return b[1 : len(b)-1]
	}
	return b
}
