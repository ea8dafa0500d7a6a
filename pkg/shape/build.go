package shape

import (
	"errors"
	"fmt"
	"io"

	"github.com/taigrr/blobview/pkg/math3d"
	"github.com/taigrr/blobview/pkg/render"
	"github.com/taigrr/blobview/pkg/scene"
)

// PivotName names the node holding the extruded blob.
const PivotName = "svgShape"

// Placement of the extruded blob in the scene.
var (
	PivotPosition = math3d.V3(0, 11, 0)
	GroupScale    = 0.8
	GroupRotation = math3d.V3(1.57, 0, 0)
)

// ErrEmptyShape is returned when no path yields a fillable shape.
var ErrEmptyShape = errors.New("shape: nothing to extrude")

// BuildOptions tune flattening and extrusion.
type BuildOptions struct {
	CurveSegments int
	Extrude       ExtrudeOptions
}

// Build parses an SVG document and returns a pivot named svgShape holding
// one re-centred mesh per shape, all using mat.
func Build(r io.Reader, mat *render.Material, opts BuildOptions) (*scene.Group, error) {
	paths, err := ParseSVG(r)
	if err != nil {
		return nil, err
	}

	group := scene.NewGroup("blob")
	for pi, p := range paths {
		for si, s := range p.Shapes(opts.CurveSegments) {
			name := fmt.Sprintf("blob-%d-%d", pi, si)
			mesh := Extrude(name, s, opts.Extrude)
			if mesh.TriangleCount() == 0 {
				continue
			}
			group.Add(scene.NewMeshNode(name, mesh, mat))
		}
	}
	if len(group.Children()) == 0 {
		return nil, ErrEmptyShape
	}

	Recenter(group)
	group.Scale = math3d.V3(GroupScale, GroupScale, GroupScale)
	group.Rotation = GroupRotation

	pivot := scene.NewGroup(PivotName)
	pivot.Position = PivotPosition
	pivot.Add(group)
	return pivot, nil
}

// Recenter moves every mesh's geometry onto its own origin and shifts the
// node to compensate, after first moving the group's combined bounds onto
// the group origin. The combined bounds end up centred at the origin while
// each mesh can spin about its own centre.
func Recenter(g *scene.Group) {
	combined := math3d.EmptyBox3()
	meshes := scene.Meshes(g)
	for _, m := range meshes {
		combined = combined.Union(m.Mesh.GetBounds().Transform(m.Local()))
	}
	if combined.IsEmpty() {
		return
	}
	shift := combined.Center().Negate()
	for _, m := range meshes {
		m.Mesh.Translate(shift)
	}
	for _, m := range meshes {
		c := m.Mesh.GetBounds().Center()
		m.Mesh.Translate(c.Negate())
		m.Position = c
	}
}
