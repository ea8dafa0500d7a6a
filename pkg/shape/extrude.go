package shape

import (
	"github.com/taigrr/blobview/pkg/math3d"
	"github.com/taigrr/blobview/pkg/models"
)

// ExtrudeOptions control extrusion. Zero values fall back to the
// defaults: depth 1, one step.
type ExtrudeOptions struct {
	Depth float64
	Steps int
}

func (o ExtrudeOptions) withDefaults() ExtrudeOptions {
	if o.Depth <= 0 {
		o.Depth = 1
	}
	if o.Steps <= 0 {
		o.Steps = 1
	}
	return o
}

// Extrude sweeps a shape along +Z into a closed solid: a cap at z=0
// facing -Z, a cap at z=depth facing +Z and side walls around the outer
// ring and every hole. Faces wind clockwise seen from outside and carry
// flat normals. Caps map UVs from x,y; walls from distance along the ring
// and z.
func Extrude(name string, s Shape, opts ExtrudeOptions) *models.Mesh {
	opts = opts.withDefaults()
	mesh := models.NewMesh(name)

	verts, tris := Triangulate(s)
	addCap(mesh, verts, tris, 0, math3d.V3(0, 0, -1), false)
	addCap(mesh, verts, tris, opts.Depth, math3d.V3(0, 0, 1), true)

	outer := s.Outer
	if outer.Area() < 0 {
		outer = outer.Reversed()
	}
	addWalls(mesh, outer, opts)
	for _, h := range s.Holes {
		if h.Area() > 0 {
			h = h.Reversed()
		}
		addWalls(mesh, h, opts)
	}

	mesh.CalculateBounds()
	return mesh
}

// addCap emits one cap. Counter-clockwise triangles face -Z under the
// clockwise-front convention, so the +Z cap flips them.
func addCap(mesh *models.Mesh, verts []math3d.Vec2, tris [][3]int, z float64, normal math3d.Vec3, flip bool) {
	base := mesh.VertexCount()
	for _, v := range verts {
		mesh.AddVertex(math3d.V3(v.X, v.Y, z), normal, v)
	}
	for _, t := range tris {
		if flip {
			mesh.AddFace(base+t[0], base+t[2], base+t[1])
		} else {
			mesh.AddFace(base+t[0], base+t[1], base+t[2])
		}
	}
}

// addWalls emits the side quads of one ring. Counter-clockwise rings get
// outward walls, clockwise hole rings walls facing into the hole.
func addWalls(mesh *models.Mesh, ring Polygon, opts ExtrudeOptions) {
	n := len(ring)
	var dist float64
	for i := range n {
		p0, p1 := ring[i], ring[(i+1)%n]
		edge := p1.Sub(p0)
		length := edge.Len()
		if length == 0 {
			continue
		}
		normal := math3d.V3(edge.Y, -edge.X, 0).Normalize()
		for s := range opts.Steps {
			z0 := opts.Depth * float64(s) / float64(opts.Steps)
			z1 := opts.Depth * float64(s+1) / float64(opts.Steps)
			a := mesh.AddVertex(math3d.V3(p0.X, p0.Y, z0), normal, math3d.V2(dist, z0))
			b := mesh.AddVertex(math3d.V3(p1.X, p1.Y, z0), normal, math3d.V2(dist+length, z0))
			c := mesh.AddVertex(math3d.V3(p1.X, p1.Y, z1), normal, math3d.V2(dist+length, z1))
			d := mesh.AddVertex(math3d.V3(p0.X, p0.Y, z1), normal, math3d.V2(dist, z1))
			mesh.AddFace(a, c, b)
			mesh.AddFace(a, d, c)
		}
		dist += length
	}
}
