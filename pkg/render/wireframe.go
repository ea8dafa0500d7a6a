package render

import (
	"github.com/taigrr/blobview/pkg/math3d"
)

// box edges as corner index pairs; corner bit 0 is x, bit 1 is y, bit 2 is z
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawBox outlines local bounds under transform.
func (r *Rasterizer) DrawBox(box math3d.Box3, transform math3d.Mat4, color Color) {
	if box.IsEmpty() {
		return
	}
	var corners [8]math3d.Vec3
	for i := range corners {
		p := box.Min
		if i&1 != 0 {
			p.X = box.Max.X
		}
		if i&2 != 0 {
			p.Y = box.Max.Y
		}
		if i&4 != 0 {
			p.Z = box.Max.Z
		}
		corners[i] = transform.MulVec3(p)
	}
	for _, e := range boxEdges {
		r.drawLine3D(corners[e[0]], corners[e[1]], color)
	}
}

// DrawAxes draws the coordinate axes at the origin.
func (r *Rasterizer) DrawAxes(length float64) {
	origin := math3d.Zero3()
	r.drawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	r.drawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	r.drawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a grid on the XZ plane at height y.
func (r *Rasterizer) DrawGrid(size, step, y float64, color Color) {
	if step <= 0 {
		return
	}
	half := size / 2
	for x := -half; x <= half; x += step {
		r.drawLine3D(math3d.V3(x, y, -half), math3d.V3(x, y, half), color)
	}
	for z := -half; z <= half; z += step {
		r.drawLine3D(math3d.V3(-half, y, z), math3d.V3(half, y, z), color)
	}
}
