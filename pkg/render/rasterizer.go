// Package render is the host engine for the viewer: a z-buffered software
// rasterizer, camera and orbit controls, PBR materials, an HDR environment
// map and a half-block terminal presenter.
package render

import (
	"math"

	"github.com/taigrr/blobview/pkg/math3d"
)

// Vertex represents a vertex with all attributes needed for rasterization.
type Vertex struct {
	Position math3d.Vec3 // World position
	Normal   math3d.Vec3 // Normal vector (for lighting)
	UV       math3d.Vec2 // Texture coordinates
	Color    Color       // Vertex color
}

// Triangle represents a triangle to be rasterized.
type Triangle struct {
	V [3]Vertex
}

// Rasterizer handles software triangle rasterization.
type Rasterizer struct {
	camera       *Camera
	fb           *Framebuffer
	zbuffer      []float64 // Depth buffer (1D array, row-major)
	frustum      Frustum
	frustumDirty bool

	// Env lights the material draw path. Nil falls back to a flat ambient.
	Env *EnvironmentMap
	// LightDir is the key light used for specular highlights.
	LightDir math3d.Vec3

	CullingStats CullingStats
}

// CullingStats tracks frustum culling per frame.
type CullingStats struct {
	MeshesTested int
	MeshesCulled int
	MeshesDrawn  int
}

// NewRasterizer creates a new rasterizer.
func NewRasterizer(camera *Camera, fb *Framebuffer) *Rasterizer {
	r := &Rasterizer{
		camera:       camera,
		fb:           fb,
		frustumDirty: true,
		LightDir:     math3d.V3(0.4, 1, 0.6).Normalize(),
	}
	r.Resize()
	return r
}

// Resize resizes the depth buffer to match the framebuffer.
func (r *Rasterizer) Resize() {
	if r.fb == nil {
		r.zbuffer = nil
		return
	}
	r.zbuffer = make([]float64, r.fb.Width*r.fb.Height)
	r.frustumDirty = true
}

// SetFramebuffer points the rasterizer at a new target, e.g. after a
// terminal resize.
func (r *Rasterizer) SetFramebuffer(fb *Framebuffer) {
	r.fb = fb
	r.Resize()
}

// Width returns the framebuffer width.
func (r *Rasterizer) Width() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Width
}

// Height returns the framebuffer height.
func (r *Rasterizer) Height() int {
	if r.fb == nil {
		return 0
	}
	return r.fb.Height
}

// BeginFrame clears depth and culling stats and marks the frustum stale.
// Call once per frame before drawing.
func (r *Rasterizer) BeginFrame() {
	r.ClearDepth()
	r.CullingStats = CullingStats{}
	r.frustumDirty = true
}

// ClearDepth clears the Z-buffer.
func (r *Rasterizer) ClearDepth() {
	// copy-doubling
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// IsVisible reports whether local bounds under transform touch the view
// frustum.
func (r *Rasterizer) IsVisible(local math3d.Box3, transform math3d.Mat4) bool {
	if r.frustumDirty {
		r.frustum = r.camera.GetFrustum()
		r.frustumDirty = false
	}
	return r.frustum.IntersectAABB(local.Transform(transform))
}

func (r *Rasterizer) getDepth(x, y int) float64 {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return math.MaxFloat64
	}
	return r.zbuffer[y*r.Width()+x]
}

func (r *Rasterizer) setDepth(x, y int, z float64) {
	if x < 0 || x >= r.Width() || y < 0 || y >= r.Height() {
		return
	}
	r.zbuffer[y*r.Width()+x] = z
}

// screenVertex holds a vertex transformed to screen space.
type screenVertex struct {
	X, Y   float64 // Screen coordinates
	Z      float64 // Depth (for Z-buffer)
	W      float64 // Clip w, for perspective-correct interpolation
	Color  Color
	Normal math3d.Vec3
	UV     math3d.Vec2
	World  math3d.Vec3
}

// project maps a world position to screen space. ok is false when the
// point is behind the camera.
func (r *Rasterizer) project(viewProj math3d.Mat4, p math3d.Vec3) (sv screenVertex, ok bool) {
	clip := viewProj.MulVec4(math3d.V4FromV3(p, 1))
	if clip.W != 0 {
		sv.X = clip.X / clip.W
		sv.Y = clip.Y / clip.W
		sv.Z = clip.Z / clip.W
	}
	sv.W = clip.W
	sv.X = (sv.X + 1) * 0.5 * float64(r.Width())
	sv.Y = (1 - sv.Y) * 0.5 * float64(r.Height())
	sv.World = p
	return sv, clip.W > 0
}

// screenBounds clamps the triangle's bounding box to the framebuffer.
func (r *Rasterizer) screenBounds(sv *[3]screenVertex) (minX, maxX, minY, maxY int) {
	minX = int(math.Max(0, math.Floor(min3(sv[0].X, sv[1].X, sv[2].X))))
	maxX = int(math.Min(float64(r.Width()-1), math.Ceil(max3(sv[0].X, sv[1].X, sv[2].X))))
	minY = int(math.Max(0, math.Floor(min3(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY = int(math.Min(float64(r.Height()-1), math.Ceil(max3(sv[0].Y, sv[1].Y, sv[2].Y))))
	return
}

// screenCross is twice the signed screen area. Negative means back-facing.
func screenCross(sv *[3]screenVertex) float64 {
	e1x, e1y := sv[1].X-sv[0].X, sv[1].Y-sv[0].Y
	e2x, e2y := sv[2].X-sv[0].X, sv[2].Y-sv[0].Y
	return e1x*e2y - e1y*e2x
}

// barycentric calculates barycentric coordinates for point (px, py) in triangle.
func barycentric(x0, y0, x1, y1, x2, y2, px, py float64) math3d.Vec3 {
	v0x, v0y := x2-x0, y2-y0
	v1x, v1y := x1-x0, y1-y0
	v2x, v2y := px-x0, py-y0

	dot00 := v0x*v0x + v0y*v0y
	dot01 := v0x*v1x + v0y*v1y
	dot02 := v0x*v2x + v0y*v2y
	dot11 := v1x*v1x + v1y*v1y
	dot12 := v1x*v2x + v1y*v2y

	denom := dot00*dot11 - dot01*dot01
	if denom == 0 {
		return math3d.V3(-1, -1, -1)
	}
	inv := 1 / denom
	u := (dot11*dot02 - dot01*dot12) * inv
	v := (dot00*dot12 - dot01*dot02) * inv
	return math3d.V3(1-u-v, v, u)
}

func interpolateColor3(c0, c1, c2 Color, bc math3d.Vec3) Color {
	return Color{
		R: uint8(float64(c0.R)*bc.X + float64(c1.R)*bc.Y + float64(c2.R)*bc.Z),
		G: uint8(float64(c0.G)*bc.X + float64(c1.G)*bc.Y + float64(c2.G)*bc.Z),
		B: uint8(float64(c0.B)*bc.X + float64(c1.B)*bc.Y + float64(c2.B)*bc.Z),
		A: 255,
	}
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}

func max3(a, b, c float64) float64 {
	return math.Max(a, math.Max(b, c))
}

// DrawTriangleGouraud rasterizes a triangle with per-vertex lighting
// interpolated across its face.
func (r *Rasterizer) DrawTriangleGouraud(tri Triangle, lightDir math3d.Vec3, doubleSided bool) {
	var sv [3]screenVertex
	anyFront := false

	viewProj := r.camera.ViewProjectionMatrix()
	normLight := lightDir.Normalize()

	for i := range 3 {
		var ok bool
		sv[i], ok = r.project(viewProj, tri.V[i].Position)
		anyFront = anyFront || ok

		intensity := math.Max(0, tri.V[i].Normal.Dot(normLight))
		if doubleSided {
			intensity = math.Abs(tri.V[i].Normal.Dot(normLight))
		}
		intensity = 0.3 + 0.7*intensity
		sv[i].Color = MultiplyColor(tri.V[i].Color, intensity)
	}
	if !anyFront {
		return
	}
	if screenCross(&sv) < 0 && !doubleSided {
		return
	}

	minX, maxX, minY, maxY := r.screenBounds(&sv)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			bc := barycentric(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y, sv[2].X, sv[2].Y, px, py)
			if bc.X < 0 || bc.Y < 0 || bc.Z < 0 {
				continue
			}
			z := bc.X*sv[0].Z + bc.Y*sv[1].Z + bc.Z*sv[2].Z
			if z >= r.getDepth(x, y) {
				continue
			}
			r.setDepth(x, y, z)
			r.fb.SetPixel(x, y, interpolateColor3(sv[0].Color, sv[1].Color, sv[2].Color, bc))
		}
	}
}

// MeshRenderer lets the rasterizer draw meshes without importing models.
type MeshRenderer interface {
	VertexCount() int
	TriangleCount() int
	GetVertex(i int) (pos, normal math3d.Vec3, uv math3d.Vec2)
	GetFace(i int) [3]int
}

// BoundedMeshRenderer extends MeshRenderer with bounds for frustum culling.
type BoundedMeshRenderer interface {
	MeshRenderer
	GetBounds() math3d.Box3
}

// tryFrustumCull reports whether the mesh is entirely outside the frustum.
// Meshes without bounds are never culled.
func (r *Rasterizer) tryFrustumCull(mesh MeshRenderer, transform math3d.Mat4) bool {
	bounded, ok := mesh.(BoundedMeshRenderer)
	if !ok {
		return false
	}
	r.CullingStats.MeshesTested++
	if !r.IsVisible(bounded.GetBounds(), transform) {
		r.CullingStats.MeshesCulled++
		return true
	}
	r.CullingStats.MeshesDrawn++
	return false
}

// worldTriangle fetches face i of mesh and moves it to world space.
func worldTriangle(mesh MeshRenderer, i int, transform math3d.Mat4, color Color) Triangle {
	face := mesh.GetFace(i)
	var tri Triangle
	for k := range 3 {
		p, n, uv := mesh.GetVertex(face[k])
		tri.V[k] = Vertex{
			Position: transform.MulVec3(p),
			Normal:   transform.MulVec3Dir(n).Normalize(),
			UV:       uv,
			Color:    color,
		}
	}
	return tri
}

// DrawMeshGouraud renders a mesh with a flat colour and Gouraud lighting.
func (r *Rasterizer) DrawMeshGouraud(mesh MeshRenderer, transform math3d.Mat4, color Color, lightDir math3d.Vec3) {
	if r.tryFrustumCull(mesh, transform) {
		return
	}
	for i := 0; i < mesh.TriangleCount(); i++ {
		r.DrawTriangleGouraud(worldTriangle(mesh, i, transform, color), lightDir, false)
	}
}

// DrawMeshWireframe renders a mesh as wireframe.
func (r *Rasterizer) DrawMeshWireframe(mesh MeshRenderer, transform math3d.Mat4, color Color) {
	if r.tryFrustumCull(mesh, transform) {
		return
	}
	for i := 0; i < mesh.TriangleCount(); i++ {
		face := mesh.GetFace(i)
		p0, _, _ := mesh.GetVertex(face[0])
		p1, _, _ := mesh.GetVertex(face[1])
		p2, _, _ := mesh.GetVertex(face[2])

		v0 := transform.MulVec3(p0)
		v1 := transform.MulVec3(p1)
		v2 := transform.MulVec3(p2)

		r.drawLine3D(v0, v1, color)
		r.drawLine3D(v1, v2, color)
		r.drawLine3D(v2, v0, color)
	}
}

// drawLine3D draws a projected 3D line with no depth test.
func (r *Rasterizer) drawLine3D(a, b math3d.Vec3, color Color) {
	viewProj := r.camera.ViewProjectionMatrix()
	sa, okA := r.project(viewProj, a)
	sb, okB := r.project(viewProj, b)
	if !okA && !okB {
		return
	}
	r.fb.DrawLine(int(sa.X), int(sa.Y), int(sb.X), int(sb.Y), color)
}
