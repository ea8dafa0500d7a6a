package render

import (
	"math"

	"github.com/taigrr/blobview/pkg/math3d"
)

// Fallback lighting when no environment map is set.
const (
	flatAmbient  = 0.6
	keyIntensity = 1.0
)

// edgeCoeffs returns A, B, C for the edge function A*x + B*y + C of the
// edge (x0,y0)->(x1,y1). Positive is left of the edge.
func edgeCoeffs(x0, y0, x1, y1 float64) (A, B, C float64) {
	A = y0 - y1
	B = x1 - x0
	C = x0*y1 - x1*y0
	return
}

func edgeFunc(A, B, C, x, y float64) float64 {
	return A*x + B*y + C
}

// tangentFrame derives the world tangent and bitangent of a triangle from
// its UV layout.
func tangentFrame(tri Triangle) (t, b math3d.Vec3) {
	e1 := tri.V[1].Position.Sub(tri.V[0].Position)
	e2 := tri.V[2].Position.Sub(tri.V[0].Position)
	d1 := tri.V[1].UV.Sub(tri.V[0].UV)
	d2 := tri.V[2].UV.Sub(tri.V[0].UV)
	det := d1.X*d2.Y - d2.X*d1.Y
	if math.Abs(det) < 1e-12 {
		// degenerate UVs: any frame around the face normal will do
		n := e2.Cross(e1).Normalize()
		t = math3d.V3(1, 0, 0)
		if math.Abs(n.X) > 0.9 {
			t = math3d.V3(0, 1, 0)
		}
		t = t.Sub(n.Scale(n.Dot(t))).Normalize()
		return t, n.Cross(t)
	}
	inv := 1 / det
	t = e1.Scale(d2.Y).Sub(e2.Scale(d1.Y)).Scale(inv)
	b = e2.Scale(d1.X).Sub(e1.Scale(d2.X)).Scale(inv)
	return t, b
}

// DrawMeshMaterial renders a mesh with a PBR material lit by the
// rasterizer's environment map. The material's sampling cache is prepared
// on demand.
func (r *Rasterizer) DrawMeshMaterial(mesh MeshRenderer, transform math3d.Mat4, mat *Material) {
	if mat == nil {
		r.DrawMeshGouraud(mesh, transform, ColorGray, r.LightDir)
		return
	}
	if r.tryFrustumCull(mesh, transform) {
		return
	}
	surf := mat.prepare()
	for i := 0; i < mesh.TriangleCount(); i++ {
		tri := worldTriangle(mesh, i, transform, ColorWhite)
		t, b := tangentFrame(tri)
		r.drawTriangleMaterial(tri, surf, mat.DoubleSided, t, b)
	}
}

func (r *Rasterizer) drawTriangleMaterial(tri Triangle, surf *surface, doubleSided bool, tangent, bitangent math3d.Vec3) {
	var sv [3]screenVertex
	anyFront := false
	viewProj := r.camera.ViewProjectionMatrix()
	for i := range 3 {
		var ok bool
		sv[i], ok = r.project(viewProj, tri.V[i].Position)
		anyFront = anyFront || ok
		sv[i].Normal = tri.V[i].Normal
		sv[i].UV = tri.V[i].UV
	}
	if !anyFront {
		return
	}

	cross := screenCross(&sv)
	backFacing := false
	if cross < 0 {
		if !doubleSided {
			return
		}
		sv[1], sv[2] = sv[2], sv[1]
		cross = -cross
		backFacing = true
	}
	if cross == 0 {
		return
	}

	minX, maxX, minY, maxY := r.screenBounds(&sv)
	if minX > maxX || minY > maxY {
		return
	}

	// Edge 0: v1 -> v2, Edge 1: v2 -> v0, Edge 2: v0 -> v1
	A0, B0, C0 := edgeCoeffs(sv[1].X, sv[1].Y, sv[2].X, sv[2].Y)
	A1, B1, C1 := edgeCoeffs(sv[2].X, sv[2].Y, sv[0].X, sv[0].Y)
	A2, B2, C2 := edgeCoeffs(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y)
	invArea := 1 / cross

	var invW [3]float64
	for i := range 3 {
		if sv[i].W != 0 {
			invW[i] = 1 / sv[i].W
		}
	}

	px := float64(minX) + 0.5
	py := float64(minY) + 0.5
	w0Row := edgeFunc(A0, B0, C0, px, py)
	w1Row := edgeFunc(A1, B1, C1, px, py)
	w2Row := edgeFunc(A2, B2, C2, px, py)

	width := r.Width()
	for y := minY; y <= maxY; y++ {
		w0, w1, w2 := w0Row, w1Row, w2Row
		row := y * width
		for x := minX; x <= maxX; x++ {
			if w0 >= 0 && w1 >= 0 && w2 >= 0 {
				b0, b1, b2 := w0*invArea, w1*invArea, w2*invArea
				z := b0*sv[0].Z + b1*sv[1].Z + b2*sv[2].Z
				idx := row + x
				if z < r.zbuffer[idx] {
					p0, p1, p2 := b0*invW[0], b1*invW[1], b2*invW[2]
					if sum := p0 + p1 + p2; sum != 0 {
						p0, p1, p2 = p0/sum, p1/sum, p2/sum
						world := sv[0].World.Scale(p0).Add(sv[1].World.Scale(p1)).Add(sv[2].World.Scale(p2))
						n := sv[0].Normal.Scale(p0).Add(sv[1].Normal.Scale(p1)).Add(sv[2].Normal.Scale(p2)).Normalize()
						u := p0*sv[0].UV.X + p1*sv[1].UV.X + p2*sv[2].UV.X
						v := p0*sv[0].UV.Y + p1*sv[1].UV.Y + p2*sv[2].UV.Y
						if backFacing {
							n = n.Negate()
						}
						tx := surf.sample(u, v)
						n = perturbNormal(n, tangent, bitangent, tx.normal)
						r.zbuffer[idx] = z
						r.fb.SetPixel(x, y, r.shade(world, n, tx))
					}
				}
			}
			w0 += A0
			w1 += A1
			w2 += A2
		}
		w0Row += B0
		w1Row += B1
		w2Row += B2
	}
}

// perturbNormal applies a tangent-space normal to the geometric normal n.
func perturbNormal(n, tangent, bitangent, ts math3d.Vec3) math3d.Vec3 {
	t := tangent.Sub(n.Scale(n.Dot(tangent)))
	if t.IsZero(1e-9) {
		return n
	}
	t = t.Normalize()
	b := n.Cross(t)
	if b.Dot(bitangent) < 0 {
		b = b.Negate()
	}
	return t.Scale(ts.X).Add(b.Scale(ts.Y)).Add(n.Scale(ts.Z)).Normalize()
}

// shade evaluates a non-metallic PBR-style surface at a world point:
// image-based diffuse ambient scaled by occlusion, a key light, and a
// roughness-weighted specular term from the key light and the environment.
func (r *Rasterizer) shade(world, n math3d.Vec3, tx texel) Color {
	view := r.camera.Position.Sub(world).Normalize()
	light := r.LightDir.Normalize()
	gloss := (1 - clamp(tx.roughness, 0, 1))
	gloss *= gloss

	exposure := DefaultExposure
	ambient := math3d.V3(flatAmbient, flatAmbient, flatAmbient)
	if r.Env != nil {
		exposure = r.Env.Exposure
		ambient = r.Env.Irradiance(n)
	}

	col := ambient.Mul(tx.albedo).Scale(tx.ao)
	ndl := math.Max(0, n.Dot(light))
	col = col.Add(tx.albedo.Scale(ndl * keyIntensity))

	ndv := math.Max(0, n.Dot(view))
	fresnel := 0.04 + 0.96*math.Pow(1-ndv, 5)
	if ndl > 0 && gloss > 0 {
		h := light.Add(view).Normalize()
		shininess := 2 + 254*gloss
		spec := math.Pow(math.Max(0, n.Dot(h)), shininess) * gloss * keyIntensity
		col = col.Add(math3d.V3(spec, spec, spec))
	}
	if r.Env != nil && gloss > 0 {
		refl := n.Scale(2 * n.Dot(view)).Sub(view)
		col = col.Add(r.Env.RadianceAt(refl).Scale(fresnel * gloss * tx.ao))
	}
	return ToneMapACES(col, exposure)
}
