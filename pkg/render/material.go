package render

import (
	"math"

	"github.com/taigrr/blobview/pkg/math3d"
)

// maxSurfaceSize caps the prepared surface resolution on either axis.
const maxSurfaceSize = 256

// Material is a physically based surface: a colour map modulated by
// ambient occlusion, a tangent-space normal map and a roughness map.
// Nil maps fall back to BaseColor, a flat normal, Roughness and no
// occlusion respectively.
//
// A Material is not safe for concurrent use.
type Material struct {
	Name         string
	ColorMap     *Texture
	NormalMap    *Texture
	RoughnessMap *Texture
	AOMap        *Texture

	BaseColor Color
	Roughness float64
	// Repeat tiles every map this many times across the UV square.
	Repeat      float64
	DoubleSided bool

	surface   *surface
	prepares  int
	disposals int
}

// texel is one prepared sample: linear albedo, tangent-space normal,
// roughness and occlusion.
type texel struct {
	albedo    math3d.Vec3
	normal    math3d.Vec3
	roughness float64
	ao        float64
}

// surface is the prepared sampling cache a Material draws from. It is
// built on first use and freed by Dispose.
type surface struct {
	width, height int
	texels        []texel
	repeat        float64
}

// NewMaterial returns a untextured material with the given base colour.
func NewMaterial(name string, base Color) *Material {
	return &Material{
		Name:        name,
		BaseColor:   base,
		Roughness:   1,
		Repeat:      1,
		DoubleSided: true,
	}
}

// Prepared reports whether the sampling cache is currently built.
func (m *Material) Prepared() bool { return m.surface != nil }

// Prepares returns how many times the sampling cache has been built.
func (m *Material) Prepares() int { return m.prepares }

// Disposals returns how many times Dispose has been called.
func (m *Material) Disposals() int { return m.disposals }

// Dispose frees the sampling cache. The material stays usable and is
// prepared again on its next draw.
func (m *Material) Dispose() {
	m.surface = nil
	m.disposals++
}

// prepare builds the sampling cache if needed.
func (m *Material) prepare() *surface {
	if m.surface != nil {
		return m.surface
	}
	w, h := 1, 1
	for _, t := range []*Texture{m.ColorMap, m.NormalMap, m.RoughnessMap, m.AOMap} {
		if t != nil {
			w = max(w, min(t.Width, maxSurfaceSize))
			h = max(h, min(t.Height, maxSurfaceSize))
		}
	}
	repeat := m.Repeat
	if repeat <= 0 {
		repeat = 1
	}
	s := &surface{width: w, height: h, texels: make([]texel, w*h), repeat: repeat}
	base := srgbToLinear(m.BaseColor)
	for y := range h {
		for x := range w {
			u := (float64(x) + 0.5) / float64(w)
			v := 1 - (float64(y)+0.5)/float64(h)
			tx := texel{albedo: base, normal: math3d.V3(0, 0, 1), roughness: m.Roughness, ao: 1}
			if m.ColorMap != nil {
				tx.albedo = srgbToLinear(m.ColorMap.Sample(u, v))
			}
			if m.NormalMap != nil {
				c := m.NormalMap.Sample(u, v)
				tx.normal = math3d.V3(
					float64(c.R)/127.5-1,
					float64(c.G)/127.5-1,
					float64(c.B)/127.5-1,
				).Normalize()
			}
			if m.RoughnessMap != nil {
				// roughness lives in the green channel
				tx.roughness = m.Roughness * float64(m.RoughnessMap.Sample(u, v).G) / 255
			}
			if m.AOMap != nil {
				tx.ao = float64(m.AOMap.Sample(u, v).R) / 255
			}
			s.texels[y*w+x] = tx
		}
	}
	m.surface = s
	m.prepares++
	return s
}

// sample returns the nearest prepared texel for uv, tiled by repeat.
func (s *surface) sample(u, v float64) texel {
	u *= s.repeat
	v *= s.repeat
	u -= math.Floor(u)
	v -= math.Floor(v)
	// uv origin is bottom-left, texel rows run top-down
	x := min(int(u*float64(s.width)), s.width-1)
	y := min(int((1-v)*float64(s.height)), s.height-1)
	return s.texels[y*s.width+x]
}

// srgbToLinear decodes an 8-bit sRGB colour.
func srgbToLinear(c Color) math3d.Vec3 {
	return math3d.V3(srgbChannel(c.R), srgbChannel(c.G), srgbChannel(c.B))
}

func srgbChannel(v uint8) float64 {
	f := float64(v) / 255
	if f <= 0.04045 {
		return f / 12.92
	}
	return math.Pow((f+0.055)/1.055, 2.4)
}
