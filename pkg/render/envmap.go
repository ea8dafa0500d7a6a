package render

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"

	"github.com/taigrr/blobview/pkg/math3d"
)

// DefaultExposure is the tone mapping exposure the viewer renders with.
const DefaultExposure = 0.8

// Irradiance is precomputed on a coarse equirectangular grid of normals.
const (
	irradianceW = 32
	irradianceH = 16
)

// EnvironmentMap is an equirectangular HDR image lighting the scene. It
// answers radiance lookups for reflections and diffuse irradiance lookups
// for ambient light.
type EnvironmentMap struct {
	Width, Height int
	Radiance      []math3d.Vec3 // linear, row-major, row 0 is the zenith
	Exposure      float64

	irradiance [irradianceW * irradianceH]math3d.Vec3
	mean       math3d.Vec3
}

// LoadEnvironmentMap reads a Radiance .hdr file.
func LoadEnvironmentMap(path string) (*EnvironmentMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open environment map: %w", err)
	}
	defer f.Close()
	env, err := DecodeEnvironmentMap(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

// DecodeEnvironmentMap decodes RGBE data into an environment map.
func DecodeEnvironmentMap(r io.Reader) (*EnvironmentMap, error) {
	img, err := rgbe.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode rgbe: %w", err)
	}
	himg, ok := img.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("decode rgbe: %T is not an HDR image", img)
	}
	b := himg.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]math3d.Vec3, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := himg.HDRAt(x, y).HDRRGBA()
			pix = append(pix, math3d.V3(cr, cg, cb))
		}
	}
	return NewEnvironmentMap(w, h, pix), nil
}

// NewEnvironmentMap builds an environment from linear radiance samples and
// precomputes its irradiance table.
func NewEnvironmentMap(width, height int, radiance []math3d.Vec3) *EnvironmentMap {
	e := &EnvironmentMap{Width: width, Height: height, Radiance: radiance, Exposure: DefaultExposure}
	e.precompute()
	return e
}

// NewUniformEnvironment returns an environment radiating c from every
// direction.
func NewUniformEnvironment(c math3d.Vec3) *EnvironmentMap {
	return NewEnvironmentMap(1, 1, []math3d.Vec3{c})
}

// directionToUV maps a unit direction to equirectangular coordinates with
// u around the horizon and v from the nadir (0) to the zenith (1).
func directionToUV(d math3d.Vec3) (u, v float64) {
	u = math.Atan2(d.Z, d.X)/(2*math.Pi) + 0.5
	v = math.Asin(clamp(d.Y, -1, 1))/math.Pi + 0.5
	return u, v
}

// uvToDirection is the inverse of directionToUV.
func uvToDirection(u, v float64) math3d.Vec3 {
	phi := (u - 0.5) * 2 * math.Pi
	lat := (v - 0.5) * math.Pi
	return math3d.V3(math.Cos(lat)*math.Cos(phi), math.Sin(lat), math.Cos(lat)*math.Sin(phi))
}

// RadianceAt returns the radiance seen along direction d.
func (e *EnvironmentMap) RadianceAt(d math3d.Vec3) math3d.Vec3 {
	if e.Width == 0 || e.Height == 0 {
		return math3d.Vec3{}
	}
	u, v := directionToUV(d.Normalize())
	x := min(int(u*float64(e.Width)), e.Width-1)
	y := min(int((1-v)*float64(e.Height)), e.Height-1)
	return e.Radiance[y*e.Width+x]
}

// Irradiance returns the cosine-weighted incoming light for a surface with
// normal n, divided by pi so a uniform environment of L yields L.
func (e *EnvironmentMap) Irradiance(n math3d.Vec3) math3d.Vec3 {
	u, v := directionToUV(n.Normalize())
	x := min(int(u*irradianceW), irradianceW-1)
	y := min(int((1-v)*irradianceH), irradianceH-1)
	return e.irradiance[y*irradianceW+x]
}

// Background returns the tone mapped mean radiance, used to clear the
// framebuffer.
func (e *EnvironmentMap) Background() Color {
	return ToneMapACES(e.mean, e.Exposure)
}

// precompute downsamples the radiance onto the irradiance grid and
// convolves it with a clamped cosine lobe per output normal.
func (e *EnvironmentMap) precompute() {
	var cells [irradianceW * irradianceH]math3d.Vec3
	var counts [irradianceW * irradianceH]int
	var sum math3d.Vec3
	for y := 0; y < e.Height; y++ {
		cy := min(y*irradianceH/max(e.Height, 1), irradianceH-1)
		for x := 0; x < e.Width; x++ {
			cx := min(x*irradianceW/max(e.Width, 1), irradianceW-1)
			c := e.Radiance[y*e.Width+x]
			cells[cy*irradianceW+cx] = cells[cy*irradianceW+cx].Add(c)
			counts[cy*irradianceW+cx]++
			sum = sum.Add(c)
		}
	}
	if n := e.Width * e.Height; n > 0 {
		e.mean = sum.Scale(1 / float64(n))
	}
	// cells the source image was too small to reach take the mean
	for i := range cells {
		if counts[i] == 0 {
			cells[i] = e.mean
		} else {
			cells[i] = cells[i].Scale(1 / float64(counts[i]))
		}
	}

	var dirs [irradianceW * irradianceH]math3d.Vec3
	var solid [irradianceW * irradianceH]float64
	dPhi := 2 * math.Pi / irradianceW
	dLat := math.Pi / irradianceH
	for y := range irradianceH {
		v := 1 - (float64(y)+0.5)/irradianceH
		for x := range irradianceW {
			u := (float64(x) + 0.5) / irradianceW
			d := uvToDirection(u, v)
			dirs[y*irradianceW+x] = d
			solid[y*irradianceW+x] = dPhi * dLat * math.Cos((v-0.5)*math.Pi)
		}
	}

	for i, n := range dirs {
		var acc math3d.Vec3
		for j, d := range dirs {
			cos := n.Dot(d)
			if cos <= 0 {
				continue
			}
			acc = acc.Add(cells[j].Scale(cos * solid[j]))
		}
		e.irradiance[i] = acc.Scale(1 / math.Pi)
	}
}

// ToneMapACES maps linear HDR colour to 8-bit sRGB with the ACES filmic
// curve.
func ToneMapACES(c math3d.Vec3, exposure float64) Color {
	c = c.Scale(exposure / 0.6)
	// sRGB -> ACEScg-ish input transform
	in := math3d.V3(
		0.59719*c.X+0.35458*c.Y+0.04823*c.Z,
		0.07600*c.X+0.90834*c.Y+0.01566*c.Z,
		0.02840*c.X+0.13383*c.Y+0.83777*c.Z,
	)
	in = math3d.V3(rrtAndODT(in.X), rrtAndODT(in.Y), rrtAndODT(in.Z))
	out := math3d.V3(
		1.60475*in.X-0.53108*in.Y-0.07367*in.Z,
		-0.10208*in.X+1.10813*in.Y-0.00605*in.Z,
		-0.00327*in.X-0.07276*in.Y+1.07602*in.Z,
	)
	return RGB(linearToSRGB(out.X), linearToSRGB(out.Y), linearToSRGB(out.Z))
}

func rrtAndODT(v float64) float64 {
	a := v*(v+0.0245786) - 0.000090537
	b := v*(0.983729*v+0.4329510) + 0.238081
	return a / b
}

func linearToSRGB(v float64) uint8 {
	v = clamp(v, 0, 1)
	if v <= 0.0031308 {
		v *= 12.92
	} else {
		v = 1.055*math.Pow(v, 1/2.4) - 0.055
	}
	return uint8(math.Round(v * 255))
}
