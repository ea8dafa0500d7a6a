package render

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/blobview/pkg/math3d"
)

func TestMaterialPrepareAndDispose(t *testing.T) {
	mat := NewMaterial("stone", RGB(128, 128, 128))
	assert.False(t, mat.Prepared())

	s := mat.prepare()
	require.NotNil(t, s)
	assert.True(t, mat.Prepared())
	assert.Same(t, s, mat.prepare(), "prepared cache is reused")
	assert.Equal(t, 1, mat.Prepares())

	mat.Dispose()
	assert.False(t, mat.Prepared())
	assert.Equal(t, 1, mat.Disposals())

	// still usable after dispose
	mat.prepare()
	assert.Equal(t, 2, mat.Prepares())
	assert.True(t, mat.Prepared())
}

func TestMaterialRepeat(t *testing.T) {
	tex := NewTexture(2, 1)
	tex.SetPixel(0, 0, ColorRed)
	tex.SetPixel(1, 0, ColorBlue)

	mat := NewMaterial("tiles", ColorWhite)
	mat.ColorMap = tex
	mat.Repeat = 2
	s := mat.prepare()

	assert.InDelta(t, 1.0, s.sample(0.1, 0.5).albedo.X, 1e-9)
	assert.InDelta(t, 1.0, s.sample(0.3, 0.5).albedo.Z, 1e-9)
	assert.InDelta(t, 1.0, s.sample(0.6, 0.5).albedo.X, 1e-9, "second tile starts over")
}

func TestMaterialMaps(t *testing.T) {
	rough := NewTexture(1, 1)
	rough.SetPixel(0, 0, RGB(0, 51, 0))
	ao := NewTexture(1, 1)
	ao.SetPixel(0, 0, RGB(128, 0, 0))
	normal := NewTexture(1, 1)
	normal.SetPixel(0, 0, RGB(128, 128, 255))

	mat := NewMaterial("mapped", ColorWhite)
	mat.RoughnessMap = rough
	mat.AOMap = ao
	mat.NormalMap = normal
	tx := mat.prepare().sample(0.5, 0.5)

	assert.InDelta(t, 0.2, tx.roughness, 1e-9)
	assert.InDelta(t, 128.0/255, tx.ao, 1e-9)
	assert.True(t, tx.normal.ApproxEqual(math3d.V3(0, 0, 1), 0.01), "flat normal map, got %v", tx.normal)
}

func TestDrawMeshMaterial(t *testing.T) {
	r, fb := createTestRasterizer(80, 80)
	r.Env = NewUniformEnvironment(math3d.V3(1, 1, 1))
	r.BeginFrame()
	fb.Clear(ColorBlack)

	mat := NewMaterial("plain", RGB(200, 180, 160))
	r.DrawMeshMaterial(quadMesh(), math3d.Identity(), mat)

	assert.Positive(t, countLit(fb))
	assert.True(t, mat.Prepared(), "drawing prepares the material")
}

func TestDrawMeshMaterialBackFace(t *testing.T) {
	mesh := quadMesh()
	for i := range mesh.faces {
		f := mesh.faces[i]
		mesh.faces[i] = [3]int{f[0], f[2], f[1]}
	}

	r, fb := createTestRasterizer(80, 80)
	fb.Clear(ColorBlack)
	mat := NewMaterial("single", ColorWhite)
	mat.DoubleSided = false
	r.DrawMeshMaterial(mesh, math3d.Identity(), mat)
	assert.Zero(t, countLit(fb))

	mat.DoubleSided = true
	r.DrawMeshMaterial(mesh, math3d.Identity(), mat)
	assert.Positive(t, countLit(fb))
}

func TestDrawMeshMaterialNilFallsBack(t *testing.T) {
	r, fb := createTestRasterizer(80, 80)
	fb.Clear(ColorBlack)
	r.DrawMeshMaterial(quadMesh(), math3d.Identity(), nil)
	assert.Positive(t, countLit(fb))
}

func TestUniformEnvironment(t *testing.T) {
	env := NewUniformEnvironment(math3d.V3(0.5, 1, 2))

	for _, n := range []math3d.Vec3{
		math3d.V3(0, 1, 0), math3d.V3(0, -1, 0), math3d.V3(1, 0, 0), math3d.V3(0.3, 0.2, -0.9),
	} {
		irr := env.Irradiance(n)
		assert.InEpsilon(t, 0.5, irr.X, 0.1, "normal %v", n)
		assert.InEpsilon(t, 1.0, irr.Y, 0.1, "normal %v", n)
		assert.InEpsilon(t, 2.0, irr.Z, 0.1, "normal %v", n)
	}
	assert.Equal(t, math3d.V3(0.5, 1, 2), env.RadianceAt(math3d.V3(0, 0, 1)))
	assert.Equal(t, ToneMapACES(math3d.V3(0.5, 1, 2), DefaultExposure), env.Background())
}

func TestEnvironmentRadianceLookup(t *testing.T) {
	left, right := math3d.V3(1, 0, 0), math3d.V3(0, 0, 1)
	env := NewEnvironmentMap(2, 1, []math3d.Vec3{left, right})

	assert.Equal(t, left, env.RadianceAt(math3d.V3(0, 0, -1)))
	assert.Equal(t, right, env.RadianceAt(math3d.V3(0, 0, 1)))
}

func TestEquirectRoundTrip(t *testing.T) {
	for _, d := range []math3d.Vec3{
		math3d.V3(1, 0, 0), math3d.V3(0, 0.5, 0.5).Normalize(), math3d.V3(-0.2, -0.7, 0.4).Normalize(),
	} {
		u, v := directionToUV(d)
		assert.True(t, uvToDirection(u, v).ApproxEqual(d, 1e-9), "round trip of %v", d)
	}
}

func TestToneMapACES(t *testing.T) {
	assert.Equal(t, RGB(0, 0, 0), ToneMapACES(math3d.Vec3{}, DefaultExposure))
	assert.Equal(t, RGB(255, 255, 255), ToneMapACES(math3d.V3(1000, 1000, 1000), DefaultExposure))

	dim := ToneMapACES(math3d.V3(0.2, 0.2, 0.2), DefaultExposure)
	bright := ToneMapACES(math3d.V3(0.8, 0.8, 0.8), DefaultExposure)
	assert.Less(t, dim.R, bright.R)
}

func TestLoadShippedEnvironmentMap(t *testing.T) {
	env, err := LoadEnvironmentMap(filepath.Join("..", "..", "assets", "hdr", "studio.hdr"))
	require.NoError(t, err)
	assert.Equal(t, 128, env.Width)
	assert.Equal(t, 64, env.Height)
	assert.Len(t, env.Radiance, env.Width*env.Height)

	up := env.Irradiance(math3d.V3(0, 1, 0))
	down := env.Irradiance(math3d.V3(0, -1, 0))
	assert.Greater(t, up.X+up.Y+up.Z, down.X+down.Y+down.Z, "the floor is darker than the ceiling")
}

func TestDecodeEnvironmentMapRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvironmentMap(strings.NewReader("not an hdr file"))
	require.Error(t, err)
}
