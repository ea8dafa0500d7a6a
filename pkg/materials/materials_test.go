package materials

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/blobview/pkg/math3d"
	"github.com/taigrr/blobview/pkg/models"
	"github.com/taigrr/blobview/pkg/render"
	"github.com/taigrr/blobview/pkg/scene"
)

const sampleJSON = `{
  "material": [
    {"id": "Wood_Herringbone_Tiles_003_SD", "name": "Herringbone",
     "colormap": "wood/color.png", "normalmap": "wood/normal.png",
     "roughnessmap": "wood/rough.png", "ambientmap": "wood/ao.png", "repeat": 2},
    {"id": "Metal_Plate", "name": "Metal plate", "colormap": "metal/color.png"},
    {"id": "Plain"}
  ]
}`

func fakeLoader(missing ...string) (Loader, *atomic.Int32) {
	var calls atomic.Int32
	gone := make(map[string]bool, len(missing))
	for _, m := range missing {
		gone[m] = true
	}
	return LoaderFunc(func(_ context.Context, path string) (*render.Texture, error) {
		calls.Add(1)
		if gone[path] {
			return nil, os.ErrNotExist
		}
		return render.NewTexture(4, 4), nil
	}), &calls
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	require.Len(t, m.Material, 3)
	assert.Equal(t, 2.0, m.Material[0].RepeatFactor())
	assert.Equal(t, 1.0, m.Material[1].RepeatFactor())
	assert.Equal(t, "Plain", m.Material[2].Label())

	yml := `
material:
  - id: a
    colormap: a.png
    repeat: 3
  - id: b
`
	m, err = ParseManifest([]byte(yml), FormatYAML)
	require.NoError(t, err)
	require.Len(t, m.Material, 2)
	assert.Equal(t, 3.0, m.Material[0].RepeatFactor())
}

func TestParseManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", `{"material": []}`},
		{"missing id", `{"material": [{"name": "x"}]}`},
		{"blank id", `{"material": [{"id": "  "}]}`},
		{"duplicate id", `{"material": [{"id": "a"}, {"id": "a"}]}`},
		{"zero repeat", `{"material": [{"id": "a", "repeat": 0}]}`},
		{"negative repeat", `{"material": [{"id": "a", "repeat": -1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.data), FormatJSON)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}

	_, err := ParseManifest([]byte(`{"material": [`), FormatJSON)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidManifest)

	_, err = ParseManifest(nil, FormatYAML)
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestParseManifestUnknownFields(t *testing.T) {
	_, err := ParseManifest([]byte(`{"material": [{"id": "a", "colour": "a.png"}]}`), FormatJSON)
	assert.Error(t, err)

	yml := `
material:
  - id: a
    colour: a.png
`
	_, err = ParseManifest([]byte(yml), FormatYAML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("m.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("M.YML"))
	assert.Equal(t, FormatJSON, FormatFor("material.json"))
	assert.Equal(t, FormatJSON, FormatFor("noext"))
}

func TestRegistryLookup(t *testing.T) {
	m, err := ParseManifest([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	loader, calls := fakeLoader()

	r, err := NewRegistry(context.Background(), m, loader)
	require.NoError(t, err)
	assert.EqualValues(t, 5, calls.Load())
	assert.Empty(t, r.Problems())

	assert.Equal(t, []string{"Wood_Herringbone_Tiles_003_SD", "Metal_Plate", "Plain"}, r.IDs())
	assert.Equal(t, 3, r.Len())
	for _, id := range r.IDs() {
		mat, ok := r.Get(id)
		require.True(t, ok, id)
		require.NotNil(t, mat, id)
		assert.Equal(t, id, mat.Name)
	}

	mat, ok := r.Get("no-such-material")
	assert.False(t, ok)
	assert.Nil(t, mat)

	wood, _ := r.Get("Wood_Herringbone_Tiles_003_SD")
	assert.Equal(t, 2.0, wood.Repeat)
	assert.True(t, wood.DoubleSided)
	require.NotNil(t, wood.ColorMap)
	assert.Equal(t, render.WrapRepeat, wood.ColorMap.WrapU)
	assert.NotNil(t, wood.NormalMap)
	assert.NotNil(t, wood.RoughnessMap)
	assert.NotNil(t, wood.AOMap)
	assert.Equal(t, "Herringbone", r.Name(wood.Name))

	plain, _ := r.Get("Plain")
	assert.Nil(t, plain.ColorMap)
}

func TestRegistryMissingTexture(t *testing.T) {
	m, err := ParseManifest([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	m.Dir = "assets"
	loader, _ := fakeLoader(filepath.Join("assets", "metal/color.png"), filepath.Join("assets", "wood/ao.png"))

	r, err := NewRegistry(context.Background(), m, loader)
	require.NoError(t, err)
	require.Len(t, r.Problems(), 2)

	var ae *AssetLoadError
	require.ErrorAs(t, r.Problems()[0], &ae)
	assert.ErrorIs(t, ae, os.ErrNotExist)
	assert.Contains(t, ae.Error(), "assets")

	metal, ok := r.Get("Metal_Plate")
	require.True(t, ok)
	require.NotNil(t, metal.ColorMap, "missing colour map falls back to a checker")
	assert.Equal(t, 64, metal.ColorMap.Width)

	wood, _ := r.Get("Wood_Herringbone_Tiles_003_SD")
	assert.Nil(t, wood.AOMap)
}

func TestRegistryCancelled(t *testing.T) {
	m, err := ParseManifest([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewRegistry(ctx, m, FileLoader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func writePNG(t *testing.T, path string, c color.RGBA) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadManifestFromDisk(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "tex", "red.png"), color.RGBA{255, 0, 0, 255})
	manifest := filepath.Join(dir, "material.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("material:\n  - id: red\n    colormap: tex/red.png\n"), 0o644))

	m, err := LoadManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir)

	r, err := NewRegistry(context.Background(), m, nil)
	require.NoError(t, err)
	red, ok := r.Get("red")
	require.True(t, ok)
	require.NotNil(t, red.ColorMap)
	assert.Equal(t, render.RGB(255, 0, 0), red.ColorMap.GetPixel(0, 0))

	_, err = LoadManifest(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type holder struct{ mat *Material }

func (h *holder) Material() *Material     { return h.mat }
func (h *holder) SetMaterial(m *Material) { h.mat = m }

func TestSwapDisposesOnce(t *testing.T) {
	a := render.NewMaterial("a", render.ColorWhite)
	b := render.NewMaterial("b", render.ColorGray)
	h := &holder{mat: a}

	assert.True(t, Swap(h, b))
	assert.Equal(t, 1, a.Disposals())
	assert.Zero(t, b.Disposals())
	assert.Same(t, b, h.mat)

	assert.False(t, Swap(h, b), "same material is a no-op")
	assert.Zero(t, b.Disposals())

	assert.True(t, Swap(h, a))
	assert.Equal(t, 1, a.Disposals())
	assert.Equal(t, 1, b.Disposals())
}

func TestSwapAllSharedMaterial(t *testing.T) {
	shared := render.NewMaterial("shared", render.ColorWhite)
	next := render.NewMaterial("next", render.ColorGray)

	mesh := models.NewMesh("m")
	mesh.AddVertex(math3d.V3(0, 0, 0), math3d.V3(0, 0, 1), math3d.Vec2{})
	nodes := []*scene.MeshNode{
		scene.NewMeshNode("a", mesh, shared),
		scene.NewMeshNode("b", mesh, shared),
		scene.NewMeshNode("c", mesh, shared),
	}

	assert.Equal(t, 1, SwapAll(nodes, next))
	assert.Equal(t, 1, shared.Disposals())
	for _, n := range nodes {
		assert.Same(t, next, n.Material())
	}

	assert.Zero(t, SwapAll(nodes, next))
	assert.Zero(t, next.Disposals())
}

func TestShippedManifest(t *testing.T) {
	m, err := LoadManifest(filepath.Join("..", "..", "assets", "material.json"))
	require.NoError(t, err)
	ids := make([]string, 0, len(m.Material))
	for _, e := range m.Material {
		ids = append(ids, e.ID)
	}
	assert.Contains(t, ids, "Wood_Herringbone_Tiles_003_SD")

	r, err := NewRegistry(context.Background(), m, FileLoader{})
	require.NoError(t, err)
	assert.Empty(t, r.Problems(), "every shipped texture decodes")
	for _, id := range r.IDs() {
		mat, ok := r.Get(id)
		require.True(t, ok)
		assert.NotNil(t, mat.ColorMap, id)
		assert.NotNil(t, mat.NormalMap, id)
	}
}
