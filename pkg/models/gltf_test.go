package models

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/blobview/pkg/math3d"
)

// pyramidGLB encodes a square pyramid with an embedded 2x2 PNG, placed by
// a node translated by (0, 5, 0).
func pyramidGLB(t *testing.T) *gltf.Document {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1}, {0, 2, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 0.5}})
	idx := modeler.WriteIndices(doc, []uint16{0, 4, 1, 1, 4, 2, 2, 4, 3, 3, 4, 0, 0, 1, 2, 0, 2, 3})

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	require.NoError(t, png.Encode(&buf, img))
	imgIdx, err := modeler.WriteImage(doc, "tex", "image/png", &buf)
	require.NoError(t, err)
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(imgIdx)})

	doc.Meshes = []*gltf.Mesh{{
		Name: "pyramid",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: gltf.PrimitiveAttributes{gltf.POSITION: pos, gltf.TEXCOORD_0: uv},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "root", Mesh: gltf.Index(0), Translation: [3]float64{0, 5, 0}}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

func encodeGLB(t *testing.T, doc *gltf.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gltf.NewEncoder(&buf).Encode(doc))
	return buf.Bytes()
}

func TestDecodeGLB(t *testing.T) {
	data := encodeGLB(t, pyramidGLB(t))

	mesh, img, err := DecodeGLB(bytes.NewReader(data), nil, "pyramid.glb")
	require.NoError(t, err)
	assert.Equal(t, "pyramid.glb", mesh.Name)
	assert.Equal(t, 5, mesh.VertexCount())
	assert.Equal(t, 6, mesh.TriangleCount())

	// node translation is baked in
	assert.True(t, mesh.Vertices[4].Position.ApproxEqual(math3d.V3(0, 7, 0), 1e-6), "apex %+v", mesh.Vertices[4].Position)
	assert.InDelta(t, 5.0, mesh.Bounds.Min.Y, 1e-6)
	assert.InDelta(t, 7.0, mesh.Bounds.Max.Y, 1e-6)

	// winding is reversed and V is flipped
	assert.Equal(t, [3]int{0, 1, 4}, mesh.GetFace(0))
	assert.InDelta(t, 1.0, mesh.Vertices[0].UV.Y, 1e-6)

	// normals are computed when the file has none
	for i, v := range mesh.Vertices {
		assert.InDelta(t, 1.0, v.Normal.Len(), 1e-6, "vertex %d", i)
	}
	assert.True(t, mesh.Vertices[4].Normal.ApproxEqual(math3d.V3(0, 1, 0), 1e-6), "apex normal %+v", mesh.Vertices[4].Normal)

	require.NotNil(t, img)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.EqualValues(t, 0xffff, r)
}

func TestLoadGLBWithTexture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pedestal.glb")
	require.NoError(t, gltf.SaveBinary(pyramidGLB(t), path))

	mesh, img, err := LoadGLBWithTexture(path)
	require.NoError(t, err)
	assert.Equal(t, 6, mesh.TriangleCount())
	assert.NotNil(t, img)
}

func TestLoadShippedPedestal(t *testing.T) {
	mesh, img, err := LoadGLBWithTexture(filepath.Join("..", "..", "assets", "unilegs.glb"))
	require.NoError(t, err)
	assert.Nil(t, img)
	// table top and four legs, twelve triangles each
	assert.Equal(t, 60, mesh.TriangleCount())
	assert.Equal(t, 120, mesh.VertexCount())
	assert.InDelta(t, 0.0, mesh.Bounds.Min.Y, 1e-6)
	assert.InDelta(t, 17.6, mesh.Bounds.Max.Y, 1e-4)
}

func TestDecodeGLBErrors(t *testing.T) {
	_, _, err := DecodeGLB(strings.NewReader("not a model"), nil, "x.glb")
	assert.Error(t, err)

	empty := gltf.NewDocument()
	_, _, err = DecodeGLB(bytes.NewReader(encodeGLB(t, empty)), nil, "empty.glb")
	assert.ErrorIs(t, err, ErrNoGeometry)

	bad := pyramidGLB(t)
	bad.Meshes[0].Primitives[0].Attributes[gltf.POSITION] = 99
	_, _, err = DecodeGLB(bytes.NewReader(encodeGLB(t, bad)), nil, "bad.glb")
	assert.Error(t, err)
}

func TestLoadGLBWithTextureInvalidPath(t *testing.T) {
	mesh, img, err := LoadGLBWithTexture("/nonexistent/pedestal.glb")
	require.Error(t, err)
	assert.Nil(t, mesh)
	assert.Nil(t, img)
}

func TestQuatMatrix(t *testing.T) {
	// 90 degrees about Y takes +X to -Z
	half := math.Sqrt2 / 2
	m := quatMatrix([4]float64{0, half, 0, half})
	assert.True(t, m.MulVec3(math3d.V3(1, 0, 0)).ApproxEqual(math3d.V3(0, 0, -1), 1e-9))
	assert.Equal(t, math3d.Identity(), quatMatrix(gltf.DefaultRotation))
}

// quad builds a unit square in the XY plane facing +Z.
func quad() *Mesh {
	m := NewMesh("quad")
	n := math3d.V3(0, 0, 1)
	a := m.AddVertex(math3d.V3(0, 0, 0), n, math3d.V2(0, 0))
	b := m.AddVertex(math3d.V3(1, 0, 0), n, math3d.V2(1, 0))
	c := m.AddVertex(math3d.V3(1, 1, 0), n, math3d.V2(1, 1))
	d := m.AddVertex(math3d.V3(0, 1, 0), n, math3d.V2(0, 1))
	// Clockwise seen from +Z.
	m.AddFace(a, c, b)
	m.AddFace(a, d, c)
	m.CalculateBounds()
	return m
}

func TestMeshBoundsAndTranslate(t *testing.T) {
	m := quad()
	assert.Equal(t, math3d.V3(0.5, 0.5, 0), m.Center())
	assert.Equal(t, math3d.V3(1, 1, 0), m.Size())

	m.Translate(m.Center().Negate())
	assert.True(t, m.Center().IsZero(1e-12))

	// Translate keeps cached bounds in sync with a fresh computation.
	cached := m.Bounds
	m.CalculateBounds()
	assert.Equal(t, m.Bounds, cached)
}

func TestCalculateSmoothNormalsFollowsWinding(t *testing.T) {
	m := quad()
	for i := range m.Vertices {
		m.Vertices[i].Normal = math3d.Zero3()
	}
	m.CalculateSmoothNormals()

	for i, v := range m.Vertices {
		assert.True(t, v.Normal.ApproxEqual(math3d.V3(0, 0, 1), 1e-9), "vertex %d normal %+v", i, v.Normal)
	}
}

func TestMeshCloneIsDeep(t *testing.T) {
	m := quad()
	c := m.Clone()
	c.Translate(math3d.V3(10, 0, 0))

	assert.Equal(t, 0.0, m.Vertices[0].Position.X)
	assert.Equal(t, 10.0, c.Vertices[0].Position.X)
	assert.Equal(t, m.TriangleCount(), c.TriangleCount())
	assert.Equal(t, m.VertexCount(), c.VertexCount())
}
