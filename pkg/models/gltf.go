package models

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/taigrr/blobview/pkg/math3d"
)

// ErrNoGeometry is returned for documents without a triangle primitive.
var ErrNoGeometry = errors.New("gltf: no triangle geometry")

// LoadGLBWithTexture loads a .glb (or .gltf) file as a single merged mesh
// plus its first decodable embedded texture, which is nil when the model
// has none. External buffers and images resolve next to the file.
func LoadGLBWithTexture(path string) (*Mesh, image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open gltf: %w", err)
	}
	defer f.Close()
	return DecodeGLB(f, os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// DecodeGLB reads a glTF document from r and merges every triangle
// primitive reachable from the default scene into one mesh, with node
// transforms applied. fsys resolves relative URIs and may be nil.
func DecodeGLB(r io.Reader, fsys fs.FS, name string) (*Mesh, image.Image, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(r, fsys).Decode(doc); err != nil {
		return nil, nil, fmt.Errorf("decode gltf: %w", err)
	}

	mesh := NewMesh(name)
	err := walkNodes(doc, func(m *gltf.Mesh, world math3d.Mat4) error {
		return appendMesh(doc, m, world, mesh)
	})
	if err != nil {
		return nil, nil, err
	}
	if len(mesh.Faces) == 0 {
		return nil, nil, ErrNoGeometry
	}

	hasNormals := false
	for _, v := range mesh.Vertices {
		if v.Normal.Len() > 0.001 {
			hasNormals = true
			break
		}
	}
	if !hasNormals {
		mesh.CalculateSmoothNormals()
	}
	mesh.CalculateBounds()

	return mesh, firstImage(doc, fsys), nil
}

// walkNodes visits each mesh instance of the default scene with its world
// matrix. Documents without scenes visit every mesh untransformed.
func walkNodes(doc *gltf.Document, fn func(m *gltf.Mesh, world math3d.Mat4) error) error {
	var roots []int
	switch {
	case doc.Scene != nil && *doc.Scene < len(doc.Scenes):
		roots = doc.Scenes[*doc.Scene].Nodes
	case len(doc.Scenes) > 0:
		roots = doc.Scenes[0].Nodes
	}
	if len(roots) == 0 {
		for _, m := range doc.Meshes {
			if err := fn(m, math3d.Identity()); err != nil {
				return err
			}
		}
		return nil
	}

	var visit func(idx int, parent math3d.Mat4, depth int) error
	visit = func(idx int, parent math3d.Mat4, depth int) error {
		if idx < 0 || idx >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return fmt.Errorf("gltf: bad node %d", idx)
		}
		n := doc.Nodes[idx]
		world := parent.Mul(nodeMatrix(n))
		if n.Mesh != nil {
			if *n.Mesh >= len(doc.Meshes) {
				return fmt.Errorf("gltf: node %d: bad mesh %d", idx, *n.Mesh)
			}
			if err := fn(doc.Meshes[*n.Mesh], world); err != nil {
				return err
			}
		}
		for _, c := range n.Children {
			if err := visit(c, world, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, idx := range roots {
		if err := visit(idx, math3d.Identity(), 0); err != nil {
			return err
		}
	}
	return nil
}

// nodeMatrix is the node's local transform. glTF and Mat4 are both column
// major.
func nodeMatrix(n *gltf.Node) math3d.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		return math3d.Mat4(m)
	}
	t := n.TranslationOrDefault()
	s := n.ScaleOrDefault()
	return math3d.Translate(math3d.V3(t[0], t[1], t[2])).
		Mul(quatMatrix(n.RotationOrDefault())).
		Mul(math3d.Scale(math3d.V3(s[0], s[1], s[2])))
}

// quatMatrix converts an (x, y, z, w) unit quaternion.
func quatMatrix(q [4]float64) math3d.Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return math3d.Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

func appendMesh(doc *gltf.Document, m *gltf.Mesh, world math3d.Mat4, mesh *Mesh) error {
	for pi, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := modeler.ReadPosition(doc, accessor(doc, posIdx), nil)
		if err != nil {
			return fmt.Errorf("mesh %q primitive %d: positions: %w", m.Name, pi, err)
		}
		var normals [][3]float32
		if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
			if normals, err = modeler.ReadNormal(doc, accessor(doc, idx), nil); err != nil {
				return fmt.Errorf("mesh %q primitive %d: normals: %w", m.Name, pi, err)
			}
		}
		var uvs [][2]float32
		if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = modeler.ReadTextureCoord(doc, accessor(doc, idx), nil); err != nil {
				return fmt.Errorf("mesh %q primitive %d: uvs: %w", m.Name, pi, err)
			}
		}

		base := len(mesh.Vertices)
		for i, p := range positions {
			v := MeshVertex{Position: world.MulVec3(vec3(p))}
			if i < len(normals) {
				v.Normal = world.MulVec3Dir(vec3(normals[i])).Normalize()
			}
			if i < len(uvs) {
				// glTF puts V=0 at the top of the image
				v.UV = math3d.V2(float64(uvs[i][0]), 1-float64(uvs[i][1]))
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}

		var indices []uint32
		if prim.Indices != nil {
			if indices, err = modeler.ReadIndices(doc, accessor(doc, *prim.Indices), nil); err != nil {
				return fmt.Errorf("mesh %q primitive %d: indices: %w", m.Name, pi, err)
			}
		} else {
			indices = make([]uint32, len(positions))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		// glTF fronts are counter-clockwise; the rasterizer wants clockwise
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := int(indices[i]), int(indices[i+1]), int(indices[i+2])
			if a >= len(positions) || b >= len(positions) || c >= len(positions) {
				return fmt.Errorf("mesh %q primitive %d: index out of range", m.Name, pi)
			}
			mesh.Faces = append(mesh.Faces, Face{V: [3]int{base + a, base + c, base + b}})
		}
	}
	return nil
}

// accessor returns an empty accessor for a bad index so the modeler
// readers report the error instead of panicking.
func accessor(doc *gltf.Document, idx int) *gltf.Accessor {
	if idx < 0 || idx >= len(doc.Accessors) {
		return &gltf.Accessor{}
	}
	return doc.Accessors[idx]
}

func vec3(v [3]float32) math3d.Vec3 {
	return math3d.V3(float64(v[0]), float64(v[1]), float64(v[2]))
}

// firstImage decodes the first image the document carries, embedded or
// next to the file.
func firstImage(doc *gltf.Document, fsys fs.FS) image.Image {
	for _, img := range doc.Images {
		var data []byte
		switch {
		case img.BufferView != nil && *img.BufferView < len(doc.BufferViews):
			data, _ = modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		case img.URI != "" && !img.IsEmbeddedResource() && fsys != nil:
			data, _ = fs.ReadFile(fsys, img.URI)
		}
		if len(data) == 0 {
			continue
		}
		if decoded, _, err := image.Decode(bytes.NewReader(data)); err == nil {
			return decoded
		}
	}
	return nil
}
