// Package scene is a minimal scene graph: groups with local transforms,
// mesh leaves carrying a material, and a root scene that notifies
// observers when top-level nodes come and go.
//
// Nothing here is safe for concurrent use. The viewer mutates and draws
// the scene from its main loop only.
package scene

import (
	"github.com/taigrr/blobview/pkg/math3d"
	"github.com/taigrr/blobview/pkg/models"
	"github.com/taigrr/blobview/pkg/render"
)

// Node is anything that can sit in the graph.
type Node interface {
	Name() string
	// Local is the node's transform relative to its parent.
	Local() math3d.Mat4
	Children() []Node
}

// Transform is position, XYZ Euler rotation and scale.
type Transform struct {
	Position math3d.Vec3
	Rotation math3d.Vec3
	Scale    math3d.Vec3
}

// Identity returns a transform with unit scale.
func Identity() Transform {
	return Transform{Scale: math3d.V3(1, 1, 1)}
}

// Matrix composes translate * rotate * scale.
func (t Transform) Matrix() math3d.Mat4 {
	return math3d.Compose(t.Position, t.Rotation, t.Scale)
}

// Group holds child nodes under a shared transform.
type Group struct {
	Transform
	name     string
	children []Node
}

// NewGroup returns an empty group with an identity transform.
func NewGroup(name string) *Group {
	return &Group{Transform: Identity(), name: name}
}

func (g *Group) Name() string       { return g.name }
func (g *Group) Local() math3d.Mat4 { return g.Matrix() }
func (g *Group) Children() []Node   { return g.children }

// Add appends children.
func (g *Group) Add(nodes ...Node) {
	g.children = append(g.children, nodes...)
}

// Remove detaches n and reports whether it was a child.
func (g *Group) Remove(n Node) bool {
	for i, c := range g.children {
		if c == n {
			g.children = append(g.children[:i], g.children[i+1:]...)
			return true
		}
	}
	return false
}

// MeshNode is a leaf drawing one mesh with one material.
type MeshNode struct {
	Transform
	name     string
	Mesh     *models.Mesh
	material *render.Material
}

// NewMeshNode wraps mesh with an identity transform.
func NewMeshNode(name string, mesh *models.Mesh, mat *render.Material) *MeshNode {
	return &MeshNode{Transform: Identity(), name: name, Mesh: mesh, material: mat}
}

func (m *MeshNode) Name() string       { return m.name }
func (m *MeshNode) Local() math3d.Mat4 { return m.Matrix() }
func (m *MeshNode) Children() []Node   { return nil }

// Material returns the node's current material.
func (m *MeshNode) Material() *render.Material { return m.material }

// SetMaterial replaces the material without touching the old one.
func (m *MeshNode) SetMaterial(mat *render.Material) { m.material = mat }

// Traverse walks n and its descendants depth-first, parents before
// children, passing each node's world matrix.
func Traverse(n Node, parent math3d.Mat4, fn func(n Node, world math3d.Mat4)) {
	world := parent.Mul(n.Local())
	fn(n, world)
	for _, c := range n.Children() {
		Traverse(c, world, fn)
	}
}

// Meshes returns every mesh leaf under n.
func Meshes(n Node) []*MeshNode {
	var out []*MeshNode
	Traverse(n, math3d.Identity(), func(n Node, _ math3d.Mat4) {
		if m, ok := n.(*MeshNode); ok {
			out = append(out, m)
		}
	})
	return out
}

// Bounds is the union of every mesh's bounds under n, in the space of
// n's parent transform.
func Bounds(n Node, parent math3d.Mat4) math3d.Box3 {
	box := math3d.EmptyBox3()
	Traverse(n, parent, func(n Node, world math3d.Mat4) {
		if m, ok := n.(*MeshNode); ok && m.Mesh != nil {
			box = box.Union(m.Mesh.GetBounds().Transform(world))
		}
	})
	return box
}

// Event is a change to the scene's top-level nodes.
type Event int

const (
	Added Event = iota
	Removed
)

func (e Event) String() string {
	if e == Added {
		return "added"
	}
	return "removed"
}

// Observer is told about every top-level add and remove.
type Observer func(ev Event, n Node)

// Scene is the root of the graph.
type Scene struct {
	root      *Group
	observers []Observer
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{root: NewGroup("scene")}
}

// Root returns the scene's root group.
func (s *Scene) Root() *Group { return s.root }

// Observe registers fn for add and remove events.
func (s *Scene) Observe(fn Observer) {
	s.observers = append(s.observers, fn)
}

func (s *Scene) notify(ev Event, n Node) {
	for _, fn := range s.observers {
		fn(ev, n)
	}
}

// Add attaches n at the top level.
func (s *Scene) Add(n Node) {
	s.root.Add(n)
	s.notify(Added, n)
}

// Remove detaches a top-level node. Removing a node that is not present
// is a no-op and reports false.
func (s *Scene) Remove(n Node) bool {
	if n == nil || !s.root.Remove(n) {
		return false
	}
	s.notify(Removed, n)
	return true
}

// Count returns how many top-level nodes are called name.
func (s *Scene) Count(name string) int {
	c := 0
	for _, n := range s.root.children {
		if n.Name() == name {
			c++
		}
	}
	return c
}

// Find returns the first top-level node called name.
func (s *Scene) Find(name string) Node {
	for _, n := range s.root.children {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

// Walk traverses the whole scene with world matrices.
func (s *Scene) Walk(fn func(n Node, world math3d.Mat4)) {
	Traverse(s.root, math3d.Identity(), fn)
}
