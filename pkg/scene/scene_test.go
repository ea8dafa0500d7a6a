package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/blobview/pkg/math3d"
	"github.com/taigrr/blobview/pkg/models"
	"github.com/taigrr/blobview/pkg/render"
)

func unitCube(name string) *models.Mesh {
	m := models.NewMesh(name)
	for _, p := range []math3d.Vec3{
		math3d.V3(-1, -1, -1), math3d.V3(1, 1, 1),
	} {
		m.AddVertex(p, math3d.V3(0, 1, 0), math3d.Vec2{})
	}
	m.AddVertex(math3d.V3(1, -1, 1), math3d.V3(0, 1, 0), math3d.Vec2{})
	m.AddFace(0, 1, 2)
	m.CalculateBounds()
	return m
}

func TestSceneAddRemoveEvents(t *testing.T) {
	s := New()
	var events []Event
	s.Observe(func(ev Event, n Node) { events = append(events, ev) })

	a := NewGroup("svgShape")
	s.Add(a)
	assert.Equal(t, 1, s.Count("svgShape"))
	assert.Same(t, a, s.Find("svgShape"))

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a), "second remove is a no-op")
	assert.False(t, s.Remove(nil))
	assert.Equal(t, 0, s.Count("svgShape"))
	assert.Nil(t, s.Find("svgShape"))

	assert.Equal(t, []Event{Added, Removed}, events)
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "removed", Removed.String())
}

func TestTraverseWorldMatrices(t *testing.T) {
	root := NewGroup("root")
	root.Position = math3d.V3(0, 10, 0)
	child := NewGroup("child")
	child.Scale = math3d.V3(2, 2, 2)
	leaf := NewMeshNode("leaf", unitCube("cube"), nil)
	leaf.Position = math3d.V3(1, 0, 0)
	root.Add(child)
	child.Add(leaf)

	var order []string
	var leafWorld math3d.Mat4
	Traverse(root, math3d.Identity(), func(n Node, world math3d.Mat4) {
		order = append(order, n.Name())
		if n == leaf {
			leafWorld = world
		}
	})

	assert.Equal(t, []string{"root", "child", "leaf"}, order)
	got := leafWorld.MulVec3(math3d.Zero3())
	assert.True(t, got.ApproxEqual(math3d.V3(2, 10, 0), 1e-9), "leaf origin at %v", got)
}

func TestBoundsAndMeshes(t *testing.T) {
	g := NewGroup("g")
	a := NewMeshNode("a", unitCube("a"), nil)
	a.Position = math3d.V3(-5, 0, 0)
	b := NewMeshNode("b", unitCube("b"), nil)
	b.Position = math3d.V3(5, 0, 0)
	g.Add(a, b)

	require.Len(t, Meshes(g), 2)
	box := Bounds(g, math3d.Identity())
	assert.True(t, box.Min.ApproxEqual(math3d.V3(-6, -1, -1), 1e-9))
	assert.True(t, box.Max.ApproxEqual(math3d.V3(6, 1, 1), 1e-9))
	assert.True(t, box.Center().IsZero(1e-9))

	assert.True(t, g.Remove(a))
	assert.Len(t, Meshes(g), 1)
	assert.True(t, Bounds(NewGroup("empty"), math3d.Identity()).IsEmpty())
}

func TestMeshNodeMaterial(t *testing.T) {
	m1 := render.NewMaterial("one", render.ColorWhite)
	m2 := render.NewMaterial("two", render.ColorGray)
	n := NewMeshNode("n", unitCube("n"), m1)
	assert.Same(t, m1, n.Material())
	n.SetMaterial(m2)
	assert.Same(t, m2, n.Material())
	assert.Zero(t, m1.Disposals(), "SetMaterial does not dispose")
}
