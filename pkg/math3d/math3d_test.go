package math3d

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestComposeOrder(t *testing.T) {
	// Scale first, then rotate, then translate.
	m := Compose(V3(0, 11, 0), V3(math.Pi/2, 0, 0), V3(2, 2, 2))
	got := m.MulVec3(V3(0, 1, 0))

	assert.True(t, got.ApproxEqual(V3(0, 11, 2), eps), "got %+v", got)
}

func TestRotateEulerMatchesAxisRotations(t *testing.T) {
	angles := V3(0.3, -0.7, 1.1)
	want := RotateX(angles.X).Mul(RotateY(angles.Y)).Mul(RotateZ(angles.Z))
	got := RotateEuler(angles)

	for i := range got {
		assert.InDelta(t, want[i], got[i], eps)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Compose(V3(3, -2, 7), V3(0.4, 0.2, -0.9), V3(0.8, 0.8, 0.8))
	p := V3(1, 2, 3)

	back := m.Inverse().MulVec3(m.MulVec3(p))
	assert.True(t, back.ApproxEqual(p, 1e-6), "got %+v", back)
}

func TestBox3Union(t *testing.T) {
	a := NewBox3(V3(0, 0, 0), V3(1, 1, 1))
	b := NewBox3(V3(-2, 0.5, 0), V3(0.5, 3, 0.5))

	u := a.Union(b)
	assert.Equal(t, V3(-2, 0, 0), u.Min)
	assert.Equal(t, V3(1, 3, 1), u.Max)

	assert.Equal(t, a, a.Union(EmptyBox3()))
	assert.Equal(t, a, EmptyBox3().Union(a))
}

func TestBox3EmptyAndExpand(t *testing.T) {
	box := EmptyBox3()
	require.True(t, box.IsEmpty())

	box = box.ExpandByPoint(V3(1, 2, 3))
	require.False(t, box.IsEmpty())
	assert.Equal(t, V3(1, 2, 3), box.Center())
	assert.Equal(t, Zero3(), box.Size())

	box = box.ExpandByPoint(V3(-1, 0, 3))
	assert.Equal(t, V3(0, 1, 3), box.Center())
}

func TestBox3TransformTranslation(t *testing.T) {
	box := NewBox3(V3(-1, -1, -1), V3(1, 1, 1))
	moved := box.Transform(Translate(V3(5, 0, 0)))

	assert.True(t, moved.Center().ApproxEqual(V3(5, 0, 0), eps))
	assert.True(t, moved.Size().ApproxEqual(V3(2, 2, 2), eps))
	assert.True(t, moved.ContainsPoint(V3(4.5, 0.5, -0.5)))
	assert.False(t, moved.ContainsPoint(Zero3()))
}

func TestVec2Cross(t *testing.T) {
	assert.Equal(t, 1.0, V2(1, 0).Cross(V2(0, 1)))
	assert.Equal(t, -1.0, V2(0, 1).Cross(V2(1, 0)))
	assert.InDelta(t, 5.0, V2(0, 0).Distance(V2(3, 4)), eps)
}
