package math3d

import (
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := RotateY(0.5)
	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulVec3(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5))
	v := V3(1, 2, 3)
	for b.Loop() {
		_ = m.MulVec3(v)
	}
}

func BenchmarkMat4Inverse(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateY(0.5)).Mul(Scale(V3(2, 2, 2)))
	for b.Loop() {
		_ = m.Inverse()
	}
}

func BenchmarkCompose(b *testing.B) {
	pos, rot, scale := V3(0, 11, 0), V3(1.57, 0, 0), V3(0.8, 0.8, 0.8)
	for b.Loop() {
		_ = Compose(pos, rot, scale)
	}
}

func BenchmarkBox3Transform(b *testing.B) {
	box := NewBox3(V3(-50, -50, 0), V3(50, 50, 1))
	m := Compose(V3(0, 11, 0), V3(1.57, 0, 0), V3(0.8, 0.8, 0.8))
	for b.Loop() {
		_ = box.Transform(m)
	}
}
