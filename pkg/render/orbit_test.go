package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taigrr/blobview/pkg/math3d"
)

func newTestOrbit() (*OrbitControls, *Camera) {
	cam := NewCamera()
	o := NewOrbitControls(cam, math3d.Zero3(), 60)
	o.MinDistance = 50
	o.MaxDistance = 250
	o.MaxPolarAngle = math.Pi * 0.5
	return o, cam
}

func TestOrbitStartsFromCamera(t *testing.T) {
	o, _ := newTestOrbit()

	assert.InDelta(t, 150, o.Distance(), 1e-9)
	assert.InDelta(t, math.Pi/2, o.Polar(), 1e-9)
	assert.InDelta(t, 0, o.Azimuth(), 1e-9)
}

func TestOrbitDampingDecaysVelocity(t *testing.T) {
	o, _ := newTestOrbit()
	o.Rotate(0.1, 0)

	o.Update()
	first := o.Azimuth()
	for range 300 {
		o.Update()
	}
	settled := o.Azimuth()
	o.Update()

	assert.Greater(t, first, 0.0)
	assert.Greater(t, settled, first, "damped rotation keeps coasting after the first frame")
	assert.InDelta(t, settled, o.Azimuth(), 1e-6, "velocity should decay to rest")
}

func TestOrbitWithoutDampingStopsImmediately(t *testing.T) {
	o, _ := newTestOrbit()
	o.EnableDamping = false
	o.Rotate(0.2, 0)

	o.Update()
	o.Update()

	assert.InDelta(t, 0.2, o.Azimuth(), 1e-9)
}

func TestOrbitClampsPolarAndDistance(t *testing.T) {
	o, cam := newTestOrbit()
	o.EnableDamping = false

	// Push below the horizon; max polar is PI/2.
	o.Rotate(0, 1.0)
	o.Update()
	assert.LessOrEqual(t, o.Polar(), math.Pi/2)
	assert.GreaterOrEqual(t, cam.Position.Y, -1e-9)

	o.Zoom(-1000)
	o.Update()
	assert.InDelta(t, 50, o.Distance(), 1e-9)

	o.Zoom(5000)
	o.Update()
	assert.InDelta(t, 250, o.Distance(), 1e-9)
	assert.InDelta(t, 250, cam.Position.Len(), 1e-6)
}

func TestOrbitRotateDisabled(t *testing.T) {
	o, _ := newTestOrbit()
	o.EnableRotate = false
	o.Rotate(1, 1)
	o.Update()

	assert.InDelta(t, 0, o.Azimuth(), 1e-9)
}

func TestOrbitReset(t *testing.T) {
	o, cam := newTestOrbit()
	o.EnableDamping = false
	o.Rotate(0.5, -0.3)
	o.Zoom(40)
	o.Update()

	o.Reset()
	assert.InDelta(t, 150, o.Distance(), 1e-9)
	assert.True(t, cam.Position.ApproxEqual(math3d.V3(0, 0, 150), 1e-6), "camera at %+v", cam.Position)
}
