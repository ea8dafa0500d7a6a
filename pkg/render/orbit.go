package render

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/blobview/pkg/math3d"
)

// polarEpsilon keeps the camera off the exact pole, where yaw is undefined.
const polarEpsilon = 1e-4

// OrbitControls moves a camera on a sphere around a target point. Rotation
// is velocity based: input adds angular velocity and a critically damped
// spring decays it back to zero each frame. Zoom eases toward a requested
// distance through a second spring.
type OrbitControls struct {
	Target math3d.Vec3

	MinDistance   float64
	MaxDistance   float64
	MinPolarAngle float64
	MaxPolarAngle float64

	EnableDamping bool
	EnableZoom    bool
	EnableRotate  bool

	camera *Camera
	fps    int

	azimuth  float64
	polar    float64
	distance float64

	azimuthAxis dampedAxis
	polarAxis   dampedAxis

	zoomTarget float64
	zoomVel    float64
	zoomSpring harmonica.Spring

	home struct{ azimuth, polar, distance float64 }
}

// dampedAxis tracks velocity for one rotation axis with spring decay.
type dampedAxis struct {
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

func newDampedAxis(fps int) dampedAxis {
	return dampedAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// step returns this frame's delta and decays the velocity.
func (a *dampedAxis) step(damping bool) float64 {
	delta := a.Velocity
	if damping {
		a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
	} else {
		a.Velocity, a.velAccel = 0, 0
	}
	return delta
}

// NewOrbitControls attaches controls to camera, orbiting target. The
// starting spherical coordinates are taken from the camera's position.
func NewOrbitControls(camera *Camera, target math3d.Vec3, fps int) *OrbitControls {
	o := &OrbitControls{
		Target:        target,
		MinDistance:   0,
		MaxDistance:   math.Inf(1),
		MinPolarAngle: 0,
		MaxPolarAngle: math.Pi,
		EnableDamping: true,
		EnableZoom:    true,
		EnableRotate:  true,
		camera:        camera,
		fps:           fps,
		azimuthAxis:   newDampedAxis(fps),
		polarAxis:     newDampedAxis(fps),
		zoomSpring:    harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}

	offset := camera.Position.Sub(target)
	o.distance = offset.Len()
	if o.distance > 0 {
		o.polar = math.Acos(clamp(offset.Y/o.distance, -1, 1))
		o.azimuth = math.Atan2(offset.X, offset.Z)
	}
	o.zoomTarget = o.distance
	o.home.azimuth, o.home.polar, o.home.distance = o.azimuth, o.polar, o.distance
	return o
}

// Rotate adds angular velocity in radians per frame.
func (o *OrbitControls) Rotate(dAzimuth, dPolar float64) {
	if !o.EnableRotate {
		return
	}
	o.azimuthAxis.Velocity += dAzimuth
	o.polarAxis.Velocity += dPolar
}

// Zoom requests a change in distance. Positive moves away from the target.
func (o *OrbitControls) Zoom(delta float64) {
	if !o.EnableZoom {
		return
	}
	o.zoomTarget = clamp(o.zoomTarget+delta, o.MinDistance, o.MaxDistance)
}

// Reset returns to the pose the controls were created with.
func (o *OrbitControls) Reset() {
	o.azimuth, o.polar, o.distance = o.home.azimuth, o.home.polar, o.home.distance
	o.zoomTarget, o.zoomVel = o.distance, 0
	o.azimuthAxis = newDampedAxis(o.fps)
	o.polarAxis = newDampedAxis(o.fps)
	o.apply()
}

// Update advances damping by one frame and repositions the camera.
func (o *OrbitControls) Update() {
	o.azimuth += o.azimuthAxis.step(o.EnableDamping)
	o.polar += o.polarAxis.step(o.EnableDamping)

	if o.EnableDamping {
		o.distance, o.zoomVel = o.zoomSpring.Update(o.distance, o.zoomVel, o.zoomTarget)
	} else {
		o.distance = o.zoomTarget
	}
	o.apply()
}

// Azimuth returns the current horizontal angle in radians.
func (o *OrbitControls) Azimuth() float64 { return o.azimuth }

// Polar returns the current angle from the +Y axis in radians.
func (o *OrbitControls) Polar() float64 { return o.polar }

// Distance returns the current distance from the target.
func (o *OrbitControls) Distance() float64 { return o.distance }

// apply clamps the spherical coordinates and places the camera.
func (o *OrbitControls) apply() {
	minPolar := math.Max(o.MinPolarAngle, polarEpsilon)
	maxPolar := math.Min(o.MaxPolarAngle, math.Pi-polarEpsilon)
	o.polar = clamp(o.polar, minPolar, maxPolar)
	o.distance = clamp(o.distance, o.MinDistance, o.MaxDistance)

	sinPolar := math.Sin(o.polar)
	offset := math3d.V3(
		o.distance*sinPolar*math.Sin(o.azimuth),
		o.distance*math.Cos(o.polar),
		o.distance*sinPolar*math.Cos(o.azimuth),
	)
	o.camera.SetPosition(o.Target.Add(offset))
	o.camera.LookAt(o.Target)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
