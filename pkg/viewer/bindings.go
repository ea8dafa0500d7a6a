package viewer

import (
	"strconv"

	"github.com/taigrr/blobview/pkg/blob"
)

// Slider ranges for the growth and edge keys.
const (
	MinGrowth = 0
	MaxGrowth = 20
	MinEdges  = blob.MinEdges
	MaxEdges  = 60
)

// Orbit input scales.
const (
	keyRotate   = 0.05
	keyZoom     = 10
	mouseRotate = 0.01
	wheelZoom   = 8
)

// KeyMatcher is a key press that can be compared to key names, such as
// ultraviolet's KeyPressEvent.
type KeyMatcher interface {
	MatchString(keys ...string) bool
}

// Handler reacts to one input.
type Handler func(v *Viewer)

// Binding maps key names to a handler.
type Binding struct {
	Keys []string
	Help string
	Fn   Handler
}

// Bindings is an ordered key table. The first matching binding wins.
type Bindings []Binding

// Dispatch runs the handler bound to key and reports whether one matched.
func (b Bindings) Dispatch(v *Viewer, key KeyMatcher) bool {
	for _, bind := range b {
		if key.MatchString(bind.Keys...) {
			bind.Fn(v)
			return true
		}
	}
	return false
}

// DefaultBindings returns the viewer's key table. Esc and Ctrl+C are left
// to the caller since they end the program.
func DefaultBindings() Bindings {
	b := Bindings{
		{[]string{"]"}, "More growth", func(v *Viewer) { _ = v.SetGrowth(min(v.Settings.Growth+1, MaxGrowth)) }},
		{[]string{"["}, "Less growth", func(v *Viewer) { _ = v.SetGrowth(max(v.Settings.Growth-1, MinGrowth)) }},
		{[]string{"."}, "More edges", func(v *Viewer) { _ = v.SetEdges(min(v.Settings.Edges+1, MaxEdges)) }},
		{[]string{","}, "Fewer edges", func(v *Viewer) { _ = v.SetEdges(max(v.Settings.Edges-1, MinEdges)) }},
		{[]string{"space"}, "New random blob", (*Viewer).Reseed},
		{[]string{"n", "tab"}, "Next material", func(v *Viewer) { v.CycleMaterial(1) }},
		{[]string{"p", "shift+tab"}, "Previous material", func(v *Viewer) { v.CycleMaterial(-1) }},
		{[]string{"w", "up"}, "Orbit up", func(v *Viewer) { v.Controls.Rotate(0, -keyRotate) }},
		{[]string{"s", "down"}, "Orbit down", func(v *Viewer) { v.Controls.Rotate(0, keyRotate) }},
		{[]string{"a", "left"}, "Orbit left", func(v *Viewer) { v.Controls.Rotate(-keyRotate, 0) }},
		{[]string{"d", "right"}, "Orbit right", func(v *Viewer) { v.Controls.Rotate(keyRotate, 0) }},
		{[]string{"+", "="}, "Zoom in", func(v *Viewer) { v.Controls.Zoom(-keyZoom) }},
		{[]string{"-", "_"}, "Zoom out", func(v *Viewer) { v.Controls.Zoom(keyZoom) }},
		{[]string{"r"}, "Reset view", func(v *Viewer) { v.Controls.Reset() }},
		{[]string{"t"}, "Toggle texture", func(v *Viewer) { v.TextureEnabled = !v.TextureEnabled }},
		{[]string{"x"}, "Toggle wireframe", func(v *Viewer) { v.ToggleWireframe() }},
		{[]string{"b"}, "Toggle bounds", func(v *Viewer) { v.ShowBounds = !v.ShowBounds }},
		{[]string{"g"}, "Toggle grid", func(v *Viewer) { v.ShowGrid = !v.ShowGrid }},
		{[]string{"l"}, "Position light", func(v *Viewer) { v.BeginLight() }},
		{[]string{"?", "shift+/"}, "Toggle HUD", func(v *Viewer) { v.ShowHUD = !v.ShowHUD }},
	}
	// 1-9 pick a material by position
	for i := 1; i <= 9; i++ {
		b = append(b, Binding{[]string{strconv.Itoa(i)}, "Material " + strconv.Itoa(i), func(v *Viewer) {
			ids := v.Registry.IDs()
			if i > len(ids) {
				v.notify("no material %d", i)
				return
			}
			_ = v.SelectMaterial(ids[i-1])
		}})
	}
	return b
}

// MouseDrag orbits the camera by a drag of dx, dy cells.
func (v *Viewer) MouseDrag(dx, dy int) {
	v.Controls.Rotate(-float64(dx)*mouseRotate*4, -float64(dy)*mouseRotate*2)
}

// MouseWheel zooms, positive steps moving closer.
func (v *Viewer) MouseWheel(steps int) {
	v.Controls.Zoom(-float64(steps) * wheelZoom)
}
