package viewer

import (
	"math"

	"github.com/taigrr/blobview/pkg/math3d"
	"github.com/taigrr/blobview/pkg/render"
)

// flatColor is used when textures are switched off.
var flatColor = render.RGB(200, 200, 200)

// RenderMode controls how meshes are drawn.
type RenderMode int

const (
	RenderModeTextured  RenderMode = iota // Material with environment lighting
	RenderModeWireframe                   // Wireframe only
)

// ViewState holds display toggles that do not affect the scene.
type ViewState struct {
	TextureEnabled bool        // Whether to draw materials
	RenderMode     RenderMode  // Current render mode
	LightMode      bool        // Whether in light positioning mode
	LightDir       math3d.Vec3 // Current light direction
	PendingLight   math3d.Vec3 // Light direction while positioning
	ShowHUD        bool        // Whether to show the HUD overlay
	ShowBounds     bool        // Outline the blob's bounding box and axes
	ShowGrid       bool        // Floor grid under the pedestal
}

// NewViewState creates default view state.
func NewViewState() ViewState {
	return ViewState{
		TextureEnabled: true,
		RenderMode:     RenderModeTextured,
		LightDir:       math3d.V3(0.4, 1, 0.6).Normalize(),
		ShowHUD:        true,
	}
}

// CurrentLight is the pending direction while positioning, otherwise the
// committed one.
func (s *ViewState) CurrentLight() math3d.Vec3 {
	if s.LightMode {
		return s.PendingLight
	}
	return s.LightDir
}

// BeginLight enters light positioning mode.
func (s *ViewState) BeginLight() {
	s.LightMode = true
	s.PendingLight = s.LightDir
}

// CommitLight keeps the pending direction and leaves light mode.
func (s *ViewState) CommitLight() {
	if s.LightMode {
		s.LightDir = s.PendingLight
		s.LightMode = false
	}
}

// CancelLight leaves light mode without changing the light. It reports
// whether light mode was active.
func (s *ViewState) CancelLight() bool {
	was := s.LightMode
	s.LightMode = false
	return was
}

// AimLight points the pending light at a terminal cell.
func (s *ViewState) AimLight(x, y, width, height int) {
	if s.LightMode {
		s.PendingLight = ScreenToLightDir(x, y, width, height)
	}
}

// ToggleWireframe flips between material and wireframe drawing.
func (s *ViewState) ToggleWireframe() {
	if s.RenderMode == RenderModeWireframe {
		s.RenderMode = RenderModeTextured
	} else {
		s.RenderMode = RenderModeWireframe
	}
}

// ScreenToLightDir maps a screen position onto a hemisphere facing the
// viewer and returns it as a light direction.
func ScreenToLightDir(screenX, screenY, width, height int) math3d.Vec3 {
	if width <= 0 || height <= 0 {
		return math3d.V3(0, 0, 1)
	}
	nx := (float64(screenX)/float64(width))*2 - 1
	ny := (float64(screenY)/float64(height))*2 - 1

	lenSq := nx*nx + ny*ny
	if lenSq > 1 {
		l := math.Sqrt(lenSq)
		nx /= l
		ny /= l
		lenSq = 1
	}
	nz := math.Sqrt(1 - lenSq)
	return math3d.V3(nx, -ny, nz).Normalize()
}
