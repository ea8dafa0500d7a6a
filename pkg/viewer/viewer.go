// Package viewer is the interactive blob viewer: it owns the scene, the
// blob settings and the active material, rebuilds the blob off the main
// loop and maps input to handlers.
//
// Apart from the rebuild worker, a Viewer belongs to the goroutine running
// the frame loop. Input handlers, Poll and Draw must all be called from it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"fortio.org/log"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/blobview/pkg/blob"
	"github.com/taigrr/blobview/pkg/materials"
	"github.com/taigrr/blobview/pkg/math3d"
	"github.com/taigrr/blobview/pkg/render"
	"github.com/taigrr/blobview/pkg/scene"
	"github.com/taigrr/blobview/pkg/shape"
)

// Camera and orbit limits.
const (
	CameraFOV      = 45 * math.Pi / 180
	CameraNear     = 0.1
	CameraFar      = 10000
	MinDistance    = 50
	MaxDistance    = 250
	noticeLifetime = 4 * time.Second
)

// Debug overlay geometry.
const (
	gridSize   = 200
	gridStep   = 20
	axisLength = 30
)

var gridColor = render.RGB(70, 70, 90)

// CameraStart is where the camera begins, looking at the origin.
var CameraStart = math3d.V3(0, 0, 150)

// PedestalPosition places the pedestal model under the blob.
var PedestalPosition = math3d.V3(0, -7, 0)

// ErrUnknownMaterial is returned when selecting an id the registry lacks.
var ErrUnknownMaterial = errors.New("unknown material")

// Builder turns settings into a pivot holding the blob meshes. It runs on
// the rebuild worker and must not touch the scene.
type Builder func(ctx context.Context, s blob.Settings) (*scene.Group, blob.Result, error)

// BuildBlob generates the outline, wraps it in an SVG document and
// extrudes it.
func BuildBlob(ctx context.Context, s blob.Settings) (*scene.Group, blob.Result, error) {
	res, err := blob.Generate(s)
	if err != nil {
		return nil, blob.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, res, err
	}
	pivot, err := shape.Build(strings.NewReader(res.SVG()), nil, shape.BuildOptions{})
	if err != nil {
		return nil, res, fmt.Errorf("build blob seed %d: %w", res.Seed, err)
	}
	return pivot, res, nil
}

// Options configure a new Viewer.
type Options struct {
	Settings   blob.Settings
	Registry   *materials.Registry
	MaterialID string
	// Pedestal is added to the scene as is. Optional.
	Pedestal *scene.MeshNode
	// Background clears the frame unless EnvBackground is set and the
	// rasterizer has an environment map.
	Background    render.Color
	EnvBackground bool
	FPS           int
	// Problems are asset failures from startup, shown as a notice.
	Problems []error
	// Builder defaults to BuildBlob.
	Builder Builder
}

type rebuildRequest struct {
	gen      uint64
	settings blob.Settings
}

type rebuildResult struct {
	gen      uint64
	settings blob.Settings
	pivot    *scene.Group
	result   blob.Result
	err      error
}

// Viewer is the application state shared by every handler.
type Viewer struct {
	ViewState

	Settings blob.Settings
	Scene    *scene.Scene
	Camera   *render.Camera
	Controls *render.OrbitControls
	Registry *materials.Registry

	Background    render.Color
	EnvBackground bool

	pivot    *scene.Group
	built    blob.Settings // settings of the pivot on screen
	pedestal *scene.MeshNode
	active   string
	seed     int64

	notice   string
	noticeAt time.Time
	now      func() time.Time

	build    Builder
	gen      atomic.Uint64
	requests chan rebuildRequest
	results  chan rebuildResult
	pending  bool
	stale    int
	cancel   context.CancelFunc
	group    *errgroup.Group
}

// New creates a viewer with an empty scene. Call Start to run the rebuild
// worker and RebuildNow or RequestRebuild for the first blob.
func New(opts Options) (*Viewer, error) {
	if opts.Registry == nil || opts.Registry.Len() == 0 {
		return nil, errors.New("viewer: no materials")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	fps := opts.FPS
	if fps <= 0 {
		fps = 60
	}
	build := opts.Builder
	if build == nil {
		build = BuildBlob
	}

	camera := render.NewCamera()
	camera.SetFOV(CameraFOV)
	camera.SetClipPlanes(CameraNear, CameraFar)
	camera.SetPosition(CameraStart)
	camera.LookAt(math3d.Zero3())

	controls := render.NewOrbitControls(camera, math3d.Zero3(), fps)
	controls.MinDistance = MinDistance
	controls.MaxDistance = MaxDistance
	controls.MaxPolarAngle = math.Pi / 2
	controls.EnableDamping = true
	controls.EnableZoom = true
	controls.EnableRotate = true

	v := &Viewer{
		ViewState:     NewViewState(),
		Settings:      cloneSettings(opts.Settings),
		Scene:         scene.New(),
		Camera:        camera,
		Controls:      controls,
		Registry:      opts.Registry,
		Background:    opts.Background,
		EnvBackground: opts.EnvBackground,
		pedestal:      opts.Pedestal,
		now:           time.Now,
		build:         build,
		requests:      make(chan rebuildRequest, 1),
		results:       make(chan rebuildResult, 1),
	}

	v.active = opts.MaterialID
	if _, ok := v.Registry.Get(v.active); !ok {
		first := v.Registry.IDs()[0]
		if v.active != "" {
			v.notify("material %q not found, using %q", v.active, first)
		}
		v.active = first
	}

	v.ReportProblems(opts.Problems...)

	if v.pedestal != nil {
		v.pedestal.Position = PedestalPosition
		v.Scene.Add(v.pedestal)
	}
	return v, nil
}

// Start runs the rebuild worker until ctx is cancelled or Close is called.
func (v *Viewer) Start(ctx context.Context) {
	ctx, v.cancel = context.WithCancel(ctx)
	v.group, ctx = errgroup.WithContext(ctx)
	v.group.Go(func() error { return v.worker(ctx) })
}

// Close stops the worker and waits for it to exit.
func (v *Viewer) Close() error {
	if v.group == nil {
		return nil
	}
	v.cancel()
	err := v.group.Wait()
	v.group = nil
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (v *Viewer) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-v.requests:
			if req.gen != v.gen.Load() {
				continue
			}
			res := v.runBuild(ctx, req)
			select {
			case v.results <- res:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (v *Viewer) runBuild(ctx context.Context, req rebuildRequest) rebuildResult {
	start := time.Now()
	pivot, res, err := v.build(ctx, req.settings)
	log.LogVf("rebuild %d: growth=%v edges=%d seed=%d in %v err=%v",
		req.gen, req.settings.Growth, req.settings.Edges, res.Seed, time.Since(start), err)
	return rebuildResult{gen: req.gen, settings: req.settings, pivot: pivot, result: res, err: err}
}

// RequestRebuild queues a rebuild of the blob with the current settings.
// Any rebuild still queued or running is superseded.
func (v *Viewer) RequestRebuild() uint64 {
	req := rebuildRequest{gen: v.gen.Add(1), settings: cloneSettings(v.Settings)}
	v.pending = true
	for {
		select {
		case v.requests <- req:
			return req.gen
		default:
		}
		// replace the queued request; only the latest matters
		select {
		case <-v.requests:
		default:
		}
	}
}

// RebuildNow builds and applies the blob on the calling goroutine.
func (v *Viewer) RebuildNow(ctx context.Context) error {
	req := rebuildRequest{gen: v.gen.Add(1), settings: cloneSettings(v.Settings)}
	res := v.runBuild(ctx, req)
	if !v.apply(res) {
		return res.err
	}
	return nil
}

// Poll applies finished rebuilds. It never blocks and returns how many
// results were applied.
func (v *Viewer) Poll() int {
	applied := 0
	for {
		select {
		case res := <-v.results:
			if v.apply(res) {
				applied++
			}
		default:
			return applied
		}
	}
}

// apply swaps in the result's pivot if it is the latest request. Removal
// and insertion happen together so the scene never holds zero or two
// pivots once the first one is in.
func (v *Viewer) apply(res rebuildResult) bool {
	if latest := v.gen.Load(); res.gen != latest {
		v.stale++
		log.LogVf("dropping stale rebuild %d, latest is %d", res.gen, latest)
		return false
	}
	v.pending = false
	if res.err != nil {
		if v.pivot != nil {
			// keep the settings in step with the blob still shown
			v.Settings = cloneSettings(v.built)
		}
		v.notify("rebuild failed: %v", res.err)
		return false
	}
	mat, _ := v.Registry.Get(v.active)
	for _, m := range scene.Meshes(res.pivot) {
		m.SetMaterial(mat)
	}
	if v.pivot != nil {
		v.Scene.Remove(v.pivot)
	}
	v.Scene.Add(res.pivot)
	v.pivot = res.pivot
	v.seed = res.result.Seed
	if v.Settings.Seed == nil {
		v.Settings.Seed = blob.Seed(res.result.Seed)
	}
	v.built = cloneSettings(res.settings)
	v.built.Seed = blob.Seed(res.result.Seed)
	log.Infof("Blob rebuilt: growth=%v edges=%d seed=%d (%d triangles)",
		res.settings.Growth, res.settings.Edges, res.result.Seed, v.Triangles())
	return true
}

// SetGrowth changes the blob growth and queues a rebuild. Invalid values
// leave the settings and the current blob alone.
func (v *Viewer) SetGrowth(growth float64) error {
	next := v.Settings
	next.Growth = growth
	return v.update(next)
}

// SetEdges changes the blob edge count and queues a rebuild.
func (v *Viewer) SetEdges(edges int) error {
	next := v.Settings
	next.Edges = edges
	return v.update(next)
}

func (v *Viewer) update(next blob.Settings) error {
	if err := next.Validate(); err != nil {
		v.notify("%v", err)
		return err
	}
	v.Settings = next
	v.RequestRebuild()
	return nil
}

// Reseed drops the fixed seed and rebuilds, so the next blob gets a new
// random seed which is then kept.
func (v *Viewer) Reseed() {
	v.Settings.Seed = nil
	v.RequestRebuild()
}

// SelectMaterial puts the material id on every blob mesh without
// rebuilding geometry. The replaced material is disposed.
func (v *Viewer) SelectMaterial(id string) error {
	mat, ok := v.Registry.Get(id)
	if !ok {
		v.notify("no material %q", id)
		return fmt.Errorf("%w: %q", ErrUnknownMaterial, id)
	}
	v.active = id
	if v.pivot != nil {
		materials.SwapAll(scene.Meshes(v.pivot), mat)
	}
	log.Infof("Material: %s", id)
	return nil
}

// CycleMaterial selects the material step places away in manifest order.
func (v *Viewer) CycleMaterial(step int) {
	_ = v.SelectMaterial(v.Registry.Next(v.active, step))
}

// ActiveMaterial returns the selected material id.
func (v *Viewer) ActiveMaterial() string { return v.active }

// Pivot returns the current blob pivot, nil before the first build.
func (v *Viewer) Pivot() *scene.Group { return v.pivot }

// Seed returns the seed of the blob on screen.
func (v *Viewer) Seed() int64 { return v.seed }

// Pending reports whether a requested rebuild has not been applied yet.
func (v *Viewer) Pending() bool { return v.pending }

// Stale returns how many superseded rebuild results were dropped.
func (v *Viewer) Stale() int { return v.stale }

// Triangles counts the blob's triangles.
func (v *Viewer) Triangles() int {
	if v.pivot == nil {
		return 0
	}
	n := 0
	for _, m := range scene.Meshes(v.pivot) {
		n += m.Mesh.TriangleCount()
	}
	return n
}

// notify logs a message and shows it in the HUD for a few seconds.
func (v *Viewer) notify(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warnf("%s", msg)
	v.notice = msg
	v.noticeAt = v.now()
}

// ReportProblems shows asset failures as a notice. Several failures
// share one notice naming the first; the log has them all.
func (v *Viewer) ReportProblems(errs ...error) {
	var first error
	n := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		n++
	}
	switch {
	case n == 1:
		v.notify("%v", first)
	case n > 1:
		v.notify("%v (+%d more asset problems, see log)", first, n-1)
	}
}

// Notice returns the current HUD message, if one is still showing.
func (v *Viewer) Notice() (string, bool) {
	if v.notice == "" || v.now().Sub(v.noticeAt) > noticeLifetime {
		return "", false
	}
	return v.notice, true
}

// Resize adapts the camera to a new framebuffer size.
func (v *Viewer) Resize(width, height int) {
	if width > 0 && height > 0 {
		v.Camera.SetAspectRatio(float64(width) / float64(height))
	}
}

// Draw renders one frame into fb. Call Controls.Update first.
func (v *Viewer) Draw(r *render.Rasterizer, fb *render.Framebuffer) {
	bg := v.Background
	if v.EnvBackground && r.Env != nil {
		bg = r.Env.Background()
	}
	fb.Clear(bg)
	r.BeginFrame()
	r.LightDir = v.CurrentLight()

	v.Scene.Walk(func(n scene.Node, world math3d.Mat4) {
		m, ok := n.(*scene.MeshNode)
		if !ok || m.Mesh == nil {
			return
		}
		switch {
		case v.RenderMode == RenderModeWireframe:
			r.DrawMeshWireframe(m.Mesh, world, render.ColorXRay)
		case !v.TextureEnabled:
			r.DrawMeshGouraud(m.Mesh, world, flatColor, r.LightDir)
		default:
			r.DrawMeshMaterial(m.Mesh, world, m.Material())
		}
	})
	if v.ShowGrid {
		r.DrawGrid(gridSize, gridStep, PedestalPosition.Y, gridColor)
	}
	if v.ShowBounds && v.pivot != nil {
		r.DrawAxes(axisLength)
		r.DrawBox(scene.Bounds(v.pivot, math3d.Identity()), math3d.Identity(), render.ColorRed)
	}
}

func cloneSettings(s blob.Settings) blob.Settings {
	if s.Seed != nil {
		s.Seed = blob.Seed(*s.Seed)
	}
	return s
}
