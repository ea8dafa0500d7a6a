// blobview - Terminal procedural blob viewer
// Generates a random blob outline, extrudes it into a slab resting on a
// pedestal model and lets you reshape and re-texture it live.
//
// Controls:
//
//	Mouse drag  - Orbit camera
//	Scroll      - Zoom in/out
//	W/S/A/D     - Orbit up/down/left/right
//	[ / ]       - Less/more growth
//	, / .       - Fewer/more edges
//	Space       - New random blob
//	N/P, 1-9    - Next/previous/numbered material
//	Click list  - Pick a material from the list on the left
//	R           - Reset view
//	T           - Toggle texture on/off
//	X           - Toggle wireframe mode (x-ray)
//	B           - Toggle bounding box and axes
//	G           - Toggle floor grid
//	L           - Light positioning mode (move mouse, click to set, Esc to cancel)
//	?           - Toggle HUD overlay
//	+/-         - Adjust zoom
//	Esc         - Quit (or cancel light mode)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"fortio.org/cli"
	"fortio.org/log"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/blobview/pkg/config"
	"github.com/taigrr/blobview/pkg/materials"
	"github.com/taigrr/blobview/pkg/models"
	"github.com/taigrr/blobview/pkg/render"
	"github.com/taigrr/blobview/pkg/scene"
	"github.com/taigrr/blobview/pkg/viewer"
)

var bgColor = flag.String("bg", "30,30,40", "Background color (R,G,B)")

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg.RegisterFlags(flag.CommandLine)
	envBackground := flag.Bool("env-bg", false, "Clear with the environment map's mean colour instead of -bg")
	cli.MinArgs = 0
	cli.MaxArgs = 0
	cli.Main()
	os.Exit(run(cfg, *envBackground))
}

// assets is everything loaded from disk before the viewer starts.
type assets struct {
	registry *materials.Registry
	env      *render.EnvironmentMap
	pedestal *scene.MeshNode
	problems []error
}

// loadAssets reads the manifest and textures. A broken manifest is fatal,
// a missing environment map or pedestal only costs the feature.
func loadAssets(ctx context.Context, cfg config.Config) (*assets, error) {
	manifest, err := materials.LoadManifest(cfg.Manifest)
	if err != nil {
		return nil, err
	}
	registry, err := materials.NewRegistry(ctx, manifest, materials.FileLoader{})
	if err != nil {
		return nil, err
	}
	a := &assets{registry: registry, problems: slices.Clone(registry.Problems())}

	if cfg.HDR != "" {
		env, err := render.LoadEnvironmentMap(cfg.HDR)
		if err != nil {
			aerr := &materials.AssetLoadError{Path: cfg.HDR, Err: err}
			log.Warnf("%v", aerr)
			a.problems = append(a.problems, aerr)
		} else {
			env.Exposure = cfg.Exposure
			a.env = env
			log.Infof("Environment: %s (%dx%d)", filepath.Base(cfg.HDR), env.Width, env.Height)
		}
	}

	if cfg.Model != "" {
		node, err := loadPedestal(cfg.Model)
		if err != nil {
			log.Warnf("%v", err)
			a.problems = append(a.problems, err)
		} else {
			a.pedestal = node
		}
	}
	return a, nil
}

func loadPedestal(path string) (*scene.MeshNode, error) {
	mesh, img, err := models.LoadGLBWithTexture(path)
	if err != nil {
		return nil, &materials.AssetLoadError{Path: path, Err: err}
	}
	mat := render.NewMaterial("pedestal", render.RGB(200, 200, 200))
	if img != nil {
		mat.ColorMap = render.TextureFromImage(img)
	}
	log.Infof("Loaded: %s (%d vertices, %d triangles)", filepath.Base(path), mesh.VertexCount(), mesh.TriangleCount())
	return scene.NewMeshNode("pedestal", mesh, mat), nil
}

func run(cfg config.Config, envBackground bool) int {
	if err := cfg.Validate(); err != nil {
		return log.FErrf("config: %v", err)
	}

	var bgR, bgG, bgB uint8 = 30, 30, 40
	fmt.Sscanf(*bgColor, "%d,%d,%d", &bgR, &bgG, &bgB)

	interactive := cfg.Snapshot == ""
	if interactive && cfg.LogFile != "" {
		// the terminal is ours while running
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return log.FErrf("open log: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := loadAssets(ctx, cfg)
	if err != nil {
		return log.FErrf("load assets: %v", err)
	}

	v, err := viewer.New(viewer.Options{
		Settings:      cfg.BlobSettings(),
		Registry:      a.registry,
		MaterialID:    cfg.Material,
		Pedestal:      a.pedestal,
		Background:    render.RGB(bgR, bgG, bgB),
		EnvBackground: envBackground,
		FPS:           cfg.FPS,
		Problems:      a.problems,
	})
	if err != nil {
		return log.FErrf("viewer: %v", err)
	}
	if err := v.RebuildNow(ctx); err != nil {
		return log.FErrf("build blob: %v", err)
	}

	if !interactive {
		if err := snapshot(v, a.env, cfg); err != nil {
			return log.FErrf("snapshot: %v", err)
		}
		log.Infof("Wrote %s", cfg.Snapshot)
		return 0
	}

	v.Start(ctx)
	defer func() {
		if err := v.Close(); err != nil {
			log.Errf("rebuild worker: %v", err)
		}
	}()

	if err := runTerminal(ctx, cancel, v, a.env, cfg.FPS); err != nil {
		return log.FErrf("%v", err)
	}
	return 0
}

// snapshot renders a single frame from slightly above the blob.
func snapshot(v *viewer.Viewer, env *render.EnvironmentMap, cfg config.Config) error {
	fb := render.NewFramebuffer(cfg.SnapshotWidth, cfg.SnapshotHeight)
	rasterizer := render.NewRasterizer(v.Camera, fb)
	rasterizer.Env = env
	v.Resize(fb.Width, fb.Height)

	v.Controls.Rotate(0, -0.02)
	for range cfg.FPS * 2 {
		v.Controls.Update()
	}
	v.Draw(rasterizer, fb)
	return fb.SavePNG(cfg.Snapshot)
}

// session is the interactive terminal state.
type session struct {
	term       *uv.Terminal
	v          *viewer.Viewer
	bindings   viewer.Bindings
	out        *render.TerminalRenderer
	fb         *render.Framebuffer
	rasterizer *render.Rasterizer

	width, height int
	mouseDown     bool
	lastX, lastY  int
	quit          context.CancelFunc
}

func runTerminal(ctx context.Context, quit context.CancelFunc, v *viewer.Viewer, env *render.EnvironmentMap, fps int) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}
	defer cleanup()

	s := &session{term: term, v: v, bindings: viewer.DefaultBindings(), quit: quit}
	s.resize(width, height)
	s.rasterizer.Env = env

	// Events are handed to the frame loop, which owns the viewer.
	events := make(chan uv.Event, 64)
	go func() {
		for ev := range term.Events() {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	hud := viewer.NewHUD()
	hudShown := v.ShowHUD
	targetDuration := time.Second / time.Duration(fps)

	for {
		now := time.Now()

	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				s.handle(ev)
			default:
				break drain
			}
		}

		if v.ShowHUD != hudShown {
			// the picker overlaps the scene; repaint it all
			s.term.Erase()
			hudShown = v.ShowHUD
		}

		v.Poll()
		v.Controls.Update()
		v.Draw(s.rasterizer, s.fb)

		s.out.Render(s.fb)
		if err := s.out.Flush(); err != nil {
			return fmt.Errorf("flush: %w", err)
		}

		// HUD overlay (always update FPS, render clears lines when HUD off)
		hud.UpdateFPS()
		hud.Render(os.Stdout, s.width, s.height, v)

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(targetDuration - elapsed):
			}
		}
	}
}

// resize reallocates the framebuffer for a width x height cell terminal.
func (s *session) resize(width, height int) {
	s.width, s.height = width, height
	s.out = render.NewTerminalRenderer(s.term, width, height)
	fbWidth, fbHeight := s.out.FramebufferSize()
	s.fb = render.NewFramebuffer(fbWidth, fbHeight)
	if s.rasterizer == nil {
		s.rasterizer = render.NewRasterizer(s.v.Camera, s.fb)
	} else {
		s.rasterizer.SetFramebuffer(s.fb)
	}
	s.v.Resize(fbWidth, fbHeight)
}

func (s *session) handle(ev uv.Event) {
	v := s.v
	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		s.term.Erase()
		s.term.Resize(ev.Width, ev.Height)
		s.resize(ev.Width, ev.Height)

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("escape"):
			if !v.CancelLight() {
				s.quit()
			}
		case ev.MatchString("ctrl+c"):
			s.quit()
		default:
			s.bindings.Dispatch(v, ev)
		}

	case uv.MouseClickEvent:
		switch {
		case v.LightMode:
			v.CommitLight()
		case viewer.PickMaterial(v, ev.X, ev.Y, s.height):
			// the picker took the click
		default:
			s.mouseDown = true
			s.lastX, s.lastY = ev.X, ev.Y
		}

	case uv.MouseReleaseEvent:
		s.mouseDown = false

	case uv.MouseMotionEvent:
		if v.LightMode {
			v.AimLight(ev.X, ev.Y, s.width, s.height)
		} else if s.mouseDown {
			v.MouseDrag(ev.X-s.lastX, ev.Y-s.lastY)
			s.lastX, s.lastY = ev.X, ev.Y
		}

	case uv.MouseWheelEvent:
		switch ev.Button {
		case uv.MouseWheelUp:
			v.MouseWheel(1)
		case uv.MouseWheelDown:
			v.MouseWheel(-1)
		}
	}
}
