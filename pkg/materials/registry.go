package materials

import (
	"context"
	"fmt"
	"runtime"

	"fortio.org/log"
	"golang.org/x/sync/errgroup"

	"github.com/taigrr/blobview/pkg/render"
)

// Material is the drawable surface the registry hands out.
type Material = render.Material

// AssetLoadError reports a texture or model file that could not be
// read or decoded.
type AssetLoadError struct {
	Path string
	Err  error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load asset %s: %v", e.Path, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// Loader reads one texture file.
type Loader interface {
	Load(ctx context.Context, path string) (*render.Texture, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (*render.Texture, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (*render.Texture, error) {
	return f(ctx, path)
}

// FileLoader decodes PNG and JPEG files from disk.
type FileLoader struct{}

func (FileLoader) Load(ctx context.Context, path string) (*render.Texture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return render.LoadTexture(path)
}

// Fallback colours for a colour map that failed to load.
var (
	checkerLight = render.RGB(200, 200, 200)
	checkerDark  = render.RGB(100, 100, 100)
)

// mapKind indexes the four texture slots of an entry.
type mapKind int

const (
	mapColor mapKind = iota
	mapNormal
	mapRoughness
	mapAmbient
	mapKinds
)

// Registry holds one material per manifest entry.
type Registry struct {
	ids       []string
	names     map[string]string
	materials map[string]*Material
	problems  []error
}

// NewRegistry builds every material up front, loading textures
// concurrently. A texture that cannot be loaded does not fail the
// registry: the map is left empty, or replaced by a checker for colour
// maps, and the failure is kept in Problems. The returned error is only
// set when ctx is cancelled.
func NewRegistry(ctx context.Context, m *Manifest, loader Loader) (*Registry, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if loader == nil {
		loader = FileLoader{}
	}

	textures := make([][mapKinds]*render.Texture, len(m.Material))
	failures := make([][mapKinds]error, len(m.Material))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range m.Material {
		paths := [mapKinds]string{e.ColorMap, e.NormalMap, e.RoughnessMap, e.AmbientMap}
		for k, p := range paths {
			if p == "" {
				continue
			}
			path := m.Resolve(p)
			g.Go(func() error {
				tex, err := loader.Load(gctx, path)
				if err != nil {
					if ctxErr := gctx.Err(); ctxErr != nil {
						return ctxErr
					}
					failures[i][k] = &AssetLoadError{Path: path, Err: err}
					return nil
				}
				textures[i][k] = tex
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load textures: %w", err)
	}

	r := &Registry{
		ids:       make([]string, 0, len(m.Material)),
		names:     make(map[string]string, len(m.Material)),
		materials: make(map[string]*Material, len(m.Material)),
	}
	for i, e := range m.Material {
		for _, err := range failures[i] {
			if err != nil {
				log.Warnf("material %s: %v", e.ID, err)
				r.problems = append(r.problems, err)
			}
		}
		r.ids = append(r.ids, e.ID)
		r.names[e.ID] = e.Label()
		r.materials[e.ID] = newMaterial(e, textures[i], failures[i][mapColor] != nil)
	}
	log.Infof("Loaded %d materials (%d asset problems)", len(r.ids), len(r.problems))
	return r, nil
}

func newMaterial(e Entry, tex [mapKinds]*render.Texture, colorFailed bool) *Material {
	mat := render.NewMaterial(e.ID, render.ColorWhite)
	mat.Repeat = e.RepeatFactor()

	color := tex[mapColor]
	if color == nil && colorFailed {
		color = render.NewCheckerTexture(64, 64, 8, checkerLight, checkerDark)
	}
	if color != nil {
		color.WrapU = render.WrapRepeat
		color.WrapV = render.WrapRepeat
	}
	for _, t := range tex {
		if t != nil {
			t.FilterMode = render.FilterBilinear
		}
	}
	mat.ColorMap = color
	mat.NormalMap = tex[mapNormal]
	mat.RoughnessMap = tex[mapRoughness]
	mat.AOMap = tex[mapAmbient]
	return mat
}

// Get returns the material for id. Unknown ids report false.
func (r *Registry) Get(id string) (*Material, bool) {
	m, ok := r.materials[id]
	return m, ok
}

// Name returns the display name for id.
func (r *Registry) Name(id string) string {
	return r.names[id]
}

// IDs returns the material ids in manifest order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// Len returns the number of materials.
func (r *Registry) Len() int { return len(r.ids) }

// Problems returns the asset failures seen while loading.
func (r *Registry) Problems() []error { return r.problems }

// Next returns the id after current, wrapping. An unknown current
// yields the first id.
func (r *Registry) Next(current string, step int) string {
	if len(r.ids) == 0 {
		return ""
	}
	for i, id := range r.ids {
		if id == current {
			n := len(r.ids)
			return r.ids[((i+step)%n+n)%n]
		}
	}
	return r.ids[0]
}
