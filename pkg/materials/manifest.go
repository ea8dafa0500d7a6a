// Package materials loads the material manifest and keeps one ready
// material per entry, keyed by id.
package materials

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest is wrapped by every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid material manifest")

// Entry is one material description. Map paths are relative to the
// manifest's directory unless absolute.
type Entry struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	ColorMap     string   `json:"colormap" yaml:"colormap"`
	NormalMap    string   `json:"normalmap" yaml:"normalmap"`
	RoughnessMap string   `json:"roughnessmap" yaml:"roughnessmap"`
	AmbientMap   string   `json:"ambientmap" yaml:"ambientmap"`
	Repeat       *float64 `json:"repeat,omitempty" yaml:"repeat,omitempty"`
}

// RepeatFactor returns the tiling factor, 1 when unset.
func (e Entry) RepeatFactor() float64 {
	if e.Repeat == nil {
		return 1
	}
	return *e.Repeat
}

// Label is the display name, falling back to the id.
func (e Entry) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Manifest is the list of materials in file order.
type Manifest struct {
	Material []Entry `json:"material" yaml:"material"`

	// Dir resolves relative map paths. Set by LoadManifest.
	Dir string `json:"-" yaml:"-"`
}

// Format selects the manifest encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the encoding from a file name.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := ParseManifest(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Dir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// an empty document decodes to an empty manifest, which Validate rejects
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml manifest: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode json manifest: %w", err)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate rejects empty manifests, entries without an id, duplicate ids
// and non-positive repeat factors.
func (m *Manifest) Validate() error {
	if len(m.Material) == 0 {
		return fmt.Errorf("%w: no materials", ErrInvalidManifest)
	}
	seen := make(map[string]int, len(m.Material))
	for i, e := range m.Material {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: entry %d has no id", ErrInvalidManifest, i)
		}
		if j, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: entry %d reuses id %q from entry %d", ErrInvalidManifest, i, e.ID, j)
		}
		seen[e.ID] = i
		if e.Repeat != nil && !(*e.Repeat > 0) {
			return fmt.Errorf("%w: entry %q has repeat %v, want > 0", ErrInvalidManifest, e.ID, *e.Repeat)
		}
	}
	return nil
}

// Resolve returns path relative to the manifest directory.
func (m *Manifest) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || m.Dir == "" {
		return path
	}
	return filepath.Join(m.Dir, path)
}
