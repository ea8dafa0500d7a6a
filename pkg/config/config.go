// Package config resolves blobview settings from the environment and
// command line flags. Environment variables set the defaults, flags
// override them.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/taigrr/blobview/pkg/blob"
)

// Config is everything the viewer needs to start.
type Config struct {
	FPS      int     `env:"BLOBVIEW_FPS" envDefault:"60"`
	Manifest string  `env:"BLOBVIEW_MANIFEST" envDefault:"assets/material.json"`
	Material string  `env:"BLOBVIEW_MATERIAL" envDefault:"Wood_Herringbone_Tiles_003_SD"`
	Model    string  `env:"BLOBVIEW_MODEL" envDefault:"assets/unilegs.glb"`
	HDR      string  `env:"BLOBVIEW_HDR" envDefault:"assets/hdr/studio.hdr"`
	Exposure float64 `env:"BLOBVIEW_EXPOSURE" envDefault:"0.8"`
	LogFile  string  `env:"BLOBVIEW_LOG" envDefault:"blobview.log"`

	Size   float64 `env:"BLOBVIEW_SIZE" envDefault:"100"`
	Growth float64 `env:"BLOBVIEW_GROWTH" envDefault:"8"`
	Edges  int     `env:"BLOBVIEW_EDGES" envDefault:"20"`
	// Seed 0 draws a random seed.
	Seed int64 `env:"BLOBVIEW_SEED" envDefault:"44060"`

	// Snapshot renders one frame to this PNG and exits instead of
	// opening the terminal.
	Snapshot       string `env:"BLOBVIEW_SNAPSHOT"`
	SnapshotWidth  int    `env:"BLOBVIEW_SNAPSHOT_WIDTH" envDefault:"320"`
	SnapshotHeight int    `env:"BLOBVIEW_SNAPSHOT_HEIGHT" envDefault:"180"`
}

// Load reads the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// RegisterFlags binds flags to c, using its current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.FPS, "fps", c.FPS, "Target FPS")
	fs.StringVar(&c.Manifest, "manifest", c.Manifest, "Material manifest (`json or yaml`)")
	fs.StringVar(&c.Material, "material", c.Material, "Initial material `id`")
	fs.StringVar(&c.Model, "model", c.Model, "Pedestal model (glb), empty to skip")
	fs.StringVar(&c.HDR, "hdr", c.HDR, "Radiance HDR environment map, empty for a flat studio light")
	fs.Float64Var(&c.Exposure, "exposure", c.Exposure, "Tone mapping exposure")
	fs.StringVar(&c.LogFile, "log", c.LogFile, "Log file (the terminal is busy drawing)")
	fs.Float64Var(&c.Size, "size", c.Size, "Blob size")
	fs.Float64Var(&c.Growth, "growth", c.Growth, "Blob growth")
	fs.IntVar(&c.Edges, "edges", c.Edges, "Blob edge count")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "Blob seed, 0 for random")
	fs.StringVar(&c.Snapshot, "snapshot", c.Snapshot, "Render one frame to this PNG and exit")
	fs.IntVar(&c.SnapshotWidth, "snapshot-width", c.SnapshotWidth, "Snapshot width in pixels")
	fs.IntVar(&c.SnapshotHeight, "snapshot-height", c.SnapshotHeight, "Snapshot height in pixels")
}

// Validate checks values the blob generator does not.
func (c Config) Validate() error {
	var errs []error
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.Manifest == "" {
		errs = append(errs, errors.New("manifest path is required"))
	}
	if !(c.Exposure > 0) {
		errs = append(errs, fmt.Errorf("exposure must be positive, got %v", c.Exposure))
	}
	if c.Snapshot != "" && (c.SnapshotWidth <= 0 || c.SnapshotHeight <= 0) {
		errs = append(errs, fmt.Errorf("snapshot size %dx%d is not positive", c.SnapshotWidth, c.SnapshotHeight))
	}
	if err := c.BlobSettings().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// BlobSettings converts the blob fields.
func (c Config) BlobSettings() blob.Settings {
	s := blob.Settings{Size: c.Size, Growth: c.Growth, Edges: c.Edges}
	if c.Seed != 0 {
		s.Seed = blob.Seed(c.Seed)
	}
	return s
}
