package config

import (
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/taigrr/blobview/pkg/blob"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.FPS != 60 {
		t.Errorf("FPS = %d, want 60", c.FPS)
	}
	if c.Material != "Wood_Herringbone_Tiles_003_SD" {
		t.Errorf("Material = %q", c.Material)
	}
	if c.Exposure != 0.8 {
		t.Errorf("Exposure = %v, want 0.8", c.Exposure)
	}
	want := blob.DefaultSettings()
	got := c.BlobSettings()
	if got.Size != want.Size || got.Growth != want.Growth || got.Edges != want.Edges {
		t.Errorf("BlobSettings = %+v, want %+v", got, want)
	}
	if got.Seed == nil || *got.Seed != *want.Seed {
		t.Errorf("seed = %v, want %d", got.Seed, *want.Seed)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadEnvError(t *testing.T) {
	t.Setenv("BLOBVIEW_FPS", "fast")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("BLOBVIEW_GROWTH", "12")
	t.Setenv("BLOBVIEW_EDGES", "9")
	t.Setenv("BLOBVIEW_SEED", "0")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	c.RegisterFlags(fs)
	if err := fs.Parse([]string{"-edges", "5", "-manifest", "m.yaml"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	if c.Growth != 12 {
		t.Errorf("Growth = %v, want env value 12", c.Growth)
	}
	if c.Edges != 5 {
		t.Errorf("Edges = %d, want flag value 5", c.Edges)
	}
	if c.Manifest != "m.yaml" {
		t.Errorf("Manifest = %q", c.Manifest)
	}
	if c.BlobSettings().Seed != nil {
		t.Error("seed 0 should leave the blob seed unset")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"fps", func(c *Config) { c.FPS = 0 }, "fps"},
		{"manifest", func(c *Config) { c.Manifest = "" }, "manifest"},
		{"exposure", func(c *Config) { c.Exposure = -1 }, "exposure"},
		{"edges", func(c *Config) { c.Edges = 0 }, "edges"},
		{"snapshot", func(c *Config) { c.Snapshot = "out.png"; c.SnapshotWidth = 0 }, "snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(&c)
			err = c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
