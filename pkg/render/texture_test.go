package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	img.SetRGBA(1, 0, color.RGBA{0, 255, 0, 255})
	img.SetRGBA(0, 1, color.RGBA{0, 0, 255, 255})
	img.SetRGBA(1, 1, color.RGBA{255, 255, 255, 255})
	return img
}

func TestDecodeTextureFormats(t *testing.T) {
	tests := []struct {
		name   string
		encode func(*bytes.Buffer, image.Image) error
	}{
		{"png", func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }},
		{"bmp", func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, testImage()); err != nil {
				t.Fatalf("encode: %v", err)
			}
			tex, err := DecodeTexture(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tex.Width != 2 || tex.Height != 2 {
				t.Fatalf("size = %dx%d, want 2x2", tex.Width, tex.Height)
			}
			if got := tex.GetPixel(1, 0); got != ColorGreen {
				t.Errorf("pixel (1,0) = %v, want green", got)
			}
			if got := tex.GetPixel(0, 1); got != ColorBlue {
				t.Errorf("pixel (0,1) = %v, want blue", got)
			}
		})
	}
}

func TestDecodeTextureGarbage(t *testing.T) {
	if _, err := DecodeTexture(bytes.NewReader([]byte("not an image"))); err == nil {
		t.Fatal("expected error")
	}
}

func TestCheckerTexture(t *testing.T) {
	tex := NewCheckerTexture(8, 8, 4, ColorWhite, ColorBlack)
	if tex.GetPixel(0, 0) != ColorWhite || tex.GetPixel(4, 0) != ColorBlack || tex.GetPixel(4, 4) != ColorWhite {
		t.Error("unexpected checker layout")
	}
	if tex.GetPixel(-1, 0) != (Color{}) {
		t.Error("out of range pixel should be zero")
	}
}
