package imageprocessing

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestFitCommand(t *testing.T) {
	if _, err := NewFitCommand(map[string]any{}); err == nil {
		t.Fatal("expected error for missing maxEdge")
	}

	tests := []struct {
		name          string
		width, height int
		maxEdge       float64
		wantW, wantH  int
	}{
		{"landscape", 80, 60, 40, 40, 30},
		{"portrait", 60, 120, 30, 15, 30},
		{"already small", 10, 8, 40, 10, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, err := NewFitCommand(map[string]any{"maxEdge": tt.maxEdge})
			if err != nil {
				t.Fatalf("NewFitCommand error: %v", err)
			}
			out, err := command.Execute(image.NewRGBA(image.Rect(0, 0, tt.width, tt.height)))
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Fatalf("expected %dx%d, got %v", tt.wantW, tt.wantH, out.Bounds())
			}
		})
	}
}

func TestCommandRegistry(t *testing.T) {
	registry := NewCommandRegistry()
	if err := registry.Register("", NewFitCommand); err == nil {
		t.Error("expected error for empty name")
	}
	if err := registry.Register("fit", nil); err == nil {
		t.Error("expected error for nil factory")
	}
	if err := registry.Register("fit", NewFitCommand); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := registry.Register("fit", NewFitCommand); err == nil {
		t.Error("expected error for duplicate registration")
	}
	if _, err := registry.Create("dither", nil); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestThumbnailer(t *testing.T) {
	thumbnailer, err := NewThumbnailer(32, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("NewThumbnailer error: %v", err)
	}
	out, err := thumbnailer.Execute(encodePNG(t, 120, 80))
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected jpeg output: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 21 {
		t.Fatalf("expected 32x21 thumbnail, got %v", img.Bounds())
	}

	if _, err := thumbnailer.Execute([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}
