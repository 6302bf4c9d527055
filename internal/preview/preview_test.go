package preview

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/filestructor/structor/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestResize(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		expectedWidth  int
		expectedHeight int
	}{
		{"landscape", 1024, 512, 512, 256},
		{"portrait", 300, 1200, 128, 512},
		{"small stays", 100, 50, 100, 50},
		{"thin", 2000, 1, 512, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resize(pngBytes(t, tt.width, tt.height), MaxSize)
			if err != nil {
				t.Fatalf("Resize failed: %v", err)
			}
			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Expected PNG output: %v", err)
			}
			if cfg.Width != tt.expectedWidth || cfg.Height != tt.expectedHeight {
				t.Errorf("Expected %dx%d, got %dx%d", tt.expectedWidth, tt.expectedHeight, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestResizeRejectsGarbage(t *testing.T) {
	if _, err := Resize([]byte("not an image"), MaxSize); err == nil {
		t.Error("Expected decode error")
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Add("art/Fox.PNG", pngBytes(t, 800, 800))

	fox := models.ImportedFile{Name: "art/fox.svg", Kind: models.KindSVG}
	out, err := s.Preview(context.Background(), fox)
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Expected PNG preview: %v", err)
	}
	if cfg.Width != MaxSize {
		t.Errorf("Expected width %d, got %d", MaxSize, cfg.Width)
	}

	owl := models.ImportedFile{Name: "owl.eps", Kind: models.KindEPS}
	if out, err := s.Preview(context.Background(), owl); err != nil || out != nil {
		t.Errorf("Expected no preview for owl, got %d bytes, %v", len(out), err)
	}

	s.Release()
	if s.Len() != 0 {
		t.Errorf("Expected empty store after release, got %d", s.Len())
	}
	if out, _ := s.Preview(context.Background(), fox); out != nil {
		t.Error("Expected preview to be gone after release")
	}
}
