// Package preview keeps raster previews of vector files and prepares them
// for vision-capable providers.
package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/draw"

	"github.com/filestructor/structor/internal/models"
)

// MaxSize is the longest edge, in pixels, of a preview sent to a provider.
const MaxSize = 512

// Store holds previews keyed by the path of the vector file they belong to
// without its extension, so "art/fox.png" is the preview of "art/fox.svg".
// It implements batch.Previewer and batch.Releaser.
type Store struct {
	mu      sync.Mutex
	raw     map[string][]byte
	resized map[string][]byte
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		raw:     make(map[string][]byte),
		resized: make(map[string][]byte),
	}
}

func key(name string) string {
	name = filepath.ToSlash(name)
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

// Add registers the preview image named name. Any format the image package
// decodes is accepted; it is converted when first requested.
func (s *Store) Add(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name)
	s.raw[k] = data
	delete(s.resized, k)
}

// Len returns the number of stored previews.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raw)
}

// Preview returns the downscaled PNG preview for f, or nil when none was added.
func (s *Store) Preview(ctx context.Context, f models.ImportedFile) ([]byte, error) {
	k := key(f.Name)

	s.mu.Lock()
	if out, ok := s.resized[k]; ok {
		s.mu.Unlock()
		return out, nil
	}
	data, ok := s.raw[k]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := Resize(data, MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare preview for %s: %w", f.Name, err)
	}

	s.mu.Lock()
	if _, still := s.raw[k]; still {
		s.resized[k] = out
	}
	s.mu.Unlock()
	slog.Debug("Prepared preview", "file", f.Name, "bytes", len(out))
	return out, nil
}

// Release drops every stored preview.
func (s *Store) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = make(map[string][]byte)
	s.resized = make(map[string][]byte)
}

// Resize scales the image in data so that neither edge exceeds maxSize,
// keeping the aspect ratio, and encodes the result as PNG. Smaller images
// are re-encoded unscaled.
func Resize(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxSize || height > maxSize {
		if width >= height {
			height = max(1, height*maxSize/width)
			width = maxSize
		} else {
			width = max(1, width*maxSize/height)
			height = maxSize
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
