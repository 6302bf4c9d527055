// Package importer collects vector files, and any raster previews shipped
// next to them, into an ordered batch.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/filestructor/structor/internal/models"
	"github.com/filestructor/structor/internal/preview"
)

// MaxFileSize is the largest file accepted, vector or preview.
const MaxFileSize = 50 * 1024 * 1024

var (
	ErrNoVectorFiles = errors.New("no SVG, EPS or AI files found")
	ErrFileTooLarge  = errors.New("file too large (max 50MB)")
)

// IsPreview reports whether name looks like a raster preview.
func IsPreview(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	default:
		return false
	}
}

// Dir walks root recursively and returns its vector files in path order.
// Names are relative to root. Raster files sharing a vector file's path
// and stem are added to previews when previews is not nil.
func Dir(root string, previews *preview.Store) ([]models.ImportedFile, error) {
	var files []models.ImportedFile
	rasters := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if IsPreview(rel) {
			rasters[stemPath(rel)] = path
			return nil
		}
		kind, ok := models.KindOf(rel)
		if !ok {
			slog.Debug("Skipping unsupported file", "path", rel)
			return nil
		}

		data, err := readFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		files = append(files, models.ImportedFile{
			Index: len(files),
			Name:  rel,
			Kind:  kind,
			Data:  data,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, ErrNoVectorFiles
	}

	if previews != nil {
		for _, f := range files {
			path, ok := rasters[stemPath(f.Name)]
			if !ok {
				continue
			}
			data, err := readFile(path)
			if err != nil {
				slog.Warn("Unable to read preview", "path", path, "err", err)
				continue
			}
			previews.Add(f.Name, data)
		}
	}

	slog.Info("Imported directory", "root", root, "files", len(files))
	return files, nil
}

// Multipart reads the "files" parts of an upload form. Parts whose names are
// not vector files are skipped. Parts under "previews" go to previews.
func Multipart(form *multipart.Form, previews *preview.Store) ([]models.ImportedFile, error) {
	var files []models.ImportedFile
	for _, header := range form.File["files"] {
		kind, ok := models.KindOf(header.Filename)
		if !ok {
			slog.Debug("Skipping unsupported upload", "filename", header.Filename)
			continue
		}
		data, err := readPart(header)
		if err != nil {
			return nil, err
		}
		files = append(files, models.ImportedFile{
			Index: len(files),
			Name:  filepath.Base(header.Filename),
			Kind:  kind,
			Data:  data,
		})
	}
	if len(files) == 0 {
		return nil, ErrNoVectorFiles
	}

	if previews != nil {
		for _, header := range form.File["previews"] {
			if !IsPreview(header.Filename) {
				continue
			}
			data, err := readPart(header)
			if err != nil {
				return nil, err
			}
			previews.Add(filepath.Base(header.Filename), data)
		}
	}
	return files, nil
}

func stemPath(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
	}
	return data, nil
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
