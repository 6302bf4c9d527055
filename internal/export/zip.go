package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DefaultArchiveName is the file name offered for downloads.
const DefaultArchiveName = "renamed_files.zip"

// Entry is one file of the export: its original name and bytes and the name
// it is stored under.
type Entry struct {
	Index     int
	Original  string
	FinalName string
	Data      []byte
}

// FinalName joins a resolved title with the original extension.
func FinalName(title, ext string) string {
	if ext == "" {
		return title
	}
	return title + "." + ext
}

// WriteZip writes entries, in order, into a ZIP archive on w. File content is
// stored byte for byte.
func WriteZip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.FinalName]; dup {
			_ = zw.Close()
			return fmt.Errorf("duplicate archive entry: %s", e.FinalName)
		}
		seen[e.FinalName] = struct{}{}

		hdr := &zip.FileHeader{
			Name:     e.FinalName,
			Method:   zip.Deflate,
			Modified: time.Now(),
		}
		fw, err := zw.CreateHeader(hdr)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("failed to create archive entry %s: %w", e.FinalName, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("failed to write archive entry %s: %w", e.FinalName, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// WriteZipFile writes the archive to path, creating parent directories.
func WriteZipFile(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := WriteZip(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
