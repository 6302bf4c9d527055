// Package report writes rename manifests: what each file was called, what it
// is called now and how it got there.
package report

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/filestructor/structor/internal/batch"
	"github.com/filestructor/structor/internal/export"
)

// Row is one renamed (or failed) file.
type Row struct {
	Index     int64  `yaml:"index" parquet:"index"`
	Original  string `yaml:"original" parquet:"original"`
	Kind      string `yaml:"kind" parquet:"kind"`
	Status    string `yaml:"status" parquet:"status"`
	Title     string `yaml:"title,omitempty" parquet:"title,optional"`
	FinalName string `yaml:"final_name" parquet:"final_name"`
	Message   string `yaml:"message,omitempty" parquet:"message,optional"`
}

// RunConfig describes the run a manifest belongs to.
type RunConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model,omitempty"`
	Policy    string `yaml:"policy"`
	Source    string `yaml:"source,omitempty"`
	Timestamp string `yaml:"timestamp"`
}

// Summary counts outcomes.
type Summary struct {
	Total   int `yaml:"total"`
	Renamed int `yaml:"renamed"`
	Failed  int `yaml:"failed"`
	Pending int `yaml:"pending"`
}

// Manifest is the complete YAML document.
type Manifest struct {
	Config  RunConfig `yaml:"config"`
	Summary Summary   `yaml:"summary"`
	Rows    []Row     `yaml:"rows"`
}

// NewManifest builds a manifest from an orchestrator snapshot and the
// exported entries. Items are listed in batch order.
func NewManifest(config RunConfig, snap batch.Snapshot, entries []export.Entry) Manifest {
	if config.Timestamp == "" {
		config.Timestamp = time.Now().Format("2006-01-02_15-04-05")
	}

	m := Manifest{Config: config, Rows: Rows(snap, entries)}
	m.Summary.Total = len(m.Rows)
	for _, r := range m.Rows {
		switch r.Status {
		case "ok":
			m.Summary.Renamed++
		case "error":
			m.Summary.Failed++
		default:
			m.Summary.Pending++
		}
	}
	return m
}

// Rows flattens the items of snap. Final names come from entries when an
// entry exists for the item, so fallback names match the archive.
func Rows(snap batch.Snapshot, entries []export.Entry) []Row {
	finalNames := make(map[int]string, len(entries))
	for _, e := range entries {
		finalNames[e.Index] = e.FinalName
	}

	rows := make([]Row, 0, len(snap.Items))
	for _, item := range snap.Items {
		finalName := item.FinalName
		if name, ok := finalNames[item.Index]; ok {
			finalName = name
		}
		rows = append(rows, Row{
			Index:     int64(item.Index),
			Original:  item.Name,
			Kind:      string(item.Kind),
			Status:    item.Status.State.String(),
			Title:     item.Title,
			FinalName: finalName,
			Message:   item.Status.Message,
		})
	}
	return rows
}

// SaveYAML writes m to path, creating parent directories.
func SaveYAML(path string, m Manifest) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create YAML file: %w", err)
	}
	if err := EncodeYAML(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	slog.Info("Manifest saved", "path", path, "rows", len(m.Rows))
	return nil
}

// EncodeYAML writes m as a YAML document to w.
func EncodeYAML(w io.Writer, m Manifest) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&m); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return nil
}

// LoadYAML reads a manifest written by SaveYAML.
func LoadYAML(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}

// WriteParquet writes rows to a Parquet file at path.
func WriteParquet(path string, rows []Row) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}
	slog.Info("Parquet manifest saved", "path", path, "rows", len(rows))
	return nil
}

// ReadParquet reads the rows of a Parquet manifest.
func ReadParquet(path string) ([]Row, error) {
	slog.Debug("Opening Parquet file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, 0, pf.NumRows())
	buf := make([]Row, 128)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows, nil
}

// Save writes the manifest in the format named by the extension of path:
// .parquet for Parquet, anything else for YAML.
func Save(path string, m Manifest) error {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return WriteParquet(path, m.Rows)
	}
	return SaveYAML(path, m)
}
