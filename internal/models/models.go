package models

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind is the vector format of an imported file, inferred from its extension.
type Kind string

const (
	KindSVG Kind = "svg"
	KindEPS Kind = "eps"
	KindAI  Kind = "ai"
)

// SnippetLimit is how many leading bytes of an SVG are kept as text hint.
const SnippetLimit = 8000

// KindOf infers the vector kind from a file name.
func KindOf(name string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".svg":
		return KindSVG, true
	case ".eps":
		return KindEPS, true
	case ".ai":
		return KindAI, true
	default:
		return "", false
	}
}

// Description is the context hint handed to the oracle for this kind.
func (k Kind) Description() string {
	switch k {
	case KindSVG:
		return "SVG vector graphic content (XML)."
	case KindEPS:
		return "EPS vector graphic (PostScript-based)."
	case KindAI:
		return "Adobe Illustrator vector graphic."
	default:
		return "Vector design file."
	}
}

// ImportedFile is one file of a batch. Data is never modified.
type ImportedFile struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
	Data  []byte `json:"-"`
}

// Stem returns the base name without its extension.
func (f ImportedFile) Stem() string {
	base := filepath.Base(f.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Ext returns the original extension without the dot, case preserved.
func (f ImportedFile) Ext() string {
	return strings.TrimPrefix(filepath.Ext(f.Name), ".")
}

// Snippet returns the leading text of an SVG file, or "" for other kinds.
func (f ImportedFile) Snippet() string {
	if f.Kind != KindSVG {
		return ""
	}
	data := f.Data
	if len(data) > SnippetLimit {
		data = data[:SnippetLimit]
	}
	// drop a rune split by the cut
	for i := 0; i < utf8.UTFMax-1 && len(data) > 0; i++ {
		if r, size := utf8.DecodeLastRune(data); r != utf8.RuneError || size != 1 {
			break
		}
		data = data[:len(data)-1]
	}
	return string(data)
}

// NamingHint is fallback material derived from a file: words of its name and
// SVG text and, for SVG, a snippet of its markup.
type NamingHint struct {
	Words   []string `json:"words"`
	Snippet string   `json:"snippet,omitempty"`
	Context string   `json:"context"`
}

// Status is the processing state of one batch item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRenaming Status = "renaming"
	StatusOK       Status = "ok"
	StatusError    Status = "error"
)

func (s Status) String() string { return string(s) }

// ItemStatus is the status of one batch item; Message is set for StatusError.
type ItemStatus struct {
	State   Status `json:"state"`
	Message string `json:"message,omitempty"`
}
