package naming

import (
	"strings"

	"github.com/filestructor/structor/internal/models"
)

// hintWordLimit caps the words handed to the fallback pool.
const hintWordLimit = 20

// snippetWordMin is the shortest snippet word kept as a hint.
const snippetWordMin = 3

// markupWords are SVG, XML and CSS vocabulary that show up in text nodes
// such as <style> blocks and say nothing about the picture.
var markupWords = NewWordSet(
	"svg", "xml", "xmlns", "xlink", "href", "http", "https", "www", "org", "w3",
	"version", "encoding", "utf", "doctype", "dtd", "public", "standalone",
	"viewbox", "width", "height", "fill", "stroke", "opacity", "none", "rgb",
	"path", "rect", "circle", "ellipse", "polygon", "polyline", "line", "use",
	"title", "desc", "defs", "style", "class", "id", "transform", "matrix",
	"translate", "scale", "rotate", "clip", "mask", "gradient", "stop", "offset",
	"font", "family", "size", "weight", "px", "pt", "inherit", "display",
	"cdata", "adobe", "illustrator", "generator", "inkscape", "sodipodi",
	"metadata", "rdf", "dc", "cc", "layer", "group", "image", "data", "base",
)

// Hint derives the fallback material for f. Words come from the file name
// stem first, then from the text content of the SVG snippet.
func Hint(f models.ImportedFile) models.NamingHint {
	snippet := f.Snippet()
	words := ExtractWords(f.Stem(), nil, nil)
	seen := NewWordSet(words...)
	for _, w := range ExtractWords(snippetText(snippet), markupWords, nil) {
		if len(words) >= hintWordLimit {
			break
		}
		if len(w) < snippetWordMin || seen.Has(w) {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	if len(words) > hintWordLimit {
		words = words[:hintWordLimit]
	}
	return models.NamingHint{
		Words:   words,
		Snippet: snippet,
		Context: f.Kind.Description(),
	}
}

// snippetText drops everything inside angle brackets and keeps the text
// between tags. A tag cut off by the snippet limit is dropped too.
func snippetText(snippet string) string {
	var b strings.Builder
	inTag := false
	for i := 0; i < len(snippet); i++ {
		switch c := snippet[i]; {
		case c == '<':
			inTag = true
			b.WriteByte(' ')
		case c == '>':
			inTag = false
		case !inTag:
			b.WriteByte(c)
		}
	}
	return b.String()
}
