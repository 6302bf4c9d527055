package naming

import (
	"errors"
	"fmt"
	"strings"
)

// Casing controls how normalized words are capitalized.
type Casing string

const (
	// CasingTitle capitalizes every word.
	CasingTitle Casing = "title"
	// CasingSentence capitalizes only the first word.
	CasingSentence Casing = "sentence"
)

// Preset names accepted by PolicyByName.
const (
	PresetLong  = "long"
	PresetShort = "short"
)

// UntitledTitle is returned when no word survives normalization.
const UntitledTitle = "Untitled"

var (
	ErrInvalidPolicy = errors.New("invalid naming policy")
	ErrUnknownPreset = errors.New("unknown naming policy preset")
)

// Policy is the format contract applied to every title of a batch.
type Policy struct {
	Name         string   `yaml:"name"`
	MinWords     int      `yaml:"min_words"`
	MaxWords     int      `yaml:"max_words"`
	Casing       Casing   `yaml:"casing"`
	AllowPadding bool     `yaml:"allow_padding"`
	Filler       string   `yaml:"filler"`
	Vocabulary   []string `yaml:"vocabulary"`
	Denylist     []string `yaml:"denylist"`
	Stoplist     []string `yaml:"stoplist"`
}

// DefaultDenylist holds generic words that never describe the artwork itself.
var DefaultDenylist = []string{
	"abstract", "vector", "vectors", "graphic", "graphics", "design", "designs",
	"element", "elements", "shape", "shapes", "illustration", "illustrations",
	"template", "templates", "icon", "icons", "stock", "bundle", "collection",
	"file", "files", "pattern", "patterns", "svg", "eps", "ai", "png", "jpg",
	"jpeg", "pdf", "untitled", "copy", "final",
}

// DefaultStoplist holds English function words.
var DefaultStoplist = []string{
	"a", "an", "and", "the", "of", "in", "on", "at", "to", "for", "with", "by",
	"from", "or", "as", "is", "are", "was", "be", "this", "that", "these",
	"those", "it", "its", "into", "over", "under", "about", "here", "there",
	"title", "filename", "name", "words", "word",
}

// LongPolicy is the 12 to 15 word stock title format.
func LongPolicy() Policy {
	return Policy{
		Name:         PresetLong,
		MinWords:     12,
		MaxWords:     15,
		Casing:       CasingTitle,
		AllowPadding: true,
		Filler:       "nature",
		Vocabulary: []string{
			"winter", "snow", "family", "people", "outdoors", "silhouette",
			"scene", "landscape", "nature", "festival", "holiday", "night",
			"sky", "forest", "mountain",
		},
		Denylist: append([]string(nil), DefaultDenylist...),
		Stoplist: append([]string(nil), DefaultStoplist...),
	}
}

// ShortPolicy is the 5 to 8 word format. It never pads with generic words, so
// titles only carry words the oracle produced.
func ShortPolicy() Policy {
	return Policy{
		Name:         PresetShort,
		MinWords:     5,
		MaxWords:     8,
		Casing:       CasingSentence,
		AllowPadding: false,
		Filler:       "design",
		Denylist:     append([]string(nil), DefaultDenylist...),
		Stoplist:     append([]string(nil), DefaultStoplist...),
	}
}

// PolicyByName returns a preset policy.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetLong:
		return LongPolicy(), nil
	case PresetShort:
		return ShortPolicy(), nil
	default:
		return Policy{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
}

// Validate checks that the word-count band and casing are usable.
func (p Policy) Validate() error {
	if p.MinWords < 1 {
		return fmt.Errorf("%w: min_words must be at least 1, got %d", ErrInvalidPolicy, p.MinWords)
	}
	if p.MaxWords < p.MinWords {
		return fmt.Errorf("%w: max_words %d is below min_words %d", ErrInvalidPolicy, p.MaxWords, p.MinWords)
	}
	switch p.Casing {
	case CasingTitle, CasingSentence:
	default:
		return fmt.Errorf("%w: unsupported casing %q", ErrInvalidPolicy, p.Casing)
	}
	if p.AllowPadding && len(ExtractWords(p.Filler, nil, nil)) == 0 {
		return fmt.Errorf("%w: filler word required when padding is allowed", ErrInvalidPolicy)
	}
	return nil
}

func (p Policy) denySet() WordSet { return NewWordSet(p.Denylist...) }
func (p Policy) stopSet() WordSet { return NewWordSet(p.Stoplist...) }
