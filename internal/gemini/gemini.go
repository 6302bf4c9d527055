package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/filestructor/structor/internal/providers"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FallbackModel is used when the model list cannot be read.
const FallbackModel = "gemini-1.5-flash-latest"

var preferredModels = []string{
	"models/gemini-1.5-flash-latest",
	"models/gemini-1.5-flash-001",
	"models/gemini-1.5-flash",
	"models/gemini-1.5-flash-8b",
	"models/gemini-2.0-flash",
	"models/gemini-2.0-flash-lite",
	"models/gemini-2.0-flash-exp",
	"models/gemini-1.5-pro",
	"models/gemini-2.0-pro",
}

var (
	anyFlash = regexp.MustCompile(`gemini-(1\.5|2\.0)-flash`)
	anyPro   = regexp.MustCompile(`gemini-(1\.5|2\.0)-pro`)
)

// ErrNoCompatibleModel is returned when the key has no usable Gemini model.
var ErrNoCompatibleModel = errors.New("gemini: no compatible model available for this key/project")

// Gemini is a provider for Google Gemini
type Gemini struct{}

// New returns a new Gemini provider
func New() *Gemini {
	return &Gemini{}
}

func (g *Gemini) newClient(ctx context.Context, config providers.Config) (*genai.Client, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY environment variable not set", providers.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	return client, nil
}

// ExtractText extracts text from the given prompt, and preview image when
// present, using Gemini
func (g *Gemini) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	client, err := g.newClient(ctx, config)
	if err != nil {
		return "", err
	}
	defer client.Close()

	modelID := config.Model
	if modelID == "" {
		if modelID, err = g.resolveModel(ctx, client); err != nil {
			return "", err
		}
	}

	model := client.GenerativeModel(modelID)
	model.SetTemperature(float32(config.Temperature))

	parts := []genai.Part{genai.Text(config.Prompt)}
	if len(config.Image) > 0 {
		parts = append(parts, genai.ImageData("png", config.Image))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return firstText(resp)
}

// Validate resolves a model for the key and asks it for a fixed answer.
func (g *Gemini) Validate(ctx context.Context, config providers.Config) (string, error) {
	client, err := g.newClient(ctx, config)
	if err != nil {
		return "", err
	}
	defer client.Close()

	modelID := config.Model
	if modelID == "" {
		if modelID, err = g.resolveModel(ctx, client); err != nil {
			return "", err
		}
	}

	resp, err := client.GenerativeModel(modelID).GenerateContent(ctx, genai.Text("Return only the word OK"))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text, err := firstText(resp)
	if err != nil {
		return "", err
	}
	if !strings.Contains(strings.ToUpper(text), "OK") {
		return "", fmt.Errorf("gemini key test failed for model %s", modelID)
	}
	return modelID, nil
}

func (g *Gemini) resolveModel(ctx context.Context, client *genai.Client) (string, error) {
	var names []string
	it := client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			slog.Warn("Unable to list Gemini models, using fallback", "model", FallbackModel, "err", err)
			return FallbackModel, nil
		}
		names = append(names, m.Name)
	}

	modelID, ok := PickModel(names)
	if !ok {
		return "", ErrNoCompatibleModel
	}
	slog.Debug("Picked Gemini model", "model", modelID)
	return modelID, nil
}

// PickModel chooses a model from the "models/..." names a key can access:
// a preferred model first, then any flash model, then any pro model.
func PickModel(names []string) (string, bool) {
	available := make(map[string]bool, len(names))
	for _, n := range names {
		available[n] = true
	}
	for _, want := range preferredModels {
		if available[want] {
			return strings.TrimPrefix(want, "models/"), true
		}
	}
	for _, re := range []*regexp.Regexp{anyFlash, anyPro} {
		for _, n := range names {
			if re.MatchString(n) {
				return strings.TrimPrefix(n, "models/"), true
			}
		}
	}
	return "", false
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}

	return "", fmt.Errorf("unexpected response format from Gemini")
}
