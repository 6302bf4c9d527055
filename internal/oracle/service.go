// Package oracle asks an LLM provider for a raw file title.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/filestructor/structor/internal/batch"
	"github.com/filestructor/structor/internal/gemini"
	"github.com/filestructor/structor/internal/naming"
	"github.com/filestructor/structor/internal/ollama"
	"github.com/filestructor/structor/internal/openai"
	"github.com/filestructor/structor/internal/providers"
)

const (
	// DefaultTemperature keeps suggestions close to the content.
	DefaultTemperature = 0.2
	// PromptSnippetLimit is how many characters of an SVG snippet go into the prompt.
	PromptSnippetLimit = 1200
)

// Config selects the provider and credential used for a batch.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	Temperature float64
	Policy      naming.Policy
}

// Service implements batch.Oracle on top of the registered providers.
type Service struct {
	config    Config
	providers map[string]providers.Provider
}

// NewService returns a Service with the OpenAI, Gemini and Ollama providers
// registered. An empty provider falls back to STRUCTOR_PROVIDER, then openai.
func NewService(config Config) *Service {
	if config.Provider == "" {
		config.Provider = os.Getenv("STRUCTOR_PROVIDER")
		if config.Provider == "" {
			config.Provider = providers.NameOpenAI
		}
	}
	config.Provider = strings.ToLower(config.Provider)
	if config.Model == "" {
		config.Model = DefaultModel(config.Provider)
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.Policy.MaxWords == 0 {
		config.Policy = naming.LongPolicy()
	}

	return &Service{
		config: config,
		providers: map[string]providers.Provider{
			providers.NameOpenAI: openai.New(),
			providers.NameGemini: gemini.New(),
			providers.NameOllama: ollama.New(),
		},
	}
}

// Register adds or replaces the provider used for name.
func (s *Service) Register(name string, p providers.Provider) {
	s.providers[strings.ToLower(name)] = p
}

// Provider returns the configured provider name.
func (s *Service) Provider() string {
	return s.config.Provider
}

// Model returns the configured model, "" when the provider picks one.
func (s *Service) Model() string {
	return s.config.Model
}

// HasCredential reports whether a request could carry a credential: a key
// configured on the service or in the provider's environment variable.
// Ollama needs none.
func (s *Service) HasCredential() bool {
	if s.config.APIKey != "" {
		return true
	}
	switch s.config.Provider {
	case providers.NameOpenAI:
		return os.Getenv("OPENAI_API_KEY") != ""
	case providers.NameGemini:
		return os.Getenv("GEMINI_API_KEY") != ""
	default:
		return true
	}
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case providers.NameOpenAI:
		model := os.Getenv("OPENAI_MODEL")
		if model == "" {
			return "gpt-4o-mini"
		}
		return model
	case providers.NameGemini:
		// empty lets the provider pick from the models the key can access
		return os.Getenv("GEMINI_MODEL")
	case providers.NameOllama:
		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			return "mistral-small3.2:24b"
		}
		return model
	default:
		return ""
	}
}

func (s *Service) provider() (providers.Provider, error) {
	p, ok := s.providers[s.config.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", s.config.Provider)
	}
	return p, nil
}

// Suggest asks the provider for a title for req.File and returns the cleaned
// response. The text is still untrusted and must go through naming.Normalize.
func (s *Service) Suggest(ctx context.Context, req batch.Request) (string, error) {
	p, err := s.provider()
	if err != nil {
		return "", err
	}

	raw, err := p.ExtractText(ctx, providers.Config{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		Prompt:      BuildPrompt(s.config.Policy, req),
		APIKey:      s.config.APIKey,
		Image:       req.Preview,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get suggestion from %s: %w", s.config.Provider, err)
	}

	text := CleanResponse(raw)
	if text == "" {
		return "", fmt.Errorf("%s: %w", s.config.Provider, providers.ErrEmptyResponse)
	}
	slog.Debug("Received suggestion", "provider", s.config.Provider, "file", req.File.Name, "length", len(text))
	return text, nil
}

// Validate checks the configured credential. It returns the model the
// provider resolved, which may differ from the configured one.
func (s *Service) Validate(ctx context.Context) (string, error) {
	p, err := s.provider()
	if err != nil {
		return "", err
	}
	v, ok := p.(providers.Validator)
	if !ok {
		return s.config.Model, nil
	}

	model, err := v.Validate(ctx, providers.Config{
		Model:       s.config.Model,
		Temperature: s.config.Temperature,
		APIKey:      s.config.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to validate %s credentials: %w", s.config.Provider, err)
	}
	slog.Info("Validated provider", "provider", s.config.Provider, "model", model)
	return model, nil
}

// BuildPrompt renders the request for one file with the policy's word band.
func BuildPrompt(policy naming.Policy, req batch.Request) string {
	var b strings.Builder
	b.WriteString("Return a descriptive filename TITLE for this file.\n")
	fmt.Fprintf(&b, "- %d to %d words.\n", policy.MinWords, policy.MaxWords)
	b.WriteString("- ONLY letters A-Z (no digits, no punctuation).\n")
	b.WriteString("- Words separated by SINGLE SPACE.\n")
	b.WriteString("- Generic, stock-ready, content-relevant.\n")
	if req.Preview != nil {
		b.WriteString("- A preview image of the file is attached.\n")
	}

	hint := req.Hint.Context
	if hint == "" {
		hint = req.File.Kind.Description()
	}
	fmt.Fprintf(&b, "Context hint: %s\n", hint)

	if snippet := truncateRunes(req.Hint.Snippet, PromptSnippetLimit); snippet != "" {
		b.WriteString("Snippet (truncated):\n")
		b.WriteString(snippet)
		b.WriteString("\n")
	}
	return b.String()
}

// CleanResponse strips markdown code fences, surrounding quotes and any
// "Title:" label a model adds around its answer.
func CleanResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```text")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if i := strings.IndexByte(response, ':'); i >= 0 && strings.EqualFold(strings.TrimSpace(response[:i]), "title") {
		response = strings.TrimSpace(response[i+1:])
	}
	return strings.Trim(response, "\"'` \n\t")
}

func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
