package providers

import (
	"context"
	"errors"
)

// Provider names accepted across the CLI, config and HTTP API.
const (
	NameOpenAI = "openai"
	NameGemini = "gemini"
	NameOllama = "ollama"
)

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrEmptyResponse = errors.New("empty response from provider")
)

// Config represents the configuration for one LLM request
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	APIKey      string
	// Image is an optional PNG sent along with the prompt.
	Image []byte
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}

// Validator is implemented by providers that can check a credential. It
// returns the model the credential resolved to, if any.
type Validator interface {
	Validate(ctx context.Context, config Config) (string, error)
}
