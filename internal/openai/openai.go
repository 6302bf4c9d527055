package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/filestructor/structor/internal/providers"
)

// DefaultBaseURL is the OpenAI REST endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// OpenAI is a provider for OpenAI
type OpenAI struct {
	BaseURL string
	Client  *http.Client
}

// New returns a new OpenAI provider
func New() *OpenAI {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &OpenAI{BaseURL: baseURL, Client: &http.Client{}}
}

func apiKey(config providers.Config) (string, error) {
	if config.APIKey != "" {
		return config.APIKey, nil
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: OPENAI_API_KEY environment variable not set", providers.ErrMissingAPIKey)
}

// ExtractText sends the prompt, and the preview image when present, to the
// chat completions endpoint and returns the first choice.
func (o *OpenAI) ExtractText(ctx context.Context, config providers.Config) (string, error) {
	key, err := apiKey(config)
	if err != nil {
		return "", err
	}

	var content any = config.Prompt
	if len(config.Image) > 0 {
		content = []map[string]any{
			{"type": "text", "text": config.Prompt},
			{
				"type": "image_url",
				"image_url": map[string]string{
					"url": "data:image/png;base64," + base64.StdEncoding.EncodeToString(config.Image),
				},
			},
		}
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model": config.Model,
		"messages": []map[string]any{
			{
				"role":    "user",
				"content": content,
			},
		},
		"temperature": config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	return response.Choices[0].Message.Content, nil
}

// Validate checks the key by listing models.
func (o *OpenAI) Validate(ctx context.Context, config providers.Config) (string, error) {
	key, err := apiKey(config)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", o.BaseURL+"/models", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}
	return config.Model, nil
}
