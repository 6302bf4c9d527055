// Package config reads runtime settings from the environment and an optional
// YAML naming policy file.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/filestructor/structor/internal/naming"
	"github.com/filestructor/structor/internal/providers"
)

// Environment variables read by Load.
const (
	EnvProvider   = "STRUCTOR_PROVIDER"
	EnvModel      = "STRUCTOR_MODEL"
	EnvAPIKey     = "STRUCTOR_API_KEY"
	EnvPolicy     = "STRUCTOR_POLICY"
	EnvPolicyFile = "STRUCTOR_POLICY_FILE"
)

// Config holds the settings shared by the CLI and the web service.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	Policy   naming.Policy
}

// Load reads the environment. The policy comes from STRUCTOR_POLICY_FILE when
// set, otherwise from the STRUCTOR_POLICY preset (long by default).
func Load() (Config, error) {
	cfg := Config{
		Provider: strings.ToLower(os.Getenv(EnvProvider)),
		Model:    os.Getenv(EnvModel),
		APIKey:   os.Getenv(EnvAPIKey),
	}
	if cfg.Provider == "" {
		cfg.Provider = providers.NameOpenAI
	}
	if err := CheckProvider(cfg.Provider); err != nil {
		return cfg, err
	}

	var err error
	if path := os.Getenv(EnvPolicyFile); path != "" {
		cfg.Policy, err = LoadPolicyFile(path)
	} else {
		cfg.Policy, err = naming.PolicyByName(os.Getenv(EnvPolicy))
	}
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CheckProvider rejects provider names no provider is registered for.
func CheckProvider(name string) error {
	switch strings.ToLower(name) {
	case providers.NameOpenAI, providers.NameGemini, providers.NameOllama:
		return nil
	default:
		return fmt.Errorf("unsupported provider: %s", name)
	}
}

// LoadPolicyFile reads a YAML policy. Fields left out of the file keep the
// values of the preset named by its "name" field.
func LoadPolicyFile(path string) (naming.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return naming.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy on top of its base preset and validates it.
func ParsePolicy(data []byte) (naming.Policy, error) {
	var header struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return naming.Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}

	policy, err := naming.PolicyByName(header.Name)
	if err != nil {
		// custom names start from the long preset
		policy = naming.LongPolicy()
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return naming.Policy{}, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return naming.Policy{}, err
	}
	return policy, nil
}
