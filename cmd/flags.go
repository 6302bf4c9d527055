package cmd

import (
	"github.com/spf13/cobra"

	"github.com/filestructor/structor/internal/config"
	"github.com/filestructor/structor/internal/naming"
)

// providerFlags are the provider and policy overrides shared by commands.
type providerFlags struct {
	provider   string
	model      string
	key        string
	policy     string
	policyFile string
}

func (f *providerFlags) register(cmd *cobra.Command, withPolicy bool) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "LLM provider (openai, gemini, ollama); defaults to $STRUCTOR_PROVIDER or openai")
	cmd.Flags().StringVar(&f.model, "model", "", "Model to use; defaults per provider")
	cmd.Flags().StringVar(&f.key, "key", "", "API key; defaults to the provider's environment variable")
	if withPolicy {
		cmd.Flags().StringVar(&f.policy, "policy", "", "Naming policy preset (long, short)")
		cmd.Flags().StringVar(&f.policyFile, "policy-file", "", "YAML naming policy file")
	}
}

// load reads the environment configuration and applies the flags on top.
func (f *providerFlags) load() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if f.provider != "" {
		if err := config.CheckProvider(f.provider); err != nil {
			return cfg, err
		}
		if f.provider != cfg.Provider {
			// a model configured for another provider does not apply
			cfg.Model = ""
		}
		cfg.Provider = f.provider
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.key != "" {
		cfg.APIKey = f.key
	}

	switch {
	case f.policyFile != "":
		cfg.Policy, err = config.LoadPolicyFile(f.policyFile)
	case f.policy != "":
		cfg.Policy, err = naming.PolicyByName(f.policy)
	}
	return cfg, err
}
