package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filestructor/structor/internal/oracle"
)

func newValidateCmd() *cobra.Command {
	var flags providerFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the provider credentials work",
		Long: `Checks the configured API key against the provider. For Gemini this also
picks the model the key can use, which is printed on success.`,
		Example: `  structor validate --provider gemini --key $GEMINI_API_KEY`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			svc := oracle.NewService(oracle.Config{
				Provider: cfg.Provider,
				Model:    cfg.Model,
				APIKey:   cfg.APIKey,
				Policy:   cfg.Policy,
			})
			if !svc.HasCredential() {
				return fmt.Errorf("missing API key for %s", svc.Provider())
			}

			model, err := svc.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if model == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", svc.Provider())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (%s)\n", svc.Provider(), model)
			}
			return nil
		},
	}

	flags.register(cmd, false)

	return cmd
}
