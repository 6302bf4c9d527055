package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "structor",
		Short: "Batch rename vector graphics with LLM-suggested titles",
		Long: `Structor renames SVG, EPS and AI files using titles suggested by an LLM.

Every suggestion is normalized into a strict naming policy (word count, casing,
letters only) and made unique within the batch before the files are packaged
into a ZIP archive.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if verbose {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
			slog.SetDefault(logger)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newValidateCmd())

	return cmd
}
