package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/filestructor/structor/internal/handlers"
)

func newServeCmd() *cobra.Command {
	var (
		port  string
		flags providerFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the batch rename HTTP API",
		Long: `Starts the Structor HTTP API on the specified port.

Clients upload a batch of vector files, start, pause, resume or stop it, poll
its progress, regenerate single titles and download the renamed files as a ZIP
archive. Provider flags set the defaults for batches that do not name their own.`,
		Example: `  # Start server on default port 8888
  structor serve

  # Start server on custom port with short titles
  structor serve --port 3000 --policy short`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}

			handler := handlers.New(cmd.Context(), cfg)

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Structor API available", "addr", addr, "url", "http://localhost"+addr, "provider", cfg.Provider, "policy", cfg.Policy.Name)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	flags.register(cmd, true)

	return cmd
}
