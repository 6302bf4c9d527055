package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/filestructor/structor/internal/batch"
	"github.com/filestructor/structor/internal/export"
	"github.com/filestructor/structor/internal/importer"
	"github.com/filestructor/structor/internal/oracle"
	"github.com/filestructor/structor/internal/preview"
	"github.com/filestructor/structor/internal/report"
)

func newRenameCmd() *cobra.Command {
	var (
		flags      providerFlags
		output     string
		manifest   string
		parquet    string
		noPreviews bool
	)

	cmd := &cobra.Command{
		Use:   "rename DIR",
		Short: "Rename every vector file under a directory",
		Long: `Imports the SVG, EPS and AI files under DIR, asks the LLM for a title for
each one, in path order, and writes the renamed files into a ZIP archive.

PNG, JPEG or GIF files sharing a vector file's name (fox.svg, fox.png) are sent
to the model as a preview image. Files that fail keep a name derived from their
original file name.`,
		Example: `  # Rename with OpenAI and the default 12-15 word policy
  structor rename ./artwork

  # Short titles with Gemini, plus a YAML manifest
  structor rename ./artwork --provider gemini --policy short --manifest renamed.yaml`,
		Args: cobra.ExactArgs(1),
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
				return fmt.Errorf("missing API key for %s: set --key or the provider's environment variable", svc.Provider())
			}

			var previews *preview.Store
			if !noPreviews {
				previews = preview.NewStore()
			}
			files, err := importer.Dir(args[0], previews)
			if err != nil {
				return err
			}

			events := make(chan batch.Event, 16)
			opts := []batch.Option{batch.WithObserver(func(ev batch.Event) { events <- ev })}
			if previews != nil {
				opts = append(opts, batch.WithPreviewer(previews))
			}
			orch := batch.New(svc, cfg.Policy, opts...)
			orch.Load(files)

			out := cmd.OutOrStdout()
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				defer close(events)
				return orch.Run(ctx)
			})
			g.Go(func() error {
				for ev := range events {
					switch ev.Kind {
					case batch.EventItemOK:
						fmt.Fprintf(out, "[%3d%%] %s -> %s\n", ev.Progress, ev.Name, ev.Title)
					case batch.EventItemError:
						fmt.Fprintf(out, "[%3d%%] %s failed: %v\n", ev.Progress, ev.Name, ev.Err)
					}
				}
				return nil
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("failed to run batch: %w", err)
			}

			snap := orch.Snapshot()
			entries := orch.Entries()
			if err := export.WriteZipFile(output, entries); err != nil {
				return err
			}
			fmt.Fprintf(out, "Renamed %d of %d files into %s\n", snap.Renamed, snap.Total, output)

			m := report.NewManifest(report.RunConfig{
				Provider: svc.Provider(),
				Model:    svc.Model(),
				Policy:   cfg.Policy.Name,
				Source:   args[0],
			}, snap, entries)
			if manifest != "" {
				if err := report.Save(manifest, m); err != nil {
					return err
				}
			}
			if parquet != "" {
				if err := report.WriteParquet(parquet, m.Rows); err != nil {
					return err
				}
			}

			if cmd.Context().Err() != nil {
				slog.Warn("Batch interrupted; unprocessed files keep their original names")
				return nil
			}
			if snap.Renamed < snap.Total {
				return fmt.Errorf("%d of %d files could not be renamed", snap.Total-snap.Renamed, snap.Total)
			}
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", export.DefaultArchiveName, "ZIP archive to write")
	cmd.Flags().StringVar(&manifest, "manifest", "", "Write a rename manifest (YAML, or Parquet for .parquet)")
	cmd.Flags().StringVar(&parquet, "parquet", "", "Write the manifest rows as a Parquet file")
	cmd.Flags().BoolVar(&noPreviews, "no-previews", false, "Do not send preview images to the model")

	return cmd
}
