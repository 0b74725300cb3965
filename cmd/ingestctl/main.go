// Command ingestctl inspects and ingests presentation decks from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/api"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/pptx"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/services"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "ingestctl",
		Short:         "Inspect and ingest presentation decks",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	root.AddCommand(newInspectCmd(), newIngestCmd(), newServeCmd())
	return root
}

// inspection is what inspect prints.
type inspection struct {
	Metadata        models.PresentationMetadata `json:"metadata"`
	Slides          []models.SlideRecord        `json:"slides"`
	DefaultedFields int                         `json:"defaultedFields"`
	SkippedEntries  int                         `json:"skippedEntries,omitempty"`
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.pptx>",
		Short: "Print extracted metadata and slide records without storing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			result, err := inspect(cmd.Context(), data)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
}

func inspect(ctx context.Context, data []byte) (*inspection, error) {
	c, err := pptx.Open(data)
	if err != nil {
		return nil, err
	}
	meta, stats := pptx.ExtractMetadata(ctx, c, slog.Default())
	slides := pptx.ClassifySlides(ctx, c, pptx.DefaultSlideConcurrency, slog.Default())
	return &inspection{
		Metadata:        meta,
		Slides:          slides,
		DefaultedFields: stats.DefaultedFields,
		SkippedEntries:  c.Skipped(),
	}, nil
}

func newIngestCmd() *cobra.Command {
	var productID, storageDir, dbPath string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a deck into local storage and a SQLite repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(productID) == "" {
				return fmt.Errorf("--product is required")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Storage.Backend = config.StorageLocal
			cfg.Storage.LocalDir = storageDir
			cfg.Repository.Backend = config.RepositorySQLite
			cfg.Repository.SQLitePath = dbPath

			ingestor, closeFn, err := services.NewIngestorFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := ingestor.Process(cmd.Context(), models.IngestRequest{
				ProductID: productID,
				Filename:  filepath.Base(args[0]),
				Payload:   data,
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&productID, "product", "p", "", "product ID the deck belongs to")
	cmd.Flags().StringVar(&storageDir, "storage-dir", "data/storage", "local storage root")
	cmd.Flags().StringVar(&dbPath, "db", "data/presentations.db", "SQLite database path")
	return cmd
}

func newServeCmd() *cobra.Command {
	var staticPrefix string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the configured backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ingestor, closeFn, err := services.NewIngestorFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			var opts []api.Option
			if cfg.Storage.Backend == config.StorageLocal && staticPrefix != "" {
				opts = append(opts, api.WithStaticDir(staticPrefix, cfg.Storage.LocalDir))
			}
			addr := ":" + cfg.Port
			slog.Info("Starting REST API server.", "addr", addr, "storageBackend", cfg.Storage.Backend)
			return api.NewServer(ingestor, opts...).Run(addr)
		},
	}
	cmd.Flags().StringVar(&staticPrefix, "static-prefix", "/assets", "route serving local storage; empty disables it")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
