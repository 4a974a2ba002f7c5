package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"exoplanet-classifier-be/internal/bootstrap"
	"exoplanet-classifier-be/internal/config"
	"exoplanet-classifier-be/internal/pkg/logger"
	"exoplanet-classifier-be/pkg/dataset"
	"exoplanet-classifier-be/pkg/embedding"
	"exoplanet-classifier-be/pkg/vectorstore"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newBuildStoreCmd() *cobra.Command {
	var (
		datasetPath string
		sessionID   string
	)
	cmd := &cobra.Command{
		Use:   "build-store",
		Short: "Embed a dataset and write its vector store bundle",
		Long: `Build a bundle offline with the configured embedding provider and store backend.
Without --session the default bundle is replaced. Running servers load the new
default on restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if datasetPath == "" {
				datasetPath = cfg.Data.DatasetPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return buildStore(ctx, cfg, datasetPath, sessionID)
		},
	}
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset CSV (default DATASET_PATH)")
	cmd.Flags().StringVar(&sessionID, "session", "", "build the bundle of this session instead of the default")
	return cmd
}

func buildStore(ctx context.Context, cfg *config.Config, datasetPath, sessionID string) error {
	log := logger.NewNopLogger()

	provider, err := bootstrap.NewEmbeddingProvider(cfg)
	if err != nil {
		return err
	}
	blobs, err := bootstrap.NewBlobStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	compression, err := vectorstore.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return err
	}

	rows, err := dataset.LoadFile(datasetPath)
	if err != nil {
		return err
	}

	key := vectorstore.DefaultKey
	if sessionID != "" {
		key = vectorstore.SessionKey(sessionID)
	}

	embedder := embedding.NewClient(provider, embedding.ClientOptions{
		BatchSize:         cfg.Ai.EmbeddingBatchSize,
		Timeout:           cfg.Ai.EmbeddingTimeout,
		RequestsPerSecond: cfg.Ai.EmbeddingRPS,
	})
	builder := vectorstore.NewBuilder(embedder, log)

	color.Cyan("building %s from %s (%d rows, %s)", key, datasetPath, len(rows), provider.Name())
	last := -1
	bundle, err := builder.Build(ctx, key, rows, func(percent int) {
		if percent/10 != last/10 {
			fmt.Printf("\r%3d%%", percent)
		}
		last = percent
	})
	fmt.Println()
	if err != nil {
		return err
	}

	if err := vectorstore.NewRepository(blobs, compression, log).Save(ctx, bundle); err != nil {
		return err
	}
	color.Green("saved %s with %d rows", key, bundle.Len())
	return nil
}
