// Command train fits the AQI model on historical measurements and writes the
// model, scaler and feature contract to MODEL_DIR.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/air-quality-ml/internal/adapter/sqlstore"
	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/config"
	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/model"
	"github.com/couchcryptid/air-quality-ml/internal/observability"
	"github.com/couchcryptid/air-quality-ml/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "train",
		Short:        "Train the AQI regression model",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func run(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		logger.Error("failed to open data source", "error", err)
		return err
	}
	defer closeSource()

	params := model.DefaultForestParams()
	params.Trees = cfg.ForestTrees
	params.MaxDepth = cfg.ForestMaxDepth
	params.MinSamplesSplit = cfg.ForestMinSamplesSplit
	params.Workers = cfg.ForestWorkers
	params.Seed = cfg.TrainSeed

	trainer := pipeline.NewTrainer(
		source,
		artifact.NewStore(cfg.ModelDir),
		pipeline.TrainOptions{TestFraction: cfg.TrainTestFraction, Forest: params},
		clockwork.NewRealClock(),
		logger,
		metrics,
	)

	report, err := trainer.Run(ctx)
	if err != nil {
		logger.Error("training failed", "error", err)
		return err
	}

	fmt.Fprintln(out, "Model Performance:")
	fmt.Fprintf(out, "Mean Absolute Error: %.2f\n", report.Evaluation.MAE)
	fmt.Fprintf(out, "R² Score: %.3f\n", report.Evaluation.R2)
	fmt.Fprintln(out, "Model saved successfully!")

	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("failed to write metrics", "path", cfg.MetricsFile, "error", err)
	}
	return nil
}

// openSource returns the configured history source and a release func.
func openSource(ctx context.Context, cfg *config.Config) (pipeline.HistorySource, func(), error) {
	if cfg.DataSource == config.SourceCSV {
		return dataset.NewCSVSource(cfg.DataPath), func() {}, nil
	}

	db, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return sqlstore.NewHistoryReader(db), func() { _ = db.Close() }, nil
}
