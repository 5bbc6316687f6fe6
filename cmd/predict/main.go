// Command predict scores one JSON observation against the trained model and
// prints exactly one JSON line. Failures are reported in that line; the
// process always exits normally.
//
// Usage:
//
//	predict '{"pm25": 25, "pm10": 35, "latitude": 40.7128, "longitude": -74.0060}'
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/air-quality-ml/internal/adapter/sqlstore"
	"github.com/couchcryptid/air-quality-ml/internal/adapter/stdout"
	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/config"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/observability"
	"github.com/couchcryptid/air-quality-ml/internal/pipeline"
)

var errUsage = errors.New("usage: predict '<json>'")

func main() {
	_ = newRootCmd(clockwork.NewRealClock()).Execute() //nolint:errcheck // errors are printed as JSON
}

func newRootCmd(clock clockwork.Clock) *cobra.Command {
	return &cobra.Command{
		Use:   "predict '<json>'",
		Short: "Predict AQI for one observation",
		// Argument count is checked in RunE so a usage error is still one JSON line.
		Args: cobra.ArbitraryArgs,
		// The observation may start with '-' and --help is just another argument.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			run(cmd.Context(), cmd.OutOrStdout(), args, clock)
			return nil
		},
	}
}

func run(ctx context.Context, out io.Writer, args []string, clock clockwork.Clock) {
	w := stdout.NewWriter(out)

	if len(args) != 1 {
		writeError(w, errUsage)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		writeError(w, err)
		return
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var recorder pipeline.PredictionRecorder
	if cfg.PredictionLog {
		rec, closeDB, err := openRecorder(ctx, cfg)
		if err != nil {
			logger.Warn("prediction log disabled", "error", err)
		} else {
			defer closeDB()
			recorder = rec
		}
	}

	predictor := pipeline.NewPredictor(
		artifact.NewStore(cfg.ModelDir),
		recorder,
		domain.StandardDefaults(),
		clock,
		logger,
		metrics,
	)

	res, err := predictor.PredictJSON(ctx, []byte(args[0]))
	if err != nil {
		logger.Debug("prediction failed", "error", err)
		writeError(w, err)
	} else if err := w.WriteResult(res); err != nil {
		logger.Error("write result", "error", err)
	}

	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.Warn("failed to write metrics", "path", cfg.MetricsFile, "error", err)
	}
}

// openRecorder connects to the database and makes sure the predictions table
// exists.
func openRecorder(ctx context.Context, cfg *config.Config) (*sqlstore.PredictionRecorder, func(), error) {
	db, err := sqlstore.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := sqlstore.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlstore.NewPredictionRecorder(db), func() { _ = db.Close() }, nil
}

func writeError(w *stdout.Writer, err error) {
	if werr := w.WriteError(err); werr != nil {
		slog.Error("write error response", "error", werr)
	}
}
