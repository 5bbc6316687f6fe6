package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/model"
	"github.com/couchcryptid/air-quality-ml/internal/observability"
)

// TrainOptions configures one training run.
type TrainOptions struct {
	TestFraction float64
	Forest       model.ForestParams
}

// Trainer fits a scaler and forest on historical data and persists them with
// the feature contract. It is the only producer of a contract.
type Trainer struct {
	source  HistorySource
	saver   ArtifactSaver
	opts    TrainOptions
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTrainer wires a Trainer. A nil clock uses real time.
func NewTrainer(source HistorySource, saver ArtifactSaver, opts TrainOptions, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Trainer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Trainer{
		source:  source,
		saver:   saver,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// TrainReport summarises a completed run.
type TrainReport struct {
	TrainRows  int
	TestRows   int
	Evaluation model.Evaluation
	Manifest   *artifact.Manifest
}

// Run loads history, splits it, fits the scaler on the training partition
// only, fits the forest, evaluates on the held-out partition and saves the
// artifact.
func (t *Trainer) Run(ctx context.Context) (TrainReport, error) {
	start := t.clock.Now()
	contract := domain.CanonicalContract()

	t.logger.Info("loading history", "source", t.source.Describe())
	records, err := t.source.LoadHistory(ctx)
	if err != nil {
		return TrainReport{}, fmt.Errorf("load history: %w", err)
	}

	rows, targets, err := dataset.Frame(records, contract)
	if err != nil {
		return TrainReport{}, fmt.Errorf("build features: %w", err)
	}
	x, err := model.NewMatrix(rows)
	if err != nil {
		return TrainReport{}, err
	}

	trainIdx, testIdx, err := model.TrainTestSplit(len(rows), t.opts.TestFraction, t.opts.Forest.Seed)
	if err != nil {
		return TrainReport{}, fmt.Errorf("split: %w", err)
	}
	xTrain, yTrain := model.SelectRows(x, trainIdx), model.SelectValues(targets, trainIdx)
	xTest, yTest := model.SelectRows(x, testIdx), model.SelectValues(targets, testIdx)
	t.logger.Info("split dataset", "train_rows", len(trainIdx), "test_rows", len(testIdx))

	scaler, err := model.FitStandardScaler(xTrain)
	if err != nil {
		return TrainReport{}, fmt.Errorf("fit scaler: %w", err)
	}
	xTrainScaled, err := scaler.Transform(xTrain)
	if err != nil {
		return TrainReport{}, err
	}
	xTestScaled, err := scaler.Transform(xTest)
	if err != nil {
		return TrainReport{}, err
	}

	t.logger.Info("fitting forest",
		"trees", t.opts.Forest.Trees,
		"max_depth", t.opts.Forest.MaxDepth,
		"min_samples_split", t.opts.Forest.MinSamplesSplit,
		"seed", t.opts.Forest.Seed,
	)
	forest, err := model.FitForest(ctx, xTrainScaled, yTrain, t.opts.Forest)
	if err != nil {
		return TrainReport{}, err
	}

	predicted, err := forest.Predict(xTestScaled)
	if err != nil {
		return TrainReport{}, err
	}
	eval, err := model.Evaluate(yTest, predicted)
	if err != nil {
		return TrainReport{}, fmt.Errorf("evaluate: %w", err)
	}

	now := t.clock.Now()
	manifest := artifact.NewManifest(now, t.source.Describe())
	manifest.TrainRows = len(trainIdx)
	manifest.TestRows = len(testIdx)
	manifest.Seed = t.opts.Forest.Seed
	manifest.Forest = artifact.ForestSummary{
		Trees:           t.opts.Forest.Trees,
		MaxDepth:        t.opts.Forest.MaxDepth,
		MinSamplesSplit: t.opts.Forest.MinSamplesSplit,
	}
	manifest.Evaluation = eval
	manifest.Features = contract.Names()

	a := &artifact.Artifact{Scaler: scaler, Model: forest, Contract: contract, Manifest: manifest}
	if err := t.saver.Save(a); err != nil {
		return TrainReport{}, fmt.Errorf("save artifact: %w", err)
	}

	elapsed := now.Sub(start)
	t.metrics.TrainingRows.WithLabelValues("train").Set(float64(len(trainIdx)))
	t.metrics.TrainingRows.WithLabelValues("test").Set(float64(len(testIdx)))
	t.metrics.TrainingDuration.Set(elapsed.Seconds())
	t.metrics.EvaluationMAE.Set(eval.MAE)
	t.metrics.EvaluationR2.Set(eval.R2)
	t.metrics.LastTrainedTimestamp.Set(float64(now.Unix()))

	t.logger.Info("training complete",
		"run_id", manifest.RunID,
		"mae", eval.MAE,
		"r2", eval.R2,
		"duration", elapsed,
	)

	return TrainReport{
		TrainRows:  len(trainIdx),
		TestRows:   len(testIdx),
		Evaluation: eval,
		Manifest:   manifest,
	}, nil
}
