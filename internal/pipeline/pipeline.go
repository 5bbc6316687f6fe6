// Package pipeline orchestrates training and prediction around the feature
// contract. Both orchestrators depend only on the small interfaces below.
package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
)

// HistorySource yields labelled historical records.
type HistorySource interface {
	LoadHistory(ctx context.Context) ([]dataset.Record, error)
	Describe() string
}

// ArtifactSaver persists a trained artifact.
type ArtifactSaver interface {
	Save(a *artifact.Artifact) error
}

// ArtifactLoader restores a trained artifact.
type ArtifactLoader interface {
	Load() (*artifact.Artifact, error)
}

// PredictionRecorder stores a successful prediction.
type PredictionRecorder interface {
	RecordPrediction(ctx context.Context, obs domain.Observation, res domain.PredictionResult, at time.Time) error
}
