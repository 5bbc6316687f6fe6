package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/model"
	"github.com/couchcryptid/air-quality-ml/internal/observability"
)

// Predictor scores single observations against a persisted artifact.
type Predictor struct {
	loader   ArtifactLoader
	recorder PredictionRecorder
	defaults domain.DefaultTable
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewPredictor wires a Predictor. recorder may be nil; a nil clock uses real time.
func NewPredictor(loader ArtifactLoader, recorder PredictionRecorder, defaults domain.DefaultTable, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Predictor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Predictor{
		loader:   loader,
		recorder: recorder,
		defaults: defaults,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// PredictJSON parses a JSON observation and scores it. Malformed JSON is
// reported before the artifact is touched.
func (p *Predictor) PredictJSON(ctx context.Context, data []byte) (domain.PredictionResult, error) {
	obs, err := domain.ParseObservation(data)
	if err != nil {
		p.metrics.PredictionErrors.WithLabelValues(errorKind(err)).Inc()
		return domain.PredictionResult{}, err
	}
	return p.Predict(ctx, obs)
}

// Predict validates obs, completes it against the loaded contract, scales it,
// scores it and categorises the result.
func (p *Predictor) Predict(ctx context.Context, obs domain.Observation) (domain.PredictionResult, error) {
	start := p.clock.Now()
	obs, err := domain.NewObservation(obs)
	if err != nil {
		p.metrics.PredictionErrors.WithLabelValues(errorKind(err)).Inc()
		return domain.PredictionResult{}, err
	}
	res, err := p.predict(obs)
	if err != nil {
		p.metrics.PredictionErrors.WithLabelValues(errorKind(err)).Inc()
		return domain.PredictionResult{}, err
	}

	p.metrics.Predictions.WithLabelValues(res.Name).Inc()
	p.metrics.PredictionDuration.Observe(p.clock.Since(start).Seconds())

	if p.recorder != nil {
		if err := p.recorder.RecordPrediction(ctx, obs, res, start); err != nil {
			p.logger.Warn("record prediction failed", "error", err)
		}
	}
	return res, nil
}

func (p *Predictor) predict(obs domain.Observation) (domain.PredictionResult, error) {
	a, err := p.loader.Load()
	if err != nil {
		return domain.PredictionResult{}, err
	}

	now := p.clock.Now()
	vec := domain.Complete(obs, a.Contract, p.defaults, now)
	p.countDefaults(obs, a.Contract)

	x, err := model.NewMatrix([][]float64{vec})
	if err != nil {
		return domain.PredictionResult{}, err
	}
	scaled, err := a.Scaler.Transform(x)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("scale features: %w", err)
	}
	out, err := a.Model.Predict(scaled)
	if err != nil {
		return domain.PredictionResult{}, fmt.Errorf("predict: %w", err)
	}
	if len(out) != 1 {
		return domain.PredictionResult{}, fmt.Errorf("model returned %d values for one row", len(out))
	}

	res, err := domain.NewPredictionResult(out[0])
	if err != nil {
		return domain.PredictionResult{}, err
	}
	p.logger.Debug("prediction",
		"predicted_aqi", res.PredictedAQI,
		"category", res.Name,
		"features", len(a.Contract),
	)
	return res, nil
}

// countDefaults records which contract features came from the default table.
// Derived calendar fields are not counted.
func (p *Predictor) countDefaults(obs domain.Observation, contract domain.Contract) {
	for _, f := range contract {
		if obs.Has(f) || f == domain.DayOfYear || f == domain.Month {
			continue
		}
		p.metrics.DefaultedFeatures.WithLabelValues(string(f)).Inc()
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidJSON),
		errors.Is(err, domain.ErrInvalidObservation),
		errors.Is(err, domain.ErrUnknownFeature),
		errors.Is(err, domain.ErrNonFinite):
		return "input"
	case errors.Is(err, artifact.ErrModelNotFound),
		errors.Is(err, artifact.ErrArtifactMismatch):
		return "config"
	default:
		return "internal"
	}
}
