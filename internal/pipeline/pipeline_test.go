package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/model"
	"github.com/couchcryptid/air-quality-ml/internal/observability"
	"github.com/couchcryptid/air-quality-ml/internal/pipeline"
)

// --- fakes ---

type fakeSource struct {
	records []dataset.Record
	err     error
}

func (f *fakeSource) LoadHistory(context.Context) ([]dataset.Record, error) {
	return f.records, f.err
}

func (f *fakeSource) Describe() string { return "fake" }

type fakeRecorder struct {
	calls int
	last  domain.PredictionResult
	err   error
}

func (f *fakeRecorder) RecordPrediction(_ context.Context, _ domain.Observation, res domain.PredictionResult, _ time.Time) error {
	f.calls++
	f.last = res
	return f.err
}

type failingSaver struct{}

func (failingSaver) Save(*artifact.Artifact) error { return errors.New("disk full") }

// --- helpers ---

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func syntheticRecords(n int) []dataset.Record {
	rng := rand.New(rand.NewPCG(7, 7))
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]dataset.Record, n)
	for i := range n {
		pm25 := 5 + rng.Float64()*80
		pm10 := pm25*1.4 + rng.Float64()*10
		out[i] = dataset.Record{
			Date: start.AddDate(0, 0, i),
			Values: domain.Observation{
				domain.PM25:        pm25,
				domain.PM10:        pm10,
				domain.O3:          20 + rng.Float64()*40,
				domain.NO2:         10 + rng.Float64()*40,
				domain.SO2:         2 + rng.Float64()*10,
				domain.CO:          0.2 + rng.Float64()*2,
				domain.Temperature: -5 + rng.Float64()*35,
				domain.Humidity:    30 + rng.Float64()*60,
				domain.WindSpeed:   rng.Float64() * 20,
				domain.Pressure:    995 + rng.Float64()*30,
				domain.Latitude:    40.7128,
				domain.Longitude:   -74.0060,
			},
			AQI: 2*pm25 + 0.3*pm10 + rng.NormFloat64(),
		}
	}
	return out
}

func testOptions() pipeline.TrainOptions {
	params := model.DefaultForestParams()
	params.Trees = 20
	params.MaxDepth = 8
	params.Workers = 2
	return pipeline.TrainOptions{TestFraction: 0.2, Forest: params}
}

func train(t *testing.T, records []dataset.Record) (*artifact.Store, pipeline.TrainReport) {
	t.Helper()
	store := artifact.NewStore(t.TempDir())
	trainer := pipeline.NewTrainer(&fakeSource{records: records}, store, testOptions(),
		clockwork.NewFakeClockAt(testNow), discardLogger(), observability.NewMetrics())
	report, err := trainer.Run(context.Background())
	require.NoError(t, err)
	return store, report
}

// --- trainer ---

func TestTrainer_Run(t *testing.T) {
	metrics := observability.NewMetrics()
	store := artifact.NewStore(t.TempDir())
	trainer := pipeline.NewTrainer(&fakeSource{records: syntheticRecords(200)}, store, testOptions(),
		clockwork.NewFakeClockAt(testNow), discardLogger(), metrics)

	report, err := trainer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 160, report.TrainRows)
	assert.Equal(t, 40, report.TestRows)
	assert.Greater(t, report.Evaluation.R2, 0.8)
	assert.Positive(t, report.Evaluation.MAE)

	a, err := store.Load()
	require.NoError(t, err)
	assert.True(t, a.Contract.Equal(domain.CanonicalContract()))
	require.NotNil(t, a.Manifest)
	assert.Equal(t, "fake", a.Manifest.Source)
	assert.Equal(t, 160, a.Manifest.TrainRows)
	assert.Equal(t, domain.CanonicalContract().Names(), a.Manifest.Features)

	assert.InDelta(t, 160.0, testutil.ToFloat64(metrics.TrainingRows.WithLabelValues("train")), 0)
	assert.InDelta(t, report.Evaluation.MAE, testutil.ToFloat64(metrics.EvaluationMAE), 1e-12)
	assert.InDelta(t, float64(testNow.Unix()), testutil.ToFloat64(metrics.LastTrainedTimestamp), 0)
}

func TestTrainer_Run_Deterministic(t *testing.T) {
	records := syntheticRecords(120)
	_, first := train(t, records)
	_, second := train(t, records)
	assert.Equal(t, first.Evaluation, second.Evaluation)
}

func TestTrainer_Run_Errors(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeSource
		saver  pipeline.ArtifactSaver
		want   string
	}{
		{
			name:   "source failure",
			source: &fakeSource{err: errors.New("connection refused")},
			saver:  artifact.NewStore(t.TempDir()),
			want:   "load history",
		},
		{
			name:   "missing feature",
			source: &fakeSource{records: []dataset.Record{{Date: testNow, Values: domain.Observation{domain.PM25: 1}}}},
			saver:  artifact.NewStore(t.TempDir()),
			want:   "build features",
		},
		{
			name:   "too few rows",
			source: &fakeSource{records: syntheticRecords(1)},
			saver:  artifact.NewStore(t.TempDir()),
			want:   "split",
		},
		{
			name:   "save failure",
			source: &fakeSource{records: syntheticRecords(50)},
			saver:  failingSaver{},
			want:   "disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trainer := pipeline.NewTrainer(tt.source, tt.saver, testOptions(),
				clockwork.NewFakeClockAt(testNow), discardLogger(), observability.NewMetrics())
			_, err := trainer.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTrainer_Run_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer := pipeline.NewTrainer(&fakeSource{records: syntheticRecords(100)}, artifact.NewStore(t.TempDir()),
		testOptions(), clockwork.NewFakeClockAt(testNow), discardLogger(), observability.NewMetrics())
	_, err := trainer.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- predictor ---

func TestPredictor_RoundTrip(t *testing.T) {
	records := syntheticRecords(200)
	store, report := train(t, records)

	p := pipeline.NewPredictor(store, nil, domain.StandardDefaults(),
		clockwork.NewFakeClockAt(testNow), discardLogger(), observability.NewMetrics())

	var total float64
	const n = 25
	for _, r := range records[:n] {
		obs := domain.DeriveCalendar(r.Values, r.Date)
		res, err := p.Predict(context.Background(), obs)
		require.NoError(t, err)
		total += math.Abs(res.PredictedAQI - r.AQI)
	}
	// Rows seen in training score at least as well as the held-out partition,
	// allowing slack for the partition mix and rounding.
	assert.LessOrEqual(t, total/n, 2*report.Evaluation.MAE+0.5)
}

func TestPredictor_PredictJSON_Scenario(t *testing.T) {
	store, _ := train(t, syntheticRecords(150))
	metrics := observability.NewMetrics()
	recorder := &fakeRecorder{}
	p := pipeline.NewPredictor(store, recorder, domain.StandardDefaults(),
		clockwork.NewFakeClockAt(testNow), discardLogger(), metrics)

	input := []byte(`{"pm25": 25, "pm10": 35, "latitude": 40.7128, "longitude": -74.0060}`)
	res, err := p.PredictJSON(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, domain.RoundTenth(res.PredictedAQI), res.PredictedAQI)
	assert.Contains(t, domain.Categories(), res.Category)
	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, res, recorder.last)

	again, err := p.PredictJSON(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, res, again)

	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.Predictions.WithLabelValues(res.Name)), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.DefaultedFeatures.WithLabelValues("o3")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.DefaultedFeatures.WithLabelValues("pm25")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.DefaultedFeatures.WithLabelValues("month")), 0)
}

func TestPredictor_RecorderFailureIgnored(t *testing.T) {
	store, _ := train(t, syntheticRecords(100))
	recorder := &fakeRecorder{err: errors.New("database locked")}
	p := pipeline.NewPredictor(store, recorder, domain.StandardDefaults(),
		clockwork.NewFakeClockAt(testNow), discardLogger(), observability.NewMetrics())

	_, err := p.PredictJSON(context.Background(), []byte(`{"pm25": 10}`))
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.calls)
}

func TestPredictor_InvalidJSON(t *testing.T) {
	metrics := observability.NewMetrics()
	// An empty model directory proves parsing happens before loading.
	p := pipeline.NewPredictor(artifact.NewStore(t.TempDir()), nil, domain.StandardDefaults(),
		clockwork.NewFakeClockAt(testNow), discardLogger(), metrics)

	_, err := p.PredictJSON(context.Background(), []byte(`{bad json`))
	require.ErrorIs(t, err, domain.ErrInvalidJSON)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PredictionErrors.WithLabelValues("input")), 0)
}

func TestPredictor_ModelNotFound(t *testing.T) {
	metrics := observability.NewMetrics()
	p := pipeline.NewPredictor(artifact.NewStore(t.TempDir()), nil, domain.StandardDefaults(),
		clockwork.NewFakeClockAt(testNow), discardLogger(), metrics)

	_, err := p.PredictJSON(context.Background(), []byte(`{"pm25": 10}`))
	require.ErrorIs(t, err, artifact.ErrModelNotFound)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PredictionErrors.WithLabelValues("config")), 0)
}

func TestPredictor_Predict_RejectsInvalidObservation(t *testing.T) {
	tests := []struct {
		name string
		obs  domain.Observation
		want error
	}{
		{name: "nan", obs: domain.Observation{domain.PM25: math.NaN()}, want: domain.ErrNonFinite},
		{name: "inf", obs: domain.Observation{domain.O3: math.Inf(1)}, want: domain.ErrNonFinite},
		{name: "unknown key", obs: domain.Observation{"benzene": 3}, want: domain.ErrUnknownFeature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetrics()
			// Validation happens before the artifact is loaded.
			p := pipeline.NewPredictor(artifact.NewStore(t.TempDir()), nil, domain.StandardDefaults(),
				clockwork.NewFakeClockAt(testNow), discardLogger(), metrics)

			_, err := p.Predict(context.Background(), tt.obs)
			require.ErrorIs(t, err, tt.want)
			assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PredictionErrors.WithLabelValues("input")), 0)
		})
	}
}
