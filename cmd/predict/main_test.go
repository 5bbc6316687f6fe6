package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/model"
	"github.com/couchcryptid/air-quality-ml/internal/observability"
	"github.com/couchcryptid/air-quality-ml/internal/pipeline"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type staticSource []dataset.Record

func (s staticSource) LoadHistory(context.Context) ([]dataset.Record, error) { return s, nil }
func (staticSource) Describe() string                                        { return "static" }

func trainedModelDir(t *testing.T) string {
	t.Helper()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make(staticSource, 80)
	for i := range records {
		pm := float64(5 + i)
		records[i] = dataset.Record{
			Date: start.AddDate(0, 0, i),
			Values: domain.Observation{
				domain.PM25: pm, domain.PM10: pm * 1.5, domain.O3: 40, domain.NO2: 30,
				domain.SO2: 8, domain.CO: 1, domain.Temperature: 20, domain.Humidity: 60,
				domain.WindSpeed: 8, domain.Pressure: 1013, domain.Latitude: 40.7, domain.Longitude: -74,
			},
			AQI: 2 * pm,
		}
	}

	params := model.DefaultForestParams()
	params.Trees = 10
	dir := t.TempDir()
	trainer := pipeline.NewTrainer(records, artifact.NewStore(dir),
		pipeline.TrainOptions{TestFraction: 0.2, Forest: params},
		clockwork.NewFakeClockAt(testNow), slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetrics())
	_, err := trainer.Run(context.Background())
	require.NoError(t, err)
	return dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd(clockwork.NewFakeClockAt(testNow))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestPredict_Success(t *testing.T) {
	t.Setenv("MODEL_DIR", trainedModelDir(t))

	out := execute(t, `{"pm25": 25, "pm10": 35, "latitude": 40.7128, "longitude": -74.0060}`)
	require.Equal(t, 1, strings.Count(out, "\n"))
	assert.True(t, strings.HasPrefix(out, `{"predicted_aqi": `))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "category")
	assert.Contains(t, got, "emoji")
	assert.Contains(t, got, "color")
}

func TestPredict_InvalidJSON(t *testing.T) {
	t.Setenv("MODEL_DIR", t.TempDir())
	assert.Equal(t, `{"error": "Invalid JSON input"}`+"\n", execute(t, "{bad json"))
}

func TestPredict_ModelNotFound(t *testing.T) {
	t.Setenv("MODEL_DIR", t.TempDir())

	out := execute(t, `{"pm25": 10}`)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got["error"], "model not found")
}

func TestPredict_Usage(t *testing.T) {
	assert.Equal(t, `{"error": "usage: predict '<json>'"}`+"\n", execute(t))
	assert.Equal(t, `{"error": "usage: predict '<json>'"}`+"\n", execute(t, "{}", "{}"))
}

func TestPredict_NonNumericField(t *testing.T) {
	t.Setenv("MODEL_DIR", trainedModelDir(t))

	out := execute(t, `{"pm25": "high"}`)
	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got["error"], "pm25")
}

func TestPredict_DashArgumentsAreObservations(t *testing.T) {
	t.Setenv("MODEL_DIR", t.TempDir())

	tests := []struct {
		arg  string
		want string
	}{
		{arg: "-1", want: `{"error": "invalid observation: observation must be a JSON object"}` + "\n"},
		{arg: "-5.5", want: `{"error": "invalid observation: observation must be a JSON object"}` + "\n"},
		{arg: "--help", want: `{"error": "Invalid JSON input"}` + "\n"},
		{arg: "-h", want: `{"error": "Invalid JSON input"}` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, tt.arg))
		})
	}
}
