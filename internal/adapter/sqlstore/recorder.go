package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/couchcryptid/air-quality-ml/internal/domain"
)

// coordTolerance is how close, in degrees, an observation must be to a stored
// location to be attributed to it.
const coordTolerance = 0.01

// PredictionRecorder appends scored observations to the predictions table.
type PredictionRecorder struct {
	db *sqlx.DB
}

// NewPredictionRecorder wraps an open database.
func NewPredictionRecorder(db *sqlx.DB) *PredictionRecorder {
	return &PredictionRecorder{db: db}
}

// RecordPrediction stores the result together with the observation as
// supplied. When the observation carries coordinates near a known location
// the row is linked to it.
func (r *PredictionRecorder) RecordPrediction(ctx context.Context, obs domain.Observation, res domain.PredictionResult, at time.Time) error {
	features := make(map[string]float64, len(obs))
	for f, v := range obs {
		features[string(f)] = v
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("encode input features: %w", err)
	}

	locationID, err := r.locationNear(ctx, obs)
	if err != nil {
		return err
	}

	query := r.db.Rebind(`
		INSERT INTO predictions (location_id, prediction_date, predicted_aqi, category, input_features)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		locationID, at.Format("2006-01-02"), res.PredictedAQI, res.Name, string(payload),
	); err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (r *PredictionRecorder) locationNear(ctx context.Context, obs domain.Observation) (sql.NullInt64, error) {
	lat, okLat := obs[domain.Latitude]
	lon, okLon := obs[domain.Longitude]
	if !okLat || !okLon {
		return sql.NullInt64{}, nil
	}

	var id int64
	query := r.db.Rebind(`
		SELECT id FROM locations
		WHERE ABS(latitude - ?) < ? AND ABS(longitude - ?) < ?
		ORDER BY id LIMIT 1`)
	err := r.db.GetContext(ctx, &id, query, lat, coordTolerance, lon, coordTolerance)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullInt64{}, nil
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("lookup location: %w", err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

// StoredPrediction is a row of the predictions table.
type StoredPrediction struct {
	ID             int64         `db:"id"`
	LocationID     sql.NullInt64 `db:"location_id"`
	PredictionDate string        `db:"prediction_date"`
	PredictedAQI   float64       `db:"predicted_aqi"`
	Category       string        `db:"category"`
	InputFeatures  string        `db:"input_features"`
}

// Recent returns the newest predictions first.
func (r *PredictionRecorder) Recent(ctx context.Context, limit int) ([]StoredPrediction, error) {
	var out []StoredPrediction
	query := r.db.Rebind(`
		SELECT id, location_id, prediction_date, predicted_aqi, category, input_features
		FROM predictions ORDER BY id DESC LIMIT ?`)
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	return out, nil
}
