package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
)

// HistoryReader loads training records from air_quality_data joined with the
// coordinates of each row's location.
type HistoryReader struct {
	db     *sqlx.DB
	driver string
}

// NewHistoryReader wraps an open database.
func NewHistoryReader(db *sqlx.DB) *HistoryReader {
	return &HistoryReader{db: db, driver: db.DriverName()}
}

// Describe names the source for logs and manifests.
func (r *HistoryReader) Describe() string { return "sql:" + r.driver }

type measurementRow struct {
	ID          int64           `db:"id"`
	Date        string          `db:"date"`
	PM25        sql.NullFloat64 `db:"pm25"`
	PM10        sql.NullFloat64 `db:"pm10"`
	O3          sql.NullFloat64 `db:"o3"`
	NO2         sql.NullFloat64 `db:"no2"`
	SO2         sql.NullFloat64 `db:"so2"`
	CO          sql.NullFloat64 `db:"co"`
	Temperature sql.NullFloat64 `db:"temperature"`
	Humidity    sql.NullFloat64 `db:"humidity"`
	WindSpeed   sql.NullFloat64 `db:"wind_speed"`
	Pressure    sql.NullFloat64 `db:"pressure"`
	Latitude    float64         `db:"latitude"`
	Longitude   float64         `db:"longitude"`
	AQI         sql.NullFloat64 `db:"aqi"`
}

const historyQuery = `
	SELECT d.id, d.date, d.pm25, d.pm10, d.o3, d.no2, d.so2, d.co,
	       d.temperature, d.humidity, d.wind_speed, d.pressure,
	       l.latitude, l.longitude, d.aqi
	FROM air_quality_data d
	JOIN locations l ON l.id = d.location_id
	ORDER BY d.id`

// LoadHistory reads every measurement. A NULL measurement or target fails the
// load with the offending row id.
func (r *HistoryReader) LoadHistory(ctx context.Context) ([]dataset.Record, error) {
	var rows []measurementRow
	if err := r.db.SelectContext(ctx, &rows, historyQuery); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("air_quality_data has no rows")
	}

	records := make([]dataset.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("air_quality_data id %d: %w", row.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (m measurementRow) record() (dataset.Record, error) {
	date, err := dataset.ParseDate(m.Date)
	if err != nil {
		return dataset.Record{}, err
	}
	if !m.AQI.Valid {
		return dataset.Record{}, fmt.Errorf("aqi is NULL")
	}

	nullable := map[domain.Feature]sql.NullFloat64{
		domain.PM25: m.PM25, domain.PM10: m.PM10, domain.O3: m.O3,
		domain.NO2: m.NO2, domain.SO2: m.SO2, domain.CO: m.CO,
		domain.Temperature: m.Temperature, domain.Humidity: m.Humidity,
		domain.WindSpeed: m.WindSpeed, domain.Pressure: m.Pressure,
	}
	values := map[domain.Feature]float64{
		domain.Latitude:  m.Latitude,
		domain.Longitude: m.Longitude,
	}
	for f, v := range nullable {
		if !v.Valid {
			return dataset.Record{}, fmt.Errorf("%s is NULL", f)
		}
		values[f] = v.Float64
	}

	obs, err := domain.NewObservation(values)
	if err != nil {
		return dataset.Record{}, err
	}
	return dataset.Record{Date: date, Values: obs, AQI: m.AQI.Float64}, nil
}

// InsertMeasurement stores one historical row for locationID.
func InsertMeasurement(ctx context.Context, db *sqlx.DB, locationID int64, rec dataset.Record) error {
	query := db.Rebind(`
		INSERT INTO air_quality_data
		(location_id, date, pm25, pm10, o3, no2, so2, co, temperature, humidity, wind_speed, pressure, aqi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (location_id, date) DO NOTHING`)
	v := rec.Values
	_, err := db.ExecContext(ctx, query,
		locationID, rec.Date.Format("2006-01-02"),
		v[domain.PM25], v[domain.PM10], v[domain.O3], v[domain.NO2], v[domain.SO2], v[domain.CO],
		v[domain.Temperature], v[domain.Humidity], v[domain.WindSpeed], v[domain.Pressure],
		rec.AQI,
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}
