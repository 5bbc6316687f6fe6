// Package dataset loads historical measurements for training.
package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-ml/internal/domain"
)

// Measured lists the columns a historical row must carry besides date and aqi.
// Calendar features are never read from the source; they come from the date.
var Measured = []domain.Feature{
	domain.PM25, domain.PM10, domain.O3, domain.NO2, domain.SO2, domain.CO,
	domain.Temperature, domain.Humidity, domain.WindSpeed, domain.Pressure,
	domain.Latitude, domain.Longitude,
}

// Record is one historical observation with its ground-truth AQI.
type Record struct {
	Date   time.Time
	Values domain.Observation
	AQI    float64
}

// Vector returns the row's features in contract order, with day_of_year and
// month taken from the row's own date.
func (r Record) Vector(contract domain.Contract) ([]float64, error) {
	full := domain.DeriveCalendar(r.Values, r.Date)
	vec := make([]float64, len(contract))
	for i, f := range contract {
		v, ok := full[f]
		if !ok {
			return nil, fmt.Errorf("record dated %s has no %s", r.Date.Format(time.DateOnly), f)
		}
		vec[i] = v
	}
	return vec, nil
}

// Frame builds the feature matrix rows and target vector for contract.
func Frame(records []Record, contract domain.Contract) ([][]float64, []float64, error) {
	x := make([][]float64, len(records))
	y := make([]float64, len(records))
	for i, r := range records {
		vec, err := r.Vector(contract)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i, err)
		}
		x[i] = vec
		y[i] = r.AQI
	}
	return x, y, nil
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// ParseDate accepts the date formats seen in exported measurement files and
// database drivers.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
