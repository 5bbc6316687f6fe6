package domain

import "maps"

// DefaultTable holds fallback values for features an observation omits.
// The zero value is an empty table.
type DefaultTable struct {
	values map[Feature]float64
}

// NewDefaultTable copies values into an immutable table.
func NewDefaultTable(values map[Feature]float64) DefaultTable {
	return DefaultTable{values: maps.Clone(values)}
}

// StandardDefaults is the table prediction uses unless told otherwise.
func StandardDefaults() DefaultTable {
	return NewDefaultTable(map[Feature]float64{
		PM25:        15.0,
		PM10:        25.0,
		O3:          40.0,
		NO2:         30.0,
		SO2:         8.0,
		CO:          1.0,
		Temperature: 20.0,
		Humidity:    60.0,
		WindSpeed:   8.0,
		Pressure:    1013.25,
		Latitude:    0.0,
		Longitude:   0.0,
		DayOfYear:   1,
		Month:       1,
	})
}

// Lookup returns the fallback for f and whether the table has one.
func (t DefaultTable) Lookup(f Feature) (float64, bool) {
	v, ok := t.values[f]
	return v, ok
}

// ValueOr returns the fallback for f, or zero when the table has none.
func (t DefaultTable) ValueOr(f Feature) float64 {
	return t.values[f]
}
