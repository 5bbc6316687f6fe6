package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Observation is one measurement event: any subset of the recognised
// features mapped to finite values.
type Observation map[Feature]float64

// NewObservation validates values and returns them as an Observation.
func NewObservation(values map[Feature]float64) (Observation, error) {
	obs := make(Observation, len(values))
	for _, f := range slices.Sorted(maps.Keys(values)) {
		if !IsRecognised(f) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, f)
		}
		v := values[f]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s", ErrNonFinite, f)
		}
		obs[f] = v
	}
	return obs, nil
}

// ParseObservation decodes a JSON object of feature name to number.
// Numeric strings are accepted; any other non-number value is rejected rather
// than treated as absent.
func ParseObservation(data []byte) (Observation, error) {
	if !json.Valid(data) {
		return nil, ErrInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: observation must be a JSON object", ErrInvalidObservation)
	}

	values := make(map[Feature]float64, len(raw))
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		f := Feature(key)
		if !IsRecognised(f) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, key)
		}
		v, err := toFloat(raw[key])
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidObservation, key, err)
		}
		values[f] = v
	}
	return NewObservation(values)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return strconv.ParseFloat(x.String(), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("value %v is not numeric", v)
	}
}

// Has reports whether f was supplied.
func (o Observation) Has(f Feature) bool {
	_, ok := o[f]
	return ok
}
