package domain

import (
	"fmt"
	"math"
)

// PredictionResult is the answer to one scoring request.
type PredictionResult struct {
	PredictedAQI float64 `json:"predicted_aqi"`
	Category
}

// NewPredictionResult rounds aqi to one decimal and attaches its category.
func NewPredictionResult(aqi float64) (PredictionResult, error) {
	if math.IsNaN(aqi) || math.IsInf(aqi, 0) {
		return PredictionResult{}, fmt.Errorf("%w: predicted aqi %v", ErrNonFinite, aqi)
	}
	return PredictionResult{
		PredictedAQI: RoundTenth(aqi),
		Category:     Categorize(aqi),
	}, nil
}

// RoundTenth rounds half away from zero to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
