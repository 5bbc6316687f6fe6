package model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Evaluation summarises predictions against ground truth.
type Evaluation struct {
	MAE float64 `yaml:"mae"`
	R2  float64 `yaml:"r2"`
}

// Evaluate computes mean absolute error and the coefficient of determination.
func Evaluate(actual, predicted []float64) (Evaluation, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return Evaluation{}, fmt.Errorf("%w: %d targets, %d predictions", ErrShape, len(actual), len(predicted))
	}
	return Evaluation{
		MAE: floats.Distance(actual, predicted, 1) / float64(len(actual)),
		R2:  stat.RSquaredFrom(predicted, actual, nil),
	}, nil
}
