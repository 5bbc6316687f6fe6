// Package model provides the fit/transform/predict capabilities training and
// prediction consume: a standardising scaler, a random forest regressor, a
// seeded train/evaluation split and regression metrics.
//
// Fitted values are plain exported structs so they can be persisted with
// encoding/gob and shared read-only between goroutines.
package model
