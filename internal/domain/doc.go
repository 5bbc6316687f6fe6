// Package domain models the air quality feature contract shared by training
// and prediction.
//
// # Features
//
// Fourteen numeric features are recognised:
//
//	pollutants: pm25, pm10, o3, no2, so2, co
//	weather:    temperature, humidity, wind_speed, pressure
//	location:   latitude, longitude
//	calendar:   day_of_year, month
//
// The calendar features are derived from a date. At training time each row
// uses its own recorded date; at prediction time the current date is used,
// and only for calendar fields the observation does not already carry.
//
// # Feature Contract
//
// The ordered list of feature names a model was fitted on. It is written once
// by training and read by prediction; every feature vector handed to a scaler
// or model has exactly these columns in exactly this order.
//
// # Completion
//
// [Complete] turns a partial [Observation] into a vector for a [Contract]:
// derive calendar fields, fill the rest from a [DefaultTable], and fall back to
// zero for names the table does not know. Completion cannot fail; all input
// validation happens earlier, in [ParseObservation].
//
// # Categories
//
// AQI values map onto six bands with inclusive upper bounds:
//
//	<= 50 Good | <= 100 Moderate | <= 150 Unhealthy for Sensitive |
//	<= 200 Unhealthy | <= 300 Very Unhealthy | above Hazardous
//
// See [Categorize].
package domain
