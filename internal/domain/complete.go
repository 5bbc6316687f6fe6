package domain

import (
	"maps"
	"time"
)

// DeriveCalendar returns a copy of obs with day_of_year and month filled from
// date where absent. Supplied values are never overwritten.
func DeriveCalendar(obs Observation, date time.Time) Observation {
	out := maps.Clone(obs)
	if out == nil {
		out = make(Observation, 2)
	}
	if !out.Has(DayOfYear) {
		out[DayOfYear] = float64(date.YearDay())
	}
	if !out.Has(Month) {
		out[Month] = float64(date.Month())
	}
	return out
}

// Complete builds the feature vector for contract from a partial observation.
// Calendar fields are derived from now first, then every remaining gap is
// filled from defaults, or zero if defaults has no entry. The result always
// has len(contract) values in contract order.
func Complete(obs Observation, contract Contract, defaults DefaultTable, now time.Time) []float64 {
	full := DeriveCalendar(obs, now)

	vec := make([]float64, len(contract))
	for i, f := range contract {
		if v, ok := full[f]; ok {
			vec[i] = v
			continue
		}
		vec[i] = defaults.ValueOr(f)
	}
	return vec
}
