package domain

import "math"

// Category is a named AQI severity band with its display attributes.
type Category struct {
	Name  string `json:"category"`
	Emoji string `json:"emoji"`
	Color string `json:"color"`
}

// band covers AQI values up to and including Upper.
type band struct {
	Upper    float64
	Category Category
}

// bands is sorted by Upper and ends at +Inf, so every non-NaN value lands in
// exactly one band and boundary values stay in the lower one.
var bands = []band{
	{50, Category{Name: "Good", Emoji: "🟢", Color: "#00e400"}},
	{100, Category{Name: "Moderate", Emoji: "🟡", Color: "#ffff00"}},
	{150, Category{Name: "Unhealthy for Sensitive", Emoji: "🟠", Color: "#ff7e00"}},
	{200, Category{Name: "Unhealthy", Emoji: "🔴", Color: "#ff0000"}},
	{300, Category{Name: "Very Unhealthy", Emoji: "🟣", Color: "#8f3f97"}},
	{math.Inf(1), Category{Name: "Hazardous", Emoji: "🟤", Color: "#7e0023"}},
}

// Categorize maps an AQI value onto its band. NaN never matches a bound and
// falls through to the last band; callers reject non-finite values first.
func Categorize(aqi float64) Category {
	for _, b := range bands {
		if aqi <= b.Upper {
			return b.Category
		}
	}
	return bands[len(bands)-1].Category
}

// Categories lists every band in ascending order.
func Categories() []Category {
	out := make([]Category, len(bands))
	for i, b := range bands {
		out[i] = b.Category
	}
	return out
}
