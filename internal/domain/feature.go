package domain

// Feature names one recognised input column.
type Feature string

const (
	PM25        Feature = "pm25"
	PM10        Feature = "pm10"
	O3          Feature = "o3"
	NO2         Feature = "no2"
	SO2         Feature = "so2"
	CO          Feature = "co"
	Temperature Feature = "temperature"
	Humidity    Feature = "humidity"
	WindSpeed   Feature = "wind_speed"
	Pressure    Feature = "pressure"
	Latitude    Feature = "latitude"
	Longitude   Feature = "longitude"
	DayOfYear   Feature = "day_of_year"
	Month       Feature = "month"
)

// Features lists every recognised feature in canonical training order.
var Features = []Feature{
	PM25, PM10, O3, NO2, SO2, CO,
	Temperature, Humidity, WindSpeed, Pressure,
	Latitude, Longitude, DayOfYear, Month,
}

var recognised = func() map[Feature]struct{} {
	m := make(map[Feature]struct{}, len(Features))
	for _, f := range Features {
		m[f] = struct{}{}
	}
	return m
}()

// IsRecognised reports whether f is one of the fourteen known features.
func IsRecognised(f Feature) bool {
	_, ok := recognised[f]
	return ok
}

func (f Feature) String() string { return string(f) }
