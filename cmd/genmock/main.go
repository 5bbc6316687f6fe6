// Command genmock writes a deterministic synthetic air quality history that
// the train command can consume. Each location gets one row per day ending
// at a fixed date, so the same flags always produce the same file.
//
// Usage:
//
//	go run ./cmd/genmock -out data/sample_air_quality.csv -days 365
//	go run ./cmd/genmock -out data/sample_air_quality.csv -db data/air_quality.db
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-ml/internal/adapter/sqlstore"
	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
)

// endDate is the last generated day.
var endDate = time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)

type location struct {
	name     string
	lat, lon float64
	// baseline PM2.5 in µg/m³ and mean temperature in °C.
	pm25, temp float64
}

var locations = []location{
	{name: "New York", lat: 40.7128, lon: -74.0060, pm25: 9, temp: 13},
	{name: "London", lat: 51.5074, lon: -0.1278, pm25: 10, temp: 11},
	{name: "Tokyo", lat: 35.6762, lon: 139.6503, pm25: 12, temp: 16},
	{name: "Delhi", lat: 28.7041, lon: 77.1025, pm25: 95, temp: 25},
	{name: "Beijing", lat: 39.9042, lon: 116.4074, pm25: 45, temp: 13},
	{name: "Los Angeles", lat: 34.0522, lon: -118.2437, pm25: 14, temp: 18},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/sample_air_quality.csv", "output path for the CSV dataset")
	days := flag.Int("days", 365, "days of history per location")
	seed := flag.Uint64("seed", 42, "random seed")
	dbPath := flag.String("db", "", "optional SQLite file to seed with the same rows")
	flag.Parse()

	if *days < 1 {
		flag.Usage()
		return fmt.Errorf("-days must be positive")
	}

	clock := clockwork.NewFakeClockAt(endDate)
	records := generate(clock, *days, *seed)
	log.Printf("generated %d records for %d locations", len(records), len(locations))

	if err := writeCSVFile(*out, records); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	log.Printf("wrote %s", *out)

	if *dbPath != "" {
		if err := seedDB(context.Background(), *dbPath, records); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
		log.Printf("seeded %s", *dbPath)
	}

	printStats(records)
	return nil
}

// generate produces days rows per location, oldest first, ending at the
// clock's current date.
func generate(clock clockwork.Clock, days int, seed uint64) []dataset.Record {
	rng := rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // reproducible fixture data
	end := clock.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -(days - 1))

	records := make([]dataset.Record, 0, days*len(locations))
	for _, loc := range locations {
		for d := range days {
			date := start.AddDate(0, 0, d)
			records = append(records, sample(rng, loc, date))
		}
	}
	return records
}

func sample(rng *rand.Rand, loc location, date time.Time) dataset.Record {
	// Winter peaks in the northern hemisphere: +1 in early January, -1 in July.
	season := math.Cos(2 * math.Pi * float64(date.YearDay()-15) / 365)

	wind := math.Max(0.5, 8+3*rng.NormFloat64())
	// Stagnant air and cold months concentrate particulates.
	pm25 := math.Max(1, loc.pm25*(1+0.35*season)*(10/(wind+2))*math.Exp(0.25*rng.NormFloat64()))
	pm10 := pm25 * (1.4 + 0.4*rng.Float64())
	temp := loc.temp - 10*season + 3*rng.NormFloat64()
	o3 := math.Max(2, 35+1.2*temp+8*rng.NormFloat64())

	values := domain.Observation{
		domain.PM25:        round(pm25, 1),
		domain.PM10:        round(pm10, 1),
		domain.O3:          round(o3, 1),
		domain.NO2:         round(math.Max(2, 0.6*pm25+15+6*rng.NormFloat64()), 1),
		domain.SO2:         round(math.Max(0.5, 0.12*pm25+4+2*rng.NormFloat64()), 1),
		domain.CO:          round(math.Max(0.1, 0.015*pm25+0.6+0.2*rng.NormFloat64()), 2),
		domain.Temperature: round(temp, 1),
		domain.Humidity:    round(math.Min(100, math.Max(10, 60+15*season+12*rng.NormFloat64())), 1),
		domain.WindSpeed:   round(wind, 1),
		domain.Pressure:    round(1013+6*rng.NormFloat64(), 1),
		domain.Latitude:    loc.lat,
		domain.Longitude:   loc.lon,
	}

	aqi := max(subIndex(values[domain.PM25], pm25Breakpoints), subIndex(values[domain.PM10], pm10Breakpoints))
	return dataset.Record{Date: date, Values: values, AQI: math.Round(aqi)}
}

type breakpoint struct {
	cLo, cHi, iLo, iHi float64
}

// US EPA concentration breakpoints, µg/m³.
var (
	pm25Breakpoints = []breakpoint{
		{0, 12, 0, 50}, {12.1, 35.4, 51, 100}, {35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200}, {150.5, 250.4, 201, 300}, {250.5, 500.4, 301, 500},
	}
	pm10Breakpoints = []breakpoint{
		{0, 54, 0, 50}, {55, 154, 51, 100}, {155, 254, 101, 150},
		{255, 354, 151, 200}, {355, 424, 201, 300}, {425, 604, 301, 500},
	}
)

// subIndex linearly interpolates c within its breakpoint band. Values between
// bands use the upper band; values above the table are capped at 500.
func subIndex(c float64, table []breakpoint) float64 {
	for _, b := range table {
		if c <= b.cHi {
			c = max(c, b.cLo)
			return (b.iHi-b.iLo)/(b.cHi-b.cLo)*(c-b.cLo) + b.iLo
		}
	}
	return 500
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func writeCSVFile(path string, records []dataset.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, records []dataset.Record) error {
	cw := csv.NewWriter(w)
	header := []string{"date", "aqi"}
	for _, f := range dataset.Measured {
		header = append(header, string(f))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, r := range records {
		row[0] = r.Date.Format(time.DateOnly)
		row[1] = strconv.FormatFloat(r.AQI, 'f', -1, 64)
		for i, f := range dataset.Measured {
			row[i+2] = strconv.FormatFloat(r.Values[f], 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func seedDB(ctx context.Context, path string, records []dataset.Record) error {
	db, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlstore.Migrate(ctx, db); err != nil {
		return err
	}

	ids := make(map[string]int64, len(locations))
	for _, loc := range locations {
		id, err := sqlstore.EnsureLocation(ctx, db, loc.name, loc.lat, loc.lon)
		if err != nil {
			return err
		}
		ids[locationKey(loc.lat, loc.lon)] = id
	}

	for _, r := range records {
		id := ids[locationKey(r.Values[domain.Latitude], r.Values[domain.Longitude])]
		if err := sqlstore.InsertMeasurement(ctx, db, id, r); err != nil {
			return err
		}
	}
	return nil
}

func locationKey(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', 4, 64) + "," + strconv.FormatFloat(lon, 'f', 4, 64)
}

func printStats(records []dataset.Record) {
	counts := map[string]int{}
	var sum, peak float64
	for _, r := range records {
		counts[domain.Categorize(r.AQI).Name]++
		sum += r.AQI
		peak = max(peak, r.AQI)
	}

	fmt.Println("\n=== Dataset stats ===")
	fmt.Printf("Rows: %d\n", len(records))
	fmt.Printf("Mean AQI: %.1f, max AQI: %.0f\n", sum/float64(len(records)), peak)
	for _, c := range domain.Categories() {
		fmt.Printf("  %-26s %d\n", c.Name, counts[c.Name])
	}
}
