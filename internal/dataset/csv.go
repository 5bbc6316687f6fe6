package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/air-quality-ml/internal/domain"
)

// CSVSource reads a headered CSV with a date column, the measured feature
// columns and an aqi column. Extra columns are ignored.
type CSVSource struct {
	path string
}

// NewCSVSource returns a source reading path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Describe names the source for logs and manifests.
func (s *CSVSource) Describe() string { return "csv:" + s.path }

// LoadHistory reads every row of the file.
func (s *CSVSource) LoadHistory(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return ReadCSV(ctx, f)
}

// ReadCSV parses records from r. Any malformed row fails the whole read with
// its line number; training never silently drops data.
func ReadCSV(ctx context.Context, r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	required := append([]string{"date", "aqi"}, featureNames(Measured)...)
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required csv column: %s", name)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return records, nil
}

func parseRow(row []string, cols map[string]int) (Record, error) {
	date, err := ParseDate(row[cols["date"]])
	if err != nil {
		return Record{}, err
	}
	aqi, err := parseNumber("aqi", row[cols["aqi"]])
	if err != nil {
		return Record{}, err
	}

	values := make(map[domain.Feature]float64, len(Measured))
	for _, f := range Measured {
		v, err := parseNumber(string(f), row[cols[string(f)]])
		if err != nil {
			return Record{}, err
		}
		values[f] = v
	}
	obs, err := domain.NewObservation(values)
	if err != nil {
		return Record{}, err
	}
	return Record{Date: date, Values: obs, AQI: aqi}, nil
}

func parseNumber(name, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is empty", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", name, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s", domain.ErrNonFinite, name)
	}
	return v, nil
}

func featureNames(fs []domain.Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
