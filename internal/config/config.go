package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Data source kinds.
const (
	SourceCSV = "csv"
	SourceSQL = "sql"
)

// Config holds all settings, populated from environment variables.
type Config struct {
	DataSource     string
	DataPath       string
	DatabaseDriver string
	DatabaseURL    string
	ModelDir       string

	LogLevel    string
	LogFormat   string
	MetricsFile string

	// PredictionLog records every successful prediction in the database.
	PredictionLog bool

	TrainSeed         uint64
	TrainTestFraction float64

	// Forest settings.
	ForestTrees           int
	ForestMaxDepth        int
	ForestMinSamplesSplit int
	ForestWorkers         int
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is read first if present; real
// environment variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env is optional

	seed, err := parseUint("TRAIN_SEED", 42)
	if err != nil {
		return nil, err
	}
	fraction, err := parseFloat("TRAIN_TEST_FRACTION", 0.2)
	if err != nil {
		return nil, err
	}
	if fraction <= 0 || fraction >= 1 {
		return nil, errors.New("TRAIN_TEST_FRACTION must be between 0 and 1")
	}

	trees, err := parsePositiveInt("FOREST_TREES", 100)
	if err != nil {
		return nil, err
	}
	depth, err := parsePositiveInt("FOREST_MAX_DEPTH", 10)
	if err != nil {
		return nil, err
	}
	minSplit, err := parsePositiveInt("FOREST_MIN_SAMPLES_SPLIT", 5)
	if err != nil {
		return nil, err
	}
	if minSplit < 2 {
		return nil, errors.New("FOREST_MIN_SAMPLES_SPLIT must be at least 2")
	}
	workers, err := parsePositiveInt("FOREST_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	predictionLog, err := parseBool("PREDICTION_LOG", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataSource:     envOrDefault("DATA_SOURCE", SourceCSV),
		DataPath:       envOrDefault("DATA_PATH", "data/sample_air_quality.csv"),
		DatabaseDriver: envOrDefault("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    envOrDefault("DATABASE_URL", "data/air_quality.db"),
		ModelDir:       envOrDefault("MODEL_DIR", "model"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		MetricsFile:    os.Getenv("METRICS_FILE"),
		PredictionLog:  predictionLog,

		TrainSeed:         seed,
		TrainTestFraction: fraction,

		ForestTrees:           trees,
		ForestMaxDepth:        depth,
		ForestMinSamplesSplit: minSplit,
		ForestWorkers:         workers,
	}

	switch cfg.DataSource {
	case SourceCSV, SourceSQL:
	default:
		return nil, fmt.Errorf("DATA_SOURCE must be %q or %q", SourceCSV, SourceSQL)
	}
	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return nil, errors.New("DATABASE_DRIVER must be sqlite or postgres")
	}
	if cfg.ModelDir == "" {
		return nil, errors.New("MODEL_DIR is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseUint(key string, def uint64) (uint64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
