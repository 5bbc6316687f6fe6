package artifact

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/air-quality-ml/internal/model"
)

// Manifest describes the training run that produced an artifact.
type Manifest struct {
	RunID      string           `yaml:"run_id"`
	TrainedAt  time.Time        `yaml:"trained_at"`
	Source     string           `yaml:"source"`
	TrainRows  int              `yaml:"train_rows"`
	TestRows   int              `yaml:"test_rows"`
	Seed       uint64           `yaml:"seed"`
	Forest     ForestSummary    `yaml:"forest"`
	Evaluation model.Evaluation `yaml:"evaluation"`
	Features   []string         `yaml:"features"`
}

// ForestSummary records the forest settings of a run.
type ForestSummary struct {
	Trees           int `yaml:"trees"`
	MaxDepth        int `yaml:"max_depth"`
	MinSamplesSplit int `yaml:"min_samples_split"`
}

// NewManifest stamps a fresh run id.
func NewManifest(trainedAt time.Time, source string) *Manifest {
	return &Manifest{
		RunID:     uuid.NewString(),
		TrainedAt: trainedAt.UTC(),
		Source:    source,
	}
}

// SaveManifest writes m as YAML.
func (s *Store) SaveManifest(m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return s.writeFile(ManifestFile, data)
}

// LoadManifest reads the manifest written by the last training run.
func (s *Store) LoadManifest() (*Manifest, error) {
	data, err := os.ReadFile(s.path(ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
