// Package artifact persists and restores a trained model, its scaler and the
// feature contract they were fitted on. The three always travel together.
package artifact

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/model"
)

// File names inside a model directory.
const (
	ModelFile    = "aqi_model.gob"
	ScalerFile   = "scaler.gob"
	FeaturesFile = "features.txt"
	ManifestFile = "manifest.yaml"
)

var (
	// ErrModelNotFound means one of the required artifact files is missing.
	ErrModelNotFound = errors.New("model not found, run train first")

	// ErrArtifactMismatch means the persisted pieces disagree with each other.
	ErrArtifactMismatch = errors.New("model artifact is inconsistent")
)

// Artifact is a fitted scaler and model plus the contract they expect.
type Artifact struct {
	Scaler   *model.StandardScaler
	Model    *model.Forest
	Contract domain.Contract
	Manifest *Manifest
}

// Validate checks that scaler and model widths match the contract.
func (a *Artifact) Validate() error {
	if a.Scaler == nil || a.Model == nil || len(a.Contract) == 0 {
		return fmt.Errorf("%w: missing scaler, model or feature contract", ErrArtifactMismatch)
	}
	if a.Scaler.Width() != len(a.Contract) {
		return fmt.Errorf("%w: scaler expects %d features, contract has %d",
			ErrArtifactMismatch, a.Scaler.Width(), len(a.Contract))
	}
	if a.Model.Features != len(a.Contract) {
		return fmt.Errorf("%w: model expects %d features, contract has %d",
			ErrArtifactMismatch, a.Model.Features, len(a.Contract))
	}
	return nil
}

// Store reads and writes artifacts in one directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir is the directory the store writes to.
func (s *Store) Dir() string { return s.dir }

// Save writes model, scaler, contract and, if present, the manifest.
func (s *Store) Save(a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	if err := s.writeGob(ModelFile, a.Model); err != nil {
		return err
	}
	if err := s.writeGob(ScalerFile, a.Scaler); err != nil {
		return err
	}
	features := strings.Join(a.Contract.Names(), "\n")
	if err := s.writeFile(FeaturesFile, []byte(features)); err != nil {
		return err
	}
	if a.Manifest != nil {
		return s.SaveManifest(a.Manifest)
	}
	return nil
}

// Load restores an artifact. A missing model, scaler or feature list yields
// ErrModelNotFound; a width disagreement yields ErrArtifactMismatch. The
// manifest is optional.
func (s *Store) Load() (*Artifact, error) {
	var forest model.Forest
	if err := s.readGob(ModelFile, &forest); err != nil {
		return nil, err
	}
	var scaler model.StandardScaler
	if err := s.readGob(ScalerFile, &scaler); err != nil {
		return nil, err
	}
	contract, err := s.readContract()
	if err != nil {
		return nil, err
	}

	a := &Artifact{Scaler: &scaler, Model: &forest, Contract: contract}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	manifest, err := s.LoadManifest()
	if err == nil {
		a.Manifest = manifest
	}
	return a, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) open(name string) (*os.File, error) {
	f, err := os.Open(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s missing", ErrModelNotFound, s.path(name))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

func (s *Store) writeGob(name string, v any) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.writeFile(name, buf.Bytes())
}

func (s *Store) readGob(name string, v any) error {
	f, err := s.open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrArtifactMismatch, name, err)
	}
	return nil
}

// writeFile replaces name atomically so a crashed training run never leaves a
// half-written artifact behind.
func (s *Store) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *Store) readContract() (domain.Contract, error) {
	f, err := s.open(FeaturesFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	contract, err := ParseContract(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactMismatch, err)
	}
	return contract, nil
}

// ParseContract reads one feature name per line. Surrounding whitespace and
// blank lines are ignored; order is preserved.
func ParseContract(r io.Reader) (domain.Contract, error) {
	var names []domain.Feature
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		names = append(names, domain.Feature(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feature contract: %w", err)
	}
	return domain.NewContract(names)
}
