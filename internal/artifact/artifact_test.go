package artifact_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/model"
)

func fitted(t *testing.T, width int) *artifact.Artifact {
	t.Helper()

	x := mat.NewDense(20, width, nil)
	y := make([]float64, 20)
	for i := range 20 {
		for j := range width {
			x.Set(i, j, float64(i*(j+1)))
		}
		y[i] = float64(i * 3)
	}
	scaler, err := model.FitStandardScaler(x)
	require.NoError(t, err)
	scaled, err := scaler.Transform(x)
	require.NoError(t, err)

	p := model.DefaultForestParams()
	p.Trees = 5
	forest, err := model.FitForest(context.Background(), scaled, y, p)
	require.NoError(t, err)

	contract := domain.CanonicalContract()[:width]
	return &artifact.Artifact{Scaler: scaler, Model: forest, Contract: contract}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "model")
	store := artifact.NewStore(dir)

	a := fitted(t, 14)
	a.Manifest = artifact.NewManifest(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), "csv:data.csv")
	a.Manifest.Evaluation = model.Evaluation{MAE: 4.2, R2: 0.91}
	require.NoError(t, store.Save(a))

	for _, name := range []string{artifact.ModelFile, artifact.ScalerFile, artifact.FeaturesFile, artifact.ManifestFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	features, err := os.ReadFile(filepath.Join(dir, artifact.FeaturesFile))
	require.NoError(t, err)
	assert.Equal(t, strings.Join(domain.CanonicalContract().Names(), "\n"), string(features))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, loaded.Contract.Equal(domain.CanonicalContract()))
	assert.Equal(t, a.Scaler, loaded.Scaler)
	assert.Equal(t, a.Model, loaded.Model)
	require.NotNil(t, loaded.Manifest)
	assert.Equal(t, a.Manifest.RunID, loaded.Manifest.RunID)
	assert.InDelta(t, 0.91, loaded.Manifest.Evaluation.R2, 1e-12)
}

func TestStore_LoadMissingPieces(t *testing.T) {
	for _, missing := range []string{artifact.ModelFile, artifact.ScalerFile, artifact.FeaturesFile} {
		t.Run(missing, func(t *testing.T) {
			dir := t.TempDir()
			store := artifact.NewStore(dir)
			require.NoError(t, store.Save(fitted(t, 3)))
			require.NoError(t, os.Remove(filepath.Join(dir, missing)))

			_, err := store.Load()
			require.ErrorIs(t, err, artifact.ErrModelNotFound)
			assert.Contains(t, err.Error(), missing)
		})
	}
}

func TestStore_LoadEmptyDir(t *testing.T) {
	_, err := artifact.NewStore(t.TempDir()).Load()
	assert.ErrorIs(t, err, artifact.ErrModelNotFound)
}

func TestStore_ManifestOptional(t *testing.T) {
	dir := t.TempDir()
	store := artifact.NewStore(dir)
	require.NoError(t, store.Save(fitted(t, 3)))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded.Manifest)
}

func TestStore_LoadContractMismatch(t *testing.T) {
	dir := t.TempDir()
	store := artifact.NewStore(dir)
	require.NoError(t, store.Save(fitted(t, 3)))

	// Rewrite the contract with one name fewer than the model was fitted on.
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.FeaturesFile), []byte("pm25\npm10\n"), 0o644))

	_, err := store.Load()
	assert.ErrorIs(t, err, artifact.ErrArtifactMismatch)
}

func TestStore_LoadEmptyContract(t *testing.T) {
	dir := t.TempDir()
	store := artifact.NewStore(dir)
	require.NoError(t, store.Save(fitted(t, 3)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.FeaturesFile), []byte("\n\n"), 0o644))

	_, err := store.Load()
	assert.ErrorIs(t, err, artifact.ErrArtifactMismatch)
}

func TestStore_LoadCorruptModel(t *testing.T) {
	dir := t.TempDir()
	store := artifact.NewStore(dir)
	require.NoError(t, store.Save(fitted(t, 3)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.ModelFile), []byte("not gob"), 0o644))

	_, err := store.Load()
	assert.ErrorIs(t, err, artifact.ErrArtifactMismatch)
}

func TestStore_SaveRejectsInconsistent(t *testing.T) {
	a := fitted(t, 3)
	a.Contract = domain.Contract{domain.PM25}
	err := artifact.NewStore(t.TempDir()).Save(a)
	assert.ErrorIs(t, err, artifact.ErrArtifactMismatch)
}

func TestParseContract(t *testing.T) {
	c, err := artifact.ParseContract(strings.NewReader(" pm25 \r\npm10\n\nmonth\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.Contract{domain.PM25, domain.PM10, domain.Month}, c)

	_, err = artifact.ParseContract(strings.NewReader("pm25\npm25"))
	assert.Error(t, err)
}
