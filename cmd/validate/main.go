// Command validate checks a trained model directory for integrity: the feature
// contract matches the canonical order, the scaler and model agree with it, the
// dataset re-scores within the recorded error, and a reference observation
// produces a well-formed prediction.
//
// Usage:
//
//	go run ./cmd/validate -model-dir model -data data/sample_air_quality.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/air-quality-ml/internal/artifact"
	"github.com/couchcryptid/air-quality-ml/internal/dataset"
	"github.com/couchcryptid/air-quality-ml/internal/domain"
	"github.com/couchcryptid/air-quality-ml/internal/model"
	"github.com/couchcryptid/air-quality-ml/internal/observability"
	"github.com/couchcryptid/air-quality-ml/internal/pipeline"
)

// referenceObservation is the documented end-to-end example request.
const referenceObservation = `{"pm25": 25, "pm10": 35, "latitude": 40.7128, "longitude": -74.0060}`

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	modelDir := flag.String("model-dir", "model", "directory containing the trained artifact")
	dataPath := flag.String("data", "data/sample_air_quality.csv", "CSV dataset to re-score")
	tolerance := flag.Float64("tolerance", 1.5, "allowed ratio of re-scored MAE to recorded MAE")
	flag.Parse()

	if *modelDir == "" || *dataPath == "" || *tolerance <= 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *modelDir, *dataPath, *tolerance); code != 0 {
		os.Exit(code)
	}
}

func run(out io.Writer, modelDir, dataPath string, tolerance float64) int {
	// Fixed clock so the reference prediction is reproducible.
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	store := artifact.NewStore(modelDir)

	fmt.Fprintln(out, "=== AQI Model Integrity Validation ===")
	fmt.Fprintln(out)

	a, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load artifact: %v\n", err)
		return 1
	}

	records, err := dataset.NewCSVSource(dataPath).LoadHistory(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}

	rescore := &phase{name: "Phase 3: Re-score dataset"}
	mae := validateRescore(rescore, a, records, tolerance)

	phases := []*phase{
		validateContract(store),
		validateArtifact(out, a),
		rescore,
		validateReference(ctx, store, clock),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d, re-scored MAE: %.2f", len(records), mae)
	if a.Manifest != nil {
		fmt.Fprintf(out, ", recorded MAE: %.2f (run %s)", a.Manifest.Evaluation.MAE, a.Manifest.RunID)
	}
	fmt.Fprintln(out)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Feature contract ──

func validateContract(store *artifact.Store) *phase {
	p := &phase{name: "Phase 1: Feature contract"}

	f, err := os.Open(filepath.Join(store.Dir(), artifact.FeaturesFile))
	if err != nil {
		p.errorf("open %s: %v", artifact.FeaturesFile, err)
		return p
	}
	defer f.Close()

	contract, err := artifact.ParseContract(f)
	if err != nil {
		p.errorf("parse %s: %v", artifact.FeaturesFile, err)
		return p
	}

	canonical := domain.CanonicalContract()
	if len(contract) != len(canonical) {
		p.errorf("contract has %d features, want %d", len(contract), len(canonical))
	}
	for i := range min(len(contract), len(canonical)) {
		if contract[i] != canonical[i] {
			p.errorf("position %d: got %q, want %q", i, contract[i], canonical[i])
		}
	}
	return p
}

// ── Phase 2: Artifact consistency ──

func validateArtifact(out io.Writer, a *artifact.Artifact) *phase {
	p := &phase{name: "Phase 2: Artifact consistency"}

	if err := a.Validate(); err != nil {
		p.errorf("%v", err)
	}
	for i, s := range a.Scaler.Scale {
		if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			p.errorf("scaler column %d (%s) has invalid scale %v", i, featureAt(a.Contract, i), s)
		}
	}
	for i, m := range a.Scaler.Mean {
		if math.IsNaN(m) || math.IsInf(m, 0) {
			p.errorf("scaler column %d (%s) has invalid mean %v", i, featureAt(a.Contract, i), m)
		}
	}
	for i, t := range a.Model.Trees {
		if len(t.Nodes) == 0 {
			p.errorf("tree %d is empty", i)
		}
	}

	if a.Manifest == nil {
		fmt.Fprintln(out, "  Note: no manifest found, skipping manifest checks")
		return p
	}
	if !slices.Equal(a.Manifest.Features, a.Contract.Names()) {
		p.errorf("manifest features %v differ from contract %v", a.Manifest.Features, a.Contract.Names())
	}
	if a.Manifest.Forest.Trees != len(a.Model.Trees) {
		p.errorf("manifest records %d trees, model has %d", a.Manifest.Forest.Trees, len(a.Model.Trees))
	}
	return p
}

func featureAt(c domain.Contract, i int) string {
	if i < len(c) {
		return string(c[i])
	}
	return "?"
}

// ── Phase 3: Re-score ──

func validateRescore(p *phase, a *artifact.Artifact, records []dataset.Record, tolerance float64) float64 {
	rows, targets, err := dataset.Frame(records, a.Contract)
	if err != nil {
		p.errorf("build features: %v", err)
		return math.NaN()
	}
	x, err := model.NewMatrix(rows)
	if err != nil {
		p.errorf("%v", err)
		return math.NaN()
	}
	scaled, err := a.Scaler.Transform(x)
	if err != nil {
		p.errorf("scale: %v", err)
		return math.NaN()
	}
	predicted, err := a.Model.Predict(scaled)
	if err != nil {
		p.errorf("predict: %v", err)
		return math.NaN()
	}
	eval, err := model.Evaluate(targets, predicted)
	if err != nil {
		p.errorf("evaluate: %v", err)
		return math.NaN()
	}

	// One AQI point of slack keeps near-perfect fits from failing on noise.
	if a.Manifest != nil && eval.MAE > a.Manifest.Evaluation.MAE*tolerance+1 {
		p.errorf("re-scored MAE %.3f exceeds %.1fx recorded MAE %.3f", eval.MAE, tolerance, a.Manifest.Evaluation.MAE)
	}
	return eval.MAE
}

// ── Phase 4: Reference prediction ──

func validateReference(ctx context.Context, store *artifact.Store, clock clockwork.Clock) *phase {
	p := &phase{name: "Phase 4: Reference prediction"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	predictor := pipeline.NewPredictor(store, nil, domain.StandardDefaults(), clock, logger, observability.NewMetrics())

	res, err := predictor.PredictJSON(ctx, []byte(referenceObservation))
	if err != nil {
		p.errorf("predict: %v", err)
		return p
	}
	if res.PredictedAQI != domain.RoundTenth(res.PredictedAQI) {
		p.errorf("predicted_aqi %v is not rounded to one decimal", res.PredictedAQI)
	}
	if !slices.Contains(domain.Categories(), res.Category) {
		p.errorf("category %q is not one of the six bands", res.Name)
	}
	if res.PredictedAQI < 0 {
		p.errorf("predicted_aqi %v is negative", res.PredictedAQI)
	}
	return p
}
