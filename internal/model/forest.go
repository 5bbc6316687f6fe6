package model

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// ForestParams configures FitForest.
type ForestParams struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            uint64
	// Workers bounds concurrent tree fits. Output does not depend on it.
	Workers int
}

// DefaultForestParams mirrors the settings the AQI model has always used.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  1,
		Seed:            42,
		Workers:         4,
	}
}

func (p ForestParams) validate() error {
	switch {
	case p.Trees < 1:
		return errors.New("forest needs at least one tree")
	case p.MaxDepth < 1:
		return errors.New("forest max depth must be positive")
	case p.MinSamplesSplit < 2:
		return errors.New("forest min samples split must be at least 2")
	}
	return nil
}

// Forest is a bagged ensemble of regression trees; its prediction is the
// mean of the tree predictions.
type Forest struct {
	Trees    []Tree
	Features int
}

// FitForest fits p.Trees trees, each on a bootstrap sample of the rows of x.
// Every tree draws from its own generator seeded by (p.Seed, tree index), so
// the result is identical for any worker count.
func FitForest(ctx context.Context, x *mat.Dense, y []float64, p ForestParams) (*Forest, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrShape, rows, len(y))
	}

	forest := &Forest{Trees: make([]Tree, p.Trees), Features: cols}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.Workers, 1))
	for i := range p.Trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(p.Seed, uint64(i))) //nolint:gosec // reproducible bagging
			forest.Trees[i] = fitTree(x, y, bootstrap(rows, rng), p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	return forest, nil
}

// Predict returns one value per row of x.
func (f *Forest) Predict(x mat.Matrix) ([]float64, error) {
	r, c := x.Dims()
	if c != f.Features {
		return nil, fmt.Errorf("%w: forest fitted on %d features, got %d", ErrShape, f.Features, c)
	}
	if len(f.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}

	out := make([]float64, r)
	row := make([]float64, c)
	for i := range r {
		mat.Row(row, i, x)
		var sum float64
		for t := range f.Trees {
			sum += f.Trees[t].predictRow(row)
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}
