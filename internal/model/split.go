package model

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// TrainTestSplit shuffles row indices 0..n-1 with seed and returns the
// training and evaluation partitions. The evaluation partition holds
// ceil(n*testFraction) rows.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v outside (0,1)", testFraction)
	}
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, fmt.Errorf("cannot split %d rows with test fraction %v", n, testFraction)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n) //nolint:gosec // reproducible split, not security sensitive
	return perm[nTest:], perm[:nTest], nil
}
