package model

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

const leaf = -1

// Node is one vertex of a regression tree. Leaves have Feature == -1 and
// carry the mean target of their samples in Value.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a CART regression tree stored as a flat node slice rooted at 0.
type Tree struct {
	Nodes []Node
}

// predictRow walks the tree for one row: values <= Threshold go left.
func (t *Tree) predictRow(row []float64) float64 {
	n := &t.Nodes[0]
	for n.Feature != leaf {
		if row[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

type treeBuilder struct {
	x      *mat.Dense
	y      []float64
	params ForestParams
	nodes  []Node
	// scratch holds sample indices while sorting by a feature.
	scratch []int
}

func fitTree(x *mat.Dense, y []float64, sample []int, params ForestParams) Tree {
	b := &treeBuilder{x: x, y: y, params: params, scratch: make([]int, len(sample))}
	b.grow(sample, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for sample and returns its root index.
func (b *treeBuilder) grow(sample []int, depth int) int {
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: leaf, Value: b.mean(sample)})

	if depth >= b.params.MaxDepth || len(sample) < b.params.MinSamplesSplit {
		return idx
	}

	feature, threshold, ok := b.bestSplit(sample)
	if !ok {
		return idx
	}

	var left, right []int
	for _, s := range sample {
		if b.x.At(s, feature) <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return idx
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

func (b *treeBuilder) mean(sample []int) float64 {
	var sum float64
	for _, s := range sample {
		sum += b.y[s]
	}
	return sum / float64(len(sample))
}

// bestSplit finds the feature and threshold with the lowest summed squared
// error across both children. It reports false when no split reduces error
// or every candidate violates MinSamplesLeaf.
func (b *treeBuilder) bestSplit(sample []int) (int, float64, bool) {
	n := len(sample)
	var totalSum, totalSq float64
	for _, s := range sample {
		totalSum += b.y[s]
		totalSq += b.y[s] * b.y[s]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}

	_, width := b.x.Dims()
	bestSSE := parentSSE
	bestFeature, bestThreshold, found := 0, 0.0, false
	minLeaf := max(b.params.MinSamplesLeaf, 1)

	order := b.scratch[:n]
	for f := range width {
		copy(order, sample)
		slices.SortFunc(order, func(i, j int) int {
			vi, vj := b.x.At(i, f), b.x.At(j, f)
			switch {
			case vi < vj:
				return -1
			case vi > vj:
				return 1
			}
			return i - j
		})

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			yk := b.y[order[k]]
			leftSum += yk
			leftSq += yk * yk

			nl := k + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			cur, next := b.x.At(order[k], f), b.x.At(order[k+1], f)
			if cur == next {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				// Adjacent floats can round the midpoint up to next.
				if bestThreshold >= next {
					bestThreshold = cur
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

// bootstrap draws n indices with replacement.
func bootstrap(n int, rng *rand.Rand) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = rng.IntN(n)
	}
	return out
}
