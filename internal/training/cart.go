package training

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/service"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/forest"
)

// minImpurityDecrease rejects splits that only move rounding noise.
const minImpurityDecrease = 1e-12

// treeBuilder grows one Gini CART tree in pre-order, so every child index is
// greater than its parent's.
type treeBuilder struct {
	x           []service.FeatureVector
	y           []int
	nClasses    int
	maxDepth    int
	maxFeatures int
	rng         *rand.Rand
	nodes       []forest.Node
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
}

func (b *treeBuilder) build(idx []int, depth int) int {
	counts := b.classCounts(idx)
	at := len(b.nodes)
	b.nodes = append(b.nodes, forest.Node{Feature: forest.Leaf, Left: forest.Leaf, Right: forest.Leaf})

	if len(idx) < 2 || isPure(counts) || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[at].Value = counts
		return at
	}

	best, ok := b.bestSplit(idx, gini(counts, len(idx)))
	if !ok {
		b.nodes[at].Value = counts
		return at
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.nodes[at].Feature = best.feature
	b.nodes[at].Threshold = best.threshold
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[at].Left = l
	b.nodes[at].Right = r
	return at
}

// bestSplit draws features in random order and evaluates at least
// maxFeatures of them, continuing past that only while no valid split has
// been found.
func (b *treeBuilder) bestSplit(idx []int, parentImpurity float64) (split, bool) {
	best := split{impurity: math.Inf(1)}
	found := false
	sorted := slices.Clone(idx)

	for n, f := range b.rng.Perm(service.NumFeatures) {
		if n >= b.maxFeatures && found {
			break
		}
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case b.x[a][f] < b.x[c][f]:
				return -1
			case b.x[a][f] > b.x[c][f]:
				return 1
			}
			return 0
		})
		if s, ok := b.scanFeature(sorted, f); ok && s.impurity < best.impurity {
			best, found = s, true
		}
	}
	if !found || parentImpurity-best.impurity < minImpurityDecrease {
		return split{}, false
	}
	return best, true
}

// scanFeature sweeps the rows sorted by feature f and returns the threshold
// with the lowest weighted child impurity.
func (b *treeBuilder) scanFeature(sorted []int, f int) (split, bool) {
	total := len(sorted)
	leftCounts := make([]float64, b.nClasses)
	rightCounts := b.classCounts(sorted)

	best := split{feature: f, impurity: math.Inf(1)}
	found := false
	for k := 0; k < total-1; k++ {
		y := b.y[sorted[k]]
		leftCounts[y]++
		rightCounts[y]--

		lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
		if lo == hi {
			continue
		}
		nl, nr := k+1, total-k-1
		imp := (float64(nl)*gini(leftCounts, nl) + float64(nr)*gini(rightCounts, nr)) / float64(total)
		if imp < best.impurity {
			best.impurity = imp
			best.threshold = lo + (hi-lo)/2
			found = true
		}
	}
	return best, found
}

func (b *treeBuilder) classCounts(idx []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func gini(counts []float64, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / float64(n)
		g -= p * p
	}
	return g
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
