package training

import (
	"math"
	"math/rand/v2"
	"slices"
)

// newRand returns a deterministic generator for a seed and stream.
func newRand(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// StratifiedSplit partitions row indices into train and test sets, keeping
// each class's share of the test set at ratio. The same seed yields the same
// split. Both results are sorted.
func StratifiedSplit(labels []int, ratio float64, seed int64) (train, test []int) {
	byClass := map[int][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	rng := newRand(seed, 0)
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(float64(len(idx)) * ratio))
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	slices.Sort(train)
	slices.Sort(test)
	return train, test
}

// StratifiedKFold assigns row indices to k folds with class balance. Fold i
// is the validation set of round i.
func StratifiedKFold(labels []int, k int, seed int64) [][]int {
	folds := make([][]int, k)
	byClass := map[int][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	rng := newRand(seed, 1)
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for n, i := range idx {
			folds[n%k] = append(folds[n%k], i)
		}
	}
	for _, f := range folds {
		slices.Sort(f)
	}
	return folds
}
