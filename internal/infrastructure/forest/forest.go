// Package forest evaluates decision-tree ensembles stored as flat node arrays.
package forest

import (
	"errors"
	"fmt"
	"math"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/service"
	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/valueobject"
)

// Leaf marks an absent child index.
const Leaf = -1

// Node is one split or leaf of a tree. Samples with x[Feature] <= Threshold
// go left. Leaves carry per-class weights in Value.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return n.Left == Leaf && n.Right == Leaf
}

// Tree is a binary tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Model is a soft-voting ensemble of trees.
type Model struct {
	NClasses int    `json:"n_classes"`
	Trees    []Tree `json:"trees"`
}

// Validate checks the structural integrity of every tree against the
// expected number of input features.
func (m *Model) Validate(nFeatures int) error {
	if m.NClasses < 2 {
		return fmt.Errorf("n_classes must be at least 2, got %d", m.NClasses)
	}
	if len(m.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for ti, tree := range m.Trees {
		if err := validateTree(tree, m.NClasses, nFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	return nil
}

func validateTree(tree Tree, nClasses, nFeatures int) error {
	if len(tree.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, n := range tree.Nodes {
		if n.IsLeaf() {
			if len(n.Value) != nClasses {
				return fmt.Errorf("node %d: leaf has %d class weights, want %d", i, len(n.Value), nClasses)
			}
			var total float64
			for _, w := range n.Value {
				if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
					return fmt.Errorf("node %d: invalid class weight %v", i, w)
				}
				total += w
			}
			if total == 0 {
				return fmt.Errorf("node %d: leaf weights sum to zero", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d: threshold is NaN", i)
		}
		// Children always follow their parent, which rules out cycles.
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(tree.Nodes) {
				return fmt.Errorf("node %d: child index %d out of range", i, child)
			}
		}
		if n.Left == n.Right {
			return fmt.Errorf("node %d: both children point to %d", i, n.Left)
		}
	}
	return nil
}

// PredictProba returns the mean of the per-tree class distributions.
func (m *Model) PredictProba(x []float64) []float64 {
	proba := make([]float64, m.NClasses)
	for _, tree := range m.Trees {
		leaf := tree.leaf(x)
		var total float64
		for _, w := range leaf.Value {
			total += w
		}
		for c, w := range leaf.Value {
			proba[c] += w / total
		}
	}
	for c := range proba {
		proba[c] /= float64(len(m.Trees))
	}
	return proba
}

// Predict returns the class with the highest mean probability. Ties go to
// the lower class index.
func (m *Model) Predict(x []float64) int {
	return argmax(m.PredictProba(x))
}

func (t Tree) leaf(x []float64) Node {
	n := t.Nodes[0]
	for !n.IsLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n
}

func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// Classifier adapts a validated binary Model to the domain Classifier port.
type Classifier struct {
	model *Model
}

var _ service.Classifier = (*Classifier)(nil)

// NewClassifier validates the model against the passenger feature layout.
func NewClassifier(m *Model) (*Classifier, error) {
	if m == nil {
		return nil, errors.New("model is nil")
	}
	if err := m.Validate(service.NumFeatures); err != nil {
		return nil, fmt.Errorf("invalid forest: %w", err)
	}
	if m.NClasses != 2 {
		return nil, fmt.Errorf("survival classifier needs 2 classes, got %d", m.NClasses)
	}
	return &Classifier{model: m}, nil
}

// PredictRow predicts the survival label of one passenger.
func (c *Classifier) PredictRow(features service.FeatureVector) (valueobject.Survival, error) {
	return valueobject.SurvivalFromClass(c.model.Predict(features[:]))
}
