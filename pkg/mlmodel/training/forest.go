package training

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/finqa/pkg/models"
)

// RegressionTree is a binary tree of variance-reducing splits over a single feature
type RegressionTree struct {
	Threshold float64         `json:"threshold"`
	Value     float64         `json:"value"` // leaf prediction: mean of samples
	Samples   int             `json:"samples"`
	Left      *RegressionTree `json:"left,omitempty"`
	Right     *RegressionTree `json:"right,omitempty"`
}

// IsLeaf reports whether the node has no children
func (n *RegressionTree) IsLeaf() bool {
	return n.Left == nil || n.Right == nil
}

// Predict walks the tree to the leaf covering x
func (n *RegressionTree) Predict(x float64) float64 {
	node := n
	for !node.IsLeaf() {
		if x <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// Depth returns the longest root-to-leaf path length
func (n *RegressionTree) Depth() int {
	if n.IsLeaf() {
		return 0
	}
	return 1 + max(n.Left.Depth(), n.Right.Depth())
}

// RandomForest averages regression trees grown on bootstrap samples
type RandomForest struct {
	Trees           []*RegressionTree `json:"trees"`
	NumTrees        int               `json:"num_trees"`
	MaxDepth        int               `json:"max_depth"`
	MinSamplesSplit int               `json:"min_samples_split"`
	MinSamplesLeaf  int               `json:"min_samples_leaf"`
	RandomSeed      int64             `json:"random_seed"`
}

// NewRandomForest creates an unfitted forest of numTrees trees; the same
// seed always yields the same forest
func NewRandomForest(numTrees int, seed int64) *RandomForest {
	if numTrees <= 0 {
		numTrees = 100
	}
	return &RandomForest{
		NumTrees:        numTrees,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomSeed:      seed,
	}
}

// Fit grows NumTrees trees, each on a bootstrap sample of (x, y)
func (rf *RandomForest) Fit(x, y []float64) error {
	if err := checkSamples(x, y, 1); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(rf.RandomSeed))
	rf.Trees = make([]*RegressionTree, rf.NumTrees)
	for i := range rf.Trees {
		bootX, bootY := bootstrapSample(rng, x, y)
		rf.Trees[i] = rf.buildTree(bootX, bootY, 0)
	}
	return rf.Validate()
}

// Predict averages the predictions of all trees
func (rf *RandomForest) Predict(x float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0, ErrNotFitted
	}

	sum := 0.0
	for _, tree := range rf.Trees {
		sum += tree.Predict(x)
	}
	return sum / float64(len(rf.Trees)), nil
}

// Kind returns models.ModelKindRandomForest
func (rf *RandomForest) Kind() models.ModelKind {
	return models.ModelKindRandomForest
}

// Validate checks that the forest has at least one tree and no nil trees
func (rf *RandomForest) Validate() error {
	if len(rf.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i, tree := range rf.Trees {
		if tree == nil {
			return fmt.Errorf("tree %d is nil", i)
		}
	}
	return nil
}

func (rf *RandomForest) buildTree(x, y []float64, depth int) *RegressionTree {
	node := &RegressionTree{
		Value:   stat.Mean(y, nil),
		Samples: len(y),
	}

	if depth >= rf.MaxDepth || len(y) < rf.MinSamplesSplit || stat.PopVariance(y, nil) < 1e-7 {
		return node
	}

	threshold, gain := bestSplit(x, y)
	if gain <= 0 {
		return node
	}

	leftX, leftY, rightX, rightY := splitAt(x, y, threshold)
	if len(leftY) < rf.MinSamplesLeaf || len(rightY) < rf.MinSamplesLeaf {
		return node
	}

	node.Threshold = threshold
	node.Left = rf.buildTree(leftX, leftY, depth+1)
	node.Right = rf.buildTree(rightX, rightY, depth+1)
	return node
}

// bestSplit returns the midpoint threshold with the largest variance reduction
func bestSplit(x, y []float64) (float64, float64) {
	parentVariance := stat.PopVariance(y, nil)
	n := float64(len(y))

	bestThreshold, bestGain := 0.0, 0.0
	for _, threshold := range thresholds(x) {
		_, leftY, _, rightY := splitAt(x, y, threshold)
		if len(leftY) == 0 || len(rightY) == 0 {
			continue
		}

		weighted := float64(len(leftY))/n*stat.PopVariance(leftY, nil) +
			float64(len(rightY))/n*stat.PopVariance(rightY, nil)
		if gain := parentVariance - weighted; gain > bestGain {
			bestThreshold, bestGain = threshold, gain
		}
	}
	return bestThreshold, bestGain
}

// thresholds returns midpoints between consecutive distinct values
func thresholds(values []float64) []float64 {
	unique := make([]float64, 0, len(values))
	seen := make(map[float64]bool)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}

	sort.Float64s(unique)
	out := make([]float64, len(unique)-1)
	for i := range out {
		out[i] = (unique[i] + unique[i+1]) / 2
	}
	return out
}

func splitAt(x, y []float64, threshold float64) (leftX, leftY, rightX, rightY []float64) {
	for i, xi := range x {
		if xi <= threshold {
			leftX = append(leftX, xi)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, xi)
			rightY = append(rightY, y[i])
		}
	}
	return leftX, leftY, rightX, rightY
}

// bootstrapSample draws len(x) samples with replacement
func bootstrapSample(rng *rand.Rand, x, y []float64) ([]float64, []float64) {
	n := len(x)
	bootX := make([]float64, n)
	bootY := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := rng.Intn(n)
		bootX[i] = x[idx]
		bootY[i] = y[idx]
	}
	return bootX, bootY
}
