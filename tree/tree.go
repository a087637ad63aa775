// Package tree implements a binary decision tree classifier for churn
// prediction. It is used standalone and as the base learner of the
// random forest in the ensemble package.
package tree

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

// Node is a node in the fitted tree. Internal nodes route on
// Feature <= Threshold; leaves carry class counts.
type Node struct {
	IsLeaf       bool
	Feature      int     // split feature index (internal nodes)
	Threshold    float64 // split threshold (internal nodes)
	Left         *Node   // values <= threshold
	Right        *Node   // values > threshold
	ClassCounts  [2]int  // samples per class at this node: [loyal, churn]
	PredictClass int
	Impurity     float64
	NSamples     int
	Depth        int
}

// DecisionTreeClassifier is a CART-style binary classifier splitting on
// gini or entropy impurity.
type DecisionTreeClassifier struct {
	state *coremodel.StateManager

	criterion       string // "gini" or "entropy"
	maxDepth        int    // 0 = unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // features considered per split; 0 = all
	randomState     int64

	root       *Node
	nFeatures  int
	importance []float64

	logger log.Logger
}

// Option is a functional option for DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the splitting criterion, "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth caps the tree depth. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum samples required in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures limits how many features are considered per split.
// Zero considers all features. The ensemble package uses this for
// per-split feature subsampling.
func WithMaxFeatures(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState seeds the feature subsampling. Only relevant when
// maxFeatures is set.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// NewDecisionTreeClassifier creates a decision tree with gini impurity,
// unlimited depth, minSamplesSplit=2 and minSamplesLeaf=1 unless
// overridden.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           coremodel.NewStateManager(),
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     -1,
	}

	for _, opt := range opts {
		opt(dt)
	}

	dt.logger = log.GetLoggerWithName("tree").With(
		log.ModelNameKey, "DecisionTreeClassifier",
	)

	return dt
}

// Name identifies the model variant.
func (dt *DecisionTreeClassifier) Name() string { return "DecisionTreeClassifier" }

// IsFitted returns whether the model has been fitted.
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// Fit grows the tree on X (n_samples, n_features) and 0/1 labels y
// (n_samples, 1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer churnErrors.Recover(&err, "DecisionTreeClassifier.Fit")

	start := time.Now()

	n, f := X.Dims()
	ry, cy := y.Dims()

	if n == 0 || f == 0 {
		return churnErrors.NewModelError("DecisionTreeClassifier.Fit", "empty data", churnErrors.ErrEmptyData)
	}
	if ry != n {
		return churnErrors.NewDimensionError("DecisionTreeClassifier.Fit", n, ry, 0)
	}
	if cy != 1 {
		return churnErrors.NewValueError("DecisionTreeClassifier.Fit", "y must be a column vector")
	}
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return churnErrors.NewValidationError("criterion", "must be gini or entropy", dt.criterion)
	}
	if dt.maxFeatures < 0 || dt.maxFeatures > f {
		return churnErrors.NewValidationError("maxFeatures", "must be between 0 and the feature count", dt.maxFeatures)
	}

	labels := make([]int, n)
	for i := 0; i < n; i++ {
		switch y.At(i, 0) {
		case 0:
			labels[i] = 0
		case 1:
			labels[i] = 1
		default:
			return churnErrors.NewValidationError("y", "labels must be 0 or 1", y.At(i, 0))
		}
	}

	dt.nFeatures = f
	dt.importance = make([]float64, f)

	var rng *rand.Rand
	if dt.maxFeatures > 0 && dt.maxFeatures < f {
		seed := dt.randomState
		if seed < 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	dt.root = dt.grow(X, labels, indices, 0, rng)
	dt.normalizeImportances()

	dt.state.SetFitted()
	dt.state.SetDimensions(f, n)

	dt.logger.Debug("Tree grown",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, f,
		"tree.depth", dt.Depth(),
		"tree.leaves", dt.NLeaves(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return nil
}

// grow recursively builds the tree over the sample indices.
func (dt *DecisionTreeClassifier) grow(X mat.Matrix, labels, indices []int, depth int, rng *rand.Rand) *Node {
	var counts [2]int
	for _, idx := range indices {
		counts[labels[idx]]++
	}

	predictClass := 0
	if counts[1] > counts[0] {
		predictClass = 1
	}

	impurity := dt.impurity(counts)

	node := &Node{
		ClassCounts:  counts,
		PredictClass: predictClass,
		Impurity:     impurity,
		NSamples:     len(indices),
		Depth:        depth,
	}

	if dt.shouldStop(len(indices), impurity, depth) {
		node.IsLeaf = true
		return node
	}

	feature, threshold, decrease := dt.findBestSplit(X, labels, indices, impurity, rng)
	if feature == -1 {
		node.IsLeaf = true
		return node
	}

	var left, right []int
	for _, idx := range indices {
		if X.At(idx, feature) <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	if len(left) < dt.minSamplesLeaf || len(right) < dt.minSamplesLeaf {
		node.IsLeaf = true
		return node
	}

	node.Feature = feature
	node.Threshold = threshold

	if decrease > 0 {
		dt.importance[feature] += decrease * float64(len(indices))
	}

	node.Left = dt.grow(X, labels, left, depth+1, rng)
	node.Right = dt.grow(X, labels, right, depth+1, rng)

	return node
}

func (dt *DecisionTreeClassifier) shouldStop(nSamples int, impurity float64, depth int) bool {
	if dt.maxDepth > 0 && depth >= dt.maxDepth {
		return true
	}
	if nSamples < dt.minSamplesSplit {
		return true
	}
	return impurity == 0.0
}

// impurity computes gini or entropy over the two class counts.
func (dt *DecisionTreeClassifier) impurity(counts [2]int) float64 {
	total := counts[0] + counts[1]
	if total == 0 {
		return 0.0
	}

	if dt.criterion == "entropy" {
		e := 0.0
		for _, count := range counts {
			if count > 0 {
				p := float64(count) / float64(total)
				e -= p * math.Log2(p)
			}
		}
		return e
	}

	sumSquared := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		sumSquared += p * p
	}
	return 1.0 - sumSquared
}

// findBestSplit scans candidate features for the threshold with the
// largest impurity decrease. When maxFeatures is set and an rng is
// available, only a random subset of features is considered.
//
// Any valid split is accepted, including one with zero immediate gain:
// on an impure node a zero-gain split still partitions the data so the
// children can find gain deeper down (XOR-structured features need
// this).
func (dt *DecisionTreeClassifier) findBestSplit(X mat.Matrix, labels, indices []int, parentImpurity float64, rng *rand.Rand) (int, float64, float64) {
	bestFeature := -1
	bestThreshold := 0.0
	bestDecrease := math.Inf(-1)

	features := dt.candidateFeatures(rng)

	for _, feature := range features {
		sorted := make([]int, len(indices))
		copy(sorted, indices)
		sort.Slice(sorted, func(i, j int) bool {
			return X.At(sorted[i], feature) < X.At(sorted[j], feature)
		})

		// Sweep thresholds left to right, maintaining running counts.
		var leftCounts [2]int
		rightCounts := [2]int{}
		for _, idx := range sorted {
			rightCounts[labels[idx]]++
		}

		for i := 0; i < len(sorted)-1; i++ {
			idx := sorted[i]
			leftCounts[labels[idx]]++
			rightCounts[labels[idx]]--

			v, next := X.At(idx, feature), X.At(sorted[i+1], feature)
			if v == next {
				continue
			}

			nLeft := i + 1
			nRight := len(sorted) - nLeft
			if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
				continue
			}

			weighted := (float64(nLeft)*dt.impurity(leftCounts) +
				float64(nRight)*dt.impurity(rightCounts)) / float64(len(sorted))
			decrease := parentImpurity - weighted

			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = (v + next) / 2.0
			}
		}
	}

	return bestFeature, bestThreshold, bestDecrease
}

// candidateFeatures returns the feature indices to scan at a split.
func (dt *DecisionTreeClassifier) candidateFeatures(rng *rand.Rand) []int {
	all := make([]int, dt.nFeatures)
	for i := range all {
		all[i] = i
	}

	if rng == nil || dt.maxFeatures == 0 || dt.maxFeatures >= dt.nFeatures {
		return all
	}

	rng.Shuffle(len(all), func(i, j int) {
		all[i], all[j] = all[j], all[i]
	})
	return all[:dt.maxFeatures]
}

func (dt *DecisionTreeClassifier) normalizeImportances() {
	sum := 0.0
	for _, imp := range dt.importance {
		sum += imp
	}
	if sum > 0 {
		for i := range dt.importance {
			dt.importance[i] /= sum
		}
	}
}

// Predict returns 0/1 labels as an (n_samples, 1) matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "DecisionTreeClassifier.Predict")

	if err := dt.state.RequireFitted("DecisionTreeClassifier", "Predict"); err != nil {
		return nil, err
	}

	n, f := X.Dims()
	if f != dt.nFeatures {
		return nil, churnErrors.NewDimensionError("DecisionTreeClassifier.Predict", dt.nFeatures, f, 1)
	}

	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		leaf := dt.traverse(X, i)
		predictions.Set(i, 0, float64(leaf.PredictClass))
	}

	return predictions, nil
}

// PredictProba returns per-class leaf frequencies as an (n_samples, 2)
// matrix with column 0 for loyal and column 1 for churn.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (_ *mat.Dense, err error) {
	defer churnErrors.Recover(&err, "DecisionTreeClassifier.PredictProba")

	if err := dt.state.RequireFitted("DecisionTreeClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	n, f := X.Dims()
	if f != dt.nFeatures {
		return nil, churnErrors.NewDimensionError("DecisionTreeClassifier.PredictProba", dt.nFeatures, f, 1)
	}

	proba := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		leaf := dt.traverse(X, i)
		total := leaf.ClassCounts[0] + leaf.ClassCounts[1]
		if total > 0 {
			proba.Set(i, 0, float64(leaf.ClassCounts[0])/float64(total))
			proba.Set(i, 1, float64(leaf.ClassCounts[1])/float64(total))
		}
	}

	return proba, nil
}

func (dt *DecisionTreeClassifier) traverse(X mat.Matrix, i int) *Node {
	node := dt.root
	for !node.IsLeaf {
		if X.At(i, node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// Score returns the mean accuracy on the given test data and 0/1 labels.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}

	n, _ := X.Dims()
	correct := 0
	for i := 0; i < n; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}

	return float64(correct) / float64(n), nil
}

// FeatureImportances returns the normalized impurity-decrease
// importance per feature. The scores sum to 1 when any split was made.
// Returns nil before Fit.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	if dt.importance == nil {
		return nil
	}
	out := make([]float64, len(dt.importance))
	copy(out, dt.importance)
	return out
}

// Depth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) Depth() int {
	return maxDepth(dt.root)
}

func maxDepth(node *Node) int {
	if node == nil {
		return 0
	}
	if node.IsLeaf {
		return node.Depth
	}
	left, right := maxDepth(node.Left), maxDepth(node.Right)
	if left > right {
		return left
	}
	return right
}

// NLeaves returns the number of leaves in the fitted tree.
func (dt *DecisionTreeClassifier) NLeaves() int {
	return countLeaves(dt.root)
}

func countLeaves(node *Node) int {
	if node == nil {
		return 0
	}
	if node.IsLeaf {
		return 1
	}
	return countLeaves(node.Left) + countLeaves(node.Right)
}
