// Package ensemble implements a random forest over the tree package's
// decision trees. Trees train concurrently on bootstrap resamples and
// predictions are decided by majority vote.
package ensemble

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/tree"
)

// RandomForestClassifier is a bagged ensemble of decision trees for
// binary churn classification.
//
// Each tree trains on a bootstrap resample of the data and considers
// sqrt(n_features) candidate features per split. With RandomState set,
// tree i is seeded with RandomState+i, so fits are reproducible.
type RandomForestClassifier struct {
	state *coremodel.StateManager

	// NEstimators is the number of trees in the forest.
	NEstimators int

	// MaxDepth caps each tree's depth. Zero means unlimited.
	MaxDepth int

	// MinSamplesSplit is forwarded to every tree.
	MinSamplesSplit int

	// Criterion is the per-tree splitting criterion.
	Criterion string

	// RandomState seeds bootstrap sampling and feature subsampling.
	// Negative means non-deterministic.
	RandomState int64

	trees     []*tree.DecisionTreeClassifier
	nFeatures int

	logger log.Logger
}

// ForestOption is a functional option for RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.NEstimators = n
	}
}

// WithMaxDepth caps each tree's depth. Zero means unlimited.
func WithMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.MaxDepth = depth
	}
}

// WithMinSamplesSplit sets the per-tree minimum samples to split.
func WithMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.MinSamplesSplit = n
	}
}

// WithCriterion sets the per-tree splitting criterion.
func WithCriterion(criterion string) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.Criterion = criterion
	}
}

// WithRandomState seeds the forest for reproducible fits.
func WithRandomState(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.RandomState = seed
	}
}

// NewRandomForestClassifier creates a forest of 100 gini trees unless
// overridden.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           coremodel.NewStateManager(),
		NEstimators:     100,
		MinSamplesSplit: 2,
		Criterion:       "gini",
		RandomState:     -1,
	}

	for _, opt := range opts {
		opt(rf)
	}

	rf.logger = log.GetLoggerWithName("ensemble").With(
		log.ModelNameKey, "RandomForestClassifier",
	)

	return rf
}

// Name identifies the model variant.
func (rf *RandomForestClassifier) Name() string { return "RandomForestClassifier" }

// IsFitted returns whether the model has been fitted.
func (rf *RandomForestClassifier) IsFitted() bool { return rf.state.IsFitted() }

// Fit trains the forest on X (n_samples, n_features) and 0/1 labels y
// (n_samples, 1). Trees are trained concurrently, one goroutine each.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer churnErrors.Recover(&err, "RandomForestClassifier.Fit")

	start := time.Now()

	n, f := X.Dims()
	ry, cy := y.Dims()

	if n == 0 || f == 0 {
		return churnErrors.NewModelError("RandomForestClassifier.Fit", "empty data", churnErrors.ErrEmptyData)
	}
	if ry != n {
		return churnErrors.NewDimensionError("RandomForestClassifier.Fit", n, ry, 0)
	}
	if cy != 1 {
		return churnErrors.NewValueError("RandomForestClassifier.Fit", "y must be a column vector")
	}
	if rf.NEstimators < 1 {
		return churnErrors.NewValidationError("nEstimators", "must be at least 1", rf.NEstimators)
	}

	rf.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		log.FeaturesKey, f,
		"ensemble.trees", rf.NEstimators,
	)

	rf.nFeatures = f
	rf.trees = make([]*tree.DecisionTreeClassifier, rf.NEstimators)

	maxFeatures := int(math.Sqrt(float64(f)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	baseSeed := rf.RandomState
	if baseSeed < 0 {
		baseSeed = time.Now().UnixNano()
	}

	var wg sync.WaitGroup
	errs := make([]error, rf.NEstimators)

	for t := 0; t < rf.NEstimators; t++ {
		wg.Add(1)
		go func(treeIdx int) {
			defer wg.Done()

			seed := baseSeed + int64(treeIdx)
			rng := rand.New(rand.NewSource(seed))

			bootX, bootY := bootstrap(X, y, rng)

			clf := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.Criterion),
				tree.WithMaxDepth(rf.MaxDepth),
				tree.WithMinSamplesSplit(rf.MinSamplesSplit),
				tree.WithMaxFeatures(maxFeatures),
				tree.WithRandomState(seed),
			)

			if err := clf.Fit(bootX, bootY); err != nil {
				errs[treeIdx] = err
				return
			}
			rf.trees[treeIdx] = clf
		}(t)
	}

	wg.Wait()

	for _, treeErr := range errs {
		if treeErr != nil {
			return churnErrors.NewModelError("RandomForestClassifier.Fit", "tree training failed", treeErr)
		}
	}

	rf.state.SetFitted()
	rf.state.SetDimensions(f, n)

	rf.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return nil
}

// bootstrap draws n samples with replacement from X and y.
func bootstrap(X, y mat.Matrix, rng *rand.Rand) (*mat.Dense, *mat.Dense) {
	n, f := X.Dims()

	bootX := mat.NewDense(n, f, nil)
	bootY := mat.NewDense(n, 1, nil)

	for i := 0; i < n; i++ {
		src := rng.Intn(n)
		for j := 0; j < f; j++ {
			bootX.Set(i, j, X.At(src, j))
		}
		bootY.Set(i, 0, y.At(src, 0))
	}

	return bootX, bootY
}

// Predict returns 0/1 labels as an (n_samples, 1) matrix, decided by
// majority vote across the trees.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "RandomForestClassifier.Predict")

	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	n, _ := proba.Dims()
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if proba.At(i, 1) > 0.5 {
			predictions.Set(i, 0, 1)
		}
	}

	return predictions, nil
}

// PredictProba returns the fraction of trees voting for each class as
// an (n_samples, 2) matrix with column 0 for loyal and column 1 for
// churn.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (_ *mat.Dense, err error) {
	defer churnErrors.Recover(&err, "RandomForestClassifier.PredictProba")

	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	n, f := X.Dims()
	if f != rf.nFeatures {
		return nil, churnErrors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures, f, 1)
	}

	churnVotes := make([]int, n)
	for _, clf := range rf.trees {
		preds, err := clf.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if preds.At(i, 0) == 1 {
				churnVotes[i]++
			}
		}
	}

	proba := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p := float64(churnVotes[i]) / float64(len(rf.trees))
		proba.Set(i, 0, 1-p)
		proba.Set(i, 1, p)
	}

	return proba, nil
}

// Score returns the mean accuracy on the given test data and 0/1 labels.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := rf.Predict(X)
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

// FeatureImportances returns per-feature importances averaged over the
// trees, renormalized to sum to 1. Returns nil before Fit.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	if !rf.state.IsFitted() {
		return nil
	}

	avg := make([]float64, rf.nFeatures)
	for _, clf := range rf.trees {
		for j, imp := range clf.FeatureImportances() {
			avg[j] += imp
		}
	}

	sum := 0.0
	for _, v := range avg {
		sum += v
	}
	if sum > 0 {
		for j := range avg {
			avg[j] /= sum
		}
	}

	return avg
}
