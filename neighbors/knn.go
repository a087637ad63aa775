// Package neighbors implements the k-nearest-neighbors variant of the
// churn study.
package neighbors

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/parallel"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

// KNNClassifier predicts churn by majority vote among the K nearest
// training samples under squared euclidean distance.
//
// Fit is lazy: it only stores the training data, so prediction cost
// grows with the training set. Callers should scale features first so
// no single column dominates the distance.
type KNNClassifier struct {
	state *coremodel.StateManager

	// K is the number of neighbors consulted per prediction.
	K int

	trainX *mat.Dense
	trainY []float64

	logger log.Logger
}

// KNNOption is a functional option for KNNClassifier.
type KNNOption func(*KNNClassifier)

// WithK sets the number of neighbors.
func WithK(k int) KNNOption {
	return func(c *KNNClassifier) {
		c.K = k
	}
}

// NewKNNClassifier creates a KNNClassifier with K=5 unless overridden.
func NewKNNClassifier(opts ...KNNOption) *KNNClassifier {
	c := &KNNClassifier{
		state: coremodel.NewStateManager(),
		K:     5,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger = log.GetLoggerWithName("neighbors").With(
		log.ModelNameKey, "KNNClassifier",
	)

	return c
}

// Name identifies the model variant.
func (c *KNNClassifier) Name() string { return "KNNClassifier" }

// IsFitted returns whether the model has been fitted.
func (c *KNNClassifier) IsFitted() bool { return c.state.IsFitted() }

// Fit stores the training data X (n_samples, n_features) and 0/1 labels
// y (n_samples, 1).
func (c *KNNClassifier) Fit(X, y mat.Matrix) (err error) {
	defer churnErrors.Recover(&err, "KNNClassifier.Fit")

	start := time.Now()

	n, f := X.Dims()
	ry, cy := y.Dims()

	if n == 0 || f == 0 {
		return churnErrors.NewModelError("KNNClassifier.Fit", "empty data", churnErrors.ErrEmptyData)
	}
	if ry != n {
		return churnErrors.NewDimensionError("KNNClassifier.Fit", n, ry, 0)
	}
	if cy != 1 {
		return churnErrors.NewValueError("KNNClassifier.Fit", "y must be a column vector")
	}
	if c.K < 1 {
		return churnErrors.NewValidationError("k", "must be at least 1", c.K)
	}
	if c.K > n {
		return churnErrors.NewValidationError("k", "cannot exceed the number of training samples", c.K)
	}

	c.trainX = mat.DenseCopyOf(X)
	c.trainY = make([]float64, n)
	for i := 0; i < n; i++ {
		label := y.At(i, 0)
		if label != 0 && label != 1 {
			return churnErrors.NewValidationError("y", "labels must be 0 or 1", label)
		}
		c.trainY[i] = label
	}

	c.state.SetFitted()
	c.state.SetDimensions(f, n)

	c.logger.Info("Training data stored",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		log.FeaturesKey, f,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return nil
}

// Predict returns 0/1 labels as an (n_samples, 1) matrix. Prediction
// rows are scored in parallel.
func (c *KNNClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "KNNClassifier.Predict")

	proba, err := c.PredictProba(X)
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

// PredictProba returns per-class vote fractions as an (n_samples, 2)
// matrix with column 0 for loyal and column 1 for churn.
func (c *KNNClassifier) PredictProba(X mat.Matrix) (_ *mat.Dense, err error) {
	defer churnErrors.Recover(&err, "KNNClassifier.PredictProba")

	if err := c.state.RequireFitted("KNNClassifier", "PredictProba"); err != nil {
		return nil, err
	}

	n, f := X.Dims()
	nFeatures, _ := c.state.GetDimensions()
	if f != nFeatures {
		return nil, churnErrors.NewDimensionError("KNNClassifier.PredictProba", nFeatures, f, 1)
	}

	proba := mat.NewDense(n, 2, nil)

	parallel.Parallelize(n, func(startRow, endRow int) {
		for i := startRow; i < endRow; i++ {
			churnVotes := c.vote(X, i)
			proba.Set(i, 0, 1-churnVotes)
			proba.Set(i, 1, churnVotes)
		}
	})

	return proba, nil
}

// Score returns the mean accuracy on the given test data and 0/1 labels.
func (c *KNNClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := c.Predict(X)
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

// vote returns the fraction of the K nearest training samples labeled
// churn for query row i of X.
func (c *KNNClassifier) vote(X mat.Matrix, i int) float64 {
	nTrain, f := c.trainX.Dims()

	// Track the K smallest squared distances with a simple insertion
	// pass. K is small relative to the training set, so this beats a
	// full sort.
	bestDist := make([]float64, c.K)
	bestIdx := make([]int, c.K)
	for k := range bestDist {
		bestDist[k] = math.Inf(1)
		bestIdx[k] = -1
	}

	for t := 0; t < nTrain; t++ {
		d := 0.0
		for j := 0; j < f; j++ {
			diff := X.At(i, j) - c.trainX.At(t, j)
			d += diff * diff
		}

		if d >= bestDist[c.K-1] {
			continue
		}

		pos := c.K - 1
		for pos > 0 && bestDist[pos-1] > d {
			bestDist[pos] = bestDist[pos-1]
			bestIdx[pos] = bestIdx[pos-1]
			pos--
		}
		bestDist[pos] = d
		bestIdx[pos] = t
	}

	churn := 0
	for _, idx := range bestIdx {
		if c.trainY[idx] == 1 {
			churn++
		}
	}

	return float64(churn) / float64(c.K)
}
