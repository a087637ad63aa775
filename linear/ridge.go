// Package linear provides the linear model variant of the churn study.
//
// RidgeClassifier fits an L2-regularized least-squares model against ±1
// encoded churn labels and classifies by the sign of the decision function.
// It trains in closed form via the normal equations, so a fit either
// succeeds outright or fails with a singular-matrix error.
package linear

import (
	"time"

	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/parallel"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

// RidgeClassifier is a binary classifier backed by ridge regression on
// ±1-encoded labels.
type RidgeClassifier struct {
	state *coremodel.StateManager

	// Alpha is the L2 regularization strength. The intercept is never
	// penalized.
	Alpha float64

	// Weights holds the fitted coefficients, one per feature.
	Weights *mat.VecDense

	// Intercept is the fitted bias term.
	Intercept float64

	// NFeatures is the number of features seen during Fit.
	NFeatures int

	logger log.Logger
}

// RidgeOption is a functional option for RidgeClassifier.
type RidgeOption func(*RidgeClassifier)

// WithAlpha sets the L2 regularization strength.
func WithAlpha(alpha float64) RidgeOption {
	return func(r *RidgeClassifier) {
		r.Alpha = alpha
	}
}

// NewRidgeClassifier creates a RidgeClassifier with alpha 1.0 unless
// overridden.
//
// Example:
//
//	clf := linear.NewRidgeClassifier(linear.WithAlpha(0.5))
//	err := clf.Fit(XTrain, yTrain)
//	preds, err := clf.Predict(XTest)
func NewRidgeClassifier(opts ...RidgeOption) *RidgeClassifier {
	r := &RidgeClassifier{
		state: coremodel.NewStateManager(),
		Alpha: 1.0,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.logger = log.GetLoggerWithName("linear").With(
		log.ModelNameKey, "RidgeClassifier",
	)

	return r
}

// Name identifies the model variant.
func (r *RidgeClassifier) Name() string { return "RidgeClassifier" }

// IsFitted returns whether the model has been fitted.
func (r *RidgeClassifier) IsFitted() bool { return r.state.IsFitted() }

// Fit trains the classifier on X (n_samples, n_features) and 0/1 labels y
// (n_samples, 1).
//
// Labels are mapped to ±1 and the weights solve the penalized normal
// equations (X'X + alpha*I)w = X'y, with the intercept column excluded
// from the penalty.
func (r *RidgeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer churnErrors.Recover(&err, "RidgeClassifier.Fit")

	start := time.Now()

	n, c := X.Dims()
	ry, cy := y.Dims()

	if n == 0 || c == 0 {
		return churnErrors.NewModelError("RidgeClassifier.Fit", "empty data", churnErrors.ErrEmptyData)
	}
	if ry != n {
		return churnErrors.NewDimensionError("RidgeClassifier.Fit", n, ry, 0)
	}
	if cy != 1 {
		return churnErrors.NewValueError("RidgeClassifier.Fit", "y must be a column vector")
	}
	if r.Alpha < 0 {
		return churnErrors.NewValidationError("alpha", "must be non-negative", r.Alpha)
	}

	r.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, n,
		log.FeaturesKey, c,
	)

	r.NFeatures = c

	// Targets in {-1, +1}; validate labels while encoding.
	target := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		switch y.At(i, 0) {
		case 0:
			target.SetVec(i, -1)
		case 1:
			target.SetVec(i, 1)
		default:
			return churnErrors.Mark(
				churnErrors.NewValidationError("y", "labels must be 0 or 1", y.At(i, 0)),
				churnErrors.ErrNotBinary)
		}
	}

	// Design matrix with a leading intercept column.
	XD := mat.NewDense(n, c+1, nil)
	const parallelThreshold = 1000
	parallel.ParallelizeWithThreshold(n, parallelThreshold, func(startRow, endRow int) {
		for i := startRow; i < endRow; i++ {
			XD.Set(i, 0, 1.0)
			for j := 0; j < c; j++ {
				XD.Set(i, j+1, X.At(i, j))
			}
		}
	})

	var XT mat.Dense
	XT.CloneFrom(XD.T())

	var gram mat.Dense
	gram.Mul(&XT, XD)

	// Ridge penalty on every coefficient except the intercept.
	for j := 1; j <= c; j++ {
		gram.Set(j, j, gram.At(j, j)+r.Alpha)
	}

	var gramInv mat.Dense
	if err := gramInv.Inverse(&gram); err != nil {
		return churnErrors.NewModelError("RidgeClassifier.Fit", "singular matrix", churnErrors.ErrSingularMatrix)
	}

	var Xty mat.VecDense
	Xty.MulVec(&XT, target)

	weights := mat.NewVecDense(c+1, nil)
	weights.MulVec(&gramInv, &Xty)

	r.Intercept = weights.AtVec(0)
	r.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		r.Weights.SetVec(j, weights.AtVec(j+1))
	}

	r.state.SetFitted()
	r.state.SetDimensions(c, n)

	r.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return nil
}

// DecisionFunction returns the raw scores X*w + b as a column vector.
// Positive scores classify as churn.
func (r *RidgeClassifier) DecisionFunction(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer churnErrors.Recover(&err, "RidgeClassifier.DecisionFunction")

	if err := r.state.RequireFitted("RidgeClassifier", "DecisionFunction"); err != nil {
		return nil, err
	}

	n, c := X.Dims()
	if c != r.NFeatures {
		return nil, churnErrors.NewDimensionError("RidgeClassifier.DecisionFunction", r.NFeatures, c, 1)
	}

	scores := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		s := r.Intercept
		for j := 0; j < c; j++ {
			s += X.At(i, j) * r.Weights.AtVec(j)
		}
		scores.SetVec(i, s)
	}

	return scores, nil
}

// Predict returns 0/1 labels as an (n_samples, 1) matrix.
func (r *RidgeClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "RidgeClassifier.Predict")

	scores, err := r.DecisionFunction(X)
	if err != nil {
		return nil, err
	}

	n := scores.Len()
	predictions := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if scores.AtVec(i) >= 0 {
			predictions.Set(i, 0, 1)
		}
	}

	return predictions, nil
}

// Score returns the mean accuracy on the given test data and 0/1 labels.
func (r *RidgeClassifier) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := r.Predict(X)
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
