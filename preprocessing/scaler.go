// Package preprocessing prepares the raw customer table for modelling.
//
// Two components cover what the analysis needs, both with the familiar
// Fit/Transform/FitTransform surface:
//
//   - StandardScaler: standardizes the numeric columns to zero mean and unit
//     variance, fitted on the training partition only
//   - OneHotEncoder: dummy-encodes the categorical columns before scoring
//
// Both components must be fitted before transforming and report structured
// errors on shape mismatches.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// StandardScaler standardizes features by removing the mean and scaling to
// unit variance: X_scaled = (X - mean) / scale.
type StandardScaler struct {
	state *coremodel.StateManager

	// Mean holds each feature's mean, computed at Fit time.
	Mean []float64

	// Scale holds each feature's standard deviation. Near-zero deviations
	// are replaced by 1 to avoid division by zero.
	Scale []float64

	// NFeatures is the number of features seen during Fit.
	NFeatures int

	// WithMean controls whether the mean is subtracted (default true).
	WithMean bool

	// WithStd controls whether values are divided by the standard deviation
	// (default true).
	WithStd bool
}

// NewStandardScaler creates a StandardScaler.
//
// Parameters:
//   - withMean: center the data at zero by removing the mean
//   - withStd: scale the data to unit variance
//
// Example:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	scaled, err := scaler.FitTransform(XTrain)
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		state:    coremodel.NewStateManager(),
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault creates a StandardScaler with default settings
// (center and scale).
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// IsFitted returns whether the scaler has been fitted.
func (s *StandardScaler) IsFitted() bool {
	return s.state.IsFitted()
}

// Fit computes the per-feature mean and standard deviation of X.
//
// X has shape (n_samples, n_features). The statistics computed here are
// applied by every subsequent Transform call, so Fit should only ever see
// the training partition.
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer churnErrors.Recover(&err, "StandardScaler.Fit")

	r, c := X.Dims()
	if r == 0 || c == 0 {
		return churnErrors.NewModelError("StandardScaler.Fit", "empty data", churnErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	if s.WithMean {
		for j := 0; j < c; j++ {
			sum := 0.0
			for i := 0; i < r; i++ {
				sum += X.At(i, j)
			}
			s.Mean[j] = sum / float64(r)
		}
	}

	if s.WithStd {
		for j := 0; j < c; j++ {
			sumSquares := 0.0
			for i := 0; i < r; i++ {
				diff := X.At(i, j) - s.Mean[j]
				sumSquares += diff * diff
			}
			s.Scale[j] = math.Sqrt(sumSquares / float64(r))

			// Constant columns would divide by zero.
			if math.Abs(s.Scale[j]) < 1e-8 {
				s.Scale[j] = 1.0
			}
		}
	} else {
		for j := 0; j < c; j++ {
			s.Scale[j] = 1.0
		}
	}

	s.state.SetFitted()
	s.state.SetDimensions(c, r)
	return nil
}

// Transform standardizes X using the fitted statistics.
//
// Returns a matrix of the same shape. Fails with a NotFittedError before
// Fit and with a DimensionError when X's feature count differs from the
// training data.
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "StandardScaler.Transform")

	if err := s.state.RequireFitted("StandardScaler", "Transform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, churnErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}

	return result, nil
}

// FitTransform fits the scaler and transforms the same data in one step.
func (s *StandardScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "StandardScaler.FitTransform")

	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps standardized data back to the original scale:
// X_orig = X_scaled * scale + mean.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "StandardScaler.InverseTransform")

	if err := s.state.RequireFitted("StandardScaler", "InverseTransform"); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, churnErrors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}

	return result, nil
}
