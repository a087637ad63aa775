package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// ColumnScaler standardizes a contiguous block of columns and passes the
// remaining columns through unchanged. It lets a pipeline scale the
// numeric block of a stacked feature matrix without touching the one-hot
// dummy columns in front of it.
type ColumnScaler struct {
	state  *coremodel.StateManager
	scaler *StandardScaler

	// From and To bound the scaled columns as the half-open range
	// [From, To).
	From, To int

	// NFeatures is the total column count seen during Fit.
	NFeatures int
}

// NewColumnScaler creates a ColumnScaler standardizing columns in
// [from, to).
func NewColumnScaler(from, to int) *ColumnScaler {
	return &ColumnScaler{
		state:  coremodel.NewStateManager(),
		scaler: NewStandardScalerDefault(),
		From:   from,
		To:     to,
	}
}

// IsFitted returns whether the scaler has been fitted.
func (c *ColumnScaler) IsFitted() bool {
	return c.state.IsFitted()
}

// block copies the scaled column range out of X.
func (c *ColumnScaler) block(X mat.Matrix) *mat.Dense {
	r, _ := X.Dims()
	sub := mat.NewDense(r, c.To-c.From, nil)
	for i := 0; i < r; i++ {
		for j := c.From; j < c.To; j++ {
			sub.Set(i, j-c.From, X.At(i, j))
		}
	}
	return sub
}

// Fit computes standardization statistics over the scaled column range.
func (c *ColumnScaler) Fit(X mat.Matrix) (err error) {
	defer churnErrors.Recover(&err, "ColumnScaler.Fit")

	r, cols := X.Dims()
	if r == 0 || cols == 0 {
		return churnErrors.NewModelError("ColumnScaler.Fit", "empty data", churnErrors.ErrEmptyData)
	}
	if c.From < 0 || c.To <= c.From {
		return churnErrors.NewValidationError("From", "column range must be non-empty", c.From)
	}
	if c.To > cols {
		return churnErrors.NewDimensionError("ColumnScaler.Fit", c.To, cols, 1)
	}

	if err := c.scaler.Fit(c.block(X)); err != nil {
		return err
	}

	c.NFeatures = cols
	c.state.SetFitted()
	c.state.SetDimensions(cols, r)
	return nil
}

// Transform standardizes the fitted column range and copies the other
// columns through unchanged.
func (c *ColumnScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "ColumnScaler.Transform")

	if err := c.state.RequireFitted("ColumnScaler", "Transform"); err != nil {
		return nil, err
	}

	r, cols := X.Dims()
	if cols != c.NFeatures {
		return nil, churnErrors.NewDimensionError("ColumnScaler.Transform", c.NFeatures, cols, 1)
	}

	scaled, err := c.scaler.Transform(c.block(X))
	if err != nil {
		return nil, err
	}

	result := mat.NewDense(r, cols, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			if j >= c.From && j < c.To {
				result.Set(i, j, scaled.At(i, j-c.From))
			} else {
				result.Set(i, j, X.At(i, j))
			}
		}
	}

	return result, nil
}

// FitTransform fits the scaler and transforms the same data in one step.
func (c *ColumnScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "ColumnScaler.FitTransform")

	if err := c.Fit(X); err != nil {
		return nil, err
	}
	return c.Transform(X)
}
