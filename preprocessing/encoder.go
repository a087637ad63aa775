package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// OneHotEncoder converts categorical string columns into 0/1 dummy columns,
// one per observed category, the way the yes/no membership columns are
// expanded before modelling.
type OneHotEncoder struct {
	state *coremodel.StateManager

	// Categories holds each input column's observed categories, sorted.
	Categories [][]string

	// CategoryToIdx maps category value to dummy offset per input column.
	CategoryToIdx []map[string]int

	// ColumnNames optionally names the input columns; used by FeatureNames.
	ColumnNames []string

	// NFeatures is the number of input columns seen during Fit.
	NFeatures int

	// NOutputs is the number of dummy columns produced.
	NOutputs int
}

// NewOneHotEncoder creates a OneHotEncoder. Column names are optional; when
// given they label the generated dummy columns (e.g. "gender_1").
func NewOneHotEncoder(columnNames ...string) *OneHotEncoder {
	return &OneHotEncoder{
		state:       coremodel.NewStateManager(),
		ColumnNames: columnNames,
	}
}

// IsFitted returns whether the encoder has been fitted.
func (e *OneHotEncoder) IsFitted() bool {
	return e.state.IsFitted()
}

// Fit collects the distinct categories of every input column.
//
// data is an n_samples x n_features string grid. Each column's categories
// are sorted so the dummy layout is stable across runs.
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer churnErrors.Recover(&err, "OneHotEncoder.Fit")

	if len(data) == 0 || len(data[0]) == 0 {
		return churnErrors.NewModelError("OneHotEncoder.Fit", "empty data", churnErrors.ErrEmptyData)
	}

	nSamples := len(data)
	nFeatures := len(data[0])

	for i, row := range data {
		if len(row) != nFeatures {
			return churnErrors.NewDimensionError("OneHotEncoder.Fit", nFeatures, len(row), i)
		}
	}

	e.NFeatures = nFeatures
	e.Categories = make([][]string, nFeatures)
	e.CategoryToIdx = make([]map[string]int, nFeatures)

	for j := 0; j < nFeatures; j++ {
		categorySet := make(map[string]bool)
		for i := 0; i < nSamples; i++ {
			categorySet[data[i][j]] = true
		}

		categories := make([]string, 0, len(categorySet))
		for category := range categorySet {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		e.Categories[j] = categories

		categoryToIdx := make(map[string]int, len(categories))
		for idx, category := range categories {
			categoryToIdx[category] = idx
		}
		e.CategoryToIdx[j] = categoryToIdx
	}

	e.NOutputs = 0
	for _, categories := range e.Categories {
		e.NOutputs += len(categories)
	}

	e.state.SetFitted()
	e.state.SetDimensions(nFeatures, nSamples)
	return nil
}

// Transform one-hot encodes data using the fitted categories.
//
// Categories not seen during Fit produce all-zero dummies for that column,
// so prediction input never grows columns the models were not trained on.
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "OneHotEncoder.Transform")

	if err := e.state.RequireFitted("OneHotEncoder", "Transform"); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return mat.NewDense(0, e.NOutputs, nil), nil
	}

	nSamples := len(data)
	nFeatures := e.NFeatures
	for i, row := range data {
		if len(row) != nFeatures {
			return nil, churnErrors.NewDimensionError("OneHotEncoder.Transform", nFeatures, len(row), i)
		}
	}

	result := mat.NewDense(nSamples, e.NOutputs, nil)
	for i := 0; i < nSamples; i++ {
		outputIdx := 0
		for j := 0; j < nFeatures; j++ {
			if idx, exists := e.CategoryToIdx[j][data[i][j]]; exists {
				result.Set(i, outputIdx+idx, 1.0)
			}
			outputIdx += len(e.Categories[j])
		}
	}

	return result, nil
}

// FitTransform fits the encoder and transforms the same data in one step.
func (e *OneHotEncoder) FitTransform(data [][]string) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "OneHotEncoder.FitTransform")

	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// FeatureNames returns the names of the generated dummy columns, formed as
// "<column>_<category>". Columns without a configured name fall back to
// "x<i>". Returns nil before Fit.
func (e *OneHotEncoder) FeatureNames() []string {
	if !e.IsFitted() {
		return nil
	}

	var out []string
	for j, categories := range e.Categories {
		name := fmt.Sprintf("x%d", j)
		if j < len(e.ColumnNames) {
			name = e.ColumnNames[j]
		}
		for _, category := range categories {
			out = append(out, fmt.Sprintf("%s_%s", name, category))
		}
	}
	return out
}
