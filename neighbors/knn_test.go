package neighbors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

func clusteredData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(10, 2, []float64{
		1.0, 1.1,
		0.9, 1.0,
		1.2, 0.8,
		1.1, 1.2,
		0.8, 0.9,
		5.0, 5.1,
		5.2, 4.9,
		4.8, 5.0,
		5.1, 5.2,
		4.9, 4.8,
	})
	y := mat.NewDense(10, 1, []float64{0, 0, 0, 0, 0, 1, 1, 1, 1, 1})
	return X, y
}

func TestKNNClassifierPredict(t *testing.T) {
	X, y := clusteredData()

	clf := NewKNNClassifier(WithK(3))
	require.NoError(t, clf.Fit(X, y))
	assert.True(t, clf.IsFitted())

	queries := mat.NewDense(2, 2, []float64{
		1.0, 1.0,
		5.0, 5.0,
	})

	predictions, err := clf.Predict(queries)
	require.NoError(t, err)

	assert.Equal(t, 0.0, predictions.At(0, 0))
	assert.Equal(t, 1.0, predictions.At(1, 0))
}

func TestKNNClassifierPredictProba(t *testing.T) {
	X, y := clusteredData()

	clf := NewKNNClassifier(WithK(5))
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(mat.NewDense(1, 2, []float64{5.0, 5.0}))
	require.NoError(t, err)

	// All 5 nearest neighbors of (5,5) are churners.
	assert.Equal(t, 0.0, proba.At(0, 0))
	assert.Equal(t, 1.0, proba.At(0, 1))
}

func TestKNNClassifierProbaRowsSumToOne(t *testing.T) {
	X, y := clusteredData()

	clf := NewKNNClassifier(WithK(3))
	require.NoError(t, clf.Fit(X, y))

	proba, err := clf.PredictProba(X)
	require.NoError(t, err)

	n, _ := proba.Dims()
	for i := 0; i < n; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
}

func TestKNNClassifierScore(t *testing.T) {
	X, y := clusteredData()

	clf := NewKNNClassifier(WithK(3))
	require.NoError(t, clf.Fit(X, y))

	score, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)
}

func TestKNNClassifierNotFitted(t *testing.T) {
	clf := NewKNNClassifier()

	_, err := clf.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	require.Error(t, err)

	var notFitted *churnErrors.NotFittedError
	assert.True(t, churnErrors.As(err, &notFitted))
}

func TestKNNClassifierValidation(t *testing.T) {
	X, y := clusteredData()

	t.Run("k too large", func(t *testing.T) {
		clf := NewKNNClassifier(WithK(100))
		assert.Error(t, clf.Fit(X, y))
	})

	t.Run("k below one", func(t *testing.T) {
		clf := NewKNNClassifier(WithK(0))
		assert.Error(t, clf.Fit(X, y))
	})

	t.Run("non-binary labels", func(t *testing.T) {
		bad := mat.NewDense(10, 1, nil)
		bad.Set(0, 0, 3)
		clf := NewKNNClassifier(WithK(3))
		assert.Error(t, clf.Fit(X, bad))
	})

	t.Run("feature mismatch at predict", func(t *testing.T) {
		clf := NewKNNClassifier(WithK(3))
		require.NoError(t, clf.Fit(X, y))

		_, err := clf.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
		require.Error(t, err)

		var dimErr *churnErrors.DimensionError
		assert.True(t, churnErrors.As(err, &dimErr))
	})
}
