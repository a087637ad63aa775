package ensemble

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// noisyClusters draws two gaussian blobs with a little overlap.
func noisyClusters(n int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))

	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)

	for i := 0; i < n; i++ {
		center := 0.0
		if i%2 == 1 {
			center = 3.0
			y.Set(i, 0, 1)
		}
		X.Set(i, 0, center+rng.NormFloat64())
		X.Set(i, 1, center+rng.NormFloat64())
	}

	return X, y
}

func TestRandomForestFitPredict(t *testing.T) {
	X, y := noisyClusters(200, 1)

	rf := NewRandomForestClassifier(
		WithNEstimators(25),
		WithRandomState(42),
	)
	require.NoError(t, rf.Fit(X, y))
	assert.True(t, rf.IsFitted())

	score, err := rf.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, score, 0.9, "forest should separate the clusters")
}

func TestRandomForestDeterministicWithSeed(t *testing.T) {
	X, y := noisyClusters(100, 2)
	queries, _ := noisyClusters(30, 3)

	a := NewRandomForestClassifier(WithNEstimators(15), WithRandomState(7))
	b := NewRandomForestClassifier(WithNEstimators(15), WithRandomState(7))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(queries)
	require.NoError(t, err)
	pb, err := b.Predict(queries)
	require.NoError(t, err)

	n, _ := pa.Dims()
	for i := 0; i < n; i++ {
		assert.Equal(t, pa.At(i, 0), pb.At(i, 0), "sample %d", i)
	}
}

func TestRandomForestPredictProba(t *testing.T) {
	X, y := noisyClusters(100, 4)

	rf := NewRandomForestClassifier(WithNEstimators(20), WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)

	n, cols := proba.Dims()
	assert.Equal(t, 2, cols)
	for i := 0; i < n; i++ {
		sum := proba.At(i, 0) + proba.At(i, 1)
		assert.InDelta(t, 1.0, sum, 1e-12)
		assert.GreaterOrEqual(t, proba.At(i, 1), 0.0)
		assert.LessOrEqual(t, proba.At(i, 1), 1.0)
	}
}

func TestRandomForestFeatureImportances(t *testing.T) {
	// Feature 0 separates the classes, feature 1 is pure noise.
	rng := rand.New(rand.NewSource(5))
	X := mat.NewDense(200, 2, nil)
	y := mat.NewDense(200, 1, nil)
	for i := 0; i < 200; i++ {
		if i%2 == 1 {
			X.Set(i, 0, 5+rng.NormFloat64()*0.1)
			y.Set(i, 0, 1)
		} else {
			X.Set(i, 0, rng.NormFloat64()*0.1)
		}
		X.Set(i, 1, rng.NormFloat64())
	}

	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))

	imp := rf.FeatureImportances()
	require.Len(t, imp, 2)

	sum := imp[0] + imp[1]
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, imp[0], imp[1], "informative feature should rank above noise")
}

func TestRandomForestBetterThanSingleDeepTreeOnNoise(t *testing.T) {
	XTrain, yTrain := noisyClusters(300, 6)
	XTest, yTest := noisyClusters(100, 7)

	rf := NewRandomForestClassifier(WithNEstimators(30), WithRandomState(42))
	require.NoError(t, rf.Fit(XTrain, yTrain))

	score, err := rf.Score(XTest, yTest)
	require.NoError(t, err)
	assert.Greater(t, score, 0.85)

	// Sanity: predictions stay binary.
	preds, err := rf.Predict(XTest)
	require.NoError(t, err)
	n, _ := preds.Dims()
	for i := 0; i < n; i++ {
		v := preds.At(i, 0)
		assert.True(t, v == 0 || v == 1, "prediction %v not binary", v)
	}
}

func TestRandomForestNotFitted(t *testing.T) {
	rf := NewRandomForestClassifier()

	_, err := rf.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	require.Error(t, err)

	var notFitted *churnErrors.NotFittedError
	assert.True(t, churnErrors.As(err, &notFitted))
}

func TestRandomForestValidation(t *testing.T) {
	X, y := noisyClusters(20, 8)

	t.Run("zero estimators", func(t *testing.T) {
		rf := NewRandomForestClassifier(WithNEstimators(0))
		assert.Error(t, rf.Fit(X, y))
	})

	t.Run("feature mismatch", func(t *testing.T) {
		rf := NewRandomForestClassifier(WithNEstimators(5), WithRandomState(1))
		require.NoError(t, rf.Fit(X, y))

		_, err := rf.Predict(mat.NewDense(1, 3, []float64{0, 0, 0}))
		var dimErr *churnErrors.DimensionError
		assert.True(t, churnErrors.As(err, &dimErr))
	})
}
