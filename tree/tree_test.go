package tree

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// xorData is not linearly separable, so a depth-2 tree must find both
// splits to classify it.
func xorData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0.1, 0.1,
		1, 1,
		0.9, 0.9,
		0, 1,
		0.1, 0.9,
		1, 0,
		0.9, 0.1,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

func TestDecisionTreeFitPredict(t *testing.T) {
	X, y := xorData()

	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	predictions, err := dt.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		if predictions.At(i, 0) != y.At(i, 0) {
			t.Errorf("sample %d: predicted %v, want %v", i, predictions.At(i, 0), y.At(i, 0))
		}
	}
}

// Every root-level split of the XOR data has zero immediate gini gain.
// The tree must still take one so the children can separate the classes,
// instead of collapsing into a single impure leaf.
func TestDecisionTreeSplitsOnZeroGain(t *testing.T) {
	X, y := xorData()

	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if dt.NLeaves() < 2 {
		t.Fatalf("expected tree to split, got %d leaves", dt.NLeaves())
	}
	if dt.Depth() < 2 {
		t.Errorf("expected depth >= 2 to resolve the pattern, got %d", dt.Depth())
	}
}

func TestDecisionTreeEntropyCriterion(t *testing.T) {
	X, y := xorData()

	dt := NewDecisionTreeClassifier(WithCriterion("entropy"))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	score, err := dt.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("expected perfect training accuracy, got %v", score)
	}
}

func TestDecisionTreeMaxDepthStump(t *testing.T) {
	X, y := xorData()

	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if depth := dt.Depth(); depth > 1 {
		t.Errorf("depth cap ignored: got depth %d", depth)
	}
	if leaves := dt.NLeaves(); leaves > 2 {
		t.Errorf("stump should have at most 2 leaves, got %d", leaves)
	}
}

func TestDecisionTreePredictProba(t *testing.T) {
	X, y := xorData()

	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	proba, err := dt.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	n, _ := proba.Dims()
	for i := 0; i < n; i++ {
		sum := proba.At(i, 0) + proba.At(i, 1)
		if math.Abs(sum-1.0) > 1e-12 {
			t.Errorf("row %d probabilities sum to %v, want 1", i, sum)
		}
	}
}

func TestDecisionTreeFeatureImportances(t *testing.T) {
	// Only the first feature is informative.
	X := mat.NewDense(8, 2, []float64{
		0, 5,
		0, 1,
		0, 7,
		0, 3,
		1, 6,
		1, 2,
		1, 8,
		1, 4,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	imp := dt.FeatureImportances()
	if len(imp) != 2 {
		t.Fatalf("expected 2 importances, got %d", len(imp))
	}
	if imp[0] != 1.0 || imp[1] != 0.0 {
		t.Errorf("expected importances [1, 0], got %v", imp)
	}

	sum := imp[0] + imp[1]
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("importances sum to %v, want 1", sum)
	}
}

func TestDecisionTreeFeatureSubsamplingDeterministic(t *testing.T) {
	X, y := xorData()

	a := NewDecisionTreeClassifier(WithMaxFeatures(1), WithRandomState(7))
	b := NewDecisionTreeClassifier(WithMaxFeatures(1), WithRandomState(7))
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	pa, err := a.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	pb, err := b.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		if pa.At(i, 0) != pb.At(i, 0) {
			t.Errorf("seeded trees disagree at sample %d", i)
		}
	}
}

func TestDecisionTreeNotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()

	_, err := dt.Predict(mat.NewDense(1, 2, []float64{0, 0}))
	if err == nil {
		t.Fatal("expected error from unfitted model")
	}

	var notFitted *churnErrors.NotFittedError
	if !churnErrors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %T", err)
	}
}

func TestDecisionTreeValidation(t *testing.T) {
	X, y := xorData()

	tests := []struct {
		name string
		dt   *DecisionTreeClassifier
	}{
		{"bad criterion", NewDecisionTreeClassifier(WithCriterion("mse"))},
		{"max features too large", NewDecisionTreeClassifier(WithMaxFeatures(10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.dt.Fit(X, y); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	t.Run("feature mismatch at predict", func(t *testing.T) {
		dt := NewDecisionTreeClassifier()
		if err := dt.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}

		_, err := dt.Predict(mat.NewDense(1, 3, []float64{0, 0, 0}))
		var dimErr *churnErrors.DimensionError
		if !churnErrors.As(err, &dimErr) {
			t.Errorf("expected DimensionError, got %v", err)
		}
	})
}
