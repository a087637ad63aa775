package linear

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// separableData returns a linearly separable binary problem: class 1
// clusters around (3, 3), class 0 around (-3, -3).
func separableData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		3.0, 3.2,
		2.8, 3.1,
		3.3, 2.9,
		2.9, 3.0,
		-3.0, -3.1,
		-2.9, -3.3,
		-3.2, -2.8,
		-3.1, -3.0,
	})
	y := mat.NewDense(8, 1, []float64{1, 1, 1, 1, 0, 0, 0, 0})
	return X, y
}

func TestRidgeClassifierFitPredict(t *testing.T) {
	X, y := separableData()

	clf := NewRidgeClassifier(WithAlpha(0.1))
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !clf.IsFitted() {
		t.Error("expected model to be fitted")
	}

	predictions, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		if predictions.At(i, 0) != y.At(i, 0) {
			t.Errorf("sample %d: predicted %v, want %v", i, predictions.At(i, 0), y.At(i, 0))
		}
	}
}

func TestRidgeClassifierScore(t *testing.T) {
	X, y := separableData()

	clf := NewRidgeClassifier()
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	score, err := clf.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 1.0 {
		t.Errorf("expected perfect accuracy on separable data, got %v", score)
	}
}

func TestRidgeClassifierDecisionFunction(t *testing.T) {
	X, y := separableData()

	clf := NewRidgeClassifier(WithAlpha(0.1))
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	scores, err := clf.DecisionFunction(X)
	if err != nil {
		t.Fatalf("DecisionFunction failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		if scores.AtVec(i) < 0 {
			t.Errorf("positive sample %d: decision score %v, want >= 0", i, scores.AtVec(i))
		}
	}
	for i := 4; i < 8; i++ {
		if scores.AtVec(i) >= 0 {
			t.Errorf("negative sample %d: decision score %v, want < 0", i, scores.AtVec(i))
		}
	}
}

func TestRidgeClassifierRegularizationShrinksWeights(t *testing.T) {
	X, y := separableData()

	weak := NewRidgeClassifier(WithAlpha(0.01))
	strong := NewRidgeClassifier(WithAlpha(100.0))

	if err := weak.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if err := strong.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	weakNorm := mat.Norm(weak.Weights, 2)
	strongNorm := mat.Norm(strong.Weights, 2)

	if strongNorm >= weakNorm {
		t.Errorf("stronger regularization should shrink weights: alpha=100 norm %v, alpha=0.01 norm %v",
			strongNorm, weakNorm)
	}
}

func TestRidgeClassifierNotFitted(t *testing.T) {
	clf := NewRidgeClassifier()

	_, err := clf.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	if err == nil {
		t.Fatal("expected error from unfitted model")
	}

	var notFitted *churnErrors.NotFittedError
	if !churnErrors.As(err, &notFitted) {
		t.Errorf("expected NotFittedError, got %T", err)
	}
}

func TestRidgeClassifierDimensionMismatch(t *testing.T) {
	X, y := separableData()

	clf := NewRidgeClassifier()
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	_, err := clf.Predict(mat.NewDense(1, 3, []float64{1, 2, 3}))
	if err == nil {
		t.Fatal("expected error on feature count mismatch")
	}

	var dimErr *churnErrors.DimensionError
	if !churnErrors.As(err, &dimErr) {
		t.Errorf("expected DimensionError, got %T", err)
	}
}

func TestRidgeClassifierRejectsNonBinaryLabels(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewDense(2, 1, []float64{0, 2})

	clf := NewRidgeClassifier()
	err := clf.Fit(X, y)
	if err == nil {
		t.Fatal("expected error for non-binary labels")
	}
	if !churnErrors.Is(err, churnErrors.ErrNotBinary) {
		t.Errorf("expected ErrNotBinary, got %v", err)
	}
}

func TestRidgeClassifierRejectsNegativeAlpha(t *testing.T) {
	X, y := separableData()

	clf := NewRidgeClassifier(WithAlpha(-1.0))
	if err := clf.Fit(X, y); err == nil {
		t.Fatal("expected error for negative alpha")
	}
}

func TestRidgeClassifierDeterministic(t *testing.T) {
	X, y := separableData()

	a := NewRidgeClassifier(WithAlpha(1.0))
	b := NewRidgeClassifier(WithAlpha(1.0))
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	for j := 0; j < 2; j++ {
		if math.Abs(a.Weights.AtVec(j)-b.Weights.AtVec(j)) > 1e-12 {
			t.Errorf("weight %d differs between identical fits", j)
		}
	}
}
