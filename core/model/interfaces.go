package model

import (
	"gonum.org/v1/gonum/mat"
)

// Transformer is a fit-then-transform preprocessing step, e.g. a scaler.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is a supervised binary classifier. Fit consumes a feature
// matrix of shape (n_samples, n_features) and a label column vector of shape
// (n_samples, 1); Predict returns a label column vector of the same shape.
type Classifier interface {
	// Name identifies the model variant, e.g. "RandomForestClassifier".
	Name() string
	Fit(X, y mat.Matrix) error
	Predict(X mat.Matrix) (mat.Matrix, error)
	// Score returns the mean accuracy on the given data and labels.
	Score(X, y mat.Matrix) (float64, error)
}

// ProbabilityClassifier is a Classifier that can also estimate class
// membership probabilities, shape (n_samples, n_classes).
type ProbabilityClassifier interface {
	Classifier
	PredictProba(X mat.Matrix) (*mat.Dense, error)
}

// DecisionScorer is implemented by classifiers that expose a continuous
// per-sample decision score. Scores rank samples for AUC without
// requiring calibrated probabilities.
type DecisionScorer interface {
	DecisionFunction(X mat.Matrix) (*mat.VecDense, error)
}

// ImportanceProvider is implemented by models that expose per-feature
// importance scores. Only tree-based models do; scores are normalized to
// sum to one.
type ImportanceProvider interface {
	FeatureImportances() []float64
}
