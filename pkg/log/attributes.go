// Package log defines standard attribute keys for machine learning
// operations.
//
// Using these keys keeps log output consistent across packages and makes the
// single-run analysis easy to follow: which stage ran, on how much data, for
// how long, with what result.
package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model.
	// Examples: "RidgeClassifier", "KNNClassifier", "RandomForestClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "dataset", "preprocessing", "ensemble", "report"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the run.
	// Examples: "training", "evaluation", "preprocessing", "reporting"
	PhaseKey = "ml.phase"
)

// Data shape and characteristics.
const (
	// SamplesKey indicates the number of samples (rows) being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns).
	FeaturesKey = "data.features"

	// TestSizeKey records the hold-out fraction of the train/test split.
	TestSizeKey = "data.test_size"

	// PositiveRateKey records the fraction of positive (churn) labels.
	PositiveRateKey = "data.positive_rate"
)

// Performance and evaluation metrics.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records hold-out accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// PrecisionKey records hold-out precision.
	PrecisionKey = "metrics.precision"

	// RecallKey records hold-out recall.
	RecallKey = "metrics.recall"

	// AUCKey records the area under the ROC curve.
	AUCKey = "metrics.auc"
)

// Configuration.
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
	PhasePreprocessing = "preprocessing"
	PhaseReporting     = "reporting"
)
