// Package metrics evaluates the fitted classifiers on the hold-out
// partition: confusion outcomes, the derived rates, and ROC AUC for models
// that produce probability scores.
package metrics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// ConfusionMatrix holds the four binary classification counts against
// ground truth. TP+FP+TN+FN always equals the number of evaluated samples.
type ConfusionMatrix struct {
	TP int // predicted 1, truth 1
	FP int // predicted 1, truth 0
	TN int // predicted 0, truth 0
	FN int // predicted 0, truth 1
}

// Confusion computes the confusion matrix of binary predictions against
// ground-truth labels.
//
// Both vectors must contain only 0/1 values and have equal length.
//
// Example:
//
//	cm, err := metrics.Confusion(yTrue, yPred)
//	fmt.Printf("accuracy: %.3f\n", cm.Accuracy())
func Confusion(yTrue, yPred *mat.VecDense) (_ ConfusionMatrix, err error) {
	defer churnErrors.Recover(&err, "metrics.Confusion")

	var cm ConfusionMatrix

	if yTrue == nil || yPred == nil {
		return cm, churnErrors.NewValueError("Confusion", "input vectors cannot be nil")
	}

	n := yTrue.Len()
	if n == 0 {
		return cm, churnErrors.NewValueError("Confusion", "input vectors cannot be empty")
	}
	if n != yPred.Len() {
		return cm, churnErrors.NewDimensionError("Confusion", n, yPred.Len(), 0)
	}

	for i := 0; i < n; i++ {
		truth, pred := yTrue.AtVec(i), yPred.AtVec(i)
		if truth != 0 && truth != 1 {
			return cm, churnErrors.Mark(churnErrors.NewValidationError("yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", truth, i), truth),
				churnErrors.ErrNotBinary)
		}
		if pred != 0 && pred != 1 {
			return cm, churnErrors.Mark(churnErrors.NewValidationError("yPred",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", pred, i), pred),
				churnErrors.ErrNotBinary)
		}

		switch {
		case truth == 1 && pred == 1:
			cm.TP++
		case truth == 0 && pred == 1:
			cm.FP++
		case truth == 0 && pred == 0:
			cm.TN++
		default:
			cm.FN++
		}
	}

	return cm, nil
}

// Total returns the number of samples the matrix was computed over.
func (c ConfusionMatrix) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Accuracy returns the fraction of correct predictions.
func (c ConfusionMatrix) Accuracy() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.TP+c.TN) / float64(total)
}

// Precision returns TP / (TP + FP). When no positive predictions were made
// the metric is undefined; a warning is emitted and 0 is returned.
func (c ConfusionMatrix) Precision() float64 {
	if c.TP+c.FP == 0 {
		churnErrors.Warn(churnErrors.NewUndefinedMetricWarning("precision", "no predicted positives", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FP)
}

// Recall returns TP / (TP + FN). When no true positives exist the metric is
// undefined; a warning is emitted and 0 is returned.
func (c ConfusionMatrix) Recall() float64 {
	if c.TP+c.FN == 0 {
		churnErrors.Warn(churnErrors.NewUndefinedMetricWarning("recall", "no positive labels", 0))
		return 0
	}
	return float64(c.TP) / float64(c.TP+c.FN)
}

// F1 returns the harmonic mean of precision and recall, or 0 when both are 0.
func (c ConfusionMatrix) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// String renders the matrix in a compact single-line form.
func (c ConfusionMatrix) String() string {
	return fmt.Sprintf("TP=%d FP=%d TN=%d FN=%d", c.TP, c.FP, c.TN, c.FN)
}

// ClassificationError calculates the fraction of incorrect predictions.
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, churnErrors.NewValueError("ClassificationError", "input vectors cannot be nil")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, churnErrors.NewValueError("ClassificationError", "input vectors cannot be empty")
	}
	if n != yPred.Len() {
		return 0, churnErrors.NewDimensionError("ClassificationError", n, yPred.Len(), 0)
	}

	errors := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			errors++
		}
	}

	return float64(errors) / float64(n), nil
}

// Accuracy calculates the fraction of correct predictions.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	errorRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}

// AUC calculates the area under the ROC curve for binary classification.
//
// yTrue holds ground-truth 0/1 labels, yPred probability or decision
// scores. 0.5 means random ranking, 1.0 perfect ranking. When only one
// class is present the AUC is undefined and 0.5 is returned.
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, churnErrors.NewValueError("AUC", "input vectors cannot be nil")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, churnErrors.NewValueError("AUC", "input vectors cannot be empty")
	}
	if n != yPred.Len() {
		return 0, churnErrors.NewDimensionError("AUC", n, yPred.Len(), 0)
	}

	for i := 0; i < n; i++ {
		if v := yTrue.AtVec(i); v != 0 && v != 1 {
			return 0, churnErrors.NewValidationError("yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", v, i), v)
		}
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	totalPos, totalNeg := 0.0, 0.0
	for i := 0; i < n; i++ {
		pairs[i] = pair{score: yPred.AtVec(i), label: yTrue.AtVec(i)}
		if pairs[i].label == 1 {
			totalPos++
		} else {
			totalNeg++
		}
	}

	if totalPos == 0 || totalNeg == 0 {
		return 0.5, nil
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	// Walk thresholds from the highest score down, collecting ROC points.
	tprs := []float64{0}
	fprs := []float64{0}

	tp, fp := 0.0, 0.0
	prevScore := pairs[0].score + 1

	for _, p := range pairs {
		if p.score != prevScore {
			tprs = append(tprs, tp/totalPos)
			fprs = append(fprs, fp/totalNeg)
			prevScore = p.score
		}
		if p.label == 1 {
			tp++
		} else {
			fp++
		}
	}

	tprs = append(tprs, 1)
	fprs = append(fprs, 1)

	// Trapezoidal rule.
	auc := 0.0
	for i := 1; i < len(fprs); i++ {
		width := fprs[i] - fprs[i-1]
		height := (tprs[i] + tprs[i-1]) / 2
		auc += width * height
	}

	return auc, nil
}
