// Package pipeline chains feature transformers with a final classifier
// so a whole modeling recipe fits and predicts as one unit.
package pipeline

import (
	"gonum.org/v1/gonum/mat"

	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

// Step is a named transformer stage.
type Step struct {
	Name        string
	Transformer coremodel.Transformer
}

// Pipeline applies its transformer steps in order and delegates
// prediction to the final classifier. Transformers fit on training
// data only, so the same fitted pipeline scores hold-out data without
// leakage.
type Pipeline struct {
	state  *coremodel.StateManager
	logger log.Logger

	steps      []Step
	classifier coremodel.Classifier
}

// New creates a pipeline from transformer steps and a final classifier.
func New(classifier coremodel.Classifier, steps ...Step) *Pipeline {
	return &Pipeline{
		state:      coremodel.NewStateManager(),
		logger:     log.GetLoggerWithName("pipeline"),
		steps:      steps,
		classifier: classifier,
	}
}

// Name returns the final classifier's name.
func (p *Pipeline) Name() string {
	if p.classifier == nil {
		return "Pipeline"
	}
	return p.classifier.Name()
}

// IsFitted returns whether the pipeline has been fitted.
func (p *Pipeline) IsFitted() bool { return p.state.IsFitted() }

// Steps returns the transformer stages in order.
func (p *Pipeline) Steps() []Step { return p.steps }

// Classifier returns the final estimator.
func (p *Pipeline) Classifier() coremodel.Classifier { return p.classifier }

// Fit runs each transformer's FitTransform in order, then fits the
// classifier on the transformed features.
func (p *Pipeline) Fit(X, y mat.Matrix) (err error) {
	defer churnErrors.Recover(&err, "Pipeline.Fit")

	if p.classifier == nil {
		return churnErrors.NewValueError("Pipeline.Fit", "pipeline has no final classifier")
	}

	Xt := X
	for _, step := range p.steps {
		Xt, err = step.Transformer.FitTransform(Xt)
		if err != nil {
			return churnErrors.Wrapf(err, "pipeline step %q", step.Name)
		}
	}

	if err := p.classifier.Fit(Xt, y); err != nil {
		return churnErrors.Wrapf(err, "pipeline final step %q", p.classifier.Name())
	}

	n, f := Xt.Dims()
	p.state.SetFitted()
	p.state.SetDimensions(f, n)

	p.logger.Debug("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, p.classifier.Name(),
		log.SamplesKey, n,
		log.FeaturesKey, f,
	)

	return nil
}

// transform applies the fitted transformer steps in order.
func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	var err error
	for _, step := range p.steps {
		Xt, err = step.Transformer.Transform(Xt)
		if err != nil {
			return nil, churnErrors.Wrapf(err, "pipeline step %q", step.Name)
		}
	}
	return Xt, nil
}

// Predict transforms X through the fitted steps and predicts with the
// final classifier.
func (p *Pipeline) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer churnErrors.Recover(&err, "Pipeline.Predict")

	if err := p.state.RequireFitted("Pipeline", "Predict"); err != nil {
		return nil, err
	}

	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}

	return p.classifier.Predict(Xt)
}

// PredictProba transforms X and returns class probabilities from the
// final classifier. Fails if the classifier does not expose them.
func (p *Pipeline) PredictProba(X mat.Matrix) (_ *mat.Dense, err error) {
	defer churnErrors.Recover(&err, "Pipeline.PredictProba")

	if err := p.state.RequireFitted("Pipeline", "PredictProba"); err != nil {
		return nil, err
	}

	prob, ok := p.classifier.(coremodel.ProbabilityClassifier)
	if !ok {
		return nil, churnErrors.NewValueError("Pipeline.PredictProba",
			"final classifier does not provide probabilities")
	}

	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}

	return prob.PredictProba(Xt)
}

// DecisionFunction transforms X and returns continuous decision scores
// from the final classifier. Fails if the classifier does not expose
// them.
func (p *Pipeline) DecisionFunction(X mat.Matrix) (_ *mat.VecDense, err error) {
	defer churnErrors.Recover(&err, "Pipeline.DecisionFunction")

	if err := p.state.RequireFitted("Pipeline", "DecisionFunction"); err != nil {
		return nil, err
	}

	scorer, ok := p.classifier.(coremodel.DecisionScorer)
	if !ok {
		return nil, churnErrors.NewValueError("Pipeline.DecisionFunction",
			"final classifier does not provide decision scores")
	}

	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}

	return scorer.DecisionFunction(Xt)
}

// Score transforms X and returns the final classifier's accuracy
// against 0/1 labels y.
func (p *Pipeline) Score(X, y mat.Matrix) (float64, error) {
	if err := p.state.RequireFitted("Pipeline", "Score"); err != nil {
		return 0, err
	}

	Xt, err := p.transform(X)
	if err != nil {
		return 0, err
	}

	return p.classifier.Score(Xt, y)
}

// FeatureImportances exposes the final classifier's importances when it
// provides them, nil otherwise.
func (p *Pipeline) FeatureImportances() []float64 {
	if provider, ok := p.classifier.(coremodel.ImportanceProvider); ok {
		return provider.FeatureImportances()
	}
	return nil
}
