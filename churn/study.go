// Package churn orchestrates the full retention study: load the member
// CSV, split, encode and scale features, train the candidate models,
// evaluate them on the hold-out and render the report.
package churn

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/analysis"
	coremodel "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/core/model"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/dataset"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/ensemble"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/linear"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/metrics"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/neighbors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pipeline"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/preprocessing"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/report"
)

// Config holds the study parameters. Zero values are filled in from
// DefaultConfig by NewStudy.
type Config struct {
	// DataPath is the member CSV to analyze.
	DataPath string

	// OutDir receives figures and the markdown summary. Empty skips
	// report generation.
	OutDir string

	// Seed drives the train/test split and the forest.
	Seed int64

	// TestSize is the hold-out fraction, in (0, 1).
	TestSize float64

	// Trees is the forest size.
	Trees int

	// K is the neighbor count for KNN.
	K int

	// Alpha is the ridge regularization strength.
	Alpha float64
}

// DefaultConfig returns the standard study parameters: an 80/20 split
// at seed 42, 100 trees, 5 neighbors, alpha 1.
func DefaultConfig() Config {
	return Config{
		Seed:     42,
		TestSize: 0.2,
		Trees:    100,
		K:        5,
		Alpha:    1.0,
	}
}

// ModelResult is one candidate model's hold-out evaluation.
type ModelResult struct {
	Name     string
	Matrix   metrics.ConfusionMatrix
	Accuracy float64
	AUC      float64
}

// StudyResult is everything the study produces.
type StudyResult struct {
	DatasetSize int
	ChurnRate   float64
	TrainSize   int
	TestSize    int

	FeatureNames []string
	Models       []ModelResult
	Best         string

	Ranking    analysis.Ranking
	Breakdowns []*analysis.Breakdown

	// ReportPath is the written summary.md, empty when reporting was
	// skipped.
	ReportPath string
}

// Study runs the retention analysis end to end.
type Study struct {
	cfg    Config
	logger log.Logger
}

// NewStudy creates a study, filling unset Config fields with defaults.
func NewStudy(cfg Config) *Study {
	def := DefaultConfig()
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.TestSize == 0 {
		cfg.TestSize = def.TestSize
	}
	if cfg.Trees == 0 {
		cfg.Trees = def.Trees
	}
	if cfg.K == 0 {
		cfg.K = def.K
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = def.Alpha
	}

	return &Study{
		cfg:    cfg,
		logger: log.GetLoggerWithName("churn"),
	}
}

// Run executes the study against the configured CSV.
func (s *Study) Run() (_ *StudyResult, err error) {
	defer churnErrors.Recover(&err, "Study.Run")

	start := time.Now()

	table, err := dataset.Load(s.cfg.DataPath)
	if err != nil {
		return nil, err
	}

	result, err := s.RunOn(table)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Study completed",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"study.best_model", result.Best,
	)

	return result, nil
}

// RunOn executes the study against an already loaded table.
func (s *Study) RunOn(table *dataset.Table) (_ *StudyResult, err error) {
	defer churnErrors.Recover(&err, "Study.RunOn")

	train, test, err := dataset.StratifiedSplit(table, s.cfg.TestSize, s.cfg.Seed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Dataset partitioned",
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, table.Len(),
		log.TestSizeKey, s.cfg.TestSize,
		log.PositiveRateKey, table.ChurnRate(),
		log.RandomSeedKey, s.cfg.Seed,
	)

	XTrain, XTest, featureNames, err := s.buildFeatures(train, test)
	if err != nil {
		return nil, err
	}

	yTrain := columnMatrix(train.Labels())
	yTest := test.Labels()

	result := &StudyResult{
		DatasetSize:  table.Len(),
		ChurnRate:    table.ChurnRate(),
		TrainSize:    train.Len(),
		TestSize:     test.Len(),
		FeatureNames: featureNames,
	}

	var best coremodel.Classifier
	bestAccuracy := -1.0

	forest := ensemble.NewRandomForestClassifier(
		ensemble.WithNEstimators(s.cfg.Trees),
		ensemble.WithRandomState(s.cfg.Seed),
	)

	candidates := []coremodel.Classifier{
		linear.NewRidgeClassifier(linear.WithAlpha(s.cfg.Alpha)),
		neighbors.NewKNNClassifier(neighbors.WithK(s.cfg.K)),
		forest,
	}

	// Each candidate runs inside its own pipeline so the numeric block
	// is standardized on training data only, leaving the dummy columns
	// in front of it untouched.
	numOffset := len(featureNames) - len(dataset.NumericColumns)

	for _, clf := range candidates {
		pipe := pipeline.New(clf, pipeline.Step{
			Name:        "scale",
			Transformer: preprocessing.NewColumnScaler(numOffset, len(featureNames)),
		})

		mr, err := s.evaluate(pipe, XTrain, yTrain, XTest, yTest)
		if err != nil {
			return nil, err
		}
		result.Models = append(result.Models, mr)

		// The forest breaks exact ties because it is listed last.
		if mr.Accuracy > bestAccuracy ||
			(mr.Accuracy == bestAccuracy && clf == coremodel.Classifier(forest)) {
			bestAccuracy = mr.Accuracy
			best = pipe
		}
	}
	result.Best = best.Name()

	ranking, err := s.rankImportances(best, forest, featureNames)
	if err != nil {
		return nil, err
	}
	result.Ranking = ranking

	result.Breakdowns, err = cohortBreakdowns(table)
	if err != nil {
		return nil, err
	}

	if s.cfg.OutDir != "" {
		result.ReportPath, err = s.writeReport(table, result)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// buildFeatures dummy-encodes the categorical columns, fitting the
// encoder on the training partition only, and stacks the dummies with
// the raw numeric columns. Standardizing the numeric block is left to
// each candidate's pipeline.
func (s *Study) buildFeatures(train, test *dataset.Table) (XTrain, XTest *mat.Dense, names []string, err error) {
	encoder := preprocessing.NewOneHotEncoder(dataset.CategoricalColumns...)
	encTrain, err := encoder.FitTransform(train.Categorical())
	if err != nil {
		return nil, nil, nil, err
	}
	encTest, err := encoder.Transform(test.Categorical())
	if err != nil {
		return nil, nil, nil, err
	}

	XTrain = hstack(encTrain, train.Numeric())
	XTest = hstack(encTest, test.Numeric())

	names = append(names, encoder.FeatureNames()...)
	names = append(names, dataset.NumericColumns...)

	_, f := XTrain.Dims()
	s.logger.Debug("Feature matrix assembled",
		log.PhaseKey, log.PhasePreprocessing,
		log.FeaturesKey, f,
	)

	return XTrain, XTest, names, nil
}

// evaluate fits one candidate and scores it on the hold-out.
func (s *Study) evaluate(clf coremodel.Classifier, XTrain, yTrain mat.Matrix, XTest *mat.Dense, yTest *mat.VecDense) (ModelResult, error) {
	s.logger.Info("Evaluating model",
		log.ModelNameKey, clf.Name(),
		log.PhaseKey, log.PhaseEvaluation,
	)

	if err := clf.Fit(XTrain, yTrain); err != nil {
		return ModelResult{}, err
	}

	preds, err := clf.Predict(XTest)
	if err != nil {
		return ModelResult{}, err
	}
	yPred := toVec(preds)

	cm, err := metrics.Confusion(yTest, yPred)
	if err != nil {
		return ModelResult{}, err
	}

	scores, err := holdoutScores(clf, XTest, yPred)
	if err != nil {
		return ModelResult{}, err
	}
	auc, err := metrics.AUC(yTest, scores)
	if err != nil {
		return ModelResult{}, err
	}

	mr := ModelResult{
		Name:     clf.Name(),
		Matrix:   cm,
		Accuracy: cm.Accuracy(),
		AUC:      auc,
	}

	s.logger.Info("Model evaluated",
		log.ModelNameKey, mr.Name,
		log.AccuracyKey, mr.Accuracy,
		log.PrecisionKey, cm.Precision(),
		log.RecallKey, cm.Recall(),
		log.AUCKey, mr.AUC,
	)

	return mr, nil
}

// holdoutScores extracts continuous churn scores for AUC when the model
// provides them, falling back to the hard predictions. A pipeline has
// the capabilities of its final classifier.
func holdoutScores(clf coremodel.Classifier, X *mat.Dense, yPred *mat.VecDense) (*mat.VecDense, error) {
	capability := clf
	if pipe, ok := clf.(*pipeline.Pipeline); ok {
		capability = pipe.Classifier()
	}

	switch capability.(type) {
	case coremodel.ProbabilityClassifier:
		proba, err := clf.(coremodel.ProbabilityClassifier).PredictProba(X)
		if err != nil {
			return nil, err
		}
		n, _ := proba.Dims()
		scores := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			scores.SetVec(i, proba.At(i, 1))
		}
		return scores, nil
	case coremodel.DecisionScorer:
		return clf.(coremodel.DecisionScorer).DecisionFunction(X)
	default:
		return yPred, nil
	}
}

// rankImportances ranks features by the best model's importances when
// it exposes them, otherwise by the forest's.
func (s *Study) rankImportances(best coremodel.Classifier, forest *ensemble.RandomForestClassifier, names []string) (analysis.Ranking, error) {
	scores := forest.FeatureImportances()
	if provider, ok := best.(coremodel.ImportanceProvider); ok {
		if imp := provider.FeatureImportances(); imp != nil {
			scores = imp
		}
	}
	return analysis.Rank(names, scores)
}

func cohortBreakdowns(table *dataset.Table) ([]*analysis.Breakdown, error) {
	builders := []func(*dataset.Table) (*analysis.Breakdown, error){
		analysis.ByContractPeriod,
		analysis.ByAge,
		analysis.ByLifetime,
		analysis.ByClassFrequency,
		analysis.ByAdditionalCharges,
	}

	out := make([]*analysis.Breakdown, 0, len(builders))
	for _, build := range builders {
		bd, err := build(table)
		if err != nil {
			return nil, err
		}
		out = append(out, bd)
	}
	return out, nil
}

// writeReport renders figures and the markdown summary into OutDir.
func (s *Study) writeReport(table *dataset.Table, result *StudyResult) (string, error) {
	gen := report.NewGenerator(s.cfg.OutDir)

	var figures []string

	fig, err := gen.ChurnDistribution(table)
	if err != nil {
		return "", err
	}
	figures = append(figures, fig)

	fig, err = gen.LoyalAgeHistogram(table)
	if err != nil {
		return "", err
	}
	figures = append(figures, fig)

	for _, bd := range result.Breakdowns {
		fig, err = gen.BreakdownChart(bd)
		if err != nil {
			return "", err
		}
		figures = append(figures, fig)
	}

	loyal := table.Loyal()
	for _, profiler := range []func(*dataset.Table) (*analysis.LifetimeProfile, error){
		analysis.LifetimeByContract,
		analysis.LifetimeByAge,
	} {
		profile, err := profiler(loyal)
		if err != nil {
			return "", err
		}
		fig, err = gen.LifetimeProfileChart(profile)
		if err != nil {
			return "", err
		}
		figures = append(figures, fig)
	}

	fig, err = gen.LifetimeSpendingScatter(table)
	if err != nil {
		return "", err
	}
	figures = append(figures, fig)

	fig, err = gen.ImportanceChart(result.Ranking)
	if err != nil {
		return "", err
	}
	figures = append(figures, fig)

	models := make([]report.ModelSummary, len(result.Models))
	for i, m := range result.Models {
		cm := m.Matrix
		models[i] = report.ModelSummary{Name: m.Name, Matrix: &cm, AUC: m.AUC}
	}

	return gen.WriteSummary(&report.Summary{
		DatasetSize: result.DatasetSize,
		ChurnRate:   result.ChurnRate,
		TrainSize:   result.TrainSize,
		TestSize:    result.TestSize,
		Seed:        s.cfg.Seed,
		Models:      models,
		BestModel:   result.Best,
		Ranking:     result.Ranking,
		Breakdowns:  result.Breakdowns,
		Figures:     figures,
	})
}

// columnMatrix views a vector as an (n, 1) matrix.
func columnMatrix(v *mat.VecDense) *mat.Dense {
	n := v.Len()
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, v.AtVec(i))
	}
	return m
}

// toVec flattens a column matrix into a vector.
func toVec(m mat.Matrix) *mat.VecDense {
	n, _ := m.Dims()
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

// hstack concatenates two matrices column-wise.
func hstack(a, b mat.Matrix) *mat.Dense {
	ra, ca := a.Dims()
	_, cb := b.Dims()

	out := mat.NewDense(ra, ca+cb, nil)
	for i := 0; i < ra; i++ {
		for j := 0; j < ca; j++ {
			out.Set(i, j, a.At(i, j))
		}
		for j := 0; j < cb; j++ {
			out.Set(i, ca+j, b.At(i, j))
		}
	}
	return out
}
