package churn

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/dataset"
)

// syntheticMembers builds a table where churners skew young, on short
// contracts, with low visit frequency, so the models have real signal
// to find.
func syntheticMembers(n int, seed int64) *dataset.Table {
	rng := rand.New(rand.NewSource(seed))
	t := &dataset.Table{}

	for i := 0; i < n; i++ {
		churn := 0
		if rng.Float64() < 0.3 {
			churn = 1
		}

		rec := dataset.Customer{
			Gender:       strconv.Itoa(rng.Intn(2)),
			NearLocation: strconv.Itoa(rng.Intn(2)),
			Partner:      strconv.Itoa(rng.Intn(2)),
			PromoFriends: strconv.Itoa(rng.Intn(2)),
			Phone:        "1",
			GroupVisits:  strconv.Itoa(rng.Intn(2)),
			Churn:        churn,
		}

		if churn == 1 {
			rec.Age = 25 + rng.NormFloat64()*3
			rec.ContractPeriod = 1
			rec.Lifetime = float64(rng.Intn(3))
			rec.ClassFreqTotal = 1.0 + rng.NormFloat64()*0.3
			rec.ClassFreqCurrMonth = 0.7 + rng.NormFloat64()*0.3
			rec.MonthToEnd = 1
			rec.AvgAdditional = 90 + rng.NormFloat64()*30
		} else {
			rec.Age = 31 + rng.NormFloat64()*3
			rec.ContractPeriod = float64([]int{6, 12}[rng.Intn(2)])
			rec.Lifetime = float64(3 + rng.Intn(8))
			rec.ClassFreqTotal = 2.2 + rng.NormFloat64()*0.4
			rec.ClassFreqCurrMonth = 2.0 + rng.NormFloat64()*0.4
			rec.MonthToEnd = float64(3 + rng.Intn(9))
			rec.AvgAdditional = 160 + rng.NormFloat64()*40
		}

		t.Records = append(t.Records, rec)
	}

	return t
}

func TestStudyRunOn(t *testing.T) {
	table := syntheticMembers(400, 1)

	study := NewStudy(Config{Seed: 42, TestSize: 0.2, Trees: 20})
	result, err := study.RunOn(table)
	require.NoError(t, err)

	assert.Equal(t, 400, result.DatasetSize)
	assert.Equal(t, result.TrainSize+result.TestSize, 400)
	require.Len(t, result.Models, 3)

	names := []string{result.Models[0].Name, result.Models[1].Name, result.Models[2].Name}
	assert.Equal(t, []string{"RidgeClassifier", "KNNClassifier", "RandomForestClassifier"}, names)

	for _, m := range result.Models {
		assert.Equal(t, result.TestSize, m.Matrix.Total(), "%s confusion counts must cover the hold-out", m.Name)
		assert.Greater(t, m.Accuracy, 0.5, "%s should beat chance on separable data", m.Name)
	}

	assert.NotEmpty(t, result.Best)
	assert.Len(t, result.Breakdowns, 5)
}

func TestStudyFeatureRanking(t *testing.T) {
	table := syntheticMembers(400, 2)

	study := NewStudy(Config{Seed: 42, Trees: 20})
	result, err := study.RunOn(table)
	require.NoError(t, err)

	require.NotEmpty(t, result.Ranking)
	assert.Len(t, result.Ranking, len(result.FeatureNames))

	// Ranking is descending.
	for i := 1; i < len(result.Ranking); i++ {
		assert.GreaterOrEqual(t, result.Ranking[i-1].Score, result.Ranking[i].Score)
	}

	// Importances come from a tree model, so they sum to one.
	sum := 0.0
	for _, f := range result.Ranking {
		sum += f.Score
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestStudyDeterministicUnderSeed(t *testing.T) {
	table := syntheticMembers(300, 3)

	a, err := NewStudy(Config{Seed: 7, Trees: 10}).RunOn(table)
	require.NoError(t, err)
	b, err := NewStudy(Config{Seed: 7, Trees: 10}).RunOn(table)
	require.NoError(t, err)

	assert.Equal(t, a.Best, b.Best)
	require.Len(t, b.Models, len(a.Models))
	for i := range a.Models {
		assert.Equal(t, a.Models[i].Matrix, b.Models[i].Matrix, "model %s", a.Models[i].Name)
	}
}

func TestStudyWritesReport(t *testing.T) {
	table := syntheticMembers(300, 4)
	outDir := t.TempDir()

	study := NewStudy(Config{Seed: 42, Trees: 10, OutDir: outDir})
	result, err := study.RunOn(table)
	require.NoError(t, err)

	require.NotEmpty(t, result.ReportPath)
	assert.FileExists(t, result.ReportPath)
	assert.FileExists(t, filepath.Join(outDir, "churn_distribution.png"))
	assert.FileExists(t, filepath.Join(outDir, "loyal_age_histogram.png"))
	assert.FileExists(t, filepath.Join(outDir, "feature_importance.png"))
	assert.FileExists(t, filepath.Join(outDir, "loyal_lifetime_by_contract_period.png"))
	assert.FileExists(t, filepath.Join(outDir, "loyal_lifetime_by_age.png"))
	assert.FileExists(t, filepath.Join(outDir, "lifetime_vs_spending.png"))

	content, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), result.Best)
}

func TestStudyRunMissingFile(t *testing.T) {
	study := NewStudy(Config{DataPath: filepath.Join(t.TempDir(), "missing.csv")})

	_, err := study.Run()
	assert.Error(t, err)
}

func TestStudyDefaultsFilled(t *testing.T) {
	study := NewStudy(Config{})

	assert.Equal(t, int64(42), study.cfg.Seed)
	assert.Equal(t, 0.2, study.cfg.TestSize)
	assert.Equal(t, 100, study.cfg.Trees)
	assert.Equal(t, 5, study.cfg.K)
	assert.Equal(t, 1.0, study.cfg.Alpha)
}
