package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/analysis"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/dataset"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/metrics"
)

func reportTable() *dataset.Table {
	t := &dataset.Table{}
	for i := 0; i < 40; i++ {
		churn := 0
		if i%4 == 0 {
			churn = 1
		}
		t.Records = append(t.Records, dataset.Customer{
			Age:            float64(20 + i%20),
			ContractPeriod: float64(1 + 5*(i%3)),
			Lifetime:       float64(i % 10),
			ClassFreqTotal: 1.0 + float64(i%5)*0.5,
			AvgAdditional:  float64(50 + i*3),
			Churn:          churn,
		})
	}
	return t
}

func TestChurnDistributionWritesPNG(t *testing.T) {
	g := NewGenerator(t.TempDir())

	path, err := g.ChurnDistribution(reportTable())
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasSuffix(path, "churn_distribution.png"))
}

func TestLoyalAgeHistogramWritesPNG(t *testing.T) {
	g := NewGenerator(t.TempDir())

	path, err := g.LoyalAgeHistogram(reportTable())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestBreakdownChartWritesPNG(t *testing.T) {
	g := NewGenerator(t.TempDir())

	bd, err := analysis.ByContractPeriod(reportTable())
	require.NoError(t, err)

	path, err := g.BreakdownChart(bd)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, filepath.Base(path), "contract_period")
}

func TestLifetimeProfileChartWritesPNG(t *testing.T) {
	g := NewGenerator(t.TempDir())

	profile, err := analysis.LifetimeByContract(reportTable().Loyal())
	require.NoError(t, err)

	path, err := g.LifetimeProfileChart(profile)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, filepath.Base(path), "loyal_lifetime_by_contract_period")
}

func TestLifetimeSpendingScatterWritesPNG(t *testing.T) {
	g := NewGenerator(t.TempDir())

	path, err := g.LifetimeSpendingScatter(reportTable())
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.True(t, strings.HasSuffix(path, "lifetime_vs_spending.png"))
}

func TestImportanceChartWritesPNG(t *testing.T) {
	g := NewGenerator(t.TempDir())

	ranking, err := analysis.Rank(
		[]string{"Lifetime", "Age", "Contract_period"},
		[]float64{0.5, 0.3, 0.2},
	)
	require.NoError(t, err)

	path, err := g.ImportanceChart(ranking)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWriteSummary(t *testing.T) {
	g := NewGenerator(t.TempDir())

	cm := &metrics.ConfusionMatrix{TP: 185, FP: 131, TN: 467, FN: 17}
	ranking, err := analysis.Rank([]string{"Lifetime", "Age"}, []float64{0.7, 0.3})
	require.NoError(t, err)

	bd, err := analysis.ByAge(reportTable())
	require.NoError(t, err)

	path, err := g.WriteSummary(&Summary{
		DatasetSize: 4000,
		ChurnRate:   0.265,
		TrainSize:   3200,
		TestSize:    800,
		Seed:        42,
		Models: []ModelSummary{
			{Name: "RandomForestClassifier", Matrix: cm, AUC: 0.91},
		},
		BestModel:  "RandomForestClassifier",
		Ranking:    ranking,
		Breakdowns: []*analysis.Breakdown{bd},
		Figures:    []string{"churn_distribution.png"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(content)

	assert.Contains(t, md, "# Gym Retention Study")
	assert.Contains(t, md, "RandomForestClassifier *")
	assert.Contains(t, md, "| Actual churn | 17 | 185 |")
	assert.Contains(t, md, "| 1 | Lifetime | 0.7000 |")
	assert.Contains(t, md, "Churn by Age")
	assert.Contains(t, md, "churn_distribution.png")
}

func TestSummaryRequiresModels(t *testing.T) {
	g := NewGenerator(t.TempDir())

	_, err := g.WriteSummary(&Summary{})
	assert.Error(t, err)
}

func TestEmptyInputsRejected(t *testing.T) {
	g := NewGenerator(t.TempDir())

	_, err := g.ChurnDistribution(&dataset.Table{})
	assert.Error(t, err)

	_, err = g.LoyalAgeHistogram(&dataset.Table{})
	assert.Error(t, err)

	_, err = g.BreakdownChart(&analysis.Breakdown{})
	assert.Error(t, err)

	_, err = g.ImportanceChart(analysis.Ranking{})
	assert.Error(t, err)
}
