// Package report renders the study's findings to disk: PNG figures via
// gonum/plot and a markdown summary of metrics, rankings and cohort
// tables.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/analysis"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/dataset"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

// Generator writes figures and the summary under OutDir, creating the
// directory on first use.
type Generator struct {
	OutDir string
	logger log.Logger
}

// NewGenerator creates a report generator rooted at outDir.
func NewGenerator(outDir string) *Generator {
	return &Generator{
		OutDir: outDir,
		logger: log.GetLoggerWithName("report").With(
			log.PhaseKey, log.PhaseReporting,
		),
	}
}

func (g *Generator) ensureDir() error {
	if err := os.MkdirAll(g.OutDir, 0o755); err != nil {
		return churnErrors.Wrapf(err, "creating report directory %s", g.OutDir)
	}
	return nil
}

// save writes the plot as a PNG and returns its full path.
func (g *Generator) save(p *plot.Plot, filename string) (string, error) {
	if err := g.ensureDir(); err != nil {
		return "", err
	}

	path := filepath.Join(g.OutDir, filename)
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", churnErrors.Wrapf(err, "saving figure %s", filename)
	}

	g.logger.Debug("Figure written", "report.figure", filename)
	return path, nil
}

// ChurnDistribution renders loyal vs churned member counts as a bar
// chart and returns the written file path.
func (g *Generator) ChurnDistribution(t *dataset.Table) (string, error) {
	if t.Len() == 0 {
		return "", churnErrors.NewModelError("report.ChurnDistribution", "empty table", churnErrors.ErrEmptyData)
	}

	churned := 0
	for _, rec := range t.Records {
		if rec.Churn == 1 {
			churned++
		}
	}

	bars, err := plotter.NewBarChart(plotter.Values{
		float64(t.Len() - churned),
		float64(churned),
	}, vg.Points(60))
	if err != nil {
		return "", churnErrors.Wrap(err, "building churn distribution bars")
	}

	p := plot.New()
	p.Title.Text = "Membership: Loyal vs Churned"
	p.Y.Label.Text = "Members"
	p.Add(bars)
	p.NominalX("Loyal", "Churned")

	return g.save(p, "churn_distribution.png")
}

// LoyalAgeHistogram renders the age distribution of members who stayed.
func (g *Generator) LoyalAgeHistogram(t *dataset.Table) (string, error) {
	loyal := t.Loyal()
	if loyal.Len() == 0 {
		return "", churnErrors.NewModelError("report.LoyalAgeHistogram", "no loyal members", churnErrors.ErrEmptyData)
	}

	ages := make(plotter.Values, loyal.Len())
	for i, rec := range loyal.Records {
		ages[i] = rec.Age
	}

	hist, err := plotter.NewHist(ages, 16)
	if err != nil {
		return "", churnErrors.Wrap(err, "building age histogram")
	}

	p := plot.New()
	p.Title.Text = "Age of Loyal Members"
	p.X.Label.Text = "Age"
	p.Y.Label.Text = "Members"
	p.Add(hist)

	return g.save(p, "loyal_age_histogram.png")
}

// BreakdownChart renders a cohort breakdown's churn rate per band.
func (g *Generator) BreakdownChart(bd *analysis.Breakdown) (string, error) {
	if len(bd.Bands) == 0 {
		return "", churnErrors.NewModelError("report.BreakdownChart", "empty breakdown", churnErrors.ErrEmptyData)
	}

	rates := make(plotter.Values, len(bd.Bands))
	labels := make([]string, len(bd.Bands))
	for i, band := range bd.Bands {
		rates[i] = band.ChurnRate
		labels[i] = band.Label
	}

	bars, err := plotter.NewBarChart(rates, vg.Points(30))
	if err != nil {
		return "", churnErrors.Wrap(err, "building breakdown bars")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Churn Rate by %s", bd.Attribute)
	p.Y.Label.Text = "Churn rate"
	p.Y.Max = 1.0
	p.Add(bars)
	p.NominalX(labels...)

	filename := fmt.Sprintf("churn_by_%s.png", sanitize(bd.Attribute))
	return g.save(p, filename)
}

// LifetimeProfileChart renders a mean-lifetime profile as a bar chart.
func (g *Generator) LifetimeProfileChart(profile *analysis.LifetimeProfile) (string, error) {
	if len(profile.Bands) == 0 {
		return "", churnErrors.NewModelError("report.LifetimeProfileChart", "empty profile", churnErrors.ErrEmptyData)
	}

	means := make(plotter.Values, len(profile.Bands))
	labels := make([]string, len(profile.Bands))
	for i, band := range profile.Bands {
		means[i] = band.MeanLifetime
		labels[i] = band.Label
	}

	bars, err := plotter.NewBarChart(means, vg.Points(30))
	if err != nil {
		return "", churnErrors.Wrap(err, "building lifetime profile bars")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Mean Lifetime by %s (Loyal Members)", profile.Attribute)
	p.Y.Label.Text = "Mean lifetime (months)"
	p.Add(bars)
	p.NominalX(labels...)

	filename := fmt.Sprintf("loyal_lifetime_by_%s.png", sanitize(profile.Attribute))
	return g.save(p, filename)
}

// LifetimeSpendingScatter plots membership lifetime against additional
// spending for members who stayed.
func (g *Generator) LifetimeSpendingScatter(t *dataset.Table) (string, error) {
	loyal := t.Loyal()
	if loyal.Len() == 0 {
		return "", churnErrors.NewModelError("report.LifetimeSpendingScatter", "no loyal members", churnErrors.ErrEmptyData)
	}

	pts := make(plotter.XYs, loyal.Len())
	for i, rec := range loyal.Records {
		pts[i].X = rec.Lifetime
		pts[i].Y = rec.AvgAdditional
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return "", churnErrors.Wrap(err, "building lifetime scatter")
	}
	scatter.GlyphStyle.Radius = vg.Points(2)

	p := plot.New()
	p.Title.Text = "Lifetime vs Additional Spending (Loyal Members)"
	p.X.Label.Text = "Lifetime (months)"
	p.Y.Label.Text = "Additional charges"
	p.Add(scatter)

	return g.save(p, "lifetime_vs_spending.png")
}

// ImportanceChart renders the feature importance ranking as a bar
// chart, most important feature first.
func (g *Generator) ImportanceChart(ranking analysis.Ranking) (string, error) {
	if len(ranking) == 0 {
		return "", churnErrors.NewModelError("report.ImportanceChart", "empty ranking", churnErrors.ErrEmptyData)
	}

	scores := make(plotter.Values, len(ranking))
	for i, f := range ranking {
		scores[i] = f.Score
	}

	bars, err := plotter.NewBarChart(scores, vg.Points(20))
	if err != nil {
		return "", churnErrors.Wrap(err, "building importance bars")
	}

	p := plot.New()
	p.Title.Text = "Feature Importance"
	p.Y.Label.Text = "Importance"
	p.Add(bars)
	p.NominalX(ranking.Names()...)
	p.X.Tick.Label.Rotation = 0.9
	p.X.Tick.Label.XAlign = -0.9

	return g.save(p, "feature_importance.png")
}

// sanitize lowers a column name into a safe file name fragment.
func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
