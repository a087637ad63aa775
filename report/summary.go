package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/analysis"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/metrics"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// ModelSummary holds one model's hold-out evaluation for the report.
type ModelSummary struct {
	Name   string
	Matrix *metrics.ConfusionMatrix
	AUC    float64
}

// Summary collects everything the markdown report presents.
type Summary struct {
	DatasetSize int
	ChurnRate   float64
	TrainSize   int
	TestSize    int
	Seed        int64

	Models    []ModelSummary
	BestModel string

	Ranking    analysis.Ranking
	Breakdowns []*analysis.Breakdown

	// Figures lists file names of rendered charts, relative to the
	// report directory.
	Figures []string
}

// WriteSummary renders the summary as markdown to summary.md in the
// report directory and returns its path.
func (g *Generator) WriteSummary(s *Summary) (string, error) {
	if len(s.Models) == 0 {
		return "", churnErrors.NewModelError("report.WriteSummary", "no model results", churnErrors.ErrEmptyData)
	}

	if err := g.ensureDir(); err != nil {
		return "", err
	}

	var b strings.Builder

	b.WriteString("# Gym Retention Study\n\n")
	fmt.Fprintf(&b, "Members analyzed: %d (churn rate %.1f%%). ", s.DatasetSize, s.ChurnRate*100)
	fmt.Fprintf(&b, "Models trained on %d members and evaluated on a hold-out of %d (seed %d).\n\n",
		s.TrainSize, s.TestSize, s.Seed)

	b.WriteString("## Model Comparison\n\n")
	b.WriteString("| Model | Accuracy | Precision | Recall | F1 | AUC |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, m := range s.Models {
		marker := ""
		if m.Name == s.BestModel {
			marker = " *"
		}
		fmt.Fprintf(&b, "| %s%s | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
			m.Name, marker,
			m.Matrix.Accuracy(), m.Matrix.Precision(), m.Matrix.Recall(), m.Matrix.F1(), m.AUC)
	}
	fmt.Fprintf(&b, "\n`*` best hold-out accuracy.\n\n")

	best := s.Models[0]
	for _, m := range s.Models {
		if m.Name == s.BestModel {
			best = m
		}
	}

	b.WriteString("## Confusion Matrix (best model)\n\n")
	b.WriteString("| | Predicted loyal | Predicted churn |\n")
	b.WriteString("|---|---|---|\n")
	fmt.Fprintf(&b, "| Actual loyal | %d | %d |\n", best.Matrix.TN, best.Matrix.FP)
	fmt.Fprintf(&b, "| Actual churn | %d | %d |\n\n", best.Matrix.FN, best.Matrix.TP)

	if len(s.Ranking) > 0 {
		b.WriteString("## Feature Importance\n\n")
		b.WriteString("| Rank | Feature | Importance |\n")
		b.WriteString("|---|---|---|\n")
		for i, f := range s.Ranking {
			fmt.Fprintf(&b, "| %d | %s | %.4f |\n", i+1, f.Name, f.Score)
		}
		b.WriteString("\n")
	}

	for _, bd := range s.Breakdowns {
		fmt.Fprintf(&b, "## Churn by %s\n\n", bd.Attribute)
		b.WriteString("| Band | Members | Churned | Churn rate |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, band := range bd.Bands {
			fmt.Fprintf(&b, "| %s | %d | %d | %.1f%% |\n",
				band.Label, band.Members, band.Churned, band.ChurnRate*100)
		}
		b.WriteString("\n")
	}

	if len(s.Figures) > 0 {
		b.WriteString("## Figures\n\n")
		for _, fig := range s.Figures {
			fmt.Fprintf(&b, "![%s](%s)\n\n", strings.TrimSuffix(filepath.Base(fig), ".png"), filepath.Base(fig))
		}
	}

	path := filepath.Join(g.OutDir, "summary.md")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", churnErrors.Wrap(err, "writing summary.md")
	}

	g.logger.Info("Summary written", "report.path", path)
	return path, nil
}
