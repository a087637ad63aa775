// Package analysis turns fitted models and raw records into the
// findings of the retention study: a feature importance ranking and
// churn-rate breakdowns over member cohorts.
package analysis

import (
	"sort"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// RankedFeature pairs a feature name with its importance score.
type RankedFeature struct {
	Name  string
	Score float64
}

// Ranking is a list of features ordered by descending importance.
type Ranking []RankedFeature

// Rank pairs feature names with importance scores and sorts them in
// descending score order. Ties keep the input name order.
func Rank(names []string, scores []float64) (Ranking, error) {
	if len(names) != len(scores) {
		return nil, churnErrors.NewDimensionError("analysis.Rank", len(names), len(scores), 0)
	}
	if len(names) == 0 {
		return nil, churnErrors.NewModelError("analysis.Rank", "empty ranking", churnErrors.ErrEmptyData)
	}

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, churnErrors.NewValidationError("names", "feature names must be unique", name)
		}
		seen[name] = true
	}

	ranking := make(Ranking, len(names))
	for i, name := range names {
		ranking[i] = RankedFeature{Name: name, Score: scores[i]}
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})

	return ranking, nil
}

// Top returns the first n entries, or the whole ranking when it is
// shorter.
func (r Ranking) Top(n int) Ranking {
	if n > len(r) {
		n = len(r)
	}
	return r[:n]
}

// Names returns the feature names in rank order.
func (r Ranking) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}
