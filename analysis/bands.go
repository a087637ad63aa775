package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/dataset"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// Band is one cohort row in a churn breakdown: the members whose value
// for the banded attribute falls in [Lo, Hi).
type Band struct {
	Label     string
	Lo, Hi    float64
	Members   int
	Churned   int
	ChurnRate float64
}

// Breakdown is a churn-rate table over bands of one attribute.
type Breakdown struct {
	Attribute string
	Bands     []Band
}

// valueOf extracts the banded attribute from a record.
type valueOf func(dataset.Customer) float64

// ByAge breaks churn down over five-year age bands.
func ByAge(t *dataset.Table) (*Breakdown, error) {
	return breakdown(t, dataset.ColAge, 5.0, func(c dataset.Customer) float64 {
		return c.Age
	})
}

// ByClassFrequency breaks churn down over weekly visit frequency in
// half-visit bands.
func ByClassFrequency(t *dataset.Table) (*Breakdown, error) {
	return breakdown(t, dataset.ColClassFreqTotal, 0.5, func(c dataset.Customer) float64 {
		return c.ClassFreqTotal
	})
}

// ByAdditionalCharges breaks churn down over additional spending in
// 50-unit bands.
func ByAdditionalCharges(t *dataset.Table) (*Breakdown, error) {
	return breakdown(t, dataset.ColAvgAdditional, 50.0, func(c dataset.Customer) float64 {
		return c.AvgAdditional
	})
}

// ByLifetime breaks churn down over months of membership in 3-month
// bands.
func ByLifetime(t *dataset.Table) (*Breakdown, error) {
	return breakdown(t, dataset.ColLifetime, 3.0, func(c dataset.Customer) float64 {
		return c.Lifetime
	})
}

// ByContractPeriod breaks churn down per distinct contract length. Gym
// contracts come in a handful of fixed lengths, so each gets its own
// band.
func ByContractPeriod(t *dataset.Table) (*Breakdown, error) {
	if t.Len() == 0 {
		return nil, churnErrors.NewModelError("analysis.ByContractPeriod", "empty table", churnErrors.ErrEmptyData)
	}

	type tally struct{ members, churned int }
	tallies := make(map[float64]*tally)
	var periods []float64

	for _, rec := range t.Records {
		tl, ok := tallies[rec.ContractPeriod]
		if !ok {
			tl = &tally{}
			tallies[rec.ContractPeriod] = tl
			periods = append(periods, rec.ContractPeriod)
		}
		tl.members++
		if rec.Churn == 1 {
			tl.churned++
		}
	}

	sort.Float64s(periods)

	bands := make([]Band, 0, len(periods))
	for _, p := range periods {
		tl := tallies[p]
		bands = append(bands, Band{
			Label:     fmt.Sprintf("%g mo", p),
			Lo:        p,
			Hi:        p,
			Members:   tl.members,
			Churned:   tl.churned,
			ChurnRate: float64(tl.churned) / float64(tl.members),
		})
	}

	return &Breakdown{Attribute: dataset.ColContractPeriod, Bands: bands}, nil
}

// breakdown buckets records into fixed-width bands of the attribute and
// tallies churn per band. Empty bands are dropped.
func breakdown(t *dataset.Table, attribute string, width float64, value valueOf) (*Breakdown, error) {
	if t.Len() == 0 {
		return nil, churnErrors.NewModelError("analysis.breakdown", "empty table", churnErrors.ErrEmptyData)
	}
	if width <= 0 {
		return nil, churnErrors.NewValidationError("width", "must be positive", width)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, rec := range t.Records {
		v := value(rec)
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	first := math.Floor(lo/width) * width
	nBands := int(math.Floor((hi-first)/width)) + 1

	type tally struct{ members, churned int }
	tallies := make([]tally, nBands)

	for _, rec := range t.Records {
		idx := int(math.Floor((value(rec) - first) / width))
		if idx >= nBands {
			idx = nBands - 1
		}
		tallies[idx].members++
		if rec.Churn == 1 {
			tallies[idx].churned++
		}
	}

	bands := make([]Band, 0, nBands)
	for i, tl := range tallies {
		if tl.members == 0 {
			continue
		}
		bandLo := first + float64(i)*width
		bands = append(bands, Band{
			Label:     fmt.Sprintf("%g-%g", bandLo, bandLo+width),
			Lo:        bandLo,
			Hi:        bandLo + width,
			Members:   tl.members,
			Churned:   tl.churned,
			ChurnRate: float64(tl.churned) / float64(tl.members),
		})
	}

	return &Breakdown{Attribute: attribute, Bands: bands}, nil
}
