package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/dataset"
	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
)

// LifetimeBand is one cohort row in a lifetime profile: the members
// whose value for the profiled attribute falls in the band, and their
// mean months of membership.
type LifetimeBand struct {
	Label        string
	Members      int
	MeanLifetime float64
}

// LifetimeProfile is a mean-lifetime table over bands of one attribute.
// Profiles are usually computed over members who stayed, to describe
// how long a retained membership lasts in each cohort.
type LifetimeProfile struct {
	Attribute string
	Bands     []LifetimeBand
}

// LifetimeByContract profiles mean membership lifetime per distinct
// contract length.
func LifetimeByContract(t *dataset.Table) (*LifetimeProfile, error) {
	if t.Len() == 0 {
		return nil, churnErrors.NewModelError("analysis.LifetimeByContract", "empty table", churnErrors.ErrEmptyData)
	}

	type tally struct {
		members int
		total   float64
	}
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
		tl.total += rec.Lifetime
	}

	sort.Float64s(periods)

	bands := make([]LifetimeBand, 0, len(periods))
	for _, p := range periods {
		tl := tallies[p]
		bands = append(bands, LifetimeBand{
			Label:        fmt.Sprintf("%g mo", p),
			Members:      tl.members,
			MeanLifetime: tl.total / float64(tl.members),
		})
	}

	return &LifetimeProfile{Attribute: dataset.ColContractPeriod, Bands: bands}, nil
}

// LifetimeByAge profiles mean membership lifetime over five-year age
// bands.
func LifetimeByAge(t *dataset.Table) (*LifetimeProfile, error) {
	if t.Len() == 0 {
		return nil, churnErrors.NewModelError("analysis.LifetimeByAge", "empty table", churnErrors.ErrEmptyData)
	}

	const width = 5.0

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, rec := range t.Records {
		if rec.Age < lo {
			lo = rec.Age
		}
		if rec.Age > hi {
			hi = rec.Age
		}
	}

	first := math.Floor(lo/width) * width
	nBands := int(math.Floor((hi-first)/width)) + 1

	type tally struct {
		members int
		total   float64
	}
	tallies := make([]tally, nBands)

	for _, rec := range t.Records {
		idx := int(math.Floor((rec.Age - first) / width))
		if idx >= nBands {
			idx = nBands - 1
		}
		tallies[idx].members++
		tallies[idx].total += rec.Lifetime
	}

	bands := make([]LifetimeBand, 0, nBands)
	for i, tl := range tallies {
		if tl.members == 0 {
			continue
		}
		bandLo := first + float64(i)*width
		bands = append(bands, LifetimeBand{
			Label:        fmt.Sprintf("%g-%g", bandLo, bandLo+width),
			Members:      tl.members,
			MeanLifetime: tl.total / float64(tl.members),
		})
	}

	return &LifetimeProfile{Attribute: dataset.ColAge, Bands: bands}, nil
}
