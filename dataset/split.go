package dataset

import (
	"math/rand"

	churnErrors "github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/errors"
	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/pkg/log"
)

// StratifiedSplit partitions the table into disjoint train and test tables.
//
// The split is stratified by churn label so both partitions keep roughly the
// full table's class proportions, and it is driven entirely by the given
// seed: the same table, testSize and seed always produce the identical
// partition.
func StratifiedSplit(t *Table, testSize float64, seed int64) (train, test *Table, err error) {
	if t == nil || t.Len() == 0 {
		return nil, nil, churnErrors.NewModelError("dataset.StratifiedSplit", "empty table", churnErrors.ErrEmptyData)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, churnErrors.NewValidationError("testSize", "must be in (0, 1)", testSize)
	}

	rng := rand.New(rand.NewSource(seed))

	// Group record indices by label, then shuffle within each group.
	byClass := map[int][]int{}
	for i, rec := range t.Records {
		byClass[rec.Churn] = append(byClass[rec.Churn], i)
	}

	train = &Table{}
	test = &Table{}

	// Iterate labels in fixed order so the draw sequence is reproducible.
	for _, label := range []int{0, 1} {
		indices := byClass[label]
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		nTest := int(float64(len(indices))*testSize + 0.5)
		for i, idx := range indices {
			if i < nTest {
				test.Records = append(test.Records, t.Records[idx])
			} else {
				train.Records = append(train.Records, t.Records[idx])
			}
		}
	}

	log.GetLoggerWithName("dataset").Info("Train/test split created",
		log.SamplesKey, t.Len(),
		log.TestSizeKey, testSize,
		log.RandomSeedKey, seed,
		"train_samples", train.Len(),
		"test_samples", test.Len(),
	)

	return train, test, nil
}
