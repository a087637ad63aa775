package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankSortsDescending(t *testing.T) {
	ranking, err := Rank(
		[]string{"Age", "Lifetime", "Contract_period"},
		[]float64{0.2, 0.5, 0.3},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Lifetime", "Contract_period", "Age"}, ranking.Names())
	assert.Equal(t, 0.5, ranking[0].Score)
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	ranking, err := Rank(
		[]string{"a", "b", "c"},
		[]float64{0.3, 0.4, 0.3},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, ranking.Names())
}

func TestRankValidation(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		_, err := Rank([]string{"a", "b"}, []float64{0.1})
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Rank(nil, nil)
		assert.Error(t, err)
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := Rank([]string{"a", "a"}, []float64{0.1, 0.2})
		assert.Error(t, err)
	})
}

func TestRankingTop(t *testing.T) {
	ranking, err := Rank(
		[]string{"a", "b", "c", "d"},
		[]float64{0.4, 0.3, 0.2, 0.1},
	)
	require.NoError(t, err)

	top := ranking.Top(2)
	assert.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Name)

	assert.Len(t, ranking.Top(10), 4, "Top beyond length returns everything")
}
