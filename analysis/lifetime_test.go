package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZinedineAmal/Loyalty-Through-Data-Gym-Retention-Analysis/dataset"
)

func TestLifetimeByContract(t *testing.T) {
	profile, err := LifetimeByContract(bandTable())
	require.NoError(t, err)

	assert.Equal(t, dataset.ColContractPeriod, profile.Attribute)
	require.Len(t, profile.Bands, 3)

	assert.Equal(t, "1 mo", profile.Bands[0].Label)
	assert.Equal(t, 3, profile.Bands[0].Members)
	assert.InDelta(t, 5.0/3.0, profile.Bands[0].MeanLifetime, 1e-12)

	assert.Equal(t, "6 mo", profile.Bands[1].Label)
	assert.InDelta(t, 7.5, profile.Bands[1].MeanLifetime, 1e-12)

	assert.Equal(t, "12 mo", profile.Bands[2].Label)
	assert.Equal(t, 9.0, profile.Bands[2].MeanLifetime)
}

func TestLifetimeByAge(t *testing.T) {
	profile, err := LifetimeByAge(bandTable())
	require.NoError(t, err)

	assert.Equal(t, dataset.ColAge, profile.Attribute)
	require.Len(t, profile.Bands, 2)

	young := profile.Bands[0]
	assert.Equal(t, "20-25", young.Label)
	assert.Equal(t, 3, young.Members)
	assert.InDelta(t, 5.0/3.0, young.MeanLifetime, 1e-12)

	older := profile.Bands[1]
	assert.Equal(t, 3, older.Members)
	assert.InDelta(t, 8.0, older.MeanLifetime, 1e-12)
}

func TestLifetimeProfileEmptyTable(t *testing.T) {
	empty := &dataset.Table{}

	_, err := LifetimeByContract(empty)
	assert.Error(t, err)

	_, err = LifetimeByAge(empty)
	assert.Error(t, err)
}
