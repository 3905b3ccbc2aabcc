package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() Snapshot {
	near := contract("90000", "2026-09-25", Call, "10", "2")
	near.MarkIV = decPtr("50.5")
	return Snapshot{
		Currency:  "BTC",
		SpotPrice: dec("95000"),
		AsOf:      time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Contracts: []Contract{
			near,
			contract("90000", "2026-09-25", Put, "40", "6"),
			contract("100000", "2026-09-25", Call, "30", "4"),
			contract("100000", "2026-09-25", Put, "10", "1"),
			contract("95000", "2026-12-25", Call, "12", "3"),
		},
	}
}

func TestAggregate_AllExpirations(t *testing.T) {
	snap := testSnapshot()

	m, err := Aggregate(snap, AllExpirations(), nil)
	require.NoError(t, err)

	assert.Len(t, m.StrikeSeries, 3)
	assert.Len(t, m.ExpirationSeries, 2)
	assert.Nil(t, m.Smile, "smile must be omitted under the all filter, not empty-but-present")
	assert.Nil(t, m.OIChangePct)
	assert.True(t, m.Scalar.TotalOI.Equal(dec("102")))
	assert.True(t, m.Scalar.NotionalUSD.Equal(dec("102").Mul(dec("95000"))))
}

func TestAggregate_SingleExpirationScopesStrikesButNotCalendar(t *testing.T) {
	snap := testSnapshot()

	m, err := Aggregate(snap, SingleExpiration(day("2026-09-25")), nil)
	require.NoError(t, err)

	assert.Len(t, m.StrikeSeries, 2)
	// The expiration calendar is always unscoped.
	assert.Len(t, m.ExpirationSeries, 2)
	require.Len(t, m.Smile, 2)
	require.NotNil(t, m.Smile[0].CallIV)
	assert.True(t, m.Smile[0].CallIV.Equal(dec("50.5")))
	assert.True(t, m.Scalar.TotalOI.Equal(dec("90")))
}

func TestAggregate_EmptyScopeFailsWhole(t *testing.T) {
	snap := testSnapshot()

	_, err := Aggregate(snap, SingleExpiration(day("2030-01-01")), nil)
	require.ErrorIs(t, err, ErrEmptyData)
}

func TestAggregate_WithPriorObservation(t *testing.T) {
	snap := testSnapshot()
	prior := &OIObservation{AsOf: snap.AsOf.Add(-4 * time.Hour), TotalOI: dec("85")}

	m, err := Aggregate(snap, AllExpirations(), prior)
	require.NoError(t, err)
	require.NotNil(t, m.OIChangePct)
	assert.True(t, m.OIChangePct.Equal(dec("102").Sub(dec("85")).Div(dec("85")).Mul(dec("100"))))
}

func TestAggregate_OIChangeStaysChainWideUnderFilter(t *testing.T) {
	snap := testSnapshot()
	prior := &OIObservation{AsOf: snap.AsOf.Add(-4 * time.Hour), TotalOI: dec("85")}

	m, err := Aggregate(snap, SingleExpiration(day("2026-09-25")), prior)
	require.NoError(t, err)
	require.NotNil(t, m.OIChangePct)
	// Current side is the whole chain (102), not the scoped 90.
	assert.True(t, m.OIChangePct.Equal(dec("102").Sub(dec("85")).Div(dec("85")).Mul(dec("100"))))
}

func TestSnapshotObservation(t *testing.T) {
	snap := testSnapshot()
	obs := snap.Observation()
	assert.True(t, obs.TotalOI.Equal(dec("102")))
	assert.Equal(t, snap.AsOf, obs.AsOf)
}
