package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOIChange_FourHourDelta(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	prior := &OIObservation{AsOf: now.Add(-4 * time.Hour), TotalOI: dec("80")}

	pct := ComputeOIChange(dec("90"), prior, now, DefaultOIWindow)
	require.NotNil(t, pct)
	assert.True(t, pct.Equal(dec("12.5")), "pct=%s", pct)
}

func TestComputeOIChange_NoPriorIsNilNotZero(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	assert.Nil(t, ComputeOIChange(dec("90"), nil, now, DefaultOIWindow))
}

func TestComputeOIChange_ToleranceBand(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	within := &OIObservation{AsOf: now.Add(-4*time.Hour - 29*time.Minute), TotalOI: dec("80")}
	assert.NotNil(t, ComputeOIChange(dec("90"), within, now, DefaultOIWindow))

	outside := &OIObservation{AsOf: now.Add(-4*time.Hour - 31*time.Minute), TotalOI: dec("80")}
	assert.Nil(t, ComputeOIChange(dec("90"), outside, now, DefaultOIWindow))

	tooFresh := &OIObservation{AsOf: now.Add(-3 * time.Hour), TotalOI: dec("80")}
	assert.Nil(t, ComputeOIChange(dec("90"), tooFresh, now, DefaultOIWindow))
}

func TestComputeOIChange_ZeroPriorGuards(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	prior := &OIObservation{AsOf: now.Add(-4 * time.Hour), TotalOI: dec("0")}
	assert.Nil(t, ComputeOIChange(dec("90"), prior, now, DefaultOIWindow))
}

func TestClosestObservation(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	history := []OIObservation{
		{AsOf: now.Add(-6 * time.Hour), TotalOI: dec("70")},
		{AsOf: now.Add(-250 * time.Minute), TotalOI: dec("80")},
		{AsOf: now.Add(-1 * time.Hour), TotalOI: dec("85")},
	}

	obs := ClosestObservation(history, now, DefaultOIWindow)
	require.NotNil(t, obs)
	assert.True(t, obs.TotalOI.Equal(dec("80")))

	assert.Nil(t, ClosestObservation(nil, now, DefaultOIWindow))
}
