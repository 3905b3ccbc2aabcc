package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerpTicker(t *testing.T) {
	assert.Equal(t, "BTCUSDT", perpTicker("btc"))
	assert.Equal(t, "BTCUSDT", perpTicker(" BTC "))
	assert.Equal(t, "ETHUSDT", perpTicker("ETHUSDT"))
}

func TestOIChangeFromRows(t *testing.T) {
	base := time.Date(2025, time.June, 27, 8, 0, 0, 0, time.UTC)
	rows := []openInterestRow{
		{SumOpenInterestValue: "80", Timestamp: base.UnixMilli()},
		{SumOpenInterestValue: "90", Timestamp: base.Add(4 * time.Hour).UnixMilli()},
	}

	pct := oiChangeFromRows(rows)
	require.NotNil(t, pct)
	assert.InDelta(t, 12.5, *pct, 1e-9)
}

func TestOIChangeFromRows_Guards(t *testing.T) {
	base := time.Date(2025, time.June, 27, 8, 0, 0, 0, time.UTC)

	assert.Nil(t, oiChangeFromRows(nil))
	assert.Nil(t, oiChangeFromRows([]openInterestRow{
		{SumOpenInterestValue: "80", Timestamp: base.UnixMilli()},
	}))

	assert.Nil(t, oiChangeFromRows([]openInterestRow{
		{SumOpenInterestValue: "0", Timestamp: base.UnixMilli()},
		{SumOpenInterestValue: "90", Timestamp: base.Add(4 * time.Hour).UnixMilli()},
	}))

	assert.Nil(t, oiChangeFromRows([]openInterestRow{
		{SumOpenInterestValue: "80", Timestamp: base.UnixMilli()},
		{SumOpenInterestValue: "not-a-number", Timestamp: base.Add(4 * time.Hour).UnixMilli()},
	}))
}
