package options

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func contract(strike string, exp string, typ OptionType, oi string, vol string) Contract {
	return Contract{
		Strike:       dec(strike),
		Expiration:   day(exp),
		Type:         typ,
		OpenInterest: dec(oi),
		Volume:       dec(vol),
	}
}

func TestGroupByStrike_SumsSidesSeparately(t *testing.T) {
	contracts := []Contract{
		contract("100000", "2026-09-25", Call, "30", "5"),
		contract("100000", "2026-09-25", Put, "10", "2"),
		contract("90000", "2026-09-25", Call, "10", "1"),
		contract("90000", "2026-09-25", Put, "40", "8"),
		contract("90000", "2026-12-25", Put, "7", "3"),
	}

	series := GroupByStrike(contracts, AllExpirations())
	require.Len(t, series, 2)

	assert.True(t, series[0].Strike.Equal(dec("90000")))
	assert.True(t, series[0].CallOI.Equal(dec("10")))
	assert.True(t, series[0].PutOI.Equal(dec("47")))
	assert.True(t, series[0].PutVolume.Equal(dec("11")))

	assert.True(t, series[1].Strike.Equal(dec("100000")))
	assert.True(t, series[1].CallOI.Equal(dec("30")))
	assert.True(t, series[1].CallVolume.Equal(dec("5")))
}

func TestGroupByStrike_ExpirationScope(t *testing.T) {
	contracts := []Contract{
		contract("90000", "2026-09-25", Call, "10", "1"),
		contract("90000", "2026-12-25", Call, "99", "9"),
	}

	series := GroupByStrike(contracts, SingleExpiration(day("2026-09-25")))
	require.Len(t, series, 1)
	assert.True(t, series[0].CallOI.Equal(dec("10")))
}

func TestGroupByStrike_GroupingNeverLosesContracts(t *testing.T) {
	contracts := []Contract{
		contract("80000", "2026-09-25", Call, "3", "1"),
		contract("90000", "2026-09-25", Call, "5", "2"),
		contract("90000", "2026-09-25", Put, "7", "4"),
		contract("100000", "2026-12-25", Put, "11", "6"),
	}

	series := GroupByStrike(contracts, AllExpirations())
	scalar, err := ComputeScalarMetrics(series, dec("95000"))
	require.NoError(t, err)

	callOI, putOI := decimal.Zero, decimal.Zero
	for _, lvl := range series {
		callOI = callOI.Add(lvl.CallOI)
		putOI = putOI.Add(lvl.PutOI)
	}
	assert.True(t, scalar.CallOI.Equal(callOI))
	assert.True(t, scalar.PutOI.Equal(putOI))
	assert.True(t, scalar.CallOI.Equal(dec("8")))
	assert.True(t, scalar.PutOI.Equal(dec("18")))
}

func TestStrikeKey_PreservesPrecision(t *testing.T) {
	// String() renders both as "90000"; the key must not.
	assert.NotEqual(t, strikeKey(dec("90000")), strikeKey(dec("90000.0")))
	assert.Equal(t, strikeKey(dec("90000")), strikeKey(dec("90000")))
	assert.NotEqual(t, strikeKey(dec("0.6045")), strikeKey(dec("0.60450")))
}

func TestGroupByStrike_DistinctPrecisionStaysDistinct(t *testing.T) {
	contracts := []Contract{
		contract("90000", "2026-09-25", Call, "1", "0"),
		contract("90000.0", "2026-09-25", Call, "2", "0"),
	}

	series := GroupByStrike(contracts, AllExpirations())
	// Value-equal strikes with different precision are a data-quality issue
	// the feed must normalize; they stay separate groups here.
	require.Len(t, series, 2)
	assert.True(t, series[0].CallOI.Add(series[1].CallOI).Equal(dec("3")))
	assert.False(t, series[0].CallOI.Equal(series[1].CallOI),
		"each precision variant keeps its own open interest")
}

func TestGroupByExpiration_OrderedAscendingAcrossWholeChain(t *testing.T) {
	contracts := []Contract{
		contract("90000", "2026-12-25", Call, "5", "0"),
		contract("90000", "2026-09-25", Call, "3", "0"),
		contract("95000", "2026-09-25", Put, "4", "0"),
	}

	levels := GroupByExpiration(contracts)
	require.Len(t, levels, 2)
	assert.Equal(t, day("2026-09-25"), levels[0].Expiration)
	assert.True(t, levels[0].OpenInterest.Equal(dec("7")))
	assert.Equal(t, day("2026-12-25"), levels[1].Expiration)
	assert.True(t, levels[1].OpenInterest.Equal(dec("5")))
}
