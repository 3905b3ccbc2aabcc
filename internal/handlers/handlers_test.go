package handlers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/options"
)

func TestParseIntParam(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?limit=42", nil)
	assert.Equal(t, 42, parseIntParam(r, "limit", 30, 1, 100))

	r = httptest.NewRequest("GET", "/x", nil)
	assert.Equal(t, 30, parseIntParam(r, "limit", 30, 1, 100))

	r = httptest.NewRequest("GET", "/x?limit=9999", nil)
	assert.Equal(t, 30, parseIntParam(r, "limit", 30, 1, 100))

	r = httptest.NewRequest("GET", "/x?limit=abc", nil)
	assert.Equal(t, 30, parseIntParam(r, "limit", 30, 1, 100))
}

func TestParseExpirationFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/x", nil)
	f, ok := parseExpirationFilter(r)
	require.True(t, ok)
	assert.True(t, f.IsAll())

	r = httptest.NewRequest("GET", "/x?expiration=all", nil)
	f, ok = parseExpirationFilter(r)
	require.True(t, ok)
	assert.True(t, f.IsAll())

	r = httptest.NewRequest("GET", "/x?expiration=2026-09-25", nil)
	f, ok = parseExpirationFilter(r)
	require.True(t, ok)
	assert.False(t, f.IsAll())
	assert.Equal(t, time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC), f.Date())

	r = httptest.NewRequest("GET", "/x?expiration=25-09-2026", nil)
	_, ok = parseExpirationFilter(r)
	assert.False(t, ok)
}

func testMetricsSnapshot() (options.Snapshot, options.Metrics) {
	iv := decimal.RequireFromString("52.1")
	snap := options.Snapshot{
		Currency:  "BTC",
		SpotPrice: decimal.NewFromInt(95000),
		AsOf:      time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		Contracts: []options.Contract{
			{
				Strike:       decimal.NewFromInt(90000),
				Expiration:   time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
				Type:         options.Call,
				OpenInterest: decimal.NewFromInt(40),
				Volume:       decimal.NewFromInt(5),
				MarkIV:       &iv,
			},
			{
				Strike:       decimal.NewFromInt(90000),
				Expiration:   time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
				Type:         options.Put,
				OpenInterest: decimal.NewFromInt(50),
				Volume:       decimal.NewFromInt(4),
			},
		},
	}
	m, err := options.Aggregate(snap, options.AllExpirations(), nil)
	if err != nil {
		panic(err)
	}
	return snap, m
}

func TestBuildDataResponse_AllExpirationsOmitsSmile(t *testing.T) {
	snap, m := testMetricsSnapshot()

	resp := buildDataResponse(snap, options.AllExpirations(), m, models.SourceHealth{})

	assert.Equal(t, "all", resp.Expiration)
	assert.Nil(t, resp.VolatilitySmile)
	assert.Nil(t, resp.OIChange4hPercent)
	assert.Equal(t, 90.0, resp.Metrics.TotalOI)
	assert.Equal(t, 1.25, resp.Metrics.PCRatio)
	require.Len(t, resp.StrikeChart, 1)
	assert.Equal(t, 90000.0, resp.StrikeChart[0].Strike)
	require.Len(t, resp.ExpirationChart, 1)
	assert.Equal(t, "2026-09-25", resp.ExpirationChart[0].Date)
}

func TestBuildDataResponse_SingleExpirationCarriesSmile(t *testing.T) {
	snap, _ := testMetricsSnapshot()
	filter := options.SingleExpiration(time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC))
	m, err := options.Aggregate(snap, filter, nil)
	require.NoError(t, err)

	resp := buildDataResponse(snap, filter, m, models.SourceHealth{})

	assert.Equal(t, "2026-09-25", resp.Expiration)
	require.Len(t, resp.VolatilitySmile, 1)
	require.NotNil(t, resp.VolatilitySmile[0].CallIV)
	assert.Equal(t, 52.1, *resp.VolatilitySmile[0].CallIV)
	assert.Nil(t, resp.VolatilitySmile[0].PutIV)
}

func TestDataETag_IgnoresHealthChurn(t *testing.T) {
	snap, m := testMetricsSnapshot()

	a := buildDataResponse(snap, options.AllExpirations(), m, models.SourceHealth{LatencyMs: 12})
	b := buildDataResponse(snap, options.AllExpirations(), m, models.SourceHealth{
		LatencyMs:    907,
		DegradedMode: true,
		LastGoodAgeS: 300,
		Error:        "chain BTC: no_data",
	})

	etagA, err := dataETag(a)
	require.NoError(t, err)
	etagB, err := dataETag(b)
	require.NoError(t, err)
	assert.Equal(t, etagA, etagB, "per-request health must not change the ETag")
}

func TestDataETag_ChangesWithPayload(t *testing.T) {
	snap, m := testMetricsSnapshot()

	a := buildDataResponse(snap, options.AllExpirations(), m, models.SourceHealth{})

	snap.AsOf = snap.AsOf.Add(time.Hour)
	b := buildDataResponse(snap, options.AllExpirations(), m, models.SourceHealth{})

	etagA, err := dataETag(a)
	require.NoError(t, err)
	etagB, err := dataETag(b)
	require.NoError(t, err)
	assert.NotEqual(t, etagA, etagB)
}

func TestNearestExpiration(t *testing.T) {
	future1 := options.DateUTC(time.Now().AddDate(0, 0, 7))
	future2 := options.DateUTC(time.Now().AddDate(0, 0, 30))
	snap := options.Snapshot{
		Contracts: []options.Contract{
			{Strike: decimal.NewFromInt(1), Expiration: future2, Type: options.Call, OpenInterest: decimal.NewFromInt(1)},
			{Strike: decimal.NewFromInt(1), Expiration: future1, Type: options.Call, OpenInterest: decimal.NewFromInt(1)},
		},
	}

	f := nearestExpiration(&snap)
	require.False(t, f.IsAll())
	assert.Equal(t, future1, f.Date())
}

func TestNearestExpiration_EmptyChain(t *testing.T) {
	snap := options.Snapshot{}
	assert.True(t, nearestExpiration(&snap).IsAll())
}

func TestAverageOI(t *testing.T) {
	a, b := 100.0, 200.0
	assert.Equal(t, 150.0, averageOI(&a, &b))
	assert.Equal(t, 100.0, averageOI(&a, nil))
	assert.Equal(t, 200.0, averageOI(nil, &b))
	assert.Equal(t, 0.0, averageOI(nil, nil))
}
