// Package models holds the wire contracts the API serves. Values are plain
// JSON numbers; pointer fields distinguish "absent" from zero, which the
// dashboard must never conflate.
package models

type StrikeRow struct {
	Strike     float64 `json:"strike"`
	CallOI     float64 `json:"call_oi"`
	PutOI      float64 `json:"put_oi"`
	CallVolume float64 `json:"call_volume"`
	PutVolume  float64 `json:"put_volume"`
}

type ExpirationRow struct {
	Date         string  `json:"date"`
	OpenInterest float64 `json:"open_interest"`
}

type SmileRow struct {
	Strike float64  `json:"strike"`
	CallIV *float64 `json:"call_iv"`
	PutIV  *float64 `json:"put_iv"`
}

type ScalarMetrics struct {
	CallOI             float64 `json:"call_oi"`
	PutOI              float64 `json:"put_oi"`
	TotalOI            float64 `json:"total_oi"`
	CallVolume         float64 `json:"call_volume"`
	PutVolume          float64 `json:"put_volume"`
	TotalVolume        float64 `json:"total_volume"`
	PCRatio            float64 `json:"pc_ratio"`
	PCRatioVolume      float64 `json:"pc_ratio_volume"`
	NotionalValueAsset float64 `json:"notional_value_asset"`
	NotionalValueUsd   float64 `json:"notional_value_usd"`
	MaxPain            float64 `json:"max_pain"`
}

// DataResponse is the full aggregation payload for one currency and
// expiration filter. VolatilitySmile is omitted (not an empty array) unless
// a single expiration was requested.
type DataResponse struct {
	Ts                string          `json:"ts"`
	Currency          string          `json:"currency"`
	Expiration        string          `json:"expiration"`
	Metrics           ScalarMetrics   `json:"metrics"`
	StrikeChart       []StrikeRow     `json:"strike_chart_data"`
	ExpirationChart   []ExpirationRow `json:"expiration_chart_data"`
	VolatilitySmile   []SmileRow      `json:"volatility_smile_data,omitempty"`
	OIChange4hPercent *float64        `json:"oi_change_4h_percent"`
	Health            SourceHealth    `json:"health"`
}

// SourceHealth describes how the backing snapshot was obtained.
type SourceHealth struct {
	LatencyMs    int64  `json:"latency_ms"`
	CacheHit     bool   `json:"cache_hit"`
	DegradedMode bool   `json:"degraded_mode,omitempty"`
	LastGoodAgeS int64  `json:"last_good_age_s,omitempty"`
	Error        string `json:"error,omitempty"`
}

// TimeSeries is a chart-ready pair of parallel slices.
type TimeSeries struct {
	Timestamps []string  `json:"timestamps"`
	Values     []float64 `json:"values"`
}

type SentimentResponse struct {
	OpenInterestHistory *TimeSeries `json:"open_interest_history"`
	LongShortRatio      *TimeSeries `json:"long_short_ratio"`
	CurrentOIUsd        *float64    `json:"current_oi_usd"`
	OIChange4hPercent   *float64    `json:"oi_change_4h_percent"`
}

type FundingInfo struct {
	CurrentFundingRate float64 `json:"current_funding_rate"`
	NextFundingTimeMs  int64   `json:"next_funding_time_ms"`
	MarkPrice          float64 `json:"mark_price"`
}

type FundingHistoryResponse struct {
	Timestamps   []string  `json:"timestamps"`
	FundingRates []float64 `json:"funding_rates"`
}

type DvolHistoryResponse struct {
	Timestamps []string  `json:"timestamps"`
	Values     []float64 `json:"values"`
}

type WeeklyStats struct {
	WeekHigh   float64 `json:"week_high"`
	WeekHighTs int64   `json:"week_high_timestamp"`
	WeekLow    float64 `json:"week_low"`
	WeekLowTs  int64   `json:"week_low_timestamp"`
}

type ConsolidatedMetrics struct {
	OITotalAverage    float64  `json:"oi_total_average"`
	OIChange4hPercent *float64 `json:"oi_change_4h_percent"`
	FundingRate       float64  `json:"funding_rate_average"`
	NextFundingTimeMs int64    `json:"next_funding_time_ms"`
	DeribitMaxPain    float64  `json:"deribit_max_pain"`
	CurrentPrice      float64  `json:"current_price"`
	WeekHigh          float64  `json:"week_high"`
	WeekHighDate      *string  `json:"week_high_date"`
	WeekLow           float64  `json:"week_low"`
	WeekLowDate       *string  `json:"week_low_date"`
}

type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

type OrderBook struct {
	Bids []OrderBookLevel `json:"bids"`
	Asks []OrderBookLevel `json:"asks"`
}

type DepStatus struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Ok          bool                 `json:"ok"`
	TsISO       string               `json:"tsISO"`
	Service     string               `json:"service"`
	Version     string               `json:"version,omitempty"`
	Deps        []string             `json:"deps"`
	DepsStatus  map[string]DepStatus `json:"deps_status"`
	DataMissing []string             `json:"data_missing"`
	Env         map[string]bool      `json:"env"`
}
