package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"optionsflow/backend-go/internal/config"
	"optionsflow/backend-go/internal/metrics"
	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/options"
)

const seriesTimeFormat = "02-Jan 15:04"

// BinanceClient reads public futures market data: funding, open interest,
// long/short sentiment and daily klines. The SDK covers the fapi endpoints;
// the futures/data analytics endpoints it does not model are fetched
// directly. Every call passes through a shared rate limiter.
type BinanceClient struct {
	futures *futures.Client
	hc      *http.Client
	baseURL string
	limiter *rate.Limiter
}

func NewBinanceClient(cfg config.Config) *BinanceClient {
	hc := &http.Client{Timeout: cfg.RequestTimeout}
	fc := futures.NewClient("", "")
	fc.HTTPClient = hc

	rps := float64(cfg.UpstreamRatePerMin) / 60.0
	burst := cfg.UpstreamRatePerMin / 10
	if burst < 1 {
		burst = 1
	}

	return &BinanceClient{
		futures: fc,
		hc:      hc,
		baseURL: strings.TrimRight(cfg.BinanceBaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// perpTicker maps a bare symbol (BTC) onto its USDT perpetual (BTCUSDT).
func perpTicker(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasSuffix(s, "USDT") {
		return s
	}
	return s + "USDT"
}

// FundingInfo returns the current funding rate, the next funding time and
// the mark price from the premium index.
func (c *BinanceClient) FundingInfo(ctx context.Context, symbol string) (models.FundingInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.FundingInfo{}, err
	}
	rows, err := c.futures.NewPremiumIndexService().Symbol(perpTicker(symbol)).Do(ctx)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues("binance", "premium_index", "error").Inc()
		return models.FundingInfo{}, err
	}
	metrics.UpstreamCalls.WithLabelValues("binance", "premium_index", "success").Inc()
	if len(rows) == 0 {
		return models.FundingInfo{}, ErrNoData
	}

	row := rows[0]
	funding, _ := strconv.ParseFloat(row.LastFundingRate, 64)
	mark, _ := strconv.ParseFloat(row.MarkPrice, 64)
	return models.FundingInfo{
		CurrentFundingRate: funding,
		NextFundingTimeMs:  row.NextFundingTime,
		MarkPrice:          mark,
	}, nil
}

// FundingHistory returns the funding rate series, oldest first.
func (c *BinanceClient) FundingHistory(ctx context.Context, symbol string, limit int) (models.FundingHistoryResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.FundingHistoryResponse{}, err
	}
	rows, err := c.futures.NewFundingRateService().Symbol(perpTicker(symbol)).Limit(limit).Do(ctx)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues("binance", "funding_history", "error").Inc()
		return models.FundingHistoryResponse{}, err
	}
	metrics.UpstreamCalls.WithLabelValues("binance", "funding_history", "success").Inc()
	if len(rows) == 0 {
		return models.FundingHistoryResponse{}, ErrNoData
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].FundingTime < rows[j].FundingTime })
	out := models.FundingHistoryResponse{
		Timestamps:   make([]string, 0, len(rows)),
		FundingRates: make([]float64, 0, len(rows)),
	}
	for _, row := range rows {
		v, err := strconv.ParseFloat(row.FundingRate, 64)
		if err != nil {
			continue
		}
		out.Timestamps = append(out.Timestamps, time.UnixMilli(row.FundingTime).UTC().Format(seriesTimeFormat))
		out.FundingRates = append(out.FundingRates, v)
	}
	return out, nil
}

// WeeklyStats scans the last seven daily klines for the week's high and low.
func (c *BinanceClient) WeeklyStats(ctx context.Context, symbol string) (models.WeeklyStats, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.WeeklyStats{}, err
	}
	klines, err := c.futures.NewKlinesService().Symbol(perpTicker(symbol)).Interval("1d").Limit(7).Do(ctx)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues("binance", "klines", "error").Inc()
		return models.WeeklyStats{}, err
	}
	metrics.UpstreamCalls.WithLabelValues("binance", "klines", "success").Inc()
	if len(klines) == 0 {
		return models.WeeklyStats{}, ErrNoData
	}

	var stats models.WeeklyStats
	for _, k := range klines {
		high, err1 := strconv.ParseFloat(k.High, 64)
		low, err2 := strconv.ParseFloat(k.Low, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if stats.WeekHighTs == 0 || high > stats.WeekHigh {
			stats.WeekHigh = high
			stats.WeekHighTs = k.OpenTime
		}
		if stats.WeekLowTs == 0 || low < stats.WeekLow {
			stats.WeekLow = low
			stats.WeekLowTs = k.OpenTime
		}
	}
	if stats.WeekHighTs == 0 {
		return models.WeeklyStats{}, ErrNoData
	}
	return stats, nil
}

type openInterestRow struct {
	SumOpenInterest      string `json:"sumOpenInterest"`
	SumOpenInterestValue string `json:"sumOpenInterestValue"`
	Timestamp            int64  `json:"timestamp"`
}

type longShortRow struct {
	LongShortRatio string `json:"longShortRatio"`
	Timestamp      int64  `json:"timestamp"`
}

// Sentiment assembles the futures sentiment panel: 4h-bucket open-interest
// history in USD, the global long/short account ratio, the latest OI and
// the 4h OI change. Sub-fetch failures degrade the corresponding fields to
// nil; only a total blackout is an error.
func (c *BinanceClient) Sentiment(ctx context.Context, symbol string, limit int) (models.SentimentResponse, error) {
	ticker := perpTicker(symbol)
	var resp models.SentimentResponse
	failures := 0

	oiRows, err := c.openInterestHist(ctx, ticker, "4h", limit)
	if err != nil || len(oiRows) == 0 {
		failures++
	} else {
		series := &models.TimeSeries{
			Timestamps: make([]string, 0, len(oiRows)),
			Values:     make([]float64, 0, len(oiRows)),
		}
		for _, row := range oiRows {
			v, err := strconv.ParseFloat(row.SumOpenInterestValue, 64)
			if err != nil {
				continue
			}
			series.Timestamps = append(series.Timestamps, time.UnixMilli(row.Timestamp).UTC().Format(seriesTimeFormat))
			series.Values = append(series.Values, v)
		}
		if len(series.Values) > 0 {
			resp.OpenInterestHistory = series
			current := series.Values[len(series.Values)-1]
			resp.CurrentOIUsd = &current
			resp.OIChange4hPercent = oiChangeFromRows(oiRows)
		}
	}

	lsRows, err := c.longShortRatio(ctx, ticker, "1h", limit)
	if err != nil || len(lsRows) == 0 {
		failures++
	} else {
		series := &models.TimeSeries{
			Timestamps: make([]string, 0, len(lsRows)),
			Values:     make([]float64, 0, len(lsRows)),
		}
		for _, row := range lsRows {
			v, err := strconv.ParseFloat(row.LongShortRatio, 64)
			if err != nil {
				continue
			}
			series.Timestamps = append(series.Timestamps, time.UnixMilli(row.Timestamp).UTC().Format(seriesTimeFormat))
			series.Values = append(series.Values, v)
		}
		if len(series.Values) > 0 {
			resp.LongShortRatio = series
		}
	}

	if failures == 2 {
		return resp, ErrNoData
	}
	return resp, nil
}

// oiChangeFromRows derives the 4h delta from the two most recent 4h-bucket
// observations; the rows are exactly one window apart, so the shared
// tolerance check passes whenever both exist.
func oiChangeFromRows(rows []openInterestRow) *float64 {
	if len(rows) < 2 {
		return nil
	}
	last := rows[len(rows)-1]
	prev := rows[len(rows)-2]
	current, err1 := decimal.NewFromString(last.SumOpenInterestValue)
	prior, err2 := decimal.NewFromString(prev.SumOpenInterestValue)
	if err1 != nil || err2 != nil {
		return nil
	}
	obs := &options.OIObservation{AsOf: time.UnixMilli(prev.Timestamp).UTC(), TotalOI: prior}
	pct := options.ComputeOIChange(current, obs, time.UnixMilli(last.Timestamp).UTC(), options.DefaultOIWindow)
	if pct == nil {
		return nil
	}
	v := pct.InexactFloat64()
	return &v
}

func (c *BinanceClient) openInterestHist(ctx context.Context, ticker, period string, limit int) ([]openInterestRow, error) {
	if limit < 2 {
		limit = 2
	}
	url := fmt.Sprintf("%s/futures/data/openInterestHist?symbol=%s&period=%s&limit=%d", c.baseURL, ticker, period, limit)
	var rows []openInterestRow
	if err := c.doJSON(ctx, "open_interest_hist", url, &rows); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
	return rows, nil
}

func (c *BinanceClient) longShortRatio(ctx context.Context, ticker, period string, limit int) ([]longShortRow, error) {
	url := fmt.Sprintf("%s/futures/data/globalLongShortAccountRatio?symbol=%s&period=%s&limit=%d", c.baseURL, ticker, period, limit)
	var rows []longShortRow
	if err := c.doJSON(ctx, "long_short_ratio", url, &rows); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
	return rows, nil
}

// Ping checks upstream reachability for health reporting.
func (c *BinanceClient) Ping(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.futures.NewPingService().Do(ctx)
}

func (c *BinanceClient) doJSON(ctx context.Context, endpoint string, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues("binance", endpoint, "error").Inc()
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusTooManyRequests {
		metrics.UpstreamCalls.WithLabelValues("binance", endpoint, "rate_limited").Inc()
		return ErrRateLimited
	}
	if res.StatusCode >= 300 {
		metrics.UpstreamCalls.WithLabelValues("binance", endpoint, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &UpstreamError{Status: res.StatusCode, Body: string(body)}
	}
	metrics.UpstreamCalls.WithLabelValues("binance", endpoint, "success").Inc()
	return json.NewDecoder(res.Body).Decode(out)
}
