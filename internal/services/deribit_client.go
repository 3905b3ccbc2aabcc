package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"optionsflow/backend-go/internal/config"
	"optionsflow/backend-go/internal/indicators"
	"optionsflow/backend-go/internal/metrics"
	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/options"
)

// ErrRateLimited marks an upstream 429 that survived the whole backoff
// ladder.
var ErrRateLimited = errors.New("rate_limited")

// ErrCircuitOpen is returned while the chain-fetch breaker is cooling down.
var ErrCircuitOpen = errors.New("deribit circuit breaker open")

// ErrNoData means the upstream answered but carried nothing usable.
var ErrNoData = errors.New("no_data")

var backoffSteps = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
}

// UpstreamError wraps a non-2xx reply from a market-data venue.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream: %d", e.Status)
}

// DeribitClient talks to Deribit's public REST API: the options-chain book
// summary, the DVOL index history and the perpetual order book.
type DeribitClient struct {
	baseURL string
	hc      *http.Client
	cb      *circuitBreaker
}

func NewDeribitClient(cfg config.Config) *DeribitClient {
	return &DeribitClient{
		baseURL: strings.TrimRight(cfg.DeribitBaseURL, "/"),
		hc: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cb: newCircuitBreaker(cfg.CircuitFailLimit, cfg.CircuitCooldown),
	}
}

type bookSummary struct {
	InstrumentName  string   `json:"instrument_name"`
	MarkIV          *float64 `json:"mark_iv"`
	UnderlyingPrice float64  `json:"underlying_price"`
	OpenInterest    float64  `json:"open_interest"`
	Volume          float64  `json:"volume"`
}

// OptionChain fetches the full book summary for the currency and normalizes
// it into an options.Snapshot. Rows whose instrument name does not parse are
// skipped; the chain-level circuit breaker guards the fetch.
func (c *DeribitClient) OptionChain(ctx context.Context, currency string) (options.Snapshot, error) {
	if !c.cb.allow() {
		return options.Snapshot{}, ErrCircuitOpen
	}

	currency = strings.ToUpper(currency)
	url := fmt.Sprintf("%s/api/v2/public/get_book_summary_by_currency?currency=%s&kind=option", c.baseURL, currency)
	var raw struct {
		Result []bookSummary `json:"result"`
	}
	if err := c.fetchWithBackoff(ctx, "book_summary", url, &raw); err != nil {
		c.cb.fail()
		return options.Snapshot{}, err
	}
	c.cb.success()

	snap := options.Snapshot{
		Currency: currency,
		AsOf:     time.Now().UTC(),
	}
	for _, row := range raw.Result {
		strike, expiration, typ, err := parseInstrument(row.InstrumentName)
		if err != nil {
			continue
		}
		contract := options.Contract{
			Strike:       strike,
			Expiration:   expiration,
			Type:         typ,
			OpenInterest: decimal.NewFromFloat(row.OpenInterest),
			Volume:       decimal.NewFromFloat(row.Volume),
		}
		if row.MarkIV != nil {
			iv := decimal.NewFromFloat(*row.MarkIV)
			contract.MarkIV = &iv
		}
		if snap.SpotPrice.IsZero() && row.UnderlyingPrice > 0 {
			snap.SpotPrice = decimal.NewFromFloat(row.UnderlyingPrice)
		}
		snap.Contracts = append(snap.Contracts, contract)
	}
	return snap, nil
}

var monthTokens = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// parseInstrument splits a Deribit option name (BTC-27JUN25-100000-C) into
// strike, expiration date and type. Fractional strikes use Deribit's "d"
// notation (XRP-27JUN25-0d6045-P).
func parseInstrument(name string) (decimal.Decimal, time.Time, options.OptionType, error) {
	parts := strings.Split(name, "-")
	if len(parts) != 4 {
		return decimal.Decimal{}, time.Time{}, "", fmt.Errorf("instrument %q: not an option name", name)
	}

	expiration, err := parseExpiry(parts[1])
	if err != nil {
		return decimal.Decimal{}, time.Time{}, "", fmt.Errorf("instrument %q: %w", name, err)
	}

	strike, err := decimal.NewFromString(strings.ReplaceAll(parts[2], "d", "."))
	if err != nil || !strike.IsPositive() {
		return decimal.Decimal{}, time.Time{}, "", fmt.Errorf("instrument %q: bad strike", name)
	}

	var typ options.OptionType
	switch parts[3] {
	case "C":
		typ = options.Call
	case "P":
		typ = options.Put
	default:
		return decimal.Decimal{}, time.Time{}, "", fmt.Errorf("instrument %q: bad type", name)
	}
	return strike, expiration, typ, nil
}

// parseExpiry decodes Deribit's DDMMMYY expiry token, where the day may be
// one or two digits (1AUG25, 27JUN25).
func parseExpiry(token string) (time.Time, error) {
	i := 0
	for i < len(token) && token[i] >= '0' && token[i] <= '9' {
		i++
	}
	if i == 0 || i > 2 || len(token) != i+5 {
		return time.Time{}, fmt.Errorf("bad expiry token %q", token)
	}
	day, err := strconv.Atoi(token[:i])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("bad expiry token %q", token)
	}
	month, ok := monthTokens[token[i:i+3]]
	if !ok {
		return time.Time{}, fmt.Errorf("bad expiry token %q", token)
	}
	year, err := strconv.Atoi(token[i+3:])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad expiry token %q", token)
	}
	return time.Date(2000+year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// DvolHistory returns the daily DVOL index closes for the currency smoothed
// with a 7-period SMA, the way the dashboard charts it.
func (c *DeribitClient) DvolHistory(ctx context.Context, currency string, days int) (models.DvolHistoryResponse, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	url := fmt.Sprintf("%s/api/v2/public/get_volatility_index_data?currency=%s&start_timestamp=%d&end_timestamp=%d&resolution=1D",
		c.baseURL, strings.ToUpper(currency), start.UnixMilli(), end.UnixMilli())

	var raw struct {
		Result struct {
			Data [][]float64 `json:"data"` // [ts_ms, open, high, low, close]
		} `json:"result"`
	}
	if err := c.fetchWithBackoff(ctx, "dvol", url, &raw); err != nil {
		return models.DvolHistoryResponse{}, err
	}

	closes := make([]float64, 0, len(raw.Result.Data))
	stamps := make([]int64, 0, len(raw.Result.Data))
	for _, row := range raw.Result.Data {
		if len(row) < 5 {
			continue
		}
		stamps = append(stamps, int64(row[0]))
		closes = append(closes, row[4])
	}

	smoothed, offset := indicators.DropNaN(indicators.SMA(closes, 7))
	if offset < 0 {
		return models.DvolHistoryResponse{}, ErrNoData
	}
	out := models.DvolHistoryResponse{
		Timestamps: make([]string, 0, len(smoothed)),
		Values:     smoothed,
	}
	for i := range smoothed {
		out.Timestamps = append(out.Timestamps, time.UnixMilli(stamps[offset+i]).UTC().Format("2006-01-02"))
	}
	return out, nil
}

// OrderBook fetches the perpetual book for the currency, optionally
// aggregated into buckets of size step. Bucketing is exact decimal
// arithmetic (price floor-divided by step), never float rounding.
func (c *DeribitClient) OrderBook(ctx context.Context, currency string, depth int, step decimal.Decimal) (models.OrderBook, error) {
	instrument := strings.ToUpper(currency) + "-PERPETUAL"
	url := fmt.Sprintf("%s/api/v2/public/get_order_book?instrument_name=%s&depth=%d", c.baseURL, instrument, depth)

	var raw struct {
		Result struct {
			Bids [][]float64 `json:"bids"`
			Asks [][]float64 `json:"asks"`
		} `json:"result"`
	}
	if err := c.fetchWithBackoff(ctx, "order_book", url, &raw); err != nil {
		return models.OrderBook{}, err
	}

	book := models.OrderBook{
		Bids: aggregateLevels(raw.Result.Bids, step, true),
		Asks: aggregateLevels(raw.Result.Asks, step, false),
	}
	return book, nil
}

func aggregateLevels(levels [][]float64, step decimal.Decimal, descending bool) []models.OrderBookLevel {
	out := make([]models.OrderBookLevel, 0, len(levels))
	if !step.IsPositive() {
		for _, l := range levels {
			if len(l) < 2 {
				continue
			}
			out = append(out, models.OrderBookLevel{Price: l[0], Quantity: l[1]})
		}
		return out
	}

	buckets := make(map[string]decimal.Decimal)
	for _, l := range levels {
		if len(l) < 2 {
			continue
		}
		price := decimal.NewFromFloat(l[0])
		bucket := price.Div(step).Floor().Mul(step)
		buckets[bucket.String()] = buckets[bucket.String()].Add(decimal.NewFromFloat(l[1]))
	}
	for price, qty := range buckets {
		p, _ := decimal.NewFromString(price)
		out = append(out, models.OrderBookLevel{Price: p.InexactFloat64(), Quantity: qty.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	return out
}

// Ping checks upstream reachability for health reporting.
func (c *DeribitClient) Ping(ctx context.Context) error {
	return c.doJSONOnce(ctx, c.baseURL+"/api/v2/public/test", nil)
}

func (c *DeribitClient) fetchWithBackoff(ctx context.Context, endpoint string, url string, out any) error {
	var lastErr error
	for i, wait := range backoffSteps {
		status, err := c.doJSON(ctx, url, out)
		if err == nil {
			metrics.UpstreamCalls.WithLabelValues("deribit", endpoint, "success").Inc()
			return nil
		}
		lastErr = err
		if status == http.StatusTooManyRequests {
			if i == len(backoffSteps)-1 {
				metrics.UpstreamCalls.WithLabelValues("deribit", endpoint, "rate_limited").Inc()
				return ErrRateLimited
			}
		} else if status >= 400 && status < 500 {
			// Client errors won't heal with retries.
			metrics.UpstreamCalls.WithLabelValues("deribit", endpoint, "error").Inc()
			return err
		}
		select {
		case <-ctx.Done():
			metrics.UpstreamCalls.WithLabelValues("deribit", endpoint, "error").Inc()
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	metrics.UpstreamCalls.WithLabelValues("deribit", endpoint, "error").Inc()
	if lastErr != nil {
		return lastErr
	}
	return errors.New("request_failed")
}

func (c *DeribitClient) doJSON(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return res.StatusCode, &UpstreamError{Status: res.StatusCode, Body: string(body)}
	}
	if out == nil {
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return res.StatusCode, err
	}
	return res.StatusCode, nil
}

func (c *DeribitClient) doJSONOnce(ctx context.Context, url string, out any) error {
	_, err := c.doJSON(ctx, url, out)
	return err
}
