package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/options"
	"optionsflow/backend-go/internal/services"
)

const weekDateFormat = "02-Jan"

// Consolidated serves the cross-venue summary card: averaged open interest,
// funding, Deribit max pain at the nearest expiration, spot and the weekly
// range. Each venue is fetched best-effort; the endpoint fails only when
// every source is down.
func (a *API) Consolidated(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	key := "consolidated:v1:" + symbol
	if b, ok := a.cache.Get(r.Context(), key); ok {
		var cached models.ConsolidatedMetrics
		if err := services.UnmarshalCache(b, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	var out models.ConsolidatedMetrics
	sources := 0

	var deribitOIUsd, binanceOIUsd *float64

	snap, _, err := a.chain.Snapshot(ctx, symbol)
	if err != nil {
		zap.S().Warnw("consolidated: chain unavailable", "symbol", symbol, "err", err)
	} else {
		sources++
		out.CurrentPrice = snap.SpotPrice.InexactFloat64()
		obs := snap.Observation()
		usd := obs.TotalOI.Mul(snap.SpotPrice).InexactFloat64()
		deribitOIUsd = &usd

		if m, err := options.Aggregate(snap, nearestExpiration(&snap), nil); err == nil {
			out.DeribitMaxPain = m.Scalar.MaxPainStrike.InexactFloat64()
		}
	}

	if info, err := a.binance.FundingInfo(ctx, symbol); err == nil {
		sources++
		out.FundingRate = info.CurrentFundingRate
		out.NextFundingTimeMs = info.NextFundingTimeMs
		if out.CurrentPrice == 0 {
			out.CurrentPrice = info.MarkPrice
		}
	}

	if sent, err := a.binance.Sentiment(ctx, symbol, 2); err == nil {
		out.OIChange4hPercent = sent.OIChange4hPercent
		binanceOIUsd = sent.CurrentOIUsd
	}

	if stats, err := a.binance.WeeklyStats(ctx, symbol); err == nil {
		sources++
		out.WeekHigh = stats.WeekHigh
		out.WeekLow = stats.WeekLow
		high := time.UnixMilli(stats.WeekHighTs).UTC().Format(weekDateFormat)
		low := time.UnixMilli(stats.WeekLowTs).UTC().Format(weekDateFormat)
		out.WeekHighDate = &high
		out.WeekLowDate = &low
	}

	if sources == 0 {
		writeError(w, http.StatusNotFound, "no_data")
		return
	}

	out.OITotalAverage = averageOI(deribitOIUsd, binanceOIUsd)

	if b, err := services.MarshalCache(out); err == nil {
		_ = a.cache.Set(r.Context(), key, b, a.cfg.CacheTTLSentiment)
	}
	writeJSON(w, http.StatusOK, out)
}

// nearestExpiration scopes max pain to the chain's soonest expiration, the
// one settling next.
func nearestExpiration(snap *options.Snapshot) options.ExpirationFilter {
	dates := snap.Expirations()
	if len(dates) == 0 {
		return options.AllExpirations()
	}
	today := options.DateUTC(time.Now())
	for _, d := range dates {
		if !d.Before(today) {
			return options.SingleExpiration(d)
		}
	}
	return options.SingleExpiration(dates[len(dates)-1])
}

// averageOI averages the venues that reported; one venue alone stands in
// for both.
func averageOI(deribitUsd, binanceUsd *float64) float64 {
	switch {
	case deribitUsd != nil && binanceUsd != nil:
		return (*deribitUsd + *binanceUsd) / 2
	case deribitUsd != nil:
		return *deribitUsd
	case binanceUsd != nil:
		return *binanceUsd
	default:
		return 0
	}
}
