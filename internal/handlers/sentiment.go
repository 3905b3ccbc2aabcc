package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/services"
)

// Sentiment serves the Binance futures sentiment panel: open-interest
// history, long/short ratio and the 4h OI change. Short-TTL cached; partial
// upstream failures still return whatever was fetched.
func (a *API) Sentiment(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	limit := parseIntParam(r, "limit", 30, 2, 500)

	key := "sentiment:v1:" + symbol
	if b, ok := a.cache.Get(r.Context(), key); ok {
		var cached models.SentimentResponse
		if err := services.UnmarshalCache(b, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	resp, err := a.binance.Sentiment(ctx, symbol, limit)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	if b, err := services.MarshalCache(resp); err == nil {
		if cerr := a.cache.Set(r.Context(), key, b, a.cfg.CacheTTLSentiment); cerr != nil {
			zap.S().Warnw("sentiment cache write failed", "symbol", symbol, "err", cerr)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
