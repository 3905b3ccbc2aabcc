package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/services"
)

// OrderBook serves the perpetual order book for a symbol, optionally
// aggregated into price buckets with ?step=50. Step parsing is exact
// decimal; a malformed step is a 400, not a silent passthrough.
func (a *API) OrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	depth := parseIntParam(r, "depth", 50, 1, 1000)

	step := decimal.Zero
	if raw := r.URL.Query().Get("step"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			writeError(w, http.StatusBadRequest, "bad_step")
			return
		}
		step = parsed
	}

	key := "orderbook:v1:" + symbol + ":" + step.String()
	if b, ok := a.cache.Get(r.Context(), key); ok {
		var cached models.OrderBook
		if err := services.UnmarshalCache(b, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	book, err := a.deribit.OrderBook(ctx, symbol, depth, step)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	if b, err := services.MarshalCache(book); err == nil {
		_ = a.cache.Set(r.Context(), key, b, a.cfg.CacheTTLOrderBook)
	}
	writeJSON(w, http.StatusOK, book)
}
