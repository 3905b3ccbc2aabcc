package handlers

import (
	"net/http"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/services"
)

// FundingHistory serves the funding-rate series for a perpetual, oldest
// first, plus the current rate and next funding time.
func (a *API) FundingHistory(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	limit := parseIntParam(r, "limit", 30, 1, 1000)

	key := "funding:v1:" + symbol
	if b, ok := a.cache.Get(r.Context(), key); ok {
		var cached fundingPayload
		if err := services.UnmarshalCache(b, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	history, err := a.binance.FundingHistory(ctx, symbol, limit)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	payload := fundingPayload{FundingHistoryResponse: history}
	if info, err := a.binance.FundingInfo(ctx, symbol); err == nil {
		payload.Current = &info
	}

	if b, err := services.MarshalCache(payload); err == nil {
		_ = a.cache.Set(r.Context(), key, b, a.cfg.CacheTTLFunding)
	}
	writeJSON(w, http.StatusOK, payload)
}

type fundingPayload struct {
	models.FundingHistoryResponse
	Current *models.FundingInfo `json:"current,omitempty"`
}
