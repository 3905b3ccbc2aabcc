package handlers

import (
	"net/http"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/services"
)

// DvolHistory serves the smoothed DVOL index series for a currency.
func (a *API) DvolHistory(w http.ResponseWriter, r *http.Request) {
	currency := r.PathValue("currency")
	days := parseIntParam(r, "days", 90, 7, 365)

	key := "dvol:v1:" + currency
	if b, ok := a.cache.Get(r.Context(), key); ok {
		var cached models.DvolHistoryResponse
		if err := services.UnmarshalCache(b, &cached); err == nil {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	resp, err := a.deribit.DvolHistory(ctx, currency, days)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	if b, err := services.MarshalCache(resp); err == nil {
		_ = a.cache.Set(r.Context(), key, b, a.cfg.CacheTTLDvol)
	}
	writeJSON(w, http.StatusOK, resp)
}
