package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"optionsflow/backend-go/internal/options"
	"optionsflow/backend-go/internal/services"
)

// writeUpstreamError maps service-layer failures onto the API's status
// codes. Empty data is the caller's 404, not a server fault.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, options.ErrEmptyData), errors.Is(err, services.ErrNoData):
		writeError(w, http.StatusNotFound, "no_data")
	case errors.Is(err, options.ErrInvalidScope):
		writeError(w, http.StatusUnprocessableEntity, "invalid_scope")
	case errors.Is(err, services.ErrRateLimited):
		w.Header().Set("Retry-After", "15")
		writeError(w, http.StatusTooManyRequests, "rate_limited")
	case errors.Is(err, services.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "upstream_unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "upstream_timeout")
	default:
		var ue *services.UpstreamError
		if errors.As(err, &ue) {
			if ue.Status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "15")
				writeError(w, http.StatusTooManyRequests, "rate_limited")
				return
			}
			zap.S().Warnw("upstream error", "status", ue.Status, "body", ue.Body)
			writeError(w, http.StatusBadGateway, "upstream_error")
			return
		}
		zap.S().Errorw("request failed", "err", err)
		writeError(w, http.StatusBadGateway, "upstream_error")
	}
}
