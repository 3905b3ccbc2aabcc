package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"optionsflow/backend-go/internal/options"
	"optionsflow/backend-go/internal/services"
)

func TestWriteUpstreamError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{options.ErrEmptyData, http.StatusNotFound, "no_data"},
		{services.ErrNoData, http.StatusNotFound, "no_data"},
		{fmt.Errorf("chain BTC: %w", options.ErrEmptyData), http.StatusNotFound, "no_data"},
		{options.ErrInvalidScope, http.StatusUnprocessableEntity, "invalid_scope"},
		{services.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{services.ErrCircuitOpen, http.StatusServiceUnavailable, "upstream_unavailable"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "upstream_timeout"},
		{&services.UpstreamError{Status: 500, Body: "boom"}, http.StatusBadGateway, "upstream_error"},
		{&services.UpstreamError{Status: 429}, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("socket closed"), http.StatusBadGateway, "upstream_error"},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeUpstreamError(w, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Contains(t, w.Body.String(), tc.code, tc.err.Error())
	}
}

func TestRateLimitedSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	writeUpstreamError(w, services.ErrRateLimited)
	assert.Equal(t, "15", w.Header().Get("Retry-After"))
}
