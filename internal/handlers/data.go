package handlers

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/options"
)

// Data serves the aggregated options-chain payload for one currency,
// optionally scoped to a single expiration. Responses carry an ETag over the
// body so polling dashboards can ride 304s between snapshot changes.
func (a *API) Data(w http.ResponseWriter, r *http.Request) {
	currency := r.PathValue("currency")
	filter, ok := parseExpirationFilter(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_expiration")
		return
	}

	ctx, cancel := a.timeboxed(r)
	defer cancel()

	snap, health, err := a.chain.Snapshot(ctx, currency)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	prior := a.chain.PriorObservation(ctx, snap.Currency, snap.AsOf)
	metrics, err := options.Aggregate(snap, filter, prior)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	resp := buildDataResponse(snap, filter, metrics, health)

	etag, err := dataETag(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode_failed")
		return
	}
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// dataETag hashes the payload with the health block zeroed. Latency and
// last-good age vary on every request; hashing them would break
// If-None-Match on exactly the paths the 304 is meant to cover.
func dataETag(resp models.DataResponse) (string, error) {
	stable := resp
	stable.Health = models.SourceHealth{}
	body, err := json.Marshal(stable)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`"%x"`, sha1.Sum(body)), nil
}

func buildDataResponse(snap options.Snapshot, filter options.ExpirationFilter, m options.Metrics, health models.SourceHealth) models.DataResponse {
	expiration := "all"
	if !filter.IsAll() {
		expiration = filter.Date().Format("2006-01-02")
	}

	resp := models.DataResponse{
		Ts:         snap.AsOf.Format(time.RFC3339),
		Currency:   snap.Currency,
		Expiration: expiration,
		Metrics: models.ScalarMetrics{
			CallOI:             m.Scalar.CallOI.InexactFloat64(),
			PutOI:              m.Scalar.PutOI.InexactFloat64(),
			TotalOI:            m.Scalar.TotalOI.InexactFloat64(),
			CallVolume:         m.Scalar.CallVolume.InexactFloat64(),
			PutVolume:          m.Scalar.PutVolume.InexactFloat64(),
			TotalVolume:        m.Scalar.TotalVolume.InexactFloat64(),
			PCRatio:            m.Scalar.PCRatioOI.InexactFloat64(),
			PCRatioVolume:      m.Scalar.PCRatioVolume.InexactFloat64(),
			NotionalValueAsset: m.Scalar.NotionalAsset.InexactFloat64(),
			NotionalValueUsd:   m.Scalar.NotionalUSD.InexactFloat64(),
			MaxPain:            m.Scalar.MaxPainStrike.InexactFloat64(),
		},
		StrikeChart:     make([]models.StrikeRow, 0, len(m.StrikeSeries)),
		ExpirationChart: make([]models.ExpirationRow, 0, len(m.ExpirationSeries)),
		Health:          health,
	}

	for _, lvl := range m.StrikeSeries {
		resp.StrikeChart = append(resp.StrikeChart, models.StrikeRow{
			Strike:     lvl.Strike.InexactFloat64(),
			CallOI:     lvl.CallOI.InexactFloat64(),
			PutOI:      lvl.PutOI.InexactFloat64(),
			CallVolume: lvl.CallVolume.InexactFloat64(),
			PutVolume:  lvl.PutVolume.InexactFloat64(),
		})
	}
	for _, lvl := range m.ExpirationSeries {
		resp.ExpirationChart = append(resp.ExpirationChart, models.ExpirationRow{
			Date:         lvl.Expiration.Format("2006-01-02"),
			OpenInterest: lvl.OpenInterest.InexactFloat64(),
		})
	}
	if m.Smile != nil {
		resp.VolatilitySmile = make([]models.SmileRow, 0, len(m.Smile))
		for _, p := range m.Smile {
			resp.VolatilitySmile = append(resp.VolatilitySmile, models.SmileRow{
				Strike: p.Strike.InexactFloat64(),
				CallIV: decimalPtrToFloat(p.CallIV),
				PutIV:  decimalPtrToFloat(p.PutIV),
			})
		}
	}
	if m.OIChangePct != nil {
		v := m.OIChangePct.InexactFloat64()
		resp.OIChange4hPercent = &v
	}
	return resp
}

func decimalPtrToFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}

// Expirations lists the distinct expiration dates available for a currency,
// ascending, for the dashboard's filter dropdown.
func (a *API) Expirations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.timeboxed(r)
	defer cancel()

	snap, _, err := a.chain.Snapshot(ctx, r.PathValue("currency"))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	dates := snap.Expirations()
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currency":    snap.Currency,
		"expirations": out,
	})
}
