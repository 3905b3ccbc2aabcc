package handlers

import (
	"context"
	"net/http"
	"time"

	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/services"
)

// Health reports liveness plus per-dependency reachability. Upstream pings
// run with a short independent deadline so a dead venue cannot stall the
// probe.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	deps := map[string]models.DepStatus{
		"deribit": pingStatus(a.deribit.Ping(ctx)),
		"binance": pingStatus(a.binance.Ping(ctx)),
	}
	_, redisBacked := a.cache.(*services.RedisCache)
	deps["redis"] = models.DepStatus{Ok: redisBacked}

	ok := true
	missing := make([]string, 0)
	for name, st := range deps {
		if !st.Ok && name != "redis" {
			ok = false
			missing = append(missing, name)
		}
	}

	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, models.HealthResponse{
		Ok:          ok,
		TsISO:       nowISO(),
		Service:     "optionsflow-backend",
		Deps:        []string{"deribit", "binance", "redis"},
		DepsStatus:  deps,
		DataMissing: missing,
		Env: map[string]bool{
			"redis": redisBacked,
		},
	})
}

func pingStatus(err error) models.DepStatus {
	if err != nil {
		return models.DepStatus{Ok: false, Error: err.Error()}
	}
	return models.DepStatus{Ok: true}
}
