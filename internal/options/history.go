package options

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultOIWindow is the lookback for the open-interest delta.
	DefaultOIWindow = 4 * time.Hour

	// HistoryTolerance bounds how far a prior observation may sit from the
	// exact window offset and still be usable.
	HistoryTolerance = 30 * time.Minute
)

var hundred = decimal.NewFromInt(100)

// ComputeOIChange returns the percentage change of total open interest
// against a prior observation taken about one window earlier. It returns nil
// — not zero, not an error — when the delta cannot be computed: no prior
// observation, the observation falls outside the ±HistoryTolerance band
// around asOf-window, or the prior total is zero. Absence of history is a
// normal state distinct from a zero change.
func ComputeOIChange(currentTotalOI decimal.Decimal, prior *OIObservation, asOf time.Time, window time.Duration) *decimal.Decimal {
	if prior == nil {
		return nil
	}
	if window <= 0 {
		window = DefaultOIWindow
	}
	target := asOf.Add(-window)
	offset := prior.AsOf.Sub(target)
	if offset < 0 {
		offset = -offset
	}
	if offset > HistoryTolerance {
		return nil
	}
	if !prior.TotalOI.IsPositive() {
		return nil
	}
	pct := currentTotalOI.Sub(prior.TotalOI).Div(prior.TotalOI).Mul(hundred)
	return &pct
}

// ClosestObservation picks the observation nearest to asOf-window, or nil
// when the slice is empty. Tolerance filtering is ComputeOIChange's job;
// this only selects the best candidate.
func ClosestObservation(history []OIObservation, asOf time.Time, window time.Duration) *OIObservation {
	if len(history) == 0 {
		return nil
	}
	if window <= 0 {
		window = DefaultOIWindow
	}
	target := asOf.Add(-window)
	best := history[0]
	bestDiff := absDuration(best.AsOf.Sub(target))
	for _, obs := range history[1:] {
		if diff := absDuration(obs.AsOf.Sub(target)); diff < bestDiff {
			best = obs
			bestDiff = diff
		}
	}
	return &best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
