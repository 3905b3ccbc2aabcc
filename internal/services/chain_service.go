package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"optionsflow/backend-go/internal/config"
	"optionsflow/backend-go/internal/models"
	"optionsflow/backend-go/internal/options"
)

const (
	chainKeyPrefix    = "chain:v1:"
	lastGoodKeyPrefix = "lastgood:v1:"
	oiHistKeyPrefix   = "oihist:v1:"

	lastGoodTTL = time.Hour
)

// ChainService owns the options-chain snapshot lifecycle: fetch from
// Deribit, short-TTL caching, a longer-lived last-good copy served in
// degraded mode, and the rolling open-interest history the 4h delta needs.
type ChainService struct {
	cfg     config.Config
	deribit *DeribitClient
	cache   Cache
}

func NewChainService(cfg config.Config, deribit *DeribitClient, cache Cache) *ChainService {
	return &ChainService{cfg: cfg, deribit: deribit, cache: cache}
}

type lastGoodEntry struct {
	Snapshot options.Snapshot `json:"snapshot"`
	StoredAt time.Time        `json:"stored_at"`
}

// Snapshot returns the chain for the currency, preferring the fresh cache,
// then a live fetch, then the last-good copy. The health block records which
// path was taken; an error is returned only when all three fail.
func (s *ChainService) Snapshot(ctx context.Context, currency string) (options.Snapshot, models.SourceHealth, error) {
	currency = strings.ToUpper(currency)
	started := time.Now()
	health := models.SourceHealth{}

	cacheKey := chainKeyPrefix + currency
	if b, ok := s.cache.Get(ctx, cacheKey); ok {
		var snap options.Snapshot
		if err := UnmarshalCache(b, &snap); err == nil {
			health.CacheHit = true
			health.LatencyMs = time.Since(started).Milliseconds()
			return snap, health, nil
		}
	}

	snap, err := s.deribit.OptionChain(ctx, currency)
	if err == nil && len(snap.Contracts) > 0 {
		if b, merr := MarshalCache(snap); merr == nil {
			if cerr := s.cache.Set(ctx, cacheKey, b, s.cfg.CacheTTLChain); cerr != nil {
				zap.S().Warnw("chain cache write failed", "currency", currency, "err", cerr)
			}
			entry := lastGoodEntry{Snapshot: snap, StoredAt: time.Now().UTC()}
			if lb, lerr := MarshalCache(entry); lerr == nil {
				_ = s.cache.Set(ctx, lastGoodKeyPrefix+currency, lb, lastGoodTTL)
			}
		}
		s.recordObservation(ctx, currency, snap.Observation())
		health.LatencyMs = time.Since(started).Milliseconds()
		return snap, health, nil
	}
	if err == nil {
		err = ErrNoData
	}

	zap.S().Warnw("chain fetch failed, trying last-good", "currency", currency, "err", err)
	if b, ok := s.cache.Get(ctx, lastGoodKeyPrefix+currency); ok {
		var entry lastGoodEntry
		if uerr := UnmarshalCache(b, &entry); uerr == nil && len(entry.Snapshot.Contracts) > 0 {
			health.DegradedMode = true
			health.LastGoodAgeS = int64(time.Since(entry.StoredAt).Seconds())
			health.Error = err.Error()
			health.LatencyMs = time.Since(started).Milliseconds()
			return entry.Snapshot, health, nil
		}
	}

	health.LatencyMs = time.Since(started).Milliseconds()
	return options.Snapshot{}, health, fmt.Errorf("chain %s: %w", currency, err)
}

// PriorObservation returns the stored total-OI reading closest to asOf minus
// the window, or nil when the history holds nothing near it.
func (s *ChainService) PriorObservation(ctx context.Context, currency string, asOf time.Time) *options.OIObservation {
	history := s.loadHistory(ctx, strings.ToUpper(currency))
	return options.ClosestObservation(history, asOf, options.DefaultOIWindow)
}

// recordObservation appends the snapshot's total OI to the per-currency
// history and prunes entries older than the retention horizon.
func (s *ChainService) recordObservation(ctx context.Context, currency string, obs options.OIObservation) {
	history := s.loadHistory(ctx, currency)
	history = append(history, obs)

	cutoff := obs.AsOf.Add(-s.cfg.OIHistoryRetention)
	kept := history[:0]
	for _, h := range history {
		if h.AsOf.After(cutoff) {
			kept = append(kept, h)
		}
	}

	b, err := MarshalCache(kept)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, oiHistKeyPrefix+currency, b, s.cfg.OIHistoryRetention); err != nil {
		zap.S().Warnw("oi history write failed", "currency", currency, "err", err)
	}
}

func (s *ChainService) loadHistory(ctx context.Context, currency string) []options.OIObservation {
	b, ok := s.cache.Get(ctx, oiHistKeyPrefix+currency)
	if !ok {
		return nil
	}
	var history []options.OIObservation
	if err := UnmarshalCache(b, &history); err != nil {
		return nil
	}
	return history
}
