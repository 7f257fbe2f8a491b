package repricing

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hesapla/backend/internal/cache"
	"hesapla/backend/internal/pricing"
)

// CatalogLoader returns the catalog snapshot a simulation is computed from.
type CatalogLoader func(ctx context.Context) ([]pricing.CatalogItem, error)

// Engine recomputes a simulation only when the catalog revision or the
// parameters change. Search and paging are served from the last result.
type Engine struct {
	cache    cache.SimulationCache
	cacheTTL time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	lastKey string
	last    *pricing.Simulation
}

type Result struct {
	Revision   string
	Simulation *pricing.Simulation
	Cached     bool
}

func NewEngine(cacheStore cache.SimulationCache, cacheTTL time.Duration, logger zerolog.Logger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopSimulationCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "repricing").Logger(),
	}
}

func (e *Engine) Project(
	ctx context.Context,
	revision string,
	load CatalogLoader,
	params pricing.SimulationParameters,
) (Result, error) {
	if err := params.Validate(); err != nil {
		return Result{}, err
	}

	key := buildCacheKey(revision, params)
	if sim := e.remembered(key); sim != nil {
		return Result{Revision: revision, Simulation: sim, Cached: true}, nil
	}

	cached, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("simulation cache get failed")
	}
	if err == nil && ok {
		e.remember(key, cached)
		return Result{Revision: revision, Simulation: cached, Cached: true}, nil
	}

	catalog, err := load(ctx)
	if err != nil {
		return Result{}, err
	}

	startedAt := time.Now()
	sim, err := pricing.Simulate(catalog, params)
	if err != nil {
		return Result{}, err
	}
	e.logger.Debug().
		Str("revision", revision).
		Str("params", params.Key()).
		Int("items", len(sim.Projections)).
		Dur("took", time.Since(startedAt)).
		Msg("simulation computed")

	e.remember(key, sim)
	if err := e.cache.Set(ctx, key, sim, e.cacheTTL); err != nil {
		e.logger.Warn().Err(err).Str("key", key).Msg("simulation cache set failed")
	}
	return Result{Revision: revision, Simulation: sim}, nil
}

func (e *Engine) remembered(key string) *pricing.Simulation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastKey != key {
		return nil
	}
	return e.last
}

func (e *Engine) remember(key string, sim *pricing.Simulation) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastKey = key
	e.last = sim
}

func buildCacheKey(revision string, params pricing.SimulationParameters) string {
	hash := sha1.Sum([]byte(revision + "|" + params.Key()))
	return "pricing:simulation:" + hex.EncodeToString(hash[:])
}
