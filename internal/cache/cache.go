package cache

import (
	"context"
	"time"

	"hesapla/backend/internal/pricing"
)

// SimulationCache stores computed repricing simulations keyed by catalog
// revision and parameters.
type SimulationCache interface {
	Get(ctx context.Context, key string) (*pricing.Simulation, bool, error)
	Set(ctx context.Context, key string, value *pricing.Simulation, ttl time.Duration) error
}

type NoopSimulationCache struct{}

func (NoopSimulationCache) Get(_ context.Context, _ string) (*pricing.Simulation, bool, error) {
	return nil, false, nil
}

func (NoopSimulationCache) Set(_ context.Context, _ string, _ *pricing.Simulation, _ time.Duration) error {
	return nil
}
