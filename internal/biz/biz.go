// Package biz contains business logic layer implementations.
// It holds the circuit breaker and the resilient fetch orchestrator.
package biz

import (
	"castgate/internal/data"
	"castgate/pkg/tasks"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewCircuitBreaker,
	NewFetcherUsecase,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(EdgeCache), new(*data.EdgeCacheRepo)),
	wire.Bind(new(UpstreamTransport), new(*data.HTTPUpstream)),
	wire.Bind(new(AnalyticsSink), new(*data.AnalyticsSinkImpl)),
	wire.Bind(new(TrendRecorder), new(*data.TrendRepo)),
	wire.Bind(new(TaskRunner), new(*tasks.Runner)),
)
