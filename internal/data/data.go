// Package data provides data access layer implementations.
// It holds the Redis-backed edge cache, the upstream transport, the analytics
// sink, and the trend recorder.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewMySQLClient,
	NewEdgeCacheRepo,
	NewHTTPUpstream,
	NewAnalyticsSink,
	NewTrendRepo,
)
