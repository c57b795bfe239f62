package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	// trendKey is the sorted set of search term counts.
	trendKey = "trend:searches"
	// trendTTL keeps the trend window rolling.
	trendTTL = 7 * 24 * time.Hour
)

// TrendRepo implements biz.TrendRecorder on a Redis sorted set. Increments
// are fired from background tasks and are loss-tolerant.
type TrendRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewTrendRepo creates the trend recorder. A nil Redis client disables it.
func NewTrendRepo(rdb *redis.Client, logger log.Logger) *TrendRepo {
	return &TrendRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// RecordSearch increments the counter for a normalized search term.
func (r *TrendRepo) RecordSearch(ctx context.Context, term string) error {
	if r.rdb == nil {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(term))
	if normalized == "" {
		return nil
	}

	if err := r.rdb.ZIncrBy(ctx, trendKey, 1, normalized).Err(); err != nil {
		return fmt.Errorf("failed to increment trend counter: %w", err)
	}

	// Refresh the rolling expiry; failure here only shortens the window.
	if err := r.rdb.Expire(ctx, trendKey, trendTTL).Err(); err != nil {
		r.logger.Warnw("failed to refresh trend key expiry", "error", err)
	}

	return nil
}
