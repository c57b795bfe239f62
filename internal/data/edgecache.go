package data

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"castgate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// CacheKeyEdge is the prefix for edge response caches: edge:get:{md5(url)}.
// The method component is fixed: the gateway only caches read-only fetches.
const CacheKeyEdge = "edge:get"

// ErrCacheNotFound is returned internally when a cache key does not exist.
var ErrCacheNotFound = errors.New("cache: key not found")

// EdgeCacheRepo is the Redis-backed implementation of biz.EdgeCache. Entries
// are JSON-serialized model.CachedResponse values whose Redis expiry is set to
// ttl+staleFor, so the backend itself ages entries out at the staleness
// tolerance boundary.
type EdgeCacheRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewEdgeCacheRepo creates the edge cache adapter. A nil Redis client is
// tolerated: every lookup is then a miss and every store a no-op.
func NewEdgeCacheRepo(rdb *redis.Client, logger log.Logger) *EdgeCacheRepo {
	return &EdgeCacheRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// Lookup retrieves the cached response for url. Absence is a normal outcome;
// backend errors and corrupt payloads are logged and reported as a miss so
// the caller never has to distinguish them.
func (r *EdgeCacheRepo) Lookup(ctx context.Context, url string) (*model.CachedResponse, bool) {
	if r.rdb == nil {
		return nil, false
	}

	key := EdgeCacheKey(url)
	val, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warnw("edge cache lookup failed", "key", key, "error", err)
		}
		return nil, false
	}

	var entry model.CachedResponse
	if err := json.Unmarshal(val, &entry); err != nil {
		r.logger.Warnw("edge cache entry is corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}

	return &entry, true
}

// Store writes a success response under url's canonical key. Best-effort:
// failures are logged, never propagated. Non-2xx responses are refused —
// failures are never cached.
func (r *EdgeCacheRepo) Store(ctx context.Context, url string, resp *model.CachedResponse, ttl, staleFor time.Duration) {
	if r.rdb == nil || resp == nil {
		return
	}
	if resp.Status < 200 || resp.Status >= 300 {
		r.logger.Warnw("refusing to cache non-success response", "url", url, "status", resp.Status)
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Errorw("failed to marshal edge cache entry", "url", url, "error", err)
		return
	}

	key := EdgeCacheKey(url)
	expiry := ttl + staleFor
	if expiry <= 0 {
		expiry = ttl
	}

	if err := r.rdb.Set(ctx, key, data, expiry).Err(); err != nil {
		r.logger.Warnw("edge cache store failed", "key", key, "error", err)
		return
	}

	r.logger.Debugw("edge cache entry stored", "key", key, "expiry", expiry)
}

// EdgeCacheKey builds the canonical cache key for a request identity. The
// URL is hashed so arbitrary query strings stay within key length limits.
func EdgeCacheKey(url string) string {
	sum := md5.Sum([]byte(url))
	return CacheKeyEdge + ":" + hex.EncodeToString(sum[:])
}
