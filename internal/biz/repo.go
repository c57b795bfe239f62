package biz

import (
	"context"
	"time"

	"castgate/internal/model"
)

// UpstreamTransport performs one upstream fetch. Implementations may call the
// origin directly or route through a relay; either way status, content type
// and body are preserved faithfully.
type UpstreamTransport interface {
	Fetch(ctx context.Context, url string) (*model.UpstreamResponse, error)
}

// EdgeCache stores HTTP-like responses keyed by canonical request identity.
// Lookup never fails: backend errors are reported as a miss. Store is
// best-effort and must not be relied on for correctness.
type EdgeCache interface {
	Lookup(ctx context.Context, url string) (*model.CachedResponse, bool)
	Store(ctx context.Context, url string, resp *model.CachedResponse, ttl, staleFor time.Duration)
}

// AnalyticsSink accepts completed-request events. Writes are fire-and-forget
// and loss-tolerant: a failed write never fails the request.
type AnalyticsSink interface {
	Record(event *model.RequestEvent)
}

// TrendRecorder counts search terms for the trending feed. Loss-tolerant.
type TrendRecorder interface {
	RecordSearch(ctx context.Context, term string) error
}
