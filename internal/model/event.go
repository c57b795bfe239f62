package model

import "time"

// RequestEvent describes one completed gateway request. It is handed to the
// analytics sink after the response has been returned and then discarded.
type RequestEvent struct {
	// Endpoint is the logical endpoint name (search, lookup, top, genres, schema).
	Endpoint string
	// CacheHit reports whether the response was served from the edge cache.
	CacheHit bool
	// Status is the HTTP status returned to the client.
	Status int
	// DurationMs is the request handling time in milliseconds.
	DurationMs int64
	// ResultCount is the number of items in the upstream result set, when known.
	ResultCount int
	// Country is the validated country hint from the request, when present.
	Country string
	// RequestID correlates the event with request logs.
	RequestID string
	// CreatedAt is when the event was recorded.
	CreatedAt time.Time
}
