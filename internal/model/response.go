package model

import "time"

// UpstreamResponse is the single result shape for both the direct and the
// relayed fetch path, so callers stay transport-agnostic.
type UpstreamResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// OK reports whether the upstream call succeeded.
func (r *UpstreamResponse) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// CachedResponse is one stored edge cache entry. Age is derived from StoredAt
// at read time and never persisted.
type CachedResponse struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	StoredAt    time.Time `json:"stored_at"`
}

// Age returns elapsed whole seconds since the entry was stored.
func (c *CachedResponse) Age(now time.Time) int {
	if c == nil || c.StoredAt.IsZero() {
		return 0
	}
	age := int(now.Sub(c.StoredAt).Seconds())
	if age < 0 {
		return 0
	}
	return age
}
