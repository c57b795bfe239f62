package biz

import (
	"context"
	"time"

	"castgate/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// FreshnessPolicy is one resource class's cache policy. Entries younger than
// TTL are fresh; entries older than TTL but within TTL+StaleFor are served
// stale while a background revalidation runs; older entries count as absent.
type FreshnessPolicy struct {
	TTL      time.Duration
	StaleFor time.Duration
}

// FetchOutcome is the result of one orchestrated fetch. It is produced once
// per call and never shared across requests.
type FetchOutcome struct {
	Status      int
	ContentType string
	Body        []byte
	// CacheHit reports whether the edge cache served the response.
	CacheHit bool
	// Age is the served entry's age in whole seconds; zero for misses.
	Age int
}

// TaskRunner schedules work that may outlive the response but not the
// process. A nil runner degrades scheduled work to synchronous execution.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context))
}

// FetcherUsecase is the resilient fetch orchestrator: cache-first lookup with
// stale-while-revalidate, circuit-breaker-aware fallback to stale data, and
// error classification. One instance serves all resource classes; the policy
// is passed per call.
type FetcherUsecase struct {
	cache     EdgeCache
	breaker   *CircuitBreaker
	transport UpstreamTransport
	tasks     TaskRunner
	logger    *log.Helper
	now       func() time.Time // injectable for tests
}

// NewFetcherUsecase creates the orchestrator.
func NewFetcherUsecase(
	cache EdgeCache,
	breaker *CircuitBreaker,
	transport UpstreamTransport,
	tasks TaskRunner,
	logger log.Logger,
) *FetcherUsecase {
	return &FetcherUsecase{
		cache:     cache,
		breaker:   breaker,
		transport: transport,
		tasks:     tasks,
		logger:    log.NewHelper(logger),
		now:       time.Now,
	}
}

// Fetch resolves url under the given freshness policy.
//
// Order is strict within one call: circuit check, cache lookup, upstream
// call, cache store. Concurrent calls for the same url may race and duplicate
// the upstream fetch; that is tolerated since these are idempotent reads.
func (f *FetcherUsecase) Fetch(ctx context.Context, url string, p FreshnessPolicy) (*FetchOutcome, error) {
	// Known-bad upstream: availability wins over freshness. Serve whatever
	// the cache still holds, however stale, and never touch the transport.
	if f.breaker.IsOpen() {
		if entry, ok := f.cache.Lookup(ctx, url); ok {
			f.logger.Warnw("circuit open, serving cached entry in degraded mode",
				"url", url,
				"age_seconds", entry.Age(f.now()))
			return outcomeFromEntry(entry, f.now()), nil
		}
		f.logger.Errorw("circuit open and no cached fallback", "url", url)
		return nil, NewServiceUnavailableError()
	}

	if entry, ok := f.cache.Lookup(ctx, url); ok {
		age := time.Duration(entry.Age(f.now())) * time.Second
		switch {
		case age <= p.TTL:
			return outcomeFromEntry(entry, f.now()), nil
		case age <= p.TTL+p.StaleFor:
			// Stale-while-revalidate: answer now, refresh out of band.
			f.schedule("revalidate", func(taskCtx context.Context) {
				f.revalidate(taskCtx, url, p)
			})
			return outcomeFromEntry(entry, f.now()), nil
		}
		// Beyond the staleness tolerance: treat as a miss.
	}

	return f.fetchFromUpstream(ctx, url, p)
}

// fetchFromUpstream performs the transport call, moves the breaker, and
// stores success responses. Every failure path records a breaker failure.
func (f *FetcherUsecase) fetchFromUpstream(ctx context.Context, url string, p FreshnessPolicy) (*FetchOutcome, error) {
	resp, err := f.transport.Fetch(ctx, url)
	if err != nil {
		f.breaker.RecordFailure()
		f.logger.Errorw("upstream transport error",
			"url", url,
			"error", err,
			"breaker_failures", f.breaker.Failures())
		return nil, NewTransportError(err)
	}

	if !resp.OK() {
		f.breaker.RecordFailure()
		f.logger.Errorw("upstream returned failure status",
			"url", url,
			"status", resp.Status,
			"breaker_failures", f.breaker.Failures())
		return nil, NewUpstreamStatusError(resp.Status)
	}

	f.breaker.RecordSuccess()

	entry := &model.CachedResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
		StoredAt:    f.now(),
	}
	// Fire-and-forget: the response must not wait on the cache write.
	f.schedule("cache-store", func(taskCtx context.Context) {
		f.cache.Store(taskCtx, url, entry, p.TTL, p.StaleFor)
	})

	return &FetchOutcome{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
		CacheHit:    false,
	}, nil
}

// revalidate re-fetches url and overwrites the cache entry on success. On
// failure the stale entry is left untouched so reads keep serving it until it
// exceeds the staleness tolerance. Safe to run concurrently for the same key:
// the overwrite is a single store, last write wins.
func (f *FetcherUsecase) revalidate(ctx context.Context, url string, p FreshnessPolicy) {
	resp, err := f.transport.Fetch(ctx, url)
	if err != nil {
		f.breaker.RecordFailure()
		f.logger.Warnw("background revalidation transport error", "url", url, "error", err)
		return
	}
	if !resp.OK() {
		f.breaker.RecordFailure()
		f.logger.Warnw("background revalidation failed status", "url", url, "status", resp.Status)
		return
	}

	f.breaker.RecordSuccess()
	f.cache.Store(ctx, url, &model.CachedResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Body:        resp.Body,
		StoredAt:    f.now(),
	}, p.TTL, p.StaleFor)

	f.logger.Debugw("background revalidation refreshed entry", "url", url)
}

// Warm refreshes url unconditionally through the normal failure accounting.
// Used by the cache warmer cron.
func (f *FetcherUsecase) Warm(ctx context.Context, url string, p FreshnessPolicy) {
	f.revalidate(ctx, url, p)
}

// schedule hands fn to the task runner, or runs it inline when no runner is
// configured (slower but correct fallback).
func (f *FetcherUsecase) schedule(name string, fn func(ctx context.Context)) {
	if f.tasks != nil {
		f.tasks.Go(name, fn)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fn(ctx)
}

func outcomeFromEntry(entry *model.CachedResponse, now time.Time) *FetchOutcome {
	return &FetchOutcome{
		Status:      entry.Status,
		ContentType: entry.ContentType,
		Body:        entry.Body,
		CacheHit:    true,
		Age:         entry.Age(now),
	}
}
