package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"castgate/internal/biz"
	"castgate/internal/conf"
	"castgate/internal/model"
	pkglog "castgate/pkg/log"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// GatewayService handles the public API surface: it validates input, builds
// canonical upstream URLs, delegates to the resilient fetch orchestrator, and
// schedules the post-response side effects (analytics export, trend counts).
type GatewayService struct {
	fetcher   *biz.FetcherUsecase
	analytics biz.AnalyticsSink
	trends    biz.TrendRecorder
	tasks     biz.TaskRunner
	schema    *SchemaPublisher
	baseURL   string
	policies  gatewayPolicies
	logger    *log.Helper
}

// gatewayPolicies holds the per-resource-class freshness policies.
type gatewayPolicies struct {
	search    biz.FreshnessPolicy
	directory biz.FreshnessPolicy
	lookup    biz.FreshnessPolicy
	schema    biz.FreshnessPolicy
}

// NewGatewayService creates the gateway request handler.
func NewGatewayService(
	fetcher *biz.FetcherUsecase,
	analytics biz.AnalyticsSink,
	trends biz.TrendRecorder,
	tasks biz.TaskRunner,
	schema *SchemaPublisher,
	upstream *conf.Upstream,
	cache *conf.Cache,
	logger log.Logger,
) *GatewayService {
	return &GatewayService{
		fetcher:   fetcher,
		analytics: analytics,
		trends:    trends,
		tasks:     tasks,
		schema:    schema,
		baseURL:   upstream.BaseUrl,
		policies: gatewayPolicies{
			search:    policyFrom(cache.Search, time.Hour, 24*time.Hour),
			directory: policyFrom(cache.Directory, 30*time.Minute, 24*time.Hour),
			lookup:    policyFrom(cache.Lookup, 6*time.Hour, 72*time.Hour),
			schema:    policyFrom(cache.Schema, 24*time.Hour, 0),
		},
		logger: log.NewHelper(logger),
	}
}

// policyFrom converts a config cache class, falling back to defaults when
// the class is absent.
func policyFrom(c *conf.Cache_Class, defTTL, defStale time.Duration) biz.FreshnessPolicy {
	p := biz.FreshnessPolicy{TTL: defTTL, StaleFor: defStale}
	if c == nil {
		return p
	}
	if d := c.Ttl.AsDuration(); d > 0 {
		p.TTL = d
	}
	if c.StaleFor != nil {
		p.StaleFor = c.StaleFor.AsDuration()
	}
	return p
}

// DirectoryPolicy exposes the directory class freshness policy. The cache
// warmer uses it so warmed entries age exactly like request-driven ones.
func DirectoryPolicy(c *conf.Cache) biz.FreshnessPolicy {
	if c == nil {
		return biz.FreshnessPolicy{TTL: 30 * time.Minute, StaleFor: 24 * time.Hour}
	}
	return policyFrom(c.Directory, 30*time.Minute, 24*time.Hour)
}

// RegisterRoutes attaches the gateway handlers to the HTTP server.
func (s *GatewayService) RegisterRoutes(srv *khttp.Server) {
	r := srv.Route("/api/v1")
	r.GET("/search", s.Search)
	r.GET("/lookup", s.Lookup)
	r.GET("/top", s.Top)
	r.GET("/genres", s.Genres)
	r.GET("/schema", s.Schema)

	srv.Route("/").GET("/healthz", s.Health)
}

// Search proxies a directory search under the search cache class.
func (s *GatewayService) Search(ctx khttp.Context) error {
	q := ctx.Request().URL.Query()

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		term, err := validateTerm(q.Get("term"))
		if err != nil {
			return nil, err
		}
		country, err := validateCountry(q.Get("country"))
		if err != nil {
			return nil, err
		}
		limit, err := validateLimit(q.Get("limit"), defaultSearchLimit)
		if err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("media", "podcast")
		params.Set("term", term)
		params.Set("country", country)
		params.Set("limit", strconv.Itoa(limit))
		// Encode sorts keys, which keeps the cache identity canonical.
		target := s.baseURL + "/search?" + params.Encode()

		outcome, err := s.fetcher.Fetch(c, target, s.policies.search)
		s.recordEvent(c, "search", country, outcome, err)
		if err != nil {
			return nil, err
		}

		s.scheduleTrend(term)
		return outcome, nil
	})

	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return s.writeOutcome(ctx, out.(*biz.FetchOutcome), s.policies.search)
}

// Lookup proxies a per-item detail fetch under the lookup cache class.
func (s *GatewayService) Lookup(ctx khttp.Context) error {
	q := ctx.Request().URL.Query()

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		id, err := validateID(q.Get("id"))
		if err != nil {
			return nil, err
		}

		params := url.Values{}
		params.Set("id", id)
		params.Set("entity", "podcast")
		target := s.baseURL + "/lookup?" + params.Encode()

		outcome, err := s.fetcher.Fetch(c, target, s.policies.lookup)
		s.recordEvent(c, "lookup", "", outcome, err)
		if err != nil {
			return nil, err
		}
		return outcome, nil
	})

	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return s.writeOutcome(ctx, out.(*biz.FetchOutcome), s.policies.lookup)
}

// Top proxies a top-chart listing under the directory cache class.
func (s *GatewayService) Top(ctx khttp.Context) error {
	q := ctx.Request().URL.Query()

	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		country, err := validateCountry(q.Get("country"))
		if err != nil {
			return nil, err
		}
		limit, err := validateLimit(q.Get("limit"), defaultChartLimit)
		if err != nil {
			return nil, err
		}
		genre, err := validateGenre(q.Get("genre"))
		if err != nil {
			return nil, err
		}

		target := ChartURL(s.baseURL, country, genre, limit)

		outcome, err := s.fetcher.Fetch(c, target, s.policies.directory)
		s.recordEvent(c, "top", country, outcome, err)
		if err != nil {
			return nil, err
		}
		return outcome, nil
	})

	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return s.writeOutcome(ctx, out.(*biz.FetchOutcome), s.policies.directory)
}

// Genres serves the static genre table. Local data, no upstream involved.
func (s *GatewayService) Genres(ctx khttp.Context) error {
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		genres := GenreList()
		s.recordLocalEvent(c, "genres", len(genres))
		return genres, nil
	})

	out, err := h(ctx, nil)
	if err != nil {
		return err
	}

	s.setLocalHeaders(ctx)
	return ctx.JSON(200, map[string]interface{}{"genres": out})
}

// Schema serves the descriptive API document.
func (s *GatewayService) Schema(ctx khttp.Context) error {
	h := ctx.Middleware(func(c context.Context, _ interface{}) (interface{}, error) {
		doc := s.schema.Document()
		s.recordLocalEvent(c, "schema", 0)
		return doc, nil
	})

	out, err := h(ctx, nil)
	if err != nil {
		return err
	}

	s.setLocalHeaders(ctx)
	return ctx.Blob(200, "application/json", out.([]byte))
}

// Health is the liveness endpoint.
func (s *GatewayService) Health(ctx khttp.Context) error {
	return ctx.JSON(200, map[string]string{"status": "ok"})
}

// ChartURL builds the directory's top-chart feed URL.
func ChartURL(baseURL, country, genre string, limit int) string {
	target := fmt.Sprintf("%s/%s/rss/toppodcasts/limit=%d", baseURL, country, limit)
	if genre != "" {
		target += "/genre=" + genre
	}
	return target + "/json"
}

// writeOutcome assembles the client response with observability headers.
// Stale hits are indistinguishable from fresh ones except for the Age header.
func (s *GatewayService) writeOutcome(ctx khttp.Context, outcome *biz.FetchOutcome, p biz.FreshnessPolicy) error {
	hdr := ctx.Response().Header()
	if outcome.CacheHit {
		hdr.Set("X-Cache", "HIT")
		hdr.Set("Age", strconv.Itoa(outcome.Age))
	} else {
		hdr.Set("X-Cache", "MISS")
	}
	hdr.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(p.TTL.Seconds())))

	contentType := outcome.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return ctx.Blob(200, contentType, outcome.Body)
}

// setLocalHeaders marks responses served from gateway-local data.
func (s *GatewayService) setLocalHeaders(ctx khttp.Context) {
	hdr := ctx.Response().Header()
	hdr.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(s.policies.schema.TTL.Seconds())))
}

// recordEvent schedules the analytics export for a proxied request. The
// event captures tracing values now; the write happens after the response.
func (s *GatewayService) recordEvent(ctx context.Context, endpoint, country string, outcome *biz.FetchOutcome, fetchErr error) {
	event := &model.RequestEvent{
		Endpoint:   endpoint,
		Status:     200,
		DurationMs: pkglog.GetElapsedTime(ctx),
		Country:    country,
		RequestID:  pkglog.GetRequestID(ctx),
		CreatedAt:  time.Now(),
	}
	if fetchErr != nil {
		event.Status = int(kerrors.FromError(fetchErr).Code)
	} else if outcome != nil {
		event.CacheHit = outcome.CacheHit
		event.ResultCount = resultCount(outcome.Body)
	}

	s.schedule("analytics-export", func(context.Context) {
		s.analytics.Record(event)
	})
}

// recordLocalEvent schedules analytics for endpoints served from local data.
func (s *GatewayService) recordLocalEvent(ctx context.Context, endpoint string, resultCount int) {
	event := &model.RequestEvent{
		Endpoint:    endpoint,
		Status:      200,
		DurationMs:  pkglog.GetElapsedTime(ctx),
		ResultCount: resultCount,
		RequestID:   pkglog.GetRequestID(ctx),
		CreatedAt:   time.Now(),
	}

	s.schedule("analytics-export", func(context.Context) {
		s.analytics.Record(event)
	})
}

// scheduleTrend fires the trend counter increment for a search term.
func (s *GatewayService) scheduleTrend(term string) {
	s.schedule("trend-increment", func(taskCtx context.Context) {
		if err := s.trends.RecordSearch(taskCtx, term); err != nil {
			s.logger.Warnw("failed to record search trend", "error", err)
		}
	})
}

// schedule hands work to the task runner, or runs it inline without one.
func (s *GatewayService) schedule(name string, fn func(ctx context.Context)) {
	if s.tasks != nil {
		s.tasks.Go(name, fn)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fn(ctx)
}

// resultCount extracts the directory's resultCount field when the body is a
// search or lookup payload. Zero when absent or unparseable.
func resultCount(body []byte) int {
	var payload struct {
		ResultCount int `json:"resultCount"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0
	}
	return payload.ResultCount
}
