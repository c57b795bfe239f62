package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"castgate/internal/conf"
	"castgate/internal/model"
	"castgate/pkg/httpclient"

	"github.com/go-kratos/kratos/v2/log"
)

// defaultMaxBodyBytes caps upstream bodies when no limit is configured.
const defaultMaxBodyBytes = int64(4 << 20)

// HTTPUpstream implements biz.UpstreamTransport. It fetches either directly
// from the origin (optionally through an egress proxy) or through the relay
// sidecar, which receives the true target percent-encoded in a query
// parameter and streams back status, content type and body unmodified.
type HTTPUpstream struct {
	client    *http.Client
	relayAddr string
	userAgent string
	maxBody   int64
	logger    *log.Helper
}

// NewHTTPUpstream creates the upstream transport from configuration.
func NewHTTPUpstream(c *conf.Upstream, logger log.Logger) (*HTTPUpstream, error) {
	helper := log.NewHelper(logger)

	if c == nil {
		return nil, fmt.Errorf("upstream configuration is required")
	}

	proxyURL := c.ProxyUrl
	if c.RelayAddr != "" && proxyURL != "" {
		// The relay is itself the indirection layer; chain no proxy under it.
		helper.Warn("both relay_addr and proxy_url configured, proxy_url is ignored in relay mode")
		proxyURL = ""
	}

	client, err := httpclient.New(proxyURL, c.Timeout.AsDuration())
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream HTTP client: %w", err)
	}

	maxBody := c.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	switch {
	case c.RelayAddr != "":
		helper.Infof("upstream transport in relay mode via %s", c.RelayAddr)
	case proxyURL != "":
		helper.Infof("upstream transport in direct mode via proxy %s", httpclient.MaskCredentials(proxyURL))
	default:
		helper.Info("upstream transport in direct mode")
	}

	return &HTTPUpstream{
		client:    client,
		relayAddr: c.RelayAddr,
		userAgent: c.UserAgent,
		maxBody:   maxBody,
		logger:    helper,
	}, nil
}

// Fetch performs one upstream GET and returns the unified response shape.
// A non-2xx status is not an error here; classification is the orchestrator's
// job.
func (u *HTTPUpstream) Fetch(ctx context.Context, target string) (*model.UpstreamResponse, error) {
	requestURL := target
	if u.relayAddr != "" {
		requestURL = u.relayAddr + "?url=" + url.QueryEscape(target)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	if u.userAgent != "" {
		req.Header.Set("User-Agent", u.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, u.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}

	return &model.UpstreamResponse{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
