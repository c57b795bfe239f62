package main

import (
	"context"
	"time"

	"castgate/internal/biz"
	"castgate/internal/conf"
	"castgate/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// newWarmerCron starts the top-chart cache warmer.
// Each pass refreshes the default chart for every configured country so the
// most common requests keep hitting a warm cache even during quiet hours.
// Returns a nil cron when the warmer is disabled.
func newWarmerCron(c *conf.Warmer, upstream *conf.Upstream, cache *conf.Cache, fetcher *biz.FetcherUsecase, logger log.Logger) (*cron.Cron, func()) {
	helper := log.NewHelper(logger)

	if c == nil || !c.Enabled || len(c.Countries) == 0 {
		helper.Info("cache warmer is disabled")
		return nil, func() {}
	}

	spec := c.Spec
	if spec == "" {
		spec = "@every 15m"
	}
	limit := int(c.Limit)
	if limit <= 0 {
		limit = 50
	}
	policy := service.DirectoryPolicy(cache)

	cr := cron.New()
	_, err := cr.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		started := time.Now()
		for _, country := range c.Countries {
			target := service.ChartURL(upstream.BaseUrl, country, "", limit)
			fetcher.Warm(ctx, target, policy)
		}
		helper.Infow(
			"msg", "cache warmer pass completed",
			"countries", len(c.Countries),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
	if err != nil {
		helper.Errorw("msg", "failed to register cache warmer cron job", "error", err, "spec", spec)
		return nil, func() {}
	}

	cr.Start()
	helper.Infow("msg", "cache warmer cron started", "spec", spec, "countries", c.Countries)

	cleanup := func() {
		// Stop returns a context that is done once running jobs finish.
		<-cr.Stop().Done()
	}
	return cr, cleanup
}
