//go:build ignore
// +build ignore

package main

import (
	"context"

	"castgate/internal/conf"
	pkglog "castgate/pkg/log"
)

// Manual check for log output formats. Run with: go run test_logging.go
func main() {
	logConf := &conf.Log{
		Level:  "debug",
		Format: "console",
		Env:    "development",
	}

	zapLogger, err := pkglog.NewZapLogger(logConf)
	if err != nil {
		panic(err)
	}

	kratosLogger := pkglog.NewKratosAdapter(zapLogger)
	helper := pkglog.NewLogHelper(kratosLogger)

	println("=== log output formats ===\n")

	helper.Startup("CastGate service starting", "version", "1.0.0", "port", 8080)
	helper.Upstream("Directory fetch completed", "url", "https://itunes.apple.com/search", "status", 200, "duration_ms", 320)
	helper.Cache("Edge cache hit", "key", "edge:get:9a0364b9e99b", "age_seconds", 420)
	helper.Breaker("Circuit opened after repeated failures", "failures", 5, "recovery_window", "30s")
	helper.Scheduler("Background revalidation scheduled", "task", "revalidate")
	helper.Request("GET", "/api/v1/search?term=history", 200, 12, "ip", "192.168.1.100")

	ctx := pkglog.WithRequestContext(context.Background(), pkglog.GenerateRequestID())
	helper.RequestWithContext(ctx, "GET", "/api/v1/top?country=us", 200, 1450, "ip", "192.168.1.100")

	println("\n=== done ===")
}
