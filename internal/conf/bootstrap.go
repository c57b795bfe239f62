package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with CASTGATE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Commonly overridden environment variables:
//   - UPSTREAM_BASE_URL or CASTGATE_UPSTREAM_BASE_URL: directory API origin (required)
//   - MYSQL_DSN or CASTGATE_DATA_DATABASE_SOURCE: analytics database DSN (optional)
//   - CASTGATE_DATA_REDIS_ADDR: edge cache Redis address (optional)
//   - CASTGATE_UPSTREAM_RELAY_ADDR: relay sidecar address (optional)
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with CASTGATE_ prefix
	v.SetEnvPrefix("CASTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without CASTGATE_ prefix) for
	// compatibility with common deployment tooling.
	_ = v.BindEnv("upstream.base_url", "UPSTREAM_BASE_URL", "CASTGATE_UPSTREAM_BASE_URL")
	_ = v.BindEnv("upstream.relay_addr", "UPSTREAM_RELAY_ADDR", "CASTGATE_UPSTREAM_RELAY_ADDR")
	_ = v.BindEnv("upstream.proxy_url", "UPSTREAM_PROXY_URL", "CASTGATE_UPSTREAM_PROXY_URL")
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "CASTGATE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "CASTGATE_DATA_REDIS_ADDR")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Upstream: &Upstream{
			BaseUrl:      v.GetString("upstream.base_url"),
			RelayAddr:    v.GetString("upstream.relay_addr"),
			ProxyUrl:     v.GetString("upstream.proxy_url"),
			UserAgent:    v.GetString("upstream.user_agent"),
			Timeout:      durationpb.New(v.GetDuration("upstream.timeout")),
			MaxBodyBytes: v.GetInt64("upstream.max_body_bytes"),
		},
		Cache: &Cache{
			Search:    cacheClass(v, "cache.search"),
			Directory: cacheClass(v, "cache.directory"),
			Lookup:    cacheClass(v, "cache.lookup"),
			Schema:    cacheClass(v, "cache.schema"),
		},
		Breaker: &Breaker{
			FailureThreshold: v.GetInt32("breaker.failure_threshold"),
			RecoveryWindow:   durationpb.New(v.GetDuration("breaker.recovery_window")),
		},
		Warmer: &Warmer{
			Enabled:   v.GetBool("warmer.enabled"),
			Spec:      v.GetString("warmer.spec"),
			Countries: v.GetStringSlice("warmer.countries"),
			Limit:     v.GetInt32("warmer.limit"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	// Validate required fields
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// cacheClass reads one resource-class freshness policy from viper.
func cacheClass(v *viper.Viper, prefix string) *Cache_Class {
	return &Cache_Class{
		Ttl:      durationpb.New(v.GetDuration(prefix + ".ttl")),
		StaleFor: durationpb.New(v.GetDuration(prefix + ".stale_for")),
	}
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is optional; analytics export
	// is disabled when it is empty.

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Upstream defaults
	v.SetDefault("upstream.base_url", "https://itunes.apple.com")
	v.SetDefault("upstream.user_agent", "CastGate/1.0")
	v.SetDefault("upstream.timeout", 15*time.Second)
	v.SetDefault("upstream.max_body_bytes", int64(4<<20)) // 4 MiB

	// Freshness policy defaults per resource class
	v.SetDefault("cache.search.ttl", time.Hour)
	v.SetDefault("cache.search.stale_for", 24*time.Hour)
	v.SetDefault("cache.directory.ttl", 30*time.Minute)
	v.SetDefault("cache.directory.stale_for", 24*time.Hour)
	v.SetDefault("cache.lookup.ttl", 6*time.Hour)
	v.SetDefault("cache.lookup.stale_for", 72*time.Hour)
	v.SetDefault("cache.schema.ttl", 24*time.Hour)
	v.SetDefault("cache.schema.stale_for", time.Duration(0))

	// Circuit breaker defaults
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_window", 30*time.Second)

	// Cache warmer defaults
	v.SetDefault("warmer.enabled", false)
	v.SetDefault("warmer.spec", "@every 15m")
	v.SetDefault("warmer.countries", []string{"us"})
	v.SetDefault("warmer.limit", 50)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Upstream == nil || bc.Upstream.BaseUrl == "" {
		missingFields = append(missingFields, "upstream.base_url (UPSTREAM_BASE_URL)")
	}

	if bc.Breaker != nil && bc.Breaker.FailureThreshold <= 0 {
		missingFields = append(missingFields, "breaker.failure_threshold (must be positive)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
