// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"google.golang.org/protobuf/types/known/durationpb"
)

// Bootstrap is the root configuration for the CastGate service.
type Bootstrap struct {
	Server   *Server
	Data     *Data
	Upstream *Upstream
	Cache    *Cache
	Breaker  *Breaker
	Warmer   *Warmer
	Log      *Log
}

// Server holds transport configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP holds HTTP server configuration.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds data layer configuration.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database holds the analytics database configuration.
// Source may be empty, in which case analytics export is disabled.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis holds the edge cache Redis configuration.
// Addr may be empty, in which case the cache degrades to always-miss.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Upstream holds the podcast directory upstream configuration.
type Upstream struct {
	// BaseUrl is the directory API origin, e.g. https://itunes.apple.com
	BaseUrl string
	// RelayAddr, when set, routes every upstream call through the relay
	// sidecar (GET {RelayAddr}?url=<percent-encoded target>).
	RelayAddr string
	// ProxyUrl configures an egress proxy for direct calls
	// (http://, https:// or socks5:// schemes).
	ProxyUrl string
	// UserAgent sent on direct upstream calls.
	UserAgent string
	Timeout   *durationpb.Duration
	// MaxBodyBytes caps upstream response bodies. Zero means the default.
	MaxBodyBytes int64
}

// Cache holds per-resource-class freshness policies.
type Cache struct {
	Search    *Cache_Class
	Directory *Cache_Class
	Lookup    *Cache_Class
	Schema    *Cache_Class
}

// Cache_Class is one resource-class freshness policy: entries younger than
// Ttl are fresh, entries younger than Ttl+StaleFor are served stale while a
// background revalidation runs, older entries are treated as absent.
type Cache_Class struct {
	Ttl      *durationpb.Duration
	StaleFor *durationpb.Duration
}

// Breaker holds circuit breaker tuning.
type Breaker struct {
	// FailureThreshold is the number of failures since the last success
	// that opens the circuit.
	FailureThreshold int32
	// RecoveryWindow is how long the circuit stays open before admitting
	// a single probe call.
	RecoveryWindow *durationpb.Duration
}

// Warmer holds the top-chart cache warmer configuration.
type Warmer struct {
	Enabled bool
	// Spec is a robfig/cron schedule expression, e.g. "@every 15m".
	Spec string
	// Countries to keep warm top charts for.
	Countries []string
	// Limit is the chart size requested per country.
	Limit int32
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
