// Package config holds the runtime configuration surface. Values come from
// environment variables with flag overrides; required keys are validated
// lazily when the component that needs them is constructed, so an unused
// provider's missing credentials never block startup.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"tokenguard/internal/domain"
)

// Defaults.
const (
	DefaultCacheTTL    = 90 * time.Second
	DefaultBatchSize   = 50
	DefaultMetricsAddr = ":9091"
	DefaultListenAddr  = ":8080"
	DefaultLogLevel    = "info"
)

// Config is the full configuration surface.
type Config struct {
	Provider         string // "rpc" or "graph"
	RPCEndpoint      string
	GraphEndpoint    string
	GraphAccessToken string
	FactoryAddress   string
	CacheTTL         time.Duration

	PostgresDSN   string
	ClickhouseDSN string // optional analytics archive
	UseMemory     bool

	BatchSize   int
	Interval    time.Duration // 0 means a single run
	MetricsAddr string
	ListenAddr  string
	LogLevel    string
}

// FromEnv builds a Config from environment variables.
func FromEnv() *Config {
	return &Config{
		Provider:         envOr("TOKENGUARD_PROVIDER", string(domain.ProviderRPC)),
		RPCEndpoint:      os.Getenv("TOKENGUARD_RPC_ENDPOINT"),
		GraphEndpoint:    os.Getenv("TOKENGUARD_GRAPH_ENDPOINT"),
		GraphAccessToken: os.Getenv("TOKENGUARD_GRAPH_ACCESS_TOKEN"),
		FactoryAddress:   os.Getenv("TOKENGUARD_FACTORY_ADDRESS"),
		CacheTTL:         DefaultCacheTTL,
		PostgresDSN:      os.Getenv("TOKENGUARD_POSTGRES_DSN"),
		ClickhouseDSN:    os.Getenv("TOKENGUARD_CLICKHOUSE_DSN"),
		BatchSize:        DefaultBatchSize,
		MetricsAddr:      DefaultMetricsAddr,
		ListenAddr:       DefaultListenAddr,
		LogLevel:         envOr("TOKENGUARD_LOG_LEVEL", DefaultLogLevel),
	}
}

// BindFlags registers flag overrides on the given FlagSet.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Provider, "provider", c.Provider, "chain data provider: rpc or graph")
	fs.StringVar(&c.RPCEndpoint, "rpc-endpoint", c.RPCEndpoint, "JSON-RPC endpoint URL")
	fs.StringVar(&c.GraphEndpoint, "graph-endpoint", c.GraphEndpoint, "GraphQL endpoint URL")
	fs.StringVar(&c.GraphAccessToken, "graph-token", c.GraphAccessToken, "GraphQL access token")
	fs.StringVar(&c.FactoryAddress, "factory", c.FactoryAddress, "token factory contract address")
	fs.DurationVar(&c.CacheTTL, "cache-ttl", c.CacheTTL, "provider cache TTL")
	fs.StringVar(&c.PostgresDSN, "postgres-dsn", c.PostgresDSN, "Postgres connection string")
	fs.StringVar(&c.ClickhouseDSN, "clickhouse-dsn", c.ClickhouseDSN, "ClickHouse connection string (optional)")
	fs.BoolVar(&c.UseMemory, "use-memory", c.UseMemory, "use in-memory stores instead of Postgres")
	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "tokens fetched per analysis batch")
	fs.DurationVar(&c.Interval, "interval", c.Interval, "run periodically at this interval (0 = single run)")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "metrics listen address")
	fs.StringVar(&c.ListenAddr, "listen-addr", c.ListenAddr, "API listen address")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level")
}

// MissingConfigError names every required key absent for the requested
// operation.
type MissingConfigError struct {
	Keys []string
}

func (e *MissingConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// ProviderKind returns the validated provider selection.
func (c *Config) ProviderKind() (domain.ProviderKind, error) {
	kind := domain.ProviderKind(strings.ToLower(strings.TrimSpace(c.Provider)))
	if !kind.IsValid() {
		return "", fmt.Errorf("unknown provider %q: want %q or %q",
			c.Provider, domain.ProviderRPC, domain.ProviderGraph)
	}
	return kind, nil
}

// ValidateProvider checks the keys required by the selected provider.
func (c *Config) ValidateProvider() error {
	kind, err := c.ProviderKind()
	if err != nil {
		return err
	}

	var missing []string
	switch kind {
	case domain.ProviderRPC:
		if c.RPCEndpoint == "" {
			missing = append(missing, "TOKENGUARD_RPC_ENDPOINT")
		}
	case domain.ProviderGraph:
		if c.GraphEndpoint == "" {
			missing = append(missing, "TOKENGUARD_GRAPH_ENDPOINT")
		}
		if c.GraphAccessToken == "" {
			missing = append(missing, "TOKENGUARD_GRAPH_ACCESS_TOKEN")
		}
	}
	if c.FactoryAddress == "" {
		missing = append(missing, "TOKENGUARD_FACTORY_ADDRESS")
	}

	if len(missing) > 0 {
		return &MissingConfigError{Keys: missing}
	}
	return nil
}

// ValidateStorage checks the keys required by the persistence layer.
func (c *Config) ValidateStorage() error {
	if c.UseMemory {
		return nil
	}
	if c.PostgresDSN == "" {
		return &MissingConfigError{Keys: []string{"TOKENGUARD_POSTGRES_DSN"}}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
