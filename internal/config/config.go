package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SHEETMATCH"

// Config is the runtime configuration shared by all commands. Pipeline
// definitions live in their own YAML files (see LoadPipeline).
type Config struct {
	// Logging.
	LogLevel slog.Level

	// Categorization.
	Workers          int      // files profiled in parallel
	OutOfScopeSheets []string // sheet names never matched (chart and stats tabs)

	// Audit.
	AuditLog string // path to NDJSON ingest audit log; empty disables it

	// Observability.
	OTelEnabled bool

	// Writers and the query tool.
	DatabaseURL         string // postgres writer and query_records tool
	MongoURI            string // mongo writer
	PoolMaxConns        int32
	PoolMinConns        int32
	PoolMaxConnLifetime time.Duration
	MaxRows             int
	QueryTimeout        time.Duration
}

// env mirrors Config for envconfig. Values are validated after decoding.
type env struct {
	LogLevel            string        `envconfig:"LOG_LEVEL" default:"info"`
	Workers             int           `envconfig:"WORKERS" default:"4"`
	OutOfScopeSheets    []string      `envconfig:"OUT_OF_SCOPE_SHEETS"`
	AuditLog            string        `envconfig:"AUDIT_LOG"`
	OTelEnabled         bool          `envconfig:"OTEL_ENABLED" default:"false"`
	DatabaseURL         string        `envconfig:"DATABASE_URL"`
	MongoURI            string        `envconfig:"MONGO_URI"`
	PoolMaxConns        int32         `envconfig:"POOL_MAX_CONNS" default:"5"`
	PoolMinConns        int32         `envconfig:"POOL_MIN_CONNS" default:"1"`
	PoolMaxConnLifetime time.Duration `envconfig:"POOL_MAX_CONN_LIFETIME" default:"30m"`
	MaxRows             int           `envconfig:"MAX_ROWS" default:"100"`
	QueryTimeout        time.Duration `envconfig:"QUERY_TIMEOUT" default:"10s"`
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	LogLevel         *string
	Workers          *int
	OutOfScopeSheets []string
	AuditLog         *string
	OTelEnabled      bool
	DatabaseURL      *string
	MongoURI         *string
	MaxRows          *int
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	var e env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg, err := fromEnv(e)
	if err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv(e env) (*Config, error) {
	level, err := parseLogLevel(e.LogLevel)
	if err != nil {
		return nil, err
	}
	return &Config{
		LogLevel:            level,
		Workers:             e.Workers,
		OutOfScopeSheets:    trimAll(e.OutOfScopeSheets),
		AuditLog:            e.AuditLog,
		OTelEnabled:         e.OTelEnabled,
		DatabaseURL:         e.DatabaseURL,
		MongoURI:            e.MongoURI,
		PoolMaxConns:        e.PoolMaxConns,
		PoolMinConns:        e.PoolMinConns,
		PoolMaxConnLifetime: e.PoolMaxConnLifetime,
		MaxRows:             e.MaxRows,
		QueryTimeout:        e.QueryTimeout,
	}, nil
}

// applyOverrides applies CLI flag values on top of the env-loaded config.
func applyOverrides(cfg *Config, o Overrides) error {
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.Workers != nil {
		cfg.Workers = *o.Workers
	}
	if len(o.OutOfScopeSheets) > 0 {
		cfg.OutOfScopeSheets = trimAll(o.OutOfScopeSheets)
	}
	if o.AuditLog != nil {
		cfg.AuditLog = *o.AuditLog
	}
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.MongoURI != nil {
		cfg.MongoURI = *o.MongoURI
	}
	if o.MaxRows != nil {
		cfg.MaxRows = *o.MaxRows
	}
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled
	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("invalid %s_WORKERS value %d: must be a positive integer", EnvPrefix, cfg.Workers)
	}
	if cfg.MaxRows <= 0 {
		return fmt.Errorf("invalid %s_MAX_ROWS value %d: must be a positive integer", EnvPrefix, cfg.MaxRows)
	}
	if cfg.PoolMaxConns <= 0 {
		return fmt.Errorf("invalid %s_POOL_MAX_CONNS value %d: must be a positive integer", EnvPrefix, cfg.PoolMaxConns)
	}
	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("%s_POOL_MIN_CONNS (%d) must not exceed %s_POOL_MAX_CONNS (%d)", EnvPrefix, cfg.PoolMinConns, EnvPrefix, cfg.PoolMaxConns)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
