package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Logging.
	LogLevel slog.Level

	// Scoring engine.
	ReferenceYear   int           // 0 means the current wall-clock year
	AnalyzerTimeout time.Duration // 0 means no per-analyzer budget

	// Assessment output.
	PreviewRows int
	ReportDir   string
	SaveReports bool
	PolicyFile  string // optional path to preview masking policy YAML
	AuditFile   string // optional path to NDJSON assessment audit log

	// Transport the process serves: "cli" (default), "stdio" or "http".
	// Set by the command, not by env.
	Transport string

	// HTTP transport.
	HTTPAddr           string
	HTTPBearerToken    string   // required when transport is "http"
	HTTPAllowedOrigins []string // CORS origins; empty allows no cross-origin access
	MaxUploadBytes     int64

	// Query source. Empty DatabaseURL disables it.
	DatabaseURL  string
	MaxRows      int
	QueryTimeout time.Duration

	// Connection pool.
	PoolMaxConns        int32         // default: 5
	PoolMinConns        int32         // default: 1
	PoolMaxConnLifetime time.Duration // default: 30m

	// Observability.
	OTelEnabled bool // enable OpenTelemetry tracing and metrics
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	LogLevel           *string
	ReferenceYear      *int
	AnalyzerTimeout    *time.Duration
	PreviewRows        *int
	ReportDir          *string
	PolicyFile         *string
	AuditFile          *string
	Transport          *string
	HTTPAddr           *string
	HTTPBearerToken    *string
	HTTPAllowedOrigins []string
	MaxUploadBytes     *int64
	DatabaseURL        *string
	MaxRows            *int
	QueryTimeout       *time.Duration
	NoSave             bool
	OTelEnabled        bool

	// Connection pool overrides.
	PoolMaxConns        *int32
	PoolMinConns        *int32
	PoolMaxConnLifetime *time.Duration
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
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

// defaults returns a Config populated with default values.
func defaults() *Config {
	return &Config{
		LogLevel:            slog.LevelInfo,
		PreviewRows:         20,
		ReportDir:           "reports",
		SaveReports:         true,
		Transport:           "cli",
		HTTPAddr:            "127.0.0.1:5001",
		MaxUploadBytes:      16 << 20,
		MaxRows:             100_000,
		QueryTimeout:        30 * time.Second,
		PoolMaxConns:        5,
		PoolMinConns:        1,
		PoolMaxConnLifetime: 30 * time.Minute,
	}
}

// loadEnvVars reads all supported environment variables into cfg.
func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("REFERENCE_YEAR"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid REFERENCE_YEAR value %q: must be a non-negative integer", v)
		}
		cfg.ReferenceYear = n
	}
	if v := os.Getenv("ANALYZER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ANALYZER_TIMEOUT value %q: %w", v, err)
		}
		cfg.AnalyzerTimeout = d
	}

	if v := os.Getenv("PREVIEW_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid PREVIEW_ROWS value %q: must be a non-negative integer", v)
		}
		cfg.PreviewRows = n
	}
	if v := os.Getenv("REPORT_DIR"); v != "" {
		cfg.ReportDir = v
	}
	if v := os.Getenv("SAVE_REPORTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SAVE_REPORTS value %q: %w", v, err)
		}
		cfg.SaveReports = b
	}
	cfg.PolicyFile = os.Getenv("POLICY_FILE")
	cfg.AuditFile = os.Getenv("AUDIT_FILE")

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.HTTPBearerToken = os.Getenv("HTTP_BEARER_TOKEN")
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTPAllowedOrigins = splitList(v)
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES value %q: must be a positive integer", v)
		}
		cfg.MaxUploadBytes = n
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if v := os.Getenv("MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_ROWS value %q: must be a positive integer", v)
		}
		cfg.MaxRows = n
	}
	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUERY_TIMEOUT value %q: %w", v, err)
		}
		cfg.QueryTimeout = d
	}

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED value %q: %w", v, err)
		}
		cfg.OTelEnabled = b
	}

	return loadPoolEnvVars(cfg)
}

// loadPoolEnvVars reads connection pool environment variables.
func loadPoolEnvVars(cfg *Config) error {
	if v := os.Getenv("POOL_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid POOL_MAX_CONNS value %q: must be a positive integer", v)
		}
		cfg.PoolMaxConns = int32(n)
	}
	if v := os.Getenv("POOL_MIN_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid POOL_MIN_CONNS value %q: must be a non-negative integer", v)
		}
		cfg.PoolMinConns = int32(n)
	}
	if v := os.Getenv("POOL_MAX_CONN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POOL_MAX_CONN_LIFETIME value %q: %w", v, err)
		}
		cfg.PoolMaxConnLifetime = d
	}
	return nil
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
	if o.ReferenceYear != nil {
		if *o.ReferenceYear < 0 {
			return fmt.Errorf("invalid --reference-year value: must be a non-negative integer")
		}
		cfg.ReferenceYear = *o.ReferenceYear
	}
	if o.AnalyzerTimeout != nil {
		cfg.AnalyzerTimeout = *o.AnalyzerTimeout
	}
	if o.PreviewRows != nil {
		if *o.PreviewRows < 0 {
			return fmt.Errorf("invalid --preview-rows value: must be a non-negative integer")
		}
		cfg.PreviewRows = *o.PreviewRows
	}
	if o.ReportDir != nil {
		cfg.ReportDir = *o.ReportDir
	}
	if o.PolicyFile != nil {
		cfg.PolicyFile = *o.PolicyFile
	}
	if o.AuditFile != nil {
		cfg.AuditFile = *o.AuditFile
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAllowedOrigins != nil {
		cfg.HTTPAllowedOrigins = o.HTTPAllowedOrigins
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}
	if o.MaxUploadBytes != nil {
		if *o.MaxUploadBytes <= 0 {
			return fmt.Errorf("invalid --max-upload-bytes value: must be a positive integer")
		}
		cfg.MaxUploadBytes = *o.MaxUploadBytes
	}
	if o.DatabaseURL != nil {
		cfg.DatabaseURL = *o.DatabaseURL
	}
	if o.MaxRows != nil {
		if *o.MaxRows <= 0 {
			return fmt.Errorf("invalid --max-rows value: must be a positive integer")
		}
		cfg.MaxRows = *o.MaxRows
	}
	if o.QueryTimeout != nil {
		cfg.QueryTimeout = *o.QueryTimeout
	}

	if err := applyPoolOverrides(cfg, o); err != nil {
		return err
	}

	cfg.SaveReports = cfg.SaveReports && !o.NoSave
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled

	return nil
}

// applyPoolOverrides applies connection pool CLI flag overrides.
func applyPoolOverrides(cfg *Config, o Overrides) error {
	if o.PoolMaxConns != nil {
		if *o.PoolMaxConns <= 0 {
			return fmt.Errorf("invalid --pool-max-conns value: must be a positive integer")
		}
		cfg.PoolMaxConns = *o.PoolMaxConns
	}
	if o.PoolMinConns != nil {
		if *o.PoolMinConns < 0 {
			return fmt.Errorf("invalid --pool-min-conns value: must be a non-negative integer")
		}
		cfg.PoolMinConns = *o.PoolMinConns
	}
	if o.PoolMaxConnLifetime != nil {
		cfg.PoolMaxConnLifetime = *o.PoolMaxConnLifetime
	}
	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.AnalyzerTimeout < 0 {
		return fmt.Errorf("ANALYZER_TIMEOUT must not be negative")
	}
	if cfg.SaveReports && cfg.ReportDir == "" {
		return fmt.Errorf("REPORT_DIR must be set when reports are saved (or pass --no-save)")
	}
	switch cfg.Transport {
	case "cli", "stdio", "http":
	default:
		return fmt.Errorf("invalid transport %q: must be \"cli\", \"stdio\" or \"http\"", cfg.Transport)
	}
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when serving over http (set via env var or --http-bearer-token flag)")
	}
	for _, o := range cfg.HTTPAllowedOrigins {
		if o == "*" {
			return fmt.Errorf("HTTP_ALLOWED_ORIGINS must list explicit origins, not \"*\"")
		}
	}
	if cfg.DatabaseURL != "" && cfg.QueryTimeout <= 0 {
		return fmt.Errorf("QUERY_TIMEOUT must be positive when DATABASE_URL is set")
	}
	if cfg.PoolMinConns > cfg.PoolMaxConns {
		return fmt.Errorf("POOL_MIN_CONNS (%d) must not exceed POOL_MAX_CONNS (%d)", cfg.PoolMinConns, cfg.PoolMaxConns)
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
