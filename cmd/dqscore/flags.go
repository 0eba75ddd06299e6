package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/guillermoBallester/dqscore/internal/config"
	"github.com/spf13/pflag"
)

// registerFlags adds every config flag to fs. Defaults are zero values; the
// real defaults live in config and only flags the user set are applied.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level: debug, info, warn, error (env: LOG_LEVEL)")
	fs.Int("reference-year", 0, "year used as \"now\" by the timeliness check (env: REFERENCE_YEAR)")
	fs.Duration("analyzer-timeout", 0, "per-dimension time budget, 0 for none (env: ANALYZER_TIMEOUT)")
	fs.Int("preview-rows", 0, "rows included in the preview (env: PREVIEW_ROWS)")
	fs.String("report-dir", "", "directory for saved reports (env: REPORT_DIR)")
	fs.Bool("no-save", false, "do not save reports to disk (env: SAVE_REPORTS=false)")
	fs.String("policy-file", "", "YAML preview masking policy (env: POLICY_FILE)")
	fs.String("audit-file", "", "append an NDJSON audit line per assessment (env: AUDIT_FILE)")
	fs.String("http-addr", "", "listen address for serve (env: HTTP_ADDR)")
	fs.String("http-bearer-token", "", "bearer token required by /evaluate and /mcp (env: HTTP_BEARER_TOKEN)")
	fs.StringSlice("http-allowed-origins", nil, "origins allowed to call the HTTP API from a browser (env: HTTP_ALLOWED_ORIGINS)")
	fs.Int64("max-upload-bytes", 0, "upload size limit (env: MAX_UPLOAD_BYTES)")
	fs.String("database-url", "", "PostgreSQL connection string for SQL sources (env: DATABASE_URL)")
	fs.Int("max-rows", 0, "row limit for SQL sources (env: MAX_ROWS)")
	fs.Duration("query-timeout", 0, "statement timeout for SQL sources (env: QUERY_TIMEOUT)")
	fs.Int32("pool-max-conns", 0, "maximum pool connections (env: POOL_MAX_CONNS)")
	fs.Int32("pool-min-conns", 0, "minimum pool connections (env: POOL_MIN_CONNS)")
	fs.Duration("pool-max-conn-lifetime", 0, "maximum connection lifetime (env: POOL_MAX_CONN_LIFETIME)")
	fs.Bool("otel", false, "enable OpenTelemetry tracing and metrics (env: OTEL_ENABLED)")
}

// overridesFromFlags collects the flags the user actually set.
func overridesFromFlags(fs *pflag.FlagSet) (config.Overrides, error) {
	var o config.Overrides
	var err error

	str := func(name string) *string {
		if err != nil || !fs.Changed(name) {
			return nil
		}
		var v string
		v, err = fs.GetString(name)
		return &v
	}
	integer := func(name string) *int {
		if err != nil || !fs.Changed(name) {
			return nil
		}
		var v int
		v, err = fs.GetInt(name)
		return &v
	}
	int32Flag := func(name string) *int32 {
		if err != nil || !fs.Changed(name) {
			return nil
		}
		var v int32
		v, err = fs.GetInt32(name)
		return &v
	}
	int64Flag := func(name string) *int64 {
		if err != nil || !fs.Changed(name) {
			return nil
		}
		var v int64
		v, err = fs.GetInt64(name)
		return &v
	}

	o.LogLevel = str("log-level")
	o.ReferenceYear = integer("reference-year")
	o.PreviewRows = integer("preview-rows")
	o.ReportDir = str("report-dir")
	o.PolicyFile = str("policy-file")
	o.AuditFile = str("audit-file")
	o.HTTPAddr = str("http-addr")
	o.HTTPBearerToken = str("http-bearer-token")
	o.MaxUploadBytes = int64Flag("max-upload-bytes")
	o.DatabaseURL = str("database-url")
	o.MaxRows = integer("max-rows")
	o.PoolMaxConns = int32Flag("pool-max-conns")
	o.PoolMinConns = int32Flag("pool-min-conns")
	if err != nil {
		return config.Overrides{}, err
	}

	for name, dst := range map[string]**time.Duration{
		"analyzer-timeout":       &o.AnalyzerTimeout,
		"query-timeout":          &o.QueryTimeout,
		"pool-max-conn-lifetime": &o.PoolMaxConnLifetime,
	} {
		if !fs.Changed(name) {
			continue
		}
		d, err := fs.GetDuration(name)
		if err != nil {
			return config.Overrides{}, err
		}
		*dst = &d
	}

	if fs.Changed("http-allowed-origins") {
		if o.HTTPAllowedOrigins, err = fs.GetStringSlice("http-allowed-origins"); err != nil {
			return config.Overrides{}, err
		}
	}
	if o.NoSave, err = fs.GetBool("no-save"); err != nil {
		return config.Overrides{}, err
	}
	if o.OTelEnabled, err = fs.GetBool("otel"); err != nil {
		return config.Overrides{}, err
	}
	return o, nil
}

// parseFlags parses args against a fresh flag set.
func parseFlags(args []string) (config.Overrides, error) {
	fs := pflag.NewFlagSet("dqscore", pflag.ContinueOnError)
	fs.Usage = func() {}
	registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, fmt.Errorf("parsing flags: %w", err)
	}
	return overridesFromFlags(fs)
}

// redactDSN hides the password in a connection URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
