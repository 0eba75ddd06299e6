package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/guillermoBallester/dqscore/internal/adapter/file"
	"github.com/guillermoBallester/dqscore/internal/adapter/policy"
	"github.com/guillermoBallester/dqscore/internal/adapter/postgres"
	"github.com/guillermoBallester/dqscore/internal/audit"
	"github.com/guillermoBallester/dqscore/internal/config"
	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/guillermoBallester/dqscore/internal/core/port"
	"github.com/guillermoBallester/dqscore/internal/core/service"
	"github.com/guillermoBallester/dqscore/internal/reportstore"
	"github.com/guillermoBallester/dqscore/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// app is the wired service plus everything that must be released on exit.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
	svc    *service.AssessmentService

	closers []func(context.Context) error
}

func newLogger(level slog.Level) *slog.Logger {
	// Logs go to stderr; stdout carries results and the MCP stdio transport.
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.tracer, a.inst = telemetry.NoopTracer(), telemetry.NoopInstruments()
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, telemetry.Settings{ServiceName: "dqscore", Version: version})
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.closers = append(a.closers, provider.Shutdown)
		a.tracer, a.inst = provider.Tracer(), telemetry.NewInstruments()
		logger.Info("opentelemetry enabled")
	}

	var masks map[string]domain.MaskType
	if cfg.PolicyFile != "" {
		pol, err := policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("loading policy: %w", err)
		}
		masks = pol.Masks()
		logger.Info("policy loaded", slog.String("file", cfg.PolicyFile), slog.Int("masked_columns", len(masks)))
	}

	var auditor port.AssessmentAuditor = audit.NoopAuditor{}
	if cfg.AuditFile != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditFile)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return fa.Close() })
		auditor = fa
		logger.Info("audit log enabled", slog.String("file", cfg.AuditFile))
	}

	var store port.ReportStore = reportstore.NoopStore{}
	if cfg.SaveReports {
		fs, err := reportstore.NewFileStore(cfg.ReportDir, nil)
		if err != nil {
			return nil, err
		}
		store = fs
	}

	var source port.TableSource
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		source = postgres.NewSource(pool, cfg.MaxRows, cfg.QueryTimeout)
		logger.Info("database pool connected",
			slog.String("db.system", "postgresql"),
			slog.String("database_url", redactDSN(cfg.DatabaseURL)),
		)
	}

	engine := service.NewEngine(service.EngineConfig{
		ReferenceYear:   cfg.ReferenceYear,
		AnalyzerTimeout: cfg.AnalyzerTimeout,
	}, nil, logger, a.tracer, a.inst)

	a.svc = service.NewAssessmentService(
		service.AssessmentConfig{PreviewRows: cfg.PreviewRows, Masks: masks},
		file.NewLoader(logger),
		source,
		domain.NewPgQueryValidator(),
		engine,
		store,
		auditor,
		logger,
		a.tracer,
		a.inst,
	)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown", slog.String("error", err.Error()))
	}
}
