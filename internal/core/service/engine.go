package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/guillermoBallester/dqscore/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Clock returns the current time.
type Clock func() time.Time

// EngineConfig holds Engine settings.
type EngineConfig struct {
	// ReferenceYear pins the timeliness "current year". Zero means the clock's year.
	ReferenceYear int
	// AnalyzerTimeout bounds each analyzer. A timed-out dimension is
	// reported as inapplicable. Zero disables the budget.
	AnalyzerTimeout time.Duration
}

// Engine runs the dimension analyzers concurrently and aggregates them.
type Engine struct {
	cfg    EngineConfig
	clock  Clock
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation

	analyzers []analyzer
}

func NewEngine(cfg EngineConfig, clock Clock, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &Engine{cfg: cfg, clock: clock, logger: logger, tracer: tracer, inst: inst, analyzers: defaultAnalyzers}
}

// CurrentYear is the year used for staleness checks.
func (e *Engine) CurrentYear() int {
	if e.cfg.ReferenceYear != 0 {
		return e.cfg.ReferenceYear
	}
	return e.clock().Year()
}

// analyzer computes one dimension and returns a function that stores the
// result. Results are stored after all analyzers finish so no two goroutines
// write the same Results value.
type analyzer struct {
	dim domain.Dimension
	run func(t *domain.Table, year int) func(*domain.Results)
}

var defaultAnalyzers = []analyzer{
	{domain.Completeness, func(t *domain.Table, _ int) func(*domain.Results) {
		r := domain.AssessCompleteness(t)
		return func(rs *domain.Results) { rs.Completeness = &r }
	}},
	{domain.Consistency, func(t *domain.Table, _ int) func(*domain.Results) {
		r := domain.AssessConsistency(t)
		return func(rs *domain.Results) { rs.Consistency = &r }
	}},
	{domain.Uniqueness, func(t *domain.Table, _ int) func(*domain.Results) {
		r := domain.AssessUniqueness(t)
		return func(rs *domain.Results) { rs.Uniqueness = &r }
	}},
	{domain.Validity, func(t *domain.Table, _ int) func(*domain.Results) {
		r := domain.AssessValidity(t)
		return func(rs *domain.Results) { rs.Validity = &r }
	}},
	{domain.Accuracy, func(t *domain.Table, _ int) func(*domain.Results) {
		r := domain.AssessAccuracy(t)
		return func(rs *domain.Results) { rs.Accuracy = &r }
	}},
	{domain.Timeliness, func(t *domain.Table, year int) func(*domain.Results) {
		r := domain.AssessTimeliness(t, year)
		return func(rs *domain.Results) { rs.Timeliness = &r }
	}},
}

// Assess scores t across every dimension. It fails only when ctx is done.
func (e *Engine) Assess(ctx context.Context, t *domain.Table) (domain.Report, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Assess",
		trace.WithAttributes(
			attribute.Int("table.rows", t.Rows()),
			attribute.Int("table.columns", t.Width()),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return domain.Report{}, err
	}

	year := e.CurrentYear()
	appliers := make([]func(*domain.Results), len(e.analyzers))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range e.analyzers {
		g.Go(func() error {
			apply, err := e.runAnalyzer(gctx, a, t, year)
			if err != nil {
				return err
			}
			appliers[i] = apply
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Report{}, err
	}

	var res domain.Results
	for _, apply := range appliers {
		if apply != nil {
			apply(&res)
		}
	}
	report := domain.BuildReport(t, res)
	if report.OverallScore != nil {
		span.SetAttributes(attribute.Float64("dq.overall_score", *report.OverallScore))
	}
	return report, nil
}

// runAnalyzer returns a nil applier when the analyzer exceeds its budget.
// The analyzer itself cannot be interrupted; an abandoned one finishes in
// the background and its result is dropped.
func (e *Engine) runAnalyzer(parent context.Context, a analyzer, t *domain.Table, year int) (func(*domain.Results), error) {
	ctx, span := e.tracer.Start(parent, "Engine.analyze",
		trace.WithAttributes(attribute.String("dq.dimension", string(a.dim))),
	)
	defer span.End()

	if e.cfg.AnalyzerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.AnalyzerTimeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan func(*domain.Results), 1)
	go func() { done <- a.run(t, year) }()

	select {
	case apply := <-done:
		e.inst.RecordAnalyzerDuration(ctx, string(a.dim), float64(time.Since(start).Milliseconds()))
		return apply, nil
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		e.logger.WarnContext(ctx, "analyzer timed out, dimension marked inapplicable",
			slog.String("dimension", string(a.dim)),
			slog.Duration("budget", e.cfg.AnalyzerTimeout),
		)
		span.SetAttributes(attribute.Bool("dq.timed_out", true))
		return nil, nil
	}
}
