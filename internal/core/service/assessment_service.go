package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/guillermoBallester/dqscore/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type toolNameKey struct{}

// WithToolName returns a context carrying the caller's tool or route name
// for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// Assessment is a quality report together with the data shown alongside it.
type Assessment struct {
	domain.Report
	AssessmentID   string           `json:"assessment_id"`
	PreviewData    []map[string]any `json:"preview_data"`
	PreviewColumns []string         `json:"preview_columns"`
	SavedReport    string           `json:"saved_report,omitempty"`
}

// AssessmentConfig holds AssessmentService settings.
type AssessmentConfig struct {
	PreviewRows int
	// Masks maps preview column names to mask types. nil = no masking.
	Masks map[string]domain.MaskType
}

// AssessmentService orchestrates loading (infrastructure), scoring (engine)
// and report persistence.
type AssessmentService struct {
	cfg       AssessmentConfig
	loader    port.TableLoader
	source    port.TableSource
	validator port.QueryValidator
	engine    *Engine
	store     port.ReportStore
	auditor   port.AssessmentAuditor
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
}

// NewAssessmentService wires the service. source may be nil when no
// database is configured; AssessQuery then fails with ErrSourceUnavailable.
func NewAssessmentService(cfg AssessmentConfig, loader port.TableLoader, source port.TableSource, validator port.QueryValidator, engine *Engine, store port.ReportStore, auditor port.AssessmentAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *AssessmentService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &AssessmentService{
		cfg:       cfg,
		loader:    loader,
		source:    source,
		validator: validator,
		engine:    engine,
		store:     store,
		auditor:   auditor,
		logger:    logger,
		tracer:    tracer,
		inst:      inst,
	}
}

// HasSource reports whether AssessQuery can be used.
func (s *AssessmentService) HasSource() bool { return s.source != nil }

// AssessFile loads an uploaded file and assesses it. name is the client's
// file name; it picks the format and names the saved report.
func (s *AssessmentService) AssessFile(ctx context.Context, name string, r io.Reader) (*Assessment, error) {
	ctx, span := s.tracer.Start(ctx, "AssessmentService.AssessFile",
		trace.WithAttributes(attribute.String("file.name", name)),
	)
	defer span.End()

	return s.run(ctx, span, name, name, s.cfg.Masks, func(ctx context.Context) (*domain.Table, error) {
		t, err := s.loader.Load(ctx, name, r)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", name, err)
		}
		return t, nil
	})
}

// AssessQuery validates sql, loads its result set and assesses it.
func (s *AssessmentService) AssessQuery(ctx context.Context, sql string) (*Assessment, error) {
	ctx, span := s.tracer.Start(ctx, "AssessmentService.AssessQuery",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	masks := domain.ResolveMaskAliases(sql, s.cfg.Masks)
	return s.run(ctx, span, "query", sql, masks, func(ctx context.Context) (*domain.Table, error) {
		if s.source == nil {
			return nil, domain.ErrSourceUnavailable
		}
		if err := s.validator.Validate(sql); err != nil {
			s.logger.WarnContext(ctx, "query validation rejected",
				slog.String("db.statement", sql),
				slog.String("error.type", "validation_error"),
			)
			return nil, fmt.Errorf("validation: %w", err)
		}
		return s.source.Load(ctx, sql)
	})
}

func (s *AssessmentService) run(ctx context.Context, span trace.Span, reportName, auditSource string, masks map[string]domain.MaskType, load func(context.Context) (*domain.Table, error)) (*Assessment, error) {
	start := time.Now()
	entry := port.AuditEntry{Tool: toolNameFromCtx(ctx), Source: auditSource}

	a, err := s.assess(ctx, reportName, masks, load)

	entry.DurationMS = time.Since(start).Milliseconds()
	s.inst.RecordAssessmentDuration(ctx, float64(entry.DurationMS))
	if a != nil {
		entry.Rows = a.TotalRows
		entry.Columns = a.TotalColumns
		entry.OverallScore = a.OverallScore
	}
	entry.Err = err
	s.auditor.Record(ctx, entry)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementAssessmentErrors(ctx)
		return nil, err
	}

	s.inst.IncrementAssessmentCount(ctx)
	span.SetAttributes(
		attribute.Int("table.rows", a.TotalRows),
		attribute.Int("table.columns", a.TotalColumns),
	)
	if a.OverallScore != nil {
		s.inst.RecordOverallScore(ctx, *a.OverallScore)
	}
	s.logger.InfoContext(ctx, "assessment complete",
		slog.String("assessment_id", a.AssessmentID),
		slog.Int("rows", a.TotalRows),
		slog.Int("columns", a.TotalColumns),
		slog.String("saved_report", a.SavedReport),
		slog.Int64("duration_ms", entry.DurationMS),
	)
	return a, nil
}

func (s *AssessmentService) assess(ctx context.Context, reportName string, masks map[string]domain.MaskType, load func(context.Context) (*domain.Table, error)) (*Assessment, error) {
	t, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if t.Rows() == 0 || t.Width() == 0 {
		return nil, domain.ErrEmptyTable
	}

	report, err := s.engine.Assess(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("assessing: %w", err)
	}

	preview := domain.NewPreview(t, s.cfg.PreviewRows, masks)
	a := &Assessment{
		Report:         report.Sanitized(),
		AssessmentID:   uuid.NewString(),
		PreviewData:    preview.Rows,
		PreviewColumns: preview.Columns,
	}

	saved, err := s.store.Save(ctx, reportName, a)
	if err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}
	a.SavedReport = saved
	return a, nil
}
