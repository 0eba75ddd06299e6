package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/guillermoBallester/dqscore"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	AssessmentCount    metric.Int64Counter
	AssessmentErrors   metric.Int64Counter
	AssessmentDuration metric.Float64Histogram
	AnalyzerDuration   metric.Float64Histogram
	OverallScore       metric.Float64Histogram
	ToolDuration       metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
// Returns nil-safe instruments: if creation fails, noop instruments are used.
func NewInstruments() *Instruments {
	meter := otel.Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	meter := noop.NewMeterProvider().Meter(meterName)
	return newInstrumentsFromMeter(meter)
}

// analyzerBuckets suit analyzers that usually finish in well under a
// millisecond on small tables.
var analyzerBuckets = []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000}

func analyzerBucketsView() sdkmetric.View {
	return sdkmetric.NewView(
		sdkmetric.Instrument{Name: "dqscore.analyzer.duration"},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: analyzerBuckets}},
	)
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	count, _ := meter.Int64Counter("dqscore.assessment.count",
		metric.WithDescription("Total number of completed assessments"),
	)
	errs, _ := meter.Int64Counter("dqscore.assessment.errors",
		metric.WithDescription("Total number of failed assessments"),
	)
	duration, _ := meter.Float64Histogram("dqscore.assessment.duration",
		metric.WithDescription("End-to-end assessment duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	analyzer, _ := meter.Float64Histogram("dqscore.analyzer.duration",
		metric.WithDescription("Per-dimension analyzer duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	score, _ := meter.Float64Histogram("dqscore.score.overall",
		metric.WithDescription("Overall quality score of completed assessments"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	)
	tool, _ := meter.Float64Histogram("dqscore.tool.duration",
		metric.WithDescription("MCP tool and HTTP handler duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		AssessmentCount:    count,
		AssessmentErrors:   errs,
		AssessmentDuration: duration,
		AnalyzerDuration:   analyzer,
		OverallScore:       score,
		ToolDuration:       tool,
	}
}

func (i *Instruments) RecordAssessmentDuration(ctx context.Context, ms float64) {
	i.AssessmentDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementAssessmentCount(ctx context.Context) {
	i.AssessmentCount.Add(ctx, 1)
}

func (i *Instruments) IncrementAssessmentErrors(ctx context.Context) {
	i.AssessmentErrors.Add(ctx, 1)
}

func (i *Instruments) RecordAnalyzerDuration(ctx context.Context, dimension string, ms float64) {
	i.AnalyzerDuration.Record(ctx, ms, metric.WithAttributes(attribute.String("dimension", dimension)))
}

func (i *Instruments) RecordOverallScore(ctx context.Context, score float64) {
	i.OverallScore.Record(ctx, score)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
