package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	RecordAssessmentDuration(ctx context.Context, ms float64)
	IncrementAssessmentCount(ctx context.Context)
	IncrementAssessmentErrors(ctx context.Context)
	RecordAnalyzerDuration(ctx context.Context, dimension string, ms float64)
	RecordOverallScore(ctx context.Context, score float64)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) RecordAssessmentDuration(context.Context, float64)       {}
func (NoopInstrumentation) IncrementAssessmentCount(context.Context)                {}
func (NoopInstrumentation) IncrementAssessmentErrors(context.Context)               {}
func (NoopInstrumentation) RecordAnalyzerDuration(context.Context, string, float64) {}
func (NoopInstrumentation) RecordOverallScore(context.Context, float64)             {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)             {}
