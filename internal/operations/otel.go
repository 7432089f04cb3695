package operations

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"etlinspector/pkg/contracts/domain"
)

// TracerName names the tracer used for background jobs.
const TracerName = "etlinspector.jobs"

func defaultTracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// traceJob starts the span covering one job execution.
func traceJob(ctx context.Context, tracer trace.Tracer, job *domain.Job) (context.Context, trace.Span) {
	return tracer.Start(ctx, "job.execute",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.String("job.source", job.Source),
			attribute.StringSlice("job.checks", job.Checks),
		),
	)
}

// finishJobSpan records the job outcome on its span and ends it.
func finishJobSpan(span trace.Span, job *domain.Job, err error) {
	span.SetAttributes(
		attribute.String("job.status", string(job.Status)),
		attribute.Int("job.progress", job.Progress),
	)
	if job.ReportID != "" {
		span.SetAttributes(attribute.String("job.report_id", job.ReportID))
	}
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case job.Status == domain.JobStatusCancelled:
		span.AddEvent("job.cancelled")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
