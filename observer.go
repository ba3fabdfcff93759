package graphcheck

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/graphcheck/internal/checker"
)

// runObserver traces, measures and logs the passes of one run.
type runObserver struct {
	tracer  trace.Tracer
	metrics MetricsCollector
	logger  *Logger
}

func (o *runObserver) PassStarted(ctx context.Context, pass string, r checker.Range) context.Context {
	ctx, _ = o.tracer.Start(ctx, "pass."+pass, trace.WithAttributes(
		attribute.String("pass", pass),
		attribute.Int64("range.from", r.From),
		attribute.Int64("range.to", r.To),
	))
	o.logger.DebugContext(ctx, "pass started", "pass", pass, "range", r.String())
	return ctx
}

func (o *runObserver) PassFinished(ctx context.Context, pass string, r checker.Range, d time.Duration, records int64, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("records", records))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	o.metrics.RecordPass(pass, d, err)
	o.metrics.RecordRecords(pass, records)
	o.logger.LogPass(ctx, pass, r.String(), records, d, err)
}

func (o *runObserver) RangeChecked(ctx context.Context, r checker.Range, index, total int, d time.Duration) {
	trace.SpanFromContext(ctx).AddEvent("range checked", trace.WithAttributes(
		attribute.Int64("range.from", r.From),
		attribute.Int64("range.to", r.To),
	))
	o.logger.LogRange(ctx, r.String(), index, total, d)
}
