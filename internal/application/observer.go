package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"jira-mcp-server/internal/domain"
)

// Operation labels recorded by the observer.
const (
	opToolCall     = "tools/call"
	opResourceRead = "resources/read"
)

// DispatchObserver records dispatch spans and metrics. A nil observer is
// valid and records nothing.
type DispatchObserver struct {
	tracer trace.Tracer

	calls   metric.Int64Counter
	errors  metric.Int64Counter
	latency metric.Float64Histogram
}

// NewDispatchObserver creates an observer bound to the provided meter/tracer.
func NewDispatchObserver(meter metric.Meter, tracer trace.Tracer) (*DispatchObserver, error) {
	calls, err := meter.Int64Counter(
		"jira_mcp.dispatch.calls",
		metric.WithDescription("Number of tool calls and resource reads"),
	)
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter(
		"jira_mcp.dispatch.errors",
		metric.WithDescription("Number of dispatches that ended in an error envelope"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"jira_mcp.dispatch.latency",
		metric.WithDescription("Dispatch latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchObserver{
		tracer:  tracer,
		calls:   calls,
		errors:  errs,
		latency: latency,
	}, nil
}

// Start opens a span for one dispatch. The returned function records the
// outcome and must be called exactly once.
func (o *DispatchObserver) Start(ctx context.Context, operation, name string) (context.Context, func(err error)) {
	if o == nil {
		return ctx, func(error) {}
	}

	started := time.Now()
	base := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("name", name),
	}

	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, operation, trace.WithAttributes(base...))
	}

	return ctx, func(err error) {
		attrs := append([]attribute.KeyValue(nil), base...)
		attrs = append(attrs, attribute.Bool("success", err == nil))
		if err != nil {
			kind, ok := domain.KindOf(err)
			if !ok {
				kind = domain.KindBackendUnavailable
			}
			attrs = append(attrs, attribute.String("error_kind", string(kind)))
		}

		options := metric.WithAttributes(attrs...)
		bg := context.Background()
		o.calls.Add(bg, 1, options)
		if err != nil {
			o.errors.Add(bg, 1, options)
		}
		o.latency.Record(bg, time.Since(started).Seconds(), options)

		if span == nil {
			return
		}
		span.SetAttributes(attrs[len(base):]...)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
