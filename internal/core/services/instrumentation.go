package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/srgjo27/scalable_parking/internal/core/services"

type Instrumentation struct {
	tracer trace.Tracer

	operations        metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	billedAmount      metric.Float64Counter
}

func NewInstrumentation(meter metric.Meter, tracer trace.Tracer) (*Instrumentation, error) {
	operations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of core parking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_spots_occupied",
		metric.WithDescription("Current number of occupied parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("parking_operation_duration_seconds",
		metric.WithDescription("Duration of core parking operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	billedAmount, err := meter.Float64Counter("parking_billed_amount_total",
		metric.WithDescription("Sum of costs charged on release"))
	if err != nil {
		return nil, err
	}

	return &Instrumentation{
		tracer:            tracer,
		operations:        operations,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
		billedAmount:      billedAmount,
	}, nil
}

// DefaultInstrumentation binds to the global providers, which are no-ops
// until telemetry is initialised.
func DefaultInstrumentation() *Instrumentation {
	inst, err := NewInstrumentation(otel.Meter(instrumentationName), otel.Tracer(instrumentationName))
	if err != nil {
		return nil
	}
	return inst
}

func (i *Instrumentation) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if i == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return i.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (i *Instrumentation) finish(ctx context.Context, span trace.Span, operation string, started time.Time, err error) {
	if i == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	labels := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	i.operations.Add(ctx, 1, labels)
	i.operationDuration.Record(ctx, time.Since(started).Seconds(), labels)
	span.End()
}

func (i *Instrumentation) occupancy(ctx context.Context, delta int64) {
	if i == nil {
		return
	}
	i.occupancyGauge.Add(ctx, delta)
}

func (i *Instrumentation) billed(ctx context.Context, amount float64) {
	if i == nil {
		return
	}
	i.billedAmount.Add(ctx, amount)
}
