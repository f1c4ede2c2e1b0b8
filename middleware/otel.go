package middleware

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/GordonDrop/mcpkit/server"
)

const instrumentationName = "github.com/GordonDrop/mcpkit"

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*otelConfig)

type otelConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
	skipNames      map[string]bool
}

// WithTracerProvider sets a custom tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *otelConfig) {
		c.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
func WithMeterProvider(mp metric.MeterProvider) OTelOption {
	return func(c *otelConfig) {
		c.meterProvider = mp
	}
}

// WithOTelServiceName sets the service name for telemetry.
func WithOTelServiceName(name string) OTelOption {
	return func(c *otelConfig) {
		c.serviceName = name
	}
}

// WithOTelSkip lists operation names that are not traced.
func WithOTelSkip(names ...string) OTelOption {
	return func(c *otelConfig) {
		for _, n := range names {
			c.skipNames[n] = true
		}
	}
}

// OTel returns middleware that records a span, a call counter, a latency
// histogram and an error counter for every call.
func OTel(opts ...OTelOption) Middleware {
	cfg := &otelConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		serviceName:    "mcpkit",
		skipNames:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tracer := cfg.tracerProvider.Tracer(instrumentationName)
	meter := cfg.meterProvider.Meter(instrumentationName)

	callCounter, _ := meter.Int64Counter(
		"mcpkit.calls",
		metric.WithDescription("Total number of calls"),
		metric.WithUnit("{call}"),
	)
	callDuration, _ := meter.Float64Histogram(
		"mcpkit.call.duration",
		metric.WithDescription("Duration of calls"),
		metric.WithUnit("ms"),
	)
	errorCounter, _ := meter.Int64Counter(
		"mcpkit.call.errors",
		metric.WithDescription("Total number of failed calls"),
		metric.WithUnit("{error}"),
	)

	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
			if cfg.skipNames[call.Name] {
				return next(ctx, call)
			}

			attrs := []attribute.KeyValue{
				attribute.String("mcpkit.call.type", call.Type.String()),
				attribute.String("mcpkit.call.name", call.Name),
				attribute.String("service.name", cfg.serviceName),
			}
			ctx, span := tracer.Start(ctx, call.Type.String()+" "+call.Name,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			if reqID := RequestIDFromContext(ctx); reqID != "" {
				span.SetAttributes(attribute.String("mcpkit.request_id", reqID))
			}

			start := time.Now()
			callCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

			res, err := next(ctx, call)

			callDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
			case res != nil && res.IsError:
				msg := contentMessage(res.Content)
				span.SetStatus(codes.Error, msg)
				if code := contentCode(res.Content); code != "" {
					span.SetAttributes(attribute.String("mcpkit.error_code", code))
					attrs = append(attrs, attribute.String("mcpkit.error_code", code))
				}
				errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
			default:
				span.SetStatus(codes.Ok, "")
			}
			return res, err
		}
	}
}

func contentMessage(content any) string {
	if err, ok := content.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(content)
}

func contentCode(content any) string {
	if err, ok := content.(error); ok {
		if f := server.Classify(err); f.Structured != nil {
			return string(f.Structured.Code)
		}
	}
	return ""
}

// SpanFromContext returns the current span from context.
// Returns a no-op span if no span is present.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
