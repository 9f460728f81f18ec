package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/slunk/slunk-mcp/protocol"
)

const instrumentationName = "github.com/slunk/slunk-mcp"

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*otelConfig)

type otelConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	serviceName    string
	skipMethods    map[string]bool
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

// WithOTelServiceName overrides the service.name attribute.
func WithOTelServiceName(name string) OTelOption {
	return func(c *otelConfig) {
		c.serviceName = name
	}
}

// WithOTelSkipMethods excludes methods from tracing. Useful for ping,
// which drivers send constantly.
func WithOTelSkipMethods(methods ...string) OTelOption {
	return func(c *otelConfig) {
		for _, m := range methods {
			c.skipMethods[m] = true
		}
	}
}

// OTel returns middleware that opens a server span per request and records
// request count, latency, and error count. Protocol error codes become the
// slunk.error_code attribute on both spans and error metrics.
func OTel(opts ...OTelOption) Middleware {
	cfg := &otelConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		serviceName:    "slunk-server",
		skipMethods:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tracer := cfg.tracerProvider.Tracer(
		instrumentationName,
		trace.WithInstrumentationVersion("1.0.0"),
	)
	meter := cfg.meterProvider.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion("1.0.0"),
	)

	requestCount, _ := meter.Int64Counter(
		"slunk.server.requests",
		metric.WithDescription("Requests handled"),
		metric.WithUnit("{request}"),
	)
	requestLatency, _ := meter.Float64Histogram(
		"slunk.server.request.duration",
		metric.WithDescription("Request latency"),
		metric.WithUnit("ms"),
	)
	errorCount, _ := meter.Int64Counter(
		"slunk.server.errors",
		metric.WithDescription("Requests that failed"),
		metric.WithUnit("{error}"),
	)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			if cfg.skipMethods[req.Method] {
				return next(ctx, req)
			}

			attrs := []attribute.KeyValue{
				attribute.String("slunk.method", req.Method),
				attribute.String("service.name", cfg.serviceName),
			}

			ctx, span := tracer.Start(ctx, "slunk."+req.Method,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			if id := RequestIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("slunk.request_id", id))
			}

			requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
			start := time.Now()

			resp, err := next(ctx, req)

			elapsed := float64(time.Since(start).Milliseconds())
			requestLatency.Record(ctx, elapsed, metric.WithAttributes(attrs...))

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				errAttrs := attrs
				var perr *protocol.Error
				if errors.As(err, &perr) {
					span.SetAttributes(attribute.Int("slunk.error_code", perr.Code))
					errAttrs = append(errAttrs, attribute.Int("slunk.error_code", perr.Code))
				}
				errorCount.Add(ctx, 1, metric.WithAttributes(errAttrs...))
			case resp != nil && resp.Error != nil:
				span.SetStatus(codes.Error, resp.Error.Message)
				span.SetAttributes(attribute.Int("slunk.error_code", resp.Error.Code))
				errorCount.Add(ctx, 1, metric.WithAttributes(
					append(attrs, attribute.Int("slunk.error_code", resp.Error.Code))...,
				))
			default:
				span.SetStatus(codes.Ok, "")
			}

			return resp, err
		}
	}
}

// SpanFromContext returns the current span, or a no-op span if none.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent records an event on the current span. Tool handlers can use
// it to mark phases of a long search.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanAttribute sets one attribute on the current span, converting
// common Go types. Unsupported types are ignored.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case []string:
		span.SetAttributes(attribute.StringSlice(key, v))
	}
}
