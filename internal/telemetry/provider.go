package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

// Config controls provider installation.
type Config struct {
	// Enabled gates the whole instrumentation layer. When false every
	// wrapper becomes a pass-through on the default noop provider.
	Enabled bool

	// ServiceName appears as service.name on every emitted span.
	ServiceName string

	// Endpoint is the OTLP-over-HTTP URL spans are flushed to.
	Endpoint string

	// Exporter selects the export path: "otlp" (default) or "stdout" for
	// development.
	Exporter string
}

// Setup installs the global tracer provider, propagator, and cache span
// processor. It is idempotent: repeated calls install exactly once and
// return a no-op shutdown. The returned shutdown flushes pending spans.
//
// A setup failure is fatal only to the tracing attempt; callers are expected
// to continue uninstrumented.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled {
		return noop, nil
	}
	if !defaultRegistry.Once("telemetry.provider") {
		return noop, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return noop, fmt.Errorf("failed to create span exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return noop, fmt.Errorf("failed to build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(NewCacheSpanProcessor(cfg.ServiceName, logger)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if logger != nil {
		logger.Info("tracing enabled",
			zap.String("service", cfg.ServiceName),
			zap.String("exporter", exporterName(cfg.Exporter)),
			zap.String("endpoint", cfg.Endpoint),
		)
	}

	return provider.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch exporterName(cfg.Exporter) {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		opts := []otlptracehttp.Option{}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	}
}

func exporterName(name string) string {
	if name == "" {
		return "otlp"
	}
	return name
}
