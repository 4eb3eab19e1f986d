/*
Package telemetry provides the OpenTelemetry instrumentation core for the
terminal service.

# Overview

This package owns everything tracing-related that is not protocol-specific:
provider setup with an OTLP/HTTP exporter, traced-call helpers for wrapping
synchronous and goroutine-based work, caller resolution for cache span
enrichment, and the span processor that observes finished cache spans.

# Features

- One-time provider installation gated by TRACING_ENABLED
- OTLP-over-HTTP export with a stdout exporter for development
- W3C TraceContext + Baggage propagation set globally
- WithSpan / WithSpanValue / Go helpers with OK/ERROR status and error events
- Caller resolution that skips instrumentation frames
- Idempotent installation via a process-wide registry

# Usage

	shutdown, err := telemetry.Setup(ctx, cfg, logger)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}
	defer shutdown(ctx)

	err = telemetry.WithSpan(ctx, "Session.Write", func(ctx context.Context) error {
		return session.Write(input)
	})

Spans opened by nested WithSpan calls parent under whichever span is active
in their context, including across goroutine boundaries when the context is
passed along.
*/
package telemetry
