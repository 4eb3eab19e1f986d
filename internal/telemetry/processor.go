package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// CacheSpanProcessor enriches every cache span that passes through the
// provider. On start it stamps the service-identifying tag used for
// cross-service filtering; on end it logs the operation outcome. Spans that
// are not cache spans (db.system != "cache") pass through untouched.
//
// The processor never creates spans and never fails: any problem during
// enrichment is discarded so instrumentation can never break the operation
// being observed.
type CacheSpanProcessor struct {
	serviceTag string
	logger     *zap.Logger
}

// NewCacheSpanProcessor creates a processor that tags cache spans with the
// given service identity.
func NewCacheSpanProcessor(serviceTag string, logger *zap.Logger) *CacheSpanProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheSpanProcessor{serviceTag: serviceTag, logger: logger}
}

// OnStart stamps the service tag on cache spans.
func (p *CacheSpanProcessor) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	defer func() { _ = recover() }()

	if !isCacheSpan(s.Attributes()) {
		return
	}
	s.SetAttributes(attribute.String(AttrServiceTag, p.serviceTag))
}

// OnEnd logs the outcome of finished cache spans.
func (p *CacheSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	defer func() { _ = recover() }()

	attrs := s.Attributes()
	if !isCacheSpan(attrs) {
		return
	}

	fields := []zap.Field{
		zap.String("span", s.Name()),
		zap.Duration("duration", s.EndTime().Sub(s.StartTime())),
	}
	for _, kv := range attrs {
		switch string(kv.Key) {
		case AttrCacheOperation, AttrCacheKey, AttrCallerFunction, AttrCallerFile:
			fields = append(fields, zap.String(string(kv.Key), kv.Value.AsString()))
		case AttrCacheArgsLen, AttrCallerLine:
			fields = append(fields, zap.Int64(string(kv.Key), kv.Value.AsInt64()))
		}
	}

	if s.Status().Code == codes.Error {
		p.logger.Warn("cache operation failed", fields...)
		return
	}
	p.logger.Debug("cache operation", fields...)
}

// Shutdown implements sdktrace.SpanProcessor.
func (p *CacheSpanProcessor) Shutdown(context.Context) error { return nil }

// ForceFlush implements sdktrace.SpanProcessor.
func (p *CacheSpanProcessor) ForceFlush(context.Context) error { return nil }

func isCacheSpan(attrs []attribute.KeyValue) bool {
	for _, kv := range attrs {
		if string(kv.Key) == AttrDBSystem && kv.Value.AsString() == CacheSystem {
			return true
		}
	}
	return false
}
