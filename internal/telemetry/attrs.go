package telemetry

// Attribute keys shared between the cache adapter and the span processor.
// These names are a stable contract for downstream dashboards.
const (
	AttrDBSystem       = "db.system"
	AttrCacheOperation = "db.operation"
	AttrCacheKey       = "db.cache.key"
	AttrCacheArgsLen   = "db.cache.args_length"

	AttrServiceTag     = "custom.cache.service_tag"
	AttrCallerFunction = "custom.cache.caller_function"
	AttrCallerFile     = "custom.cache.caller_file"
	AttrCallerLine     = "custom.cache.caller_line"
)

// CacheSystem is the db.system value stamped on every cache span.
const CacheSystem = "cache"

// CacheOperationEvent is the descriptive event name emitted on every
// enriched cache span.
const CacheOperationEvent = "cache.operation"
