// Package cache provides the key/value store backing the demo endpoints and
// its traced adapter.
//
// The store itself is a TTL-bounded LRU. Tracing is added by composition:
// whoever constructs the store decides whether to wrap it with Traced, which
// opens a datastore span per operation and enriches it with the identity of
// the calling code. Enrichment is strictly best-effort and can never affect
// the outcome of a cache operation.
package cache
