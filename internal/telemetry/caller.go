package telemetry

import (
	"runtime"
	"strings"
)

// Caller identifies the application code that triggered an intercepted
// operation. Resolved lazily at interception time and never stored beyond
// the enrichment of one span.
type Caller struct {
	Function string
	File     string
	Line     int
}

// UnknownCaller is returned when no application frame can be resolved.
var UnknownCaller = Caller{Function: "unknown", File: "unknown", Line: 0}

// maxCallerDepth bounds the stack walk so resolution stays cheap even from
// deep call paths.
const maxCallerDepth = 32

// instrumentationPrefixes lists symbol fragments whose frames are skipped
// when resolving the caller: the instrumentation layer itself and the cache
// adapter it enriches. Application code living next to the adapter must
// stay visible, so the adapter is matched by symbol rather than by package.
var instrumentationPrefixes = []string{
	"internal/telemetry",
	"internal/cache.(*tracedStore)",
	"internal/cache.Enrich",
}

// ResolveCaller walks the active call stack and returns the nearest frame
// that does not belong to the instrumentation or cache layers. It fails
// soft: if no suitable frame exists, UnknownCaller is returned.
func ResolveCaller() Caller {
	return resolveCaller(instrumentationPrefixes)
}

func resolveCaller(skip []string) Caller {
	pcs := make([]uintptr, maxCallerDepth)
	// Skip runtime.Callers and resolveCaller itself; the prefix filter
	// handles ResolveCaller and any other telemetry frames.
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return UnknownCaller
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !skipFrame(frame.Function, skip) {
			return Caller{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			}
		}
		if !more {
			break
		}
	}
	return UnknownCaller
}

func skipFrame(fn string, skip []string) bool {
	for _, prefix := range skip {
		if strings.Contains(fn, prefix) {
			return true
		}
	}
	// Runtime and testing scaffolding frames are never useful callers.
	return strings.HasPrefix(fn, "runtime.")
}
