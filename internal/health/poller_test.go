package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
	})
	return recorder
}

func TestProbeHealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	p := NewPoller(server.URL, time.Minute, nil)
	assert.NoError(t, p.probe(context.Background()))
}

func TestProbeFailingEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database gone", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewPoller(server.URL, time.Minute, nil)
	err := p.probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestProbeRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewPoller(server.URL, time.Minute, nil)
	assert.NoError(t, p.probe(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunProbesOnIntervalUnderSpans(t *testing.T) {
	recorder := newRecorder(t)

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p := NewPoller(server.URL, 20*time.Millisecond, nil)
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	for _, span := range spans {
		assert.Equal(t, "health.check", span.Name())
		assert.Equal(t, codes.Ok, span.Status().Code)
	}
}

func TestRunWithoutURLReturnsImmediately(t *testing.T) {
	p := NewPoller("", time.Millisecond, nil)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not return for an empty URL")
	}
}
