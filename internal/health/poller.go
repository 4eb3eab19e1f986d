// Package health runs the periodic self health-check against the public
// endpoint.
package health

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/agusmakmun/vmwebsocket/internal/logging"
	"github.com/agusmakmun/vmwebsocket/internal/telemetry"
)

// Poller probes a URL on a fixed interval. Each probe runs inside its own
// span so failures show up in the trace backend next to the serving spans.
type Poller struct {
	url      string
	interval time.Duration
	client   *retryablehttp.Client
	logger   *logging.Logger
}

// NewPoller creates a poller for url. A nil logger is replaced with a no-op.
func NewPoller(url string, interval time.Duration, logger *logging.Logger) *Poller {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Poller{
		url:      url,
		interval: interval,
		client:   client,
		logger:   logger,
	}
}

// Run probes until ctx is cancelled. Returns immediately when no URL is
// configured.
func (p *Poller) Run(ctx context.Context) {
	if p.url == "" {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			done := telemetry.Go(ctx, "health.check", p.probe)
			if err := <-done; err != nil {
				p.logger.Warn("health check failed", zap.String("url", p.url), zap.Error(err))
			}
		}
	}
}

func (p *Poller) probe(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", p.url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health check returned %d: %s", resp.StatusCode, body)
	}

	p.logger.Info("health check ok",
		zap.String("url", p.url),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
