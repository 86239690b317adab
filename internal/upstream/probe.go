package upstream

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Probe periodically checks that the weather API is reachable and keeps
// an atomic health flag for the /health endpoint. Any HTTP response
// counts as reachable; only transport-level failures mark the upstream
// down.
type Probe struct {
	target   string
	interval time.Duration
	client   *http.Client
	healthy  atomic.Bool
	logger   *slog.Logger
}

func NewProbe(target string, interval time.Duration, logger *slog.Logger) *Probe {
	p := &Probe{
		target:   target,
		interval: interval,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
	p.healthy.Store(true)
	return p
}

func (p *Probe) Healthy() bool {
	return p.healthy.Load()
}

func (p *Probe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Upstream probe stopped",
				slog.String("target", p.target))
			return

		case <-ticker.C:
			p.check(ctx)
		}
	}
}

func (p *Probe) check(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		return
	}

	res, err := p.client.Do(req)
	healthy := err == nil
	if res != nil {
		res.Body.Close()
	}

	changed := p.healthy.Swap(healthy) != healthy
	if !changed {
		return
	}

	if healthy {
		p.logger.Info("Weather api is back up",
			slog.String("target", p.target))
	} else {
		p.logger.Warn("Weather api is down",
			slog.String("target", p.target),
			slog.Any("error", err))
	}
}
