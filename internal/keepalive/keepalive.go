// Package keepalive periodically pings the server's own public URL.
// Free-tier hosts idle out processes that receive no traffic; a scheduled
// self-ping keeps the dashboard warm.
package keepalive

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"launchpulse/internal/config"
)

// Pinger issues a GET to the configured URL on a fixed interval.
type Pinger struct {
	cfg    config.KeepAliveConfig
	client *http.Client
	logger *slog.Logger
}

// New creates a pinger from config. The client may be nil for the default.
func New(cfg config.KeepAliveConfig, client *http.Client, logger *slog.Logger) *Pinger {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pinger{
		cfg:    cfg,
		client: client,
		logger: logger.With(slog.String("component", "keepalive")),
	}
}

// Run pings until the context is cancelled. Returns immediately when the
// pinger is disabled. Ping failures are logged and retried on the next
// tick; they never stop the loop.
func (p *Pinger) Run(ctx context.Context) error {
	if !p.cfg.Enabled || p.cfg.URL == "" {
		return nil
	}

	p.logger.Info("keep-alive started",
		slog.String("url", p.cfg.URL),
		slog.Duration("interval", p.cfg.Interval))

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("keep-alive stopped")
			return ctx.Err()
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Pinger) ping(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		p.logger.Error("keep-alive request build failed",
			slog.String("error", err.Error()))
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("keep-alive ping failed",
			slog.String("error", err.Error()))
		return
	}
	resp.Body.Close()

	p.logger.Debug("keep-alive ping",
		slog.Int("status", resp.StatusCode))
}
