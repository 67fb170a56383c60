// Package keepalive pings the service's own health endpoint so hosting
// platforms that idle inactive instances keep it warm.
package keepalive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"raizes/internal/infra/logging"
)

type Pinger struct {
	URL      string
	Interval time.Duration
	Timeout  time.Duration
}

func New(url string, interval, timeout time.Duration) *Pinger {
	return &Pinger{URL: url, Interval: interval, Timeout: timeout}
}

// Ping issues one GET and returns the status code.
func (p *Pinger) Ping() (int, error) {
	a := fiber.Get(p.URL)
	if p.Timeout > 0 {
		a.Timeout(p.Timeout)
	}
	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, err
	}
	code, _, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return code, nil
}

// Run pings once immediately and then every Interval until ctx is done.
func (p *Pinger) Run(ctx context.Context) error {
	if p.Interval <= 0 {
		return fmt.Errorf("keepalive: interval must be positive, got %s", p.Interval)
	}
	p.pingAndLog()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.pingAndLog()
		}
	}
}

func (p *Pinger) pingAndLog() {
	code, err := p.Ping()
	switch {
	case err != nil:
		logging.Error("Keep-alive ping failed", "url", p.URL, "error", err)
	case code >= 200 && code < 300:
		logging.Info("Keep-alive ping ok", "url", p.URL, "status", code)
	default:
		logging.Warn("Keep-alive ping returned non-OK status", "url", p.URL, "status", code)
	}
}
