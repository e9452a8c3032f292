package notify

import (
	"context"
	"time"
)

// Scanner runs the overdue derivation on a fixed interval. It is
// advisory: Poll re-derives on demand, so a stalled scanner only delays
// push delivery, never feed correctness.
type Scanner struct {
	engine   *Engine
	interval time.Duration
}

// NewScanner creates a background scanner. A non-positive interval
// defaults to one minute.
func NewScanner(engine *Engine, interval time.Duration) *Scanner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scanner{engine: engine, interval: interval}
}

// Run derives overdue alerts until the context is cancelled. Errors are
// logged and the loop keeps going; a transient read failure on one pass
// is retried on the next tick.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if n, err := s.engine.DeriveOverdue(); err != nil {
			s.engine.logger.Warn("overdue scan failed", "error", err)
		} else if n > 0 {
			s.engine.logger.Info("overdue scan emitted alerts", "count", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
