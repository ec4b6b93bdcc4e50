package engine

import (
	"context"
	"log/slog"
	"time"
)

// QuoteExpiry periodically evicts stale quotes from a QuoteGenerator so the
// cache does not grow with every ISIN ever quoted.
type QuoteExpiry struct {
	interval time.Duration
	quotes   *QuoteGenerator
	logger   *slog.Logger
}

// NewQuoteExpiry creates a QuoteExpiry that sweeps quotes every interval.
func NewQuoteExpiry(interval time.Duration, quotes *QuoteGenerator) *QuoteExpiry {
	return &QuoteExpiry{
		interval: interval,
		quotes:   quotes,
		logger:   quotes.logger,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and evicts stale quotes. It stops when ctx is cancelled.
func (e *QuoteExpiry) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				e.tick(t)
			}
		}
	}()
}

func (e *QuoteExpiry) tick(now time.Time) {
	if n := e.quotes.EvictStale(now); n > 0 {
		e.logger.Debug("stale quotes evicted", slog.Int("count", n))
	}
}
