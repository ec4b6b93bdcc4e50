package engine

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/metrics"
)

// Synthetic price band and spread.
const (
	MinBasePrice    = 90.0
	MaxBasePrice    = 110.0
	SpreadFraction  = 0.001
	DefaultQuoteTTL = 60 * time.Second

	DefaultFailureRate = 0.1
)

// QuoteGenerator produces synthetic quotes per ISIN and caches each one
// for a freshness window. It also decides when to inject a simulated
// execution failure. Both use the same random source.
type QuoteGenerator struct {
	mu          sync.RWMutex
	quotes      map[string]*domain.Quote // isin → latest quote
	rnd         RandomSource
	failureRate float64
	ttl         time.Duration
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewQuoteGenerator creates a QuoteGenerator. A nil logger discards output;
// a nil metrics records nothing.
func NewQuoteGenerator(
	rnd RandomSource,
	failureRate float64,
	ttl time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *QuoteGenerator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &QuoteGenerator{
		quotes:      make(map[string]*domain.Quote),
		rnd:         rnd,
		failureRate: failureRate,
		ttl:         ttl,
		now:         time.Now,
		metrics:     m,
		logger:      logger,
	}
}

// Quote returns a copy of the cached quote for isin if it is no older than
// the freshness window; otherwise it generates, caches, and returns a new one.
// Two callers racing on a stale entry may both regenerate; the later write
// wins and both results are fresh.
func (g *QuoteGenerator) Quote(isin string) *domain.Quote {
	now := g.now()

	g.mu.RLock()
	q, ok := g.quotes[isin]
	g.mu.RUnlock()
	if ok && !g.isStale(q, now) {
		g.metrics.QuoteHit()
		c := *q
		return &c
	}

	q = g.generate(isin, now)
	g.mu.Lock()
	g.quotes[isin] = q
	g.mu.Unlock()

	g.metrics.QuoteMiss()
	g.logger.Debug("quote generated",
		slog.String("isin", isin),
		slog.Float64("bid", q.Bid),
		slog.Float64("ask", q.Ask),
	)
	c := *q
	return &c
}

// MidPrice is shorthand for Quote(isin).Mid().
func (g *QuoteGenerator) MidPrice(isin string) float64 {
	return g.Quote(isin).Mid()
}

// ValidateDeviation reports whether price is within thresholdPercent of the
// current mid price. A non-positive mid price fails validation.
func (g *QuoteGenerator) ValidateDeviation(isin string, price, thresholdPercent float64) bool {
	dev, ok := DeviationPercent(price, g.MidPrice(isin))
	return ok && dev <= thresholdPercent
}

// SimulateExecutionFailure returns true with the configured probability.
func (g *QuoteGenerator) SimulateExecutionFailure() bool {
	failed := g.rnd.Float64() < g.failureRate
	if failed {
		g.metrics.InjectedFailure()
	}
	return failed
}

// EvictStale drops every cached quote that is stale at now and returns
// how many were dropped. A later Quote call regenerates them as usual.
func (g *QuoteGenerator) EvictStale(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	evicted := 0
	for isin, q := range g.quotes {
		if g.isStale(q, now) {
			delete(g.quotes, isin)
			evicted++
		}
	}
	return evicted
}

// CachedCount returns the number of quotes currently cached.
func (g *QuoteGenerator) CachedCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.quotes)
}

// TTL returns the freshness window.
func (g *QuoteGenerator) TTL() time.Duration {
	return g.ttl
}

// DeviationPercent computes |price-mid|/mid*100. ok is false when mid is
// not positive or the result is not finite.
func DeviationPercent(price, mid float64) (float64, bool) {
	if mid <= 0 || math.IsNaN(mid) || math.IsInf(mid, 0) {
		return 0, false
	}
	dev := math.Abs(price-mid) / mid * 100
	if math.IsNaN(dev) || math.IsInf(dev, 0) {
		return 0, false
	}
	return dev, true
}

func (g *QuoteGenerator) isStale(q *domain.Quote, now time.Time) bool {
	return now.Sub(q.GeneratedAt) > g.ttl
}

func (g *QuoteGenerator) generate(isin string, now time.Time) *domain.Quote {
	base := MinBasePrice + (MaxBasePrice-MinBasePrice)*g.rnd.Float64()
	spread := base * SpreadFraction
	bid := base - spread/2
	ask := base + spread/2
	last := bid + (ask-bid)*g.rnd.Float64()
	return &domain.Quote{
		ISIN:        isin,
		Bid:         bid,
		Ask:         ask,
		Last:        last,
		GeneratedAt: now,
	}
}
