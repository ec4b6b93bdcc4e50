package engine

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/mocktrader/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// seqSource replays a fixed sequence of draws, cycling when exhausted.
type seqSource struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func (s *seqSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGenerator(src RandomSource, failureRate float64) (*QuoteGenerator, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	g := NewQuoteGenerator(src, failureRate, DefaultQuoteTTL, nil, nil)
	g.now = clock.Now
	return g, clock
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestQuote_Synthesis(t *testing.T) {
	// base = 90 + 20*0.5 = 100; spread = 0.1; last = bid + 0.1*0.25
	g, _ := newTestGenerator(&seqSource{values: []float64{0.5, 0.25}}, 0.1)

	q := g.Quote("US0378331005")
	if q.ISIN != "US0378331005" {
		t.Errorf("ISIN = %q, want US0378331005", q.ISIN)
	}
	if !approxEqual(q.Bid, 99.95) {
		t.Errorf("Bid = %v, want 99.95", q.Bid)
	}
	if !approxEqual(q.Ask, 100.05) {
		t.Errorf("Ask = %v, want 100.05", q.Ask)
	}
	if !approxEqual(q.Last, 99.975) {
		t.Errorf("Last = %v, want 99.975", q.Last)
	}
	if !approxEqual(q.Mid(), 100) {
		t.Errorf("Mid() = %v, want 100", q.Mid())
	}
}

func TestQuote_CachedWithinWindow(t *testing.T) {
	g, clock := newTestGenerator(NewSeededSource(42), 0.1)

	first := g.Quote("US0378331005")
	clock.Advance(DefaultQuoteTTL) // age == ttl is still fresh
	second := g.Quote("US0378331005")

	if *first != *second {
		t.Fatal("expected the cached quote within the freshness window")
	}
	if first.Bid != second.Bid || first.Ask != second.Ask || first.Last != second.Last {
		t.Error("cached quote values differ")
	}
}

func TestQuote_RegeneratedAfterWindow(t *testing.T) {
	g, clock := newTestGenerator(&seqSource{values: []float64{0.1, 0.2, 0.9, 0.8}}, 0.1)

	first := g.Quote("US0378331005")
	clock.Advance(DefaultQuoteTTL + time.Second)
	second := g.Quote("US0378331005")

	if *first == *second {
		t.Fatal("expected a new quote after the freshness window")
	}
	if !second.GeneratedAt.After(first.GeneratedAt) {
		t.Errorf("GeneratedAt %v not after %v", second.GeneratedAt, first.GeneratedAt)
	}
	if second.Bid == first.Bid {
		t.Errorf("Bid unchanged after regeneration: %v", second.Bid)
	}
}

func TestQuote_PerISINCache(t *testing.T) {
	g, _ := newTestGenerator(&seqSource{values: []float64{0.1, 0.5, 0.9, 0.5}}, 0.1)

	a := g.Quote("US0378331005")
	b := g.Quote("GB0002875804")
	if *a == *b || a.ISIN == b.ISIN {
		t.Fatal("quotes for different ISINs should be independent")
	}
	if *g.Quote("US0378331005") != *a {
		t.Error("first ISIN's quote was evicted by the second")
	}
}

func TestQuote_ReturnsCopy(t *testing.T) {
	g, _ := newTestGenerator(&seqSource{values: []float64{0.5}}, 0)

	q := g.Quote("US0378331005")
	bid := q.Bid
	q.Bid = -1
	q.Ask = -1

	again := g.Quote("US0378331005")
	if again.Bid != bid {
		t.Errorf("cached Bid = %v after caller mutation, want %v", again.Bid, bid)
	}
	if again == q {
		t.Error("Quote returned the same pointer twice")
	}
}

func TestQuote_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	g := NewQuoteGenerator(NewSeededSource(7), 0.1, DefaultQuoteTTL, m, nil)

	g.Quote("US0378331005")
	g.Quote("US0378331005")
	g.Quote("US0378331005")

	if got := testutil.ToFloat64(m.QuoteRequests.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.QuoteRequests.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestValidateDeviation(t *testing.T) {
	// Mid price is exactly 100.
	g, _ := newTestGenerator(&seqSource{values: []float64{0.5, 0.5}}, 0.1)
	isin := "US0378331005"

	tests := []struct {
		price     float64
		threshold float64
		want      bool
	}{
		{100, 5, true},
		{104.9, 5, true},
		{95.1, 5, true},
		{105.5, 5, false},
		{94, 5, false},
		{101, 0.5, false},
		{100, 0.001, true},
	}
	for _, tt := range tests {
		if got := g.ValidateDeviation(isin, tt.price, tt.threshold); got != tt.want {
			t.Errorf("ValidateDeviation(%v, %v) = %v, want %v", tt.price, tt.threshold, got, tt.want)
		}
	}
}

func TestDeviationPercent_DegenerateMid(t *testing.T) {
	for _, mid := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, ok := DeviationPercent(100, mid); ok {
			t.Errorf("DeviationPercent(100, %v) ok = true, want false", mid)
		}
	}
	if _, ok := DeviationPercent(math.Inf(1), 100); ok {
		t.Error("DeviationPercent(+Inf, 100) ok = true, want false")
	}
	dev, ok := DeviationPercent(110, 100)
	if !ok || !approxEqual(dev, 10) {
		t.Errorf("DeviationPercent(110, 100) = %v, %v; want 10, true", dev, ok)
	}
}

func TestSimulateExecutionFailure(t *testing.T) {
	g, _ := newTestGenerator(&seqSource{values: []float64{0.05, 0.1, 0.5}}, 0.1)

	if !g.SimulateExecutionFailure() {
		t.Error("draw 0.05 < 0.1 should fail")
	}
	if g.SimulateExecutionFailure() {
		t.Error("draw 0.1 is not < 0.1 and should not fail")
	}
	if g.SimulateExecutionFailure() {
		t.Error("draw 0.5 should not fail")
	}
}

func TestSimulateExecutionFailure_Extremes(t *testing.T) {
	never, _ := newTestGenerator(NewSeededSource(1), 0)
	always, _ := newTestGenerator(NewSeededSource(1), 1)
	for i := 0; i < 100; i++ {
		if never.SimulateExecutionFailure() {
			t.Fatal("failure rate 0 produced a failure")
		}
		if !always.SimulateExecutionFailure() {
			t.Fatal("failure rate 1 produced a success")
		}
	}
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := NewQuoteGenerator(NewSeededSource(99), 0.1, DefaultQuoteTTL, nil, nil)
	b := NewQuoteGenerator(NewSeededSource(99), 0.1, DefaultQuoteTTL, nil, nil)

	qa := a.Quote("US0378331005")
	qb := b.Quote("US0378331005")
	if qa.Bid != qb.Bid || qa.Ask != qb.Ask || qa.Last != qb.Last {
		t.Errorf("same seed produced different quotes: %+v vs %+v", qa, qb)
	}
}

func TestQuote_ConcurrentAccess(t *testing.T) {
	g := NewQuoteGenerator(NewSeededSource(3), 0.1, DefaultQuoteTTL, nil, nil)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.Quote("US0378331005")
		}()
		go func() {
			defer wg.Done()
			g.SimulateExecutionFailure()
		}()
	}
	wg.Wait()

	q := g.Quote("US0378331005")
	if q.Bid < MinBasePrice-1 || q.Ask > MaxBasePrice+1 {
		t.Errorf("quote out of range: %+v", q)
	}
}
