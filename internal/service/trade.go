package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/engine"
	"github.com/efreitasn/mocktrader/internal/metrics"
	"github.com/efreitasn/mocktrader/internal/store"
)

// DefaultDeviationThreshold is the maximum distance, in percent of the mid
// price, a requested price may be from the market before the trade is
// rejected.
const DefaultDeviationThreshold = 5.0

// Rejection reasons recorded on trades.
const (
	reasonInvalidISIN    = "invalid ISIN: %s"
	ReasonPriceDeviation = "price deviation exceeds threshold"
)

// PriceSource supplies reference prices and failure injection to the
// trade lifecycle. *engine.QuoteGenerator satisfies it.
type PriceSource interface {
	MidPrice(isin string) float64
	SimulateExecutionFailure() bool
}

// TradeNotifier is told about every trade creation and status change.
// *WebhookService satisfies it.
type TradeNotifier interface {
	NotifyTrade(trade *domain.Trade)
}

// CreateTradeRequest represents the input for trade creation.
type CreateTradeRequest struct {
	ISIN     string
	Quantity int64
	Price    float64
}

// TradeService owns the trade lifecycle: creation with instrument and
// price checks, then execution, confirmation, and cancellation.
type TradeService struct {
	instruments *domain.InstrumentRegistry
	prices      PriceSource
	trades      *store.TradeStore
	notifier    TradeNotifier
	threshold   float64
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewTradeService creates a new TradeService. notifier, m, and logger may
// be nil.
func NewTradeService(
	instruments *domain.InstrumentRegistry,
	prices PriceSource,
	trades *store.TradeStore,
	notifier TradeNotifier,
	deviationThreshold float64,
	m *metrics.Metrics,
	logger *slog.Logger,
) *TradeService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TradeService{
		instruments: instruments,
		prices:      prices,
		trades:      trades,
		notifier:    notifier,
		threshold:   deviationThreshold,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateTrade records a new trade and returns it.
//
// An unknown or malformed ISIN still records the trade, as REJECTED, and
// returns it together with an error wrapping domain.ErrInvalidInstrument.
// A price too far from the mid price records a REJECTED trade and returns
// it with a nil error. Otherwise the trade is recorded as CREATED.
func (s *TradeService) CreateTrade(req CreateTradeRequest) (*domain.Trade, error) {
	seq, id := s.trades.NextID()
	now := s.now()
	trade := &domain.Trade{
		TradeID:   id,
		Seq:       seq,
		ISIN:      req.ISIN,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Status:    domain.TradeStatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if !s.instruments.Exists(req.ISIN) {
		trade.Reject(fmt.Sprintf(reasonInvalidISIN, req.ISIN))
		if err := s.record(trade); err != nil {
			return nil, err
		}
		return trade, fmt.Errorf("trade %s rejected, isin %q: %w", id, req.ISIN, domain.ErrInvalidInstrument)
	}

	mid := s.prices.MidPrice(req.ISIN)
	if dev, ok := engine.DeviationPercent(req.Price, mid); !ok || dev > s.threshold {
		trade.Reject(ReasonPriceDeviation)
		s.logger.Debug("trade price outside threshold",
			slog.String("trade_id", id),
			slog.Float64("price", req.Price),
			slog.Float64("mid", mid),
			slog.Float64("deviation_pct", dev),
		)
	}

	if err := s.record(trade); err != nil {
		return nil, err
	}
	return trade, nil
}

// ExecuteTrade moves a trade to EXECUTED. A simulated system failure
// returns domain.ErrSystemFailure and leaves the trade unchanged, so the
// call may be retried.
func (s *TradeService) ExecuteTrade(id string) (*domain.Trade, error) {
	return s.transition("execute", id, func(t *domain.Trade) error {
		if err := t.CanExecute(); err != nil {
			return err
		}
		if s.prices.SimulateExecutionFailure() {
			return domain.ErrSystemFailure
		}
		t.MarkExecuted(s.now())
		return nil
	})
}

// ConfirmTrade moves an EXECUTED trade to CONFIRMED.
func (s *TradeService) ConfirmTrade(id string) (*domain.Trade, error) {
	return s.transition("confirm", id, func(t *domain.Trade) error {
		return t.Confirm(s.now())
	})
}

// CancelTrade moves any trade that is not CONFIRMED to CANCELLED.
func (s *TradeService) CancelTrade(id string) (*domain.Trade, error) {
	return s.transition("cancel", id, func(t *domain.Trade) error {
		return t.Cancel(s.now())
	})
}

// GetTrade returns a snapshot of a trade.
func (s *TradeService) GetTrade(id string) (*domain.Trade, error) {
	t, err := s.trades.Get(id)
	if err != nil {
		return nil, fmt.Errorf("trade %s: %w", id, err)
	}
	return t, nil
}

// History returns snapshots of every trade ever created, in issuance order.
func (s *TradeService) History() []*domain.Trade {
	return s.trades.List()
}

// VerifyStatus reports whether the trade's current status equals expected.
// expected must name a known status.
func (s *TradeService) VerifyStatus(id string, expected domain.TradeStatus) (bool, *domain.Trade, error) {
	if !ValidTradeStatuses[expected] {
		return false, nil, &domain.ValidationError{
			Message: fmt.Sprintf("unknown trade status: %s", expected),
		}
	}
	t, err := s.GetTrade(id)
	if err != nil {
		return false, nil, err
	}
	return t.Status == expected, t, nil
}

// ValidTradeStatuses lists all valid trade status values for validation.
var ValidTradeStatuses = map[domain.TradeStatus]bool{
	domain.TradeStatusCreated:   true,
	domain.TradeStatusRejected:  true,
	domain.TradeStatusExecuted:  true,
	domain.TradeStatusConfirmed: true,
	domain.TradeStatusCancelled: true,
}

func (s *TradeService) record(trade *domain.Trade) error {
	if err := s.trades.Create(trade); err != nil {
		return err
	}
	s.metrics.TradeCreated(string(trade.Status))
	s.logger.Info("trade created",
		slog.String("trade_id", trade.TradeID),
		slog.String("isin", trade.ISIN),
		slog.Int64("quantity", trade.Quantity),
		slog.Float64("price", trade.Price),
		slog.String("status", string(trade.Status)),
	)
	s.notify(trade)
	return nil
}

func (s *TradeService) transition(op, id string, fn func(t *domain.Trade) error) (*domain.Trade, error) {
	t, err := s.trades.Update(id, fn)
	if err != nil {
		code := errorCode(err)
		s.metrics.TransitionError(op, code)
		level := slog.LevelDebug
		if errors.Is(err, domain.ErrSystemFailure) {
			level = slog.LevelWarn
		}
		s.logger.Log(context.Background(), level, "trade operation refused",
			slog.String("operation", op),
			slog.String("trade_id", id),
			slog.String("error", code),
		)
		return nil, fmt.Errorf("trade %s: %w", id, err)
	}

	s.metrics.Transition(string(t.Status))
	s.logger.Debug("trade transitioned",
		slog.String("operation", op),
		slog.String("trade_id", id),
		slog.String("status", string(t.Status)),
	)
	s.notify(t)
	return t, nil
}

func (s *TradeService) notify(t *domain.Trade) {
	if s.notifier == nil {
		return
	}
	snapshot := *t
	s.notifier.NotifyTrade(&snapshot)
}

// errorCode returns the sentinel code for err, or "internal" if err wraps
// none of the lifecycle sentinels.
func errorCode(err error) string {
	for _, sentinel := range []error{
		domain.ErrTradeNotFound,
		domain.ErrAlreadyConfirmed,
		domain.ErrCannotExecuteRejected,
		domain.ErrInvalidTransition,
		domain.ErrSystemFailure,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal"
}
