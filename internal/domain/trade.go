package domain

import (
	"fmt"
	"time"
)

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	TradeStatusCreated   TradeStatus = "CREATED"
	TradeStatusRejected  TradeStatus = "REJECTED"
	TradeStatusExecuted  TradeStatus = "EXECUTED"
	TradeStatusConfirmed TradeStatus = "CONFIRMED"
	TradeStatusCancelled TradeStatus = "CANCELLED"
)

// Terminal reports whether no further transition is permitted from s.
func (s TradeStatus) Terminal() bool {
	switch s {
	case TradeStatusRejected, TradeStatusConfirmed, TradeStatusCancelled:
		return true
	}
	return false
}

// TradeIDPrefix is prepended to the zero-padded sequence number.
const TradeIDPrefix = "TRD"

// FormatTradeID renders a sequence number as a trade ID, e.g. TRD00000001.
func FormatTradeID(seq uint64) string {
	return fmt.Sprintf("%s%08d", TradeIDPrefix, seq)
}

// Trade is a request to trade an instrument at a price. RejectionReason
// is non-empty if and only if Status is TradeStatusRejected.
type Trade struct {
	TradeID         string
	Seq             uint64
	ISIN            string
	Quantity        int64
	Price           float64
	Status          TradeStatus
	RejectionReason string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Reject moves a freshly built trade to REJECTED with the given reason.
func (t *Trade) Reject(reason string) {
	t.Status = TradeStatusRejected
	t.RejectionReason = reason
}

// CanExecute returns the error that forbids execution, or nil. Only
// CONFIRMED and REJECTED trades refuse; a CANCELLED trade may still run.
func (t *Trade) CanExecute() error {
	switch t.Status {
	case TradeStatusConfirmed:
		return ErrAlreadyConfirmed
	case TradeStatusRejected:
		return ErrCannotExecuteRejected
	}
	return nil
}

// MarkExecuted moves the trade to EXECUTED. Callers check CanExecute first.
func (t *Trade) MarkExecuted(now time.Time) {
	t.setStatus(TradeStatusExecuted, now)
}

// Confirm moves an EXECUTED trade to CONFIRMED.
func (t *Trade) Confirm(now time.Time) error {
	if t.Status != TradeStatusExecuted {
		return ErrInvalidTransition
	}
	t.setStatus(TradeStatusConfirmed, now)
	return nil
}

// Cancel moves any non-CONFIRMED trade to CANCELLED.
func (t *Trade) Cancel(now time.Time) error {
	if t.Status == TradeStatusConfirmed {
		return ErrInvalidTransition
	}
	t.setStatus(TradeStatusCancelled, now)
	return nil
}

// setStatus keeps RejectionReason tied to the REJECTED state.
func (t *Trade) setStatus(s TradeStatus, now time.Time) {
	t.Status = s
	if s != TradeStatusRejected {
		t.RejectionReason = ""
	}
	t.UpdatedAt = now
}
