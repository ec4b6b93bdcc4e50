package domain

import "time"

// Webhook events emitted by the trade lifecycle.
const (
	EventTradeCreated   = "trade.created"
	EventTradeRejected  = "trade.rejected"
	EventTradeExecuted  = "trade.executed"
	EventTradeConfirmed = "trade.confirmed"
	EventTradeCancelled = "trade.cancelled"
)

// EventForStatus returns the webhook event announcing a trade entering s.
func EventForStatus(s TradeStatus) string {
	switch s {
	case TradeStatusRejected:
		return EventTradeRejected
	case TradeStatusExecuted:
		return EventTradeExecuted
	case TradeStatusConfirmed:
		return EventTradeConfirmed
	case TradeStatusCancelled:
		return EventTradeCancelled
	}
	return EventTradeCreated
}

// Webhook represents a subscriber's callback for one trade event.
type Webhook struct {
	WebhookID    string
	SubscriberID string
	Event        string
	URL          string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
