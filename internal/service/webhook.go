package service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/metrics"
	"github.com/efreitasn/mocktrader/internal/store"
	"github.com/google/uuid"
)

var subscriberIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Valid webhook event types, in the order they are listed in errors.
var webhookEvents = []string{
	domain.EventTradeCreated,
	domain.EventTradeRejected,
	domain.EventTradeExecuted,
	domain.EventTradeConfirmed,
	domain.EventTradeCancelled,
}

func isValidWebhookEvent(event string) bool {
	for _, e := range webhookEvents {
		if e == event {
			return true
		}
	}
	return false
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	SubscriberID string
	URL          string
	Events       []string
}

// WebhookService handles webhook CRUD and trade event dispatch.
type WebhookService struct {
	store    *store.WebhookStore
	client   *http.Client
	metrics  *metrics.Metrics
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	webhookTimeout time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WebhookService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WebhookService{
		store: webhookStore,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		metrics: m,
		logger:  logger,
	}
}

// Upsert validates the request and creates or updates webhook subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]domain.Webhook, bool, error) {
	if !subscriberIDRegex.MatchString(req.SubscriberID) {
		return nil, false, &domain.ValidationError{
			Message: "subscriber_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}

	// Validate URL.
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return nil, false, &domain.ValidationError{Message: "url must use http or https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[string]bool, len(req.Events))
	deduped := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !isValidWebhookEvent(event) {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: " + strings.Join(webhookEvents, ", "),
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]domain.Webhook, 0, len(deduped))

	for _, event := range deduped {
		stored, created := s.store.Upsert(&domain.Webhook{
			WebhookID:    uuid.New().String(),
			SubscriberID: req.SubscriberID,
			Event:        event,
			URL:          req.URL,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if created {
			anyCreated = true
		}
		webhooks = append(webhooks, stored)
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions of a subscriber.
func (s *WebhookService) List(subscriberID string) ([]domain.Webhook, error) {
	if !subscriberIDRegex.MatchString(subscriberID) {
		return nil, &domain.ValidationError{
			Message: "subscriber_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	return s.store.ListBySubscriber(subscriberID), nil
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

// tradeEventPayload is the JSON payload for every trade.* webhook.
type tradeEventPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      tradeEventData `json:"data"`
}

type tradeEventData struct {
	TradeID         string  `json:"trade_id"`
	ISIN            string  `json:"isin"`
	Quantity        int64   `json:"quantity"`
	Price           float64 `json:"price"`
	Status          string  `json:"status"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
}

// NotifyTrade dispatches the webhook event matching the trade's current
// status to every subscriber of that event. Fire-and-forget: delivery
// errors are logged and counted, never returned.
func (s *WebhookService) NotifyTrade(trade *domain.Trade) {
	event := domain.EventForStatus(trade.Status)
	hooks := s.store.ListByEvent(event)
	if len(hooks) == 0 {
		return
	}

	payload := tradeEventPayload{
		Event:     event,
		Timestamp: trade.UpdatedAt.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data: tradeEventData{
			TradeID:         trade.TradeID,
			ISIN:            trade.ISIN,
			Quantity:        trade.Quantity,
			Price:           trade.Price,
			Status:          string(trade.Status),
			RejectionReason: trade.RejectionReason,
		},
	}

	for _, wh := range hooks {
		s.inflight.Add(1)
		go func(wh domain.Webhook) {
			defer s.inflight.Done()
			s.deliver(wh, event, payload)
		}(wh)
	}
}

// Wait blocks until every delivery started so far has finished.
func (s *WebhookService) Wait() {
	s.inflight.Wait()
}

// deliver sends the webhook payload via HTTP POST with the required headers.
func (s *WebhookService) deliver(wh domain.Webhook, eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.metrics.WebhookDelivery(eventType, "error")
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		s.metrics.WebhookDelivery(eventType, "error")
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		s.metrics.WebhookDelivery(eventType, "error")
		s.logger.Warn("webhook delivery failed",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()

	outcome := "ok"
	if resp.StatusCode >= 300 {
		outcome = "rejected"
	}
	s.metrics.WebhookDelivery(eventType, outcome)
	s.logger.Debug("webhook delivered",
		slog.String("webhook_id", wh.WebhookID),
		slog.String("event", eventType),
		slog.Int("status", resp.StatusCode),
	)
}
