package handler

import (
	"errors"
	"net/http"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/service"
	"github.com/go-chi/chi/v5"
)

// TradeHandler handles HTTP requests for trade lifecycle endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// createTradeRequest is the JSON request body for POST /trades.
type createTradeRequest struct {
	ISIN     string   `json:"isin"`
	Quantity *int64   `json:"quantity"`
	Price    *float64 `json:"price"`
}

// tradeResponse is the JSON form of a trade. rejection_reason is null
// unless the trade is REJECTED.
type tradeResponse struct {
	TradeID         string  `json:"trade_id"`
	ISIN            string  `json:"isin"`
	Quantity        int64   `json:"quantity"`
	Price           float64 `json:"price"`
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejection_reason"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// tradeListResponse is the JSON response for GET /trades.
type tradeListResponse struct {
	Trades []tradeResponse `json:"trades"`
}

// rejectedTradeResponse is the 422 body for an unknown instrument: the
// standard error fields plus the trade that was recorded as REJECTED.
type rejectedTradeResponse struct {
	Error   string        `json:"error"`
	Message string        `json:"message"`
	Trade   tradeResponse `json:"trade"`
}

// statusResponse is the JSON response for GET /trades/{trade_id}/status.
type statusResponse struct {
	TradeID  string `json:"trade_id"`
	Status   string `json:"status"`
	Expected string `json:"expected"`
	Matches  bool   `json:"matches"`
}

// Create handles POST /trades.
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Quantity == nil || req.Price == nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "quantity and price are required")
		return
	}

	trade, err := h.tradeSvc.CreateTrade(service.CreateTradeRequest{
		ISIN:     req.ISIN,
		Quantity: *req.Quantity,
		Price:    *req.Price,
	})
	if errors.Is(err, domain.ErrInvalidInstrument) && trade != nil {
		WriteJSON(w, http.StatusUnprocessableEntity, rejectedTradeResponse{
			Error:   "invalid_instrument",
			Message: err.Error(),
			Trade:   buildTradeResponse(trade),
		})
		return
	}
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildTradeResponse(trade))
}

// History handles GET /trades.
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	trades := h.tradeSvc.History()

	resp := tradeListResponse{Trades: make([]tradeResponse, len(trades))}
	for i, t := range trades {
		resp.Trades[i] = buildTradeResponse(t)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /trades/{trade_id}.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	trade, err := h.tradeSvc.GetTrade(chi.URLParam(r, "trade_id"))
	if err != nil {
		mapTradeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildTradeResponse(trade))
}

// Execute handles POST /trades/{trade_id}/execute.
func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tradeSvc.ExecuteTrade)
}

// Confirm handles POST /trades/{trade_id}/confirm.
func (h *TradeHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tradeSvc.ConfirmTrade)
}

// Cancel handles POST /trades/{trade_id}/cancel.
func (h *TradeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tradeSvc.CancelTrade)
}

func (h *TradeHandler) transition(w http.ResponseWriter, r *http.Request, op func(id string) (*domain.Trade, error)) {
	trade, err := op(chi.URLParam(r, "trade_id"))
	if err != nil {
		mapTradeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildTradeResponse(trade))
}

// VerifyStatus handles GET /trades/{trade_id}/status?expected=STATUS.
func (h *TradeHandler) VerifyStatus(w http.ResponseWriter, r *http.Request) {
	expected := r.URL.Query().Get("expected")
	if expected == "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "expected query parameter is required")
		return
	}

	matches, trade, err := h.tradeSvc.VerifyStatus(chi.URLParam(r, "trade_id"), domain.TradeStatus(expected))
	if err != nil {
		mapTradeError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, statusResponse{
		TradeID:  trade.TradeID,
		Status:   string(trade.Status),
		Expected: expected,
		Matches:  matches,
	})
}

func buildTradeResponse(t *domain.Trade) tradeResponse {
	resp := tradeResponse{
		TradeID:   t.TradeID,
		ISIN:      t.ISIN,
		Quantity:  t.Quantity,
		Price:     t.Price,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt: t.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if t.RejectionReason != "" {
		reason := t.RejectionReason
		resp.RejectionReason = &reason
	}
	return resp
}

// mapTradeError maps domain errors to HTTP responses for trade endpoints.
func mapTradeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrTradeNotFound):
		WriteError(w, http.StatusNotFound, "trade_not_found", err.Error())
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		WriteError(w, http.StatusConflict, "already_confirmed", err.Error())
	case errors.Is(err, domain.ErrCannotExecuteRejected):
		WriteError(w, http.StatusConflict, "cannot_execute_rejected", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrSystemFailure):
		WriteError(w, http.StatusServiceUnavailable, "system_failure", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
