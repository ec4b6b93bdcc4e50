package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/service"
	"github.com/go-chi/chi/v5"
)

// InstrumentHandler handles HTTP requests for instrument and market data
// endpoints.
type InstrumentHandler struct {
	marketSvc        *service.MarketService
	defaultThreshold float64
}

// NewInstrumentHandler creates a new InstrumentHandler. defaultThreshold is
// used by ValidateDeviation when the request names none.
func NewInstrumentHandler(marketSvc *service.MarketService, defaultThreshold float64) *InstrumentHandler {
	return &InstrumentHandler{marketSvc: marketSvc, defaultThreshold: defaultThreshold}
}

// instrumentResponse is the JSON form of a catalog entry.
type instrumentResponse struct {
	ISIN string `json:"isin"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// instrumentListResponse is the JSON response for GET /instruments.
type instrumentListResponse struct {
	Instruments []instrumentResponse `json:"instruments"`
}

// quoteResponse is the JSON response for GET /instruments/{isin}/quote.
type quoteResponse struct {
	ISIN        string  `json:"isin"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	Last        float64 `json:"last"`
	Mid         float64 `json:"mid"`
	GeneratedAt string  `json:"generated_at"`
}

// deviationResponse is the JSON response for GET /instruments/{isin}/deviation.
type deviationResponse struct {
	ISIN             string  `json:"isin"`
	Price            float64 `json:"price"`
	ThresholdPercent float64 `json:"threshold_percent"`
	WithinThreshold  bool    `json:"within_threshold"`
}

// Search handles GET /instruments?q=term.
func (h *InstrumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	found := h.marketSvc.SearchInstruments(r.URL.Query().Get("q"))

	resp := instrumentListResponse{Instruments: make([]instrumentResponse, len(found))}
	for i, inst := range found {
		resp.Instruments[i] = buildInstrumentResponse(inst)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /instruments/{isin}.
func (h *InstrumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.marketSvc.FetchInstrument(chi.URLParam(r, "isin"))
	if err != nil {
		mapInstrumentError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInstrumentResponse(inst))
}

// GetQuote handles GET /instruments/{isin}/quote.
func (h *InstrumentHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.marketSvc.GetQuote(chi.URLParam(r, "isin"))
	if err != nil {
		mapInstrumentError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		ISIN:        q.ISIN,
		Bid:         q.Bid,
		Ask:         q.Ask,
		Last:        q.Last,
		Mid:         q.Mid(),
		GeneratedAt: q.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

// ValidateDeviation handles GET /instruments/{isin}/deviation. price is
// required; threshold defaults to the trade rejection threshold.
func (h *InstrumentHandler) ValidateDeviation(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")
	query := r.URL.Query()

	price, err := parseFiniteFloat(query.Get("price"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "price query parameter must be a number")
		return
	}

	threshold := h.defaultThreshold
	if raw := query.Get("threshold"); raw != "" {
		threshold, err = parseFiniteFloat(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "threshold query parameter must be a number")
			return
		}
	}

	ok, err := h.marketSvc.ValidateDeviation(isin, price, threshold)
	if err != nil {
		mapInstrumentError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, deviationResponse{
		ISIN:             isin,
		Price:            price,
		ThresholdPercent: threshold,
		WithinThreshold:  ok,
	})
}

func parseFiniteFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrRange
	}
	return f, nil
}

func buildInstrumentResponse(inst *domain.Instrument) instrumentResponse {
	return instrumentResponse{
		ISIN: inst.ISIN,
		Name: inst.Name,
		Type: inst.Type,
	}
}

// mapInstrumentError maps domain errors to HTTP responses for instrument
// endpoints.
func mapInstrumentError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidFormat):
		WriteError(w, http.StatusBadRequest, "invalid_format", err.Error())
	case errors.Is(err, domain.ErrInstrumentNotFound):
		WriteError(w, http.StatusNotFound, "instrument_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
