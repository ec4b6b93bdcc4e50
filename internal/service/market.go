package service

import (
	"fmt"

	"github.com/efreitasn/mocktrader/internal/domain"
	"github.com/efreitasn/mocktrader/internal/engine"
)

// MarketService answers instrument and market data queries.
type MarketService struct {
	instruments *domain.InstrumentRegistry
	quotes      *engine.QuoteGenerator
}

// NewMarketService creates a new MarketService.
func NewMarketService(instruments *domain.InstrumentRegistry, quotes *engine.QuoteGenerator) *MarketService {
	return &MarketService{
		instruments: instruments,
		quotes:      quotes,
	}
}

// FetchInstrument returns the catalog entry for isin.
func (s *MarketService) FetchInstrument(isin string) (*domain.Instrument, error) {
	return s.instruments.Fetch(isin)
}

// SearchInstruments returns instruments matching term by name or ISIN.
func (s *MarketService) SearchInstruments(term string) []*domain.Instrument {
	return s.instruments.Search(term)
}

// GetQuote returns the current synthetic quote for isin. Quotes are
// generated for any well-formed ISIN, catalogued or not.
func (s *MarketService) GetQuote(isin string) (*domain.Quote, error) {
	if !domain.IsValidISIN(isin) {
		return nil, fmt.Errorf("isin %q: %w", isin, domain.ErrInvalidFormat)
	}
	return s.quotes.Quote(isin), nil
}

// ValidateDeviation reports whether price lies within thresholdPercent of
// the current mid price for isin.
func (s *MarketService) ValidateDeviation(isin string, price, thresholdPercent float64) (bool, error) {
	if !domain.IsValidISIN(isin) {
		return false, fmt.Errorf("isin %q: %w", isin, domain.ErrInvalidFormat)
	}
	if thresholdPercent < 0 {
		return false, &domain.ValidationError{Message: "threshold must be >= 0"}
	}
	return s.quotes.ValidateDeviation(isin, price, thresholdPercent), nil
}
