// Package volatility implements C3's Volatility analytical service: a
// rolling-window regime classifier wrapped around C2's realized-volatility
// calculation, grounded in
// original_source/mcp-servers/volatility/server.py's
// calculate_historical_volatility/calculate_volatility_regime/
// get_volatility_score. Its risk-level bands (LOW<0.2, MEDIUM<0.5, HIGH
// else) are this service's own and intentionally differ from the market
// service's bands — they score a different thing (a rolling-regime read,
// not a single realized-volatility figure).
package volatility

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/indicators"
	"github.com/autofinance/control-plane/internal/providers"
)

const (
	windowDays   = 30
	lookbackDays = 365
)

type Service struct {
	quotes providers.QuoteProvider
	log    zerolog.Logger
}

func New(quotes providers.QuoteProvider, log zerolog.Logger) *Service {
	return &Service{quotes: quotes, log: log.With().Str("service", "volatility").Logger()}
}

// Score is the comprehensive volatility assessment for a symbol.
type Score struct {
	Symbol     string    `json:"symbol"`
	Volatility float64   `json:"volatility"`
	RiskLevel  string    `json:"risk_level"`
	Regime     string    `json:"regime"`
	RiskScore  float64   `json:"risk_score"`
	Timestamp  time.Time `json:"timestamp"`
}

// GetVolatilityScore computes the current 30-day annualized volatility
// against a rolling 1-year distribution of 30-day windows, classifying the
// regime as HIGH when >1.5x the historical mean, LOW when <0.7x, else
// NORMAL.
func (s *Service) GetVolatilityScore(ctx context.Context, symbol string) (Score, error) {
	closes, err := s.quotes.PriceHistory(ctx, symbol, lookbackDays+windowDays)
	if err != nil {
		return Score{}, fmt.Errorf("fetching price history: %w", err)
	}
	if len(closes) < windowDays+2 {
		return Score{}, fmt.Errorf("insufficient history for %s: %d candles", symbol, len(closes))
	}

	currentWindow := closes[len(closes)-windowDays-1:]
	currentVol := windowVolatility(currentWindow)

	var historicalVols []float64
	for end := windowDays + 1; end <= len(closes); end += windowDays {
		start := end - windowDays - 1
		if start < 0 {
			continue
		}
		historicalVols = append(historicalVols, windowVolatility(closes[start:end]))
	}

	regime := classifyRegime(currentVol, historicalVols)
	riskLevel, riskScore := riskBand(currentVol)

	return Score{
		Symbol: symbol, Volatility: currentVol, RiskLevel: riskLevel,
		Regime: regime, RiskScore: riskScore, Timestamp: time.Now().UTC(),
	}, nil
}

func windowVolatility(closes []float64) float64 {
	returns := indicators.DailyReturns(closes)
	if len(returns) == 0 {
		return 0
	}
	return indicators.AnnualizedStdDev(returns)
}

// classifyRegime compares current volatility against the mean of a set of
// historical window volatilities.
func classifyRegime(current float64, historical []float64) string {
	if len(historical) == 0 {
		return "NORMAL"
	}
	mean := indicators.Mean(historical)
	switch {
	case current > mean*1.5:
		return "HIGH"
	case current < mean*0.7:
		return "LOW"
	default:
		return "NORMAL"
	}
}

// riskBand maps volatility to this service's own LOW/MEDIUM/HIGH bands and
// a continuous 0-1 risk score.
func riskBand(volatility float64) (string, float64) {
	switch {
	case volatility < 0.2:
		return "LOW", volatility / 0.2 * 0.3
	case volatility < 0.5:
		return "MEDIUM", 0.3 + (volatility-0.2)/0.3*0.4
	default:
		extra := (volatility - 0.5) / 0.5 * 0.3
		if extra > 0.3 {
			extra = 0.3
		}
		return "HIGH", 0.7 + extra
	}
}
