// Package simulation implements C10: trade scenario analysis, strategy
// backtesting, rebalance simulation, and position sizing, grounded in
// original_source/mcp-servers/simulation-engine/server.py's
// simulate_trade/simulate_strategy/simulate_portfolio_rebalance/
// calculate_position_size. The original fetches Yahoo Finance history
// directly; this engine instead draws historical closes from the same
// providers.QuoteProvider abstraction C2 uses (SPEC_FULL.md DOMAIN STACK),
// so both services exercise one deterministic-or-real provider boundary.
package simulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/indicators"
	"github.com/autofinance/control-plane/internal/providers"
	"github.com/autofinance/control-plane/internal/services/market"
)

// Service implements the simulation-engine tools.
type Service struct {
	quotes providers.QuoteProvider
	log    zerolog.Logger
}

// New builds a simulation Service backed by quotes.
func New(quotes providers.QuoteProvider, log zerolog.Logger) *Service {
	return &Service{quotes: quotes, log: log.With().Str("service", "simulation").Logger()}
}

// Scenario is one bull/base/bear projection leg.
type Scenario struct {
	Price     float64 `json:"price"`
	ReturnPct float64 `json:"return_pct"`
	PnL       float64 `json:"pnl"`
}

// RiskMetrics accompanies a trade simulation.
type RiskMetrics struct {
	AnnualizedVolatilityPct  float64 `json:"annualized_volatility_pct"`
	MaxHistoricalDrawdownPct float64 `json:"max_historical_drawdown_pct"`
	MaxPotentialLoss         float64 `json:"max_potential_loss"`
	DataPoints               int     `json:"data_points"`
}

// TradeSimulation is the payload of simulate_trade.
type TradeSimulation struct {
	Symbol         string              `json:"symbol"`
	Action         string              `json:"action"`
	Quantity       float64             `json:"quantity"`
	EntryPrice     float64             `json:"entry_price"`
	TradeValue     float64             `json:"trade_value"`
	PositionPct    float64             `json:"position_pct"`
	Scenarios      map[string]Scenario `json:"scenarios"`
	RiskMetrics    RiskMetrics         `json:"risk_metrics"`
	Recommendation string              `json:"recommendation"`
	Timestamp      time.Time           `json:"timestamp"`
}

// SimulateTrade projects bull/base/bear 30-day price outcomes from real
// historical volatility (spec §4.10).
func (s *Service) SimulateTrade(ctx context.Context, rawSymbol string, quantity float64, action string, entryPrice, portfolioValue float64) (TradeSimulation, error) {
	symbol := market.NormalizeSymbol(rawSymbol)
	closes, err := s.quotes.PriceHistory(ctx, symbol, 126)
	if err != nil {
		return TradeSimulation{}, fmt.Errorf("simulation: upstream unavailable for %s: %w", symbol, err)
	}
	if len(closes) < 20 {
		return TradeSimulation{}, fmt.Errorf("simulation: insufficient historical data for %s", symbol)
	}

	returns := indicators.DailyReturns(closes)
	avgDaily := indicators.Mean(returns)
	stdDaily := indicators.StdDev(returns)
	annualizedVol := stdDaily * math.Sqrt(252)
	maxDrawdown := maxDrawdownOf(closes)

	const days = 30
	sign := 1.0
	if action == "sell" || action == "SELL" {
		sign = -1.0
	}

	leg := func(sigmaMult float64) Scenario {
		ret := (avgDaily + sigmaMult*stdDaily) * days
		price := round2(entryPrice * (1 + ret))
		pnl := round2((price - entryPrice) * quantity * sign)
		return Scenario{Price: price, ReturnPct: round2(ret * 100), PnL: pnl}
	}

	tradeValue := entryPrice * quantity
	positionPct := (tradeValue / portfolioValue) * 100

	recommendation := "CAUTION"
	if positionPct < 10 && annualizedVol < 0.6 {
		recommendation = "PROCEED"
	}

	return TradeSimulation{
		Symbol: symbol, Action: action, Quantity: quantity, EntryPrice: entryPrice,
		TradeValue: round2(tradeValue), PositionPct: round2(positionPct),
		Scenarios: map[string]Scenario{
			"bull": leg(1.5),
			"base": leg(0),
			"bear": leg(-1.5),
		},
		RiskMetrics: RiskMetrics{
			AnnualizedVolatilityPct:  round2(annualizedVol * 100),
			MaxHistoricalDrawdownPct: round2(maxDrawdown * 100),
			MaxPotentialLoss:         round2(tradeValue * maxDrawdown),
			DataPoints:               len(closes),
		},
		Recommendation: recommendation,
		Timestamp:      time.Now().UTC(),
	}, nil
}

func maxDrawdownOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	peak := series[0]
	maxDD := 0.0
	for _, p := range series {
		if p > peak {
			peak = p
		}
		if peak == 0 {
			continue
		}
		dd := (peak - p) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
