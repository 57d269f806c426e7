package simulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/autofinance/control-plane/internal/indicators"
	"github.com/autofinance/control-plane/internal/services/market"
)

// Trade is one simulated fill.
type Trade struct {
	Day    int     `json:"day"`
	Action string  `json:"action"`
	Price  float64 `json:"price"`
	Shares float64 `json:"shares"`
}

// StrategyResult is the payload of simulate_strategy.
type StrategyResult struct {
	Symbol           string    `json:"symbol"`
	Strategy         string    `json:"strategy"`
	TimeframeDays    int       `json:"timeframe_days"`
	InitialCapital   float64   `json:"initial_capital"`
	FinalValue       float64   `json:"final_value"`
	TotalReturnPct   float64   `json:"total_return_pct"`
	BuyHoldReturnPct float64   `json:"buy_hold_return_pct"`
	Alpha            float64   `json:"alpha"`
	TotalTrades      int       `json:"total_trades"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	MaxDrawdownPct   float64   `json:"max_drawdown_pct"`
	Trades           []Trade   `json:"trades"`
	Verdict          string    `json:"verdict"`
	Timestamp        time.Time `json:"timestamp"`
}

const strategyLookback = 20

// SimulateStrategy backtests buy_and_hold, momentum, or mean_reversion over
// the last timeframeDays closes (spec §4.10).
func (s *Service) SimulateStrategy(ctx context.Context, strategyType, rawSymbol string, initialCapital float64, timeframeDays int) (StrategyResult, error) {
	symbol := market.NormalizeSymbol(rawSymbol)

	fetchLen := timeframeDays + strategyLookback + 10
	closes, err := s.quotes.PriceHistory(ctx, symbol, fetchLen)
	if err != nil {
		return StrategyResult{}, fmt.Errorf("simulation: upstream unavailable for %s: %w", symbol, err)
	}
	if len(closes) < timeframeDays {
		return StrategyResult{}, fmt.Errorf("simulation: only %d days of data available for %s", len(closes), symbol)
	}
	closes = closes[len(closes)-timeframeDays:]

	useFractional := closes[0] > 500
	calcShares := func(capital, price float64) float64 {
		raw := (capital * 0.95) / price
		if useFractional {
			return math.Round(raw*1e6) / 1e6
		}
		return math.Trunc(raw)
	}

	var trades []Trade
	var portfolioValues []float64
	var finalValue float64

	switch strategyType {
	case "buy_and_hold":
		trades, portfolioValues, finalValue, err = backtestBuyAndHold(closes, initialCapital, calcShares)
	case "momentum":
		trades, portfolioValues, finalValue = backtestMomentum(closes, initialCapital, calcShares)
	case "mean_reversion":
		trades, portfolioValues, finalValue = backtestMeanReversion(closes, initialCapital, calcShares)
	default:
		return StrategyResult{}, fmt.Errorf("simulation: unknown strategy %q, use momentum, mean_reversion, or buy_and_hold", strategyType)
	}
	if err != nil {
		return StrategyResult{}, err
	}

	totalReturn := ((finalValue - initialCapital) / initialCapital) * 100
	buyHoldReturn := ((closes[len(closes)-1] - closes[0]) / closes[0]) * 100
	maxDD := maxDrawdownOf(portfolioValues)

	portfolioReturns := indicators.DailyReturns(portfolioValues)
	avgDaily := indicators.Mean(portfolioReturns)
	stdDaily := indicators.StdDev(portfolioReturns)
	sharpe := 0.0
	if stdDaily > 0 {
		sharpe = (avgDaily / stdDaily) * math.Sqrt(252)
	}

	recentTrades := trades
	if len(recentTrades) > 10 {
		recentTrades = recentTrades[len(recentTrades)-10:]
	}

	verdict := "UNDERPERFORMED"
	if totalReturn > buyHoldReturn {
		verdict = "OUTPERFORMED"
	}

	return StrategyResult{
		Symbol: symbol, Strategy: strategyType, TimeframeDays: timeframeDays,
		InitialCapital: initialCapital, FinalValue: round2(finalValue),
		TotalReturnPct: round2(totalReturn), BuyHoldReturnPct: round2(buyHoldReturn),
		Alpha: round2(totalReturn - buyHoldReturn), TotalTrades: len(trades),
		SharpeRatio: math.Round(sharpe*1000) / 1000, MaxDrawdownPct: round2(maxDD * 100),
		Trades: recentTrades, Verdict: verdict, Timestamp: time.Now().UTC(),
	}, nil
}

func backtestBuyAndHold(closes []float64, initialCapital float64, calcShares func(float64, float64) float64) ([]Trade, []float64, float64, error) {
	shares := calcShares(initialCapital, closes[0])
	if shares <= 0 {
		return nil, nil, 0, fmt.Errorf("simulation: insufficient capital (%.2f) to buy at %.2f", initialCapital, closes[0])
	}
	capital := initialCapital - shares*closes[0]

	trades := []Trade{{Day: 0, Action: "BUY", Price: closes[0], Shares: shares}}
	values := []float64{initialCapital}
	for _, price := range closes[1:] {
		values = append(values, capital+shares*price)
	}
	trades = append(trades, Trade{Day: len(closes) - 1, Action: "HOLD", Price: closes[len(closes)-1], Shares: shares})

	final := capital + shares*closes[len(closes)-1]
	return trades, values, final, nil
}

func backtestMomentum(closes []float64, initialCapital float64, calcShares func(float64, float64) float64) ([]Trade, []float64, float64) {
	capital := initialCapital
	var position float64
	var trades []Trade
	values := []float64{initialCapital}

	for i := strategyLookback; i < len(closes); i++ {
		sma := indicators.Mean(closes[i-strategyLookback : i])
		price := closes[i]

		switch {
		case price > sma && position == 0:
			shares := calcShares(capital, price)
			if shares > 0 {
				capital -= shares * price
				position = shares
				trades = append(trades, Trade{Day: i, Action: "BUY", Price: price, Shares: shares})
			}
		case price < sma && position > 0:
			capital += position * price
			trades = append(trades, Trade{Day: i, Action: "SELL", Price: price, Shares: position})
			position = 0
		}
		values = append(values, capital+position*price)
	}

	return trades, values, capital + position*closes[len(closes)-1]
}

// backtestMeanReversion enters when the fractional deviation from the
// 20-day SMA, (price-sma)/sma, falls below -sigma*0.5, and exits above
// +sigma*0.5, with sigma
// the daily-return standard deviation times sqrt(20) (spec §4.10, which
// supersedes server.py's additional 1%-10% clamp; see DESIGN.md).
func backtestMeanReversion(closes []float64, initialCapital float64, calcShares func(float64, float64) float64) ([]Trade, []float64, float64) {
	capital := initialCapital
	var position float64
	var trades []Trade
	values := []float64{initialCapital}

	returns := indicators.DailyReturns(closes)
	sigma := indicators.StdDev(returns) * math.Sqrt(strategyLookback)
	threshold := sigma * 0.5

	for i := strategyLookback; i < len(closes); i++ {
		sma := indicators.Mean(closes[i-strategyLookback : i])
		price := closes[i]
		deviation := (price - sma) / sma

		switch {
		case deviation < -threshold && position == 0:
			shares := calcShares(capital, price)
			if shares > 0 {
				capital -= shares * price
				position = shares
				trades = append(trades, Trade{Day: i, Action: "BUY", Price: price, Shares: shares})
			}
		case deviation > threshold && position > 0:
			capital += position * price
			trades = append(trades, Trade{Day: i, Action: "SELL", Price: price, Shares: position})
			position = 0
		}
		values = append(values, capital+position*price)
	}

	return trades, values, capital + position*closes[len(closes)-1]
}
