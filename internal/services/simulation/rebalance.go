package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/autofinance/control-plane/internal/services/market"
)

// PositionInput is one current holding passed to simulate_portfolio_rebalance.
type PositionInput struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
}

// PositionView is one priced, valued holding in the rebalance result.
type PositionView struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AvgPrice     float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	CurrentValue float64 `json:"current_value"`
	PnL          float64 `json:"pnl"`
}

// RebalanceTrade is one required trade to reach the target allocation.
type RebalanceTrade struct {
	Symbol           string  `json:"symbol"`
	CurrentWeightPct float64 `json:"current_weight_pct"`
	TargetWeightPct  float64 `json:"target_weight_pct"`
	Action           string  `json:"action"`
	Shares           float64 `json:"shares"`
	EstimatedValue   float64 `json:"estimated_value"`
	CurrentPrice     float64 `json:"current_price"`
}

// RebalanceSimulation is the payload of simulate_portfolio_rebalance.
type RebalanceSimulation struct {
	PortfolioValue  float64          `json:"portfolio_value"`
	Positions       []PositionView   `json:"positions"`
	RebalanceTrades []RebalanceTrade `json:"rebalance_trades"`
	TradesRequired  int              `json:"trades_required"`
	Timestamp       time.Time        `json:"timestamp"`
}

// SimulatePortfolioRebalance prices current holdings and computes the
// trades required to reach targetAllocation (spec §4.10).
func (s *Service) SimulatePortfolioRebalance(ctx context.Context, currentPositions []PositionInput, targetAllocation map[string]float64) (RebalanceSimulation, error) {
	var totalValue float64
	positions := make([]PositionView, 0, len(currentPositions))

	for _, pos := range currentPositions {
		symbol := market.NormalizeSymbol(pos.Symbol)
		currentPrice := pos.AvgPrice
		if closes, err := s.quotes.PriceHistory(ctx, symbol, 5); err == nil && len(closes) > 0 {
			currentPrice = closes[len(closes)-1]
		}

		value := pos.Quantity * currentPrice
		totalValue += value
		positions = append(positions, PositionView{
			Symbol: symbol, Quantity: pos.Quantity, AvgPrice: pos.AvgPrice,
			CurrentPrice: currentPrice, CurrentValue: round2(value),
			PnL: round2((currentPrice - pos.AvgPrice) * pos.Quantity),
		})
	}

	if totalValue == 0 {
		return RebalanceSimulation{}, fmt.Errorf("simulation: portfolio has zero value")
	}

	trades := make([]RebalanceTrade, 0, len(positions))
	required := 0
	for _, pos := range positions {
		currentWeight := pos.CurrentValue / totalValue
		targetWeight := targetAllocation[pos.Symbol]
		diffValue := (targetWeight - currentWeight) * totalValue
		diffShares := 0.0
		if pos.CurrentPrice > 0 {
			diffShares = float64(int(diffValue / pos.CurrentPrice))
		}

		action := "HOLD"
		switch {
		case diffShares > 0:
			action = "BUY"
			required++
		case diffShares < 0:
			action = "SELL"
			required++
		}

		trades = append(trades, RebalanceTrade{
			Symbol: pos.Symbol, CurrentWeightPct: round2(currentWeight * 100), TargetWeightPct: round2(targetWeight * 100),
			Action: action, Shares: absFloat(diffShares), EstimatedValue: round2(absFloat(diffValue)), CurrentPrice: pos.CurrentPrice,
		})
	}

	return RebalanceSimulation{
		PortfolioValue: round2(totalValue), Positions: positions, RebalanceTrades: trades,
		TradesRequired: required, Timestamp: time.Now().UTC(),
	}, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
