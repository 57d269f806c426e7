package simulation

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires every simulation-engine tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("simulate_trade", "Simulate bull/base/bear scenarios for a trade from real historical volatility.",
		map[string]any{"type": "object", "properties": map[string]any{
			"symbol":                  map[string]any{"type": "string"},
			"quantity":                map[string]any{"type": "number"},
			"action":                  map[string]any{"type": "string"},
			"entry_price":             map[string]any{"type": "number"},
			"current_portfolio_value": map[string]any{"type": "number"},
		}, "required": []string{"symbol", "quantity", "action", "entry_price"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Symbol                string  `json:"symbol"`
				Quantity              float64 `json:"quantity"`
				Action                string  `json:"action"`
				EntryPrice            float64 `json:"entry_price"`
				CurrentPortfolioValue float64 `json:"current_portfolio_value"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Symbol == "" || in.Action == "" {
				return nil, apperr.NewInvalidParams("symbol, quantity, action, and entry_price are required")
			}
			if in.CurrentPortfolioValue <= 0 {
				in.CurrentPortfolioValue = 100000
			}
			result, err := svc.SimulateTrade(ctx, in.Symbol, in.Quantity, in.Action, in.EntryPrice, in.CurrentPortfolioValue)
			if err != nil {
				return apperr.ToolError{Error: err.Error(), Symbol: in.Symbol}, nil
			}
			return result, nil
		})

	registry.Register("simulate_strategy", "Backtest buy_and_hold, momentum, or mean_reversion over historical data.",
		map[string]any{"type": "object", "properties": map[string]any{
			"strategy_type":   map[string]any{"type": "string", "enum": []string{"buy_and_hold", "momentum", "mean_reversion"}},
			"symbol":          map[string]any{"type": "string"},
			"initial_capital": map[string]any{"type": "number"},
			"timeframe_days":  map[string]any{"type": "integer"},
		}, "required": []string{"strategy_type", "symbol"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				StrategyType   string  `json:"strategy_type"`
				Symbol         string  `json:"symbol"`
				InitialCapital float64 `json:"initial_capital"`
				TimeframeDays  int     `json:"timeframe_days"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.StrategyType == "" || in.Symbol == "" {
				return nil, apperr.NewInvalidParams("strategy_type and symbol are required")
			}
			if in.InitialCapital <= 0 {
				in.InitialCapital = 10000
			}
			if in.TimeframeDays <= 0 {
				in.TimeframeDays = 90
			}
			result, err := svc.SimulateStrategy(ctx, in.StrategyType, in.Symbol, in.InitialCapital, in.TimeframeDays)
			if err != nil {
				return apperr.ToolError{Error: err.Error(), Symbol: in.Symbol}, nil
			}
			return result, nil
		})

	registry.Register("simulate_portfolio_rebalance", "Simulate rebalancing a portfolio to a target allocation.",
		map[string]any{"type": "object", "properties": map[string]any{
			"current_positions": map[string]any{"type": "array", "items": map[string]any{"type": "object"}},
			"target_allocation": map[string]any{"type": "object"},
		}, "required": []string{"current_positions", "target_allocation"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				CurrentPositions []PositionInput    `json:"current_positions"`
				TargetAllocation map[string]float64 `json:"target_allocation"`
			}
			if err := json.Unmarshal(args, &in); err != nil || len(in.CurrentPositions) == 0 {
				return nil, apperr.NewInvalidParams("current_positions and target_allocation are required")
			}
			result, err := svc.SimulatePortfolioRebalance(ctx, in.CurrentPositions, in.TargetAllocation)
			if err != nil {
				return apperr.ToolError{Error: err.Error()}, nil
			}
			return result, nil
		})

	registry.Register("calculate_position_size", "Calculate a risk-based position size given an entry and stop-loss price.",
		map[string]any{"type": "object", "properties": map[string]any{
			"account_value":      map[string]any{"type": "number"},
			"risk_per_trade_pct": map[string]any{"type": "number"},
			"entry_price":        map[string]any{"type": "number"},
			"stop_loss_price":    map[string]any{"type": "number"},
		}, "required": []string{"account_value", "risk_per_trade_pct", "entry_price", "stop_loss_price"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var in struct {
				AccountValue    float64 `json:"account_value"`
				RiskPerTradePct float64 `json:"risk_per_trade_pct"`
				EntryPrice      float64 `json:"entry_price"`
				StopLossPrice   float64 `json:"stop_loss_price"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.AccountValue <= 0 {
				return nil, apperr.NewInvalidParams("account_value, risk_per_trade_pct, entry_price, and stop_loss_price are required")
			}
			result, err := CalculatePositionSize(in.AccountValue, in.RiskPerTradePct, in.EntryPrice, in.StopLossPrice)
			if err != nil {
				return apperr.ToolError{Error: err.Error()}, nil
			}
			return result, nil
		})
}
