package execution

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires every portfolio-mutation tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("execute_trade", "Execute a single approved BUY/SELL trade against the portfolio.",
		map[string]any{"type": "object", "properties": map[string]any{
			"trade_id":   map[string]any{"type": "string"},
			"symbol":     map[string]any{"type": "string"},
			"action":     map[string]any{"type": "string"},
			"quantity":   map[string]any{"type": "number"},
			"price":      map[string]any{"type": "number"},
			"approved":   map[string]any{"type": "boolean"},
			"risk_score": map[string]any{"type": "number"},
		}, "required": []string{"trade_id", "symbol", "action", "quantity", "price", "approved"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				TradeID   string  `json:"trade_id"`
				Symbol    string  `json:"symbol"`
				Action    string  `json:"action"`
				Quantity  float64 `json:"quantity"`
				Price     float64 `json:"price"`
				Approved  bool    `json:"approved"`
				RiskScore float64 `json:"risk_score"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid execute_trade arguments")
			}
			return svc.ExecuteTrade(wire.TradeID, wire.Symbol, wire.Action, wire.Quantity, wire.Price, wire.Approved, wire.RiskScore), nil
		})

	registry.Register("apply_rebalance", "Apply a sequence of approved rebalance legs against the portfolio.",
		map[string]any{"type": "object", "properties": map[string]any{
			"rebalance_id": map[string]any{"type": "string"},
			"changes":      map[string]any{"type": "array"},
			"approved":     map[string]any{"type": "boolean"},
			"risk_score":   map[string]any{"type": "number"},
		}, "required": []string{"rebalance_id", "changes", "approved"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				RebalanceID string `json:"rebalance_id"`
				Changes     []struct {
					Symbol   string  `json:"symbol"`
					Action   string  `json:"action"`
					Quantity float64 `json:"quantity"`
					Price    float64 `json:"price"`
				} `json:"changes"`
				Approved  bool    `json:"approved"`
				RiskScore float64 `json:"risk_score"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid apply_rebalance arguments")
			}
			changes := make([]RebalanceChangeInput, len(wire.Changes))
			for i, c := range wire.Changes {
				changes[i] = RebalanceChangeInput{Symbol: c.Symbol, Action: c.Action, Quantity: c.Quantity, Price: c.Price}
			}
			return svc.ApplyRebalance(wire.RebalanceID, changes, wire.Approved, wire.RiskScore), nil
		})

	registry.Register("get_portfolio_state", "Return a consistent snapshot of the current portfolio.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			return svc.GetPortfolioState(), nil
		})

	registry.Register("update_position_prices", "Mark open positions to market without moving cash.",
		map[string]any{"type": "object", "properties": map[string]any{
			"prices": map[string]any{"type": "object"},
		}, "required": []string{"prices"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				Prices map[string]float64 `json:"prices"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid update_position_prices arguments")
			}
			updated, total := svc.UpdatePositionPrices(wire.Prices)
			return map[string]any{
				"updated_symbols":     updated,
				"new_portfolio_value": total,
			}, nil
		})

	registry.Register("reset_portfolio", "Reset the portfolio to an empty state with the given starting cash.",
		map[string]any{"type": "object", "properties": map[string]any{
			"initial_cash": map[string]any{"type": "number"},
		}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				InitialCash float64 `json:"initial_cash"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid reset_portfolio arguments")
			}
			if wire.InitialCash == 0 {
				wire.InitialCash = 100000
			}
			svc.ResetPortfolio(wire.InitialCash)
			return map[string]any{"success": true, "message": fmt.Sprintf("Portfolio reset with cash=%.2f", wire.InitialCash)}, nil
		})
}
