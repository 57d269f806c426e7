package risk

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires every risk-policy tool into registry.
func RegisterTools(registry *rpcserver.Registry) {
	registry.Register("validate_trade", "Validate a trade proposal against risk policy.",
		map[string]any{"type": "object", "properties": map[string]any{
			"symbol": map[string]any{"type": "string"},
			"action": map[string]any{"type": "string"},
			"quantity": map[string]any{"type": "number"},
			"price": map[string]any{"type": "number"},
			"confidence": map[string]any{"type": "number"},
			"volatility": map[string]any{"type": "number"},
			"position_size_pct": map[string]any{"type": "number"},
			"trade_value": map[string]any{"type": "number"},
		}}, func(_ context.Context, args json.RawMessage) (any, error) {
			var in TradeInput
			var wire struct {
				Symbol           string  `json:"symbol"`
				Action           string  `json:"action"`
				Quantity         float64 `json:"quantity"`
				Price            float64 `json:"price"`
				Confidence       float64 `json:"confidence"`
				Volatility       float64 `json:"volatility"`
				PositionSizeFrac float64 `json:"position_size_pct"`
				TradeValue       float64 `json:"trade_value"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid validate_trade arguments")
			}
			in = TradeInput{
				Symbol: wire.Symbol, Action: wire.Action, Quantity: wire.Quantity, Price: wire.Price,
				Confidence: wire.Confidence, Volatility: wire.Volatility,
				PositionSizeFrac: wire.PositionSizeFrac, TradeValue: wire.TradeValue,
			}
			return ValidateTrade(in), nil
		})

	registry.Register("validate_rebalance", "Validate a rebalance proposal against risk policy.",
		map[string]any{"type": "object", "properties": map[string]any{
			"changes": map[string]any{"type": "array"},
			"total_value": map[string]any{"type": "number"},
			"max_turnover_fraction": map[string]any{"type": "number"},
		}}, func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				Changes []struct {
					Symbol string  `json:"symbol"`
					Value  float64 `json:"value"`
				} `json:"changes"`
				TotalValue          float64 `json:"total_value"`
				MaxTurnoverFraction float64 `json:"max_turnover_fraction"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid validate_rebalance arguments")
			}
			changes := make([]RebalanceChange, len(wire.Changes))
			for i, c := range wire.Changes {
				changes[i] = RebalanceChange{Symbol: c.Symbol, Value: c.Value}
			}
			maxTurnover := wire.MaxTurnoverFraction
			if maxTurnover == 0 {
				maxTurnover = 0.30
			}
			return ValidateRebalance(RebalanceInput{
				Changes: changes, TotalValue: wire.TotalValue, MaxTurnoverFraction: maxTurnover,
			}), nil
		})

	registry.Register("get_risk_policy", "Return the current risk policy constants.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			return Policy, nil
		})
}
