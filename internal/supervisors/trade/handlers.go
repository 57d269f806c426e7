package trade

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires the trading-supervisor's single entry point.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("process_trade_request",
		"Run the full trade pipeline: gather intelligence, validate risk, execute if approved.",
		map[string]any{"type": "object", "properties": map[string]any{
			"symbol":   map[string]any{"type": "string"},
			"quantity": map[string]any{"type": "number"},
		}, "required": []string{"symbol", "quantity"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Symbol   string  `json:"symbol"`
				Quantity float64 `json:"quantity"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Symbol == "" || in.Quantity <= 0 {
				return nil, apperr.NewInvalidParams("symbol and a positive quantity are required")
			}
			return svc.ProcessTradeRequest(ctx, in.Symbol, in.Quantity), nil
		})
}
