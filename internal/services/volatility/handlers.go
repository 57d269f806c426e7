package volatility

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires the volatility-regime tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("get_volatility_score", "Compute a symbol's volatility regime and risk score.",
		map[string]any{"type": "object", "properties": map[string]any{
			"symbol": map[string]any{"type": "string"},
		}, "required": []string{"symbol"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				Symbol string `json:"symbol"`
			}
			if err := json.Unmarshal(args, &wire); err != nil || wire.Symbol == "" {
				return nil, apperr.NewInvalidParams("missing or invalid symbol argument")
			}
			score, err := svc.GetVolatilityScore(ctx, wire.Symbol)
			if err != nil {
				return map[string]any{"error": err.Error(), "symbol": wire.Symbol}, nil
			}
			return score, nil
		})
}
