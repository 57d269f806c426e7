package fundamental

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires the fundamental-analysis tools into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	schema := map[string]any{"type": "object", "properties": map[string]any{
		"symbol": map[string]any{"type": "string"},
	}, "required": []string{"symbol"}}

	registry.Register("analyze_fundamentals", "Score a symbol's valuation, quality, and growth fundamentals.", schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				Symbol string `json:"symbol"`
			}
			if err := json.Unmarshal(args, &wire); err != nil || wire.Symbol == "" {
				return nil, apperr.NewInvalidParams("missing or invalid symbol argument")
			}
			analysis, err := svc.Analyze(ctx, wire.Symbol)
			if err != nil {
				return map[string]any{"error": err.Error(), "symbol": wire.Symbol}, nil
			}
			return analysis, nil
		})
}
