package technical

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires the technical-analysis tools into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	schema := map[string]any{"type": "object", "properties": map[string]any{
		"symbol": map[string]any{"type": "string"},
	}, "required": []string{"symbol"}}

	registry.Register("get_indicators", "Return the raw technical indicator snapshot for a symbol.", schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			symbol, err := decodeSymbol(args)
			if err != nil {
				return nil, err
			}
			snap, err := svc.GetIndicators(ctx, symbol)
			if err != nil {
				return map[string]any{"error": err.Error(), "symbol": symbol}, nil
			}
			return snap, nil
		})

	registry.Register("generate_signal", "Generate a BUY/SELL/HOLD technical signal for a symbol.", schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			symbol, err := decodeSymbol(args)
			if err != nil {
				return nil, err
			}
			signal, err := svc.GenerateSignal(ctx, symbol)
			if err != nil {
				return map[string]any{"error": err.Error(), "symbol": symbol}, nil
			}
			return signal, nil
		})
}

func decodeSymbol(args json.RawMessage) (string, error) {
	var wire struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(args, &wire); err != nil || wire.Symbol == "" {
		return "", apperr.NewInvalidParams("missing or invalid symbol argument")
	}
	return wire.Symbol, nil
}
