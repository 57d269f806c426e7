package market

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires every market-data tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("get_live_price", "Get the current price for a symbol.",
		schemaSymbol(), func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Symbol string `json:"symbol"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Symbol == "" {
				return nil, apperr.NewInvalidParams("symbol is required")
			}
			quote, err := svc.GetLivePrice(ctx, in.Symbol)
			if err != nil {
				return apperr.ToolError{Error: err.Error(), Symbol: in.Symbol}, nil
			}
			return quote, nil
		})

	registry.Register("get_candles", "Get OHLCV candles for a symbol.",
		map[string]any{"type": "object", "properties": map[string]any{
			"symbol": map[string]any{"type": "string"}, "timeframe": map[string]any{"type": "string"}, "periods": map[string]any{"type": "integer"},
		}}, func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Symbol    string `json:"symbol"`
				Timeframe string `json:"timeframe"`
				Periods   int    `json:"periods"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Symbol == "" {
				return nil, apperr.NewInvalidParams("symbol is required")
			}
			if in.Periods <= 0 {
				in.Periods = 100
			}
			tf := domain.Timeframe(in.Timeframe)
			if tf == "" {
				tf = domain.Timeframe1d
			}
			candles, err := svc.GetCandles(ctx, in.Symbol, tf, in.Periods)
			if err != nil {
				return apperr.ToolError{Error: err.Error(), Symbol: in.Symbol}, nil
			}
			return map[string]any{"symbol": NormalizeSymbol(in.Symbol), "candles": candles}, nil
		})

	registry.Register("calculate_volatility", "Calculate realized annualized volatility for a symbol.",
		map[string]any{"type": "object", "properties": map[string]any{
			"symbol": map[string]any{"type": "string"}, "periods": map[string]any{"type": "integer"},
		}}, func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Symbol  string `json:"symbol"`
				Periods int    `json:"periods"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Symbol == "" {
				return nil, apperr.NewInvalidParams("symbol is required")
			}
			if in.Periods <= 0 {
				in.Periods = 30
			}
			result, err := svc.CalculateVolatility(ctx, in.Symbol, in.Periods)
			if err != nil {
				return apperr.ToolError{Error: err.Error(), Symbol: in.Symbol}, nil
			}
			return result, nil
		})

	registry.Register("get_market_overview", "Get a snapshot of major indices and crypto prices.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			overview, err := svc.GetMarketOverview(ctx)
			if err != nil {
				return apperr.ToolError{Error: err.Error()}, nil
			}
			return overview, nil
		})
}

func schemaSymbol() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"symbol": map[string]any{"type": "string"}},
		"required":   []string{"symbol"},
	}
}
