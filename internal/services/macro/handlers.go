package macro

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires the macro-environment tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("analyze_macro", "Analyze the current macroeconomic regime and investment stance.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ json.RawMessage) (any, error) {
			analysis, err := svc.Analyze(ctx)
			if err != nil {
				return map[string]any{"error": err.Error()}, nil
			}
			return analysis, nil
		})
}
