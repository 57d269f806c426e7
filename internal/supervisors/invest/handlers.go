package invest

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires the investment-supervisor's single entry point.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("process_investment_review",
		"Evaluate the portfolio against the macro regime and fundamentals, rebalance if warranted.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ json.RawMessage) (any, error) {
			return svc.ProcessInvestmentReview(ctx), nil
		})
}
