package portfolioanalytics

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

type wirePosition struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	CurrentPrice float64 `json:"current_price"`
}

type wireState struct {
	Cash      float64        `json:"cash"`
	Positions []wirePosition `json:"positions"`
}

func (w wireState) toStateView() StateView {
	positions := make([]PositionView, len(w.Positions))
	for i, p := range w.Positions {
		positions[i] = PositionView{
			Symbol: p.Symbol, Quantity: p.Quantity,
			AveragePrice: p.AveragePrice, CurrentPrice: p.CurrentPrice,
		}
	}
	return StateView{Cash: w.Cash, Positions: positions}
}

// RegisterTools wires every read-only portfolio-analytics tool into registry.
func RegisterTools(registry *rpcserver.Registry) {
	registry.Register("evaluate_portfolio", "Evaluate portfolio health and concentration metrics.",
		map[string]any{"type": "object", "properties": map[string]any{"state": map[string]any{"type": "object"}}, "required": []string{"state"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				State wireState `json:"state"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid evaluate_portfolio arguments")
			}
			return EvaluatePortfolio(wire.State.toStateView()), nil
		})

	registry.Register("calculate_rebalance_proposal", "Compute rebalance changes from a target allocation.",
		map[string]any{"type": "object", "properties": map[string]any{
			"state":             map[string]any{"type": "object"},
			"target_allocation": map[string]any{"type": "object"},
		}, "required": []string{"state", "target_allocation"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				State            wireState          `json:"state"`
				TargetAllocation map[string]float64 `json:"target_allocation"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid calculate_rebalance_proposal arguments")
			}
			return CalculateRebalanceProposal(wire.State.toStateView(), wire.TargetAllocation), nil
		})

	registry.Register("get_allocation_summary", "Return per-symbol allocation weights for a portfolio.",
		map[string]any{"type": "object", "properties": map[string]any{"state": map[string]any{"type": "object"}}, "required": []string{"state"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				State wireState `json:"state"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid get_allocation_summary arguments")
			}
			return GetAllocationSummary(wire.State.toStateView()), nil
		})
}
