// Package portfolioanalytics implements C6: read-only portfolio health and
// rebalance-proposal logic, grounded in original_source's portfolio-analytics
// server. Its summary statistics are plain loops over the positions; the
// package does not use gonum.
package portfolioanalytics

import (
	"github.com/autofinance/control-plane/internal/domain"
)

// PositionView is the minimal per-symbol shape these tools need.
type PositionView struct {
	Symbol       string
	Quantity     float64
	AveragePrice float64
	CurrentPrice float64
}

func (p PositionView) Value() float64 { return p.Quantity * p.CurrentPrice }

// StateView is the portfolio snapshot passed into every C6 tool.
type StateView struct {
	Cash      float64
	Positions []PositionView
}

func (s StateView) totalValue() float64 {
	total := s.Cash
	for _, p := range s.Positions {
		total += p.Value()
	}
	return total
}

// Evaluation is the output of evaluate_portfolio.
type Evaluation struct {
	TotalValue      float64            `json:"total_value"`
	Concentration   float64            `json:"concentration"`
	Diversification float64            `json:"diversification"`
	CashFraction    float64            `json:"cash_fraction"`
	Overexposed     []string           `json:"overexposed"`
	HealthScore     float64            `json:"health_score"`
	HealthRating    string             `json:"health_rating"`
	Weights         map[string]float64 `json:"weights"`
}

const overexposedThreshold = 0.20

// EvaluatePortfolio computes the Herfindahl-based health metrics.
func EvaluatePortfolio(state StateView) Evaluation {
	total := state.totalValue()
	weights := make(map[string]float64, len(state.Positions))
	concentration := 0.0
	var overexposed []string

	if total > 0 {
		for _, p := range state.Positions {
			w := p.Value() / total
			weights[p.Symbol] = w
			concentration += w * w
			if w > overexposedThreshold {
				overexposed = append(overexposed, p.Symbol)
			}
		}
	}

	diversification := 0.0
	if len(state.Positions) > 1 {
		diversification = 1 - concentration
	}

	cashFraction := 0.0
	if total > 0 {
		cashFraction = state.Cash / total
	}

	health := healthScore(diversification, cashHealth(cashFraction), concentration)

	return Evaluation{
		TotalValue:      total,
		Concentration:   concentration,
		Diversification: diversification,
		CashFraction:    cashFraction,
		Overexposed:     overexposed,
		HealthScore:     health,
		HealthRating:    healthRating(health),
		Weights:         weights,
	}
}

// cashHealth scores cash_fraction: 1.0 in [0.2,0.4]; 0.3 below 0.1 or above
// 0.5; 0.7 otherwise.
func cashHealth(cashFraction float64) float64 {
	switch {
	case cashFraction >= 0.2 && cashFraction <= 0.4:
		return 1.0
	case cashFraction < 0.1 || cashFraction > 0.5:
		return 0.3
	default:
		return 0.7
	}
}

func healthScore(diversification, cashHealthVal, concentration float64) float64 {
	return (diversification + cashHealthVal + (1 - concentration)) / 3
}

func healthRating(score float64) string {
	switch {
	case score > 0.75:
		return "EXCELLENT"
	case score > 0.60:
		return "GOOD"
	case score > 0.45:
		return "FAIR"
	default:
		return "POOR"
	}
}

// AllocationSummary is the output of get_allocation_summary.
type AllocationSummary struct {
	TotalValue   float64            `json:"total_value"`
	CashFraction float64            `json:"cash_fraction"`
	Allocations  map[string]float64 `json:"allocations"`
	NumPositions int                `json:"num_positions"`
}

// GetAllocationSummary reports each position's weight of total portfolio value.
func GetAllocationSummary(state StateView) AllocationSummary {
	total := state.totalValue()
	allocations := make(map[string]float64, len(state.Positions))
	if total > 0 {
		for _, p := range state.Positions {
			allocations[p.Symbol] = p.Value() / total
		}
	}
	cashFraction := 0.0
	if total > 0 {
		cashFraction = state.Cash / total
	}
	return AllocationSummary{
		TotalValue: total, CashFraction: cashFraction,
		Allocations: allocations, NumPositions: len(state.Positions),
	}
}

// RebalanceProposal is the output of calculate_rebalance_proposal.
type RebalanceProposal struct {
	Changes    []domain.Change `json:"changes"`
	TotalValue float64         `json:"total_value"`
}

const rebalanceThresholdFraction = 0.02

// CalculateRebalanceProposal emits one Change per symbol whose weight drifts
// from its target by more than 2% of total value. target allocation maps
// symbol to a target weight; weights may sum to less than 1 to reserve cash.
func CalculateRebalanceProposal(state StateView, targetAllocation map[string]float64) RebalanceProposal {
	total := state.totalValue()
	currentWeights := make(map[string]float64, len(state.Positions))
	currentPrices := make(map[string]float64, len(state.Positions))
	if total > 0 {
		for _, p := range state.Positions {
			currentWeights[p.Symbol] = p.Value() / total
			currentPrices[p.Symbol] = p.CurrentPrice
		}
	}

	symbols := make(map[string]struct{})
	for s := range currentWeights {
		symbols[s] = struct{}{}
	}
	for s := range targetAllocation {
		symbols[s] = struct{}{}
	}

	var changes []domain.Change
	threshold := rebalanceThresholdFraction * total

	for symbol := range symbols {
		target := targetAllocation[symbol]
		current := currentWeights[symbol]
		valueDiff := (target - current) * total
		if absf(valueDiff) <= threshold {
			continue
		}

		action := "SELL"
		if target > current {
			action = "BUY"
		}

		price := currentPrices[symbol]
		quantity := 0.0
		if price > 0 {
			quantity = absf(valueDiff) / price
		}

		changes = append(changes, domain.Change{
			Symbol: symbol, Action: action, Value: absf(valueDiff), Quantity: quantity,
		})
	}

	return RebalanceProposal{Changes: changes, TotalValue: total}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
