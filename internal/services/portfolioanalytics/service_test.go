package portfolioanalytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatePortfolioConcentrationAndDiversification(t *testing.T) {
	state := StateView{
		Cash: 2000,
		Positions: []PositionView{
			{Symbol: "AAPL", Quantity: 10, CurrentPrice: 400},
			{Symbol: "TSLA", Quantity: 4, CurrentPrice: 500},
		},
	}
	eval := EvaluatePortfolio(state)
	assert.InDelta(t, 8000, eval.TotalValue, 1e-9)
	assert.InDelta(t, 0.5*0.5+0.25*0.25, eval.Concentration, 1e-9)
	assert.InDelta(t, 1-eval.Concentration, eval.Diversification, 1e-9)
	assert.Contains(t, []string{"EXCELLENT", "GOOD", "FAIR", "POOR"}, eval.HealthRating)
}

func TestEvaluatePortfolioSinglePositionZeroDiversification(t *testing.T) {
	state := StateView{Cash: 1000, Positions: []PositionView{{Symbol: "AAPL", Quantity: 1, CurrentPrice: 1000}}}
	eval := EvaluatePortfolio(state)
	assert.Equal(t, 0.0, eval.Diversification)
}

func TestEvaluatePortfolioOverexposed(t *testing.T) {
	state := StateView{
		Cash: 100,
		Positions: []PositionView{
			{Symbol: "AAPL", Quantity: 1, CurrentPrice: 9000},
			{Symbol: "TSLA", Quantity: 1, CurrentPrice: 100},
		},
	}
	eval := EvaluatePortfolio(state)
	assert.Contains(t, eval.Overexposed, "AAPL")
	assert.NotContains(t, eval.Overexposed, "TSLA")
}

func TestCashHealthBands(t *testing.T) {
	assert.Equal(t, 1.0, cashHealth(0.3))
	assert.Equal(t, 0.3, cashHealth(0.05))
	assert.Equal(t, 0.3, cashHealth(0.6))
	assert.Equal(t, 0.7, cashHealth(0.15))
}

func TestHealthRatingBands(t *testing.T) {
	assert.Equal(t, "EXCELLENT", healthRating(0.9))
	assert.Equal(t, "GOOD", healthRating(0.65))
	assert.Equal(t, "FAIR", healthRating(0.5))
	assert.Equal(t, "POOR", healthRating(0.3))
}

func TestCalculateRebalanceProposalSkipsBelowThreshold(t *testing.T) {
	state := StateView{
		Cash:      0,
		Positions: []PositionView{{Symbol: "AAPL", Quantity: 10, CurrentPrice: 100}},
	}
	// current weight is 1.0; target is 0.99 -> diff is 1% of total, below the 2% threshold.
	proposal := CalculateRebalanceProposal(state, map[string]float64{"AAPL": 0.99})
	assert.Empty(t, proposal.Changes)
}

func TestCalculateRebalanceProposalEmitsBuyAndSell(t *testing.T) {
	state := StateView{
		Cash: 0,
		Positions: []PositionView{
			{Symbol: "AAPL", Quantity: 10, CurrentPrice: 100},
			{Symbol: "TSLA", Quantity: 0, CurrentPrice: 50},
		},
	}
	proposal := CalculateRebalanceProposal(state, map[string]float64{"AAPL": 0.3, "TSLA": 0.7})
	var sawBuy, sawSell bool
	for _, c := range proposal.Changes {
		if c.Symbol == "TSLA" && c.Action == "BUY" {
			sawBuy = true
		}
		if c.Symbol == "AAPL" && c.Action == "SELL" {
			sawSell = true
		}
	}
	assert.True(t, sawBuy)
	assert.True(t, sawSell)
}
