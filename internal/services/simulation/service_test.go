package simulation

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/providers"
)

func newTestService() *Service {
	return New(providers.NewDeterministicQuoteProvider(), zerolog.Nop())
}

func TestSimulateTradeProducesOrderedScenarios(t *testing.T) {
	svc := newTestService()
	result, err := svc.SimulateTrade(context.Background(), "AAPL", 10, "buy", 150, 100000)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", result.Symbol)
	assert.NotEmpty(t, result.Recommendation)
	assert.LessOrEqual(t, result.Scenarios["bear"].Price, result.Scenarios["base"].Price)
	assert.LessOrEqual(t, result.Scenarios["base"].Price, result.Scenarios["bull"].Price)
}

func TestSimulateStrategyBuyAndHoldHoldsOnePosition(t *testing.T) {
	svc := newTestService()
	result, err := svc.SimulateStrategy(context.Background(), "buy_and_hold", "MSFT", 10000, 90)
	require.NoError(t, err)

	assert.Equal(t, "buy_and_hold", result.Strategy)
	assert.Len(t, result.Trades, 2) // BUY then HOLD
}

func TestSimulateStrategyUnknownTypeErrors(t *testing.T) {
	svc := newTestService()
	_, err := svc.SimulateStrategy(context.Background(), "nonsense", "MSFT", 10000, 90)
	assert.Error(t, err)
}

func TestSimulatePortfolioRebalanceComputesWeights(t *testing.T) {
	svc := newTestService()
	result, err := svc.SimulatePortfolioRebalance(context.Background(),
		[]PositionInput{{Symbol: "AAPL", Quantity: 10, AvgPrice: 100}},
		map[string]float64{"AAPL": 0.5})
	require.NoError(t, err)
	assert.Len(t, result.Positions, 1)
	assert.Len(t, result.RebalanceTrades, 1)
}

func TestSimulatePortfolioRebalanceZeroValueErrors(t *testing.T) {
	svc := newTestService()
	_, err := svc.SimulatePortfolioRebalance(context.Background(),
		[]PositionInput{{Symbol: "AAPL", Quantity: 0, AvgPrice: 0}},
		map[string]float64{"AAPL": 1.0})
	assert.Error(t, err)
}

func TestCalculatePositionSizeLongTargets(t *testing.T) {
	result, err := CalculatePositionSize(100000, 2, 100, 95)
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.RiskPerShare)
	assert.Equal(t, 105.0, result.Targets.OneR)
	assert.Equal(t, 110.0, result.Targets.TwoR)
	assert.Equal(t, 115.0, result.Targets.ThreeR)
}

func TestCalculatePositionSizeRejectsZeroRisk(t *testing.T) {
	_, err := CalculatePositionSize(100000, 2, 100, 100)
	assert.Error(t, err)
}
