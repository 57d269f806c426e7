package execution

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/domain"
)

func newTestService(cash float64) *Service {
	return New(cash, zerolog.Nop())
}

func positionFixture(quantity, avgPrice float64) domain.Position {
	return domain.Position{
		Quantity: quantity, AveragePrice: avgPrice,
		CurrentPrice: avgPrice, CurrentValue: quantity * avgPrice,
	}
}

func TestExecuteTradeBuyExactCashSucceeds(t *testing.T) {
	svc := newTestService(5000)
	result := svc.ExecuteTrade("T1", "AAPL", "BUY", 50, 100, true, 0.1)
	require.True(t, result.Success)
	assert.Equal(t, 0.0, result.NewCash)
}

func TestExecuteTradeBuyOneDollarMoreFails(t *testing.T) {
	svc := newTestService(5000)
	result := svc.ExecuteTrade("T1", "AAPL", "BUY", 50, 100.02, true, 0.1)
	assert.False(t, result.Success)
	assert.Equal(t, 5000.0, svc.GetPortfolioState().Cash)
}

func TestExecuteTradeRefusesWhenNotApproved(t *testing.T) {
	svc := newTestService(5000)
	result := svc.ExecuteTrade("T1", "AAPL", "BUY", 10, 100, false, 0.1)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "not approved")
}

func TestExecuteTradeBuySellWeightedAverage(t *testing.T) {
	svc := newTestService(100000)
	svc.ExecuteTrade("T1", "BTC-USD", "BUY", 0.05, 40000, true, 0.1)
	result := svc.ExecuteTrade("T2", "BTC-USD", "BUY", 0.05, 56000, true, 0.1)
	require.True(t, result.Success)
	require.NotNil(t, result.NewPosition)
	assert.InDelta(t, 0.1, result.NewPosition.Quantity, 1e-9)
	assert.InDelta(t, 48000, result.NewPosition.AveragePrice, 1e-6)
	assert.InDelta(t, 95200, result.NewCash, 1e-6)
}

func TestExecuteTradeSellRemovesPositionAtZero(t *testing.T) {
	svc := newTestService(0)
	svc.portfolio.Positions["ETH-USD"] = positionFixture(1, 2000)
	result := svc.ExecuteTrade("T3", "ETH-USD", "SELL", 1, 2100, true, 0.1)
	require.True(t, result.Success)
	assert.Nil(t, result.NewPosition)
	state := svc.GetPortfolioState()
	_, exists := state.Positions["ETH-USD"]
	assert.False(t, exists)
	assert.InDelta(t, 2100, state.Cash, 1e-9)
}

func TestExecuteTradeSellRefusesInsufficientQuantity(t *testing.T) {
	svc := newTestService(0)
	svc.portfolio.Positions["ETH-USD"] = positionFixture(1, 2000)
	result := svc.ExecuteTrade("T4", "ETH-USD", "SELL", 2, 2100, true, 0.1)
	assert.False(t, result.Success)
}

func TestExecuteTradeSellRefusesNoPosition(t *testing.T) {
	svc := newTestService(0)
	result := svc.ExecuteTrade("T5", "GOOG", "SELL", 1, 100, true, 0.1)
	assert.False(t, result.Success)
}

func TestApplyRebalancePartialFailureDoesNotRollback(t *testing.T) {
	svc := newTestService(1000)
	changes := []RebalanceChangeInput{
		{Symbol: "AAPL", Action: "BUY", Quantity: 5, Price: 100},
		{Symbol: "TSLA", Action: "BUY", Quantity: 100, Price: 200},
	}
	result := svc.ApplyRebalance("R1", changes, true, 0.2)
	require.True(t, result.Success)
	assert.True(t, result.Changes[0].Success)
	assert.False(t, result.Changes[1].Success)
	state := svc.GetPortfolioState()
	_, hasAAPL := state.Positions["AAPL"]
	assert.True(t, hasAAPL)
	assert.InDelta(t, 500, state.Cash, 1e-9)
}

func TestUpdatePositionPricesMarksToMarket(t *testing.T) {
	svc := newTestService(0)
	svc.portfolio.Positions["AAPL"] = positionFixture(10, 100)
	updated, total := svc.UpdatePositionPrices(map[string]float64{"AAPL": 150})
	assert.Equal(t, []string{"AAPL"}, updated)
	assert.InDelta(t, 1500, total, 1e-9)
}

func TestResetPortfolioClearsState(t *testing.T) {
	svc := newTestService(500)
	svc.portfolio.Positions["AAPL"] = positionFixture(1, 1)
	svc.ResetPortfolio(250)
	state := svc.GetPortfolioState()
	assert.Equal(t, 250.0, state.Cash)
	assert.Empty(t, state.Positions)
}
