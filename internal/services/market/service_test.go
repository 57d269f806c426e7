package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/logger"
	"github.com/autofinance/control-plane/internal/providers"
)

func TestNormalizeSymbol(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"BTC", "BTC-USD"},
		{"btc", "BTC-USD"},
		{"BTCUSDT", "BTC-USD"},
		{"ETHUSDT", "ETH-USD"},
		{"AAPLUSDT", "AAPL"},
		{"TSLA-USD", "TSLA-USD"},
		{"AAPL", "AAPL"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeSymbol(c.in), "input %q", c.in)
	}
}

func TestNormalizeSymbolIdempotent(t *testing.T) {
	for _, s := range []string{"BTC", "BTCUSDT", "AAPL", "TSLA-USD", "ETHUSDT"} {
		once := NormalizeSymbol(s)
		twice := NormalizeSymbol(once)
		assert.Equal(t, once, twice)
	}
}

func TestCalculateVolatilityBands(t *testing.T) {
	svc := New(providers.NewDeterministicQuoteProvider(), logger.New(logger.Config{}))
	result, err := svc.CalculateVolatility(context.Background(), "AAPL", 60)
	require.NoError(t, err)
	assert.Contains(t, []string{"LOW", "MEDIUM", "HIGH"}, result.RiskLevel)
	if result.Volatility < 0.15 {
		assert.Equal(t, "LOW", result.RiskLevel)
	} else if result.Volatility < 0.30 {
		assert.Equal(t, "MEDIUM", result.RiskLevel)
	} else {
		assert.Equal(t, "HIGH", result.RiskLevel)
	}
}

func TestGetLivePriceCaches(t *testing.T) {
	svc := New(providers.NewDeterministicQuoteProvider(), logger.New(logger.Config{}))
	q1, err := svc.GetLivePrice(context.Background(), "AAPL")
	require.NoError(t, err)
	q2, err := svc.GetLivePrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, q1.Price, q2.Price)
}
