package technical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/logger"
	"github.com/autofinance/control-plane/internal/providers"
)

func TestGenerateSignalReturnsValidAction(t *testing.T) {
	svc := New(providers.NewDeterministicQuoteProvider(), logger.New(logger.Config{}))
	signal, err := svc.GenerateSignal(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Contains(t, []string{"BUY", "SELL", "HOLD"}, signal.Verdict)
	assert.GreaterOrEqual(t, signal.Confidence, 0.0)
	assert.LessOrEqual(t, signal.Confidence, 1.0)
}

func TestGetIndicatorsPopulatesSMA(t *testing.T) {
	svc := New(providers.NewDeterministicQuoteProvider(), logger.New(logger.Config{}))
	snap, err := svc.GetIndicators(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Greater(t, snap.SMA20, 0.0)
	assert.Greater(t, snap.SMA50, 0.0)
}
