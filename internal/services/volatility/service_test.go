package volatility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/logger"
	"github.com/autofinance/control-plane/internal/providers"
)

func TestGetVolatilityScoreReturnsKnownBands(t *testing.T) {
	svc := New(providers.NewDeterministicQuoteProvider(), logger.New(logger.Config{}))
	score, err := svc.GetVolatilityScore(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Contains(t, []string{"LOW", "MEDIUM", "HIGH"}, score.RiskLevel)
	assert.Contains(t, []string{"LOW", "NORMAL", "HIGH"}, score.Regime)
	assert.GreaterOrEqual(t, score.RiskScore, 0.0)
	assert.LessOrEqual(t, score.RiskScore, 1.0)
}

func TestClassifyRegimeDefaultsToNormalWithNoHistory(t *testing.T) {
	assert.Equal(t, "NORMAL", classifyRegime(0.3, nil))
}

func TestRiskBandThresholds(t *testing.T) {
	level, _ := riskBand(0.1)
	assert.Equal(t, "LOW", level)
	level, _ = riskBand(0.35)
	assert.Equal(t, "MEDIUM", level)
	level, _ = riskBand(0.8)
	assert.Equal(t, "HIGH", level)
}
