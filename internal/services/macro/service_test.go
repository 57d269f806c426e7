package macro

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/logger"
	"github.com/autofinance/control-plane/internal/providers"
)

func TestAnalyzeReturnsKnownRegimes(t *testing.T) {
	svc := New(providers.NewDeterministicEconProvider(), logger.New(logger.Config{}))
	analysis, err := svc.Analyze(context.Background())
	require.NoError(t, err)
	assert.Contains(t, []string{"BULL", "BEAR", "CONSOLIDATION", "UNKNOWN"}, analysis.MarketRegime)
	assert.Contains(t, []string{"FAVORABLE", "NEUTRAL", "CHALLENGING"}, analysis.RiskEnvironment)
	assert.Contains(t, []string{"AGGRESSIVE", "BALANCED", "DEFENSIVE"}, analysis.InvestmentStance)
}

func TestMarketRegimeClassification(t *testing.T) {
	assert.Equal(t, "BULL", marketRegime(3.0, 2.0))
	assert.Equal(t, "BEAR", marketRegime(-1.0, 2.0))
	assert.Equal(t, "CONSOLIDATION", marketRegime(1.0, 5.0))
}

func TestRiskAppetiteClamped(t *testing.T) {
	v := riskAppetite(100, 0)
	assert.GreaterOrEqual(t, v, 0.0)
}
