package fundamental

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/logger"
	"github.com/autofinance/control-plane/internal/providers"
)

func TestAnalyzeReturnsBoundedScores(t *testing.T) {
	svc := New(providers.NewDeterministicCompanyInfoProvider(), logger.New(logger.Config{}))
	analysis, err := svc.Analyze(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Contains(t, []string{"BUY", "HOLD", "SELL"}, analysis.Recommendation)
	for _, score := range []float64{analysis.ValuationScore, analysis.QualityScore, analysis.GrowthScore, analysis.OverallScore} {
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestValuationScoreRewardsLowPE(t *testing.T) {
	low := valuationScore(providers.CompanyInfo{PERatio: 10})
	high := valuationScore(providers.CompanyInfo{PERatio: 40})
	assert.Greater(t, low, high)
}

func TestGrowthScoreNeutralWhenFlat(t *testing.T) {
	assert.Equal(t, 0.5, growthScore(providers.CompanyInfo{}))
}
