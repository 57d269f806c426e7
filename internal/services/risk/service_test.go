package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTradeApprovalRule(t *testing.T) {
	v := ValidateTrade(TradeInput{
		Confidence: 0.648, Volatility: 0.35, PositionSizeFrac: 0.048, TradeValue: 4800,
	})
	assert.True(t, v.Approved)
	assert.Empty(t, v.Violations)
}

func TestValidateTradeS1PositionSizeViolation(t *testing.T) {
	// position_size_fraction=0.24 fails max_position_fraction=0.15.
	v := ValidateTrade(TradeInput{
		Confidence: 0.648, Volatility: 0.35, PositionSizeFrac: 0.24, TradeValue: 24000,
	})
	assert.False(t, v.Approved)
	assert.NotEmpty(t, v.Violations)
}

func TestApprovedIffViolationsEmpty(t *testing.T) {
	v := ValidateTrade(TradeInput{Confidence: 0.1, Volatility: 0.9, PositionSizeFrac: 0.9, TradeValue: 1})
	assert.Equal(t, len(v.Violations) == 0, v.Approved)
}

func TestRiskScoreClamped(t *testing.T) {
	v := ValidateTrade(TradeInput{Confidence: 2.0, Volatility: 5.0, PositionSizeFrac: 5.0, TradeValue: 1})
	assert.LessOrEqual(t, v.RiskScore, 1.0)
	assert.GreaterOrEqual(t, v.RiskScore, 0.0)
}
