// Package risk implements C4: the pure policy validator. It never sees
// portfolio state and performs no I/O.
package risk

import "fmt"

// Policy is the process-wide constant map.
var Policy = struct {
	MaxPositionFraction      float64
	MaxVolatility            float64
	MinConfidence            float64
	MaxSingleTradeValue      float64
	MaxPortfolioInvestedFrac float64
}{
	MaxPositionFraction:      0.15,
	MaxVolatility:            0.50,
	MinConfidence:            0.60,
	MaxSingleTradeValue:      20000,
	MaxPortfolioInvestedFrac: 0.80,
}

// TradeInput is the fully-populated proposal passed to ValidateTrade.
type TradeInput struct {
	Symbol           string
	Action           string
	Quantity         float64
	Price            float64
	Confidence       float64
	Volatility       float64
	PositionSizeFrac float64
	TradeValue       float64
}

// Verdict is the pure output of a validation call.
type Verdict struct {
	Approved   bool     `json:"approved"`
	RiskScore  float64  `json:"risk_score"`
	Violations []string `json:"violations"`
	Reason     string   `json:"reason"`
}

// ValidateTrade validates a trade proposal: the violation set
// is empty iff confidence >= min_confidence AND volatility <= max_volatility
// AND position_size_fraction <= max_position_fraction AND trade_value <=
// max_single_trade_value.
func ValidateTrade(in TradeInput) Verdict {
	var violations []string

	if in.Confidence < Policy.MinConfidence {
		violations = append(violations, fmt.Sprintf("confidence %.3f below minimum %.2f", in.Confidence, Policy.MinConfidence))
	}
	if in.Volatility > Policy.MaxVolatility {
		violations = append(violations, fmt.Sprintf("volatility %.3f exceeds maximum %.2f", in.Volatility, Policy.MaxVolatility))
	}
	if in.PositionSizeFrac > Policy.MaxPositionFraction {
		violations = append(violations, fmt.Sprintf("position size %.3f exceeds maximum %.2f", in.PositionSizeFrac, Policy.MaxPositionFraction))
	}
	if in.TradeValue > Policy.MaxSingleTradeValue {
		violations = append(violations, fmt.Sprintf("trade value %.2f exceeds maximum %.2f", in.TradeValue, Policy.MaxSingleTradeValue))
	}

	score := riskScore(in.Volatility, in.Confidence, in.PositionSizeFrac)

	reason := "Approved - within policy bounds"
	if len(violations) > 0 {
		reason = "Rejected - policy violations"
	}

	return Verdict{
		Approved:   len(violations) == 0,
		RiskScore:  score,
		Violations: violations,
		Reason:     reason,
	}
}

// riskScore is the mean of three normalized, clamped factors.
func riskScore(volatility, confidence, positionFrac float64) float64 {
	volFactor := clamp01(volatility / Policy.MaxVolatility)
	confFactor := clamp01(1 - confidence)
	posFactor := clamp01(positionFrac / Policy.MaxPositionFraction)
	return (volFactor + confFactor + posFactor) / 3
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RebalanceChange is one leg of a rebalance under validation.
type RebalanceChange struct {
	Symbol string
	Value  float64
}

// RebalanceInput is the input to ValidateRebalance.
type RebalanceInput struct {
	Changes             []RebalanceChange
	TotalValue          float64
	MaxTurnoverFraction float64
}

// ValidateRebalance validates a rebalance proposal's turnover and per-change size.
func ValidateRebalance(in RebalanceInput) Verdict {
	var violations []string
	var turnover float64

	for _, c := range in.Changes {
		turnover += absf(c.Value)
	}

	turnoverFraction := 0.0
	if in.TotalValue > 0 {
		turnoverFraction = turnover / in.TotalValue
	}

	if turnoverFraction > in.MaxTurnoverFraction {
		violations = append(violations, fmt.Sprintf("turnover %.3f exceeds maximum %.2f", turnoverFraction, in.MaxTurnoverFraction))
	}

	for _, c := range in.Changes {
		frac := 0.0
		if in.TotalValue > 0 {
			frac = absf(c.Value) / in.TotalValue
		}
		if frac > Policy.MaxPositionFraction {
			violations = append(violations, fmt.Sprintf("%s change %.3f exceeds position maximum %.2f", c.Symbol, frac, Policy.MaxPositionFraction))
		}
	}

	reason := "Approved - within policy bounds"
	if len(violations) > 0 {
		reason = "Rejected - policy violations"
	}

	return Verdict{
		Approved:   len(violations) == 0,
		RiskScore:  clamp01(turnoverFraction),
		Violations: violations,
		Reason:     reason,
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
