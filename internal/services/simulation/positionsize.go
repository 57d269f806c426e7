package simulation

import (
	"fmt"
	"time"
)

// RiskTargets holds the 1R/2R/3R reward targets for a sized position.
type RiskTargets struct {
	OneR   float64 `json:"1R"`
	TwoR   float64 `json:"2R"`
	ThreeR float64 `json:"3R"`
}

// PositionSize is the payload of calculate_position_size.
type PositionSize struct {
	RecommendedShares float64     `json:"recommended_shares"`
	PositionValue     float64     `json:"position_value"`
	PositionPct       float64     `json:"position_pct"`
	RiskAmount        float64     `json:"risk_amount"`
	RiskPct           float64     `json:"risk_pct"`
	EntryPrice        float64     `json:"entry_price"`
	StopLoss          float64     `json:"stop_loss"`
	RiskPerShare      float64     `json:"risk_per_share"`
	Targets           RiskTargets `json:"targets"`
	Timestamp         time.Time   `json:"timestamp"`
}

// CalculatePositionSize sizes a position so that a stop-loss hit risks at
// most riskPerTradePct of accountValue (spec §4.10).
func CalculatePositionSize(accountValue, riskPerTradePct, entryPrice, stopLossPrice float64) (PositionSize, error) {
	priceRisk := absFloat(entryPrice - stopLossPrice)
	if priceRisk <= 0 {
		return PositionSize{}, fmt.Errorf("simulation: stop loss must differ from entry price")
	}

	riskAmount := accountValue * (riskPerTradePct / 100)
	shares := float64(int(riskAmount / priceRisk))
	positionValue := shares * entryPrice
	actualRisk := shares * priceRisk

	long := entryPrice > stopLossPrice
	reward := func(multiple float64) float64 {
		if long {
			return round2(entryPrice + multiple*priceRisk)
		}
		return round2(entryPrice - multiple*priceRisk)
	}

	return PositionSize{
		RecommendedShares: shares, PositionValue: round2(positionValue),
		PositionPct: round2((positionValue / accountValue) * 100),
		RiskAmount:  round2(actualRisk), RiskPct: round2((actualRisk / accountValue) * 100),
		EntryPrice: entryPrice, StopLoss: stopLossPrice, RiskPerShare: round2(priceRisk),
		Targets:   RiskTargets{OneR: reward(1), TwoR: reward(2), ThreeR: reward(3)},
		Timestamp: time.Now().UTC(),
	}, nil
}
