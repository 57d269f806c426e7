// Package macro implements C3's Macro analytical service, grounded in
// original_source/mcp-servers/macro/server.py's analyze_macro and
// get_real_macro_indicators regime/stance derivation.
package macro

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/providers"
)

type Service struct {
	econ providers.EconSeriesProvider
	log  zerolog.Logger
}

func New(econ providers.EconSeriesProvider, log zerolog.Logger) *Service {
	return &Service{econ: econ, log: log.With().Str("service", "macro").Logger()}
}

// Analysis is the full macro-environment read.
type Analysis struct {
	Indicators       providers.EconSnapshot `json:"indicators"`
	MarketRegime     string                 `json:"market_regime"`
	RiskEnvironment  string                 `json:"risk_environment"`
	InvestmentStance string                 `json:"investment_stance"`
	Confidence       float64                `json:"confidence"`
	RiskAppetite     float64                `json:"risk_appetite"`
	LiquidityScore   float64                `json:"liquidity_score"`
	Timestamp        time.Time              `json:"timestamp"`
}

// Analyze pulls the fixed macro series and derives regime/stance.
func (s *Service) Analyze(ctx context.Context) (Analysis, error) {
	snap, err := s.econ.Series(ctx)
	if err != nil {
		return Analysis{}, fmt.Errorf("fetching macro snapshot: %w", err)
	}

	regime := marketRegime(snap.GDPGrowth, snap.CPIYoY)
	riskAppetite := riskAppetite(snap.VIX, snap.ConsumerSentiment)
	liquidity := liquidityScore(snap.PolicyRate)

	riskEnv := "NEUTRAL"
	switch {
	case riskAppetite > 0.7 && liquidity > 0.7:
		riskEnv = "FAVORABLE"
	case riskAppetite < 0.5 || liquidity < 0.5:
		riskEnv = "CHALLENGING"
	}

	stance, confidence := "BALANCED", 0.65
	switch {
	case regime == "BULL" && riskEnv == "FAVORABLE":
		stance, confidence = "AGGRESSIVE", 0.8
	case regime == "BEAR" || riskEnv == "CHALLENGING":
		stance, confidence = "DEFENSIVE", 0.75
	}

	return Analysis{
		Indicators: snap, MarketRegime: regime, RiskEnvironment: riskEnv,
		InvestmentStance: stance, Confidence: confidence,
		RiskAppetite: riskAppetite, LiquidityScore: liquidity,
		Timestamp: time.Now().UTC(),
	}, nil
}

// marketRegime classifies BULL/BEAR/CONSOLIDATION/UNKNOWN from GDP growth
// and CPI YoY inflation.
func marketRegime(gdp, cpiYoY float64) string {
	switch {
	case gdp > 2.5 && cpiYoY < 3.5:
		return "BULL"
	case gdp < 0:
		return "BEAR"
	case gdp > 0:
		return "CONSOLIDATION"
	default:
		return "UNKNOWN"
	}
}

// riskAppetite averages the VIX-derived appetite, clamped to [0.1, 0.9],
// with consumer sentiment/120; the averaged result itself is not clamped.
func riskAppetite(vix, consumerSentiment float64) float64 {
	appetite := clamp(1.0-(vix/50), 0.1, 0.9)
	return (appetite + consumerSentiment/120) / 2
}

// liquidityScore derives easing/tightening conditions from the policy rate.
func liquidityScore(policyRate float64) float64 {
	return clamp(1.0-(policyRate/10), 0.2, 0.9)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
