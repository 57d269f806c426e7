// Package fundamental implements C3's Fundamental analytical service,
// grounded in original_source/mcp-servers/fundamental/server.py's
// calculate_valuation_score/calculate_quality_score/analyze_fundamentals.
package fundamental

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/providers"
)

type Service struct {
	info providers.CompanyInfoProvider
	log  zerolog.Logger
}

func New(info providers.CompanyInfoProvider, log zerolog.Logger) *Service {
	return &Service{info: info, log: log.With().Str("service", "fundamental").Logger()}
}

// Analysis is the full fundamental-scoring result.
type Analysis struct {
	Symbol         string                   `json:"symbol"`
	Recommendation string                   `json:"recommendation"`
	Confidence     float64                  `json:"confidence"`
	ValuationScore float64                  `json:"valuation_score"`
	QualityScore   float64                  `json:"quality_score"`
	GrowthScore    float64                  `json:"growth_score"`
	OverallScore   float64                  `json:"overall_score"`
	Fundamentals   providers.CompanyInfo    `json:"fundamentals"`
	Timestamp      time.Time                `json:"timestamp"`
}

// valuationScore scores P/E, P/B, PEG against fixed market-average
// thresholds: starts neutral at 0.5, nudged by each ratio in turn.
func valuationScore(info providers.CompanyInfo) float64 {
	score := 0.5
	switch {
	case info.PERatio > 0 && info.PERatio < 15:
		score += 0.15
	case info.PERatio > 30:
		score -= 0.15
	}
	switch {
	case info.PBRatio > 0 && info.PBRatio < 2:
		score += 0.1
	case info.PBRatio > 5:
		score -= 0.1
	}
	switch {
	case info.PEGRatio > 0 && info.PEGRatio < 1:
		score += 0.2
	case info.PEGRatio > 2:
		score -= 0.2
	}
	return clamp01(score)
}

// qualityScore scores profit margin, ROE, and leverage.
func qualityScore(info providers.CompanyInfo) float64 {
	score := 0.5
	switch {
	case info.ProfitMargin > 0.15:
		score += 0.2
	case info.ProfitMargin < 0.05:
		score -= 0.2
	}
	switch {
	case info.ROE > 0.15:
		score += 0.2
	case info.ROE < 0.05:
		score -= 0.2
	}
	switch {
	case info.DebtToEquity > 0 && info.DebtToEquity < 0.5:
		score += 0.1
	case info.DebtToEquity > 2:
		score -= 0.1
	}
	return clamp01(score)
}

// growthScore normalizes the average of revenue/earnings YoY growth against
// a 20% reference; a flat pair of zeros is treated as neutral, not poor.
func growthScore(info providers.CompanyInfo) float64 {
	if info.RevenueGrowthYoY == 0 && info.EarningsGrowthYoY == 0 {
		return 0.5
	}
	avg := (info.RevenueGrowthYoY + info.EarningsGrowthYoY) / 2
	return math.Min(math.Abs(avg)/0.20, 1.0)
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

// Analyze produces the full fundamental Analysis for a symbol.
func (s *Service) Analyze(ctx context.Context, symbol string) (Analysis, error) {
	info, err := s.info.Info(ctx, symbol)
	if err != nil {
		return Analysis{}, fmt.Errorf("fetching company info: %w", err)
	}

	val := valuationScore(info)
	qual := qualityScore(info)
	growth := growthScore(info)
	overall := val*0.3 + qual*0.4 + growth*0.3

	var recommendation string
	var baseConfidence float64
	switch info.AnalystConsensus {
	case "BUY":
		recommendation, baseConfidence = "BUY", 0.75
	case "SELL":
		recommendation, baseConfidence = "SELL", 0.70
	default:
		recommendation, baseConfidence = "HOLD", 0.60
	}

	return Analysis{
		Symbol: symbol, Recommendation: recommendation,
		Confidence:     (baseConfidence + overall) / 2,
		ValuationScore: val, QualityScore: qual, GrowthScore: growth, OverallScore: overall,
		Fundamentals: info, Timestamp: time.Now().UTC(),
	}, nil
}

// ToSignal projects an Analysis onto the shared domain.Signal shape.
func (a Analysis) ToSignal() domain.Signal {
	return domain.Signal{
		Symbol: a.Symbol, Verdict: a.Recommendation, Confidence: a.Confidence,
		Indicators: map[string]float64{
			"valuation": a.ValuationScore, "quality": a.QualityScore, "growth": a.GrowthScore, "overall": a.OverallScore,
		},
		Timestamp: a.Timestamp, Source: "fundamental",
	}
}
