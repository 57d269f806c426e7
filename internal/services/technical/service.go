// Package technical implements C3's Technical analytical service: a
// stateless reader that composes a Signal from SMA/RSI/MACD/Bollinger votes,
// grounded in original_source/mcp-servers/technical/server.py's
// generate_signal and the indicator wrappers in internal/indicators.
package technical

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/indicators"
	"github.com/autofinance/control-plane/internal/providers"
)

// Service computes technical signals from a price-history provider.
type Service struct {
	quotes providers.QuoteProvider
	log    zerolog.Logger
}

func New(quotes providers.QuoteProvider, log zerolog.Logger) *Service {
	return &Service{quotes: quotes, log: log.With().Str("service", "technical").Logger()}
}

// Snapshot is the indicator set behind a generated Signal.
type Snapshot struct {
	Symbol  string  `json:"symbol"`
	Price   float64 `json:"price"`
	SMA20   float64 `json:"sma_20"`
	SMA50   float64 `json:"sma_50"`
	SMA200  float64 `json:"sma_200,omitempty"`
	RSI14   float64 `json:"rsi_14"`
	MACD    float64 `json:"macd"`
	Signal9 float64 `json:"macd_signal"`
	Hist    float64 `json:"macd_histogram"`
	BBUpper float64 `json:"bb_upper"`
	BBLower float64 `json:"bb_lower"`
}

// GetIndicators returns the raw indicator snapshot for a symbol.
func (s *Service) GetIndicators(ctx context.Context, symbol string) (Snapshot, error) {
	closes, err := s.quotes.PriceHistory(ctx, symbol, 250)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching price history: %w", err)
	}
	if len(closes) < 20 {
		return Snapshot{}, fmt.Errorf("insufficient history for %s: %d candles", symbol, len(closes))
	}

	snap := Snapshot{Symbol: symbol, Price: closes[len(closes)-1]}
	snap.SMA20 = indicators.Last(indicators.SMA(closes, 20))
	if len(closes) >= 50 {
		snap.SMA50 = indicators.Last(indicators.SMA(closes, 50))
	}
	if len(closes) >= 200 {
		snap.SMA200 = indicators.Last(indicators.SMA(closes, 200))
	}
	snap.RSI14 = indicators.Last(indicators.RSI(closes, 14))

	macd := indicators.MACD(closes)
	snap.MACD = indicators.Last(macd.MACD)
	snap.Signal9 = indicators.Last(macd.Signal)
	snap.Hist = indicators.Last(macd.Histogram)

	bb := indicators.Bollinger(closes, 20)
	snap.BBUpper = indicators.Last(bb.Upper)
	snap.BBLower = indicators.Last(bb.Lower)

	return snap, nil
}

// GenerateSignal composes a BUY/SELL/HOLD Signal from bullish/bearish votes.
// Bullish: price>SMA20>SMA50 (2pts), RSI<30 (2pts), MACD hist>0 and MACD>signal
// (1pt), price<lower BB (1pt). Bearish is the mirror image. BUY requires
// bullish>=3 and bullish>bearish; SELL requires bearish>=3 and bearish>bullish;
// otherwise HOLD. Confidence is votes/6 for BUY/SELL, 0.3+0.1*|delta| for HOLD.
func (s *Service) GenerateSignal(ctx context.Context, symbol string) (domain.Signal, error) {
	snap, err := s.GetIndicators(ctx, symbol)
	if err != nil {
		return domain.Signal{}, err
	}

	bullish, bearish := 0, 0

	if snap.Price > snap.SMA20 && snap.SMA20 > snap.SMA50 {
		bullish += 2
	}
	if snap.Price < snap.SMA20 && snap.SMA20 < snap.SMA50 {
		bearish += 2
	}

	if snap.RSI14 < 30 {
		bullish += 2
	}
	if snap.RSI14 > 70 {
		bearish += 2
	}

	if snap.Hist > 0 && snap.MACD > snap.Signal9 {
		bullish++
	}
	if snap.Hist < 0 && snap.MACD < snap.Signal9 {
		bearish++
	}

	if snap.Price < snap.BBLower {
		bullish++
	}
	if snap.Price > snap.BBUpper {
		bearish++
	}

	action := "HOLD"
	var confidence float64
	delta := bullish - bearish

	switch {
	case bullish >= 3 && bullish > bearish:
		action = "BUY"
		confidence = float64(bullish) / 6
	case bearish >= 3 && bearish > bullish:
		action = "SELL"
		confidence = float64(bearish) / 6
	default:
		confidence = 0.3 + 0.1*math.Abs(float64(delta))
	}

	return domain.Signal{
		Symbol:     symbol,
		Verdict:    action,
		Confidence: confidence,
		Indicators: map[string]float64{
			"sma_20": snap.SMA20, "sma_50": snap.SMA50, "rsi_14": snap.RSI14,
			"macd": snap.MACD, "macd_signal": snap.Signal9, "macd_histogram": snap.Hist,
			"bb_upper": snap.BBUpper, "bb_lower": snap.BBLower,
		},
		Timestamp: time.Now().UTC(),
		Source:    "technical",
		Reason:    fmt.Sprintf("bullish=%d bearish=%d", bullish, bearish),
	}, nil
}
