// Package market implements C2: quotes, candles, and realized volatility,
// grounded in original_source/mcp-servers/market/server_real.py.
package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/indicators"
	"github.com/autofinance/control-plane/internal/providers"
)

// cacheTTL is the live-price cache bucket width (~60s).
const cacheTTL = 60 * time.Second

var cryptoTable = map[string]string{
	"BTC":  "BTC-USD",
	"ETH":  "ETH-USD",
	"SOL":  "SOL-USD",
	"BNB":  "BNB-USD",
	"XRP":  "XRP-USD",
	"ADA":  "ADA-USD",
	"DOGE": "DOGE-USD",
	"DOT":  "DOT-USD",
}

// NormalizeSymbol applies a fixed set of ordered rules. The result is
// idempotent: NormalizeSymbol(NormalizeSymbol(s)) == NormalizeSymbol(s).
func NormalizeSymbol(raw string) string {
	sym := strings.ToUpper(strings.TrimSpace(raw))

	if mapped, ok := cryptoTable[sym]; ok {
		return mapped
	}

	if strings.HasSuffix(sym, "USDT") {
		base := strings.TrimSuffix(sym, "USDT")
		if mapped, ok := cryptoTable[base]; ok {
			return mapped
		}
		return base
	}

	if strings.HasSuffix(sym, "-USD") {
		return sym
	}

	return sym
}

// Service implements the market tools.
type Service struct {
	quotes providers.QuoteProvider
	log    zerolog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	bucket int64
	quote  domain.Quote
}

// New builds a market Service backed by quotes.
func New(quotes providers.QuoteProvider, log zerolog.Logger) *Service {
	return &Service{
		quotes: quotes,
		log:    log.With().Str("service", "market").Logger(),
		cache:  make(map[string]cacheEntry),
	}
}

// GetLivePrice returns a cached-or-fresh quote for symbol. On upstream
// failure it returns an error rather than a partial Quote; the RPC layer
// converts that into an {error, symbol} shape.
func (s *Service) GetLivePrice(ctx context.Context, rawSymbol string) (domain.Quote, error) {
	symbol := NormalizeSymbol(rawSymbol)
	bucket := time.Now().Unix() / int64(cacheTTL.Seconds())

	s.mu.Lock()
	if entry, ok := s.cache[symbol]; ok && entry.bucket == bucket {
		s.mu.Unlock()
		return entry.quote, nil
	}
	s.mu.Unlock()

	price, err := s.quotes.LivePrice(ctx, symbol)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("market: upstream unavailable for %s: %w", symbol, err)
	}
	quote := domain.Quote{Symbol: symbol, Price: price, Timestamp: time.Now().UTC()}

	s.mu.Lock()
	s.cache[symbol] = cacheEntry{bucket: bucket, quote: quote}
	s.mu.Unlock()

	return quote, nil
}

// GetCandles returns a synthetic OHLCV series of length periods for symbol.
func (s *Service) GetCandles(ctx context.Context, rawSymbol string, timeframe domain.Timeframe, periods int) ([]domain.Candle, error) {
	symbol := NormalizeSymbol(rawSymbol)
	closes, err := s.quotes.PriceHistory(ctx, symbol, periods)
	if err != nil {
		return nil, fmt.Errorf("market: upstream unavailable for %s: %w", symbol, err)
	}

	interval := intervalFor(timeframe)
	now := time.Now().UTC()
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		ts := now.Add(-time.Duration(len(closes)-1-i) * interval)
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		high, low := open, open
		if c > high {
			high = c
		}
		if c < low {
			low = c
		}
		candles[i] = domain.Candle{Timestamp: ts, Open: open, High: high, Low: low, Close: c}
	}
	return candles, nil
}

func intervalFor(tf domain.Timeframe) time.Duration {
	switch tf {
	case domain.Timeframe1m:
		return time.Minute
	case domain.Timeframe5m:
		return 5 * time.Minute
	case domain.Timeframe15m:
		return 15 * time.Minute
	case domain.Timeframe1h:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// VolatilityResult is the payload of CalculateVolatility.
type VolatilityResult struct {
	Symbol     string  `json:"symbol"`
	Volatility float64 `json:"volatility"`
	RiskLevel  string  `json:"risk_level"`
}

// CalculateVolatility computes the annualized standard deviation of daily
// log-returns over periods calendar days, scaled by sqrt(252), with risk
// bands LOW<15%, MEDIUM<30%, HIGH>=30% (the explicit
// bands, which supersede server_real.py's 20%/50% bands; see DESIGN.md).
func (s *Service) CalculateVolatility(ctx context.Context, rawSymbol string, periods int) (VolatilityResult, error) {
	symbol := NormalizeSymbol(rawSymbol)
	closes, err := s.quotes.PriceHistory(ctx, symbol, periods)
	if err != nil {
		return VolatilityResult{}, fmt.Errorf("market: upstream unavailable for %s: %w", symbol, err)
	}

	logReturns := indicators.LogReturns(closes)
	vol := indicators.AnnualizedStdDev(logReturns)

	var level string
	switch {
	case vol < 0.15:
		level = "LOW"
	case vol < 0.30:
		level = "MEDIUM"
	default:
		level = "HIGH"
	}

	return VolatilityResult{Symbol: symbol, Volatility: vol, RiskLevel: level}, nil
}

// MarketOverview is the payload of GetMarketOverview.
type MarketOverview struct {
	Indices   map[string]domain.Quote `json:"indices"`
	Timestamp time.Time               `json:"timestamp"`
}

// overviewSymbols mirrors server_real.py's fixed index/crypto basket.
var overviewSymbols = map[string]string{
	"sp500":    "SPX",
	"dow":      "DJI",
	"nasdaq":   "IXIC",
	"bitcoin":  "BTC",
	"ethereum": "ETH",
}

// GetMarketOverview returns a snapshot of the fixed index/crypto basket.
func (s *Service) GetMarketOverview(ctx context.Context) (MarketOverview, error) {
	overview := MarketOverview{Indices: make(map[string]domain.Quote, len(overviewSymbols)), Timestamp: time.Now().UTC()}
	for label, symbol := range overviewSymbols {
		quote, err := s.GetLivePrice(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("overview: symbol unavailable")
			continue
		}
		overview.Indices[label] = quote
	}
	return overview, nil
}
