// Package providers defines the thin interfaces to the external
// collaborators this control plane deliberately keeps out of scope (quote, news, economic
// indicator, company-info, LLM data sources) plus deterministic fallback
// implementations in the style of original_source's generate_mock_prices
// helpers. Real provider wiring is a thin wrapper over these interfaces,
// not part of the core.
package providers

import (
	"context"
	"math"
	"math/rand"
)

// QuoteProvider returns a live price and a synthetic recent close-price
// history for a symbol. The deterministic implementation seeds its random
// walk from the symbol's bytes so repeated calls within a process are
// stable, which keeps technical/volatility signal tests reproducible.
type QuoteProvider interface {
	LivePrice(ctx context.Context, symbol string) (float64, error)
	PriceHistory(ctx context.Context, symbol string, periods int) ([]float64, error)
}

// DeterministicQuoteProvider is the fallback used when no real market data
// feed is configured ("capability-probe at startup").
type DeterministicQuoteProvider struct{}

// NewDeterministicQuoteProvider builds the fallback quote provider.
func NewDeterministicQuoteProvider() *DeterministicQuoteProvider {
	return &DeterministicQuoteProvider{}
}

func seedFor(symbol string) int64 {
	var h int64 = 1469598103934665603
	for _, c := range symbol {
		h ^= int64(c)
		h *= 1099511628211
	}
	if h < 0 {
		h = -h
	}
	return h
}

func basePrice(symbol string) float64 {
	seed := seedFor(symbol)
	return 10 + float64(seed%49000)/100.0
}

// LivePrice returns a stable-per-symbol synthetic price.
func (p *DeterministicQuoteProvider) LivePrice(_ context.Context, symbol string) (float64, error) {
	history, err := p.PriceHistory(context.Background(), symbol, 1)
	if err != nil {
		return 0, err
	}
	return history[len(history)-1], nil
}

// PriceHistory generates a deterministic pseudo-random-walk close series,
// matching the shape of original_source's generate_mock_prices helpers
// (used across market/technical/volatility/simulation servers).
func (p *DeterministicQuoteProvider) PriceHistory(_ context.Context, symbol string, periods int) ([]float64, error) {
	if periods < 1 {
		periods = 1
	}
	r := rand.New(rand.NewSource(seedFor(symbol)))
	prices := make([]float64, periods)
	prices[0] = basePrice(symbol)
	for i := 1; i < periods; i++ {
		change := r.NormFloat64() * 0.02
		prices[i] = prices[i-1] * (1 + change)
		if prices[i] < 0.01 {
			prices[i] = 0.01
		}
	}
	return prices, nil
}

// NewsHeadline is one item returned by a NewsProvider.
type NewsHeadline struct {
	Title  string
	Source string
}

// NewsProvider returns recent headlines for a symbol.
type NewsProvider interface {
	Headlines(ctx context.Context, symbol string) ([]NewsHeadline, error)
}

// KeywordFallbackNewsProvider returns no headlines, forcing the news
// service's UNKNOWN path ("if no headlines and no LLM, return
// UNKNOWN"). This is the correct fallback when NEWS_API_KEY is unset.
type KeywordFallbackNewsProvider struct{}

// NewKeywordFallbackNewsProvider builds the no-op headline source.
func NewKeywordFallbackNewsProvider() *KeywordFallbackNewsProvider { return &KeywordFallbackNewsProvider{} }

// Headlines always returns an empty slice.
func (p *KeywordFallbackNewsProvider) Headlines(_ context.Context, _ string) ([]NewsHeadline, error) {
	return nil, nil
}

// SentimentScorer scores a single headline's text, either via an LLM
// capability or a deterministic keyword bag ("ordered
// provider list").
type SentimentScorer interface {
	Score(ctx context.Context, headline string) (label string, score float64, err error)
}

// KeywordSentimentScorer is the deterministic fallback scorer: a small
// positive/negative keyword bag.
type KeywordSentimentScorer struct{}

// NewKeywordSentimentScorer builds the fallback scorer.
func NewKeywordSentimentScorer() *KeywordSentimentScorer { return &KeywordSentimentScorer{} }

var positiveWords = []string{"surge", "beat", "growth", "rally", "upgrade", "strong", "record", "profit"}
var negativeWords = []string{"plunge", "miss", "decline", "crash", "downgrade", "weak", "loss", "lawsuit"}

// Score returns a deterministic sentiment label/score from keyword matches.
func (p *KeywordSentimentScorer) Score(_ context.Context, headline string) (string, float64, error) {
	lower := toLower(headline)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if contains(lower, w) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return "POSITIVE", 0.5 + 0.1*float64(pos-neg), nil
	case neg > pos:
		return "NEGATIVE", 0.5 - 0.1*float64(neg-pos), nil
	default:
		return "NEUTRAL", 0.5, nil
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func contains(haystack, needle string) bool {
	if len(needle) == 0 || len(haystack) < len(needle) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// EconSeriesProvider returns the fixed macro snapshot (GDP growth, CPI YoY,
// unemployment, policy rate, 2Y/10Y yield, VIX, consumer sentiment).
type EconSeriesProvider interface {
	Series(ctx context.Context) (EconSnapshot, error)
}

// EconSnapshot is the fixed macro attribute vector.
type EconSnapshot struct {
	GDPGrowth         float64
	CPIYoY            float64
	Unemployment      float64
	PolicyRate        float64
	Yield2Y           float64
	Yield10Y          float64
	VIX               float64
	ConsumerSentiment float64
}

// DeterministicEconProvider is the fallback used when FRED_API_KEY is
// unset: a plausible, stable snapshot rather than a live call.
type DeterministicEconProvider struct{}

// NewDeterministicEconProvider builds the fallback macro provider.
func NewDeterministicEconProvider() *DeterministicEconProvider { return &DeterministicEconProvider{} }

// Series returns a fixed, plausible macro snapshot.
func (p *DeterministicEconProvider) Series(_ context.Context) (EconSnapshot, error) {
	return EconSnapshot{
		GDPGrowth:         2.1,
		CPIYoY:            3.0,
		Unemployment:      4.1,
		PolicyRate:        4.5,
		Yield2Y:           4.3,
		Yield10Y:          4.2,
		VIX:               16.5,
		ConsumerSentiment: 68.0,
	}, nil
}

// CompanyInfo is the fixed attribute vector the fundamental service scores.
type CompanyInfo struct {
	MarketCap         float64
	PERatio           float64
	PBRatio           float64
	PEGRatio          float64
	ProfitMargin      float64
	ROE               float64
	RevenueGrowthYoY  float64
	EarningsGrowthYoY float64
	DebtToEquity      float64
	AnalystConsensus  string // BUY, HOLD, SELL
}

// CompanyInfoProvider returns the fundamental attribute vector for a symbol.
type CompanyInfoProvider interface {
	Info(ctx context.Context, symbol string) (CompanyInfo, error)
}

// DeterministicCompanyInfoProvider derives a stable synthetic attribute
// vector from the symbol's hash, same determinism rationale as
// DeterministicQuoteProvider.
type DeterministicCompanyInfoProvider struct{}

// NewDeterministicCompanyInfoProvider builds the fallback provider.
func NewDeterministicCompanyInfoProvider() *DeterministicCompanyInfoProvider {
	return &DeterministicCompanyInfoProvider{}
}

// Info returns a deterministic, plausible attribute vector.
func (p *DeterministicCompanyInfoProvider) Info(_ context.Context, symbol string) (CompanyInfo, error) {
	seed := seedFor(symbol)
	r := rand.New(rand.NewSource(seed))
	return CompanyInfo{
		MarketCap:         math.Abs(r.NormFloat64())*5e10 + 1e9,
		PERatio:           10 + r.Float64()*25,
		PBRatio:           1 + r.Float64()*5,
		PEGRatio:          0.5 + r.Float64()*2,
		ProfitMargin:      r.Float64() * 0.3,
		ROE:               r.Float64() * 0.35,
		RevenueGrowthYoY:  (r.Float64() - 0.3) * 0.4,
		EarningsGrowthYoY: (r.Float64() - 0.3) * 0.5,
		DebtToEquity:      r.Float64() * 2,
		AnalystConsensus:  []string{"BUY", "HOLD", "SELL"}[int(seed)%3],
	}, nil
}
