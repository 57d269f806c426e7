// Package news implements C3's News analytical service, grounded in
// original_source/mcp-servers/news/server.py's score_headline_keywords and
// aggregate-sentiment logic.
package news

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/providers"
)

type Service struct {
	headlines providers.NewsProvider
	scorer    providers.SentimentScorer
	log       zerolog.Logger
}

func New(headlines providers.NewsProvider, scorer providers.SentimentScorer, log zerolog.Logger) *Service {
	return &Service{headlines: headlines, scorer: scorer, log: log.With().Str("service", "news").Logger()}
}

// HeadlineScore is one scored headline.
type HeadlineScore struct {
	Headline string  `json:"headline"`
	Source   string  `json:"source"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
}

// Analysis is the aggregate sentiment read for a symbol.
type Analysis struct {
	Symbol        string          `json:"symbol"`
	Label         string          `json:"label"`
	Score         float64         `json:"score,omitempty"`
	Headlines     []HeadlineScore `json:"headlines"`
	HeadlineCount int             `json:"headline_count"`
	Timestamp     time.Time       `json:"timestamp"`
}

// bandLabel maps an aggregate score to POSITIVE/NEGATIVE/NEUTRAL.
func bandLabel(score float64) string {
	switch {
	case score > 0.6:
		return "POSITIVE"
	case score < 0.4:
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}

// AnalyzeSentiment fetches headlines and scores each, returning the
// aggregate mean. With no headlines at all, the result is UNKNOWN — never
// NEUTRAL — so callers can distinguish "no signal" from "mixed signal".
func (s *Service) AnalyzeSentiment(ctx context.Context, symbol string) (Analysis, error) {
	items, err := s.headlines.Headlines(ctx, symbol)
	if err != nil {
		return Analysis{}, fmt.Errorf("fetching headlines: %w", err)
	}

	if len(items) == 0 {
		return Analysis{Symbol: symbol, Label: "UNKNOWN", Timestamp: time.Now().UTC()}, nil
	}

	scores := make([]HeadlineScore, 0, len(items))
	var sum float64
	for _, item := range items {
		label, score, err := s.scorer.Score(ctx, item.Title)
		if err != nil {
			return Analysis{}, fmt.Errorf("scoring headline: %w", err)
		}
		scores = append(scores, HeadlineScore{Headline: item.Title, Source: item.Source, Label: label, Score: score})
		sum += score
	}

	mean := sum / float64(len(scores))

	return Analysis{
		Symbol: symbol, Label: bandLabel(mean), Score: mean,
		Headlines: scores, HeadlineCount: len(scores), Timestamp: time.Now().UTC(),
	}, nil
}
