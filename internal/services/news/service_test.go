package news

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/logger"
	"github.com/autofinance/control-plane/internal/providers"
)

func TestAnalyzeSentimentUnknownWithNoHeadlines(t *testing.T) {
	svc := New(providers.NewKeywordFallbackNewsProvider(), providers.NewKeywordSentimentScorer(), logger.New(logger.Config{}))
	analysis, err := svc.AnalyzeSentiment(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", analysis.Label)
}

type fixedHeadlineProvider struct{ headlines []providers.NewsHeadline }

func (p fixedHeadlineProvider) Headlines(_ context.Context, _ string) ([]providers.NewsHeadline, error) {
	return p.headlines, nil
}

func TestAnalyzeSentimentBandsFromMeanScore(t *testing.T) {
	provider := fixedHeadlineProvider{headlines: []providers.NewsHeadline{
		{Title: "Company posts record profit and strong growth", Source: "wire"},
		{Title: "Stock surges on beat and rally", Source: "wire"},
	}}
	svc := New(provider, providers.NewKeywordSentimentScorer(), logger.New(logger.Config{}))
	analysis, err := svc.AnalyzeSentiment(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "POSITIVE", analysis.Label)
	assert.Len(t, analysis.Headlines, 2)
}

func TestBandLabelThresholds(t *testing.T) {
	assert.Equal(t, "POSITIVE", bandLabel(0.7))
	assert.Equal(t, "NEGATIVE", bandLabel(0.2))
	assert.Equal(t, "NEUTRAL", bandLabel(0.5))
}
