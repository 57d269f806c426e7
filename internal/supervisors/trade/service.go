// Package trade implements C7's trading-domain supervisor, grounded in
// original_source/mcp-servers/trader-supervisor/server.py's
// process_trade_request pipeline: gather market/technical/volatility/news
// intelligence, build a proposal, validate with risk, execute if approved,
// and audit every step to compliance. Unlike the original's placeholder
// call_mcp_tool stub, every step here is a real rpcclient call to the peer
// service (SPEC_FULL.md promotes both supervisors to first-class RPC
// services on ports 9014/9015).
package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/rpcclient"
)

// Peers is the set of downstream services the trading pipeline calls.
type Peers struct {
	Market     *rpcclient.Client
	Technical  *rpcclient.Client
	Volatility *rpcclient.Client
	News       *rpcclient.Client
	Risk       *rpcclient.Client
	Execution  *rpcclient.Client
	Compliance *rpcclient.Client
}

// Service orchestrates process_trade_request.
type Service struct {
	peers Peers
	log   zerolog.Logger
}

// New builds a trade Service calling out through peers.
func New(peers Peers, log zerolog.Logger) *Service {
	return &Service{peers: peers, log: log.With().Str("service", "trading-supervisor").Logger()}
}

// Result is the payload of process_trade_request.
type Result struct {
	Success        bool                  `json:"success"`
	TradeID        string                `json:"trade_id"`
	Proposal       *domain.TradeProposal `json:"proposal,omitempty"`
	RiskValidation *domain.RiskVerdict   `json:"risk_validation,omitempty"`
	Execution      map[string]any        `json:"execution,omitempty"`
	Error          string                `json:"error,omitempty"`
	Timestamp      time.Time             `json:"timestamp"`
}

func (s *Service) audit(ctx context.Context, eventType, agentName, action string, details map[string]any, severity string) {
	if s.peers.Compliance == nil {
		return
	}
	var out map[string]any
	if severity == "" {
		severity = "info"
	}
	args := map[string]any{"event_type": eventType, "agent_name": agentName, "action": action, "details": details, "severity": severity}
	if err := s.peers.Compliance.CallTool(ctx, "log_event", args, &out); err != nil {
		s.log.Warn().Err(err).Msg("compliance logging failed")
	}
}

// ProcessTradeRequest runs the full pipeline: market -> technical ->
// volatility -> news -> aggregate -> risk -> execution -> compliance.
// Single-pass, non-retrying; any peer failure short-circuits with an error
// audit event (spec §4.7).
func (s *Service) ProcessTradeRequest(ctx context.Context, symbol string, quantity float64) Result {
	tradeID := "TRD_" + uuid.New().String()[:8]
	now := time.Now().UTC()

	s.audit(ctx, domain.EventTypeProposal, "trading-supervisor", "process_trade_request",
		map[string]any{"trade_id": tradeID, "symbol": symbol, "quantity": quantity}, "info")

	result, err := s.run(ctx, tradeID, symbol, quantity)
	if err != nil {
		s.audit(ctx, domain.EventTypeError, "trading-supervisor", "process_trade_request",
			map[string]any{"trade_id": tradeID, "error": err.Error()}, domain.SeverityCritical)
		return Result{Success: false, TradeID: tradeID, Error: err.Error(), Timestamp: now}
	}
	return result
}

func (s *Service) run(ctx context.Context, tradeID, symbol string, quantity float64) (Result, error) {
	var quote domain.Quote
	if err := s.peers.Market.CallTool(ctx, "get_live_price", map[string]any{"symbol": symbol}, &quote); err != nil {
		return Result{}, fmt.Errorf("market data fetch failed: %w", err)
	}
	currentPrice := quote.Price

	var technical domain.Signal
	if err := s.peers.Technical.CallTool(ctx, "generate_signal", map[string]any{"symbol": symbol}, &technical); err != nil {
		return Result{}, fmt.Errorf("technical signal generation failed: %w", err)
	}

	var volatility struct {
		Volatility float64 `json:"volatility"`
		RiskLevel  string  `json:"risk_level"`
		RiskScore  float64 `json:"risk_score"`
	}
	if err := s.peers.Volatility.CallTool(ctx, "get_volatility_score", map[string]any{"symbol": symbol}, &volatility); err != nil {
		return Result{}, fmt.Errorf("volatility analysis failed: %w", err)
	}

	var sentiment struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := s.peers.News.CallTool(ctx, "analyze_sentiment", map[string]any{"symbol": symbol}, &sentiment); err != nil {
		return Result{}, fmt.Errorf("news sentiment analysis failed: %w", err)
	}
	sentimentConfidence := sentimentConfidenceFrom(sentiment.Label, sentiment.Score)

	action := determineAction(technical.Verdict, sentiment.Label)
	aggregateConfidence := aggregateConfidence(technical.Confidence, sentimentConfidence, volatility.RiskScore)

	var portfolioState struct {
		TotalValue float64 `json:"total_value"`
	}
	if err := s.peers.Execution.CallTool(ctx, "get_portfolio_state", nil, &portfolioState); err != nil {
		return Result{}, fmt.Errorf("portfolio state fetch failed: %w", err)
	}
	portfolioValue := portfolioState.TotalValue
	if portfolioValue == 0 {
		portfolioValue = 100000
	}

	tradeValue := quantity * currentPrice
	positionSizeFrac := tradeValue / portfolioValue

	proposal := domain.TradeProposal{
		TradeID: tradeID, Symbol: symbol, Action: action, Quantity: quantity,
		Price: currentPrice, Confidence: aggregateConfidence, Volatility: volatility.Volatility,
		PositionSizeFrac: positionSizeFrac, TradeValue: tradeValue,
		Signals: map[string]any{
			"technical": technical.Verdict, "sentiment": sentiment.Label, "risk_level": volatility.RiskLevel,
		},
	}
	s.audit(ctx, domain.EventTypeProposal, "trading-supervisor", "trade_proposal_created", toMap(proposal), "info")

	var verdict domain.RiskVerdict
	riskArgs := map[string]any{
		"symbol": symbol, "action": action, "quantity": quantity, "price": currentPrice,
		"confidence": aggregateConfidence, "volatility": volatility.Volatility,
		"position_size_pct": positionSizeFrac, "trade_value": tradeValue,
	}
	if err := s.peers.Risk.CallTool(ctx, "validate_trade", riskArgs, &verdict); err != nil {
		return Result{}, fmt.Errorf("risk validation failed: %w", err)
	}
	s.audit(ctx, domain.EventTypeRiskDecision, "risk-server", "validate_trade", mergeMap(map[string]any{"trade_id": tradeID, "approved": verdict.Approved}, toMap(verdict)), "info")

	var executionResult map[string]any
	if verdict.Approved {
		execArgs := map[string]any{
			"trade_id": tradeID, "symbol": symbol, "action": action, "quantity": quantity,
			"price": currentPrice, "approved": true, "risk_score": verdict.RiskScore,
		}
		if err := s.peers.Execution.CallTool(ctx, "execute_trade", execArgs, &executionResult); err != nil {
			return Result{}, fmt.Errorf("trade execution failed: %w", err)
		}
		success, _ := executionResult["success"].(bool)
		s.audit(ctx, domain.EventTypeExecution, "execution-server", "execute_trade", mergeMap(map[string]any{"trade_id": tradeID, "success": success}, executionResult), "info")
	}

	success := verdict.Approved && executionResult != nil
	if success {
		if s, ok := executionResult["success"].(bool); ok {
			success = s
		}
	}

	return Result{
		Success: success, TradeID: tradeID, Proposal: &proposal,
		RiskValidation: &verdict, Execution: executionResult, Timestamp: time.Now().UTC(),
	}, nil
}

// determineAction is a simple majority vote: +1 per BUY-ish source, -1 per
// SELL-ish source, HOLD on tie (spec §4.7).
func determineAction(technicalSignal, sentimentLabel string) string {
	votes := 0
	switch technicalSignal {
	case "BUY":
		votes++
	case "SELL":
		votes--
	}
	switch sentimentLabel {
	case "POSITIVE":
		votes++
	case "NEGATIVE":
		votes--
	}
	switch {
	case votes > 0:
		return "BUY"
	case votes < 0:
		return "SELL"
	default:
		return "HOLD"
	}
}

// aggregateConfidence is 0.4*technical + 0.3*sentiment + 0.3*(1-volatility_risk)
// (spec §4.7), where volatility_risk is the normalized [0,1] risk_score from
// the volatility service, not the raw unbounded annualized volatility
// fraction (which can exceed 1.0 and would drive this term negative).
func aggregateConfidence(technicalConfidence, sentimentConfidence, volatilityRisk float64) float64 {
	return 0.4*technicalConfidence + 0.3*sentimentConfidence + 0.3*(1-volatilityRisk)
}

// sentimentConfidenceFrom derives a confidence proxy from a news label/score
// pair when the peer does not separately report one.
func sentimentConfidenceFrom(label string, score float64) float64 {
	if label == "UNKNOWN" {
		return 0.5
	}
	return score
}

// toMap round-trips v through JSON so it can be embedded in a compliance
// event's free-form details map.
func toMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func mergeMap(base map[string]any, extra map[string]any) map[string]any {
	for k, v := range extra {
		base[k] = v
	}
	return base
}
