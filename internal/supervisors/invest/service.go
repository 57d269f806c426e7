// Package invest implements C7's investment-review supervisor, grounded in
// original_source/mcp-servers/investor-supervisor/server.py's
// process_investment_review pipeline: read the current portfolio, evaluate
// its health, read the macro regime, score each held symbol's
// fundamentals, derive a target allocation, validate and (if approved)
// apply the resulting rebalance.
package invest

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

// Peers is the set of downstream services the investment-review pipeline calls.
type Peers struct {
	Execution          *rpcclient.Client
	PortfolioAnalytics *rpcclient.Client
	Macro              *rpcclient.Client
	Fundamental        *rpcclient.Client
	Risk               *rpcclient.Client
	Compliance         *rpcclient.Client
}

// Service orchestrates process_investment_review.
type Service struct {
	peers Peers
	log   zerolog.Logger
}

// New builds an invest Service calling out through peers.
func New(peers Peers, log zerolog.Logger) *Service {
	return &Service{peers: peers, log: log.With().Str("service", "investment-supervisor").Logger()}
}

// Result is the payload of process_investment_review.
type Result struct {
	Success          bool                      `json:"success"`
	ReviewID         string                    `json:"review_id"`
	ActionTaken      string                    `json:"action_taken"`
	PortfolioHealth  *evaluationView           `json:"portfolio_health,omitempty"`
	MacroAnalysis    map[string]any            `json:"macro_analysis,omitempty"`
	Fundamentals     map[string]map[string]any `json:"fundamentals,omitempty"`
	TargetAllocation map[string]float64        `json:"target_allocation,omitempty"`
	RebalanceChanges []domain.Change           `json:"rebalance_changes,omitempty"`
	RiskValidation   *domain.RiskVerdict       `json:"risk_validation,omitempty"`
	Execution        map[string]any            `json:"execution,omitempty"`
	Error            string                    `json:"error,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
}

type evaluationView struct {
	TotalValue      float64            `json:"total_value"`
	Concentration   float64            `json:"concentration"`
	Diversification float64            `json:"diversification"`
	CashFraction    float64            `json:"cash_fraction"`
	Overexposed     []string           `json:"overexposed"`
	HealthScore     float64            `json:"health_score"`
	HealthRating    string             `json:"health_rating"`
	Weights         map[string]float64 `json:"weights"`
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

// wirePosition mirrors portfolioanalytics' wireState/wirePosition shape.
type wirePosition struct {
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	CurrentPrice float64 `json:"current_price"`
}

type wireState struct {
	Cash      float64        `json:"cash"`
	Positions []wirePosition `json:"positions"`
}

// ProcessInvestmentReview runs the full pipeline: portfolio state ->
// portfolio health -> macro regime -> fundamentals -> target allocation ->
// risk validation -> execution. Single-pass, non-retrying; any peer
// failure short-circuits with an error audit event.
func (s *Service) ProcessInvestmentReview(ctx context.Context) Result {
	reviewID := "REV_" + uuid.New().String()[:8]
	now := time.Now().UTC()

	s.audit(ctx, domain.EventTypeProposal, "investment-supervisor", "process_investment_review",
		map[string]any{"review_id": reviewID}, "info")

	result, err := s.run(ctx, reviewID)
	if err != nil {
		s.audit(ctx, domain.EventTypeError, "investment-supervisor", "process_investment_review",
			map[string]any{"review_id": reviewID, "error": err.Error()}, domain.SeverityCritical)
		return Result{Success: false, ReviewID: reviewID, ActionTaken: "ERROR", Error: err.Error(), Timestamp: now}
	}
	return result
}

func (s *Service) run(ctx context.Context, reviewID string) (Result, error) {
	var portfolio struct {
		Cash       float64                    `json:"cash"`
		Positions  map[string]domain.Position `json:"positions"`
		TotalValue float64                    `json:"total_value"`
	}
	if err := s.peers.Execution.CallTool(ctx, "get_portfolio_state", nil, &portfolio); err != nil {
		return Result{}, fmt.Errorf("portfolio state fetch failed: %w", err)
	}

	state := wireState{Cash: portfolio.Cash}
	for symbol, pos := range portfolio.Positions {
		state.Positions = append(state.Positions, wirePosition{
			Symbol: symbol, Quantity: pos.Quantity, AveragePrice: pos.AveragePrice, CurrentPrice: pos.CurrentPrice,
		})
	}

	var health evaluationView
	if err := s.peers.PortfolioAnalytics.CallTool(ctx, "evaluate_portfolio", map[string]any{"state": state}, &health); err != nil {
		return Result{}, fmt.Errorf("portfolio evaluation failed: %w", err)
	}

	var macro map[string]any
	if err := s.peers.Macro.CallTool(ctx, "analyze_macro", nil, &macro); err != nil {
		return Result{}, fmt.Errorf("macro analysis failed: %w", err)
	}
	stance, _ := macro["investment_stance"].(string)

	fundamentals := make(map[string]map[string]any, len(state.Positions))
	for _, pos := range state.Positions {
		var analysis map[string]any
		if err := s.peers.Fundamental.CallTool(ctx, "analyze_fundamentals", map[string]any{"symbol": pos.Symbol}, &analysis); err != nil {
			return Result{}, fmt.Errorf("fundamental analysis failed for %s: %w", pos.Symbol, err)
		}
		fundamentals[pos.Symbol] = analysis
	}

	target := targetAllocation(state.Positions, stance)

	var proposal struct {
		Changes    []domain.Change `json:"changes"`
		TotalValue float64         `json:"total_value"`
	}
	if err := s.peers.PortfolioAnalytics.CallTool(ctx, "calculate_rebalance_proposal",
		map[string]any{"state": state, "target_allocation": target}, &proposal); err != nil {
		return Result{}, fmt.Errorf("rebalance proposal computation failed: %w", err)
	}

	if len(proposal.Changes) == 0 {
		return Result{
			Success: true, ReviewID: reviewID, ActionTaken: "NO_REBALANCE",
			PortfolioHealth: &health, MacroAnalysis: macro, Fundamentals: fundamentals,
			TargetAllocation: target, Timestamp: time.Now().UTC(),
		}, nil
	}

	changeArgs := make([]map[string]any, len(proposal.Changes))
	for i, c := range proposal.Changes {
		changeArgs[i] = map[string]any{"symbol": c.Symbol, "value": c.Value}
	}

	var verdict domain.RiskVerdict
	if err := s.peers.Risk.CallTool(ctx, "validate_rebalance", map[string]any{
		"changes": changeArgs, "total_value": proposal.TotalValue,
	}, &verdict); err != nil {
		return Result{}, fmt.Errorf("risk validation failed: %w", err)
	}
	s.audit(ctx, domain.EventTypeRiskDecision, "risk-server", "validate_rebalance",
		mergeMap(map[string]any{"review_id": reviewID, "approved": verdict.Approved}, toMap(verdict)), "info")

	var executionResult map[string]any
	actionTaken := "REBALANCE_REJECTED"
	if verdict.Approved {
		execChanges := make([]map[string]any, len(proposal.Changes))
		for i, c := range proposal.Changes {
			execChanges[i] = map[string]any{"symbol": c.Symbol, "action": c.Action, "quantity": c.Quantity, "price": c.Price}
		}
		if err := s.peers.Execution.CallTool(ctx, "apply_rebalance", map[string]any{
			"rebalance_id": reviewID, "changes": execChanges, "approved": true, "risk_score": verdict.RiskScore,
		}, &executionResult); err != nil {
			return Result{}, fmt.Errorf("rebalance execution failed: %w", err)
		}
		actionTaken = "REBALANCED"
		s.audit(ctx, domain.EventTypeExecution, "execution-server", "apply_rebalance",
			mergeMap(map[string]any{"review_id": reviewID}, executionResult), "info")
	}

	return Result{
		Success: true, ReviewID: reviewID, ActionTaken: actionTaken,
		PortfolioHealth: &health, MacroAnalysis: macro, Fundamentals: fundamentals,
		TargetAllocation: target, RebalanceChanges: proposal.Changes,
		RiskValidation: &verdict, Execution: executionResult, Timestamp: time.Now().UTC(),
	}, nil
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

// targetAllocation spreads investedFraction (per investment stance) equally
// across current positions, leaving the remainder in cash.
func targetAllocation(positions []wirePosition, stance string) map[string]float64 {
	invested := 0.70
	switch stance {
	case "AGGRESSIVE":
		invested = 0.80
	case "DEFENSIVE":
		invested = 0.50
	}
	target := make(map[string]float64, len(positions))
	if len(positions) == 0 {
		return target
	}
	weight := invested / float64(len(positions))
	for _, p := range positions {
		target[p.Symbol] = weight
	}
	return target
}
