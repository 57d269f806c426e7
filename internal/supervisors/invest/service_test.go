package invest

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autofinance/control-plane/internal/rpcclient"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

func fakePeer(t *testing.T, name string, tools map[string]func(args json.RawMessage) (any, error)) *rpcclient.Client {
	t.Helper()
	registry := rpcserver.NewRegistry()
	for toolName, handler := range tools {
		h := handler
		registry.Register(toolName, "test tool", map[string]any{"type": "object"},
			func(_ context.Context, args json.RawMessage) (any, error) { return h(args) })
	}
	srv := rpcserver.NewServer(name, "test", 0, registry, zerolog.Nop(), nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return rpcclient.New(ts.URL+"/mcp", "test-client", 5*time.Second)
}

func ok(v any) func(json.RawMessage) (any, error) {
	return func(json.RawMessage) (any, error) { return v, nil }
}

func basePosition() map[string]any {
	return map[string]any{"quantity": 10.0, "avg_price": 100.0, "current_price": 110.0, "current_value": 1100.0}
}

func newTestPeers(t *testing.T, rebalanceChanges []map[string]any) Peers {
	return Peers{
		Execution: fakePeer(t, "execution", map[string]func(json.RawMessage) (any, error){
			"get_portfolio_state": ok(map[string]any{
				"cash": 2000.0, "total_value": 3100.0,
				"positions": map[string]any{"AAPL": basePosition()},
			}),
			"apply_rebalance": ok(map[string]any{"success": true, "rebalance_id": "ignored"}),
		}),
		PortfolioAnalytics: fakePeer(t, "portfolio-analytics", map[string]func(json.RawMessage) (any, error){
			"evaluate_portfolio": ok(map[string]any{
				"total_value": 3100.0, "concentration": 0.3, "diversification": 0.7,
				"cash_fraction": 0.64, "overexposed": []string{}, "health_score": 0.6,
				"health_rating": "GOOD", "weights": map[string]float64{"AAPL": 0.36},
			}),
			"calculate_rebalance_proposal": ok(map[string]any{"changes": rebalanceChanges, "total_value": 3100.0}),
		}),
		Macro: fakePeer(t, "macro", map[string]func(json.RawMessage) (any, error){
			"analyze_macro": ok(map[string]any{"investment_stance": "BALANCED", "market_regime": "NEUTRAL"}),
		}),
		Fundamental: fakePeer(t, "fundamental", map[string]func(json.RawMessage) (any, error){
			"analyze_fundamentals": ok(map[string]any{"symbol": "AAPL", "recommendation": "HOLD", "overall_score": 0.6}),
		}),
		Risk: fakePeer(t, "risk", map[string]func(json.RawMessage) (any, error){
			"validate_rebalance": ok(map[string]any{"approved": true, "risk_score": 0.2, "violations": []string{}, "reason": "within turnover limit"}),
		}),
		Compliance: fakePeer(t, "compliance", map[string]func(json.RawMessage) (any, error){
			"log_event": ok(map[string]any{"success": true, "event_id": "evt_1", "logged_at": time.Now().UTC()}),
		}),
	}
}

func TestProcessInvestmentReviewNoChangesNeeded(t *testing.T) {
	svc := New(newTestPeers(t, nil), zerolog.Nop())
	result := svc.ProcessInvestmentReview(context.Background())

	require.Empty(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "NO_REBALANCE", result.ActionTaken)
	assert.Nil(t, result.Execution)
}

func TestProcessInvestmentReviewRebalancesWhenApproved(t *testing.T) {
	changes := []map[string]any{{"symbol": "AAPL", "action": "SELL", "quantity": 2.0, "price": 110.0, "value": -220.0, "current_weight": 0.36, "target_weight": 0.30}}
	svc := New(newTestPeers(t, changes), zerolog.Nop())
	result := svc.ProcessInvestmentReview(context.Background())

	require.Empty(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "REBALANCED", result.ActionTaken)
	require.NotNil(t, result.Execution)
	assert.Equal(t, true, result.Execution["success"])
}

func TestProcessInvestmentReviewRiskRejectionSkipsExecution(t *testing.T) {
	changes := []map[string]any{{"symbol": "AAPL", "action": "SELL", "quantity": 2.0, "price": 110.0, "value": -220.0, "current_weight": 0.36, "target_weight": 0.30}}
	peers := newTestPeers(t, changes)
	peers.Risk = fakePeer(t, "risk", map[string]func(json.RawMessage) (any, error){
		"validate_rebalance": ok(map[string]any{"approved": false, "risk_score": 0.9, "violations": []string{"max_turnover_fraction"}, "reason": "exceeds turnover"}),
	})
	svc := New(peers, zerolog.Nop())
	result := svc.ProcessInvestmentReview(context.Background())

	require.Empty(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "REBALANCE_REJECTED", result.ActionTaken)
	assert.Nil(t, result.Execution)
}

func TestProcessInvestmentReviewPeerFailureShortCircuits(t *testing.T) {
	peers := newTestPeers(t, nil)
	peers.Macro = fakePeer(t, "macro", map[string]func(json.RawMessage) (any, error){})
	svc := New(peers, zerolog.Nop())
	result := svc.ProcessInvestmentReview(context.Background())

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, "ERROR", result.ActionTaken)
}

func TestTargetAllocationScalesByStance(t *testing.T) {
	positions := []wirePosition{{Symbol: "AAPL"}, {Symbol: "MSFT"}}
	aggressive := targetAllocation(positions, "AGGRESSIVE")
	assert.InDelta(t, 0.40, aggressive["AAPL"], 1e-9)

	defensive := targetAllocation(positions, "DEFENSIVE")
	assert.InDelta(t, 0.25, defensive["AAPL"], 1e-9)

	balanced := targetAllocation(positions, "BALANCED")
	assert.InDelta(t, 0.35, balanced["AAPL"], 1e-9)
}
