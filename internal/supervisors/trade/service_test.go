package trade

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

// fakePeer spins up a real rpcserver.Server (the same stack every service
// in this tree runs) behind an httptest.Server, so the supervisor is
// exercised through the genuine JSON-RPC+SSE wire protocol rather than a
// mocked interface.
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

func newTestPeers(t *testing.T) Peers {
	return Peers{
		Market: fakePeer(t, "market", map[string]func(json.RawMessage) (any, error){
			"get_live_price": ok(map[string]any{"symbol": "AAPL", "price": 150.0, "timestamp": time.Now().UTC()}),
		}),
		Technical: fakePeer(t, "technical", map[string]func(json.RawMessage) (any, error){
			"generate_signal": ok(map[string]any{"symbol": "AAPL", "signal": "BUY", "confidence": 0.8, "source": "technical", "timestamp": time.Now().UTC()}),
		}),
		Volatility: fakePeer(t, "volatility", map[string]func(json.RawMessage) (any, error){
			"get_volatility_score": ok(map[string]any{"volatility": 0.2, "risk_level": "MEDIUM", "risk_score": 0.3}),
		}),
		News: fakePeer(t, "news", map[string]func(json.RawMessage) (any, error){
			"analyze_sentiment": ok(map[string]any{"label": "POSITIVE", "score": 0.7}),
		}),
		Risk: fakePeer(t, "risk", map[string]func(json.RawMessage) (any, error){
			"validate_trade": ok(map[string]any{"approved": true, "risk_score": 0.25, "violations": []string{}, "reason": "within policy"}),
		}),
		Execution: fakePeer(t, "execution", map[string]func(json.RawMessage) (any, error){
			"get_portfolio_state": ok(map[string]any{"total_value": 100000.0}),
			"execute_trade":       ok(map[string]any{"success": true, "trade_id": "ignored"}),
		}),
		Compliance: fakePeer(t, "compliance", map[string]func(json.RawMessage) (any, error){
			"log_event": ok(map[string]any{"success": true, "event_id": "evt_1", "logged_at": time.Now().UTC()}),
		}),
	}
}

func TestProcessTradeRequestApprovedPathExecutes(t *testing.T) {
	svc := New(newTestPeers(t), zerolog.Nop())
	result := svc.ProcessTradeRequest(context.Background(), "AAPL", 10)

	require.Empty(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, "BUY", result.Proposal.Action)
	assert.True(t, result.RiskValidation.Approved)
	require.NotNil(t, result.Execution)
	assert.Equal(t, true, result.Execution["success"])
}

func TestProcessTradeRequestRiskRejectionSkipsExecution(t *testing.T) {
	peers := newTestPeers(t)
	peers.Risk = fakePeer(t, "risk", map[string]func(json.RawMessage) (any, error){
		"validate_trade": ok(map[string]any{"approved": false, "risk_score": 0.9, "violations": []string{"max_position_fraction"}, "reason": "exceeds policy"}),
	})
	svc := New(peers, zerolog.Nop())
	result := svc.ProcessTradeRequest(context.Background(), "AAPL", 10)

	require.Empty(t, result.Error)
	assert.False(t, result.Success)
	assert.False(t, result.RiskValidation.Approved)
	assert.Nil(t, result.Execution)
}

func TestProcessTradeRequestPeerFailureShortCircuits(t *testing.T) {
	peers := newTestPeers(t)
	peers.Market = fakePeer(t, "market", map[string]func(json.RawMessage) (any, error){})
	svc := New(peers, zerolog.Nop())
	result := svc.ProcessTradeRequest(context.Background(), "AAPL", 10)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestDetermineActionMajorityVote(t *testing.T) {
	assert.Equal(t, "BUY", determineAction("BUY", "POSITIVE"))
	assert.Equal(t, "BUY", determineAction("BUY", "NEUTRAL"))
	assert.Equal(t, "HOLD", determineAction("BUY", "NEGATIVE"))
	assert.Equal(t, "SELL", determineAction("SELL", "NEGATIVE"))
	assert.Equal(t, "HOLD", determineAction("HOLD", "NEUTRAL"))
}

func TestAggregateConfidenceFormula(t *testing.T) {
	got := aggregateConfidence(0.8, 0.6, 0.2)
	assert.InDelta(t, 0.4*0.8+0.3*0.6+0.3*0.8, got, 1e-9)
}
