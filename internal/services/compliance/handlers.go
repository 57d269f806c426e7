package compliance

import (
	"context"
	"encoding/json"
	"time"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires every compliance-log tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("log_event", "Append a compliance event to the audit trail.",
		map[string]any{"type": "object", "properties": map[string]any{
			"event_type": map[string]any{"type": "string"},
			"agent_name": map[string]any{"type": "string"},
			"action":     map[string]any{"type": "string"},
			"details":    map[string]any{"type": "object"},
			"severity":   map[string]any{"type": "string"},
		}, "required": []string{"event_type", "agent_name", "action"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				EventType string         `json:"event_type"`
				AgentName string         `json:"agent_name"`
				Action    string         `json:"action"`
				Details   map[string]any `json:"details"`
				Severity  string         `json:"severity"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid log_event arguments")
			}
			if wire.Severity == "" {
				wire.Severity = "info"
			}
			event := svc.LogEvent(wire.EventType, wire.AgentName, wire.Action, wire.Details, wire.Severity)
			return map[string]any{"success": true, "event_id": event.EventID, "logged_at": event.Timestamp}, nil
		})

	registry.Register("generate_audit_report", "Generate a filtered compliance audit report.",
		map[string]any{"type": "object", "properties": map[string]any{
			"start_time": map[string]any{"type": "string"},
			"end_time":   map[string]any{"type": "string"},
			"event_type": map[string]any{"type": "string"},
			"agent_name": map[string]any{"type": "string"},
		}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				StartTime string `json:"start_time"`
				EndTime   string `json:"end_time"`
				EventType string `json:"event_type"`
				AgentName string `json:"agent_name"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid generate_audit_report arguments")
			}
			filter := ReportFilter{EventType: wire.EventType, AgentName: wire.AgentName}
			if wire.StartTime != "" {
				if t, err := time.Parse(time.RFC3339, wire.StartTime); err == nil {
					filter.StartTime = t
				}
			}
			if wire.EndTime != "" {
				if t, err := time.Parse(time.RFC3339, wire.EndTime); err == nil {
					filter.EndTime = t
				}
			}
			return svc.GenerateAuditReport(filter), nil
		})

	registry.Register("get_recent_events", "Return the most recent audit events.",
		map[string]any{"type": "object", "properties": map[string]any{
			"limit":      map[string]any{"type": "number"},
			"event_type": map[string]any{"type": "string"},
		}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var wire struct {
				Limit     int    `json:"limit"`
				EventType string `json:"event_type"`
			}
			if err := json.Unmarshal(args, &wire); err != nil {
				return nil, apperr.NewInvalidParams("invalid get_recent_events arguments")
			}
			if wire.Limit == 0 {
				wire.Limit = 20
			}
			events, total := svc.GetRecentEvents(wire.Limit, wire.EventType)
			return map[string]any{"count": len(events), "total_events": total, "events": events}, nil
		})

	registry.Register("get_compliance_metrics", "Return headline compliance KPIs.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			return svc.GetComplianceMetrics(), nil
		})

	registry.Register("clear_audit_log", "Clear the audit log (testing/demo reset).",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			cleared := svc.ClearAuditLog()
			return map[string]any{"success": true, "events_cleared": cleared, "timestamp": time.Now().UTC()}, nil
		})
}
