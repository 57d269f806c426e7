package alertengine

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

var validConditions = map[string]bool{
	domain.ConditionAbove: true, domain.ConditionBelow: true,
	domain.ConditionCrossesAbove: true, domain.ConditionCrossesBelow: true,
}

// RegisterTools wires every alert-engine tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("create_price_alert", "Register a new price alert for a symbol.",
		map[string]any{"type": "object", "properties": map[string]any{
			"symbol":    map[string]any{"type": "string"},
			"condition": map[string]any{"type": "string", "enum": []string{"above", "below", "crosses_above", "crosses_below"}},
			"threshold": map[string]any{"type": "number"},
			"channel":   map[string]any{"type": "string"},
			"owner_id":  map[string]any{"type": "string"},
		}, "required": []string{"symbol", "condition", "threshold"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Symbol    string  `json:"symbol"`
				Condition string  `json:"condition"`
				Threshold float64 `json:"threshold"`
				Channel   string  `json:"channel"`
				OwnerID   string  `json:"owner_id"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Symbol == "" {
				return nil, apperr.NewInvalidParams("symbol, condition, and threshold are required")
			}
			if !validConditions[in.Condition] {
				return nil, apperr.NewInvalidParams("condition must be one of above, below, crosses_above, crosses_below")
			}
			if in.Channel == "" {
				in.Channel = "file"
			}
			alert, monitorStatus := svc.CreatePriceAlert(in.Symbol, in.Condition, in.Threshold, in.Channel, in.OwnerID)
			return map[string]any{"alert": alert, "alert_id": alert.AlertID, "monitor_status": monitorStatus}, nil
		})

	registry.Register("list_price_alerts", "List price alerts, optionally filtered by owner and active status.",
		map[string]any{"type": "object", "properties": map[string]any{
			"owner_id":    map[string]any{"type": "string"},
			"active_only": map[string]any{"type": "boolean"},
		}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var in struct {
				OwnerID    string `json:"owner_id"`
				ActiveOnly bool   `json:"active_only"`
			}
			_ = json.Unmarshal(args, &in)
			alerts := svc.ListPriceAlerts(in.OwnerID, in.ActiveOnly)
			return map[string]any{"count": len(alerts), "alerts": alerts}, nil
		})

	registry.Register("delete_price_alert", "Delete a price alert by id.",
		map[string]any{"type": "object", "properties": map[string]any{
			"alert_id": map[string]any{"type": "string"},
		}, "required": []string{"alert_id"}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var in struct {
				AlertID string `json:"alert_id"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.AlertID == "" {
				return nil, apperr.NewInvalidParams("alert_id is required")
			}
			deleted := svc.DeletePriceAlert(in.AlertID)
			if !deleted {
				return map[string]any{"success": false, "reason": "alert not found"}, nil
			}
			return map[string]any{"success": true}, nil
		})

	registry.Register("check_alerts_now", "Run one alert evaluation pass immediately.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(ctx context.Context, _ json.RawMessage) (any, error) {
			fired, checked := svc.CheckAlertsNow(ctx)
			return map[string]any{"alerts_checked": checked, "alerts_fired": len(fired), "fired": fired}, nil
		})

	registry.Register("start_monitor", "Start the recurring alert-monitoring loop.",
		map[string]any{"type": "object", "properties": map[string]any{
			"interval_seconds": map[string]any{"type": "integer"},
		}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var in struct {
				IntervalSeconds int `json:"interval_seconds"`
			}
			_ = json.Unmarshal(args, &in)
			if in.IntervalSeconds <= 0 {
				in.IntervalSeconds = 60
			} else if in.IntervalSeconds < 10 {
				in.IntervalSeconds = 10
			}
			started := svc.StartMonitor(in.IntervalSeconds)
			if !started {
				return map[string]any{"success": false, "reason": "monitor already running"}, nil
			}
			return map[string]any{"success": true, "interval_seconds": in.IntervalSeconds}, nil
		})

	registry.Register("stop_monitor", "Stop the recurring alert-monitoring loop.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			stopped := svc.StopMonitor()
			if !stopped {
				return map[string]any{"success": false, "reason": "monitor not running"}, nil
			}
			return map[string]any{"success": true}, nil
		})

	registry.Register("get_monitor_status", "Report whether the alert monitor is running and its recent tick history.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			return svc.GetMonitorStatus(), nil
		})
}
