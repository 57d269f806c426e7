package notification

import (
	"context"
	"encoding/json"

	"github.com/autofinance/control-plane/internal/apperr"
	"github.com/autofinance/control-plane/internal/rpcserver"
)

// RegisterTools wires every notification-gateway tool into registry.
func RegisterTools(registry *rpcserver.Registry, svc *Service) {
	registry.Register("send_notification", "Send a notification to a single channel.",
		map[string]any{"type": "object", "properties": map[string]any{
			"message":  map[string]any{"type": "string"},
			"channel":  map[string]any{"type": "string"},
			"severity": map[string]any{"type": "string"},
			"title":    map[string]any{"type": "string"},
		}, "required": []string{"message", "channel"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Message  string `json:"message"`
				Channel  string `json:"channel"`
				Severity string `json:"severity"`
				Title    string `json:"title"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Message == "" || in.Channel == "" {
				return nil, apperr.NewInvalidParams("message and channel are required")
			}
			if in.Severity == "" {
				in.Severity = "info"
			}
			if in.Title == "" {
				in.Title = "AutoFinance Notification"
			}
			return svc.SendNotification(ctx, in.Message, in.Channel, in.Severity, in.Title), nil
		})

	registry.Register("send_alert", "Broadcast an alert to every configured notification channel.",
		map[string]any{"type": "object", "properties": map[string]any{
			"title":    map[string]any{"type": "string"},
			"message":  map[string]any{"type": "string"},
			"severity": map[string]any{"type": "string"},
		}, "required": []string{"title", "message"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Title    string `json:"title"`
				Message  string `json:"message"`
				Severity string `json:"severity"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Title == "" || in.Message == "" {
				return nil, apperr.NewInvalidParams("title and message are required")
			}
			if in.Severity == "" {
				in.Severity = "info"
			}
			return svc.SendAlert(ctx, in.Title, in.Message, in.Severity), nil
		})

	registry.Register("send_multi_channel", "Send a notification to an explicit list of channels.",
		map[string]any{"type": "object", "properties": map[string]any{
			"message":        map[string]any{"type": "string"},
			"channels":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"severity":       map[string]any{"type": "string"},
			"title":          map[string]any{"type": "string"},
			"email_to":       map[string]any{"type": "string"},
			"email_subject":  map[string]any{"type": "string"},
		}, "required": []string{"message", "channels"}},
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Message      string   `json:"message"`
				Channels     []string `json:"channels"`
				Severity     string   `json:"severity"`
				Title        string   `json:"title"`
				EmailTo      string   `json:"email_to"`
				EmailSubject string   `json:"email_subject"`
			}
			if err := json.Unmarshal(args, &in); err != nil || in.Message == "" || len(in.Channels) == 0 {
				return nil, apperr.NewInvalidParams("message and channels are required")
			}
			if in.Severity == "" {
				in.Severity = "info"
			}
			if in.Title == "" {
				in.Title = "AutoFinance Notification"
			}
			return svc.SendMultiChannel(ctx, in.Message, in.Channels, in.Severity, in.Title, in.EmailTo, in.EmailSubject), nil
		})

	registry.Register("get_notification_history", "Return the most recent notification records.",
		map[string]any{"type": "object", "properties": map[string]any{
			"limit": map[string]any{"type": "integer"},
		}},
		func(_ context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Limit int `json:"limit"`
			}
			_ = json.Unmarshal(args, &in)
			if in.Limit <= 0 {
				in.Limit = 20
			}
			history := svc.GetHistory(in.Limit)
			return map[string]any{"count": len(history), "history": history}, nil
		})

	registry.Register("get_notification_status", "Report which notification channels are configured.",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ json.RawMessage) (any, error) {
			return svc.GetStatus(), nil
		})
}
