package notification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
)

const historyCap = 200

// Service is the C9 fan-out half: a bounded in-memory ring of
// NotificationRecords behind a mutex, backed by zero or more available
// Channels.
type Service struct {
	mu       sync.Mutex
	channels map[string]Channel
	history  []domain.NotificationRecord
	store    *Store
	log      zerolog.Logger
}

// New builds a Service with the given available channels (keyed by
// Channel.Name()) and an optional durable Store.
func New(channels []Channel, store *Store, log zerolog.Logger) *Service {
	m := make(map[string]Channel, len(channels))
	for _, c := range channels {
		m[c.Name()] = c
	}
	return &Service{channels: m, store: store, log: log.With().Str("service", "notification").Logger()}
}

func (s *Service) record(title, body, severity, channel string, delivered bool) domain.NotificationRecord {
	rec := domain.NotificationRecord{
		Timestamp: time.Now().UTC(), Title: title, Body: body,
		Severity: severity, Channel: channel, Delivered: delivered,
	}

	s.mu.Lock()
	s.history = append(s.history, rec)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Append(rec); err != nil {
			s.log.Warn().Err(err).Msg("durable notification write-behind failed")
		}
	}
	return rec
}

// SendResult is the outcome of a single-channel send.
type SendResult struct {
	Success bool                      `json:"success"`
	Channel string                    `json:"channel"`
	Error   string                    `json:"error,omitempty"`
	Detail  string                    `json:"detail,omitempty"`
	Record  domain.NotificationRecord `json:"record"`
}

// SendNotification delivers to a single named channel.
func (s *Service) SendNotification(ctx context.Context, message, channel, severity, title string) SendResult {
	ch, ok := s.channels[channel]
	if !ok {
		rec := s.record(title, message, severity, channel, false)
		return SendResult{Success: false, Channel: channel, Error: "channel not configured", Record: rec}
	}

	result := ch.Send(ctx, Notification{Title: title, Body: message, Severity: severity, Timestamp: time.Now().UTC()})
	rec := s.record(title, message, severity, channel, result.Success)
	return SendResult{Success: result.Success, Channel: channel, Error: result.Error, Detail: result.Detail, Record: rec}
}

// BroadcastResult is the outcome of send_alert: a full fan-out across every
// configured channel. A single channel's failure never prevents attempting
// the others (spec §4.9).
type BroadcastResult struct {
	ChannelsAttempted int                      `json:"channels_attempted"`
	ChannelsDelivered int                      `json:"channels_delivered"`
	Results           map[string]ChannelResult `json:"results"`
	Timestamp         time.Time                `json:"timestamp"`
}

// SendAlert broadcasts title/message to every available channel.
func (s *Service) SendAlert(ctx context.Context, title, message, severity string) BroadcastResult {
	s.mu.Lock()
	channels := make([]Channel, 0, len(s.channels))
	for _, c := range s.channels {
		channels = append(channels, c)
	}
	s.mu.Unlock()

	results := make(map[string]ChannelResult, len(channels))
	delivered := 0
	for _, ch := range channels {
		r := ch.Send(ctx, Notification{Title: title, Body: message, Severity: severity, Timestamp: time.Now().UTC()})
		results[ch.Name()] = r
		s.record(title, message, severity, ch.Name(), r.Success)
		if r.Success {
			delivered++
		}
	}

	return BroadcastResult{
		ChannelsAttempted: len(channels), ChannelsDelivered: delivered,
		Results: results, Timestamp: time.Now().UTC(),
	}
}

// MultiChannelResult is the outcome of send_multi_channel: an explicit,
// caller-chosen channel list rather than every configured channel.
type MultiChannelResult struct {
	ChannelsAttempted int                      `json:"channels_attempted"`
	ChannelsDelivered int                      `json:"channels_delivered"`
	Results           map[string]ChannelResult `json:"results"`
	Timestamp         time.Time                `json:"timestamp"`
}

// SendMultiChannel delivers message to the named channels only. Channels
// absent from the configured set are reported as a failure rather than
// silently skipped.
func (s *Service) SendMultiChannel(ctx context.Context, message string, channels []string, severity, title, emailTo, emailSubject string) MultiChannelResult {
	results := make(map[string]ChannelResult, len(channels))
	delivered := 0

	for _, name := range channels {
		ch, ok := s.channels[name]
		if !ok {
			results[name] = ChannelResult{Success: false, Error: "channel not configured"}
			s.record(title, message, severity, name, false)
			continue
		}
		r := ch.Send(ctx, Notification{
			Title: title, Body: message, Severity: severity, Timestamp: time.Now().UTC(),
			EmailTo: emailTo, EmailSubj: emailSubject,
		})
		results[name] = r
		s.record(title, message, severity, name, r.Success)
		if r.Success {
			delivered++
		}
	}

	return MultiChannelResult{
		ChannelsAttempted: len(channels), ChannelsDelivered: delivered,
		Results: results, Timestamp: time.Now().UTC(),
	}
}

// GetHistory returns up to limit most recent notification records.
func (s *Service) GetHistory(limit int) []domain.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]domain.NotificationRecord, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

// Status is the output of get_notification_status.
type Status struct {
	AvailableChannels []string  `json:"available_channels"`
	HistorySize       int       `json:"history_size"`
	Timestamp         time.Time `json:"timestamp"`
}

// GetStatus reports which channels are configured and available.
func (s *Service) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	return Status{AvailableChannels: names, HistorySize: len(s.history), Timestamp: time.Now().UTC()}
}
