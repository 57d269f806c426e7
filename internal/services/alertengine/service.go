package alertengine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/rpcclient"
)

// Service is C9's registry-and-monitor facade, the thing wired into
// cmd/service and exposed via RegisterTools.
type Service struct {
	Registry *Registry
	Monitor  *Monitor
}

// New builds a Service backed by filePath persistence, polling market for
// quotes and notifier for delivery.
func New(filePath string, market, notifier *rpcclient.Client, log zerolog.Logger) *Service {
	registry := NewRegistry(filePath, log)
	return &Service{Registry: registry, Monitor: NewMonitor(registry, market, notifier, log)}
}

// CreatePriceAlert registers a new alert and ensures the monitor loop is
// running (spec §4.9 "create_price_alert ... ensure the monitor is
// running"); a monitor already running is left untouched.
func (s *Service) CreatePriceAlert(symbol, condition string, threshold float64, channel, ownerID string) (domain.Alert, Status) {
	alert := s.Registry.Create(symbol, condition, threshold, channel, ownerID)
	s.Monitor.Start(defaultMonitorIntervalSeconds)
	return alert, s.Monitor.Status()
}

// ListPriceAlerts returns alerts, optionally filtered by owner and
// activity.
func (s *Service) ListPriceAlerts(ownerID string, activeOnly bool) []domain.Alert {
	return s.Registry.List(ownerID, activeOnly)
}

// DeletePriceAlert removes an alert by id.
func (s *Service) DeletePriceAlert(alertID string) bool {
	return s.Registry.Delete(alertID)
}

// CheckAlertsNow runs one evaluation pass synchronously.
func (s *Service) CheckAlertsNow(ctx context.Context) ([]domain.Alert, int) {
	return s.Monitor.CheckNow(ctx)
}

// StartMonitor starts the polling loop.
func (s *Service) StartMonitor(intervalSeconds int) bool {
	return s.Monitor.Start(intervalSeconds)
}

// StopMonitor halts the polling loop.
func (s *Service) StopMonitor() bool {
	return s.Monitor.Stop()
}

// GetMonitorStatus reports the monitor's run state and recent ticks.
func (s *Service) GetMonitorStatus() Status {
	return s.Monitor.Status()
}
