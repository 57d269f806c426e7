// Package alertengine implements C9's registry-and-monitor half: the price
// alert CRUD surface and the self-driving polling loop, grounded in
// original_source/mcp-servers/alert-engine/server.py's
// create_alert/_monitor_loop/_check_condition and in
// original_source/alert_monitor.py's external-poller variant (spec.md §4.9
// unifies both into one component).
package alertengine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
)

// Registry owns the Alert table exclusively (spec §3 "Alerts owned
// exclusively by C9") behind a single mutex, persisted as JSON per spec
// §6's "Persisted state" contract.
type Registry struct {
	mu       sync.Mutex
	alerts   map[string]*domain.Alert
	filePath string
	log      zerolog.Logger
}

// NewRegistry loads filePath if present; a corrupt or missing file yields
// an empty registry rather than a startup failure ("Corruption... yields
// an empty registry at startup, not a crash").
func NewRegistry(filePath string, log zerolog.Logger) *Registry {
	r := &Registry{alerts: make(map[string]*domain.Alert), filePath: filePath, log: log.With().Str("component", "alert_registry").Logger()}
	r.load()
	return r
}

func (r *Registry) load() {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return
	}
	var loaded map[string]*domain.Alert
	if err := json.Unmarshal(data, &loaded); err != nil {
		r.log.Warn().Err(err).Str("path", r.filePath).Msg("alert file corrupt, starting with an empty registry")
		return
	}
	r.alerts = loaded
}

// persistLocked writes the current table to disk; caller must hold r.mu.
func (r *Registry) persistLocked() {
	if r.filePath == "" {
		return
	}
	if dir := filepath.Dir(r.filePath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	data, err := json.MarshalIndent(r.alerts, "", "  ")
	if err != nil {
		r.log.Error().Err(err).Msg("marshal alert table")
		return
	}
	if err := os.WriteFile(r.filePath, data, 0o644); err != nil {
		r.log.Error().Err(err).Str("path", r.filePath).Msg("write alert file")
	}
}

// Flush persists the current table; used on graceful shutdown (spec §5
// "the alert monitor MUST flush its alert file").
func (r *Registry) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persistLocked()
}

// Create inserts a new Alert with triggered=false.
func (r *Registry) Create(symbol, condition string, threshold float64, channel, ownerID string) domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	alert := domain.Alert{
		AlertID: "alrt_" + uuid.New().String()[:8], Symbol: symbol, Condition: condition,
		Threshold: threshold, Channel: channel, OwnerID: ownerID, CreatedAt: time.Now().UTC(),
	}
	r.alerts[alert.AlertID] = &alert
	r.persistLocked()
	return alert
}

// List returns a filtered, independent copy of the table.
func (r *Registry) List(ownerID string, activeOnly bool) []domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		if ownerID != "" && a.OwnerID != ownerID {
			continue
		}
		if activeOnly && a.Triggered {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Delete removes an alert, returning false if it was not found.
func (r *Registry) Delete(alertID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[alertID]; !ok {
		return false
	}
	delete(r.alerts, alertID)
	r.persistLocked()
	return true
}

// ActiveSnapshot returns every alert with triggered=false, grouped for the
// tick algorithm (spec §4.9 step 1).
func (r *Registry) ActiveSnapshot() []domain.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Alert
	for _, a := range r.alerts {
		if !a.Triggered {
			out = append(out, *a)
		}
	}
	return out
}

// evaluateAlert is the crossing/threshold predicate (spec Glossary):
// above: current > threshold; below: current < threshold;
// crosses_above: previous <= threshold < current; crosses_below: previous
// >= threshold > current. Crossing conditions never fire when previous is
// nil ("first observation... cannot set triggered=true").
func evaluateAlert(condition string, threshold, current float64, previous *float64) bool {
	switch condition {
	case domain.ConditionAbove:
		return current > threshold
	case domain.ConditionBelow:
		return current < threshold
	case domain.ConditionCrossesAbove:
		return previous != nil && *previous <= threshold && current > threshold
	case domain.ConditionCrossesBelow:
		return previous != nil && *previous >= threshold && current < threshold
	default:
		return false
	}
}

// ApplyTick mutates every active alert on symbol, which was quoted at
// price, firing triggers per evaluateAlert, and returns copies of the
// alerts that fired. Caller holds no lock; ApplyTick takes it for the whole batch so a
// read can never observe a half-applied tick for one symbol.
func (r *Registry) ApplyTick(symbol string, price float64, now time.Time) (fired []domain.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.alerts {
		if a.Symbol != symbol || a.Triggered {
			continue
		}
		if evaluateAlert(a.Condition, a.Threshold, price, a.LastPrice) {
			a.Triggered = true
			triggeredAt := now
			a.TriggeredAt = &triggeredAt
			triggeredPrice := price
			a.TriggeredPrice = &triggeredPrice
			a.TriggerCount++
			fired = append(fired, *a)
		}
		last := price
		a.LastPrice = &last
		checked := now
		a.LastChecked = &checked
	}
	r.persistLocked()
	return fired
}

// Get returns one alert by id.
func (r *Registry) Get(alertID string) (domain.Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[alertID]
	if !ok {
		return domain.Alert{}, false
	}
	return *a, true
}
