package alertengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
	"github.com/autofinance/control-plane/internal/rpcclient"
)

const monitorLogCap = 50

// defaultMonitorIntervalSeconds is the floor-10s, default-60s interval used
// when the monitor is started implicitly by create_price_alert (spec §4.9
// "default 60s, floor 10s").
const defaultMonitorIntervalSeconds = 60

// MonitorLogEntry records the outcome of one tick, surfaced via
// get_monitor_status (spec §4.9 "a bounded ring of recent tick outcomes").
type MonitorLogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	AlertsChecked int       `json:"alerts_checked"`
	AlertsFired   int       `json:"alerts_fired"`
	Error         string    `json:"error,omitempty"`
}

// Monitor is the self-driving tick loop: collect active alerts, dedupe
// symbols, fetch quotes from the market service, evaluate, fire
// notifications. Grounded on
// original_source/mcp-servers/alert-engine/server.py's _monitor_loop and
// original_source/alert_monitor.py's poll-and-check cycle, unified per
// spec §4.9 behind a single robfig/cron/v3 scheduler (SPEC_FULL.md DOMAIN
// STACK: a cron job, not a bare time.Sleep loop, wrapped with
// cron.SkipIfStillRunning so a slow tick can never overlap the next).
type Monitor struct {
	registry *Registry
	market   *rpcclient.Client
	notifier *rpcclient.Client
	log      zerolog.Logger

	mu         sync.Mutex
	running    bool
	intervalS  int
	cronSched  *cron.Cron
	entryID    cron.EntryID
	monitorLog []MonitorLogEntry
}

// NewMonitor builds a Monitor polling through market and notifying through
// notifier.
func NewMonitor(registry *Registry, market, notifier *rpcclient.Client, log zerolog.Logger) *Monitor {
	return &Monitor{registry: registry, market: market, notifier: notifier, log: log.With().Str("component", "alert_monitor").Logger()}
}

// Start begins ticking every intervalSeconds. A second Start while already
// running is a no-op (spec §4.9 "starting an already-running monitor MUST
// NOT spawn a second loop").
func (m *Monitor) Start(intervalSeconds int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return false
	}
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}

	sched := cron.New()
	chain := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger))
	id, err := sched.AddJob(fmt.Sprintf("@every %ds", intervalSeconds), chain.Then(cron.FuncJob(m.tick)))
	if err != nil {
		m.log.Error().Err(err).Msg("failed to schedule alert monitor tick")
		return false
	}

	sched.Start()
	m.cronSched = sched
	m.entryID = id
	m.intervalS = intervalSeconds
	m.running = true
	return true
}

// Stop halts the scheduler and flushes the alert table.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}
	ctx := m.cronSched.Stop()
	<-ctx.Done()
	m.running = false
	m.registry.Flush()
	return true
}

// Status reports whether the monitor is running, its interval, and the
// recent tick log.
type Status struct {
	Running      bool              `json:"running"`
	IntervalSecs int               `json:"interval_seconds"`
	RecentTicks  []MonitorLogEntry `json:"recent_ticks"`
	ActiveAlerts int               `json:"active_alerts"`
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := make([]MonitorLogEntry, len(m.monitorLog))
	copy(log, m.monitorLog)
	return Status{Running: m.running, IntervalSecs: m.intervalS, RecentTicks: log, ActiveAlerts: len(m.registry.ActiveSnapshot())}
}

func (m *Monitor) appendLog(entry MonitorLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitorLog = append(m.monitorLog, entry)
	if len(m.monitorLog) > monitorLogCap {
		m.monitorLog = m.monitorLog[len(m.monitorLog)-monitorLogCap:]
	}
}

// tick runs one evaluation pass. Any per-symbol failure is logged and
// skipped; it never aborts the remaining symbols nor kills the scheduler
// (spec §4.9 "a single symbol's failure MUST NOT abort the tick").
func (m *Monitor) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fired, checked := m.CheckNow(ctx)
	entry := MonitorLogEntry{Timestamp: time.Now().UTC(), AlertsChecked: checked, AlertsFired: len(fired)}
	m.appendLog(entry)
}

// CheckNow runs one evaluation pass synchronously (also the implementation
// of the check_alerts_now tool, spec §4.9) and returns the alerts that
// fired along with the count of active alerts considered.
func (m *Monitor) CheckNow(ctx context.Context) (fired []domain.Alert, checked int) {
	active := m.registry.ActiveSnapshot()
	checked = len(active)

	symbols := make(map[string]struct{}, len(active))
	for _, a := range active {
		symbols[a.Symbol] = struct{}{}
	}

	prices := make(map[string]float64, len(symbols))
	for symbol := range symbols {
		var quote domain.Quote
		if err := m.market.CallTool(ctx, "get_live_price", map[string]any{"symbol": symbol}, &quote); err != nil {
			m.log.Warn().Err(err).Str("symbol", symbol).Msg("alert monitor: quote fetch failed, skipping symbol this tick")
			continue
		}
		prices[symbol] = quote.Price
	}

	now := time.Now().UTC()
	for symbol, price := range prices {
		triggered := m.registry.ApplyTick(symbol, price, now)
		fired = append(fired, triggered...)
	}

	for _, a := range fired {
		m.notify(ctx, a)
	}
	return fired, checked
}

// notify broadcasts a triggered alert to every configured channel
// (spec §4.9 step 4c: "synchronously call send_alert to broadcast").
func (m *Monitor) notify(ctx context.Context, a domain.Alert) {
	if m.notifier == nil {
		return
	}
	title := fmt.Sprintf("Price alert triggered: %s", a.Symbol)
	body := fmt.Sprintf("%s %s %.4f (threshold %.4f)", a.Symbol, a.Condition, valueOr(a.TriggeredPrice), a.Threshold)

	var out map[string]any
	args := map[string]any{"title": title, "message": body, "severity": "critical"}
	if err := m.notifier.CallTool(ctx, "send_alert", args, &out); err != nil {
		m.log.Error().Err(err).Str("alert_id", a.AlertID).Msg("alert monitor: notification delivery failed")
	}
}

func valueOr(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
