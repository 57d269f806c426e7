// Package compliance implements C8: the append-only audit log, grounded in
// original_source/mcp-servers/compliance/server.py's AUDIT_LOG list and its
// log_event/generate_audit_report/get_compliance_metrics tools.
package compliance

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
)

// Writer accepts a durable write-behind of committed events. Implemented by
// the optional S3-backed S3Writer; nil disables the behavior without
// affecting correctness.
type Writer interface {
	Write(events []domain.AuditEvent)
}

// Service is the append-only in-memory audit trail.
type Service struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	nextID int
	writer Writer
	log    zerolog.Logger
}

func New(writer Writer, log zerolog.Logger) *Service {
	return &Service{writer: writer, log: log.With().Str("service", "compliance").Logger()}
}

// LogEvent appends a new event with a monotone EVT_NNNNNN id.
func (s *Service) LogEvent(eventType, agentName, action string, details map[string]any, severity string) domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	event := domain.AuditEvent{
		EventID:   fmt.Sprintf("EVT_%06d", s.nextID),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Producer:  agentName,
		Action:    action,
		Details:   details,
		Severity:  severity,
	}
	s.events = append(s.events, event)

	if s.writer != nil {
		s.writer.Write([]domain.AuditEvent{event})
	}

	return event
}

// ReportFilter narrows generate_audit_report's event selection.
type ReportFilter struct {
	StartTime time.Time
	EndTime   time.Time
	EventType string
	AgentName string
}

// Report is the output of generate_audit_report.
type Report struct {
	ReportID    string              `json:"report_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Summary     ReportSummary       `json:"summary"`
	Events      []domain.AuditEvent `json:"events"`
}

// ReportSummary aggregates a filtered event set.
type ReportSummary struct {
	TotalEvents   int                 `json:"total_events"`
	ByType        map[string]int      `json:"by_type"`
	ByAgent       map[string]int      `json:"by_agent"`
	BySeverity    map[string]int      `json:"by_severity"`
	RiskDecisions RiskDecisionSummary `json:"risk_decisions"`
}

// RiskDecisionSummary reports approval/rejection counts among
// risk_decision events.
type RiskDecisionSummary struct {
	Approved     int     `json:"approved"`
	Rejected     int     `json:"rejected"`
	ApprovalRate float64 `json:"approval_rate"`
}

func (s *Service) filteredEvents(filter ReportFilter) []domain.AuditEvent {
	var out []domain.AuditEvent
	for _, e := range s.events {
		if !filter.StartTime.IsZero() && e.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && e.Timestamp.After(filter.EndTime) {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		if filter.AgentName != "" && e.Producer != filter.AgentName {
			continue
		}
		out = append(out, e)
	}
	return out
}

// GenerateAuditReport filters events and summarizes them, returning at most
// the last 50 matching events for readability.
func (s *Service) GenerateAuditReport(filter ReportFilter) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := s.filteredEvents(filter)
	summary := summarize(filtered)

	events := filtered
	if len(events) > 50 {
		events = events[len(events)-50:]
	}

	return Report{
		ReportID:    fmt.Sprintf("RPT_%s", time.Now().UTC().Format("20060102_150405")),
		GeneratedAt: time.Now().UTC(),
		Summary:     summary,
		Events:      events,
	}
}

func summarize(events []domain.AuditEvent) ReportSummary {
	byType := map[string]int{}
	byAgent := map[string]int{}
	bySeverity := map[string]int{}
	var approved, rejected int

	for _, e := range events {
		byType[e.EventType]++
		byAgent[e.Producer]++
		bySeverity[e.Severity]++
		if e.EventType == domain.EventTypeRiskDecision {
			if approvedFlag, ok := e.Details["approved"].(bool); ok && approvedFlag {
				approved++
			} else {
				rejected++
			}
		}
	}

	rate := 0.0
	if approved+rejected > 0 {
		rate = float64(approved) / float64(approved+rejected)
	}

	return ReportSummary{
		TotalEvents: len(events), ByType: byType, ByAgent: byAgent, BySeverity: bySeverity,
		RiskDecisions: RiskDecisionSummary{Approved: approved, Rejected: rejected, ApprovalRate: rate},
	}
}

// GetRecentEvents returns up to limit most recent events, optionally
// filtered by type.
func (s *Service) GetRecentEvents(limit int, eventType string) ([]domain.AuditEvent, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []domain.AuditEvent
	if eventType == "" {
		filtered = s.events
	} else {
		for _, e := range s.events {
			if e.EventType == eventType {
				filtered = append(filtered, e)
			}
		}
	}

	total := len(s.events)
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered, total
}

// Metrics is the output of get_compliance_metrics.
type Metrics struct {
	TotalEvents      int                `json:"total_events"`
	EventsByType     map[string]int     `json:"events_by_type"`
	ApprovalRate     float64            `json:"approval_rate"`
	ExecutionSuccess float64            `json:"execution_success_rate"`
	Timestamp        time.Time          `json:"timestamp"`
}

// GetComplianceMetrics computes the headline KPIs over the full log.
func (s *Service) GetComplianceMetrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := map[string]int{}
	var approved, rejected, execOK, execFail int

	for _, e := range s.events {
		byType[e.EventType]++
		switch e.EventType {
		case domain.EventTypeRiskDecision:
			if ok, _ := e.Details["approved"].(bool); ok {
				approved++
			} else {
				rejected++
			}
		case domain.EventTypeExecution:
			if ok, _ := e.Details["success"].(bool); ok {
				execOK++
			} else {
				execFail++
			}
		}
	}

	approvalRate, successRate := 0.0, 0.0
	if approved+rejected > 0 {
		approvalRate = float64(approved) / float64(approved+rejected)
	}
	if execOK+execFail > 0 {
		successRate = float64(execOK) / float64(execOK+execFail)
	}

	return Metrics{
		TotalEvents: len(s.events), EventsByType: byType,
		ApprovalRate: approvalRate, ExecutionSuccess: successRate, Timestamp: time.Now().UTC(),
	}
}

// ClearAuditLog empties the log for demo/testing reset, returning the
// count of events cleared.
func (s *Service) ClearAuditLog() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.events)
	s.events = nil
	s.nextID = 0
	return n
}
