package compliance

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogEventAssignsMonotoneIDs(t *testing.T) {
	svc := New(nil, zerolog.Nop())
	e1 := svc.LogEvent("proposal", "trader-supervisor", "start", nil, "info")
	e2 := svc.LogEvent("proposal", "trader-supervisor", "start", nil, "info")
	assert.Equal(t, "EVT_000001", e1.EventID)
	assert.Equal(t, "EVT_000002", e2.EventID)
}

func TestGetComplianceMetricsApprovalRate(t *testing.T) {
	svc := New(nil, zerolog.Nop())
	svc.LogEvent("risk_decision", "risk", "decide", map[string]any{"approved": true}, "info")
	svc.LogEvent("risk_decision", "risk", "decide", map[string]any{"approved": false}, "info")
	metrics := svc.GetComplianceMetrics()
	assert.Equal(t, 0.5, metrics.ApprovalRate)
}

func TestGenerateAuditReportFiltersByEventType(t *testing.T) {
	svc := New(nil, zerolog.Nop())
	svc.LogEvent("proposal", "trader-supervisor", "start", nil, "info")
	svc.LogEvent("error", "market", "fault", nil, "critical")
	report := svc.GenerateAuditReport(ReportFilter{EventType: "error"})
	assert.Equal(t, 1, report.Summary.TotalEvents)
}

func TestClearAuditLogResetsCounterBase(t *testing.T) {
	svc := New(nil, zerolog.Nop())
	svc.LogEvent("system", "boot", "start", nil, "info")
	cleared := svc.ClearAuditLog()
	assert.Equal(t, 1, cleared)
	e := svc.LogEvent("system", "boot", "start", nil, "info")
	assert.Equal(t, "EVT_000001", e.EventID)
}
