// Package domain holds the data model shared across every service.
package domain

import "time"

// Quote is an immutable price observation for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Change24h *float64  `json:"change_24h,omitempty"`
	High      *float64  `json:"high,omitempty"`
	Low       *float64  `json:"low,omitempty"`
	Volume    *float64  `json:"volume,omitempty"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Timeframe is a candle interval.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
)

// Signal is produced by the analytical services.
type Signal struct {
	Symbol     string             `json:"symbol"`
	Verdict    string             `json:"signal"`
	Confidence float64            `json:"confidence"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Source     string             `json:"source"`
	Reason     string             `json:"reason,omitempty"`
}

// TradeProposal is built once by a supervisor and never mutated.
type TradeProposal struct {
	TradeID          string         `json:"trade_id"`
	Symbol           string         `json:"symbol"`
	Action           string         `json:"action"`
	Quantity         float64        `json:"quantity"`
	Price            float64        `json:"price"`
	Confidence       float64        `json:"confidence"`
	Volatility       float64        `json:"volatility"`
	PositionSizeFrac float64        `json:"position_size_pct"`
	TradeValue       float64        `json:"trade_value"`
	Signals          map[string]any `json:"signals,omitempty"`
}

// Change is one leg of a RebalanceProposal.
type Change struct {
	Symbol        string  `json:"symbol"`
	Action        string  `json:"action"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	Value         float64 `json:"value"`
	CurrentWeight float64 `json:"current_weight"`
	TargetWeight  float64 `json:"target_weight"`
}

// RebalanceProposal groups the changes needed to reach a target allocation.
type RebalanceProposal struct {
	ReviewID         string             `json:"review_id"`
	Changes          []Change           `json:"changes"`
	TotalTurnover    float64            `json:"total_turnover"`
	TurnoverFraction float64            `json:"turnover_fraction"`
	TargetAllocation map[string]float64 `json:"target_allocation"`
	Rationale        string             `json:"rationale"`
}

// RiskVerdict is the pure output of the policy validator.
type RiskVerdict struct {
	Approved      bool     `json:"approved"`
	RiskScore     float64  `json:"risk_score"`
	Violations    []string `json:"violations"`
	Reason        string   `json:"reason"`
	TurnoverFrac  *float64 `json:"turnover_fraction,omitempty"`
	PositionFrac  *float64 `json:"position_size_pct,omitempty"`
}

// Position is a single held symbol. Invariant: absent from Portfolio.Positions
// iff quantity is exactly zero.
type Position struct {
	Quantity     float64 `json:"quantity"`
	AveragePrice float64 `json:"avg_price"`
	CurrentPrice float64 `json:"current_price"`
	CurrentValue float64 `json:"current_value"`
}

// Transaction is one append-only entry in the portfolio's transaction log.
type Transaction struct {
	TradeID   string    `json:"trade_id"`
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Action    string    `json:"action"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"`
	Value     float64   `json:"value"`
	RiskScore float64   `json:"risk_score"`
}

// Portfolio is exclusively owned and mutated by the execution service (C5).
type Portfolio struct {
	Cash               float64             `json:"cash"`
	Positions          map[string]Position `json:"positions"`
	TransactionHistory []Transaction       `json:"transaction_history"`
	LastUpdated        time.Time           `json:"last_updated"`
}

// TotalValue returns cash plus the sum of every position's current value.
func (p *Portfolio) TotalValue() float64 {
	total := p.Cash
	for _, pos := range p.Positions {
		total += pos.CurrentValue
	}
	return total
}

// Alert is a stored price predicate owned exclusively by the alert engine (C9).
type Alert struct {
	AlertID        string     `json:"alert_id"`
	Symbol         string     `json:"symbol"`
	Condition      string     `json:"condition"`
	Threshold      float64    `json:"threshold"`
	Channel        string     `json:"channel"`
	OwnerID        string     `json:"user_id"`
	CreatedAt      time.Time  `json:"created_at"`
	Triggered      bool       `json:"triggered"`
	TriggeredAt    *time.Time `json:"triggered_at,omitempty"`
	TriggeredPrice *float64   `json:"triggered_price,omitempty"`
	TriggerCount   int        `json:"trigger_count"`
	LastPrice      *float64   `json:"last_price,omitempty"`
	LastChecked    *time.Time `json:"last_checked,omitempty"`
}

// Alert condition kinds (spec Glossary).
const (
	ConditionAbove        = "above"
	ConditionBelow        = "below"
	ConditionCrossesAbove = "crosses_above"
	ConditionCrossesBelow = "crosses_below"
)

// AuditEvent is an append-only, never-mutated compliance log entry (C8).
type AuditEvent struct {
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Producer  string         `json:"agent_name"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
	Severity  string         `json:"severity"`
}

// Audit event types.
const (
	EventTypeProposal     = "proposal"
	EventTypeRiskDecision = "risk_decision"
	EventTypeExecution    = "execution"
	EventTypeError        = "error"
	EventTypeSystem       = "system"
)

// Audit severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// NotificationRecord is one entry in the notification gateway's bounded
// in-memory ring (C9).
type NotificationRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	Body      string    `json:"message"`
	Severity  string    `json:"severity"`
	Channel   string    `json:"channel"`
	Delivered bool      `json:"delivered"`
}

// Session is the RPC-level client handshake record (C1).
type Session struct {
	SessionID       string
	ClientInfo      map[string]any
	ProtocolVersion string
	CreatedAt       time.Time
	LastTouched     time.Time
}
