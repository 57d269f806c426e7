// Package execution implements C5: the sole mutator of Portfolio state,
// grounded in original_source/mcp-servers/execution/server.py.
package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autofinance/control-plane/internal/domain"
)

// Service owns a single Portfolio behind one mutex.
type Service struct {
	mu        sync.Mutex
	portfolio domain.Portfolio
	log       zerolog.Logger
}

// New builds a Service with the given initial cash.
func New(initialCash float64, log zerolog.Logger) *Service {
	return &Service{
		portfolio: domain.Portfolio{
			Cash:      initialCash,
			Positions: make(map[string]domain.Position),
		},
		log: log.With().Str("service", "execution").Logger(),
	}
}

// TradeResult is the outcome of ExecuteTrade.
type TradeResult struct {
	Success     bool             `json:"success"`
	TradeID     string           `json:"trade_id"`
	Symbol      string           `json:"symbol,omitempty"`
	Action      string           `json:"action,omitempty"`
	Quantity    float64          `json:"quantity,omitempty"`
	Price       float64          `json:"price,omitempty"`
	Value       float64          `json:"value,omitempty"`
	NewCash     float64          `json:"new_cash,omitempty"`
	NewPosition *domain.Position `json:"new_position,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
}

// ExecuteTrade applies the portfolio mutation rules for a single trade. It refuses (returns
// success=false, never an error) if approved is false, if BUY lacks cash,
// or if SELL lacks sufficient position quantity.
func (s *Service) ExecuteTrade(tradeID, symbol, action string, quantity, price float64, approved bool, riskScore float64) TradeResult {
	now := time.Now().UTC()

	if !approved {
		return TradeResult{Success: false, TradeID: tradeID, Reason: "Trade not approved by risk server", Timestamp: now}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.executeLocked(tradeID, symbol, action, quantity, price, riskScore, now)
}

// executeLocked performs the mutation; caller must hold s.mu.
func (s *Service) executeLocked(tradeID, symbol, action string, quantity, price, riskScore float64, now time.Time) TradeResult {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Interface("panic", rec).Msg("recovered in executeLocked")
		}
	}()

	tradeValue := quantity * price

	switch action {
	case "BUY":
		if s.portfolio.Cash < tradeValue {
			return TradeResult{
				Success: false, TradeID: tradeID,
				Reason:    fmt.Sprintf("Insufficient cash: %.2f < %.2f", s.portfolio.Cash, tradeValue),
				Timestamp: now,
			}
		}
		s.portfolio.Cash -= tradeValue
		pos, exists := s.portfolio.Positions[symbol]
		if exists {
			newQty := pos.Quantity + quantity
			newAvg := (pos.AveragePrice*pos.Quantity + tradeValue) / newQty
			pos.Quantity = newQty
			pos.AveragePrice = newAvg
			pos.CurrentPrice = price
			pos.CurrentValue = newQty * price
		} else {
			pos = domain.Position{Quantity: quantity, AveragePrice: price, CurrentPrice: price, CurrentValue: tradeValue}
		}
		s.portfolio.Positions[symbol] = pos

	case "SELL":
		pos, exists := s.portfolio.Positions[symbol]
		if !exists {
			return TradeResult{Success: false, TradeID: tradeID, Reason: fmt.Sprintf("No position in %s", symbol), Timestamp: now}
		}
		if pos.Quantity < quantity {
			return TradeResult{
				Success: false, TradeID: tradeID,
				Reason:    fmt.Sprintf("Insufficient quantity: %.6f < %.6f", pos.Quantity, quantity),
				Timestamp: now,
			}
		}
		s.portfolio.Cash += tradeValue
		pos.Quantity -= quantity
		pos.CurrentPrice = price
		pos.CurrentValue = pos.Quantity * price
		if pos.Quantity == 0 {
			delete(s.portfolio.Positions, symbol)
		} else {
			s.portfolio.Positions[symbol] = pos
		}

	default:
		return TradeResult{Success: false, TradeID: tradeID, Reason: fmt.Sprintf("Execution error: unknown action %q", action), Timestamp: now}
	}

	s.portfolio.TransactionHistory = append(s.portfolio.TransactionHistory, domain.Transaction{
		TradeID: tradeID, Timestamp: now, Symbol: symbol, Action: action,
		Quantity: quantity, Price: price, Value: tradeValue, RiskScore: riskScore,
	})
	s.portfolio.LastUpdated = now

	result := TradeResult{
		Success: true, TradeID: tradeID, Symbol: symbol, Action: action,
		Quantity: quantity, Price: price, Value: tradeValue,
		NewCash: s.portfolio.Cash, Timestamp: now,
	}
	if pos, ok := s.portfolio.Positions[symbol]; ok {
		p := pos
		result.NewPosition = &p
	}
	return result
}

// RebalanceChangeInput is one requested leg of a rebalance.
type RebalanceChangeInput struct {
	Symbol   string
	Action   string
	Quantity float64
	Price    float64
}

// RebalanceResult is the outcome of ApplyRebalance.
type RebalanceResult struct {
	Success         bool          `json:"success"`
	RebalanceID     string        `json:"rebalance_id"`
	ChangesApplied  int           `json:"changes_applied"`
	Changes         []TradeResult `json:"changes"`
	NewPortfolioVal float64       `json:"new_portfolio_value"`
	Reason          string        `json:"reason,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// ApplyRebalance iterates changes, delegating each to the same trade logic.
// A per-change failure does NOT roll back earlier
// changes; every outcome is returned so the audit trail can capture the
// partial state.
func (s *Service) ApplyRebalance(rebalanceID string, changes []RebalanceChangeInput, approved bool, riskScore float64) RebalanceResult {
	now := time.Now().UTC()
	if !approved {
		return RebalanceResult{Success: false, RebalanceID: rebalanceID, Reason: "Rebalance not approved by risk server", Timestamp: now}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]TradeResult, 0, len(changes))
	for _, c := range changes {
		tradeID := fmt.Sprintf("%s_%s", rebalanceID, c.Symbol)
		results = append(results, s.executeLocked(tradeID, c.Symbol, c.Action, c.Quantity, c.Price, riskScore, now))
	}

	return RebalanceResult{
		Success: true, RebalanceID: rebalanceID,
		ChangesApplied:  len(results),
		Changes:         results,
		NewPortfolioVal: s.portfolio.TotalValue(),
		Timestamp:       now,
	}
}

// StateSnapshot is the read-only payload of GetPortfolioState.
type StateSnapshot struct {
	Cash             float64                    `json:"cash"`
	Positions        map[string]domain.Position `json:"positions"`
	TotalValue       float64                    `json:"total_value"`
	NumPositions     int                        `json:"num_positions"`
	CashFraction     float64                    `json:"cash_pct"`
	InvestedFraction float64                    `json:"invested_pct"`
	LastUpdated      time.Time                  `json:"last_updated"`
	TransactionCount int                        `json:"transaction_count"`
}

// GetPortfolioState returns a consistent snapshot; reads never observe a
// half-applied mutation.
func (s *Service) GetPortfolioState() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	positions := make(map[string]domain.Position, len(s.portfolio.Positions))
	for k, v := range s.portfolio.Positions {
		positions[k] = v
	}

	total := s.portfolio.TotalValue()
	cashFrac, investedFrac := 1.0, 0.0
	if total > 0 {
		cashFrac = s.portfolio.Cash / total
		investedFrac = (total - s.portfolio.Cash) / total
	}

	return StateSnapshot{
		Cash: s.portfolio.Cash, Positions: positions, TotalValue: total,
		NumPositions: len(positions), CashFraction: cashFrac, InvestedFraction: investedFrac,
		LastUpdated: s.portfolio.LastUpdated, TransactionCount: len(s.portfolio.TransactionHistory),
	}
}

// UpdatePositionPrices marks positions to market without moving cash.
func (s *Service) UpdatePositionPrices(priceUpdates map[string]float64) (updated []string, newTotal float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for symbol, price := range priceUpdates {
		if pos, ok := s.portfolio.Positions[symbol]; ok {
			pos.CurrentPrice = price
			pos.CurrentValue = pos.Quantity * price
			s.portfolio.Positions[symbol] = pos
			updated = append(updated, symbol)
		}
	}
	s.portfolio.LastUpdated = time.Now().UTC()
	return updated, s.portfolio.TotalValue()
}

// ResetPortfolio restores the portfolio to an empty state with initialCash.
// Intended for testing/demo use only.
func (s *Service) ResetPortfolio(initialCash float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolio = domain.Portfolio{
		Cash:        initialCash,
		Positions:   make(map[string]domain.Position),
		LastUpdated: time.Now().UTC(),
	}
}
