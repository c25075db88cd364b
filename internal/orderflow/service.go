// Package orderflow is the order-placement use case: it resolves the
// governing risk rule, runs the pre-trade gate inside the per-account
// critical section, applies consequences, and forwards approved orders.
package orderflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risk-core/internal/events"
	"risk-core/internal/markethours"
	"risk-core/internal/monitor"
	"risk-core/internal/risk"
	"risk-core/pkg/db"
)

// Gateway forwards approved orders toward a broker. Execution itself is an
// external collaborator.
type Gateway interface {
	Submit(ctx context.Context, order risk.Order) error
}

// RuleSource resolves the most specific applicable rule for an
// (account, symbol) pair.
type RuleSource interface {
	ResolveRule(ctx context.Context, accountID, symbol string) (*risk.RiskRule, error)
}

// PositionSource looks up the existing position for exposure projection. A
// nil position means none is open.
type PositionSource interface {
	Position(ctx context.Context, accountID, symbol string) (*risk.Position, error)
}

// AuditLog records decisions for the audit trail.
type AuditLog interface {
	RecordEvent(ctx context.Context, e db.RiskEvent) error
}

// Config wires the service's collaborators. Gateway, Positions, Audit, Bus,
// and Counters are optional.
type Config struct {
	Rules     RuleSource
	Keeper    *risk.Keeper
	Engine    *risk.Engine
	Gateway   Gateway
	Positions PositionSource
	Audit     AuditLog
	Bus       *events.Bus
	Counters  *monitor.RiskCounters

	MarketHoursEnabled bool
	Calendar           markethours.Calendar
}

// Service is the admission-control workflow.
type Service struct {
	cfg Config
}

// NewService validates the required collaborators and returns the workflow.
func NewService(cfg Config) (*Service, error) {
	if cfg.Rules == nil {
		return nil, fmt.Errorf("orderflow: rule source is required")
	}
	if cfg.Keeper == nil {
		return nil, fmt.Errorf("orderflow: keeper is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("orderflow: engine is required")
	}
	return &Service{cfg: cfg}, nil
}

// PlaceOrder gates the order and, when approved, records its consequences
// and forwards it. The per-account critical section spans evaluate through
// consequence application, so two concurrent orders can never both pass a
// limit only one of them fits under.
func (s *Service) PlaceOrder(ctx context.Context, order risk.Order) (risk.RiskDecision, error) {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	rule, err := s.cfg.Rules.ResolveRule(ctx, order.AccountID, order.Symbol)
	if err != nil {
		return risk.RiskDecision{}, fmt.Errorf("resolve rule: %w", err)
	}

	pctx := risk.PreTradeContext{
		MarketHoursEnabled: s.cfg.MarketHoursEnabled,
		AllowedSessions:    s.cfg.Calendar.AllowedSessions,
		Holidays:           s.cfg.Calendar.Holidays,
	}
	if s.cfg.Positions != nil {
		pos, err := s.cfg.Positions.Position(ctx, order.AccountID, order.Symbol)
		if err != nil {
			return risk.RiskDecision{}, fmt.Errorf("lookup position: %w", err)
		}
		pctx.Position = pos
	}

	key := risk.ScopeKey(order.AccountID)
	var decision risk.RiskDecision
	err = s.cfg.Keeper.Do(ctx, key, func(state *risk.RiskState) error {
		decision = s.cfg.Engine.EvaluatePreTradeFull(order, rule, state, pctx)
		if decision.Approved {
			state.RecordOrderTimestamp(order.CreatedAt)
			state.OpenOrderCount++
		}
		return nil
	})
	if err != nil {
		return risk.RiskDecision{}, err
	}

	s.report(ctx, key, order, decision)

	if !decision.Approved {
		return decision, nil
	}

	if s.cfg.Gateway != nil {
		if err := s.cfg.Gateway.Submit(ctx, order); err != nil {
			log.Printf("[RISK] gateway submit failed for %s: %v", order.ID, err)
			if failErr := s.OnOrderFailed(ctx, order.AccountID); failErr != nil {
				log.Printf("[RISK] post-failure update failed for %s: %v", order.AccountID, failErr)
			}
			return decision, fmt.Errorf("submit order: %w", err)
		}
	}
	return decision, nil
}

func (s *Service) report(ctx context.Context, key string, order risk.Order, decision risk.RiskDecision) {
	if s.cfg.Counters != nil {
		s.cfg.Counters.RecordCheck(decision.Approved, decision.RuleViolated)
	}

	topic := events.EventOrderApproved
	eventType := "ORDER_APPROVED"
	if !decision.Approved {
		topic = events.EventOrderRejected
		eventType = "ORDER_REJECTED"
		log.Printf("[RISK] rejected %s %s %s: %s (%s)",
			order.AccountID, order.Side, order.Symbol, decision.Reason, decision.RuleViolated)
	}

	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(topic, events.OrderEvent{
			Order:    order,
			Decision: decision,
			ScopeKey: key,
			At:       time.Now(),
		})
	}
	if s.cfg.Audit != nil {
		if err := s.cfg.Audit.RecordEvent(ctx, db.RiskEvent{
			ScopeKey:     key,
			EventType:    eventType,
			OrderID:      order.ID,
			Symbol:       order.Symbol,
			RuleViolated: decision.RuleViolated,
			Reason:       decision.Reason,
		}); err != nil {
			log.Printf("[RISK] audit log write failed: %v", err)
		}
	}
}

// OnOrderFilled applies a fill's consequences: realized P&L delta, failure
// streak reset, one less open order, then the advisory auto-trigger check.
func (s *Service) OnOrderFilled(ctx context.Context, accountID, symbol string, pnlDelta decimal.Decimal) error {
	return s.afterTrade(ctx, accountID, symbol, func(state *risk.RiskState) {
		state.UpdateDailyPnl(pnlDelta)
		state.ResetFailureCount()
		if state.OpenOrderCount > 0 {
			state.OpenOrderCount--
		}
	})
}

// OnOrderFailed applies an order failure: one more consecutive failure, one
// less open order, then the advisory auto-trigger check.
func (s *Service) OnOrderFailed(ctx context.Context, accountID string) error {
	return s.afterTrade(ctx, accountID, "", func(state *risk.RiskState) {
		state.IncrementFailureCount()
		if state.OpenOrderCount > 0 {
			state.OpenOrderCount--
		}
	})
}

// OnOrderCanceled releases the open-order slot without touching P&L or the
// failure streak.
func (s *Service) OnOrderCanceled(ctx context.Context, accountID string) error {
	return s.afterTrade(ctx, accountID, "", func(state *risk.RiskState) {
		if state.OpenOrderCount > 0 {
			state.OpenOrderCount--
		}
	})
}

// afterTrade mutates the state under the per-key lock, then consults the
// engine's advisory trigger and flips the breaker when told to. The engine
// itself never mutates state; the flip happens here, in the owning layer.
func (s *Service) afterTrade(ctx context.Context, accountID, symbol string, mutate func(*risk.RiskState)) error {
	rule, err := s.cfg.Rules.ResolveRule(ctx, accountID, symbol)
	if err != nil {
		return fmt.Errorf("resolve rule: %w", err)
	}

	key := risk.ScopeKey(accountID)
	var tripped bool
	var reason string
	err = s.cfg.Keeper.Do(ctx, key, func(state *risk.RiskState) error {
		mutate(state)
		if state.KillSwitchStatus != risk.KillSwitchOn && s.cfg.Engine.ShouldTriggerKillSwitch(rule, state) {
			reason = risk.KillSwitchReason(rule, state)
			state.ToggleKillSwitch(risk.KillSwitchOn, reason)
			tripped = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if tripped {
		s.reportKillSwitch(ctx, key, risk.KillSwitchOn, reason, true)
	}
	return nil
}

// ToggleKillSwitch is the manual path used by the admin surface.
func (s *Service) ToggleKillSwitch(ctx context.Context, accountID string, status risk.KillSwitchStatus, reason string) error {
	key := risk.ScopeKey(accountID)
	err := s.cfg.Keeper.Do(ctx, key, func(state *risk.RiskState) error {
		state.ToggleKillSwitch(status, reason)
		return nil
	})
	if err != nil {
		return err
	}
	s.reportKillSwitch(ctx, key, status, reason, false)
	return nil
}

func (s *Service) reportKillSwitch(ctx context.Context, key string, status risk.KillSwitchStatus, reason string, auto bool) {
	log.Printf("[RISK] kill switch %s for %s: %s", status, key, reason)
	if s.cfg.Counters != nil && status == risk.KillSwitchOn {
		s.cfg.Counters.RecordKillSwitchTrip()
	}
	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(events.EventKillSwitch, events.KillSwitchEvent{
			ScopeKey: key,
			Status:   status,
			Reason:   reason,
			Auto:     auto,
			At:       time.Now(),
		})
	}
	if s.cfg.Audit != nil {
		eventType := "KILL_SWITCH_MANUAL"
		if auto {
			eventType = "KILL_SWITCH_AUTO"
		}
		if err := s.cfg.Audit.RecordEvent(ctx, db.RiskEvent{
			ScopeKey:  key,
			EventType: eventType,
			Reason:    fmt.Sprintf("%s: %s", status, reason),
		}); err != nil {
			log.Printf("[RISK] audit log write failed: %v", err)
		}
	}
}

// ResetDaily clears daily counters across all scope keys. Wired to the
// midnight rollover ticker in main.
func (s *Service) ResetDaily(ctx context.Context) error {
	log.Println("[RISK] daily rollover: resetting pnl and failure counters")
	return s.cfg.Keeper.ResetDailyAll(ctx)
}
