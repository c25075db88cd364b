package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// orderFrequencyWindow is the fixed window backing the per-minute order
// frequency limit.
const orderFrequencyWindow = time.Minute

// RiskState is the mutable runtime state for one risk scope key (global or a
// single account). It is a plain record with no internal locking: the owning
// layer must serialize access per key (see Keeper). The embedded frequency
// tracker stays copy-on-write, so snapshot reads of an in-flight tracker are
// always consistent; only the replace step needs exclusion.
type RiskState struct {
	ID        string        `json:"id"`
	Scope     RiskRuleScope `json:"scope"`
	AccountID string        `json:"account_id,omitempty"`

	KillSwitchStatus KillSwitchStatus `json:"kill_switch_status"`
	KillSwitchReason string           `json:"kill_switch_reason,omitempty"`

	DailyPnl decimal.Decimal `json:"daily_pnl"`
	// Exposure is advisory; the engine recomputes position value from live
	// positions.
	Exposure decimal.Decimal `json:"exposure"`

	ConsecutiveOrderFailures int `json:"consecutive_order_failures"`
	OpenOrderCount           int `json:"open_order_count"`

	Tracker *OrderFrequencyTracker `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultState returns a fresh global-scope state: kill switch off, zeroed
// counters, empty tracker.
func DefaultState() *RiskState {
	return &RiskState{
		Scope:            ScopeGlobal,
		KillSwitchStatus: KillSwitchOff,
		Tracker:          NewOrderFrequencyTracker(),
	}
}

// NewAccountState returns a fresh per-account state.
func NewAccountState(accountID string) *RiskState {
	s := DefaultState()
	s.Scope = ScopePerAccount
	s.AccountID = accountID
	return s
}

// ToggleKillSwitch sets the switch unconditionally. Any transition, including
// a no-op, is legal; the reason always accompanies the new status.
func (s *RiskState) ToggleKillSwitch(status KillSwitchStatus, reason string) {
	s.KillSwitchStatus = status
	s.KillSwitchReason = reason
	s.UpdatedAt = time.Now()
}

// IncrementFailureCount bumps the consecutive-failure counter.
func (s *RiskState) IncrementFailureCount() {
	s.ConsecutiveOrderFailures++
	s.UpdatedAt = time.Now()
}

// ResetFailureCount clears the consecutive-failure counter.
func (s *RiskState) ResetFailureCount() {
	s.ConsecutiveOrderFailures = 0
	s.UpdatedAt = time.Now()
}

// UpdateDailyPnl accumulates a signed P&L delta.
func (s *RiskState) UpdateDailyPnl(delta decimal.Decimal) {
	s.DailyPnl = s.DailyPnl.Add(delta)
	s.UpdatedAt = time.Now()
}

// RecordOrderTimestamp appends ts to the frequency tracker, constructing it
// on first use.
func (s *RiskState) RecordOrderTimestamp(ts time.Time) {
	if s.Tracker == nil {
		s.Tracker = NewOrderFrequencyTracker()
	}
	s.Tracker = s.Tracker.AddOrder(ts)
	s.UpdatedAt = time.Now()
}

// WouldExceedOrderFrequencyLimit reports whether the fixed one-minute window
// ending at now is already saturated. An absent tracker is permissive.
func (s *RiskState) WouldExceedOrderFrequencyLimit(now time.Time, limit int) bool {
	if s.Tracker == nil {
		return false
	}
	return s.Tracker.WouldExceedLimit(now, orderFrequencyWindow, limit)
}

// ResetDaily clears the daily counters (P&L, consecutive failures). Called by
// the daily-rollover job.
func (s *RiskState) ResetDaily() {
	s.DailyPnl = decimal.Zero
	s.ConsecutiveOrderFailures = 0
	s.UpdatedAt = time.Now()
}

// Snapshot returns a copy safe to read outside the owning critical section.
// The tracker pointer is shared; it is immutable so that is safe.
func (s *RiskState) Snapshot() RiskState {
	return *s
}
