package risk

import (
	"fmt"
	"time"

	"risk-core/internal/markethours"
)

// Engine evaluates orders against a resolved rule and the current scope
// state. It holds no mutable state of its own and never mutates the state it
// is given; callers apply consequences after acting on the decision.
type Engine struct {
	hours markethours.Policy
	// now is injectable for deterministic tests.
	now func() time.Time
}

// NewEngine returns an engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineAt returns an engine with a fixed clock, for tests.
func NewEngineAt(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// PreTradeContext carries the optional inputs of the richer evaluation:
// existing position and market-hours configuration. Zero value means "none
// supplied", which is permissive for the checks it feeds.
type PreTradeContext struct {
	Position           *Position
	MarketHoursEnabled bool
	AllowedSessions    []markethours.TradingSession
	Holidays           markethours.HolidaySet
}

// EvaluatePreTrade runs the ordered fail-fast pipeline without position or
// market-hours inputs.
func (e *Engine) EvaluatePreTrade(order Order, rule *RiskRule, state *RiskState) RiskDecision {
	return e.EvaluatePreTradeFull(order, rule, state, PreTradeContext{})
}

// EvaluatePreTradeFull runs the full ordered fail-fast pipeline. The first
// violated check short-circuits; all later checks are skipped. A nil rule or
// state is a programming error in the calling layer and panics rather than
// silently approving.
func (e *Engine) EvaluatePreTradeFull(order Order, rule *RiskRule, state *RiskState, pctx PreTradeContext) RiskDecision {
	if rule == nil {
		panic("risk: EvaluatePreTrade called with nil rule")
	}
	if state == nil {
		panic("risk: EvaluatePreTrade called with nil state")
	}

	// 1. Kill switch. ARMED is advisory and passes.
	if state.KillSwitchStatus == KillSwitchOn {
		reason := state.KillSwitchReason
		if reason == "" {
			reason = "kill switch is on"
		}
		return Reject(fmt.Sprintf("kill switch active: %s", reason), ViolationKillSwitch)
	}

	// 2. Daily loss limit. <= so a loss exactly at the limit blocks.
	if rule.DailyLossLimit.IsPositive() && state.DailyPnl.LessThanOrEqual(rule.DailyLossLimit.Neg()) {
		return Reject(
			fmt.Sprintf("daily loss limit breached: pnl %s <= -%s", state.DailyPnl, rule.DailyLossLimit),
			ViolationDailyLossLimit,
		)
	}

	// 3. Max open orders. At-limit blocks: no more room.
	if rule.MaxOpenOrders > 0 && state.OpenOrderCount >= rule.MaxOpenOrders {
		return Reject(
			fmt.Sprintf("max open orders reached: %d/%d", state.OpenOrderCount, rule.MaxOpenOrders),
			ViolationMaxOpenOrders,
		)
	}

	// 4. Order frequency.
	if state.WouldExceedOrderFrequencyLimit(e.now(), rule.MaxOrdersPerMinute) {
		return Reject(
			fmt.Sprintf("order frequency limit reached: %d per minute", rule.MaxOrdersPerMinute),
			ViolationOrderFrequencyLimit,
		)
	}

	// 5. Position exposure.
	if rule.MaxPositionValuePerSymbol.IsPositive() {
		if dec, blocked := e.checkExposure(order, rule, pctx.Position); blocked {
			return dec
		}
	}

	// 6. Consecutive failures.
	if rule.ConsecutiveOrderFailuresLimit > 0 && state.ConsecutiveOrderFailures >= rule.ConsecutiveOrderFailuresLimit {
		return Reject(
			fmt.Sprintf("consecutive order failures: %d/%d", state.ConsecutiveOrderFailures, rule.ConsecutiveOrderFailuresLimit),
			ViolationConsecutiveFailures,
		)
	}

	// 7. Market hours. Absence of configuration never blocks trading.
	if pctx.MarketHoursEnabled && len(pctx.AllowedSessions) > 0 {
		if !e.hours.IsMarketOpen(e.now(), pctx.AllowedSessions, pctx.Holidays) {
			return Reject("market is closed for the allowed sessions", ViolationMarketClosed)
		}
	}

	return Approve()
}

// checkExposure applies the per-symbol position value limit. Orders that
// reduce an existing position are always permitted regardless of size.
func (e *Engine) checkExposure(order Order, rule *RiskRule, pos *Position) (RiskDecision, bool) {
	notional := order.NotionalValue()

	projected := notional
	if pos != nil {
		if !pos.increasesExposure(order.Side) {
			return RiskDecision{}, false
		}
		projected = pos.Notional().Add(notional)
	}

	if projected.GreaterThan(rule.MaxPositionValuePerSymbol) {
		return Reject(
			fmt.Sprintf("position exposure %s exceeds limit %s for %s",
				projected, rule.MaxPositionValuePerSymbol, order.Symbol),
			ViolationPositionExposure,
		), true
	}
	return RiskDecision{}, false
}

// ShouldTriggerKillSwitch is the advisory post-trade check, intended to run
// after P&L or failure-count updates. It never flips the switch itself; the
// caller decides whether to act on the advice.
func (e *Engine) ShouldTriggerKillSwitch(rule *RiskRule, state *RiskState) bool {
	if rule == nil {
		panic("risk: ShouldTriggerKillSwitch called with nil rule")
	}
	if state == nil {
		panic("risk: ShouldTriggerKillSwitch called with nil state")
	}

	if rule.DailyLossLimit.IsPositive() && state.DailyPnl.LessThanOrEqual(rule.DailyLossLimit.Neg()) {
		return true
	}
	if rule.ConsecutiveOrderFailuresLimit > 0 && state.ConsecutiveOrderFailures >= rule.ConsecutiveOrderFailuresLimit {
		return true
	}
	return false
}

// KillSwitchReason derives the human-readable reason recorded when the
// advisory trigger fires.
func KillSwitchReason(rule *RiskRule, state *RiskState) string {
	if rule.DailyLossLimit.IsPositive() && state.DailyPnl.LessThanOrEqual(rule.DailyLossLimit.Neg()) {
		return fmt.Sprintf("auto-trigger: daily pnl %s breached loss limit %s", state.DailyPnl, rule.DailyLossLimit)
	}
	if rule.ConsecutiveOrderFailuresLimit > 0 && state.ConsecutiveOrderFailures >= rule.ConsecutiveOrderFailuresLimit {
		return fmt.Sprintf("auto-trigger: %d consecutive order failures", state.ConsecutiveOrderFailures)
	}
	return "auto-trigger"
}
