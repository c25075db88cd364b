// Package risk implements the pre-trade admission-control gate: rule and
// state models, the sliding-window order frequency tracker, and the stateless
// evaluation engine every order passes before it reaches a broker.
package risk

import (
	"time"

	"github.com/shopspring/decimal"
)

// KillSwitchStatus is the circuit-breaker state for a risk scope.
type KillSwitchStatus string

const (
	// KillSwitchOff permits trading.
	KillSwitchOff KillSwitchStatus = "OFF"
	// KillSwitchArmed is a warning state; trading is still permitted.
	// Reserved for soft-block semantics.
	KillSwitchArmed KillSwitchStatus = "ARMED"
	// KillSwitchOn rejects all new orders.
	KillSwitchOn KillSwitchStatus = "ON"
)

// RiskRuleScope is the breadth at which a rule or state applies.
type RiskRuleScope string

const (
	ScopeGlobal     RiskRuleScope = "GLOBAL"
	ScopePerAccount RiskRuleScope = "PER_ACCOUNT"
	ScopePerSymbol  RiskRuleScope = "PER_SYMBOL"
)

// scopeRank fixes resolution priority explicitly rather than relying on
// declaration order. Higher wins.
var scopeRank = map[RiskRuleScope]int{
	ScopeGlobal:     0,
	ScopePerAccount: 1,
	ScopePerSymbol:  2,
}

// Rank returns the resolution priority of the scope. Unknown scopes rank
// below GLOBAL.
func (s RiskRuleScope) Rank() int {
	if r, ok := scopeRank[s]; ok {
		return r
	}
	return -1
}

// Violation codes carried by rejected decisions.
const (
	ViolationKillSwitch          = "KILL_SWITCH"
	ViolationDailyLossLimit      = "DAILY_LOSS_LIMIT"
	ViolationMaxOpenOrders       = "MAX_OPEN_ORDERS"
	ViolationOrderFrequencyLimit = "ORDER_FREQUENCY_LIMIT"
	ViolationPositionExposure    = "POSITION_EXPOSURE_LIMIT"
	ViolationConsecutiveFailures = "CONSECUTIVE_FAILURES"
	ViolationMarketClosed        = "MARKET_CLOSED"
)

// RiskRule is an immutable set of pre-trade thresholds plus the scope it
// applies at. AccountID/Symbol are set when the scope narrows.
type RiskRule struct {
	ID        string        `json:"id"`
	Scope     RiskRuleScope `json:"scope"`
	AccountID string        `json:"account_id,omitempty"`
	Symbol    string        `json:"symbol,omitempty"`

	MaxPositionValuePerSymbol decimal.Decimal `json:"max_position_value_per_symbol"`
	MaxOpenOrders             int             `json:"max_open_orders"`
	MaxOrdersPerMinute        int             `json:"max_orders_per_minute"`
	// DailyLossLimit is a positive magnitude; breached when
	// dailyPnl <= -DailyLossLimit.
	DailyLossLimit                decimal.Decimal `json:"daily_loss_limit"`
	ConsecutiveOrderFailuresLimit int             `json:"consecutive_order_failures_limit"`

	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultGlobalRule returns the permissive-but-nonzero rule used when no
// narrower rule is configured.
func DefaultGlobalRule() *RiskRule {
	return &RiskRule{
		ID:                            "global-default",
		Scope:                         ScopeGlobal,
		MaxPositionValuePerSymbol:     decimal.NewFromInt(1_000_000),
		MaxOpenOrders:                 50,
		MaxOrdersPerMinute:            60,
		DailyLossLimit:                decimal.NewFromInt(100_000),
		ConsecutiveOrderFailuresLimit: 10,
		Enabled:                       true,
	}
}

// RiskDecision is the immutable outcome of a pre-trade evaluation.
type RiskDecision struct {
	Approved     bool   `json:"approved"`
	Reason       string `json:"reason"`
	RuleViolated string `json:"rule_violated,omitempty"`
}

// Approve returns an approval decision.
func Approve() RiskDecision {
	return RiskDecision{Approved: true, Reason: "approved"}
}

// Reject returns a rejection carrying a human-readable reason and one of the
// violation codes.
func Reject(reason, code string) RiskDecision {
	return RiskDecision{Approved: false, Reason: reason, RuleViolated: code}
}

// Order is the minimal order shape the engine consumes.
type Order struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id"`
	Symbol    string          `json:"symbol"`
	Side      string          `json:"side"` // BUY or SELL
	Qty       decimal.Decimal `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// NotionalValue returns |qty * price|.
func (o Order) NotionalValue() decimal.Decimal {
	return o.Qty.Mul(o.Price).Abs()
}

// Position is an existing open position supplied by a position-lookup
// collaborator.
type Position struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"` // LONG or SHORT
	Qty      decimal.Decimal `json:"qty"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Value    decimal.Decimal `json:"value"`
}

// Notional returns the position's currency value, falling back to
// |qty| * avgPrice when Value is unset.
func (p Position) Notional() decimal.Decimal {
	if !p.Value.IsZero() {
		return p.Value.Abs()
	}
	return p.Qty.Abs().Mul(p.AvgPrice)
}

// increasesExposure reports whether an order on the given side adds to the
// position's direction. Orders on the opposite side reduce risk and are
// never rejected by the exposure check.
func (p Position) increasesExposure(orderSide string) bool {
	switch p.Side {
	case "LONG":
		return orderSide == "BUY"
	case "SHORT":
		return orderSide == "SELL"
	}
	// Direction unknown: fall back to the sign of qty.
	if p.Qty.IsPositive() {
		return orderSide == "BUY"
	}
	if p.Qty.IsNegative() {
		return orderSide == "SELL"
	}
	return true
}
