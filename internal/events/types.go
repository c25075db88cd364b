package events

import (
	"time"

	"risk-core/internal/risk"
)

// Event enumerates the topics published by the risk core.
type Event string

const (
	EventOrderApproved Event = "risk.order_approved"
	EventOrderRejected Event = "risk.order_rejected"
	EventKillSwitch    Event = "risk.kill_switch"
	EventStateUpdated  Event = "risk.state_updated"
)

// OrderEvent is the payload for approval/rejection topics.
type OrderEvent struct {
	Order    risk.Order        `json:"order"`
	Decision risk.RiskDecision `json:"decision"`
	ScopeKey string            `json:"scope_key"`
	At       time.Time         `json:"at"`
}

// KillSwitchEvent is published when the breaker changes state, whether by
// manual toggle or auto-trigger.
type KillSwitchEvent struct {
	ScopeKey string                `json:"scope_key"`
	Status   risk.KillSwitchStatus `json:"status"`
	Reason   string                `json:"reason"`
	Auto     bool                  `json:"auto"`
	At       time.Time             `json:"at"`
}
