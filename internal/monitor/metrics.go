// Package monitor tracks risk-gate counters and turns risk events into
// alerts.
package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// RiskCounters tracks gate activity for the status endpoint.
type RiskCounters struct {
	checksTotal     uint64
	approvalsTotal  uint64
	rejectionsTotal uint64
	killSwitchTrips uint64

	mu               sync.RWMutex
	rejectionsByCode map[string]uint64
	lastEvaluatedAt  time.Time
}

// NewRiskCounters creates a zeroed counter set.
func NewRiskCounters() *RiskCounters {
	return &RiskCounters{rejectionsByCode: make(map[string]uint64)}
}

// RecordCheck records one evaluation outcome.
func (c *RiskCounters) RecordCheck(approved bool, code string) {
	atomic.AddUint64(&c.checksTotal, 1)
	if approved {
		atomic.AddUint64(&c.approvalsTotal, 1)
	} else {
		atomic.AddUint64(&c.rejectionsTotal, 1)
	}

	c.mu.Lock()
	if !approved && code != "" {
		c.rejectionsByCode[code]++
	}
	c.lastEvaluatedAt = time.Now()
	c.mu.Unlock()
}

// RecordKillSwitchTrip counts a breaker engagement.
func (c *RiskCounters) RecordKillSwitchTrip() {
	atomic.AddUint64(&c.killSwitchTrips, 1)
}

// CountersSnapshot is the JSON shape served by the status endpoint.
type CountersSnapshot struct {
	ChecksTotal      uint64            `json:"checks_total"`
	ApprovalsTotal   uint64            `json:"approvals_total"`
	RejectionsTotal  uint64            `json:"rejections_total"`
	KillSwitchTrips  uint64            `json:"kill_switch_trips"`
	RejectionsByCode map[string]uint64 `json:"rejections_by_code"`
	LastEvaluatedAt  time.Time         `json:"last_evaluated_at"`
}

// Snapshot copies the current counters.
func (c *RiskCounters) Snapshot() CountersSnapshot {
	snap := CountersSnapshot{
		ChecksTotal:     atomic.LoadUint64(&c.checksTotal),
		ApprovalsTotal:  atomic.LoadUint64(&c.approvalsTotal),
		RejectionsTotal: atomic.LoadUint64(&c.rejectionsTotal),
		KillSwitchTrips: atomic.LoadUint64(&c.killSwitchTrips),
	}

	c.mu.RLock()
	snap.LastEvaluatedAt = c.lastEvaluatedAt
	snap.RejectionsByCode = make(map[string]uint64, len(c.rejectionsByCode))
	for code, n := range c.rejectionsByCode {
		snap.RejectionsByCode[code] = n
	}
	c.mu.RUnlock()
	return snap
}
