package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"risk-core/internal/events"
)

// AlertSink is the pluggable delivery interface. Transports beyond logging
// (mail, chat, pager) live outside this service.
type AlertSink interface {
	Send(message string) error
}

// LogSink writes alerts to the process log.
type LogSink struct{}

func (LogSink) Send(message string) error {
	log.Printf("[ALERT] %s", message)
	return nil
}

// AlertManager subscribes to rejection and kill-switch topics and fans
// messages out to sinks. Repeated alerts for the same key are suppressed
// within the cooldown window so a rejection storm does not become an alert
// storm.
type AlertManager struct {
	Bus      *events.Bus
	Sinks    []AlertSink
	Cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// Start launches the subscriber goroutine; it exits when ctx is done.
func (m *AlertManager) Start(ctx context.Context) {
	if m.Bus == nil || len(m.Sinks) == 0 {
		log.Println("alert manager not fully configured; skipping")
		return
	}
	if m.lastSent == nil {
		m.lastSent = make(map[string]time.Time)
	}

	rejected, unsubRejected := m.Bus.Subscribe(events.EventOrderRejected, 100)
	tripped, unsubTripped := m.Bus.Subscribe(events.EventKillSwitch, 20)

	go func() {
		defer unsubRejected()
		defer unsubTripped()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-rejected:
				if !ok {
					return
				}
				if ev, isOrder := msg.(events.OrderEvent); isOrder {
					m.notify(
						ev.ScopeKey+"/"+ev.Decision.RuleViolated,
						fmt.Sprintf("order %s rejected (%s): %s", ev.Order.ID, ev.Decision.RuleViolated, ev.Decision.Reason),
					)
				}
			case msg, ok := <-tripped:
				if !ok {
					return
				}
				if ev, isTrip := msg.(events.KillSwitchEvent); isTrip {
					m.notify(
						ev.ScopeKey+"/killswitch",
						fmt.Sprintf("kill switch %s for %s: %s", ev.Status, ev.ScopeKey, ev.Reason),
					)
				}
			}
		}
	}()
}

func (m *AlertManager) notify(key, message string) {
	if m.Cooldown > 0 {
		m.mu.Lock()
		last, seen := m.lastSent[key]
		if seen && time.Since(last) < m.Cooldown {
			m.mu.Unlock()
			return
		}
		m.lastSent[key] = time.Now()
		m.mu.Unlock()
	}

	for _, sink := range m.Sinks {
		if err := sink.Send(message); err != nil {
			log.Printf("alert sink error: %v", err)
		}
	}
}
