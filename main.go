package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"risk-core/internal/api"
	"risk-core/internal/events"
	"risk-core/internal/markethours"
	"risk-core/internal/monitor"
	"risk-core/internal/orderflow"
	"risk-core/internal/risk"
	"risk-core/pkg/config"
	"risk-core/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	log.Printf("risk core starting (version=%s, port=%s)", buildVersion, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()
	defer bus.Close()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("db migrations failed: %v", err)
	}
	store := db.NewStore(database)

	// Trading calendar
	calendar, err := markethours.LoadCalendar(cfg.CalendarPath)
	if err != nil {
		log.Fatalf("calendar load failed: %v", err)
	}
	marketHoursEnabled := cfg.MarketHoursEnabled && len(calendar.AllowedSessions) > 0
	if cfg.MarketHoursEnabled && !marketHoursEnabled {
		log.Println("market hours requested but no sessions configured; check disabled")
	}

	// Risk engine + per-scope state keeper
	engine := risk.NewEngine()
	keeper := risk.NewKeeper(store)
	counters := monitor.NewRiskCounters()

	var gateway orderflow.Gateway
	if cfg.ForwardOrders {
		// No broker connection yet; approved orders are logged downstream.
		gateway = logGateway{}
	}

	flow, err := orderflow.NewService(orderflow.Config{
		Rules:              store,
		Keeper:             keeper,
		Engine:             engine,
		Gateway:            gateway,
		Audit:              store,
		Bus:                bus,
		Counters:           counters,
		MarketHoursEnabled: marketHoursEnabled,
		Calendar:           calendar,
	})
	if err != nil {
		log.Fatalf("orderflow init failed: %v", err)
	}

	// Alerts
	alerts := &monitor.AlertManager{
		Bus:      bus,
		Sinks:    []monitor.AlertSink{monitor.LogSink{}},
		Cooldown: cfg.AlertCooldown,
	}
	alerts.Start(ctx)

	// Daily rollover + idle-state cleanup
	if cfg.RolloverEnabled {
		go runDailyRollover(ctx, flow)
	}
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				keeper.CleanupIdle(cfg.StateIdleTTL)
			}
		}
	}()

	// API
	server := api.NewServer(
		bus,
		store,
		keeper,
		flow,
		counters,
		api.SystemMeta{
			MarketHoursEnabled: marketHoursEnabled,
			Version:            buildVersion,
		},
		cfg.JWTSecret,
		cfg.AdminAPIKey,
	)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
}

// logGateway stands in for a broker connection when order forwarding is
// enabled without one configured.
type logGateway struct{}

func (logGateway) Submit(ctx context.Context, order risk.Order) error {
	log.Printf("[GATEWAY] forwarding %s %s %s qty=%s price=%s",
		order.ID, order.Side, order.Symbol, order.Qty, order.Price)
	return nil
}

// runDailyRollover resets daily P&L and failure counters shortly after local
// midnight.
func runDailyRollover(ctx context.Context, flow *orderflow.Service) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 5, 0, now.Location()).AddDate(0, 0, 1)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := flow.ResetDaily(ctx); err != nil {
				log.Printf("daily rollover failed: %v", err)
			}
		}
	}
}
