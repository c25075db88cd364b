// Package api exposes the admin and observability HTTP surface of the risk
// core.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"risk-core/internal/events"
	"risk-core/internal/monitor"
	"risk-core/internal/orderflow"
	"risk-core/internal/risk"
	"risk-core/pkg/db"
)

// Server wires HTTP endpoints around the risk workflow.
type Server struct {
	Router   *gin.Engine
	Bus      *events.Bus
	Store    *db.Store
	Keeper   *risk.Keeper
	Flow     *orderflow.Service
	Counters *monitor.RiskCounters

	JWTSecret   string
	AdminAPIKey string
	Meta        SystemMeta

	httpSrv *http.Server
}

// SystemMeta describes runtime status exposed to operators.
type SystemMeta struct {
	MarketHoursEnabled bool
	Version            string
}

// NewServer builds the router and registers all routes.
func NewServer(bus *events.Bus, store *db.Store, keeper *risk.Keeper, flow *orderflow.Service,
	counters *monitor.RiskCounters, meta SystemMeta, jwtSecret, adminAPIKey string) *Server {
	r := gin.New()

	// Middleware stack (order matters)
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(CORSMiddleware())

	s := &Server{
		Router:      r,
		Bus:         bus,
		Store:       store,
		Keeper:      keeper,
		Flow:        flow,
		Counters:    counters,
		JWTSecret:   jwtSecret,
		AdminAPIKey: adminAPIKey,
		Meta:        meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/ws", s.websocket)

	api := s.Router.Group("/api")
	{
		api.POST("/auth/token", s.issueToken)

		api.GET("/risk/status", s.getRiskStatus)
		api.GET("/risk/state/:key", s.getRiskState)
		api.GET("/risk/events", s.getRiskEvents)

		api.POST("/orders/check", s.checkOrder)

		// Mutating admin routes require a token.
		protected := api.Group("")
		protected.Use(AuthMiddleware(s.JWTSecret))
		{
			protected.GET("/risk/rules", s.listRules)
			protected.POST("/risk/rules", s.upsertRule)
			protected.DELETE("/risk/rules/:id", s.deleteRule)
			protected.POST("/risk/killswitch", s.toggleKillSwitch)
		}
	}
}

// Start runs the HTTP server on addr.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpSrv.ListenAndServe()
}
