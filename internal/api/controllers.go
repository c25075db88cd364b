package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"risk-core/internal/risk"
	"risk-core/pkg/db"
)

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.Meta.Version,
		"time":    time.Now().UTC(),
	})
}

// getRiskStatus reports kill-switch status per scope key plus gate counters.
func (s *Server) getRiskStatus(c *gin.Context) {
	type scopeStatus struct {
		Scope            risk.RiskRuleScope    `json:"scope"`
		AccountID        string                `json:"account_id,omitempty"`
		KillSwitchStatus risk.KillSwitchStatus `json:"kill_switch_status"`
		KillSwitchReason string                `json:"kill_switch_reason,omitempty"`
		DailyPnl         decimal.Decimal       `json:"daily_pnl"`
		OpenOrderCount   int                   `json:"open_order_count"`
		Failures         int                   `json:"consecutive_order_failures"`
		UpdatedAt        time.Time             `json:"updated_at"`
	}

	scopes := make(map[string]scopeStatus)
	for key, state := range s.Keeper.Snapshot() {
		scopes[key] = scopeStatus{
			Scope:            state.Scope,
			AccountID:        state.AccountID,
			KillSwitchStatus: state.KillSwitchStatus,
			KillSwitchReason: state.KillSwitchReason,
			DailyPnl:         state.DailyPnl,
			OpenOrderCount:   state.OpenOrderCount,
			Failures:         state.ConsecutiveOrderFailures,
			UpdatedAt:        state.UpdatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"market_hours_enabled": s.Meta.MarketHoursEnabled,
		"scopes":               scopes,
		"counters":             s.Counters.Snapshot(),
	})
}

func (s *Server) getRiskState(c *gin.Context) {
	key := c.Param("key")
	state, ok := s.Keeper.Peek(key)
	if !ok {
		respondError(c, http.StatusNotFound, "STATE_NOT_FOUND", "no state tracked for key")
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) getRiskEvents(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, ok := parsePositiveInt(v); ok {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	eventsList, err := s.Store.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", "could not load events")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": eventsList})
}

func parsePositiveInt(v string) (int, bool) {
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0, false
		}
	}
	return n, n > 0
}

// ----------------------------------------
// Rules
// ----------------------------------------

type ruleRequest struct {
	ID                            string          `json:"id"`
	Scope                         string          `json:"scope" binding:"required,oneof=GLOBAL PER_ACCOUNT PER_SYMBOL"`
	AccountID                     string          `json:"account_id"`
	Symbol                        string          `json:"symbol"`
	MaxPositionValuePerSymbol     decimal.Decimal `json:"max_position_value_per_symbol"`
	MaxOpenOrders                 int             `json:"max_open_orders" binding:"gte=0"`
	MaxOrdersPerMinute            int             `json:"max_orders_per_minute" binding:"gte=0"`
	DailyLossLimit                decimal.Decimal `json:"daily_loss_limit"`
	ConsecutiveOrderFailuresLimit int             `json:"consecutive_order_failures_limit" binding:"gte=0"`
	Enabled                       *bool           `json:"enabled"`
}

func (r *ruleRequest) validate() string {
	scope := risk.RiskRuleScope(r.Scope)
	if scope == risk.ScopePerAccount && r.AccountID == "" {
		return "account_id is required for PER_ACCOUNT scope"
	}
	if scope == risk.ScopePerSymbol && r.Symbol == "" {
		return "symbol is required for PER_SYMBOL scope"
	}
	if r.MaxPositionValuePerSymbol.IsNegative() || r.DailyLossLimit.IsNegative() {
		return "limits must not be negative"
	}
	return ""
}

func (s *Server) listRules(c *gin.Context) {
	rules, err := s.Store.ListRules(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", "could not load rules")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

func (s *Server) upsertRule(c *gin.Context) {
	var req ruleRequest
	if err := c.BindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(c, http.StatusBadRequest, "INVALID_RULE", msg)
		return
	}

	rule := &risk.RiskRule{
		ID:                            req.ID,
		Scope:                         risk.RiskRuleScope(req.Scope),
		AccountID:                     req.AccountID,
		Symbol:                        req.Symbol,
		MaxPositionValuePerSymbol:     req.MaxPositionValuePerSymbol,
		MaxOpenOrders:                 req.MaxOpenOrders,
		MaxOrdersPerMinute:            req.MaxOrdersPerMinute,
		DailyLossLimit:                req.DailyLossLimit,
		ConsecutiveOrderFailuresLimit: req.ConsecutiveOrderFailuresLimit,
		Enabled:                       true,
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := s.Store.UpsertRule(c.Request.Context(), rule); err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", "could not save rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

func (s *Server) deleteRule(c *gin.Context) {
	id := c.Param("id")
	err := s.Store.DeleteRule(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "RULE_NOT_FOUND", "no rule with that id")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", "could not delete rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ----------------------------------------
// Kill switch & order check
// ----------------------------------------

func (s *Server) toggleKillSwitch(c *gin.Context) {
	var req struct {
		AccountID string `json:"account_id"`
		Status    string `json:"status" binding:"required,oneof=OFF ARMED ON"`
		Reason    string `json:"reason" binding:"required,min=1"`
	}
	if err := c.BindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}

	err := s.Flow.ToggleKillSwitch(c.Request.Context(), req.AccountID,
		risk.KillSwitchStatus(req.Status), req.Reason)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "TOGGLE_FAILED", "could not toggle kill switch")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scope_key": risk.ScopeKey(req.AccountID),
		"status":    req.Status,
		"reason":    req.Reason,
	})
}

func (s *Server) checkOrder(c *gin.Context) {
	var req struct {
		AccountID string          `json:"account_id" binding:"required,min=1"`
		Symbol    string          `json:"symbol" binding:"required,min=1"`
		Side      string          `json:"side" binding:"required,oneof=BUY SELL"`
		Qty       decimal.Decimal `json:"qty"`
		Price     decimal.Decimal `json:"price"`
	}
	if err := c.BindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", err.Error())
		return
	}
	if !req.Qty.IsPositive() || !req.Price.IsPositive() {
		respondError(c, http.StatusBadRequest, "INVALID_ORDER", "qty and price must be positive")
		return
	}

	decision, err := s.Flow.PlaceOrder(c.Request.Context(), risk.Order{
		AccountID: req.AccountID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Qty:       req.Qty,
		Price:     req.Price,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "CHECK_FAILED", "risk check failed")
		return
	}
	c.JSON(http.StatusOK, decision)
}
