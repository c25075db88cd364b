package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"risk-core/internal/risk"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// Store provides the rule, state, and audit-log queries.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database.
func NewStore(d *Database) *Store {
	return &Store{db: d.DB}
}

// ----------------------------------------
// Rule queries
// ----------------------------------------

const ruleColumns = `id, scope, account_id, symbol, max_position_value_per_symbol,
       max_open_orders, max_orders_per_minute, daily_loss_limit,
       consecutive_order_failures_limit, enabled, created_at, updated_at`

func scanRule(row interface{ Scan(...any) error }) (*risk.RiskRule, error) {
	var r risk.RiskRule
	var enabled int
	if err := row.Scan(
		&r.ID, &r.Scope, &r.AccountID, &r.Symbol, &r.MaxPositionValuePerSymbol,
		&r.MaxOpenOrders, &r.MaxOrdersPerMinute, &r.DailyLossLimit,
		&r.ConsecutiveOrderFailuresLimit, &enabled, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	r.Enabled = enabled == 1
	return &r, nil
}

// UpsertRule inserts or replaces a rule by id.
func (s *Store) UpsertRule(ctx context.Context, r *risk.RiskRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_rules (
			id, scope, account_id, symbol, max_position_value_per_symbol,
			max_open_orders, max_orders_per_minute, daily_loss_limit,
			consecutive_order_failures_limit, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			scope = excluded.scope,
			account_id = excluded.account_id,
			symbol = excluded.symbol,
			max_position_value_per_symbol = excluded.max_position_value_per_symbol,
			max_open_orders = excluded.max_open_orders,
			max_orders_per_minute = excluded.max_orders_per_minute,
			daily_loss_limit = excluded.daily_loss_limit,
			consecutive_order_failures_limit = excluded.consecutive_order_failures_limit,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`,
		r.ID, string(r.Scope), r.AccountID, r.Symbol, r.MaxPositionValuePerSymbol,
		r.MaxOpenOrders, r.MaxOrdersPerMinute, r.DailyLossLimit,
		r.ConsecutiveOrderFailuresLimit, boolToInt(r.Enabled),
	)
	if err != nil {
		return fmt.Errorf("upsert risk rule: %w", err)
	}
	return nil
}

// ListRules returns all rules ordered by scope rank then id.
func (s *Store) ListRules(ctx context.Context) ([]risk.RiskRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM risk_rules ORDER BY scope, id`)
	if err != nil {
		return nil, fmt.Errorf("query risk rules: %w", err)
	}
	defer rows.Close()

	var rules []risk.RiskRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk rule: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// DeleteRule removes a rule by id.
func (s *Store) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM risk_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete risk rule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveRule returns the most specific enabled rule governing the
// (account, symbol) pair: PER_SYMBOL over PER_ACCOUNT over GLOBAL. With no
// configured rule it falls back to the permissive default, so the gate never
// runs unconfigured.
func (s *Store) ResolveRule(ctx context.Context, accountID, symbol string) (*risk.RiskRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ruleColumns+`
		FROM risk_rules
		WHERE enabled = 1
		  AND (
			scope = 'GLOBAL'
			OR (scope = 'PER_ACCOUNT' AND account_id = ?)
			OR (scope = 'PER_SYMBOL' AND symbol = ? AND (account_id = '' OR account_id = ?))
		  )
	`, accountID, symbol, accountID)
	if err != nil {
		return nil, fmt.Errorf("query applicable rules: %w", err)
	}
	defer rows.Close()

	var best *risk.RiskRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk rule: %w", err)
		}
		// Explicit rank table decides specificity, not declaration order.
		if best == nil || r.Scope.Rank() > best.Scope.Rank() {
			best = r
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if best == nil {
		return risk.DefaultGlobalRule(), nil
	}
	return best, nil
}

// ----------------------------------------
// State queries
// ----------------------------------------

// LoadState implements risk.StateStore.
func (s *Store) LoadState(ctx context.Context, key string) (*risk.RiskState, error) {
	var st risk.RiskState
	err := s.db.QueryRowContext(ctx, `
		SELECT scope_key, scope, account_id, kill_switch_status, kill_switch_reason,
		       daily_pnl, exposure, consecutive_order_failures, open_order_count, updated_at
		FROM risk_states
		WHERE scope_key = ?
	`, key).Scan(
		&st.ID, &st.Scope, &st.AccountID, &st.KillSwitchStatus, &st.KillSwitchReason,
		&st.DailyPnl, &st.Exposure, &st.ConsecutiveOrderFailures, &st.OpenOrderCount, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, risk.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query risk state: %w", err)
	}
	// The frequency tracker is deliberately not persisted; its window is a
	// minute and restarts begin with a clean one.
	st.Tracker = risk.NewOrderFrequencyTracker()
	return &st, nil
}

// SaveState implements risk.StateStore.
func (s *Store) SaveState(ctx context.Context, key string, st *risk.RiskState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_states (
			scope_key, scope, account_id, kill_switch_status, kill_switch_reason,
			daily_pnl, exposure, consecutive_order_failures, open_order_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope_key) DO UPDATE SET
			kill_switch_status = excluded.kill_switch_status,
			kill_switch_reason = excluded.kill_switch_reason,
			daily_pnl = excluded.daily_pnl,
			exposure = excluded.exposure,
			consecutive_order_failures = excluded.consecutive_order_failures,
			open_order_count = excluded.open_order_count,
			updated_at = CURRENT_TIMESTAMP
	`,
		key, string(st.Scope), st.AccountID, string(st.KillSwitchStatus), st.KillSwitchReason,
		st.DailyPnl, st.Exposure, st.ConsecutiveOrderFailures, st.OpenOrderCount,
	)
	if err != nil {
		return fmt.Errorf("save risk state: %w", err)
	}
	return nil
}

// ----------------------------------------
// Audit log
// ----------------------------------------

// RiskEvent is one row of the audit log.
type RiskEvent struct {
	ID           int64     `json:"id"`
	ScopeKey     string    `json:"scope_key"`
	EventType    string    `json:"event_type"`
	OrderID      string    `json:"order_id,omitempty"`
	Symbol       string    `json:"symbol,omitempty"`
	RuleViolated string    `json:"rule_violated,omitempty"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordEvent appends to the audit log.
func (s *Store) RecordEvent(ctx context.Context, e RiskEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_events (scope_key, event_type, order_id, symbol, rule_violated, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ScopeKey, e.EventType, e.OrderID, e.Symbol, e.RuleViolated, e.Reason)
	if err != nil {
		return fmt.Errorf("record risk event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events, most recent first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]RiskEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope_key, event_type, order_id, symbol, rule_violated, reason, created_at
		FROM risk_events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query risk events: %w", err)
	}
	defer rows.Close()

	var out []RiskEvent
	for rows.Next() {
		var e RiskEvent
		if err := rows.Scan(&e.ID, &e.ScopeKey, &e.EventType, &e.OrderID, &e.Symbol,
			&e.RuleViolated, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan risk event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
