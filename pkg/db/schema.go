package db

import "fmt"

// Money columns are TEXT: decimal amounts round-trip exactly through
// shopspring/decimal's Scanner/Valuer.
const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS risk_rules (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    account_id TEXT NOT NULL DEFAULT '',
    symbol TEXT NOT NULL DEFAULT '',
    max_position_value_per_symbol TEXT NOT NULL,
    max_open_orders INTEGER NOT NULL,
    max_orders_per_minute INTEGER NOT NULL,
    daily_loss_limit TEXT NOT NULL,
    consecutive_order_failures_limit INTEGER NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_risk_rules_account ON risk_rules(account_id);
CREATE INDEX IF NOT EXISTS idx_risk_rules_symbol ON risk_rules(symbol);

CREATE TABLE IF NOT EXISTS risk_states (
    scope_key TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    account_id TEXT NOT NULL DEFAULT '',
    kill_switch_status TEXT NOT NULL DEFAULT 'OFF',
    kill_switch_reason TEXT NOT NULL DEFAULT '',
    daily_pnl TEXT NOT NULL DEFAULT '0',
    exposure TEXT NOT NULL DEFAULT '0',
    consecutive_order_failures INTEGER NOT NULL DEFAULT 0,
    open_order_count INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS risk_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    scope_key TEXT NOT NULL,
    event_type TEXT NOT NULL,
    order_id TEXT NOT NULL DEFAULT '',
    symbol TEXT NOT NULL DEFAULT '',
    rule_violated TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_risk_events_scope ON risk_events(scope_key, created_at);
`

// ApplyMigrations creates the schema if missing. All statements are
// idempotent.
func ApplyMigrations(d *Database) error {
	if d == nil || d.DB == nil {
		return fmt.Errorf("apply migrations: database not open")
	}
	if _, err := d.DB.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// boolToInt converts for SQLite's integer booleans.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
