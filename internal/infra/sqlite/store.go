// Package sqlite is the engine's durable store.
//
// The in-memory components are authoritative at runtime; the store is a
// write-through journal the engine updates after every mutation and replays
// into the components at boot. SQLite via modernc.org/sqlite keeps the
// deployment a single static binary with a single database file.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Pass ":memory:" for an in-process test database.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc's driver is not safe for concurrent writers on one connection
	// pool entry; the engine serializes writes anyway, one connection keeps
	// SQLITE_BUSY out of the picture.
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	db := &DB{db: sqlDB}
	if err := db.Migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// Migrate applies all schema statements. Statements are idempotent.
func (db *DB) Migrate() error {
	for i, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Issuer registry
		`CREATE TABLE IF NOT EXISTS issuers (
			address            TEXT PRIMARY KEY,
			credential_hash    TEXT NOT NULL,
			disclosure_hash    TEXT NOT NULL DEFAULT '',
			registered_at      TEXT NOT NULL,
			active             INTEGER NOT NULL DEFAULT 1,
			last_campaign_year INTEGER NOT NULL DEFAULT 0,
			locked             INTEGER NOT NULL DEFAULT 0,
			active_campaign    TEXT NOT NULL DEFAULT ''
		)`,

		// Campaign headers
		`CREATE TABLE IF NOT EXISTS campaigns (
			id               TEXT PRIMARY KEY,
			issuer           TEXT NOT NULL,
			company_name     TEXT NOT NULL DEFAULT '',
			metadata_ref     TEXT NOT NULL DEFAULT '',
			goal             INTEGER NOT NULL,
			min_investment   INTEGER NOT NULL DEFAULT 0,
			max_investment   INTEGER NOT NULL DEFAULT 0,
			duration_seconds INTEGER NOT NULL,
			state            TEXT NOT NULL,
			created_at       TEXT NOT NULL,
			start_time       TEXT,
			deadline         TEXT,
			end_time         TEXT,
			total_raised     INTEGER NOT NULL DEFAULT 0,
			investor_count   INTEGER NOT NULL DEFAULT 0,
			funds_released   INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_state ON campaigns(state)`,
		`CREATE INDEX IF NOT EXISTS idx_campaigns_issuer ON campaigns(issuer)`,

		// Append-only investment log (line preserves insertion order)
		`CREATE TABLE IF NOT EXISTS investments (
			campaign_id    TEXT NOT NULL,
			line           INTEGER NOT NULL,
			investor       TEXT NOT NULL,
			amount         INTEGER NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			payment_ref    TEXT NOT NULL DEFAULT '',
			recorded_at    TEXT NOT NULL,
			refunded       INTEGER NOT NULL DEFAULT 0,
			refunded_at    TEXT,
			PRIMARY KEY (campaign_id, line)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_investments_investor ON investments(investor)`,

		// Escrow custody accounts
		`CREATE TABLE IF NOT EXISTS escrow_accounts (
			campaign_id      TEXT PRIMARY KEY,
			issuer           TEXT NOT NULL,
			total_funds      INTEGER NOT NULL DEFAULT 0,
			yield_generated  INTEGER NOT NULL DEFAULT 0,
			funds_released   INTEGER NOT NULL DEFAULT 0,
			refund_initiated INTEGER NOT NULL DEFAULT 0,
			issuer_paid      INTEGER NOT NULL DEFAULT 0,
			platform_paid    INTEGER NOT NULL DEFAULT 0,
			created_at       TEXT NOT NULL,
			settled_at       TEXT
		)`,

		// Per-investor escrow balances with yield payout markers
		`CREATE TABLE IF NOT EXISTS escrow_deposits (
			campaign_id TEXT NOT NULL,
			investor    TEXT NOT NULL,
			amount      INTEGER NOT NULL DEFAULT 0,
			yield_paid  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (campaign_id, investor)
		)`,

		// Completed refund payouts
		`CREATE TABLE IF NOT EXISTS refund_lines (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			campaign_id TEXT NOT NULL,
			investor    TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			paid_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refunds_campaign ON refund_lines(campaign_id)`,

		// Yield pool stakes (one per campaign)
		`CREATE TABLE IF NOT EXISTS stakes (
			campaign_id       TEXT PRIMARY KEY,
			principal         INTEGER NOT NULL,
			yield_accrued     INTEGER NOT NULL DEFAULT 0,
			stake_time        TEXT NOT NULL,
			last_compound_key TEXT NOT NULL,
			harvested         INTEGER NOT NULL DEFAULT 0
		)`,

		// Share certificates
		`CREATE TABLE IF NOT EXISTS certificates (
			token_id          TEXT PRIMARY KEY,
			campaign_id       TEXT NOT NULL,
			company_name      TEXT NOT NULL DEFAULT '',
			owner             TEXT NOT NULL,
			investment_amount INTEGER NOT NULL,
			share_count       INTEGER NOT NULL,
			voting_power      INTEGER NOT NULL,
			token_uri         TEXT NOT NULL DEFAULT '',
			issued_at         TEXT NOT NULL,
			active            INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_certs_campaign ON certificates(campaign_id)`,
		`CREATE INDEX IF NOT EXISTS idx_certs_owner ON certificates(owner)`,

		// Administrative certificate ownership changes
		`CREATE TABLE IF NOT EXISTS certificate_transfers (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			token_id   TEXT NOT NULL,
			from_owner TEXT NOT NULL,
			to_owner   TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			at         TEXT NOT NULL
		)`,

		// Treasury account book balances
		`CREATE TABLE IF NOT EXISTS treasury_accounts (
			account TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0
		)`,

		// Event journal
		`CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			at          TEXT NOT NULL,
			campaign_id TEXT NOT NULL DEFAULT '',
			payload     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_campaign ON events(campaign_id)`,
	}
}

// ─── Time Helpers ───────────────────────────────────────────────────────────
// Timestamps are stored as RFC3339 TEXT; the zero time maps to NULL.

func storeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func loadTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s.String)
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
