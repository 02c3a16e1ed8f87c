/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  One database file holds everything the engine persists: the balance
  ledger, submitted work plans and the per-year control-number counters.

INTERFACES IMPLEMENTED:
  ledger.Store:   Balance state + append-only transaction log (ledger.go)
  approval.Store: Plans and control numbers (plans.go)

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on ledger_transactions
  - Reversals are new CREDIT rows pointing at the debit they reverse
  - ledger_state is a single row (id = 1) updated in the same SQL
    transaction as each insert

KEY TABLES:
  ledger_state:        Initial and current balance (singleton)
  ledger_transactions: Immutable log of every balance change
  plans:               Submitted work plans and their review status
  control_numbers:     Last allocated sequence per year

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single pooled connection, so
  ":memory:" databases are shared by every caller of the same Store.

WAL MODE:
  Opened with WAL (Write-Ahead Logging): readers never block the writer.

USAGE:
  store, err := sqlite.New("./data/ptrab.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l, err := ledger.New(ctx, store, ledger.DefaultInitialBalance)
  svc := approval.NewService(store, l, calc)

MIGRATION:
  Schema is auto-migrated on New() with CREATE ... IF NOT EXISTS.
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection; used by the health endpoint.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Balance ledger (singleton row)
	CREATE TABLE IF NOT EXISTS ledger_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		initial_balance TEXT NOT NULL,
		current_balance TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Ledger transactions (append-only)
	CREATE TABLE IF NOT EXISTS ledger_transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		business_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		actor TEXT,
		description TEXT,
		reverses TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_transactions_key
		ON ledger_transactions(business_key);

	-- A transaction can be reversed at most once
	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_transactions_reverses
		ON ledger_transactions(reverses) WHERE reverses IS NOT NULL;

	-- Work plans
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL,
		file_name TEXT,
		submitter_json TEXT NOT NULL,
		operation_json TEXT NOT NULL,
		mode TEXT NOT NULL,
		items_json TEXT NOT NULL,
		value TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reviewed_by TEXT,
		reviewed_at TEXT,
		justification TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_status
		ON plans(status);
	CREATE INDEX IF NOT EXISTS idx_plans_number
		ON plans(number);

	-- Control numbers
	CREATE TABLE IF NOT EXISTS control_numbers (
		year INTEGER PRIMARY KEY,
		last_seq INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
