package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/ledger"
)

// =============================================================================
// LEDGER STORE (ledger.Store interface)
// =============================================================================

// Load returns the ledger state with its full transaction history.
func (s *Store) Load(ctx context.Context) (ledger.State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var initial, current, updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT initial_balance, current_balance, updated_at FROM ledger_state WHERE id = 1",
	).Scan(&initial, &current, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.State{}, false, nil
	}
	if err != nil {
		return ledger.State{}, false, fmt.Errorf("failed to load ledger state: %w", err)
	}

	state := ledger.State{}
	if state.InitialBalance, err = decimal.NewFromString(initial); err != nil {
		return ledger.State{}, false, fmt.Errorf("corrupt initial_balance %q: %w", initial, err)
	}
	if state.CurrentBalance, err = decimal.NewFromString(current); err != nil {
		return ledger.State{}, false, fmt.Errorf("corrupt current_balance %q: %w", current, err)
	}
	if state.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ledger.State{}, false, fmt.Errorf("corrupt updated_at %q: %w", updatedAt, err)
	}

	state.Transactions, err = s.queryLedgerTransactions(ctx)
	if err != nil {
		return ledger.State{}, false, err
	}
	return state, true, nil
}

// Init writes the singleton state row.
func (s *Store) Init(ctx context.Context, initial decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_state (id, initial_balance, current_balance, updated_at) VALUES (1, ?, ?, ?)`,
		initial.String(), initial.String(), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to init ledger: %w", err)
	}
	return nil
}

// Append inserts tx and moves the balance in one SQL transaction.
func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO ledger_transactions
		(id, business_key, kind, amount, balance_before, balance_after, actor, description, reverses, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.Key,
		string(tx.Kind),
		tx.Amount.String(),
		tx.BalanceBefore.String(),
		tx.BalanceAfter.String(),
		tx.Actor,
		tx.Description,
		nullString(tx.Reverses),
		formatTime(tx.Timestamp),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("transaction %s already recorded or reversed: %w", tx.ID, err)
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	res, err := sqlTx.ExecContext(ctx,
		"UPDATE ledger_state SET current_balance = ?, updated_at = ? WHERE id = 1",
		tx.BalanceAfter.String(), formatTime(tx.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return errors.New("ledger not initialized")
	}

	return sqlTx.Commit()
}

func (s *Store) queryLedgerTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, business_key, kind, amount, balance_before, balance_after,
		       actor, description, reverses, created_at
		FROM ledger_transactions
		ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanLedgerTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanLedgerTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx                           ledger.Transaction
		kind, amount, before, after  string
		actor, description, reverses sql.NullString
		createdAt                    string
	)
	if err := rows.Scan(&tx.ID, &tx.Key, &kind, &amount, &before, &after,
		&actor, &description, &reverses, &createdAt); err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	var err error
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: corrupt amount: %w", tx.ID, err)
	}
	if tx.BalanceBefore, err = decimal.NewFromString(before); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: corrupt balance_before: %w", tx.ID, err)
	}
	if tx.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: corrupt balance_after: %w", tx.ID, err)
	}
	if tx.Timestamp, err = parseTime(createdAt); err != nil {
		return ledger.Transaction{}, fmt.Errorf("transaction %s: corrupt created_at: %w", tx.ID, err)
	}
	tx.Kind = ledger.Kind(kind)
	tx.Actor = actor.String
	tx.Description = description.String
	tx.Reverses = reverses.String
	return tx, nil
}
