package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/ptrab-engine/allowance"
	"github.com/warp/ptrab-engine/approval"
)

// =============================================================================
// PLAN STORE (approval.Store interface)
// =============================================================================

// SavePlan inserts or updates a plan.
func (s *Store) SavePlan(ctx context.Context, p *approval.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	submitterJSON, err := json.Marshal(p.Submitter)
	if err != nil {
		return fmt.Errorf("encode submitter: %w", err)
	}
	operationJSON, err := json.Marshal(p.Operation)
	if err != nil {
		return fmt.Errorf("encode operation: %w", err)
	}
	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}

	query := `
		INSERT INTO plans (id, number, file_name, submitter_json, operation_json, mode,
			items_json, value, status, reviewed_by, reviewed_at, justification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			status = excluded.status,
			reviewed_by = excluded.reviewed_by,
			reviewed_at = excluded.reviewed_at,
			justification = excluded.justification
	`

	var reviewedAt *string
	if p.ReviewedAt != nil {
		v := formatTime(*p.ReviewedAt)
		reviewedAt = &v
	}

	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Number, nullString(p.FileName), string(submitterJSON), string(operationJSON),
		string(p.Mode), string(itemsJSON), p.Value.String(), string(p.Status),
		nullString(p.ReviewedBy), reviewedAt, nullString(p.Justification), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// GetPlan retrieves a plan by ID.
func (s *Store) GetPlan(ctx context.Context, id string) (*approval.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, planColumns+" FROM plans WHERE id = ?", id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", approval.ErrPlanNotFound, id)
	}
	return p, err
}

// ListPlans returns plans newest first, optionally filtered by status.
func (s *Store) ListPlans(ctx context.Context, status approval.Status) ([]*approval.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := planColumns + " FROM plans"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []*approval.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// DeletePlan removes a plan.
func (s *Store) DeletePlan(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", approval.ErrPlanNotFound, id)
	}
	return nil
}

// NumberInUse reports whether a pending or approved plan carries number.
func (s *Store) NumberInUse(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM plans WHERE number = ? AND status != ?",
		number, string(approval.StatusRejected),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check plan number: %w", err)
	}
	return n > 0, nil
}

// NextSequence increments and returns the control-number counter for year.
func (s *Store) NextSequence(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO control_numbers (year, last_seq) VALUES (?, 1)
		ON CONFLICT(year) DO UPDATE SET last_seq = last_seq + 1`, year)
	if err != nil {
		return 0, fmt.Errorf("failed to bump control number: %w", err)
	}

	var seq int
	if err := sqlTx.QueryRowContext(ctx,
		"SELECT last_seq FROM control_numbers WHERE year = ?", year,
	).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read control number: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

const planColumns = `
	SELECT id, number, file_name, submitter_json, operation_json, mode, items_json,
		value, status, reviewed_by, reviewed_at, justification, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*approval.Plan, error) {
	var (
		p                                       approval.Plan
		fileName, reviewedBy, justification     sql.NullString
		reviewedAt                              sql.NullString
		submitterJSON, operationJSON, itemsJSON string
		mode, value, status, createdAt          string
	)
	err := row.Scan(&p.ID, &p.Number, &fileName, &submitterJSON, &operationJSON, &mode,
		&itemsJSON, &value, &status, &reviewedBy, &reviewedAt, &justification, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(submitterJSON), &p.Submitter); err != nil {
		return nil, fmt.Errorf("plan %s: corrupt submitter: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(operationJSON), &p.Operation); err != nil {
		return nil, fmt.Errorf("plan %s: corrupt operation: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &p.Items); err != nil {
		return nil, fmt.Errorf("plan %s: corrupt items: %w", p.ID, err)
	}
	if p.Value, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("plan %s: corrupt value: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("plan %s: corrupt created_at: %w", p.ID, err)
	}
	if reviewedAt.Valid {
		t, err := parseTime(reviewedAt.String)
		if err != nil {
			return nil, fmt.Errorf("plan %s: corrupt reviewed_at: %w", p.ID, err)
		}
		p.ReviewedAt = &t
	}

	p.FileName = fileName.String
	p.Mode = allowance.Mode(mode)
	p.Status = approval.Status(status)
	p.ReviewedBy = reviewedBy.String
	p.Justification = justification.String
	return &p, nil
}
