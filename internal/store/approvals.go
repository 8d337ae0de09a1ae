package store

import (
	"context"
	"database/sql"
	"time"
)

// CreateApproval records a pending approval request for a plan step.
func (s *Store) CreateApproval(ctx context.Context, a *Approval) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = ApprovalPending
	}
	q := `INSERT INTO approvals (id, plan_id, step_id, user_id, status, reason, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, q, a.ID, a.PlanID, a.StepID, a.UserID, string(a.Status), a.Reason, a.CreatedAt, a.ExpiresAt)
	return err
}

func (s *Store) GetApproval(ctx context.Context, id string) (*Approval, error) {
	q := `SELECT id, plan_id, step_id, user_id, status, COALESCE(reason,''), created_at, expires_at, decided_at, COALESCE(decided_by,'')
		FROM approvals WHERE id = ?`
	return s.scanApproval(s.DB.QueryRowContext(ctx, q, id))
}

// ApprovalFor returns the most recent approval for a plan step, or nil.
func (s *Store) ApprovalFor(ctx context.Context, planID, stepID string) (*Approval, error) {
	q := `SELECT id, plan_id, step_id, user_id, status, COALESCE(reason,''), created_at, expires_at, decided_at, COALESCE(decided_by,'')
		FROM approvals WHERE plan_id = ? AND step_id = ? ORDER BY created_at DESC LIMIT 1`
	return s.scanApproval(s.DB.QueryRowContext(ctx, q, planID, stepID))
}

func (s *Store) scanApproval(row *sql.Row) (*Approval, error) {
	var a Approval
	var status string
	var decidedAt sql.NullTime
	err := row.Scan(&a.ID, &a.PlanID, &a.StepID, &a.UserID, &status, &a.Reason,
		&a.CreatedAt, &a.ExpiresAt, &decidedAt, &a.DecidedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Status = ApprovalStatus(status)
	if decidedAt.Valid {
		a.DecidedAt = &decidedAt.Time
	}
	return &a, nil
}

// DecideApproval moves a pending approval to approved or rejected. A
// decision on a non-pending approval is a no-op returning false.
func (s *Store) DecideApproval(ctx context.Context, id string, status ApprovalStatus, decidedBy string) (bool, error) {
	now := time.Now()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE approvals SET status = ?, decided_at = ?, decided_by = ? WHERE id = ? AND status = 'pending'`,
		string(status), now, decidedBy, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPendingApprovals returns pending approvals for a user, oldest
// first.
func (s *Store) ListPendingApprovals(ctx context.Context, userID string) ([]Approval, error) {
	q := `SELECT id, plan_id, step_id, user_id, status, COALESCE(reason,''), created_at, expires_at, decided_at, COALESCE(decided_by,'')
		FROM approvals WHERE user_id = ? AND status = 'pending' ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Approval
	for rows.Next() {
		var a Approval
		var status string
		var decidedAt sql.NullTime
		if err := rows.Scan(&a.ID, &a.PlanID, &a.StepID, &a.UserID, &status, &a.Reason,
			&a.CreatedAt, &a.ExpiresAt, &decidedAt, &a.DecidedBy); err != nil {
			return nil, err
		}
		a.Status = ApprovalStatus(status)
		if decidedAt.Valid {
			a.DecidedAt = &decidedAt.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ExpireStaleApprovals marks pending approvals past their deadline as
// expired, returning how many were swept.
func (s *Store) ExpireStaleApprovals(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE approvals SET status = 'expired', decided_at = ? WHERE status = 'pending' AND expires_at <= ?`,
		now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
