package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/donna-ai/donna/internal/plan"
)

// SavePlan inserts a plan and its steps in one transaction.
func (s *Store) SavePlan(ctx context.Context, p *plan.Plan) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	assumptions, err := json.Marshal(p.Assumptions)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plans (id, user_id, goal, status, current_step_index, requires_approval, assumptions, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Goal, string(p.Status), p.CurrentStepIndex, boolInt(p.RequiresApproval),
		string(assumptions), p.Confidence, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}

	for _, st := range p.Steps {
		if st.CreatedAt.IsZero() {
			st.CreatedAt = now
		}
		if err := insertStep(ctx, tx, st); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertStep(ctx context.Context, tx *sql.Tx, st *plan.Step) error {
	params, err := json.Marshal(st.Parameters)
	if err != nil {
		return err
	}
	deps, err := json.Marshal(st.DependsOnIndices)
	if err != nil {
		return err
	}
	result, err := marshalNullable(st.Result)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO plan_steps (id, plan_id, step_index, tool_name, parameters, depends_on, description, status, requires_approval, result, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.PlanID, st.Index, st.ToolName, string(params), string(deps),
		st.Description, string(st.Status), boolInt(st.RequiresApproval), result, st.Error, st.CreatedAt)
	return err
}

// UpdatePlan persists the plan's mutable fields. Steps are updated
// individually via UpdateStep.
func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	p.UpdatedAt = time.Now()
	res, err := s.DB.ExecContext(ctx,
		`UPDATE plans SET status = ?, current_step_index = ?, updated_at = ? WHERE id = ?`,
		string(p.Status), p.CurrentStepIndex, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan %s not found", p.ID)
	}
	return nil
}

// UpdateStep persists one step's status, result and error.
func (s *Store) UpdateStep(ctx context.Context, st *plan.Step) error {
	result, err := marshalNullable(st.Result)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE plan_steps SET status = ?, result = ?, error = ? WHERE id = ?`,
		string(st.Status), result, st.Error, st.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("step %s not found", st.ID)
	}
	return nil
}

// GetPlan loads a plan with its steps ordered by index.
func (s *Store) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	var p plan.Plan
	var status, assumptions string
	var requiresApproval int
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, user_id, goal, status, current_step_index, requires_approval, COALESCE(assumptions,'null'), COALESCE(confidence,0), created_at, updated_at
		FROM plans WHERE id = ?`, planID).
		Scan(&p.ID, &p.UserID, &p.Goal, &status, &p.CurrentStepIndex, &requiresApproval,
			&assumptions, &p.Confidence, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = plan.Status(status)
	p.RequiresApproval = requiresApproval != 0
	if err := json.Unmarshal([]byte(assumptions), &p.Assumptions); err != nil {
		return nil, err
	}

	steps, err := s.loadSteps(ctx, planID)
	if err != nil {
		return nil, err
	}
	p.Steps = steps
	return &p, nil
}

func (s *Store) loadSteps(ctx context.Context, planID string) ([]*plan.Step, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, plan_id, step_index, tool_name, COALESCE(parameters,'null'), COALESCE(depends_on,'null'), COALESCE(description,''), status, requires_approval, result, COALESCE(error,''), created_at
		FROM plan_steps WHERE plan_id = ? ORDER BY step_index`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*plan.Step
	for rows.Next() {
		var st plan.Step
		var params, deps, status string
		var result sql.NullString
		var requiresApproval int
		if err := rows.Scan(&st.ID, &st.PlanID, &st.Index, &st.ToolName, &params, &deps,
			&st.Description, &status, &requiresApproval, &result, &st.Error, &st.CreatedAt); err != nil {
			return nil, err
		}
		st.Status = plan.StepStatus(status)
		st.RequiresApproval = requiresApproval != 0
		if err := json.Unmarshal([]byte(params), &st.Parameters); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(deps), &st.DependsOnIndices); err != nil {
			return nil, err
		}
		if result.Valid {
			var v any
			if err := json.Unmarshal([]byte(result.String), &v); err != nil {
				return nil, err
			}
			st.Result = v
		}
		steps = append(steps, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Dependency step IDs are derived from indices after the full set
	// is loaded.
	for _, st := range steps {
		st.DependsOn = st.DependsOn[:0]
		for _, dep := range st.DependsOnIndices {
			if dep >= 0 && dep < len(steps) {
				st.DependsOn = append(st.DependsOn, steps[dep].ID)
			}
		}
	}
	return steps, nil
}

// ListPlansByStatus returns plans in a given state, oldest first.
func (s *Store) ListPlansByStatus(ctx context.Context, userID string, status plan.Status) ([]*plan.Plan, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id FROM plans WHERE user_id = ? AND status = ? ORDER BY created_at`, userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	plans := make([]*plan.Plan, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPlan(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
