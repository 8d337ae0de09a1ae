package plan

import (
	"fmt"
	"time"
)

// StepStatus is the lifecycle of a single step. Completed, failed and
// skipped are terminal.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Terminal reports whether the status can no longer change.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepFailed || s == StepSkipped
}

// Status is the lifecycle of a whole plan.
type Status string

const (
	StatusPlanned   Status = "planned"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the plan can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Step is one tool invocation within a plan. DependsOnIndices must all be
// strictly less than Index: the planner emits steps in topological order
// and the executor re-validates that before running.
type Step struct {
	ID               string         `json:"id"`
	PlanID           string         `json:"plan_id"`
	Index            int            `json:"index"`
	ToolName         string         `json:"tool_name"`
	Parameters       map[string]any `json:"parameters,omitempty"`
	DependsOn        []string       `json:"depends_on,omitempty"`
	DependsOnIndices []int          `json:"depends_on_indices,omitempty"`
	Description      string         `json:"description,omitempty"`
	Status           StepStatus     `json:"status"`
	RequiresApproval bool           `json:"requires_approval,omitempty"`
	Result           any            `json:"result,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Plan is a dependency-ordered sequence of steps derived from a user goal.
// Steps are ordered by Index; CurrentStepIndex only advances forward.
type Plan struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Goal             string    `json:"goal"`
	Status           Status    `json:"status"`
	Steps            []*Step   `json:"steps"`
	CurrentStepIndex int       `json:"current_step_index"`
	RequiresApproval bool      `json:"requires_approval"`
	Assumptions      []string  `json:"assumptions,omitempty"`
	Confidence       float64   `json:"confidence"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StepByIndex returns the step with the given index, or nil.
func (p *Plan) StepByIndex(i int) *Step {
	for _, s := range p.Steps {
		if s.Index == i {
			return s
		}
	}
	return nil
}

// Validate checks structural invariants: indices are 0..n-1 in order and
// every dependency points at a strictly earlier step.
func (p *Plan) Validate() error {
	for i, s := range p.Steps {
		if s.Index != i {
			return fmt.Errorf("malformed plan: step at position %d has index %d", i, s.Index)
		}
		for _, dep := range s.DependsOnIndices {
			if dep < 0 || dep >= s.Index {
				return fmt.Errorf("malformed plan: step %d depends on step %d", s.Index, dep)
			}
		}
	}
	return nil
}
