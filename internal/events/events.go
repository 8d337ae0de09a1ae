package events

import "time"

// Type tags a plan execution event variant.
type Type string

const (
	PlanStarted       Type = "plan_started"
	StepStarting      Type = "step_starting"
	StepCompleted     Type = "step_completed"
	StepFailed        Type = "step_failed"
	StepSkipped       Type = "step_skipped"
	PlanPaused        Type = "plan_paused"
	PlanResumed       Type = "plan_resumed"
	PlanCompleted     Type = "plan_completed"
	PlanFailed        Type = "plan_failed"
	PlanCancelled     Type = "plan_cancelled"
	ApprovalRequested Type = "approval_requested"
	ApprovalReceived  Type = "approval_received"
)

// Event is one entry in a plan's execution stream. Events are immutable
// once emitted; each variant carries only the fields its constructor sets.
type Event struct {
	Type      Type      `json:"type"`
	PlanID    string    `json:"plan_id"`
	Timestamp time.Time `json:"timestamp"`

	Goal       string `json:"goal,omitempty"`
	TotalSteps int    `json:"total_steps,omitempty"`

	StepIndex   int    `json:"step_index,omitempty"`
	ToolName    string `json:"tool_name,omitempty"`
	Description string `json:"description,omitempty"`
	DurationMs  int64  `json:"duration_ms,omitempty"`

	Error     string `json:"error,omitempty"`
	Retryable *bool  `json:"retryable,omitempty"`
	Reason    string `json:"reason,omitempty"`

	SucceededSteps int `json:"succeeded_steps,omitempty"`

	ApprovalID  string `json:"approval_id,omitempty"`
	Approved    *bool  `json:"approved,omitempty"`
	DecidedBy   string `json:"decided_by,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

func newEvent(t Type, planID string) Event {
	return Event{Type: t, PlanID: planID, Timestamp: time.Now()}
}

func NewPlanStartedEvent(planID, goal string, totalSteps int) Event {
	e := newEvent(PlanStarted, planID)
	e.Goal = goal
	e.TotalSteps = totalSteps
	return e
}

func NewStepStartingEvent(planID string, index int, tool, description string) Event {
	e := newEvent(StepStarting, planID)
	e.StepIndex = index
	e.ToolName = tool
	e.Description = description
	return e
}

func NewStepCompletedEvent(planID string, index int, tool string, durationMs int64) Event {
	e := newEvent(StepCompleted, planID)
	e.StepIndex = index
	e.ToolName = tool
	e.DurationMs = durationMs
	return e
}

func NewStepFailedEvent(planID string, index int, tool, description, errMsg string, retryable bool, durationMs int64) Event {
	e := newEvent(StepFailed, planID)
	e.StepIndex = index
	e.ToolName = tool
	e.Description = description
	e.Error = errMsg
	e.Retryable = &retryable
	e.DurationMs = durationMs
	return e
}

func NewStepSkippedEvent(planID string, index int, reason string) Event {
	e := newEvent(StepSkipped, planID)
	e.StepIndex = index
	e.Reason = reason
	return e
}

func NewPlanPausedEvent(planID string, stepIndex int, approvalID string) Event {
	e := newEvent(PlanPaused, planID)
	e.StepIndex = stepIndex
	e.ApprovalID = approvalID
	return e
}

func NewPlanResumedEvent(planID string, stepIndex int) Event {
	e := newEvent(PlanResumed, planID)
	e.StepIndex = stepIndex
	return e
}

func NewPlanCompletedEvent(planID string, succeededSteps, totalSteps int, durationMs int64) Event {
	e := newEvent(PlanCompleted, planID)
	e.SucceededSteps = succeededSteps
	e.TotalSteps = totalSteps
	e.DurationMs = durationMs
	return e
}

func NewPlanFailedEvent(planID string, stepIndex int, reason string) Event {
	e := newEvent(PlanFailed, planID)
	e.StepIndex = stepIndex
	e.Reason = reason
	return e
}

func NewPlanCancelledEvent(planID, cancelledBy string) Event {
	e := newEvent(PlanCancelled, planID)
	e.CancelledBy = cancelledBy
	return e
}

func NewApprovalRequestedEvent(planID string, stepIndex int, approvalID, tool string) Event {
	e := newEvent(ApprovalRequested, planID)
	e.StepIndex = stepIndex
	e.ApprovalID = approvalID
	e.ToolName = tool
	return e
}

func NewApprovalReceivedEvent(planID, approvalID string, approved bool, decidedBy string) Event {
	e := newEvent(ApprovalReceived, planID)
	e.ApprovalID = approvalID
	e.Approved = &approved
	e.DecidedBy = decidedBy
	return e
}
