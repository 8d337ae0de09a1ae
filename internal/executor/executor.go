// Package executor runs plans step by step: honoring dependencies,
// substituting step outputs into parameters, gating risky steps on
// human approval and streaming progress events per plan.
package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/donna-ai/donna/internal/events"
	"github.com/donna-ai/donna/internal/observability"
	"github.com/donna-ai/donna/internal/plan"
	"github.com/donna-ai/donna/internal/store"
	"github.com/donna-ai/donna/internal/tools"
)

// PlanStore persists plans and their steps.
type PlanStore interface {
	GetPlan(ctx context.Context, planID string) (*plan.Plan, error)
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	UpdateStep(ctx context.Context, st *plan.Step) error
	ListPlansByStatus(ctx context.Context, userID string, status plan.Status) ([]*plan.Plan, error)
}

// ApprovalStore persists approval requests for gated steps.
type ApprovalStore interface {
	CreateApproval(ctx context.Context, a *store.Approval) error
	ApprovalFor(ctx context.Context, planID, stepID string) (*store.Approval, error)
}

// Executor drives plan execution. It never blocks waiting for a human:
// a step that needs approval pauses the plan and returns; the caller
// re-invokes ResumePlan once the decision lands.
type Executor struct {
	plans       PlanStore
	approvals   ApprovalStore
	tools       *tools.Registry
	logger      *observability.Logger
	approvalTTL time.Duration

	mu       sync.Mutex
	emitters map[string]*events.Emitter
}

// Option customizes an Executor.
type Option func(*Executor)

func WithLogger(l *observability.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithApprovalTTL sets how long approval requests stay open.
func WithApprovalTTL(d time.Duration) Option {
	return func(e *Executor) { e.approvalTTL = d }
}

func NewExecutor(plans PlanStore, approvals ApprovalStore, registry *tools.Registry, opts ...Option) *Executor {
	e := &Executor{
		plans:       plans,
		approvals:   approvals,
		tools:       registry,
		logger:      observability.NewLogger(),
		approvalTTL: 24 * time.Hour,
		emitters:    make(map[string]*events.Emitter),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GetPlanEventEmitter returns the event stream for a plan, creating it
// on first use. Subscribers attached before ExecutePlan see every event.
func (e *Executor) GetPlanEventEmitter(planID string) *events.Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()
	em, ok := e.emitters[planID]
	if !ok {
		em = events.NewEmitter(planID)
		e.emitters[planID] = em
	}
	return em
}

// ExecutePlan runs a planned plan to completion, pause or failure. The
// call is synchronous and returns once no further step can run.
func (e *Executor) ExecutePlan(ctx context.Context, planID string) error {
	p, err := e.plans.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	if p.Status != plan.StatusPlanned {
		return fmt.Errorf("plan %s is %s, only planned plans can be executed", planID, p.Status)
	}

	em := e.GetPlanEventEmitter(p.ID)

	if err := p.Validate(); err != nil {
		p.Status = plan.StatusFailed
		if uerr := e.plans.UpdatePlan(ctx, p); uerr != nil {
			return uerr
		}
		em.Emit(events.NewPlanFailedEvent(p.ID, p.CurrentStepIndex, err.Error()))
		e.logger.LogPlan(p.UserID, p.ID, string(plan.StatusFailed), err.Error())
		return err
	}

	p.Status = plan.StatusRunning
	if err := e.plans.UpdatePlan(ctx, p); err != nil {
		return err
	}
	em.Emit(events.NewPlanStartedEvent(p.ID, p.Goal, len(p.Steps)))
	e.logger.LogPlan(p.UserID, p.ID, string(plan.StatusRunning), "execution started")

	return e.run(ctx, p, em)
}

// ResumePlan continues a paused plan. The gating approval must have been
// approved; a still-pending approval leaves the plan paused. A failed
// retryable current step is reset to pending so resumption retries it.
func (e *Executor) ResumePlan(ctx context.Context, planID string) error {
	p, err := e.plans.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	if p.Status != plan.StatusPaused {
		return fmt.Errorf("plan %s is %s, only paused plans can be resumed", planID, p.Status)
	}

	em := e.GetPlanEventEmitter(p.ID)

	step := p.StepByIndex(p.CurrentStepIndex)
	if step != nil {
		ap, err := e.approvals.ApprovalFor(ctx, p.ID, step.ID)
		if err != nil {
			return err
		}
		if ap != nil {
			switch ap.Status {
			case store.ApprovalApproved:
				em.Emit(events.NewApprovalReceivedEvent(p.ID, ap.ID, true, ap.DecidedBy))
				e.logger.LogApproval(p.UserID, p.ID, ap.ID, string(ap.Status))
			case store.ApprovalRejected:
				return fmt.Errorf("approval %s was rejected, use ResumePlanAfterRejection", ap.ID)
			default:
				return fmt.Errorf("approval %s is still %s", ap.ID, ap.Status)
			}
		}
		if step.Status == plan.StepFailed {
			step.Status = plan.StepPending
			step.Error = ""
			if err := e.plans.UpdateStep(ctx, step); err != nil {
				return err
			}
		}
	}

	p.Status = plan.StatusRunning
	if err := e.plans.UpdatePlan(ctx, p); err != nil {
		return err
	}
	em.Emit(events.NewPlanResumedEvent(p.ID, p.CurrentStepIndex))
	e.logger.LogPlan(p.UserID, p.ID, string(plan.StatusRunning), "resumed")

	return e.run(ctx, p, em)
}

// ResumePlanAfterRejection continues a paused plan whose gated step was
// rejected: the step is skipped and execution moves on. Steps depending
// on it will skip in turn.
func (e *Executor) ResumePlanAfterRejection(ctx context.Context, planID string) error {
	p, err := e.plans.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	if p.Status != plan.StatusPaused {
		return fmt.Errorf("plan %s is %s, only paused plans can be resumed", planID, p.Status)
	}

	em := e.GetPlanEventEmitter(p.ID)

	step := p.StepByIndex(p.CurrentStepIndex)
	if step == nil {
		return fmt.Errorf("plan %s has no step at index %d", planID, p.CurrentStepIndex)
	}
	ap, err := e.approvals.ApprovalFor(ctx, p.ID, step.ID)
	if err != nil {
		return err
	}
	if ap != nil {
		em.Emit(events.NewApprovalReceivedEvent(p.ID, ap.ID, false, ap.DecidedBy))
		e.logger.LogApproval(p.UserID, p.ID, ap.ID, string(ap.Status))
	}

	step.Status = plan.StepSkipped
	step.Error = "approval rejected"
	if err := e.plans.UpdateStep(ctx, step); err != nil {
		return err
	}
	em.Emit(events.NewStepSkippedEvent(p.ID, step.Index, "approval rejected"))

	p.CurrentStepIndex = step.Index + 1
	p.Status = plan.StatusRunning
	if err := e.plans.UpdatePlan(ctx, p); err != nil {
		return err
	}
	em.Emit(events.NewPlanResumedEvent(p.ID, p.CurrentStepIndex))

	return e.run(ctx, p, em)
}

// CancelPlan marks a plan cancelled. Execution notices at the next step
// boundary; steps already running finish. Terminal plans cannot be
// cancelled.
func (e *Executor) CancelPlan(ctx context.Context, planID, cancelledBy string) error {
	p, err := e.plans.GetPlan(ctx, planID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("plan %s not found", planID)
	}
	if p.Status.Terminal() {
		return fmt.Errorf("plan %s is already %s", planID, p.Status)
	}

	p.Status = plan.StatusCancelled
	if err := e.plans.UpdatePlan(ctx, p); err != nil {
		return err
	}
	e.GetPlanEventEmitter(p.ID).Emit(events.NewPlanCancelledEvent(p.ID, cancelledBy))
	e.logger.LogPlan(p.UserID, p.ID, string(plan.StatusCancelled), "cancelled by "+cancelledBy)
	return nil
}

// GetPendingPlans returns plans paused awaiting approval.
func (e *Executor) GetPendingPlans(ctx context.Context, userID string) ([]*plan.Plan, error) {
	return e.plans.ListPlansByStatus(ctx, userID, plan.StatusPaused)
}

// GetInterruptedPlans returns plans stuck in running state, typically
// after a crash mid-execution.
func (e *Executor) GetInterruptedPlans(ctx context.Context, userID string) ([]*plan.Plan, error) {
	return e.plans.ListPlansByStatus(ctx, userID, plan.StatusRunning)
}

// run executes steps from CurrentStepIndex until the plan completes,
// pauses for approval or fails.
func (e *Executor) run(ctx context.Context, p *plan.Plan, em *events.Emitter) error {
	started := time.Now()

	for i := p.CurrentStepIndex; i < len(p.Steps); i++ {
		// Cancellation is cooperative: the stored status is reloaded at
		// every step boundary.
		fresh, err := e.plans.GetPlan(ctx, p.ID)
		if err != nil {
			return err
		}
		if fresh != nil && fresh.Status == plan.StatusCancelled {
			return nil
		}

		step := p.Steps[i]
		if step.Status.Terminal() {
			p.CurrentStepIndex = i + 1
			continue
		}

		// A step whose direct dependency did not complete is skipped.
		// The check is not transitive: only direct dependencies count.
		if reason := unmetDependency(p, step); reason != "" {
			step.Status = plan.StepSkipped
			step.Error = reason
			if err := e.plans.UpdateStep(ctx, step); err != nil {
				return err
			}
			em.Emit(events.NewStepSkippedEvent(p.ID, step.Index, reason))
			e.logger.LogStep(p.UserID, p.ID, step.Index, step.ToolName, string(plan.StepSkipped))
			p.CurrentStepIndex = i + 1
			if err := e.plans.UpdatePlan(ctx, p); err != nil {
				return err
			}
			continue
		}

		tool := e.tools.Get(step.ToolName)
		if tool == nil {
			return e.failPlan(ctx, p, em, step, fmt.Sprintf("unknown tool %q", step.ToolName))
		}

		// Approval gate: pause and return rather than block. The plan is
		// re-entered via ResumePlan once a decision is recorded.
		if step.RequiresApproval || tool.RequiresApproval() {
			gated, err := e.gateOnApproval(ctx, p, em, step, tool)
			if err != nil {
				return err
			}
			if gated {
				return nil
			}
		}

		// Substitute {{step.N.output}} references. A broken reference
		// fails the step without invoking the tool.
		res := plan.ResolveStepOutputs(step, p)
		if !res.Success {
			msgs := make([]string, 0, len(res.Errors))
			for _, re := range res.Errors {
				msgs = append(msgs, re.Message)
			}
			reason := "output resolution failed: " + strings.Join(msgs, "; ")
			step.Status = plan.StepFailed
			step.Error = reason
			if err := e.plans.UpdateStep(ctx, step); err != nil {
				return err
			}
			em.Emit(events.NewStepFailedEvent(p.ID, step.Index, step.ToolName, step.Description, reason, false, 0))
			e.logger.LogStep(p.UserID, p.ID, step.Index, step.ToolName, string(plan.StepFailed))
			p.CurrentStepIndex = i + 1
			if err := e.plans.UpdatePlan(ctx, p); err != nil {
				return err
			}
			continue
		}

		step.Status = plan.StepRunning
		if err := e.plans.UpdateStep(ctx, step); err != nil {
			return err
		}
		em.Emit(events.NewStepStartingEvent(p.ID, step.Index, step.ToolName, step.Description))
		e.logger.LogStep(p.UserID, p.ID, step.Index, step.ToolName, string(plan.StepRunning))

		stepStart := time.Now()
		out, err := tool.Execute(tools.WithUserID(ctx, p.UserID), res.ResolvedParams)
		elapsed := time.Since(stepStart).Milliseconds()

		if err != nil {
			retryable := tools.IsRetryable(err)
			step.Status = plan.StepFailed
			step.Error = err.Error()
			if uerr := e.plans.UpdateStep(ctx, step); uerr != nil {
				return uerr
			}
			em.Emit(events.NewStepFailedEvent(p.ID, step.Index, step.ToolName, step.Description, err.Error(), retryable, elapsed))
			e.logger.LogStep(p.UserID, p.ID, step.Index, step.ToolName, string(plan.StepFailed))

			if !retryable {
				return e.failPlan(ctx, p, em, step, err.Error())
			}
			// Retryable failures do not sink the plan: dependents skip,
			// independent steps still run.
			p.CurrentStepIndex = i + 1
			if uerr := e.plans.UpdatePlan(ctx, p); uerr != nil {
				return uerr
			}
			continue
		}

		step.Status = plan.StepCompleted
		step.Result = out
		step.Error = ""
		if err := e.plans.UpdateStep(ctx, step); err != nil {
			return err
		}
		em.Emit(events.NewStepCompletedEvent(p.ID, step.Index, step.ToolName, elapsed))
		e.logger.LogStep(p.UserID, p.ID, step.Index, step.ToolName, string(plan.StepCompleted))

		p.CurrentStepIndex = i + 1
		if err := e.plans.UpdatePlan(ctx, p); err != nil {
			return err
		}
	}

	succeeded := 0
	for _, st := range p.Steps {
		if st.Status == plan.StepCompleted {
			succeeded++
		}
	}
	p.Status = plan.StatusCompleted
	if err := e.plans.UpdatePlan(ctx, p); err != nil {
		return err
	}
	em.Emit(events.NewPlanCompletedEvent(p.ID, succeeded, len(p.Steps), time.Since(started).Milliseconds()))
	e.logger.LogPlan(p.UserID, p.ID, string(plan.StatusCompleted),
		fmt.Sprintf("%d/%d steps succeeded", succeeded, len(p.Steps)))
	return nil
}

// gateOnApproval checks the approval state for a gated step. Returns
// true when the plan paused and execution must stop.
func (e *Executor) gateOnApproval(ctx context.Context, p *plan.Plan, em *events.Emitter, step *plan.Step, tool tools.Tool) (bool, error) {
	ap, err := e.approvals.ApprovalFor(ctx, p.ID, step.ID)
	if err != nil {
		return false, err
	}
	if ap != nil && ap.Status == store.ApprovalApproved {
		return false, nil
	}

	if ap == nil || ap.Status == store.ApprovalExpired || ap.Status == store.ApprovalRejected {
		ap = &store.Approval{
			ID:        uuid.NewString(),
			PlanID:    p.ID,
			StepID:    step.ID,
			UserID:    p.UserID,
			Status:    store.ApprovalPending,
			Reason:    fmt.Sprintf("%s is %s risk", step.ToolName, tool.RiskLevel()),
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(e.approvalTTL),
		}
		if err := e.approvals.CreateApproval(ctx, ap); err != nil {
			return false, err
		}
		em.Emit(events.NewApprovalRequestedEvent(p.ID, step.Index, ap.ID, step.ToolName))
		e.logger.LogApproval(p.UserID, p.ID, ap.ID, string(store.ApprovalPending))
	}

	p.CurrentStepIndex = step.Index
	p.Status = plan.StatusPaused
	if err := e.plans.UpdatePlan(ctx, p); err != nil {
		return false, err
	}
	em.Emit(events.NewPlanPausedEvent(p.ID, step.Index, ap.ID))
	e.logger.LogPlan(p.UserID, p.ID, string(plan.StatusPaused), "awaiting approval "+ap.ID)
	return true, nil
}

func (e *Executor) failPlan(ctx context.Context, p *plan.Plan, em *events.Emitter, step *plan.Step, reason string) error {
	p.Status = plan.StatusFailed
	if err := e.plans.UpdatePlan(ctx, p); err != nil {
		return err
	}
	em.Emit(events.NewPlanFailedEvent(p.ID, step.Index, reason))
	e.logger.LogPlan(p.UserID, p.ID, string(plan.StatusFailed), reason)
	return nil
}

// unmetDependency returns a skip reason when any direct dependency of
// the step is not completed, or "" when all are met.
func unmetDependency(p *plan.Plan, step *plan.Step) string {
	for _, dep := range step.DependsOnIndices {
		d := p.StepByIndex(dep)
		if d == nil {
			return fmt.Sprintf("dependency step %d does not exist", dep)
		}
		if d.Status != plan.StepCompleted {
			return fmt.Sprintf("dependency step %d is %s", dep, d.Status)
		}
	}
	return ""
}
