package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/donna-ai/donna/internal/datetime"
	"github.com/donna-ai/donna/internal/store"
)

type TaskStore interface {
	CreateTask(ctx context.Context, t *store.Task) error
	CompleteTask(ctx context.Context, userID, taskID string) error
}

// CreateTaskTool adds a task to the user's list.
type CreateTaskTool struct {
	Store TaskStore
}

func NewCreateTaskTool(s TaskStore) *CreateTaskTool { return &CreateTaskTool{Store: s} }

func (t *CreateTaskTool) Name() string                   { return "create_task" }
func (t *CreateTaskTool) Description() string            { return "Create a new task on the user's task list." }
func (t *CreateTaskTool) RiskLevel() RiskLevel           { return RiskLow }
func (t *CreateTaskTool) RequiresApproval() bool         { return false }
func (t *CreateTaskTool) RequiredIntegrations() []string { return nil }

func (t *CreateTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "description": "Short task title"},
			"description": map[string]any{"type": "string"},
			"priority":    map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
			"due":         map[string]any{"type": "string", "description": "Due date, natural language accepted"},
		},
		"required": []string{"title"},
	}
}

func (t *CreateTaskTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	title, err := stringParam(params, "title")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}

	task := &store.Task{
		ID:          uuid.NewString(),
		UserID:      UserIDFrom(ctx),
		Title:       title,
		Description: optionalString(params, "description"),
		Status:      "open",
		Priority:    optionalString(params, "priority"),
	}
	if due := optionalString(params, "due"); due != "" {
		when, perr := datetime.ParseWhen(due)
		if perr != nil {
			return nil, NewError(t.Name(), false, fmt.Errorf("unparseable due date %q", due))
		}
		task.DueAt = &when
	}

	if err := t.Store.CreateTask(ctx, task); err != nil {
		return nil, NewError(t.Name(), true, err)
	}
	return map[string]any{"task_id": task.ID, "title": task.Title, "status": task.Status}, nil
}

// CompleteTaskTool marks an existing task done.
type CompleteTaskTool struct {
	Store TaskStore
}

func NewCompleteTaskTool(s TaskStore) *CompleteTaskTool { return &CompleteTaskTool{Store: s} }

func (t *CompleteTaskTool) Name() string                   { return "complete_task" }
func (t *CompleteTaskTool) Description() string            { return "Mark a task as done." }
func (t *CompleteTaskTool) RiskLevel() RiskLevel           { return RiskLow }
func (t *CompleteTaskTool) RequiresApproval() bool         { return false }
func (t *CompleteTaskTool) RequiredIntegrations() []string { return nil }

func (t *CompleteTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{"type": "string", "description": "ID of the task to complete"},
		},
		"required": []string{"task_id"},
	}
}

func (t *CompleteTaskTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	taskID, err := stringParam(params, "task_id")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	if err := t.Store.CompleteTask(ctx, UserIDFrom(ctx), taskID); err != nil {
		return nil, NewError(t.Name(), true, err)
	}
	return map[string]any{"task_id": taskID, "status": "done", "completed_at": time.Now().Format(time.RFC3339)}, nil
}
