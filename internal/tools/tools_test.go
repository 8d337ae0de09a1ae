package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/donna-ai/donna/internal/store"
)

type fakeTaskStore struct {
	created []*store.Task
	failErr error
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, t *store.Task) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.created = append(f.created, t)
	return nil
}

func (f *fakeTaskStore) CompleteTask(ctx context.Context, userID, taskID string) error {
	return f.failErr
}

func TestRegistry_ListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(NewCreateTaskTool(&fakeTaskStore{}))
	r.Register(NewCompleteTaskTool(&fakeTaskStore{}))
	r.Register(NewSendEmailTool(nil))

	names := []string{}
	for _, tool := range r.List() {
		names = append(names, tool.Name())
	}
	want := []string{"create_task", "complete_task", "send_email"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("order = %v, want %v", names, want)
		}
	}

	if r.Get("create_task") == nil {
		t.Error("Get should find a registered tool")
	}
	if r.Get("nope") != nil {
		t.Error("Get should return nil for unknown tools")
	}
}

func TestCreateTask_ParsesNaturalDueDate(t *testing.T) {
	fs := &fakeTaskStore{}
	tool := NewCreateTaskTool(fs)
	ctx := WithUserID(context.Background(), "u1")

	out, err := tool.Execute(ctx, map[string]any{
		"title": "file expense report",
		"due":   "2026-09-01",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(fs.created) != 1 {
		t.Fatalf("created = %d tasks", len(fs.created))
	}
	task := fs.created[0]
	if task.UserID != "u1" {
		t.Errorf("userID = %q", task.UserID)
	}
	if task.DueAt == nil || !task.DueAt.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dueAt = %v", task.DueAt)
	}
	result := out.(map[string]any)
	if result["task_id"] != task.ID {
		t.Errorf("result task_id = %v", result["task_id"])
	}
}

func TestCreateTask_MissingTitleIsNotRetryable(t *testing.T) {
	tool := NewCreateTaskTool(&fakeTaskStore{})
	_, err := tool.Execute(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRetryable(err) {
		t.Error("bad arguments must not be retryable")
	}
}

func TestCreateTask_StoreFailureIsRetryable(t *testing.T) {
	tool := NewCreateTaskTool(&fakeTaskStore{failErr: errors.New("db locked")})
	_, err := tool.Execute(context.Background(), map[string]any{"title": "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRetryable(err) {
		t.Error("store failure should be retryable")
	}
}

func TestIsRetryable_UntaggedErrorIsNot(t *testing.T) {
	if IsRetryable(errors.New("plain")) {
		t.Error("untagged errors default to non-retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}

func TestSendEmail_RequiresApproval(t *testing.T) {
	tool := NewSendEmailTool(nil)
	if !tool.RequiresApproval() {
		t.Error("send_email must gate on approval")
	}
	if tool.RiskLevel() != RiskHigh {
		t.Errorf("risk = %s", tool.RiskLevel())
	}
}
