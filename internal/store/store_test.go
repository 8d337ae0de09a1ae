package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/donna-ai/donna/internal/plan"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDirectory_PeopleRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	people := []*Person{
		{ID: "p1", UserID: "u1", Name: "Sarah Chen", Email: "sarah.chen@acme.com", Company: "Acme"},
		{ID: "p2", UserID: "u1", Name: "Sarah Kim", Email: "skim@other.io"},
		{ID: "p3", UserID: "u2", Name: "Sarah Lee"},
	}
	for _, p := range people {
		if err := s.CreatePerson(ctx, p); err != nil {
			t.Fatalf("CreatePerson: %v", err)
		}
	}

	got, err := s.SearchPeople(ctx, "u1", "sarah", 10)
	if err != nil {
		t.Fatalf("SearchPeople: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d people, want 2 (other user's records must not leak)", len(got))
	}

	p, err := s.PersonByEmail(ctx, "u1", "SARAH.CHEN@ACME.COM")
	if err != nil {
		t.Fatalf("PersonByEmail: %v", err)
	}
	if p == nil || p.ID != "p1" {
		t.Errorf("PersonByEmail = %+v, want p1 (case insensitive)", p)
	}

	missing, err := s.PersonByEmail(ctx, "u1", "nobody@nowhere.com")
	if err != nil {
		t.Fatalf("PersonByEmail: %v", err)
	}
	if missing != nil {
		t.Errorf("unknown email should return nil, got %+v", missing)
	}
}

func TestDirectory_TaskLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{ID: "t1", UserID: "u1", Title: "File expense report", Status: "open", DueAt: &due}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	got, err := s.SearchTasks(ctx, "u1", "expense", 10)
	if err != nil {
		t.Fatalf("SearchTasks: %v", err)
	}
	if len(got) != 1 || got[0].DueAt == nil || !got[0].DueAt.Equal(due) {
		t.Fatalf("SearchTasks = %+v", got)
	}

	if err := s.CompleteTask(ctx, "u1", "t1"); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	got, _ = s.SearchTasks(ctx, "u1", "expense", 10)
	if got[0].Status != "done" {
		t.Errorf("status = %q, want done", got[0].Status)
	}

	if err := s.CompleteTask(ctx, "u1", "missing"); err == nil {
		t.Error("completing an unknown task should fail")
	}
}

func TestAddEmail_SanitizesBody(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	msg := &EmailMessage{
		ID: "m1", UserID: "u1", Subject: "Q3 numbers", Sender: "cfo@acme.com",
		Body: `<p>Revenue is <b>up</b>.</p><script>alert("x")</script>`,
	}
	if err := s.AddEmail(ctx, msg); err != nil {
		t.Fatalf("AddEmail: %v", err)
	}

	got, err := s.SearchEmails(ctx, "u1", "numbers", 10)
	if err != nil {
		t.Fatalf("SearchEmails: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d emails", len(got))
	}
	if strings.Contains(got[0].Body, "<") || strings.Contains(got[0].Body, "script") {
		t.Errorf("body not sanitized: %q", got[0].Body)
	}
}

func TestPlans_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := &plan.Plan{
		ID: "pl1", UserID: "u1", Goal: "schedule lunch with Sarah",
		Status: plan.StatusPlanned, Confidence: 0.9,
		Assumptions: []string{"Sarah means Sarah Chen"},
		Steps: []*plan.Step{
			{
				ID: "s0", PlanID: "pl1", Index: 0, ToolName: "create_event",
				Parameters: map[string]any{"title": "Lunch", "starts_at": "tomorrow noon"},
				Status:     plan.StepPending,
			},
			{
				ID: "s1", PlanID: "pl1", Index: 1, ToolName: "send_email",
				Parameters:       map[string]any{"to": "sarah.chen@acme.com", "body": "{{step.0.output.starts_at}}"},
				DependsOnIndices: []int{0},
				Status:           plan.StepPending,
				RequiresApproval: true,
			},
		},
	}
	if err := s.SavePlan(ctx, p); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	got, err := s.GetPlan(ctx, "pl1")
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if got == nil || got.Goal != p.Goal || got.Status != plan.StatusPlanned {
		t.Fatalf("GetPlan = %+v", got)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("steps = %d", len(got.Steps))
	}
	if got.Steps[1].Parameters["to"] != "sarah.chen@acme.com" {
		t.Errorf("step parameters lost: %+v", got.Steps[1].Parameters)
	}
	if len(got.Steps[1].DependsOn) != 1 || got.Steps[1].DependsOn[0] != "s0" {
		t.Errorf("dependency IDs not derived: %+v", got.Steps[1].DependsOn)
	}
	if !got.Steps[1].RequiresApproval {
		t.Error("requires_approval lost")
	}
	if got.Assumptions[0] != "Sarah means Sarah Chen" {
		t.Errorf("assumptions = %v", got.Assumptions)
	}

	// Step result survives an update.
	got.Steps[0].Status = plan.StepCompleted
	got.Steps[0].Result = map[string]any{"event_id": "e9"}
	if err := s.UpdateStep(ctx, got.Steps[0]); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	got.Status = plan.StatusPaused
	got.CurrentStepIndex = 1
	if err := s.UpdatePlan(ctx, got); err != nil {
		t.Fatalf("UpdatePlan: %v", err)
	}

	again, _ := s.GetPlan(ctx, "pl1")
	if again.Status != plan.StatusPaused || again.CurrentStepIndex != 1 {
		t.Errorf("plan update lost: %+v", again)
	}
	result, ok := again.Steps[0].Result.(map[string]any)
	if !ok || result["event_id"] != "e9" {
		t.Errorf("step result = %+v", again.Steps[0].Result)
	}

	missing, err := s.GetPlan(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("unknown plan should be (nil, nil), got (%+v, %v)", missing, err)
	}
}

func TestPlans_ListByStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, status := range []plan.Status{plan.StatusPaused, plan.StatusRunning, plan.StatusPaused} {
		p := &plan.Plan{
			ID: string(rune('a' + i)), UserID: "u1", Goal: "g", Status: status,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := s.SavePlan(ctx, p); err != nil {
			t.Fatalf("SavePlan: %v", err)
		}
	}

	paused, err := s.ListPlansByStatus(ctx, "u1", plan.StatusPaused)
	if err != nil {
		t.Fatalf("ListPlansByStatus: %v", err)
	}
	if len(paused) != 2 {
		t.Fatalf("paused = %d, want 2", len(paused))
	}
	if paused[0].ID != "a" {
		t.Errorf("expected oldest first, got %s", paused[0].ID)
	}
}

func TestApprovals_Lifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &Approval{
		ID: "ap1", PlanID: "pl1", StepID: "s1", UserID: "u1",
		Reason:    "send_email is high risk",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := s.CreateApproval(ctx, a); err != nil {
		t.Fatalf("CreateApproval: %v", err)
	}

	got, err := s.ApprovalFor(ctx, "pl1", "s1")
	if err != nil {
		t.Fatalf("ApprovalFor: %v", err)
	}
	if got == nil || got.Status != ApprovalPending {
		t.Fatalf("ApprovalFor = %+v", got)
	}

	ok, err := s.DecideApproval(ctx, "ap1", ApprovalApproved, "user")
	if err != nil || !ok {
		t.Fatalf("DecideApproval = (%v, %v)", ok, err)
	}

	// Second decision is a no-op.
	ok, err = s.DecideApproval(ctx, "ap1", ApprovalRejected, "user")
	if err != nil {
		t.Fatalf("DecideApproval: %v", err)
	}
	if ok {
		t.Error("decided approvals must not be re-decided")
	}

	got, _ = s.GetApproval(ctx, "ap1")
	if got.Status != ApprovalApproved || got.DecidedAt == nil || got.DecidedBy != "user" {
		t.Errorf("approval = %+v", got)
	}
}

func TestApprovals_ExpireStale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now()
	stale := &Approval{ID: "old", PlanID: "p", StepID: "s", UserID: "u1", ExpiresAt: now.Add(-time.Minute)}
	fresh := &Approval{ID: "new", PlanID: "p", StepID: "s2", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	for _, a := range []*Approval{stale, fresh} {
		if err := s.CreateApproval(ctx, a); err != nil {
			t.Fatalf("CreateApproval: %v", err)
		}
	}

	n, err := s.ExpireStaleApprovals(ctx, now)
	if err != nil {
		t.Fatalf("ExpireStaleApprovals: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d, want 1", n)
	}

	got, _ := s.GetApproval(ctx, "old")
	if got.Status != ApprovalExpired {
		t.Errorf("stale status = %s", got.Status)
	}
	got, _ = s.GetApproval(ctx, "new")
	if got.Status != ApprovalPending {
		t.Errorf("fresh status = %s", got.Status)
	}
}
