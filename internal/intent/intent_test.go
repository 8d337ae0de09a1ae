package intent

import (
	"context"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/donna-ai/donna/internal/plan"
	"github.com/donna-ai/donna/internal/store"
	"github.com/donna-ai/donna/internal/tools"
)

// fakeModel replies with a canned tool call.
type fakeModel struct {
	toolName string
	args     string
	content  string
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	choice := &llms.ContentChoice{Content: f.content}
	if f.toolName != "" {
		choice.ToolCalls = []llms.ToolCall{
			{
				ID:   "call_1",
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      f.toolName,
					Arguments: f.args,
				},
			},
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{choice}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.content, nil
}

func TestAnalyze_ParsesReportAnalysis(t *testing.T) {
	model := &fakeModel{
		toolName: "report_analysis",
		args: `{
			"goal": "schedule lunch with Sarah",
			"entities": [
				{"type": "person", "text": "Sarah", "needs_resolution": true},
				{"type": "dragon", "text": "Smaug", "needs_resolution": true},
				{"type": "place", "text": "that sushi spot", "needs_resolution": true}
			],
			"confidence": 0.85,
			"assumptions": ["lunch means around noon"]
		}`,
	}
	a := NewAnalyzer(model, nil)

	analysis, err := a.Analyze(context.Background(), "u1", "lunch with Sarah at that sushi spot")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Goal != "schedule lunch with Sarah" {
		t.Errorf("goal = %q", analysis.Goal)
	}
	if len(analysis.Entities) != 2 {
		t.Fatalf("entities = %d, unknown types must be dropped", len(analysis.Entities))
	}
	if analysis.Entities[0].Type != store.EntityPerson || analysis.Entities[1].Type != store.EntityPlace {
		t.Errorf("entities = %+v", analysis.Entities)
	}
	if analysis.Confidence != 0.85 || len(analysis.Assumptions) != 1 {
		t.Errorf("analysis = %+v", analysis)
	}
}

func TestAnalyze_NoToolCallIsError(t *testing.T) {
	a := NewAnalyzer(&fakeModel{content: "sure, I'll help"}, nil)
	if _, err := a.Analyze(context.Background(), "u1", "hi"); err == nil {
		t.Fatal("expected error when model skips report_analysis")
	}
}

type noopTool struct {
	name     string
	approval bool
}

func (n *noopTool) Name() string                   { return n.name }
func (n *noopTool) Description() string            { return n.name }
func (n *noopTool) Parameters() map[string]any     { return map[string]any{"type": "object"} }
func (n *noopTool) RiskLevel() tools.RiskLevel     { return tools.RiskLow }
func (n *noopTool) RequiresApproval() bool         { return n.approval }
func (n *noopTool) RequiredIntegrations() []string { return nil }
func (n *noopTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	return "ok", nil
}

func plannerWith(args string, toolSet ...tools.Tool) *Planner {
	reg := tools.NewRegistry()
	for _, tl := range toolSet {
		reg.Register(tl)
	}
	return NewPlanner(&fakeModel{toolName: "propose_plan", args: args}, reg, nil)
}

func TestBuildPlan_AssemblesValidPlan(t *testing.T) {
	p := plannerWith(`{
		"steps": [
			{"index": 0, "tool": "create_event", "parameters": {"title": "Lunch"}},
			{"index": 1, "tool": "send_email", "parameters": {"body": "see you at {{step.0.output.starts_at}}"}, "depends_on": [0]}
		],
		"confidence": 0.9,
		"assumptions": ["invitee confirmed"]
	}`, &noopTool{name: "create_event"}, &noopTool{name: "send_email", approval: true})

	analysis := &Analysis{Goal: "schedule lunch", Assumptions: []string{"noon"}}
	built, err := p.BuildPlan(context.Background(), "u1", analysis, nil)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}

	if built.Status != plan.StatusPlanned || built.UserID != "u1" {
		t.Errorf("plan = %+v", built)
	}
	if len(built.Steps) != 2 {
		t.Fatalf("steps = %d", len(built.Steps))
	}
	if !built.Steps[1].RequiresApproval || !built.RequiresApproval {
		t.Error("approval flag must propagate from the tool to step and plan")
	}
	if len(built.Steps[1].DependsOn) != 1 || built.Steps[1].DependsOn[0] != built.Steps[0].ID {
		t.Errorf("DependsOn = %v", built.Steps[1].DependsOn)
	}
	if len(built.Assumptions) != 2 {
		t.Errorf("assumptions = %v", built.Assumptions)
	}
	if err := built.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBuildPlan_OutputReferenceBecomesDependency(t *testing.T) {
	p := plannerWith(`{
		"steps": [
			{"index": 0, "tool": "create_event", "parameters": {"title": "Lunch"}},
			{"index": 1, "tool": "send_email", "parameters": {"body": "{{step.0.output}}"}}
		],
		"confidence": 0.9
	}`, &noopTool{name: "create_event"}, &noopTool{name: "send_email"})

	built, err := p.BuildPlan(context.Background(), "u1", &Analysis{Goal: "g"}, nil)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(built.Steps[1].DependsOnIndices) != 1 || built.Steps[1].DependsOnIndices[0] != 0 {
		t.Errorf("implicit dependency not added: %v", built.Steps[1].DependsOnIndices)
	}
}

func TestBuildPlan_RejectsForwardReference(t *testing.T) {
	p := plannerWith(`{
		"steps": [
			{"index": 0, "tool": "send_email", "parameters": {"body": "{{step.1.output}}"}},
			{"index": 1, "tool": "create_event", "parameters": {"title": "Lunch"}}
		],
		"confidence": 0.9
	}`, &noopTool{name: "create_event"}, &noopTool{name: "send_email"})

	_, err := p.BuildPlan(context.Background(), "u1", &Analysis{Goal: "g"}, nil)
	if err == nil || !strings.Contains(err.Error(), "earlier steps") {
		t.Fatalf("err = %v, want forward reference rejection", err)
	}
}

func TestBuildPlan_RejectsUnknownTool(t *testing.T) {
	p := plannerWith(`{
		"steps": [{"index": 0, "tool": "teleport", "parameters": {}}],
		"confidence": 0.9
	}`, &noopTool{name: "create_event"})

	_, err := p.BuildPlan(context.Background(), "u1", &Analysis{Goal: "g"}, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Fatalf("err = %v", err)
	}
}

func TestBuildPlan_RejectsBadIndices(t *testing.T) {
	p := plannerWith(`{
		"steps": [
			{"index": 0, "tool": "create_event", "parameters": {}},
			{"index": 1, "tool": "create_event", "parameters": {}, "depends_on": [1]}
		],
		"confidence": 0.9
	}`, &noopTool{name: "create_event"})

	_, err := p.BuildPlan(context.Background(), "u1", &Analysis{Goal: "g"}, nil)
	if err == nil || !strings.Contains(err.Error(), "malformed plan") {
		t.Fatalf("err = %v", err)
	}
}
