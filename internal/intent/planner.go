package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/donna-ai/donna/internal/observability"
	"github.com/donna-ai/donna/internal/plan"
	"github.com/donna-ai/donna/internal/resolve"
	"github.com/donna-ai/donna/internal/tools"
)

const plannerPrompt = `You are the planner for a personal assistant. Turn the
analyzed goal into an ordered sequence of tool calls. Steps may only depend on
earlier steps. To feed one step's output into another, write
{{step.N.output}} or {{step.N.output.field}} in a parameter value, where N is
the index of an earlier step. Use the resolved entities verbatim. Always
answer by calling propose_plan.`

// Planner builds executable plans from analyzed goals.
type Planner struct {
	Model    llms.Model
	Registry *tools.Registry
	Logger   *observability.Logger
}

func NewPlanner(model llms.Model, registry *tools.Registry, logger *observability.Logger) *Planner {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Planner{Model: model, Registry: registry, Logger: logger}
}

// proposedStep is the wire shape the model fills in.
type proposedStep struct {
	Index       int            `json:"index"`
	Tool        string         `json:"tool"`
	Parameters  map[string]any `json:"parameters"`
	DependsOn   []int          `json:"depends_on,omitempty"`
	Description string         `json:"description,omitempty"`
}

type proposedPlan struct {
	Steps       []proposedStep `json:"steps"`
	Assumptions []string       `json:"assumptions,omitempty"`
	Confidence  float64        `json:"confidence"`
}

func (p *Planner) plannerTools() []llms.Tool {
	toolNames := make([]string, 0, len(p.Registry.List()))
	for _, t := range p.Registry.List() {
		toolNames = append(toolNames, t.Name())
	}
	return []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "propose_plan",
				Description: "Submit the ordered plan of tool calls for the goal.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"steps": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"index":       map[string]any{"type": "integer"},
									"tool":        map[string]any{"type": "string", "enum": toolNames},
									"parameters":  map[string]any{"type": "object"},
									"depends_on":  map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
									"description": map[string]any{"type": "string"},
								},
								"required": []string{"index", "tool", "parameters"},
							},
						},
						"assumptions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"confidence":  map[string]any{"type": "number"},
					},
					"required": []string{"steps", "confidence"},
				},
			},
		},
	}
}

// BuildPlan asks the model for a plan and converts it into a validated
// plan.Plan. Structural problems (bad indices, forward dependencies,
// forward output references, unknown tools) are returned as errors, never
// silently repaired.
func (p *Planner) BuildPlan(ctx context.Context, userID string, analysis *Analysis, resolution *resolve.Result) (*plan.Plan, error) {
	prompt := p.buildPrompt(analysis, resolution)

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(plannerPrompt + "\n\n" + p.describeTools())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	resp, err := p.Model.GenerateContent(ctx, messages, llms.WithTools(p.plannerTools()))
	if err != nil {
		return nil, fmt.Errorf("plan building: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("plan building: empty response")
	}
	choice := resp.Choices[0]
	p.Logger.LogLLM(userID, "", prompt, choice.Content, choice.ToolCalls)

	var proposal *proposedPlan
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall.Name != "propose_plan" {
			continue
		}
		var pp proposedPlan
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &pp); err != nil {
			return nil, fmt.Errorf("plan building: parse propose_plan: %w", err)
		}
		proposal = &pp
		break
	}
	if proposal == nil {
		return nil, fmt.Errorf("plan building: model did not call propose_plan")
	}

	return p.assemble(userID, analysis, proposal)
}

// assemble converts a proposal into a persisted-shape plan and runs every
// structural check before it is allowed anywhere near the executor.
func (p *Planner) assemble(userID string, analysis *Analysis, proposal *proposedPlan) (*plan.Plan, error) {
	now := time.Now()
	built := &plan.Plan{
		ID:          uuid.NewString(),
		UserID:      userID,
		Goal:        analysis.Goal,
		Status:      plan.StatusPlanned,
		Assumptions: append(analysis.Assumptions, proposal.Assumptions...),
		Confidence:  proposal.Confidence,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, ps := range proposal.Steps {
		tool := p.Registry.Get(ps.Tool)
		if tool == nil {
			return nil, fmt.Errorf("plan building: unknown tool %q at step %d", ps.Tool, ps.Index)
		}
		step := &plan.Step{
			ID:               uuid.NewString(),
			PlanID:           built.ID,
			Index:            ps.Index,
			ToolName:         ps.Tool,
			Parameters:       ps.Parameters,
			DependsOnIndices: ps.DependsOn,
			Description:      ps.Description,
			Status:           plan.StepPending,
			RequiresApproval: tool.RequiresApproval(),
			CreatedAt:        now,
		}
		if step.RequiresApproval {
			built.RequiresApproval = true
		}
		built.Steps = append(built.Steps, step)
	}

	if err := built.Validate(); err != nil {
		return nil, fmt.Errorf("plan building: %w", err)
	}
	for _, step := range built.Steps {
		if errs := plan.ValidateOutputReferences(step, built); len(errs) > 0 {
			return nil, fmt.Errorf("plan building: step %d: %s", step.Index, errs[0].Message)
		}
		for _, dep := range step.DependsOnIndices {
			step.DependsOn = append(step.DependsOn, built.Steps[dep].ID)
		}
		// An output reference is an implicit dependency.
		for _, ref := range plan.ReferencedStepIndices(step) {
			if !containsInt(step.DependsOnIndices, ref) {
				step.DependsOnIndices = append(step.DependsOnIndices, ref)
				step.DependsOn = append(step.DependsOn, built.Steps[ref].ID)
			}
		}
	}
	return built, nil
}

func (p *Planner) describeTools() string {
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, t := range p.Registry.List() {
		fmt.Fprintf(&b, "- %s: %s (risk %s)\n", t.Name(), t.Description(), t.RiskLevel())
	}
	return b.String()
}

func (p *Planner) buildPrompt(analysis *Analysis, resolution *resolve.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", analysis.Goal)

	if resolution != nil && len(resolution.Resolved) > 0 {
		b.WriteString("\nResolved entities:\n")
		for _, re := range resolution.Resolved {
			if re.Match == nil {
				continue
			}
			fmt.Fprintf(&b, "- %s %q is record %s\n", re.Extracted.Type, re.Extracted.Text, re.Match.ID)
		}
	}
	if len(analysis.Assumptions) > 0 {
		b.WriteString("\nAssumptions:\n")
		for _, a := range analysis.Assumptions {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	return b.String()
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
