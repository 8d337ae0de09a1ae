package plan

import (
	"reflect"
	"testing"
)

func planWithSteps(steps ...*Step) *Plan {
	p := &Plan{ID: "p1", UserID: "u1", Goal: "test", Status: StatusRunning, Steps: steps}
	for i, s := range steps {
		s.Index = i
		s.PlanID = p.ID
	}
	return p
}

func TestResolveStepOutputs_WholeTokenPreservesType(t *testing.T) {
	s0 := &Step{Status: StepCompleted, Result: map[string]any{"count": float64(3), "items": []any{"a", "b"}}}
	s1 := &Step{Status: StepPending, Parameters: map[string]any{
		"payload": "{{step.0.output}}",
		"count":   "{{step.0.output.count}}",
		"first":   "{{step.0.output.items.0}}",
	}}
	p := planWithSteps(s0, s1)

	res := ResolveStepOutputs(s1, p)
	if !res.Success {
		t.Fatalf("expected success, errors: %+v", res.Errors)
	}
	if _, ok := res.ResolvedParams["payload"].(map[string]any); !ok {
		t.Errorf("whole-token reference should keep object type, got %T", res.ResolvedParams["payload"])
	}
	if got := res.ResolvedParams["count"]; got != float64(3) {
		t.Errorf("count = %v (%T), want 3", got, got)
	}
	if got := res.ResolvedParams["first"]; got != "a" {
		t.Errorf("first = %v, want a", got)
	}
}

func TestResolveStepOutputs_Interpolation(t *testing.T) {
	s0 := &Step{Status: StepCompleted, Result: map[string]any{"name": "Sarah Chen"}}
	s1 := &Step{Status: StepPending, Parameters: map[string]any{
		"body": "Meeting confirmed with {{step.0.output.name}}, see you there.",
	}}
	p := planWithSteps(s0, s1)

	res := ResolveStepOutputs(s1, p)
	if !res.Success {
		t.Fatalf("errors: %+v", res.Errors)
	}
	want := "Meeting confirmed with Sarah Chen, see you there."
	if res.ResolvedParams["body"] != want {
		t.Errorf("body = %q, want %q", res.ResolvedParams["body"], want)
	}
	if len(res.ResolvedReferences) != 1 || res.ResolvedReferences[0].StepIndex != 0 {
		t.Errorf("resolved refs = %+v", res.ResolvedReferences)
	}
}

func TestResolveStepOutputs_StepNotCompleted(t *testing.T) {
	s0 := &Step{Status: StepPending}
	s1 := &Step{Status: StepPending, Parameters: map[string]any{"v": "{{step.0.output}}"}}
	p := planWithSteps(s0, s1)

	res := ResolveStepOutputs(s1, p)
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 1 || res.Errors[0].Type != RefStepNotCompleted {
		t.Errorf("errors = %+v, want exactly one step_not_completed", res.Errors)
	}
}

func TestResolveStepOutputs_StepNotFound(t *testing.T) {
	s0 := &Step{Status: StepPending, Parameters: map[string]any{"v": "{{step.99.output}}"}}
	p := planWithSteps(s0)

	res := ResolveStepOutputs(s0, p)
	if res.Success || len(res.Errors) != 1 || res.Errors[0].Type != RefStepNotFound {
		t.Errorf("errors = %+v, want step_not_found", res.Errors)
	}
}

func TestResolveStepOutputs_PathNotFound(t *testing.T) {
	s0 := &Step{Status: StepCompleted, Result: map[string]any{"a": 1}}
	s1 := &Step{Status: StepPending, Parameters: map[string]any{"v": "{{step.0.output.b.c}}"}}
	p := planWithSteps(s0, s1)

	res := ResolveStepOutputs(s1, p)
	if res.Success || len(res.Errors) != 1 || res.Errors[0].Type != RefPathNotFound {
		t.Errorf("errors = %+v, want path_not_found", res.Errors)
	}
}

func TestResolveStepOutputs_AccumulatesErrors(t *testing.T) {
	s0 := &Step{Status: StepPending}
	s1 := &Step{Status: StepPending, Parameters: map[string]any{
		"a": "{{step.0.output}}",
		"b": "{{step.42.output}}",
	}}
	p := planWithSteps(s0, s1)

	res := ResolveStepOutputs(s1, p)
	if len(res.Errors) != 2 {
		t.Errorf("want both errors reported, got %+v", res.Errors)
	}
}

func TestValidateOutputReferences(t *testing.T) {
	s0 := &Step{}
	s1 := &Step{Parameters: map[string]any{
		"ok":      "{{step.0.output}}",
		"self":    "{{step.1.output}}",
		"forward": "{{step.2.output}}",
	}}
	s2 := &Step{}
	p := planWithSteps(s0, s1, s2)

	errs := ValidateOutputReferences(s1, p)
	if len(errs) != 2 {
		t.Fatalf("want 2 invalid references, got %+v", errs)
	}
	for _, e := range errs {
		if e.Type != RefInvalidReference {
			t.Errorf("type = %q, want invalid_reference", e.Type)
		}
	}
}

func TestOutputReference_RoundTrip(t *testing.T) {
	tok := OutputReference(1, "field")
	if tok != "{{step.1.output.field}}" {
		t.Fatalf("token = %q", tok)
	}
	s := &Step{Parameters: map[string]any{"v": tok}}
	if got := ReferencedStepIndices(s); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("indices = %v, want [1]", got)
	}
}

func TestReferencedStepIndices_SortedDeduplicated(t *testing.T) {
	s := &Step{Parameters: map[string]any{
		"a": "{{step.3.output}} and {{step.1.output}}",
		"b": map[string]any{"nested": "{{step.1.output.x}}"},
		"c": []any{"{{step.0.output}}"},
	}}
	got := ReferencedStepIndices(s)
	if !reflect.DeepEqual(got, []int{0, 1, 3}) {
		t.Errorf("indices = %v, want [0 1 3]", got)
	}
	if !HasOutputReferences(s) {
		t.Error("HasOutputReferences should be true")
	}
	if HasOutputReferences(&Step{Parameters: map[string]any{"v": "plain"}}) {
		t.Error("HasOutputReferences should be false for plain params")
	}
}

func TestPlanValidate(t *testing.T) {
	good := planWithSteps(&Step{}, &Step{DependsOnIndices: []int{0}})
	if err := good.Validate(); err != nil {
		t.Errorf("valid plan rejected: %v", err)
	}

	bad := planWithSteps(&Step{}, &Step{})
	bad.Steps[0].DependsOnIndices = []int{1}
	if err := bad.Validate(); err == nil {
		t.Error("forward dependency accepted")
	}
}
