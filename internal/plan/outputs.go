package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// refPattern matches {{step.N.output}} and {{step.N.output.dot.path}}
// tokens; path segments may be field names or numeric array indices.
var refPattern = regexp.MustCompile(`\{\{step\.(\d+)\.output((?:\.[A-Za-z0-9_\-]+)*)\}\}`)

// RefErrorType classifies output-reference failures.
type RefErrorType string

const (
	RefStepNotFound     RefErrorType = "step_not_found"
	RefStepNotCompleted RefErrorType = "step_not_completed"
	RefPathNotFound     RefErrorType = "path_not_found"
	RefInvalidReference RefErrorType = "invalid_reference"
)

// RefError describes one broken output reference.
type RefError struct {
	Type      RefErrorType `json:"type"`
	StepIndex int          `json:"step_index"`
	Path      string       `json:"path,omitempty"`
	Message   string       `json:"message"`
}

// ResolvedRef records one successfully substituted reference.
type ResolvedRef struct {
	StepIndex int    `json:"step_index"`
	Path      string `json:"path,omitempty"`
	Token     string `json:"token"`
}

// OutputResolution is the result of resolving a step's parameters.
// Success is true iff Errors is empty; errors accumulate rather than
// failing fast so callers can report every broken reference at once.
type OutputResolution struct {
	Success            bool           `json:"success"`
	ResolvedParams     map[string]any `json:"resolved_params"`
	ResolvedReferences []ResolvedRef  `json:"resolved_references,omitempty"`
	Errors             []RefError     `json:"errors,omitempty"`
}

// OutputReference builds a well-formed reference token for a step index
// and optional dot path.
func OutputReference(index int, path string) string {
	if path == "" {
		return fmt.Sprintf("{{step.%d.output}}", index)
	}
	return fmt.Sprintf("{{step.%d.output.%s}}", index, path)
}

// HasOutputReferences reports whether any parameter of the step embeds a
// reference token.
func HasOutputReferences(step *Step) bool {
	found := false
	walkValues(step.Parameters, func(s string) {
		if refPattern.MatchString(s) {
			found = true
		}
	})
	return found
}

// ReferencedStepIndices returns the sorted, deduplicated indices the
// step's parameters refer to.
func ReferencedStepIndices(step *Step) []int {
	seen := map[int]bool{}
	walkValues(step.Parameters, func(s string) {
		for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			seen[idx] = true
		}
	})
	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// ValidateOutputReferences is the plan-build-time check: a step may only
// reference strictly earlier steps, regardless of what DependsOnIndices
// would allow structurally. Forward and self references are flagged as
// invalid_reference.
func ValidateOutputReferences(step *Step, p *Plan) []RefError {
	var errs []RefError
	walkValues(step.Parameters, func(s string) {
		for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if idx >= step.Index {
				errs = append(errs, RefError{
					Type:      RefInvalidReference,
					StepIndex: idx,
					Message:   fmt.Sprintf("step %d may not reference step %d: references must point to earlier steps", step.Index, idx),
				})
			}
		}
	})
	return errs
}

// ResolveStepOutputs substitutes every reference in the step's parameters
// with the referenced step's stored result. When a parameter value is
// exactly one reference token the referenced output replaces it wholesale,
// preserving its original type; otherwise references are interpolated
// into the surrounding string.
func ResolveStepOutputs(step *Step, p *Plan) OutputResolution {
	r := &refResolver{plan: p}
	params := make(map[string]any, len(step.Parameters))
	for k, v := range step.Parameters {
		params[k] = r.resolveValue(v)
	}
	return OutputResolution{
		Success:            len(r.errs) == 0,
		ResolvedParams:     params,
		ResolvedReferences: r.resolved,
		Errors:             r.errs,
	}
}

type refResolver struct {
	plan     *Plan
	resolved []ResolvedRef
	errs     []RefError
}

func (r *refResolver) resolveValue(v any) any {
	switch t := v.(type) {
	case string:
		return r.resolveString(t)
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, v2 := range t {
			m[k] = r.resolveValue(v2)
		}
		return m
	case []any:
		a := make([]any, len(t))
		for i := range t {
			a[i] = r.resolveValue(t[i])
		}
		return a
	default:
		return v
	}
}

func (r *refResolver) resolveString(s string) any {
	// A value that is exactly one token keeps the referenced output's type.
	if m := refPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		out, ok := r.lookup(m)
		if !ok {
			return s
		}
		return out
	}
	return refPattern.ReplaceAllStringFunc(s, func(tok string) string {
		m := refPattern.FindStringSubmatch(tok)
		out, ok := r.lookup(m)
		if !ok {
			return tok
		}
		return stringify(out)
	})
}

// lookup resolves one matched token, recording either the substitution or
// the error. Returns ok=false when the token must be left in place.
func (r *refResolver) lookup(m []string) (any, bool) {
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}
	path := strings.TrimPrefix(m[2], ".")

	src := r.plan.StepByIndex(idx)
	if src == nil {
		r.errs = append(r.errs, RefError{
			Type:      RefStepNotFound,
			StepIndex: idx,
			Path:      path,
			Message:   fmt.Sprintf("no step with index %d in plan", idx),
		})
		return nil, false
	}
	if src.Status != StepCompleted {
		r.errs = append(r.errs, RefError{
			Type:      RefStepNotCompleted,
			StepIndex: idx,
			Path:      path,
			Message:   fmt.Sprintf("step %d has status %q, need completed", idx, src.Status),
		})
		return nil, false
	}

	out := src.Result
	if path != "" {
		out, err = traverse(out, strings.Split(path, "."))
		if err != nil {
			r.errs = append(r.errs, RefError{
				Type:      RefPathNotFound,
				StepIndex: idx,
				Path:      path,
				Message:   fmt.Sprintf("step %d output: %v", idx, err),
			})
			return nil, false
		}
	}

	r.resolved = append(r.resolved, ResolvedRef{StepIndex: idx, Path: path, Token: m[0]})
	return out, true
}

// traverse walks a dot path through nested maps and arrays. Numeric
// segments index into arrays.
func traverse(v any, segments []string) (any, error) {
	for _, seg := range segments {
		switch t := v.(type) {
		case map[string]any:
			next, ok := t[seg]
			if !ok {
				return nil, fmt.Errorf("missing field %q", seg)
			}
			v = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("segment %q is not an array index", seg)
			}
			if i < 0 || i >= len(t) {
				return nil, fmt.Errorf("index %d out of range (len %d)", i, len(t))
			}
			v = t[i]
		default:
			return nil, fmt.Errorf("cannot descend into %T at %q", v, seg)
		}
	}
	return v, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

// walkValues visits every string inside a nested parameter structure.
func walkValues(v any, fn func(string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case map[string]any:
		for _, v2 := range t {
			walkValues(v2, fn)
		}
	case []any:
		for _, v2 := range t {
			walkValues(v2, fn)
		}
	}
}
