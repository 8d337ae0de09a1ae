package tools

import (
	"context"
	"errors"
	"fmt"
)

// RiskLevel grades how much damage a tool can do if misdirected.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Tool defines the interface for every action the executor can invoke.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON Schema for the tool's inputs
	RiskLevel() RiskLevel
	RequiresApproval() bool
	RequiredIntegrations() []string
	Execute(ctx context.Context, params map[string]any) (any, error)
}

// Registry manages the set of available tools.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

// List returns tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Error wraps a tool failure with its retryability classification: a
// transient store or network fault is worth re-invoking, bad arguments
// are not.
type Error struct {
	Tool      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a tool failure.
func NewError(tool string, retryable bool, err error) *Error {
	return &Error{Tool: tool, Retryable: retryable, Err: err}
}

// IsRetryable reports whether a tool failure is worth retrying. Untagged
// errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Retryable
	}
	return false
}

type ctxKey int

const userIDKey ctxKey = iota

// WithUserID attaches the acting user to the context for tools.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFrom extracts the acting user, or "" when absent.
func UserIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// stringParam reads a required string parameter.
func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, nil
}

// optionalString reads an optional string parameter.
func optionalString(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}
