package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/donna-ai/donna/internal/store"
)

type ContactStore interface {
	CreatePerson(ctx context.Context, p *store.Person) error
}

// AddContactTool records a new person in the user's directory.
type AddContactTool struct {
	Store ContactStore
}

func NewAddContactTool(s ContactStore) *AddContactTool { return &AddContactTool{Store: s} }

func (t *AddContactTool) Name() string { return "add_contact" }
func (t *AddContactTool) Description() string {
	return "Add a person to the user's contact directory."
}
func (t *AddContactTool) RiskLevel() RiskLevel           { return RiskLow }
func (t *AddContactTool) RequiresApproval() bool         { return false }
func (t *AddContactTool) RequiredIntegrations() []string { return nil }

func (t *AddContactTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string", "description": "Full name"},
			"email":   map[string]any{"type": "string"},
			"phone":   map[string]any{"type": "string"},
			"company": map[string]any{"type": "string"},
			"city":    map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}
}

func (t *AddContactTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	name, err := stringParam(params, "name")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	person := &store.Person{
		ID:        uuid.NewString(),
		UserID:    UserIDFrom(ctx),
		Name:      name,
		Email:     optionalString(params, "email"),
		Phone:     optionalString(params, "phone"),
		Company:   optionalString(params, "company"),
		City:      optionalString(params, "city"),
		CreatedAt: time.Now(),
	}
	if err := t.Store.CreatePerson(ctx, person); err != nil {
		return nil, NewError(t.Name(), true, err)
	}
	return map[string]any{"person_id": person.ID, "name": person.Name, "email": person.Email}, nil
}
