package tools

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/donna-ai/donna/internal/store"
)

type NoteStore interface {
	CreateNote(ctx context.Context, n *store.Note) error
	SearchNotes(ctx context.Context, userID, query string, limit int) ([]store.Note, error)
}

// CreateNoteTool captures a freeform note.
type CreateNoteTool struct {
	Store NoteStore
}

func NewCreateNoteTool(s NoteStore) *CreateNoteTool { return &CreateNoteTool{Store: s} }

func (t *CreateNoteTool) Name() string                   { return "create_note" }
func (t *CreateNoteTool) Description() string            { return "Save a note for the user." }
func (t *CreateNoteTool) RiskLevel() RiskLevel           { return RiskLow }
func (t *CreateNoteTool) RequiresApproval() bool         { return false }
func (t *CreateNoteTool) RequiredIntegrations() []string { return nil }

func (t *CreateNoteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
			"body":  map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}
}

func (t *CreateNoteTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	title, err := stringParam(params, "title")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	note := &store.Note{
		ID:        uuid.NewString(),
		UserID:    UserIDFrom(ctx),
		Title:     title,
		Body:      optionalString(params, "body"),
		CreatedAt: time.Now(),
	}
	if err := t.Store.CreateNote(ctx, note); err != nil {
		return nil, NewError(t.Name(), true, err)
	}
	return map[string]any{"note_id": note.ID, "title": note.Title}, nil
}

// SearchNotesTool looks up notes by text.
type SearchNotesTool struct {
	Store NoteStore
}

func NewSearchNotesTool(s NoteStore) *SearchNotesTool { return &SearchNotesTool{Store: s} }

func (t *SearchNotesTool) Name() string                   { return "search_notes" }
func (t *SearchNotesTool) Description() string            { return "Search the user's notes by keyword." }
func (t *SearchNotesTool) RiskLevel() RiskLevel           { return RiskLow }
func (t *SearchNotesTool) RequiresApproval() bool         { return false }
func (t *SearchNotesTool) RequiredIntegrations() []string { return nil }

func (t *SearchNotesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string"},
			"limit": map[string]any{"type": "integer", "description": "Defaults to 10"},
		},
		"required": []string{"query"},
	}
}

func (t *SearchNotesTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	query, err := stringParam(params, "query")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	limit := 10
	if n, ok := params["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}
	notes, err := t.Store.SearchNotes(ctx, UserIDFrom(ctx), query, limit)
	if err != nil {
		return nil, NewError(t.Name(), true, err)
	}
	results := make([]map[string]any, 0, len(notes))
	for _, n := range notes {
		results = append(results, map[string]any{
			"note_id":    n.ID,
			"title":      n.Title,
			"body":       n.Body,
			"created_at": n.CreatedAt.Format(time.RFC3339),
		})
	}
	return map[string]any{"notes": results, "count": len(results)}, nil
}
