package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/donna-ai/donna/internal/datetime"
	"github.com/donna-ai/donna/internal/store"
)

type CalendarStore interface {
	CreateEvent(ctx context.Context, e *store.Event) error
	EventsBetween(ctx context.Context, userID string, from, to time.Time) ([]store.Event, error)
}

// CreateEventTool puts a new event on the user's calendar.
type CreateEventTool struct {
	Store CalendarStore
}

func NewCreateEventTool(s CalendarStore) *CreateEventTool { return &CreateEventTool{Store: s} }

func (t *CreateEventTool) Name() string { return "create_event" }
func (t *CreateEventTool) Description() string {
	return "Schedule a new event on the user's calendar."
}
func (t *CreateEventTool) RiskLevel() RiskLevel           { return RiskMedium }
func (t *CreateEventTool) RequiresApproval() bool         { return false }
func (t *CreateEventTool) RequiredIntegrations() []string { return []string{"calendar"} }

func (t *CreateEventTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":            map[string]any{"type": "string"},
			"description":      map[string]any{"type": "string"},
			"location":         map[string]any{"type": "string"},
			"starts_at":        map[string]any{"type": "string", "description": "Start time, natural language accepted"},
			"duration_minutes": map[string]any{"type": "integer", "description": "Defaults to 30"},
		},
		"required": []string{"title", "starts_at"},
	}
}

func (t *CreateEventTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	title, err := stringParam(params, "title")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	startRaw, err := stringParam(params, "starts_at")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	starts, perr := datetime.ParseWhen(startRaw)
	if perr != nil {
		return nil, NewError(t.Name(), false, fmt.Errorf("unparseable start time %q", startRaw))
	}

	duration := 30 * time.Minute
	if mins, ok := params["duration_minutes"].(float64); ok && mins > 0 {
		duration = time.Duration(mins) * time.Minute
	}

	event := &store.Event{
		ID:          uuid.NewString(),
		UserID:      UserIDFrom(ctx),
		Title:       title,
		Description: optionalString(params, "description"),
		Location:    optionalString(params, "location"),
		StartsAt:    starts,
		EndsAt:      starts.Add(duration),
	}
	if err := t.Store.CreateEvent(ctx, event); err != nil {
		return nil, NewError(t.Name(), true, err)
	}
	return map[string]any{
		"event_id":  event.ID,
		"title":     event.Title,
		"starts_at": event.StartsAt.Format(time.RFC3339),
		"ends_at":   event.EndsAt.Format(time.RFC3339),
	}, nil
}

// ListAgendaTool returns the user's events over a date span, bucketed by
// day.
type ListAgendaTool struct {
	Store CalendarStore
}

func NewListAgendaTool(s CalendarStore) *ListAgendaTool { return &ListAgendaTool{Store: s} }

func (t *ListAgendaTool) Name() string { return "list_agenda" }
func (t *ListAgendaTool) Description() string {
	return "List calendar events between two dates, grouped by day."
}
func (t *ListAgendaTool) RiskLevel() RiskLevel           { return RiskLow }
func (t *ListAgendaTool) RequiresApproval() bool         { return false }
func (t *ListAgendaTool) RequiredIntegrations() []string { return []string{"calendar"} }

func (t *ListAgendaTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"from": map[string]any{"type": "string", "description": "First day, natural language accepted"},
			"to":   map[string]any{"type": "string", "description": "Last day, defaults to from"},
		},
		"required": []string{"from"},
	}
}

func (t *ListAgendaTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	fromRaw, err := stringParam(params, "from")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	from, perr := datetime.ParseWhen(fromRaw)
	if perr != nil {
		return nil, NewError(t.Name(), false, fmt.Errorf("unparseable date %q", fromRaw))
	}
	to := from
	if toRaw := optionalString(params, "to"); toRaw != "" {
		if to, perr = datetime.ParseWhen(toRaw); perr != nil {
			return nil, NewError(t.Name(), false, fmt.Errorf("unparseable date %q", toRaw))
		}
	}

	events, err := t.Store.EventsBetween(ctx, UserIDFrom(ctx), from, to.Add(24*time.Hour))
	if err != nil {
		return nil, NewError(t.Name(), true, err)
	}

	var days []map[string]any
	cursor := datetime.Days(from, to)
	for {
		day, ok := cursor.Next()
		if !ok {
			break
		}
		var todays []map[string]any
		for _, e := range events {
			if datetime.SameDay(e.StartsAt, day) {
				todays = append(todays, map[string]any{
					"event_id":  e.ID,
					"title":     e.Title,
					"starts_at": e.StartsAt.Format(time.RFC3339),
					"location":  e.Location,
				})
			}
		}
		days = append(days, map[string]any{
			"date":   day.Format("2006-01-02"),
			"events": todays,
		})
	}
	return map[string]any{"days": days, "total_events": len(events)}, nil
}
