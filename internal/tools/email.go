package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/donna-ai/donna/internal/store"
)

type EmailStore interface {
	AddEmail(ctx context.Context, m *store.EmailMessage) error
}

// SendEmailTool drafts and sends an email on the user's behalf. Outbound
// mail is irreversible, so every send is gated on explicit approval.
type SendEmailTool struct {
	Store EmailStore
}

func NewSendEmailTool(s EmailStore) *SendEmailTool { return &SendEmailTool{Store: s} }

func (t *SendEmailTool) Name() string { return "send_email" }
func (t *SendEmailTool) Description() string {
	return "Send an email from the user's account to a recipient."
}
func (t *SendEmailTool) RiskLevel() RiskLevel           { return RiskHigh }
func (t *SendEmailTool) RequiresApproval() bool         { return true }
func (t *SendEmailTool) RequiredIntegrations() []string { return []string{"email"} }

func (t *SendEmailTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to":      map[string]any{"type": "string", "description": "Recipient email address"},
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
		"required": []string{"to", "subject", "body"},
	}
}

func (t *SendEmailTool) Execute(ctx context.Context, params map[string]any) (any, error) {
	to, err := stringParam(params, "to")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	subject, err := stringParam(params, "subject")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	body, err := stringParam(params, "body")
	if err != nil {
		return nil, NewError(t.Name(), false, err)
	}
	if to == "" {
		return nil, NewError(t.Name(), false, fmt.Errorf("empty recipient"))
	}

	msg := &store.EmailMessage{
		ID:         uuid.NewString(),
		UserID:     UserIDFrom(ctx),
		Subject:    subject,
		Sender:     "me",
		Recipient:  to,
		Body:       body,
		ReceivedAt: time.Now(),
	}
	if err := t.Store.AddEmail(ctx, msg); err != nil {
		return nil, NewError(t.Name(), true, err)
	}
	return map[string]any{
		"message_id": msg.ID,
		"to":         to,
		"subject":    subject,
		"sent_at":    msg.ReceivedAt.Format(time.RFC3339),
	}, nil
}
