package store

import "time"

// EntityType enumerates the resolvable domain record kinds. The set is
// closed: the resolver dispatches one handler per type and rejects
// anything else.
type EntityType string

const (
	EntityPerson   EntityType = "person"
	EntityEvent    EntityType = "event"
	EntityTask     EntityType = "task"
	EntityEmail    EntityType = "email"
	EntityPlace    EntityType = "place"
	EntityDeadline EntityType = "deadline"
	EntityRoutine  EntityType = "routine"
	EntityOpenLoop EntityType = "open_loop"
	EntityProject  EntityType = "project"
	EntityNote     EntityType = "note"
)

// AllEntityTypes lists every resolvable type, in a stable order.
var AllEntityTypes = []EntityType{
	EntityPerson, EntityEvent, EntityTask, EntityEmail, EntityPlace,
	EntityDeadline, EntityRoutine, EntityOpenLoop, EntityProject, EntityNote,
}

// Valid reports whether t is a known resolvable entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityPerson, EntityEvent, EntityTask, EntityEmail, EntityPlace,
		EntityDeadline, EntityRoutine, EntityOpenLoop, EntityProject, EntityNote:
		return true
	}
	return false
}

type Person struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Event struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"` // open, in_progress, done
	Priority    string     `json:"priority,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// EmailMessage is a stored email. Body is sanitized HTML-free text.
type EmailMessage struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Body       string    `json:"body,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

type Place struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	Category string `json:"category,omitempty"`
}

type Deadline struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueAt       time.Time `json:"due_at"`
	Status      string    `json:"status"` // upcoming, met, missed
}

type Routine struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Cadence     string `json:"cadence,omitempty"` // e.g. "daily", "every monday"
}

// OpenLoop is an unresolved commitment the user is tracking, usually
// waiting on someone else.
type OpenLoop struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"` // open, closed
	WaitingOn   string `json:"waiting_on,omitempty"`
}

type Project struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"` // active, paused, done
}

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ApprovalStatus is the lifecycle of a human approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// Approval gates execution of a plan step that requires human sign-off.
type Approval struct {
	ID        string         `json:"id"`
	PlanID    string         `json:"plan_id"`
	StepID    string         `json:"step_id"`
	UserID    string         `json:"user_id"`
	Status    ApprovalStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
	DecidedBy string         `json:"decided_by,omitempty"`
}
