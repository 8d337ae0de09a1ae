package resolve

import (
	"github.com/donna-ai/donna/internal/store"
)

// MatchMethod records how a resolution was found.
type MatchMethod string

const (
	MatchExact    MatchMethod = "exact"
	MatchFuzzy    MatchMethod = "fuzzy"
	MatchSemantic MatchMethod = "semantic"
)

// Status is the outcome of resolving one extracted entity.
type Status string

const (
	StatusResolved  Status = "resolved"
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not_found"
)

// ExtractedEntity is a free-text mention produced upstream by the intent
// analyzer. Immutable input to the resolver.
type ExtractedEntity struct {
	Type            store.EntityType `json:"type"`
	Text            string           `json:"text"`
	RawValue        string           `json:"raw_value,omitempty"`
	NeedsResolution bool             `json:"needs_resolution"`
}

// Candidate is one domain record considered during resolution.
type Candidate struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	MatchReason string  `json:"match_reason,omitempty"`
	Record      any     `json:"-"`
}

// EntityMatch is a committed resolution to a single record.
type EntityMatch struct {
	ID         string           `json:"id"`
	Type       store.EntityType `json:"type"`
	Record     any              `json:"record,omitempty"`
	Confidence float64          `json:"confidence"`
	Method     MatchMethod      `json:"match_method"`
}

// ResolvedEntity is the outcome for one extracted entity. Match is set
// only when Status is resolved; Candidates only when ambiguous; neither
// for not_found.
type ResolvedEntity struct {
	Extracted  ExtractedEntity `json:"extracted"`
	Status     Status          `json:"status"`
	Match      *EntityMatch    `json:"match,omitempty"`
	Candidates []Candidate     `json:"candidates,omitempty"`
	Confidence float64         `json:"confidence"`
	Err        string          `json:"error,omitempty"`
}

// Result aggregates all resolutions for one request. Constructed fresh
// per ResolveEntities call and never mutated after return.
type Result struct {
	Entities               []ResolvedEntity `json:"entities"`
	Resolved               []ResolvedEntity `json:"resolved"`
	Ambiguous              []ResolvedEntity `json:"ambiguous"`
	NotFound               []ResolvedEntity `json:"not_found"`
	NeedsClarification     bool             `json:"needs_clarification"`
	ClarificationQuestions []string         `json:"clarification_questions,omitempty"`
}

// Hints carry caller-supplied context that sharpens scoring for a single
// resolution call.
type Hints struct {
	Email    string `json:"email,omitempty"`    // person: exact match short-circuits
	Company  string `json:"company,omitempty"`  // person
	City     string `json:"city,omitempty"`     // person, place
	Category string `json:"category,omitempty"` // place
	Status   string `json:"status,omitempty"`   // task, deadline, open_loop, project
	Priority string `json:"priority,omitempty"` // task
	Sender   string `json:"sender,omitempty"`   // email
	When     string `json:"when,omitempty"`     // event, deadline: natural-language date
}

// SemanticHit is one result from the embedding index.
type SemanticHit struct {
	Type   store.EntityType `json:"type"`
	ID     string           `json:"id"`
	Label  string           `json:"label"`
	Record any              `json:"-"`
	Score  float64          `json:"score"`
}

// SemanticOptions filter a semantic search.
type SemanticOptions struct {
	EntityTypes   []store.EntityType
	Limit         int
	MinSimilarity float64
}
