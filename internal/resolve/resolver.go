package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/donna-ai/donna/internal/datetime"
	"github.com/donna-ai/donna/internal/match"
	"github.com/donna-ai/donna/internal/store"
)

// Directory is the lexical search collaborator, one method per entity
// type, plus direct lookup by exact field.
type Directory interface {
	SearchPeople(ctx context.Context, userID, query string, limit int) ([]store.Person, error)
	SearchEvents(ctx context.Context, userID, query string, limit int) ([]store.Event, error)
	SearchTasks(ctx context.Context, userID, query string, limit int) ([]store.Task, error)
	SearchEmails(ctx context.Context, userID, query string, limit int) ([]store.EmailMessage, error)
	SearchPlaces(ctx context.Context, userID, query string, limit int) ([]store.Place, error)
	SearchDeadlines(ctx context.Context, userID, query string, limit int) ([]store.Deadline, error)
	SearchRoutines(ctx context.Context, userID, query string, limit int) ([]store.Routine, error)
	SearchOpenLoops(ctx context.Context, userID, query string, limit int) ([]store.OpenLoop, error)
	SearchProjects(ctx context.Context, userID, query string, limit int) ([]store.Project, error)
	SearchNotes(ctx context.Context, userID, query string, limit int) ([]store.Note, error)
	PersonByEmail(ctx context.Context, userID, email string) (*store.Person, error)
}

// SemanticIndex is the embedding-search fallback collaborator.
type SemanticIndex interface {
	SearchContext(ctx context.Context, userID, query string, opts SemanticOptions) ([]SemanticHit, error)
}

// Resolver links extracted entities to canonical domain records. Construct
// one with NewResolver and inject it wherever resolution is needed.
type Resolver struct {
	dir Directory
	sem SemanticIndex // nil disables the semantic fallback

	cfg            ScorerConfig
	searchLimit    int
	minSemanticSim float64
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithScorerConfig overrides the classification thresholds.
func WithScorerConfig(cfg ScorerConfig) Option {
	return func(r *Resolver) { r.cfg = cfg }
}

// WithSearchLimit caps how many records each lexical search considers.
func WithSearchLimit(n int) Option {
	return func(r *Resolver) { r.searchLimit = n }
}

// WithMinSemanticSimilarity sets the floor for semantic fallback hits.
func WithMinSemanticSimilarity(min float64) Option {
	return func(r *Resolver) { r.minSemanticSim = min }
}

func NewResolver(dir Directory, sem SemanticIndex, opts ...Option) *Resolver {
	r := &Resolver{
		dir:            dir,
		sem:            sem,
		cfg:            DefaultScorerConfig(),
		searchLimit:    10,
		minSemanticSim: 0.6,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveEntities resolves every entity flagged NeedsResolution,
// independently and concurrently, reassembling results in input order.
// A single entity's failure is downgraded to a not_found result carrying
// the error; the call itself never fails.
func (r *Resolver) ResolveEntities(ctx context.Context, userID string, entities []ExtractedEntity) *Result {
	var pending []ExtractedEntity
	for _, e := range entities {
		if e.NeedsResolution {
			pending = append(pending, e)
		}
	}

	resolved := make([]ResolvedEntity, len(pending))
	var wg sync.WaitGroup
	for i, ext := range pending {
		wg.Add(1)
		go func(i int, ext ExtractedEntity) {
			defer wg.Done()
			re, err := r.Resolve(ctx, userID, ext, nil)
			if err != nil {
				re = ResolvedEntity{
					Extracted: ext,
					Status:    StatusNotFound,
					Err:       err.Error(),
				}
			}
			resolved[i] = re
		}(i, ext)
	}
	wg.Wait()

	result := &Result{Entities: resolved}
	for _, re := range resolved {
		switch re.Status {
		case StatusResolved:
			result.Resolved = append(result.Resolved, re)
		case StatusAmbiguous:
			result.Ambiguous = append(result.Ambiguous, re)
			result.NeedsClarification = true
			result.ClarificationQuestions = append(result.ClarificationQuestions, ambiguousQuestion(re))
		case StatusNotFound:
			result.NotFound = append(result.NotFound, re)
			if re.Extracted.Type == store.EntityPerson {
				result.NeedsClarification = true
				result.ClarificationQuestions = append(result.ClarificationQuestions, notFoundPersonQuestion(re))
			}
		}
	}
	return result
}

// Resolve dispatches one entity to its type handler. The entity-type enum
// is closed; anything else is an INVALID_ENTITY_TYPE error.
func (r *Resolver) Resolve(ctx context.Context, userID string, ext ExtractedEntity, hints *Hints) (ResolvedEntity, error) {
	switch ext.Type {
	case store.EntityPerson:
		return r.ResolvePerson(ctx, userID, ext.Text, hints)
	case store.EntityEvent:
		return r.ResolveEvent(ctx, userID, ext.Text, hints)
	case store.EntityTask:
		return r.ResolveTask(ctx, userID, ext.Text, hints)
	case store.EntityEmail:
		return r.ResolveEmail(ctx, userID, ext.Text, hints)
	case store.EntityPlace:
		return r.ResolvePlace(ctx, userID, ext.Text, hints)
	case store.EntityDeadline:
		return r.ResolveDeadline(ctx, userID, ext.Text, hints)
	case store.EntityRoutine:
		return r.ResolveRoutine(ctx, userID, ext.Text, hints)
	case store.EntityOpenLoop:
		return r.ResolveOpenLoop(ctx, userID, ext.Text, hints)
	case store.EntityProject:
		return r.ResolveProject(ctx, userID, ext.Text, hints)
	case store.EntityNote:
		return r.ResolveNote(ctx, userID, ext.Text, hints)
	default:
		return ResolvedEntity{}, newError(CodeInvalidEntityType,
			fmt.Sprintf("unknown entity type %q", ext.Type), nil)
	}
}

// ResolvePerson resolves a person mention. An exact hint email match
// short-circuits with confidence 1.0 regardless of name similarity.
func (r *Resolver) ResolvePerson(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityPerson, Text: text, NeedsResolution: true}

	if hints != nil && hints.Email != "" {
		p, err := r.dir.PersonByEmail(ctx, userID, hints.Email)
		if err != nil {
			return ResolvedEntity{}, newError(CodeDatabaseError, "person lookup by email failed", err)
		}
		if p != nil {
			return ResolvedEntity{
				Extracted:  ext,
				Status:     StatusResolved,
				Confidence: 1.0,
				Match: &EntityMatch{
					ID: p.ID, Type: store.EntityPerson, Record: *p,
					Confidence: 1.0, Method: MatchExact,
				},
			}, nil
		}
	}

	people, err := r.dir.SearchPeople(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "person search failed", err)
	}

	cands := make([]Candidate, 0, len(people))
	for _, p := range people {
		score := match.NameSimilarity(text, p.Name)
		reason := "name similarity"
		if p.Email != "" && match.NameMatchesEmail(text, p.Email) && score < 0.85 {
			score = 0.85
			reason = "email username pattern"
		}
		if hints != nil {
			if hints.Company != "" && strings.EqualFold(hints.Company, p.Company) {
				score += 0.10
			}
			if hints.City != "" && strings.EqualFold(hints.City, p.City) {
				score += 0.10
			}
		}
		cands = append(cands, Candidate{
			ID: p.ID, Label: personLabel(p), Confidence: clamp01(score),
			MatchReason: reason, Record: p,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveEvent(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityEvent, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchEvents(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "event search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, e := range records {
		score := scoreText(text, e.Title, e.Description)
		if hints != nil {
			if when, perr := datetime.ParseWhen(hints.When); perr == nil && datetime.SameDay(when, e.StartsAt) {
				score += 0.15
			}
			if hints.City != "" && strings.Contains(strings.ToLower(e.Location), strings.ToLower(hints.City)) {
				score += 0.05
			}
		}
		cands = append(cands, Candidate{
			ID: e.ID, Label: eventLabel(e), Confidence: clamp01(score),
			MatchReason: "title similarity", Record: e,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveTask(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityTask, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchTasks(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "task search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, t := range records {
		score := scoreText(text, t.Title, t.Description)
		if hints != nil {
			if hints.Status != "" && strings.EqualFold(hints.Status, t.Status) {
				score += 0.05
			}
			if hints.Priority != "" && strings.EqualFold(hints.Priority, t.Priority) {
				score += 0.05
			}
		}
		cands = append(cands, Candidate{
			ID: t.ID, Label: taskLabel(t), Confidence: clamp01(score),
			MatchReason: "title similarity", Record: t,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveEmail(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityEmail, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchEmails(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "email search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, m := range records {
		score := scoreText(text, m.Subject, m.Body)
		if hints != nil && hints.Sender != "" && strings.EqualFold(hints.Sender, m.Sender) {
			score += 0.15
		}
		cands = append(cands, Candidate{
			ID: m.ID, Label: emailLabel(m), Confidence: clamp01(score),
			MatchReason: "subject similarity", Record: m,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolvePlace(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityPlace, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchPlaces(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "place search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, p := range records {
		score := match.TextSimilarity(text, p.Name)
		if hints != nil {
			if hints.City != "" && strings.EqualFold(hints.City, p.City) {
				score += 0.10
			}
			if hints.Category != "" && strings.EqualFold(hints.Category, p.Category) {
				score += 0.10
			}
		}
		cands = append(cands, Candidate{
			ID: p.ID, Label: placeLabel(p), Confidence: clamp01(score),
			MatchReason: "name similarity", Record: p,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveDeadline(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityDeadline, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchDeadlines(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "deadline search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, d := range records {
		score := scoreText(text, d.Title, d.Description)
		if hints != nil {
			if hints.Status != "" && strings.EqualFold(hints.Status, d.Status) {
				score += 0.05
			}
			if when, perr := datetime.ParseWhen(hints.When); perr == nil && datetime.SameDay(when, d.DueAt) {
				score += 0.15
			}
		}
		cands = append(cands, Candidate{
			ID: d.ID, Label: deadlineLabel(d), Confidence: clamp01(score),
			MatchReason: "title similarity", Record: d,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveRoutine(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityRoutine, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchRoutines(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "routine search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, rt := range records {
		cands = append(cands, Candidate{
			ID: rt.ID, Label: rt.Title,
			Confidence:  clamp01(scoreText(text, rt.Title, rt.Description)),
			MatchReason: "title similarity", Record: rt,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveOpenLoop(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityOpenLoop, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchOpenLoops(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "open loop search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, ol := range records {
		score := scoreText(text, ol.Title, ol.Description)
		if hints != nil && hints.Status != "" && strings.EqualFold(hints.Status, ol.Status) {
			score += 0.05
		}
		cands = append(cands, Candidate{
			ID: ol.ID, Label: ol.Title, Confidence: clamp01(score),
			MatchReason: "title similarity", Record: ol,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveProject(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityProject, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchProjects(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "project search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, p := range records {
		score := scoreText(text, p.Name, p.Description)
		if hints != nil && hints.Status != "" && strings.EqualFold(hints.Status, p.Status) {
			score += 0.05
		}
		cands = append(cands, Candidate{
			ID: p.ID, Label: p.Name, Confidence: clamp01(score),
			MatchReason: "name similarity", Record: p,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

func (r *Resolver) ResolveNote(ctx context.Context, userID, text string, hints *Hints) (ResolvedEntity, error) {
	ext := ExtractedEntity{Type: store.EntityNote, Text: text, NeedsResolution: true}
	records, err := r.dir.SearchNotes(ctx, userID, text, r.searchLimit)
	if err != nil {
		return ResolvedEntity{}, newError(CodeSearchError, "note search failed", err)
	}

	cands := make([]Candidate, 0, len(records))
	for _, n := range records {
		cands = append(cands, Candidate{
			ID: n.ID, Label: n.Title,
			Confidence:  clamp01(scoreText(text, n.Title, n.Body)),
			MatchReason: "title similarity", Record: n,
		})
	}
	return r.finish(ctx, userID, ext, cands)
}

// finish classifies lexical candidates, falling back to the semantic
// index when the lexical search produced nothing.
func (r *Resolver) finish(ctx context.Context, userID string, ext ExtractedEntity, cands []Candidate) (ResolvedEntity, error) {
	source := MatchFuzzy
	if len(cands) == 0 && r.sem != nil {
		hits, err := r.sem.SearchContext(ctx, userID, ext.Text, SemanticOptions{
			EntityTypes:   []store.EntityType{ext.Type},
			Limit:         r.searchLimit,
			MinSimilarity: r.minSemanticSim,
		})
		if err != nil {
			return ResolvedEntity{}, newError(CodeSearchError, "semantic search failed", err)
		}
		for _, h := range hits {
			cands = append(cands, Candidate{
				ID: h.ID, Label: h.Label, Confidence: clamp01(h.Score),
				MatchReason: "semantic similarity", Record: h.Record,
			})
		}
		source = MatchSemantic
	}
	return r.cfg.classify(ext, cands, source), nil
}

// scoreText scores free text against a record's title and, weighted
// down, its description.
func scoreText(text, title, description string) float64 {
	score := match.TextSimilarity(text, title)
	if description != "" {
		if d := 0.8 * match.TextSimilarity(text, description); d > score {
			score = d
		}
	}
	return score
}

// typeNoun is the human word used in clarification questions.
var typeNoun = map[store.EntityType]string{
	store.EntityPerson:   "person",
	store.EntityEvent:    "event",
	store.EntityTask:     "task",
	store.EntityEmail:    "email",
	store.EntityPlace:    "place",
	store.EntityDeadline: "deadline",
	store.EntityRoutine:  "routine",
	store.EntityOpenLoop: "open loop",
	store.EntityProject:  "project",
	store.EntityNote:     "note",
}

func ambiguousQuestion(re ResolvedEntity) string {
	labels := make([]string, 0, len(re.Candidates))
	for _, c := range re.Candidates {
		labels = append(labels, c.Label)
	}
	return fmt.Sprintf("I found %d matches for %q. Which %s did you mean: %s?",
		len(re.Candidates), re.Extracted.Text, typeNoun[re.Extracted.Type], strings.Join(labels, ", "))
}

func notFoundPersonQuestion(re ResolvedEntity) string {
	return fmt.Sprintf("I couldn't find anyone matching %q in your contacts. Who did you mean?", re.Extracted.Text)
}
