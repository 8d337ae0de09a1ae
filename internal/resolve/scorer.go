package resolve

import (
	"fmt"
	"sort"

	"github.com/donna-ai/donna/internal/store"
)

// ScorerConfig holds the classification thresholds shared by every
// entity type.
type ScorerConfig struct {
	ExactMatchThreshold float64
	FuzzyMatchThreshold float64
	MaxCandidates       int
}

// DefaultScorerConfig returns the standard thresholds.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		ExactMatchThreshold: 0.95,
		FuzzyMatchThreshold: 0.70,
		MaxCandidates:       5,
	}
}

// ambiguityGap is the margin the top candidate must hold over the
// runner-up to resolve without clarification. Person mentions are held
// to a wider gap because misdirected actions there are costlier.
func ambiguityGap(t store.EntityType) float64 {
	if t == store.EntityPerson {
		return 0.20
	}
	return 0.15
}

// classify sorts scored candidates and applies the disambiguation policy:
// resolved on a clear winner, ambiguous when multiple candidates clear the
// fuzzy bar without one, not_found otherwise. The source match method is
// kept unless the top score is a perfect 1.0, which reports as exact.
func (c ScorerConfig) classify(ext ExtractedEntity, cands []Candidate, source MatchMethod) ResolvedEntity {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Confidence > cands[j].Confidence
	})

	if len(cands) == 0 {
		return ResolvedEntity{Extracted: ext, Status: StatusNotFound}
	}

	top := cands[0]
	method := source
	if top.Confidence >= 1.0 {
		method = MatchExact
	}

	resolved := func() ResolvedEntity {
		return ResolvedEntity{
			Extracted:  ext,
			Status:     StatusResolved,
			Confidence: top.Confidence,
			Match: &EntityMatch{
				ID:         top.ID,
				Type:       ext.Type,
				Record:     top.Record,
				Confidence: top.Confidence,
				Method:     method,
			},
		}
	}

	if top.Confidence >= c.ExactMatchThreshold {
		return resolved()
	}

	if top.Confidence >= c.FuzzyMatchThreshold {
		if len(cands) == 1 || top.Confidence-cands[1].Confidence > ambiguityGap(ext.Type) {
			return resolved()
		}

		aboveBar := 0
		for _, cd := range cands {
			if cd.Confidence >= c.FuzzyMatchThreshold {
				aboveBar++
			}
		}
		if aboveBar >= 2 {
			limit := c.MaxCandidates
			if limit <= 0 {
				limit = 5
			}
			if len(cands) > limit {
				cands = cands[:limit]
			}
			return ResolvedEntity{
				Extracted:  ext,
				Status:     StatusAmbiguous,
				Candidates: cands,
				Confidence: top.Confidence,
			}
		}
	}

	// Below threshold: report the top score anyway, for diagnostics.
	return ResolvedEntity{Extracted: ext, Status: StatusNotFound, Confidence: top.Confidence}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// personLabel builds the human label shown in disambiguation prompts.
func personLabel(p store.Person) string {
	switch {
	case p.Email != "":
		return fmt.Sprintf("%s (%s)", p.Name, p.Email)
	case p.Company != "":
		return fmt.Sprintf("%s (%s)", p.Name, p.Company)
	default:
		return p.Name
	}
}

func eventLabel(e store.Event) string {
	if e.StartsAt.IsZero() {
		return e.Title
	}
	return fmt.Sprintf("%s (%s)", e.Title, e.StartsAt.Format("Mon Jan 2 3:04 PM"))
}

func taskLabel(t store.Task) string {
	if t.Status == "" {
		return t.Title
	}
	return fmt.Sprintf("%s [%s]", t.Title, t.Status)
}

func emailLabel(m store.EmailMessage) string {
	if m.Sender == "" {
		return m.Subject
	}
	return fmt.Sprintf("%q from %s", m.Subject, m.Sender)
}

func placeLabel(p store.Place) string {
	if p.City == "" {
		return p.Name
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.City)
}

func deadlineLabel(d store.Deadline) string {
	if d.DueAt.IsZero() {
		return d.Title
	}
	return fmt.Sprintf("%s (due %s)", d.Title, d.DueAt.Format("Jan 2"))
}
