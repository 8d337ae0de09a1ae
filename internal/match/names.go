package match

import (
	"math"
	"strings"
)

// nicknameToFormal maps common English nicknames to the formal first name.
var nicknameToFormal = map[string]string{
	"bob":     "robert",
	"rob":     "robert",
	"bobby":   "robert",
	"bill":    "william",
	"will":    "william",
	"billy":   "william",
	"liz":     "elizabeth",
	"beth":    "elizabeth",
	"betty":   "elizabeth",
	"dick":    "richard",
	"rick":    "richard",
	"rich":    "richard",
	"jim":     "james",
	"jimmy":   "james",
	"mike":    "michael",
	"tom":     "thomas",
	"tommy":   "thomas",
	"tony":    "anthony",
	"andy":    "andrew",
	"drew":    "andrew",
	"dan":     "daniel",
	"danny":   "daniel",
	"dave":    "david",
	"chris":   "christopher",
	"kate":    "katherine",
	"katie":   "katherine",
	"kathy":   "katherine",
	"sam":     "samuel",
	"steve":   "steven",
	"ted":     "theodore",
	"jack":    "john",
	"johnny":  "john",
	"peggy":   "margaret",
	"maggie":  "margaret",
	"sue":     "susan",
	"jen":     "jennifer",
	"jenny":   "jennifer",
	"alex":    "alexander",
	"nick":    "nicholas",
	"matt":    "matthew",
	"joe":     "joseph",
	"joey":    "joseph",
	"ed":      "edward",
	"eddie":   "edward",
	"charlie": "charles",
	"chuck":   "charles",
	"ben":     "benjamin",
	"greg":    "gregory",
	"pat":     "patricia",
	"ron":     "ronald",
	"tim":     "timothy",
}

// CouldBeNickname reports whether query plausibly refers to a candidate
// first name: either a prefix of at least two characters, or a known
// nickname for it.
func CouldBeNickname(query, candidateFirst string) bool {
	q := NormalizeString(query)
	first := NormalizeString(candidateFirst)
	if q == "" || first == "" {
		return false
	}
	if len(q) >= 2 && strings.HasPrefix(first, q) {
		return true
	}
	return nicknameToFormal[q] == first
}

// NameMatchesEmail checks whether a name could plausibly own an email
// address by building common username patterns and testing them against
// the local part.
func NameMatchesEmail(name, email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 {
		return false
	}
	local := strings.ToLower(email[:at])

	p := ExtractNameParts(name)
	if p.First == "" {
		return false
	}

	patterns := []string{p.First}
	if p.Last != "" {
		patterns = append(patterns,
			p.First+"."+p.Last,
			p.First+p.Last,
			p.First+"_"+p.Last,
			p.Last,
			p.First[:1]+"."+p.Last,
			p.First+p.Last[:1],
		)
	}

	for _, pat := range patterns {
		if len(pat) < 2 {
			continue
		}
		if strings.Contains(local, pat) {
			return true
		}
	}
	return false
}

// NameSimilarity scores how well a free-text query matches a person's
// full name, handling first-name-only and last-name-only queries as well
// as nicknames. Exact full match is 1.0.
func NameSimilarity(query, candidate string) float64 {
	q := NormalizeName(query)
	c := NormalizeName(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1
	}

	qp := ExtractNameParts(q)
	cp := ExtractNameParts(c)

	best := JaroWinklerSimilarity(q, c)

	switch {
	case qp.Last == "" && cp.Last != "":
		best = math.Max(best, singleTokenScore(qp.First, cp))
	case qp.Last != "" && cp.Last == "":
		best = math.Max(best, singleTokenScore(cp.First, qp))
	case qp.Last != "" && cp.Last != "":
		firstSim := JaroWinklerSimilarity(qp.First, cp.First)
		if CouldBeNickname(qp.First, cp.First) || CouldBeNickname(cp.First, qp.First) {
			firstSim = math.Max(firstSim, 0.9)
		}
		lastSim := JaroWinklerSimilarity(qp.Last, cp.Last)
		best = math.Max(best, 0.45*firstSim+0.45*lastSim+0.1*JaroWinklerSimilarity(q, c))
	default:
		best = math.Max(best, JaroWinklerSimilarity(qp.First, cp.First))
	}

	return clamp01(best)
}

// singleTokenScore scores a lone token query against a multi-part name.
func singleTokenScore(token string, full NameParts) float64 {
	if token == full.First || token == full.Last {
		return 0.85
	}
	if CouldBeNickname(token, full.First) {
		return 0.8
	}
	s := math.Max(
		JaroWinklerSimilarity(token, full.First),
		JaroWinklerSimilarity(token, full.Last),
	)
	return s * 0.8
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
