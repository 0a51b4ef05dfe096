package resolver

import (
	"cmp"
	"slices"
	"strings"

	"sideline/internal/store"
	"sideline/internal/textutil"
)

// Tier scores. Fuzzy matches land in [fuzzyLow, fuzzyHigh].
const (
	scoreExactFull       = 1.00
	scoreExactShort      = 0.95
	scoreNormalizedFull  = 0.90
	scoreNormalizedShort = 0.85
	fuzzyHigh            = 0.80
	fuzzyLow             = 0.50

	// fuzzyFloor is the raw similarity below which a fuzzy comparison does
	// not score at all.
	fuzzyFloor = 0.80
)

// Tier names recorded on mention resolutions.
const (
	TierExact      = "exact"
	TierNormalized = "normalized"
	TierFuzzy      = "fuzzy"
	TierModelHint  = "model_hint"
	TierCoach      = "coach"
)

// leading words dropped before normalized comparison ("the Lions", "our physio").
var determiners = map[string]struct{}{
	"the": {}, "our": {}, "my": {}, "coach": {},
}

// Candidate is one roster record a mention can resolve to.
type Candidate struct {
	ID          string
	Kind        store.MentionKind
	DisplayName string
	// Full holds complete names; Short holds first names, surnames,
	// nicknames and aliases.
	Full  []string
	Short []string
}

// Policy bounds what the matcher accepts.
type Policy struct {
	MinConfidence float64
	TieEpsilon    float64
}

// Scored is a candidate with its best score for a mention.
type Scored struct {
	Candidate Candidate
	Score     float64
	Tier      string
}

// Result is the matcher verdict for one mention.
type Result struct {
	Mention string
	Outcome store.MentionOutcome
	// Best is set when Outcome is matched.
	Best Scored
	// Tied lists every candidate within the tie epsilon of the top score
	// when Outcome is ambiguous.
	Tied []Scored
}

// Resolve scores mention against candidates. It is pure: the same inputs
// always produce the same result.
func Resolve(mention string, candidates []Candidate, policy Policy) Result {
	result := Result{Mention: mention, Outcome: store.OutcomeNoMatch}
	if strings.TrimSpace(mention) == "" || len(candidates) == 0 {
		return result
	}

	scored := make([]Scored, 0, len(candidates))
	seen := make(map[string]int, len(candidates))
	for _, candidate := range candidates {
		score, tier := scoreCandidate(mention, candidate)
		if score <= 0 {
			continue
		}
		if idx, dup := seen[candidate.ID]; dup {
			if score > scored[idx].Score {
				scored[idx] = Scored{Candidate: candidate, Score: score, Tier: tier}
			}
			continue
		}
		seen[candidate.ID] = len(scored)
		scored = append(scored, Scored{Candidate: candidate, Score: score, Tier: tier})
	}
	if len(scored) == 0 {
		return result
	}
	slices.SortStableFunc(scored, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Candidate.ID, b.Candidate.ID)
	})

	top := scored[0]
	if top.Score < policy.MinConfidence {
		return result
	}
	tied := []Scored{top}
	for _, s := range scored[1:] {
		if top.Score-s.Score <= policy.TieEpsilon {
			tied = append(tied, s)
		}
	}
	if len(tied) > 1 {
		result.Outcome = store.OutcomeAmbiguous
		result.Tied = tied
		return result
	}
	result.Outcome = store.OutcomeMatched
	result.Best = top
	return result
}

// scoreCandidate returns the candidate's best tier score for mention.
func scoreCandidate(mention string, candidate Candidate) (float64, string) {
	raw := strings.TrimSpace(mention)
	for _, name := range candidate.Full {
		if raw == strings.TrimSpace(name) {
			return scoreExactFull, TierExact
		}
	}
	for _, name := range candidate.Short {
		if raw == strings.TrimSpace(name) {
			return scoreExactShort, TierExact
		}
	}

	folded := normalize(raw)
	if folded == "" {
		return 0, ""
	}
	for _, name := range candidate.Full {
		if folded == normalize(name) {
			return scoreNormalizedFull, TierNormalized
		}
	}
	for _, name := range candidate.Short {
		if folded == normalize(name) {
			return scoreNormalizedShort, TierNormalized
		}
	}

	best := 0.0
	for _, name := range slices.Concat(candidate.Full, candidate.Short) {
		if sim := similarity(folded, normalize(name)); sim > best {
			best = sim
		}
	}
	if best < fuzzyFloor {
		return 0, ""
	}
	return fuzzyLow + (fuzzyHigh-fuzzyLow)*(best-fuzzyFloor)/(1-fuzzyFloor), TierFuzzy
}

// normalize folds case, diacritics and punctuation, then drops leading
// determiners.
func normalize(text string) string {
	words := textutil.Words(text)
	for len(words) > 1 {
		if _, ok := determiners[words[0]]; !ok {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}

// similarity is Jaro-Winkler on the folded forms, raised by token cosine
// when either side has several words so reordered names still compare well.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	sim := textutil.JaroWinkler(a, b)
	if strings.Contains(a, " ") || strings.Contains(b, " ") {
		cos := textutil.CosineSimilarity(textutil.FingerprintOf(strings.Fields(a)), textutil.FingerprintOf(strings.Fields(b)))
		sim = max(sim, cos)
	}
	return sim
}
