package resolver

import (
	"fmt"
	"math"
	"strings"

	"sideline/internal/roster"
	"sideline/internal/store"
	"sideline/internal/textutil"
)

// hintWeight scales the score of a roster name suggested by the model, so a
// hinted match never outranks one the matcher found on its own.
const hintWeight = 0.75

// Hints maps normalized mentions to roster names suggested by a model.
type Hints map[string]string

func (h Hints) lookup(mention string) (string, bool) {
	if len(h) == 0 {
		return "", false
	}
	name, ok := h[normalize(mention)]
	return name, ok && strings.TrimSpace(name) != ""
}

// ResolveClaim resolves every mention in claim against snap and updates the
// claim's targets, per-mention resolutions, resolution confidence and status.
//
// Teams are matched first; a resolved team narrows player candidates to its
// roster. Mentions that match no team are tried against players, then staff.
// The claim needs disambiguation when any mention is ambiguous; otherwise it
// is resolved, with confidence equal to the weakest matched mention.
func ResolveClaim(claim *store.Claim, snap *roster.Snapshot, policy Policy, hints Hints) {
	claim.PlayerID, claim.TeamID, claim.AssigneeID = "", "", ""
	resolutions := make([]store.MentionResolution, len(claim.Mentions))

	teams := TeamCandidates(snap)
	var remaining []int
	for i, mention := range claim.Mentions {
		res := Resolve(mention, teams, policy)
		if res.Outcome == store.OutcomeNoMatch {
			remaining = append(remaining, i)
			continue
		}
		resolutions[i] = record(res, store.MentionTeam)
		if res.Outcome == store.OutcomeMatched && claim.TeamID == "" {
			claim.TeamID = res.Best.Candidate.ID
		}
	}

	players := snap.Players
	if claim.TeamID != "" {
		players = snap.PlayersOnTeam(claim.TeamID)
	}
	playerCandidates := PlayerCandidates(players)
	staffCandidates := StaffCandidates(snap.Staff)
	for _, i := range remaining {
		mention := claim.Mentions[i]
		res, kind := match(mention, playerCandidates, policy, hints), store.MentionPlayer
		if res.Outcome == store.OutcomeNoMatch {
			res, kind = match(mention, staffCandidates, policy, hints), store.MentionStaff
		}
		resolutions[i] = record(res, kind)
		if res.Outcome != store.OutcomeMatched {
			continue
		}
		switch kind {
		case store.MentionPlayer:
			if claim.PlayerID == "" {
				claim.PlayerID = res.Best.Candidate.ID
			}
		case store.MentionStaff:
			if claim.AssigneeID == "" {
				claim.AssigneeID = res.Best.Candidate.ID
			}
		}
	}

	// A player resolved without team context inherits a team only when they
	// play for exactly one.
	if claim.PlayerID != "" && claim.TeamID == "" {
		if player, ok := snap.Player(claim.PlayerID); ok && len(player.TeamIDs) == 1 {
			claim.TeamID = player.TeamIDs[0]
		}
	}

	claim.Resolutions = resolutions
	claim.ResolutionConfidence = 0
	lowest := math.Inf(1)
	var ambiguous []string
	for _, res := range resolutions {
		switch res.Outcome {
		case store.OutcomeMatched:
			lowest = math.Min(lowest, res.Confidence)
		case store.OutcomeAmbiguous:
			ambiguous = append(ambiguous, res.Mention)
		}
	}
	if !math.IsInf(lowest, 1) {
		claim.ResolutionConfidence = lowest
	}
	if len(ambiguous) > 0 {
		claim.Status = store.ClaimNeedsDisambiguation
		claim.StatusReason = fmt.Sprintf("ambiguous mention %q", strings.Join(ambiguous, `", "`))
		return
	}
	claim.Status = store.ClaimResolved
	claim.StatusReason = ""
}

// match resolves mention, falling back to a model hint when the matcher finds
// nothing. The hinted name must itself match one candidate outright.
func match(mention string, candidates []Candidate, policy Policy, hints Hints) Result {
	res := Resolve(mention, candidates, policy)
	if res.Outcome != store.OutcomeNoMatch {
		return res
	}
	name, ok := hints.lookup(mention)
	if !ok {
		return res
	}
	hinted := Resolve(name, candidates, policy)
	if hinted.Outcome != store.OutcomeMatched {
		return res
	}
	score := hinted.Best.Score * hintWeight
	if score < policy.MinConfidence {
		return res
	}
	return Result{
		Mention: mention,
		Outcome: store.OutcomeMatched,
		Best:    Scored{Candidate: hinted.Best.Candidate, Score: score, Tier: TierModelHint},
	}
}

func record(res Result, kind store.MentionKind) store.MentionResolution {
	out := store.MentionResolution{Mention: res.Mention, Outcome: res.Outcome}
	switch res.Outcome {
	case store.OutcomeMatched:
		out.Kind = kind
		out.RefID = res.Best.Candidate.ID
		out.DisplayName = res.Best.Candidate.DisplayName
		out.Confidence = res.Best.Score
		out.Tier = res.Best.Tier
	case store.OutcomeAmbiguous:
		out.Kind = kind
		out.Confidence = res.Tied[0].Score
		out.Tier = res.Tied[0].Tier
		for _, tied := range res.Tied {
			out.Candidates = append(out.Candidates, store.CandidateRef{
				ID:    tied.Candidate.ID,
				Name:  tied.Candidate.DisplayName,
				Score: tied.Score,
			})
		}
	}
	return out
}

// MergeDuplicates marks later resolved claims that repeat an earlier one
// (same topic, same target, same normalized title) as merged into it.
// claims must be in sequence order. It returns the number merged.
func MergeDuplicates(claims []*store.Claim) int {
	first := make(map[string]*store.Claim, len(claims))
	merged := 0
	for _, claim := range claims {
		if claim.Status != store.ClaimResolved {
			continue
		}
		target := claim.PlayerID
		if target == "" {
			target = "team:" + claim.TeamID
		}
		if target == "team:" {
			continue
		}
		key := string(claim.Topic) + "|" + target + "|" + textutil.Fold(claim.Title)
		if original, dup := first[key]; dup {
			claim.Status = store.ClaimMerged
			claim.MergedInto = original.ID
			claim.StatusReason = fmt.Sprintf("duplicate of claim %d", original.Sequence)
			merged++
			continue
		}
		first[key] = claim
	}
	return merged
}

// unmatchedMentions lists distinct mentions with no match across claims.
func unmatchedMentions(claims []*store.Claim) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, claim := range claims {
		for _, res := range claim.Resolutions {
			if res.Outcome != store.OutcomeNoMatch {
				continue
			}
			key := normalize(res.Mention)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, res.Mention)
		}
	}
	return out
}
