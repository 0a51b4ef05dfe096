package gate

import (
	"sideline/internal/store"
)

// topicOrder ranks topics for display; injury and wellbeing come first.
var topicOrder = []store.Topic{
	store.TopicInjury,
	store.TopicWellbeing,
	store.TopicRecovery,
	store.TopicPhysicalDevelopment,
	store.TopicBehavior,
	store.TopicAttendance,
	store.TopicPerformance,
	store.TopicSkillRating,
	store.TopicSkillProgress,
	store.TopicDevelopmentMilestone,
	store.TopicParentCommunication,
	store.TopicTactical,
	store.TopicTeamCulture,
	store.TopicSessionPlan,
	store.TopicTodo,
}

// TopicPriority returns the display rank of topic. Unknown topics sort last.
func TopicPriority(topic store.Topic) int {
	for i, t := range topicOrder {
		if t == topic {
			return i
		}
	}
	return len(topicOrder)
}

// DisplayOrder sorts drafts by topic priority, then by claim sequence.
func DisplayOrder(topic store.Topic, sequence int) int {
	return TopicPriority(topic)*1000 + sequence
}

// Skip reasons returned by Build.
const (
	SkipNotResolved = "claim is not resolved"
	SkipNoTarget    = "claim has no player or team target"
)

// Build turns a resolved claim into a pending draft. It returns a skip
// reason instead when the claim cannot produce a draft.
func Build(claim *store.Claim, artifact *store.Artifact, settings Settings) (*store.Draft, string) {
	if claim.Status != store.ClaimResolved {
		return nil, SkipNotResolved
	}
	if claim.PlayerID == "" && claim.TeamID == "" {
		return nil, SkipNoTarget
	}

	overall := Combine(claim.ExtractionConfidence, claim.ResolutionConfidence, settings.TrustBoost)
	return &store.Draft{
		ArtifactID:           artifact.ID,
		ClaimID:              claim.ID,
		OrgID:                artifact.OrgID,
		CoachID:              artifact.CoachID,
		PlayerID:             claim.PlayerID,
		PlayerName:           playerName(claim),
		TeamID:               claim.TeamID,
		InsightType:          claim.Topic,
		Title:                claim.Title,
		Description:          claim.Snippet,
		EvidenceSnippet:      claim.Snippet,
		EvidenceOffsetMS:     claim.AudioOffsetMS,
		DisplayOrder:         DisplayOrder(claim.Topic, claim.Sequence),
		ExtractionConfidence: claim.ExtractionConfidence,
		ResolutionConfidence: claim.ResolutionConfidence,
		OverallConfidence:    overall,
		RequiresConfirmation: RequiresConfirmation(overall, settings),
		Status:               store.DraftPending,
	}, ""
}

func playerName(claim *store.Claim) string {
	if claim.PlayerID == "" {
		return ""
	}
	for _, res := range claim.Resolutions {
		if res.Outcome == store.OutcomeMatched && res.RefID == claim.PlayerID && res.DisplayName != "" {
			return res.DisplayName
		}
	}
	return ""
}
