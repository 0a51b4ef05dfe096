package api

import (
	"slices"
	"time"

	"sideline/internal/drafts"
	"sideline/internal/stage"
	"sideline/internal/store"
	"sideline/internal/workflow"
)

// FromArtifact converts an artifact record to its API representation. The
// transcript is included only when withTranscript is set.
func FromArtifact(a *store.Artifact, withTranscript bool) Artifact {
	if a == nil {
		return Artifact{}
	}
	dto := Artifact{
		ID:            a.ID,
		OrgID:         a.OrgID,
		CoachID:       a.CoachID,
		SourceChannel: a.SourceChannel,
		MediaKind:     string(a.MediaKind),
		Status:        string(a.Status),
		Attempts:      a.Attempts,
		ResumeStatus:  string(a.ResumeStatus),
		Halted:        a.Halted,
		ErrorMessage:  a.ErrorMessage,
		CreatedAt:     FormatTime(a.CreatedAt),
		UpdatedAt:     FormatTime(a.UpdatedAt),
	}
	if withTranscript {
		dto.Transcript = a.Transcript
	}
	return dto
}

// FromArtifacts converts a slice of artifacts without transcripts.
func FromArtifacts(artifacts []*store.Artifact) []Artifact {
	out := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a != nil {
			out = append(out, FromArtifact(a, false))
		}
	}
	return out
}

// FromClaim converts a claim and its mention resolutions.
func FromClaim(c *store.Claim) Claim {
	if c == nil {
		return Claim{}
	}
	dto := Claim{
		ID:                   c.ID,
		Sequence:             c.Sequence,
		Topic:                string(c.Topic),
		Title:                c.Title,
		Snippet:              c.Snippet,
		Severity:             string(c.Severity),
		Sentiment:            string(c.Sentiment),
		PlayerID:             c.PlayerID,
		TeamID:               c.TeamID,
		AssigneeID:           c.AssigneeID,
		ExtractionConfidence: c.ExtractionConfidence,
		ResolutionConfidence: c.ResolutionConfidence,
		Status:               string(c.Status),
		StatusReason:         c.StatusReason,
	}
	for _, res := range c.Resolutions {
		mention := Mention{
			Mention:     res.Mention,
			Kind:        string(res.Kind),
			Outcome:     string(res.Outcome),
			RefID:       res.RefID,
			DisplayName: res.DisplayName,
			Confidence:  res.Confidence,
		}
		for _, cand := range res.Candidates {
			mention.Candidates = append(mention.Candidates, Candidate{ID: cand.ID, Name: cand.Name, Score: cand.Score})
		}
		dto.Mentions = append(dto.Mentions, mention)
	}
	return dto
}

// FromDraft converts a draft record.
func FromDraft(d *store.Draft) Draft {
	if d == nil {
		return Draft{}
	}
	return Draft{
		ID:                   d.ID,
		ArtifactID:           d.ArtifactID,
		ClaimID:              d.ClaimID,
		PlayerID:             d.PlayerID,
		PlayerName:           d.PlayerName,
		TeamID:               d.TeamID,
		InsightType:          string(d.InsightType),
		Title:                d.Title,
		Description:          d.Description,
		EvidenceSnippet:      d.EvidenceSnippet,
		EvidenceOffsetMS:     d.EvidenceOffsetMS,
		DisplayOrder:         d.DisplayOrder,
		ExtractionConfidence: d.ExtractionConfidence,
		ResolutionConfidence: d.ResolutionConfidence,
		OverallConfidence:    d.OverallConfidence,
		RequiresConfirmation: d.RequiresConfirmation,
		Status:               string(d.Status),
		CreatedAt:            FormatTime(d.CreatedAt),
		ConfirmedAt:          formatOptional(d.ConfirmedAt),
		AppliedAt:            formatOptional(d.AppliedAt),
	}
}

// FromDrafts converts a slice of drafts, preserving order.
func FromDrafts(list []*store.Draft) []Draft {
	out := make([]Draft, 0, len(list))
	for _, d := range list {
		if d != nil {
			out = append(out, FromDraft(d))
		}
	}
	return out
}

// FromInsight converts an applied insight.
func FromInsight(in *store.Insight) Insight {
	if in == nil {
		return Insight{}
	}
	return Insight{
		ID:                in.ID,
		PlayerID:          in.PlayerID,
		TeamID:            in.TeamID,
		Category:          string(in.Category),
		Title:             in.Title,
		Description:       in.Description,
		RecommendedAction: in.RecommendedAction,
		Severity:          string(in.Severity),
		SourceArtifactID:  in.SourceArtifactID,
		DraftID:           in.DraftID,
		Confidence:        in.Confidence,
		CreatedAt:         FormatTime(in.CreatedAt),
	}
}

// FromStats converts derived coach statistics.
func FromStats(s drafts.Stats) CoachStats {
	events := make(map[string]int, len(s.Counts))
	for kind, n := range s.Counts {
		events[string(kind)] = n
	}
	return CoachStats{
		OrgID:              s.OrgID,
		CoachID:            s.CoachID,
		Events:             events,
		Reviewed:           s.Reviewed,
		ApprovalRate:       s.ApprovalRate,
		RejectionRate:      s.RejectionRate,
		BaseThreshold:      s.BaseThreshold,
		EffectiveThreshold: s.EffectiveThreshold,
		AutoApprove:        s.AutoApprove,
		Trusted:            s.Trusted,
		TrustBoost:         s.TrustBoost,
	}
}

// FromModelConfig converts a stage route row.
func FromModelConfig(mc *store.ModelConfig) ModelRoute {
	if mc == nil {
		return ModelRoute{}
	}
	return ModelRoute{
		Stage:       mc.Stage,
		OrgID:       mc.OrgID,
		Provider:    mc.Provider,
		ModelID:     mc.ModelID,
		MaxTokens:   mc.MaxTokens,
		Temperature: mc.Temperature,
		Active:      mc.Active,
		UpdatedBy:   mc.UpdatedBy,
		UpdatedAt:   FormatTime(mc.UpdatedAt),
	}
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:       summary.Running,
		ArtifactStats: MergeArtifactStats(summary.ArtifactStats),
		StageHealth:   StageHealthSlice(summary.StageHealth),
		LastError:     summary.LastError,
	}
	if summary.LastArtifact != nil {
		last := FromArtifact(summary.LastArtifact, false)
		wf.LastArtifact = &last
	}
	return wf
}

// MergeArtifactStats produces a string-keyed representation of status counts.
func MergeArtifactStats(stats map[store.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}
