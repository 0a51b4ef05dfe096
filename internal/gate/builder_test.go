package gate_test

import (
	"context"
	"testing"

	"sideline/internal/drafts"
	"sideline/internal/gate"
	"sideline/internal/logging"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

type fixture struct {
	store   *store.Store
	manager *drafts.Manager
	builder *gate.Builder
}

func newFixture(t *testing.T, autoApply bool) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAutoApply(autoApply))
	st := testsupport.MustOpenStore(t, cfg)
	manager := drafts.NewManager(st, drafts.PolicyFromConfig(cfg), logging.NewNop())
	return &fixture{
		store:   st,
		manager: manager,
		builder: gate.NewBuilder(st, manager, cfg.Drafts.AutoApply, logging.NewNop()),
	}
}

func (f *fixture) seedClaims(t *testing.T, claims ...*store.Claim) *store.Artifact {
	t.Helper()
	artifact := testsupport.NewTextArtifact(t, f.store, "note")
	if err := f.store.ReplaceClaims(context.Background(), artifact.ID, claims); err != nil {
		t.Fatalf("ReplaceClaims: %v", err)
	}
	return artifact
}

func samClaim(topic store.Topic, extraction float64) *store.Claim {
	return &store.Claim{
		Topic:                topic,
		Title:                "Rolled ankle",
		Snippet:              "Sam rolled his ankle at the end",
		RecommendedAction:    "Ice and rest",
		Severity:             store.SeverityMedium,
		PlayerID:             "player-sam",
		TeamID:               "team-lions",
		ExtractionConfidence: extraction,
		ResolutionConfidence: 0.95,
		Resolutions: []store.MentionResolution{
			{Mention: "Sam", Kind: store.MentionPlayer, Outcome: store.OutcomeMatched, RefID: "player-sam", DisplayName: "Sam Okafor", Confidence: 0.95},
		},
		Status: store.ClaimResolved,
	}
}

func TestDraftArtifactRequiresConfirmationByDefault(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	artifact := f.seedClaims(t, samClaim(store.TopicPerformance, 0.99), samClaim(store.TopicInjury, 0.99))

	if err := f.builder.DraftArtifact(ctx, artifact); err != nil {
		t.Fatalf("DraftArtifact: %v", err)
	}
	built, err := f.store.DraftsForArtifact(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("DraftsForArtifact: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(built))
	}
	for _, d := range built {
		if d.Status != store.DraftPending || !d.RequiresConfirmation {
			t.Fatalf("coach without auto-approval got %s requires=%v", d.Status, d.RequiresConfirmation)
		}
		if d.PlayerName != "Sam Okafor" {
			t.Fatalf("player name = %q", d.PlayerName)
		}
	}

	// Re-running reconciles instead of duplicating.
	if err := f.builder.DraftArtifact(ctx, artifact); err != nil {
		t.Fatalf("DraftArtifact rerun: %v", err)
	}
	again, _ := f.store.DraftsForArtifact(ctx, artifact.ID)
	if len(again) != 2 {
		t.Fatalf("rerun produced %d drafts", len(again))
	}
}

func TestDraftArtifactAutoApproves(t *testing.T) {
	tests := []struct {
		name      string
		autoApply bool
		want      store.DraftStatus
		insights  int
	}{
		{name: "confirm and apply", autoApply: true, want: store.DraftApplied, insights: 1},
		{name: "confirm only", autoApply: false, want: store.DraftConfirmed, insights: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.autoApply)
			ctx := context.Background()
			if err := f.manager.SaveSettings(ctx, store.CoachSettings{
				OrgID: testsupport.OrgID, CoachID: testsupport.CoachID, AutoApprove: true, Threshold: 0.9,
			}); err != nil {
				t.Fatalf("SaveSettings: %v", err)
			}
			artifact := f.seedClaims(t, samClaim(store.TopicInjury, 0.99), samClaim(store.TopicPerformance, 0.7))

			if err := f.builder.DraftArtifact(ctx, artifact); err != nil {
				t.Fatalf("DraftArtifact: %v", err)
			}
			built, _ := f.store.DraftsForArtifact(ctx, artifact.ID)
			var high, low *store.Draft
			for _, d := range built {
				if d.InsightType == store.TopicInjury {
					high = d
				} else {
					low = d
				}
			}
			if high == nil || low == nil {
				t.Fatalf("expected both drafts, got %d", len(built))
			}
			if high.Status != tt.want || high.RequiresConfirmation {
				t.Fatalf("high confidence draft: status %s requires=%v", high.Status, high.RequiresConfirmation)
			}
			if low.Status != store.DraftPending || !low.RequiresConfirmation {
				t.Fatalf("low confidence draft: status %s requires=%v", low.Status, low.RequiresConfirmation)
			}
			count, err := f.store.CountInsights(ctx, high.ID)
			if err != nil {
				t.Fatalf("CountInsights: %v", err)
			}
			if count != tt.insights {
				t.Fatalf("insights = %d, want %d", count, tt.insights)
			}

			stats, err := f.manager.CoachStats(ctx, testsupport.OrgID, testsupport.CoachID)
			if err != nil {
				t.Fatalf("CoachStats: %v", err)
			}
			if stats.Reviewed != 0 || stats.Counts[store.EventAutoConfirmed] != 1 {
				t.Fatalf("auto confirmations must not count as reviews: %+v", stats)
			}
		})
	}
}

func TestDraftArtifactDiscardsUntargetedClaims(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	untargeted := samClaim(store.TopicTactical, 0.9)
	untargeted.PlayerID, untargeted.TeamID, untargeted.Resolutions = "", "", nil
	ambiguous := samClaim(store.TopicBehavior, 0.9)
	ambiguous.Status = store.ClaimNeedsDisambiguation
	artifact := f.seedClaims(t, untargeted, ambiguous)

	if err := f.builder.DraftArtifact(ctx, artifact); err != nil {
		t.Fatalf("DraftArtifact: %v", err)
	}
	built, _ := f.store.DraftsForArtifact(ctx, artifact.ID)
	if len(built) != 0 {
		t.Fatalf("expected no drafts, got %d", len(built))
	}
	claims, _ := f.store.ClaimsForArtifact(ctx, artifact.ID)
	for _, c := range claims {
		switch c.Topic {
		case store.TopicTactical:
			if c.Status != store.ClaimDiscarded || c.StatusReason != gate.SkipNoTarget {
				t.Fatalf("untargeted claim: %s %q", c.Status, c.StatusReason)
			}
		case store.TopicBehavior:
			if c.Status != store.ClaimNeedsDisambiguation {
				t.Fatalf("ambiguous claim should be left for the coach, got %s", c.Status)
			}
		}
	}
}

func TestDraftClaim(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	artifact := f.seedClaims(t, samClaim(store.TopicWellbeing, 0.8))
	claims, _ := f.store.ClaimsForArtifact(ctx, artifact.ID)

	draft, err := f.builder.DraftClaim(ctx, artifact, claims[0])
	if err != nil {
		t.Fatalf("DraftClaim: %v", err)
	}
	if draft == nil || draft.ClaimID != claims[0].ID || draft.Status != store.DraftPending {
		t.Fatalf("unexpected draft %+v", draft)
	}
	again, err := f.builder.DraftClaim(ctx, artifact, claims[0])
	if err != nil || again != nil {
		t.Fatalf("second DraftClaim should be a no-op, got %v %v", again, err)
	}
}

func TestStage(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	artifact := f.seedClaims(t, samClaim(store.TopicInjury, 0.9))
	handler := gate.NewStage(f.builder, logging.NewNop())

	if err := handler.Prepare(ctx, artifact); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, artifact); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	built, _ := f.store.DraftsForArtifact(ctx, artifact.ID)
	if len(built) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(built))
	}
	if health := handler.HealthCheck(ctx); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}
}
