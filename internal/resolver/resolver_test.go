package resolver_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/resolver"
	"sideline/internal/roster"
	"sideline/internal/services"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

type recordingDrafter struct {
	claims []*store.Claim
}

func (d *recordingDrafter) DraftClaim(_ context.Context, artifact *store.Artifact, claim *store.Claim) (*store.Draft, error) {
	d.claims = append(d.claims, claim)
	return &store.Draft{ClaimID: claim.ID, ArtifactID: artifact.ID, PlayerID: claim.PlayerID, Status: store.DraftPending}, nil
}

type fixture struct {
	store    *store.Store
	provider *testsupport.FakeProvider
	drafter  *recordingDrafter
	resolver *resolver.Resolver
	router   *modelrouter.Router
}

func newFixture(t *testing.T, hintRoute bool) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRoster(t, st)
	if hintRoute {
		testsupport.SeedRoutes(t, st, "openrouter", modelrouter.StageEntityResolution)
	}
	router := modelrouter.New(st, 0, logging.NewNop())
	provider := testsupport.NewFakeProvider()
	drafter := &recordingDrafter{}
	r := resolver.NewResolver(st, roster.NewDirectory(st, 0, nil), testsupport.NewDispatcher(router, provider), drafter,
		resolver.OptionsFromConfig(cfg), logging.NewNop())
	return &fixture{store: st, provider: provider, drafter: drafter, resolver: r, router: router}
}

// seedClaims stores claims for a new artifact sitting at extracted.
func (f *fixture) seedClaims(t *testing.T, claims ...*store.Claim) *store.Artifact {
	t.Helper()
	artifact := testsupport.NewTextArtifact(t, f.store, "note")
	testsupport.SetStatus(t, f.store, artifact, store.StatusExtracted)
	if err := f.store.ReplaceClaims(context.Background(), artifact.ID, claims); err != nil {
		t.Fatalf("ReplaceClaims: %v", err)
	}
	return artifact
}

func (f *fixture) claims(t *testing.T, artifactID string) []*store.Claim {
	t.Helper()
	claims, err := f.store.ClaimsForArtifact(context.Background(), artifactID)
	if err != nil {
		t.Fatalf("ClaimsForArtifact: %v", err)
	}
	return claims
}

func TestResolveArtifactPersistsOutcomes(t *testing.T) {
	f := newFixture(t, false)
	artifact := f.seedClaims(t,
		&store.Claim{Topic: store.TopicInjury, Title: "Ankle", Snippet: "Sam rolled his ankle", Mentions: []string{"Sam"}, ExtractionConfidence: 0.9},
		&store.Claim{Topic: store.TopicInjury, Title: "ankle", Snippet: "Sam's ankle again", Mentions: []string{"Sam"}, ExtractionConfidence: 0.8},
		&store.Claim{Topic: store.TopicBehavior, Title: "Late", Snippet: "Jamie late", Mentions: []string{"Jamie"}, ExtractionConfidence: 0.9},
		&store.Claim{Topic: store.TopicTodo, Title: "Noise", Snippet: "??", Status: store.ClaimDiscarded, StatusReason: "low"},
	)

	if err := f.resolver.ResolveArtifact(context.Background(), artifact); err != nil {
		t.Fatalf("ResolveArtifact: %v", err)
	}
	claims := f.claims(t, artifact.ID)
	want := []store.ClaimStatus{store.ClaimResolved, store.ClaimMerged, store.ClaimNeedsDisambiguation, store.ClaimDiscarded}
	for i, claim := range claims {
		if claim.Status != want[i] {
			t.Fatalf("claim %d status = %s, want %s", claim.Sequence, claim.Status, want[i])
		}
	}
	if claims[0].PlayerID != "player-sam" || claims[0].ResolutionConfidence != 0.95 || len(claims[0].Resolutions) != 1 {
		t.Fatalf("unexpected resolved claim %+v", claims[0])
	}
	if claims[0].ExtractionConfidence != 0.9 {
		t.Fatal("resolution must not touch extraction confidence")
	}
	if claims[1].MergedInto != claims[0].ID {
		t.Fatalf("expected merge into first claim, got %q", claims[1].MergedInto)
	}
	if len(claims[2].Resolutions[0].Candidates) != 2 {
		t.Fatalf("expected stored candidates, got %+v", claims[2].Resolutions)
	}
	if claims[3].StatusReason != "low" {
		t.Fatal("discarded claims must be left alone")
	}
	if calls := f.provider.Calls(""); len(calls) != 0 {
		t.Fatalf("expected no model calls with hints disabled by missing route, got %d", len(calls))
	}
}

func TestResolveArtifactUsesModelHints(t *testing.T) {
	f := newFixture(t, true)
	f.provider.Respond(modelrouter.StageEntityResolution, `{"hints":[{"mention":"the new lad","name":"Sam Okafor"},{"mention":"Tommo","name":null}]}`)
	artifact := f.seedClaims(t,
		&store.Claim{Topic: store.TopicPerformance, Title: "Good", Snippet: "new lad was good", Mentions: []string{"the new lad"}, ExtractionConfidence: 0.9},
		&store.Claim{Topic: store.TopicPerformance, Title: "Fine", Snippet: "Tommo fine", Mentions: []string{"Tommo"}, ExtractionConfidence: 0.9},
		&store.Claim{Topic: store.TopicPerformance, Title: "Zo", Snippet: "Zo scored", Mentions: []string{"Zo"}, ExtractionConfidence: 0.9},
	)

	if err := f.resolver.ResolveArtifact(context.Background(), artifact); err != nil {
		t.Fatalf("ResolveArtifact: %v", err)
	}
	claims := f.claims(t, artifact.ID)
	if claims[0].PlayerID != "player-sam" || claims[0].Resolutions[0].Tier != resolver.TierModelHint {
		t.Fatalf("expected hinted Sam, got %+v", claims[0].Resolutions)
	}
	if claims[1].Resolutions[0].Outcome != store.OutcomeNoMatch {
		t.Fatalf("expected Tommo to stay unmatched, got %+v", claims[1].Resolutions)
	}

	calls := f.provider.Calls(modelrouter.StageEntityResolution)
	if len(calls) != 1 {
		t.Fatalf("expected one batched hint call, got %d", len(calls))
	}
	if prompt := calls[0].Request.UserPrompt; !containsAll(prompt, "the new lad", "Tommo", "Sam Okafor") || containsAll(prompt, "- Zo\n") {
		t.Fatalf("unexpected hint prompt %q", prompt)
	}
}

func TestResolveArtifactIgnoresFailingHints(t *testing.T) {
	f := newFixture(t, true)
	f.provider.Respond(modelrouter.StageEntityResolution, "not json")
	artifact := f.seedClaims(t, &store.Claim{Topic: store.TopicInjury, Title: "x", Snippet: "x", Mentions: []string{"Tommo"}})

	if err := f.resolver.ResolveArtifact(context.Background(), artifact); err != nil {
		t.Fatalf("hint failures must not fail resolution: %v", err)
	}
	if got := f.claims(t, artifact.ID)[0]; got.Status != store.ClaimResolved {
		t.Fatalf("expected resolved claim with no match, got %s", got.Status)
	}
}

func TestDisambiguate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	artifact := f.seedClaims(t, &store.Claim{Topic: store.TopicInjury, Title: "Knee", Snippet: "Jamie's knee", Mentions: []string{"Jamie"}, ExtractionConfidence: 0.9})
	if err := f.resolver.ResolveArtifact(ctx, artifact); err != nil {
		t.Fatalf("ResolveArtifact: %v", err)
	}
	claimID := f.claims(t, artifact.ID)[0].ID

	if _, err := f.resolver.Disambiguate(ctx, claimID, testsupport.OtherCoachID, "player-jamie-l"); !errors.Is(err, services.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if got := f.claims(t, artifact.ID)[0]; got.Status != store.ClaimNeedsDisambiguation {
		t.Fatalf("denied disambiguation changed status to %s", got.Status)
	}
	if _, err := f.resolver.Disambiguate(ctx, claimID, testsupport.CoachID, "player-nobody"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown player, got %v", err)
	}
	if _, err := f.resolver.Disambiguate(ctx, "missing", testsupport.CoachID, "player-jamie-l"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	draft, err := f.resolver.Disambiguate(ctx, claimID, testsupport.CoachID, "player-jamie-l")
	if err != nil {
		t.Fatalf("Disambiguate: %v", err)
	}
	if draft == nil || draft.PlayerID != "player-jamie-l" || len(f.drafter.claims) != 1 {
		t.Fatalf("expected a draft built for the chosen player, got %+v", draft)
	}
	claim := f.claims(t, artifact.ID)[0]
	if claim.Status != store.ClaimResolved || claim.ResolutionConfidence != 1 || claim.TeamID != "team-hawks" {
		t.Fatalf("unexpected disambiguated claim %+v", claim)
	}
	if res := claim.Resolutions[0]; res.Outcome != store.OutcomeMatched || res.Tier != resolver.TierCoach {
		t.Fatalf("expected coach-matched mention, got %+v", res)
	}

	counts, err := f.store.CoachEventCounts(ctx, testsupport.OrgID, testsupport.CoachID, time.Time{})
	if err != nil {
		t.Fatalf("CoachEventCounts: %v", err)
	}
	if counts[store.EventDisambiguated] != 1 {
		t.Fatalf("expected one disambiguated event, got %v", counts)
	}

	if _, err := f.resolver.Disambiguate(ctx, claimID, testsupport.CoachID, "player-jamie-c"); !errors.Is(err, services.ErrAlreadyTerminal) {
		t.Fatalf("expected already terminal on second disambiguation, got %v", err)
	}
}

func TestStageRequiresSettledClaims(t *testing.T) {
	f := newFixture(t, false)
	stg := resolver.NewStage(f.resolver, f.router, logging.NewNop())
	artifact := f.seedClaims(t, &store.Claim{Topic: store.TopicInjury, Title: "x", Snippet: "x", Mentions: []string{"Sam"}})
	ctx := context.Background()

	if err := stg.Prepare(ctx, artifact); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := stg.Execute(ctx, artifact); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, claim := range f.claims(t, artifact.ID) {
		if !claim.Status.Settled() {
			t.Fatalf("claim left unsettled: %s", claim.Status)
		}
	}
	if h := stg.HealthCheck(ctx); !h.Ready || h.Detail == "" {
		t.Fatalf("expected ready stage noting disabled hints, got %+v", h)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
