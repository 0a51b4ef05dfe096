package modelrouter_test

import (
	"context"
	"errors"
	"testing"

	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/services"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func newRouter(t *testing.T) (*modelrouter.Router, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return modelrouter.New(st, 0, logging.NewNop()), st
}

func upsert(t *testing.T, r *modelrouter.Router, mc store.ModelConfig) *store.ModelConfigChange {
	t.Helper()
	change, err := r.Upsert(context.Background(), mc, "ops", "test")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return change
}

func TestResolvePrefersActiveOrgOverride(t *testing.T) {
	r, _ := newRouter(t)
	ctx := context.Background()
	upsert(t, r, store.ModelConfig{Stage: modelrouter.StageClaimExtraction, Provider: "openrouter", ModelID: "base/model", Active: true})
	upsert(t, r, store.ModelConfig{Stage: modelrouter.StageClaimExtraction, OrgID: "org-a", Provider: "openai", ModelID: "gpt-4o-mini", Active: true})
	upsert(t, r, store.ModelConfig{Stage: modelrouter.StageClaimExtraction, OrgID: "org-b", Provider: "openai", ModelID: "disabled", Active: false})

	cases := []struct {
		org      string
		want     string
		override bool
	}{
		{"org-a", "openai/gpt-4o-mini", true},
		{"org-b", "openrouter/base/model", false},
		{"org-c", "openrouter/base/model", false},
		{"", "openrouter/base/model", false},
	}
	for _, tc := range cases {
		route, err := r.Resolve(ctx, modelrouter.StageClaimExtraction, tc.org)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tc.org, err)
		}
		if route.String() != tc.want || route.Override != tc.override {
			t.Fatalf("Resolve(%q) = %s override=%v, want %s override=%v", tc.org, route, route.Override, tc.want, tc.override)
		}
	}
}

func TestResolveWithoutConfigIsNotConfiguredUntilUpsert(t *testing.T) {
	r, _ := newRouter(t)
	ctx := context.Background()

	_, err := r.Resolve(ctx, modelrouter.StageEntityResolution, "org-a")
	if !errors.Is(err, services.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	// The negative result is cached; a write must invalidate it.
	upsert(t, r, store.ModelConfig{Stage: modelrouter.StageEntityResolution, Provider: "openrouter", ModelID: "hint/model", Active: true})
	route, err := r.Resolve(ctx, modelrouter.StageEntityResolution, "org-a")
	if err != nil {
		t.Fatalf("Resolve after upsert: %v", err)
	}
	if route.ModelID != "hint/model" {
		t.Fatalf("unexpected route %s", route)
	}
}

func TestResolveRejectsUnknownStage(t *testing.T) {
	r, _ := newRouter(t)
	if _, err := r.Resolve(context.Background(), "summarize", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpsertValidatesBeforeWriting(t *testing.T) {
	r, _ := newRouter(t)
	ctx := context.Background()
	bad := []store.ModelConfig{
		{Stage: "summarize", Provider: "openrouter", ModelID: "m"},
		{Stage: modelrouter.StageTranscription, Provider: "acme", ModelID: "m"},
		{Stage: modelrouter.StageTranscription, Provider: "openai", ModelID: " "},
		{Stage: modelrouter.StageTranscription, Provider: "openai", ModelID: "m", Temperature: 3},
		{Stage: modelrouter.StageTranscription, Provider: "openai", ModelID: "m", MaxTokens: -1},
	}
	for _, mc := range bad {
		if _, err := r.Upsert(ctx, mc, "ops", "bad"); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Upsert(%+v) expected validation error, got %v", mc, err)
		}
	}
	history, err := r.History(ctx, "", "", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("rejected writes must not log changes, got %d", len(history))
	}
}

func TestUpsertAndDeleteAppendOneChangeEach(t *testing.T) {
	r, _ := newRouter(t)
	ctx := context.Background()
	mc := store.ModelConfig{Stage: modelrouter.StageTranscription, Provider: "openai", ModelID: "whisper-1", Active: true}
	first := upsert(t, r, mc)
	if first.Previous != nil || first.Next == nil || first.Action != store.ConfigUpsert {
		t.Fatalf("unexpected first change %+v", first)
	}
	mc.ModelID = "gpt-4o-transcribe"
	second := upsert(t, r, mc)
	if second.Previous == nil || second.Previous.ModelID != "whisper-1" || second.Next.ModelID != "gpt-4o-transcribe" {
		t.Fatalf("unexpected second change %+v", second)
	}

	deleted, err := r.Delete(ctx, modelrouter.StageTranscription, "", "ops", "retire")
	if err != nil || deleted == nil || deleted.Action != store.ConfigDelete {
		t.Fatalf("Delete = %+v, %v", deleted, err)
	}
	missing, err := r.Delete(ctx, modelrouter.StageTranscription, "", "ops", "again")
	if err != nil || missing != nil {
		t.Fatalf("deleting a missing config = %+v, %v", missing, err)
	}

	history, err := r.History(ctx, modelrouter.StageTranscription, "", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected three change rows, got %d", len(history))
	}
	if history[0].Action != store.ConfigDelete || history[0].Actor != "ops" || history[0].Reason != "retire" {
		t.Fatalf("expected newest change first, got %+v", history[0])
	}
	if _, err := r.Resolve(ctx, modelrouter.StageTranscription, ""); !errors.Is(err, services.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured after delete, got %v", err)
	}
}

func TestUpsertReleasesHaltedArtifacts(t *testing.T) {
	r, st := newRouter(t)
	ctx := context.Background()

	artifact := testsupport.NewTextArtifact(t, st, "note")
	artifact.Halted = true
	artifact.ErrorMessage = "not configured"
	if err := st.UpdateArtifact(ctx, artifact); err != nil {
		t.Fatalf("UpdateArtifact: %v", err)
	}

	upsert(t, r, store.ModelConfig{Stage: modelrouter.StageTranscription, Provider: "openai", ModelID: "whisper-1", Active: true})
	still, _ := st.GetArtifact(ctx, artifact.ID)
	if !still.Halted {
		t.Fatal("transcription config must not release an artifact halted at extraction")
	}

	upsert(t, r, store.ModelConfig{Stage: modelrouter.StageClaimExtraction, Provider: "openrouter", ModelID: "x", Active: true})
	released, _ := st.GetArtifact(ctx, artifact.ID)
	if released.Halted || released.ErrorMessage != "" {
		t.Fatalf("expected artifact released, got %+v", released)
	}
}
