package testsupport

import (
	"context"
	"testing"

	"sideline/internal/config"
	"sideline/internal/store"
)

// Test fixture identifiers.
const (
	OrgID   = "org-harbor"
	CoachID = "coach-riley"
	// OtherCoachID belongs to the same org but never owns fixture artifacts.
	OtherCoachID = "coach-morgan"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewTextArtifact creates a typed-note artifact owned by the fixture coach.
func NewTextArtifact(t testing.TB, st *store.Store, transcript string) *store.Artifact {
	t.Helper()

	artifact, err := st.NewArtifact(context.Background(), store.ArtifactInput{
		OrgID:      OrgID,
		CoachID:    CoachID,
		MediaKind:  store.MediaText,
		Transcript: transcript,
	})
	if err != nil {
		t.Fatalf("store.NewArtifact: %v", err)
	}
	return artifact
}

// SetStatus forces an artifact into status.
func SetStatus(t testing.TB, st *store.Store, artifact *store.Artifact, status store.Status) {
	t.Helper()

	artifact.Status = status
	if err := st.UpdateArtifact(context.Background(), artifact); err != nil {
		t.Fatalf("store.UpdateArtifact: %v", err)
	}
}

// SeedRoutes configures a platform default for every stage on provider.
func SeedRoutes(t testing.TB, st *store.Store, provider string, stages ...string) {
	t.Helper()

	if len(stages) == 0 {
		stages = []string{"transcription", "claim_extraction", "entity_resolution"}
	}
	for _, stage := range stages {
		_, err := st.UpsertModelConfig(context.Background(), store.ModelConfig{
			Stage:    stage,
			Provider: provider,
			ModelID:  "test/" + stage,
			Active:   true,
		}, "test", "fixture")
		if err != nil {
			t.Fatalf("seed route %s: %v", stage, err)
		}
	}
}
