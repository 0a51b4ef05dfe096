package stage_test

import (
	"errors"
	"testing"

	"sideline/internal/services"
	"sideline/internal/stage"
	"sideline/internal/store"
)

func TestRequireArtifactRejectsMissingOwner(t *testing.T) {
	err := stage.RequireArtifact("extraction", &store.Artifact{ID: "a1", OrgID: "org"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := stage.RequireArtifact("extraction", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for nil artifact, got %v", err)
	}
}

func TestRequireArtifactAcceptsOwnedArtifact(t *testing.T) {
	if err := stage.RequireArtifact("extraction", &store.Artifact{ID: "a1", OrgID: "org", CoachID: "coach"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthConstructors(t *testing.T) {
	if h := stage.Healthy("drafting"); !h.Ready || h.Name != "drafting" {
		t.Fatalf("unexpected healthy record: %+v", h)
	}
	if h := stage.Unhealthy("transcription", "no route"); h.Ready || h.Detail != "no route" {
		t.Fatalf("unexpected unhealthy record: %+v", h)
	}
}

func TestHealthFromError(t *testing.T) {
	if h := stage.FromError("extraction", nil); !h.Ready || h.Detail != "" {
		t.Fatalf("expected ready record, got %+v", h)
	}
	if h := stage.FromError("extraction", errors.New("route missing")); h.Ready || h.Detail != "route missing" {
		t.Fatalf("expected unhealthy record, got %+v", h)
	}
	if h := stage.Degraded("resolution", "hints off"); !h.Ready || h.Detail != "hints off" {
		t.Fatalf("expected degraded record to stay ready, got %+v", h)
	}
}
