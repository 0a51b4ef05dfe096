package services_test

import (
	"context"
	"testing"

	"sideline/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithArtifactID(ctx, "a-1")
	ctx = services.WithOrgID(ctx, "org-1")
	ctx = services.WithStage(ctx, "extraction")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.ArtifactIDFromContext(ctx); !ok || id != "a-1" {
		t.Fatalf("unexpected artifact id: %v %v", id, ok)
	}
	if org, ok := services.OrgIDFromContext(ctx); !ok || org != "org-1" {
		t.Fatalf("unexpected org id: %v %v", org, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "extraction" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	ctx = services.WithArtifactID(ctx, "")
	if _, ok := services.ArtifactIDFromContext(ctx); ok {
		t.Fatal("expected no artifact value")
	}
}
