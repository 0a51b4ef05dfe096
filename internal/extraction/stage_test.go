package extraction_test

import (
	"context"
	"testing"

	"sideline/internal/config"
	"sideline/internal/extraction"
	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/roster"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func TestStageReplacesClaimsOnRerun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRoster(t, st)
	testsupport.SeedRoutes(t, st, "openrouter", modelrouter.StageClaimExtraction)
	router := modelrouter.New(st, 0, logging.NewNop())
	provider := testsupport.NewFakeProvider()
	provider.Respond(modelrouter.StageClaimExtraction,
		`{"claims":[{"topic":"injury","title":"Ankle","snippet":"Sam rolled his ankle","mentions":["Sam"],"confidence":0.9},{"topic":"attendance","title":"Missed","snippet":"Liam missed training","mentions":["Liam"],"confidence":0.8}]}`,
		`{"claims":[{"topic":"injury","title":"Ankle","snippet":"Sam rolled his ankle","mentions":["Sam"],"confidence":0.9}]}`,
	)

	stg := extraction.NewStage(
		extraction.NewExtractor(testsupport.NewDispatcher(router, provider), extraction.PolicyFromConfig(cfg), nil),
		st,
		roster.NewDirectory(st, 0, nil),
		router,
		logging.NewNop(),
	)
	artifact := testsupport.NewTextArtifact(t, st, "Sam rolled his ankle. Liam missed training.")
	ctx := context.Background()

	if err := stg.Prepare(ctx, artifact); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	for run, want := range []int{2, 1} {
		if err := stg.Execute(ctx, artifact); err != nil {
			t.Fatalf("Execute run %d: %v", run, err)
		}
		claims, err := st.ClaimsForArtifact(ctx, artifact.ID)
		if err != nil {
			t.Fatalf("ClaimsForArtifact: %v", err)
		}
		if len(claims) != want {
			t.Fatalf("run %d: expected %d claims, got %d", run, want, len(claims))
		}
		if claims[0].Sequence != 1 || claims[0].Status != store.ClaimExtracted {
			t.Fatalf("unexpected first claim %+v", claims[0])
		}
	}

	calls := provider.Calls(modelrouter.StageClaimExtraction)
	if len(calls) != 2 {
		t.Fatalf("expected two model calls, got %d", len(calls))
	}
	if h := stg.HealthCheck(ctx); !h.Ready {
		t.Fatalf("expected healthy stage, got %+v", h)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.Default()
	policy := extraction.PolicyFromConfig(&cfg)
	if policy.MinConfidence != cfg.Extraction.MinConfidence || policy.MaxClaims != cfg.Extraction.MaxClaims {
		t.Fatalf("unexpected policy %+v", policy)
	}
}
