package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/stage"
	"sideline/internal/store"
	"sideline/internal/testsupport"
	"sideline/internal/workflow"
)

type stubStage struct {
	name string

	mu          sync.Mutex
	executeErrs []error
	calls       int
	executeHook func(*store.Artifact)
}

func newStubStage(name string, errs ...error) *stubStage {
	return &stubStage{name: name, executeErrs: errs}
}

func (s *stubStage) Prepare(context.Context, *store.Artifact) error { return nil }

func (s *stubStage) Execute(_ context.Context, artifact *store.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.executeHook != nil {
		s.executeHook(artifact)
	}
	if len(s.executeErrs) == 0 {
		return nil
	}
	err := s.executeErrs[0]
	if len(s.executeErrs) > 1 {
		s.executeErrs = s.executeErrs[1:]
	}
	return err
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name)
}

func (s *stubStage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func startManager(t *testing.T, cfg *config.Config, st *store.Store, set workflow.StageSet) *workflow.Manager {
	t.Helper()
	mgr := workflow.NewManager(cfg, st, logging.NewNop())
	mgr.ConfigureStages(set)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

func waitFor(t *testing.T, st *store.Store, id string, cond func(*store.Artifact) bool) *store.Artifact {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		artifact, err := st.GetArtifact(context.Background(), id)
		if err != nil {
			t.Fatalf("GetArtifact failed: %v", err)
		}
		if artifact != nil && cond(artifact) {
			return artifact
		}
		time.Sleep(20 * time.Millisecond)
	}
	artifact, _ := st.GetArtifact(context.Background(), id)
	t.Fatalf("timed out waiting for artifact %s; last state %+v", id, artifact)
	return nil
}

func hasStatus(status store.Status) func(*store.Artifact) bool {
	return func(a *store.Artifact) bool { return a.Status == status }
}

func TestManagerRunsArtifactThroughLanes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	extraction := newStubStage("extraction")
	resolution := newStubStage("resolution")
	drafting := newStubStage("drafting")
	mgr := startManager(t, cfg, st, workflow.StageSet{
		Transcription: newStubStage("transcription"),
		Extraction:    extraction,
		Resolution:    resolution,
		Drafting:      drafting,
	})

	artifact := testsupport.NewTextArtifact(t, st, "Sam rolled his ankle")
	mgr.Wake()
	done := waitFor(t, st, artifact.ID, hasStatus(store.StatusCompleted))

	if done.LastHeartbeat != nil {
		t.Fatalf("expected heartbeat cleared, got %v", done.LastHeartbeat)
	}
	for _, s := range []*stubStage{extraction, resolution, drafting} {
		if s.Calls() != 1 {
			t.Fatalf("stage %s ran %d times, want 1", s.name, s.Calls())
		}
	}
	status := mgr.Status(context.Background())
	if !status.Running || status.ArtifactStats[store.StatusCompleted] != 1 {
		t.Fatalf("unexpected status summary: %+v", status)
	}
	if len(status.StageHealth) != 4 {
		t.Fatalf("expected four stage health entries, got %d", len(status.StageHealth))
	}
}

func TestManagerRetriesTransientFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(3))
	st := testsupport.MustOpenStore(t, cfg)

	transient := services.Wrap(services.ErrTransient, "extraction", "complete", "provider busy", nil)
	extraction := newStubStage("extraction", transient, nil)
	startManager(t, cfg, st, workflow.StageSet{
		Extraction: extraction,
		Resolution: newStubStage("resolution"),
		Drafting:   newStubStage("drafting"),
	})

	artifact := testsupport.NewTextArtifact(t, st, "note")
	done := waitFor(t, st, artifact.ID, hasStatus(store.StatusCompleted))
	if extraction.Calls() != 2 {
		t.Fatalf("expected extraction to run twice, got %d", extraction.Calls())
	}
	if done.Attempts != 0 || done.ErrorMessage != "" {
		t.Fatalf("expected attempts and error reset after success, got %+v", done)
	}
}

func TestManagerFailsAfterMaxAttemptsAndRetryResumes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(2))
	st := testsupport.MustOpenStore(t, cfg)

	malformed := services.Wrap(services.ErrExtractionFailed, "extraction", "decode", "malformed payload", nil)
	resolution := newStubStage("resolution", malformed)
	startManager(t, cfg, st, workflow.StageSet{
		Extraction: newStubStage("extraction"),
		Resolution: resolution,
	})

	artifact := testsupport.NewTextArtifact(t, st, "note")
	failed := waitFor(t, st, artifact.ID, hasStatus(store.StatusFailed))
	if failed.Attempts != 2 {
		t.Fatalf("expected two attempts, got %d", failed.Attempts)
	}
	if failed.ResumeStatus != store.StatusExtracted {
		t.Fatalf("expected resume at extracted, got %q", failed.ResumeStatus)
	}
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}

	if n, err := st.RetryFailed(context.Background(), artifact.ID); err != nil || n != 1 {
		t.Fatalf("RetryFailed = %d, %v", n, err)
	}
	waitFor(t, st, artifact.ID, func(a *store.Artifact) bool {
		return a.Status == store.StatusFailed && resolution.Calls() == 4
	})
}

func TestManagerHaltsWhenNotConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(1))
	st := testsupport.MustOpenStore(t, cfg)

	missing := services.Wrap(services.ErrNotConfigured, "extraction", "resolve route", "no model for claim_extraction", nil)
	extraction := newStubStage("extraction", missing, nil)
	startManager(t, cfg, st, workflow.StageSet{Extraction: extraction})

	artifact := testsupport.NewTextArtifact(t, st, "note")
	halted := waitFor(t, st, artifact.ID, func(a *store.Artifact) bool { return a.Halted })
	if halted.Status != store.StatusTranscribed {
		t.Fatalf("expected halt at transcribed, got %q", halted.Status)
	}
	if halted.Attempts != 0 {
		t.Fatalf("halt must not spend attempts, got %d", halted.Attempts)
	}

	time.Sleep(50 * time.Millisecond)
	if extraction.Calls() != 1 {
		t.Fatalf("halted artifact must not be picked up again, got %d calls", extraction.Calls())
	}

	if _, err := st.ReleaseHalted(context.Background(), store.StatusTranscribed); err != nil {
		t.Fatalf("ReleaseHalted failed: %v", err)
	}
	waitFor(t, st, artifact.ID, hasStatus(store.StatusExtracted))
}

func TestManagerFailsValidationErrorsImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMaxAttempts(5))
	st := testsupport.MustOpenStore(t, cfg)

	invalid := services.Wrap(services.ErrValidation, "extraction", "load", "bad artifact", nil)
	extraction := newStubStage("extraction", invalid)
	startManager(t, cfg, st, workflow.StageSet{Extraction: extraction})

	artifact := testsupport.NewTextArtifact(t, st, "note")
	failed := waitFor(t, st, artifact.ID, hasStatus(store.StatusFailed))
	if failed.Attempts != 0 || extraction.Calls() != 1 {
		t.Fatalf("expected immediate failure, attempts=%d calls=%d", failed.Attempts, extraction.Calls())
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, st, nil)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error without configured stages")
	}
}
