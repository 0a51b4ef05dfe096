package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sideline/internal/config"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Inbox.OrgID = testsupport.OrgID
	cfg.Inbox.CoachID = testsupport.CoachID

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

// withStore opens the environment's database for seeding and closes it
// before the CLI runs.
func (e *cliTestEnv) withStore(t *testing.T, fn func(*store.Store)) {
	t.Helper()
	st, err := store.Open(e.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	fn(st)
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, e.configPath)
	return out, err
}

func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args, e.configPath)
	if err != nil {
		t.Fatalf("sideline %s: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, out, stderr)
	}
	return out
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seedPendingDraft stores an artifact with one resolved claim and its
// pending draft.
func seedPendingDraft(t *testing.T, st *store.Store) (*store.Artifact, *store.Draft) {
	t.Helper()
	ctx := context.Background()
	artifact := testsupport.NewTextArtifact(t, st, "Sam rolled his ankle")
	claim := &store.Claim{
		Topic:                store.TopicInjury,
		Title:                "Rolled ankle",
		Snippet:              "Sam rolled his ankle",
		Severity:             store.SeverityHigh,
		PlayerID:             "player-sam",
		ExtractionConfidence: 0.9,
		ResolutionConfidence: 0.95,
		Status:               store.ClaimResolved,
	}
	if err := st.ReplaceClaims(ctx, artifact.ID, []*store.Claim{claim}); err != nil {
		t.Fatalf("ReplaceClaims: %v", err)
	}
	draft := &store.Draft{
		ArtifactID:           artifact.ID,
		ClaimID:              claim.ID,
		OrgID:                artifact.OrgID,
		CoachID:              artifact.CoachID,
		PlayerID:             "player-sam",
		PlayerName:           "Sam Okafor",
		InsightType:          store.TopicInjury,
		Title:                claim.Title,
		Description:          claim.Snippet,
		DisplayOrder:         1,
		ExtractionConfidence: 0.9,
		ResolutionConfidence: 0.95,
		OverallConfidence:    0.855,
		RequiresConfirmation: true,
		CreatedAt:            time.Now().UTC(),
	}
	if ok, err := st.InsertDraft(ctx, draft); err != nil || !ok {
		t.Fatalf("InsertDraft: %v %v", ok, err)
	}
	return artifact, draft
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}
