package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sideline/internal/modelrouter"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

const rosterYAML = `teams:
  - id: team-lions
    name: U12 Lions
players:
  - id: player-sam
    first_name: Sam
    last_name: Okafor
    teams: [team-lions]
staff: []
`

func TestCLIConfigInitAndValidate(t *testing.T) {
	target := filepath.Join(t.TempDir(), "sideline", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	env := setupCLITestEnv(t)
	requireContains(t, env.mustRun(t, "config", "validate"), "Configuration valid")
}

func TestCLIConfigShowRedactsSecrets(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "config", "show")
	requireContains(t, out, "[providers.openrouter]")
	requireContains(t, out, redacted)
	if strings.Contains(out, `api_key = 'test'`) || strings.Contains(out, `api_key = "test"`) {
		t.Fatalf("expected api key to be redacted:\n%s", out)
	}
}

func TestCLIModelsSetListHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	env.mustRun(t, "models", "set", modelrouter.StageClaimExtraction, "openrouter", "vendor/model-a", "--reason", "initial")
	env.mustRun(t, "models", "set", modelrouter.StageClaimExtraction, "openrouter", "vendor/model-b", "--max-tokens", "2048")

	list := env.mustRun(t, "models", "list")
	requireContains(t, list, "vendor/model-b")
	requireContains(t, list, "default")

	history := env.mustRun(t, "models", "history", modelrouter.StageClaimExtraction)
	requireContains(t, history, "openrouter/vendor/model-a")
	requireContains(t, history, "initial")

	if _, err := env.run(t, "models", "set", "summarize", "openrouter", "vendor/model"); err == nil {
		t.Fatal("expected unknown stage to be rejected")
	}

	env.mustRun(t, "models", "delete", modelrouter.StageClaimExtraction)
	requireContains(t, env.mustRun(t, "models", "list"), "No routes configured")
}

func TestCLIRosterImportAndSubmit(t *testing.T) {
	env := setupCLITestEnv(t)
	rosterPath := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(rosterPath, []byte(rosterYAML), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	requireContains(t, env.mustRun(t, "roster", "import", rosterPath), "Imported 1 teams, 1 players and 0 staff")

	out := env.mustRun(t, "submit", "--text", "Sam looked sharp in passing drills")
	requireContains(t, out, "Submitted artifact")
	id := strings.TrimSpace(strings.TrimPrefix(out, "Submitted artifact"))

	list := env.mustRun(t, "artifacts", "list", "--mine")
	requireContains(t, list, id)
	requireContains(t, list, string(store.StatusTranscribed))

	show := env.mustRun(t, "artifacts", "show", id)
	requireContains(t, show, "Sam looked sharp in passing drills")

	if _, err := env.run(t, "submit"); err == nil {
		t.Fatal("expected submit without input to fail")
	}
}

func TestCLIDraftReviewFlow(t *testing.T) {
	env := setupCLITestEnv(t)
	var draftID string
	env.withStore(t, func(st *store.Store) {
		testsupport.SeedRoster(t, st)
		_, draft := seedPendingDraft(t, st)
		draftID = draft.ID
	})

	list := env.mustRun(t, "drafts", "list")
	requireContains(t, list, draftID)
	requireContains(t, list, "Sam Okafor")

	if _, err := env.run(t, "--coach", testsupport.OtherCoachID, "drafts", "confirm", draftID); err == nil {
		t.Fatal("expected another coach's confirm to be denied")
	}

	requireContains(t, env.mustRun(t, "drafts", "confirm", draftID), string(store.DraftConfirmed))
	requireContains(t, env.mustRun(t, "drafts", "apply", draftID), "as insight")
	requireContains(t, env.mustRun(t, "drafts", "list"), "No pending drafts")

	stats := env.mustRun(t, "drafts", "stats")
	requireContains(t, stats, "Reviewed")
	requireContains(t, stats, "Events: "+string(store.EventConfirmed))

	env.mustRun(t, "drafts", "settings", "--auto-approve", "--threshold", "0.9")
	requireContains(t, env.mustRun(t, "drafts", "stats", "--json"), `"autoApprove": true`)
}

func TestCLIStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out := env.mustRun(t, "status")
	requireContains(t, out, "not running")
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "Route claim_extraction")
}

func TestCLIRequiresCoach(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Inbox.CoachID = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, err := env.run(t, "drafts", "list")
	if err == nil || !strings.Contains(err.Error(), "coach is required") {
		t.Fatalf("expected coach requirement error, got %v", err)
	}
}

func TestCLILogsFiltersArtifact(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := "INFO artifact_id=art-1 extracting\nINFO artifact_id=art-2 extracting\nINFO artifact_id=art-1 drafted\n"
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "sideline.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := env.mustRun(t, "logs", "--artifact", "art-1")
	requireContains(t, out, "art-1 extracting")
	requireContains(t, out, "art-1 drafted")
	if strings.Contains(out, "art-2") {
		t.Fatalf("expected art-2 lines to be filtered, got %q", out)
	}

	out = env.mustRun(t, "logs", "-n", "1")
	if strings.TrimSpace(out) != "INFO artifact_id=art-1 drafted" {
		t.Fatalf("unexpected tail output %q", out)
	}
}
