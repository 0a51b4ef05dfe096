package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewTextArtifact(t, st, "Sam looked sharp")

	result := CheckDatabase(context.Background(), st)
	if !result.Passed || !strings.Contains(result.Detail, "1 artifacts") {
		t.Fatalf("unexpected result %+v", result)
	}
	if CheckDatabase(context.Background(), nil).Passed {
		t.Fatal("expected failure without a store")
	}
}

func TestCheckRoute(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Providers.OpenAI.APIKey = ""
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRoutes(t, st, config.ProviderOpenRouter, modelrouter.StageClaimExtraction)
	testsupport.SeedRoutes(t, st, config.ProviderOpenAI, modelrouter.StageTranscription)
	router := modelrouter.New(st, 0, logging.NewNop())
	ctx := context.Background()

	if result, route := CheckRoute(ctx, cfg, router, modelrouter.StageClaimExtraction); !result.Passed || route.ModelID != "test/claim_extraction" {
		t.Fatalf("extraction route: %+v %+v", result, route)
	}
	if result, _ := CheckRoute(ctx, cfg, router, modelrouter.StageTranscription); result.Passed {
		t.Fatalf("expected missing openai key to fail, got %+v", result)
	}
	if result, _ := CheckRoute(ctx, cfg, router, modelrouter.StageEntityResolution); !result.Passed || !strings.Contains(result.Detail, "not configured") {
		t.Fatalf("optional route should pass when absent, got %+v", result)
	}
}

func TestCheckRouteRequiresExtraction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	router := modelrouter.New(st, 0, logging.NewNop())

	result, _ := CheckRoute(context.Background(), cfg, router, modelrouter.StageClaimExtraction)
	if result.Passed {
		t.Fatalf("expected missing extraction route to fail, got %+v", result)
	}
}

func TestCheckProvider_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	result := CheckProvider(context.Background(), config.ProviderConfig{
		Name:    config.ProviderOpenRouter,
		APIKey:  "good-key",
		BaseURL: srv.URL,
	}, "test/model")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckProvider_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckProvider(context.Background(), config.ProviderConfig{
		Name:    config.ProviderOpenRouter,
		APIKey:  "bad-key",
		BaseURL: srv.URL,
	}, "test/model")
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
}

func TestCheckProvider_MissingKey(t *testing.T) {
	result := CheckProvider(context.Background(), config.ProviderConfig{Name: config.ProviderOpenAI}, "")
	if result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestProbeDaemon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sidelined.pid")

	if probe := ProbeDaemon(path); probe.Running || probe.DaemonDetail() != "not running" {
		t.Fatalf("missing pid file: %+v", probe)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if probe := ProbeDaemon(path); !probe.Running || probe.PID != os.Getpid() {
		t.Fatalf("own pid should be running: %+v", probe)
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if probe := ProbeDaemon(path); probe.Running || probe.PID != 0 {
		t.Fatalf("garbage pid file: %+v", probe)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil, nil, Options{})
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReadyConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedRoutes(t, st, config.ProviderOpenRouter, modelrouter.StageClaimExtraction)

	results := RunAll(context.Background(), cfg, st, Options{})
	// data, log, audio directories + database + one route per stage
	if want := 4 + len(modelrouter.Stages()); len(results) != want {
		t.Fatalf("expected %d results, got %d", want, len(results))
	}
	if Failed(results) {
		for _, r := range results {
			if !r.Passed {
				t.Errorf("check %q failed: %s", r.Name, r.Detail)
			}
		}
	}
}

func TestRunAll_WithoutStoreStopsAfterDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInbox(testsupport.OrgID, testsupport.CoachID))

	results := RunAll(context.Background(), cfg, nil, Options{})
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if !Failed(results) {
		t.Fatal("expected failures without a database")
	}
}
