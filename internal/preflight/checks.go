package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"sideline/internal/config"
	"sideline/internal/modelrouter"
	"sideline/internal/services"
	"sideline/internal/services/llm"
	"sideline/internal/services/openai"
	"sideline/internal/store"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDatabase pings the artifact database and reports how many artifacts
// it holds.
func CheckDatabase(ctx context.Context, st *store.Store) Result {
	const name = "Database"
	if st == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	if err := st.Ping(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", st.Path(), err)}
	}
	stats, err := st.ArtifactStats(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", st.Path(), err)}
	}
	total := 0
	for _, n := range stats {
		total += n
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d artifacts)", st.Path(), total)}
}

// CheckRoute verifies that the default route for stage exists and names a
// provider with credentials. Transcription and entity resolution routes are
// optional: without them audio notes halt and resolution runs without hints.
func CheckRoute(ctx context.Context, cfg *config.Config, router *modelrouter.Router, stage string) (Result, modelrouter.Route) {
	name := "Route " + stage
	route, err := router.Resolve(ctx, stage, "")
	if err != nil {
		if errors.Is(err, services.ErrNotConfigured) {
			switch stage {
			case modelrouter.StageTranscription:
				return Result{Name: name, Passed: true, Detail: "not configured (audio notes will halt)"}, route
			case modelrouter.StageEntityResolution:
				return Result{Name: name, Passed: true, Detail: "not configured (resolution runs without hints)"}, route
			}
			return Result{Name: name, Detail: "not configured (run: sideline models set " + stage + ")"}, route
		}
		return Result{Name: name, Detail: err.Error()}, route
	}
	provider, ok := cfg.GetProvider(route.Provider)
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unknown provider)", route)}, route
	}
	if strings.TrimSpace(provider.APIKey) == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s API key missing)", route, route.Provider)}, route
	}
	return Result{Name: name, Passed: true, Detail: route.String()}, route
}

// CheckProvider verifies that the provider API is reachable and the key is
// valid. It uses a 30-second timeout and a single attempt (no retries).
func CheckProvider(ctx context.Context, provider config.ProviderConfig, model string) Result {
	name := "Provider " + provider.Name
	if strings.TrimSpace(provider.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var err error
	switch provider.Name {
	case config.ProviderOpenRouter:
		client := llm.NewClient(llm.Config{
			APIKey:         provider.APIKey,
			BaseURL:        provider.BaseURL,
			Referer:        provider.Referer,
			Title:          provider.Title,
			TimeoutSeconds: provider.TimeoutSeconds,
		}, llm.WithRetryMaxAttempts(1))
		err = client.HealthCheck(checkCtx, model)
	case config.ProviderOpenAI:
		var client *openai.Client
		client, err = openai.NewClient(openai.Config{
			APIKey:         provider.APIKey,
			BaseURL:        provider.BaseURL,
			TimeoutSeconds: provider.TimeoutSeconds,
		})
		if err == nil {
			err = client.HealthCheck(checkCtx)
		}
	default:
		return Result{Name: name, Detail: "unknown provider"}
	}
	if err != nil {
		return Result{Name: name, Detail: summarizeProviderError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// summarizeProviderError produces a human-readable summary for health check failures.
func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (provider unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (provider unreachable)"
	}
	return err.Error()
}

// DaemonProbe reports whether a daemon process is alive.
type DaemonProbe struct {
	Running bool
	PID     int
}

// ProbeDaemon reads the PID file and signals the process to see whether it
// still exists.
func ProbeDaemon(pidPath string) DaemonProbe {
	content, err := os.ReadFile(pidPath)
	if err != nil {
		return DaemonProbe{}
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || pid <= 0 {
		return DaemonProbe{}
	}
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		return DaemonProbe{PID: pid}
	}
	return DaemonProbe{Running: true, PID: pid}
}

// DaemonDetail renders a display-friendly summary for status output.
func (p DaemonProbe) DaemonDetail() string {
	switch {
	case p.Running:
		return fmt.Sprintf("running (pid %d)", p.PID)
	case p.PID > 0:
		return fmt.Sprintf("not running (stale pid %d)", p.PID)
	default:
		return "not running"
	}
}
