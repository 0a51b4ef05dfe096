package preflight

import (
	"context"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/store"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options controls which checks RunAll performs.
type Options struct {
	// Probe issues a live request to each routed provider.
	Probe bool
}

// RunAll executes the preflight checks for the given config. st may be nil
// when the database could not be opened.
func RunAll(ctx context.Context, cfg *config.Config, st *store.Store, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Audio directory", cfg.Paths.AudioDir),
	}
	if cfg.Inbox.Enabled {
		results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir))
	}

	results = append(results, CheckDatabase(ctx, st))
	if st == nil {
		return results
	}

	router := modelrouter.New(st, 0, logging.NewNop())
	probed := make(map[string]bool)
	for _, stage := range modelrouter.Stages() {
		result, route := CheckRoute(ctx, cfg, router, stage)
		results = append(results, result)
		if !opts.Probe || !result.Passed || route.Provider == "" || probed[route.Provider] {
			continue
		}
		probed[route.Provider] = true
		provider, _ := cfg.GetProvider(route.Provider)
		results = append(results, CheckProvider(ctx, provider, route.ModelID))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
