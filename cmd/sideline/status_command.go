package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/config"
	"sideline/internal/daemonrun"
	"sideline/internal/preflight"
	"sideline/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, configuration and pipeline readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := []string{}

			lines = append(lines, renderSectionHeader("Daemon", colorize)...)
			daemonProbe := preflight.ProbeDaemon(daemonrun.PIDPath(cfg))
			kind := statusWarn
			if daemonProbe.Running {
				kind = statusOK
			}
			lines = append(lines, renderStatusLine("Daemon", kind, daemonProbe.DaemonDetail(), colorize))
			lines = append(lines, renderStatusLine("Config", statusInfo, dash(ctx.configPath), colorize))

			var remote *api.DaemonStatus
			if daemonProbe.Running {
				remote, err = fetchDaemonStatus(cmd.Context(), cfg)
				if err != nil {
					lines = append(lines, renderStatusLine("API", statusWarn, err.Error(), colorize))
				} else {
					lines = append(lines, renderStatusLine("API", statusOK, cfg.Paths.APIBind, colorize))
				}
			}

			var stats map[string]int
			err = ctx.withStore(func(st *store.Store) error {
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Preflight", colorize)...)
				for _, result := range preflight.RunAll(cmd.Context(), cfg, st, preflight.Options{Probe: probe}) {
					lines = append(lines, renderCheck(result, colorize))
				}
				if remote != nil {
					stats = remote.Workflow.ArtifactStats
					return nil
				}
				raw, err := st.ArtifactStats(cmd.Context())
				if err != nil {
					return err
				}
				stats = api.MergeArtifactStats(raw)
				return nil
			})
			if err != nil {
				return err
			}

			if remote != nil && remote.Workflow.LastError != "" {
				lines = append(lines, renderStatusLine("Last error", statusError, remote.Workflow.LastError, colorize))
			}
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)
			if len(stats) == 0 {
				fmt.Fprintln(out, "No artifacts")
				return nil
			}
			fmt.Fprint(out, renderTable([]string{"Status", "Count"}, statusRows(stats), []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Issue a live request to each routed provider")
	return cmd
}

func statusRows(stats map[string]int) [][]string {
	statuses := make([]string, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{status, fmt.Sprintf("%d", stats[status])})
	}
	return rows
}

func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (*api.DaemonStatus, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, fmt.Errorf("api disabled")
	}
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(cfg.Paths.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api returned %s", resp.Status)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}
