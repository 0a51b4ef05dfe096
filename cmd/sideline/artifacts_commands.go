package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/store"
)

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	artifactsCmd := &cobra.Command{
		Use:     "artifacts",
		Aliases: []string{"artifact"},
		Short:   "Inspect and recover submitted notes",
	}

	artifactsCmd.AddCommand(newArtifactsListCommand(ctx))
	artifactsCmd.AddCommand(newArtifactShowCommand(ctx))
	artifactsCmd.AddCommand(newArtifactsRetryCommand(ctx))
	artifactsCmd.AddCommand(newArtifactsReleaseCommand(ctx))

	return artifactsCmd
}

func newArtifactsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var mine bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List artifacts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ArtifactFilter{OrgID: ctx.orgID(), Limit: limit}
			for _, value := range statuses {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					filter.Statuses = append(filter.Statuses, store.Status(trimmed))
				}
			}
			if mine {
				coachID, err := ctx.coachID()
				if err != nil {
					return err
				}
				filter.CoachID = coachID
			}
			return ctx.withService(func(svc *api.Service) error {
				artifacts, err := svc.Artifacts(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					if artifacts == nil {
						artifacts = []api.Artifact{}
					}
					return writeJSON(cmd, artifacts)
				}
				if len(artifacts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No artifacts")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderArtifacts(artifacts))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum artifacts to list")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only list the acting coach's artifacts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderArtifacts(artifacts []api.Artifact) string {
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		status := a.Status
		if a.Halted {
			status += " (halted)"
		}
		rows = append(rows, []string{
			a.ID,
			a.CoachID,
			a.MediaKind,
			status,
			fmt.Sprintf("%d", a.Attempts),
			dash(a.CreatedAt),
			dash(a.ErrorMessage),
		})
	}
	return renderTable(
		[]string{"ID", "Coach", "Kind", "Status", "Attempts", "Created", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func newArtifactShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <artifact-id>",
		Short: "Show an artifact with its claims and drafts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				detail, err := svc.Artifact(cmd.Context(), args[0], "")
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, detail)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderArtifactDetail(detail))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderArtifactDetail(detail *api.ArtifactDetail) string {
	var b strings.Builder
	a := detail.Artifact
	fmt.Fprintf(&b, "Artifact %s\n", a.ID)
	fmt.Fprintf(&b, "  Coach:    %s (%s)\n", a.CoachID, a.OrgID)
	fmt.Fprintf(&b, "  Channel:  %s, %s\n", a.SourceChannel, a.MediaKind)
	fmt.Fprintf(&b, "  Status:   %s (attempts %d, halted %s)\n", a.Status, a.Attempts, yesNo(a.Halted))
	if a.ErrorMessage != "" {
		fmt.Fprintf(&b, "  Error:    %s\n", a.ErrorMessage)
	}
	if a.Transcript != "" {
		fmt.Fprintf(&b, "  Transcript:\n    %s\n", strings.ReplaceAll(strings.TrimSpace(a.Transcript), "\n", "\n    "))
	}

	if len(detail.Claims) > 0 {
		b.WriteString("\nClaims\n")
		rows := make([][]string, 0, len(detail.Claims))
		for _, c := range detail.Claims {
			rows = append(rows, []string{
				fmt.Sprintf("%d", c.Sequence),
				c.ID,
				c.Topic,
				c.Title,
				dash(c.PlayerID),
				percent(c.ExtractionConfidence),
				percent(c.ResolutionConfidence),
				c.Status,
			})
		}
		b.WriteString(renderTable(
			[]string{"#", "Claim", "Topic", "Title", "Player", "Extraction", "Resolution", "Status"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		for _, c := range detail.Claims {
			for _, m := range c.Mentions {
				if m.Outcome != string(store.OutcomeAmbiguous) {
					continue
				}
				fmt.Fprintf(&b, "  claim %d %q candidates:", c.Sequence, m.Mention)
				for _, cand := range m.Candidates {
					fmt.Fprintf(&b, " %s (%s, %.2f)", cand.ID, cand.Name, cand.Score)
				}
				b.WriteString("\n")
			}
		}
	}

	if len(detail.Drafts) > 0 {
		b.WriteString("\nDrafts\n")
		b.WriteString(renderDrafts(detail.Drafts))
	}
	return b.String()
}

func newArtifactsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [artifact-id...]",
		Short: "Retry failed artifacts (all when no IDs are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				resp, err := svc.RetryFailed(cmd.Context(), args...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d artifacts for retry\n", resp.Updated)
				return nil
			})
		},
	}
}

func newArtifactsReleaseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Release artifacts halted on missing configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				resp, err := svc.ReleaseHalted(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Released %d halted artifacts\n", resp.Updated)
				return nil
			})
		},
	}
}
