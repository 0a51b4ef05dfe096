package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"sideline/internal/api"
)

type reviewFunc func(*api.Service, context.Context, string, string) (api.Draft, error)

type bulkReviewFunc func(*api.Service, context.Context, string, string) ([]api.Draft, error)

func newDraftsCommand(ctx *commandContext) *cobra.Command {
	draftsCmd := &cobra.Command{
		Use:   "drafts",
		Short: "Review draft insights awaiting confirmation",
	}

	draftsCmd.AddCommand(newDraftsListCommand(ctx))
	draftsCmd.AddCommand(newDraftReviewCommand(ctx, "confirm", "Confirm a pending draft", (*api.Service).ConfirmDraft))
	draftsCmd.AddCommand(newDraftReviewCommand(ctx, "reject", "Reject a pending draft", (*api.Service).RejectDraft))
	draftsCmd.AddCommand(newDraftBulkCommand(ctx, "confirm-all", "Confirm every pending draft of an artifact", (*api.Service).ConfirmAll))
	draftsCmd.AddCommand(newDraftBulkCommand(ctx, "reject-all", "Reject every pending draft of an artifact", (*api.Service).RejectAll))
	draftsCmd.AddCommand(newDraftApplyCommand(ctx))
	draftsCmd.AddCommand(newDraftsSweepCommand(ctx))
	draftsCmd.AddCommand(newDraftsStatsCommand(ctx))
	draftsCmd.AddCommand(newDraftsSettingsCommand(ctx))

	return draftsCmd
}

func newDraftsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the coach's pending drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				drafts, err := svc.PendingDrafts(cmd.Context(), ctx.orgID(), coachID)
				if err != nil {
					return err
				}
				if asJSON {
					if drafts == nil {
						drafts = []api.Draft{}
					}
					return writeJSON(cmd, api.DraftListResponse{Drafts: drafts})
				}
				if len(drafts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending drafts")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderDrafts(drafts))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderDrafts(drafts []api.Draft) string {
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		rows = append(rows, []string{
			d.ID,
			shortID(d.ArtifactID),
			dash(d.PlayerName),
			d.InsightType,
			d.Title,
			percent(d.OverallConfidence),
			d.Status,
		})
	}
	return renderTable(
		[]string{"ID", "Artifact", "Player", "Type", "Title", "Confidence", "Status"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newDraftReviewCommand(ctx *commandContext, use, short string, review reviewFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <draft-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				draft, err := review(svc, cmd.Context(), args[0], coachID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Draft %s is now %s\n", draft.ID, draft.Status)
				return nil
			})
		},
	}
}

func newDraftBulkCommand(ctx *commandContext, use, short string, review bulkReviewFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <artifact-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				drafts, err := review(svc, cmd.Context(), args[0], coachID)
				if err != nil {
					return err
				}
				if len(drafts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending drafts for this artifact")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d drafts\n", len(drafts))
				return nil
			})
		},
	}
}

func newDraftApplyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <draft-id>",
		Short: "Write a confirmed draft to the player's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				insight, err := svc.ApplyDraft(cmd.Context(), args[0], coachID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied draft %s as insight %s\n", insight.DraftID, insight.ID)
				return nil
			})
		},
	}
}

func newDraftsSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire pending drafts older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				n, err := svc.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Expired %d drafts\n", n)
				return nil
			})
		},
	}
}

func newDraftsStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the coach's review history and gate thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				stats, err := svc.CoachStats(cmd.Context(), ctx.orgID(), coachID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, stats)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderStats(stats))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStats(stats api.CoachStats) string {
	rows := [][]string{
		{"Reviewed", fmt.Sprintf("%d", stats.Reviewed)},
		{"Approval rate", percent(stats.ApprovalRate)},
		{"Rejection rate", percent(stats.RejectionRate)},
		{"Base threshold", percent(stats.BaseThreshold)},
		{"Effective threshold", percent(stats.EffectiveThreshold)},
		{"Auto-approve", yesNo(stats.AutoApprove)},
		{"Trusted", yesNo(stats.Trusted)},
		{"Trust boost", fmt.Sprintf("%.2f", stats.TrustBoost)},
	}
	kinds := make([]string, 0, len(stats.Events))
	for kind := range stats.Events {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		rows = append(rows, []string{"Events: " + kind, fmt.Sprintf("%d", stats.Events[kind])})
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func newDraftsSettingsCommand(ctx *commandContext) *cobra.Command {
	var autoApprove, trusted bool
	var threshold, trustBoost float64

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Update the coach's confirmation gate settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				current, err := svc.CoachStats(cmd.Context(), ctx.orgID(), coachID)
				if err != nil {
					return err
				}
				settings := api.CoachSettings{
					AutoApprove: current.AutoApprove,
					Threshold:   current.BaseThreshold,
					Trusted:     current.Trusted,
					TrustBoost:  current.TrustBoost,
				}
				flags := cmd.Flags()
				if flags.Changed("auto-approve") {
					settings.AutoApprove = autoApprove
				}
				if flags.Changed("threshold") {
					settings.Threshold = threshold
				}
				if flags.Changed("trusted") {
					settings.Trusted = trusted
				}
				if flags.Changed("trust-boost") {
					settings.TrustBoost = trustBoost
				}
				if err := svc.SaveCoachSettings(cmd.Context(), ctx.orgID(), coachID, settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved settings for %s (auto-approve %s, threshold %s)\n",
					coachID, yesNo(settings.AutoApprove), percent(settings.Threshold))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Let drafts above the threshold skip confirmation")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Base auto-approval threshold in [0, 1]")
	cmd.Flags().BoolVar(&trusted, "trusted", false, "Mark the coach as trusted")
	cmd.Flags().Float64Var(&trustBoost, "trust-boost", 0, "Confidence boost applied to a trusted coach's drafts")
	return cmd
}
