package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/modelrouter"
	"sideline/internal/store"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage per-stage model routes",
		Long: fmt.Sprintf(`Manage which provider and model serve each pipeline stage.

Stages: %s. Routes set without --org are the platform
default; an org route overrides it for that organization. Every change is
recorded in the route history.`, strings.Join(modelrouter.Stages(), ", ")),
	}

	modelsCmd.AddCommand(newModelsListCommand(ctx))
	modelsCmd.AddCommand(newModelsSetCommand(ctx))
	modelsCmd.AddCommand(newModelsDeleteCommand(ctx))
	modelsCmd.AddCommand(newModelsHistoryCommand(ctx))

	return modelsCmd
}

func newModelsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				routes, err := svc.Routes(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					if routes == nil {
						routes = []api.ModelRoute{}
					}
					return writeJSON(cmd, routes)
				}
				if len(routes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No routes configured")
					return nil
				}
				rows := make([][]string, 0, len(routes))
				for _, r := range routes {
					rows = append(rows, []string{
						r.Stage,
						orgLabel(r.OrgID),
						r.Provider,
						r.ModelID,
						fmt.Sprintf("%d", r.MaxTokens),
						fmt.Sprintf("%.2f", r.Temperature),
						yesNo(r.Active),
						dash(r.UpdatedBy),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Stage", "Org", "Provider", "Model", "Max tokens", "Temp", "Active", "Updated by"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newModelsSetCommand(ctx *commandContext) *cobra.Command {
	var reason string
	var maxTokens int
	var temperature float64

	cmd := &cobra.Command{
		Use:   "set <stage> <provider> <model>",
		Short: "Create or replace a route",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			route := api.ModelRoute{
				Stage:       args[0],
				OrgID:       ctx.explicitOrgID(),
				Provider:    args[1],
				ModelID:     args[2],
				MaxTokens:   maxTokens,
				Temperature: temperature,
			}
			return ctx.withService(func(svc *api.Service) error {
				if err := svc.SetRoute(cmd.Context(), route, actorName(), reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Route %s (%s) now uses %s/%s\n", route.Stage, orgLabel(route.OrgID), route.Provider, route.ModelID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the route history")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Maximum completion tokens (0 for provider default)")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	return cmd
}

func newModelsDeleteCommand(ctx *commandContext) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "delete <stage>",
		Short: "Delete a route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				if err := svc.DeleteRoute(cmd.Context(), args[0], ctx.explicitOrgID(), actorName(), reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted route %s (%s)\n", args[0], orgLabel(ctx.explicitOrgID()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the route history")
	return cmd
}

func newModelsHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <stage>",
		Short: "Show the change log for a route, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *api.Service) error {
				changes, err := svc.RouteHistory(cmd.Context(), args[0], ctx.explicitOrgID(), limit)
				if err != nil {
					return err
				}
				if len(changes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No changes recorded")
					return nil
				}
				rows := make([][]string, 0, len(changes))
				for _, c := range changes {
					rows = append(rows, []string{
						fmt.Sprintf("%d", c.Seq),
						api.FormatTime(c.CreatedAt),
						string(c.Action),
						routeLabel(c.Previous),
						routeLabel(c.Next),
						dash(c.Actor),
						dash(c.Reason),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Seq", "When", "Action", "Before", "After", "Actor", "Reason"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum changes to show")
	return cmd
}

func routeLabel(mc *store.ModelConfig) string {
	if mc == nil {
		return "-"
	}
	return mc.Provider + "/" + mc.ModelID
}

func orgLabel(orgID string) string {
	if strings.TrimSpace(orgID) == "" {
		return "default"
	}
	return orgID
}
