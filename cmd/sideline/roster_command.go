package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/roster"
)

func newRosterCommand(ctx *commandContext) *cobra.Command {
	rosterCmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the local roster read model",
	}
	rosterCmd.AddCommand(newRosterImportCommand(ctx))
	return rosterCmd
}

func newRosterImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <roster.yaml>",
		Short: "Replace an organization's teams, players and staff from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orgID := ctx.orgID()
			if orgID == "" {
				return errors.New("org is required: pass --org or set inbox.org_id")
			}
			parsed, err := roster.ParseFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				result, err := svc.ImportRoster(cmd.Context(), orgID, parsed)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d teams, %d players and %d staff for %s\n",
					result.Teams, result.Players, result.Staff, orgID)
				return nil
			})
		},
	}
}
