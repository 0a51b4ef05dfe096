package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sideline/internal/api"
)

func newDisambiguateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "disambiguate <claim-id> <player-id>",
		Short: "Resolve an ambiguous claim to the chosen player",
		Long: `Resolve a claim left in needs_disambiguation to a roster player.

The candidates offered for each mention are listed by "sideline artifacts
show <artifact-id>". A draft is built for the claim once it resolves.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *api.Service) error {
				resp, err := svc.Disambiguate(cmd.Context(), args[0], coachID, args[1])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Draft == nil {
					fmt.Fprintf(out, "Claim %s resolved; no draft was built\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "Claim %s resolved; draft %s is %s\n", args[0], resp.Draft.ID, resp.Draft.Status)
				return nil
			})
		},
	}
}
