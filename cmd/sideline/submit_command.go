package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sideline/internal/api"
	"sideline/internal/ingest"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var noteText string
	var channel string

	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Submit a typed note or an audio recording",
		Long: `Submit a coach note for processing.

Pass --text for a typed note ("-" reads the note from stdin), a .txt file
for a typed note stored on disk, or an audio file (.m4a, .mp3, .wav, .ogg,
.webm) to be transcribed. The running daemon picks the artifact up on its
next poll.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coachID, err := ctx.coachID()
			if err != nil {
				return err
			}
			sub := ingest.Submission{
				OrgID:   ctx.orgID(),
				CoachID: coachID,
				Channel: strings.TrimSpace(channel),
			}

			switch {
			case noteText == "-":
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				sub.Transcript = string(data)
			case noteText != "":
				sub.Transcript = noteText
			case len(args) == 1 && strings.EqualFold(filepath.Ext(args[0]), ".txt"):
				data, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("read note: %w", err)
				}
				sub.Transcript = string(data)
			case len(args) == 1:
				sub.AudioPath = args[0]
			default:
				return fmt.Errorf("nothing to submit: pass --text or a file")
			}
			if noteText != "" && len(args) == 1 {
				return fmt.Errorf("pass either --text or a file, not both")
			}

			return ctx.withService(func(svc *api.Service) error {
				resp, err := svc.Submit(cmd.Context(), sub)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted artifact %s\n", resp.ArtifactID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&noteText, "text", "t", "", "Typed note text (use - to read stdin)")
	cmd.Flags().StringVar(&channel, "channel", "cli", "Source channel recorded on the artifact")
	return cmd
}
