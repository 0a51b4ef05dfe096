package resolver

import (
	"context"
	"strings"

	"sideline/internal/inference"
	"sideline/internal/modelrouter"
	"sideline/internal/roster"
	"sideline/internal/services/llm"
)

// Completer runs a chat call against a stage's route.
type Completer interface {
	Complete(ctx context.Context, stage, orgID string, req inference.Request) (inference.Completion, error)
}

const hintSystemPrompt = `You help match names a sports coach said aloud to the club roster.

For each mention, give the roster name the coach most likely meant, or null when none fits.
Use only names from the roster exactly as written. Do not guess between two similar names; answer null instead.

Respond ONLY with JSON:
{"hints": [{"mention": "...", "name": "..."}]}`

type hintPayload struct {
	Hints []struct {
		Mention string  `json:"mention"`
		Name    *string `json:"name"`
	} `json:"hints"`
}

func hintUserPrompt(mentions []string, snap *roster.Snapshot) string {
	var b strings.Builder
	b.WriteString("Roster players:\n")
	for _, player := range snap.Players {
		b.WriteString("- ")
		b.WriteString(player.DisplayName())
		if player.Nickname != "" {
			b.WriteString(" (\"" + player.Nickname + "\")")
		}
		b.WriteByte('\n')
	}
	if len(snap.Staff) > 0 {
		b.WriteString("Roster staff:\n")
		for _, member := range snap.Staff {
			b.WriteString("- " + member.Name + "\n")
		}
	}
	b.WriteString("\nMentions:\n")
	for _, mention := range mentions {
		b.WriteString("- " + mention + "\n")
	}
	return b.String()
}

// requestHints asks the entity_resolution model for roster names matching
// unmatched mentions. The names it returns are only suggestions.
func requestHints(ctx context.Context, completer Completer, orgID string, mentions []string, snap *roster.Snapshot) (Hints, error) {
	completion, err := completer.Complete(ctx, modelrouter.StageEntityResolution, orgID, inference.Request{
		SystemPrompt: hintSystemPrompt,
		UserPrompt:   hintUserPrompt(mentions, snap),
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}
	var payload hintPayload
	if err := llm.DecodeJSON(completion.Content, &payload); err != nil {
		return nil, err
	}
	hints := make(Hints, len(payload.Hints))
	for _, hint := range payload.Hints {
		if hint.Name == nil {
			continue
		}
		key := normalize(hint.Mention)
		if key == "" || strings.TrimSpace(*hint.Name) == "" {
			continue
		}
		hints[key] = strings.TrimSpace(*hint.Name)
	}
	return hints, nil
}
