package extraction

import (
	"fmt"
	"strings"

	"sideline/internal/store"
)

// SystemPrompt instructs the model to return claims as JSON only.
const SystemPrompt = `You extract discrete factual claims from a sports coach's voice note or typed note.

Each claim is ONE observation about a player, a team, or a task. Split compound sentences into separate claims.

Allowed topics (use exactly one of these strings):
%s

Rules:
- "snippet" is the shortest verbatim span of the note that supports the claim.
- "mentions" lists people and teams exactly as they were said ("Tommy", "the U14s", "our physio"). Never expand or correct names.
- "severity" is one of low, medium, high, or omitted when it does not apply.
- "sentiment" is one of positive, neutral, negative, or omitted.
- "recommended_action" is a short follow-up for the coach, or omitted.
- "confidence" is your certainty from 0.0 to 1.0 that the claim is stated in the note.
- Do not invent claims that are not in the note. An empty note yields no claims.

Respond ONLY with JSON:
{"claims": [{"topic": "...", "title": "...", "snippet": "...", "mentions": ["..."], "severity": "...", "sentiment": "...", "recommended_action": "...", "confidence": 0.0}]}`

func systemPrompt() string {
	topics := store.Topics()
	names := make([]string, 0, len(topics))
	for _, topic := range topics {
		names = append(names, string(topic))
	}
	return fmt.Sprintf(SystemPrompt, strings.Join(names, ", "))
}

// OrgContext is the organisation context handed to the model alongside the
// transcript.
type OrgContext struct {
	OrgID   string
	CoachID string
	// Teams are the org's team names, given only so the model can recognise
	// team mentions; the model is never asked to match them.
	Teams []string
}

func userPrompt(transcript string, org OrgContext) string {
	var b strings.Builder
	if len(org.Teams) > 0 {
		b.WriteString("Teams at this club: ")
		b.WriteString(strings.Join(org.Teams, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString("Note:\n")
	b.WriteString(transcript)
	return b.String()
}
