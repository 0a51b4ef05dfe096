package roster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// Parse decodes a YAML roster document. Unknown keys are rejected.
func Parse(r io.Reader) (store.Roster, error) {
	var roster store.Roster
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&roster); err != nil {
		if errors.Is(err, io.EOF) {
			return store.Roster{}, services.Wrap(services.ErrValidation, "roster", "parse", "roster file is empty", nil)
		}
		return store.Roster{}, services.Wrap(services.ErrValidation, "roster", "parse", "invalid roster yaml", err)
	}
	normalize(&roster)
	if err := Validate(roster); err != nil {
		return store.Roster{}, err
	}
	return roster, nil
}

// ParseFile reads and decodes a roster file.
func ParseFile(path string) (store.Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return store.Roster{}, fmt.Errorf("read roster file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

func normalize(roster *store.Roster) {
	for i := range roster.Teams {
		roster.Teams[i].ID = strings.TrimSpace(roster.Teams[i].ID)
		roster.Teams[i].Name = strings.TrimSpace(roster.Teams[i].Name)
		roster.Teams[i].Aliases = trimAll(roster.Teams[i].Aliases)
	}
	for i := range roster.Players {
		p := &roster.Players[i]
		p.ID = strings.TrimSpace(p.ID)
		p.FirstName = strings.TrimSpace(p.FirstName)
		p.LastName = strings.TrimSpace(p.LastName)
		p.Nickname = strings.TrimSpace(p.Nickname)
		p.Aliases = trimAll(p.Aliases)
		p.TeamIDs = trimAll(p.TeamIDs)
	}
	for i := range roster.Staff {
		roster.Staff[i].ID = strings.TrimSpace(roster.Staff[i].ID)
		roster.Staff[i].Name = strings.TrimSpace(roster.Staff[i].Name)
		roster.Staff[i].Aliases = trimAll(roster.Staff[i].Aliases)
	}
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate checks identifiers are present and unique and that every player
// team reference exists in the document.
func Validate(roster store.Roster) error {
	var problems []string
	seen := make(map[string]string)
	claim := func(kind, id string) {
		if id == "" {
			problems = append(problems, kind+" without id")
			return
		}
		if prev, ok := seen[id]; ok {
			problems = append(problems, fmt.Sprintf("duplicate id %q (%s and %s)", id, prev, kind))
			return
		}
		seen[id] = kind
	}
	teams := make(map[string]struct{}, len(roster.Teams))
	for _, team := range roster.Teams {
		claim("team", team.ID)
		if team.Name == "" {
			problems = append(problems, fmt.Sprintf("team %q has no name", team.ID))
		}
		teams[team.ID] = struct{}{}
	}
	for _, player := range roster.Players {
		claim("player", player.ID)
		if player.FirstName == "" {
			problems = append(problems, fmt.Sprintf("player %q has no first name", player.ID))
		}
		for _, teamID := range player.TeamIDs {
			if _, ok := teams[teamID]; !ok {
				problems = append(problems, fmt.Sprintf("player %q references unknown team %q", player.ID, teamID))
			}
		}
	}
	for _, member := range roster.Staff {
		claim("staff", member.ID)
		if member.Name == "" {
			problems = append(problems, fmt.Sprintf("staff %q has no name", member.ID))
		}
	}
	if len(problems) > 0 {
		return services.Wrap(services.ErrValidation, "roster", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

// Import validates roster and writes it for orgID, then drops the cached
// snapshot so the resolver sees the new candidates.
func (d *Directory) Import(ctx context.Context, orgID string, roster store.Roster) (store.RosterImportResult, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return store.RosterImportResult{}, services.Wrap(services.ErrValidation, "roster", "import", "org id required", nil)
	}
	normalize(&roster)
	if err := Validate(roster); err != nil {
		return store.RosterImportResult{}, err
	}
	result, err := d.store.ImportRoster(ctx, orgID, roster)
	if err != nil {
		return store.RosterImportResult{}, err
	}
	d.Invalidate(orgID)
	d.logger.Info("roster imported",
		logging.String(logging.FieldEventType, "roster_import"),
		logging.String(logging.FieldOrgID, orgID),
		logging.Int("teams", result.Teams),
		logging.Int("players", result.Players),
		logging.Int("staff", result.Staff),
	)
	return result, nil
}
