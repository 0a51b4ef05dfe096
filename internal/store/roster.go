package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ImportRoster upserts teams, players, and staff for an organisation. Player
// team memberships are replaced by the imported set.
func (s *Store) ImportRoster(ctx context.Context, orgID string, roster Roster) (RosterImportResult, error) {
	ctx = ensureContext(ctx)
	var result RosterImportResult
	if strings.TrimSpace(orgID) == "" {
		return result, errors.New("roster import requires an org")
	}
	err := s.WithTx(ctx, func(tx *Tx) error {
		result = RosterImportResult{}
		for _, team := range roster.Teams {
			if strings.TrimSpace(team.ID) == "" || strings.TrimSpace(team.Name) == "" {
				return fmt.Errorf("team requires id and name: %+v", team)
			}
			if _, err := tx.tx.ExecContext(ctx,
				`INSERT INTO teams (id, org_id, name, aliases_json) VALUES (?, ?, ?, ?)
                 ON CONFLICT (id) DO UPDATE SET org_id = excluded.org_id, name = excluded.name, aliases_json = excluded.aliases_json`,
				team.ID, orgID, team.Name, encodeStrings(team.Aliases),
			); err != nil {
				return fmt.Errorf("import team %s: %w", team.ID, err)
			}
			result.Teams++
		}
		for _, player := range roster.Players {
			if strings.TrimSpace(player.ID) == "" || strings.TrimSpace(player.FirstName) == "" {
				return fmt.Errorf("player requires id and first name: %+v", player)
			}
			if _, err := tx.tx.ExecContext(ctx,
				`INSERT INTO players (id, org_id, first_name, last_name, nickname, aliases_json) VALUES (?, ?, ?, ?, ?, ?)
                 ON CONFLICT (id) DO UPDATE SET org_id = excluded.org_id, first_name = excluded.first_name,
                     last_name = excluded.last_name, nickname = excluded.nickname, aliases_json = excluded.aliases_json`,
				player.ID, orgID, player.FirstName, player.LastName, nullableString(player.Nickname), encodeStrings(player.Aliases),
			); err != nil {
				return fmt.Errorf("import player %s: %w", player.ID, err)
			}
			if _, err := tx.tx.ExecContext(ctx, `DELETE FROM team_players WHERE player_id = ?`, player.ID); err != nil {
				return fmt.Errorf("clear memberships for %s: %w", player.ID, err)
			}
			for _, teamID := range player.TeamIDs {
				if _, err := tx.tx.ExecContext(ctx,
					`INSERT INTO team_players (team_id, player_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
					teamID, player.ID,
				); err != nil {
					return fmt.Errorf("add %s to team %s: %w", player.ID, teamID, err)
				}
			}
			result.Players++
		}
		for _, member := range roster.Staff {
			if strings.TrimSpace(member.ID) == "" || strings.TrimSpace(member.Name) == "" {
				return fmt.Errorf("staff requires id and name: %+v", member)
			}
			if _, err := tx.tx.ExecContext(ctx,
				`INSERT INTO staff (id, org_id, name, aliases_json) VALUES (?, ?, ?, ?)
                 ON CONFLICT (id) DO UPDATE SET org_id = excluded.org_id, name = excluded.name, aliases_json = excluded.aliases_json`,
				member.ID, orgID, member.Name, encodeStrings(member.Aliases),
			); err != nil {
				return fmt.Errorf("import staff %s: %w", member.ID, err)
			}
			result.Staff++
		}
		return nil
	})
	return result, err
}

// ListTeams returns an organisation's teams ordered by name.
func (s *Store) ListTeams(ctx context.Context, orgID string) ([]Team, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT id, org_id, name, aliases_json FROM teams WHERE org_id = ? ORDER BY name, id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []Team
	for rows.Next() {
		var team Team
		var aliases string
		if err := rows.Scan(&team.ID, &team.OrgID, &team.Name, &aliases); err != nil {
			return nil, err
		}
		team.Aliases = decodeStrings(aliases)
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// ListPlayers returns an organisation's players with their team memberships.
func (s *Store) ListPlayers(ctx context.Context, orgID string) ([]Player, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, org_id, first_name, last_name, COALESCE(nickname, ''), aliases_json
         FROM players WHERE org_id = ? ORDER BY last_name, first_name, id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	var players []Player
	index := make(map[string]int)
	for rows.Next() {
		var p Player
		var aliases string
		if err := rows.Scan(&p.ID, &p.OrgID, &p.FirstName, &p.LastName, &p.Nickname, &aliases); err != nil {
			rows.Close()
			return nil, err
		}
		p.Aliases = decodeStrings(aliases)
		index[p.ID] = len(players)
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	memberships, err := s.db.QueryContext(ctx,
		`SELECT tp.player_id, tp.team_id FROM team_players tp
         JOIN players p ON p.id = tp.player_id
         WHERE p.org_id = ? ORDER BY tp.team_id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer memberships.Close()
	for memberships.Next() {
		var playerID, teamID string
		if err := memberships.Scan(&playerID, &teamID); err != nil {
			return nil, err
		}
		if i, ok := index[playerID]; ok {
			players[i].TeamIDs = append(players[i].TeamIDs, teamID)
		}
	}
	return players, memberships.Err()
}

// GetPlayer returns one player by id, or nil when unknown.
func (s *Store) GetPlayer(ctx context.Context, orgID, playerID string) (*Player, error) {
	players, err := s.ListPlayers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	for i := range players {
		if players[i].ID == playerID {
			return &players[i], nil
		}
	}
	return nil, nil
}

// ListStaff returns an organisation's staff ordered by name.
func (s *Store) ListStaff(ctx context.Context, orgID string) ([]Staff, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT id, org_id, name, aliases_json FROM staff WHERE org_id = ? ORDER BY name, id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var staff []Staff
	for rows.Next() {
		var member Staff
		var aliases string
		if err := rows.Scan(&member.ID, &member.OrgID, &member.Name, &aliases); err != nil {
			return nil, err
		}
		member.Aliases = decodeStrings(aliases)
		staff = append(staff, member)
	}
	return staff, rows.Err()
}

// LoadRoster returns the full candidate set for an organisation.
func (s *Store) LoadRoster(ctx context.Context, orgID string) (Roster, error) {
	var roster Roster
	var err error
	if roster.Teams, err = s.ListTeams(ctx, orgID); err != nil {
		return Roster{}, err
	}
	if roster.Players, err = s.ListPlayers(ctx, orgID); err != nil {
		return Roster{}, err
	}
	if roster.Staff, err = s.ListStaff(ctx, orgID); err != nil {
		return Roster{}, err
	}
	return roster, nil
}
