package testsupport

import (
	"context"
	"testing"

	"sideline/internal/store"
)

// Roster returns the fixture roster: two teams, five players (two named
// Jamie), and one staff member.
func Roster() store.Roster {
	return store.Roster{
		Teams: []store.Team{
			{ID: "team-lions", Name: "U12 Lions", Aliases: []string{"Lions", "under twelves"}},
			{ID: "team-hawks", Name: "U14 Hawks", Aliases: []string{"Hawks"}},
		},
		Players: []store.Player{
			{ID: "player-sam", FirstName: "Sam", LastName: "Okafor", TeamIDs: []string{"team-lions"}},
			{ID: "player-jamie-c", FirstName: "Jamie", LastName: "Carter", Nickname: "JC", TeamIDs: []string{"team-lions"}},
			{ID: "player-jamie-l", FirstName: "Jamie", LastName: "Lee", TeamIDs: []string{"team-hawks"}},
			{ID: "player-liam", FirstName: "Liam", LastName: "O'Brien", TeamIDs: []string{"team-hawks"}},
			{ID: "player-zoe", FirstName: "Zoë", LastName: "Martin", Aliases: []string{"Zo"}, TeamIDs: []string{"team-lions"}},
		},
		Staff: []store.Staff{
			{ID: "staff-alex", Name: "Alex Morgan", Aliases: []string{"physio"}},
		},
	}
}

// SeedRoster imports the fixture roster for OrgID.
func SeedRoster(t testing.TB, st *store.Store) store.Roster {
	t.Helper()

	roster := Roster()
	if _, err := st.ImportRoster(context.Background(), OrgID, roster); err != nil {
		t.Fatalf("seed roster: %v", err)
	}
	return roster
}
