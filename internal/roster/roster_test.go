package roster_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sideline/internal/logging"
	"sideline/internal/roster"
	"sideline/internal/services"
	"sideline/internal/testsupport"
)

const sampleRoster = `
teams:
  - id: team-lions
    name: U12 Lions
    aliases: [Lions]
players:
  - id: player-sam
    first_name: Sam
    last_name: Okafor
    teams: [team-lions]
  - id: player-zoe
    first_name: " Zoë "
    last_name: Martin
    aliases: [Zo, ""]
    teams: [team-lions]
staff:
  - id: staff-alex
    name: Alex Morgan
`

func TestParseNormalizesRoster(t *testing.T) {
	parsed, err := roster.Parse(strings.NewReader(sampleRoster))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Teams) != 1 || len(parsed.Players) != 2 || len(parsed.Staff) != 1 {
		t.Fatalf("unexpected roster %+v", parsed)
	}
	zoe := parsed.Players[1]
	if zoe.FirstName != "Zoë" || len(zoe.Aliases) != 1 {
		t.Fatalf("expected trimmed player, got %+v", zoe)
	}
}

func TestParseRejectsInvalidRosters(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"unknown key", "teams:\n  - id: t1\n    name: T\n    colour: red\n"},
		{"duplicate id", "teams:\n  - id: x\n    name: T\nplayers:\n  - id: x\n    first_name: A\n"},
		{"unknown team", "players:\n  - id: p1\n    first_name: A\n    teams: [nope]\n"},
		{"missing first name", "players:\n  - id: p1\n    last_name: B\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := roster.Parse(strings.NewReader(tc.doc)); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDirectoryCachesUntilImport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	dir := roster.NewDirectory(st, 0, logging.NewNop())
	ctx := context.Background()

	empty, err := dir.Load(ctx, testsupport.OrgID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(empty.Players) != 0 {
		t.Fatalf("expected empty roster, got %d players", len(empty.Players))
	}

	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(sampleRoster), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	parsed, err := roster.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	result, err := dir.Import(ctx, testsupport.OrgID, parsed)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Players != 2 || result.Teams != 1 || result.Staff != 1 {
		t.Fatalf("unexpected import result %+v", result)
	}

	loaded, err := dir.Load(ctx, testsupport.OrgID)
	if err != nil {
		t.Fatalf("Load after import: %v", err)
	}
	if len(loaded.Players) != 2 {
		t.Fatalf("expected cache invalidated by import, got %d players", len(loaded.Players))
	}
	if got := loaded.PlayersOnTeam("team-lions"); len(got) != 2 {
		t.Fatalf("expected two lions, got %d", len(got))
	}
	names, err := dir.TeamNames(ctx, testsupport.OrgID)
	if err != nil || len(names) != 1 || names[0] != "U12 Lions" {
		t.Fatalf("TeamNames = %v, %v", names, err)
	}

	other, err := dir.Load(ctx, "org-elsewhere")
	if err != nil || len(other.Players) != 0 {
		t.Fatalf("rosters must be scoped per org, got %+v, %v", other, err)
	}
}
