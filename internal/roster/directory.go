package roster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"sideline/internal/logging"
	"sideline/internal/store"
)

// Snapshot is an immutable view of one org's roster.
type Snapshot struct {
	OrgID    string
	Teams    []store.Team
	Players  []store.Player
	Staff    []store.Staff
	LoadedAt time.Time
}

// Team returns the team with id.
func (s *Snapshot) Team(id string) (store.Team, bool) {
	for _, team := range s.Teams {
		if team.ID == id {
			return team, true
		}
	}
	return store.Team{}, false
}

// Player returns the player with id.
func (s *Snapshot) Player(id string) (store.Player, bool) {
	for _, player := range s.Players {
		if player.ID == id {
			return player, true
		}
	}
	return store.Player{}, false
}

// PlayersOnTeam returns the players registered to teamID.
func (s *Snapshot) PlayersOnTeam(teamID string) []store.Player {
	var out []store.Player
	for _, player := range s.Players {
		for _, id := range player.TeamIDs {
			if id == teamID {
				out = append(out, player)
				break
			}
		}
	}
	return out
}

// Directory is a read-only, cached roster source.
type Directory struct {
	store  *store.Store
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewDirectory constructs a directory over the store's roster tables.
func NewDirectory(st *store.Store, ttl time.Duration, logger *slog.Logger) *Directory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Directory{
		store:  st,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logging.NewComponentLogger(logger, "roster"),
	}
}

// Load returns the org's roster, reading through the cache.
func (d *Directory) Load(ctx context.Context, orgID string) (*Snapshot, error) {
	if hit, ok := d.cache.Get(orgID); ok {
		return hit.(*Snapshot), nil
	}
	roster, err := d.store.LoadRoster(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", orgID, err)
	}
	snapshot := &Snapshot{
		OrgID:    orgID,
		Teams:    roster.Teams,
		Players:  roster.Players,
		Staff:    roster.Staff,
		LoadedAt: time.Now().UTC(),
	}
	d.cache.SetDefault(orgID, snapshot)
	logging.WithContext(ctx, d.logger).Debug("roster loaded",
		logging.String(logging.FieldOrgID, orgID),
		logging.Int("teams", len(snapshot.Teams)),
		logging.Int("players", len(snapshot.Players)),
		logging.Int("staff", len(snapshot.Staff)),
	)
	return snapshot, nil
}

// TeamNames lists the org's team names for prompt context.
func (d *Directory) TeamNames(ctx context.Context, orgID string) ([]string, error) {
	snapshot, err := d.Load(ctx, orgID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(snapshot.Teams))
	for _, team := range snapshot.Teams {
		names = append(names, team.Name)
	}
	return names, nil
}

// Invalidate drops the cached snapshot for orgID.
func (d *Directory) Invalidate(orgID string) {
	d.cache.Delete(orgID)
}
