package resolver

import (
	"strings"

	"sideline/internal/roster"
	"sideline/internal/store"
)

// TeamCandidates builds team candidates from a roster snapshot.
func TeamCandidates(snap *roster.Snapshot) []Candidate {
	out := make([]Candidate, 0, len(snap.Teams))
	for _, team := range snap.Teams {
		out = append(out, Candidate{
			ID:          team.ID,
			Kind:        store.MentionTeam,
			DisplayName: team.Name,
			Full:        []string{team.Name},
			Short:       team.Aliases,
		})
	}
	return out
}

// PlayerCandidates builds player candidates. Full names are "first last"
// and "nickname last"; every single name and alias is a short form.
func PlayerCandidates(players []store.Player) []Candidate {
	out := make([]Candidate, 0, len(players))
	for _, player := range players {
		c := Candidate{
			ID:          player.ID,
			Kind:        store.MentionPlayer,
			DisplayName: player.DisplayName(),
		}
		if name := player.DisplayName(); name != "" {
			c.Full = append(c.Full, name)
		}
		if player.Nickname != "" && player.LastName != "" {
			c.Full = append(c.Full, player.Nickname+" "+player.LastName)
		}
		for _, short := range []string{player.FirstName, player.LastName, player.Nickname} {
			if short != "" {
				c.Short = append(c.Short, short)
			}
		}
		c.Short = append(c.Short, player.Aliases...)
		out = append(out, c)
	}
	return out
}

// StaffCandidates builds staff candidates for todo assignees.
func StaffCandidates(staff []store.Staff) []Candidate {
	out := make([]Candidate, 0, len(staff))
	for _, member := range staff {
		c := Candidate{
			ID:          member.ID,
			Kind:        store.MentionStaff,
			DisplayName: member.Name,
			Full:        []string{member.Name},
		}
		words := strings.Fields(member.Name)
		if len(words) > 1 {
			c.Short = append(c.Short, words...)
		}
		c.Short = append(c.Short, member.Aliases...)
		out = append(out, c)
	}
	return out
}
