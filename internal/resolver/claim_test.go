package resolver_test

import (
	"testing"

	"sideline/internal/resolver"
	"sideline/internal/roster"
	"sideline/internal/store"
	"sideline/internal/testsupport"
)

func fixtureSnapshot() *roster.Snapshot {
	r := testsupport.Roster()
	return &roster.Snapshot{OrgID: testsupport.OrgID, Teams: r.Teams, Players: r.Players, Staff: r.Staff}
}

func resolveMentions(topic store.Topic, mentions ...string) *store.Claim {
	claim := &store.Claim{ID: "c1", Sequence: 1, Topic: topic, Title: "note", Mentions: mentions, Status: store.ClaimResolving}
	resolver.ResolveClaim(claim, fixtureSnapshot(), policy, nil)
	return claim
}

func TestResolveClaimTeamNarrowsPlayers(t *testing.T) {
	claim := resolveMentions(store.TopicPerformance, "Hawks", "Jamie")
	if claim.Status != store.ClaimResolved {
		t.Fatalf("expected resolved, got %s (%s)", claim.Status, claim.StatusReason)
	}
	if claim.TeamID != "team-hawks" || claim.PlayerID != "player-jamie-l" {
		t.Fatalf("expected Jamie Lee on the Hawks, got team=%s player=%s", claim.TeamID, claim.PlayerID)
	}
	if claim.ResolutionConfidence != 0.95 {
		t.Fatalf("expected minimum of matched mentions 0.95, got %v", claim.ResolutionConfidence)
	}
	if claim.Resolutions[0].Kind != store.MentionTeam || claim.Resolutions[1].Kind != store.MentionPlayer {
		t.Fatalf("unexpected kinds %+v", claim.Resolutions)
	}
}

func TestResolveClaimNarrowingExcludesOtherTeams(t *testing.T) {
	claim := resolveMentions(store.TopicAttendance, "Lions", "Liam")
	if claim.PlayerID != "" {
		t.Fatalf("Liam plays for the Hawks and must not match inside a Lions claim, got %s", claim.PlayerID)
	}
	if claim.Resolutions[1].Outcome != store.OutcomeNoMatch {
		t.Fatalf("expected no_match for Liam, got %+v", claim.Resolutions[1])
	}
	if claim.Status != store.ClaimResolved || claim.TeamID != "team-lions" {
		t.Fatalf("expected resolved team claim, got %+v", claim)
	}
}

func TestResolveClaimAmbiguousNeedsDisambiguation(t *testing.T) {
	claim := resolveMentions(store.TopicInjury, "Jamie")
	if claim.Status != store.ClaimNeedsDisambiguation {
		t.Fatalf("expected needs_disambiguation, got %s", claim.Status)
	}
	res := claim.Resolutions[0]
	if res.Outcome != store.OutcomeAmbiguous || len(res.Candidates) != 2 {
		t.Fatalf("expected two recorded candidates, got %+v", res)
	}
	if claim.PlayerID != "" {
		t.Fatal("ambiguous claim must not pick a player")
	}
}

func TestResolveClaimRecordsEveryMention(t *testing.T) {
	claim := resolveMentions(store.TopicInjury, "Sam", "Tommo")
	if claim.Status != store.ClaimResolved {
		t.Fatalf("expected resolved, got %s", claim.Status)
	}
	if len(claim.Resolutions) != len(claim.Mentions) {
		t.Fatalf("expected one resolution per mention, got %d", len(claim.Resolutions))
	}
	for _, res := range claim.Resolutions {
		if res.Outcome != store.OutcomeMatched && res.Outcome != store.OutcomeNoMatch {
			t.Fatalf("resolved claim carries unresolved mention %+v", res)
		}
	}
	if claim.PlayerID != "player-sam" || claim.TeamID != "team-lions" {
		t.Fatalf("expected Sam with his only team, got player=%s team=%s", claim.PlayerID, claim.TeamID)
	}
}

func TestResolveClaimWithoutMatchesHasZeroConfidence(t *testing.T) {
	claim := resolveMentions(store.TopicTeamCulture, "Tommo")
	if claim.Status != store.ClaimResolved || claim.ResolutionConfidence != 0 {
		t.Fatalf("expected resolved with zero confidence, got %s %v", claim.Status, claim.ResolutionConfidence)
	}
	if claim.PlayerID != "" || claim.TeamID != "" {
		t.Fatal("expected no target")
	}
}

func TestResolveClaimAssignsStaff(t *testing.T) {
	claim := resolveMentions(store.TopicTodo, "physio", "Zo")
	if claim.AssigneeID != "staff-alex" || claim.PlayerID != "player-zoe" {
		t.Fatalf("expected physio assignee and Zoe, got assignee=%s player=%s", claim.AssigneeID, claim.PlayerID)
	}
	if claim.Resolutions[0].Kind != store.MentionStaff {
		t.Fatalf("expected staff kind, got %+v", claim.Resolutions[0])
	}
}

func TestResolveClaimUsesHintsOnlyThroughTheMatcher(t *testing.T) {
	claim := &store.Claim{Topic: store.TopicInjury, Title: "x", Mentions: []string{"the new lad"}}
	resolver.ResolveClaim(claim, fixtureSnapshot(), policy, resolver.Hints{"new lad": "Sam Okafor"})
	res := claim.Resolutions[0]
	if res.Outcome != store.OutcomeMatched || res.RefID != "player-sam" || res.Tier != resolver.TierModelHint {
		t.Fatalf("expected hinted match, got %+v", res)
	}
	if res.Confidence >= 0.8 || res.Confidence < policy.MinConfidence {
		t.Fatalf("expected discounted hint confidence, got %v", res.Confidence)
	}

	for _, hinted := range []string{"Jamie", "Nobody Atall"} {
		claim := &store.Claim{Topic: store.TopicInjury, Title: "x", Mentions: []string{"the new lad"}}
		resolver.ResolveClaim(claim, fixtureSnapshot(), policy, resolver.Hints{"new lad": hinted})
		if claim.Resolutions[0].Outcome != store.OutcomeNoMatch {
			t.Fatalf("hint %q must not produce a match, got %+v", hinted, claim.Resolutions[0])
		}
	}
}

func tommySnapshot(teams ...string) *roster.Snapshot {
	snap := &roster.Snapshot{
		OrgID: "org",
		Teams: []store.Team{{ID: "t1", Name: "Reds"}, {ID: "t2", Name: "Blues"}},
	}
	for i, team := range teams {
		snap.Players = append(snap.Players, store.Player{
			ID:        []string{"tommy-1", "tommy-2"}[i],
			FirstName: "Tommy",
			LastName:  []string{"Reid", "Hale"}[i],
			TeamIDs:   []string{team},
		})
	}
	return snap
}

func TestResolveClaimSingleTommy(t *testing.T) {
	claim := &store.Claim{Topic: store.TopicInjury, Title: "Sore hamstring", Mentions: []string{"Tommy"}}
	resolver.ResolveClaim(claim, tommySnapshot("t1"), policy, nil)
	if claim.Status != store.ClaimResolved || claim.PlayerID != "tommy-1" || claim.ResolutionConfidence < 0.9 {
		t.Fatalf("expected confident match on the only Tommy, got %+v", claim)
	}
}

func TestResolveClaimTwoTommiesWithoutTeamContext(t *testing.T) {
	claim := &store.Claim{Topic: store.TopicInjury, Title: "Sore hamstring", Mentions: []string{"Tommy"}}
	resolver.ResolveClaim(claim, tommySnapshot("t1", "t2"), policy, nil)
	if claim.Status != store.ClaimNeedsDisambiguation {
		t.Fatalf("expected needs_disambiguation, got %s", claim.Status)
	}

	withTeam := &store.Claim{Topic: store.TopicInjury, Title: "Sore hamstring", Mentions: []string{"Blues", "Tommy"}}
	resolver.ResolveClaim(withTeam, tommySnapshot("t1", "t2"), policy, nil)
	if withTeam.Status != store.ClaimResolved || withTeam.PlayerID != "tommy-2" {
		t.Fatalf("expected team context to pick the Blues Tommy, got %+v", withTeam)
	}
}

func TestMergeDuplicates(t *testing.T) {
	claims := []*store.Claim{
		{ID: "a", Sequence: 1, Topic: store.TopicInjury, Title: "Sore hamstring", PlayerID: "p1", Status: store.ClaimResolved},
		{ID: "b", Sequence: 2, Topic: store.TopicInjury, Title: "sore  hamstring!", PlayerID: "p1", Status: store.ClaimResolved},
		{ID: "c", Sequence: 3, Topic: store.TopicInjury, Title: "Sore hamstring", PlayerID: "p2", Status: store.ClaimResolved},
		{ID: "d", Sequence: 4, Topic: store.TopicWellbeing, Title: "Sore hamstring", PlayerID: "p1", Status: store.ClaimResolved},
		{ID: "e", Sequence: 5, Topic: store.TopicInjury, Title: "Sore hamstring", PlayerID: "p1", Status: store.ClaimNeedsDisambiguation},
		{ID: "f", Sequence: 6, Topic: store.TopicTactical, Title: "Press", Status: store.ClaimResolved},
		{ID: "g", Sequence: 7, Topic: store.TopicTactical, Title: "Press", Status: store.ClaimResolved},
	}
	if merged := resolver.MergeDuplicates(claims); merged != 1 {
		t.Fatalf("expected one merge, got %d", merged)
	}
	if claims[1].Status != store.ClaimMerged || claims[1].MergedInto != "a" {
		t.Fatalf("expected b merged into a, got %+v", claims[1])
	}
	for _, c := range []*store.Claim{claims[2], claims[3], claims[5], claims[6]} {
		if c.Status != store.ClaimResolved {
			t.Fatalf("claim %s should stay resolved", c.ID)
		}
	}
}
