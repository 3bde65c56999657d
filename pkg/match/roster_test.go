package match

import (
	"testing"

	"github.com/raywall/psn-session-emulator/pkg/validate"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func joinedTeams(r *Roster, playerID string) []string {
	var out []string
	for _, t := range r.Teams {
		for _, m := range t.Members {
			if m.PlayerID == playerID && m.JoinFlag {
				out = append(out, t.TeamID)
			}
		}
	}
	return out
}

func TestUpsertTeamMembers(t *testing.T) {
	r := &Roster{}
	r.upsertPlayer(Player{PlayerID: "a", PlayerType: PlayerNPC})

	r.upsertTeamMembers("red", "Red", []string{"a"})
	assert.Equal(t, []string{"red"}, joinedTeams(r, "a"))

	r.upsertTeamMembers("blue", "", []string{"a"})
	assert.Equal(t, []string{"blue"}, joinedTeams(r, "a"))

	r.upsertTeamMembers("red", "", []string{"a"})
	assert.Equal(t, []string{"red"}, joinedTeams(r, "a"))
	assert.Equal(t, "Red", r.team("red").TeamName, "nome vazio não sobrescreve")
	assert.Len(t, r.team("red").Members, 1, "membro existente é reativado, não duplicado")
}

func TestRosterClone(t *testing.T) {
	r := Roster{Players: []Player{{PlayerID: "a", JoinFlag: true}}, Teams: []Team{{TeamID: "t", Members: []TeamMember{{"a", true}}}}}
	cp := r.clone()
	cp.leave("a")

	assert.True(t, r.Players[0].JoinFlag)
	assert.True(t, r.Teams[0].Members[0].JoinFlag)
	assert.False(t, cp.Players[0].JoinFlag)
	assert.False(t, cp.Teams[0].Members[0].JoinFlag)
}

func TestAssertMatchHasPlayersList(t *testing.T) {
	c := validate.New(zerolog.Nop())
	r := &Roster{Players: []Player{{PlayerID: "a"}}}
	assert.Error(t, assertMatchHasPlayersList(c, r))

	r.Players[0].JoinFlag = true
	assert.NoError(t, assertMatchHasPlayersList(c, r))
}
