package match

import (
	"strconv"

	"github.com/raywall/psn-session-emulator/pkg/validate"
	"github.com/raywall/psn-session-emulator/pkg/webapi"
)

const (
	maxRosterPlayers = 100
	maxRosterTeams   = 32
	maxIDLen         = 64
)

// index formata a posição de um elemento para o caminho do campo.
func index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

func (r *Roster) player(id string) *Player {
	for i := range r.Players {
		if r.Players[i].PlayerID == id {
			return &r.Players[i]
		}
	}
	return nil
}

func (r *Roster) team(id string) *Team {
	for i := range r.Teams {
		if r.Teams[i].TeamID == id {
			return &r.Teams[i]
		}
	}
	return nil
}

// clone copia o roster para que alterações possam ser validadas antes de aplicadas.
func (r Roster) clone() Roster {
	out := Roster{
		Players: append([]Player{}, r.Players...),
		Teams:   make([]Team, len(r.Teams)),
	}
	for i, t := range r.Teams {
		t.Members = append([]TeamMember{}, t.Members...)
		out.Teams[i] = t
	}
	return out
}

func (r *Roster) joinedPlayers() int {
	n := 0
	for _, p := range r.Players {
		if p.JoinFlag {
			n++
		}
	}
	return n
}

// activeTeams conta os times com pelo menos um membro com joinFlag=true.
func (r *Roster) activeTeams() int {
	n := 0
	for _, t := range r.Teams {
		for _, m := range t.Members {
			if m.JoinFlag {
				n++
				break
			}
		}
	}
	return n
}

// upsertPlayer insere ou reativa um jogador, atualizando seus dados.
func (r *Roster) upsertPlayer(p Player) {
	p.JoinFlag = true
	if existing := r.player(p.PlayerID); existing != nil {
		*existing = p
		return
	}
	r.Players = append(r.Players, p)
}

// ensureTeamJoinedFalseForPlayer zera o joinFlag do jogador em todos os times,
// exceto em exceptTeam.
func (r *Roster) ensureTeamJoinedFalseForPlayer(playerID, exceptTeam string) {
	for i := range r.Teams {
		if r.Teams[i].TeamID == exceptTeam {
			continue
		}
		for j := range r.Teams[i].Members {
			if r.Teams[i].Members[j].PlayerID == playerID {
				r.Teams[i].Members[j].JoinFlag = false
			}
		}
	}
}

// upsertTeamMembers coloca os jogadores no time (criando-o se preciso), garantindo
// que cada um fique com joinFlag=true em no máximo um time.
func (r *Roster) upsertTeamMembers(teamID, teamName string, playerIDs []string) {
	t := r.team(teamID)
	if t == nil {
		r.Teams = append(r.Teams, Team{TeamID: teamID, TeamName: teamName, Members: []TeamMember{}})
		t = &r.Teams[len(r.Teams)-1]
	} else if teamName != "" {
		t.TeamName = teamName
	}

	for _, pid := range playerIDs {
		r.ensureTeamJoinedFalseForPlayer(pid, teamID)
		found := false
		for j := range t.Members {
			if t.Members[j].PlayerID == pid {
				t.Members[j].JoinFlag = true
				found = true
			}
		}
		if !found {
			t.Members = append(t.Members, TeamMember{PlayerID: pid, JoinFlag: true})
		}
	}
}

// leave marca o jogador como fora da partida e de qualquer time.
func (r *Roster) leave(playerID string) {
	if p := r.player(playerID); p != nil {
		p.JoinFlag = false
	}
	r.ensureTeamJoinedFalseForPlayer(playerID, "")
}

// reconcile aplica um inGameRoster completo: o que não veio na requisição é
// marcado com joinFlag=false e o que veio é inserido ou reativado.
func (r *Roster) reconcile(players []Player, teams []Team) {
	requested := make(map[string]bool, len(players))
	for _, p := range players {
		requested[p.PlayerID] = true
	}
	for _, p := range r.Players {
		if !requested[p.PlayerID] {
			r.leave(p.PlayerID)
		}
	}
	for _, p := range players {
		r.upsertPlayer(p)
	}

	requestedTeams := make(map[string]Team, len(teams))
	for _, t := range teams {
		requestedTeams[t.TeamID] = t
	}
	for i := range r.Teams {
		keep := make(map[string]bool)
		for _, m := range requestedTeams[r.Teams[i].TeamID].Members {
			keep[m.PlayerID] = true
		}
		for j := range r.Teams[i].Members {
			if !keep[r.Teams[i].Members[j].PlayerID] {
				r.Teams[i].Members[j].JoinFlag = false
			}
		}
	}
	for _, t := range teams {
		ids := make([]string, 0, len(t.Members))
		for _, m := range t.Members {
			ids = append(ids, m.PlayerID)
		}
		r.upsertTeamMembers(t.TeamID, t.TeamName, ids)
	}
}

// assertMatchHasPlayersList exige pelo menos um jogador com joinFlag=true.
func assertMatchHasPlayersList(c *validate.Checker, r *Roster) error {
	if r.joinedPlayers() == 0 {
		return c.Failf("inGameRoster.players", "must contain at least one joined player")
	}
	return nil
}

// parsePlayer valida uma entrada de players. accountId aceita "me".
func parsePlayer(c *validate.Checker, obj map[string]any, caller string) (Player, error) {
	if err := c.StringLen(obj, "playerId", 1, maxIDLen); err != nil {
		return Player{}, err
	}
	kind, ok, err := c.String(obj, "playerType")
	if err != nil {
		return Player{}, err
	}
	if !ok {
		return Player{}, c.Failf("playerType", "is required")
	}
	if err := c.OneOf("playerType", kind, playerTypes...); err != nil {
		return Player{}, err
	}
	if err := c.StringLen(obj, "playerName", 0, maxIDLen); err != nil {
		return Player{}, err
	}

	p := Player{PlayerID: obj["playerId"].(string), PlayerType: PlayerType(kind)}
	p.PlayerName, _, _ = c.String(obj, "playerName")

	account, ok, err := c.String(obj, "accountId")
	if err != nil {
		return Player{}, err
	}
	if p.PlayerType == PlayerPSN && (!ok || account == "") {
		return Player{}, c.Failf("accountId", "is required for %s", PlayerPSN)
	}
	if ok {
		p.AccountID = webapi.ResolveAccount(account, caller)
	}
	return p, nil
}

// parsePlayers valida a lista players. Com allowTeamID cada entrada pode trazer um
// teamId, devolvido no mapa playerId -> teamId.
func parsePlayers(c *validate.Checker, obj map[string]any, caller string, min int, allowTeamID bool) ([]Player, map[string]string, error) {
	if err := c.ListLen(obj, "players", min, maxRosterPlayers); err != nil {
		return nil, nil, err
	}
	list, _, err := c.Objects(obj, "players")
	if err != nil {
		return nil, nil, err
	}

	players := make([]Player, 0, len(list))
	teamOf := make(map[string]string)
	seen := make(map[string]bool, len(list))
	for i, item := range list {
		pc := c.Within("players").Within(index(i))
		p, err := parsePlayer(pc, item, caller)
		if err != nil {
			return nil, nil, err
		}
		if seen[p.PlayerID] {
			return nil, nil, pc.Failf("playerId", "%s is duplicated", p.PlayerID)
		}
		seen[p.PlayerID] = true

		if !validate.IsUnspecified(item, "teamId") {
			if !allowTeamID {
				return nil, nil, pc.Failf("teamId", "is not accepted here")
			}
			if err := pc.StringLen(item, "teamId", 1, maxIDLen); err != nil {
				return nil, nil, err
			}
			teamOf[p.PlayerID] = item["teamId"].(string)
		}
		players = append(players, p)
	}
	return players, teamOf, nil
}

// parseTeams valida a lista teams. known indica se um playerId pode ser referenciado.
func parseTeams(c *validate.Checker, obj map[string]any, known func(string) bool) ([]Team, error) {
	if err := c.ListLen(obj, "teams", 0, maxRosterTeams); err != nil {
		return nil, err
	}
	list, _, err := c.Objects(obj, "teams")
	if err != nil {
		return nil, err
	}

	teams := make([]Team, 0, len(list))
	seenTeam := make(map[string]bool, len(list))
	inTeam := make(map[string]string)
	for i, item := range list {
		tc := c.Within("teams").Within(index(i))
		if err := tc.StringLen(item, "teamId", 1, maxIDLen); err != nil {
			return nil, err
		}
		if err := tc.StringLen(item, "teamName", 0, maxIDLen); err != nil {
			return nil, err
		}
		t := Team{TeamID: item["teamId"].(string), Members: []TeamMember{}}
		t.TeamName, _, _ = tc.String(item, "teamName")
		if seenTeam[t.TeamID] {
			return nil, tc.Failf("teamId", "%s is duplicated", t.TeamID)
		}
		seenTeam[t.TeamID] = true

		members, _, err := tc.Objects(item, "members")
		if err != nil {
			return nil, err
		}
		for j, mobj := range members {
			mc := tc.Within("members").Within(index(j))
			if err := mc.StringLen(mobj, "playerId", 1, maxIDLen); err != nil {
				return nil, err
			}
			pid := mobj["playerId"].(string)
			if !known(pid) {
				return nil, mc.Failf("playerId", "%s is not in the roster players", pid)
			}
			if other, dup := inTeam[pid]; dup {
				return nil, mc.Failf("playerId", "%s is already a member of team %s", pid, other)
			}
			inTeam[pid] = t.TeamID
			t.Members = append(t.Members, TeamMember{PlayerID: pid, JoinFlag: true})
		}
		teams = append(teams, t)
	}
	return teams, nil
}

// parseRoster valida um inGameRoster completo (criação e PATCH).
func parseRoster(c *validate.Checker, raw any, caller string, grouping GroupingType) ([]Player, []Team, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, nil, c.Failf("inGameRoster", "must be an object")
	}
	rc := c.Within("inGameRoster")
	players, _, err := parsePlayers(rc, obj, caller, 0, false)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[string]bool, len(players))
	for _, p := range players {
		known[p.PlayerID] = true
	}
	teams, err := parseTeams(rc, obj, func(id string) bool { return known[id] })
	if err != nil {
		return nil, nil, err
	}
	if len(teams) > 0 && grouping != GroupingTeam {
		return nil, nil, rc.Failf("teams", "are only accepted for %s", GroupingTeam)
	}
	return players, teams, nil
}
