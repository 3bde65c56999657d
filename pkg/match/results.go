package match

import "github.com/raywall/psn-session-emulator/pkg/validate"

// parseResults valida matchResults conforme o formato exigido pelo tipo da partida:
// cooperativeResult em COOPERATIVE, competitiveResult.teamResults em TEAM_MATCH e
// competitiveResult.playerResults nos demais casos.
func parseResults(c *validate.Checker, body map[string]any, m *Match) (*Results, error) {
	raw, ok, err := c.Object(body, "matchResults")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, c.Failf("matchResults", "is required")
	}
	rc := c.Within("matchResults")

	res := &Results{Version: "1"}
	if v, ok, err := rc.String(raw, "version"); err != nil {
		return nil, err
	} else if ok {
		res.Version = v
	}

	if m.CompetitionType == CompetitionCooperative {
		if !validate.IsUnspecified(raw, "competitiveResult") {
			return nil, rc.Failf("competitiveResult", "is not accepted for %s matches", CompetitionCooperative)
		}
		coop, ok, err := rc.Object(raw, "cooperativeResult")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, rc.Failf("cooperativeResult", "is required for %s matches", CompetitionCooperative)
		}
		cc := rc.Within("cooperativeResult")
		status, ok, err := cc.String(coop, "status")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, cc.Failf("status", "is required")
		}
		if err := cc.OneOf("status", status, cooperativeResults...); err != nil {
			return nil, err
		}
		res.CooperativeResult = &CooperativeResult{Status: status}
		return res, nil
	}

	if !validate.IsUnspecified(raw, "cooperativeResult") {
		return nil, rc.Failf("cooperativeResult", "is not accepted for %s matches", CompetitionCompetitive)
	}
	comp, ok, err := rc.Object(raw, "competitiveResult")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, rc.Failf("competitiveResult", "is required for %s matches", CompetitionCompetitive)
	}
	cc := rc.Within("competitiveResult")
	res.CompetitiveResult = &CompetitiveResult{}

	if m.GroupingType == GroupingTeam {
		if !validate.IsUnspecified(comp, "playerResults") {
			return nil, cc.Failf("playerResults", "is not accepted for %s", GroupingTeam)
		}
		teams, err := parseTeamResults(cc, comp, m)
		if err != nil {
			return nil, err
		}
		res.CompetitiveResult.TeamResults = teams
		return res, nil
	}

	if !validate.IsUnspecified(comp, "teamResults") {
		return nil, cc.Failf("teamResults", "is not accepted for %s", GroupingNonTeam)
	}
	players, err := parsePlayerResults(cc, comp, m)
	if err != nil {
		return nil, err
	}
	res.CompetitiveResult.PlayerResults = players
	return res, nil
}

func rankAndScore(c *validate.Checker, obj map[string]any, m *Match) (int, *float64, error) {
	rank, ok, err := c.Int(obj, "rank", 1, maxRosterPlayers)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, c.Failf("rank", "is required")
	}
	score, ok, err := c.Number(obj, "score")
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		if m.ResultType == ResultScore {
			return 0, nil, c.Failf("score", "is required when resultType is %s", ResultScore)
		}
		return rank, nil, nil
	}
	return rank, &score, nil
}

func parsePlayerResults(c *validate.Checker, comp map[string]any, m *Match) ([]PlayerResult, error) {
	if err := c.ListLen(comp, "playerResults", 1, maxRosterPlayers); err != nil {
		return nil, err
	}
	list, _, err := c.Objects(comp, "playerResults")
	if err != nil {
		return nil, err
	}
	out := make([]PlayerResult, 0, len(list))
	for i, item := range list {
		pc := c.Within("playerResults").Within(index(i))
		if err := pc.StringLen(item, "playerId", 1, maxIDLen); err != nil {
			return nil, err
		}
		pid := item["playerId"].(string)
		if m.InGameRoster.player(pid) == nil {
			return nil, pc.Failf("playerId", "%s is not in the roster", pid)
		}
		rank, score, err := rankAndScore(pc, item, m)
		if err != nil {
			return nil, err
		}
		out = append(out, PlayerResult{PlayerID: pid, Rank: rank, Score: score})
	}
	return out, nil
}

func parseTeamResults(c *validate.Checker, comp map[string]any, m *Match) ([]TeamResult, error) {
	if err := c.ListLen(comp, "teamResults", 1, maxRosterTeams); err != nil {
		return nil, err
	}
	list, _, err := c.Objects(comp, "teamResults")
	if err != nil {
		return nil, err
	}
	out := make([]TeamResult, 0, len(list))
	for i, item := range list {
		tc := c.Within("teamResults").Within(index(i))
		if err := tc.StringLen(item, "teamId", 1, maxIDLen); err != nil {
			return nil, err
		}
		tid := item["teamId"].(string)
		if m.InGameRoster.team(tid) == nil {
			return nil, tc.Failf("teamId", "%s is not in the roster", tid)
		}
		rank, score, err := rankAndScore(tc, item, m)
		if err != nil {
			return nil, err
		}
		tr := TeamResult{TeamID: tid, Rank: rank, Score: score}

		members, _, err := tc.Objects(item, "teamMemberResults")
		if err != nil {
			return nil, err
		}
		for j, mobj := range members {
			mc := tc.Within("teamMemberResults").Within(index(j))
			if err := mc.StringLen(mobj, "playerId", 1, maxIDLen); err != nil {
				return nil, err
			}
			pid := mobj["playerId"].(string)
			if m.InGameRoster.player(pid) == nil {
				return nil, mc.Failf("playerId", "%s is not in the roster", pid)
			}
			s, ok, err := mc.Number(mobj, "score")
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, mc.Failf("score", "is required")
			}
			tr.TeamMemberResults = append(tr.TeamMemberResults, TeamMemberResult{PlayerID: pid, Score: s})
		}
		out = append(out, tr)
	}
	return out, nil
}
