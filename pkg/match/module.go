// Package match emula a API de partidas da PS5: criação a partir de atividades
// configuradas, roster com soft-removal, máquina de status, resultados e o 409
// simulado para chamadas muito próximas à mesma partida.
package match

import (
	"net/http"
	"time"

	"github.com/raywall/psn-session-emulator/pkg/clock"
	"github.com/raywall/psn-session-emulator/pkg/config"
	"github.com/raywall/psn-session-emulator/pkg/metrics"
	"github.com/raywall/psn-session-emulator/pkg/validate"
	"github.com/raywall/psn-session-emulator/pkg/webapi"
	"github.com/rs/zerolog"
)

const (
	defaultExpirationTime = 300
	minExpirationTime     = 10
	maxExpirationTime     = 86400
	maxZoneIDLen          = 64
	maxActivityIDLen      = 64
)

type Options struct {
	// Activities é o mapa activityId -> template lido da configuração.
	Activities map[string]config.Activity
	// ConflictWindow é a janela do 409 simulado; zero desabilita.
	ConflictWindow time.Duration
}

type Module struct {
	store    *Store
	opts     Options
	check    *validate.Checker
	clock    clock.Clock
	counters *metrics.Counters
	log      zerolog.Logger

	lastMatchID string
	lastCall    time.Time
}

func NewModule(store *Store, opts Options, c clock.Clock, counters *metrics.Counters, log zerolog.Logger) *Module {
	log = log.With().Str("module", "match").Logger()
	if opts.Activities == nil {
		opts.Activities = map[string]config.Activity{}
	}
	return &Module{
		store:    store,
		opts:     opts,
		check:    validate.New(log),
		clock:    c,
		counters: counters,
		log:      log,
	}
}

func (m *Module) Store() *Store { return m.store }

func unauthorized() webapi.Reply {
	return webapi.Error(http.StatusUnauthorized, CodeUnauthorized, "Authorization header is missing or invalid")
}

func invalid(err error) webapi.Reply {
	return webapi.Invalid(err, CodeInvalidParameter)
}

func terminal(mt *Match) webapi.Reply {
	return webapi.Error(http.StatusBadRequest, CodeInvalidStatus, "Match is "+string(mt.Status)+" and cannot be modified")
}

// resolveActivity deriva groupingType, competitionType e resultType da atividade.
func (m *Module) resolveActivity(activityID string) (GroupingType, CompetitionType, ResultType, error) {
	act, ok := m.opts.Activities[activityID]
	if !ok {
		return "", "", "", m.check.Failf("activityId", "groupingType is not configured for activityId %s", activityID)
	}
	grouping := GroupingNonTeam
	if act.IsTeam {
		grouping = GroupingTeam
	}

	var competition CompetitionType
	switch act.Category {
	case "competitive":
		competition = CompetitionCompetitive
	case "cooperative":
		competition = CompetitionCooperative
	default:
		competition = CompetitionCompetitive
		m.log.Warn().Str("activityId", activityID).Msg("category não configurada, usando COMPETITIVE")
	}

	if competition == CompetitionCooperative {
		return grouping, competition, "", nil
	}
	if act.ScoreName != "" {
		return grouping, competition, ResultScore, nil
	}
	m.log.Warn().Str("activityId", activityID).Msg("scorename não configurado, usando RESULT")
	return grouping, competition, ResultRank, nil
}

// lookup busca a partida e avalia a expiração de forma preguiçosa. Uma contagem
// vencida é apenas logada e contada, a partida não é cancelada.
func (m *Module) lookup(req *webapi.Request) (string, *Match, *webapi.Reply) {
	caller, ok := req.Caller()
	if !ok {
		r := unauthorized()
		return "", nil, &r
	}
	id := req.Var("matchId")
	mt, found := m.store.Match(id)
	if !found {
		r := webapi.Error(http.StatusNotFound, CodeNotFound, "Match "+id+" not found")
		return caller, nil, &r
	}
	if expired, first := mt.expired(m.clock.Now()); expired && first {
		m.counters.Inc(metrics.MatchesExpiredObserved)
		m.log.Warn().Str("matchId", id).Str("status", string(mt.Status)).Msg("contagem de expiração da partida venceu")
	}
	return caller, mt, nil
}

// mutable é lookup para operações que alteram a partida: aplica o 409 simulado e
// exige corpo JSON.
func (m *Module) mutable(req *webapi.Request) (string, *Match, *webapi.Reply) {
	caller, mt, fail := m.lookup(req)
	if fail != nil {
		return caller, nil, fail
	}
	if m.conflict(mt.MatchID) {
		r := webapi.JSON(http.StatusConflict, conflictBody)
		return caller, nil, &r
	}
	if req.JSON == nil {
		r := webapi.Error(http.StatusBadRequest, CodeInvalidRequest, "Request body must be a JSON object")
		return caller, nil, &r
	}
	return caller, mt, nil
}

// conflict implementa o 409 simulado: duas chamadas seguidas à mesma partida dentro
// da janela. O instante de referência só avança nas chamadas aceitas.
func (m *Module) conflict(matchID string) bool {
	now := m.clock.Now()
	if m.opts.ConflictWindow > 0 && matchID == m.lastMatchID && now.Sub(m.lastCall) < m.opts.ConflictWindow {
		m.counters.Inc(metrics.FakeMatchConflict)
		m.log.Info().Str("matchId", matchID).Msg("409 simulado")
		return true
	}
	m.lastMatchID = matchID
	m.lastCall = now
	return false
}

// PostMatch trata POST /v1/matches.
func (m *Module) PostMatch(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return unauthorized()
	}
	body := req.JSON
	if body == nil {
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, "Request body must be a JSON object")
	}
	c := m.check

	if err := c.StringLen(body, "activityId", 1, maxActivityIDLen); err != nil {
		return invalid(err)
	}
	activityID := body["activityId"].(string)
	grouping, competition, result, err := m.resolveActivity(activityID)
	if err != nil {
		return webapi.Invalid(err, CodeNotConfigured)
	}

	mt := &Match{
		ActivityID:      activityID,
		NpServiceLabel:  req.ServiceLabel,
		ExpirationTime:  defaultExpirationTime,
		GroupingType:    grouping,
		CompetitionType: competition,
		ResultType:      result,
		InGameRoster:    Roster{Players: []Player{}, Teams: []Team{}},
	}
	if err := applyMatchFields(c, body, mt); err != nil {
		return invalid(err)
	}

	var players []Player
	var teams []Team
	if !validate.IsUnspecified(body, "inGameRoster") {
		players, teams, err = parseRoster(c, body["inGameRoster"], caller, grouping)
		if err != nil {
			return invalid(err)
		}
	}

	// Validação concluída: a partir daqui o store é alterado.
	mt.MatchID = m.store.nextID()
	mt.InGameRoster.reconcile(players, teams)
	if err := setStatus(c, mt, StatusWaiting, m.clock.Now()); err != nil {
		return invalid(err)
	}
	m.store.matches[mt.MatchID] = mt
	m.store.syncActive(mt, playerIDs(players))
	m.counters.Inc(metrics.MatchesCreated)

	m.log.Info().Str("matchId", mt.MatchID).Str("activityId", activityID).Str("groupingType", string(grouping)).Msg("partida criada")
	return webapi.OK(map[string]string{"matchId": mt.MatchID})
}

// applyMatchFields valida e aplica zoneId e expirationTime.
func applyMatchFields(c *validate.Checker, body map[string]any, mt *Match) error {
	if err := c.StringLen(body, "zoneId", 0, maxZoneIDLen); err != nil {
		return err
	}
	if zone, ok, _ := c.String(body, "zoneId"); ok {
		mt.ZoneID = zone
	}
	exp, ok, err := c.Int(body, "expirationTime", minExpirationTime, maxExpirationTime)
	if err != nil {
		return err
	}
	if ok {
		mt.ExpirationTime = exp
	}
	return nil
}

func playerIDs(players []Player) []string {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.PlayerID)
	}
	return ids
}

// GetMatch trata GET /v1/matches/{matchId}.
func (m *Module) GetMatch(req *webapi.Request) webapi.Reply {
	_, mt, fail := m.lookup(req)
	if fail != nil {
		return *fail
	}
	return webapi.OK(mt)
}

var patchableMatch = map[string]bool{"zoneId": true, "expirationTime": true, "inGameRoster": true}

// PatchMatch trata PATCH /v1/matches/{matchId}. inGameRoster substitui as flags de
// participação: quem não veio na requisição fica com joinFlag=false.
func (m *Module) PatchMatch(req *webapi.Request) webapi.Reply {
	caller, mt, fail := m.mutable(req)
	if fail != nil {
		return *fail
	}
	if mt.Status.Terminal() {
		return terminal(mt)
	}
	body := req.JSON
	c := m.check
	for k := range body {
		if !patchableMatch[k] {
			return invalid(c.Failf(k, "cannot be updated"))
		}
	}

	updated := *mt
	if err := applyMatchFields(c, body, &updated); err != nil {
		return invalid(err)
	}
	var joined []string
	if _, ok := body["inGameRoster"]; ok {
		players, teams, err := parseRoster(c, body["inGameRoster"], caller, mt.GroupingType)
		if err != nil {
			return invalid(err)
		}
		roster := mt.InGameRoster.clone()
		roster.reconcile(players, teams)
		if err := assertMatchHasPlayersList(c, &roster); err != nil {
			return invalid(err)
		}
		if mt.Status == StatusPlaying && mt.GroupingType == GroupingTeam && roster.activeTeams() == 0 {
			return invalid(c.Failf("inGameRoster.teams", "a PLAYING %s needs at least one team with a joined member", GroupingTeam))
		}
		updated.InGameRoster = roster
		joined = playerIDs(players)
	}

	*mt = updated
	m.store.syncActive(mt, joined)
	m.log.Info().Str("matchId", mt.MatchID).Msg("partida atualizada")
	return webapi.NoContent()
}

// PutStatus trata PUT /v1/matches/{matchId}/status.
func (m *Module) PutStatus(req *webapi.Request) webapi.Reply {
	_, mt, fail := m.mutable(req)
	if fail != nil {
		return *fail
	}
	c := m.check
	status, ok, err := c.String(req.JSON, "status")
	if err != nil {
		return invalid(err)
	}
	if !ok {
		return invalid(c.Failf("status", "is required"))
	}
	if err := c.OneOf("status", status, statuses...); err != nil {
		return invalid(err)
	}
	if mt.Status.Terminal() {
		return terminal(mt)
	}

	prev := mt.Status
	if err := setStatus(c, mt, Status(status), m.clock.Now()); err != nil {
		return webapi.Invalid(err, CodeInvalidStatus)
	}
	m.log.Info().Str("matchId", mt.MatchID).Str("from", string(prev)).Str("to", status).Msg("status da partida alterado")
	return webapi.NoContent()
}

// PostJoin trata POST /v1/matches/{matchId}/players/actions/add. A entrada é
// aditiva; um teamId na entrada do jogador o coloca naquele time.
func (m *Module) PostJoin(req *webapi.Request) webapi.Reply {
	caller, mt, fail := m.mutable(req)
	if fail != nil {
		return *fail
	}
	if mt.Status.Terminal() {
		return terminal(mt)
	}
	c := m.check
	players, teamOf, err := parsePlayers(c, req.JSON, caller, 1, true)
	if err != nil {
		return invalid(err)
	}
	if len(teamOf) > 0 && mt.GroupingType != GroupingTeam {
		return invalid(c.Failf("players", "teamId is only accepted for %s", GroupingTeam))
	}

	roster := mt.InGameRoster.clone()
	for _, p := range players {
		roster.upsertPlayer(p)
		if team, ok := teamOf[p.PlayerID]; ok {
			roster.upsertTeamMembers(team, "", []string{p.PlayerID})
		}
	}
	if len(roster.Players) > maxRosterPlayers {
		return invalid(c.Failf("players", "the roster cannot exceed %d players", maxRosterPlayers))
	}

	mt.InGameRoster = roster
	m.store.syncActive(mt, playerIDs(players))
	m.log.Info().Str("matchId", mt.MatchID).Int("players", len(players)).Msg("jogadores entraram na partida")
	return webapi.NoContent()
}

// PostLeave trata POST /v1/matches/{matchId}/players/actions/remove. O registro do
// jogador é mantido com joinFlag=false, no roster e nos times.
func (m *Module) PostLeave(req *webapi.Request) webapi.Reply {
	_, mt, fail := m.mutable(req)
	if fail != nil {
		return *fail
	}
	if mt.Status.Terminal() {
		return terminal(mt)
	}
	c := m.check
	if err := c.ListLen(req.JSON, "players", 1, maxRosterPlayers); err != nil {
		return invalid(err)
	}
	list, _, err := c.Objects(req.JSON, "players")
	if err != nil {
		return invalid(err)
	}
	ids := make([]string, 0, len(list))
	for i, item := range list {
		pc := c.Within("players").Within(index(i))
		if err := pc.StringLen(item, "playerId", 1, maxIDLen); err != nil {
			return invalid(err)
		}
		pid := item["playerId"].(string)
		if mt.InGameRoster.player(pid) == nil {
			return invalid(pc.Failf("playerId", "%s is not in the roster", pid))
		}
		ids = append(ids, pid)
	}

	for _, pid := range ids {
		mt.InGameRoster.leave(pid)
	}
	m.store.syncActive(mt, nil)
	m.log.Info().Str("matchId", mt.MatchID).Strs("players", ids).Msg("jogadores saíram da partida")
	return webapi.NoContent()
}

// PostResults trata POST /v1/matches/{matchId}/results. Em partida CANCELLED é um
// no-op com 204; o sucesso leva a partida a COMPLETED.
func (m *Module) PostResults(req *webapi.Request) webapi.Reply {
	_, mt, fail := m.mutable(req)
	if fail != nil {
		return *fail
	}
	switch mt.Status {
	case StatusCancelled:
		m.log.Info().Str("matchId", mt.MatchID).Msg("resultados ignorados em partida cancelada")
		return webapi.NoContent()
	case StatusCompleted:
		return terminal(mt)
	}

	results, err := parseResults(m.check, req.JSON, mt)
	if err != nil {
		return invalid(err)
	}
	mt.MatchResults = results
	if err := setStatus(m.check, mt, StatusCompleted, m.clock.Now()); err != nil {
		return invalid(err)
	}
	m.log.Info().Str("matchId", mt.MatchID).Msg("resultados registrados")
	return webapi.NoContent()
}
