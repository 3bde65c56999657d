// Package playersession emula a API de player sessions da PS5: criação, entrada de
// jogadores e espectadores, saída com migração de líder e atualização de atributos.
package playersession

import (
	"net/http"

	"github.com/raywall/psn-session-emulator/pkg/clock"
	"github.com/raywall/psn-session-emulator/pkg/metrics"
	"github.com/raywall/psn-session-emulator/pkg/validate"
	"github.com/raywall/psn-session-emulator/pkg/webapi"
	"github.com/rs/zerolog"
)

type Module struct {
	store    *Store
	check    *validate.Checker
	clock    clock.Clock
	counters *metrics.Counters
	log      zerolog.Logger
}

func NewModule(store *Store, c clock.Clock, counters *metrics.Counters, log zerolog.Logger) *Module {
	log = log.With().Str("module", "playersession").Logger()
	return &Module{
		store:    store,
		check:    validate.New(log),
		clock:    c,
		counters: counters,
		log:      log,
	}
}

func (m *Module) Store() *Store { return m.store }

func unauthorized() *webapi.Reply {
	r := webapi.Error(http.StatusUnauthorized, CodeUnauthorized, "Authorization header is missing or invalid")
	return &r
}

func forbidden(msg string) *webapi.Reply {
	r := webapi.Error(http.StatusForbidden, CodeForbidden, msg)
	return &r
}

func badRequest(code int, msg string) *webapi.Reply {
	r := webapi.Error(http.StatusBadRequest, code, msg)
	return &r
}

func invalid(err error) *webapi.Reply {
	r := webapi.Invalid(err, CodeInvalidParameter)
	return &r
}

// lookup resolve o chamador e a sessão do path.
func (m *Module) lookup(req *webapi.Request) (string, *PlayerSession, *webapi.Reply) {
	caller, ok := req.Caller()
	if !ok {
		return "", nil, unauthorized()
	}
	id := req.Var("sessionId")
	sess, found := m.store.Session(id)
	if !found {
		r := webapi.Error(http.StatusNotFound, CodeNotFound, "Player session "+id+" not found")
		return caller, nil, &r
	}
	return caller, sess, nil
}

// playerSession é como lookup, mas exige que o chamador seja jogador da sessão.
func (m *Module) playerSession(req *webapi.Request) (string, *PlayerSession, *webapi.Reply) {
	caller, sess, fail := m.lookup(req)
	if fail != nil {
		return caller, nil, fail
	}
	if !sess.IsPlayer(caller) {
		return caller, nil, forbidden("Caller is not a player of the session")
	}
	return caller, sess, nil
}

func jsonBody(req *webapi.Request) (map[string]any, *webapi.Reply) {
	if req.JSON == nil {
		return nil, badRequest(CodeInvalidRequest, "Request body must be a JSON object")
	}
	return req.JSON, nil
}

type memberRef struct {
	AccountID string   `json:"accountId"`
	Platform  Platform `json:"platform"`
}

type createdSession struct {
	SessionID string `json:"sessionId"`
	Member    struct {
		Players []memberRef `json:"players"`
	} `json:"member"`
}

type sessionsBody struct {
	PlayerSessions any `json:"playerSessions"`
}

// PostPlayerSession trata POST /v1/playerSessions.
func (m *Module) PostPlayerSession(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return *unauthorized()
	}
	body, fail := jsonBody(req)
	if fail != nil {
		return *fail
	}

	sess, err := validateReqPlayerSess(m.check, body, nil, true)
	if err != nil {
		return *invalid(err)
	}
	creator, fail := m.creator(body, req, caller)
	if fail != nil {
		return *fail
	}
	if !sess.SupportsPlatform(creator.Platform) {
		return *invalid(m.check.Failf("member.players[0].platform", "%s is not in supportedPlatforms", creator.Platform))
	}

	// Validação concluída: a partir daqui o store é alterado.
	m.leaveActive(caller)

	now := clock.Millis(m.clock.Now())
	creator.JoinTimestamp = now
	sess.SessionID = m.store.nextID()
	sess.CreatedTimestamp = now
	sess.Member = Members{Players: []Member{creator}, Spectators: []Member{}}
	sess.Leader = Leader{AccountID: creator.AccountID, Platform: creator.Platform}

	m.store.sessions[sess.SessionID] = sess
	m.store.active[caller] = sess.SessionID
	m.counters.Inc(metrics.PlayerSessCreated)
	m.log.Info().Str("sessionId", sess.SessionID).Str("leader", caller).Msg("player session criada")

	out := createdSession{SessionID: sess.SessionID}
	out.Member.Players = []memberRef{{AccountID: creator.AccountID, Platform: creator.Platform}}
	return webapi.OK(sessionsBody{PlayerSessions: []createdSession{out}})
}

// creator extrai o único jogador de member.players, que deve ser o próprio chamador.
func (m *Module) creator(body map[string]any, req *webapi.Request, caller string) (Member, *webapi.Reply) {
	c := m.check
	memberObj, ok, err := c.Object(body, "member")
	if err != nil {
		return Member{}, invalid(err)
	}
	if !ok {
		return Member{}, invalid(c.Failf("member", "is required"))
	}
	mc := c.Within("member")
	if err := mc.ListLen(memberObj, "players", 1, 1); err != nil {
		return Member{}, invalid(err)
	}
	players, _, err := mc.Objects(memberObj, "players")
	if err != nil {
		return Member{}, invalid(err)
	}
	if !validate.IsUnspecified(memberObj, "spectators") {
		return Member{}, invalid(mc.Failf("spectators", "cannot be set on creation"))
	}
	creator, err := parseMember(mc.Within("players[0]"), players[0], req, caller)
	if err != nil {
		return Member{}, invalid(err)
	}
	if creator.AccountID != caller {
		return Member{}, forbidden("The session creator must be the caller")
	}
	return creator, nil
}

// leaveActive retira a conta da sessão ativa anterior, se houver.
func (m *Module) leaveActive(accountID string) {
	id, ok := m.store.Active(accountID)
	if !ok {
		return
	}
	prev, ok := m.store.Session(id)
	if !ok {
		delete(m.store.active, accountID)
		return
	}
	res, _ := m.store.removeMember(prev, accountID)
	m.logLeave(prev.SessionID, accountID, res, "saída implícita da sessão anterior")
}

func (m *Module) logLeave(sessionID, accountID string, res leaveResult, msg string) {
	if res.newLeader != "" {
		m.counters.Inc(metrics.PlayerSessLeaderMoves)
	}
	m.log.Info().
		Str("sessionId", sessionID).
		Str("accountId", accountID).
		Str("newLeader", res.newLeader).
		Bool("sessionDeleted", res.deleted).
		Msg(msg)
}

// PostPlayer trata POST /v1/playerSessions/{sessionId}/member/players.
func (m *Module) PostPlayer(req *webapi.Request) webapi.Reply {
	return m.join(req, true)
}

// PostSpectator trata POST /v1/playerSessions/{sessionId}/member/spectators.
func (m *Module) PostSpectator(req *webapi.Request) webapi.Reply {
	return m.join(req, false)
}

func (m *Module) join(req *webapi.Request, asPlayer bool) webapi.Reply {
	caller, sess, fail := m.lookup(req)
	if fail != nil {
		return *fail
	}
	body, fail := jsonBody(req)
	if fail != nil {
		return *fail
	}

	key := "spectators"
	if asPlayer {
		key = "players"
	}
	c := m.check
	if err := c.ListLen(body, key, 1, 1); err != nil {
		return *invalid(err)
	}
	entries, _, err := c.Objects(body, key)
	if err != nil {
		return *invalid(err)
	}
	joiner, err := parseMember(c.Within(key+"[0]"), entries[0], req, caller)
	if err != nil {
		return *invalid(err)
	}
	if joiner.AccountID != caller {
		return *forbidden("Only the caller can be added to the session")
	}
	if !sess.SupportsPlatform(joiner.Platform) {
		return *invalid(c.Failf(key+"[0].platform", "%s is not supported by the session", joiner.Platform))
	}

	if (asPlayer && sess.IsPlayer(caller)) || (!asPlayer && sess.IsSpectator(caller)) {
		m.counters.Inc(metrics.PlayerSessRedundantJoins)
		m.log.Debug().Str("sessionId", sess.SessionID).Str("accountId", caller).Msg("join redundante ignorado")
		return m.joined(key, joiner)
	}

	swap := sess.IsMember(caller)
	if swap {
		if fail := checkSwap(sess, caller, asPlayer); fail != nil {
			return *fail
		}
	} else {
		if sess.JoinDisabled {
			return *badRequest(CodeJoinDisabled, "Joining the session is disabled")
		}
		if fail := checkJoinable(sess, caller); fail != nil {
			return *fail
		}
	}
	if asPlayer && len(sess.Member.Players) >= sess.MaxPlayers {
		return *badRequest(CodeSessionFull, "The session has reached maxPlayers")
	}
	if !asPlayer && len(sess.Member.Spectators) >= sess.MaxSpectators {
		return *badRequest(CodeSessionFull, "The session has reached maxSpectators")
	}

	if swap {
		if asPlayer {
			i := indexOf(sess.Member.Spectators, caller)
			sess.Member.Spectators = append(sess.Member.Spectators[:i], sess.Member.Spectators[i+1:]...)
		} else {
			i := indexOf(sess.Member.Players, caller)
			sess.Member.Players = append(sess.Member.Players[:i], sess.Member.Players[i+1:]...)
		}
	} else {
		m.leaveActive(caller)
	}

	joiner.JoinTimestamp = clock.Millis(m.clock.Now())
	if asPlayer {
		sess.Member.Players = append(sess.Member.Players, joiner)
	} else {
		sess.Member.Spectators = append(sess.Member.Spectators, joiner)
	}
	m.store.active[caller] = sess.SessionID

	m.log.Info().Str("sessionId", sess.SessionID).Str("accountId", caller).Bool("player", asPlayer).Bool("swap", swap).Msg("membro entrou na player session")
	return m.joined(key, joiner)
}

func (m *Module) joined(key string, member Member) webapi.Reply {
	return webapi.OK(map[string][]memberRef{key: {{AccountID: member.AccountID, Platform: member.Platform}}})
}

// checkSwap aplica as regras de troca entre jogador e espectador.
func checkSwap(sess *PlayerSession, caller string, toPlayer bool) *webapi.Reply {
	if !sess.SwapSupported {
		return badRequest(CodeSwapNotAllowed, "Swapping between player and spectator is not supported by the session")
	}
	if toPlayer {
		return nil
	}
	if sess.IsLeader(caller) {
		return badRequest(CodeSwapNotAllowed, "The leader cannot become a spectator")
	}
	if len(sess.Member.Players) == 1 {
		return badRequest(CodeSwapNotAllowed, "The last player cannot become a spectator")
	}
	return nil
}

// checkJoinable aplica joinableUserType. Não há grafo de amigos no emulador, então
// FRIENDS e FRIENDS_OF_FRIENDS se comportam como ANYONE.
func checkJoinable(sess *PlayerSession, caller string) *webapi.Reply {
	switch sess.JoinableUserType {
	case JoinableNoOne:
		return forbidden("The session does not accept new members")
	case JoinableSpecifiedUsers:
		if !sess.isSpecified(caller) {
			return forbidden("Caller is not in joinableSpecifiedUsers")
		}
	}
	return nil
}

// DeleteMember trata DELETE /v1/playerSessions/{sessionId}/members/{accountId}.
func (m *Module) DeleteMember(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return *unauthorized()
	}
	id := req.Var("sessionId")
	sess, found := m.store.Session(id)
	if !found {
		m.counters.Inc(metrics.PlayerSessAlreadyLeft)
		return webapi.Error(http.StatusNotFound, CodeNotFound, "Player session "+id+" not found")
	}
	target := webapi.ResolveAccount(req.Var("accountId"), caller)

	if target != caller && !(sess.IsLeader(caller) && sess.HasPrivilege(PrivilegeKick)) {
		return *forbidden("Only the leader with the KICK privilege can remove other members")
	}
	res, wasMember := m.store.removeMember(sess, target)
	if !wasMember {
		m.counters.Inc(metrics.PlayerSessAlreadyLeft)
		return webapi.Error(http.StatusNotFound, CodeNotFound, "Account "+target+" is not a member of the session")
	}
	m.logLeave(id, target, res, "membro saiu da player session")
	return webapi.NoContent()
}

// patchable são os campos aceitos por PATCH /v1/playerSessions/{sessionId}.
var patchable = map[string]bool{
	"maxPlayers":           true,
	"maxSpectators":        true,
	"joinDisabled":         true,
	"joinableUserType":     true,
	"invitableUserType":    true,
	"localizedSessionName": true,
	"customData1":          true,
	"customData2":          true,
}

// PatchSession trata PATCH /v1/playerSessions/{sessionId}. A PSN aceita apenas um
// campo por requisição.
func (m *Module) PatchSession(req *webapi.Request) webapi.Reply {
	caller, sess, fail := m.playerSession(req)
	if fail != nil {
		return *fail
	}
	body, fail := jsonBody(req)
	if fail != nil {
		return *fail
	}
	if len(body) != 1 {
		return *badRequest(CodeInvalidRequest, "Exactly one property must be specified per request")
	}
	var field string
	for k := range body {
		field = k
	}
	if !patchable[field] {
		return *invalid(m.check.Failf(field, "cannot be updated"))
	}

	switch field {
	case "joinableUserType":
		if sess.HasPrivilege(PrivilegeUpdateJoinableUserType) && !sess.IsLeader(caller) {
			return *forbidden("Only the leader can update joinableUserType")
		}
	case "invitableUserType":
		if sess.HasPrivilege(PrivilegeUpdateInvitableUserType) && !sess.IsLeader(caller) {
			return *forbidden("Only the leader can update invitableUserType")
		}
	}

	updated := *sess
	if _, err := validateReqPlayerSess(m.check, body, &updated, false); err != nil {
		return *invalid(err)
	}
	if updated.MaxPlayers < len(sess.Member.Players) {
		return *invalid(m.check.Failf("maxPlayers", "cannot be lower than the current player count %d", len(sess.Member.Players)))
	}
	if updated.MaxSpectators < len(sess.Member.Spectators) {
		return *invalid(m.check.Failf("maxSpectators", "cannot be lower than the current spectator count %d", len(sess.Member.Spectators)))
	}
	*sess = updated

	m.log.Info().Str("sessionId", sess.SessionID).Str("field", field).Msg("player session atualizada")
	return webapi.NoContent()
}

// PutLeader trata PUT /v1/playerSessions/{sessionId}/leader. Só é possível nomear a si mesmo.
func (m *Module) PutLeader(req *webapi.Request) webapi.Reply {
	caller, sess, fail := m.lookup(req)
	if fail != nil {
		return *fail
	}
	body, fail := jsonBody(req)
	if fail != nil {
		return *fail
	}
	account, ok, err := m.check.String(body, "accountId")
	if err != nil {
		return *invalid(err)
	}
	if !ok || account == "" {
		return *invalid(m.check.Failf("accountId", "is required"))
	}
	if webapi.ResolveAccount(account, caller) != caller {
		return *forbidden("The new leader must be the caller")
	}
	i := indexOf(sess.Member.Players, caller)
	if i < 0 {
		return *forbidden("The new leader must be a player of the session")
	}

	if !sess.IsLeader(caller) {
		sess.Leader = Leader{AccountID: caller, Platform: sess.Member.Players[i].Platform}
		m.counters.Inc(metrics.PlayerSessLeaderMoves)
		m.log.Info().Str("sessionId", sess.SessionID).Str("leader", caller).Msg("liderança transferida")
	}
	return webapi.NoContent()
}

// PatchMemberProperties trata PATCH /v1/playerSessions/{sessionId}/members/{accountId}.
func (m *Module) PatchMemberProperties(req *webapi.Request) webapi.Reply {
	caller, sess, fail := m.lookup(req)
	if fail != nil {
		return *fail
	}
	if webapi.ResolveAccount(req.Var("accountId"), caller) != caller {
		return *forbidden("Only the caller's own properties can be updated")
	}
	body, fail := jsonBody(req)
	if fail != nil {
		return *fail
	}
	for k := range body {
		if k != "customData1" {
			return *invalid(m.check.Failf(k, "cannot be updated"))
		}
	}
	value, ok, err := customData(m.check, body, "customData1")
	if err != nil {
		return *invalid(err)
	}
	if !ok {
		return *badRequest(CodeInvalidRequest, "customData1 must be specified")
	}

	list := sess.Member.Players
	i := indexOf(list, caller)
	if i < 0 {
		list = sess.Member.Spectators
		i = indexOf(list, caller)
	}
	if i < 0 {
		return *forbidden("Caller is not a member of the session")
	}
	list[i].CustomData1 = value
	return webapi.NoContent()
}

// specifiedUsers lê e valida o header de contas de joinableSpecifiedUsers.
func (m *Module) specifiedUsers(req *webapi.Request) ([]string, *webapi.Reply) {
	ids := req.HeaderList(webapi.HeaderAccountIDs)
	if len(ids) == 0 {
		return nil, badRequest(CodeInvalidRequest, "Header "+webapi.HeaderAccountIDs+" is required")
	}
	if len(ids) > maxSpecifiedUsers {
		return nil, badRequest(CodeInvalidParameter, "Too many account ids")
	}
	return ids, nil
}

// PostJoinableSpecifiedUsers trata POST /v1/playerSessions/{sessionId}/joinableSpecifiedUsers.
func (m *Module) PostJoinableSpecifiedUsers(req *webapi.Request) webapi.Reply {
	_, sess, fail := m.playerSession(req)
	if fail != nil {
		return *fail
	}
	ids, fail := m.specifiedUsers(req)
	if fail != nil {
		return *fail
	}

	added := 0
	for _, id := range ids {
		if !sess.isSpecified(id) {
			added++
		}
	}
	if len(sess.JoinableSpecifiedUsers)+added > maxSpecifiedUsers {
		return *badRequest(CodeInvalidParameter, "joinableSpecifiedUsers would exceed the limit")
	}
	for _, id := range ids {
		if !sess.isSpecified(id) {
			sess.JoinableSpecifiedUsers = append(sess.JoinableSpecifiedUsers, SpecifiedUser{AccountID: id})
		}
	}
	return webapi.OK(map[string][]SpecifiedUser{"joinableSpecifiedUsers": sess.JoinableSpecifiedUsers})
}

// DeleteJoinableSpecifiedUsers trata DELETE /v1/playerSessions/{sessionId}/joinableSpecifiedUsers.
// Retirar uma conta da lista não a remove da sessão.
func (m *Module) DeleteJoinableSpecifiedUsers(req *webapi.Request) webapi.Reply {
	_, sess, fail := m.playerSession(req)
	if fail != nil {
		return *fail
	}
	ids, fail := m.specifiedUsers(req)
	if fail != nil {
		return *fail
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := sess.JoinableSpecifiedUsers[:0]
	for _, u := range sess.JoinableSpecifiedUsers {
		if !drop[u.AccountID] {
			kept = append(kept, u)
		}
	}
	sess.JoinableSpecifiedUsers = kept
	return webapi.NoContent()
}

// GetPlayerSessions trata GET /v1/playerSessions com os ids em X-PSN-SESSION-MANAGER-SESSION-IDS.
// Ids desconhecidos são omitidos do resultado.
func (m *Module) GetPlayerSessions(req *webapi.Request) webapi.Reply {
	if _, ok := req.Caller(); !ok {
		return *unauthorized()
	}
	ids := req.HeaderList(webapi.HeaderSessionIDs)
	if len(ids) == 0 {
		return *badRequest(CodeInvalidRequest, "Header "+webapi.HeaderSessionIDs+" is required")
	}
	if len(ids) > maxSessionIDsPerGet {
		return *badRequest(CodeInvalidParameter, "Too many session ids")
	}
	out := make([]*PlayerSession, 0, len(ids))
	for _, id := range ids {
		if sess, ok := m.store.Session(id); ok {
			out = append(out, sess)
		}
	}
	return webapi.OK(sessionsBody{PlayerSessions: out})
}

type userSession struct {
	SessionID string   `json:"sessionId"`
	Platform  Platform `json:"platform"`
}

// GetUserPlayerSessions trata GET /v1/users/{accountId}/playerSessions.
func (m *Module) GetUserPlayerSessions(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return *unauthorized()
	}
	account := webapi.ResolveAccount(req.Var("accountId"), caller)

	out := []userSession{}
	if id, found := m.store.Active(account); found {
		if sess, ok := m.store.Session(id); ok {
			platform := PlatformPS5
			for _, list := range [][]Member{sess.Member.Players, sess.Member.Spectators} {
				if i := indexOf(list, account); i >= 0 {
					platform = list[i].Platform
				}
			}
			out = append(out, userSession{SessionID: id, Platform: platform})
		}
	}
	return webapi.OK(sessionsBody{PlayerSessions: out})
}
