// Package npsession emula a API legada de NP sessions da PS4: criação multipart,
// entrada/saída de membros, atualização de atributos e leitura dos blobs.
package npsession

import (
	"encoding/json"
	"net/http"

	"github.com/raywall/psn-session-emulator/pkg/clock"
	"github.com/raywall/psn-session-emulator/pkg/metrics"
	"github.com/raywall/psn-session-emulator/pkg/multipart"
	"github.com/raywall/psn-session-emulator/pkg/validate"
	"github.com/raywall/psn-session-emulator/pkg/webapi"
	"github.com/rs/zerolog"
)

const (
	partSessionRequest    = "session-request"
	partSessionData       = "session-data"
	partChangeableSession = "changeable-session-data"
)

type Module struct {
	store    *Store
	parser   multipart.Parser
	check    *validate.Checker
	clock    clock.Clock
	counters *metrics.Counters
	log      zerolog.Logger
}

func NewModule(store *Store, c clock.Clock, counters *metrics.Counters, log zerolog.Logger) *Module {
	log = log.With().Str("module", "npsession").Logger()
	return &Module{
		store:    store,
		parser:   multipart.DescriptionParser{},
		check:    validate.New(log),
		clock:    c,
		counters: counters,
		log:      log,
	}
}

// Store expõe o armazenamento, usado pelos testes e pelo endpoint de contadores.
func (m *Module) Store() *Store { return m.store }

func unauthorized() webapi.Reply {
	return webapi.Error(http.StatusUnauthorized, CodeUnauthorized, "Authorization header is missing or invalid")
}

func notFound(id string) webapi.Reply {
	return webapi.Error(http.StatusNotFound, CodeNotFound, "Session "+id+" not found")
}

func member(req *webapi.Request, accountID string) Member {
	return Member{OnlineID: req.OnlineID(accountID), AccountID: accountID, Platform: PlatformPS4}
}

// lookup é o ponto único de busca por id; ausência vira 404.
func (m *Module) lookup(id string) (*Session, *webapi.Reply) {
	sess, ok := m.store.Session(id)
	if !ok {
		reply := notFound(id)
		return nil, &reply
	}
	return sess, nil
}

// PostSession trata POST /v1/sessions (multipart/mixed).
func (m *Module) PostSession(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return unauthorized()
	}

	boundary, err := multipart.Boundary(req.ContentType)
	if err != nil {
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, err.Error())
	}
	parts, err := m.parser.Parse(req.Raw, boundary)
	if err != nil {
		m.log.Warn().Err(err).Msg("corpo multipart inválido")
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, err.Error())
	}

	reqPart, ok := parts[partSessionRequest]
	if !ok {
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, "Missing part: "+partSessionRequest)
	}
	dataPart, ok := parts[partSessionData]
	if !ok {
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, "Missing part: "+partSessionData)
	}
	if len(dataPart.Data) > maxSessionData {
		return webapi.Error(http.StatusBadRequest, CodeDataTooLarge, "session-data is too large")
	}
	changeable := parts[partChangeableSession].Data
	if len(changeable) > maxChangeableData {
		return webapi.Error(http.StatusBadRequest, CodeDataTooLarge, "changeable-session-data is too large")
	}

	var body map[string]any
	if err := json.Unmarshal(reqPart.Data, &body); err != nil || body == nil {
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, "session-request is not a JSON object")
	}

	sess, err := m.newSession(body)
	if err != nil {
		return webapi.Invalid(err, CodeInvalidParameter)
	}

	// Validação concluída: a partir daqui o store é alterado.
	creator := member(req, caller)
	m.leaveActive(caller)

	sess.SessionID = m.store.nextID()
	sess.SessionCreator = creator
	sess.SessionCreateTimestamp = clock.Millis(m.clock.Now())
	sess.Members = []Member{creator}
	sess.SessionData = append([]byte(nil), dataPart.Data...)
	sess.ChangeableData = append([]byte(nil), changeable...)

	m.store.put(sess)
	m.store.setActive(caller, sess.SessionID)
	m.counters.Inc(metrics.NpsSessionsCreated)

	m.log.Info().Str("sessionId", sess.SessionID).Str("accountId", caller).Msg("sessão criada")
	return webapi.OK(map[string]string{"sessionId": sess.SessionID})
}

func (m *Module) newSession(body map[string]any) (*Session, error) {
	c := m.check
	sess := &Session{
		SessionType:        "owner-bind",
		SessionPrivacy:     "public",
		AvailablePlatforms: []string{PlatformPS4},
	}

	maxUser, ok, err := c.Int(body, "sessionMaxUser", 1, maxSessionUsers)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, c.Failf("sessionMaxUser", "is required")
	}
	sess.SessionMaxUser = maxUser

	if t, ok, err := c.String(body, "sessionType"); err != nil {
		return nil, err
	} else if ok {
		if err := c.OneOf("sessionType", t, "owner-bind", "owner-migration", "serverless"); err != nil {
			return nil, err
		}
		sess.SessionType = t
	}
	if p, ok, err := c.String(body, "sessionPrivacy"); err != nil {
		return nil, err
	} else if ok {
		if err := c.OneOf("sessionPrivacy", p, "public", "private"); err != nil {
			return nil, err
		}
		sess.SessionPrivacy = p
	}
	if err := c.StringLen(body, "sessionName", 0, 64); err != nil {
		return nil, err
	}
	sess.SessionName, _, _ = c.String(body, "sessionName")
	if err := c.StringLen(body, "sessionStatus", 0, 255); err != nil {
		return nil, err
	}
	sess.SessionStatus, _, _ = c.String(body, "sessionStatus")

	if err := c.ListOfStrings(body, "availablePlatforms", 0, 3); err != nil {
		return nil, err
	}
	if list, ok := body["availablePlatforms"].([]any); ok && len(list) > 0 {
		sess.AvailablePlatforms = sess.AvailablePlatforms[:0]
		for _, p := range list {
			sess.AvailablePlatforms = append(sess.AvailablePlatforms, p.(string))
		}
	}
	lock, _, err := c.Bool(body, "sessionLockFlag")
	if err != nil {
		return nil, err
	}
	sess.SessionLockFlag = lock
	return sess, nil
}

// leaveActive retira a conta da sessão em que estiver, mantendo a regra de
// no máximo uma sessão por usuário.
func (m *Module) leaveActive(accountID string) {
	active, ok := m.store.Active(accountID)
	if !ok {
		return
	}
	prev, ok := m.store.Session(active.SessionID)
	if !ok {
		delete(m.store.active, accountID)
		return
	}
	deleted, _ := m.store.removeMember(prev, accountID)
	m.log.Info().
		Str("sessionId", prev.SessionID).
		Str("accountId", accountID).
		Bool("sessionDeleted", deleted).
		Msg("saída implícita da sessão anterior")
}

// PostSessionMember trata POST /v1/sessions/{sessionId}/members.
func (m *Module) PostSessionMember(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return unauthorized()
	}
	sess, fail := m.lookup(req.Var("sessionId"))
	if fail != nil {
		return *fail
	}

	if sess.HasMember(caller) {
		m.counters.Inc(metrics.NpsRedundantJoins)
		m.log.Debug().Str("sessionId", sess.SessionID).Str("accountId", caller).Msg("join redundante ignorado")
		return webapi.Empty(http.StatusOK)
	}
	if sess.SessionLockFlag {
		return webapi.Error(http.StatusForbidden, CodeSessionLocked, "Session is locked")
	}
	if len(sess.Members) >= sess.SessionMaxUser {
		return webapi.Error(http.StatusBadRequest, CodeSessionFull, "Session is full")
	}

	m.leaveActive(caller)
	// O chamador não é membro de sess, então leaveActive nunca apaga sess.
	sess.Members = append(sess.Members, member(req, caller))
	m.store.setActive(caller, sess.SessionID)

	m.log.Info().Str("sessionId", sess.SessionID).Str("accountId", caller).Msg("membro entrou na sessão")
	return webapi.Empty(http.StatusOK)
}

// DeleteSession trata DELETE /v1/sessions/{sessionId}: o chamador sai da sessão.
func (m *Module) DeleteSession(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return unauthorized()
	}
	id := req.Var("sessionId")
	sess, found := m.store.Session(id)
	if !found {
		m.counters.Inc(metrics.NpsAlreadyLeft)
		return notFound(id)
	}
	deleted, wasMember := m.store.removeMember(sess, caller)
	if !wasMember {
		m.counters.Inc(metrics.NpsAlreadyLeft)
		return notFound(id)
	}

	m.log.Info().Str("sessionId", id).Str("accountId", caller).Bool("sessionDeleted", deleted).Msg("membro saiu da sessão")
	return webapi.NoContent()
}

// memberSession resolve a sessão e exige que o chamador seja membro dela.
func (m *Module) memberSession(req *webapi.Request) (*Session, *webapi.Reply) {
	caller, ok := req.Caller()
	if !ok {
		reply := unauthorized()
		return nil, &reply
	}
	sess, fail := m.lookup(req.Var("sessionId"))
	if fail != nil {
		return nil, fail
	}
	if !sess.HasMember(caller) {
		reply := webapi.Error(http.StatusForbidden, CodeForbidden, "Caller is not a member of the session")
		return nil, &reply
	}
	return sess, nil
}

// PutSession trata PUT /v1/sessions/{sessionId}. Apenas campos conhecidos são aplicados.
func (m *Module) PutSession(req *webapi.Request) webapi.Reply {
	sess, fail := m.memberSession(req)
	if fail != nil {
		return *fail
	}
	body := req.JSON
	if body == nil {
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, "Request body must be a JSON object")
	}

	c := m.check
	lock, hasLock, err := c.Bool(body, "sessionLockFlag")
	if err != nil {
		return webapi.Invalid(err, CodeInvalidParameter)
	}
	maxUser, hasMax, err := c.Int(body, "sessionMaxUser", 1, maxSessionUsers)
	if err != nil {
		return webapi.Invalid(err, CodeInvalidParameter)
	}
	if hasMax && maxUser < len(sess.Members) {
		return webapi.Invalid(c.Failf("sessionMaxUser", "cannot be lower than the current member count %d", len(sess.Members)), CodeInvalidParameter)
	}
	if err := c.StringLen(body, "sessionName", 0, 64); err != nil {
		return webapi.Invalid(err, CodeInvalidParameter)
	}
	if err := c.StringLen(body, "sessionStatus", 0, 255); err != nil {
		return webapi.Invalid(err, CodeInvalidParameter)
	}

	if hasLock {
		sess.SessionLockFlag = lock
	}
	if hasMax {
		sess.SessionMaxUser = maxUser
	}
	if name, ok, _ := c.String(body, "sessionName"); ok {
		sess.SessionName = name
	}
	if status, ok, _ := c.String(body, "sessionStatus"); ok {
		sess.SessionStatus = status
	}

	m.log.Info().Str("sessionId", sess.SessionID).Msg("sessão atualizada")
	return webapi.NoContent()
}

// PutSessionImage trata PUT /v1/sessions/{sessionId}/sessionImage.
func (m *Module) PutSessionImage(req *webapi.Request) webapi.Reply {
	sess, fail := m.memberSession(req)
	if fail != nil {
		return *fail
	}
	if len(req.Raw) == 0 {
		return webapi.Error(http.StatusBadRequest, CodeInvalidRequest, "Session image is empty")
	}
	if len(req.Raw) > maxSessionImage {
		return webapi.Error(http.StatusBadRequest, CodeDataTooLarge, "Session image is too large")
	}
	sess.Image = append([]byte(nil), req.Raw...)
	sess.ImageType = req.ContentType
	return webapi.NoContent()
}

// PutChangeableSessionData trata PUT /v1/sessions/{sessionId}/changeableSessionData.
func (m *Module) PutChangeableSessionData(req *webapi.Request) webapi.Reply {
	sess, fail := m.memberSession(req)
	if fail != nil {
		return *fail
	}
	if len(req.Raw) > maxChangeableData {
		return webapi.Error(http.StatusBadRequest, CodeDataTooLarge, "changeableSessionData is too large")
	}
	sess.ChangeableData = append([]byte(nil), req.Raw...)
	return webapi.NoContent()
}

// GetSession trata GET /v1/sessions/{sessionId}.
func (m *Module) GetSession(req *webapi.Request) webapi.Reply {
	sess, fail := m.lookup(req.Var("sessionId"))
	if fail != nil {
		return *fail
	}
	return webapi.OK(sess)
}

// GetSessionData trata GET /v1/sessions/{sessionId}/sessionData.
func (m *Module) GetSessionData(req *webapi.Request) webapi.Reply {
	sess, fail := m.lookup(req.Var("sessionId"))
	if fail != nil {
		return *fail
	}
	return blob(sess.SessionData)
}

// GetChangeableSessionData trata GET /v1/sessions/{sessionId}/changeableSessionData.
func (m *Module) GetChangeableSessionData(req *webapi.Request) webapi.Reply {
	sess, fail := m.lookup(req.Var("sessionId"))
	if fail != nil {
		return *fail
	}
	return blob(sess.ChangeableData)
}

// blob devolve 204 quando não há dados, comportamento legado da PS4.
func blob(data []byte) webapi.Reply {
	if len(data) == 0 {
		return webapi.NoContent()
	}
	return webapi.Binary(http.StatusOK, data)
}

type usersSessionsPage struct {
	Start        int             `json:"start"`
	Size         int             `json:"size"`
	TotalResults int             `json:"totalResults"`
	Sessions     []ActiveSession `json:"sessions"`
}

// GetUsersSessions trata GET /v1/users/{accountId}/sessions.
func (m *Module) GetUsersSessions(req *webapi.Request) webapi.Reply {
	caller, ok := req.Caller()
	if !ok {
		return unauthorized()
	}
	account := webapi.ResolveAccount(req.Var("accountId"), caller)

	page := usersSessionsPage{Sessions: []ActiveSession{}}
	if active, found := m.store.Active(account); found {
		page.Sessions = append(page.Sessions, active)
	}
	page.Size = len(page.Sessions)
	page.TotalResults = page.Size
	return webapi.OK(page)
}
