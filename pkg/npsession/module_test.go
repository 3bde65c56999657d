package npsession

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/raywall/psn-session-emulator/pkg/clock"
	"github.com/raywall/psn-session-emulator/pkg/metrics"
	"github.com/raywall/psn-session-emulator/pkg/webapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boundary = "boundary-psn"

func newTestModule() (*Module, *metrics.Counters) {
	counters := metrics.NewCounters()
	return NewModule(NewStore(), clock.NewManual(time.Time{}), counters, zerolog.Nop()), counters
}

func part(name, contentType string, data []byte) string {
	return "--" + boundary + "\r\n" +
		"Content-Type: " + contentType + "\r\n" +
		"Content-Description: " + name + "\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data)) +
		string(data) + "\r\n"
}

func createBody(request string, data []byte, changeable []byte) []byte {
	body := part(partSessionRequest, "application/json; charset=utf-8", []byte(request))
	if data != nil {
		body += part(partSessionData, "application/octet-stream", data)
	}
	if changeable != nil {
		body += part(partChangeableSession, "application/octet-stream", changeable)
	}
	return []byte(body + "--" + boundary + "--\r\n")
}

func newReq(caller string, vars map[string]string) *webapi.Request {
	h := http.Header{}
	if caller != "" {
		h.Set(webapi.HeaderAuthorization, "Bearer "+caller)
	}
	return &webapi.Request{Header: h, Vars: vars}
}

func createSession(t *testing.T, m *Module, caller string, maxUser int) string {
	t.Helper()
	req := newReq(caller, nil)
	req.ContentType = "multipart/mixed; boundary=" + boundary
	req.Raw = createBody(fmt.Sprintf(`{"sessionMaxUser":%d,"sessionName":"sala","sessionPrivacy":"public"}`, maxUser), []byte{0xCA, 0xFE}, []byte("ch"))

	reply := m.PostSession(req)
	require.Equal(t, http.StatusOK, reply.Status, "%+v", reply.Body)
	return reply.Body.(map[string]string)["sessionId"]
}

func sessionVars(id string) map[string]string {
	return map[string]string{"sessionId": id}
}

func TestPostSession(t *testing.T) {
	m, counters := newTestModule()

	id := createSession(t, m, "100", 4)

	sess, ok := m.Store().Session(id)
	require.True(t, ok)
	assert.Equal(t, "sala", sess.SessionName)
	assert.Equal(t, 4, sess.SessionMaxUser)
	assert.Equal(t, []Member{{OnlineID: "online-100", AccountID: "100", Platform: PlatformPS4}}, sess.Members)
	assert.Equal(t, "100", sess.SessionCreator.AccountID)
	assert.Equal(t, []byte{0xCA, 0xFE}, sess.SessionData)
	assert.Equal(t, []byte("ch"), sess.ChangeableData)
	assert.NotEmpty(t, sess.SessionCreateTimestamp)

	active, ok := m.Store().Active("100")
	require.True(t, ok)
	assert.Equal(t, id, active.SessionID)
	assert.Equal(t, int64(1), counters.Get(metrics.NpsSessionsCreated))
}

func TestPostSession_BinarySessionData(t *testing.T) {
	m, _ := newTestModule()
	data := bytes.Repeat([]byte{0xFF, 0x00, 0xC3}, 200)

	req := newReq("100", nil)
	req.ContentType = "multipart/mixed; boundary=" + boundary
	req.Raw = createBody(`{"sessionMaxUser":2}`, data, []byte("CHG"))

	reply := m.PostSession(req)
	require.Equal(t, http.StatusOK, reply.Status, "%+v", reply.Body)

	sess, ok := m.Store().Session(reply.Body.(map[string]string)["sessionId"])
	require.True(t, ok)
	assert.Equal(t, data, sess.SessionData)
	assert.Equal(t, []byte("CHG"), sess.ChangeableData)
}

func TestPostSession_Failures(t *testing.T) {
	m, _ := newTestModule()
	mp := "multipart/mixed; boundary=" + boundary

	cases := map[string]struct {
		caller      string
		contentType string
		body        []byte
		status      int
	}{
		"Sem authorization":     {caller: "", contentType: mp, body: createBody(`{"sessionMaxUser":2}`, []byte("d"), nil), status: 401},
		"Content-Type errado":   {caller: "1", contentType: "application/json", body: []byte(`{}`), status: 400},
		"Sem session-data":      {caller: "1", contentType: mp, body: createBody(`{"sessionMaxUser":2}`, nil, nil), status: 400},
		"JSON inválido":         {caller: "1", contentType: mp, body: createBody(`{oops`, []byte("d"), nil), status: 400},
		"Sem sessionMaxUser":    {caller: "1", contentType: mp, body: createBody(`{"sessionName":"x"}`, []byte("d"), nil), status: 400},
		"sessionMaxUser grande": {caller: "1", contentType: mp, body: createBody(`{"sessionMaxUser":99}`, []byte("d"), nil), status: 400},
		"Privacidade inválida":  {caller: "1", contentType: mp, body: createBody(`{"sessionMaxUser":2,"sessionPrivacy":"x"}`, []byte("d"), nil), status: 400},
		"Changeable grande":     {caller: "1", contentType: mp, body: createBody(`{"sessionMaxUser":2}`, []byte("d"), make([]byte, maxChangeableData+1)), status: 400},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := newReq(tc.caller, nil)
			req.ContentType = tc.contentType
			req.Raw = tc.body
			reply := m.PostSession(req)
			assert.Equal(t, tc.status, reply.Status)
		})
	}
	assert.Equal(t, 0, m.Store().Len(), "falhas de validação não criam sessões")
}

func TestJoinAndLeave(t *testing.T) {
	m, counters := newTestModule()
	id := createSession(t, m, "1", 2)

	t.Run("Join adiciona membro e ativa a sessão", func(t *testing.T) {
		reply := m.PostSessionMember(newReq("2", sessionVars(id)))
		assert.Equal(t, http.StatusOK, reply.Status)

		sess, _ := m.Store().Session(id)
		assert.Len(t, sess.Members, 2)
		active, _ := m.Store().Active("2")
		assert.Equal(t, id, active.SessionID)
	})

	t.Run("Join redundante não duplica", func(t *testing.T) {
		reply := m.PostSessionMember(newReq("2", sessionVars(id)))
		assert.Equal(t, http.StatusOK, reply.Status)

		sess, _ := m.Store().Session(id)
		assert.Len(t, sess.Members, 2)
		assert.Equal(t, int64(1), counters.Get(metrics.NpsRedundantJoins))
	})

	t.Run("Sessão cheia", func(t *testing.T) {
		reply := m.PostSessionMember(newReq("3", sessionVars(id)))
		assert.Equal(t, http.StatusBadRequest, reply.Status)
	})

	t.Run("Sessão inexistente", func(t *testing.T) {
		reply := m.PostSessionMember(newReq("3", sessionVars("999")))
		assert.Equal(t, http.StatusNotFound, reply.Status)
	})

	t.Run("Leave de não membro conta already-left", func(t *testing.T) {
		reply := m.DeleteSession(newReq("3", sessionVars(id)))
		assert.Equal(t, http.StatusNotFound, reply.Status)
		assert.Equal(t, int64(1), counters.Get(metrics.NpsAlreadyLeft))
	})

	t.Run("Último membro apaga a sessão", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, m.DeleteSession(newReq("1", sessionVars(id))).Status)
		assert.Equal(t, http.StatusNoContent, m.DeleteSession(newReq("2", sessionVars(id))).Status)

		_, ok := m.Store().Session(id)
		assert.False(t, ok)
		_, ok = m.Store().Active("2")
		assert.False(t, ok)

		assert.Equal(t, http.StatusNotFound, m.GetSession(newReq("2", sessionVars(id))).Status)
		assert.Equal(t, http.StatusNotFound, m.DeleteSession(newReq("2", sessionVars(id))).Status)
		assert.Equal(t, int64(2), counters.Get(metrics.NpsAlreadyLeft))
	})
}

func TestJoin_LeavesPreviousSession(t *testing.T) {
	m, _ := newTestModule()
	first := createSession(t, m, "1", 4)
	second := createSession(t, m, "2", 4)

	require.Equal(t, http.StatusOK, m.PostSessionMember(newReq("1", sessionVars(second))).Status)

	_, ok := m.Store().Session(first)
	assert.False(t, ok, "a sessão anterior ficou vazia e foi apagada")
	active, _ := m.Store().Active("1")
	assert.Equal(t, second, active.SessionID)

	// Criar uma nova sessão também abandona a atual
	third := createSession(t, m, "1", 4)
	sess, _ := m.Store().Session(second)
	assert.False(t, sess.HasMember("1"))
	active, _ = m.Store().Active("1")
	assert.Equal(t, third, active.SessionID)
}

func TestJoin_Locked(t *testing.T) {
	m, _ := newTestModule()
	id := createSession(t, m, "1", 4)

	put := newReq("1", sessionVars(id))
	put.JSON = map[string]any{"sessionLockFlag": true}
	require.Equal(t, http.StatusNoContent, m.PutSession(put).Status)

	assert.Equal(t, http.StatusForbidden, m.PostSessionMember(newReq("2", sessionVars(id))).Status)
}

func TestPutSession(t *testing.T) {
	m, _ := newTestModule()
	id := createSession(t, m, "1", 4)
	require.Equal(t, http.StatusOK, m.PostSessionMember(newReq("2", sessionVars(id))).Status)

	t.Run("Não membro recebe 403", func(t *testing.T) {
		req := newReq("3", sessionVars(id))
		req.JSON = map[string]any{"sessionName": "x"}
		assert.Equal(t, http.StatusForbidden, m.PutSession(req).Status)
	})

	t.Run("Round-trip dos campos", func(t *testing.T) {
		req := newReq("2", sessionVars(id))
		req.JSON = map[string]any{
			"sessionName":     "nova sala",
			"sessionStatus":   "em jogo",
			"sessionMaxUser":  float64(8),
			"unknownProperty": "ignored",
		}
		require.Equal(t, http.StatusNoContent, m.PutSession(req).Status)

		got := m.GetSession(newReq("1", sessionVars(id)))
		require.Equal(t, http.StatusOK, got.Status)
		sess := got.Body.(*Session)
		assert.Equal(t, "nova sala", sess.SessionName)
		assert.Equal(t, "em jogo", sess.SessionStatus)
		assert.Equal(t, 8, sess.SessionMaxUser)
	})

	t.Run("sessionMaxUser abaixo dos membros", func(t *testing.T) {
		req := newReq("1", sessionVars(id))
		req.JSON = map[string]any{"sessionMaxUser": float64(1)}
		assert.Equal(t, http.StatusBadRequest, m.PutSession(req).Status)
	})

	t.Run("Tipo errado", func(t *testing.T) {
		req := newReq("1", sessionVars(id))
		req.JSON = map[string]any{"sessionLockFlag": "yes"}
		assert.Equal(t, http.StatusBadRequest, m.PutSession(req).Status)
	})

	t.Run("Sem corpo", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, m.PutSession(newReq("1", sessionVars(id))).Status)
	})
}

func TestBlobs(t *testing.T) {
	m, _ := newTestModule()
	id := createSession(t, m, "1", 4)

	data := m.GetSessionData(newReq("1", sessionVars(id)))
	assert.Equal(t, http.StatusOK, data.Status)
	assert.Equal(t, []byte{0xCA, 0xFE}, data.Body)
	assert.Equal(t, webapi.ContentTypeBinary, data.ContentType)

	put := newReq("1", sessionVars(id))
	put.Raw = []byte("novo")
	require.Equal(t, http.StatusNoContent, m.PutChangeableSessionData(put).Status)
	assert.Equal(t, []byte("novo"), m.GetChangeableSessionData(newReq("1", sessionVars(id))).Body)

	emptyReq := newReq("1", sessionVars(id))
	require.Equal(t, http.StatusNoContent, m.PutChangeableSessionData(emptyReq).Status)
	assert.Equal(t, http.StatusNoContent, m.GetChangeableSessionData(newReq("1", sessionVars(id))).Status)

	tooBig := newReq("1", sessionVars(id))
	tooBig.Raw = make([]byte, maxChangeableData+1)
	assert.Equal(t, http.StatusBadRequest, m.PutChangeableSessionData(tooBig).Status)

	img := newReq("1", sessionVars(id))
	img.Raw = []byte{0xFF, 0xD8}
	img.ContentType = "image/jpeg"
	require.Equal(t, http.StatusNoContent, m.PutSessionImage(img).Status)
	sess, _ := m.Store().Session(id)
	assert.Equal(t, "image/jpeg", sess.ImageType)

	assert.Equal(t, http.StatusBadRequest, m.PutSessionImage(newReq("1", sessionVars(id))).Status)
	assert.Equal(t, http.StatusForbidden, m.PutSessionImage(newReq("9", sessionVars(id))).Status)
	assert.Equal(t, http.StatusNotFound, m.GetSessionData(newReq("1", sessionVars("404"))).Status)
}

func TestGetUsersSessions(t *testing.T) {
	m, _ := newTestModule()
	id := createSession(t, m, "1", 4)

	reply := m.GetUsersSessions(newReq("1", map[string]string{"accountId": "me"}))
	require.Equal(t, http.StatusOK, reply.Status)
	page := reply.Body.(usersSessionsPage)
	assert.Equal(t, 1, page.TotalResults)
	assert.Equal(t, id, page.Sessions[0].SessionID)

	empty := m.GetUsersSessions(newReq("1", map[string]string{"accountId": "2"})).Body.(usersSessionsPage)
	assert.Equal(t, 0, empty.Size)
	assert.Empty(t, empty.Sessions)

	assert.Equal(t, http.StatusUnauthorized, m.GetUsersSessions(newReq("", map[string]string{"accountId": "me"})).Status)
}
