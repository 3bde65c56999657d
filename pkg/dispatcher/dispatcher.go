// Package dispatcher monta a tabela de rotas HTTP do emulador e entrega cada
// requisição, já bufferizada, ao módulo correspondente.
package dispatcher

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/raywall/psn-session-emulator/pkg/match"
	"github.com/raywall/psn-session-emulator/pkg/metrics"
	"github.com/raywall/psn-session-emulator/pkg/npsession"
	"github.com/raywall/psn-session-emulator/pkg/playersession"
	"github.com/raywall/psn-session-emulator/pkg/webapi"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	moduleNPS           = "npsession"
	modulePlayerSession = "playersession"
	moduleMatch         = "match"

	serviceLabelVar = "npServiceLabel"
)

// prefixes são as duas formas de URL aceitas pela PSN.
var prefixes = []string{"/v1", "/v1/npServiceLabels/{" + serviceLabelVar + "}"}

type codes struct {
	invalid      int
	unauthorized int
}

var moduleCodes = map[string]codes{
	moduleNPS:           {invalid: npsession.CodeInvalidRequest, unauthorized: npsession.CodeUnauthorized},
	modulePlayerSession: {invalid: playersession.CodeInvalidRequest, unauthorized: playersession.CodeUnauthorized},
	moduleMatch:         {invalid: match.CodeInvalidRequest, unauthorized: match.CodeUnauthorized},
}

// catchAll liga o primeiro segmento do path ao módulo que responde 501 para
// ramos não implementados.
var catchAll = []struct {
	segment string
	module  string
}{
	{"sessions", moduleNPS},
	{"users", moduleNPS},
	{"playerSessions", modulePlayerSession},
	{"matches", moduleMatch},
}

type Modules struct {
	NPSession     *npsession.Module
	PlayerSession *playersession.Module
	Match         *match.Module
}

type Options struct {
	// FakeAuthExpiry injeta um 401 a cada N operações; zero desabilita.
	FakeAuthExpiry int
	// FakeRateLimit é aceito mas o 429 não é emulado.
	FakeRateLimit int
	// LogHTTP loga corpos de requisição e resposta.
	LogHTTP bool
	CORS    bool
	Stubs   []StubRoute
}

// route é uma entrada da tabela: método, path relativo ao prefixo e handler.
type route struct {
	name    string
	method  string
	path    string
	module  string
	handler webapi.Handler
}

type Dispatcher struct {
	mu       sync.Mutex
	router   *mux.Router
	modules  Modules
	counters *metrics.Counters
	auth     authExpiry
	opts     Options
	log      zerolog.Logger
}

func New(modules Modules, counters *metrics.Counters, opts Options, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		router:   mux.NewRouter(),
		modules:  modules,
		counters: counters,
		auth:     authExpiry{every: opts.FakeAuthExpiry},
		opts:     opts,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
	if opts.FakeRateLimit > 0 {
		d.log.Warn().Int("fakeratelimit", opts.FakeRateLimit).Msg("fakeratelimit configurado, mas o 429 ainda não é emulado")
	}
	d.register()
	return d
}

// Handler devolve o http.Handler completo, com middleware e CORS opcional.
func (d *Dispatcher) Handler() http.Handler {
	var h http.Handler = d.router
	if d.opts.CORS {
		h = cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"*"},
			ExposedHeaders: []string{HeaderCorrelationID, HeaderLatency},
		}).Handler(h)
	}
	return ObservabilityMiddleware(d.log, h)
}

func (d *Dispatcher) routes() []route {
	var out []route
	if nps := d.modules.NPSession; nps != nil {
		out = append(out,
			route{"post_session", http.MethodPost, "/sessions", moduleNPS, nps.PostSession},
			route{"post_session_member", http.MethodPost, "/sessions/{sessionId}/members", moduleNPS, nps.PostSessionMember},
			route{"delete_session", http.MethodDelete, "/sessions/{sessionId}", moduleNPS, nps.DeleteSession},
			route{"put_session", http.MethodPut, "/sessions/{sessionId}", moduleNPS, nps.PutSession},
			route{"put_sessionimage", http.MethodPut, "/sessions/{sessionId}/sessionImage", moduleNPS, nps.PutSessionImage},
			route{"put_changeablesessiondata", http.MethodPut, "/sessions/{sessionId}/changeableSessionData", moduleNPS, nps.PutChangeableSessionData},
			route{"get_session", http.MethodGet, "/sessions/{sessionId}", moduleNPS, nps.GetSession},
			route{"get_sessiondata", http.MethodGet, "/sessions/{sessionId}/sessionData", moduleNPS, nps.GetSessionData},
			route{"get_changeablesessiondata", http.MethodGet, "/sessions/{sessionId}/changeableSessionData", moduleNPS, nps.GetChangeableSessionData},
			route{"get_users_sessions_activity", http.MethodGet, "/users/{accountId}/sessions", moduleNPS, nps.GetUsersSessions},
		)
	}
	if ps := d.modules.PlayerSession; ps != nil {
		out = append(out,
			route{"post_playersession", http.MethodPost, "/playerSessions", modulePlayerSession, ps.PostPlayerSession},
			route{"get_playersessions", http.MethodGet, "/playerSessions", modulePlayerSession, ps.GetPlayerSessions},
			route{"post_playersession_player", http.MethodPost, "/playerSessions/{sessionId}/member/players", modulePlayerSession, ps.PostPlayer},
			route{"post_playersession_spectator", http.MethodPost, "/playerSessions/{sessionId}/member/spectators", modulePlayerSession, ps.PostSpectator},
			route{"delete_playersession_member", http.MethodDelete, "/playerSessions/{sessionId}/members/{accountId}", modulePlayerSession, ps.DeleteMember},
			route{"patch_session_member_properties", http.MethodPatch, "/playerSessions/{sessionId}/members/{accountId}", modulePlayerSession, ps.PatchMemberProperties},
			route{"patch_session", http.MethodPatch, "/playerSessions/{sessionId}", modulePlayerSession, ps.PatchSession},
			route{"put_session_leader", http.MethodPut, "/playerSessions/{sessionId}/leader", modulePlayerSession, ps.PutLeader},
			route{"post_playersession_joinableusers", http.MethodPost, "/playerSessions/{sessionId}/joinableSpecifiedUsers", modulePlayerSession, ps.PostJoinableSpecifiedUsers},
			route{"delete_playersession_joinableusers", http.MethodDelete, "/playerSessions/{sessionId}/joinableSpecifiedUsers", modulePlayerSession, ps.DeleteJoinableSpecifiedUsers},
			route{"get_users_playersessions", http.MethodGet, "/users/{accountId}/playerSessions", modulePlayerSession, ps.GetUserPlayerSessions},
		)
	}
	if mt := d.modules.Match; mt != nil {
		out = append(out,
			route{"post_match", http.MethodPost, "/matches", moduleMatch, mt.PostMatch},
			route{"get_match", http.MethodGet, "/matches/{matchId}", moduleMatch, mt.GetMatch},
			route{"patch_match", http.MethodPatch, "/matches/{matchId}", moduleMatch, mt.PatchMatch},
			route{"put_match_status", http.MethodPut, "/matches/{matchId}/status", moduleMatch, mt.PutStatus},
			route{"post_join_match", http.MethodPost, "/matches/{matchId}/players/actions/add", moduleMatch, mt.PostJoin},
			route{"post_leave_match", http.MethodPost, "/matches/{matchId}/players/actions/remove", moduleMatch, mt.PostLeave},
			route{"post_match_results", http.MethodPost, "/matches/{matchId}/results", moduleMatch, mt.PostResults},
		)
	}
	return out
}

// register monta o router na ordem: utilitários, rotas dos módulos nos dois
// prefixos, stubs e, por último, os catch-alls de cada módulo.
func (d *Dispatcher) register() {
	r := d.router
	r.NotFoundHandler = http.HandlerFunc(d.unknownRoute)
	r.MethodNotAllowedHandler = http.HandlerFunc(d.unknownRoute)

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		webapi.WriteResponse(w, d.log, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/v1/emulator/counters", func(w http.ResponseWriter, req *http.Request) {
		webapi.WriteResponse(w, d.log, http.StatusOK, d.counters.Snapshot())
	}).Methods(http.MethodGet)

	for _, prefix := range prefixes {
		for _, rt := range d.routes() {
			r.HandleFunc(prefix+rt.path, d.adapt(rt, true)).Methods(rt.method)
		}
	}

	for i, stub := range d.opts.Stubs {
		rt := route{name: "stub:" + stub.Method + " " + stub.Path, handler: stubHandler(stub)}
		r.HandleFunc(stub.Path, d.adapt(rt, false)).Methods(strings.ToUpper(stub.Method))
		d.log.Debug().Int("index", i).Str("method", stub.Method).Str("path", stub.Path).Msg("stub registrado")
	}

	for _, prefix := range prefixes {
		for _, ca := range catchAll {
			rt := route{name: "unimplemented", module: ca.module, handler: unimplemented(ca.module)}
			h := d.adapt(rt, false)
			r.HandleFunc(prefix+"/"+ca.segment, h)
			r.HandleFunc(prefix+"/"+ca.segment+"/{rest:.*}", h)
		}
	}
}

func unimplemented(module string) webapi.Handler {
	code := moduleCodes[module].invalid
	return func(req *webapi.Request) webapi.Reply {
		return webapi.Error(http.StatusNotImplemented, code, req.Method+" "+req.Path+" is not implemented by the emulator")
	}
}

// unknownRoute responde 400 para combinações de método e path fora da tabela.
func (d *Dispatcher) unknownRoute(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	log.Warn().Str("method", r.Method).Str("path", r.URL.Path).Msg("rota desconhecida")
	webapi.WriteResponse(w, *log, http.StatusBadRequest, webapi.NewErrorBody(0, "Unknown resource "+r.Method+" "+r.URL.Path))
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// adapt converte a rota em http.HandlerFunc: bufferiza o corpo, decide entre JSON
// e bytes crus, serializa a execução e grava o Reply. Com operation=false a rota
// não conta como operação e não recebe falhas simuladas.
func (d *Dispatcher) adapt(rt route, operation bool) http.HandlerFunc {
	code := moduleCodes[rt.module]
	return func(w http.ResponseWriter, r *http.Request) {
		log := *zerolog.Ctx(r.Context())

		raw, err := io.ReadAll(r.Body)
		defer r.Body.Close()
		if err != nil {
			log.Warn().Err(err).Msg("falha ao ler o corpo da requisição")
			webapi.Write(w, log, webapi.Error(http.StatusBadRequest, code.invalid, "Request body could not be read"))
			return
		}

		vars := mux.Vars(r)
		req := &webapi.Request{
			Ctx:          r.Context(),
			Method:       r.Method,
			Path:         r.URL.Path,
			Header:       r.Header,
			Vars:         vars,
			Query:        r.URL.Query(),
			ServiceLabel: vars[serviceLabelVar],
			ContentType:  r.Header.Get("Content-Type"),
			Raw:          raw,
		}
		if d.opts.LogHTTP {
			log.Info().Str("handler", rt.name).Str("content_type", req.ContentType).Bytes("body", raw).Msg("requisição recebida")
		}

		if isJSON(req.ContentType) && len(bytes.TrimSpace(raw)) > 0 {
			var decoded any
			if err := json.Unmarshal(raw, &decoded); err != nil {
				webapi.Write(w, log, webapi.Error(http.StatusBadRequest, code.invalid, "Request body is not valid JSON"))
				return
			}
			obj, ok := decoded.(map[string]any)
			if !ok {
				webapi.Write(w, log, webapi.Error(http.StatusBadRequest, code.invalid, "Request body must be a JSON object"))
				return
			}
			req.JSON = obj
		}

		reply := d.serve(req, rt, code, operation, log)
		if d.opts.LogHTTP {
			log.Info().Str("handler", rt.name).Int("status", reply.Status).Interface("body", reply.Body).Msg("resposta enviada")
		}
		webapi.Write(w, log, reply)
	}
}

// serve executa o handler sob o mutex do dispatcher, mantendo cada requisição
// atômica em relação aos stores.
func (d *Dispatcher) serve(req *webapi.Request, rt route, code codes, operation bool, log zerolog.Logger) webapi.Reply {
	d.mu.Lock()
	defer d.mu.Unlock()

	if operation {
		d.counters.Inc(metrics.Operations)
		if caller, ok := req.Caller(); ok && d.auth.expire(caller) {
			d.counters.Inc(metrics.FakeAuthExpired)
			log.Info().Str("handler", rt.name).Str("accountId", caller).Msg("401 de token expirado simulado")
			return webapi.Error(http.StatusUnauthorized, code.unauthorized, "Access token has expired")
		}
	}
	return webapi.Guard(log, rt.name, rt.handler)(req)
}
