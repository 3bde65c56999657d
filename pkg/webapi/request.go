package webapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderAccountIDs    = "X-PSN-SESSION-MANAGER-ACCOUNT-IDS"
	HeaderSessionIDs    = "X-PSN-SESSION-MANAGER-SESSION-IDS"
	HeaderOnlineID      = "X-Emulator-Online-Id"

	// Me é o alias usado pela PSN para "o usuário do token".
	Me = "me"
)

// Request é a visão já bufferizada de uma requisição, entregue aos módulos.
type Request struct {
	Ctx    context.Context
	Method string
	Path   string
	Header http.Header
	// Vars contém as variáveis de path resolvidas pela tabela de rotas.
	Vars  map[string]string
	Query url.Values
	// ServiceLabel é preenchido quando a URL usa o prefixo npServiceLabels/{label}.
	ServiceLabel string
	ContentType  string
	// Raw é o corpo original. JSON só é preenchido quando o Content-Type é JSON.
	Raw  []byte
	JSON map[string]any
}

// Var retorna a variável de path name ("" quando ausente).
func (r *Request) Var(name string) string {
	if r.Vars == nil {
		return ""
	}
	return r.Vars[name]
}

// Caller extrai a identidade do chamador do header authorization.
// Qualquer valor não vazio e diferente de "0" é aceito, com ou sem "Bearer ".
func (r *Request) Caller() (string, bool) {
	return CallerFromHeader(r.Header)
}

// CallerFromHeader aplica a mesma regra de Caller sobre um http.Header.
func CallerFromHeader(h http.Header) (string, bool) {
	raw := strings.TrimSpace(h.Get(HeaderAuthorization))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}
	if raw == "" || raw == "0" {
		return "", false
	}
	return raw, true
}

// ResolveAccount troca o alias "me" pela conta do chamador.
func ResolveAccount(accountID, caller string) string {
	if accountID == Me {
		return caller
	}
	return accountID
}

// HeaderList lê um header com valores separados por vírgula.
func (r *Request) HeaderList(name string) []string {
	raw := r.Header.Get(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Handler é a assinatura de toda operação emulada.
type Handler func(req *Request) Reply

// OnlineID retorna o onlineId informado em X-Emulator-Online-Id ou um derivado da conta.
func (r *Request) OnlineID(accountID string) string {
	if online := r.Header.Get(HeaderOnlineID); online != "" {
		return online
	}
	return "online-" + accountID
}
