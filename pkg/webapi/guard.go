package webapi

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Guard protege um handler: qualquer panic é logado com stack e convertido em 500
// com corpo vazio, de modo que uma requisição ruim nunca derruba o processo.
func Guard(log zerolog.Logger, name string, h Handler) Handler {
	return func(req *Request) (reply Reply) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Str("handler", name).
					Str("method", req.Method).
					Str("path", req.Path).
					Str("panic", fmt.Sprint(rec)).
					Bytes("stack", debug.Stack()).
					Msg("falha inesperada no handler")
				reply = Empty(http.StatusInternalServerError)
			}
		}()
		return h(req)
	}
}
