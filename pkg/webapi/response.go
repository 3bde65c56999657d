package webapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// WriteResponse serializa body em JSON (exceto string e []byte, escritos como estão),
// define Content-Type e Content-Length e grava a resposta. Falhas de I/O são apenas
// logadas: uma escrita quebrada nunca derruba o dispatcher.
func WriteResponse(w http.ResponseWriter, log zerolog.Logger, code int, body any) {
	Write(w, log, Reply{Status: code, Body: body})
}

// Write grava um Reply completo.
func Write(w http.ResponseWriter, log zerolog.Logger, reply Reply) {
	for k, v := range reply.Header {
		w.Header().Set(k, v)
	}

	if reply.Status == http.StatusNoContent {
		w.WriteHeader(reply.Status)
		return
	}

	var payload []byte
	switch b := reply.Body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	case []byte:
		payload = b
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			log.Error().Err(err).Int("status", reply.Status).Msg("falha ao serializar resposta")
			reply.Status = http.StatusInternalServerError
			break
		}
		payload = encoded
	}

	contentType := reply.ContentType
	if contentType == "" {
		contentType = ContentTypeJSON
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(reply.Status)

	if len(payload) == 0 {
		return
	}
	if _, err := w.Write(payload); err != nil {
		log.Error().Err(err).Int("status", reply.Status).Msg("falha ao escrever resposta")
	}
}
