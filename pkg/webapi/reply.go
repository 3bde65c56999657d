package webapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/raywall/psn-session-emulator/pkg/validate"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

// Reply é o resultado de um handler: status, corpo e headers extras.
type Reply struct {
	Status      int
	Body        any
	ContentType string
	Header      map[string]string
}

// ErrorBody é o formato de erro da PSN: {"error":{"referenceId","code","message"}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	ReferenceID string `json:"referenceId"`
	Code        int    `json:"code"`
	Message     string `json:"message"`
}

func JSON(status int, body any) Reply {
	return Reply{Status: status, Body: body}
}

func OK(body any) Reply {
	return Reply{Status: http.StatusOK, Body: body}
}

func NoContent() Reply {
	return Reply{Status: http.StatusNoContent}
}

// Binary devolve bytes crus (sessionData, imagens).
func Binary(status int, data []byte) Reply {
	return Reply{Status: status, Body: data, ContentType: ContentTypeBinary}
}

// Empty devolve apenas o status, sem corpo.
func Empty(status int) Reply {
	return Reply{Status: status}
}

// Error monta uma resposta com o corpo de erro da PSN e um referenceId novo.
func Error(status, code int, message string) Reply {
	return Reply{Status: status, Body: NewErrorBody(code, message)}
}

func NewErrorBody(code int, message string) ErrorBody {
	return ErrorBody{Error: ErrorDetail{
		ReferenceID: uuid.NewString(),
		Code:        code,
		Message:     message,
	}}
}

// Invalid converte um erro de validação em 400 com o código do módulo.
// Erros que não são de validação viram 500, pois indicam falha do próprio emulador.
func Invalid(err error, code int) Reply {
	var fe *validate.FieldError
	if errors.As(err, &fe) {
		return Error(fe.Status(), code, fe.Error())
	}
	return Empty(http.StatusInternalServerError)
}
