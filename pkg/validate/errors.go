package validate

import (
	"fmt"
	"net/http"
)

// FieldError descreve um campo de requisição que falhou na validação.
type FieldError struct {
	// Field é o caminho do campo (ex: "member.players[0].platform").
	Field string
	// Reason é a descrição legível da falha.
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Invalid parameter '%s': %s", e.Field, e.Reason)
}

// Status retorna o HTTP status associado a falhas de validação.
func (e *FieldError) Status() int {
	return http.StatusBadRequest
}

// Fail cria um *FieldError formatado.
func Fail(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
