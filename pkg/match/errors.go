package match

import "github.com/raywall/psn-session-emulator/pkg/webapi"

// Códigos de erro da família Match (2293xxx) devolvidos pelo emulador.
const (
	CodeInvalidRequest   = 2293249
	CodeInvalidParameter = 2293250
	CodeUnauthorized     = 2293251
	CodeForbidden        = 2293252
	CodeNotFound         = 2293253
	CodeInvalidStatus    = 2293254
	CodeNotConfigured    = 2293255
	CodeConflict         = 2293256
)

// conflictBody é a resposta fixa do 409 simulado, sem referenceId aleatório.
var conflictBody = webapi.ErrorBody{Error: webapi.ErrorDetail{
	ReferenceID: "00000000-0000-0000-0000-000000000000",
	Code:        CodeConflict,
	Message:     "Conflict: another request on the same match was received too recently",
}}
