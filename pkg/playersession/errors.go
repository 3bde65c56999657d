package playersession

// Códigos de erro da família Player Session (2269xxx) devolvidos pelo emulador.
const (
	CodeInvalidRequest   = 2269185
	CodeInvalidParameter = 2269186
	CodeUnauthorized     = 2269187
	CodeForbidden        = 2269188
	CodeNotFound         = 2269189
	CodeSessionFull      = 2269190
	CodeJoinDisabled     = 2269191
	CodeSwapNotAllowed   = 2269192
	CodeAlreadyMember    = 2269193
)

const (
	maxPlayersLimit     = 100
	maxSpectatorsLimit  = 50
	maxCustomData       = 1368
	maxSessionNameLen   = 100
	maxSpecifiedUsers   = 100
	maxSessionIDsPerGet = 20
)
