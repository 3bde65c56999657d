package npsession

// Códigos de erro da família NP Session (2113xxx) devolvidos pelo emulador.
const (
	CodeInvalidRequest   = 2113537
	CodeInvalidParameter = 2113538
	CodeUnauthorized     = 2113539
	CodeForbidden        = 2113540
	CodeNotFound         = 2113541
	CodeSessionFull      = 2113542
	CodeSessionLocked    = 2113543
	CodeDataTooLarge     = 2113544
)

const (
	maxSessionData    = 1024 * 1024
	maxChangeableData = 1024
	maxSessionImage   = 160 * 1024
	maxSessionUsers   = 16
)
