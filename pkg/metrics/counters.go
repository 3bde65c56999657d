package metrics

import "sync/atomic"

// Nomes dos contadores expostos no snapshot e enviados ao Provider.
const (
	NpsRedundantJoins        = "nps.redundant_joins"
	NpsAlreadyLeft           = "nps.already_left"
	NpsSessionsCreated       = "nps.sessions_created"
	PlayerSessRedundantJoins = "playersession.redundant_joins"
	PlayerSessAlreadyLeft    = "playersession.already_left"
	PlayerSessCreated        = "playersession.created"
	PlayerSessLeaderMoves    = "playersession.leader_transfers"
	MatchesCreated           = "match.created"
	MatchesExpiredObserved   = "match.expired_observed"
	FakeAuthExpired          = "fault.auth_expired"
	FakeMatchConflict        = "fault.match_conflict"
	Operations               = "dispatcher.operations"
)

var names = []string{
	NpsRedundantJoins, NpsAlreadyLeft, NpsSessionsCreated,
	PlayerSessRedundantJoins, PlayerSessAlreadyLeft, PlayerSessCreated, PlayerSessLeaderMoves,
	MatchesCreated, MatchesExpiredObserved,
	FakeAuthExpired, FakeMatchConflict, Operations,
}

// Counters mantém os contadores do processo. Seguro para uso concorrente.
type Counters struct {
	values map[string]*atomic.Int64
}

func NewCounters() *Counters {
	c := &Counters{values: make(map[string]*atomic.Int64, len(names))}
	for _, n := range names {
		c.values[n] = &atomic.Int64{}
	}
	return c
}

// Inc incrementa o contador name. Nomes desconhecidos são ignorados.
func (c *Counters) Inc(name string) {
	if c == nil {
		return
	}
	if v, ok := c.values[name]; ok {
		v.Add(1)
	}
}

// Get retorna o valor atual do contador name.
func (c *Counters) Get(name string) int64 {
	if c == nil {
		return 0
	}
	if v, ok := c.values[name]; ok {
		return v.Load()
	}
	return 0
}

// Snapshot copia todos os contadores.
func (c *Counters) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(names))
	for _, n := range names {
		out[n] = c.Get(n)
	}
	return out
}
