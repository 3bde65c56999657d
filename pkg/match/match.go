package match

import (
	"strconv"
	"time"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusWaiting   Status = "WAITING"
	StatusPlaying   Status = "PLAYING"
	StatusOnHold    Status = "ONHOLD"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Terminal indica os status que não aceitam mais alterações de status ou roster.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type GroupingType string

const (
	GroupingTeam    GroupingType = "TEAM_MATCH"
	GroupingNonTeam GroupingType = "NON_TEAM_MATCH"
)

type CompetitionType string

const (
	CompetitionCompetitive CompetitionType = "COMPETITIVE"
	CompetitionCooperative CompetitionType = "COOPERATIVE"
)

type ResultType string

const (
	ResultRank  ResultType = "RESULT"
	ResultScore ResultType = "SCORE"
)

type PlayerType string

const (
	PlayerPSN    PlayerType = "PSN_PLAYER"
	PlayerNonPSN PlayerType = "NON_PSN_PLAYER"
	PlayerNPC    PlayerType = "NPC"
)

var (
	statuses           = []string{"SCHEDULED", "WAITING", "PLAYING", "ONHOLD", "CANCELLED", "COMPLETED"}
	playerTypes        = []string{"PSN_PLAYER", "NON_PSN_PLAYER", "NPC"}
	cooperativeResults = []string{"SUCCESS", "FAILED", "UNFINISHED"}
)

type Player struct {
	PlayerID   string     `json:"playerId"`
	PlayerType PlayerType `json:"playerType"`
	AccountID  string     `json:"accountId,omitempty"`
	PlayerName string     `json:"playerName,omitempty"`
	JoinFlag   bool       `json:"joinFlag"`
}

type TeamMember struct {
	PlayerID string `json:"playerId"`
	JoinFlag bool   `json:"joinFlag"`
}

type Team struct {
	TeamID   string       `json:"teamId"`
	TeamName string       `json:"teamName,omitempty"`
	Members  []TeamMember `json:"members"`
}

// Roster é o inGameRoster. Entradas nunca são removidas: sair apenas zera joinFlag.
type Roster struct {
	Players []Player `json:"players"`
	Teams   []Team   `json:"teams"`
}

type PlayerResult struct {
	PlayerID string   `json:"playerId"`
	Rank     int      `json:"rank"`
	Score    *float64 `json:"score,omitempty"`
}

type TeamMemberResult struct {
	PlayerID string  `json:"playerId"`
	Score    float64 `json:"score"`
}

type TeamResult struct {
	TeamID            string             `json:"teamId"`
	Rank              int                `json:"rank"`
	Score             *float64           `json:"score,omitempty"`
	TeamMemberResults []TeamMemberResult `json:"teamMemberResults,omitempty"`
}

type CompetitiveResult struct {
	PlayerResults []PlayerResult `json:"playerResults,omitempty"`
	TeamResults   []TeamResult   `json:"teamResults,omitempty"`
}

type CooperativeResult struct {
	Status string `json:"status"`
}

type Results struct {
	Version           string             `json:"version"`
	CompetitiveResult *CompetitiveResult `json:"competitiveResult,omitempty"`
	CooperativeResult *CooperativeResult `json:"cooperativeResult,omitempty"`
}

// Match é o recurso de partida da PS5. Nunca é apagado do store.
type Match struct {
	MatchID             string          `json:"matchId"`
	ActivityID          string          `json:"activityId"`
	NpServiceLabel      string          `json:"npServiceLabel,omitempty"`
	ZoneID              string          `json:"zoneId,omitempty"`
	ExpirationTime      int             `json:"expirationTime"`
	Status              Status          `json:"status"`
	GroupingType        GroupingType    `json:"groupingType"`
	CompetitionType     CompetitionType `json:"competitionType"`
	ResultType          ResultType      `json:"resultType,omitempty"`
	InGameRoster        Roster          `json:"inGameRoster"`
	MatchResults        *Results        `json:"matchResults,omitempty"`
	MatchStartTimestamp string          `json:"matchStartTimestamp,omitempty"`
	MatchEndTimestamp   string          `json:"matchEndTimestamp,omitempty"`
	LastPausedTimestamp string          `json:"lastPausedTimestamp,omitempty"`

	internal internalState
}

// internalState não é exposto no GET.
type internalState struct {
	// expiryCountdown é zero quando não há contagem em andamento.
	expiryCountdown time.Time
	expiredLogged   bool
}

// ExpiresAt retorna quando a contagem atual expira, ou false sem contagem ativa.
func (m *Match) ExpiresAt() (time.Time, bool) {
	if m.internal.expiryCountdown.IsZero() {
		return time.Time{}, false
	}
	return m.internal.expiryCountdown.Add(time.Duration(m.ExpirationTime) * time.Second), true
}

// Store guarda as partidas e a partida ativa de cada conta PSN.
// Não é seguro para uso concorrente: o dispatcher serializa as requisições.
type Store struct {
	seq     int64
	matches map[string]*Match
	active  map[string]string
	// joins guarda, por conta, a ordem de entrada em cada partida em que ela
	// ainda participa com joinFlag=true.
	joins   map[string]map[string]int64
	joinSeq int64
}

func NewStore() *Store {
	return &Store{
		matches: make(map[string]*Match),
		active:  make(map[string]string),
		joins:   make(map[string]map[string]int64),
	}
}

func (s *Store) nextID() string {
	s.seq++
	return "match-" + strconv.FormatInt(s.seq, 10)
}

func (s *Store) Match(id string) (*Match, bool) {
	m, ok := s.matches[id]
	return m, ok
}

// Active retorna a partida mais recente em que a conta entrou e ainda participa.
func (s *Store) Active(accountID string) (string, bool) {
	id, ok := s.active[accountID]
	return id, ok
}

func (s *Store) Len() int {
	return len(s.matches)
}

// syncActive atualiza o índice de partida ativa a partir do roster. joined são os
// playerIds da requisição; quem já participava mantém a ordem original e quem
// saiu volta para a partida anterior mais recente em que ainda participa.
func (s *Store) syncActive(m *Match, joined []string) {
	inMatch := make(map[string]bool)
	for _, p := range m.InGameRoster.Players {
		if p.AccountID != "" && p.JoinFlag {
			inMatch[p.AccountID] = true
		}
	}

	touched := make(map[string]bool)
	for _, p := range m.InGameRoster.Players {
		if p.AccountID == "" || inMatch[p.AccountID] {
			continue
		}
		if _, ok := s.joins[p.AccountID][m.MatchID]; ok {
			delete(s.joins[p.AccountID], m.MatchID)
			touched[p.AccountID] = true
		}
	}
	for _, playerID := range joined {
		p := m.InGameRoster.player(playerID)
		if p == nil || p.AccountID == "" || !p.JoinFlag {
			continue
		}
		if s.joins[p.AccountID] == nil {
			s.joins[p.AccountID] = make(map[string]int64)
		}
		if _, already := s.joins[p.AccountID][m.MatchID]; already {
			continue
		}
		s.joinSeq++
		s.joins[p.AccountID][m.MatchID] = s.joinSeq
		touched[p.AccountID] = true
	}

	for account := range touched {
		s.refreshActive(account)
	}
}

// refreshActive aponta a conta para a partida com a entrada mais recente.
func (s *Store) refreshActive(account string) {
	best, latest := "", int64(0)
	for id, stamp := range s.joins[account] {
		if stamp > latest {
			best, latest = id, stamp
		}
	}
	if best == "" {
		delete(s.active, account)
		delete(s.joins, account)
		return
	}
	s.active[account] = best
}
