package playersession

import "strconv"

type Platform string

const (
	PlatformPS5 Platform = "PS5"
	PlatformPS4 Platform = "PS4"
)

type JoinableUserType string

const (
	JoinableNoOne            JoinableUserType = "NO_ONE"
	JoinableFriends          JoinableUserType = "FRIENDS"
	JoinableFriendsOfFriends JoinableUserType = "FRIENDS_OF_FRIENDS"
	JoinableAnyone           JoinableUserType = "ANYONE"
	JoinableSpecifiedUsers   JoinableUserType = "SPECIFIED_USERS"
)

type InvitableUserType string

const (
	InvitableNoOne  InvitableUserType = "NO_ONE"
	InvitableLeader InvitableUserType = "LEADER"
	InvitableMember InvitableUserType = "MEMBER"
)

type LeaderPrivilege string

const (
	PrivilegeKick                    LeaderPrivilege = "KICK"
	PrivilegeUpdateJoinableUserType  LeaderPrivilege = "UPDATE_JOINABLE_USER_TYPE"
	PrivilegeUpdateInvitableUserType LeaderPrivilege = "UPDATE_INVITABLE_USER_TYPE"
)

var (
	platforms          = []string{string(PlatformPS5), string(PlatformPS4)}
	joinableUserTypes  = []string{"NO_ONE", "FRIENDS", "FRIENDS_OF_FRIENDS", "ANYONE", "SPECIFIED_USERS"}
	invitableUserTypes = []string{"NO_ONE", "LEADER", "MEMBER"}
	leaderPrivileges   = []string{"KICK", "UPDATE_JOINABLE_USER_TYPE", "UPDATE_INVITABLE_USER_TYPE"}
)

type PushContext struct {
	PushContextID string `json:"pushContextId"`
}

// Member é um jogador ou espectador da sessão.
type Member struct {
	AccountID     string        `json:"accountId"`
	Platform      Platform      `json:"platform"`
	OnlineID      string        `json:"onlineId"`
	PushContexts  []PushContext `json:"pushContexts"`
	CustomData1   string        `json:"customData1,omitempty"`
	JoinTimestamp string        `json:"joinTimestamp"`
}

type Members struct {
	Players    []Member `json:"players"`
	Spectators []Member `json:"spectators"`
}

type Leader struct {
	AccountID string   `json:"accountId"`
	Platform  Platform `json:"platform"`
}

type LocalizedName struct {
	DefaultLanguage string            `json:"defaultLanguage"`
	LocalizedText   map[string]string `json:"localizedText"`
}

type SpecifiedUser struct {
	AccountID string `json:"accountId"`
}

// PlayerSession é o recurso de sessão da PS5.
type PlayerSession struct {
	SessionID              string            `json:"sessionId"`
	CreatedTimestamp       string            `json:"createdTimestamp"`
	MaxPlayers             int               `json:"maxPlayers"`
	MaxSpectators          int               `json:"maxSpectators"`
	JoinDisabled           bool              `json:"joinDisabled"`
	SupportedPlatforms     []Platform        `json:"supportedPlatforms"`
	JoinableUserType       JoinableUserType  `json:"joinableUserType"`
	InvitableUserType      InvitableUserType `json:"invitableUserType"`
	LeaderPrivileges       []LeaderPrivilege `json:"leaderPrivileges"`
	SwapSupported          bool              `json:"swapSupported"`
	CustomData1            string            `json:"customData1,omitempty"`
	CustomData2            string            `json:"customData2,omitempty"`
	LocalizedSessionName   LocalizedName     `json:"localizedSessionName"`
	Member                 Members           `json:"member"`
	Leader                 Leader            `json:"leader"`
	JoinableSpecifiedUsers []SpecifiedUser   `json:"joinableSpecifiedUsers"`

	// SessionName é o nome no idioma padrão, recalculado a cada alteração de localizedSessionName.
	SessionName string `json:"-"`
}

func indexOf(list []Member, accountID string) int {
	for i, m := range list {
		if m.AccountID == accountID {
			return i
		}
	}
	return -1
}

func (s *PlayerSession) IsPlayer(accountID string) bool {
	return indexOf(s.Member.Players, accountID) >= 0
}

func (s *PlayerSession) IsSpectator(accountID string) bool {
	return indexOf(s.Member.Spectators, accountID) >= 0
}

func (s *PlayerSession) IsMember(accountID string) bool {
	return s.IsPlayer(accountID) || s.IsSpectator(accountID)
}

func (s *PlayerSession) IsLeader(accountID string) bool {
	return s.Leader.AccountID == accountID
}

func (s *PlayerSession) HasPrivilege(p LeaderPrivilege) bool {
	for _, lp := range s.LeaderPrivileges {
		if lp == p {
			return true
		}
	}
	return false
}

func (s *PlayerSession) SupportsPlatform(p Platform) bool {
	for _, sp := range s.SupportedPlatforms {
		if sp == p {
			return true
		}
	}
	return false
}

func (s *PlayerSession) isSpecified(accountID string) bool {
	for _, u := range s.JoinableSpecifiedUsers {
		if u.AccountID == accountID {
			return true
		}
	}
	return false
}

// refreshName recalcula o nome de exibição a partir do idioma padrão.
func (s *PlayerSession) refreshName() {
	s.SessionName = s.LocalizedSessionName.LocalizedText[s.LocalizedSessionName.DefaultLanguage]
}

// Store mantém as player sessions e a sessão ativa de cada conta.
// Não é seguro para uso concorrente: o dispatcher serializa as requisições.
type Store struct {
	seq      int64
	sessions map[string]*PlayerSession
	active   map[string]string
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*PlayerSession),
		active:   make(map[string]string),
	}
}

func (s *Store) nextID() string {
	s.seq++
	return "ps5-" + strconv.FormatInt(s.seq, 10)
}

// Session busca uma sessão pelo id.
func (s *Store) Session(id string) (*PlayerSession, bool) {
	sess, ok := s.sessions[id]
	return sess, ok
}

// Active retorna o id da sessão ativa da conta.
func (s *Store) Active(accountID string) (string, bool) {
	id, ok := s.active[accountID]
	return id, ok
}

func (s *Store) Len() int {
	return len(s.sessions)
}

// leaveResult descreve o efeito de uma remoção de membro.
type leaveResult struct {
	wasPlayer bool
	newLeader string
	deleted   bool
}

// removeMember tira a conta da sessão. Quando o líder sai, a liderança passa para o
// jogador mais antigo restante; sem jogadores, a sessão é apagada junto com os
// ponteiros de sessão ativa dos espectadores.
func (s *Store) removeMember(sess *PlayerSession, accountID string) (leaveResult, bool) {
	var res leaveResult
	if i := indexOf(sess.Member.Players, accountID); i >= 0 {
		sess.Member.Players = append(sess.Member.Players[:i], sess.Member.Players[i+1:]...)
		res.wasPlayer = true
	} else if i := indexOf(sess.Member.Spectators, accountID); i >= 0 {
		sess.Member.Spectators = append(sess.Member.Spectators[:i], sess.Member.Spectators[i+1:]...)
	} else {
		return res, false
	}
	s.clearActive(accountID, sess.SessionID)

	if !res.wasPlayer {
		return res, true
	}
	if len(sess.Member.Players) == 0 {
		for _, spec := range sess.Member.Spectators {
			s.clearActive(spec.AccountID, sess.SessionID)
		}
		delete(s.sessions, sess.SessionID)
		res.deleted = true
		return res, true
	}
	if sess.IsLeader(accountID) {
		next := sess.Member.Players[0]
		sess.Leader = Leader{AccountID: next.AccountID, Platform: next.Platform}
		res.newLeader = next.AccountID
	}
	return res, true
}

func (s *Store) clearActive(accountID, sessionID string) {
	if s.active[accountID] == sessionID {
		delete(s.active, accountID)
	}
}
