package npsession

import "strconv"

const PlatformPS4 = "PS4"

// Member é um participante de uma NP session.
type Member struct {
	OnlineID  string `json:"onlineId"`
	AccountID string `json:"accountId"`
	Platform  string `json:"platform"`
}

// Session é o recurso legado da PS4. Os blobs binários não fazem parte do JSON
// e são servidos pelos endpoints sessionData/changeableSessionData.
type Session struct {
	SessionID              string   `json:"sessionId"`
	SessionType            string   `json:"sessionType"`
	SessionPrivacy         string   `json:"sessionPrivacy"`
	SessionMaxUser         int      `json:"sessionMaxUser"`
	SessionName            string   `json:"sessionName"`
	SessionStatus          string   `json:"sessionStatus"`
	SessionLockFlag        bool     `json:"sessionLockFlag"`
	AvailablePlatforms     []string `json:"availablePlatforms"`
	SessionCreator         Member   `json:"sessionCreator"`
	SessionCreateTimestamp string   `json:"sessionCreateTimestamp"`
	Members                []Member `json:"members"`

	SessionData    []byte `json:"-"`
	ChangeableData []byte `json:"-"`
	Image          []byte `json:"-"`
	ImageType      string `json:"-"`
}

func (s *Session) memberIndex(accountID string) int {
	for i, m := range s.Members {
		if m.AccountID == accountID {
			return i
		}
	}
	return -1
}

// HasMember indica se a conta participa da sessão.
func (s *Session) HasMember(accountID string) bool {
	return s.memberIndex(accountID) >= 0
}

// ActiveSession é o ponteiro "sessão atual" de um usuário.
type ActiveSession struct {
	Platform  string `json:"platform"`
	SessionID string `json:"sessionId"`
}

// Store mantém as sessões e o índice de sessão ativa por usuário.
// Não é seguro para uso concorrente: o dispatcher serializa as requisições.
type Store struct {
	seq      int64
	sessions map[string]*Session
	active   map[string]ActiveSession
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		active:   make(map[string]ActiveSession),
	}
}

func (s *Store) nextID() string {
	s.seq++
	return strconv.FormatInt(s.seq, 10)
}

// Session busca uma sessão pelo id.
func (s *Store) Session(id string) (*Session, bool) {
	sess, ok := s.sessions[id]
	return sess, ok
}

// Active retorna a sessão ativa da conta.
func (s *Store) Active(accountID string) (ActiveSession, bool) {
	a, ok := s.active[accountID]
	return a, ok
}

// Len retorna a quantidade de sessões vivas.
func (s *Store) Len() int {
	return len(s.sessions)
}

func (s *Store) put(sess *Session) {
	s.sessions[sess.SessionID] = sess
}

func (s *Store) setActive(accountID, sessionID string) {
	s.active[accountID] = ActiveSession{Platform: PlatformPS4, SessionID: sessionID}
}

// removeMember tira a conta da sessão, apaga a sessão quando fica vazia e limpa
// o índice de sessão ativa se ele apontava para ela. Retorna false se a conta
// não era membro.
func (s *Store) removeMember(sess *Session, accountID string) (deleted bool, ok bool) {
	idx := sess.memberIndex(accountID)
	if idx < 0 {
		return false, false
	}
	sess.Members = append(sess.Members[:idx], sess.Members[idx+1:]...)

	if a, found := s.active[accountID]; found && a.SessionID == sess.SessionID {
		delete(s.active, accountID)
	}
	if len(sess.Members) == 0 {
		delete(s.sessions, sess.SessionID)
		return true, true
	}
	return false, true
}
