package match

import (
	"time"

	"github.com/raywall/psn-session-emulator/pkg/clock"
	"github.com/raywall/psn-session-emulator/pkg/validate"
)

// setStatus aplica a transição e seus efeitos colaterais. O chamador já verificou
// que o status atual não é terminal.
func setStatus(c *validate.Checker, m *Match, next Status, now time.Time) error {
	if next == StatusPlaying {
		if m.InGameRoster.joinedPlayers() == 0 {
			return c.Failf("status", "PLAYING requires at least one player in inGameRoster")
		}
		if m.GroupingType == GroupingTeam && m.InGameRoster.activeTeams() == 0 {
			return c.Failf("status", "PLAYING requires at least one team with a joined member for %s", GroupingTeam)
		}
	}

	stamp := clock.Millis(now)
	switch next {
	case StatusWaiting:
		m.startCountdown(now)
	case StatusOnHold:
		m.startCountdown(now)
		m.LastPausedTimestamp = stamp
	case StatusPlaying:
		m.stopCountdown()
		if m.MatchStartTimestamp == "" {
			m.MatchStartTimestamp = stamp
		}
	case StatusScheduled, StatusCancelled:
		m.stopCountdown()
	case StatusCompleted:
		m.stopCountdown()
		m.MatchEndTimestamp = stamp
	}
	m.Status = next
	return nil
}

func (m *Match) startCountdown(now time.Time) {
	m.internal.expiryCountdown = now
	m.internal.expiredLogged = false
}

func (m *Match) stopCountdown() {
	m.internal.expiryCountdown = time.Time{}
	m.internal.expiredLogged = false
}

// expired informa se a contagem venceu e se é a primeira vez que isso é observado.
func (m *Match) expired(now time.Time) (expired, firstSeen bool) {
	at, ok := m.ExpiresAt()
	if !ok || now.Before(at) {
		return false, false
	}
	first := !m.internal.expiredLogged
	m.internal.expiredLogged = true
	return true, first
}
