package dispatcher

// authExpiry simula tokens expirados: a cada every operações o chamador recebe um
// 401, e a repetição imediata desse mesmo chamador passa.
type authExpiry struct {
	every  int
	ops    int
	exempt string
}

func (a *authExpiry) expire(caller string) bool {
	if a.every <= 0 {
		return false
	}
	a.ops++
	if a.exempt != "" && caller == a.exempt {
		a.exempt = ""
		return false
	}
	if a.ops%a.every != 0 {
		return false
	}
	a.exempt = caller
	return true
}
