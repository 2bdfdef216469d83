package session

// DefaultFlagKey is the session key marking a session as already counted.
const DefaultFlagKey = "CurrentSessionTracked"

var flagValue = []byte("true")

// Gate decides, once per session, whether a request is the session's first.
type Gate struct {
	key string
}

// NewGate creates a Gate using key as the session flag.
func NewGate(key string) *Gate {
	if key == "" {
		key = DefaultFlagKey
	}
	return &Gate{key: key}
}

// IsFirstRequest reports whether s has not been marked started yet. A nil
// session is never a first request, so that a missing session layer cannot
// count every request as a new session.
func (g *Gate) IsFirstRequest(s *Session) bool {
	if s == nil {
		return false
	}
	_, ok := s.Get(g.key)
	return !ok
}

// MarkStarted sets the flag. Calling it again has no further effect.
func (g *Gate) MarkStarted(s *Session) {
	if s == nil {
		return
	}
	if _, ok := s.Get(g.key); ok {
		return
	}
	s.Set(g.key, flagValue)
}
