package session

import (
	"context"
	"net/http"
	"sync"
)

// Session is the server-held state of one visitor's browsing window. It is
// loaded when a request arrives and saved when the request completes.
type Session struct {
	mu     sync.Mutex
	id     string
	values map[string][]byte
	isNew  bool
}

func newSession(id string, values map[string][]byte, isNew bool) *Session {
	if values == nil {
		values = make(map[string][]byte)
	}
	return &Session{id: id, values: values, isNew: isNew}
}

// ID returns the session identifier carried by the session cookie.
func (s *Session) ID() string {
	return s.id
}

// IsNew reports whether the store held nothing for this session when the
// request arrived.
func (s *Session) IsNew() bool {
	return s.isNew
}

// Get returns the value stored under key.
func (s *Session) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key for the rest of the session.
func (s *Session) Set(key string, value []byte) {
	s.mu.Lock()
	s.values[key] = append([]byte(nil), value...)
	s.mu.Unlock()
}

// Len returns the number of stored keys.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *Session) snapshot() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// FromRequest returns the request's session, or nil when no session
// middleware ran.
func FromRequest(r *http.Request) *Session {
	return FromContext(r.Context())
}
