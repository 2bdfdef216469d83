package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/logging"
)

// Defaults for the session cookie and lifetime.
const (
	DefaultCookieName  = ".pagecount.session"
	DefaultIdleTimeout = 5 * time.Minute
)

// Config configures a Manager.
type Config struct {
	CookieName string
	Path       string
	Secure     bool
	SameSite   http.SameSite
}

// Manager attaches a Session to each request and saves it afterwards.
type Manager struct {
	store      Store
	cookieName string
	path       string
	secure     bool
	sameSite   http.SameSite
	newID      func() string
}

// NewManager creates a Manager over store.
func NewManager(store Store, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	return &Manager{
		store:      store,
		cookieName: cfg.CookieName,
		path:       cfg.Path,
		secure:     cfg.Secure,
		sameSite:   cfg.SameSite,
		newID:      func() string { return uuid.New().String() },
	}
}

// Store returns the underlying session store.
func (m *Manager) Store() Store {
	return m.store
}

// Middleware loads the session before next runs and saves it after. When
// the store cannot be read, next runs without a session and nothing is saved.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.load(w, r)
		if err != nil {
			logging.Warn("Session store unavailable, serving without a session",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}
		// Saved even when next panics.
		defer m.save(r, s)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

func (m *Manager) load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if c, err := r.Cookie(m.cookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			values, ok, err := m.store.Load(r.Context(), c.Value)
			if err != nil {
				return nil, err
			}
			if ok {
				return newSession(c.Value, values, false), nil
			}
			// Expired sessions keep their ID, as the browser still holds it.
			return newSession(c.Value, nil, true), nil
		}
		logging.Debug("Ignoring malformed session cookie", zap.Int("length", len(c.Value)))
	}

	id := m.newID()
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     m.path,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: m.sameSite,
	})
	return newSession(id, nil, true), nil
}

func (m *Manager) save(r *http.Request, s *Session) {
	values := s.snapshot()
	if len(values) == 0 {
		return
	}
	// Saving unchanged sessions too restarts their idle timer. The save
	// outlives a client that has already gone away.
	if err := m.store.Save(context.WithoutCancel(r.Context()), s.ID(), values); err != nil {
		logging.Warn("Session save failed", zap.String("session_id", s.ID()), zap.Error(err))
	}
}
