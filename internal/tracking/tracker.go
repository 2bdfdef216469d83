package tracking

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/config"
	"github.com/wudi/pagecount/internal/counter"
	"github.com/wudi/pagecount/internal/counterstore"
	"github.com/wudi/pagecount/internal/logging"
	"github.com/wudi/pagecount/internal/metrics"
	"github.com/wudi/pagecount/internal/session"
	"github.com/wudi/pagecount/variables"
)

// settings is the compiled form of config.TrackingConfig.
type settings struct {
	enabled bool
	cookie  counterstore.CookieOptions
	store   counterstore.Config
	reset   string
	gate    *session.Gate
}

func compile(cfg config.TrackingConfig) *settings {
	sameSite := http.SameSiteLaxMode
	switch strings.ToLower(cfg.CookieSameSite) {
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	reset := cfg.SessionReset
	if reset == "" {
		reset = config.ResetEager
	}
	return &settings{
		enabled: cfg.Enabled,
		cookie: counterstore.CookieOptions{
			Path:     cfg.CookiePath,
			Domain:   cfg.CookieDomain,
			MaxAge:   cfg.CookieMaxAge,
			SameSite: sameSite,
			Secure:   cfg.CookieSecure,
			HTTPOnly: cfg.CookieHTTPOnly,
		},
		store: counterstore.Config{
			Name:      cfg.CookieName,
			SizeLimit: cfg.SizeLimit,
		},
		reset: reset,
		gate:  session.NewGate(cfg.SessionFlag),
	}
}

// Tracker counts sessions and route invocations into the visitor's counter
// cookie. It must run inside the session middleware and outside the router.
type Tracker struct {
	settings atomic.Pointer[settings]
	metrics  *metrics.Collector
}

// New creates a Tracker. collector may be nil.
func New(cfg config.TrackingConfig, collector *metrics.Collector) *Tracker {
	t := &Tracker{metrics: collector}
	t.settings.Store(compile(cfg))
	return t
}

// Update swaps in new settings. Requests already in flight keep the old ones.
func (t *Tracker) Update(cfg config.TrackingConfig) {
	t.settings.Store(compile(cfg))
	logging.Info("Tracking settings updated",
		zap.Bool("enabled", cfg.Enabled),
		zap.String("session_reset", cfg.SessionReset),
	)
}

type stateKey struct{}

// requestState is what one request knows about its visitor's counters.
type requestState struct {
	adapter *counterstore.Adapter
}

// Middleware wraps next with session and action counting.
//
// The session-start sequence (count the session, clear session-scoped
// counters, set the session flag) runs before next in eager mode, so this
// request's own action lands in the fresh session range. Action counts are
// recorded from a callback that fires just before the response headers are
// committed, when the router has already resolved the route.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := t.settings.Load()
		if !s.enabled {
			next.ServeHTTP(w, r)
			return
		}

		r, vars := variables.Attach(r)
		sess := session.FromRequest(r)
		if sess == nil {
			logging.Debug("No session attached, session counting skipped",
				zap.String("path", r.URL.Path),
			)
		}

		// Set-Cookie goes into w's header map, which sw shares.
		adapter := counterstore.New(counterstore.NewCookieBacking(w, r, s.cookie), s.store, t.metrics)
		r = r.WithContext(context.WithValue(r.Context(), stateKey{}, &requestState{adapter: adapter}))

		if s.reset != config.ResetDeferred && s.gate.IsFirstRequest(sess) {
			t.safely("session start", func() {
				t.startSession(s, adapter, sess)
			})
		}

		sw := newSendWriter(w, func() {
			t.safely("pre-send", func() {
				if s.reset == config.ResetDeferred && s.gate.IsFirstRequest(sess) {
					t.startSession(s, adapter, sess)
				}
				t.recordAction(adapter, vars)
			})
		})
		// A panic in next skips finish: the failed request's action is not
		// tallied, while an eager session start stays in the cookie header.
		next.ServeHTTP(sw, r)

		if sw.finish() {
			t.metrics.RecordLostUpdate("hijacked")
			logging.Debug("Counter update dropped, connection hijacked",
				zap.String("path", r.URL.Path),
			)
		}
	})
}

// startSession charges one session and, unless resets are disabled, clears
// the session-scoped counters. The flag is set last so that an interrupted
// sequence is retried on the next request.
func (t *Tracker) startSession(s *settings, a *counterstore.Adapter, sess *session.Session) {
	a.Increment(counter.TotalSessions)
	reset := s.reset != config.ResetNone
	if reset {
		a.ResetNamespace(counter.SessionActionsPrefix)
	}
	s.gate.MarkStarted(sess)

	t.metrics.RecordSessionStart(reset)
	logging.Debug("Visitor session started",
		zap.String("session_id", sess.ID()),
		zap.Bool("reset", reset),
	)
}

func (t *Tracker) recordAction(a *counterstore.Adapter, vars *variables.Context) {
	route, ok := vars.Route()
	if !ok {
		return
	}
	a.Increment(counter.TotalActions(route))
	a.Increment(counter.SessionActions(route))
	t.metrics.RecordAction(route)
}

// safely runs fn, logging instead of propagating a panic: counting must
// never break the request it observes.
func (t *Tracker) safely(stage string, fn func()) {
	defer func() {
		if err := recover(); err != nil {
			logging.Error("Tracking failed",
				zap.String("stage", stage),
				zap.Any("error", err),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	fn()
}

// ActionCount returns how often the current visitor has invoked route. ok is
// false when the route has never been recorded. Counts written earlier in the
// same request are included.
func ActionCount(r *http.Request, route string) (n int64, ok bool) {
	return adapterFor(r).ActionCount(route)
}

// Snapshot returns all of the current visitor's counters.
func Snapshot(r *http.Request) counter.Mapping {
	return adapterFor(r).Read()
}

func adapterFor(r *http.Request) *counterstore.Adapter {
	if st, ok := r.Context().Value(stateKey{}).(*requestState); ok {
		return st.adapter
	}
	// Outside the tracker only the request cookie is available.
	return counterstore.New(counterstore.NewCookieBacking(nil, r, counterstore.CookieOptions{}), counterstore.Config{}, nil)
}
