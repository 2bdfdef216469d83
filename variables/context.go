package variables

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Context holds per-request values shared between middleware layers. The
// router fills in the route it dispatched to; outer layers read it after
// (or while) the handler runs.
type Context struct {
	Request       *http.Request
	RequestID     string
	RouteGroup    string
	RouteAction   string
	PathParams    map[string]string
	StartTime     time.Time
	ResponseTime  time.Duration
	Status        int
	BodyBytesSent int64
}

// RequestContextKey is the context key for storing variable context
type RequestContextKey struct{}

// NewContext creates a new variable context
func NewContext(r *http.Request) *Context {
	return &Context{Request: r, StartTime: time.Now()}
}

// Attach returns r carrying a variable context, reusing one already present.
func Attach(r *http.Request) (*http.Request, *Context) {
	if c, ok := r.Context().Value(RequestContextKey{}).(*Context); ok {
		return r, c
	}
	c := NewContext(r)
	return r.WithContext(context.WithValue(r.Context(), RequestContextKey{}, c)), c
}

// GetFromRequest extracts the variable context from an HTTP request. It
// returns a detached context when none is attached.
func GetFromRequest(r *http.Request) *Context {
	if c, ok := r.Context().Value(RequestContextKey{}).(*Context); ok {
		return c
	}
	return NewContext(r)
}

// SetRoute records the controller group and action a request was dispatched to.
func (c *Context) SetRoute(group, action string) {
	c.RouteGroup = group
	c.RouteAction = action
}

// Route returns "group/action" for the dispatched route. ok is false when no
// route was resolved, e.g. for static files and 404s.
func (c *Context) Route() (route string, ok bool) {
	if c == nil || c.RouteGroup == "" || c.RouteAction == "" {
		return "", false
	}
	return c.RouteGroup + "/" + c.RouteAction, true
}

// ExtractClientIP extracts the client IP from X-Forwarded-For, X-Real-IP,
// and finally RemoteAddr.
func ExtractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
