package counterstore

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Backing is a string key/value store with no sub-key update primitive.
type Backing interface {
	Load(name string) (string, bool)
	Save(name, value string)
}

// Sizer is implemented by backings that know how large a stored value will
// be on the wire.
type Sizer interface {
	WireSize(name, value string) int
}

// DefaultCookieMaxAge is how long the counter cookie outlives its last write.
const DefaultCookieMaxAge = 2 * 365 * 24 * time.Hour

// CookieOptions control the attributes of written cookies.
type CookieOptions struct {
	Path     string
	Domain   string
	MaxAge   time.Duration
	SameSite http.SameSite
	Secure   bool
	HTTPOnly bool
}

func (o CookieOptions) withDefaults() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultCookieMaxAge
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// CookieBacking stores values as cookies: reads come from the request, writes
// go to the response header as Set-Cookie. A value saved during the request
// is returned by later loads, and only the last save per name reaches the
// response.
type CookieBacking struct {
	w       http.ResponseWriter
	r       *http.Request
	opts    CookieOptions
	pending map[string]string
	now     func() time.Time
}

// NewCookieBacking creates a request-scoped cookie backing.
func NewCookieBacking(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieBacking {
	return &CookieBacking{
		w:       w,
		r:       r,
		opts:    opts.withDefaults(),
		pending: make(map[string]string),
		now:     time.Now,
	}
}

// Load returns the pending value for name, or the request cookie.
func (b *CookieBacking) Load(name string) (string, bool) {
	if v, ok := b.pending[name]; ok {
		return v, true
	}
	c, err := b.r.Cookie(name)
	if err != nil {
		return "", false
	}
	if v, err := url.QueryUnescape(c.Value); err == nil {
		return v, true
	}
	return c.Value, true
}

// Save replaces any Set-Cookie for name already on the response.
func (b *CookieBacking) Save(name, value string) {
	b.pending[name] = value

	h := b.w.Header()
	prefix := name + "="
	kept := h["Set-Cookie"][:0]
	for _, line := range h["Set-Cookie"] {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		h.Del("Set-Cookie")
	} else {
		h["Set-Cookie"] = kept
	}

	if v := b.cookie(name, value).String(); v != "" {
		h.Add("Set-Cookie", v)
	}
}

// WireSize returns the length of the Set-Cookie value for name and value.
func (b *CookieBacking) WireSize(name, value string) int {
	return len(b.cookie(name, value).String())
}

func (b *CookieBacking) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     b.opts.Path,
		Domain:   b.opts.Domain,
		Expires:  b.now().Add(b.opts.MaxAge).UTC(),
		MaxAge:   int(b.opts.MaxAge.Seconds()),
		Secure:   b.opts.Secure,
		HttpOnly: b.opts.HTTPOnly,
		SameSite: b.opts.SameSite,
	}
}

// MapBacking is an in-process Backing, for callers that keep counters
// somewhere other than the visitor's browser.
type MapBacking struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMapBacking creates an empty MapBacking.
func NewMapBacking() *MapBacking {
	return &MapBacking{values: make(map[string]string)}
}

func (b *MapBacking) Load(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[name]
	return v, ok
}

func (b *MapBacking) Save(name, value string) {
	b.mu.Lock()
	b.values[name] = value
	b.mu.Unlock()
}
