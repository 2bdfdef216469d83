package counterstore

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/wudi/pagecount/internal/counter"
	"github.com/wudi/pagecount/internal/metrics"
)

func responseCookies(rec *httptest.ResponseRecorder, name string) []*http.Cookie {
	var out []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

func requestWithCounters(t *testing.T, raw string) *http.Request {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultName, Value: url.QueryEscape(raw)})
	return req
}

func TestAdapterReadAbsent(t *testing.T) {
	a := New(NewMapBacking(), Config{}, nil)
	m := a.Read()
	if m == nil || len(m) != 0 {
		t.Errorf("expected empty mapping, got %v", m)
	}
}

func TestAdapterIncrementAndReset(t *testing.T) {
	a := New(NewMapBacking(), Config{}, nil)

	a.Increment(counter.TotalSessions)
	a.Increment(counter.SessionActions("Home/Index"))
	a.Increment(counter.SessionActions("Home/Index"))
	a.Increment(counter.TotalActions("Home/Index"))

	m := a.Read()
	if m[counter.TotalSessions] != 1 || m[counter.SessionActions("Home/Index")] != 2 {
		t.Fatalf("unexpected mapping: %v", m)
	}

	a.ResetNamespace(counter.SessionActionsPrefix)
	m = a.Read()
	if _, ok := m.Get(counter.SessionActions("Home/Index")); ok {
		t.Error("session counter survived reset")
	}
	if m[counter.TotalActions("Home/Index")] != 1 {
		t.Errorf("total counter changed: %v", m)
	}
}

func TestAdapterResetWithoutMatchesDoesNotWrite(t *testing.T) {
	b := NewMapBacking()
	a := New(b, Config{}, nil)
	a.ResetNamespace(counter.SessionActionsPrefix)
	if _, ok := b.Load(DefaultName); ok {
		t.Error("reset of an empty namespace should not write")
	}
}

func TestAdapterActionCount(t *testing.T) {
	a := New(NewMapBacking(), Config{}, nil)
	if _, ok := a.ActionCount("Home/Index"); ok {
		t.Error("never-visited route should be absent")
	}
	a.Increment(counter.TotalActions("Home/Index"))
	if n, ok := a.ActionCount("Home/Index"); !ok || n != 1 {
		t.Errorf("expected 1, got %d %v", n, ok)
	}
}

func TestAdapterCorruptValueStartsFromZero(t *testing.T) {
	b := NewMapBacking()
	b.Save(DefaultName, "{{{not json")
	c := metrics.NewCollector()
	a := New(b, Config{}, c)

	a.Increment(counter.TotalSessions)
	if got := a.Read()[counter.TotalSessions]; got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	got, err := testutil.GatherAndCount(c.Registry(), "pagecount_counter_decode_failures_total")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("expected one decode failure series, got %d", got)
	}
}

func TestCookieBackingReadYourWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	req := requestWithCounters(t, `{"totalSessions":4}`)
	a := New(NewCookieBacking(rec, req, CookieOptions{}), Config{}, nil)

	a.Increment(counter.TotalSessions)
	a.Increment(counter.TotalActions("Home/Index"))

	cookies := responseCookies(rec, DefaultName)
	if len(cookies) != 1 {
		t.Fatalf("expected exactly one Set-Cookie for %s, got %d", DefaultName, len(cookies))
	}
	value, err := url.QueryUnescape(cookies[0].Value)
	if err != nil {
		t.Fatal(err)
	}
	m := counter.Decode(value)
	if m[counter.TotalSessions] != 5 {
		t.Errorf("expected 5 sessions, got %d", m[counter.TotalSessions])
	}
	if m[counter.TotalActions("Home/Index")] != 1 {
		t.Errorf("expected 1 action, got %d", m[counter.TotalActions("Home/Index")])
	}
}

func TestCookieBackingAttributes(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	b := NewCookieBacking(rec, req, CookieOptions{})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Save(DefaultName, `{"totalSessions":1}`)

	cookies := responseCookies(rec, DefaultName)
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Path != "/" {
		t.Errorf("expected path /, got %q", c.Path)
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite=Lax, got %v", c.SameSite)
	}
	if !c.Expires.Equal(now.Add(DefaultCookieMaxAge)) {
		t.Errorf("unexpected expiry %v", c.Expires)
	}
	if c.MaxAge != int(DefaultCookieMaxAge.Seconds()) {
		t.Errorf("unexpected max-age %d", c.MaxAge)
	}
	if c.HttpOnly {
		t.Error("counter cookie should be readable by scripts by default")
	}
}

func TestCookieBackingKeepsOtherCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	http.SetCookie(rec, &http.Cookie{Name: "other", Value: "x"})
	b := NewCookieBacking(rec, httptest.NewRequest("GET", "/", nil), CookieOptions{})

	b.Save(DefaultName, "{}")
	b.Save(DefaultName, `{"a":1}`)

	if got := len(responseCookies(rec, "other")); got != 1 {
		t.Errorf("expected unrelated cookie to survive, got %d", got)
	}
	if got := len(responseCookies(rec, DefaultName)); got != 1 {
		t.Errorf("expected single counter cookie, got %d", got)
	}
}

func TestCookieBackingUnescapedLegacyValue(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", DefaultName+"=%7B%22totalSessions%22%3A%223%22%7D")
	b := NewCookieBacking(httptest.NewRecorder(), req, CookieOptions{})

	v, ok := b.Load(DefaultName)
	if !ok {
		t.Fatal("expected cookie to load")
	}
	if got := counter.Decode(v)[counter.TotalSessions]; got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}

func TestAdapterOversizeStillWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	c := metrics.NewCollector()
	a := New(NewCookieBacking(rec, httptest.NewRequest("GET", "/", nil), CookieOptions{}), Config{SizeLimit: 64}, c)

	a.Increment(counter.TotalActions(strings.Repeat("Long", 20) + "/Index"))

	if got := len(responseCookies(rec, DefaultName)); got != 1 {
		t.Fatalf("expected oversized cookie to be written, got %d", got)
	}
	expected := `
# HELP pagecount_cookie_oversize_total Counter cookie writes exceeding the configured size limit
# TYPE pagecount_cookie_oversize_total counter
pagecount_cookie_oversize_total 1
`
	if err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "pagecount_cookie_oversize_total"); err != nil {
		t.Error(err)
	}
}
