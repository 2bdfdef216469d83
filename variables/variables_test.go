package variables

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAttachReusesContext(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req, c1 := Attach(req)
	req, c2 := Attach(req)
	if c1 != c2 {
		t.Fatal("expected Attach to reuse the existing context")
	}
	if GetFromRequest(req) != c1 {
		t.Fatal("GetFromRequest returned a different context")
	}
}

func TestRouteUnset(t *testing.T) {
	c := NewContext(httptest.NewRequest("GET", "/", nil))
	if _, ok := c.Route(); ok {
		t.Error("expected no route")
	}
	c.SetRoute("Home", "")
	if _, ok := c.Route(); ok {
		t.Error("expected no route without an action")
	}
	var nilCtx *Context
	if _, ok := nilCtx.Route(); ok {
		t.Error("nil context should have no route")
	}
}

func TestRouteSet(t *testing.T) {
	c := NewContext(httptest.NewRequest("GET", "/", nil))
	c.SetRoute("Home", "Index")
	if route, ok := c.Route(); !ok || route != "Home/Index" {
		t.Errorf("expected Home/Index, got %q %v", route, ok)
	}
}

func TestResolve(t *testing.T) {
	req := httptest.NewRequest("GET", "/Home/Index?x=1", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("User-Agent", "test-agent")
	c := NewContext(req)
	c.RequestID = "abc"
	c.Status = 200
	c.BodyBytesSent = 12
	c.ResponseTime = 1500 * time.Microsecond
	c.SetRoute("Home", "Index")

	got := Resolve(`$remote_addr "$request_method $request_path" $status $body_bytes_sent $route ${request_id} $http_user_agent $response_time $unknown`, c)
	want := `10.0.0.1 "GET /Home/Index" 200 12 Home/Index abc test-agent 1.500 `
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestExtractClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	if got := ExtractClientIP(req); got != "1.2.3.4" {
		t.Errorf("expected 1.2.3.4, got %s", got)
	}
}
