package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoaderParse(t *testing.T) {
	yaml := `
server:
  address: ":9090"
  read_timeout: 10s

session:
  store: redis
  idle_timeout: 2m

redis:
  address: "redis:6379"

tracking:
  cookie_name: Visits
  session_reset: deferred
  size_limit: 2048

routes:
  - name: about
    path: /about
    controller: Home
    action: About
`

	loader := NewLoader()
	cfg, err := loader.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Server.Address != ":9090" {
		t.Errorf("expected address :9090, got %s", cfg.Server.Address)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("expected read_timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("expected default write_timeout 30s, got %v", cfg.Server.WriteTimeout)
	}
	if cfg.Session.Store != "redis" || cfg.Session.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Tracking.CookieName != "Visits" {
		t.Errorf("expected cookie name Visits, got %s", cfg.Tracking.CookieName)
	}
	if cfg.Tracking.SessionReset != ResetDeferred {
		t.Errorf("expected deferred reset, got %s", cfg.Tracking.SessionReset)
	}
	if cfg.Tracking.CookieMaxAge != 2*365*24*time.Hour {
		t.Errorf("expected default max age, got %v", cfg.Tracking.CookieMaxAge)
	}
	if len(cfg.Routes) != 1 || cfg.Routes[0].Name != "about" {
		t.Errorf("expected routes to be replaced, got %+v", cfg.Routes)
	}
}

func TestLoaderDefaults(t *testing.T) {
	cfg, err := NewLoader().Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Tracking.CookieName != "UserActions" {
		t.Errorf("expected UserActions, got %s", cfg.Tracking.CookieName)
	}
	if cfg.Session.IdleTimeout != 5*time.Minute {
		t.Errorf("expected 5m idle timeout, got %v", cfg.Session.IdleTimeout)
	}
	if cfg.Tracking.SessionReset != ResetEager {
		t.Errorf("expected eager reset, got %s", cfg.Tracking.SessionReset)
	}
	if len(cfg.Routes) != 1 || cfg.Routes[0].Path != "/other" {
		t.Errorf("expected default /other route, got %+v", cfg.Routes)
	}
}

func TestLoaderEnvExpansion(t *testing.T) {
	t.Setenv("PAGECOUNT_TEST_REDIS", "cache.internal:6380")

	yaml := `
session:
  store: redis
redis:
  address: "${PAGECOUNT_TEST_REDIS}"
  password: "${PAGECOUNT_UNSET_VAR}"
`
	cfg, err := NewLoader().Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Redis.Address != "cache.internal:6380" {
		t.Errorf("expected expanded address, got %s", cfg.Redis.Address)
	}
	if cfg.Redis.Password != "${PAGECOUNT_UNSET_VAR}" {
		t.Errorf("expected unset var kept verbatim, got %s", cfg.Redis.Password)
	}
}

func TestLoaderValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad store", "session:\n  store: sql\n", "invalid session.store"},
		{"bad reset", "tracking:\n  session_reset: lazy\n", "invalid tracking.session_reset"},
		{"bad same site", "tracking:\n  cookie_same_site: loose\n", "invalid tracking.cookie_same_site"},
		{"none needs secure", "tracking:\n  cookie_same_site: none\n", "requires cookie_secure"},
		{"cookie clash", "session:\n  cookie_name: UserActions\n", "must differ"},
		{"route path", "routes:\n  - name: x\n    path: nope\n    controller: A\n    action: B\n", "must start with /"},
		{"route action", "routes:\n  - name: x\n    path: /x\n    controller: A\n", "controller and action are required"},
		{"route method", "routes:\n  - name: x\n    path: /x\n    controller: A\n    action: B\n    methods: [FETCH]\n", "invalid method"},
		{"route dup", "routes:\n  - {path: /x, controller: A, action: B}\n  - {path: /x, controller: C, action: D}\n", "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoaderLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecount.yaml")
	if err := os.WriteFile(path, []byte("server:\n  address: \":7070\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewLoader().Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("expected :7070, got %s", cfg.Server.Address)
	}

	if _, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
