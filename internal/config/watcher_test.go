package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecount.yaml")
	if err := os.WriteFile(path, []byte("tracking:\n  session_reset: eager\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(20 * time.Millisecond)
	got := make(chan *Config, 1)
	w.OnChange(func(cfg *Config) {
		select {
		case got <- cfg:
		default:
		}
	})
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("tracking:\n  session_reset: none\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-got:
		if cfg.Tracking.SessionReset != ResetNone {
			t.Errorf("expected reloaded reset mode none, got %s", cfg.Tracking.SessionReset)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherReloadKeepsInvalidOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecount.yaml")
	if err := os.WriteFile(path, []byte("session:\n  store: bogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	called := false
	w.OnChange(func(*Config) { called = true })
	w.Reload()
	if called {
		t.Error("invalid config must not reach callbacks")
	}
}
