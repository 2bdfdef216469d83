package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, lvl zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	original := Global()
	core, obs := observer.New(lvl)
	SetGlobal(zap.New(core))
	t.Cleanup(func() { SetGlobal(original) })
	return obs
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithOptionsJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagecount.log")
	l, err := NewWithOptions(Options{Level: "debug", Output: path})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	l.Debug("session started", zap.String("session_id", "abc"))
	l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if line["msg"] != "session started" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["session_id"] != "abc" {
		t.Errorf("session_id = %v", line["session_id"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Error("expected timestamp key")
	}
}

func TestNewWithOptionsConsoleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	l, err := NewWithOptions(Options{Level: "warn", Format: "console", Output: path,
		Rotation: Rotation{MaxSize: 1, MaxBackups: 1, MaxAge: 1}})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	l.Info("filtered out")
	l.Warn("counter cookie exceeds size limit")
	l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "filtered out") {
		t.Error("info line written at warn level")
	}
	if !strings.Contains(out, "counter cookie exceeds size limit") {
		t.Errorf("warn line missing: %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Error("console format produced JSON")
	}
}

func TestNewDefaultsToInfo(t *testing.T) {
	l, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug enabled on default logger")
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info disabled on default logger")
	}
}

func TestGlobalHelpers(t *testing.T) {
	obs := observe(t, zapcore.DebugLevel)

	Debug("decode dropped members")
	Info("session started")
	Warn("oversize cookie")
	Error("store unavailable")

	want := []struct {
		msg   string
		level zapcore.Level
	}{
		{"decode dropped members", zapcore.DebugLevel},
		{"session started", zapcore.InfoLevel},
		{"oversize cookie", zapcore.WarnLevel},
		{"store unavailable", zapcore.ErrorLevel},
	}
	entries := obs.All()
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, w := range want {
		if entries[i].Message != w.msg || entries[i].Level != w.level {
			t.Errorf("entry %d = %s/%v, want %s/%v", i, entries[i].Message, entries[i].Level, w.msg, w.level)
		}
	}
}

func TestGlobalLevelFiltering(t *testing.T) {
	obs := observe(t, zapcore.WarnLevel)

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	if n := obs.Len(); n != 1 {
		t.Fatalf("expected 1 entry at warn level, got %d", n)
	}
}

func TestWithAddsFields(t *testing.T) {
	obs := observe(t, zapcore.InfoLevel)

	With(zap.String("component", "tracking")).Info("action recorded", zap.String("route", "Home/Index"))

	entries := obs.FilterField(zap.String("component", "tracking")).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry with component field, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["route"]; got != "Home/Index" {
		t.Errorf("route = %v", got)
	}
}
