package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecovery(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	rr := httptest.NewRecorder()
	Recovery()(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "panic: test panic") {
		t.Errorf("body should carry panic details, got %q", rr.Body.String())
	}
}

func TestRecoveryWithConfig(t *testing.T) {
	var loggedErr interface{}
	var loggedStack []byte

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("custom panic")
	})

	cfg := RecoveryConfig{
		PrintStack: true,
		LogFunc: func(r *http.Request, err interface{}, stack []byte) {
			loggedErr = err
			loggedStack = stack
		},
	}

	RecoveryWithConfig(cfg)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	if loggedErr != "custom panic" {
		t.Errorf("Expected 'custom panic', got %v", loggedErr)
	}
	if len(loggedStack) == 0 {
		t.Error("Expected stack trace to be captured")
	}
}

func TestRecoveryWithoutStack(t *testing.T) {
	var loggedStack []byte
	cfg := RecoveryConfig{
		LogFunc: func(r *http.Request, err interface{}, stack []byte) {
			loggedStack = stack
		},
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("no stack")
	})

	RecoveryWithConfig(cfg)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if loggedStack != nil {
		t.Error("stack should not be captured")
	}
}

func TestRecoveryNoPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("success"))
	})

	rr := httptest.NewRecorder()
	Recovery()(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "success" {
		t.Errorf("unexpected response %d %q", rr.Code, rr.Body.String())
	}
}

func TestRecoveryAbortHandlerPropagates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Error("ErrAbortHandler should be re-panicked")
		}
	}()
	Recovery()(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestRecoveryWithRequestIDHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	final := NewChain(RequestID(), Recovery()).Then(handler)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr := httptest.NewRecorder()
	final.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), `"request_id":"req-42"`) {
		t.Errorf("expected request id in body, got %q", rr.Body.String())
	}
}
