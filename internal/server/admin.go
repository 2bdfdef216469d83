package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/wudi/pagecount/internal/errors"
)

// AdminHandler creates the admin API handler
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/routes", s.handleRoutes)
	mux.HandleFunc("/reload", s.handleReload)
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func boolStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "unhealthy"
}

// redisCheck pings Redis when the redis session store is in use. It
// returns nil when there is nothing to check.
func (s *Server) redisCheck(ctx context.Context) map[string]interface{} {
	if s.redisClient == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := s.redisClient.Ping(ctx).Err()
	check := map[string]interface{}{"status": boolStatus(err == nil)}
	if err != nil {
		check["error"] = err.Error()
	}
	return check
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	healthy := true

	if redisCheck := s.redisCheck(r.Context()); redisCheck != nil {
		checks["redis"] = redisCheck
		healthy = redisCheck["status"] == "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"status": boolStatus(healthy),
		"uptime": time.Since(s.startTime).String(),
		"checks": checks,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	reasons := []string{}
	if redisCheck := s.redisCheck(r.Context()); redisCheck != nil && redisCheck["status"] != "ok" {
		reasons = append(reasons, "redis unavailable: "+redisCheck["error"].(string))
	}

	if len(reasons) > 0 {
		errors.ErrServiceUnavailable.WithDetails(strings.Join(reasons, "; ")).WriteJSON(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ready":   true,
		"reasons": reasons,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cfg := s.config
	reloads := len(s.reloadHistory)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"session_store":  cfg.Session.Store,
		"sessions":       s.sessions.Store().Stats(),
		"routes":         len(s.router.Routes()),
		"session_reset":  cfg.Tracking.SessionReset,
		"reloads":        reloads,
	})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.router.Routes())
}

// handleReload reloads the config file on POST and lists past reloads on GET.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.ReloadHistory())
	case http.MethodPost:
		result := s.ReloadConfig()
		logReload(result)
		status := http.StatusOK
		if !result.Success {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, result)
	default:
		errors.ErrMethodNotAllowed.WriteJSON(w)
	}
}
