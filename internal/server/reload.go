package server

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/wudi/pagecount/internal/config"
)

// ReloadResult contains the result of a config reload
type ReloadResult struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
	Changes   []string  `json:"changes,omitempty"`
}

// ReloadConfig loads the config file again and applies it.
func (s *Server) ReloadConfig() ReloadResult {
	if s.configPath == "" {
		return s.record(ReloadResult{
			Timestamp: time.Now(),
			Error:     "no config path configured",
		})
	}

	newCfg, err := config.NewLoader().Load(s.configPath)
	if err != nil {
		return s.record(ReloadResult{
			Timestamp: time.Now(),
			Error:     fmt.Sprintf("config load failed: %v", err),
		})
	}
	return s.Reload(newCfg)
}

// Reload applies the parts of newCfg that can change at runtime: tracking
// options, routes and static files. Listener, session and Redis settings
// are reported but only take effect after a restart.
func (s *Server) Reload(newCfg *config.Config) ReloadResult {
	s.mu.Lock()
	oldCfg := s.config
	s.mu.Unlock()

	result := ReloadResult{Timestamp: time.Now()}

	if !reflect.DeepEqual(oldCfg.Routes, newCfg.Routes) || oldCfg.Static != newCfg.Static {
		if err := s.router.Load(newCfg.Routes, newCfg.Static); err != nil {
			result.Error = err.Error()
			return s.record(result)
		}
	}

	if oldCfg.Tracking != newCfg.Tracking {
		s.tracker.Update(newCfg.Tracking)
	}

	result.Changes = diffConfig(oldCfg, newCfg)
	result.Success = true

	s.mu.Lock()
	s.config = newCfg
	s.mu.Unlock()
	return s.record(result)
}

// record appends a result and keeps the last 50 entries.
func (s *Server) record(result ReloadResult) ReloadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadHistory = append(s.reloadHistory, result)
	if len(s.reloadHistory) > 50 {
		s.reloadHistory = s.reloadHistory[len(s.reloadHistory)-50:]
	}
	return result
}

// ReloadHistory returns past reload results, oldest first.
func (s *Server) ReloadHistory() []ReloadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReloadResult, len(s.reloadHistory))
	copy(out, s.reloadHistory)
	return out
}

func diffConfig(oldCfg, newCfg *config.Config) []string {
	var changes []string

	oldRoutes := make(map[string]config.RouteConfig, len(oldCfg.Routes))
	for _, r := range oldCfg.Routes {
		oldRoutes[r.Path] = r
	}
	newRoutes := make(map[string]config.RouteConfig, len(newCfg.Routes))
	for _, r := range newCfg.Routes {
		newRoutes[r.Path] = r
	}
	for path, r := range newRoutes {
		old, ok := oldRoutes[path]
		switch {
		case !ok:
			changes = append(changes, fmt.Sprintf("route added: %s", path))
		case !reflect.DeepEqual(old, r):
			changes = append(changes, fmt.Sprintf("route reloaded: %s", path))
		}
	}
	for path := range oldRoutes {
		if _, ok := newRoutes[path]; !ok {
			changes = append(changes, fmt.Sprintf("route removed: %s", path))
		}
	}

	if oldCfg.Static != newCfg.Static {
		changes = append(changes, "static files changed")
	}
	if oldCfg.Tracking != newCfg.Tracking {
		changes = append(changes, "tracking changed")
	}
	if oldCfg.Server != newCfg.Server || oldCfg.Admin != newCfg.Admin {
		changes = append(changes, "listeners changed (restart required)")
	}
	if oldCfg.Session != newCfg.Session || oldCfg.Redis != newCfg.Redis {
		changes = append(changes, "session store changed (restart required)")
	}

	sort.Strings(changes)
	return changes
}
