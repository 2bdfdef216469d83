package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// validHTTPMethods contains all valid HTTP method names.
var validHTTPMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"DELETE": true, "PATCH": true, "OPTIONS": true,
}

// Loader handles configuration loading and parsing
type Loader struct {
	envPattern *regexp.Regexp
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		envPattern: regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`),
	}
}

// Load reads and parses a configuration file
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return l.Parse(data)
}

// Parse parses configuration from YAML bytes
func (l *Loader) Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := l.expandEnvVars(string(data))

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal YAML into config
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := l.validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func (l *Loader) expandEnvVars(input string) string {
	return l.envPattern.ReplaceAllStringFunc(input, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match // Keep original if env var not set
	})
}

// validate checks configuration for errors
func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if cfg.Admin.Enabled && cfg.Admin.Address == "" {
		return fmt.Errorf("admin.address is required when admin is enabled")
	}

	switch cfg.Logging.Encoding {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging.encoding: %s", cfg.Logging.Encoding)
	}

	if err := validateSession(cfg); err != nil {
		return err
	}
	if err := validateTracking(cfg.Tracking); err != nil {
		return err
	}
	return validateRoutes(cfg.Routes)
}

func validateSession(cfg *Config) error {
	s := cfg.Session
	switch s.Store {
	case "", "memory":
	case "redis":
		if cfg.Redis.Address == "" {
			return fmt.Errorf("session.store redis requires redis.address")
		}
	default:
		return fmt.Errorf("invalid session.store: %s", s.Store)
	}
	if s.IdleTimeout < 0 {
		return fmt.Errorf("session.idle_timeout must be >= 0")
	}
	if s.MaxSessions < 0 {
		return fmt.Errorf("session.max_sessions must be >= 0")
	}
	if s.CookieName != "" && s.CookieName == cfg.Tracking.CookieName {
		return fmt.Errorf("session.cookie_name and tracking.cookie_name must differ")
	}
	return nil
}

func validateTracking(t TrackingConfig) error {
	switch t.SessionReset {
	case "", ResetEager, ResetDeferred, ResetNone:
	default:
		return fmt.Errorf("invalid tracking.session_reset: %s (want %s, %s or %s)",
			t.SessionReset, ResetEager, ResetDeferred, ResetNone)
	}
	switch strings.ToLower(t.CookieSameSite) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("invalid tracking.cookie_same_site: %s", t.CookieSameSite)
	}
	if strings.EqualFold(t.CookieSameSite, "none") && !t.CookieSecure {
		return fmt.Errorf("tracking.cookie_same_site none requires cookie_secure")
	}
	if t.SizeLimit < 0 {
		return fmt.Errorf("tracking.size_limit must be >= 0")
	}
	if t.CookieMaxAge < 0 {
		return fmt.Errorf("tracking.cookie_max_age must be >= 0")
	}
	return nil
}

func validateRoutes(routes []RouteConfig) error {
	seen := make(map[string]bool)
	for i, r := range routes {
		label := r.Name
		if label == "" {
			label = fmt.Sprintf("%d", i)
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("route %s: path must start with /", label)
		}
		if r.Controller == "" || r.Action == "" {
			return fmt.Errorf("route %s: controller and action are required", label)
		}
		if strings.Contains(r.Controller, "/") || strings.Contains(r.Action, "/") {
			return fmt.Errorf("route %s: controller and action must not contain /", label)
		}
		methods := r.Methods
		if len(methods) == 0 {
			methods = []string{"GET"}
		}
		for _, m := range methods {
			m = strings.ToUpper(m)
			if !validHTTPMethods[m] {
				return fmt.Errorf("route %s: invalid method %s", label, m)
			}
			key := m + " " + r.Path
			if seen[key] {
				return fmt.Errorf("route %s: duplicate %s", label, key)
			}
			seen[key] = true
		}
	}
	return nil
}
