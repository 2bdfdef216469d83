package config

import "time"

// Config is the root configuration of the pagecount service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Admin    AdminConfig    `yaml:"admin"`
	Logging  LoggingConfig  `yaml:"logging"`
	Session  SessionConfig  `yaml:"session"`
	Tracking TrackingConfig `yaml:"tracking"`
	Redis    RedisConfig    `yaml:"redis"`
	Routes   []RouteConfig  `yaml:"routes"` // explicit routes, matched before the conventional pattern
	Static   StaticConfig   `yaml:"static"`
}

// ServerConfig defines the public HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	WatchConfig     bool          `yaml:"watch_config"` // reload on config file changes
}

// AdminConfig defines the admin listener serving metrics and health.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// LoggingConfig defines structured and access logging.
type LoggingConfig struct {
	Format    string            `yaml:"format"`     // access log line format ($variables)
	Encoding  string            `yaml:"encoding"`   // json or console
	Level     string            `yaml:"level"`
	Output    string            `yaml:"output"`     // stdout, stderr or a file path
	AccessLog bool              `yaml:"access_log"` // emit one line per request
	SkipPaths []string          `yaml:"skip_paths"` // exact paths left out of the access log and request metrics
	JSON      bool              `yaml:"json"`       // structured access log fields instead of Format
	Rotation  LogRotationConfig `yaml:"rotation"`
}

// LogRotationConfig defines log file rotation settings (powered by lumberjack).
type LogRotationConfig struct {
	MaxSize    int  `yaml:"max_size"`    // max megabytes before rotation (default 100)
	MaxBackups int  `yaml:"max_backups"` // old rotated files to keep (default 3)
	MaxAge     int  `yaml:"max_age"`     // days to retain old files (default 28)
	Compress   bool `yaml:"compress"`    // gzip rotated files
}

// SessionConfig defines the server-held session used to detect new visits.
type SessionConfig struct {
	Store       string        `yaml:"store"`        // "memory" (default) or "redis"
	CookieName  string        `yaml:"cookie_name"`  // default ".pagecount.session"
	IdleTimeout time.Duration `yaml:"idle_timeout"` // default 5m
	MaxSessions int           `yaml:"max_sessions"` // memory store capacity
	RedisPrefix string        `yaml:"redis_prefix"`
	Secure      bool          `yaml:"secure"`
}

// Session reset modes.
const (
	ResetEager    = "eager"
	ResetDeferred = "deferred"
	ResetNone     = "none"
)

// TrackingConfig defines the visitor counter cookie.
type TrackingConfig struct {
	Enabled        bool          `yaml:"enabled"`
	CookieName     string        `yaml:"cookie_name"`     // default "UserActions"
	CookiePath     string        `yaml:"cookie_path"`     // default "/"
	CookieDomain   string        `yaml:"cookie_domain"`
	CookieMaxAge   time.Duration `yaml:"cookie_max_age"`  // default two years
	CookieSameSite string        `yaml:"cookie_same_site"` // lax (default), strict, none
	CookieSecure   bool          `yaml:"cookie_secure"`
	CookieHTTPOnly bool          `yaml:"cookie_http_only"`
	SizeLimit      int           `yaml:"size_limit"`    // warn above this many bytes (default 4096)
	SessionReset   string        `yaml:"session_reset"` // eager (default), deferred, none
	SessionFlag    string        `yaml:"session_flag"`  // session key, default "CurrentSessionTracked"
}

// RedisConfig defines Redis connection settings for the redis session store.
type RedisConfig struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	TLS         bool          `yaml:"tls"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// RouteConfig maps a path to a controller action.
type RouteConfig struct {
	Name       string   `yaml:"name"`
	Path       string   `yaml:"path"`
	Controller string   `yaml:"controller"`
	Action     string   `yaml:"action"`
	Methods    []string `yaml:"methods"`
}

// StaticConfig defines static file serving. Static files are never counted.
type StaticConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"` // default "/static/"
}

// DefaultConfig returns the configuration used when a file leaves values unset.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Admin: AdminConfig{
			Enabled: true,
			Address: ":8081",
		},
		Logging: LoggingConfig{
			Format:    `$remote_addr - [$time_iso8601] "$request_method $request_uri" $status $body_bytes_sent "$http_user_agent" $response_time $route`,
			Encoding:  "json",
			Level:     "info",
			Output:    "stdout",
			AccessLog: true,
		},
		Session: SessionConfig{
			Store:       "memory",
			CookieName:  ".pagecount.session",
			IdleTimeout: 5 * time.Minute,
			MaxSessions: 10000,
			RedisPrefix: "pagecount:session:",
		},
		Tracking: TrackingConfig{
			Enabled:        true,
			CookieName:     "UserActions",
			CookiePath:     "/",
			CookieMaxAge:   2 * 365 * 24 * time.Hour,
			CookieSameSite: "lax",
			SizeLimit:      4096,
			SessionReset:   ResetEager,
			SessionFlag:    "CurrentSessionTracked",
		},
		Redis: RedisConfig{
			Address:     "localhost:6379",
			DialTimeout: 5 * time.Second,
		},
		Routes: []RouteConfig{{
			Name:       "other",
			Path:       "/other",
			Controller: "Other",
			Action:     "Index",
		}},
		Static: StaticConfig{
			Prefix: "/static/",
		},
	}
}
