package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	HTTP            HTTPConfig            `yaml:"http"`
	CORS            CORSConfig            `yaml:"cors"`
	SecurityHeaders SecurityHeadersConfig `yaml:"security_headers"`
	Auth            AuthConfig            `yaml:"auth"`
	Connections     ConnectionsConfig     `yaml:"connections"`
	RateLimit       RateLimitConfig       `yaml:"rate_limit"`
	Antispam        AntispamConfig        `yaml:"antispam"`
	LabelFilter     LabelFilterConfig     `yaml:"label_filter"`
	Database        DatabaseConfig        `yaml:"database"`
	Feed            FeedConfig            `yaml:"feed"`

	// UnitsFile is an optional YAML file overriding the built-in unit stats.
	UnitsFile string `yaml:"units_file"`
}

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string `yaml:"addr"`

	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`

	// DefaultHistoryLimit is used when a history request carries no limit.
	DefaultHistoryLimit int `yaml:"default_history_limit"`

	// MaxHistoryLimit caps the limit a client may ask for.
	MaxHistoryLimit int `yaml:"max_history_limit"`

	// TrustedProxies are the CIDRs (or bare IPs) of reverse proxies whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty means the
	// client address is always the socket peer.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// ReadTimeout returns the read timeout as a duration.
func (c HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration.
func (c HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// CORSConfig holds cross-origin settings for the HTTP API.
type CORSConfig struct {
	// AllowedOrigins is a list of origins allowed to call the API.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// SecurityHeadersConfig toggles the hardening headers sent with every response.
type SecurityHeadersConfig struct {
	Enabled bool `yaml:"enabled"`
}

// AuthConfig holds API key settings. Keys are stored as bcrypt hashes only.
type AuthConfig struct {
	Enabled bool `yaml:"enabled"`

	// KeyHashes are bcrypt hashes of accepted API keys
	// (generate with `battlecalc hash-key`).
	KeyHashes []string `yaml:"key_hashes"`
}

// RateLimitConfig holds lockout settings for failed API key attempts.
type RateLimitConfig struct {
	// MaxAttempts is the maximum failed attempts before lockout.
	MaxAttempts int `yaml:"max_attempts"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds is the maximum lockout duration (for exponential backoff).
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// AntispamConfig holds per-client limits on battle submissions.
type AntispamConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxSubmissions is the number of battles a client may submit per window.
	MaxSubmissions    int `yaml:"max_submissions"`
	TimeWindowSeconds int `yaml:"time_window_seconds"`

	// RepeatCooldownSeconds is how long an identical battle is refused after
	// it was last submitted.
	RepeatCooldownSeconds int `yaml:"repeat_cooldown_seconds"`
}

// LabelFilterConfig holds the banned-word filter applied to scenario tags
// and hero names.
type LabelFilterConfig struct {
	Enabled bool `yaml:"enabled"`

	// Mode is REPLACE (mask banned words) or BLOCK (refuse the submission).
	Mode        string   `yaml:"mode"`
	BannedWords []string `yaml:"banned_words"`

	// WordsFile is an optional YAML list of further banned words.
	WordsFile string `yaml:"words_file"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent requests allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent requests to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// DatabaseConfig selects and configures the battle history store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// FeedConfig holds settings for the live battle feed.
type FeedConfig struct {
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum inbound WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns a ServerConfig with secure defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		HTTP: HTTPConfig{
			Addr:                ":8000",
			ReadTimeoutSeconds:  15,
			WriteTimeoutSeconds: 15,
			DefaultHistoryLimit: 10,
			MaxHistoryLimit:     100,
			TrustedProxies:      []string{},
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
		SecurityHeaders: SecurityHeadersConfig{Enabled: true},
		Auth: AuthConfig{
			Enabled:   false,
			KeyHashes: []string{},
		},
		Connections: ConnectionsConfig{
			MaxPerIP: 20,
			MaxTotal: 200,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:       5,   // Default: 5 attempts before lockout
			LockoutSeconds:    30,  // Default: 30 second initial lockout
			MaxLockoutSeconds: 300, // Default: 5 minute max lockout
		},
		Antispam: AntispamConfig{
			Enabled:               true,
			MaxSubmissions:        30,
			TimeWindowSeconds:     60,
			RepeatCooldownSeconds: 10,
		},
		LabelFilter: LabelFilterConfig{
			Enabled:     false,
			Mode:        "REPLACE",
			BannedWords: []string{},
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/battles.db",
			Postgres: PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				User:         "battleadvisor",
				Database:     "battleadvisor",
				SSLMode:      "disable",
				MaxOpenConns: 25,
				MaxIdleConns: 5,
			},
		},
		Feed: FeedConfig{
			Enabled:        true,
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
		},
	}
}

// LoadConfig loads server configuration from a YAML file and applies
// environment overrides. A missing file yields the defaults.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return config, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return DefaultConfig(), err
		}
	}

	config.applyEnv()
	return config, nil
}

// applyEnv overrides settings from the environment.
func (c *ServerConfig) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.HTTP.Addr = ":" + port
	}
	if driver := os.Getenv("BATTLE_DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if path := os.Getenv("BATTLE_DB_PATH"); path != "" {
		c.Database.SQLitePath = path
	}
	if host := os.Getenv("BATTLE_DB_HOST"); host != "" {
		c.Database.Postgres.Host = host
	}
	if port := os.Getenv("BATTLE_DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Database.Postgres.Port = n
		}
	}
	if user := os.Getenv("BATTLE_DB_USER"); user != "" {
		c.Database.Postgres.User = user
	}
	if password := os.Getenv("BATTLE_DB_PASSWORD"); password != "" {
		c.Database.Postgres.Password = password
	}
	if name := os.Getenv("BATTLE_DB_NAME"); name != "" {
		c.Database.Postgres.Database = name
	}
	if sslMode := os.Getenv("BATTLE_DB_SSLMODE"); sslMode != "" {
		c.Database.Postgres.SSLMode = sslMode
	}
	if origins := os.Getenv("BATTLE_CORS_ORIGINS"); origins != "" {
		c.CORS.AllowedOrigins = splitList(origins)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsOriginAllowed checks if a cross-origin API caller is allowed.
// An empty origin is a same-origin or non-browser request.
func (c *CORSConfig) IsOriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// IsOriginAllowed checks if the given origin may open the live feed.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *FeedConfig) IsOriginAllowed(origin, requestHost string) bool {
	// If no origins configured, enforce same-origin policy
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
