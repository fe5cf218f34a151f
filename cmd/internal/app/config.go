package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all runtime configuration.
//
// Precedence: built-in defaults, then the optional YAML file, then BEER_*
// environment variables.
type Config struct {
	HTTPAddr  string `yaml:"http_addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes"`

	// Backends. DatabaseURL wins over SQLitePath; neither means in-memory.
	DatabaseURL string `yaml:"database_url"`
	DBSchema    string `yaml:"db_schema"`
	DBMaxConns  int32  `yaml:"db_max_conns"`
	DBMinConns  int32  `yaml:"db_min_conns"`
	AutoMigrate bool   `yaml:"auto_migrate"`
	SQLitePath  string `yaml:"sqlite_path"`
	RedisURL    string `yaml:"redis_url"`

	// DevEvents seeds the in-memory event directory. "*" accepts any id.
	DevEvents []string `yaml:"dev_events"`

	// If true, /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool `yaml:"readiness_require_db"`

	// If true, BEER_TOKEN_HMAC_KEY must be set (>= 32 bytes) and session ids are HMACs.
	RequireTokenHMAC bool `yaml:"require_token_hmac"`

	CORSAllowedOrigins   []string `yaml:"cors_allowed_origins"`
	CORSAllowCredentials bool     `yaml:"cors_allow_credentials"`
	CORSMaxAgeSeconds    int      `yaml:"cors_max_age_seconds"`

	TrustProxy     bool   `yaml:"trust_proxy"`
	CookieDomain   string `yaml:"cookie_domain"`
	CookieSecure   bool   `yaml:"cookie_secure"`
	CookieSameSite string `yaml:"cookie_same_site"`

	// APIKey is the shared secret POST /event/{eventId} must present.
	APIKey            string        `yaml:"api_key"`
	WSAllowedOrigins  []string      `yaml:"ws_allowed_origins"`
	WSOriginRequired  bool          `yaml:"ws_origin_required"`
	WSDevInsecure     bool          `yaml:"ws_dev_insecure"`
	WSSendTimeout     time.Duration `yaml:"ws_send_timeout"`
	WSFanoutLimit     int           `yaml:"ws_fanout_limit"`
	WSEvictInterval   time.Duration `yaml:"ws_room_evict_interval"`
	WSRequireSession  bool          `yaml:"ws_require_session"`
	WSHeartbeat       time.Duration `yaml:"ws_heartbeat_interval"`
	WSHeartbeatWithin time.Duration `yaml:"ws_heartbeat_timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:  "0.0.0.0:8080",
		LogLevel:  "info",
		LogFormat: "json",

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,

		DBSchema:   "beer",
		DBMaxConns: 10,

		CORSAllowedOrigins:   []string{"https://beer.omfj.no", "http://localhost:5173"},
		CORSAllowCredentials: true,
		CORSMaxAgeSeconds:    600,

		CookieSecure:   true,
		CookieSameSite: "lax",

		WSAllowedOrigins:  []string{"https://beer.omfj.no", "http://localhost:5173"},
		WSSendTimeout:     5 * time.Second,
		WSFanoutLimit:     64,
		WSEvictInterval:   5 * time.Minute,
		WSHeartbeat:       25 * time.Second,
		WSHeartbeatWithin: 5 * time.Second,
	}
}

// LoadConfig builds Config from defaults, the YAML file at path (optional,
// "" skips it) and the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.HTTPAddr = EnvString("BEER_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = EnvString("BEER_LOG_LEVEL", c.LogLevel)
	c.LogFormat = EnvString("BEER_LOG_FORMAT", c.LogFormat)

	c.ReadHeaderTimeout = EnvDuration("BEER_HTTP_READ_HEADER_TIMEOUT", c.ReadHeaderTimeout)
	c.ReadTimeout = EnvDuration("BEER_HTTP_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = EnvDuration("BEER_HTTP_WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = EnvDuration("BEER_HTTP_IDLE_TIMEOUT", c.IdleTimeout)
	c.MaxHeaderBytes = EnvInt("BEER_HTTP_MAX_HEADER_BYTES", c.MaxHeaderBytes)

	c.DatabaseURL = EnvString("BEER_DATABASE_URL", c.DatabaseURL)
	c.DBSchema = EnvString("BEER_DB_SCHEMA", c.DBSchema)
	c.DBMaxConns = EnvInt32("BEER_DB_MAX_CONNS", c.DBMaxConns)
	c.DBMinConns = EnvInt32("BEER_DB_MIN_CONNS", c.DBMinConns)
	c.AutoMigrate = EnvBool("BEER_DB_AUTO_MIGRATE", c.AutoMigrate)
	c.SQLitePath = EnvString("BEER_SQLITE_PATH", c.SQLitePath)
	c.RedisURL = EnvString("BEER_REDIS_URL", c.RedisURL)
	c.DevEvents = EnvList("BEER_DEV_EVENTS", c.DevEvents)

	c.ReadinessRequireDB = EnvBool("BEER_READINESS_REQUIRE_DB", c.ReadinessRequireDB)
	c.RequireTokenHMAC = EnvBool("BEER_REQUIRE_TOKEN_HMAC", c.RequireTokenHMAC)

	c.CORSAllowedOrigins = EnvList("BEER_CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	c.CORSAllowCredentials = EnvBool("BEER_CORS_ALLOW_CREDENTIALS", c.CORSAllowCredentials)
	c.CORSMaxAgeSeconds = EnvInt("BEER_CORS_MAX_AGE_SECONDS", c.CORSMaxAgeSeconds)

	c.TrustProxy = EnvBool("BEER_TRUST_PROXY", c.TrustProxy)
	c.CookieDomain = EnvString("BEER_COOKIE_DOMAIN", c.CookieDomain)
	c.CookieSecure = EnvBool("BEER_COOKIE_SECURE", c.CookieSecure)
	c.CookieSameSite = EnvString("BEER_COOKIE_SAMESITE", c.CookieSameSite)

	c.APIKey = EnvString("BEER_API_KEY", c.APIKey)
	c.WSAllowedOrigins = EnvList("BEER_WS_ALLOWED_ORIGINS", c.WSAllowedOrigins)
	c.WSOriginRequired = EnvBool("BEER_WS_ORIGIN_REQUIRED", c.WSOriginRequired)
	c.WSDevInsecure = EnvBool("BEER_WS_DEV_INSECURE", c.WSDevInsecure)
	c.WSSendTimeout = EnvDuration("BEER_WS_SEND_TIMEOUT", c.WSSendTimeout)
	c.WSFanoutLimit = EnvInt("BEER_WS_FANOUT_LIMIT", c.WSFanoutLimit)
	c.WSEvictInterval = EnvDurationOrZero("BEER_WS_ROOM_EVICT_INTERVAL", c.WSEvictInterval)
	c.WSRequireSession = EnvBool("BEER_WS_REQUIRE_SESSION", c.WSRequireSession)
	c.WSHeartbeat = EnvDuration("BEER_WS_HEARTBEAT_INTERVAL", c.WSHeartbeat)
	c.WSHeartbeatWithin = EnvDuration("BEER_WS_HEARTBEAT_TIMEOUT", c.WSHeartbeatWithin)
}
