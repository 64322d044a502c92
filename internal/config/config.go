package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by the session and rate limit sections.
const (
	// BackendMemory keeps state in the process.
	BackendMemory = "memory"
	// BackendRedis keeps state in Redis.
	BackendRedis = "redis"
)

// defaultConfigPath is used when neither a flag nor CONFIG_PATH is set.
const defaultConfigPath = "config.yaml"

// AppConfig holds process-level options passed from the command line.
type AppConfig struct {
	ConfigPath string
}

// Config is the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Admin     AdminConfig     `yaml:"admin"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"`
	TrustedProxies []string `yaml:"trusted-proxies"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// JWTConfig configures session token signing.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`

	// Ephemeral is set when the secret was generated at load time.
	Ephemeral bool `yaml:"-"`
}

// SessionConfig configures the admin session cookie and store.
type SessionConfig struct {
	CookieName string        `yaml:"cookie-name"`
	Secure     bool          `yaml:"secure"`
	SameSite   string        `yaml:"same-site"`
	PendingTTL time.Duration `yaml:"pending-ttl"`
	Backend    string        `yaml:"backend"`
}

// RateLimitConfig configures request throttling.
type RateLimitConfig struct {
	LoginPerMinute int    `yaml:"login-per-minute"`
	PerHour        int    `yaml:"per-hour"`
	PerDay         int    `yaml:"per-day"`
	Backend        string `yaml:"backend"`
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key-prefix"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// CatalogConfig configures the featured window.
type CatalogConfig struct {
	FeatureDuration time.Duration `yaml:"feature-duration"`
	SweepInterval   time.Duration `yaml:"sweep-interval"`
}

// AdminConfig describes the admin account provisioned at startup.
type AdminConfig struct {
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	TOTPSecret string `yaml:"totp-secret"`
	Issuer     string `yaml:"issuer"`
}

// Default returns a configuration populated with defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Env:  "development",
		},
		Database: DatabaseConfig{
			DSN: "data/stockd.db",
		},
		JWT: JWTConfig{
			Expiry: 24 * time.Hour,
		},
		Session: SessionConfig{
			CookieName: "stockd_session",
			SameSite:   "lax",
			PendingTTL: 10 * time.Minute,
			Backend:    BackendMemory,
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: 5,
			PerHour:        500,
			PerDay:         2000,
			Backend:        BackendMemory,
		},
		Redis: RedisConfig{
			KeyPrefix: "stockd",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Catalog: CatalogConfig{
			FeatureDuration: 24 * time.Hour,
		},
		Admin: AdminConfig{
			Issuer: "Veritas Stock",
		},
	}
}

// ResolveConfigPath returns the config path from the flag value, CONFIG_PATH, or the default.
func ResolveConfigPath(path string) string {
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv("CONFIG_PATH")); env != "" {
		return env
	}
	return defaultConfigPath
}

// Load reads the YAML file at path, applies environment overrides and validates the result.
// A missing file is not an error; defaults and environment values are used instead.
func Load(path string) (Config, error) {
	cfg := Default()

	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	if errEnv := applyEnv(&cfg); errEnv != nil {
		return Config{}, errEnv
	}
	cfg.normalize()
	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	if errSecret := cfg.JWT.ensureSecret(); errSecret != nil {
		return Config{}, errSecret
	}
	return cfg, nil
}

// LoadDatabaseDSN loads the config at path and returns the database DSN.
func LoadDatabaseDSN(path string) (string, error) {
	cfg, err := Load(path)
	if err != nil {
		return "", err
	}
	return cfg.Database.DSN, nil
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Server.Env), "production")
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SameSiteMode maps the configured same-site value to an http.SameSite.
func (c SessionConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.SameSite)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// Validate checks value ranges and cross-section requirements.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn is required")
	}
	if c.JWT.Expiry <= 0 {
		return errors.New("config: jwt expiry must be positive")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("config: session cookie name is required")
	}
	switch c.Session.SameSite {
	case "lax", "strict":
	case "none":
		if !c.Session.Secure {
			return errors.New("config: same-site none requires secure cookies")
		}
	default:
		return fmt.Errorf("config: invalid session same-site %q", c.Session.SameSite)
	}
	if c.Session.PendingTTL <= 0 {
		return errors.New("config: session pending ttl must be positive")
	}
	if c.RateLimit.LoginPerMinute <= 0 || c.RateLimit.PerHour <= 0 || c.RateLimit.PerDay <= 0 {
		return errors.New("config: rate limits must be positive")
	}
	for name, backend := range map[string]string{"session": c.Session.Backend, "rate-limit": c.RateLimit.Backend} {
		switch backend {
		case BackendMemory:
		case BackendRedis:
			if strings.TrimSpace(c.Redis.Addr) == "" {
				return fmt.Errorf("config: %s backend redis requires redis addr", name)
			}
		default:
			return fmt.Errorf("config: invalid %s backend %q", name, backend)
		}
	}
	if c.Catalog.FeatureDuration <= 0 {
		return errors.New("config: catalog feature duration must be positive")
	}
	if c.Catalog.SweepInterval < 0 {
		return errors.New("config: catalog sweep interval must not be negative")
	}
	return nil
}

// UsesRedis reports whether any component is configured with the Redis backend.
func (c Config) UsesRedis() bool {
	return c.Session.Backend == BackendRedis || c.RateLimit.Backend == BackendRedis
}

// normalize lowercases enum-like values and forces secure cookies in production.
func (c *Config) normalize() {
	c.Server.Env = strings.ToLower(strings.TrimSpace(c.Server.Env))
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	c.Session.SameSite = strings.ToLower(strings.TrimSpace(c.Session.SameSite))
	c.Session.Backend = strings.ToLower(strings.TrimSpace(c.Session.Backend))
	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Admin.Username = strings.TrimSpace(c.Admin.Username)
	c.Admin.TOTPSecret = strings.ToUpper(strings.TrimSpace(c.Admin.TOTPSecret))
	if c.IsProduction() {
		c.Session.Secure = true
	}
}

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config) error {
	stringVars := map[string]*string{
		"DATABASE_URL":      &cfg.Database.DSN,
		"SECRET_KEY":        &cfg.JWT.Secret,
		"APP_ENV":           &cfg.Server.Env,
		"ADMIN_USERNAME":    &cfg.Admin.Username,
		"ADMIN_PASSWORD":    &cfg.Admin.Password,
		"ADMIN_TOTP_SECRET": &cfg.Admin.TOTPSecret,
		"REDIS_ADDR":        &cfg.Redis.Addr,
		"REDIS_PASSWORD":    &cfg.Redis.Password,
		"LOG_LEVEL":         &cfg.Logging.Level,
	}
	for key, target := range stringVars {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*target = value
		}
	}

	if value, ok := os.LookupEnv("APP_PORT"); ok && strings.TrimSpace(value) != "" {
		port, errParse := strconv.Atoi(strings.TrimSpace(value))
		if errParse != nil {
			return fmt.Errorf("config: invalid APP_PORT %q: %w", value, errParse)
		}
		cfg.Server.Port = port
	}
	return nil
}

// ensureSecret generates a random signing secret when none is configured.
func (c *JWTConfig) ensureSecret() error {
	if strings.TrimSpace(c.Secret) != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, errRead := io.ReadFull(rand.Reader, buf); errRead != nil {
		return fmt.Errorf("config: generate secret: %w", errRead)
	}
	c.Secret = hex.EncodeToString(buf)
	c.Ephemeral = true
	return nil
}
