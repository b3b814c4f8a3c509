package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	// EnvDevelopment relaxes cookie security so the site runs over plain HTTP.
	EnvDevelopment = "development"
	// EnvProduction requires real secrets and marks cookies Secure.
	EnvProduction = "production"
)

// Config aggregates every setting the server reads from the environment.
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	CSRF      CSRFConfig
	Store     StoreConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
}

// Load builds the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig(server.Env)
	if err != nil {
		return nil, err
	}

	csrfCfg, err := loadCSRFConfig(server.Env)
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Session:   session,
		CSRF:      csrfCfg,
		Store:     store,
		Admin:     loadAdminConfig(),
		RateLimit: rateLimit,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
	Env  string
	// TrustProxy controls whether X-Forwarded-For headers are honoured when
	// resolving client IPs. Only enable behind a proxy you control.
	TrustProxy bool
}

// IsDevelopment reports whether the server runs in development mode.
func (c ServerConfig) IsDevelopment() bool {
	return c.Env != EnvProduction
}

func loadServerConfig() (ServerConfig, error) {
	env := strings.ToLower(getEnvOrDefault("APP_ENV", EnvDevelopment))
	if env != EnvDevelopment && env != EnvProduction {
		return ServerConfig{}, fmt.Errorf("invalid APP_ENV value: %q", env)
	}

	trustProxy, err := parseBoolEnv("TRUST_PROXY", false)
	if err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" to pass through unchanged.
		return ServerConfig{Addr: port, Env: env, TrustProxy: trustProxy}, nil
	}

	return ServerConfig{Addr: ":" + port, Env: env, TrustProxy: trustProxy}, nil
}

// SessionConfig carries the cookie session store settings.
type SessionConfig struct {
	HashKey    []byte
	BlockKey   []byte
	CookieName string
	MaxAge     int
	Secure     bool
}

func loadSessionConfig(env string) (SessionConfig, error) {
	hashKey, err := loadSecretKey("SESSION_HASH_KEY", 64, env)
	if err != nil {
		return SessionConfig{}, err
	}

	blockKey, err := loadSecretKey("SESSION_BLOCK_KEY", 32, env)
	if err != nil {
		return SessionConfig{}, err
	}

	maxAge := 12 * 60 * 60
	if override, err := parseOptionalIntEnv("SESSION_MAX_AGE"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return SessionConfig{}, fmt.Errorf("SESSION_MAX_AGE must be positive, got %d", *override)
		}
		maxAge = *override
	}

	return SessionConfig{
		HashKey:    hashKey,
		BlockKey:   blockKey,
		CookieName: getEnvOrDefault("SESSION_COOKIE_NAME", "postbox_session"),
		MaxAge:     maxAge,
		Secure:     env == EnvProduction,
	}, nil
}

// CSRFConfig carries the anti-forgery middleware settings.
type CSRFConfig struct {
	Key    []byte
	Secure bool
}

func loadCSRFConfig(env string) (CSRFConfig, error) {
	key, err := loadSecretKey("CSRF_KEY", 32, env)
	if err != nil {
		return CSRFConfig{}, err
	}
	return CSRFConfig{Key: key, Secure: env == EnvProduction}, nil
}

// Store driver names accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// StoreConfig selects and configures the submission store.
type StoreConfig struct {
	Driver   string
	Postgres PostgresConfig
}

// PostgresConfig holds the connection settings for the postgres driver.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the key=value connection string gorm's postgres driver expects.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreMemory))
	if driver != StoreMemory && driver != StorePostgres {
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value: %q", driver)
	}

	cfg := StoreConfig{Driver: driver}
	if driver != StorePostgres {
		return cfg, nil
	}

	port := 5432
	if override, err := parseOptionalIntEnv("POSTGRES_PORT"); err != nil {
		return StoreConfig{}, err
	} else if override != nil {
		port = *override
	}

	cfg.Postgres = PostgresConfig{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     port,
		User:     getEnvOrDefault("POSTGRES_USER", "postbox"),
		Password: strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD")),
		DBName:   getEnvOrDefault("POSTGRES_DB", "postbox"),
		SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}
	return cfg, nil
}

// AdminConfig enables the admin inbox when both values are present.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// Enabled reports whether the admin area should be mounted.
func (c AdminConfig) Enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

func loadAdminConfig() AdminConfig {
	return AdminConfig{
		Username:     strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		PasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
	}
}

// RateLimitConfig enables the redis form limiter when an address is present.
type RateLimitConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PerMinute     int
}

// Enabled reports whether rate limiting should be wired into the router.
func (c RateLimitConfig) Enabled() bool {
	return c.RedisAddr != ""
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	db := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		db = *override
	}

	perMinute := 10
	if override, err := parseOptionalIntEnv("RATE_LIMIT_PER_MINUTE"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RateLimitConfig{}, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", *override)
		}
		perMinute = *override
	}

	return RateLimitConfig{
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		RedisDB:       db,
		PerMinute:     perMinute,
	}, nil
}

// loadSecretKey reads a hex-encoded key from the environment. Development
// generates a throwaway key when the variable is unset; production refuses
// to start without one.
func loadSecretKey(name string, generatedLen int, env string) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		if env == EnvProduction {
			return nil, fmt.Errorf("%s is required in production", name)
		}
		key := make([]byte, generatedLen)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate %s: %w", name, err)
		}
		log.Printf("warning: %s not set, generated a random key; sessions reset on restart", name)
		return key, nil
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value: %w", name, err)
	}
	switch len(key) {
	case 16, 24, 32, 64:
		return key, nil
	default:
		return nil, fmt.Errorf("invalid %s length %d: want 16, 24, 32 or 64 bytes", name, len(key))
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
