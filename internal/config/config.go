// Package config provides configuration management for the cigarro stock server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultProbePort       = 9090
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultCORSOrigins     = "*"
	DefaultStoreDriver     = "memory"
	DefaultSQLiteDSN       = "file:cigarros.db"
	DefaultMongoDatabase   = "cigarrostock"
	DefaultMongoCollection = "cigarros"
	DefaultEnvFile         = ".env"
	DefaultAuthMode        = "none"
	DefaultTLSClientAuth   = "none"
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvProbePort       = "APP_PROBE_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvLogFile         = "APP_LOG_FILE"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvCORSOrigins     = "APP_CORS_ALLOWED_ORIGINS"
	EnvStoreDriver     = "APP_STORE_DRIVER"
	EnvSQLiteDSN       = "APP_SQLITE_DSN"
	EnvMongoURI        = "APP_MONGO_URI"
	EnvMongoDatabase   = "APP_MONGO_DATABASE"
	EnvMongoCollection = "APP_MONGO_COLLECTION"
	EnvSeedFile        = "APP_SEED_FILE"
	EnvEnvFile         = "APP_ENV_FILE"
	EnvAuthMode        = "APP_AUTH_MODE"
	EnvTLSEnabled      = "APP_TLS_ENABLED"
	EnvTLSCertPath     = "APP_TLS_CERT_PATH"
	EnvTLSKeyPath      = "APP_TLS_KEY_PATH"
	EnvTLSCAPath       = "APP_TLS_CA_PATH"
	EnvTLSClientAuth   = "APP_TLS_CLIENT_AUTH"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys         = "APP_API_KEYS"   //nolint:gosec // env var name, not a credential
	EnvJWTSecret       = "APP_JWT_SECRET" //nolint:gosec // env var name, not a credential
	EnvJWTIssuer       = "APP_JWT_ISSUER"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort         int
	ProbePort          int // 0 disables the probe server.
	LogLevel           string
	LogFile            string
	ShutdownTimeout    time.Duration
	MetricsEnabled     bool
	CORSAllowedOrigins []string

	// Storage settings.
	StoreDriver     string
	SQLiteDSN       string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	SeedFile        string

	// Authentication mode: none, mtls, basic, apikey, jwt, multi.
	AuthMode string

	// TLS settings.
	TLSEnabled    bool
	TLSCertPath   string
	TLSKeyPath    string
	TLSCAPath     string
	TLSClientAuth string

	// Basic auth users, "user1:bcrypt_hash,user2:bcrypt_hash".
	BasicAuthUsers string

	// API keys, "key1:name1,key2:name2".
	APIKeys string

	// HMAC bearer token settings.
	JWTSecret string
	JWTIssuer string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidProbePort       = errors.New("probe port must be between 0 and 65535")
	ErrProbePortConflict      = errors.New("probe port must differ from server port when probe port is not 0")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidCORSOrigins     = errors.New("at least one CORS origin must be configured")
	ErrInvalidStoreDriver     = errors.New("store driver must be one of: memory, sqlite, mongo")
	ErrSQLiteDSNRequired      = errors.New("SQLite DSN must be set when store driver is sqlite")
	ErrMongoURIRequired       = errors.New("mongo URI must be set when store driver is mongo")
	ErrMongoNamesRequired     = errors.New("mongo database and collection must not be empty")
	ErrInvalidAuthMode        = errors.New("auth mode must be one of: none, mtls, basic, apikey, jwt, multi")
	ErrInvalidTLSClientAuth   = errors.New("TLS client auth must be one of: none, request, require")
	ErrInvalidTLSCertRequired = errors.New("TLS cert path and key path must be set when TLS is enabled")
	ErrInvalidTLSCARequired   = errors.New("TLS CA path must be set when TLS client auth is require")
	ErrInvalidMTLSConfig      = errors.New("mtls auth mode requires TLS enabled with client auth require")
	ErrInvalidBasicAuthConfig = errors.New("basic auth users must be set when auth mode is basic")
	ErrInvalidAPIKeyConfig    = errors.New("API keys must be set when auth mode is apikey")
	ErrInvalidJWTConfig       = errors.New("JWT secret must be set when auth mode is jwt")
	ErrInvalidMultiAuthConfig = errors.New("at least one auth config must be provided when auth mode is multi")
)

var (
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validDrivers     = map[string]bool{"memory": true, "sqlite": true, "mongo": true}
	validAuthModes   = map[string]bool{"none": true, "mtls": true, "basic": true, "apikey": true, "jwt": true, "multi": true}
	validClientAuths = map[string]bool{"none": true, "request": true, "require": true}
)

// Load reads configuration from the environment with defaults. Variables
// from the .env file named by APP_ENV_FILE are applied first and never
// override the real environment.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := Defaults()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a configuration populated with default values.
func Defaults() *Config {
	return &Config{
		ServerPort:         DefaultServerPort,
		ProbePort:          DefaultProbePort,
		LogLevel:           DefaultLogLevel,
		ShutdownTimeout:    DefaultShutdownTimeout,
		MetricsEnabled:     DefaultMetricsEnabled,
		CORSAllowedOrigins: splitList(DefaultCORSOrigins),
		StoreDriver:        DefaultStoreDriver,
		SQLiteDSN:          DefaultSQLiteDSN,
		MongoDatabase:      DefaultMongoDatabase,
		MongoCollection:    DefaultMongoCollection,
		AuthMode:           DefaultAuthMode,
		TLSClientAuth:      DefaultTLSClientAuth,
	}
}

func loadEnvFile() error {
	path := os.Getenv(EnvEnvFile)
	if path == "" {
		path = DefaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadStoreEnv()

	return c.loadAuthEnv()
}

func (c *Config) loadServerEnv() error {
	if err := envInt(EnvServerPort, &c.ServerPort); err != nil {
		return err
	}
	if err := envInt(EnvProbePort, &c.ProbePort); err != nil {
		return err
	}

	envString(EnvLogLevel, &c.LogLevel)
	envString(EnvLogFile, &c.LogFile)

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if err := envBool(EnvMetricsEnabled, &c.MetricsEnabled); err != nil {
		return err
	}

	if val := os.Getenv(EnvCORSOrigins); val != "" {
		c.CORSAllowedOrigins = splitList(val)
	}

	return nil
}

func (c *Config) loadStoreEnv() {
	envString(EnvStoreDriver, &c.StoreDriver)
	envString(EnvSQLiteDSN, &c.SQLiteDSN)
	envString(EnvMongoURI, &c.MongoURI)
	envString(EnvMongoDatabase, &c.MongoDatabase)
	envString(EnvMongoCollection, &c.MongoCollection)
	envString(EnvSeedFile, &c.SeedFile)
}

func (c *Config) loadAuthEnv() error {
	envString(EnvAuthMode, &c.AuthMode)

	if err := envBool(EnvTLSEnabled, &c.TLSEnabled); err != nil {
		return err
	}
	envString(EnvTLSCertPath, &c.TLSCertPath)
	envString(EnvTLSKeyPath, &c.TLSKeyPath)
	envString(EnvTLSCAPath, &c.TLSCAPath)
	envString(EnvTLSClientAuth, &c.TLSClientAuth)

	envString(EnvBasicAuthUsers, &c.BasicAuthUsers)
	envString(EnvAPIKeys, &c.APIKeys)
	envString(EnvJWTSecret, &c.JWTSecret)
	envString(EnvJWTIssuer, &c.JWTIssuer)

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	return c.validateAuth()
}

func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}
	if c.ProbePort < 0 || c.ProbePort > 65535 {
		return ErrInvalidProbePort
	}
	if c.ProbePort != 0 && c.ProbePort == c.ServerPort {
		return ErrProbePortConflict
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return ErrInvalidCORSOrigins
	}
	return nil
}

func (c *Config) validateStore() error {
	if !validDrivers[c.StoreDriver] {
		return ErrInvalidStoreDriver
	}

	switch c.StoreDriver {
	case "sqlite":
		if c.SQLiteDSN == "" {
			return ErrSQLiteDSNRequired
		}
	case "mongo":
		if c.MongoURI == "" {
			return ErrMongoURIRequired
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			return ErrMongoNamesRequired
		}
	}
	return nil
}

func (c *Config) validateAuth() error {
	mode := c.AuthModeOrDefault()
	if !validAuthModes[mode] {
		return ErrInvalidAuthMode
	}

	if err := c.validateTLS(); err != nil {
		return err
	}

	switch mode {
	case "mtls":
		if !c.ClientCertRequired() {
			return ErrInvalidMTLSConfig
		}
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "jwt":
		if c.JWTSecret == "" {
			return ErrInvalidJWTConfig
		}
	case "multi":
		if !c.hasAnyAuthConfig() {
			return ErrInvalidMultiAuthConfig
		}
	}
	return nil
}

func (c *Config) validateTLS() error {
	clientAuth := c.TLSClientAuthOrDefault()
	if !validClientAuths[clientAuth] {
		return ErrInvalidTLSClientAuth
	}
	if c.TLSEnabled && (c.TLSCertPath == "" || c.TLSKeyPath == "") {
		return ErrInvalidTLSCertRequired
	}
	if clientAuth == "require" && c.TLSCAPath == "" {
		return ErrInvalidTLSCARequired
	}
	return nil
}

func (c *Config) hasAnyAuthConfig() bool {
	return c.BasicAuthUsers != "" ||
		c.APIKeys != "" ||
		c.JWTSecret != "" ||
		c.ClientCertRequired()
}

// AuthModeOrDefault returns the auth mode, defaulting to "none".
func (c *Config) AuthModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// TLSClientAuthOrDefault returns the TLS client auth, defaulting to "none".
func (c *Config) TLSClientAuthOrDefault() string {
	if c.TLSClientAuth == "" {
		return DefaultTLSClientAuth
	}
	return c.TLSClientAuth
}

// ClientCertRequired reports whether TLS clients must present a certificate.
func (c *Config) ClientCertRequired() bool {
	return c.TLSEnabled && c.TLSClientAuthOrDefault() == "require"
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// ProbeAddress returns the probe server address in host:port format.
func (c *Config) ProbeAddress() string {
	return fmt.Sprintf(":%d", c.ProbePort)
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = n
	return nil
}

func envBool(name string, dst *bool) error {
	val := os.Getenv(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = b
	return nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
