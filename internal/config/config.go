package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the service settings, all supplied through the environment.
type Config struct {
	ServiceName string
	Version     string
	Port        int
	APIPrefix   string
	DB          DBConfig
	JWT         JWTConfig
	CORSOrigins []string
	LogLevel    string
	LogPretty   bool
}

// DBConfig selects the database driver and connection string.
type DBConfig struct {
	Driver string
	URL    string
}

// JWTConfig holds the token verification settings.
type JWTConfig struct {
	Secret    string
	Algorithm string
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:80",
	"http://frontend:3000",
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 3003)
	if err != nil {
		return nil, err
	}
	pretty, err := getEnvBool("LOG_PRETTY", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "expense-service"),
		Version:     getEnv("SERVICE_VERSION", "1.0.0"),
		Port:        port,
		APIPrefix:   "/" + strings.Trim(getEnv("API_PREFIX", "/api/v1"), "/"),
		DB: DBConfig{
			Driver: getEnv("DB_DRIVER", "postgres"),
			URL:    os.Getenv("DATABASE_URL"),
		},
		JWT: JWTConfig{
			Secret:    os.Getenv("JWT_SECRET"),
			Algorithm: getEnv("JWT_ALGORITHM", "HS256"),
		},
		CORSOrigins: getEnvList("CORS_ORIGINS", defaultCORSOrigins),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogPretty:   pretty,
	}

	if cfg.DB.URL == "" && cfg.DB.Driver == "postgres" {
		cfg.DB.URL = postgresURL()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver)
	}
	if c.DB.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM must be an HMAC algorithm, got %q", c.JWT.Algorithm)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func postgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "testuser"), getEnv("POSTGRES_PASSWORD", "testpass")),
		Host:     getEnv("DB_HOST", "postgres") + ":" + getEnv("DB_PORT", "5432"),
		Path:     "/" + getEnv("POSTGRES_DB", "testdb"),
		RawQuery: "sslmode=" + getEnv("DB_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvList(key string, defaultVal []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
