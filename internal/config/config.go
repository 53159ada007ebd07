package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Client captures the runtime configuration of the cinemaddict client.
type Client struct {
	CatalogURL         string
	CatalogAuth        string
	CatalogTimeoutSecs int
	DataPath           string
	ProbeIntervalSecs  int
	SyncMaxAttempts    int
	ForceOffline       bool
	Environment        string
	LogLevel           string
}

// Server captures the runtime configuration of the catalog service.
type Server struct {
	Port              string
	AuthToken         string
	DBURL             string
	ReadTimeoutSecs   int
	WriteTimeoutSecs  int
	IdleTimeoutSecs   int
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
	Environment       string
	LogLevel          string
}

// LoadClient reads client configuration from environment variables, applying defaults and validation.
func LoadClient() (Client, error) {
	cfg := Client{
		CatalogURL:         os.Getenv("CATALOG_URL"),
		CatalogAuth:        os.Getenv("CATALOG_AUTH"),
		CatalogTimeoutSecs: getEnvInt("CATALOG_TIMEOUT_SECS", 5),
		DataPath:           getEnv("DATA_PATH", "./data"),
		ProbeIntervalSecs:  getEnvInt("PROBE_INTERVAL_SECS", 30),
		SyncMaxAttempts:    getEnvInt("SYNC_MAX_ATTEMPTS", 3),
		ForceOffline:       getEnvBool("FORCE_OFFLINE", false),
		Environment:        getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	if cfg.CatalogURL == "" {
		return Client{}, fmt.Errorf("CATALOG_URL is required")
	}
	if cfg.CatalogAuth == "" {
		return Client{}, fmt.Errorf("CATALOG_AUTH is required")
	}
	if cfg.CatalogTimeoutSecs <= 0 {
		return Client{}, fmt.Errorf("CATALOG_TIMEOUT_SECS must be positive")
	}
	if cfg.ProbeIntervalSecs <= 0 {
		return Client{}, fmt.Errorf("PROBE_INTERVAL_SECS must be positive")
	}
	if cfg.SyncMaxAttempts <= 0 {
		return Client{}, fmt.Errorf("SYNC_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// LoadServer reads catalog service configuration from environment variables.
func LoadServer() (Server, error) {
	cfg := Server{
		Port:              getEnv("PORT", "8080"),
		AuthToken:         os.Getenv("AUTH_TOKEN"),
		DBURL:             os.Getenv("DB_URL"),
		ReadTimeoutSecs:   getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs:  getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:   getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 20),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 256),
		Environment:       getEnv("ENV", "production"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if cfg.AuthToken == "" {
		return Server{}, fmt.Errorf("AUTH_TOKEN is required")
	}
	if cfg.DBURL == "" {
		return Server{}, fmt.Errorf("DB_URL is required")
	}
	if cfg.DBMaxConns <= 0 {
		return Server{}, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if cfg.DBMinConns < 0 {
		return Server{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if cfg.DBMaxConns > 0 && cfg.DBMinConns > cfg.DBMaxConns {
		return Server{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if cfg.DBStatementCache < 0 {
		return Server{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
