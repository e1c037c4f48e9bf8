package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds server configuration.
type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	StoreDriver    string
	RedisAddr      string
	JWTSecret      string
	OTLPEndpoint   string
	DeploymentFile string
	ArchiveURL     string
	CORSOrigins    []string
	RateLimitRPM   int
}

// Load loads configuration from environment variables.
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	driver := strings.ToLower(os.Getenv("STORE_DRIVER"))
	if driver == "" {
		driver = DriverSQLite
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		switch driver {
		case DriverPostgres:
			dbURL = "postgres://mintgov@localhost:5432/mintgov?sslmode=disable"
		default:
			dbURL = "file:mintgov.db"
		}
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	deployment := os.Getenv("DEPLOYMENT_FILE")
	if deployment == "" {
		deployment = "deployment.yaml"
	}

	rpm := 120
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_RPM")); err == nil && v > 0 {
		rpm = v
	}

	var origins []string
	for _, o := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		Port:           port,
		LogLevel:       logLevel,
		LogFormat:      logFormat,
		DatabaseURL:    dbURL,
		StoreDriver:    driver,
		RedisAddr:      redisAddr,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		OTLPEndpoint:   os.Getenv("OTLP_ENDPOINT"),
		DeploymentFile: deployment,
		ArchiveURL:     os.Getenv("ARCHIVE_URL"),
		CORSOrigins:    origins,
		RateLimitRPM:   rpm,
	}
}

// Validate checks the settings serve cannot start without.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverSQLite, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 bytes")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
