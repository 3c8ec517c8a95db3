package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported values for DATABASE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DatabaseConfig describes which store to open and how to reach it.
type DatabaseConfig struct {
	Driver  string
	DSN     string
	Name    string // MongoDB database name
	Timeout time.Duration
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppPort          string
	Database         DatabaseConfig
	JWTSecret        string
	TokenTTL         time.Duration
	BcryptCost       int
	RabbitMQURL      string
	CORSAllowOrigins string
	LogLevel         string
}

// Shortest accepted durations. A bare number is read as nanoseconds, so "3600"
// instead of "1h" lands far below these and is refused.
const (
	minTokenTTL  = time.Second
	minDBTimeout = 10 * time.Millisecond
)

// Load reads configuration from environment variables and, when present, a dotenv file
// named by ENV_FILE (default ".env"). Environment variables win over the file.
// TOKEN_TTL and DB_TIMEOUT take Go durations with a unit, e.g. "1h" or "5s".
func Load() (Config, error) {
	v := viper.New()
	v.SetDefault("APP_PORT", ":3000")
	v.SetDefault("DATABASE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_DATABASE", "co2monitor")
	v.SetDefault("TOKEN_TTL", time.Hour)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("DB_TIMEOUT", 5*time.Second)
	v.SetDefault("CORS_ALLOW_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()
	// MONGO_URI is accepted as a second name for the DSN.
	if err := v.BindEnv("DATABASE_DSN", "DATABASE_DSN", "MONGO_URI"); err != nil {
		return Config{}, fmt.Errorf("bind DATABASE_DSN: %w", err)
	}

	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}

	cfg := Config{
		AppPort: v.GetString("APP_PORT"),
		Database: DatabaseConfig{
			Driver:  strings.ToLower(strings.TrimSpace(v.GetString("DATABASE_DRIVER"))),
			DSN:     v.GetString("DATABASE_DSN"),
			Name:    v.GetString("MONGO_DATABASE"),
			Timeout: v.GetDuration("DB_TIMEOUT"),
		},
		JWTSecret:        v.GetString("JWT_SECRET"),
		TokenTTL:         v.GetDuration("TOKEN_TTL"),
		BcryptCost:       v.GetInt("BCRYPT_COST"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		CORSAllowOrigins: v.GetString("CORS_ALLOW_ORIGINS"),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first missing or out-of-range setting.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverPostgres, DriverSQLite:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN (or MONGO_URI) is required for driver %q", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Database.Driver == DriverMongo && c.Database.Name == "" {
		return fmt.Errorf("MONGO_DATABASE must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTL < minTokenTTL {
		return fmt.Errorf("TOKEN_TTL must be at least %s (use a unit, e.g. 1h), got %s", minTokenTTL, c.TokenTTL)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.Database.Timeout < minDBTimeout {
		return fmt.Errorf("DB_TIMEOUT must be at least %s (use a unit, e.g. 5s), got %s", minDBTimeout, c.Database.Timeout)
	}
	return nil
}
