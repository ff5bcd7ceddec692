// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// ValidationProfile selects which entry-validation ceilings apply:
	// "current" or "legacy". Both profiles exist in deployed data; see the
	// validation package for the concrete bounds.
	ValidationProfile string

	// AllowZeroUnitPrice relaxes unit-price validation from strictly
	// positive to non-negative.
	AllowZeroUnitPrice bool

	// Currencies is the ISO-4217 allow-list for report currencies.
	Currencies []string

	RunMigrations bool

	// SeedDemoData creates a demo company, members and mission on startup.
	// Meant for local development only.
	SeedDemoData bool

	// Rate limiting for mutating endpoints. Off unless redis is configured.
	RateLimitEnabled    bool
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RateLimitWriteRate  float64
	RateLimitWriteBurst int
}

// Load reads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_SERVICE", "cra-backend")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DATABASE_TYPE", "postgres")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", "5432")
	v.SetDefault("DATABASE_NAME", "cra")
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE_MAX_OPEN_CONN", 20)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", 3600)
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", 600)

	v.SetDefault("CRA_VALIDATION_PROFILE", "current")
	v.SetDefault("CRA_ALLOW_ZERO_UNIT_PRICE", false)
	v.SetDefault("CRA_CURRENCIES", "EUR,USD,GBP,CHF")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("SEED_DEMO_DATA", false)

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_WRITE_RATE", 10.0)
	v.SetDefault("RATE_LIMIT_WRITE_BURST", 20)

	return Config{
		AppName:     v.GetString("APP_SERVICE"),
		AppVersion:  v.GetString("APP_VERSION"),
		Environment: v.GetString("ENVIRONMENT"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		DBType:            v.GetString("DATABASE_TYPE"),
		DBHost:            v.GetString("DATABASE_HOST"),
		DBPort:            v.GetString("DATABASE_PORT"),
		DBName:            v.GetString("DATABASE_NAME"),
		DBUser:            v.GetString("DATABASE_USER"),
		DBPassword:        v.GetString("DATABASE_PASSWORD"),
		DBSSLMode:         v.GetString("DATABASE_SSLMODE"),
		DBMaxIdleConn:     v.GetInt("DATABASE_MAX_IDLE_CONN"),
		DBMaxOpenConn:     v.GetInt("DATABASE_MAX_OPEN_CONN"),
		DBConnMaxLifetime: v.GetInt("DATABASE_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTime: v.GetInt("DATABASE_CONN_MAX_IDLE_TIME"),

		ValidationProfile:  normalizeProfile(v.GetString("CRA_VALIDATION_PROFILE")),
		AllowZeroUnitPrice: v.GetBool("CRA_ALLOW_ZERO_UNIT_PRICE"),
		Currencies:         splitList(v.GetString("CRA_CURRENCIES")),
		RunMigrations:      v.GetBool("RUN_MIGRATIONS"),
		SeedDemoData:       v.GetBool("SEED_DEMO_DATA"),

		RateLimitEnabled:    v.GetBool("RATE_LIMIT_ENABLED"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		RateLimitWriteRate:  v.GetFloat64("RATE_LIMIT_WRITE_RATE"),
		RateLimitWriteBurst: v.GetInt("RATE_LIMIT_WRITE_BURST"),
	}
}

const (
	ProfileCurrent = "current"
	ProfileLegacy  = "legacy"
)

func normalizeProfile(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProfileLegacy:
		return ProfileLegacy
	default:
		return ProfileCurrent
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
