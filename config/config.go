// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// JWT signing secret (required in production).
	JWTSecret string
	TokenTTL  time.Duration

	// Server
	Debug       bool
	Port        string
	TLSDomains  []string
	CORSOrigins []string

	// Odds provider feed. One feed maps to exactly one sport.
	OddsAPIKey      string
	OddsAPIURL      string
	OddsSportKey    string
	OddsSportName   string
	OddsRegions     string
	ProviderTimeout time.Duration

	// Optional Redis for ingestion run notifications; empty disables publishing.
	RedisURL string

	// MySQL – used only by cmd/migrate.
	MySQLDSN string
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	cfg := fromViper(newViper())
	if err := cfg.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_USER", "nflodds")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "nflodds")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("PORT", ":8000")
	v.SetDefault("TLS_DOMAINS", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("DEBUG", false)
	v.SetDefault("ODDS_API_URL", "https://api.the-odds-api.com/v4")
	v.SetDefault("ODDS_SPORT_KEY", "americanfootball_nfl")
	v.SetDefault("ODDS_SPORT_NAME", "American Football")
	v.SetDefault("ODDS_REGIONS", "us")
	v.SetDefault("ODDS_TIMEOUT", "20s")
}

func fromViper(v *viper.Viper) *Config {
	setDefaults(v)

	return &Config{
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DBUser:          v.GetString("DB_USER"),
		DBPass:          v.GetString("DB_PASS"),
		DBHost:          v.GetString("DB_HOST"),
		DBPort:          v.GetString("DB_PORT"),
		DBName:          v.GetString("DB_NAME"),
		DBSSLMode:       v.GetString("DB_SSLMODE"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		TokenTTL:        v.GetDuration("TOKEN_TTL"),
		Debug:           v.GetBool("DEBUG"),
		Port:            v.GetString("PORT"),
		TLSDomains:      splitTrimmed(v.GetString("TLS_DOMAINS")),
		CORSOrigins:     splitTrimmed(v.GetString("CORS_ORIGINS")),
		OddsAPIKey:      v.GetString("ODDS_API_KEY"),
		OddsAPIURL:      strings.TrimRight(v.GetString("ODDS_API_URL"), "/"),
		OddsSportKey:    v.GetString("ODDS_SPORT_KEY"),
		OddsSportName:   v.GetString("ODDS_SPORT_NAME"),
		OddsRegions:     v.GetString("ODDS_REGIONS"),
		ProviderTimeout: v.GetDuration("ODDS_TIMEOUT"),
		RedisURL:        v.GetString("REDIS_URL"),
		MySQLDSN:        v.GetString("MYSQL_DSN"),
	}
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return errors.New("DATABASE_URL or DB_PASS must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.OddsSportKey == "" || c.OddsSportName == "" {
		return errors.New("ODDS_SPORT_KEY and ODDS_SPORT_NAME must be set")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("ODDS_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if !c.Debug && len(c.TLSDomains) == 0 {
		return errors.New("TLS_DOMAINS must be set when DEBUG is false")
	}
	return nil
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
