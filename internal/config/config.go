// internal/config/config.go
//
// Server configuration loaded from the environment.
// A .env file in the working directory is read first (development); real
// environment variables take precedence over it.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Leaderboard storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Port           string        `env:"PORT" envDefault:"5175"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	ClientOrigins  []string      `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173" envSeparator:","`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`

	LeaderboardBackend string `env:"LEADERBOARD_BACKEND" envDefault:"sqlite"`
	DBPath             string `env:"DB_PATH" envDefault:"./data/app.db"`
	RedisAddr          string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword      string `env:"REDIS_PASSWORD"`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret  string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"336h"`
	CookieName string        `env:"COOKIE_NAME" envDefault:"bullscows_token"`

	DailySalt string `env:"DAILY_SALT" envDefault:"local_dev_salt"`

	// Per-client guess throttling.
	GuessRate  float64 `env:"GUESS_RATE" envDefault:"5"` // tokens per second
	GuessBurst int     `env:"GUESS_BURST" envDefault:"10"`

	// Background cleanup of abandoned matches and idle rate-limit buckets.
	MatchIdleTTL  time.Duration `env:"MATCH_IDLE_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

// Production reports whether cookies must be Secure/SameSite=None.
func (c *Config) Production() bool { return c.AppEnv == "production" }

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse parses the environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.LeaderboardBackend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("LEADERBOARD_BACKEND: unknown backend %q", cfg.LeaderboardBackend)
	}
	if cfg.GuessRate <= 0 || cfg.GuessBurst <= 0 {
		return nil, fmt.Errorf("GUESS_RATE and GUESS_BURST must be positive")
	}
	if cfg.MatchIdleTTL <= 0 || cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("MATCH_IDLE_TTL and SWEEP_INTERVAL must be positive")
	}
	return &cfg, nil
}
