package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Env           string
	Addr          string
	DBPath        string
	StudioName    string
	AdminUsername string
	AdminPassword string
	CSRFKey       string

	ResendKey  string
	ResendFrom string
	ReplyTo    string

	GeminiAPIKey string
	GeminiModel  string

	RedisAddr string

	Location       *time.Location
	SlowRequest    time.Duration
	SlowQuery      time.Duration
	OutboxInterval time.Duration
	DraftTimeout   time.Duration
}

// Load reads envFile (if present) into the environment without overriding
// variables already set, then builds the Config from STUDIO_* variables.
// PRE: none
// POST: Returns a Config with defaults filled, or an error naming the bad variable
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			log.Printf("Loaded environment from %s", envFile)
		}
	}

	c := Config{
		Env:           envOrDefault("STUDIO_ENV", EnvDevelopment),
		Addr:          envOrDefault("STUDIO_ADDR", ":8080"),
		DBPath:        envOrDefault("STUDIO_DB_PATH", "studio.db"),
		StudioName:    envOrDefault("STUDIO_NAME", "Lotus Studio"),
		AdminUsername: envOrDefault("STUDIO_ADMIN_USERNAME", "admin"),
		AdminPassword: envOrDefault("STUDIO_ADMIN_PASSWORD", "change-me-now"),
		CSRFKey:       os.Getenv("STUDIO_CSRF_KEY"),
		ResendKey:     os.Getenv("STUDIO_RESEND_KEY"),
		ResendFrom:    envOrDefault("STUDIO_RESEND_FROM", "Lotus Studio <classes@lotus.example>"),
		ReplyTo:       envOrDefault("STUDIO_REPLY_TO", "frontdesk@lotus.example"),
		GeminiAPIKey:  os.Getenv("STUDIO_GEMINI_API_KEY"),
		GeminiModel:   envOrDefault("STUDIO_GEMINI_MODEL", "gemini-1.5-flash"),
		RedisAddr:     os.Getenv("STUDIO_REDIS_ADDR"),
		Location:      time.Local,
	}

	if tz := os.Getenv("STUDIO_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("STUDIO_TIMEZONE: %w", err)
		}
		c.Location = loc
	}

	var err error
	if c.SlowRequest, err = millis("STUDIO_SLOW_REQUEST_MS", 500); err != nil {
		return Config{}, err
	}
	if c.SlowQuery, err = millis("STUDIO_SLOW_QUERY_MS", 50); err != nil {
		return Config{}, err
	}
	if c.DraftTimeout, err = millis("STUDIO_DRAFT_TIMEOUT_MS", 20000); err != nil {
		return Config{}, err
	}
	if c.OutboxInterval, err = millis("STUDIO_OUTBOX_INTERVAL_MS", 60000); err != nil {
		return Config{}, err
	}

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return Config{}, fmt.Errorf("STUDIO_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if c.IsProduction() && len(c.CSRFKey) < 32 {
		return Config{}, errors.New("STUDIO_CSRF_KEY must be at least 32 bytes in production")
	}
	return c, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Now returns the current time in the studio's timezone. Weekly patterns are
// projected in this location.
func (c Config) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func millis(key string, fallback int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Millisecond, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return time.Duration(n) * time.Millisecond, nil
}
