// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything coachd needs to start.
type Config struct {
	Addr          string
	DBPath        string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration
	Dev           bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment wins.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          envOr("COACH_ADDR", ":8080"),
		DBPath:        envOr("COACH_DB_PATH", "coach.db"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:   envOr("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: 45 * time.Second,
		Dev:           envBool("COACH_DEV", false),
	}

	if raw := os.Getenv("OPENAI_TIMEOUT_SEC"); raw != "" {
		sec, err := strconv.Atoi(raw)
		if err != nil || sec <= 0 {
			return Config{}, fmt.Errorf("invalid OPENAI_TIMEOUT_SEC %q", raw)
		}
		cfg.OpenAITimeout = time.Duration(sec) * time.Second
	}
	if cfg.DBPath == "" {
		return Config{}, fmt.Errorf("COACH_DB_PATH must not be empty")
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
