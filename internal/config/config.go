package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	JoinTimeout time.Duration
	MoveTimeout time.Duration
	StartDelay  time.Duration
	LogLevel    string
	DatabaseURL string
}

// Load reads configuration from the environment, with a .env file as
// fallback. Every knob has a default; DATABASE_URL is optional and enables
// round-history recording when set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Addr:        getEnv("RPS_ADDR", ":8080"),
		JoinTimeout: getDuration("RPS_JOIN_TIMEOUT", 60*time.Second),
		MoveTimeout: getDuration("RPS_MOVE_TIMEOUT", 30*time.Second),
		StartDelay:  getDuration("RPS_START_DELAY", time.Second),
		LogLevel:    getEnv("RPS_LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
