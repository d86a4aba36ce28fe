// Package config resolves runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the CLI and server need at startup.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DataDir is the base path for the file-backed answer store.
	DataDir string

	// RedisURL enables the Redis store, cache, and distributed lock when set.
	RedisURL string

	// FlowFile points at a YAML flow definition; empty runs the built-in flow.
	FlowFile string

	// DebugJump enables the direct-jump operation. Never set in production.
	DebugJump bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel slog.Level
}

// Load reads STEPWISE_* variables, after loading .env if one is present.
func Load() Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Addr:     getEnv("STEPWISE_ADDR", ":8080"),
		DataDir:  getEnv("STEPWISE_DATA_DIR", ""),
		RedisURL: getEnv("STEPWISE_REDIS_URL", ""),
		FlowFile: getEnv("STEPWISE_FLOW_FILE", ""),
		LogLevel: parseLevel(getEnv("STEPWISE_LOG_LEVEL", "info")),
	}

	if env := strings.TrimSpace(os.Getenv("STEPWISE_DEBUG_JUMP")); env != "" {
		if parsed, err := strconv.ParseBool(env); err == nil {
			cfg.DebugJump = parsed
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
