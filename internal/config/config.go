// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment
// variables, with a .env file as a fallback source.
type Config struct {
	GitHubToken   string
	DBPath        string // Empty means auto-locate from the repository root.
	GitTimeout    time.Duration
	RemoteTimeout time.Duration
	LogLevel      slog.Level
}

// Load reads configuration from the environment. PRREVIEW_GITHUB_TOKEN falls
// back to GITHUB_TOKEN and GH_TOKEN so existing gh CLI setups keep working.
// Optional variables with defaults: PRREVIEW_DB_PATH (auto-located),
// PRREVIEW_GIT_TIMEOUT (5s), PRREVIEW_REMOTE_TIMEOUT (2m),
// PRREVIEW_LOG_LEVEL (info).
func Load() (*Config, error) {
	// Best-effort; absence of a .env file is the normal case.
	_ = godotenv.Load()

	token := os.Getenv("PRREVIEW_GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	if token == "" {
		token = os.Getenv("GH_TOKEN")
	}

	gitTimeout := 5 * time.Second
	if v, ok := os.LookupEnv("PRREVIEW_GIT_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRREVIEW_GIT_TIMEOUT has invalid duration %q: %w", v, err)
		}
		gitTimeout = parsed
	}

	remoteTimeout := 2 * time.Minute
	if v, ok := os.LookupEnv("PRREVIEW_REMOTE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRREVIEW_REMOTE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		remoteTimeout = parsed
	}

	level := slog.LevelInfo
	if v, ok := os.LookupEnv("PRREVIEW_LOG_LEVEL"); ok {
		parsed, err := parseLevel(v)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	return &Config{
		GitHubToken:   token,
		DBPath:        os.Getenv("PRREVIEW_DB_PATH"),
		GitTimeout:    gitTimeout,
		RemoteTimeout: remoteTimeout,
		LogLevel:      level,
	}, nil
}

func parseLevel(v string) (slog.Level, error) {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("PRREVIEW_LOG_LEVEL has invalid level %q", v)
	}
}
