package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int
	LogLevel     string

	OverlayDBPath  string
	MigrationsPath string
	LadderPath     string
	NoticeTTL      time.Duration

	OverlayURL  string
	RendererURL string
	CORSOrigins []string
	OpenAPISpec string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		OverlayDBPath:  getEnv("OVERLAY_DB_PATH", "data/db/overlay.db"),
		MigrationsPath: getEnv("OVERLAY_MIGRATIONS", "migrations/001_init_documents.sql"),
		LadderPath:     getEnv("RENDERER_LADDER", ""),
		NoticeTTL:      time.Duration(getEnvAsInt("NOTICE_TTL_MS", 3000)) * time.Millisecond,

		OverlayURL:  getEnv("OVERLAY_URL", "http://localhost:3002"),
		RendererURL: getEnv("RENDERER_URL", "http://localhost:3001"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS"),
		OpenAPISpec: getEnv("OPENAPI_SPEC", "docs/overlay.openapi.yaml"),
	}
}

// Logger строит slog-логгер с уровнем из LOG_LEVEL.
func (c *Config) Logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h), nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

// getEnvAsList разбирает список через запятую; пустые элементы пропускаются.
func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}
