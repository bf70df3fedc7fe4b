package main

import (
	"log/slog"
	"strings"
)

type Config struct {
	Host             string `env:"HOST,default=0.0.0.0"`
	Port             int    `env:"PORT,default=8080"`
	AllowedOrigins   string `env:"ALLOWED_ORIGINS,default=*"`
	DefaultRoomTitle string `env:"DEFAULT_ROOM_TITLE,default=The Commons"`
	LogLevel         string `env:"LOG_LEVEL,default=info"`

	// Empty keeps everything in memory; redis:// selects redis; anything
	// else is treated as a badger directory path.
	DurabilityURL string `env:"DURABILITY_URL"`
}

func (c Config) Origins() []string {
	return strings.Split(c.AllowedOrigins, ",")
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
