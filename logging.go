package main

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// setupLogger builds a zerolog logger from the resolved config.
func setupLogger(cfg *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writer = os.Stderr
	var logger zerolog.Logger

	if cfg.LogFormat == "json" {
		logger = zerolog.New(writer).With().Timestamp().Logger()
	} else {
		console := zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
		logger = zerolog.New(console).With().Timestamp().Logger()
	}

	return logger.Level(level)
}
