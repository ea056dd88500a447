package app

import (
	"os"

	log "github.com/sirupsen/logrus"

	"dealership/internal/config"
)

// NewLogger creates the JSON logger shared by every component.
func NewLogger(cfg config.LogConfig) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&log.JSONFormatter{})

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
		logger.WithField("level", cfg.Level).Warn("unknown log level, using info")
	}
	logger.SetLevel(level)

	return logger
}
