// Package logger builds the process logger from configuration
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/builders-garden/zk-wormhole-monorepo/internal/config"
)

// New creates a logrus logger with the configured level and format.
// It also applies the same settings to the logrus standard logger so
// package-level logrus calls follow the configuration.
func New(cfg config.LogConfig) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	var formatter logrus.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	if strings.EqualFold(cfg.Format, "json") {
		formatter = &logrus.JSONFormatter{}
	}
	log.SetFormatter(formatter)

	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	return log
}
