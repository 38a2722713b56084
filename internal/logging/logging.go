package logging

import (
	"io"

	"github.com/sirupsen/logrus"

	"mystic-chat/internal/config"
)

// New builds the process-wide logger. The TUI owns stdout, so output goes
// to the writer the caller picked (log file, stderr, or io.Discard).
func New(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	log := logrus.New()

	switch cfg.Level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(out)
	return log
}
