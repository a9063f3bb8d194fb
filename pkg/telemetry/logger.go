// Package telemetry provides the estimator's logging and metrics
// infrastructure: a logrus logger injected into each component rather
// than read from a package-global, and a small set of Prometheus
// counters/gauges scoped to the estimator's own diagnostics.
package telemetry

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a JSON-structured logger at the given level, in the
// style PossumXI-Asgard_Arobi's Valkyrie/pkg/utils uses for its own
// components. Unlike that package's global Logger var, callers here hold
// onto and pass the returned instance explicitly.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()

	switch level {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return logger
}
