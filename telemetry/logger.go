package telemetry

import (
	stackdriver "github.com/TV4/logrus-stackdriver-formatter"
	"github.com/sirupsen/logrus"
)

// ConfigureLogger sets up the standard logrus logger. Local runs get plain text,
// deployed platforms get stackdriver JSON.
func ConfigureLogger(local bool, debug bool, service string) {
	logger := logrus.StandardLogger()

	if local {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(stackdriver.NewFormatter(stackdriver.WithService(service)))
	}

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}
