package telemetry

import "github.com/sirupsen/logrus"

// Logger is the logging contract every component in this package takes as an
// explicit constructor dependency. *logrus.Logger satisfies it.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithError(err error) *logrus.Entry
}
