// Package logrus adapts sirupsen/logrus to fragcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/fragcache"
)

var _ fragcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=fragcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "fragcache")}
}

func (l LogrusLogger) entry(f fragcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}

func (l LogrusLogger) Debug(msg string, f fragcache.Fields) { l.entry(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f fragcache.Fields)  { l.entry(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f fragcache.Fields)  { l.entry(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f fragcache.Fields) { l.entry(f).Error(msg) }
