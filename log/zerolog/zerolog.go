// Package zerolog adapts rs/zerolog to fragcache.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/fragcache"
)

var _ fragcache.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

// New adds component=fragcache to every event.
func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "fragcache").Logger()}
}

func (z Logger) Debug(msg string, f fragcache.Fields) { emit(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f fragcache.Fields)  { emit(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f fragcache.Fields)  { emit(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f fragcache.Fields) { emit(z.L.Error(), msg, f) }

// emit tolerates a nil event, which zerolog returns for disabled levels.
func emit(e *zerolog.Event, msg string, f fragcache.Fields) {
	if e == nil {
		return
	}
	if len(f) > 0 {
		e = e.Fields(map[string]any(f))
	}
	e.Msg(msg)
}
