// Package zerologger backs the node's Logger interface with zerolog.
package zerologger

import (
	"io"

	"github.com/rs/zerolog"

	logcomm "github.com/TopiaNetwork/blockproducer/log/common"
)

// ZeroLogger writes timestamped entries through a zerolog.Logger. Child loggers made by
// WithField and CreateModuleLogger share the parent's writer but keep their own level.
type ZeroLogger struct {
	log *zerolog.Logger
}

func NewLogger(level zerolog.Level, w io.Writer) *ZeroLogger {
	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()

	return wrap(zl)
}

func wrap(zl zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{log: &zl}
}

// at returns nil when level is filtered out; zerolog's Msg and Msgf are no-ops on a nil event.
func (zl *ZeroLogger) at(level zerolog.Level) *zerolog.Event {
	return zl.log.WithLevel(level)
}

func (zl *ZeroLogger) Trace(msg string) { zl.at(zerolog.TraceLevel).Msg(msg) }
func (zl *ZeroLogger) Debug(msg string) { zl.at(zerolog.DebugLevel).Msg(msg) }
func (zl *ZeroLogger) Info(msg string)  { zl.at(zerolog.InfoLevel).Msg(msg) }
func (zl *ZeroLogger) Warn(msg string)  { zl.at(zerolog.WarnLevel).Msg(msg) }
func (zl *ZeroLogger) Error(msg string) { zl.at(zerolog.ErrorLevel).Msg(msg) }

func (zl *ZeroLogger) Tracef(format string, args ...interface{}) {
	zl.at(zerolog.TraceLevel).Msgf(format, args...)
}

func (zl *ZeroLogger) Debugf(format string, args ...interface{}) {
	zl.at(zerolog.DebugLevel).Msgf(format, args...)
}

func (zl *ZeroLogger) Infof(format string, args ...interface{}) {
	zl.at(zerolog.InfoLevel).Msgf(format, args...)
}

func (zl *ZeroLogger) Warnf(format string, args ...interface{}) {
	zl.at(zerolog.WarnLevel).Msgf(format, args...)
}

func (zl *ZeroLogger) Errorf(format string, args ...interface{}) {
	zl.at(zerolog.ErrorLevel).Msgf(format, args...)
}

// Fatal and Panic go through zerolog's own events so that the exit or panic happens after the write.

func (zl *ZeroLogger) Fatal(msg string) {
	zl.log.Fatal().Msg(msg)
}

func (zl *ZeroLogger) Fatalf(format string, args ...interface{}) {
	zl.log.Fatal().Msgf(format, args...)
}

func (zl *ZeroLogger) Panic(msg string) {
	zl.log.Panic().Msg(msg)
}

func (zl *ZeroLogger) Panicf(format string, args ...interface{}) {
	zl.log.Panic().Msgf(format, args...)
}

// UpdateLoggerLevel changes this logger only; children created earlier keep their level.
func (zl *ZeroLogger) UpdateLoggerLevel(level logcomm.LogLevel) {
	leveled := zl.log.Level(logcomm.ToZerologLevel(level))
	zl.log = &leveled
}

// WithField returns a child logger which stamps key=value on every line.
func (zl *ZeroLogger) WithField(key string, value interface{}) *ZeroLogger {
	return wrap(zl.log.With().Interface(key, value).Logger())
}

// CreateModuleLogger returns a child tagged module=<module> and filtered at level.
func (zl *ZeroLogger) CreateModuleLogger(level zerolog.Level, module string) *ZeroLogger {
	return wrap(zl.log.With().Str("module", module).Logger().Level(level))
}
