package loggingx

import (
	"github.com/dogmatiq/dodeca/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap is a logging.Logger that writes to a zap logger.
//
// Regular messages are logged at the info level, and debug messages at the
// debug level.
type Zap struct {
	Target *zap.SugaredLogger
}

var _ logging.Logger = Zap{}

// Log writes an application log message formatted according to a format
// specifier.
func (l Zap) Log(f string, v ...interface{}) {
	l.Target.Infof(f, v...)
}

// LogString writes a pre-formatted application log message.
func (l Zap) LogString(s string) {
	l.Target.Info(s)
}

// Debug writes a debug log message formatted according to a format specifier.
func (l Zap) Debug(f string, v ...interface{}) {
	l.Target.Debugf(f, v...)
}

// DebugString writes a pre-formatted debug log message.
func (l Zap) DebugString(s string) {
	l.Target.Debug(s)
}

// IsDebug returns true if the target logger has debug logging enabled.
func (l Zap) IsDebug() bool {
	return l.Target.Desugar().Core().Enabled(zapcore.DebugLevel)
}
