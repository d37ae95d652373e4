package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base *zap.SugaredLogger
	once sync.Once
)

// Init configures the process-wide logger. Production encoding (JSON) unless
// debug is set, in which case a console encoder at debug level is used.
// Safe to call more than once; only the first call wins.
func Init(debug bool) {
	once.Do(func() {
		var cfg zap.Config
		if debug {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		l, err := cfg.Build(zap.AddCallerSkip(1))
		if err != nil {
			// Fall back to a no-op logger rather than crash the process over logging.
			l = zap.NewNop()
		}
		base = l.Sugar()
	})
}

// L returns the shared sugared logger, initializing a production logger if
// Init was never called (keeps library code usable from tests).
func L() *zap.SugaredLogger {
	if base == nil {
		Init(false)
	}
	return base
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
