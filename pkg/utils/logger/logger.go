package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a named, sugared zap logger
type Logger struct {
	*zap.SugaredLogger
}

var (
	globalLogger *Logger
	level        = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	once         sync.Once
)

// Init initializes the global logger. Only the first call builds the core;
// later calls only adjust the level.
func Init(lvl string, env string) {
	SetLevel(lvl)

	once.Do(func() {
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}

		var encoder zapcore.Encoder
		if env == "production" {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}

		core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
		globalLogger = &Logger{zap.New(core, zap.AddCaller()).Sugar()}
	})
}

// SetLevel changes the level of every logger handed out by GetLogger.
// Unknown levels fall back to info.
func SetLevel(lvl string) {
	parsed, err := zapcore.ParseLevel(lvl)
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	level.SetLevel(parsed)
}

// GetLogger returns a logger instance with the given name
func GetLogger(name string) *Logger {
	Init(level.String(), "development")
	return &Logger{globalLogger.Named(name)}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// With returns a logger with additional structured context
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(args...)}
}

// WithField returns a logger with a single field added to the context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(key, value)}
}
