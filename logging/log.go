package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// TimeLayout keeps microseconds: launch offsets inside a race window are
// in the millisecond range.
const TimeLayout = "2006-01-02 15:04:05.000000"

type LoggerKey struct{}

func NewContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey{}, logger)
}

func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return New(zap.DebugLevel, "", false)
}

type options struct {
	maxSize    int
	maxBackups int
}

type Option func(*options)

// WithRotation sets the size (MB) at which the log file is rotated
// and how many rotated files are kept. 0 backups keeps all of them.
func WithRotation(maxSizeMB, maxBackups int) Option {
	return func(o *options) {
		o.maxSize = maxSizeMB
		o.maxBackups = maxBackups
	}
}

func New(level zapcore.LevelEnabler, logFileName string, json bool, opts ...Option) *zap.Logger {
	o := options{maxSize: 500}
	for _, opt := range opts {
		opt(&o)
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout(TimeLayout)

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	consoleSyncer := zapcore.Lock(os.Stdout)
	var cores []zapcore.Core
	cores = append(cores, zapcore.NewCore(encoder, consoleSyncer, level))

	if logFileName != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   logFileName,
			MaxSize:    o.maxSize,
			MaxBackups: o.maxBackups,
			MaxAge:     28,
			Compress:   true,
		}
		fs := zapcore.AddSync(fileLogger)
		cores = append(cores, zapcore.NewCore(encoder, fs, zap.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...))
}
