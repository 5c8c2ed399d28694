package logger

import (
	"context"
	"fmt"
	"os"

	"github.com/lk2023060901/arise/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志记录器
type BaseLogger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
}

// New 创建 BaseLogger，cfg 可以只填写部分字段
func New(cfg *Config) (*BaseLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	writers := make([]zapcore.WriteSyncer, 0, 2)
	if merged.EnableConsole {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if merged.EnableFile {
		w, err := NewRotationWriter(&merged.Rotation, merged.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create rotation writer: %w", err)
		}
		writers = append(writers, zapcore.AddSync(w))
	}

	return newWithSyncer(merged, zapcore.NewMultiWriteSyncer(writers...)), nil
}

func newWithSyncer(cfg *Config, ws zapcore.WriteSyncer) *BaseLogger {
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
	}
	if cfg.TimeFormat != "" {
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(cfg.TimeFormat)
	}
	if cfg.Development {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var enc zapcore.Encoder
	if cfg.Format == JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	base := zap.New(zapcore.NewCore(enc, ws, toZapLevel(cfg.Level)), opts...)
	if len(cfg.GlobalFields) > 0 {
		fields := make([]zap.Field, 0, len(cfg.GlobalFields))
		for k, v := range cfg.GlobalFields {
			fields = append(fields, zap.Any(k, v))
		}
		base = base.With(fields...)
	}

	return &BaseLogger{sugar: base.Sugar(), base: base}
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap 返回底层 zap.Logger，供需要原生 zap 的第三方组件使用
func (l *BaseLogger) Zap() *zap.Logger {
	return l.base
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, withContext(ctx, keysAndValues)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, withContext(ctx, keysAndValues)...)
}

// Named 创建具名 logger，名称以 "." 连接
func (l *BaseLogger) Named(name string) Logger {
	base := l.base.Named(name)
	return &BaseLogger{sugar: base.Sugar(), base: base}
}

// WithFields 派生携带固定字段的 logger
func (l *BaseLogger) WithFields(keysAndValues ...any) Logger {
	if len(keysAndValues) == 0 {
		return l
	}
	sugar := l.sugar.With(keysAndValues...)
	return &BaseLogger{sugar: sugar, base: sugar.Desugar()}
}

func (l *BaseLogger) Sync() error {
	return l.base.Sync()
}

func withContext(ctx context.Context, keysAndValues []any) []any {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return keysAndValues
	}
	out := make([]any, 0, len(fields)+len(keysAndValues))
	out = append(out, fields...)
	return append(out, keysAndValues...)
}
