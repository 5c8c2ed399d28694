package logger

import "context"

var _ Logger = (*NoopLogger)(nil)

// NoopLogger 空日志记录器，测试和未注入 logger 时使用
type NoopLogger struct{}

// NewNoop 创建空日志记录器
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, keysAndValues ...any) {}
func (l *NoopLogger) Info(msg string, keysAndValues ...any)  {}
func (l *NoopLogger) Warn(msg string, keysAndValues ...any)  {}
func (l *NoopLogger) Error(msg string, keysAndValues ...any) {}

func (l *NoopLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...any) {}
func (l *NoopLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...any)  {}
func (l *NoopLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...any)  {}
func (l *NoopLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...any) {}

func (l *NoopLogger) Named(name string) Logger                { return l }
func (l *NoopLogger) WithFields(keysAndValues ...any) Logger { return l }
func (l *NoopLogger) Sync() error                            { return nil }
