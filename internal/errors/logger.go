package errors

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger 结构化日志接口
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	WithContext(ctx context.Context) Logger
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	// LogOperation 记录一次操作的耗时和结果
	LogOperation(operation string, startTime time.Time, err error)
	// LogAppError 记录应用错误及其上下文
	LogAppError(appErr *AppError, keysAndValues ...interface{})

	// Underlying 返回底层 logrus 实例，供 gin 中间件等使用
	Underlying() *logrus.Logger
}

// Fields 日志字段
type Fields map[string]interface{}

// StructuredLogger 基于 logrus 的结构化日志器
type StructuredLogger struct {
	logger *logrus.Logger
	fields Fields
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `json:"level" yaml:"level"`
	Format       string `json:"format" yaml:"format"`
	Output       string `json:"output" yaml:"output"`
	EnableCaller bool   `json:"enable_caller" yaml:"enable_caller"`
}

// DefaultLoggerConfig 默认日志配置
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
}

// NewLogger 创建新的结构化日志器
func NewLogger(config *LoggerConfig) (Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", config.Level, err)
	}
	logger.SetLevel(level)

	formatter, err := createFormatter(config.Format, config.EnableCaller)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}
	logger.SetFormatter(formatter)
	logger.SetReportCaller(config.EnableCaller)

	output, err := createOutput(config.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	logger.SetOutput(output)

	return FromLogrus(logger), nil
}

// FromLogrus 包装已有的 logrus 实例
func FromLogrus(logger *logrus.Logger) Logger {
	return &StructuredLogger{
		logger: logger,
		fields: make(Fields),
	}
}

// NewNopLogger 返回丢弃所有输出的日志器，用于测试
func NewNopLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return FromLogrus(logger)
}

// createFormatter 创建格式化器
func createFormatter(format string, enableCaller bool) (logrus.Formatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			CallerPrettyfier: func(f *runtime.Frame) (string, string) {
				if !enableCaller {
					return "", ""
				}
				filename := f.File
				if idx := strings.LastIndex(filename, "/"); idx >= 0 {
					filename = filename[idx+1:]
				}
				return f.Function, fmt.Sprintf("%s:%d", filename, f.Line)
			},
		}, nil
	case "text", "":
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// createOutput 创建输出
func createOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	default:
		// #nosec G304 - 日志文件路径来自配置
		file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", output, err)
		}
		return file, nil
	}
}

func (l *StructuredLogger) logWithFields(level logrus.Level, msg string, keysAndValues ...interface{}) {
	if !l.logger.IsLevelEnabled(level) {
		return
	}

	fields := make(logrus.Fields, len(l.fields)+len(keysAndValues)/2)
	for k, v := range l.fields {
		fields[k] = v
	}

	// 解析键值对，忽略非字符串键
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields[key] = keysAndValues[i+1]
	}

	l.logger.WithFields(fields).Log(level, msg)
}

func (l *StructuredLogger) Debugw(msg string, keysAndValues ...interface{}) {
	l.logWithFields(logrus.DebugLevel, msg, keysAndValues...)
}

func (l *StructuredLogger) Infow(msg string, keysAndValues ...interface{}) {
	l.logWithFields(logrus.InfoLevel, msg, keysAndValues...)
}

func (l *StructuredLogger) Warnw(msg string, keysAndValues ...interface{}) {
	l.logWithFields(logrus.WarnLevel, msg, keysAndValues...)
}

func (l *StructuredLogger) Errorw(msg string, keysAndValues ...interface{}) {
	l.logWithFields(logrus.ErrorLevel, msg, keysAndValues...)
}

func (l *StructuredLogger) WithContext(ctx context.Context) Logger {
	return l.WithFields(Fields(ContextFields(ctx)))
}

func (l *StructuredLogger) WithField(key string, value interface{}) Logger {
	newLogger := l.clone()
	newLogger.fields[key] = value
	return newLogger
}

func (l *StructuredLogger) WithFields(fields Fields) Logger {
	newLogger := l.clone()
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

func (l *StructuredLogger) WithError(err error) Logger {
	newLogger := l.clone()
	if err == nil {
		return newLogger
	}
	if appErr := ConvertError(err); appErr != nil && appErr.Type != ErrorTypeInternal {
		newLogger.fields["error_type"] = string(appErr.Type)
		newLogger.fields["error_code"] = appErr.Code
	}
	newLogger.fields["error"] = err.Error()
	return newLogger
}

func (l *StructuredLogger) LogOperation(operation string, startTime time.Time, err error) {
	duration := time.Since(startTime)

	if err != nil {
		l.WithError(err).Errorw("Operation failed",
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	l.Infow("Operation completed successfully",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}

func (l *StructuredLogger) LogAppError(appErr *AppError, keysAndValues ...interface{}) {
	if appErr == nil {
		return
	}

	fields := []interface{}{
		"error_type", string(appErr.Type),
		"error_code", appErr.Code,
		"error_message", appErr.Message,
	}
	if appErr.Details != "" {
		fields = append(fields, "error_details", appErr.Details)
	}
	for k, v := range appErr.Context {
		fields = append(fields, "context_"+k, v)
	}
	fields = append(fields, keysAndValues...)

	l.Errorw("Application error", fields...)
}

func (l *StructuredLogger) Underlying() *logrus.Logger {
	return l.logger
}

// clone 克隆日志器
func (l *StructuredLogger) clone() *StructuredLogger {
	newFields := make(Fields, len(l.fields))
	for k, v := range l.fields {
		newFields[k] = v
	}

	return &StructuredLogger{
		logger: l.logger,
		fields: newFields,
	}
}
