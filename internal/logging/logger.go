// Package logging provides structured, component-scoped logging with
// correlation-ID propagation, built on logrus with rotating file output.
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus.Logger with correlation ID and component tracking.
type Logger struct {
	*logrus.Logger
	correlationID string
	component     string
}

// Fields is a type alias for logrus.Fields to provide a clean API.
type Fields = logrus.Fields

// LoggingConfig mirrors the logging group of the main configuration.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	Format         string `mapstructure:"format"`
	FileEnabled    bool   `mapstructure:"file_enabled"`
	FilePath       string `mapstructure:"file_path"`
	MaxFileSize    int64  `mapstructure:"max_file_size"`
	BackupCount    int    `mapstructure:"backup_count"`
	ConsoleEnabled bool   `mapstructure:"console_enabled"`
}

// CorrelationIDKey is the context key used to carry correlation IDs.
const CorrelationIDKey = "correlation_id"

var (
	factory     *LoggerFactory
	factoryOnce sync.Once
)

// LoggerFactory builds component-scoped loggers sharing one configuration.
type LoggerFactory struct {
	config *LoggingConfig
	mu     sync.RWMutex
}

// GetLoggerFactory returns the process-wide logger factory, creating it
// with defaults on first use.
func GetLoggerFactory() *LoggerFactory {
	factoryOnce.Do(func() {
		factory = &LoggerFactory{
			config: &LoggingConfig{
				Level:          "info",
				Format:         "text",
				ConsoleEnabled: true,
			},
		}
	})
	return factory
}

// ConfigureFactory replaces the factory's configuration. Loggers created
// after this call pick up the new settings; loggers already handed out
// keep whatever was applied at creation time.
func ConfigureFactory(config *LoggingConfig) {
	f := GetLoggerFactory()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config = config
}

// CreateLogger builds a new Logger for component, applying the factory's
// current configuration.
func (f *LoggerFactory) CreateLogger(component string) *Logger {
	f.mu.RLock()
	cfg := f.config
	f.mu.RUnlock()

	logger := &Logger{
		Logger:    logrus.New(),
		component: component,
	}
	if err := applyConfig(logger, cfg); err != nil {
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.WithField("component", component).WithError(err).
			Warn("logging: falling back to stderr text output")
	}
	return logger
}

// GetLogger returns a Logger scoped to component, built from the
// process-wide factory's current configuration. This is the canonical
// entry point used throughout the codebase, e.g.
// logging.GetLogger("jwt-handler").
func GetLogger(component string) *Logger {
	return GetLoggerFactory().CreateLogger(component)
}

// ConfigureGlobalLogging configures the process-wide factory from a fully
// populated LoggingConfig, typically called once at startup from the
// config package.
func ConfigureGlobalLogging(config *LoggingConfig) error {
	if config == nil {
		return fmt.Errorf("logging: nil config")
	}
	ConfigureFactory(config)
	return nil
}

// applyConfig wires level, console, and file output onto logger per config.
func applyConfig(logger *Logger, config *LoggingConfig) error {
	level, err := logrus.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.ReplaceHooks(logrus.LevelHooks{})

	switch {
	case config.ConsoleEnabled && config.FileEnabled && config.FilePath != "":
		fileHandler, ferr := newFileWriter(config)
		if ferr != nil {
			return ferr
		}
		logger.SetOutput(fileHandler)
		logger.SetFormatter(createFileFormatter(config.Format))
		logger.AddHook(&consoleHook{formatter: createConsoleFormatter(config.Format)})
	case config.FileEnabled && config.FilePath != "":
		fileHandler, ferr := newFileWriter(config)
		if ferr != nil {
			return ferr
		}
		logger.SetOutput(fileHandler)
		logger.SetFormatter(createFileFormatter(config.Format))
	case config.ConsoleEnabled:
		logger.SetOutput(os.Stdout)
		logger.SetFormatter(createConsoleFormatter(config.Format))
	default:
		logger.SetOutput(noOpWriter{})
	}

	return nil
}

// newFileWriter builds a rotating lumberjack writer, creating the log
// directory if needed. MaxFileSize is bytes; lumberjack wants megabytes.
func newFileWriter(config *LoggingConfig) (*lumberjack.Logger, error) {
	logDir := filepath.Dir(config.FilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	maxMB := int(config.MaxFileSize / (1024 * 1024))
	if maxMB <= 0 {
		maxMB = 10
	}

	return &lumberjack.Logger{
		Filename:   config.FilePath,
		MaxSize:    maxMB,
		MaxBackups: config.BackupCount,
		MaxAge:     30,
		Compress:   true,
	}, nil
}

// consoleHook mirrors log entries to stdout in addition to the primary
// output (used when both file and console logging are enabled).
type consoleHook struct {
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(line)
	return err
}

// createConsoleFormatter returns a console-friendly, colorized formatter.
func createConsoleFormatter(format string) logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceColors:     true,
	}
}

// createFileFormatter selects JSON for production, text otherwise.
func createFileFormatter(format string) logrus.Formatter {
	if strings.Contains(strings.ToLower(format), "json") ||
		os.Getenv("CAPTURECTL_ENV") == "production" {
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05"}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	}
}

// noOpWriter discards all output; used when both console and file logging
// are disabled so logrus still has a valid, non-nil io.Writer.
type noOpWriter struct{}

func (noOpWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

// WithCorrelationID returns a derived logger carrying the given correlation ID.
func (l *Logger) WithCorrelationID(id string) *Logger {
	return &Logger{
		Logger:        l.Logger,
		correlationID: id,
		component:     l.component,
	}
}

// WithField returns a derived logger with one additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		Logger:        l.Logger.WithField(key, value).Logger,
		correlationID: l.correlationID,
		component:     l.component,
	}
}

// WithError returns a derived logger carrying err.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger:        l.Logger.WithError(err).Logger,
		correlationID: l.correlationID,
		component:     l.component,
	}
}

// WithFields returns a derived logger with multiple additional fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{
		Logger:        l.Logger.WithFields(fields).Logger,
		correlationID: l.correlationID,
		component:     l.component,
	}
}

// LogWithContext logs msg at level, attaching component, correlation ID
// (from the logger or, if unset, from ctx), and any context-carried fields.
func (l *Logger) LogWithContext(ctx context.Context, level logrus.Level, msg string) {
	entry := l.Logger.WithField("component", l.component)

	correlationID := l.correlationID
	if correlationID == "" {
		correlationID = GetCorrelationIDFromContext(ctx)
	}
	if correlationID != "" {
		entry = entry.WithField("correlation_id", correlationID)
	}

	entry.Log(level, msg)
}

// DebugWithContext logs msg at debug level with context-derived fields.
func (l *Logger) DebugWithContext(ctx context.Context, msg string) {
	l.LogWithContext(ctx, logrus.DebugLevel, msg)
}

// InfoWithContext logs msg at info level with context-derived fields.
func (l *Logger) InfoWithContext(ctx context.Context, msg string) {
	l.LogWithContext(ctx, logrus.InfoLevel, msg)
}

// WarnWithContext logs msg at warn level with context-derived fields.
func (l *Logger) WarnWithContext(ctx context.Context, msg string) {
	l.LogWithContext(ctx, logrus.WarnLevel, msg)
}

// ErrorWithContext logs msg at error level with context-derived fields.
func (l *Logger) ErrorWithContext(ctx context.Context, msg string) {
	l.LogWithContext(ctx, logrus.ErrorLevel, msg)
}

// GenerateCorrelationID returns a new UUIDv4 string for request tracing.
func GenerateCorrelationID() string {
	return uuid.New().String()
}

// GetCorrelationIDFromContext extracts a correlation ID from ctx, or "" if absent.
func GetCorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return correlationID
	}
	return ""
}

// WithCorrelationID returns a child context carrying the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}
