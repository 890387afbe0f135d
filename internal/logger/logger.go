package logger

import (
	"os"
	"slices"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with additional functionality
type Logger struct {
	*zap.Logger
}

// Config contains logger configuration
type Config struct {
	Level  string
	Format string // json or console
	File   *FileConfig
}

// FileConfig contains file logging configuration
type FileConfig struct {
	Enabled bool
	Path    string
}

// header name fragments whose values never reach the log
var sensitiveHeaders = []string{
	"authorization",
	"x-api-key",
	"cookie",
	"x-auth-token",
	"x-access-token",
	"bearer",
}

// New builds a logger writing to stderr, so redacted output can be piped
// from stdout, and optionally teed as JSON into a file
func New(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(config.Format), zapcore.Lock(os.Stderr), level),
	}

	if config.File != nil && config.File.Enabled {
		file, err := os.OpenFile(config.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(newEncoder("json"), zapcore.AddSync(file), level))
	}

	return &Logger{
		Logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
	}, nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "console" {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(cfg)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithRequestID scopes the logger to one HTTP request
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID))}
}

// WithComponent scopes the logger to a subsystem
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component))}
}

// LogRequest logs request headers at debug level with credentials replaced.
// Bodies are never logged since they carry raw PII.
func (l *Logger) LogRequest(method, path string, headers map[string][]string) {
	safe := make(map[string]string, len(headers))
	for name, values := range headers {
		switch {
		case isSensitiveHeader(name):
			safe[name] = "[REDACTED]"
		case len(values) > 0:
			safe[name] = values[0]
		}
	}

	l.Debug("HTTP request headers",
		zap.String("method", method),
		zap.String("path", path),
		zap.Any("headers", safe),
	)
}

func isSensitiveHeader(header string) bool {
	lower := strings.ToLower(header)
	return slices.ContainsFunc(sensitiveHeaders, func(fragment string) bool {
		return strings.Contains(lower, fragment)
	})
}
