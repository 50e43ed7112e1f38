// Package logger provides structured JSON logging with optional PII redaction.
package logger

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var zapLevels = map[Level]zapcore.Level{
	DEBUG: zapcore.DebugLevel,
	INFO:  zapcore.InfoLevel,
	WARN:  zapcore.WarnLevel,
	ERROR: zapcore.ErrorLevel,
}

// ParseLevel maps a config string to a Level. Unknown values yield INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger wraps a zap sugared logger and redacts PII in key/value fields.
type Logger struct {
	sugar     *zap.SugaredLogger
	level     zap.AtomicLevel
	redactPII bool
}

var (
	mu            sync.RWMutex
	defaultLogger = newDefault()
)

func newDefault() *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{sugar: z.Sugar(), level: level, redactPII: true}
}

// New wraps an existing zap logger. Used by tests to observe output.
func New(z *zap.Logger, redactPII bool) *Logger {
	return &Logger{sugar: z.Sugar(), level: zap.NewAtomicLevelAt(zapcore.DebugLevel), redactPII: redactPII}
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { current().level.SetLevel(zapLevels[l]) }

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) {
	mu.Lock()
	defaultLogger.redactPII = r
	mu.Unlock()
}

// Sync flushes buffered entries. Call before process exit.
func Sync() { _ = current().sugar.Sync() }

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { current().log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { current().log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { current().log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { current().log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	kv := l.prepare(fields)
	switch level {
	case DEBUG:
		l.sugar.Debugw(msg, kv...)
	case INFO:
		l.sugar.Infow(msg, kv...)
	case WARN:
		l.sugar.Warnw(msg, kv...)
	default:
		l.sugar.Errorw(msg, kv...)
	}
}

// prepare stringifies key/value pairs and applies redaction. A trailing key
// without a value is dropped.
func (l *Logger) prepare(fields []interface{}) []interface{} {
	out := make([]interface{}, 0, len(fields))
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := fields[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		if s, ok := val.(string); ok && l.redactPII {
			val = redactPIIValue(key, s)
		}
		out = append(out, key, val)
	}
	return out
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "email") || key == "to" {
		return RedactEmail(val)
	}
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"; local parts of two
// characters or fewer are fully masked: "ab@example.com" → "***@example.com".
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
