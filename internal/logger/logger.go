// Package logger writes structured JSON-lines log entries, optionally to a
// size-rotated file.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel is the severity of an entry. Entries below Config.Level are dropped.
type LogLevel string

// Supported levels, lowest first.
const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Event types used across the module.
const (
	EventStartup        = "STARTUP"
	EventShutdown       = "SHUTDOWN"
	EventStorageRead    = "STORAGE_READ"
	EventStorageWrite   = "STORAGE_WRITE"
	EventStorageCorrupt = "STORAGE_CORRUPT"
	EventValidation     = "VALIDATION_FAILURE"
	EventMutation       = "MUTATION"
	EventFeed           = "CHANGE_FEED"
	EventDBConnection   = "DB_CONNECTION"
	EventDBError        = "DB_ERROR"
	EventPagination     = "PAGINATION"
	EventGeneral        = "GENERAL"
)

// LogEntry is one JSON line of output.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     LogLevel       `json:"level"`
	Service   string         `json:"service"`
	EventType string         `json:"event_type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Config selects the level, destination and rotation of a Logger.
type Config struct {
	ServiceName string
	Level       LogLevel
	LogFilePath string // empty: write to Output only
	Output      io.Writer
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
}

// Logger writes LogEntry lines. It is safe for concurrent use.
type Logger struct {
	config  Config
	writer  io.Writer
	closer  io.Closer
	minRank int
	mu      sync.Mutex
}

var sensitiveFields = map[string]bool{
	"password":     true,
	"token":        true,
	"secret":       true,
	"api_key":      true,
	"database_url": true,
	"dsn":          true,
}

// New builds a Logger from cfg. With LogFilePath set, entries go to a
// lumberjack-rotated file in addition to Output (if any).
func New(cfg Config) *Logger {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ideas"
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 28
	}
	cfg.Level = ParseLevel(string(cfg.Level))

	var writers []io.Writer
	if cfg.Output != nil {
		writers = append(writers, cfg.Output)
	}

	l := &Logger{config: cfg, minRank: levelRank[cfg.Level]}
	if cfg.LogFilePath != "" {
		logDir := filepath.Dir(cfg.LogFilePath)
		if err := os.MkdirAll(logDir, 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: cannot create log directory %s: %v\n", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.LogFilePath,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
			l.closer = fileWriter
		}
	}

	switch len(writers) {
	case 0:
		l.writer = io.Discard
	case 1:
		l.writer = writers[0]
	default:
		l.writer = io.MultiWriter(writers...)
	}
	return l
}

// Discard returns a Logger that drops every entry.
func Discard() *Logger {
	return New(Config{Output: io.Discard})
}

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown names
// map to LevelInfo.
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closer.Close()
}

func (l *Logger) log(level LogLevel, eventType, message string, details map[string]any) {
	if l == nil || levelRank[level] < l.minRank {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Service:   l.config.ServiceName,
		EventType: eventType,
		Message:   message,
		Details:   sanitizeDetails(details),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to marshal log entry: %v\n", err)
		return
	}

	l.writer.Write(append(data, '\n'))
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(eventType, message string, details map[string]any) {
	l.log(LevelDebug, eventType, message, details)
}

// Info logs at LevelInfo.
func (l *Logger) Info(eventType, message string, details map[string]any) {
	l.log(LevelInfo, eventType, message, details)
}

// Warn logs at LevelWarn.
func (l *Logger) Warn(eventType, message string, details map[string]any) {
	l.log(LevelWarn, eventType, message, details)
}

// Error logs at LevelError.
func (l *Logger) Error(eventType, message string, details map[string]any) {
	l.log(LevelError, eventType, message, details)
}

// Fields builds a details map from alternating keys and values. Non-string
// keys are skipped; error values are stored as their message.
func Fields(kv ...any) map[string]any {
	details := make(map[string]any)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr && err != nil {
			details[key] = err.Error()
			continue
		}
		details[key] = kv[i+1]
	}
	return details
}

func sanitizeDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	sanitized := make(map[string]any, len(details))
	for k, v := range details {
		if sensitiveFields[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			sanitized[k] = sanitizeDetails(nested)
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}
