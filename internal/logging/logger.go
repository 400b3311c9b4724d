// Package logging provides structured, leveled logging for engine
// invocations and the review pipeline.
package logging

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Logger provides structured logging with levels and fields.
type Logger interface {
	// Debug logs developer-level detail (prompts sizes, subprocess args).
	Debug(message string, fields map[string]interface{})

	// Info logs normal operational events.
	Info(message string, fields map[string]interface{})

	// Warn logs recoverable anomalies (retry attempts, degraded modes).
	Warn(message string, fields map[string]interface{})

	// Error logs failures surfaced to the operator.
	Error(message string, fields map[string]interface{})
}

// Level defines logging verbosity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format defines the log output format.
type Format int

const (
	FormatHuman Format = iota
	FormatJSON
)

// ParseFormat maps a config string to a Format, defaulting to human.
func ParseFormat(s string) Format {
	if strings.ToLower(s) == "json" {
		return FormatJSON
	}
	return FormatHuman
}

// DefaultLogger writes leveled log lines through the standard log package.
type DefaultLogger struct {
	level  Level
	format Format
}

// NewDefaultLogger creates a logger with the given level and format.
func NewDefaultLogger(level Level, format Format) *DefaultLogger {
	return &DefaultLogger{level: level, format: format}
}

func (l *DefaultLogger) Debug(message string, fields map[string]interface{}) {
	l.write(LevelDebug, "debug", message, fields)
}

func (l *DefaultLogger) Info(message string, fields map[string]interface{}) {
	l.write(LevelInfo, "info", message, fields)
}

func (l *DefaultLogger) Warn(message string, fields map[string]interface{}) {
	l.write(LevelWarn, "warn", message, fields)
}

func (l *DefaultLogger) Error(message string, fields map[string]interface{}) {
	l.write(LevelError, "error", message, fields)
}

func (l *DefaultLogger) write(level Level, name, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	if l.format == FormatJSON {
		var b strings.Builder
		fmt.Fprintf(&b, `{"level":%q,"timestamp":%q,"message":%q`,
			name, time.Now().UTC().Format(time.RFC3339), message)
		for _, k := range sortedKeys(fields) {
			fmt.Fprintf(&b, `,%q:%q`, k, fmt.Sprintf("%v", fields[k]))
		}
		b.WriteString("}")
		log.Print(b.String())
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", strings.ToUpper(name), message)
	for _, k := range sortedKeys(fields) {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	log.Print(b.String())
}

func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Nop is a Logger that discards everything. Useful as a default so callers
// never have to nil-check their logger.
type Nop struct{}

func (Nop) Debug(string, map[string]interface{}) {}
func (Nop) Info(string, map[string]interface{})  {}
func (Nop) Warn(string, map[string]interface{})  {}
func (Nop) Error(string, map[string]interface{}) {}

// TruncateForLogging caps a string for log output. Engine responses can be
// large and may contain user source; logs only need a prefix.
func TruncateForLogging(s string) string {
	const maxLoggedLength = 200
	if len(s) <= maxLoggedLength {
		return s
	}
	return s[:maxLoggedLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(s))
}
