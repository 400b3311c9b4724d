package logging_test

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/dfarrell/patchreview/internal/logging"
)

func capture(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)
	fn()
	return buf.String()
}

func TestLevelFiltering(t *testing.T) {
	logger := logging.NewDefaultLogger(logging.LevelWarn, logging.FormatHuman)

	out := capture(t, func() {
		logger.Debug("debug msg", nil)
		logger.Info("info msg", nil)
		logger.Warn("warn msg", nil)
		logger.Error("error msg", nil)
	})

	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Errorf("below-threshold messages logged: %q", out)
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Errorf("expected warn and error messages, got: %q", out)
	}
}

func TestHumanFormatFields(t *testing.T) {
	logger := logging.NewDefaultLogger(logging.LevelInfo, logging.FormatHuman)

	out := capture(t, func() {
		logger.Info("engine call finished", map[string]interface{}{
			"model":       "sonnet",
			"duration_ms": 1234,
		})
	})

	for _, want := range []string{"[INFO]", "engine call finished", "model=sonnet", "duration_ms=1234"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	logger := logging.NewDefaultLogger(logging.LevelInfo, logging.FormatJSON)

	out := capture(t, func() {
		logger.Error("engine failed", map[string]interface{}{"exit_code": 2})
	})

	for _, want := range []string{`"level":"error"`, `"message":"engine failed"`, `"exit_code":"2"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"debug":   logging.LevelDebug,
		"info":    logging.LevelInfo,
		"warn":    logging.LevelWarn,
		"warning": logging.LevelWarn,
		"error":   logging.LevelError,
		"bogus":   logging.LevelInfo,
		"":        logging.LevelInfo,
	}
	for input, want := range cases {
		if got := logging.ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestTruncateForLogging(t *testing.T) {
	short := "short response"
	if got := logging.TruncateForLogging(short); got != short {
		t.Errorf("short string modified: %q", got)
	}

	long := strings.Repeat("x", 500)
	got := logging.TruncateForLogging(long)
	if len(got) >= len(long) {
		t.Errorf("long string not truncated, len=%d", len(got))
	}
	if !strings.Contains(got, "truncated") {
		t.Errorf("truncation indicator missing: %q", got[len(got)-60:])
	}
}
