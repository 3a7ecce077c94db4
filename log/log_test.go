package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"testing"
)

func TestMake_Defaults(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf)

	if logger.Level() != LevelInfo {
		t.Errorf("Level() = %v, want %v", logger.Level(), LevelInfo)
	}

	if logger.Format() != FormatText {
		t.Errorf("Format() = %v, want %v", logger.Format(), FormatText)
	}

	logger.Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("debug message logged at default level: %q", buf.String())
	}

	logger.Info("shown")

	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("info message missing: %q", buf.String())
	}
}

func TestLogger_ZeroValueDiscards(t *testing.T) {
	var logger Logger

	logger.Error("nothing happens")
	logger.With(slog.String("k", "v")).Info("still nothing")

	if logger.Level() != DefaultLevel {
		t.Errorf("Level() = %v, want %v", logger.Level(), DefaultLevel)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		log   func(Logger)
		want  bool
	}{
		{"trace at trace", LevelTrace, func(l Logger) { l.Trace("m") }, true},
		{"trace at debug", LevelDebug, func(l Logger) { l.Trace("m") }, false},
		{"debug at debug", LevelDebug, func(l Logger) { l.Debug("m") }, true},
		{"info at warn", LevelWarn, func(l Logger) { l.Info("m") }, false},
		{"warn at warn", LevelWarn, func(l Logger) { l.Warn("m") }, true},
		{"error at warn", LevelWarn, func(l Logger) { l.Error("m") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			tt.log(Make(&buf, WithLevel(tt.level)))

			if got := buf.Len() > 0; got != tt.want {
				t.Errorf("logged = %v, want %v (%q)", got, tt.want, buf.String())
			}
		})
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithFormat(FormatJSON), WithLevel(LevelTrace))
	logger.TraceContext(context.Background(), "parsed", slog.Int("nodes", 3))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}

	if rec["level"] != "TRACE" {
		t.Errorf("level = %v, want TRACE", rec["level"])
	}

	if rec["msg"] != "parsed" {
		t.Errorf("msg = %v, want parsed", rec["msg"])
	}

	if rec["nodes"] != float64(3) {
		t.Errorf("nodes = %v, want 3", rec["nodes"])
	}
}

func TestLogger_WithKeepsAttrs(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer

		logger := Make(&buf, WithPretty(pretty)).With(slog.String("block", "hero"))
		logger.Info("rendered")

		if !strings.Contains(buf.String(), "hero") {
			t.Errorf("pretty=%v: attribute missing from %q", pretty, buf.String())
		}
	}
}

func TestLogger_Wrap(t *testing.T) {
	var buf bytes.Buffer

	base := Make(&buf)
	wrapped := base.Wrap(WithLevel(LevelError))

	if base.Level() != LevelInfo {
		t.Errorf("Wrap modified receiver level: %v", base.Level())
	}

	if wrapped.Level() != LevelError {
		t.Errorf("wrapped level = %v, want %v", wrapped.Level(), LevelError)
	}

	wrapped.Warn("hidden")

	if buf.Len() != 0 {
		t.Errorf("warn logged at error level: %q", buf.String())
	}
}

func TestWithTimeLayout(t *testing.T) {
	tests := []struct {
		layout string
		want   bool
	}{
		{"none", false},
		{"", false},
		{"RFC3339", true},
		{"kitchen", true},
	}

	for _, tt := range tests {
		t.Run(tt.layout, func(t *testing.T) {
			var buf bytes.Buffer

			Make(&buf, WithTimeLayout(tt.layout)).Info("m")

			if got := strings.Contains(buf.String(), "time="); got != tt.want {
				t.Errorf("has time = %v, want %v (%q)", got, tt.want, buf.String())
			}
		})
	}
}

func TestWithCaller(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithCaller(true)).Info("m")

	if !strings.Contains(buf.String(), "log_test.go") {
		t.Errorf("caller missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{" warn ", LevelWarn},
		{"error", LevelError},
		{"bogus", DefaultLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"text", FormatText},
		{"yaml", DefaultFormat},
	}

	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevels(t *testing.T) {
	want := []string{"trace", "debug", "info", "warn", "error"}

	if got := slices.Collect(Levels()); !slices.Equal(got, want) {
		t.Errorf("Levels() = %v, want %v", got, want)
	}
}

func TestConfig_ReplacesDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultLog = prev
		defaultMu.Unlock()
	})

	var buf bytes.Buffer

	Config(WithOutput(&buf), WithLevel(LevelDebug))
	Debug("from default", slog.String("pkg", "log"))

	if !strings.Contains(buf.String(), "from default") {
		t.Errorf("default logger did not write: %q", buf.String())
	}
}

func TestPrettyJSON_WithGroup(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithPretty(true), WithFormat(FormatJSON))
	grouped := Logger{
		Logger: slog.New(logger.Handler().WithGroup("tmpl")),
		config: logger.config,
	}
	grouped.Info("cache", slog.Int("size", 2))

	if !strings.Contains(buf.String(), "tmpl.size") {
		t.Errorf("group prefix missing: %q", buf.String())
	}
}
