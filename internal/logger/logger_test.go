package logger

import (
	"bytes"
	"strings"
	"testing"
)

// resetLogger restores default state between tests.
func resetLogger() {
	Init(Options{})
}

func TestInitDefaultLevelInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("info line")
	if !strings.Contains(buf.String(), "info line") {
		t.Error("info message should be logged at default level")
	}

	buf.Reset()

	Debug("debug line")
	if strings.Contains(buf.String(), "debug line") {
		t.Error("debug message should not be logged at default level")
	}
}

func TestInitDebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	Debug("verbose detail")
	if !strings.Contains(buf.String(), "verbose detail") {
		t.Error("debug message should be logged when Debug=true")
	}
}

func TestInitQuietLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Quiet: true, Output: buf})
	defer resetLogger()

	Info("progress")
	Warn("careful")
	if buf.Len() != 0 {
		t.Errorf("info/warn should be suppressed when Quiet=true, got %q", buf.String())
	}

	Error("boom")
	if !strings.Contains(buf.String(), "boom") {
		t.Error("error message should still be logged when Quiet=true")
	}
}

func TestInitJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("structured", "key", "value")
	out := buf.String()
	if !strings.Contains(out, `"msg":"structured"`) || !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected JSON output, got %q", out)
	}
}

func TestWithAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	l := With("query", "alien")
	l.Info("tagged")
	if !strings.Contains(buf.String(), "query=alien") {
		t.Errorf("expected attribute in output, got %q", buf.String())
	}
}
