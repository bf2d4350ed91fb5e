package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// captureLogOutput redirects stdout, runs logFn against a fresh shared logger and returns the decoded entry.
func captureLogOutput(t *testing.T, logFn func(*zap.Logger)) map[string]any {
	t.Helper()

	resetLoggerForTest()
	t.Cleanup(resetLoggerForTest)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	defer func() { _ = r.Close() }()

	origStdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = origStdout }()

	logger := Logger()
	logFn(logger)
	_ = logger.Sync()

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("failed to close writer: %v", closeErr)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read log output: %v", err)
	}

	line := strings.TrimSpace(string(data))
	if line == "" {
		t.Fatalf("expected log output, got empty string")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("failed to unmarshal log JSON %q: %v", line, err)
	}
	return payload
}

func resetLoggerForTest() {
	loggerOnce = sync.Once{}
	baseLogger = nil
	loggerErr = nil
	level.SetLevel(zapcore.InfoLevel)
}

func TestLoggerCloudLoggingFields(t *testing.T) {
	payload := captureLogOutput(t, func(l *zap.Logger) {
		l.Info("greeting served", zap.String("environment", "staging"))
	})

	if got := payload["severity"]; got != "INFO" {
		t.Fatalf("expected severity INFO, got %v", got)
	}
	if _, exists := payload["level"]; exists {
		t.Fatal("did not expect a level field")
	}
	if got := payload["message"]; got != "greeting served" {
		t.Fatalf("expected message 'greeting served', got %v", got)
	}
	if got := payload["environment"]; got != "staging" {
		t.Fatalf("expected environment field, got %v", got)
	}
	ts, ok := payload["timestamp"].(string)
	if !ok {
		t.Fatalf("expected string timestamp, got %T", payload["timestamp"])
	}
	if _, err := time.Parse(RFC3339Micros, ts); err != nil {
		t.Fatalf("timestamp %q is not RFC3339Micros: %v", ts, err)
	}
	if caller, _ := payload["caller"].(string); !strings.Contains(caller, "logger_test.go") {
		t.Fatalf("expected caller to reference logger_test.go, got %v", payload["caller"])
	}
}

func TestLoggerCloudRunServiceFields(t *testing.T) {
	t.Setenv("K_SERVICE", "psitron")
	t.Setenv("K_REVISION", "psitron-00001-abc")

	payload := captureLogOutput(t, func(l *zap.Logger) {
		l.Warn("slow start")
	})

	if got := payload["severity"]; got != "WARNING" {
		t.Fatalf("expected severity WARNING, got %v", got)
	}
	if got := payload["service"]; got != "psitron" {
		t.Fatalf("expected service psitron, got %v", got)
	}
	if got := payload["revision"]; got != "psitron-00001-abc" {
		t.Fatalf("expected revision, got %v", got)
	}
}

func TestServiceFieldsEmptyOutsideCloudRun(t *testing.T) {
	t.Setenv("K_SERVICE", "")
	t.Setenv("K_REVISION", "")
	if f := serviceFields(); f != nil {
		t.Fatalf("expected nil fields, got %v", f)
	}
}

func TestSetLevelEnablesDebug(t *testing.T) {
	payload := captureLogOutput(t, func(l *zap.Logger) {
		if err := SetLevel("debug"); err != nil {
			t.Fatalf("SetLevel: %v", err)
		}
		l.Debug("debug visible")
	})

	if got := payload["severity"]; got != "DEBUG" {
		t.Fatalf("expected severity DEBUG, got %v", got)
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	t.Cleanup(resetLoggerForTest)
	if err := SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if level.Level() != zapcore.InfoLevel {
		t.Fatalf("level changed on error: %v", level.Level())
	}
}

func TestEncodeSeverityMapping(t *testing.T) {
	tests := []struct {
		level    zapcore.Level
		expected string
	}{
		{zapcore.DebugLevel, "DEBUG"},
		{zapcore.InfoLevel, "INFO"},
		{zapcore.WarnLevel, "WARNING"},
		{zapcore.ErrorLevel, "ERROR"},
		{zapcore.DPanicLevel, "CRITICAL"},
		{zapcore.PanicLevel, "ALERT"},
		{zapcore.FatalLevel, "EMERGENCY"},
		{zapcore.Level(99), "DEFAULT"},
	}

	for _, tt := range tests {
		enc := &captureArrayEncoder{}
		encodeSeverity(tt.level, enc)
		if len(enc.values) != 1 || enc.values[0] != tt.expected {
			t.Fatalf("encodeSeverity(%v) = %v, want %s", tt.level, enc.values, tt.expected)
		}
	}
}

func TestEncodeTimeMicrosConvertsToUTC(t *testing.T) {
	enc := &captureArrayEncoder{}
	in := time.Date(2024, 6, 15, 12, 30, 45, 123456789, time.FixedZone("CEST", 2*60*60))
	encodeTimeMicros(in, enc)
	if len(enc.values) != 1 || enc.values[0] != "2024-06-15T10:30:45.123456Z" {
		t.Fatalf("unexpected timestamp: %v", enc.values)
	}
}

func TestLoggerSingleton(t *testing.T) {
	resetLoggerForTest()
	t.Cleanup(resetLoggerForTest)

	if Logger() != Logger() {
		t.Fatal("expected Logger() to return the same instance")
	}
	if err := Err(); err != nil {
		t.Fatalf("expected nil init error, got %v", err)
	}
}

// captureArrayEncoder collects strings appended via the PrimitiveArrayEncoder interface.
type captureArrayEncoder struct {
	values []string
}

func (c *captureArrayEncoder) AppendBool(bool)             {}
func (c *captureArrayEncoder) AppendByteString([]byte)     {}
func (c *captureArrayEncoder) AppendComplex128(complex128) {}
func (c *captureArrayEncoder) AppendComplex64(complex64)   {}
func (c *captureArrayEncoder) AppendFloat64(float64)       {}
func (c *captureArrayEncoder) AppendFloat32(float32)       {}
func (c *captureArrayEncoder) AppendInt(int)               {}
func (c *captureArrayEncoder) AppendInt64(int64)           {}
func (c *captureArrayEncoder) AppendInt32(int32)           {}
func (c *captureArrayEncoder) AppendInt16(int16)           {}
func (c *captureArrayEncoder) AppendInt8(int8)             {}
func (c *captureArrayEncoder) AppendString(s string)       { c.values = append(c.values, s) }
func (c *captureArrayEncoder) AppendUint(uint)             {}
func (c *captureArrayEncoder) AppendUint64(uint64)         {}
func (c *captureArrayEncoder) AppendUint32(uint32)         {}
func (c *captureArrayEncoder) AppendUint16(uint16)         {}
func (c *captureArrayEncoder) AppendUint8(uint8)           {}
func (c *captureArrayEncoder) AppendUintptr(uintptr)       {}
