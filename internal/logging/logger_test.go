// Package logging provides unit tests for the structured logger.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(minLevel LogLevel) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{out: buf, minLevel: minLevel}, buf
}

func decodeEntry(t *testing.T, line string) LogEntry {
	t.Helper()
	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Log line is not valid JSON: %v\nline: %s", err, line)
	}
	return entry
}

// TestLoggerInfo verifies a structured info entry.
func TestLoggerInfo(t *testing.T) {
	logger, buf := newTestLogger(LevelInfo)

	logger.Info("scan enqueued", map[string]interface{}{"record_id": "42"})

	entry := decodeEntry(t, strings.TrimSpace(buf.String()))
	if entry.Level != "INFO" {
		t.Errorf("Expected INFO, got %s", entry.Level)
	}
	if entry.Message != "scan enqueued" {
		t.Errorf("Unexpected message %q", entry.Message)
	}
	if entry.Context["record_id"] != "42" {
		t.Errorf("Context lost: %v", entry.Context)
	}
	if entry.Timestamp == "" {
		t.Error("Timestamp missing")
	}
}

// TestLoggerMinLevel verifies that entries below the minimum level are dropped.
func TestLoggerMinLevel(t *testing.T) {
	logger, buf := newTestLogger(LevelWarn)

	logger.Debug("noise")
	logger.Info("noise")
	logger.Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %q", len(lines), buf.String())
	}
	if entry := decodeEntry(t, lines[0]); entry.Message != "kept" {
		t.Errorf("Wrong entry survived: %q", entry.Message)
	}
}

// TestLoggerErrorWithCode verifies error logging with a code tag.
func TestLoggerErrorWithCode(t *testing.T) {
	logger, buf := newTestLogger(LevelDebug)

	logger.ErrorWithCode("append failed", "SHEET_APPEND_FAILED", errors.New("HTTP 503"),
		map[string]interface{}{"record_id": "7"})

	entry := decodeEntry(t, strings.TrimSpace(buf.String()))
	if entry.Code != "SHEET_APPEND_FAILED" {
		t.Errorf("Code missing: %+v", entry)
	}
	if entry.Error != "HTTP 503" {
		t.Errorf("Error missing: %+v", entry)
	}
}

// TestLoggerMergesContexts verifies multiple context maps are merged.
func TestLoggerMergesContexts(t *testing.T) {
	logger, buf := newTestLogger(LevelDebug)

	logger.Info("merged",
		map[string]interface{}{"a": 1},
		map[string]interface{}{"b": 2})

	entry := decodeEntry(t, strings.TrimSpace(buf.String()))
	if len(entry.Context) != 2 {
		t.Errorf("Expected merged context, got %v", entry.Context)
	}
}

// TestFileWriter verifies the log file is created under dataDir/logs.
func TestFileWriter(t *testing.T) {
	dataDir := t.TempDir()

	w, err := FileWriter(dataDir)
	if err != nil {
		t.Fatalf("FileWriter failed: %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "logs", "app.log"))
	if err != nil {
		t.Fatalf("Log file not readable: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("Unexpected log file content %q", string(data))
	}
}
