package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubedigest/internal/logging"
	"tubedigest/internal/services"
)

func TestConsoleOutputIncludesComponentAndAttrs(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logger.With(logging.String(logging.FieldComponent, "pipeline"))
	logger.Info("cycle started", logging.Int("backlog", 3))
	logger.Debug("should be filtered")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "pipeline: cycle started") {
		t.Fatalf("expected component prefix in output, got %q", out)
	}
	if !strings.Contains(out, "backlog=3") {
		t.Fatalf("expected attr in output, got %q", out)
	}
	if strings.Contains(out, "should be filtered") {
		t.Fatalf("debug record should have been filtered, got %q", out)
	}
}

func TestJSONFormatRejectsUnknown(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "ctx.log")

	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithVideoID(context.Background(), "abc123")
	ctx = services.WithStage(ctx, "transcript")
	logging.WithContext(ctx, logger).Info("stage started")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "video_id=abc123") || !strings.Contains(out, "stage=transcript") {
		t.Fatalf("expected context fields in output, got %q", out)
	}
}
