package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"marclink/internal/config"
	"marclink/internal/failures"
	"marclink/internal/logging"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Error("merge failed", logging.String("canonical", "200"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "marclink.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &line); err != nil {
		t.Fatalf("log file is not JSON lines: %v (%q)", err, content)
	}
	if line["msg"] != "merge failed" || line["canonical"] != "200" || line["level"] != "error" {
		t.Fatalf("unexpected JSON line: %v", line)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "crossref").Info("message without caller", logging.Int("groups", 3))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
	if !strings.Contains(text, "INFO crossref: message without caller groups=3") {
		t.Fatalf("unexpected console line %q", text)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") || !strings.Contains(string(content), "shown") {
		t.Fatalf("expected info level filtering, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-xyz")
	ctx = logging.WithPass(ctx, "merge")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line[logging.FieldRunID] != "run-xyz" {
		t.Fatalf("field %s = %v", logging.FieldRunID, line[logging.FieldRunID])
	}
	if line[logging.FieldPass] != "merge" {
		t.Fatalf("field %s = %v", logging.FieldPass, line[logging.FieldPass])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "subfield sequences differ", "merge_policy_gap",
		logging.ControlNumber("200"),
		logging.String(logging.FieldImpact, "kept the first field"),
	)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line[logging.FieldEventType] != "merge_policy_gap" {
		t.Fatalf("event type = %v", line[logging.FieldEventType])
	}
	if line[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error hint")
	}
	if line[logging.FieldImpact] != "kept the first field" {
		t.Fatalf("impact = %v", line[logging.FieldImpact])
	}
	if line[logging.FieldControlNumber] != "200" {
		t.Fatalf("control number = %v", line[logging.FieldControlNumber])
	}
}

func TestErrorWithContextClassifiesFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	err := &failures.ConsistencyError{Group: []string{"200", "100"}, ControlNumber: "200", Reason: "both carry local holdings"}
	logging.ErrorWithContext(logger, "merge run failed", "merge_failed", err, logging.Members(err.Group), logging.Offset(42))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["level"] != "ERROR" || line[logging.FieldEventType] != "merge_failed" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line[logging.FieldErrorKind] != "consistency" {
		t.Fatalf("error kind = %v", line[logging.FieldErrorKind])
	}
	if hint, _ := line[logging.FieldErrorHint].(string); !strings.Contains(hint, "strict") {
		t.Fatalf("error hint = %q", hint)
	}
	if !strings.Contains(line["error"].(string), "both carry local holdings") {
		t.Fatalf("error = %v", line["error"])
	}
	if group, _ := line[logging.FieldGroup].([]any); len(group) != 2 || line[logging.FieldOffset] != float64(42) {
		t.Fatalf("group/offset = %v / %v", line[logging.FieldGroup], line[logging.FieldOffset])
	}
}

func TestTeeHandlerSkipsNil(t *testing.T) {
	var a, b bytes.Buffer
	h := logging.TeeHandler(slog.NewTextHandler(&a, nil), nil, slog.NewTextHandler(&b, nil))
	slog.New(h).Info("both")
	if !strings.Contains(a.String(), "both") || !strings.Contains(b.String(), "both") {
		t.Fatalf("expected both handlers to receive the line: %q / %q", a.String(), b.String())
	}
	if _, ok := logging.TeeHandler(nil).(logging.NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerFiltersLevelsPerBranchAndJoinsErrors(t *testing.T) {
	var console, file bytes.Buffer
	h := logging.TeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With(logging.ControlNumber("100"))
	logger.Debug("resolver detail")
	logger.Warn("duplicate control number")

	if strings.Contains(console.String(), "resolver detail") || !strings.Contains(console.String(), "duplicate control number") {
		t.Fatalf("console branch = %q", console.String())
	}
	if strings.Count(file.String(), `"control_number":"100"`) != 2 {
		t.Fatalf("file branch = %q", file.String())
	}

	broken := logging.TeeHandler(failingHandler{slog.NewTextHandler(&console, nil)}, slog.NewTextHandler(&file, nil))
	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0)
	if err := broken.Handle(context.Background(), rec); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined branch error, got %v", err)
	}
	if !strings.Contains(file.String(), "still written") {
		t.Fatal("a failing branch must not stop the others")
	}
}
