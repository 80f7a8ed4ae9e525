package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuild_JSONToStdout(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()

	log, err := build(cfg, &buf)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	log.Info("hello", "component", "catalog")
	log.Debug("hidden")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["component"] != "catalog" {
		t.Errorf("unexpected record %v", record)
	}
}

func TestBuild_TextToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "storefront.log")
	cfg := Config{Level: "debug", Format: "text", Output: "both", FilePath: path, MaxSize: 1}

	log, err := build(cfg, &buf)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	log.Debug("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "msg=visible") {
		t.Errorf("file output = %q", data)
	}
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("stdout output = %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRequestID(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID = %q", got)
	}

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	WithRequestID(ctx, log).Info("x")
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Errorf("missing request id: %q", buf.String())
	}

	if GetRequestID(context.Background()) != "" {
		t.Error("empty context has no request id")
	}
}
