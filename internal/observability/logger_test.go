package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/flowbit/flowbit/internal/config"
)

func TestNewLoggerMasksCredentialAttrs(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{Profile: config.ProfileDev}
	cfg.Service.Name = "flowbit-api"
	cfg.Database.Driver = config.DriverPostgres
	cfg.Observability.LogJSON = true
	cfg.Observability.LogLevel = slog.LevelInfo

	logger := NewLogger(cfg, &buf)
	logger.Info("database_open",
		slog.String("dsn", "postgres://flowbit:s3cret@db:5432/flowbit"),
		slog.Any("error", errors.New("dial postgres://flowbit:s3cret@db:5432/flowbit: refused")),
		slog.String("note", "password=kept-as-is"),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output %q: %v", buf.String(), err)
	}
	if entry["dsn"] != "postgres://*:*@db:5432/flowbit" {
		t.Fatalf("dsn = %v", entry["dsn"])
	}
	if entry["error"] != "dial postgres://*:*@db:5432/flowbit: refused" {
		t.Fatalf("error = %v", entry["error"])
	}
	if entry["note"] != "password=kept-as-is" {
		t.Fatalf("note = %v", entry["note"])
	}
	if entry["service"] != "flowbit-api" || entry["db_driver"] != config.DriverPostgres {
		t.Fatalf("entry = %#v", entry)
	}
}

func TestNewLoggerAddsTraceIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{}
	cfg.Observability.LogLevel = slog.LevelInfo

	logger := NewLogger(cfg, &buf).With(slog.String("component", "api"))
	logger.InfoContext(ContextWithTraceID(context.Background(), "trace-7"), "prompt_resolved")
	logger.Info("startup")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "trace_id=trace-7") || !strings.Contains(lines[0], "component=api") {
		t.Fatalf("first line = %q", lines[0])
	}
	if strings.Contains(lines[1], "trace_id") {
		t.Fatalf("second line = %q", lines[1])
	}
}

func TestTraceIDFromContextWithoutValue(t *testing.T) {
	if got := TraceIDFromContext(context.Background()); got != "" {
		t.Fatalf("TraceIDFromContext() = %q", got)
	}
}
