package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/flowbit/flowbit/internal/config"
)

type traceIDKey struct{}

// credentialKeys are attribute keys whose values may carry a database URL or
// driver error text with credentials in it.
var credentialKeys = map[string]bool{
	"error": true,
	"dsn":   true,
	"url":   true,
}

// NewLogger builds the process logger. Records logged with a request context
// carry its trace_id, and credential-bearing attributes pass through Mask.
func NewLogger(cfg config.Config, writer io.Writer) *slog.Logger {
	if writer == nil {
		writer = io.Discard
	}
	opts := &slog.HandlerOptions{Level: cfg.Observability.LogLevel, ReplaceAttr: maskCredentials}
	var handler slog.Handler = slog.NewTextHandler(writer, opts)
	if cfg.Observability.LogJSON {
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(traceHandler{handler}).With(
		slog.String("service", cfg.Service.Name),
		slog.String("profile", string(cfg.Profile)),
		slog.String("db_driver", cfg.Database.Driver),
	)
}

func maskCredentials(_ []string, attr slog.Attr) slog.Attr {
	if !credentialKeys[attr.Key] {
		return attr
	}
	switch value := attr.Value.Any().(type) {
	case string:
		return slog.String(attr.Key, Mask(value))
	case error:
		return slog.String(attr.Key, Mask(value.Error()))
	}
	return attr
}

// traceHandler adds the trace_id stored by TraceMiddleware to every record
// logged with that request's context.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, record slog.Record) error {
	if traceID := TraceIDFromContext(ctx); traceID != "" {
		record.AddAttrs(slog.String("trace_id", traceID))
	}
	return h.Handler.Handle(ctx, record)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}
