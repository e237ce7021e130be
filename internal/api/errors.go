package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/flowbit/flowbit/internal/observability"
	"github.com/flowbit/flowbit/internal/query"
)

type errorMapping struct {
	status    int
	code      string
	message   string
	retryable bool
}

var queryErrorMappings = map[query.Kind]errorMapping{
	query.KindConnection:    {http.StatusServiceUnavailable, "DATABASE_UNAVAILABLE", "database is unavailable", true},
	query.KindStatement:     {http.StatusInternalServerError, "QUERY_FAILED", "query execution failed", false},
	query.KindSerialization: {http.StatusInternalServerError, "RESULT_SERIALIZATION_FAILED", "query result could not be serialized", false},
	query.KindCanceled:      {http.StatusGatewayTimeout, "QUERY_TIMEOUT", "query was canceled or timed out", true},
}

// writeQueryError logs a failed execution and answers with the status for
// its kind. Error details are masked before they leave the process.
func writeQueryError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, intentName string, err error) {
	kind := query.KindOf(err)
	mapping, ok := queryErrorMappings[kind]
	if !ok {
		kind = query.KindStatement
		mapping = queryErrorMappings[kind]
	}
	details := observability.Mask(err.Error())
	if logger != nil {
		logger.ErrorContext(ctx, "query_failed",
			slog.String("intent", intentName),
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)
	}
	writeError(ctx, w, mapping.status, mapping.code, mapping.message, mapping.retryable, map[string]any{
		"intent":  intentName,
		"kind":    string(kind),
		"details": details,
	})
}
