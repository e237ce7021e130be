package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/flowbit/flowbit/internal/observability"
	"github.com/flowbit/flowbit/internal/query"
)

const maxPromptBodyBytes = 64 << 10

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	SQL      string         `json:"sql"`
	Intent   string         `json:"intent"`
	Fallback bool           `json:"fallback"`
	Columns  []string       `json:"columns"`
	Rows     []query.Row    `json:"rows"`
	Stats    map[string]any `json:"stats"`
}

func handlePrompt(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query executor is not configured", false, nil)
		return
	}

	var request promptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPromptBodyBytes)).Decode(&request); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "request body is too large", false, map[string]any{"limit_bytes": tooLarge.Limit})
		case errors.Is(err, io.EOF):
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "request body is required", false, nil)
		default:
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid prompt request body", false, map[string]any{"details": err.Error()})
		}
		return
	}

	selection := deps.Resolver.Resolve(request.Prompt)
	observability.ObservePromptResolution(selection.Intent, selection.Fallback)
	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "prompt_resolved",
			slog.String("intent", selection.Intent),
			slog.Bool("fallback", selection.Fallback),
			slog.Int("prompt_length", len(request.Prompt)),
		)
	}

	result, err := deps.Executor.Execute(r.Context(), selection.SQL)
	if err != nil {
		observability.ObserveQueryExecution(selection.Intent, string(query.KindOf(err)), 0, 0)
		writeQueryError(r.Context(), w, deps.Logger, selection.Intent, err)
		return
	}

	columns, rows := result.Columns, result.Rows
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = []query.Row{}
	}
	body, err := json.Marshal(promptResponse{
		SQL:      selection.SQL,
		Intent:   selection.Intent,
		Fallback: selection.Fallback,
		Columns:  columns,
		Rows:     rows,
		Stats: map[string]any{
			"duration_ms": result.Duration.Milliseconds(),
			"row_count":   len(rows),
			"truncated":   result.Truncated,
		},
	})
	if err != nil {
		serializationErr := &query.Error{Kind: query.KindSerialization, Op: "encode", Err: err}
		observability.ObserveQueryExecution(selection.Intent, string(query.KindSerialization), 0, result.Duration)
		writeQueryError(r.Context(), w, deps.Logger, selection.Intent, serializationErr)
		return
	}
	observability.ObserveQueryExecution(selection.Intent, "ok", len(result.Rows), result.Duration)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}
