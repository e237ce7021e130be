package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/flowbit/flowbit/internal/config"
	"github.com/flowbit/flowbit/internal/query"
)

const defaultMaxRows = 1000

type Executor struct {
	DB      *sql.DB
	Timeout time.Duration
	MaxRows int
}

func NewExecutor(db *sql.DB, cfg config.QueryConfig) *Executor {
	return &Executor{DB: db, Timeout: cfg.Timeout, MaxRows: cfg.MaxRows}
}

// Execute runs sqlText on a connection checked out for this call only. The
// connection and the row cursor are released on every return path.
func (e *Executor) Execute(ctx context.Context, sqlText string) (query.Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return query.Result{}, &query.Error{Kind: query.KindStatement, Op: "execute", Err: fmt.Errorf("sql is required")}
	}
	if e.DB == nil {
		return query.Result{}, &query.Error{Kind: query.KindConnection, Op: "checkout", Err: fmt.Errorf("database is not configured")}
	}
	parent := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := e.DB.Conn(ctx)
	if err != nil {
		return query.Result{}, checkoutError(parent, err)
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, classify(ctx, "query", err)
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return query.Result{}, classify(ctx, "columns", err)
	}
	columns := make([]string, len(columnTypes))
	dbTypes := make([]string, len(columnTypes))
	for i, columnType := range columnTypes {
		columns[i] = columnType.Name()
		dbTypes[i] = strings.ToUpper(columnType.DatabaseTypeName())
	}
	columns = uniqueColumns(columns)

	maxRows := e.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	resultRows := make([]query.Row, 0)
	truncated := false
	for rows.Next() {
		if len(resultRows) == maxRows {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, &query.Error{Kind: query.KindSerialization, Op: "scan", Err: err}
		}
		for i, value := range values {
			normalized, err := normalizeValue(value, dbTypes[i])
			if err != nil {
				return query.Result{}, &query.Error{
					Kind: query.KindSerialization,
					Op:   "convert",
					Err:  fmt.Errorf("column %q: %w", columns[i], err),
				}
			}
			values[i] = normalized
		}
		resultRows = append(resultRows, query.NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, classify(ctx, "fetch", err)
	}

	return query.Result{
		Columns:   columns,
		Rows:      resultRows,
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

// uniqueColumns suffixes repeated names (id, id_2, id_3) so every row maps
// each key once. SELECT * over a join is the usual source of repeats.
func uniqueColumns(columns []string) []string {
	seen := make(map[string]struct{}, len(columns))
	out := make([]string, len(columns))
	for i, name := range columns {
		candidate := name
		for n := 2; ; n++ {
			if _, taken := seen[candidate]; !taken {
				break
			}
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		seen[candidate] = struct{}{}
		out[i] = candidate
	}
	return out
}
