package query

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Result struct {
	Columns   []string
	Rows      []Row
	Truncated bool
	Duration  time.Duration
}

// Row is one result row. Values are stored in column order and the row
// marshals as a JSON object whose keys keep that order.
type Row struct {
	columns []string
	values  []any
}

func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

func (r Row) Len() int {
	return len(r.values)
}

func (r Row) Columns() []string {
	return r.columns
}

func (r Row) Values() []any {
	return r.values
}

// Get returns the value of the first column with the given name.
func (r Row) Get(column string) (any, bool) {
	for i, name := range r.columns {
		if name == column {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	seen := make(map[string]struct{}, len(r.columns))
	buf.WriteByte('{')
	for i, column := range r.columns {
		if _, dup := seen[column]; dup {
			return nil, fmt.Errorf("duplicate column %q", column)
		}
		seen[column] = struct{}{}
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Executor interface {
	Execute(ctx context.Context, sqlText string) (Result, error)
}

type Kind string

const (
	KindConnection    Kind = "connection"
	KindStatement     Kind = "statement"
	KindSerialization Kind = "serialization"
	KindCanceled      Kind = "canceled"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err wraps a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var queryErr *Error
	if !errors.As(err, &queryErr) {
		return false
	}
	return queryErr.Kind == kind
}

// KindOf returns the kind of a wrapped *Error, or "" if err is not one.
func KindOf(err error) Kind {
	var queryErr *Error
	if !errors.As(err, &queryErr) {
		return ""
	}
	return queryErr.Kind
}
