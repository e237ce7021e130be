package sqldb

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/flowbit/flowbit/internal/query"
)

// checkoutError classifies a failure to obtain a connection. parent is the
// caller's context, not the one carrying the query timeout: a server that
// never finishes the handshake within the timeout is unreachable, not slow.
func checkoutError(parent context.Context, err error) error {
	if parent.Err() != nil {
		return &query.Error{Kind: query.KindCanceled, Op: "checkout", Err: err}
	}
	return &query.Error{Kind: query.KindConnection, Op: "checkout", Err: err}
}

func classify(ctx context.Context, op string, err error) error {
	kind := query.KindStatement
	switch {
	case isCanceled(ctx, err):
		kind = query.KindCanceled
	case isConnectionFailure(err):
		kind = query.KindConnection
	}
	return &query.Error{Kind: kind, Op: op, Err: err}
}

func isCanceled(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return ctx.Err() != nil
}

func isConnectionFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isConnectionSQLState(pgErr.Code)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isConnectionSQLState covers connection exceptions (08), invalid
// authorization (28), and server shutdown (57P01-57P03).
func isConnectionSQLState(code string) bool {
	if strings.HasPrefix(code, "08") || strings.HasPrefix(code, "28") {
		return true
	}
	switch code {
	case "57P01", "57P02", "57P03":
		return true
	}
	return false
}
