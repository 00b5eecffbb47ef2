package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the services use.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	// ErrNotFound is returned when a certificate record or customer does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotCancellable is returned by Cancel for records that are neither
	// pending nor in progress.
	ErrNotCancellable = errors.New("certificate is not cancellable")
)
