package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}

	// TxFunc is run by a Transactor. exec must be passed down to every repository call.
	// The in-memory store hands an exec only its own repositories understand.
	TxFunc func(exec DBExecutor) error

	Transactor interface {
		// WithinTx runs fn in a single transaction: committed if fn returns nil, rolled back otherwise.
		WithinTx(ctx context.Context, fn TxFunc) error
	}
)
