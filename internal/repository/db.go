// Package repository implements tenant-scoped CRUD over Postgres. Every
// exported function takes a pool/tx handle first; functions over a
// court-owned table also take a court id and include court_id in every
// query predicate, so a caller can never read or write across tenants by
// accident. Users, refresh tokens, device authorizations, role requests
// looked up by id, and excludable delays looked up by clock id are not
// keyed by court.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/districtcms/backend/internal/apperr"
)

// pqUniqueViolation is the Postgres error code for a unique-constraint
// violation (e.g. the "one pending role request" or duplicate
// case/docket-entry-number constraints).
const pqUniqueViolation = "23505"

// DBTX is satisfied by *sqlx.DB, *sqlx.Tx, and (for tests) a plain
// sqlmock-backed *sql.DB, so repository functions run unmodified inside or
// outside an explicit transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabaseError, "failed to open database connection", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindDatabaseError, "failed to reach database", err)
	}
	return db, nil
}

// WithTx runs fn inside a transaction, committing on a nil return and
// rolling back otherwise (including on panic).
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindDatabaseError, "failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}

func wrapDBErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return err
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return apperr.Conflict("duplicate or conflicting record")
	}
	return apperr.Wrap(apperr.KindDatabaseError, "database operation failed", err)
}
