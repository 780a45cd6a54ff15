// Package repository implements the PostgreSQL storage of customers,
// products, warranties and staff accounts.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
)

// Constraint names reported on unique violations.
const (
	ConstraintRequestToken   = "customers_request_token_key"
	ConstraintUserEmail      = "users_email_key"
	ConstraintWarrantyNumber = "idx_warranties_number"
	ConstraintProductName    = "products_name_key"
)

// Storage wraps the PostgreSQL connection pool.
type Storage struct {
	DB *sql.DB
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the pool and checks that the server answers.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return apperr.Backend("storage.Ping", s.DB.PingContext(ctx))
}

// Close releases the pool.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// CheckDatabaseReady verifies that the schema has been applied.
func CheckDatabaseReady(ctx context.Context, storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = 'warranties'
	)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("storage.CheckDatabaseReady: %w", err)
	}
	if !exists {
		return errors.New("storage.CheckDatabaseReady: table warranties is missing")
	}
	return nil
}

// withTx runs fn inside a transaction and commits when it returns nil.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func ctxDone(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return apperr.Backend(op, ctx.Err())
	default:
		return nil
	}
}

// notFound turns sql.ErrNoRows into a not_found error carrying code.
func notFound(op, code string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &apperr.Error{Kind: apperr.KindNotFound, Op: op, Code: code, Err: err}
	}
	return apperr.Backend(op, err)
}

func expectRows(res sql.Result, op, code string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Backend(op, err)
	}
	if n == 0 {
		return apperr.NotFound(op, code)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Storage) count(ctx context.Context, op, query string) (int, error) {
	if err := ctxDone(ctx, op); err != nil {
		return 0, err
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, apperr.Backend(op, err)
	}
	return n, nil
}
