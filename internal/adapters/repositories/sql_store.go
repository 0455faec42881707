package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"train-allocation-service/internal/platform/retry"
	"train-allocation-service/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "postgres"
}

// SQLStore implements the storage ports over database/sql.
//
// Queries are written with Postgres placeholders ($1, $2, ...) and rebound to
// SQLite's numbered form (?1, ?2, ...) when needed. Inside RunInTx every call
// made with the callback's context runs on the same *sql.Tx.
type SQLStore struct {
	DB      *sql.DB
	Dialect Dialect
	// Origin is the dispatching city every order leaves from.
	Origin string
	Retry  retry.Policy
}

var (
	_ ports.CapacityLedger       = (*SQLStore)(nil)
	_ ports.TxManager            = (*SQLStore)(nil)
	_ ports.TripRepository       = (*SQLStore)(nil)
	_ ports.AllocationRepository = (*SQLStore)(nil)
	_ ports.OrderRepository      = (*SQLStore)(nil)
	_ ports.ProductCatalog       = (*SQLStore)(nil)
	_ ports.ReportRepository     = (*SQLStore)(nil)
)

func NewSQLStore(db *sql.DB, dialect Dialect, origin string) *SQLStore {
	return &SQLStore{DB: db, Dialect: dialect, Origin: origin, Retry: retry.Default}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

func txFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

func (s *SQLStore) conn(ctx context.Context) (querier, error) {
	if s.DB == nil {
		return nil, errors.New("sql store: DB is nil")
	}
	if tx, ok := txFrom(ctx); ok {
		return tx, nil
	}
	return s.DB, nil
}

var pgPlaceholder = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $n placeholders for the given dialect.
func rebind(d Dialect, query string) string {
	if d == SQLite {
		return pgPlaceholder.ReplaceAllString(query, "?$1")
	}
	return query
}

func (s *SQLStore) q(query string) string {
	return rebind(s.Dialect, query)
}

// lockClause row-locks selected rows on Postgres when running inside a
// transaction. SQLite already serializes writers on its single connection.
func (s *SQLStore) lockClause(ctx context.Context) string {
	if _, ok := txFrom(ctx); ok && s.Dialect == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// RunInTx implements ports.TxManager. Serialization failures, deadlocks and
// lock timeouts roll back and retry fn from scratch.
func (s *SQLStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}
	if s.DB == nil {
		return errors.New("sql store: DB is nil")
	}

	return retry.Do(ctx, s.Retry, s.isTransient, func() error {
		return s.runOnce(ctx, nil, fn)
	})
}

func (s *SQLStore) runOnce(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("sql store: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sql store: commit tx: %w", err)
	}
	return nil
}

// readSnapshot runs fn in a read-only transaction so multi-statement reports
// never mix pre- and post-reservation state.
func (s *SQLStore) readSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}
	if s.DB == nil {
		return errors.New("sql store: DB is nil")
	}

	var opts *sql.TxOptions
	if s.Dialect == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return s.runOnce(ctx, opts, fn)
}

func (s *SQLStore) isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return true
		}
		return false
	}

	if s.Dialect == SQLite {
		msg := err.Error()
		return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
	}
	return false
}

func (s *SQLStore) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
