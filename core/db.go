package core

import (
	"context"
	"database/sql"

	"github.com/trezcool/masomo/core/datatable"
)

type (
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		Begin() (*sql.Tx, error)
		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderingFromSort maps a table sort to a DB ordering; the zero Sort yields none.
func OrderingFromSort(s datatable.Sort) []DBOrdering {
	if s.IsZero() {
		return nil
	}
	return []DBOrdering{{Field: s.Key, Ascending: s.IsAscending()}}
}

// Page is a 1-based page of results. The zero Page means all results.
type Page struct {
	Number int
	Size   int
}

func (p Page) IsZero() bool { return p.Size <= 0 }

func (p Page) Offset() int {
	if p.IsZero() || p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

func (p Page) Limit() int {
	if p.IsZero() {
		return 0
	}
	return p.Size
}
