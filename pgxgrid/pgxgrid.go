/*
Adapter that executes statements built by "sqlgrid" through pgx. Placeholders
are rebound from "?" to "$N" before execution.

	conn, err := pgx.Connect(ctx, url)
	panic(err)

	src, err := sqlgrid.NewSource(pgxgrid.Executor{Conn: conn}, `select * from persons`)
	panic(err)
*/
package pgxgrid

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mitranim/sqlgrid"
)

// Subset of `*pgx.Conn`, `pgx.Tx` and `*pgxpool.Pool` used by `Executor`.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Implements `sqlgrid.Executor` for pgx connections and pools.
type Executor struct {
	Conn Queryer
}

var _ = sqlgrid.Executor(Executor{})

// Implement `sqlgrid.Executor`.
func (self Executor) Execute(ctx context.Context, text string, args []any) (sqlgrid.Result, error) {
	if self.Conn == nil {
		return nil, sqlgrid.Err{
			Code:  sqlgrid.ErrCodeInvalidInput,
			While: `executing query`,
			Cause: fmt.Errorf(`missing connection`),
		}
	}

	text, err := sqlgrid.Rebind(text)
	if err != nil {
		return nil, err
	}

	rows, err := self.Conn.Query(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	return &Result{Rows: rows}, nil
}

// Implements `sqlgrid.Result` over `pgx.Rows`.
type Result struct {
	Rows pgx.Rows
}

// Implement `sqlgrid.Result`.
func (self *Result) FetchOne() (sqlgrid.Row, error) {
	defer self.Rows.Close()

	if !self.Rows.Next() {
		return nil, self.Rows.Err()
	}

	row, err := rowToRow(self.Rows)
	if err != nil {
		return nil, err
	}
	self.Rows.Close()
	return row, self.Rows.Err()
}

// Implement `sqlgrid.Result`.
func (self *Result) FetchAll() ([]sqlgrid.Row, error) {
	return pgx.CollectRows(self.Rows, rowToRow)
}

// Implement `sqlgrid.Result`.
func (self *Result) Close() error {
	self.Rows.Close()
	return self.Rows.Err()
}

func rowToRow(row pgx.CollectableRow) (sqlgrid.Row, error) {
	vals, err := row.Values()
	if err != nil {
		return nil, err
	}

	fields := row.FieldDescriptions()
	out := make(sqlgrid.Row, len(vals))
	for ind, val := range vals {
		out[fields[ind].Name] = val
	}
	return out, nil
}
