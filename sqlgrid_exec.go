package sqlgrid

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

/*
Executes SQL with positional "?" placeholders on behalf of `Source`. Implemented
by `DbExecutor` for "database/sql" and by `pgxgrid.Executor` for pgx.
*/
type Executor interface {
	Execute(ctx context.Context, text string, args []any) (Result, error)
}

/*
Handle to the rows produced by `Executor.Execute`. Both fetch methods consume
the handle. `Close` must be safe to call after fetching.
*/
type Result interface {
	// Returns the first row, or nil when there are no rows.
	FetchOne() (Row, error)
	FetchAll() ([]Row, error)
	Close() error
}

// One result row, keyed by column name.
type Row map[string]any

// Returns the value of the given column and whether the column exists.
func (self Row) Get(key string) (any, bool) {
	val, ok := self[key]
	return val, ok
}

// Subset of `*sql.DB`, `*sql.Tx` and `*sql.Conn` used by `DbExecutor`.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

/*
Implements `Executor` on top of "database/sql". Suitable for drivers using "?"
placeholders, such as SQLite and MySQL. For Postgres, wrap the text with
`Rebind` or use the "pgxgrid" package.
*/
type DbExecutor struct {
	Db Queryer
}

// Implement `Executor`.
func (self DbExecutor) Execute(ctx context.Context, text string, args []any) (Result, error) {
	if self.Db == nil {
		return nil, errInput(`executing query`, fmt.Errorf(`missing database handle`))
	}
	rows, err := self.Db.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	return &DbResult{Rows: rows}, nil
}

// Implements `Result` over `*sql.Rows`.
type DbResult struct {
	Rows *sql.Rows
}

// Implement `Result`.
func (self *DbResult) FetchOne() (Row, error) {
	defer self.Rows.Close()

	cols, err := self.Rows.Columns()
	if err != nil {
		return nil, err
	}
	if !self.Rows.Next() {
		return nil, self.Rows.Err()
	}

	row, err := scanRow(self.Rows, cols)
	if err != nil {
		return nil, err
	}
	return row, self.Rows.Close()
}

// Implement `Result`.
func (self *DbResult) FetchAll() (out []Row, err error) {
	defer self.Rows.Close()

	cols, err := self.Rows.Columns()
	if err != nil {
		return nil, err
	}

	out = []Row{}
	for self.Rows.Next() {
		row, err := scanRow(self.Rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, self.Rows.Err()
}

// Implement `Result`.
func (self *DbResult) Close() error { return self.Rows.Close() }

func scanRow(rows *sql.Rows, cols []string) (Row, error) {
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for ind := range vals {
		ptrs[ind] = &vals[ind]
	}

	err := rows.Scan(ptrs...)
	if err != nil {
		return nil, err
	}

	out := make(Row, len(cols))
	for ind, col := range cols {
		// Drivers may reuse byte buffers between rows.
		if val, ok := vals[ind].([]byte); ok {
			out[col] = string(val)
			continue
		}
		out[col] = vals[ind]
	}
	return out, nil
}

// Converts the value of a COUNT aggregate, as returned by various drivers.
func countValue(val any) (int64, error) {
	switch val := val.(type) {
	case nil:
		return 0, nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float64:
		return int64(val), nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	case []byte:
		return strconv.ParseInt(string(val), 10, 64)
	default:
		return 0, fmt.Errorf(`unsupported count value %#v of type %T`, val, val)
	}
}
