/*
SQL Grid: rewrites a plain SQL "select" statement for data grids. You hand it a
finished query with positional "?" placeholders and its arguments, then
incrementally add WHERE predicates from independent filters, replace ORDER BY,
set LIMIT/OFFSET, and derive a matching COUNT(*) query. The list of arguments
always stays aligned with the placeholders of the rewritten text.

Key Features

• You write plain SQL. The statement is parsed into a small structural model
(`Stmt`): select list, opaque FROM region, WHERE predicates, opaque
GROUP BY/HAVING region, orderings, limit.

• Predicates can be added in any order, any number of times. The position of
each new placeholder is computed from the structure, then verified against the
rendered text using a unique marker, and the argument is inserted at exactly
that position.

• Filter policies for grids: exact date, date range, value range, keyword
search, single select, multi-select, and caller-defined callbacks.

• Executors for "database/sql" (`DbExecutor`) and pgx (package "pgxgrid").

Examples

	src, err := sqlgrid.NewSource(
		sqlgrid.DbExecutor{Db: db},
		`select * from persons where deleted_at is null`,
	)
	panic(err)

	panic(src.Filter(
		sqlgrid.FilterText{Columns: []string{`name`}, Value: `bob`},
		sqlgrid.FilterRange{Column: `age`, From: 18},
	))

	_, err = src.SortBy(`name desc`)
	panic(err)

	count, err := src.Count(ctx)
	panic(err)

	_, err = src.Limit(ctx, 0, 20)
	panic(err)

	rows, err := src.Data(ctx)
	panic(err)
*/
package sqlgrid
