package sqlgrid

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

/*
Custom ordering hook for `Source.Sort`. Receives the engine and the requested
orderings. Returns the orderings to apply, or nil if the function has already
adjusted the engine itself and no ordering should be set.
*/
type SortFunc func(eng *Engine, ords Ords) (Ords, error)

/*
Data source for a data grid: wraps one `Engine` and one `Executor`, and
implements filtering, sorting, paging, fetching and counting on top of them.

A page fetched by `Source.Limit` is cached and returned by `Source.Data`. Later
calls to `Source.Filter` or `Source.Sort` don't invalidate the cache, so paging
should be the last step. Call `Source.Limit` again to refetch.

Not safe for concurrent use.
*/
type Source struct {
	Exec     Executor
	SortFunc SortFunc

	eng     *Engine
	log     zerolog.Logger
	metrics *Metrics
	page    []Row
	cached  bool
}

/*
Creates a source for the given "select" statement and its arguments, executed
via the given executor. See `NewEngine` for the requirements on the text.
*/
func NewSource(exec Executor, src string, args ...any) (*Source, error) {
	eng, err := NewEngine(src, args...)
	if err != nil {
		return nil, err
	}
	return &Source{Exec: exec, eng: eng}, nil
}

/*
Sets the logger. Executed queries are logged at debug level, executor failures
at error level. The zero logger is disabled.
*/
func (self *Source) WithLogger(log zerolog.Logger) *Source {
	self.log = log
	return self
}

// Sets the metrics recorded for executions and rejected filters. Nil disables.
func (self *Source) WithMetrics(val *Metrics) *Source {
	self.metrics = val
	return self
}

// Returns the underlying engine.
func (self *Source) Engine() *Engine { return self.eng }

/*
Applies the filters in order, skipping filters without a value. Stops at the
first failing filter and returns its error. That filter is not applied, while
the preceding ones remain applied.
*/
func (self *Source) Filter(filters ...Filter) error {
	for _, fil := range filters {
		if fil == nil || !fil.IsValueSet() {
			continue
		}

		err := ApplyFilter(self.eng, fil)
		if err != nil {
			self.metrics.filterFailed(fil.Kind())
			self.log.Debug().Err(err).Str(`filter`, string(fil.Kind())).Msg(`filter rejected`)
			return err
		}
		self.log.Debug().Str(`filter`, string(fil.Kind())).Msg(`filter applied`)
	}
	return nil
}

/*
Adds one "<column> = ?" predicate per map entry, in sorted key order, which
makes the resulting SQL deterministic. Intended for single-row lookups.
*/
func (self *Source) FilterOne(conds map[string]any) error {
	keys := make([]string, 0, len(conds))
	for key := range conds {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fil := FilterSelect{Conds: make([]Cond, 0, len(keys))}
	for _, key := range keys {
		fil.Conds = append(fil.Conds, Cond{Column: key, Value: conds[key]})
	}
	return self.applyEquality(fil)
}

/*
Same as `Source.FilterOne`, but takes column/value pairs from the `db` tags of
the given struct, in field order. Fields with blank values are skipped.
*/
func (self *Source) FilterStruct(val any) (err error) {
	defer rec(&err)

	var fil FilterSelect
	traverseStructDbFields(val, func(col string, val any) {
		if !isBlank(val) {
			fil.Conds = append(fil.Conds, Cond{Column: col, Value: val})
		}
	})
	return self.applyEquality(fil)
}

// Unlike `FilterSelect` applied via `Filter`, nil values are compared too.
func (self *Source) applyEquality(fil FilterSelect) (err error) {
	defer rec(&err)
	tmp := self.eng.clone()
	for _, val := range fil.Conds {
		try(tmp.AddPredicate(val.Column, `=`, val.Value))
	}
	self.eng.commit(tmp.stmt, tmp.args)
	return
}

/*
Sets the ordering. When `SortFunc` is set, it's called first and may replace
the orderings or handle ordering itself by returning nil.
*/
func (self *Source) Sort(ords Ords) (*Source, error) {
	if self.SortFunc != nil {
		out, err := self.SortFunc(self.eng, ords)
		if err != nil {
			return self, err
		}
		if out == nil {
			return self, nil
		}
		ords = out
	}
	return self, self.eng.SetOrderBy(ords)
}

// Shortcut for `ParseOrds` followed by `Source.Sort`.
func (self *Source) SortBy(src string) (*Source, error) {
	ords, err := ParseOrds(src)
	if err != nil {
		return self, err
	}
	return self.Sort(ords)
}

/*
Sets paging, then immediately fetches and caches the page. Note the argument
order: offset first, then row count.
*/
func (self *Source) Limit(ctx context.Context, offset, count int64) (*Source, error) {
	err := self.eng.SetLimit(count, offset)
	if err != nil {
		return self, err
	}

	text, args := self.eng.Query()
	rows, err := self.fetchAll(ctx, `limit`, text, args)
	if err != nil {
		return self, err
	}

	self.page = rows
	self.cached = true
	return self, nil
}

/*
Returns the cached page if `Source.Limit` fetched one. Otherwise executes the
current statement and returns all rows.
*/
func (self *Source) Data(ctx context.Context) ([]Row, error) {
	if self.cached {
		return self.page, nil
	}
	text, args := self.eng.Query()
	return self.fetchAll(ctx, `data`, text, args)
}

/*
Executes the count statement derived from the current statement. Returns 0 if
the executor yields no row. A row without the "count" column is an error
matching `ErrMalformedQuery`.
*/
func (self *Source) Count(ctx context.Context) (int64, error) {
	text, args := self.eng.CountQuery()

	res, err := self.execute(ctx, `count`, text, args)
	if err != nil {
		return 0, err
	}
	defer res.Close()

	row, err := res.FetchOne()
	if err != nil {
		return 0, self.fail(`count`, text, err)
	}
	if row == nil {
		return 0, nil
	}

	val, ok := row.Get(`count`)
	if !ok {
		return 0, errMalformed(`reading count`, fmt.Errorf(`missing column "count" in result row`))
	}
	out, err := countValue(val)
	if err != nil {
		return 0, errMalformed(`reading count`, err)
	}
	return out, nil
}

/*
Returns the current SQL text and arguments without executing anything. Intended
for debugging and logging.
*/
func (self *Source) Query() (string, []any) { return self.eng.Query() }

func (self *Source) fetchAll(ctx context.Context, op, text string, args []any) ([]Row, error) {
	res, err := self.execute(ctx, op, text, args)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	rows, err := res.FetchAll()
	if err != nil {
		return nil, self.fail(op, text, err)
	}
	return rows, nil
}

func (self *Source) execute(ctx context.Context, op, text string, args []any) (Result, error) {
	if self.Exec == nil {
		return nil, errInput(`executing query`, fmt.Errorf(`missing executor`))
	}

	self.log.Debug().Str(`op`, op).Str(`sql`, text).Int(`args`, len(args)).Msg(`executing query`)

	start := time.Now()
	res, err := self.Exec.Execute(ctx, text, args)
	self.metrics.observeQuery(op, start)
	if err != nil {
		return nil, self.fail(op, text, err)
	}
	return res, nil
}

func (self *Source) fail(op, text string, err error) error {
	self.metrics.queryFailed(op)
	self.log.Error().Err(err).Str(`op`, op).Str(`sql`, text).Msg(`query failed`)
	return Err{Code: ErrCodeExec, While: `executing ` + op + ` query`, Cause: err}
}
