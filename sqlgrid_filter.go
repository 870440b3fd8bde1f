package sqlgrid

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Default layout for parsing the values of date filters. Same as `time.DateOnly`.
const DefaultDateFormat = `2006-01-02`

// Layout of dates passed as arguments to the database.
const sqlDateFormat = `2006-01-02`

const (
	FilterKindDate        FilterKind = `date`
	FilterKindDateRange   FilterKind = `date-range`
	FilterKindRange       FilterKind = `range`
	FilterKindText        FilterKind = `text`
	FilterKindSelect      FilterKind = `select`
	FilterKindMultiSelect FilterKind = `multi-select`
	FilterKindCallback    FilterKind = `callback`
)

// Names the predicate-building policy of a `Filter`.
type FilterKind string

/*
Filter value supplied by the host application, typically one per grid column.
The set of implementations is closed: `FilterDate`, `FilterDateRange`,
`FilterRange`, `FilterText`, `FilterSelect`, `FilterMultiSelect`,
`FilterCallback`. Filters reporting no value are skipped by `ApplyFilter`.
*/
type Filter interface {
	Kind() FilterKind
	IsValueSet() bool
	filter()
}

/*
Applies the filter to the engine according to its kind. Skips filters without
a value. Either every predicate of the filter is applied, or none is.
*/
func ApplyFilter(eng *Engine, fil Filter) (err error) {
	if fil == nil || !fil.IsValueSet() {
		return nil
	}

	defer rec(&err)
	tmp := eng.clone()

	switch fil := fil.(type) {
	case FilterDate:
		fil.apply(tmp)
	case FilterDateRange:
		fil.apply(tmp)
	case FilterRange:
		fil.apply(tmp)
	case FilterText:
		fil.apply(tmp)
	case FilterSelect:
		fil.apply(tmp)
	case FilterMultiSelect:
		fil.apply(tmp)
	case FilterCallback:
		fil.apply(tmp)
	default:
		panic(errInput(`applying filter`, fmt.Errorf(`unsupported filter type %T`, fil)))
	}

	eng.commit(tmp.stmt, tmp.args)
	return
}

/*
Exact date match: "DATE(<Column>) = ?". `Value` is parsed with `Format`, which
is a Go time layout defaulting to `DefaultDateFormat`. The argument is the date
formatted as "YYYY-MM-DD".
*/
type FilterDate struct {
	Column string
	Value  string
	Format string
}

func (FilterDate) Kind() FilterKind      { return FilterKindDate }
func (self FilterDate) IsValueSet() bool { return !isBlank(self.Value) }
func (FilterDate) filter()               {}

func (self FilterDate) apply(eng *Engine) {
	date := parseDate(self.Column, self.Value, self.Format)
	try(eng.AddPredicate(dateCol(self.Column), `=`, date.Format(sqlDateFormat)))
}

/*
Date range: "DATE(<Column>) >= ?" when `From` is set, "DATE(<Column>) <= ?"
when `To` is set. Either side may be absent. Both bounds are inclusive: `From`
counts from the start of its day and `To` until the end of its day.
*/
type FilterDateRange struct {
	Column string
	From   string
	To     string
	Format string
}

func (FilterDateRange) Kind() FilterKind      { return FilterKindDateRange }
func (self FilterDateRange) IsValueSet() bool { return !isBlank(self.From) || !isBlank(self.To) }
func (FilterDateRange) filter()               {}

func (self FilterDateRange) apply(eng *Engine) {
	hasFrom, hasTo := !isBlank(self.From), !isBlank(self.To)

	var from, to time.Time
	if hasFrom {
		from = parseDate(self.Column, self.From, self.Format)
	}
	if hasTo {
		to = parseDate(self.Column, self.To, self.Format)
	}

	col := dateCol(self.Column)
	if hasFrom {
		try(eng.AddPredicate(col, `>=`, from.Format(sqlDateFormat)))
	}
	if hasTo {
		try(eng.AddPredicate(col, `<=`, to.Format(sqlDateFormat)))
	}
}

/*
Value range: "<Column> >= ?" when `From` is set, "<Column> <= ?" when `To` is
set. Nil values and blank strings count as absent. Zero numbers are valid
bounds.
*/
type FilterRange struct {
	Column string
	From   any
	To     any
}

func (FilterRange) Kind() FilterKind      { return FilterKindRange }
func (self FilterRange) IsValueSet() bool { return !isBlank(self.From) || !isBlank(self.To) }
func (FilterRange) filter()               {}

func (self FilterRange) apply(eng *Engine) {
	if !isBlank(self.From) {
		try(eng.AddPredicate(self.Column, `>=`, self.From))
	}
	if !isBlank(self.To) {
		try(eng.AddPredicate(self.Column, `<=`, self.To))
	}
}

/*
Keyword search over one or more columns. For each column, builds an OR-group of
terms. With `SplitWords`, each whitespace-delimited word of `Value` is a term,
otherwise the whole trimmed value is one term. With `Exact`, terms compare via
"=" with the raw term, otherwise via "LIKE" with "%term%". Groups of several
columns are OR-combined into one bracketed group:

	FilterText{Columns: []string{`name`}, Value: `foo bar`, SplitWords: true}
	-> `(name LIKE ? OR name LIKE ?)` with `%foo%`, `%bar%`

	FilterText{Columns: []string{`first`, `last`}, Value: `Bob`}
	-> `((first LIKE ?) OR (last LIKE ?))` with `%Bob%`, `%Bob%`
*/
type FilterText struct {
	Columns    []string
	Value      string
	Exact      bool
	SplitWords bool

	// Escapes "%", "_" and "\" in terms so they match literally, and renders
	// "LIKE ? ESCAPE '\'". Otherwise "%" and "_" act as LIKE wildcards. Ignored
	// when `Exact` is set.
	Escape bool
}

func (FilterText) Kind() FilterKind      { return FilterKindText }
func (self FilterText) IsValueSet() bool { return !isBlank(self.Value) }
func (FilterText) filter()               {}

func (self FilterText) apply(eng *Engine) {
	terms := []string{strings.TrimSpace(self.Value)}
	if self.SplitWords {
		terms = strings.Fields(self.Value)
	}

	op := `LIKE`
	if self.Exact {
		op = `=`
	}

	var group orGroup
	if self.Escape && !self.Exact {
		group.suffix = ` ESCAPE '\'`
	}

	for _, col := range self.Columns {
		var vals []any
		for _, term := range terms {
			switch {
			case self.Exact:
				vals = append(vals, term)
			case self.Escape:
				vals = append(vals, `%`+likeEscaper.Replace(term)+`%`)
			default:
				vals = append(vals, `%`+term+`%`)
			}
		}
		group.add(col, op, vals)
	}
	group.apply(eng, `applying text filter`)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Equality filter: one "<Column> = ?" predicate per condition with a value.
type FilterSelect struct {
	Conds []Cond
}

// Column and value pair used by `FilterSelect`.
type Cond struct {
	Column string
	Value  any
}

func (FilterSelect) Kind() FilterKind { return FilterKindSelect }
func (FilterSelect) filter()          {}

func (self FilterSelect) IsValueSet() bool {
	for _, val := range self.Conds {
		if !isBlank(val.Value) {
			return true
		}
	}
	return false
}

func (self FilterSelect) apply(eng *Engine) {
	for _, val := range self.Conds {
		if !isBlank(val.Value) {
			try(eng.AddPredicate(val.Column, `=`, val.Value))
		}
	}
}

/*
Multi-value equality filter. For each column with at least one value, builds a
bracketed OR-group of "<Column> = ?" terms. Groups of several columns are
OR-combined:

	FilterMultiSelect{Conds: []MultiCond{{`status`, []any{1, 2}}, {`type`, []any{9}}}}
	-> `((status = ? OR status = ?) OR (type = ?))` with 1, 2, 9
*/
type FilterMultiSelect struct {
	Conds []MultiCond
}

// Column and set of values used by `FilterMultiSelect`.
type MultiCond struct {
	Column string
	Values []any
}

func (FilterMultiSelect) Kind() FilterKind { return FilterKindMultiSelect }
func (FilterMultiSelect) filter()          {}

func (self FilterMultiSelect) IsValueSet() bool {
	for _, val := range self.Conds {
		if len(val.Values) > 0 {
			return true
		}
	}
	return false
}

func (self FilterMultiSelect) apply(eng *Engine) {
	var group orGroup
	for _, val := range self.Conds {
		if len(val.Values) > 0 {
			group.add(val.Column, `=`, val.Values)
		}
	}
	group.apply(eng, `applying multi-select filter`)
}

/*
Caller-defined filter. `Func` receives the current SQL text, the filter value,
and a copy of the current arguments, and returns replacement SQL text with its
arguments. The returned text is parsed from scratch and must contain exactly as
many placeholders as there are returned arguments, otherwise the error matches
`ErrMalformedQuery` and the engine is unchanged.
*/
type FilterCallback struct {
	Value any
	Func  func(text string, value any, args []any) (string, []any, error)
}

func (FilterCallback) Kind() FilterKind      { return FilterKindCallback }
func (self FilterCallback) IsValueSet() bool { return !isBlank(self.Value) }
func (FilterCallback) filter()               {}

func (self FilterCallback) apply(eng *Engine) {
	const while = `applying callback filter`

	if self.Func == nil {
		panic(errInput(while, fmt.Errorf(`missing callback function`)))
	}

	text, args := eng.Query()
	text, args, err := self.Func(text, self.Value, args)
	try(err)

	err = eng.Replace(text, args)
	if errors.Is(err, ErrArgCount) {
		panic(errMalformed(while, err))
	}
	try(err)
}

/*
Accumulates per-column OR-groups of "<col> <op> ?<suffix>" terms and renders
them as a single raw predicate.
*/
type orGroup struct {
	suffix string
	groups []string
	args   []any
}

func (self *orGroup) add(col, op string, vals []any) {
	const while = `building OR-group`

	col = strings.TrimSpace(col)
	if col == `` {
		panic(errInput(while, fmt.Errorf(`empty column`)))
	}
	if countPlaceholders(col) != 0 {
		panic(errInput(while, fmt.Errorf(`column %q must not contain placeholders`, col)))
	}
	if len(vals) == 0 {
		return
	}

	var buf strings.Builder
	buf.WriteByte(parenOpen)
	for ind, val := range vals {
		if ind > 0 {
			buf.WriteString(` OR `)
		}
		buf.WriteString(col)
		buf.WriteByte(' ')
		buf.WriteString(op)
		buf.WriteString(` ?`)
		buf.WriteString(self.suffix)
		self.args = append(self.args, val)
	}
	buf.WriteByte(parenClose)
	self.groups = append(self.groups, buf.String())
}

func (self orGroup) String() string {
	if len(self.groups) == 1 {
		return self.groups[0]
	}
	return `(` + strings.Join(self.groups, ` OR `) + `)`
}

func (self orGroup) apply(eng *Engine, while string) {
	if len(self.groups) == 0 {
		panic(errMalformed(while, fmt.Errorf(`empty OR-group: no column contributed a term`)))
	}
	try(eng.AddRawPredicate(self.String(), self.args...))
}

func dateCol(col string) string {
	return `DATE(` + strings.TrimSpace(col) + `)`
}

func parseDate(col, val, format string) time.Time {
	if format == `` {
		format = DefaultDateFormat
	}
	out, err := time.Parse(format, strings.TrimSpace(val))
	if err != nil {
		panic(errValue(
			`parsing date filter`,
			fmt.Errorf(`value %q for column %q doesn't match format %q: %w`, val, col, format, err),
		))
	}
	return out
}
