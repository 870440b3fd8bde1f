package sqlgrid

import (
	"fmt"
	"strings"
)

/*
Query engine: owns one parsed `Stmt` together with the ordered list of
arguments for its "?" placeholders, and keeps the two aligned across every
mutation. Each exported method either fully applies its change or leaves the
engine untouched and returns an error.

Not safe for concurrent mutation.

Usage:

	eng, err := NewEngine(`select * from persons where age > ?`, 18)
	panic(err)

	panic(eng.AddPredicate(`name`, `=`, `Bob`))
	panic(eng.SetLimit(10, 20))

	text, args := eng.Query()
	// `SELECT * FROM persons WHERE age > ? AND name = ? LIMIT 10 OFFSET 20`
	// []any{18, `Bob`}
*/
type Engine struct {
	stmt Stmt
	args []any
}

/*
Parses the SQL text and pairs it with the given arguments. The count of
placeholders must equal the count of arguments, otherwise the error matches
`ErrArgCount`.
*/
func NewEngine(src string, args ...any) (*Engine, error) {
	var out Engine
	err := out.Replace(src, args)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Returns a copy of the current statement.
func (self *Engine) Stmt() Stmt { return self.stmt.Clone() }

// Returns a copy of the current arguments.
func (self *Engine) Args() []any { return copyArgs(self.args) }

/*
Returns the rendered SQL and a copy of the arguments, aligned 1-1 with the
placeholders in the text.
*/
func (self *Engine) Query() (string, []any) {
	return resolveMarkers(self.stmt.String()), copyArgs(self.args)
}

/*
Replaces the statement and arguments wholesale. The new text is parsed from
scratch. The count of its placeholders must equal the count of arguments.
*/
func (self *Engine) Replace(src string, args []any) (err error) {
	defer rec(&err)

	stmt := parse(src)
	if count := stmt.ParamCount(); count != len(args) {
		panic(errArgCount(`replacing statement`, count, len(args)))
	}
	self.commit(stmt, copyArgs(args))
	return
}

/*
Appends the predicate "<col> <op> ?" to the WHERE clause, AND-ed with existing
predicates, and inserts the value into the arguments at the position of the new
placeholder. `col` may be a column path or an expression such as "DATE(col)",
but may not contain placeholders. `op` must be one of the comparison operators
listed in `Ops`.
*/
func (self *Engine) AddPredicate(col, op string, val any) (err error) {
	defer rec(&err)
	const while = `adding predicate`

	col = strings.TrimSpace(col)
	if col == `` {
		panic(errInput(while, fmt.Errorf(`empty column`)))
	}
	if countPlaceholders(col) != 0 {
		panic(errInput(while, fmt.Errorf(`column %q must not contain placeholders`, col)))
	}

	op = strings.ToUpper(normSpace(op))
	if !Ops[op] {
		panic(errInput(while, fmt.Errorf(`unsupported operator %q`, op)))
	}

	next := self.stmt.Clone()
	marker := newMarker()
	next.appendWhere(Col(col), Op(op), marker)

	last := len(next.Where) - 1
	index := next.paramsBeforeWhere(last)

	located, err := LocatePlaceholder(next.String(), marker)
	try(err)
	if located != index {
		panic(errMalformed(while, fmt.Errorf(
			`placeholder for %q located at index %v, expected %v`, col, located, index,
		)))
	}

	next.Where[last] = Param{}
	self.commit(next, insertAt(self.args, index, val))
	return
}

/*
Appends a raw boolean SQL fragment to the WHERE clause, AND-ed with existing
predicates. The fragment's placeholders must match the given arguments in count
and order. The arguments are inserted at the position of the fragment's first
placeholder.

The fragment is validated by parsing it as the WHERE clause of a throwaway
statement. A fragment with several top-level conjuncts is bracketed, keeping it
a single predicate group.
*/
func (self *Engine) AddRawPredicate(frag string, args ...any) (err error) {
	defer rec(&err)
	const while = `adding raw predicate`

	if strings.TrimSpace(frag) == `` {
		panic(errSyntax(while, fmt.Errorf(`empty predicate`)))
	}

	node := rawPredicate(frag)
	if count := node.ParamCount(); count != len(args) {
		panic(errArgCount(while, count, len(args)))
	}

	next := self.stmt.Clone()
	next.appendWhere(node)
	index := next.paramsBeforeWhere(len(next.Where) - 1)

	self.commit(next, insertAt(self.args, index, args...))
	return
}

func rawPredicate(frag string) Node {
	const while = `adding raw predicate`

	helper, err := Parse(`SELECT * FROM t WHERE ` + frag)
	if err != nil {
		panic(errSyntax(while, err))
	}
	if helper.Tail != `` || len(helper.Order) > 0 || helper.Limit != nil {
		panic(errSyntax(while, fmt.Errorf(`fragment %q is not a boolean expression`, frag)))
	}

	switch len(helper.Where) {
	case 0:
		panic(errMalformed(while, fmt.Errorf(`fragment %q produced no predicate`, frag)))
	case 1:
		return helper.Where[0]
	}

	var buf []byte
	buf = append(buf, parenOpen)
	for ind, val := range helper.Where {
		if ind > 0 {
			buf = append(buf, ' ')
		}
		buf = val.Append(buf)
	}
	buf = append(buf, parenClose)
	return Raw(buf)
}

/*
Replaces the ORDER BY clause wholesale. Empty `Ords` remove the clause. Any
arguments used by placeholders of the previous clause are dropped. New orderings
must not contain placeholders.
*/
func (self *Engine) SetOrderBy(ords Ords) (err error) {
	defer rec(&err)
	const while = `setting order`

	for _, val := range ords {
		if strings.TrimSpace(val.Expr) == `` {
			panic(errInput(while, fmt.Errorf(`empty ordering expression`)))
		}
		if val.ParamCount() != 0 {
			panic(errInput(while, fmt.Errorf(`ordering %q must not contain placeholders`, val.Expr)))
		}
	}

	next := self.stmt.Clone()
	args := removeAt(self.args, next.paramsBeforeOrder(), next.Order.ParamCount())
	next.Order = cloneSlice(ords)
	self.commit(next, args)
	return
}

// Replaces the LIMIT clause wholesale. Both numbers must be non-negative.
func (self *Engine) SetLimit(count, offset int64) error {
	if count < 0 || offset < 0 {
		return errInput(`setting limit`, fmt.Errorf(`expected non-negative limit and offset, got %v and %v`, count, offset))
	}
	next := self.stmt.Clone()
	next.Limit = &Limit{Count: count, Offset: offset}
	self.commit(next, copyArgs(self.args))
	return nil
}

// Removes the LIMIT clause, if any.
func (self *Engine) ClearLimit() {
	next := self.stmt.Clone()
	next.Limit = nil
	self.commit(next, copyArgs(self.args))
}

// Returns the statement counting the rows matched by the current statement.
// See `Stmt.CountStmt`.
func (self *Engine) CountStmt() Stmt { return self.stmt.CountStmt() }

/*
Returns the rendered count statement and its arguments. Arguments belonging to
clauses dropped by the count statement are dropped too.
*/
func (self *Engine) CountQuery() (string, []any) {
	stmt := self.stmt
	args := removeAt(self.args, stmt.paramsBeforeOrder(), stmt.Order.ParamCount())
	if !stmt.isAggregate() {
		args = removeAt(args, 0, stmt.paramsSelect())
	}
	return resolveMarkers(stmt.CountStmt().String()), args
}

func (self *Engine) clone() *Engine {
	return &Engine{stmt: self.stmt.Clone(), args: copyArgs(self.args)}
}

// The single point where engine state changes.
func (self *Engine) commit(stmt Stmt, args []any) {
	self.stmt = stmt
	self.args = args
}

/*
Comparison operators accepted by `Engine.AddPredicate`, in canonical uppercase
form with single spaces.
*/
var Ops = map[string]bool{
	`=`:         true,
	`<>`:        true,
	`!=`:        true,
	`<`:         true,
	`>`:         true,
	`<=`:        true,
	`>=`:        true,
	`LIKE`:      true,
	`NOT LIKE`:  true,
	`ILIKE`:     true,
	`NOT ILIKE`: true,
}
