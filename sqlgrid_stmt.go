package sqlgrid

import (
	"slices"
	"strconv"
	"strings"
)

/*
Structural representation of one SQL "select" statement, as produced by `Parse`
and mutated by `Engine`. Each clause is independently addressable:

	select <Select...> from <From> where <Where...> <Tail> order by <Order...> limit <Limit>

`From` is an opaque span covering the FROM/JOIN region. `Tail` is an opaque
span covering "group by"/"having", if any. `Where` is a flat sequence of
predicate nodes rendered left to right, with explicit `And` connectives between
predicate groups.

Every `?` placeholder in the rendered text corresponds to exactly one argument
held by the owning `Engine`, at the same ordinal position.
*/
type Stmt struct {
	Select []Raw
	From   Raw
	Where  []Node
	Tail   Raw
	Order  Ords
	Limit  *Limit
}

/*
Returns a copy that shares no mutable state with the original. Nodes and ords
are values, so copying the slices is enough.
*/
func (self Stmt) Clone() Stmt {
	self.Select = cloneSlice(self.Select)
	self.Where = cloneSlice(self.Where)
	self.Order = cloneSlice(self.Order)
	if self.Limit != nil {
		val := *self.Limit
		self.Limit = &val
	}
	return self
}

// Renders the statement as SQL text. Always succeeds.
func (self Stmt) Append(text []byte) []byte {
	text = append(text, `SELECT `...)
	for ind, val := range self.Select {
		if ind > 0 {
			text = append(text, `, `...)
		}
		text = val.Append(text)
	}

	text = append(text, ` FROM `...)
	text = self.From.Append(text)

	if len(self.Where) > 0 {
		text = append(text, ` WHERE`...)
		for _, val := range self.Where {
			text = append(text, ' ')
			text = val.Append(text)
		}
	}

	if self.Tail != `` {
		text = append(text, ' ')
		text = self.Tail.Append(text)
	}

	if len(self.Order) > 0 {
		text = append(text, ' ')
		text = self.Order.Append(text)
	}

	if self.Limit != nil {
		text = append(text, ' ')
		text = self.Limit.Append(text)
	}
	return text
}

// Implement `fmt.Stringer`. Returns the rendered SQL text.
func (self Stmt) String() string { return bytesToMutableString(self.Append(nil)) }

// Total count of placeholders in the rendered statement.
func (self Stmt) ParamCount() int {
	return self.paramsBeforeOrder() + self.Order.ParamCount()
}

func (self Stmt) paramsSelect() (out int) {
	for _, val := range self.Select {
		out += val.ParamCount()
	}
	return
}

/*
Count of placeholders rendered before the WHERE node at the given index. Using
`len(self.Where)` counts everything up to the end of the WHERE clause.
*/
func (self Stmt) paramsBeforeWhere(index int) (out int) {
	out = self.paramsSelect() + self.From.ParamCount()
	for _, val := range self.Where[:index] {
		out += val.ParamCount()
	}
	return
}

func (self Stmt) paramsBeforeOrder() int {
	return self.paramsBeforeWhere(len(self.Where)) + self.Tail.ParamCount()
}

// Appends nodes to the WHERE clause, joined by `And` to existing predicates.
func (self *Stmt) appendWhere(nodes ...Node) {
	if len(nodes) == 0 {
		return
	}
	if len(self.Where) > 0 {
		self.Where = append(self.Where, And{})
	}
	self.Where = append(self.Where, nodes...)
}

/*
Predicate node in `Stmt.Where`. The set of implementations is closed: `Col`,
`Op`, `Param`, `Marker`, `Raw`, `And`.
*/
type Node interface {
	Append([]byte) []byte
	ParamCount() int
	node()
}

// Column reference, rendered verbatim. May be an expression such as
// "DATE(col)", but never contains placeholders.
type Col string

func (self Col) Append(text []byte) []byte { return append(text, self...) }
func (self Col) ParamCount() int           { return 0 }
func (Col) node()                          {}

// Comparison operator such as "=" or "LIKE".
type Op string

func (self Op) Append(text []byte) []byte { return append(text, self...) }
func (self Op) ParamCount() int           { return 0 }
func (Op) node()                          {}

// Literal "?" placeholder.
type Param struct{}

func (Param) Append(text []byte) []byte { return append(text, placeholder) }
func (Param) ParamCount() int           { return 1 }
func (Param) node()                     {}

/*
Unique token standing in for a placeholder while its position is being located.
Doesn't count as a placeholder. Never survives past a single engine operation.
*/
type Marker string

func (self Marker) Append(text []byte) []byte { return append(text, self...) }
func (self Marker) ParamCount() int           { return 0 }
func (Marker) node()                          {}

/*
Raw SQL span: a boolean sub-expression in `Stmt.Where`, or an opaque clause
fragment elsewhere. May contain placeholders. Whitespace is normalized by the
parser, so rendering is deterministic.
*/
type Raw string

func (self Raw) Append(text []byte) []byte { return append(text, self...) }

// Counts "?" placeholders outside quotes and comments. Panics on malformed text.
func (self Raw) ParamCount() int { return countPlaceholders(string(self)) }

func (Raw) node() {}

// "AND" connective.
type And struct{}

func (And) Append(text []byte) []byte { return append(text, `AND`...) }
func (And) ParamCount() int           { return 0 }
func (And) node()                     {}

/*
Represents "limit <Count> offset <Offset>". Zero offset is omitted when
rendering.
*/
type Limit struct {
	Count  int64
	Offset int64
}

func (self Limit) Append(text []byte) []byte {
	text = append(text, `LIMIT `...)
	text = strconv.AppendInt(text, self.Count, 10)
	if self.Offset > 0 {
		text = append(text, ` OFFSET `...)
		text = strconv.AppendInt(text, self.Offset, 10)
	}
	return text
}

func (self Limit) String() string { return bytesToMutableString(self.Append(nil)) }

/*
Returns a statement counting the rows matched by this statement. Ordering and
limit are dropped. When the statement groups rows, selects distinct rows, or
calls aggregate functions in its select list, counting must happen over the
result rows, so the statement is wrapped as a derived table.
*/
func (self Stmt) CountStmt() Stmt {
	if self.isAggregate() {
		inner := self.Clone()
		inner.Order = nil
		inner.Limit = nil
		return Stmt{
			Select: []Raw{countExpr},
			From:   Raw(`(` + inner.String() + `) AS _`),
		}
	}

	out := self.Clone()
	out.Select = []Raw{countExpr}
	out.Order = nil
	out.Limit = nil
	return out
}

const countExpr Raw = `COUNT(*) AS count`

func (self Stmt) isAggregate() bool {
	if self.Tail != `` {
		return true
	}
	if len(self.Select) > 0 && isDistinct(string(self.Select[0])) {
		return true
	}
	for _, val := range self.Select {
		if hasAggregateCall(string(val)) {
			return true
		}
	}
	return false
}

// True for "distinct a", "DISTINCT(a)", "distinct on (a) a" and so on.
func isDistinct(src string) bool {
	toks := sigTokens(src)
	return len(toks) > 0 && toks[0].IsKeyword(`DISTINCT`)
}

/*
True if the select item calls an aggregate function outside of subqueries, which
collapses the result to one row per group. Window calls such as
"count(*) over (...)" don't collapse rows and are ignored.
*/
func hasAggregateCall(src string) bool {
	toks := sigTokens(src)
	var subqueries []bool

	for ind, tok := range toks {
		switch tok.Type {
		case TokenTypeParenOpen:
			subqueries = append(subqueries, ind+1 < len(toks) && toks[ind+1].IsKeyword(`SELECT`))

		case TokenTypeParenClose:
			if len(subqueries) > 0 {
				subqueries = subqueries[:len(subqueries)-1]
			}

		case TokenTypeWord:
			if !aggregateFuncs[strings.ToUpper(tok.Text)] || slices.Contains(subqueries, true) {
				continue
			}
			if ind+1 >= len(toks) || toks[ind+1].Type != TokenTypeParenOpen {
				continue
			}
			end := closingParen(toks, ind+1)
			if end+1 < len(toks) && toks[end+1].IsKeyword(`OVER`) {
				continue
			}
			return true
		}
	}
	return false
}

var aggregateFuncs = map[string]bool{
	`COUNT`: true, `SUM`: true, `AVG`: true, `MIN`: true, `MAX`: true,
	`TOTAL`: true, `EVERY`: true, `BOOL_AND`: true, `BOOL_OR`: true,
	`BIT_AND`: true, `BIT_OR`: true, `ARRAY_AGG`: true, `STRING_AGG`: true,
	`JSON_AGG`: true, `JSONB_AGG`: true, `JSON_OBJECT_AGG`: true,
	`GROUP_CONCAT`: true, `JSON_GROUP_ARRAY`: true, `JSON_GROUP_OBJECT`: true,
	`LISTAGG`: true, `STDDEV`: true, `VARIANCE`: true,
}

// Index of the paren closing the one at `open`, or the last index.
func closingParen(toks []Token, open int) int {
	var depth int
	for ind := open; ind < len(toks); ind++ {
		switch toks[ind].Type {
		case TokenTypeParenOpen:
			depth++
		case TokenTypeParenClose:
			depth--
			if depth == 0 {
				return ind
			}
		}
	}
	return len(toks) - 1
}

// Tokens other than whitespace and comments.
func sigTokens(src string) (out []Token) {
	tokenizer := Tokenizer{Source: src}
	for _, tok := range tokenizer.All() {
		if !tok.IsBlank() {
			out = append(out, tok)
		}
	}
	return
}

func cloneSlice[A any](src []A) []A {
	if src == nil {
		return nil
	}
	out := make([]A, len(src))
	copy(out, src)
	return out
}
