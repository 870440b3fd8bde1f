package sqlgrid

import (
	"fmt"
	"strconv"
	"strings"
)

/*
Parses SQL text into a `Stmt`. The text must be a single "select" statement
with positional "?" placeholders:

	SELECT <list> FROM <from/join region>
	[WHERE <predicates>]
	[GROUP BY ... HAVING ...]
	[ORDER BY <orderings>]
	[LIMIT <n> [OFFSET <m>]]

The FROM region and the "group by"/"having" region are kept as opaque spans.
Comments are dropped. A WHERE clause is split into its top-level conjuncts.
Simple conjuncts such as "col = ?" become `Col`, `Op`, `Param` nodes; anything
else becomes a `Raw` node. A WHERE clause with a top-level OR is kept as a
single bracketed `Raw` node, so that later AND-ed predicates apply to the whole
disjunction.

Returns an error matching `ErrSyntax` when the text is not a recognizable
"select": missing SELECT or FROM, unbalanced parentheses, unterminated string
literals or comments, compound statements, several statements separated by
semicolons, non-literal LIMIT/OFFSET. A single trailing semicolon is allowed.
*/
func Parse(src string) (out Stmt, err error) {
	defer rec(&err)
	out = parse(src)
	return
}

func parse(src string) Stmt {
	var self parser
	self.init(src)
	return self.stmt()
}

const (
	sectionSelect section = iota
	sectionFrom
	sectionWhere
	sectionTail
	sectionOrder
	sectionLimit
)

type section byte

type parser struct {
	toks   []Token
	depths []int
	bounds [sectionLimit + 1]span
}

// Half-open token range. Zero value means "absent".
type span struct {
	ok     bool
	lo, hi int
}

func (self *parser) init(src string) {
	tokenizer := Tokenizer{Source: src}

	for _, tok := range tokenizer.All() {
		if tok.IsBlank() {
			tok = Token{` `, TokenTypeWhitespace}
			if len(self.toks) > 0 && self.toks[len(self.toks)-1].Type == TokenTypeWhitespace {
				continue
			}
		}
		self.toks = append(self.toks, tok)
	}

	self.trimEnd()

	var depth int
	self.depths = make([]int, len(self.toks))
	for ind, tok := range self.toks {
		if tok.Type == TokenTypeParenClose {
			depth--
			if depth < 0 {
				panic(errSyntax(`parsing SQL`, fmt.Errorf(`unbalanced parentheses: unexpected %q`, tok.Text)))
			}
		}
		self.depths[ind] = depth
		if tok.Type == TokenTypeParenOpen {
			depth++
		}
	}
	if depth != 0 {
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`unbalanced parentheses: %v unclosed`, depth)))
	}
}

// Drops trailing whitespace and semicolons.
func (self *parser) trimEnd() {
	for len(self.toks) > 0 {
		last := self.toks[len(self.toks)-1]
		if last.Type == TokenTypeWhitespace || (last.Type == TokenTypeSymbol && strings.Trim(last.Text, `;`) == ``) {
			self.toks = self.toks[:len(self.toks)-1]
			continue
		}
		return
	}
}

func (self *parser) stmt() (out Stmt) {
	self.split()

	out.Select = parseList(self, self.bounds[sectionSelect], `select list`, func(lo, hi int) Raw {
		return Raw(self.join(lo, hi))
	})

	out.From = Raw(self.join(self.bounds[sectionFrom].lo, self.bounds[sectionFrom].hi))
	if out.From == `` {
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`empty FROM clause`)))
	}

	if bound := self.bounds[sectionWhere]; bound.ok {
		out.Where = self.where(bound.lo, bound.hi)
	}

	if bound := self.bounds[sectionTail]; bound.ok {
		out.Tail = Raw(self.join(bound.lo, bound.hi))
	}

	if bound := self.bounds[sectionOrder]; bound.ok {
		out.Order = parseList(self, bound, `order by`, self.ord)
	}

	if bound := self.bounds[sectionLimit]; bound.ok {
		val := self.limit(bound.lo, bound.hi)
		out.Limit = &val
	}
	return
}

/*
Finds the boundaries of top-level clauses. Clause keywords nested in parens
belong to subqueries or function calls and are ignored.
*/
func (self *parser) split() {
	first := self.nextSig(0)
	if first < 0 || !self.toks[first].IsKeyword(`SELECT`) {
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`expected statement to begin with SELECT`)))
	}

	cur := sectionSelect
	self.bounds[cur] = span{true, first + 1, len(self.toks)}

	enter := func(next section, keyword, body int) {
		self.bounds[cur].hi = keyword
		cur = next
		self.bounds[cur] = span{true, body, len(self.toks)}
	}

	for ind := first + 1; ind < len(self.toks); ind++ {
		tok := self.toks[ind]
		if tok.Type == TokenTypeSymbol && strings.Contains(tok.Text, `;`) {
			panic(errSyntax(`parsing SQL`, fmt.Errorf(`multiple statements are not supported: unexpected %q`, tok.Text)))
		}
		if tok.Type != TokenTypeWord || self.depths[ind] != 0 {
			continue
		}

		switch strings.ToUpper(tok.Text) {
		case `FROM`:
			// "a IS DISTINCT FROM b"
			if prev := self.prevSig(ind-1, first+1); prev >= 0 && self.toks[prev].IsKeyword(`DISTINCT`) {
				continue
			}
			if cur != sectionSelect {
				panic(errSyntax(`parsing SQL`, fmt.Errorf(`unexpected %q: clauses are out of order`, tok.Text)))
			}
			enter(sectionFrom, ind, ind+1)

		case `WHERE`:
			self.expectSection(cur, tok, sectionFrom)
			enter(sectionWhere, ind, ind+1)

		case `GROUP`, `HAVING`, `WINDOW`:
			if cur == sectionTail {
				continue
			}
			self.expectSection(cur, tok, sectionFrom, sectionWhere)
			enter(sectionTail, ind, ind)

		case `ORDER`:
			by := self.nextSig(ind + 1)
			if by < 0 || !self.toks[by].IsKeyword(`BY`) {
				continue
			}
			self.expectSection(cur, tok, sectionFrom, sectionWhere, sectionTail)
			enter(sectionOrder, ind, by+1)
			ind = by

		case `LIMIT`:
			self.expectSection(cur, tok, sectionFrom, sectionWhere, sectionTail, sectionOrder)
			enter(sectionLimit, ind, ind+1)

		case `OFFSET`:
			if cur != sectionLimit {
				panic(errSyntax(`parsing SQL`, fmt.Errorf(`OFFSET without LIMIT is not supported`)))
			}

		case `UNION`, `INTERSECT`, `EXCEPT`:
			panic(errSyntax(`parsing SQL`, fmt.Errorf(`compound statements are not supported: unexpected %q`, tok.Text)))

		case `FETCH`, `FOR`:
			panic(errSyntax(`parsing SQL`, fmt.Errorf(`unsupported clause %q`, tok.Text)))
		}
	}

	if !self.bounds[sectionFrom].ok {
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`missing FROM clause`)))
	}
}

func (self *parser) expectSection(cur section, tok Token, allowed ...section) {
	for _, val := range allowed {
		if cur == val {
			return
		}
	}
	if cur == sectionSelect {
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`missing FROM clause before %q`, tok.Text)))
	}
	panic(errSyntax(`parsing SQL`, fmt.Errorf(`unexpected %q: clauses are out of order`, tok.Text)))
}

/*
Splits the given range on top-level commas, converting each item. Empty items
are a syntax error.
*/
func parseList[A any](self *parser, bound span, desc string, fun func(lo, hi int) A) (out []A) {
	lo := bound.lo
	for ind := bound.lo; ind <= bound.hi; ind++ {
		if ind < bound.hi && (self.toks[ind].Type != TokenTypeComma || self.depths[ind] != 0) {
			continue
		}
		if self.join(lo, ind) == `` {
			panic(errSyntax(`parsing SQL`, fmt.Errorf(`empty item in %v`, desc)))
		}
		out = append(out, fun(lo, ind))
		lo = ind + 1
	}
	return
}

/*
Splits the WHERE clause into conjuncts joined by `And`. The AND of
"x BETWEEN a AND b" is not a conjunction. A top-level OR makes the entire
clause one bracketed `Raw` node.
*/
func (self *parser) where(lo, hi int) (out []Node) {
	if self.join(lo, hi) == `` {
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`empty WHERE clause`)))
	}

	for ind := lo; ind < hi; ind++ {
		if self.depths[ind] == 0 && self.toks[ind].IsKeyword(`OR`) {
			return []Node{Raw(`(` + self.join(lo, hi) + `)`)}
		}
	}

	var between bool
	start := lo
	for ind := lo; ind <= hi; ind++ {
		if ind < hi {
			tok := self.toks[ind]
			if self.depths[ind] != 0 {
				continue
			}
			if tok.IsKeyword(`BETWEEN`) {
				between = true
				continue
			}
			if !tok.IsKeyword(`AND`) {
				continue
			}
			if between {
				between = false
				continue
			}
		}

		if self.join(start, ind) == `` {
			panic(errSyntax(`parsing SQL`, fmt.Errorf(`empty operand of AND in WHERE clause`)))
		}
		if len(out) > 0 {
			out = append(out, And{})
		}
		out = append(out, self.predicate(start, ind)...)
		start = ind + 1
	}
	return
}

// Converts one conjunct into nodes.
func (self *parser) predicate(lo, hi int) []Node {
	sig := self.sig(lo, hi)

	if len(sig) == 3 && sig[0].IsIdent() && isOpToken(sig[1]) && sig[2].Type == TokenTypePlaceholder {
		return []Node{Col(sig[0].Text), Op(strings.ToUpper(sig[1].Text)), Param{}}
	}

	if len(sig) == 4 && sig[0].IsIdent() && sig[1].IsKeyword(`NOT`) &&
		isOpToken(sig[2]) && sig[2].Type == TokenTypeWord && sig[3].Type == TokenTypePlaceholder {
		return []Node{Col(sig[0].Text), Op(`NOT ` + strings.ToUpper(sig[2].Text)), Param{}}
	}

	return []Node{Raw(self.join(lo, hi))}
}

// Parses one ordering such as "t.col DESC NULLS LAST".
func (self *parser) ord(lo, hi int) (out Ord) {
	for lo < hi && self.toks[lo].Type == TokenTypeWhitespace {
		lo++
	}
	for hi > lo && self.toks[hi-1].Type == TokenTypeWhitespace {
		hi--
	}

	last := self.prevSig(hi-1, lo)
	if last >= 0 {
		prev := self.prevSig(last-1, lo)
		if prev >= 0 && self.toks[prev].IsKeyword(`NULLS`) {
			if self.toks[last].IsKeyword(`FIRST`) {
				out.Nulls = NullsFirst
				hi = prev
			} else if self.toks[last].IsKeyword(`LAST`) {
				out.Nulls = NullsLast
				hi = prev
			}
		}
	}

	last = self.prevSig(hi-1, lo)
	if last >= 0 {
		if self.toks[last].IsKeyword(`ASC`) {
			out.Dir = DirAsc
			hi = last
		} else if self.toks[last].IsKeyword(`DESC`) {
			out.Dir = DirDesc
			hi = last
		}
	}

	out.Expr = self.join(lo, hi)
	if out.Expr == `` {
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`ordering without expression`)))
	}
	return
}

// Accepts "LIMIT n", "LIMIT n OFFSET m", and the MySQL form "LIMIT m, n".
func (self *parser) limit(lo, hi int) Limit {
	sig := self.sig(lo, hi)

	switch {
	case len(sig) == 1:
		return Limit{Count: limitInt(sig[0])}
	case len(sig) == 3 && sig[1].IsKeyword(`OFFSET`):
		return Limit{Count: limitInt(sig[0]), Offset: limitInt(sig[2])}
	case len(sig) == 3 && sig[1].Type == TokenTypeComma:
		return Limit{Count: limitInt(sig[2]), Offset: limitInt(sig[0])}
	default:
		panic(errSyntax(`parsing SQL`, fmt.Errorf(`unsupported LIMIT clause %q`, self.join(lo, hi))))
	}
}

func limitInt(tok Token) int64 {
	if tok.Type == TokenTypeWord {
		val, err := strconv.ParseInt(tok.Text, 10, 64)
		if err == nil && val >= 0 {
			return val
		}
	}
	panic(errSyntax(
		`parsing SQL`,
		fmt.Errorf(`LIMIT and OFFSET must be non-negative integer literals, got %q`, tok.Text),
	))
}

// Concatenates the tokens in the range, trimming surrounding whitespace.
func (self *parser) join(lo, hi int) string {
	var buf []byte
	for _, tok := range self.toks[lo:hi] {
		buf = append(buf, tok.Text...)
	}
	return strings.TrimSpace(string(buf))
}

// Non-whitespace tokens in the range.
func (self *parser) sig(lo, hi int) (out []Token) {
	for _, tok := range self.toks[lo:hi] {
		if tok.Type != TokenTypeWhitespace {
			out = append(out, tok)
		}
	}
	return
}

// Index of the next non-whitespace token at or after the given index, or -1.
func (self *parser) nextSig(ind int) int {
	for ; ind < len(self.toks); ind++ {
		if self.toks[ind].Type != TokenTypeWhitespace {
			return ind
		}
	}
	return -1
}

// Index of the previous non-whitespace token at or before the given index, but
// not before `min`, or -1.
func (self *parser) prevSig(ind, min int) int {
	for ; ind >= min; ind-- {
		if self.toks[ind].Type != TokenTypeWhitespace {
			return ind
		}
	}
	return -1
}

func isOpToken(tok Token) bool {
	switch tok.Type {
	case TokenTypeSymbol:
		return symbolOps[tok.Text]
	case TokenTypeWord:
		return tok.IsKeyword(`LIKE`) || tok.IsKeyword(`ILIKE`)
	default:
		return false
	}
}

var symbolOps = map[string]bool{
	`=`: true, `<>`: true, `!=`: true, `<`: true, `>`: true, `<=`: true, `>=`: true,
}

func isReservedWord(val string) bool {
	return reservedWords[strings.ToUpper(val)]
}

var reservedWords = map[string]bool{
	`SELECT`: true, `FROM`: true, `WHERE`: true, `AND`: true, `OR`: true,
	`NOT`: true, `NULL`: true, `TRUE`: true, `FALSE`: true, `IS`: true,
	`IN`: true, `LIKE`: true, `ILIKE`: true, `BETWEEN`: true, `EXISTS`: true,
	`CASE`: true, `WHEN`: true, `THEN`: true, `ELSE`: true, `END`: true,
	`GROUP`: true, `ORDER`: true, `BY`: true, `HAVING`: true, `LIMIT`: true,
	`OFFSET`: true, `UNION`: true, `INTERSECT`: true, `EXCEPT`: true,
	`ASC`: true, `DESC`: true, `DISTINCT`: true, `AS`: true, `ON`: true,
	`JOIN`: true,
}
